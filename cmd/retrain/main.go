package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"SolanaPredictor/internal/app"
	"SolanaPredictor/internal/config"
	"SolanaPredictor/internal/logger"
	"SolanaPredictor/internal/pipeline"
)

func main() {
	force := flag.Bool("force", false, "retrain even if fewer feedback files than the threshold are pending")
	flag.Parse()
	os.Exit(run(*force))
}

func run(force bool) int {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		return 1
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer closer.Close()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("init")
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := a.Pipeline.Run(ctx, force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "retraining failed: %v\n", err)
		return 1
	}
	printSummary(res, cfg.Trigger.MinFeedback)
	return 0
}

func printSummary(res *pipeline.Result, threshold int) {
	if res.Skipped {
		fmt.Printf("Skipped: %d feedback files pending, %d needed (use --force to retrain anyway)\n",
			res.PendingFeedback, threshold)
		return
	}
	info := res.Info
	fmt.Printf("Model retrained (run %s)\n", res.RunID)
	fmt.Printf("  samples:   %d total, %d new, %d train / %d test\n",
		info.TrainingStats.SamplesTotal, info.TrainingStats.SamplesNew,
		info.TrainingStats.TrainSamples, info.TrainingStats.TestSamples)
	fmt.Printf("  train:     RMSE %.4f  MAE %.4f  R2 %.4f\n", info.Metrics.Train.RMSE, info.Metrics.Train.MAE, info.Metrics.Train.R2)
	fmt.Printf("  test:      RMSE %.4f  MAE %.4f  R2 %.4f\n", info.Metrics.Test.RMSE, info.Metrics.Test.MAE, info.Metrics.Test.R2)
	fmt.Printf("  feedback:  %d files archived\n", len(res.Archived))
	for _, w := range res.Warnings {
		fmt.Printf("  warning:   %s\n", w)
	}

	names := make([]string, 0, len(info.Metrics.FeatureImportance))
	for k := range info.Metrics.FeatureImportance {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		return info.Metrics.FeatureImportance[names[i]] > info.Metrics.FeatureImportance[names[j]]
	})
	if len(names) > 5 {
		names = names[:5]
	}
	fmt.Println("  top features:")
	for _, n := range names {
		fmt.Printf("    %-14s %.4f\n", n, info.Metrics.FeatureImportance[n])
	}
	fmt.Printf("  duration:  %s\n", res.Duration)
}
