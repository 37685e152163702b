// Package app wires the retraining pipeline from configuration.
package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"SolanaPredictor/internal/artifact"
	"SolanaPredictor/internal/collector"
	"SolanaPredictor/internal/config"
	"SolanaPredictor/internal/metrics"
	"SolanaPredictor/internal/notifier"
	"SolanaPredictor/internal/pipeline"
	"SolanaPredictor/internal/recorder"
	"SolanaPredictor/internal/trainer"
)

// App holds the pipeline and the resources it owns.
type App struct {
	Pipeline *pipeline.Pipeline
	Telegram *notifier.TelegramNotifier // nil when no bot token is configured

	closers []io.Closer
}

// Close releases the recorder and the Redis connection.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewSource picks the primary history source. Yahoo falls back to the CSV file when one is set.
func NewSource(cfg *config.Config, log zerolog.Logger) collector.Source {
	ds := cfg.DataSource
	if ds.Type != "yahoo" {
		return collector.NewCSVSource(ds.HistoryFile)
	}
	yahoo := collector.NewYahooSource(ds.BaseURL, ds.Symbol, ds.Days, cfg.Proxy)
	if ds.HistoryFile == "" {
		return yahoo
	}
	return &collector.FallbackSource{Primary: yahoo, Secondary: collector.NewCSVSource(ds.HistoryFile), Log: log}
}

// New builds every collaborator of the pipeline. Optional integrations degrade to no-ops.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	src := NewSource(cfg, log)
	log.Info().Str("source", src.Name()).Msg("data source selected")
	loader := collector.NewLoader(src, &collector.FeedbackDir{Dir: cfg.Feedback.Dir, Pattern: cfg.Feedback.Pattern}, log)

	mgr, err := artifact.NewManager(cfg.Artifact.ModelDir, cfg.Artifact.BackupDir, log)
	if err != nil {
		return nil, fmt.Errorf("init artifact manager: %w", err)
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			a.closers = append(a.closers, sr)
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var notif notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" {
		a.Telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		notif = a.Telegram
	}

	var pub notifier.Publisher = notifier.Noop{}
	if cfg.Redis.Addr != "" {
		rp := notifier.NewRedisPublisher(notifier.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		pub = rp
		a.closers = append(a.closers, rp)
	}

	a.Pipeline = pipeline.New(pipeline.Config{
		Name:        cfg.Artifact.Name,
		Version:     cfg.Artifact.Version,
		MinFeedback: cfg.Trigger.MinFeedback,
		Trainer: trainer.Config{
			SplitRatio:      cfg.Training.SplitRatio,
			MinSamples:      cfg.Training.MinSamples,
			TargetMode:      cfg.Training.TargetMode,
			Hyperparameters: cfg.Training.Hyperparameters,
		},
		TextfilePath: cfg.Metrics.TextfilePath,
	}, pipeline.Deps{
		Loader:    loader,
		Artifacts: mgr,
		Audit:     artifact.NewAuditLog(cfg.Artifact.LogFile),
		Recorder:  rec,
		Metrics:   metrics.New(),
		Notifier:  notif,
		Publisher: pub,
		Log:       log,
	})
	return a, nil
}
