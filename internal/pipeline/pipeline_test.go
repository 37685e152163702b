package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"SolanaPredictor/internal/artifact"
	"SolanaPredictor/internal/collector"
	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/trainer"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type env struct {
	root        string
	historyPath string
	feedbackDir string
	modelDir    string
	backupDir   string
	logPath     string
	p           *Pipeline
}

func linearCSV(from, to int) string {
	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	for i := from; i < to; i++ {
		c := 100 + float64(i)
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,%g\n",
			epoch.AddDate(0, 0, i).Format("2006-01-02"), c-0.5, c+1, c-1, c, 1000+float64(i%3)*10)
	}
	return b.String()
}

func newEnv(t *testing.T, bars int) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		root:        root,
		historyPath: filepath.Join(root, "data", "history.csv"),
		feedbackDir: filepath.Join(root, "feedback"),
		modelDir:    filepath.Join(root, "models"),
		backupDir:   filepath.Join(root, "backups"),
		logPath:     filepath.Join(root, "logs", "retraining.log"),
	}
	for _, d := range []string{filepath.Dir(e.historyPath), e.feedbackDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(e.historyPath, []byte(linearCSV(0, bars)), 0o644); err != nil {
		t.Fatal(err)
	}

	log := zerolog.Nop()
	mgr, err := artifact.NewManager(e.modelDir, e.backupDir, log)
	if err != nil {
		t.Fatal(err)
	}
	loader := collector.NewLoader(collector.NewCSVSource(e.historyPath),
		&collector.FeedbackDir{Dir: e.feedbackDir, Pattern: "feedback_*.csv"}, log)

	runs := 0
	e.p = New(Config{
		Name:        "test predictor",
		Version:     "2.0",
		MinFeedback: 10,
		Trainer: trainer.Config{
			SplitRatio: 0.8,
			MinSamples: 10,
			TargetMode: trainer.TargetDelta,
			Hyperparameters: model.Hyperparameters{
				NEstimators: 10, MaxDepth: 20, MinSamplesSplit: 5, MinSamplesLeaf: 2, RandomState: 42,
			},
		},
		TextfilePath: filepath.Join(root, "retrain.prom"),
	}, Deps{
		Loader:    loader,
		Artifacts: mgr,
		Audit:     artifact.NewAuditLog(e.logPath),
		Log:       log,
	})
	e.p.newID = func() string {
		runs++
		return fmt.Sprintf("run-%d", runs)
	}
	return e
}

func (e *env) writeFeedback(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.feedbackDir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *env) auditLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestRun_LinearTrend(t *testing.T) {
	e := newEnv(t, 60)

	res, err := e.p.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped || res.Info == nil {
		t.Fatalf("expected a trained model, got %+v", res)
	}
	if rmse := res.Info.Metrics.Test.RMSE; rmse > 1e-6 {
		t.Errorf("test rmse: got %v, want ~0", rmse)
	}
	if !slices.Equal(res.Info.Features, model.FeatureNames) {
		t.Errorf("features: got %v", res.Info.Features)
	}
	if res.Info.TrainingStats.SamplesTotal != 10 || res.Info.TrainingStats.FeaturesCount != len(model.FeatureNames) {
		t.Errorf("training stats: got %+v", res.Info.TrainingStats)
	}
	if e.p.State() != StageIdle {
		t.Errorf("state: got %s, want idle", e.p.State())
	}

	pred, err := artifact.Load(e.modelDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(pred.FeatureNames(), model.FeatureNames) {
		t.Errorf("loaded features: got %v", pred.FeatureNames())
	}
	if pred.Info().RunID != "run-1" {
		t.Errorf("loaded run id: got %q", pred.Info().RunID)
	}

	lines := e.auditLines(t)
	if len(lines) != 1 || !strings.Contains(lines[0], `"action":"model_retraining"`) || !strings.Contains(lines[0], `"run_id":"run-1"`) {
		t.Errorf("audit log: got %v", lines)
	}

	prom, err := os.ReadFile(filepath.Join(e.root, "retrain.prom"))
	if err != nil {
		t.Fatalf("textfile: %v", err)
	}
	if !strings.Contains(string(prom), `retrain_runs_total{status="success"} 1`) {
		t.Errorf("textfile missing success counter:\n%s", prom)
	}
}

func TestRun_InsufficientData(t *testing.T) {
	e := newEnv(t, 20)

	_, err := e.p.Run(context.Background(), true)
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	var serr *StageError
	if !errors.As(err, &serr) || serr.Stage != StageTraining {
		t.Errorf("expected training StageError, got %#v", err)
	}
	if _, err := os.Stat(filepath.Join(e.modelDir, artifact.ModelFile)); !errors.Is(err, os.ErrNotExist) {
		t.Error("no artifact may be written")
	}
	if lines := e.auditLines(t); len(lines) != 0 {
		t.Errorf("no success may be logged, got %v", lines)
	}
	if e.p.State() != StageFailed {
		t.Errorf("state: got %s, want failed", e.p.State())
	}
}

func TestRun_SkipsBelowThreshold(t *testing.T) {
	e := newEnv(t, 60)
	for i := 0; i < 3; i++ {
		e.writeFeedback(t, fmt.Sprintf("feedback_%02d.csv", i), linearCSV(60+i, 61+i))
	}

	res, err := e.p.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Skipped || res.PendingFeedback != 3 {
		t.Errorf("expected skip with 3 pending, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(e.modelDir, artifact.ModelFile)); !errors.Is(err, os.ErrNotExist) {
		t.Error("skipped run must not write an artifact")
	}
	if n, _ := e.p.PendingFeedback(); n != 3 {
		t.Errorf("feedback must stay pending, got %d", n)
	}
}

func TestRun_MalformedFeedbackDoesNotTrigger(t *testing.T) {
	e := newEnv(t, 60)
	for i := 0; i < 9; i++ {
		e.writeFeedback(t, fmt.Sprintf("feedback_%02d.csv", i), linearCSV(60+i, 61+i))
	}
	for i := 0; i < 5; i++ {
		e.writeFeedback(t, fmt.Sprintf("feedback_bad_%02d.csv", i), "date,open,high,low,close,volume\nbroken,1,1,1,1,1\n")
	}

	res, err := e.p.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Skipped || res.PendingFeedback != 9 {
		t.Errorf("expected skip with 9 valid batches pending, got %+v", res)
	}
}

func TestRun_ConsumesFeedback(t *testing.T) {
	e := newEnv(t, 60)
	for i := 0; i < 10; i++ {
		e.writeFeedback(t, fmt.Sprintf("feedback_%02d.csv", i), linearCSV(60+i, 61+i))
	}
	e.writeFeedback(t, "feedback_99.csv", "date,open,high,low,close,volume\nbroken,1,1,1,1,1\n")

	res, err := e.p.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped {
		t.Fatal("threshold reached, run should not skip")
	}
	if res.FeedbackFiles != 10 || len(res.Archived) != 10 {
		t.Errorf("feedback: consumed %d, archived %d, want 10", res.FeedbackFiles, len(res.Archived))
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected one warning for the broken file, got %v", res.Warnings)
	}
	if res.Info.TrainingStats.SamplesNew != 10 || res.Info.TrainingStats.SamplesTotal != 20 {
		t.Errorf("training stats: got %+v", res.Info.TrainingStats)
	}

	left, err := filepath.Glob(filepath.Join(e.feedbackDir, "feedback_*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || filepath.Base(left[0]) != "feedback_99.csv" {
		t.Errorf("only the malformed file should remain, got %v", left)
	}
	archived, _ := filepath.Glob(filepath.Join(e.feedbackDir, "archived", "*.csv"))
	if len(archived) != 10 {
		t.Errorf("archived files: got %d, want 10", len(archived))
	}
}

func TestRun_FailureKeepsArtifact(t *testing.T) {
	e := newEnv(t, 60)
	if _, err := e.p.Run(context.Background(), true); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := os.Remove(e.historyPath); err != nil {
		t.Fatal(err)
	}

	_, err := e.p.Run(context.Background(), true)
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	var serr *StageError
	if !errors.As(err, &serr) || serr.Stage != StageLoading {
		t.Errorf("expected loading StageError, got %v", err)
	}

	info, err := e.p.Current()
	if err != nil || info == nil || info.RunID != "run-1" {
		t.Fatalf("active artifact changed: %+v %v", info, err)
	}
	if entries, _ := os.ReadDir(e.backupDir); len(entries) != 0 {
		t.Errorf("failed run must not rotate backups, found %d files", len(entries))
	}
	if lines := e.auditLines(t); len(lines) != 1 {
		t.Errorf("audit log: got %d lines, want 1", len(lines))
	}
}

func TestRun_SecondRunBacksUp(t *testing.T) {
	e := newEnv(t, 60)
	for i := 0; i < 2; i++ {
		if _, err := e.p.Run(context.Background(), true); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	entries, err := os.ReadDir(e.backupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected model, scaler and metrics backups, got %d files", len(entries))
	}
	info, _ := e.p.Current()
	if info.RunID != "run-2" {
		t.Errorf("current run: got %q, want run-2", info.RunID)
	}
	if math.IsNaN(info.Metrics.Test.R2) {
		t.Error("r2 must be finite")
	}
}

func TestTryRun_Busy(t *testing.T) {
	e := newEnv(t, 60)
	e.p.run.Lock()
	defer e.p.run.Unlock()

	if _, err := e.p.TryRun(context.Background(), true); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	e := newEnv(t, 60)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.p.Run(ctx, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
