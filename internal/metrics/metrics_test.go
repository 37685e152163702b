package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"SolanaPredictor/internal/model"
)

func TestMetrics_SetModelAndTextfile(t *testing.T) {
	m := New()
	m.ObserveRun("success", 3*time.Second)
	m.ObserveRun("skipped", 0)
	m.ObserveRun("skipped", 0)
	m.PendingFeedback.Set(4)
	m.SetModel(&model.ModelInfo{
		RetrainedDate: time.Unix(1714964400, 0),
		Metrics: model.EvalMetrics{
			Train:             model.SplitMetrics{RMSE: 1, MAE: 0.5, R2: 0.99},
			Test:              model.SplitMetrics{RMSE: 2, MAE: 1.5, R2: 0.9},
			FeatureImportance: map[string]float64{"close": 0.7, "rsi": 0.3},
		},
		TrainingStats: model.TrainingStats{SamplesTotal: 650},
	})

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("skipped")); got != 2 {
		t.Errorf("skipped runs: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ModelRMSE.WithLabelValues("test")); got != 2 {
		t.Errorf("test rmse: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != 1714964400 {
		t.Errorf("last success: got %v", got)
	}
	if got := testutil.CollectAndCount(m.RunDuration); got != 1 {
		t.Errorf("duration series: got %d", got)
	}

	path := filepath.Join(t.TempDir(), "retrain.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`retrain_runs_total{status="success"} 1`,
		`retrain_feature_importance{feature="close"} 0.7`,
		`retrain_feedback_pending 4`,
		`retrain_samples_total 650`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestWriteTextfile_Disabled(t *testing.T) {
	if err := New().WriteTextfile(""); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}
