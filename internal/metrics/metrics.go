// Package metrics exposes retraining run metrics for a node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SolanaPredictor/internal/model"
)

// Metrics holds the Prometheus collectors of the retraining pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec // labels: status
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
	PendingFeedback prometheus.Gauge
	SamplesTotal    prometheus.Gauge
	ModelRMSE       *prometheus.GaugeVec // labels: split
	ModelMAE        *prometheus.GaugeVec // labels: split
	ModelR2         *prometheus.GaugeVec // labels: split
	Importance      *prometheus.GaugeVec // labels: feature
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "retrain_runs_total",
			Help: "Retraining runs by outcome",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "retrain_run_duration_seconds",
			Help:    "Wall time of completed retraining runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "retrain_last_success_timestamp_seconds",
			Help: "Unix time of the last successful retraining",
		}),
		PendingFeedback: f.NewGauge(prometheus.GaugeOpts{
			Name: "retrain_feedback_pending",
			Help: "Feedback files waiting for the next run",
		}),
		SamplesTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "retrain_samples_total",
			Help: "Rows the current model was trained and tested on",
		}),
		ModelRMSE: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retrain_model_rmse",
			Help: "RMSE of the current model",
		}, []string{"split"}),
		ModelMAE: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retrain_model_mae",
			Help: "MAE of the current model",
		}, []string{"split"}),
		ModelR2: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retrain_model_r2",
			Help: "R squared of the current model",
		}, []string{"split"}),
		Importance: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retrain_feature_importance",
			Help: "Impurity importance of each feature in the current model",
		}, []string{"feature"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRun counts a run and, for completed runs, its duration.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	if status != "skipped" {
		m.RunDuration.Observe(d.Seconds())
	}
}

// SetModel publishes the metrics document of a newly saved model.
func (m *Metrics) SetModel(info *model.ModelInfo) {
	m.LastSuccess.Set(float64(info.RetrainedDate.Unix()))
	m.SamplesTotal.Set(float64(info.TrainingStats.SamplesTotal))
	for split, sm := range map[string]model.SplitMetrics{
		"train": info.Metrics.Train,
		"test":  info.Metrics.Test,
	} {
		m.ModelRMSE.WithLabelValues(split).Set(sm.RMSE)
		m.ModelMAE.WithLabelValues(split).Set(sm.MAE)
		m.ModelR2.WithLabelValues(split).Set(sm.R2)
	}
	for name, v := range info.Metrics.FeatureImportance {
		m.Importance.WithLabelValues(name).Set(v)
	}
}

// WriteTextfile writes the registry in text format. An empty path disables it.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
