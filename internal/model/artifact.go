package model

import "time"

// SplitMetrics holds regression metrics for one partition.
type SplitMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// EvalMetrics holds train/test metrics and per-feature importances.
type EvalMetrics struct {
	Train             SplitMetrics       `json:"train"`
	Test              SplitMetrics       `json:"test"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// Hyperparameters of the random forest regressor.
type Hyperparameters struct {
	NEstimators     int   `json:"n_estimators" yaml:"n_estimators" default:"150" validate:"min=1"`
	MaxDepth        int   `json:"max_depth" yaml:"max_depth" default:"20" validate:"min=0"`
	MinSamplesSplit int   `json:"min_samples_split" yaml:"min_samples_split" default:"5" validate:"min=2"`
	MinSamplesLeaf  int   `json:"min_samples_leaf" yaml:"min_samples_leaf" default:"2" validate:"min=1"`
	RandomState     int64 `json:"random_state" yaml:"random_state" default:"42"`
}

// TrainingStats describes the data a model was fitted on.
type TrainingStats struct {
	SamplesTotal  int `json:"samples_total"`
	SamplesNew    int `json:"samples_new"`
	FeaturesCount int `json:"features_count"`
	TrainSamples  int `json:"train_samples"`
	TestSamples   int `json:"test_samples"`
}

// ArtifactDigests lets readers verify that blobs belong to this metrics document.
type ArtifactDigests struct {
	ModelSHA256  string `json:"model_sha256"`
	ScalerSHA256 string `json:"scaler_sha256"`
}

// ModelInfo is the metrics and metadata document stored next to the model blobs.
type ModelInfo struct {
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	RunID           string          `json:"run_id"`
	RetrainedDate   time.Time       `json:"retrained_date"`
	Features        []string        `json:"features"`
	Metrics         EvalMetrics     `json:"metrics"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	TargetMode      string          `json:"target_mode"`
	TrainingStats   TrainingStats   `json:"training_stats"`
	Artifacts       ArtifactDigests `json:"artifacts"`
}

// LogEntry is one line of the append-only retraining log.
type LogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    string      `json:"action"`
	Details   interface{} `json:"details"`
}

// RetrainDetails is the payload of a "model_retraining" log entry.
type RetrainDetails struct {
	RunID           string       `json:"run_id"`
	SamplesTotal    int          `json:"samples_total"`
	FeedbackSamples int          `json:"feedback_samples"`
	Metrics         SplitMetrics `json:"metrics"`
	DurationSeconds float64      `json:"duration_seconds"`
}
