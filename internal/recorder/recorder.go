package recorder

import "time"

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// RunRecord holds the outcome of one retraining run.
type RunRecord struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Forced        bool
	Status        string
	Stage         string // stage that failed, empty on success
	Error         string
	SamplesTotal  int
	SamplesNew    int
	FeedbackFiles int
	TrainSamples  int
	TestSamples   int
	TrainRMSE     float64
	TestRMSE      float64
	TestMAE       float64
	TestR2        float64
	ModelSHA256   string
}

// ArchivedFeedback records one feedback file consumed by a run.
type ArchivedFeedback struct {
	RunID      string
	Source     string
	ArchivedTo string
	Rows       int
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecordArchived(evt *ArchivedFeedback) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
