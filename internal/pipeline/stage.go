package pipeline

import "fmt"

// Stage is a state of a retraining run.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageLoading   Stage = "loading"
	StageTraining  Stage = "training"
	StageSaving    Stage = "saving"
	StageArchiving Stage = "archiving"
	StageFailed    Stage = "failed"
)

// StageError wraps the error that moved a run to StageFailed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
