package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the primary historical source is missing or empty.
	ErrDataUnavailable = errors.New("historical data unavailable")
	// ErrInsufficientData means too few usable rows remain after feature assembly.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrArtifactWrite means persisting a new artifact failed; the previous one stays recoverable.
	ErrArtifactWrite = errors.New("artifact write failed")
	// ErrArtifactMismatch means the blobs on disk do not match the metrics document,
	// typically because a rotation happened between reads. Callers may retry.
	ErrArtifactMismatch = errors.New("artifact digest mismatch")
)

// InsufficientDataError reports how many rows were available and how many are needed.
type InsufficientDataError struct {
	Got, Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: got %d rows, need at least %d", e.Got, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
