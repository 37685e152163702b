package calculator

import (
	"errors"
	"math"
)

// Undefined marks an indicator value whose lookback window is not yet satisfied
// or whose inputs make it meaningless (e.g. division by zero).
var Undefined = math.NaN()

var errPeriod = errors.New("period must be positive")

// IsUndefined reports whether v is the Undefined marker or otherwise non-finite.
func IsUndefined(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// FirstDefined returns the index of the first defined value, or -1.
func FirstDefined(series []float64) int {
	for i, v := range series {
		if !IsUndefined(v) {
			return i
		}
	}
	return -1
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = Undefined
	}
	return out
}
