package trainer

import (
	"fmt"

	"SolanaPredictor/internal/forest"
)

// Target modes.
const (
	TargetDelta = "delta" // forest fits target - close, the close is added back on predict
	TargetLevel = "level"
)

// Model is the serialized regressor plus what is needed to turn its output into a price.
type Model struct {
	Forest       *forest.Forest `json:"forest"`
	TargetMode   string         `json:"target_mode"`
	BaseIndex    int            `json:"base_index"`
	FeatureNames []string       `json:"feature_names"`
}

// Predict scales raw and runs the forest. It is the only prediction path:
// evaluation and the artifact loader both go through it.
func Predict(m *Model, s *Scaler, raw []float64) (float64, error) {
	if len(raw) != len(m.FeatureNames) {
		return 0, fmt.Errorf("predict: got %d features, want %d", len(raw), len(m.FeatureNames))
	}
	scaled, err := s.Transform(raw)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	p, err := m.Forest.Predict(scaled)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if m.TargetMode == TargetDelta {
		p += raw[m.BaseIndex]
	}
	return p, nil
}

// PredictAll runs Predict for every row.
func PredictAll(m *Model, s *Scaler, x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := Predict(m, s, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
