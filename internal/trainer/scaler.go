package trainer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each feature to zero mean and unit population variance.
type Scaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// near-constant columns are left unscaled
const minScale = 10 * 2.220446049250313e-16

// FitScaler computes column moments over x.
func FitScaler(x [][]float64, names []string) (*Scaler, error) {
	if len(x) == 0 {
		return nil, errors.New("scaler: no rows")
	}
	nf := len(x[0])
	if len(names) != 0 && len(names) != nf {
		return nil, fmt.Errorf("scaler: %d names for %d features", len(names), nf)
	}
	s := &Scaler{
		FeatureNames: append([]string(nil), names...),
		Mean:         make([]float64, nf),
		Scale:        make([]float64, nf),
	}
	col := make([]float64, len(x))
	for j := 0; j < nf; j++ {
		for i, row := range x {
			if len(row) != nf {
				return nil, fmt.Errorf("scaler: row %d has %d features, want %d", i, len(row), nf)
			}
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		std := math.Sqrt(variance)
		if math.IsNaN(std) || std < minScale {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform returns a scaled copy of row.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: got %d features, want %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll scales every row of x.
func (s *Scaler) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		r, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}
