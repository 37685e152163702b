package trainer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"SolanaPredictor/internal/model"
)

// Evaluate computes RMSE, MAE and R² of pred against actual.
func Evaluate(pred, actual []float64) model.SplitMetrics {
	if len(pred) == 0 || len(pred) != len(actual) {
		return model.SplitMetrics{}
	}
	var se, ae float64
	for i := range pred {
		d := pred[i] - actual[i]
		se += d * d
		ae += math.Abs(d)
	}
	n := float64(len(pred))
	return model.SplitMetrics{
		RMSE: math.Sqrt(se / n),
		MAE:  ae / n,
		R2:   rSquared(pred, actual, se),
	}
}

// rSquared follows scikit-learn for a constant target: 1 for a perfect fit, else 0.
func rSquared(pred, actual []float64, se float64) float64 {
	r2 := stat.RSquaredFrom(pred, actual, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		if se == 0 {
			return 1
		}
		return 0
	}
	return r2
}
