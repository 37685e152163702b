package calculator

import "SolanaPredictor/internal/model"

// HLRange returns the high-low range normalized by close: (high-low)/close.
func HLRange(bars []model.PriceBar) []float64 {
	out := undefinedSeries(len(bars))
	for i, b := range bars {
		if b.Close == 0 {
			continue
		}
		out[i] = (b.High - b.Low) / b.Close
	}
	return out
}
