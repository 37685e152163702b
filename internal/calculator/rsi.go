package calculator

import "math"

// RSI computes the Relative Strength Index from simple rolling means of gains and losses
// over the last `period` bar-to-bar deltas. Values are Undefined for t < period.
// A window without losses saturates at 100, including a completely flat window.
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(closes))
	for t := period; t < len(closes); t++ {
		var gain, loss float64
		for i := t - period + 1; i <= t; i++ {
			change := closes[i] - closes[i-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		avgGain := gain / float64(period)
		avgLoss := loss / float64(period)
		if math.IsNaN(avgGain) || math.IsNaN(avgLoss) {
			continue
		}
		if avgLoss == 0 {
			out[t] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		out[t] = 100.0 - 100.0/(1.0+rs)
	}
	return out, nil
}
