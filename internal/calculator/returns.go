package calculator

import "math"

// PriceChange computes close[t]/close[t-1] - 1. Undefined at t=0 and after a zero close.
func PriceChange(closes []float64) []float64 {
	out := undefinedSeries(len(closes))
	for t := 1; t < len(closes); t++ {
		if closes[t-1] == 0 {
			continue
		}
		out[t] = closes[t]/closes[t-1] - 1
	}
	return out
}

// LogReturn computes ln(close[t]/close[t-1]). Undefined at t=0 and for non-positive prices.
func LogReturn(closes []float64) []float64 {
	out := undefinedSeries(len(closes))
	for t := 1; t < len(closes); t++ {
		if closes[t-1] <= 0 || closes[t] <= 0 {
			continue
		}
		out[t] = math.Log(closes[t] / closes[t-1])
	}
	return out
}
