package calculator

import (
	"gonum.org/v1/gonum/stat"
)

// SMA computes the simple moving average of values over the given period, aligned to the input.
// out[t] is the mean of values[t-period+1..t] and is Undefined for t < period-1.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(values))
	for t := period - 1; t < len(values); t++ {
		out[t] = stat.Mean(values[t-period+1:t+1], nil)
	}
	return out, nil
}

// RollingStdDev computes the sample standard deviation (n-1 denominator) over a rolling window.
func RollingStdDev(values []float64, period int) ([]float64, error) {
	if period <= 1 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(values))
	for t := period - 1; t < len(values); t++ {
		out[t] = stat.StdDev(values[t-period+1:t+1], nil)
	}
	return out, nil
}

// Ratio divides num by den element-wise; the result is Undefined where either side is
// Undefined or the denominator is zero.
func Ratio(num, den []float64) []float64 {
	out := undefinedSeries(len(num))
	for i := range num {
		if i >= len(den) || IsUndefined(num[i]) || IsUndefined(den[i]) || den[i] == 0 {
			continue
		}
		out[i] = num[i] / den[i]
	}
	return out
}
