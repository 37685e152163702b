package calculator

// Bands holds Bollinger Band series aligned to the input.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes bands at middle ± k·std, where middle is the period SMA and std the
// sample standard deviation of closes over the same window.
func Bollinger(closes []float64, period int, k float64) (Bands, error) {
	middle, err := SMA(closes, period)
	if err != nil {
		return Bands{}, err
	}
	std, err := RollingStdDev(closes, period)
	if err != nil {
		return Bands{}, err
	}
	b := Bands{
		Upper:  undefinedSeries(len(closes)),
		Middle: middle,
		Lower:  undefinedSeries(len(closes)),
	}
	for t := range closes {
		if IsUndefined(middle[t]) || IsUndefined(std[t]) {
			continue
		}
		b.Upper[t] = middle[t] + k*std[t]
		b.Lower[t] = middle[t] - k*std[t]
	}
	return b, nil
}
