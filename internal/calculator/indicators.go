package calculator

import (
	"fmt"

	"SolanaPredictor/internal/model"
)

// Indicator windows. Feature names embed these numbers, so they are not configurable.
const (
	PeriodMAShort    = 7
	PeriodMAMedium   = 30
	PeriodMALong     = 50
	PeriodVolumeMA   = 7
	PeriodRSI        = 14
	PeriodBollinger  = 20
	PeriodVolatility = 20
	BollingerK       = 2.0
)

// Indicators holds every derived series, each aligned to the input bars.
type Indicators struct {
	PriceChange  []float64
	LogReturn    []float64
	MA7          []float64
	MA30         []float64
	MA50         []float64
	VolumeMA     []float64
	VolumeRatio  []float64
	RSI          []float64
	Bollinger    Bands
	HLRange      []float64
	Volatility20 []float64
}

// Lookback returns the number of bars needed before every indicator is defined.
func Lookback() int {
	return maxN(
		PeriodMALong,
		PeriodMAMedium,
		PeriodMAShort,
		PeriodVolumeMA,
		PeriodRSI+1, // RSI needs period deltas
		PeriodBollinger,
		PeriodVolatility+1, // volatility runs over price changes
	)
}

// Compute derives all indicators from an ordered bar series.
func Compute(bars []model.PriceBar) (*Indicators, error) {
	closes := model.Closes(bars)
	volumes := model.Volumes(bars)

	ind := &Indicators{
		PriceChange: PriceChange(closes),
		LogReturn:   LogReturn(closes),
		HLRange:     HLRange(bars),
	}

	var err error
	if ind.MA7, err = SMA(closes, PeriodMAShort); err != nil {
		return nil, fmt.Errorf("ma_7: %w", err)
	}
	if ind.MA30, err = SMA(closes, PeriodMAMedium); err != nil {
		return nil, fmt.Errorf("ma_30: %w", err)
	}
	if ind.MA50, err = SMA(closes, PeriodMALong); err != nil {
		return nil, fmt.Errorf("ma_50: %w", err)
	}
	if ind.VolumeMA, err = SMA(volumes, PeriodVolumeMA); err != nil {
		return nil, fmt.Errorf("volume_ma: %w", err)
	}
	ind.VolumeRatio = Ratio(volumes, ind.VolumeMA)
	if ind.RSI, err = RSI(closes, PeriodRSI); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	if ind.Bollinger, err = Bollinger(closes, PeriodBollinger, BollingerK); err != nil {
		return nil, fmt.Errorf("bollinger: %w", err)
	}
	if ind.Volatility20, err = RollingStdDev(ind.PriceChange, PeriodVolatility); err != nil {
		return nil, fmt.Errorf("volatility_20: %w", err)
	}
	return ind, nil
}

func maxN(vals ...int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
