// Package features joins raw bars with their indicators into a labelled training table.
package features

import (
	"fmt"

	"SolanaPredictor/internal/calculator"
	"SolanaPredictor/internal/model"
)

// Assemble builds one FeatureRow per bar whose indicators are all defined and which has a
// following bar to label the target with. Rows at the start of the series (insufficient
// history) and the final bar (no next close) are dropped.
func Assemble(bars []model.PriceBar) (*model.Dataset, error) {
	ds := &model.Dataset{FeatureNames: append([]string(nil), model.FeatureNames...)}
	if len(bars) < 2 {
		return ds, nil
	}

	ind, err := calculator.Compute(bars)
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}

	ds.Rows = make([]model.FeatureRow, 0, len(bars))
	for t := 0; t < len(bars)-1; t++ {
		b := bars[t]
		row := model.FeatureRow{
			Time:         b.Time,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			RSI:          ind.RSI[t],
			MA7:          ind.MA7[t],
			MA30:         ind.MA30[t],
			MA50:         ind.MA50[t],
			VolumeMA:     ind.VolumeMA[t],
			VolumeRatio:  ind.VolumeRatio[t],
			PriceChange:  ind.PriceChange[t],
			LogReturn:    ind.LogReturn[t],
			BBUpper:      ind.Bollinger.Upper[t],
			BBMiddle:     ind.Bollinger.Middle[t],
			BBLower:      ind.Bollinger.Lower[t],
			HLRange:      ind.HLRange[t],
			Volatility20: ind.Volatility20[t],
			Target:       bars[t+1].Close,
		}
		if !complete(row) {
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// ExpectedRows returns how many rows Assemble yields for n gap-free bars.
func ExpectedRows(n int) int {
	rows := n - (calculator.Lookback() - 1) - 1
	if rows < 0 {
		return 0
	}
	return rows
}

func complete(row model.FeatureRow) bool {
	if calculator.IsUndefined(row.Target) {
		return false
	}
	for _, v := range row.Vector() {
		if calculator.IsUndefined(v) {
			return false
		}
	}
	return true
}
