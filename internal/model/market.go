package model

import (
	"sort"
	"time"
)

// PriceBar represents a single daily OHLCV bar.
type PriceBar struct {
	Time       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64 // 0 when the source does not report it
}

// PriceSeries holds raw price data for one asset.
type PriceSeries struct {
	Symbol    string
	Bars      []PriceBar
	FetchedAt time.Time
}

// FeedbackBatch is one accumulated feedback file, consumed by a retraining run and then archived.
type FeedbackBatch struct {
	Path string
	Bars []PriceBar
}

// SortBars returns bars ordered by strictly increasing time.
// When two bars share a timestamp the one appearing later in the input wins,
// so feedback appended after history overrides the historical bar.
func SortBars(bars []PriceBar) []PriceBar {
	out := make([]PriceBar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// Closes extracts close prices in series order.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts volumes in series order.
func Volumes(bars []PriceBar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
