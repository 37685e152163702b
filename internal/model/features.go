package model

import (
	"time"
)

// FeatureNames is the fixed column order shared by training and serving.
// A model artifact records this list; predictions must supply vectors in the same order.
var FeatureNames = []string{
	"open", "high", "low", "close", "volume",
	"rsi", "ma_7", "ma_30", "ma_50", "volume_ma",
	"volume_ratio", "price_change", "log_return",
	"bb_upper", "bb_middle", "bb_lower",
	"hl_range", "volatility_20",
}

// CloseIndex is the position of "close" in FeatureNames.
const CloseIndex = 3

// FeatureRow is one fully-populated training sample ending at Time.
type FeatureRow struct {
	Time         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	RSI          float64
	MA7          float64
	MA30         float64
	MA50         float64
	VolumeMA     float64
	VolumeRatio  float64
	PriceChange  float64
	LogReturn    float64
	BBUpper      float64
	BBMiddle     float64
	BBLower      float64
	HLRange      float64
	Volatility20 float64
	Target       float64 // next bar close
}

// Vector returns the row's features in FeatureNames order.
func (r FeatureRow) Vector() []float64 {
	return []float64{
		r.Open, r.High, r.Low, r.Close, r.Volume,
		r.RSI, r.MA7, r.MA30, r.MA50, r.VolumeMA,
		r.VolumeRatio, r.PriceChange, r.LogReturn,
		r.BBUpper, r.BBMiddle, r.BBLower,
		r.HLRange, r.Volatility20,
	}
}

// Dataset is an ordered sequence of feature rows.
type Dataset struct {
	Rows         []FeatureRow
	FeatureNames []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Split partitions the dataset by position: the first ratio fraction is train, the rest test.
// Rows are never shuffled, so every test row is later than every train row.
func (d *Dataset) Split(ratio float64) (train, test *Dataset) {
	idx := int(float64(len(d.Rows)) * ratio)
	if idx < 0 {
		idx = 0
	}
	if idx > len(d.Rows) {
		idx = len(d.Rows)
	}
	train = &Dataset{Rows: d.Rows[:idx], FeatureNames: d.FeatureNames}
	test = &Dataset{Rows: d.Rows[idx:], FeatureNames: d.FeatureNames}
	return train, test
}

// Matrix returns the feature matrix and target vector.
func (d *Dataset) Matrix() (X [][]float64, y []float64) {
	X = make([][]float64, len(d.Rows))
	y = make([]float64, len(d.Rows))
	for i, r := range d.Rows {
		X[i] = r.Vector()
		y[i] = r.Target
	}
	return X, y
}
