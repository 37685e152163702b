package features

import (
	"reflect"
	"testing"
	"time"

	"SolanaPredictor/internal/calculator"
	"SolanaPredictor/internal/model"
)

func bars(n int) []model.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PriceBar, n)
	for i := range out {
		c := 20 + float64(i)*0.5 + float64(i%4)
		out[i] = model.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   c - 0.2,
			High:   c + 0.7,
			Low:    c - 0.9,
			Close:  c,
			Volume: 5000 + float64(i%5)*100,
		}
	}
	return out
}

func TestAssemble_RowCount(t *testing.T) {
	for _, n := range []int{0, 1, 20, 50, 51, 52, 60, 120} {
		ds, err := Assemble(bars(n))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if ds.Len() != ExpectedRows(n) {
			t.Errorf("n=%d: got %d rows, want %d", n, ds.Len(), ExpectedRows(n))
		}
	}
	if ExpectedRows(60) != 10 {
		t.Errorf("ExpectedRows(60) = %d, want 10", ExpectedRows(60))
	}
}

func TestAssemble_NoUndefinedFields(t *testing.T) {
	ds, err := Assemble(bars(120))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for i, row := range ds.Rows {
		for j, v := range row.Vector() {
			if calculator.IsUndefined(v) {
				t.Fatalf("row %d feature %s undefined", i, model.FeatureNames[j])
			}
		}
	}
}

func TestAssemble_TargetIsNextClose(t *testing.T) {
	in := bars(80)
	ds, err := Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	first := calculator.Lookback() - 1
	for i, row := range ds.Rows {
		src := first + i
		if !row.Time.Equal(in[src].Time) {
			t.Fatalf("row %d: time %v, want %v", i, row.Time, in[src].Time)
		}
		if row.Target != in[src+1].Close {
			t.Errorf("row %d: target %.4f, want %.4f", i, row.Target, in[src+1].Close)
		}
	}
	last := ds.Rows[len(ds.Rows)-1]
	if !last.Time.Equal(in[len(in)-2].Time) {
		t.Errorf("last row should be the second to last bar, got %v", last.Time)
	}
}

func TestAssemble_FeatureNamesFixed(t *testing.T) {
	ds, _ := Assemble(bars(60))
	want := []string{
		"open", "high", "low", "close", "volume",
		"rsi", "ma_7", "ma_30", "ma_50", "volume_ma",
		"volume_ratio", "price_change", "log_return",
		"bb_upper", "bb_middle", "bb_lower",
		"hl_range", "volatility_20",
	}
	if !reflect.DeepEqual(ds.FeatureNames, want) {
		t.Errorf("feature names = %v", ds.FeatureNames)
	}
	if len(ds.Rows[0].Vector()) != len(want) {
		t.Errorf("vector length %d, want %d", len(ds.Rows[0].Vector()), len(want))
	}
	if ds.Rows[0].Vector()[model.CloseIndex] != ds.Rows[0].Close {
		t.Error("CloseIndex does not point at close")
	}
}

func TestAssemble_ZeroVolumeWindowExcluded(t *testing.T) {
	in := bars(70)
	for i := 55; i < 62; i++ {
		in[i].Volume = 0
	}
	ds, err := Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, row := range ds.Rows {
		if row.Time.Equal(in[61].Time) {
			t.Error("row with a zero volume average must be excluded")
		}
	}
	if ds.Len() != ExpectedRows(70)-1 {
		t.Errorf("got %d rows, want %d", ds.Len(), ExpectedRows(70)-1)
	}
}

func TestDataset_SplitIsChronological(t *testing.T) {
	ds, _ := Assemble(bars(150))
	train, test := ds.Split(0.8)
	if train.Len()+test.Len() != ds.Len() {
		t.Fatalf("split lost rows: %d + %d != %d", train.Len(), test.Len(), ds.Len())
	}
	if train.Len() != int(float64(ds.Len())*0.8) {
		t.Errorf("train size %d", train.Len())
	}
	maxTrain := train.Rows[train.Len()-1].Time
	for _, r := range train.Rows {
		if r.Time.After(maxTrain) {
			maxTrain = r.Time
		}
	}
	for _, r := range test.Rows {
		if !maxTrain.Before(r.Time) {
			t.Fatalf("test row %v not after last train row %v", r.Time, maxTrain)
		}
	}
}
