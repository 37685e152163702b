package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"SolanaPredictor/internal/model"
)

// CSVSource reads daily bars from a CSV export.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a source backed by the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Name() string { return "csv" }

// FetchDailyBars reads the whole file. A missing or empty file yields ErrDataUnavailable.
func (s *CSVSource) FetchDailyBars(_ context.Context) ([]model.PriceBar, error) {
	bars, err := ReadBarsFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", model.ErrDataUnavailable, s.Path)
		}
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", model.ErrDataUnavailable, s.Path)
	}
	return model.SortBars(bars), nil
}

// ReadBarsFile opens path and parses it with ReadBars.
func ReadBarsFile(path string) ([]model.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// column aliases, keyed by normalized header name
var columnAliases = map[string]string{
	"open_time":        "time",
	"timestamp":        "time",
	"date":             "time",
	"datetime":         "time",
	"time":             "time",
	"open":             "open",
	"high":             "high",
	"low":              "low",
	"close":            "close",
	"volume":           "volume",
	"number_of_trades": "trade_count",
	"trade_count":      "trade_count",
	"trades":           "trade_count",
}

var requiredColumns = []string{"time", "open", "high", "low", "close", "volume"}

// ReadBars parses OHLCV rows from CSV. The header decides column positions, so both
// exchange exports ("Open time,Open,...,Number of trades") and lowercase files work.
// Rows are returned in file order.
func ReadBars(r io.Reader) ([]model.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var bars []model.PriceBar
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRecord(rec []string, cols map[string]int) (model.PriceBar, error) {
	var bar model.PriceBar
	ts, err := parseTime(rec[cols["time"]])
	if err != nil {
		return bar, err
	}
	bar.Time = ts

	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[f.name]]), 64)
		if err != nil {
			return bar, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if i, ok := cols["trade_count"]; ok {
		if raw := strings.TrimSpace(rec[i]); raw != "" {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return bar, fmt.Errorf("parse trade_count: %w", err)
			}
			bar.TradeCount = int64(n)
		}
	}
	return bar, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts the layouts above or a unix timestamp in seconds or milliseconds.
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
