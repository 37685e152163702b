package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"SolanaPredictor/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	Price float64
	Count int
	Bars  []model.PriceBar
	Err   error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchDailyBars(_ context.Context) ([]model.PriceBar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return generateMockBars(m.Price, m.Count), nil
}

func generateMockBars(basePrice float64, count int) []model.PriceBar {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -count)
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// FallbackSource tries Primary first and falls back to Secondary when it fails.
type FallbackSource struct {
	Primary   Source
	Secondary Source
	Log       zerolog.Logger
}

func (f *FallbackSource) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *FallbackSource) FetchDailyBars(ctx context.Context) ([]model.PriceBar, error) {
	bars, err := f.Primary.FetchDailyBars(ctx)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	f.Log.Warn().Err(err).Str("source", f.Primary.Name()).Msg("primary source failed, using fallback")
	fallback, fbErr := f.Secondary.FetchDailyBars(ctx)
	if fbErr != nil {
		return nil, fmt.Errorf("%s failed: %w; %s fallback also failed: %w",
			f.Primary.Name(), err, f.Secondary.Name(), fbErr)
	}
	return fallback, nil
}

// LoadResult is the merged series for one run plus what was consumed to build it.
type LoadResult struct {
	Bars         []model.PriceBar
	HistoryCount int
	Feedback     []model.FeedbackBatch
	FeedbackRows int
	Warnings     []string
}

// Loader merges the primary history with pending feedback batches.
type Loader struct {
	Source   Source
	Feedback *FeedbackDir
	Log      zerolog.Logger
}

// NewLoader creates a new Loader.
func NewLoader(src Source, fb *FeedbackDir, log zerolog.Logger) *Loader {
	return &Loader{Source: src, Feedback: fb, Log: log}
}

// PendingFeedback counts feedback batches the next run would consume. Files that
// do not parse stay in the directory but never count toward the trigger.
func (l *Loader) PendingFeedback() (int, error) {
	paths, err := l.Feedback.List()
	if err != nil {
		return 0, err
	}
	batches, _ := l.Feedback.Load(paths)
	return len(batches), nil
}

// Load reads the history, appends every readable feedback batch and returns the
// series sorted by time. Feedback bars replace history bars with the same timestamp.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	history, err := l.Source.FetchDailyBars(ctx)
	if err != nil {
		if errors.Is(err, model.ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", model.ErrDataUnavailable, l.Source.Name(), err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s returned no bars", model.ErrDataUnavailable, l.Source.Name())
	}

	res := &LoadResult{HistoryCount: len(history)}

	paths, err := l.Feedback.List()
	if err != nil {
		return nil, err
	}
	batches, warnings := l.Feedback.Load(paths)
	for _, w := range warnings {
		l.Log.Warn().Msg(w)
	}
	res.Warnings = warnings
	res.Feedback = batches

	merged := make([]model.PriceBar, 0, len(history))
	merged = append(merged, history...)
	for _, b := range batches {
		merged = append(merged, b.Bars...)
		res.FeedbackRows += len(b.Bars)
	}
	res.Bars = model.SortBars(merged)

	l.Log.Info().
		Str("source", l.Source.Name()).
		Int("history", res.HistoryCount).
		Int("feedback_files", len(batches)).
		Int("feedback_rows", res.FeedbackRows).
		Int("merged", len(res.Bars)).
		Msg("dataset loaded")
	return res, nil
}
