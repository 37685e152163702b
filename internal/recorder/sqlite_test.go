package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSQLiteRecorder_Runs(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	base := time.Date(2024, 5, 6, 3, 0, 0, 0, time.UTC)
	runs := []RunRecord{
		{RunID: "a", StartedAt: base, FinishedAt: base.Add(time.Minute), Status: StatusSuccess,
			SamplesTotal: 700, SamplesNew: 12, FeedbackFiles: 10, TrainSamples: 520, TestSamples: 130,
			TrainRMSE: 1.1, TestRMSE: 2.2, TestMAE: 1.5, TestR2: 0.8, ModelSHA256: "abc"},
		{RunID: "b", StartedAt: base.Add(24 * time.Hour), FinishedAt: base.Add(24 * time.Hour), Forced: true,
			Status: StatusFailed, Stage: "loading", Error: "historical data unavailable"},
	}
	for i := range runs {
		if err := r.RecordRun(&runs[i]); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	if err := r.RecordArchived(&ArchivedFeedback{RunID: "a", Source: "feedback/f1.csv", ArchivedTo: "feedback/archived/f1.csv", Rows: 3}); err != nil {
		t.Fatalf("RecordArchived: %v", err)
	}

	got, err := r.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].RunID != "b" || !got[0].Forced || got[0].Stage != "loading" {
		t.Errorf("newest run: got %+v", got[0])
	}
	if got[1].TestRMSE != 2.2 || got[1].SamplesNew != 12 || got[1].Forced {
		t.Errorf("oldest run: got %+v", got[1])
	}
	if !got[1].StartedAt.Equal(base) {
		t.Errorf("started_at: got %v, want %v", got[1].StartedAt, base)
	}

	limited, err := r.RecentRuns(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limit: got %d runs, err %v", len(limited), err)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&RunRecord{RunID: "x"}); err != nil {
		t.Fatal(err)
	}
	runs, err := r.RecentRuns(5)
	if err != nil || runs != nil {
		t.Errorf("noop RecentRuns: %v %v", runs, err)
	}
}
