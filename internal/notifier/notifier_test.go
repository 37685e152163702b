package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/recorder"
)

func testNotifier(srv *httptest.Server) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	tn.APIBase = srv.URL
	return tn
}

func TestTelegram_Send(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := testNotifier(srv).Notify(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "<b>hi</b>" || gotBody["parse_mode"] != "HTML" {
		t.Errorf("payload: got %v", gotBody)
	}
}

func TestTelegram_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testNotifier(srv).SendWithRetry(context.Background(), "x", 0)
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestTelegram_Polling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		polls   int
		replies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			polls++
			if polls == 1 {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":1,"message":{"text":" /status ","chat":{"id":42}}},
					{"update_id":2,"message":{"text":"/retrain","chat":{"id":7}}}]}`)
				return
			}
			cancel()
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	var handled []string
	done := make(chan struct{})
	go func() {
		testNotifier(srv).StartPolling(ctx, func(cmd string) string {
			handled = append(handled, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("polling did not stop after cancel")
	}

	if len(handled) != 1 || handled[0] != "/status" {
		t.Errorf("handled: got %v, want [/status]", handled)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "reply to /status" {
		t.Errorf("replies: got %v", replies)
	}
}

func testInfo() *model.ModelInfo {
	return &model.ModelInfo{
		Name:          "Random Forest Solana Predictor",
		Version:       "2.0",
		RunID:         "run-123",
		RetrainedDate: time.Date(2024, 5, 6, 3, 0, 0, 0, time.UTC),
		Metrics: model.EvalMetrics{
			Test:              model.SplitMetrics{RMSE: 1.2345, MAE: 0.9, R2: 0.87},
			FeatureImportance: map[string]float64{"close": 0.6, "ma_7": 0.3, "rsi": 0.1, "volume": 0},
		},
		TrainingStats: model.TrainingStats{SamplesTotal: 650, SamplesNew: 14, TrainSamples: 520, TestSamples: 130},
		Artifacts:     model.ArtifactDigests{ModelSHA256: "aa", ScalerSHA256: "bb"},
	}
}

func TestFormatRetrainSuccess(t *testing.T) {
	msg := FormatRetrainSuccess(testInfo(), 10, 2500*time.Millisecond)
	for _, want := range []string{"run-123", "RMSE: 1.2345", "Samples: 650 (new 14, feedback files 10)", "close: 0.600", "2.5s"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "volume:") {
		t.Error("zero-importance features should be omitted")
	}
}

func TestFormatRetrainFailure_Escapes(t *testing.T) {
	msg := FormatRetrainFailure("run-1", "loading", errors.New("bad <row>"))
	if !strings.Contains(msg, "bad &lt;row&gt;") {
		t.Errorf("error not escaped:\n%s", msg)
	}
	if !strings.Contains(msg, "Stage: loading") {
		t.Errorf("stage missing:\n%s", msg)
	}
}

func TestFormatStatus(t *testing.T) {
	empty := FormatStatus(nil, 3, 10, nil)
	if !strings.Contains(empty, "No model") || !strings.Contains(empty, "Pending feedback: 3/10") {
		t.Errorf("unexpected empty status:\n%s", empty)
	}

	runs := []recorder.RunRecord{
		{StartedAt: time.Date(2024, 5, 6, 3, 0, 0, 0, time.UTC), Status: recorder.StatusFailed, Stage: "training", Forced: true},
	}
	msg := FormatStatus(testInfo(), 0, 10, runs)
	if !strings.Contains(msg, "v2.0") || !strings.Contains(msg, "failed @training (forced)") {
		t.Errorf("unexpected status:\n%s", msg)
	}
}

func TestNewModelUpdate(t *testing.T) {
	u := NewModelUpdate(testInfo())
	if u.RunID != "run-123" || u.ModelSHA256 != "aa" || u.TestRMSE != 1.2345 {
		t.Errorf("unexpected event: %+v", u)
	}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"model_sha256":"aa"`) {
		t.Errorf("unexpected payload: %s", data)
	}
}
