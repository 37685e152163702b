package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"SolanaPredictor/internal/model"
)

// ActionRetrain is the action recorded for a successful retraining run.
const ActionRetrain = "model_retraining"

// AuditLog is an append-only file with one JSON object per line.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Append writes entry as a single line and fsyncs before returning.
func (a *AuditLog) Append(entry model.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return f.Sync()
}

// Entries reads every line of the log. Details are left as raw JSON.
func (a *AuditLog) Entries() ([]model.LogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []model.LogEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		var e struct {
			model.LogEntry
			Details json.RawMessage `json:"details"`
		}
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("audit log line %d: %w", n, err)
		}
		e.LogEntry.Details = e.Details
		entries = append(entries, e.LogEntry)
	}
	return entries, sc.Err()
}
