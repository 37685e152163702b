package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS retrain_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			forced         INTEGER NOT NULL,
			status         TEXT NOT NULL,
			stage          TEXT,
			error          TEXT,
			samples_total  INTEGER,
			samples_new    INTEGER,
			feedback_files INTEGER,
			train_samples  INTEGER,
			test_samples   INTEGER,
			train_rmse     REAL,
			test_rmse      REAL,
			test_mae       REAL,
			test_r2        REAL,
			model_sha256   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON retrain_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS feedback_archive (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			run_id      TEXT NOT NULL,
			source      TEXT,
			archived_to TEXT,
			rows        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_run ON feedback_archive(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO retrain_runs
		(run_id, started_at, finished_at, forced, status, stage, error,
		 samples_total, samples_new, feedback_files, train_samples, test_samples,
		 train_rmse, test_rmse, test_mae, test_r2, model_sha256)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.StartedAt.Unix(), rec.FinishedAt.Unix(), rec.Forced, rec.Status, rec.Stage, rec.Error,
		rec.SamplesTotal, rec.SamplesNew, rec.FeedbackFiles, rec.TrainSamples, rec.TestSamples,
		rec.TrainRMSE, rec.TestRMSE, rec.TestMAE, rec.TestR2, rec.ModelSHA256,
	)
	return err
}

func (r *SQLiteRecorder) RecordArchived(evt *ArchivedFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO feedback_archive
		(timestamp, run_id, source, archived_to, rows)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.RunID, evt.Source, evt.ArchivedTo, evt.Rows,
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT
		run_id, started_at, finished_at, forced, status, stage, error,
		samples_total, samples_new, feedback_files, train_samples, test_samples,
		train_rmse, test_rmse, test_mae, test_r2, model_sha256
		FROM retrain_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			started, finished int64
		)
		if err := rows.Scan(&rec.RunID, &started, &finished, &rec.Forced, &rec.Status, &rec.Stage, &rec.Error,
			&rec.SamplesTotal, &rec.SamplesNew, &rec.FeedbackFiles, &rec.TrainSamples, &rec.TestSamples,
			&rec.TrainRMSE, &rec.TestRMSE, &rec.TestMAE, &rec.TestR2, &rec.ModelSHA256); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(started, 0)
		rec.FinishedAt = time.Unix(finished, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
