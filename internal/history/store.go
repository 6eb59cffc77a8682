package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"glb-merger/internal/domain"
	"glb-merger/internal/jobs"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	work_dir    TEXT NOT NULL,
	job_count   INTEGER NOT NULL,
	ok          INTEGER,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS jobs (
	batch_id    TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	job_id      TEXT NOT NULL,
	position    INTEGER NOT NULL,
	files       TEXT NOT NULL,
	output_dir  TEXT NOT NULL,
	transforms  TEXT NOT NULL,
	status      TEXT NOT NULL,
	output_path TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT,
	finished_at TEXT,
	PRIMARY KEY (batch_id, job_id)
);

CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at);
`

// Entry is one job as recorded in history.
type Entry struct {
	BatchID    string           `json:"batchId"`
	JobID      string           `json:"id"`
	WorkDir    string           `json:"workDir"`
	Files      []string         `json:"files"`
	OutputDir  string           `json:"outputDir"`
	Status     domain.JobStatus `json:"status"`
	OutputPath string           `json:"outputPath,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
}

// Store records merge batches in SQLite. It satisfies jobs.Recorder.
type Store struct {
	db   *sql.DB
	path string
}

var _ jobs.Recorder = (*Store)(nil)

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BatchStarted inserts the batch row and one pending row per job.
func (s *Store) BatchStarted(batchID, workDir string, descriptors []domain.JobDescriptor, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO batches (id, work_dir, job_count, started_at) VALUES (?, ?, ?, ?)`,
		batchID, workDir, len(descriptors), formatTime(at),
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for i, job := range descriptors {
		files, err := json.Marshal(job.Files)
		if err != nil {
			return err
		}
		transforms := make([]string, 0, len(job.Transforms))
		for _, spec := range job.Transforms {
			transforms = append(transforms, spec.String())
		}
		transformsJSON, err := json.Marshal(transforms)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO jobs (batch_id, job_id, position, files, output_dir, transforms, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			batchID, job.ID, i, string(files), job.OutputDir, string(transformsJSON), string(domain.JobStatusPending),
		); err != nil {
			return fmt.Errorf("insert job %s: %w", job.ID, err)
		}
	}
	return tx.Commit()
}

// JobFinished stores a job's terminal state.
func (s *Store) JobFinished(batchID string, job domain.Job, startedAt, finishedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, output_path = ?, error = ?, started_at = ?, finished_at = ?
		 WHERE batch_id = ? AND job_id = ?`,
		string(job.Status), job.OutputPath, job.Error, formatTime(startedAt), formatTime(finishedAt),
		batchID, job.ID,
	)
	return err
}

// BatchFinished stores the batch result.
func (s *Store) BatchFinished(batchID string, result jobs.Result, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE batches SET ok = ?, error = ?, finished_at = ? WHERE id = ?`,
		result.OK, result.Error, formatTime(at), batchID,
	)
	return err
}

// Recent returns up to limit jobs from the newest batches first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT j.batch_id, j.job_id, b.work_dir, j.files, j.output_dir, j.status,
		       j.output_path, j.error, COALESCE(j.started_at, ''), COALESCE(j.finished_at, '')
		FROM jobs j JOIN batches b ON b.id = j.batch_id
		ORDER BY b.started_at DESC, j.position ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry             Entry
			files, status     string
			started, finished string
		)
		if err := rows.Scan(
			&entry.BatchID, &entry.JobID, &entry.WorkDir, &files, &entry.OutputDir, &status,
			&entry.OutputPath, &entry.Error, &started, &finished,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(files), &entry.Files); err != nil {
			return nil, fmt.Errorf("decode files for job %s: %w", entry.JobID, err)
		}
		entry.Status = domain.JobStatus(status)
		entry.StartedAt = parseTime(started)
		entry.FinishedAt = parseTime(finished)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
