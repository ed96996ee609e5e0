// Package ledger records every workflow action executed against a job in a
// SQLite database, so status survives across invocations of the tool.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one execution of an action against a job.
type Record struct {
	ID         int64
	JobID      string
	Action     string
	Status     Status
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const createRuns = `
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id      TEXT NOT NULL,
  action      TEXT NOT NULL,
  status      TEXT NOT NULL,
  exit_code   INTEGER NOT NULL DEFAULT 0,
  started_at  TEXT NOT NULL,
  finished_at TEXT,
  error       TEXT
);`
	if _, err := db.Exec(createRuns); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS runs_job_action ON runs (job_id, action)`)
	return err
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Begin records the start of an action and returns its record ID.
func (l *Ledger) Begin(jobID, action string) (int64, error) {
	res, err := l.db.Exec(
		`INSERT INTO runs (job_id, action, status, started_at) VALUES (?, ?, ?, ?)`,
		jobID, action, StatusRunning, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("recording start of %s for %s: %w", action, jobID, err)
	}
	return res.LastInsertId()
}

// Finish closes a record opened by Begin.
func (l *Ledger) Finish(id int64, status Status, exitCode int, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := l.db.Exec(
		`UPDATE runs SET status = ?, exit_code = ?, finished_at = ?, error = ? WHERE id = ?`,
		status, exitCode, time.Now().UTC().Format(time.RFC3339Nano), msg, id,
	)
	if err != nil {
		return fmt.Errorf("recording finish of run %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// Latest returns the most recent record per action for a job.
func (l *Ledger) Latest(jobID string) (map[string]*Record, error) {
	history, err := l.History(jobID)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]*Record)
	for _, r := range history {
		latest[r.Action] = r
	}
	return latest, nil
}

// History returns every record for a job, oldest first.
func (l *Ledger) History(jobID string) ([]*Record, error) {
	rows, err := l.db.Query(
		`SELECT id, job_id, action, status, exit_code, started_at, finished_at, error
		 FROM runs WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r                 Record
			status, started   string
			finished, errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.JobID, &r.Action, &status, &r.ExitCode, &started, &finished, &errText); err != nil {
			return nil, fmt.Errorf("scanning ledger: %w", err)
		}
		r.Status = Status(status)
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = t
		}
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
				r.FinishedAt = t
			}
		}
		r.Error = errText.String
		records = append(records, &r)
	}
	return records, rows.Err()
}
