package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cwygoda/gather/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS targets (
    position    INTEGER NOT NULL,
    url         TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    info_url    TEXT,
    task        TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL DEFAULT 'pending',
    attempts    INTEGER NOT NULL DEFAULT 0,
    downloaded  INTEGER NOT NULL DEFAULT 0,
    failed_task TEXT NOT NULL DEFAULT '',
    diagnostic  TEXT NOT NULL DEFAULT '',
    run_id      TEXT NOT NULL DEFAULT '',
    updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_targets_outcome ON targets(outcome);

CREATE TABLE IF NOT EXISTS failures (
    position   INTEGER NOT NULL,
    url        TEXT PRIMARY KEY,
    title      TEXT NOT NULL DEFAULT '',
    task       TEXT NOT NULL DEFAULT '',
    diagnostic TEXT NOT NULL DEFAULT '',
    run_id     TEXT NOT NULL DEFAULT '',
    failed_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Repository implements domain.Repository using SQLite. Saves replace the
// stored working set or ledger wholesale inside one transaction.
type Repository struct {
	db *sql.DB
}

// New opens the database at dbPath, creating its directory and schema if
// needed.
func New(dbPath string) (*Repository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// LoadWorkingSet returns the stored jobs in position order.
func (r *Repository) LoadWorkingSet(ctx context.Context) (*domain.WorkingSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url, title, info_url, task, outcome, attempts, downloaded, failed_task, diagnostic, run_id
		 FROM targets ORDER BY position ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ws := domain.NewWorkingSet()
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		ws.Insert(job)
	}
	return ws, rows.Err()
}

// SaveWorkingSet replaces the stored working set with ws.
func (r *Repository) SaveWorkingSet(ctx context.Context, ws *domain.WorkingSet) error {
	return r.replace(ctx, "targets", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO targets (position, url, title, info_url, task, outcome, attempts, downloaded, failed_task, diagnostic, run_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now()
		for i, j := range ws.Jobs() {
			var infoURL sql.NullString
			if j.Info != nil {
				infoURL = sql.NullString{String: j.Info.URL, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				i+1, j.Target.URL(), j.Target.Title, infoURL, string(j.Task), string(j.Outcome),
				j.Attempts, j.Downloaded, string(j.FailedTask), j.Diagnostic, j.RunID, now,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadFailures returns the stored failure ledger in the order it was saved.
func (r *Repository) LoadFailures(ctx context.Context) ([]domain.Failure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url, title, task, diagnostic, run_id FROM failures ORDER BY position ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []domain.Failure
	for rows.Next() {
		var f domain.Failure
		var task string
		if err := rows.Scan(&f.URL, &f.Title, &task, &f.Diagnostic, &f.RunID); err != nil {
			return nil, err
		}
		f.Task = domain.Task(task)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// SaveFailures replaces the stored failure ledger.
func (r *Repository) SaveFailures(ctx context.Context, failures []domain.Failure) error {
	return r.replace(ctx, "failures", func(tx *sql.Tx) error {
		now := time.Now()
		for i, f := range failures {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO failures (position, url, title, task, diagnostic, run_id, failed_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				i+1, f.URL, f.Title, string(f.Task), f.Diagnostic, f.RunID, now,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecoverStale resets jobs left running by a crashed process back to pending.
func (r *Repository) RecoverStale(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE targets SET outcome = ?, diagnostic = 'recovered after crash', updated_at = ?
		 WHERE outcome = ?`,
		domain.OutcomePending, time.Now(), domain.OutcomeRunning,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *Repository) replace(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var (
		rawURL, title, task, outcome, failedTask string
		infoURL                                  sql.NullString
		job                                      domain.Job
	)
	err := row.Scan(&rawURL, &title, &infoURL, &task, &outcome, &job.Attempts, &job.Downloaded,
		&failedTask, &job.Diagnostic, &job.RunID)
	if err != nil {
		return nil, err
	}

	target, err := domain.NewTarget(rawURL)
	if err != nil {
		return nil, fmt.Errorf("stored target: %w", err)
	}
	target.Title = title
	job.Target = target
	job.Task = domain.Task(task)
	job.Outcome = domain.Outcome(outcome)
	job.FailedTask = domain.Task(failedTask)
	if infoURL.Valid {
		job.Info = &domain.Info{URL: infoURL.String, Title: title}
	}
	return &job, nil
}
