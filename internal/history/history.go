// Package history journals every executed step to a database so a
// halted migration can be diagnosed after the fact. The default
// backend is a local sqlite file next to the state file; pointing
// history_url at postgres shares one journal across controllers.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DefaultURL is the journal used when the config names none.
const DefaultURL = ".nimplane-history.db"

// Record is one journaled step execution.
type Record struct {
	RunID      string
	Phase      string
	StepLabel  string
	Host       string
	Command    string
	ExitCode   int
	Stdout     string
	Stderr     string
	Changed    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Journal stores step records.
type Journal interface {
	RecordStep(ctx context.Context, rec Record) error
	RecentSteps(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Nop discards all records, used when journaling is disabled.
type Nop struct{}

func (Nop) RecordStep(context.Context, Record) error           { return nil }
func (Nop) RecentSteps(context.Context, int) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                       { return nil }

// Open connects to the journal backend selected by the connection
// string and ensures its schema exists. postgres:// URLs use lib/pq;
// anything else is treated as a sqlite file path.
func Open(ctx context.Context, url string) (Journal, error) {
	if url == "" {
		url = DefaultURL
	}

	d := dialectFor(url)
	db, err := sql.Open(d.driverName, url)
	if err != nil {
		return nil, fmt.Errorf("opening history journal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to history journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, d.createSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &dbJournal{db: db, dialect: d}, nil
}

type dialect struct {
	driverName string
	createSQL  string
	insertSQL  string
	recentSQL  string
}

func dialectFor(url string) dialect {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return dialect{
			driverName: "postgres",
			createSQL: `CREATE TABLE IF NOT EXISTS step_history (
				id BIGSERIAL PRIMARY KEY,
				run_id TEXT NOT NULL,
				phase TEXT NOT NULL,
				step_label TEXT NOT NULL,
				host TEXT NOT NULL,
				command TEXT NOT NULL,
				exit_code INTEGER NOT NULL,
				stdout TEXT NOT NULL DEFAULT '',
				stderr TEXT NOT NULL DEFAULT '',
				changed BOOLEAN NOT NULL DEFAULT FALSE,
				started_at TIMESTAMPTZ NOT NULL,
				finished_at TIMESTAMPTZ NOT NULL
			)`,
			insertSQL: `INSERT INTO step_history
				(run_id, phase, step_label, host, command, exit_code, stdout, stderr, changed, started_at, finished_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			recentSQL: `SELECT run_id, phase, step_label, host, command, exit_code, stdout, stderr, changed, started_at, finished_at
				FROM step_history ORDER BY id DESC LIMIT $1`,
		}
	}
	return dialect{
		driverName: "sqlite",
		createSQL: `CREATE TABLE IF NOT EXISTS step_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			step_label TEXT NOT NULL,
			host TEXT NOT NULL,
			command TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			stdout TEXT NOT NULL DEFAULT '',
			stderr TEXT NOT NULL DEFAULT '',
			changed INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		insertSQL: `INSERT INTO step_history
			(run_id, phase, step_label, host, command, exit_code, stdout, stderr, changed, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recentSQL: `SELECT run_id, phase, step_label, host, command, exit_code, stdout, stderr, changed, started_at, finished_at
			FROM step_history ORDER BY id DESC LIMIT ?`,
	}
}

type dbJournal struct {
	db      *sql.DB
	dialect dialect
}

func (j *dbJournal) RecordStep(ctx context.Context, rec Record) error {
	_, err := j.db.ExecContext(ctx, j.dialect.insertSQL,
		rec.RunID, rec.Phase, rec.StepLabel, rec.Host, rec.Command,
		rec.ExitCode, rec.Stdout, rec.Stderr, rec.Changed,
		rec.StartedAt, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("recording step %q: %w", rec.StepLabel, err)
	}
	return nil
}

func (j *dbJournal) RecentSteps(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, j.dialect.recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunID, &rec.Phase, &rec.StepLabel, &rec.Host, &rec.Command,
			&rec.ExitCode, &rec.Stdout, &rec.Stderr, &rec.Changed,
			&rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *dbJournal) Close() error {
	return j.db.Close()
}
