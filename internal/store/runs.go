// Package store keeps the ingestion run history in sqlite. The catalog
// itself lives in a plain JSON file; the history exists so the API can
// answer "when did we last scan and what did each source return" without
// replaying logs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Run struct {
	ID         int64                  `json:"id"`
	StartedAt  string                 `json:"started_at"`
	FinishedAt string                 `json:"finished_at"`
	Added      int                    `json:"added"`
	Total      int                    `json:"total"`
	Sources    map[string]SourceStats `json:"sources"`
	Error      string                 `json:"error,omitempty"`
}

type SourceStats struct {
	Fetched int    `json:"fetched"`
	Added   int    `json:"added"`
	Error   string `json:"error,omitempty"`
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  added INTEGER NOT NULL DEFAULT 0,
  total INTEGER NOT NULL DEFAULT 0,
  sources TEXT NOT NULL DEFAULT '{}',
  error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_runs_started_at
ON runs(started_at DESC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

func RecordRun(ctx context.Context, db *sql.DB, run Run) (int64, error) {
	srcB, _ := json.Marshal(run.Sources)
	res, err := db.ExecContext(ctx, `
INSERT INTO runs(started_at, finished_at, added, total, sources, error)
VALUES(?,?,?,?,?,?);`,
		run.StartedAt, run.FinishedAt, run.Added, run.Total, string(srcB), run.Error)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
SELECT id, started_at, finished_at, added, total, sources, error
FROM runs
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var srcJSON string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Added, &r.Total, &srcJSON, &r.Error); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(srcJSON), &r.Sources)
		out = append(out, r)
	}
	return out, rows.Err()
}

func CleanupOldRuns(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM runs
WHERE started_at < ?;
`, time.Now().AddDate(0, -3, 0).UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
