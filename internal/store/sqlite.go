package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cropplan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	algorithm    TEXT NOT NULL,
	total_profit REAL NOT NULL DEFAULT 0,
	result       TEXT,
	parent_id    TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS allocations (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	allocation_id   TEXT NOT NULL,
	field_id        TEXT NOT NULL,
	crop_id         TEXT NOT NULL,
	start_date      DATETIME NOT NULL,
	completion_date DATETIME NOT NULL,
	area_used       REAL NOT NULL,
	total_cost      REAL NOT NULL,
	revenue         REAL,
	profit          REAL NOT NULL,
	PRIMARY KEY (run_id, allocation_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_allocations_field ON allocations(run_id, field_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	if err := prepareRun(run); err != nil {
		return err
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, status, algorithm, total_profit, result, parent_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.Algorithm, run.TotalProfit, string(resultJSON), nullString(run.ParentID), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO allocations (`+joinColumns()+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare allocation insert")
	}
	defer stmt.Close()
	for _, row := range allocationRows(run) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert allocation for run %s", run.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, algorithm, total_profit, result, parent_id, created_at FROM runs WHERE id = ?`,
		runID,
	)
	var r model.Run
	var resultJSON, parentID sql.NullString
	err := row.Scan(&r.ID, &r.Status, &r.Algorithm, &r.TotalProfit, &resultJSON, &parentID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.ParentID = parentID.String
	if resultJSON.Valid && resultJSON.String != "null" {
		r.Result = &model.MultiFieldOptimizationResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunSummary, error) {
	query := `SELECT id, status, algorithm, total_profit, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Algorithm != "" {
		query += ` AND algorithm = ?`
		args = append(args, filter.Algorithm)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		if err := rows.Scan(&r.ID, &r.Status, &r.Algorithm, &r.TotalProfit, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListAllocations(ctx context.Context, runID string) ([]AllocationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+joinColumns()+` FROM allocations WHERE run_id = ? ORDER BY field_id, start_date`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list allocations for run %s", runID)
	}
	defer rows.Close()

	var out []AllocationRecord
	for rows.Next() {
		var a AllocationRecord
		var revenue sql.NullFloat64
		if err := rows.Scan(&a.RunID, &a.AllocationID, &a.FieldID, &a.CropID, &a.StartDate,
			&a.CompletionDate, &a.AreaUsed, &a.TotalCost, &revenue, &a.Profit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan allocation")
		}
		if revenue.Valid {
			v := revenue.Float64
			a.Revenue = &v
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list allocations iterate")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
