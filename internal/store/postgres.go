package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/db"
	"github.com/sells-group/cropplan/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status       TEXT NOT NULL,
	algorithm    TEXT NOT NULL,
	total_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
	result       JSONB,
	parent_id    TEXT REFERENCES runs(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS allocations (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	allocation_id   TEXT NOT NULL,
	field_id        TEXT NOT NULL,
	crop_id         TEXT NOT NULL,
	start_date      TIMESTAMPTZ NOT NULL,
	completion_date TIMESTAMPTZ NOT NULL,
	area_used       DOUBLE PRECISION NOT NULL,
	total_cost      DOUBLE PRECISION NOT NULL,
	revenue         DOUBLE PRECISION,
	profit          DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, allocation_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_allocations_field ON allocations(run_id, field_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	if err := prepareRun(run); err != nil {
		return err
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	var parentID *string
	if run.ParentID != "" {
		parentID = &run.ParentID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, status, algorithm, total_profit, result, parent_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.Status), run.Algorithm, run.TotalProfit, resultJSON, parentID, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}
	if _, err := db.CopyFrom(ctx, tx, "allocations", allocationColumns, allocationRows(run)); err != nil {
		return eris.Wrapf(err, "postgres: copy allocations for run %s", run.ID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var resultJSON []byte
	var parentID *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, algorithm, total_profit, result, parent_id, created_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Status, &r.Algorithm, &r.TotalProfit, &resultJSON, &parentID, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if parentID != nil {
		r.ParentID = *parentID
	}
	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		r.Result = &model.MultiFieldOptimizationResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunSummary, error) {
	query := `SELECT id, status, algorithm, total_profit, created_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Algorithm != "" {
		query += fmt.Sprintf(` AND algorithm = $%d`, argIdx)
		args = append(args, filter.Algorithm)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		if err := rows.Scan(&r.ID, &r.Status, &r.Algorithm, &r.TotalProfit, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListAllocations(ctx context.Context, runID string) ([]AllocationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+joinColumns()+` FROM allocations WHERE run_id = $1 ORDER BY field_id, start_date`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list allocations for run %s", runID)
	}
	defer rows.Close()

	var out []AllocationRecord
	for rows.Next() {
		var a AllocationRecord
		if err := rows.Scan(&a.RunID, &a.AllocationID, &a.FieldID, &a.CropID, &a.StartDate,
			&a.CompletionDate, &a.AreaUsed, &a.TotalCost, &a.Revenue, &a.Profit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan allocation")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list allocations iterate")
}
