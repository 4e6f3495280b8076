package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cropplan/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runColumns = []string{"id", "status", "algorithm", "total_profit", "result", "parent_id", "created_at"}

func TestPostgresStore_SaveRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	run := testRun(t)
	run.ID = "run-1"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "complete", "greedy+local_search", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"allocations"}, allocationColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_CopyFails(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	run := testRun(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"allocations"}, allocationColumns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy allocations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	run := testRun(t)
	payload, err := json.Marshal(run.Result)
	require.NoError(t, err)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	parent := "run-0"

	mock.ExpectQuery(`SELECT id, status, algorithm, total_profit, result, parent_id, created_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-1", model.RunStatusAdjusted, "adjust", 7100.0, payload, &parent, created))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, model.RunStatusAdjusted, got.Status)
	assert.Equal(t, "run-0", got.ParentID)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.Result)
	assert.Equal(t, run.Result.OptimizationID, got.Result.OptimizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, algorithm, total_profit, result, parent_id, created_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, status, algorithm, total_profit, created_at FROM runs WHERE true AND status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("complete", 5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "algorithm", "total_profit", "created_at"}).
			AddRow("run-2", model.RunStatusComplete, "greedy+local_search", 10.0, created.Add(time.Hour)).
			AddRow("run-1", model.RunStatusComplete, "greedy+local_search", 5.0, created))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete, Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.InDelta(t, 5.0, runs[1].TotalProfit, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "algorithm", "total_profit", "created_at"}))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAllocations(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	rev := 8800.0

	mock.ExpectQuery(`FROM allocations WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(allocationColumns).
			AddRow("run-1", "a1", "north", "tomato", date("2025-04-01"), date("2025-07-10"), 400.0, 1000.0, &rev, 7800.0).
			AddRow("run-1", "a2", "north", "garlic", date("2025-08-01"), date("2025-10-10"), 300.0, 700.0, (*float64)(nil), -700.0))

	allocs, err := s.ListAllocations(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	require.NotNil(t, allocs[0].Revenue)
	assert.InDelta(t, 8800, *allocs[0].Revenue, 1e-9)
	assert.Nil(t, allocs[1].Revenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
