// Package store persists optimization runs and their allocations.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/model"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	Algorithm string          `json:"algorithm,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// AllocationRecord is one persisted allocation row.
type AllocationRecord struct {
	RunID          string    `json:"run_id"`
	AllocationID   string    `json:"allocation_id"`
	FieldID        string    `json:"field_id"`
	CropID         string    `json:"crop_id"`
	StartDate      time.Time `json:"start_date"`
	CompletionDate time.Time `json:"completion_date"`
	AreaUsed       float64   `json:"area_used"`
	TotalCost      float64   `json:"total_cost"`
	Revenue        *float64  `json:"revenue,omitempty"`
	Profit         float64   `json:"profit"`
}

// Store defines the persistence interface for optimization runs.
type Store interface {
	// SaveRun inserts run and one row per allocation. An empty ID or
	// CreatedAt is filled in.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.RunSummary, error)
	ListAllocations(ctx context.Context, runID string) ([]AllocationRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

var allocationColumns = []string{
	"run_id", "allocation_id", "field_id", "crop_id", "start_date",
	"completion_date", "area_used", "total_cost", "revenue", "profit",
}

// prepareRun fills in the generated fields of run.
func prepareRun(run *model.Run) error {
	if run == nil {
		return eris.New("store: run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunStatusComplete
	}
	if run.Result != nil {
		if run.Algorithm == "" {
			run.Algorithm = run.Result.AlgorithmUsed
		}
		run.TotalProfit = run.Result.TotalProfit
	}
	return nil
}

// allocationRows flattens the run's allocations for bulk insertion, in
// allocationColumns order.
func allocationRows(run *model.Run) [][]any {
	if run.Result == nil {
		return nil
	}
	var rows [][]any
	for _, a := range run.Result.Allocations() {
		rows = append(rows, []any{
			run.ID, a.AllocationID, a.Field.ID, a.Crop.ID, a.StartDate.UTC(),
			a.CompletionDate.UTC(), a.AreaUsed, a.TotalCost, a.ExpectedRevenue, a.ProfitValue(),
		})
	}
	return rows
}

func joinColumns() string {
	return strings.Join(allocationColumns, ", ")
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
