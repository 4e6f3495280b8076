// Package result aggregates allocations into per-field schedules and a
// MultiFieldOptimizationResult.
package result

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/model"
)

// Builder assembles optimization results.
type Builder struct {
	newID func() string
}

// NewBuilder creates a Builder that stamps results with uuid ids.
func NewBuilder() *Builder {
	return &Builder{newID: func() string { return uuid.New().String() }}
}

// Build groups allocs by field. Every field in fields gets a schedule, in
// input order, even when it holds no allocation. Allocations on fields not
// listed are appended after them in first-seen order.
func (b *Builder) Build(allocs []model.CropAllocation, fields []*model.Field, algorithm string, elapsed time.Duration) (*model.MultiFieldOptimizationResult, error) {
	byField := make(map[string][]model.CropAllocation)
	order := make([]*model.Field, 0, len(fields))
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == nil || known[f.ID] {
			continue
		}
		known[f.ID] = true
		order = append(order, f)
	}
	for _, a := range allocs {
		if a.Field == nil {
			return nil, eris.Errorf("result: allocation %s has no field", a.AllocationID)
		}
		if !known[a.Field.ID] {
			known[a.Field.ID] = true
			order = append(order, a.Field)
		}
		byField[a.Field.ID] = append(byField[a.Field.ID], a)
	}

	res := model.MultiFieldOptimizationResult{
		OptimizationID:   b.newID(),
		CropAreas:        make(map[string]float64),
		AlgorithmUsed:    algorithm,
		OptimizationTime: elapsed,
		IsOptimal:        false,
	}
	for _, f := range order {
		sched, err := buildSchedule(f, byField[f.ID])
		if err != nil {
			return nil, eris.Wrapf(err, "result: build schedule for field %s", f.ID)
		}
		res.FieldSchedules = append(res.FieldSchedules, *sched)
		res.TotalCost += sched.TotalCost
		res.TotalRevenue += sched.TotalRevenue
		res.TotalProfit += sched.TotalProfit
		for _, a := range sched.Allocations {
			res.CropAreas[a.Crop.ID] += a.AreaUsed
		}
	}

	out, err := model.NewMultiFieldOptimizationResult(res)
	if err != nil {
		return nil, eris.Wrap(err, "result: validate")
	}
	return out, nil
}

func buildSchedule(f *model.Field, allocs []model.CropAllocation) (*model.FieldSchedule, error) {
	s := model.FieldSchedule{Field: f, Allocations: allocs}
	for _, a := range allocs {
		s.TotalCost += a.TotalCost
		if a.ExpectedRevenue != nil {
			s.TotalRevenue += *a.ExpectedRevenue
		}
		s.TotalProfit += a.ProfitValue()
		s.AreaUsed += a.AreaUsed
	}
	if f.Area > 0 {
		s.UtilizationPercent = s.AreaUsed / f.Area * 100
	}
	return model.NewFieldSchedule(s)
}
