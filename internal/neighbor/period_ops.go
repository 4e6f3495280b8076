package neighbor

import (
	"math"
	"time"

	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/model"
)

// PeriodReplace moves an allocation to another precomputed start date for the
// same field and crop, trying at most MaxPeriodReplaceAlternatives dates.
type PeriodReplace struct{}

// Name implements Operator.
func (PeriodReplace) Name() string { return config.OpPeriodReplace }

// DefaultWeight implements Operator.
func (PeriodReplace) DefaultWeight() float64 { return defaultWeight(config.OpPeriodReplace) }

// Generate implements Operator.
func (PeriodReplace) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	limit := nc.Config.MaxPeriodReplaceAlternatives
	if limit <= 0 {
		return nil
	}
	var out [][]model.CropAllocation
	for i, a := range solution {
		others := without(solution, i)
		tried := map[time.Time]bool{model.Day(a.StartDate): true}
		for _, e := range nc.Catalog.ForFieldCrop(a.Field.ID, a.Crop.ID) {
			if len(tried) > limit {
				break
			}
			start := model.Day(e.Candidate.StartDate)
			if tried[start] {
				continue
			}
			tried[start] = true
			cand := e.Candidate.WithArea(a.AreaUsed)
			if n, ok := nc.commit(others, []placement{{cand: cand, id: a.AllocationID}}, a.Field.ID); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// AreaAdjust scales an allocation's area by each configured multiplier,
// bounded by the field's remaining capacity.
type AreaAdjust struct{}

// Name implements Operator.
func (AreaAdjust) Name() string { return config.OpAreaAdjust }

// DefaultWeight implements Operator.
func (AreaAdjust) DefaultWeight() float64 { return defaultWeight(config.OpAreaAdjust) }

// Generate implements Operator.
func (AreaAdjust) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	var out [][]model.CropAllocation
	for i, a := range solution {
		others := without(solution, i)
		capacity := math.Min(feasibility.RemainingArea(others, a.Field), a.Field.Area)
		seen := make(map[float64]bool)
		for _, m := range nc.Config.AreaAdjustmentMultipliers {
			area := math.Min(a.AreaUsed*m, capacity)
			if area <= 0 || math.Abs(area-a.AreaUsed) < 1e-9 || seen[area] {
				continue
			}
			seen[area] = true
			cand := a.Candidate().WithArea(area)
			if n, ok := nc.commit(others, []placement{{cand: cand, id: a.AllocationID}}, a.Field.ID); ok {
				out = append(out, n)
			}
		}
	}
	return out
}
