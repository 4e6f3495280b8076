// Package feasibility validates the time and area constraints of a solution.
package feasibility

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/model"
)

// IsFeasible reports whether allocs satisfy both the fallow-adjusted time
// constraint and the per-field area constraint.
func IsFeasible(allocs []model.CropAllocation) bool {
	return TimeFeasible(allocs) && AreaFeasible(allocs)
}

// Check is IsFeasible with an error naming the first violation.
func Check(allocs []model.CropAllocation) error {
	byField := groupByField(allocs)
	for _, fieldID := range fieldOrder(allocs) {
		group := byField[fieldID]
		if a, b, ok := firstConflict(group); ok {
			return eris.Wrapf(model.ErrNoFeasibleSolution,
				"feasibility: field %s: %s (%s..%s) and %s (%s..%s) overlap within %d fallow days",
				fieldID,
				a.AllocationID, a.StartDate.Format(time.DateOnly), a.CompletionDate.Format(time.DateOnly),
				b.AllocationID, b.StartDate.Format(time.DateOnly), b.CompletionDate.Format(time.DateOnly),
				a.Field.FallowPeriodDays)
		}
		if used, limit := areaUsed(group), areaLimit(group[0].Field); used > limit {
			return eris.Wrapf(model.ErrNoFeasibleSolution,
				"feasibility: field %s: area used %.2f exceeds capacity %.2f", fieldID, used, group[0].Field.Area)
		}
	}
	return nil
}

// TimeFeasible checks every pair of allocations on the same field. O(n²) per
// field; an interval tree would make this O(n log n).
func TimeFeasible(allocs []model.CropAllocation) bool {
	for _, group := range groupByField(allocs) {
		if _, _, ok := firstConflict(group); ok {
			return false
		}
	}
	return true
}

// AreaFeasible checks Σ area_used ≤ field.area × 1.01 for every field.
func AreaFeasible(allocs []model.CropAllocation) bool {
	for _, group := range groupByField(allocs) {
		if areaUsed(group) > areaLimit(group[0].Field) {
			return false
		}
	}
	return true
}

// Fits reports whether a new window of the given area can join others on
// field without breaking either constraint. others may contain allocations on
// any field; only those on field are considered.
func Fits(others []model.CropAllocation, field *model.Field, start, completion time.Time, area float64) bool {
	if area <= 0 {
		return false
	}
	end := model.AddDays(completion, field.FallowPeriodDays)
	used := area
	for _, o := range others {
		if o.Field.ID != field.ID {
			continue
		}
		if model.SpansConflict(start, end, o.StartDate, o.OccupiedUntil()) {
			return false
		}
		used += o.AreaUsed
	}
	return used <= areaLimit(field)
}

// FitsCandidate is Fits for a candidate.
func FitsCandidate(others []model.CropAllocation, c model.AllocationCandidate) bool {
	return Fits(others, c.Field, c.StartDate, c.CompletionDate, c.AreaUsed)
}

// RemainingArea returns how much more area field can take given others.
func RemainingArea(others []model.CropAllocation, field *model.Field) float64 {
	used := 0.0
	for _, o := range others {
		if o.Field.ID == field.ID {
			used += o.AreaUsed
		}
	}
	rem := areaLimit(field) - used
	if rem < 0 {
		return 0
	}
	return rem
}

func areaLimit(f *model.Field) float64 {
	return f.Area * (1 + model.AreaTolerance)
}

func areaUsed(group []model.CropAllocation) float64 {
	total := 0.0
	for _, a := range group {
		total += a.AreaUsed
	}
	return total
}

func firstConflict(group []model.CropAllocation) (model.CropAllocation, model.CropAllocation, bool) {
	for i := range group {
		for j := i + 1; j < len(group); j++ {
			if model.WindowsConflict(group[i], group[j]) {
				return group[i], group[j], true
			}
		}
	}
	return model.CropAllocation{}, model.CropAllocation{}, false
}

func groupByField(allocs []model.CropAllocation) map[string][]model.CropAllocation {
	out := make(map[string][]model.CropAllocation)
	for _, a := range allocs {
		out[a.Field.ID] = append(out[a.Field.ID], a)
	}
	return out
}

func fieldOrder(allocs []model.CropAllocation) []string {
	seen := make(map[string]bool)
	var order []string
	for _, a := range allocs {
		if !seen[a.Field.ID] {
			seen[a.Field.ID] = true
			order = append(order, a.Field.ID)
		}
	}
	return order
}
