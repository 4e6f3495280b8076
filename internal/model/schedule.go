package model

import (
	"math"
	"sort"
	"time"
)

// AreaTolerance is the relative slack allowed on a field's summed area.
const AreaTolerance = 0.01

// FieldSchedule is the ordered timeline of allocations on one field.
type FieldSchedule struct {
	Field              *Field           `json:"field"`
	Allocations        []CropAllocation `json:"allocations"`
	TotalCost          float64          `json:"total_cost"`
	TotalRevenue       float64          `json:"total_revenue"`
	TotalProfit        float64          `json:"total_profit"`
	AreaUsed           float64          `json:"area_used"`
	UtilizationPercent float64          `json:"utilization_percent"`
}

// NewFieldSchedule validates that every allocation belongs to field and that
// no two fallow-extended windows intersect. Allocations are sorted by start.
func NewFieldSchedule(s FieldSchedule) (*FieldSchedule, error) {
	if s.Field == nil {
		return nil, invalidf("schedule: field is required")
	}
	allocs := make([]CropAllocation, len(s.Allocations))
	copy(allocs, s.Allocations)
	sort.SliceStable(allocs, func(i, j int) bool { return allocs[i].StartDate.Before(allocs[j].StartDate) })

	for i, a := range allocs {
		if a.Field == nil || a.Field.ID != s.Field.ID {
			return nil, invalidf("schedule %s: allocation %s belongs to another field", s.Field.ID, a.AllocationID)
		}
		for _, b := range allocs[i+1:] {
			if WindowsConflict(a, b) {
				return nil, invalidf("schedule %s: allocations %s and %s overlap within the fallow period",
					s.Field.ID, a.AllocationID, b.AllocationID)
			}
		}
	}
	if s.AreaUsed < 0 || s.UtilizationPercent < 0 {
		return nil, invalidf("schedule %s: area figures must be non-negative", s.Field.ID)
	}
	s.Allocations = allocs
	return &s, nil
}

// WindowsConflict reports whether two allocations on the same field collide
// once each is extended by the field's fallow period.
func WindowsConflict(a, b CropAllocation) bool {
	return SpansConflict(a.StartDate, a.OccupiedUntil(), b.StartDate, b.OccupiedUntil())
}

// SpansConflict reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// A span ending on the day another starts does not conflict.
func SpansConflict(aStart, aEnd, bStart, bEnd time.Time) bool {
	aFirst := !aEnd.After(bStart)
	bFirst := !bEnd.After(aStart)
	return !aFirst && !bFirst
}

// MultiFieldOptimizationResult is the outcome of one optimization run.
type MultiFieldOptimizationResult struct {
	OptimizationID   string             `json:"optimization_id"`
	FieldSchedules   []FieldSchedule    `json:"field_schedules"`
	TotalCost        float64            `json:"total_cost"`
	TotalRevenue     float64            `json:"total_revenue"`
	TotalProfit      float64            `json:"total_profit"`
	CropAreas        map[string]float64 `json:"crop_areas"`
	AlgorithmUsed    string             `json:"algorithm_used"`
	OptimizationTime time.Duration      `json:"optimization_time"`
	IsOptimal        bool               `json:"is_optimal"`
}

// NewMultiFieldOptimizationResult validates unique field ids and
// non-negative areas.
func NewMultiFieldOptimizationResult(r MultiFieldOptimizationResult) (*MultiFieldOptimizationResult, error) {
	seen := make(map[string]bool, len(r.FieldSchedules))
	for _, s := range r.FieldSchedules {
		if s.Field == nil {
			return nil, invalidf("result: schedule without field")
		}
		if seen[s.Field.ID] {
			return nil, invalidf("result: duplicate field %s", s.Field.ID)
		}
		seen[s.Field.ID] = true
		if s.AreaUsed < 0 {
			return nil, invalidf("result: field %s has negative area used", s.Field.ID)
		}
	}
	for crop, area := range r.CropAreas {
		if area < 0 || math.IsNaN(area) {
			return nil, invalidf("result: crop %s has negative area %v", crop, area)
		}
	}
	return &r, nil
}

// Allocations flattens every schedule into one list.
func (r *MultiFieldOptimizationResult) Allocations() []CropAllocation {
	var out []CropAllocation
	for _, s := range r.FieldSchedules {
		out = append(out, s.Allocations...)
	}
	return out
}

// Fields returns the result's fields in schedule order.
func (r *MultiFieldOptimizationResult) Fields() []*Field {
	out := make([]*Field, 0, len(r.FieldSchedules))
	for _, s := range r.FieldSchedules {
		out = append(out, s.Field)
	}
	return out
}
