// Package objective holds the single scoring rule every optimizer ranks by.
package objective

import (
	"github.com/sells-group/cropplan/internal/model"
)

// Objective scores a (revenue, cost) pair. Higher is better.
type Objective interface {
	Name() string
	Profit(revenue *float64, cost float64) float64
}

// ProfitObjective maximizes revenue - cost, or -cost when revenue is unknown.
type ProfitObjective struct{}

// Name implements Objective.
func (ProfitObjective) Name() string { return "profit" }

// Profit implements Objective.
func (ProfitObjective) Profit(revenue *float64, cost float64) float64 {
	if revenue == nil {
		return -cost
	}
	return *revenue - cost
}

// Default returns the profit-maximizing objective.
func Default() Objective {
	return ProfitObjective{}
}

// Value sums the objective over a whole solution.
func Value(obj Objective, allocs []model.CropAllocation) float64 {
	total := 0.0
	for _, a := range allocs {
		total += AllocationValue(obj, a)
	}
	return total
}

// AllocationValue scores one allocation.
func AllocationValue(obj Objective, a model.CropAllocation) float64 {
	return obj.Profit(a.ExpectedRevenue, a.TotalCost)
}

// Rate is the objective value per growth day. Non-positive growthDays
// return the plain value.
func Rate(obj Objective, revenue *float64, cost float64, growthDays int) float64 {
	p := obj.Profit(revenue, cost)
	if growthDays <= 0 {
		return p
	}
	return p / float64(growthDays)
}

// SelectBest returns the index of the item with the highest value under obj.
// Ties keep the first item encountered. Returns -1 for an empty slice.
func SelectBest[T any](obj Objective, items []T, value func(Objective, T) float64) int {
	best := -1
	bestVal := 0.0
	for i, it := range items {
		v := value(obj, it)
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

// BaseOptimizer is embedded by every optimizer so they share one objective.
type BaseOptimizer struct {
	Objective Objective
}

// NewBaseOptimizer returns a BaseOptimizer, defaulting to ProfitObjective.
func NewBaseOptimizer(obj Objective) BaseOptimizer {
	if obj == nil {
		obj = Default()
	}
	return BaseOptimizer{Objective: obj}
}

// SolutionValue scores a whole allocation list.
func (b BaseOptimizer) SolutionValue(allocs []model.CropAllocation) float64 {
	return Value(b.Objective, allocs)
}

// ProfitRate is the objective value per growth day.
func (b BaseOptimizer) ProfitRate(revenue *float64, cost float64, growthDays int) float64 {
	return Rate(b.Objective, revenue, cost, growthDays)
}

// SelectBestSolution returns the index of the highest-valued solution, or -1.
func (b BaseOptimizer) SelectBestSolution(solutions [][]model.CropAllocation) int {
	return SelectBest(b.Objective, solutions, Value)
}
