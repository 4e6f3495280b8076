package model

import "time"

// OptimizationIntermediateResult is one period option for a single field,
// consumed by the interval scheduler.
type OptimizationIntermediateResult struct {
	Label          string     `json:"label,omitempty" yaml:"label,omitempty"`
	StartDate      time.Time  `json:"start_date" yaml:"start_date"`
	CompletionDate *time.Time `json:"completion_date,omitempty" yaml:"completion_date,omitempty"`
	GrowthDays     int        `json:"growth_days" yaml:"growth_days"`
	AccumulatedGDD float64    `json:"accumulated_gdd" yaml:"accumulated_gdd"`
	TotalCost      *float64   `json:"total_cost,omitempty" yaml:"total_cost,omitempty"`
	Revenue        *float64   `json:"revenue,omitempty" yaml:"revenue,omitempty"`
	IsOptimal      bool       `json:"is_optimal" yaml:"is_optimal"`
}

// Schedulable reports whether the option has both a completion date and a cost.
func (r OptimizationIntermediateResult) Schedulable() bool {
	return r.CompletionDate != nil && r.TotalCost != nil
}
