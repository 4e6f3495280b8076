// Package evaluate composes cost, revenue and profit for allocation candidates.
package evaluate

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/interaction"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/objective"
)

// Metrics is the evaluated economics of one candidate. Profit is always
// revenue - cost (-cost without revenue); the objective only ranks.
type Metrics struct {
	Cost    float64
	Revenue *float64 // nil when the crop has no revenue per area
	Profit  float64

	InteractionFactor   float64
	SoilRecoveryFactor  float64
	CompatibilityFactor float64
	Capped              bool
}

// Evaluator computes candidate metrics. It holds no mutable state.
type Evaluator struct {
	objective.BaseOptimizer
	rules *interaction.Service
}

// NewEvaluator creates an Evaluator. A nil rule service means no rules.
func NewEvaluator(rules *interaction.Service, obj objective.Objective) *Evaluator {
	if rules == nil {
		rules = interaction.NewService(nil)
	}
	return &Evaluator{BaseOptimizer: objective.NewBaseOptimizer(obj), rules: rules}
}

// Rules returns the interaction rule service.
func (e *Evaluator) Rules() *interaction.Service { return e.rules }

// Metrics evaluates c against the other allocations of the solution it would
// join. others must not contain the allocation c replaces.
func (e *Evaluator) Metrics(c model.AllocationCandidate, others []model.CropAllocation) (Metrics, error) {
	if c.Field == nil || c.Crop == nil {
		return Metrics{}, eris.Wrap(model.ErrInvalid, "evaluate: candidate needs a field and a crop")
	}
	if !c.HasCompletion() {
		return Metrics{}, eris.Wrapf(model.ErrMissingCompletionDate, "evaluate: %s on %s from %s",
			c.Crop.ID, c.Field.ID, c.StartDate.Format("2006-01-02"))
	}

	m := Metrics{
		Cost:                float64(c.GrowthDays) * c.Field.DailyFixedCost,
		InteractionFactor:   1.0,
		SoilRecoveryFactor:  1.0,
		CompatibilityFactor: 1.0,
	}
	if c.Crop.RevenuePerArea == nil {
		m.Profit = -m.Cost
		return m, nil
	}

	base := c.AreaUsed * *c.Crop.RevenuePerArea * c.Yield()

	prev, hasPrev := PreviousAllocation(others, c.Field.ID, c.StartDate)
	if hasPrev {
		m.InteractionFactor = e.rules.ContinuousCultivationImpact(c.Crop, prev.Crop)
	}
	if hasPrev && !c.StartDate.IsZero() {
		idle := model.DaysBetween(prev.CompletionDate, c.StartDate)
		m.SoilRecoveryFactor = SoilRecoveryFactor(idle, c.Field.FallowPeriodDays)
	} else {
		m.SoilRecoveryFactor = SoilRecoveryMax
	}
	m.CompatibilityFactor = e.rules.FieldCropImpact(c.Field.Groups, c.Crop)

	revenue := base * m.InteractionFactor * m.SoilRecoveryFactor * m.CompatibilityFactor
	if c.Crop.MaxRevenue != nil && revenue > *c.Crop.MaxRevenue {
		revenue = *c.Crop.MaxRevenue
		m.Capped = true
	}
	m.Revenue = &revenue
	m.Profit = revenue - m.Cost
	return m, nil
}

// ProfitRate evaluates c and returns its objective value per growth day.
func (e *Evaluator) ProfitRate(c model.AllocationCandidate, others []model.CropAllocation) (float64, error) {
	m, err := e.Metrics(c, others)
	if err != nil {
		return 0, err
	}
	return e.BaseOptimizer.ProfitRate(m.Revenue, m.Cost, c.GrowthDays), nil
}

// Allocate evaluates c and turns it into a validated CropAllocation.
func (e *Evaluator) Allocate(c model.AllocationCandidate, others []model.CropAllocation, id string) (model.CropAllocation, error) {
	m, err := e.Metrics(c, others)
	if err != nil {
		return model.CropAllocation{}, err
	}
	profit := m.Profit
	a, err := model.NewCropAllocation(model.CropAllocation{
		AllocationID:    id,
		Field:           c.Field,
		Crop:            c.Crop,
		AreaUsed:        c.AreaUsed,
		StartDate:       c.StartDate,
		CompletionDate:  c.CompletionDate,
		GrowthDays:      c.GrowthDays,
		AccumulatedGDD:  c.AccumulatedGDD,
		YieldFactor:     c.Yield(),
		TotalCost:       m.Cost,
		ExpectedRevenue: m.Revenue,
		Profit:          &profit,
	})
	if err != nil {
		return model.CropAllocation{}, eris.Wrap(err, "evaluate: build allocation")
	}
	return a, nil
}

// Reevaluate recomputes the metrics of every allocation on the given fields
// (all fields when none are given). A change to one allocation alters the
// previous-crop context of its successor, so operators call this after each
// mutation. The input slice is not modified.
func (e *Evaluator) Reevaluate(solution []model.CropAllocation, fieldIDs ...string) ([]model.CropAllocation, error) {
	touched := make(map[string]bool, len(fieldIDs))
	for _, id := range fieldIDs {
		touched[id] = true
	}
	out := make([]model.CropAllocation, len(solution))
	copy(out, solution)
	others := make([]model.CropAllocation, 0, len(solution))
	for i, a := range solution {
		if len(touched) > 0 && !touched[a.Field.ID] {
			continue
		}
		others = others[:0]
		for j, b := range solution {
			if j != i && b.Field.ID == a.Field.ID {
				others = append(others, b)
			}
		}
		re, err := e.Allocate(a.Candidate(), others, a.AllocationID)
		if err != nil {
			return nil, err
		}
		out[i] = re
	}
	return out, nil
}

// PreviousAllocation returns the allocation on fieldID that completed last on
// or before start.
func PreviousAllocation(allocs []model.CropAllocation, fieldID string, start time.Time) (model.CropAllocation, bool) {
	var prev model.CropAllocation
	found := false
	for _, a := range allocs {
		if a.Field == nil || a.Field.ID != fieldID || a.CompletionDate.After(start) {
			continue
		}
		if !found || a.CompletionDate.After(prev.CompletionDate) ||
			(a.CompletionDate.Equal(prev.CompletionDate) && a.StartDate.After(prev.StartDate)) {
			prev, found = a, true
		}
	}
	return prev, found
}

const (
	// SoilRecoveryMin is the factor when the soil had no rest beyond the fallow period.
	SoilRecoveryMin = 1.0
	// SoilRecoveryMax is the full recovery bonus.
	SoilRecoveryMax = 1.1
	// minRecoveryRampDays is the shortest ramp from no bonus to the full bonus.
	minRecoveryRampDays = 30
)

// SoilRecoveryFactor ramps linearly from SoilRecoveryMin at idleDays ==
// fallowDays up to SoilRecoveryMax once the extra rest reaches
// max(fallowDays, 30) days. Non-decreasing in idleDays.
func SoilRecoveryFactor(idleDays, fallowDays int) float64 {
	if idleDays <= fallowDays {
		return SoilRecoveryMin
	}
	ramp := math.Max(float64(fallowDays), minRecoveryRampDays)
	frac := math.Min(1, float64(idleDays-fallowDays)/ramp)
	return SoilRecoveryMin + (SoilRecoveryMax-SoilRecoveryMin)*frac
}
