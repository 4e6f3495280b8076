package model

import (
	"math"
	"time"
)

// profitTolerance bounds |profit - (revenue - cost)| on a CropAllocation.
const profitTolerance = 0.01

// AllocationCandidate is an unconfirmed (field, crop, window, area) option
// considered during search.
type AllocationCandidate struct {
	Field          *Field
	Crop           *Crop
	StartDate      time.Time
	CompletionDate time.Time // zero when growth never completed
	GrowthDays     int
	AccumulatedGDD float64
	AreaUsed       float64
	YieldFactor    float64
}

// HasCompletion reports whether the candidate's growth completes.
func (c AllocationCandidate) HasCompletion() bool {
	return !c.CompletionDate.IsZero()
}

// Yield returns the yield factor, treating an unset factor as 1.0.
func (c AllocationCandidate) Yield() float64 {
	if c.YieldFactor <= 0 {
		return 1.0
	}
	return c.YieldFactor
}

// WithArea returns a copy of the candidate using the given area.
func (c AllocationCandidate) WithArea(area float64) AllocationCandidate {
	c.AreaUsed = area
	return c
}

// WithField returns a copy of the candidate placed on another field.
func (c AllocationCandidate) WithField(f *Field) AllocationCandidate {
	c.Field = f
	return c
}

// Key identifies the candidate within a catalog.
func (c AllocationCandidate) Key() CandidateKey {
	return CandidateKey{
		FieldID:   c.Field.ID,
		CropID:    c.Crop.ID,
		StartDate: Day(c.StartDate),
		AreaMilli: int64(math.Round(c.AreaUsed * 1000)),
	}
}

// CandidateKey is a comparable identity for a candidate or an allocation.
type CandidateKey struct {
	FieldID   string
	CropID    string
	StartDate time.Time
	AreaMilli int64
}

// CropAllocation is an accepted decision to grow a crop on a field.
type CropAllocation struct {
	AllocationID    string    `json:"allocation_id"`
	Field           *Field    `json:"field"`
	Crop            *Crop     `json:"crop"`
	AreaUsed        float64   `json:"area_used"`
	StartDate       time.Time `json:"start_date"`
	CompletionDate  time.Time `json:"completion_date"`
	GrowthDays      int       `json:"growth_days"`
	AccumulatedGDD  float64   `json:"accumulated_gdd"`
	YieldFactor     float64   `json:"yield_factor"`
	TotalCost       float64   `json:"total_cost"`
	ExpectedRevenue *float64  `json:"expected_revenue,omitempty"`
	Profit          *float64  `json:"profit,omitempty"`
}

// NewCropAllocation validates a and returns it.
func NewCropAllocation(a CropAllocation) (CropAllocation, error) {
	if a.AllocationID == "" {
		return CropAllocation{}, invalidf("allocation: id is required")
	}
	if a.Field == nil || a.Crop == nil {
		return CropAllocation{}, invalidf("allocation %s: field and crop are required", a.AllocationID)
	}
	if a.AreaUsed <= 0 || math.IsNaN(a.AreaUsed) {
		return CropAllocation{}, invalidf("allocation %s: area used must be positive, got %v", a.AllocationID, a.AreaUsed)
	}
	if a.AreaUsed > a.Field.Area {
		return CropAllocation{}, invalidf("allocation %s: area used %.2f exceeds field %s area %.2f",
			a.AllocationID, a.AreaUsed, a.Field.ID, a.Field.Area)
	}
	if a.CompletionDate.Before(a.StartDate) {
		return CropAllocation{}, invalidf("allocation %s: completion %s before start %s",
			a.AllocationID, a.CompletionDate.Format(time.DateOnly), a.StartDate.Format(time.DateOnly))
	}
	if a.ExpectedRevenue != nil && a.Profit != nil {
		if diff := math.Abs(*a.Profit - (*a.ExpectedRevenue - a.TotalCost)); diff >= profitTolerance {
			return CropAllocation{}, invalidf("allocation %s: profit %.2f inconsistent with revenue %.2f - cost %.2f",
				a.AllocationID, *a.Profit, *a.ExpectedRevenue, a.TotalCost)
		}
	}
	if a.YieldFactor <= 0 {
		a.YieldFactor = 1.0
	}
	return a, nil
}

// OccupiedUntil returns the completion date extended by the field's fallow period.
func (a CropAllocation) OccupiedUntil() time.Time {
	return AddDays(a.CompletionDate, a.Field.FallowPeriodDays)
}

// ProfitValue returns the stored profit, or -cost when unknown.
func (a CropAllocation) ProfitValue() float64 {
	if a.Profit != nil {
		return *a.Profit
	}
	return -a.TotalCost
}

// Candidate converts the allocation back into a candidate with the same window.
func (a CropAllocation) Candidate() AllocationCandidate {
	return AllocationCandidate{
		Field:          a.Field,
		Crop:           a.Crop,
		StartDate:      a.StartDate,
		CompletionDate: a.CompletionDate,
		GrowthDays:     a.GrowthDays,
		AccumulatedGDD: a.AccumulatedGDD,
		AreaUsed:       a.AreaUsed,
		YieldFactor:    a.YieldFactor,
	}
}

// Key identifies the allocation's (field, crop, start, area) combination.
func (a CropAllocation) Key() CandidateKey {
	return a.Candidate().Key()
}
