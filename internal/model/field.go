package model

import (
	"math"
	"slices"
	"strings"
)

// Field is a plot of land that hosts one crop at a time.
type Field struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Area             float64  `json:"area" yaml:"area"`                             // square meters
	DailyFixedCost   float64  `json:"daily_fixed_cost" yaml:"daily_fixed_cost"`     // cost per occupied day
	FallowPeriodDays int      `json:"fallow_period_days" yaml:"fallow_period_days"` // idle days between cultivations
	Location         string   `json:"location,omitempty" yaml:"location,omitempty"`
	Groups           []string `json:"groups,omitempty" yaml:"groups,omitempty"` // soil/climate groups
}

// NewField validates f and returns an independent copy.
func NewField(f Field) (*Field, error) {
	f.ID = strings.TrimSpace(f.ID)
	if f.ID == "" {
		return nil, invalidf("field: id is required")
	}
	if f.Area <= 0 || math.IsNaN(f.Area) || math.IsInf(f.Area, 0) {
		return nil, invalidf("field %s: area must be positive, got %v", f.ID, f.Area)
	}
	if f.DailyFixedCost < 0 || math.IsNaN(f.DailyFixedCost) {
		return nil, invalidf("field %s: daily fixed cost must be >= 0, got %v", f.ID, f.DailyFixedCost)
	}
	if f.FallowPeriodDays < 0 {
		return nil, invalidf("field %s: fallow period must be >= 0, got %d", f.ID, f.FallowPeriodDays)
	}
	if f.Name == "" {
		f.Name = f.ID
	}
	f.Groups = slices.Clone(f.Groups)
	return &f, nil
}

// HasGroups reports whether the field carries any soil/climate group.
func (f *Field) HasGroups() bool {
	return f != nil && len(f.Groups) > 0
}
