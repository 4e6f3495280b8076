package model

import (
	"math"
	"slices"
	"strings"
)

// Crop describes what can be planted and how it pays.
type Crop struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Variety        string   `json:"variety,omitempty" yaml:"variety,omitempty"`
	AreaPerUnit    float64  `json:"area_per_unit" yaml:"area_per_unit"`
	RevenuePerArea *float64 `json:"revenue_per_area,omitempty" yaml:"revenue_per_area,omitempty"`
	MaxRevenue     *float64 `json:"max_revenue,omitempty" yaml:"max_revenue,omitempty"` // hard cap per allocation
	Groups         []string `json:"groups,omitempty" yaml:"groups,omitempty"`           // e.g. plant family
}

// NewCrop validates c and returns an independent copy.
func NewCrop(c Crop) (*Crop, error) {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return nil, invalidf("crop: id is required")
	}
	if c.Name == "" {
		return nil, invalidf("crop %s: name is required", c.ID)
	}
	if c.AreaPerUnit <= 0 || math.IsNaN(c.AreaPerUnit) {
		return nil, invalidf("crop %s: area per unit must be positive, got %v", c.ID, c.AreaPerUnit)
	}
	if c.RevenuePerArea != nil {
		if *c.RevenuePerArea < 0 || math.IsNaN(*c.RevenuePerArea) {
			return nil, invalidf("crop %s: revenue per area must be >= 0, got %v", c.ID, *c.RevenuePerArea)
		}
		v := *c.RevenuePerArea
		c.RevenuePerArea = &v
	}
	if c.MaxRevenue != nil {
		if *c.MaxRevenue <= 0 || math.IsNaN(*c.MaxRevenue) {
			return nil, invalidf("crop %s: max revenue must be positive, got %v", c.ID, *c.MaxRevenue)
		}
		v := *c.MaxRevenue
		c.MaxRevenue = &v
	}
	c.Groups = slices.Clone(c.Groups)
	return &c, nil
}

// HasGroups reports whether the crop belongs to any interaction group.
func (c *Crop) HasGroups() bool {
	return c != nil && len(c.Groups) > 0
}

// DisplayName returns "name (variety)" when a variety is set.
func (c *Crop) DisplayName() string {
	if c.Variety == "" {
		return c.Name
	}
	return c.Name + " (" + c.Variety + ")"
}
