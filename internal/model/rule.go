package model

import (
	"math"
	"strings"
)

// RuleType classifies an interaction rule.
type RuleType string

const (
	RuleContinuousCultivation RuleType = "continuous_cultivation"
	RuleBeneficialRotation    RuleType = "beneficial_rotation"
	RuleCompanionPlanting     RuleType = "companion_planting"
	RuleAllelopathy           RuleType = "allelopathy"
	RuleSoilCompatibility     RuleType = "soil_compatibility"
	RuleClimateCompatibility  RuleType = "climate_compatibility"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleContinuousCultivation, RuleBeneficialRotation, RuleCompanionPlanting,
		RuleAllelopathy, RuleSoilCompatibility, RuleClimateCompatibility:
		return true
	}
	return false
}

// InteractionRule multiplies revenue when a source group meets a target group.
type InteractionRule struct {
	RuleID        string   `json:"rule_id" yaml:"rule_id"`
	RuleType      RuleType `json:"rule_type" yaml:"rule_type"`
	SourceGroup   string   `json:"source_group" yaml:"source_group"`
	TargetGroup   string   `json:"target_group" yaml:"target_group"`
	ImpactRatio   float64  `json:"impact_ratio" yaml:"impact_ratio"`
	IsDirectional bool     `json:"is_directional" yaml:"is_directional"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewInteractionRule validates r and returns it.
func NewInteractionRule(r InteractionRule) (InteractionRule, error) {
	r.RuleID = strings.TrimSpace(r.RuleID)
	if r.RuleID == "" {
		return InteractionRule{}, invalidf("rule: id is required")
	}
	if !r.RuleType.Valid() {
		return InteractionRule{}, invalidf("rule %s: unknown rule type %q", r.RuleID, r.RuleType)
	}
	if r.SourceGroup == "" || r.TargetGroup == "" {
		return InteractionRule{}, invalidf("rule %s: source and target groups are required", r.RuleID)
	}
	if r.ImpactRatio < 0 || math.IsNaN(r.ImpactRatio) || math.IsInf(r.ImpactRatio, 0) {
		return InteractionRule{}, invalidf("rule %s: impact ratio must be >= 0, got %v", r.RuleID, r.ImpactRatio)
	}
	return r, nil
}

// Matches reports whether the rule applies to the (source, target) pair.
// Non-directional rules match either order.
func (r InteractionRule) Matches(source, target string) bool {
	if r.SourceGroup == source && r.TargetGroup == target {
		return true
	}
	if r.IsDirectional {
		return false
	}
	return r.SourceGroup == target && r.TargetGroup == source
}

// Impact returns the impact ratio for a matching pair and exactly 1.0 otherwise.
func (r InteractionRule) Impact(source, target string) float64 {
	if r.Matches(source, target) {
		return r.ImpactRatio
	}
	return 1.0
}
