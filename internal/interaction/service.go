// Package interaction composes multiplicative revenue factors from
// group-pair interaction rules.
package interaction

import (
	"github.com/sells-group/cropplan/internal/model"
)

// Service looks up and compounds interaction rules. It is read-only after
// construction and safe for concurrent use.
type Service struct {
	byType map[model.RuleType][]model.InteractionRule
}

// NewService indexes rules by type. An empty rule set makes every factor 1.0.
func NewService(rules []model.InteractionRule) *Service {
	s := &Service{byType: make(map[model.RuleType][]model.InteractionRule)}
	for _, r := range rules {
		s.byType[r.RuleType] = append(s.byType[r.RuleType], r)
	}
	return s
}

// RuleCount returns the number of indexed rules.
func (s *Service) RuleCount() int {
	n := 0
	for _, rs := range s.byType {
		n += len(rs)
	}
	return n
}

// ContinuousCultivationImpact returns the factor for planting current right
// after previous on the same field.
func (s *Service) ContinuousCultivationImpact(current, previous *model.Crop) float64 {
	if previous == nil || !current.HasGroups() || !previous.HasGroups() {
		return 1.0
	}
	return s.Impact([]model.RuleType{model.RuleContinuousCultivation}, previous.Groups, current.Groups)
}

// FieldCropImpact returns the soil and climate compatibility factor of crop on
// a field carrying fieldGroups.
func (s *Service) FieldCropImpact(fieldGroups []string, crop *model.Crop) float64 {
	if len(fieldGroups) == 0 || !crop.HasGroups() {
		return 1.0
	}
	return s.Impact(
		[]model.RuleType{model.RuleSoilCompatibility, model.RuleClimateCompatibility},
		fieldGroups, crop.Groups,
	)
}

// Impact multiplies rule.Impact(source, target) over every source×target
// group pair and every rule of the given types.
func (s *Service) Impact(types []model.RuleType, sources, targets []string) float64 {
	factor := 1.0
	for _, t := range types {
		rules := s.byType[t]
		if len(rules) == 0 {
			continue
		}
		for _, src := range sources {
			for _, dst := range targets {
				for _, r := range rules {
					factor *= r.Impact(src, dst)
				}
			}
		}
	}
	return factor
}
