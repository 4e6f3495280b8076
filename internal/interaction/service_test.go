package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/cropplan/internal/model"
)

func rule(id string, typ model.RuleType, src, dst string, ratio float64, directional bool) model.InteractionRule {
	return model.InteractionRule{
		RuleID: id, RuleType: typ, SourceGroup: src, TargetGroup: dst,
		ImpactRatio: ratio, IsDirectional: directional,
	}
}

func crop(id string, groups ...string) *model.Crop {
	return &model.Crop{ID: id, Name: id, AreaPerUnit: 1, Groups: groups}
}

func TestContinuousCultivationImpact(t *testing.T) {
	t.Parallel()
	svc := NewService([]model.InteractionRule{
		rule("r1", model.RuleContinuousCultivation, "Solanaceae", "Solanaceae", 0.7, true),
		rule("r2", model.RuleContinuousCultivation, "Fabaceae", "Brassicaceae", 1.2, true),
		rule("r3", model.RuleSoilCompatibility, "Solanaceae", "Solanaceae", 0.1, false),
	})

	tomato := crop("tomato", "Solanaceae")
	eggplant := crop("eggplant", "Solanaceae")
	bean := crop("bean", "Fabaceae")
	cabbage := crop("cabbage", "Brassicaceae")
	bare := crop("bare")

	tests := []struct {
		name              string
		current, previous *model.Crop
		want              float64
	}{
		{"same family", tomato, eggplant, 0.7},
		{"beneficial rotation", cabbage, bean, 1.2},
		{"reverse of directional rule", bean, cabbage, 1.0},
		{"no matching pair", tomato, bean, 1.0},
		{"no previous crop", tomato, nil, 1.0},
		{"groupless current", bare, tomato, 1.0},
		{"groupless previous", tomato, bare, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, svc.ContinuousCultivationImpact(tt.current, tt.previous))
		})
	}
}

func TestImpact_CompoundsMultiplicatively(t *testing.T) {
	t.Parallel()
	svc := NewService([]model.InteractionRule{
		rule("a", model.RuleContinuousCultivation, "x", "y", 0.5, false),
		rule("b", model.RuleContinuousCultivation, "x", "z", 0.8, true),
	})
	// Pairs: (x,y)=0.5, (x,z)=0.8.
	got := svc.Impact([]model.RuleType{model.RuleContinuousCultivation}, []string{"x"}, []string{"y", "z"})
	assert.InDelta(t, 0.4, got, 1e-12)

	// Non-directional rule also matches (y,x).
	got = svc.Impact([]model.RuleType{model.RuleContinuousCultivation}, []string{"y"}, []string{"x"})
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestFieldCropImpact(t *testing.T) {
	t.Parallel()
	svc := NewService([]model.InteractionRule{
		rule("soil", model.RuleSoilCompatibility, "clay", "Solanaceae", 0.9, true),
		rule("climate", model.RuleClimateCompatibility, "cool", "Solanaceae", 0.5, true),
	})
	tomato := crop("tomato", "Solanaceae")

	assert.InDelta(t, 0.45, svc.FieldCropImpact([]string{"clay", "cool"}, tomato), 1e-12)
	assert.InDelta(t, 0.9, svc.FieldCropImpact([]string{"clay"}, tomato), 1e-12)
	assert.Equal(t, 1.0, svc.FieldCropImpact(nil, tomato))
	assert.Equal(t, 1.0, svc.FieldCropImpact([]string{"clay"}, crop("bare")))
}

func TestEmptyService(t *testing.T) {
	t.Parallel()
	svc := NewService(nil)
	assert.Zero(t, svc.RuleCount())
	assert.Equal(t, 1.0, svc.ContinuousCultivationImpact(crop("a", "x"), crop("b", "x")))
	assert.Equal(t, 1.0, svc.Impact([]model.RuleType{model.RuleAllelopathy}, []string{"x"}, []string{"x"}))
}

func TestRuleCount(t *testing.T) {
	t.Parallel()
	svc := NewService([]model.InteractionRule{
		rule("a", model.RuleAllelopathy, "x", "y", 0.5, false),
		rule("b", model.RuleCompanionPlanting, "x", "y", 1.1, false),
		rule("c", model.RuleAllelopathy, "y", "z", 0.9, false),
	})
	assert.Equal(t, 3, svc.RuleCount())
}
