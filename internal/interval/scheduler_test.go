package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cropplan/internal/model"
)

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func opt(label string, start, end time.Time, cost float64) model.OptimizationIntermediateResult {
	return model.OptimizationIntermediateResult{
		Label:          label,
		StartDate:      start,
		CompletionDate: &end,
		GrowthDays:     model.DaysBetween(start, end),
		TotalCost:      &cost,
	}
}

func labels(s Selection) []string {
	out := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, r.Label)
	}
	return out
}

func TestSchedule(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		options   []model.OptimizationIntermediateResult
		want      []string
		wantTotal float64
	}{
		{
			name: "overlap prefers cheaper",
			options: []model.OptimizationIntermediateResult{
				opt("a", day(1, 1), day(1, 10), 100),
				opt("b", day(1, 5), day(1, 15), 80),
			},
			want:      []string{"b"},
			wantTotal: 80,
		},
		{
			name: "disjoint all selected",
			options: []model.OptimizationIntermediateResult{
				opt("c", day(3, 1), day(3, 31), 30),
				opt("a", day(1, 1), day(1, 31), 10),
				opt("b", day(2, 1), day(2, 28), 20),
			},
			want:      []string{"a", "b", "c"},
			wantTotal: 60,
		},
		{
			name: "end to start adjacency is not overlap",
			options: []model.OptimizationIntermediateResult{
				opt("a", day(1, 1), day(1, 10), 5),
				opt("b", day(1, 10), day(1, 20), 5),
			},
			want:      []string{"a", "b"},
			wantTotal: 10,
		},
		{
			name: "count beats cost",
			options: []model.OptimizationIntermediateResult{
				opt("long", day(1, 1), day(3, 1), 1),
				opt("x", day(1, 1), day(1, 31), 50),
				opt("y", day(2, 1), day(2, 28), 50),
			},
			want:      []string{"x", "y"},
			wantTotal: 100,
		},
		{
			name: "fully overlapping picks cheapest",
			options: []model.OptimizationIntermediateResult{
				opt("p", day(4, 1), day(4, 30), 70),
				opt("q", day(4, 1), day(4, 30), 40),
				opt("r", day(4, 1), day(4, 30), 90),
			},
			want:      []string{"q"},
			wantTotal: 40,
		},
		{
			name: "unschedulable ignored",
			options: []model.OptimizationIntermediateResult{
				{Label: "nodate", StartDate: day(1, 1)},
				opt("ok", day(1, 1), day(1, 5), 3),
			},
			want:      []string{"ok"},
			wantTotal: 3,
		},
		{
			name: "empty",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sel := New(nil).Schedule(tt.options)
			assert.Equal(t, tt.want, labels(sel))
			assert.Equal(t, len(tt.want), sel.Count())
			assert.InDelta(t, tt.wantTotal, sel.TotalCost, 1e-9)
		})
	}
}

func TestSchedule_DoesNotModifyInput(t *testing.T) {
	t.Parallel()
	options := []model.OptimizationIntermediateResult{
		opt("late", day(5, 1), day(5, 10), 1),
		opt("early", day(1, 1), day(1, 10), 1),
	}
	sel := New(nil).Schedule(options)
	require.Equal(t, 2, sel.Count())
	assert.Equal(t, "late", options[0].Label)
	assert.Equal(t, []string{"early", "late"}, labels(sel))
}
