package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/neighbor"
)

var testField = &model.Field{ID: "f", Name: "f", Area: 1000}

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func alloc(revenue float64) model.CropAllocation {
	return model.CropAllocation{
		AllocationID:    "a",
		Field:           testField,
		Crop:            &model.Crop{ID: "c"},
		AreaUsed:        10,
		StartDate:       day(1, 1),
		CompletionDate:  day(1, 10),
		ExpectedRevenue: &revenue,
	}
}

// scripted is an operator whose neighbors are computed from the current
// solution by fn.
type scripted struct {
	fn func(current []model.CropAllocation) [][]model.CropAllocation
}

func (scripted) Name() string           { return "scripted" }
func (scripted) DefaultWeight() float64 { return 1 }
func (s scripted) Generate(solution []model.CropAllocation, _ *neighbor.Context) [][]model.CropAllocation {
	return s.fn(solution)
}

func scale(factor float64) scripted {
	return scripted{fn: func(cur []model.CropAllocation) [][]model.CropAllocation {
		return [][]model.CropAllocation{{alloc(*cur[0].ExpectedRevenue * factor)}}
	}}
}

func testConfig() config.OptimizationConfig {
	return config.OptimizationConfig{
		MaxLocalSearchIterations:  5,
		MaxNoImprovement:          100,
		ImprovementThresholdRatio: 0.001,
		AdaptiveWindow:            3,
	}
}

func run(t *testing.T, op neighbor.Operator, cfg config.OptimizationConfig) ([]model.CropAllocation, Stats, error) {
	t.Helper()
	ls := New(nil, neighbor.NewService(neighbor.NewRegistry(op)), cfg)
	return ls.Optimize(context.Background(), []model.CropAllocation{alloc(100)}, &neighbor.Context{Config: cfg})
}

func TestOptimize_StopReasons(t *testing.T) {
	t.Parallel()
	overlapping := scripted{fn: func(cur []model.CropAllocation) [][]model.CropAllocation {
		return [][]model.CropAllocation{{alloc(500), alloc(500)}}
	}}
	none := scripted{fn: func([]model.CropAllocation) [][]model.CropAllocation { return nil }}

	tests := []struct {
		name           string
		op             neighbor.Operator
		mutate         func(c *config.OptimizationConfig)
		wantReason     StopReason
		wantIterations int
		wantAccepted   int
		wantFinal      float64
	}{
		{
			name: "max iterations", op: scale(2),
			wantReason: StopMaxIterations, wantIterations: 5, wantAccepted: 5, wantFinal: 3200,
		},
		{
			name: "no neighbors", op: none,
			wantReason: StopNoNeighbors, wantIterations: 1, wantFinal: 100,
		},
		{
			name: "infeasible neighbors only", op: overlapping,
			wantReason: StopNoNeighbors, wantIterations: 1, wantFinal: 100,
		},
		{
			name: "worse neighbors are rejected", op: scale(0.5),
			mutate:     func(c *config.OptimizationConfig) { c.MaxNoImprovement = 3 },
			wantReason: StopNoImprovement, wantIterations: 3, wantFinal: 100,
		},
		{
			name: "adaptive early stop", op: scale(1.0001),
			mutate: func(c *config.OptimizationConfig) {
				c.EnableAdaptiveEarlyStopping = true
				c.MaxLocalSearchIterations = 50
			},
			wantReason: StopAdaptive, wantIterations: 3, wantAccepted: 3, wantFinal: 100 * 1.0001 * 1.0001 * 1.0001,
		},
		{
			name: "zero iterations", op: scale(2),
			mutate:     func(c *config.OptimizationConfig) { c.MaxLocalSearchIterations = 0 },
			wantReason: StopMaxIterations, wantFinal: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			sol, stats, err := run(t, tt.op, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReason, stats.StopReason)
			assert.Equal(t, tt.wantIterations, stats.Iterations)
			assert.Equal(t, tt.wantAccepted, stats.Accepted)
			assert.InDelta(t, 100, stats.InitialValue, 1e-9)
			assert.InDelta(t, tt.wantFinal, stats.FinalValue, 1e-6)
			require.Len(t, sol, 1)
			assert.InDelta(t, tt.wantFinal, *sol[0].ExpectedRevenue, 1e-6)
		})
	}
}

func TestOptimize_HistoryNeverDecreases(t *testing.T) {
	t.Parallel()
	flip := 0
	op := scripted{fn: func(cur []model.CropAllocation) [][]model.CropAllocation {
		flip++
		factor := 0.5
		if flip%2 == 0 {
			factor = 1.5
		}
		return [][]model.CropAllocation{{alloc(*cur[0].ExpectedRevenue * factor)}}
	}}
	cfg := testConfig()
	cfg.MaxLocalSearchIterations = 10

	_, stats, err := run(t, op, cfg)
	require.NoError(t, err)
	require.Len(t, stats.History, 10)
	assert.IsNonDecreasing(t, stats.History)
	assert.GreaterOrEqual(t, stats.FinalValue, stats.InitialValue)
}

func TestOptimize_BestNeighborWins(t *testing.T) {
	t.Parallel()
	op := scripted{fn: func(cur []model.CropAllocation) [][]model.CropAllocation {
		return [][]model.CropAllocation{{alloc(150)}, {alloc(400)}, {alloc(90)}}
	}}
	cfg := testConfig()
	cfg.MaxLocalSearchIterations = 1

	sol, stats, err := run(t, op, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NeighborsSeen)
	assert.InDelta(t, 400, *sol[0].ExpectedRevenue, 1e-9)
}

func TestOptimize_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := testConfig()
	ls := New(nil, neighbor.NewService(neighbor.NewRegistry(scale(2))), cfg)

	sol, stats, err := ls.Optimize(ctx, []model.CropAllocation{alloc(100)}, &neighbor.Context{Config: cfg})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StopContextCancel, stats.StopReason)
	require.Len(t, sol, 1)
	assert.InDelta(t, 100, *sol[0].ExpectedRevenue, 1e-9)
}

func TestOptimize_TimeLimit(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxLocalSearchIterations = 1000
	cfg.MaxDurationSecs = 3
	ls := New(nil, neighbor.NewService(neighbor.NewRegistry(scale(2))), cfg)
	clock := day(1, 1)
	ls.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	_, stats, err := ls.Optimize(context.Background(), []model.CropAllocation{alloc(100)}, &neighbor.Context{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, StopTimeLimit, stats.StopReason)
	assert.Equal(t, 2, stats.Iterations)
}

func TestRelativeGain(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.1, relativeGain(100, 110), 1e-12)
	assert.InDelta(t, 5, relativeGain(0, 5), 1e-12)
	assert.InDelta(t, 0.5, relativeGain(-10, -5), 1e-12)
	assert.Zero(t, mean(nil))
	assert.InDelta(t, 2, mean([]float64{1, 2, 3}), 1e-12)
}
