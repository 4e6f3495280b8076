package adjust

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/loader"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/result"
)

func ptr(v float64) *float64 { return &v }

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func dayPtr(m time.Month, d int) *time.Time {
	t := day(m, d)
	return &t
}

type env struct {
	north, south  *model.Field
	lettuce, bean *model.Crop
	eval          *evaluate.Evaluator
	adj           *Adjuster
	prev          *model.MultiFieldOptimizationResult
}

func win(crop string, start, end time.Time) loader.Window {
	return loader.Window{CropID: crop, GrowthWindow: catalog.GrowthWindow{
		StartDate: start, CompletionDate: end, GrowthDays: model.DaysBetween(start, end), YieldFactor: 1,
	}}
}

// newEnv plans lettuce twice on north and bean once on south.
func newEnv(t *testing.T) env {
	t.Helper()
	e := env{
		north:   &model.Field{ID: "north", Name: "North", Area: 100, DailyFixedCost: 1, FallowPeriodDays: 7},
		south:   &model.Field{ID: "south", Name: "South", Area: 100, DailyFixedCost: 1},
		lettuce: &model.Crop{ID: "lettuce", Name: "Lettuce", AreaPerUnit: 1, RevenuePerArea: ptr(10)},
		bean:    &model.Crop{ID: "bean", Name: "Bean", AreaPerUnit: 1, RevenuePerArea: ptr(5)},
		eval:    evaluate.NewEvaluator(nil, nil),
	}
	sim := loader.NewStaticSimulator([]loader.Window{
		win("lettuce", day(3, 1), day(4, 30)),
		win("lettuce", day(5, 10), day(6, 30)),
		win("lettuce", day(7, 1), day(8, 31)),
		win("bean", day(3, 1), day(4, 30)),
		win("bean", day(9, 1), day(10, 31)),
	})
	e.adj = New(e.eval, sim, []*model.Field{e.north, e.south}, []*model.Crop{e.lettuce, e.bean})

	cand := func(f *model.Field, c *model.Crop, start, end time.Time, area float64) model.AllocationCandidate {
		return model.AllocationCandidate{Field: f, Crop: c, StartDate: start, CompletionDate: end,
			GrowthDays: model.DaysBetween(start, end), AreaUsed: area, YieldFactor: 1}
	}
	a1, err := e.eval.Allocate(cand(e.north, e.lettuce, day(3, 1), day(4, 30), 50), nil, "a1")
	require.NoError(t, err)
	a2, err := e.eval.Allocate(cand(e.north, e.lettuce, day(5, 10), day(6, 30), 50), []model.CropAllocation{a1}, "a2")
	require.NoError(t, err)
	a3, err := e.eval.Allocate(cand(e.south, e.bean, day(3, 1), day(4, 30), 60), nil, "a3")
	require.NoError(t, err)

	e.prev, err = result.NewBuilder().Build([]model.CropAllocation{a1, a2, a3}, []*model.Field{e.north, e.south}, "test", 0)
	require.NoError(t, err)
	return e
}

func find(t *testing.T, res *model.MultiFieldOptimizationResult, id string) model.CropAllocation {
	t.Helper()
	for _, a := range res.Allocations() {
		if a.AllocationID == id {
			return a
		}
	}
	t.Fatalf("allocation %s not found", id)
	return model.CropAllocation{}
}

func TestApply_Remove(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	require.InDelta(t, 505, *find(t, e.prev, "a2").ExpectedRevenue, 1e-9)

	out, err := e.adj.Apply(context.Background(), e.prev, []model.MoveInstruction{
		{Action: model.MoveActionRemove, AllocationID: "a1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Applied)
	assert.Empty(t, out.Dropped)
	assert.Len(t, out.Result.Allocations(), 2)
	assert.Equal(t, Algorithm, out.Result.AlgorithmUsed)

	// a2 lost its predecessor and gets the first-crop soil bonus.
	assert.InDelta(t, 550, *find(t, out.Result, "a2").ExpectedRevenue, 1e-9)
	assert.Len(t, e.prev.Allocations(), 3, "previous result untouched")
}

func TestApply_MoveUsesSimulatedWindow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	out, err := e.adj.Apply(context.Background(), e.prev, []model.MoveInstruction{
		{Action: model.MoveActionMove, AllocationID: "a1", ToFieldID: "south", ToStartDate: dayPtr(7, 1), ToArea: ptr(40)},
	})
	require.NoError(t, err)

	a1 := find(t, out.Result, "a1")
	assert.Equal(t, "south", a1.Field.ID)
	assert.Equal(t, day(7, 1), a1.StartDate)
	assert.Equal(t, day(8, 31), a1.CompletionDate)
	assert.InDelta(t, 40, a1.AreaUsed, 1e-9)
	assert.InDelta(t, 61, a1.TotalCost, 1e-9)
}

func TestApply_MoveWithoutWindowKeepsGrowthLength(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	out, err := e.adj.Apply(context.Background(), e.prev, []model.MoveInstruction{
		{Action: model.MoveActionMove, AllocationID: "a2", ToFieldID: "south", ToStartDate: dayPtr(11, 1), ToArea: ptr(40)},
	})
	require.NoError(t, err)

	a2 := find(t, out.Result, "a2")
	assert.Equal(t, day(11, 1), a2.StartDate)
	assert.Equal(t, day(12, 22), a2.CompletionDate)
}

func TestApply_AddAndResolveConflicts(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	out, err := e.adj.Apply(context.Background(), e.prev, []model.MoveInstruction{
		{Action: model.MoveActionAdd, CropID: "bean", ToFieldID: "south", ToStartDate: dayPtr(9, 1), ToArea: ptr(30)},
		{Action: model.MoveActionAdd, CropID: "lettuce", ToFieldID: "north", ToStartDate: dayPtr(7, 1), ToArea: ptr(0.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Applied)

	// The July lettuce starts inside a2's fallow; keeping a1+a2 is cheaper
	// than a1+July.
	require.Len(t, out.Dropped, 1)
	assert.Equal(t, day(7, 1), out.Dropped[0].StartDate)
	assert.Equal(t, "north", out.Dropped[0].Field.ID)

	allocs := out.Result.Allocations()
	require.Len(t, allocs, 4)
	var added model.CropAllocation
	for _, a := range allocs {
		if a.Crop.ID == "bean" && a.Field.ID == "south" && a.StartDate.Equal(day(9, 1)) {
			added = a
		}
	}
	assert.NotEmpty(t, added.AllocationID)
	assert.Equal(t, day(10, 31), added.CompletionDate)
}

func TestApply_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		moves []model.MoveInstruction
		want  error
	}{
		{"unknown allocation", []model.MoveInstruction{{Action: model.MoveActionRemove, AllocationID: "zz"}}, model.ErrInvalid},
		{"unknown field", []model.MoveInstruction{{Action: model.MoveActionMove, AllocationID: "a1", ToFieldID: "west", ToStartDate: dayPtr(7, 1)}}, model.ErrInvalid},
		{"unknown crop", []model.MoveInstruction{{Action: model.MoveActionAdd, CropID: "kale", ToFieldID: "south", ToStartDate: dayPtr(9, 1), ToArea: ptr(1)}}, model.ErrInvalid},
		{"invalid instruction", []model.MoveInstruction{{Action: "swap", AllocationID: "a1"}}, model.ErrInvalid},
		{"add without window", []model.MoveInstruction{{Action: model.MoveActionAdd, CropID: "bean", ToFieldID: "south", ToStartDate: dayPtr(7, 1), ToArea: ptr(1)}}, model.ErrInsufficientGrowingWindow},
		{"area over field", []model.MoveInstruction{{Action: model.MoveActionMove, AllocationID: "a1", ToFieldID: "south", ToStartDate: dayPtr(7, 1), ToArea: ptr(200)}}, model.ErrNoFeasibleSolution},
		{"area just over empty field", []model.MoveInstruction{
			{Action: model.MoveActionRemove, AllocationID: "a1"},
			{Action: model.MoveActionRemove, AllocationID: "a2"},
			{Action: model.MoveActionAdd, CropID: "bean", ToFieldID: "north", ToStartDate: dayPtr(9, 1), ToArea: ptr(100.9)},
		}, model.ErrNoFeasibleSolution},
		{"summed area over field", []model.MoveInstruction{{Action: model.MoveActionAdd, CropID: "bean", ToFieldID: "south", ToStartDate: dayPtr(9, 1), ToArea: ptr(50)}}, model.ErrNoFeasibleSolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			_, err := e.adj.Apply(context.Background(), e.prev, tt.moves)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestApply_NilPreviousAndCancel(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	_, err := e.adj.Apply(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, model.ErrInvalid))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.adj.Apply(ctx, e.prev, []model.MoveInstruction{{Action: model.MoveActionRemove, AllocationID: "a1"}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestApply_NoMovesReevaluates(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	out, err := e.adj.Apply(context.Background(), e.prev, nil)
	require.NoError(t, err)
	assert.Zero(t, out.Applied)
	assert.InDelta(t, e.prev.TotalProfit, out.Result.TotalProfit, 1e-9)
	assert.NotEqual(t, e.prev.OptimizationID, out.Result.OptimizationID)
}
