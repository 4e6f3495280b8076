package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/result"
)

func ptr(v float64) *float64 { return &v }

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// testRun builds a run with two allocations on one field and an idle field.
func testRun(t *testing.T) *model.Run {
	t.Helper()
	north, err := model.NewField(model.Field{ID: "north", Area: 1000, DailyFixedCost: 10, FallowPeriodDays: 7})
	require.NoError(t, err)
	south, err := model.NewField(model.Field{ID: "south", Area: 500, DailyFixedCost: 5})
	require.NoError(t, err)
	tomato, err := model.NewCrop(model.Crop{ID: "tomato", Name: "Tomato", AreaPerUnit: 0.5, RevenuePerArea: ptr(20)})
	require.NoError(t, err)
	garlic, err := model.NewCrop(model.Crop{ID: "garlic", Name: "Garlic", AreaPerUnit: 0.1})
	require.NoError(t, err)

	a1, err := model.NewCropAllocation(model.CropAllocation{
		AllocationID: "a1", Field: north, Crop: tomato, AreaUsed: 400,
		StartDate: date("2025-04-01"), CompletionDate: date("2025-07-10"), GrowthDays: 100,
		TotalCost: 1000, ExpectedRevenue: ptr(8800), Profit: ptr(7800),
	})
	require.NoError(t, err)
	a2, err := model.NewCropAllocation(model.CropAllocation{
		AllocationID: "a2", Field: north, Crop: garlic, AreaUsed: 300,
		StartDate: date("2025-08-01"), CompletionDate: date("2025-10-10"), GrowthDays: 70,
		TotalCost: 700, Profit: ptr(-700),
	})
	require.NoError(t, err)

	res, err := result.NewBuilder().Build([]model.CropAllocation{a1, a2}, []*model.Field{north, south}, "greedy+local_search", 2*time.Second)
	require.NoError(t, err)
	return &model.Run{Status: model.RunStatusComplete, Result: res}
}
