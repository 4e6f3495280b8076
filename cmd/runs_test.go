package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/cropplan/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.RunSummary{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Status:      model.RunStatusComplete,
			Algorithm:   "greedy+local_search",
			TotalProfit: 1234567.891,
			CreatedAt:   now,
		},
		{
			ID:          "def12345-6789-0000-0000-000000000000",
			Status:      model.RunStatusAdjusted,
			Algorithm:   "adjust",
			TotalProfit: -50,
			CreatedAt:   now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "PROFIT")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "1,234,567.89")
	assert.Contains(t, output, "adjusted")
	assert.Contains(t, output, "-50.00")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestRunsStats(t *testing.T) {
	runs := []model.RunSummary{
		{ID: "1", Status: model.RunStatusComplete, TotalProfit: 100},
		{ID: "2", Status: model.RunStatusAdjusted, TotalProfit: 300},
		{ID: "3", Status: model.RunStatusFailed, TotalProfit: 9999},
	}

	stats := computeRunStats(runs)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Complete)
	assert.Equal(t, 1, stats.Adjusted)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 200.0, stats.AvgProfit, 1e-9)
	assert.Equal(t, "2", stats.BestID)

	var buf bytes.Buffer
	formatRunStats(&buf, stats)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Adjusted:")
	assert.Contains(t, output, "Avg profit:")
	assert.Contains(t, output, "200.00")
	assert.Contains(t, output, "300.00 (2)")
}

func TestRunsStats_Empty(t *testing.T) {
	stats := computeRunStats(nil)
	assert.Zero(t, stats.Total)

	var buf bytes.Buffer
	formatRunStats(&buf, stats)
	assert.NotContains(t, buf.String(), "Best profit:")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
