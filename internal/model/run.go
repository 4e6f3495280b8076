package model

import "time"

// RunStatus represents the lifecycle state of a persisted optimization run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusAdjusted RunStatus = "adjusted"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted optimization result with its bookkeeping.
type Run struct {
	ID          string                        `json:"id"`
	Status      RunStatus                     `json:"status"`
	Algorithm   string                        `json:"algorithm"`
	TotalProfit float64                       `json:"total_profit"`
	Result      *MultiFieldOptimizationResult `json:"result,omitempty"`
	ParentID    string                        `json:"parent_id,omitempty"` // run an adjustment was derived from
	CreatedAt   time.Time                     `json:"created_at"`
}

// RunSummary is a listing row without the full result payload.
type RunSummary struct {
	ID          string    `json:"id"`
	Status      RunStatus `json:"status"`
	Algorithm   string    `json:"algorithm"`
	TotalProfit float64   `json:"total_profit"`
	CreatedAt   time.Time `json:"created_at"`
}
