package model

import (
	"math"
	"time"
)

// MoveAction is the kind of manual adjustment requested.
type MoveAction string

const (
	MoveActionMove   MoveAction = "move"
	MoveActionRemove MoveAction = "remove"
	MoveActionAdd    MoveAction = "add"
)

// MoveInstruction is a user adjustment request applied to a previous result.
type MoveInstruction struct {
	Action       MoveAction `json:"action" yaml:"action"`
	AllocationID string     `json:"allocation_id,omitempty" yaml:"allocation_id,omitempty"`
	ToFieldID    string     `json:"to_field_id,omitempty" yaml:"to_field_id,omitempty"`
	ToStartDate  *time.Time `json:"to_start_date,omitempty" yaml:"to_start_date,omitempty"`
	ToArea       *float64   `json:"to_area,omitempty" yaml:"to_area,omitempty"`
	CropID       string     `json:"crop_id,omitempty" yaml:"crop_id,omitempty"`
}

// NewMoveInstruction validates the fields each action requires.
func NewMoveInstruction(m MoveInstruction) (MoveInstruction, error) {
	if m.ToArea != nil && (*m.ToArea <= 0 || math.IsNaN(*m.ToArea)) {
		return MoveInstruction{}, invalidf("move: to_area must be positive, got %v", *m.ToArea)
	}
	switch m.Action {
	case MoveActionMove:
		if m.AllocationID == "" {
			return MoveInstruction{}, invalidf("move: allocation_id is required")
		}
		if m.ToFieldID == "" || m.ToStartDate == nil {
			return MoveInstruction{}, invalidf("move %s: to_field_id and to_start_date are required", m.AllocationID)
		}
	case MoveActionRemove:
		if m.AllocationID == "" {
			return MoveInstruction{}, invalidf("remove: allocation_id is required")
		}
	case MoveActionAdd:
		m.AllocationID = ""
		if m.CropID == "" {
			return MoveInstruction{}, invalidf("add: crop_id is required")
		}
		if m.ToFieldID == "" || m.ToStartDate == nil || m.ToArea == nil {
			return MoveInstruction{}, invalidf("add %s: to_field_id, to_start_date and to_area are required", m.CropID)
		}
	default:
		return MoveInstruction{}, invalidf("move: unknown action %q", m.Action)
	}
	if m.ToStartDate != nil {
		d := Day(*m.ToStartDate)
		m.ToStartDate = &d
	}
	return m, nil
}
