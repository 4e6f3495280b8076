// Package model defines the value records shared by the allocation engine:
// fields, crops, candidates, allocations, schedules, interaction rules and
// adjustment instructions.
package model

import "github.com/rotisserie/eris"

// ErrInvalid is wrapped by every constructor validation failure.
var ErrInvalid = eris.New("invalid value")

// ErrInsufficientGrowingWindow is returned when no crop can complete its
// growth inside the planning window.
var ErrInsufficientGrowingWindow = eris.New("insufficient growing window")

// ErrNoFeasibleSolution is returned when no candidate satisfies the area and
// time constraints.
var ErrNoFeasibleSolution = eris.New("no feasible solution")

// ErrMissingCompletionDate is returned when metrics are requested for a
// candidate whose growth never completed.
var ErrMissingCompletionDate = eris.New("candidate has no completion date")

func invalidf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalid, format, args...)
}
