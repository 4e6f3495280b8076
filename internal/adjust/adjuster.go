// Package adjust applies manual move instructions to a previous optimization
// result and repairs the timelines they break.
package adjust

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/interval"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/result"
)

// Algorithm is the name recorded on adjusted results.
const Algorithm = "adjust"

// Adjuster applies MoveInstructions.
type Adjuster struct {
	eval    *evaluate.Evaluator
	sim     catalog.GrowthSimulator
	sched   *interval.Scheduler
	results *result.Builder
	fields  []*model.Field
	crops   []*model.Crop
	newID   func() string
}

// New creates an Adjuster. fields and crops resolve the ids named by move
// instructions; sim supplies growth windows for moved and added crops and
// may be nil, in which case moves keep their original growth length and
// adds are rejected.
func New(eval *evaluate.Evaluator, sim catalog.GrowthSimulator, fields []*model.Field, crops []*model.Crop) *Adjuster {
	return &Adjuster{
		eval:    eval,
		sim:     sim,
		sched:   interval.New(eval.Objective),
		results: result.NewBuilder(),
		fields:  fields,
		crops:   crops,
		newID:   func() string { return uuid.New().String() },
	}
}

// Outcome is the adjusted result plus the allocations that had to be dropped
// to restore a conflict-free timeline.
type Outcome struct {
	Result  *model.MultiFieldOptimizationResult
	Dropped []model.CropAllocation
	Applied int
}

// Apply runs moves in order against prev. Instructions naming unknown
// allocations, fields or crops fail with model.ErrInvalid; a field whose
// summed area ends up over capacity fails with model.ErrNoFeasibleSolution.
// Timeline conflicts are resolved per field by keeping the largest,
// cheapest non-overlapping subset.
func (a *Adjuster) Apply(ctx context.Context, prev *model.MultiFieldOptimizationResult, moves []model.MoveInstruction) (*Outcome, error) {
	if prev == nil {
		return nil, eris.Wrap(model.ErrInvalid, "adjust: previous result is required")
	}
	start := time.Now()
	fields := a.fieldOrder(prev)
	allocs := slices.Clone(prev.Allocations())

	for i, raw := range moves {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "adjust: context cancelled")
		}
		m, err := model.NewMoveInstruction(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "adjust: instruction %d", i)
		}
		allocs, err = a.applyOne(ctx, allocs, fields, m)
		if err != nil {
			return nil, eris.Wrapf(err, "adjust: instruction %d (%s)", i, m.Action)
		}
	}

	if err := checkArea(allocs, fields); err != nil {
		return nil, err
	}

	kept, dropped := a.resolveConflicts(allocs, fields)
	final, err := a.eval.Reevaluate(kept)
	if err != nil {
		return nil, eris.Wrap(err, "adjust: re-evaluate")
	}
	if err := feasibility.Check(final); err != nil {
		return nil, eris.Wrap(err, "adjust: adjusted solution")
	}

	res, err := a.results.Build(final, fields, Algorithm, time.Since(start))
	if err != nil {
		return nil, eris.Wrap(err, "adjust: build result")
	}

	zap.L().Info("adjustment applied",
		zap.Int("instructions", len(moves)),
		zap.Int("allocations", len(final)),
		zap.Int("dropped", len(dropped)),
		zap.Float64("profit", res.TotalProfit),
	)
	return &Outcome{Result: res, Dropped: dropped, Applied: len(moves)}, nil
}

func (a *Adjuster) applyOne(ctx context.Context, allocs []model.CropAllocation, fields []*model.Field, m model.MoveInstruction) ([]model.CropAllocation, error) {
	switch m.Action {
	case model.MoveActionRemove:
		i := indexOf(allocs, m.AllocationID)
		if i < 0 {
			return nil, eris.Wrapf(model.ErrInvalid, "unknown allocation %s", m.AllocationID)
		}
		return slices.Delete(allocs, i, i+1), nil

	case model.MoveActionMove:
		i := indexOf(allocs, m.AllocationID)
		if i < 0 {
			return nil, eris.Wrapf(model.ErrInvalid, "unknown allocation %s", m.AllocationID)
		}
		orig := allocs[i]
		field := findField(fields, m.ToFieldID)
		if field == nil {
			return nil, eris.Wrapf(model.ErrInvalid, "unknown field %s", m.ToFieldID)
		}
		area := orig.AreaUsed
		if m.ToArea != nil {
			area = *m.ToArea
		}
		cand, err := a.window(ctx, field, orig.Crop, *m.ToStartDate, area)
		if err != nil {
			return nil, err
		}
		if !cand.HasCompletion() {
			cand = orig.Candidate().WithField(field).WithArea(area)
			cand.StartDate = *m.ToStartDate
			cand.CompletionDate = model.AddDays(*m.ToStartDate, model.DaysBetween(orig.StartDate, orig.CompletionDate))
		}
		alloc, err := a.place(cand, orig.AllocationID)
		if err != nil {
			return nil, err
		}
		allocs[i] = alloc
		return allocs, nil

	case model.MoveActionAdd:
		field := findField(fields, m.ToFieldID)
		if field == nil {
			return nil, eris.Wrapf(model.ErrInvalid, "unknown field %s", m.ToFieldID)
		}
		crop := findCrop(a.crops, m.CropID)
		if crop == nil {
			return nil, eris.Wrapf(model.ErrInvalid, "unknown crop %s", m.CropID)
		}
		cand, err := a.window(ctx, field, crop, *m.ToStartDate, *m.ToArea)
		if err != nil {
			return nil, err
		}
		if !cand.HasCompletion() {
			return nil, eris.Wrapf(model.ErrInsufficientGrowingWindow, "%s on %s from %s does not complete",
				crop.ID, field.ID, m.ToStartDate.Format(time.DateOnly))
		}
		alloc, err := a.place(cand, a.newID())
		if err != nil {
			return nil, err
		}
		return append(allocs, alloc), nil
	}
	return nil, eris.Wrapf(model.ErrInvalid, "unknown action %q", m.Action)
}

// window looks up the simulated window for crop on field starting on start.
// The returned candidate has no completion date when none exists.
func (a *Adjuster) window(ctx context.Context, field *model.Field, crop *model.Crop, start time.Time, area float64) (model.AllocationCandidate, error) {
	cand := model.AllocationCandidate{Field: field, Crop: crop, StartDate: model.Day(start), AreaUsed: area}
	if a.sim == nil {
		return cand, nil
	}
	windows, err := a.sim.Windows(ctx, field, crop)
	if err != nil {
		return cand, eris.Wrapf(err, "growth windows for %s on %s", crop.ID, field.ID)
	}
	for _, w := range windows {
		if !w.Completed() || !model.Day(w.StartDate).Equal(cand.StartDate) {
			continue
		}
		cand.CompletionDate = model.Day(w.CompletionDate)
		cand.GrowthDays = w.GrowthDays
		if cand.GrowthDays <= 0 {
			cand.GrowthDays = model.DaysBetween(cand.StartDate, cand.CompletionDate)
		}
		cand.AccumulatedGDD = w.AccumulatedGDD
		cand.YieldFactor = w.YieldFactor
		break
	}
	return cand, nil
}

// place evaluates cand standalone. Final context-dependent metrics come from
// the re-evaluation after conflicts are resolved.
func (a *Adjuster) place(cand model.AllocationCandidate, id string) (model.CropAllocation, error) {
	if cand.AreaUsed > cand.Field.Area {
		return model.CropAllocation{}, eris.Wrapf(model.ErrNoFeasibleSolution,
			"area %.2f exceeds field %s area %.2f", cand.AreaUsed, cand.Field.ID, cand.Field.Area)
	}
	return a.eval.Allocate(cand, nil, id)
}

// resolveConflicts keeps, per field, the max-count min-cost subset of
// allocations whose fallow-extended windows do not overlap.
func (a *Adjuster) resolveConflicts(allocs []model.CropAllocation, fields []*model.Field) (kept, dropped []model.CropAllocation) {
	byField := make(map[string][]model.CropAllocation)
	for _, al := range allocs {
		byField[al.Field.ID] = append(byField[al.Field.ID], al)
	}
	for _, f := range fields {
		group := byField[f.ID]
		if feasibility.TimeFeasible(group) {
			kept = append(kept, group...)
			continue
		}
		options := make([]model.OptimizationIntermediateResult, 0, len(group))
		for _, al := range group {
			end := al.OccupiedUntil()
			cost := al.TotalCost
			options = append(options, model.OptimizationIntermediateResult{
				Label:          al.AllocationID,
				StartDate:      al.StartDate,
				CompletionDate: &end,
				GrowthDays:     al.GrowthDays,
				AccumulatedGDD: al.AccumulatedGDD,
				TotalCost:      &cost,
				Revenue:        al.ExpectedRevenue,
			})
		}
		sel := a.sched.Schedule(options)
		chosen := make(map[string]bool, sel.Count())
		for _, r := range sel.Results {
			chosen[r.Label] = true
		}
		for _, al := range group {
			if chosen[al.AllocationID] {
				kept = append(kept, al)
			} else {
				dropped = append(dropped, al)
			}
		}
		zap.L().Debug("resolved field conflicts",
			zap.String("field", f.ID),
			zap.Int("kept", sel.Count()),
			zap.Int("dropped", len(group)-sel.Count()),
		)
	}
	return kept, dropped
}

// fieldOrder lists the previous result's fields first, then any extra
// fields the adjuster knows about.
func (a *Adjuster) fieldOrder(prev *model.MultiFieldOptimizationResult) []*model.Field {
	out := prev.Fields()
	for _, f := range a.fields {
		if findField(out, f.ID) == nil {
			out = append(out, f)
		}
	}
	return out
}

func checkArea(allocs []model.CropAllocation, fields []*model.Field) error {
	used := make(map[string]float64)
	for _, al := range allocs {
		used[al.Field.ID] += al.AreaUsed
	}
	for _, f := range fields {
		if used[f.ID] > f.Area*(1+model.AreaTolerance) {
			return eris.Wrapf(model.ErrNoFeasibleSolution,
				"adjust: field %s: area used %.2f exceeds capacity %.2f", f.ID, used[f.ID], f.Area)
		}
	}
	return nil
}

func indexOf(allocs []model.CropAllocation, id string) int {
	return slices.IndexFunc(allocs, func(a model.CropAllocation) bool { return a.AllocationID == id })
}

func findField(fields []*model.Field, id string) *model.Field {
	for _, f := range fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func findCrop(crops []*model.Crop, id string) *model.Crop {
	for _, c := range crops {
		if c.ID == id {
			return c
		}
	}
	return nil
}
