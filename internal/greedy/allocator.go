// Package greedy builds the initial feasible allocation the local search
// starts from.
package greedy

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/objective"
)

// Allocator selects candidates in decreasing profit-rate order, skipping any
// that would break the time or area constraints.
type Allocator struct {
	objective.BaseOptimizer
	eval  *evaluate.Evaluator
	newID func() string
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithIDFunc overrides allocation id generation.
func WithIDFunc(fn func() string) Option {
	return func(a *Allocator) { a.newID = fn }
}

// New creates an Allocator sharing the evaluator's objective.
func New(eval *evaluate.Evaluator, opts ...Option) *Allocator {
	a := &Allocator{
		BaseOptimizer: eval.BaseOptimizer,
		eval:          eval,
		newID:         func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Allocate returns the greedy solution. It fails with
// model.ErrNoFeasibleSolution when nothing can be placed.
func (a *Allocator) Allocate(ctx context.Context, cat *catalog.Catalog) ([]model.CropAllocation, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, eris.Wrap(model.ErrNoFeasibleSolution,
			"greedy: candidate catalog is empty; the planning window may be too short, "+
				"the profitability thresholds too strict, or growth data missing")
	}

	entries := make([]catalog.Entry, len(cat.All()))
	copy(entries, cat.All())
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ProfitRate > entries[j].ProfitRate })

	var selected []model.CropAllocation
	skipped := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "greedy: context cancelled")
		}
		c := e.Candidate
		if !feasibility.FitsCandidate(selected, c) {
			skipped++
			continue
		}
		alloc, err := a.eval.Allocate(c, selected, a.newID())
		if err != nil {
			return nil, eris.Wrap(err, "greedy: evaluate candidate")
		}
		next, err := a.eval.Reevaluate(append(selected, alloc), c.Field.ID)
		if err != nil {
			return nil, eris.Wrap(err, "greedy: reevaluate field")
		}
		selected = next
	}

	if len(selected) == 0 {
		return nil, eris.Wrapf(model.ErrNoFeasibleSolution,
			"greedy: all %d candidates violate area or time constraints; fields may be too small "+
				"or fallow periods too long for the planning window", len(entries))
	}

	zap.L().Debug("greedy: initial solution",
		zap.Int("candidates", len(entries)),
		zap.Int("selected", len(selected)),
		zap.Int("skipped", skipped),
		zap.Float64("objective", a.SolutionValue(selected)),
	)
	return selected, nil
}
