// Package neighbor generates candidate mutations of an allocation solution.
// Each operator returns complete, re-evaluated, feasible solutions; an
// operator that cannot mutate a given allocation simply contributes nothing.
package neighbor

import (
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/objective"
)

// Operator produces neighbors of a solution.
type Operator interface {
	Name() string
	DefaultWeight() float64
	Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation
}

// Context is the read-only environment operators draw from.
type Context struct {
	Catalog *catalog.Catalog
	Eval    *evaluate.Evaluator
	Config  config.OptimizationConfig
	Rand    *rand.Rand // nil disables random choices
	NewID   func() string
}

// NewContext creates a Context with a seeded rng and uuid allocation ids.
func NewContext(cat *catalog.Catalog, eval *evaluate.Evaluator, cfg config.OptimizationConfig) *Context {
	seed := cfg.RandomSeed
	return &Context{
		Catalog: cat,
		Eval:    eval,
		Config:  cfg,
		Rand:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		NewID:   func() string { return uuid.New().String() },
	}
}

func (nc *Context) newID() string {
	if nc.NewID == nil {
		return uuid.New().String()
	}
	return nc.NewID()
}

// placement is a candidate to add together with the id it will carry.
type placement struct {
	cand model.AllocationCandidate
	id   string
}

// commit adds placements to others one by one, re-evaluates every touched
// field and validates the full solution. ok is false when any step fails.
func (nc *Context) commit(others []model.CropAllocation, adds []placement, touched ...string) ([]model.CropAllocation, bool) {
	current := slices.Clone(others)
	for _, p := range adds {
		if !feasibility.FitsCandidate(current, p.cand) {
			return nil, false
		}
		alloc, err := nc.Eval.Allocate(p.cand, current, p.id)
		if err != nil {
			return nil, false
		}
		current = append(current, alloc)
		touched = append(touched, p.cand.Field.ID)
	}
	out, err := nc.Eval.Reevaluate(current, touched...)
	if err != nil {
		return nil, false
	}
	if !feasibility.IsFeasible(out) {
		return nil, false
	}
	return out, true
}

// without returns a copy of solution minus the given indices.
func without(solution []model.CropAllocation, skip ...int) []model.CropAllocation {
	out := make([]model.CropAllocation, 0, len(solution))
	for i, a := range solution {
		if !slices.Contains(skip, i) {
			out = append(out, a)
		}
	}
	return out
}

// bestInContext returns the catalog entry that fits others with the highest
// contextual profit rate.
func (nc *Context) bestInContext(others []model.CropAllocation, entries []catalog.Entry, area func(model.AllocationCandidate) float64) (model.AllocationCandidate, bool) {
	type scored struct {
		cand    model.AllocationCandidate
		metrics evaluate.Metrics
	}
	var fits []scored
	for _, e := range entries {
		c := e.Candidate
		if area != nil {
			c = c.WithArea(area(c))
		}
		if !feasibility.FitsCandidate(others, c) {
			continue
		}
		m, err := nc.Eval.Metrics(c, others)
		if err != nil {
			continue
		}
		fits = append(fits, scored{cand: c, metrics: m})
	}
	i := objective.SelectBest(nc.Eval.Objective, fits, func(obj objective.Objective, s scored) float64 {
		return objective.Rate(obj, s.metrics.Revenue, s.metrics.Cost, s.cand.GrowthDays)
	})
	if i < 0 {
		return model.AllocationCandidate{}, false
	}
	return fits[i].cand, true
}

// Registry maps operation names to operators in a stable order.
type Registry struct {
	ops   map[string]Operator
	order []string
}

// NewRegistry registers ops in the given order. Later duplicates replace
// earlier ones.
func NewRegistry(ops ...Operator) *Registry {
	r := &Registry{ops: make(map[string]Operator, len(ops))}
	for _, op := range ops {
		r.Register(op)
	}
	return r
}

// DefaultRegistry returns all eight operators.
func DefaultRegistry() *Registry {
	return NewRegistry(
		FieldSwap{},
		FieldMove{},
		FieldReplace{},
		FieldRemove{},
		CropInsert{},
		CropChange{},
		PeriodReplace{},
		AreaAdjust{},
	)
}

// Register adds or replaces an operator.
func (r *Registry) Register(op Operator) {
	if _, ok := r.ops[op.Name()]; !ok {
		r.order = append(r.order, op.Name())
	}
	r.ops[op.Name()] = op
}

// Get returns the operator registered under name.
func (r *Registry) Get(name string) (Operator, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns operation names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Operators returns operators in registration order.
func (r *Registry) Operators() []Operator {
	out := make([]Operator, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}
