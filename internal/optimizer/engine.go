// Package optimizer runs the full multi-field pipeline: candidate catalog,
// greedy construction, local search and result assembly.
package optimizer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/greedy"
	"github.com/sells-group/cropplan/internal/interaction"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/neighbor"
	"github.com/sells-group/cropplan/internal/objective"
	"github.com/sells-group/cropplan/internal/result"
	"github.com/sells-group/cropplan/internal/search"
)

// Algorithm is the name recorded on results produced by the engine.
const Algorithm = "greedy+local_search"

// Engine wires the optimization phases together. It is safe to reuse across
// runs; each run owns its own rng and catalog.
type Engine struct {
	sim      catalog.GrowthSimulator
	eval     *evaluate.Evaluator
	cfg      config.OptimizationConfig
	registry *neighbor.Registry
	results  *result.Builder
}

// Option configures an Engine.
type Option func(*Engine)

// WithObjective replaces the profit objective.
func WithObjective(obj objective.Objective) Option {
	return func(e *Engine) { e.eval = evaluate.NewEvaluator(e.eval.Rules(), obj) }
}

// WithRegistry restricts or replaces the neighbor operators.
func WithRegistry(reg *neighbor.Registry) Option {
	return func(e *Engine) { e.registry = reg }
}

// New creates an Engine.
func New(sim catalog.GrowthSimulator, rules *interaction.Service, cfg config.OptimizationConfig, opts ...Option) *Engine {
	e := &Engine{
		sim:      sim,
		eval:     evaluate.NewEvaluator(rules, objective.Default()),
		cfg:      cfg,
		registry: neighbor.DefaultRegistry(),
		results:  result.NewBuilder(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluator returns the engine's candidate evaluator.
func (e *Engine) Evaluator() *evaluate.Evaluator { return e.eval }

// Outcome is a result plus the bookkeeping of how it was reached.
type Outcome struct {
	Result       *model.MultiFieldOptimizationResult
	Search       search.Stats
	Candidates   int
	GreedyProfit float64
	CatalogTime  time.Duration
	GreedyTime   time.Duration
	SearchTime   time.Duration
}

// Optimize runs the pipeline and returns only the result.
func (e *Engine) Optimize(ctx context.Context, fields []*model.Field, crops []*model.Crop) (*model.MultiFieldOptimizationResult, error) {
	out, err := e.Run(ctx, fields, crops)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Run executes catalog → greedy → local search → result.
func (e *Engine) Run(ctx context.Context, fields []*model.Field, crops []*model.Crop) (*Outcome, error) {
	if len(fields) == 0 || len(crops) == 0 {
		return nil, eris.Wrap(model.ErrInvalid, "optimizer: at least one field and one crop are required")
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "optimizer: invalid configuration")
	}

	log := zap.L().With(zap.String("component", "optimizer"))
	start := time.Now()
	out := &Outcome{}

	t := time.Now()
	cat, err := catalog.NewBuilder(e.sim, e.eval, e.cfg).Build(ctx, fields, crops)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: build candidate catalog")
	}
	out.Candidates = cat.Len()
	out.CatalogTime = time.Since(t)
	log.Info("candidate catalog built",
		zap.Int("fields", len(fields)),
		zap.Int("crops", len(crops)),
		zap.Int("candidates", cat.Len()),
		zap.Duration("elapsed", out.CatalogTime),
	)

	nc := neighbor.NewContext(cat, e.eval, e.cfg)

	t = time.Now()
	initial, err := greedy.New(e.eval, greedy.WithIDFunc(nc.NewID)).Allocate(ctx, cat)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: greedy allocation")
	}
	out.GreedyTime = time.Since(t)
	out.GreedyProfit = e.eval.SolutionValue(initial)
	log.Info("greedy allocation complete",
		zap.Int("allocations", len(initial)),
		zap.Float64("profit", out.GreedyProfit),
		zap.Duration("elapsed", out.GreedyTime),
	)

	t = time.Now()
	ls := search.New(e.eval.Objective, neighbor.NewService(e.registry), e.cfg)
	final, stats, err := ls.Optimize(ctx, initial, nc)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: local search")
	}
	out.Search = stats
	out.SearchTime = time.Since(t)
	log.Info("local search complete",
		zap.Int("iterations", stats.Iterations),
		zap.Int("accepted", stats.Accepted),
		zap.String("stop_reason", string(stats.StopReason)),
		zap.Float64("profit", stats.FinalValue),
		zap.Duration("elapsed", out.SearchTime),
	)

	if err := feasibility.Check(final); err != nil {
		return nil, eris.Wrap(err, "optimizer: final solution")
	}

	res, err := e.results.Build(final, fields, Algorithm, time.Since(start))
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: build result")
	}
	out.Result = res
	return out, nil
}
