package catalog

import (
	"context"
	"runtime"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/model"
)

// Builder generates a Catalog from a growth simulator.
type Builder struct {
	sim  GrowthSimulator
	eval *evaluate.Evaluator
	cfg  config.OptimizationConfig
}

// NewBuilder creates a Builder.
func NewBuilder(sim GrowthSimulator, eval *evaluate.Evaluator, cfg config.OptimizationConfig) *Builder {
	return &Builder{sim: sim, eval: eval, cfg: cfg}
}

type unit struct {
	field *model.Field
	crop  *model.Crop
}

type unitResult struct {
	entries   []Entry
	windows   int
	completed int
}

// Build evaluates every field × crop pair. Pairs are independent and read only
// shared immutable inputs, so they fan out across workers when
// EnableParallelCandidateGeneration is set. Results are merged in input order
// after every worker finishes.
func (b *Builder) Build(ctx context.Context, fields []*model.Field, crops []*model.Crop) (*Catalog, error) {
	if len(fields) == 0 {
		return nil, eris.Wrap(model.ErrNoFeasibleSolution, "catalog: no fields")
	}
	if len(crops) == 0 {
		return nil, eris.Wrap(model.ErrNoFeasibleSolution, "catalog: no crops")
	}

	units := make([]unit, 0, len(fields)*len(crops))
	for _, f := range fields {
		for _, c := range crops {
			units = append(units, unit{field: f, crop: c})
		}
	}
	results := make([]unitResult, len(units))

	if b.cfg.EnableParallelCandidateGeneration && len(units) > 1 {
		workers := b.cfg.Workers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, u := range units {
			g.Go(func() error {
				r, err := b.generate(gctx, u)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, u := range units {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "catalog: context cancelled")
			}
			r, err := b.generate(ctx, u)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
	}

	var entries []Entry
	windows, completed := 0, 0
	for _, r := range results {
		entries = append(entries, r.entries...)
		windows += r.windows
		completed += r.completed
	}

	zap.L().Debug("catalog: built",
		zap.Int("pairs", len(units)),
		zap.Int("windows", windows),
		zap.Int("completed_windows", completed),
		zap.Int("candidates", len(entries)),
		zap.Bool("parallel", b.cfg.EnableParallelCandidateGeneration),
	)

	if completed == 0 {
		return nil, eris.Wrapf(model.ErrInsufficientGrowingWindow,
			"catalog: none of %d crops reaches maturity on any of %d fields within the planning window (%d windows simulated)",
			len(crops), len(fields), windows)
	}
	return New(fields, crops, entries), nil
}

func (b *Builder) generate(ctx context.Context, u unit) (unitResult, error) {
	windows, err := b.sim.Windows(ctx, u.field, u.crop)
	if err != nil {
		return unitResult{}, eris.Wrapf(err, "catalog: simulate %s on %s", u.crop.ID, u.field.ID)
	}
	res := unitResult{windows: len(windows)}

	type ranked struct {
		w    GrowthWindow
		rate float64
	}
	var usable []ranked
	for _, w := range windows {
		if !w.Completed() || w.CompletionDate.Before(w.StartDate) {
			continue
		}
		res.completed++
		rate, err := b.eval.ProfitRate(b.candidate(u, w, u.field.Area), nil)
		if err != nil {
			return unitResult{}, err
		}
		usable = append(usable, ranked{w: w, rate: rate})
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].rate > usable[j].rate })
	if top := b.cfg.TopPeriodCandidates; top > 0 && len(usable) > top {
		usable = usable[:top]
	}

	for _, r := range usable {
		for _, level := range b.cfg.AreaLevels {
			c := b.candidate(u, r.w, u.field.Area*level)
			m, err := b.eval.Metrics(c, nil)
			if err != nil {
				return unitResult{}, err
			}
			rate := b.eval.BaseOptimizer.ProfitRate(m.Revenue, m.Cost, c.GrowthDays)
			if !b.passesThresholds(m, rate) {
				continue
			}
			res.entries = append(res.entries, Entry{Candidate: c, ProfitRate: rate})
		}
	}
	sort.SliceStable(res.entries, func(i, j int) bool { return res.entries[i].ProfitRate > res.entries[j].ProfitRate })
	if limit := b.cfg.MaxCandidatesPerFieldCrop; limit > 0 && len(res.entries) > limit {
		res.entries = res.entries[:limit]
	}
	return res, nil
}

// passesThresholds applies the profitability filters. Candidates without a
// known revenue have no meaningful rate and are always kept.
func (b *Builder) passesThresholds(m evaluate.Metrics, rate float64) bool {
	if m.Revenue == nil {
		return true
	}
	if rate < b.cfg.MinProfitRateThreshold {
		return false
	}
	if b.cfg.MinRevenueCostRatio > 0 && m.Cost > 0 && *m.Revenue/m.Cost < b.cfg.MinRevenueCostRatio {
		return false
	}
	return true
}

func (b *Builder) candidate(u unit, w GrowthWindow, area float64) model.AllocationCandidate {
	days := w.GrowthDays
	if days <= 0 {
		days = model.DaysBetween(w.StartDate, w.CompletionDate)
	}
	return model.AllocationCandidate{
		Field:          u.field,
		Crop:           u.crop,
		StartDate:      model.Day(w.StartDate),
		CompletionDate: model.Day(w.CompletionDate),
		GrowthDays:     days,
		AccumulatedGDD: w.AccumulatedGDD,
		AreaUsed:       area,
		YieldFactor:    w.YieldFactor,
	}
}
