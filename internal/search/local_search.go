// Package search improves an allocation solution by best-improvement local
// search over the neighbor operators.
package search

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/neighbor"
	"github.com/sells-group/cropplan/internal/objective"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopMaxIterations StopReason = "max_iterations"
	StopNoImprovement StopReason = "no_improvement"
	StopAdaptive      StopReason = "adaptive_early_stop"
	StopNoNeighbors   StopReason = "no_feasible_neighbors"
	StopTimeLimit     StopReason = "time_limit"
	StopContextCancel StopReason = "context_cancelled"
)

// Stats summarizes a local search run.
type Stats struct {
	Iterations    int
	Accepted      int
	NeighborsSeen int
	Infeasible    int
	InitialValue  float64
	FinalValue    float64
	StopReason    StopReason
	History       []float64 // objective value after each iteration
	Elapsed       time.Duration
}

// LocalSearch is a single-threaded improvement loop: exactly one mutable
// current solution exists, and acceptance is deterministic best-improvement
// over whichever neighbors were generated.
type LocalSearch struct {
	objective.BaseOptimizer
	gen *neighbor.Service
	cfg config.OptimizationConfig
	now func() time.Time
}

// New creates a LocalSearch.
func New(obj objective.Objective, gen *neighbor.Service, cfg config.OptimizationConfig) *LocalSearch {
	return &LocalSearch{
		BaseOptimizer: objective.NewBaseOptimizer(obj),
		gen:           gen,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Optimize improves initial until a stop condition fires. When ctx is
// cancelled it returns the solution reached so far together with the
// wrapped context error.
func (ls *LocalSearch) Optimize(ctx context.Context, initial []model.CropAllocation, nc *neighbor.Context) ([]model.CropAllocation, Stats, error) {
	start := ls.now()
	current := initial
	currentVal := ls.SolutionValue(current)
	stats := Stats{InitialValue: currentVal, FinalValue: currentVal}

	log := zap.L().With(zap.String("component", "local_search"))

	var recent []float64
	noImprovement := 0
	deadline := time.Time{}
	if d := ls.cfg.MaxDuration(); d > 0 {
		deadline = start.Add(d)
	}

	finish := func(reason StopReason) ([]model.CropAllocation, Stats) {
		stats.StopReason = reason
		stats.FinalValue = currentVal
		stats.Elapsed = ls.now().Sub(start)
		log.Debug("local search finished",
			zap.String("reason", string(reason)),
			zap.Int("iterations", stats.Iterations),
			zap.Int("accepted", stats.Accepted),
			zap.Float64("initial", stats.InitialValue),
			zap.Float64("final", stats.FinalValue),
		)
		return current, stats
	}

	for {
		if stats.Iterations >= ls.cfg.MaxLocalSearchIterations {
			sol, st := finish(StopMaxIterations)
			return sol, st, nil
		}
		if err := ctx.Err(); err != nil {
			sol, st := finish(StopContextCancel)
			return sol, st, eris.Wrap(err, "search: context cancelled")
		}
		if !deadline.IsZero() && !ls.now().Before(deadline) {
			sol, st := finish(StopTimeLimit)
			return sol, st, nil
		}

		stats.Iterations++
		neighbors := ls.gen.Generate(current, nc)
		stats.NeighborsSeen += len(neighbors)

		var feasible [][]model.CropAllocation
		for _, n := range neighbors {
			if feasibility.IsFeasible(n) {
				feasible = append(feasible, n)
			} else {
				stats.Infeasible++
			}
		}
		if len(feasible) == 0 {
			stats.History = append(stats.History, currentVal)
			sol, st := finish(StopNoNeighbors)
			return sol, st, nil
		}

		best := ls.SelectBestSolution(feasible)
		bestVal := ls.SolutionValue(feasible[best])

		gain := 0.0
		if bestVal >= currentVal {
			gain = relativeGain(currentVal, bestVal)
			current, currentVal = feasible[best], bestVal
			stats.Accepted++
		}
		stats.History = append(stats.History, currentVal)

		if gain > ls.cfg.ImprovementThresholdRatio {
			noImprovement = 0
		} else {
			noImprovement++
		}
		if noImprovement >= ls.cfg.MaxNoImprovement {
			sol, st := finish(StopNoImprovement)
			return sol, st, nil
		}

		if ls.cfg.EnableAdaptiveEarlyStopping {
			recent = append(recent, gain)
			if len(recent) > ls.cfg.AdaptiveWindow {
				recent = recent[1:]
			}
			if len(recent) == ls.cfg.AdaptiveWindow && mean(recent) < ls.cfg.ImprovementThresholdRatio {
				sol, st := finish(StopAdaptive)
				return sol, st, nil
			}
		}
	}
}

// relativeGain is (to - from) / max(|from|, 1).
func relativeGain(from, to float64) float64 {
	return (to - from) / math.Max(math.Abs(from), 1)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
