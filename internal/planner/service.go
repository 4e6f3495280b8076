// Package planner ties loaded plans to the optimizer, the adjuster and the
// run store. The CLI and the HTTP API both go through it.
package planner

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/adjust"
	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/evaluate"
	"github.com/sells-group/cropplan/internal/interval"
	"github.com/sells-group/cropplan/internal/loader"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/objective"
	"github.com/sells-group/cropplan/internal/optimizer"
	"github.com/sells-group/cropplan/internal/store"
)

// ErrNoStore is returned by operations that need a store when none is set.
var ErrNoStore = eris.New("planner: no run store configured")

// Service runs optimizations and adjustments and optionally persists them.
type Service struct {
	store store.Store
	opt   config.OptimizationConfig
}

// New creates a Service. st may be nil, in which case nothing is saved and
// adjustments cannot load previous runs.
func New(st store.Store, opt config.OptimizationConfig) *Service {
	return &Service{store: st, opt: opt}
}

// Overrides adjusts the configured optimization parameters for one request.
type Overrides struct {
	Preset string  // replaces every parameter with the named preset
	Seed   *uint64 // replaces the random seed
}

// Config returns the optimization config with o applied.
func (s *Service) Config(o Overrides) (config.OptimizationConfig, error) {
	cfg := s.opt
	if o.Preset != "" {
		p, err := config.Preset(o.Preset)
		if err != nil {
			return config.OptimizationConfig{}, err
		}
		cfg = p
	}
	if o.Seed != nil {
		cfg.RandomSeed = *o.Seed
	}
	return cfg, cfg.Validate()
}

// Optimize runs the full pipeline over plan. When save is set the result is
// stored as a complete run and returned alongside the outcome. A run that
// fails in the optimizer is stored with failed status and no result.
func (s *Service) Optimize(ctx context.Context, plan *loader.Plan, o Overrides, save bool) (*optimizer.Outcome, *model.Run, error) {
	if plan == nil {
		return nil, nil, eris.Wrap(model.ErrInvalid, "planner: plan is required")
	}
	cfg, err := s.Config(o)
	if err != nil {
		return nil, nil, err
	}
	out, err := optimizer.New(plan.Simulator(), plan.RuleService(), cfg).Run(ctx, plan.Fields, plan.Crops)
	if err != nil {
		if save && s.store != nil {
			s.recordFailure(ctx, err)
		}
		return nil, nil, err
	}
	if !save {
		return out, nil, nil
	}
	run := &model.Run{Status: model.RunStatusComplete, Result: out.Result}
	if err := s.save(ctx, run); err != nil {
		return nil, nil, err
	}
	return out, run, nil
}

// Adjust loads the run parentID, applies moves using plan for field, crop,
// rule and growth-window lookups, and stores the outcome as an adjusted run
// when save is set.
func (s *Service) Adjust(ctx context.Context, parentID string, plan *loader.Plan, moves []model.MoveInstruction, save bool) (*adjust.Outcome, *model.Run, error) {
	if s.store == nil {
		return nil, nil, ErrNoStore
	}
	prev, err := s.store.GetRun(ctx, parentID)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "planner: load run %s", parentID)
	}
	out, err := s.AdjustResult(ctx, prev.Result, plan, moves)
	if err != nil {
		return nil, nil, err
	}
	if !save {
		return out, nil, nil
	}
	run := &model.Run{Status: model.RunStatusAdjusted, Result: out.Result, ParentID: parentID}
	if err := s.save(ctx, run); err != nil {
		return nil, nil, err
	}
	return out, run, nil
}

// AdjustResult applies moves to an in-memory result.
func (s *Service) AdjustResult(ctx context.Context, prev *model.MultiFieldOptimizationResult, plan *loader.Plan, moves []model.MoveInstruction) (*adjust.Outcome, error) {
	if plan == nil {
		return nil, eris.Wrap(model.ErrInvalid, "planner: plan is required")
	}
	eval := evaluate.NewEvaluator(plan.RuleService(), objective.Default())
	return adjust.New(eval, plan.Simulator(), plan.Fields, plan.Crops).Apply(ctx, prev, moves)
}

// Schedule picks the best non-overlapping period options for one field.
func (s *Service) Schedule(periods []model.OptimizationIntermediateResult) interval.Selection {
	return interval.New(objective.Default()).Schedule(periods)
}

func (s *Service) save(ctx context.Context, run *model.Run) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return eris.Wrap(err, "planner: save run")
	}
	zap.L().Info("run saved",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Float64("profit", run.TotalProfit),
	)
	return nil
}

// recordFailure stores a failed run. It outlives ctx cancellation and only
// logs when the store rejects it.
func (s *Service) recordFailure(ctx context.Context, cause error) {
	run := &model.Run{Status: model.RunStatusFailed, Algorithm: optimizer.Algorithm}
	if err := s.save(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Warn("record failed run", zap.Error(err))
		return
	}
	zap.L().Warn("optimization failed", zap.String("run_id", run.ID), zap.Error(cause))
}
