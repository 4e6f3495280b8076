package neighbor

import (
	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/model"
)

func defaultWeight(op string) float64 {
	return config.DefaultOperationWeights()[op]
}

// FieldSwap exchanges the fields of two allocations on different fields,
// keeping crop, window and area.
type FieldSwap struct{}

// Name implements Operator.
func (FieldSwap) Name() string { return config.OpFieldSwap }

// DefaultWeight implements Operator.
func (FieldSwap) DefaultWeight() float64 { return defaultWeight(config.OpFieldSwap) }

// Generate implements Operator.
func (FieldSwap) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	var out [][]model.CropAllocation
	for i := range solution {
		for j := i + 1; j < len(solution); j++ {
			a, b := solution[i], solution[j]
			if a.Field.ID == b.Field.ID {
				continue
			}
			ca := a.Candidate().WithField(b.Field)
			cb := b.Candidate().WithField(a.Field)
			n, ok := nc.commit(without(solution, i, j),
				[]placement{{cand: ca, id: a.AllocationID}, {cand: cb, id: b.AllocationID}},
				a.Field.ID, b.Field.ID)
			if ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// FieldMove relocates one allocation to another field, taking the precomputed
// window for the same crop there with the best profit rate.
type FieldMove struct{}

// Name implements Operator.
func (FieldMove) Name() string { return config.OpFieldMove }

// DefaultWeight implements Operator.
func (FieldMove) DefaultWeight() float64 { return defaultWeight(config.OpFieldMove) }

// Generate implements Operator.
func (FieldMove) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	var out [][]model.CropAllocation
	for i, a := range solution {
		others := without(solution, i)
		for _, f := range nc.Catalog.Fields() {
			if f.ID == a.Field.ID {
				continue
			}
			cand, ok := nc.bestInContext(others, nc.Catalog.ForFieldCrop(f.ID, a.Crop.ID), nil)
			if !ok {
				continue
			}
			if n, ok := nc.commit(others, []placement{{cand: cand, id: a.AllocationID}}, a.Field.ID); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// FieldReplace swaps an allocation for the best-fitting candidate of a
// different crop on another field.
type FieldReplace struct{}

// Name implements Operator.
func (FieldReplace) Name() string { return config.OpFieldReplace }

// DefaultWeight implements Operator.
func (FieldReplace) DefaultWeight() float64 { return defaultWeight(config.OpFieldReplace) }

// Generate implements Operator.
func (FieldReplace) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	var out [][]model.CropAllocation
	for i, a := range solution {
		others := without(solution, i)
		for _, f := range nc.Catalog.Fields() {
			if f.ID == a.Field.ID {
				continue
			}
			var entries []catalog.Entry
			for _, e := range nc.Catalog.ForField(f.ID) {
				if e.Candidate.Crop.ID != a.Crop.ID {
					entries = append(entries, e)
				}
			}
			cand, ok := nc.bestInContext(others, entries, nil)
			if !ok {
				continue
			}
			if n, ok := nc.commit(others, []placement{{cand: cand, id: nc.newID()}}, a.Field.ID); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// FieldRemove drops one allocation. It is the escape hatch from
// unprofitable or crowded states.
type FieldRemove struct{}

// Name implements Operator.
func (FieldRemove) Name() string { return config.OpFieldRemove }

// DefaultWeight implements Operator.
func (FieldRemove) DefaultWeight() float64 { return defaultWeight(config.OpFieldRemove) }

// Generate implements Operator.
func (FieldRemove) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	var out [][]model.CropAllocation
	for i, a := range solution {
		if n, ok := nc.commit(without(solution, i), nil, a.Field.ID); ok {
			out = append(out, n)
		}
	}
	return out
}
