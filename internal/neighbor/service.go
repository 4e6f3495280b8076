package neighbor

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sells-group/cropplan/internal/model"
)

// Service runs the registered operators against a solution.
type Service struct {
	registry *Registry
}

// NewService creates a Service. A nil registry uses DefaultRegistry.
func NewService(reg *Registry) *Service {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Service{registry: reg}
}

// Registry returns the operator registry.
func (s *Service) Registry() *Registry { return s.registry }

// Generate returns neighbors of solution. With sampling disabled every
// operator's output is concatenated. With sampling enabled each operator gets
// a quota of MaxNeighborsPerIteration proportional to its weight, operators
// that overproduce are subsampled, and the merged list is resampled if it is
// still over the cap.
func (s *Service) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	if !nc.Config.EnableNeighborSampling {
		var all [][]model.CropAllocation
		for _, op := range s.registry.Operators() {
			all = append(all, op.Generate(solution, nc)...)
		}
		return all
	}

	limit := nc.Config.MaxNeighborsPerIteration
	ops := s.registry.Operators()
	weights := make([]float64, len(ops))
	total := 0.0
	for i, op := range ops {
		weights[i] = nc.Config.Weight(op.Name(), op.DefaultWeight())
		if weights[i] > 0 {
			total += weights[i]
		}
	}
	if total <= 0 {
		return nil
	}

	var all [][]model.CropAllocation
	for i, op := range ops {
		if weights[i] <= 0 {
			continue
		}
		quota := max(1, int(math.Round(float64(limit)*weights[i]/total)))
		produced := op.Generate(solution, nc)
		if len(produced) > quota {
			produced = sample(produced, quota, nc.Rand)
		}
		all = append(all, produced...)
	}
	if len(all) > limit {
		all = sample(all, limit, nc.Rand)
	}
	return all
}

// sample picks n items, preserving their relative order. A nil rng keeps the
// first n.
func sample[T any](items []T, n int, rng *rand.Rand) []T {
	if n >= len(items) {
		return items
	}
	if n <= 0 {
		return nil
	}
	if rng == nil {
		return items[:n]
	}
	idx := rng.Perm(len(items))[:n]
	sort.Ints(idx)
	out := make([]T, n)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
