// Package interval selects a non-overlapping subset of period options for a
// single field by dynamic programming.
package interval

import (
	"sort"

	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/objective"
)

// Selection is the scheduler's answer.
type Selection struct {
	Results   []model.OptimizationIntermediateResult
	TotalCost float64
}

// Count returns the number of selected options.
func (s Selection) Count() int { return len(s.Results) }

// Scheduler picks the maximum number of pairwise non-overlapping options,
// breaking ties by lower total cost.
type Scheduler struct {
	objective.BaseOptimizer
}

// New creates a Scheduler. A nil objective uses the profit objective.
func New(obj objective.Objective) *Scheduler {
	return &Scheduler{BaseOptimizer: objective.NewBaseOptimizer(obj)}
}

// state is one dp cell: the chosen indices into the sorted slice.
type state struct {
	picks []int
	cost  float64
}

// Schedule runs the DP over the options that have both a completion date
// and a cost. Options end-to-start adjacent (completion == next start) do
// not overlap. The input slice is not modified.
func (s *Scheduler) Schedule(options []model.OptimizationIntermediateResult) Selection {
	var rs []model.OptimizationIntermediateResult
	for _, o := range options {
		if o.Schedulable() {
			rs = append(rs, o)
		}
	}
	if len(rs) == 0 {
		return Selection{}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].CompletionDate.Before(*rs[j].CompletionDate)
	})

	dp := make([]state, len(rs)+1)
	for i, r := range rs {
		prev := lastNonOverlap(rs, i)
		base := dp[prev+1]
		include := state{
			picks: append(append(make([]int, 0, len(base.picks)+1), base.picks...), i),
			cost:  base.cost + *r.TotalCost,
		}
		exclude := dp[i]
		if s.better(include, exclude) {
			dp[i+1] = include
		} else {
			dp[i+1] = exclude
		}
	}

	best := dp[len(rs)]
	sel := Selection{TotalCost: best.cost}
	for _, i := range best.picks {
		sel.Results = append(sel.Results, rs[i])
	}
	return sel
}

// lastNonOverlap returns the largest j < i whose completion is on or before
// rs[i]'s start, or -1.
func lastNonOverlap(rs []model.OptimizationIntermediateResult, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !rs[j].CompletionDate.After(rs[i].StartDate) {
			return j
		}
	}
	return -1
}

// better reports whether a strictly beats b: more options, then a higher
// objective value for an unknown-revenue cost, i.e. the lower cost.
func (s *Scheduler) better(a, b state) bool {
	if len(a.picks) != len(b.picks) {
		return len(a.picks) > len(b.picks)
	}
	return s.Objective.Profit(nil, a.cost) > s.Objective.Profit(nil, b.cost)
}
