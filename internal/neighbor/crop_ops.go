package neighbor

import (
	"sort"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/feasibility"
	"github.com/sells-group/cropplan/internal/model"
)

// CropInsert adds an unused catalog candidate that fits the remaining area
// and the fallow-adjusted timeline of its field. At most
// MaxInsertNeighbors insertions are proposed per call.
type CropInsert struct{}

// Name implements Operator.
func (CropInsert) Name() string { return config.OpCropInsert }

// DefaultWeight implements Operator.
func (CropInsert) DefaultWeight() float64 { return defaultWeight(config.OpCropInsert) }

// Generate implements Operator.
func (CropInsert) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	used := make(map[model.CandidateKey]bool, len(solution))
	for _, a := range solution {
		used[a.Key()] = true
	}

	var fits []catalog.Entry
	for _, e := range nc.Catalog.All() {
		if used[e.Candidate.Key()] || !feasibility.FitsCandidate(solution, e.Candidate) {
			continue
		}
		fits = append(fits, e)
	}

	limit := nc.Config.MaxInsertNeighbors
	if limit > 0 && len(fits) > limit {
		if nc.Rand != nil {
			fits = sample(fits, limit, nc.Rand)
		} else {
			sort.SliceStable(fits, func(i, j int) bool { return fits[i].ProfitRate > fits[j].ProfitRate })
			fits = fits[:limit]
		}
	}

	out := make([][]model.CropAllocation, 0, len(fits))
	for _, e := range fits {
		if n, ok := nc.commit(solution, []placement{{cand: e.Candidate, id: nc.newID()}}); ok {
			out = append(out, n)
		}
	}
	return out
}

// CropChange replaces an allocation's crop with another crop on the same
// field, using that crop's candidate whose start date is nearest to the
// original and keeping the original area.
type CropChange struct{}

// Name implements Operator.
func (CropChange) Name() string { return config.OpCropChange }

// DefaultWeight implements Operator.
func (CropChange) DefaultWeight() float64 { return defaultWeight(config.OpCropChange) }

// Generate implements Operator.
func (CropChange) Generate(solution []model.CropAllocation, nc *Context) [][]model.CropAllocation {
	var out [][]model.CropAllocation
	for i, a := range solution {
		others := without(solution, i)
		for _, crop := range nc.Catalog.Crops() {
			if crop.ID == a.Crop.ID {
				continue
			}
			e, ok := nearestStart(nc.Catalog.ForFieldCrop(a.Field.ID, crop.ID), a)
			if !ok {
				continue
			}
			cand := e.Candidate.WithArea(a.AreaUsed)
			if n, ok := nc.commit(others, []placement{{cand: cand, id: nc.newID()}}, a.Field.ID); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// nearestStart returns the entry whose start is closest to a's start. Ties
// keep the first entry, which the catalog orders by profit rate.
func nearestStart(entries []catalog.Entry, a model.CropAllocation) (catalog.Entry, bool) {
	best := -1
	bestGap := 0
	for i, e := range entries {
		gap := model.DaysBetween(a.StartDate, e.Candidate.StartDate)
		if gap < 0 {
			gap = -gap
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return catalog.Entry{}, false
	}
	return entries[best], true
}
