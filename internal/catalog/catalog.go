// Package catalog precomputes the allocation candidates the optimizer
// searches over: one entry per field × crop × growth window × area level.
package catalog

import (
	"context"
	"time"

	"github.com/sells-group/cropplan/internal/model"
)

// GrowthWindow is one simulated growing period for a crop on a field.
type GrowthWindow struct {
	StartDate      time.Time
	CompletionDate time.Time // zero when the crop never reached maturity
	GrowthDays     int
	AccumulatedGDD float64
	YieldFactor    float64
}

// Completed reports whether the crop matured inside the window.
func (w GrowthWindow) Completed() bool {
	return !w.CompletionDate.IsZero()
}

// GrowthSimulator produces candidate growth windows for a crop on a field,
// typically from a weather series and the crop's thermal profile.
// Implementations must be safe for concurrent use.
type GrowthSimulator interface {
	Windows(ctx context.Context, field *model.Field, crop *model.Crop) ([]GrowthWindow, error)
}

type fieldCrop struct {
	fieldID string
	cropID  string
}

// Catalog is an immutable, indexed set of candidates.
type Catalog struct {
	fields     []*model.Field
	crops      []*model.Crop
	all        []Entry
	byField    map[string][]Entry
	byFieldCrp map[fieldCrop][]Entry
}

// Entry is a candidate with its standalone profit rate, used for ranking.
type Entry struct {
	Candidate  model.AllocationCandidate
	ProfitRate float64
}

// New indexes entries. Entry order is preserved in every lookup.
func New(fields []*model.Field, crops []*model.Crop, entries []Entry) *Catalog {
	c := &Catalog{
		fields:     fields,
		crops:      crops,
		all:        entries,
		byField:    make(map[string][]Entry),
		byFieldCrp: make(map[fieldCrop][]Entry),
	}
	for _, e := range entries {
		fc := fieldCrop{e.Candidate.Field.ID, e.Candidate.Crop.ID}
		c.byField[fc.fieldID] = append(c.byField[fc.fieldID], e)
		c.byFieldCrp[fc] = append(c.byFieldCrp[fc], e)
	}
	return c
}

// All returns every entry.
func (c *Catalog) All() []Entry { return c.all }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.all) }

// ForField returns the entries on one field.
func (c *Catalog) ForField(fieldID string) []Entry { return c.byField[fieldID] }

// ForFieldCrop returns the entries for one crop on one field.
func (c *Catalog) ForFieldCrop(fieldID, cropID string) []Entry {
	return c.byFieldCrp[fieldCrop{fieldID, cropID}]
}

// Fields returns the fields the catalog was built for.
func (c *Catalog) Fields() []*model.Field { return c.fields }

// Crops returns the crops the catalog was built for.
func (c *Catalog) Crops() []*model.Crop { return c.crops }
