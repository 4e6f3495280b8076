package loader

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cropplan/internal/model"
)

type periodsDoc struct {
	Periods []periodDoc `yaml:"periods"`
}

type periodDoc struct {
	Label          string   `yaml:"label"`
	StartDate      string   `yaml:"start_date"`
	CompletionDate string   `yaml:"completion_date"`
	GrowthDays     int      `yaml:"growth_days"`
	AccumulatedGDD float64  `yaml:"accumulated_gdd"`
	TotalCost      *float64 `yaml:"total_cost"`
	Revenue        *float64 `yaml:"revenue"`
}

// LoadPeriods reads single-field period options from a YAML file.
func LoadPeriods(path string) ([]model.OptimizationIntermediateResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read periods %s", path)
	}
	return ParsePeriods(data)
}

// ParsePeriods decodes a document with a top-level "periods" list. Options
// without a completion date or cost are kept; the scheduler skips them.
func ParsePeriods(data []byte) ([]model.OptimizationIntermediateResult, error) {
	var doc periodsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "loader: parse periods")
	}
	out := make([]model.OptimizationIntermediateResult, 0, len(doc.Periods))
	for i, p := range doc.Periods {
		start, err := parseDate(p.StartDate)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: periods[%d]: start_date", i)
		}
		r := model.OptimizationIntermediateResult{
			Label:          strings.TrimSpace(p.Label),
			StartDate:      start,
			GrowthDays:     p.GrowthDays,
			AccumulatedGDD: p.AccumulatedGDD,
			TotalCost:      p.TotalCost,
			Revenue:        p.Revenue,
		}
		if p.CompletionDate != "" {
			end, err := parseDate(p.CompletionDate)
			if err != nil {
				return nil, eris.Wrapf(err, "loader: periods[%d]: completion_date", i)
			}
			if end.Before(start) {
				return nil, eris.Wrapf(model.ErrInvalid, "loader: periods[%d]: completion before start", i)
			}
			r.CompletionDate = &end
		}
		if p.TotalCost != nil && *p.TotalCost < 0 {
			return nil, eris.Wrapf(model.ErrInvalid, "loader: periods[%d]: total_cost must be >= 0", i)
		}
		if r.Label == "" {
			r.Label = start.Format("2006-01-02")
		}
		out = append(out, r)
	}
	return out, nil
}
