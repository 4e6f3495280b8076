// Package loader reads planning inputs (fields, crops, interaction rules,
// growth windows, period options and move instructions) from YAML.
package loader

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cropplan/internal/catalog"
	"github.com/sells-group/cropplan/internal/interaction"
	"github.com/sells-group/cropplan/internal/model"
)

// Plan is a validated planning input.
type Plan struct {
	Fields  []*model.Field
	Crops   []*model.Crop
	Rules   []model.InteractionRule
	Windows []Window
}

// Window is a precomputed growth window. An empty FieldID applies the window
// to every field.
type Window struct {
	CropID  string
	FieldID string
	catalog.GrowthWindow
}

type planDoc struct {
	Plan struct {
		Fields           []model.Field           `yaml:"fields"`
		Crops            []model.Crop            `yaml:"crops"`
		InteractionRules []model.InteractionRule `yaml:"interaction_rules"`
		GrowthWindows    []windowDoc             `yaml:"growth_windows"`
	} `yaml:"plan"`
}

type windowDoc struct {
	CropID         string  `yaml:"crop_id"`
	FieldID        string  `yaml:"field_id"`
	StartDate      string  `yaml:"start_date"`
	CompletionDate string  `yaml:"completion_date"` // empty when the crop never matures
	GrowthDays     int     `yaml:"growth_days"`
	AccumulatedGDD float64 `yaml:"accumulated_gdd"`
	YieldFactor    float64 `yaml:"yield_factor"`
}

// LoadPlan reads a plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read plan %s", path)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a plan document with a top-level "plan" key.
func ParsePlan(data []byte) (*Plan, error) {
	var doc planDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "loader: parse plan")
	}

	p := &Plan{}
	fieldIDs := make(map[string]bool)
	for i, raw := range doc.Plan.Fields {
		f, err := model.NewField(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: fields[%d]", i)
		}
		if fieldIDs[f.ID] {
			return nil, eris.Wrapf(model.ErrInvalid, "loader: duplicate field id %s", f.ID)
		}
		fieldIDs[f.ID] = true
		p.Fields = append(p.Fields, f)
	}

	cropIDs := make(map[string]bool)
	for i, raw := range doc.Plan.Crops {
		c, err := model.NewCrop(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: crops[%d]", i)
		}
		if cropIDs[c.ID] {
			return nil, eris.Wrapf(model.ErrInvalid, "loader: duplicate crop id %s", c.ID)
		}
		cropIDs[c.ID] = true
		p.Crops = append(p.Crops, c)
	}

	ruleIDs := make(map[string]bool)
	for i, raw := range doc.Plan.InteractionRules {
		r, err := model.NewInteractionRule(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: interaction_rules[%d]", i)
		}
		if ruleIDs[r.RuleID] {
			return nil, eris.Wrapf(model.ErrInvalid, "loader: duplicate rule id %s", r.RuleID)
		}
		ruleIDs[r.RuleID] = true
		p.Rules = append(p.Rules, r)
	}

	for i, raw := range doc.Plan.GrowthWindows {
		w, err := raw.window()
		if err != nil {
			return nil, eris.Wrapf(err, "loader: growth_windows[%d]", i)
		}
		if !cropIDs[w.CropID] {
			return nil, eris.Wrapf(model.ErrInvalid, "loader: growth_windows[%d]: unknown crop %s", i, w.CropID)
		}
		if w.FieldID != "" && !fieldIDs[w.FieldID] {
			return nil, eris.Wrapf(model.ErrInvalid, "loader: growth_windows[%d]: unknown field %s", i, w.FieldID)
		}
		p.Windows = append(p.Windows, w)
	}
	return p, nil
}

func (d windowDoc) window() (Window, error) {
	w := Window{CropID: strings.TrimSpace(d.CropID), FieldID: strings.TrimSpace(d.FieldID)}
	if w.CropID == "" {
		return Window{}, eris.Wrap(model.ErrInvalid, "crop_id is required")
	}
	start, err := parseDate(d.StartDate)
	if err != nil {
		return Window{}, eris.Wrap(err, "start_date")
	}
	w.StartDate = start
	if d.CompletionDate != "" {
		end, err := parseDate(d.CompletionDate)
		if err != nil {
			return Window{}, eris.Wrap(err, "completion_date")
		}
		if end.Before(start) {
			return Window{}, eris.Wrapf(model.ErrInvalid, "completion %s before start %s", d.CompletionDate, d.StartDate)
		}
		w.CompletionDate = end
		if d.GrowthDays == 0 {
			d.GrowthDays = model.DaysBetween(start, end)
		}
	}
	if d.GrowthDays < 0 {
		return Window{}, eris.Wrapf(model.ErrInvalid, "growth_days must be >= 0, got %d", d.GrowthDays)
	}
	if d.YieldFactor < 0 {
		return Window{}, eris.Wrapf(model.ErrInvalid, "yield_factor must be >= 0, got %v", d.YieldFactor)
	}
	w.GrowthDays = d.GrowthDays
	w.AccumulatedGDD = d.AccumulatedGDD
	w.YieldFactor = d.YieldFactor
	return w, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and truncates to the UTC day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, eris.Wrap(model.ErrInvalid, "date is required")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return model.Day(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(model.ErrInvalid, "invalid date %q", s)
	}
	return model.Day(t), nil
}

// RuleService returns an interaction service over the plan's rules.
func (p *Plan) RuleService() *interaction.Service {
	return interaction.NewService(p.Rules)
}

// Simulator returns a growth simulator serving the plan's windows.
func (p *Plan) Simulator() *StaticSimulator {
	return NewStaticSimulator(p.Windows)
}

// StaticSimulator serves precomputed growth windows. It is safe for
// concurrent use once built.
type StaticSimulator struct {
	byCrop map[string][]Window
}

// NewStaticSimulator indexes windows by crop, ordered by start date.
func NewStaticSimulator(windows []Window) *StaticSimulator {
	s := &StaticSimulator{byCrop: make(map[string][]Window)}
	for _, w := range windows {
		s.byCrop[w.CropID] = append(s.byCrop[w.CropID], w)
	}
	for _, ws := range s.byCrop {
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].StartDate.Before(ws[j].StartDate) })
	}
	return s
}

// Windows implements catalog.GrowthSimulator.
func (s *StaticSimulator) Windows(ctx context.Context, field *model.Field, crop *model.Crop) ([]catalog.GrowthWindow, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "loader: windows")
	}
	var out []catalog.GrowthWindow
	for _, w := range s.byCrop[crop.ID] {
		if w.FieldID == "" || w.FieldID == field.ID {
			out = append(out, w.GrowthWindow)
		}
	}
	return out, nil
}
