package loader

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cropplan/internal/model"
)

type movesDoc struct {
	Moves []moveDoc `yaml:"moves"`
}

type moveDoc struct {
	Action       string   `yaml:"action"`
	AllocationID string   `yaml:"allocation_id"`
	ToFieldID    string   `yaml:"to_field_id"`
	ToStartDate  string   `yaml:"to_start_date"`
	ToArea       *float64 `yaml:"to_area"`
	CropID       string   `yaml:"crop_id"`
}

// LoadMoves reads move instructions from a YAML file.
func LoadMoves(path string) ([]model.MoveInstruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read moves %s", path)
	}
	return ParseMoves(data)
}

// ParseMoves decodes a document with a top-level "moves" list and validates
// each instruction.
func ParseMoves(data []byte) ([]model.MoveInstruction, error) {
	var doc movesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "loader: parse moves")
	}
	out := make([]model.MoveInstruction, 0, len(doc.Moves))
	for i, d := range doc.Moves {
		m := model.MoveInstruction{
			Action:       model.MoveAction(d.Action),
			AllocationID: d.AllocationID,
			ToFieldID:    d.ToFieldID,
			ToArea:       d.ToArea,
			CropID:       d.CropID,
		}
		if d.ToStartDate != "" {
			t, err := parseDate(d.ToStartDate)
			if err != nil {
				return nil, eris.Wrapf(err, "loader: moves[%d]: to_start_date", i)
			}
			m.ToStartDate = &t
		}
		valid, err := model.NewMoveInstruction(m)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: moves[%d]", i)
		}
		out = append(out, valid)
	}
	return out, nil
}
