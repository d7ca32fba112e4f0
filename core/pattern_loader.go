package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/sweep-simulator/model"
)

// GeometrySource supplies the initial entity collection. The real parser
// for the workpiece drawing format lives outside this module; anything
// that can hand over entities satisfies the interface.
type GeometrySource interface {
	Entities() ([]*model.Entity, error)
}

// PatternSummary is a small summary of what was loaded, mainly useful for
// logging from main().
type PatternSummary struct {
	HoleIDs []string
	Blind   int
	TieRods int
}

// internal JSON shapes, kept unexported so the format can evolve freely.
type holePatternJSON struct {
	Holes []holeJSON `json:"holes"`
}

type holeJSON struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Side   string  `json:"side,omitempty"` // optional: left|right|upper|lower
	Kind   string  `json:"kind,omitempty"` // optional: blind|tierod
}

// LoadHolePattern reads a JSON hole pattern from r, populates the entity
// table, and returns a summary. It fails on JSON/structural errors and on
// duplicate IDs; geometry invariants beyond that are the table's concern.
func LoadHolePattern(t *EntityTable, r io.Reader) (*PatternSummary, error) {
	if t == nil {
		return nil, fmt.Errorf("nil entity table")
	}

	var doc holePatternJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode hole pattern: %w", err)
	}
	if len(doc.Holes) == 0 {
		return nil, fmt.Errorf("load hole pattern: %w", ErrNoEntities)
	}

	sum := &PatternSummary{}
	for _, h := range doc.Holes {
		e := &model.Entity{
			ID:     h.ID,
			X:      h.X,
			Y:      h.Y,
			Radius: h.Radius,
			Side:   model.SideTag(h.Side),
		}
		switch h.Kind {
		case "":
			// regular hole, starts Pending
		case "blind":
			e.Status = model.StatusBlind
			sum.Blind++
		case "tierod":
			e.Status = model.StatusTieRod
			sum.TieRods++
		default:
			return nil, fmt.Errorf("hole %q: unknown kind %q", h.ID, h.Kind)
		}
		if err := t.Add(e); err != nil {
			return nil, fmt.Errorf("hole %q: %w", h.ID, err)
		}
		sum.HoleIDs = append(sum.HoleIDs, h.ID)
	}
	return sum, nil
}

// TableSource wraps an already-populated entity table as a GeometrySource.
type TableSource struct{ Table *EntityTable }

// Entities returns the table's entities in insertion order.
func (s TableSource) Entities() ([]*model.Entity, error) {
	if s.Table == nil || s.Table.Len() == 0 {
		return nil, ErrNoEntities
	}
	return s.Table.All(), nil
}
