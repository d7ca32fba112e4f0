package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/sweep-simulator/model"
)

// ErrAmbiguousClassification indicates a near-axis entity carried a side
// tag the tie-break rule does not understand. The rule is total for
// untagged entities, so this only fires on malformed geometry input.
var ErrAmbiguousClassification = errors.New("ambiguous sector classification")

// ErrNoEntities indicates partitioning or planning was attempted on an
// empty entity set.
var ErrNoEntities = errors.New("no entities to partition")

// SectorPartitioner classifies entities into the four quadrant sectors
// around the entity-set centroid. It is the single canonical
// classification function; no other component computes sectors.
//
// Convention (fixed for the whole system): +X right, +Y up, sectors
// numbered counter-clockwise from the upper-right quadrant.
type SectorPartitioner struct {
	// AxisTolerance is the absolute delta below which an entity is treated
	// as lying on a centroid axis and resolved by the tie-break rule.
	AxisTolerance float64
}

// NewSectorPartitioner returns a partitioner with the default tolerance.
func NewSectorPartitioner() *SectorPartitioner {
	return &SectorPartitioner{AxisTolerance: DefaultAxisTolerance}
}

// Assignment is the result of one partitioning pass.
type Assignment struct {
	Centroid Point2
	// Sectors maps entity ID to its sector.
	Sectors map[string]model.Sector
	// Counts holds per-sector entity counts, indexed by model.AllSectors
	// order.
	Counts map[model.Sector]int
}

// Assign classifies every entity and returns the full assignment. Every
// entity lands in exactly one sector; the per-sector counts always sum to
// the input length. Results are pure with respect to the inputs and are
// cached by the caller (the entity table) until geometry changes.
func (p *SectorPartitioner) Assign(entities []*model.Entity) (*Assignment, error) {
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}

	c := Centroid(entities)
	out := &Assignment{
		Centroid: c,
		Sectors:  make(map[string]model.Sector, len(entities)),
		Counts:   make(map[model.Sector]int, 4),
	}

	for _, e := range entities {
		s, err := p.classify(e, c)
		if err != nil {
			return nil, err
		}
		out.Sectors[e.ID] = s
		out.Counts[s]++
	}
	return out, nil
}

// classify resolves one entity against the centroid. Near-axis deltas are
// resolved by the entity's side tag when one is present; untagged
// near-axis entities belong to the positive side of the axis. The rule is
// deterministic and total, so repeated classification of the same
// geometry always agrees.
func (p *SectorPartitioner) classify(e *model.Entity, c Point2) (model.Sector, error) {
	xPos, err := p.sideOfAxis(e, e.X-c.X, model.SideRight, model.SideLeft)
	if err != nil {
		return model.SectorUnassigned, err
	}
	yPos, err := p.sideOfAxis(e, e.Y-c.Y, model.SideUpper, model.SideLower)
	if err != nil {
		return model.SectorUnassigned, err
	}

	switch {
	case xPos && yPos:
		return model.Sector1, nil
	case !xPos && yPos:
		return model.Sector2, nil
	case !xPos && !yPos:
		return model.Sector3, nil
	default:
		return model.Sector4, nil
	}
}

// sideOfAxis reports whether the entity lies on the positive side of one
// centroid axis. posTag/negTag are the side tags that force the positive
// and negative side respectively when the delta is within tolerance.
func (p *SectorPartitioner) sideOfAxis(e *model.Entity, delta float64, posTag, negTag model.SideTag) (bool, error) {
	tol := p.AxisTolerance
	if tol <= 0 {
		tol = DefaultAxisTolerance
	}

	if delta > tol {
		return true, nil
	}
	if delta < -tol {
		return false, nil
	}

	// On the axis: tie-break.
	switch e.Side {
	case posTag:
		return true, nil
	case negTag:
		return false, nil
	case model.SideNone:
		// Untagged axis entities belong to the positive side.
		return true, nil
	case model.SideLeft, model.SideRight, model.SideUpper, model.SideLower:
		// A tag for the other axis does not discriminate here; positive
		// side by the same rule as untagged.
		return true, nil
	default:
		return false, fmt.Errorf("%w: entity %q carries unknown side tag %q", ErrAmbiguousClassification, e.ID, e.Side)
	}
}
