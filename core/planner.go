package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/signalsfoundry/sweep-simulator/model"
)

var (
	// ErrCoverage indicates a produced plan failed the full-coverage
	// invariant. Wrapped by CoverageError with the concrete counts.
	ErrCoverage = errors.New("plan coverage violation")
	// ErrBadSectorOrder indicates the configured visitation order does not
	// name each sector exactly once.
	ErrBadSectorOrder = errors.New("sector order must name each sector exactly once")
)

// CoverageError reports a plan that does not cover every entity exactly
// once. It should never escape a correct planner; it exists because an
// incomplete traversal is a realistic regression and must fail loudly
// before any timer is armed.
type CoverageError struct {
	Expected    int
	Planned     int
	DuplicateID string
}

func (e *CoverageError) Error() string {
	if e.DuplicateID != "" {
		return fmt.Sprintf("plan coverage violation: entity %q planned more than once", e.DuplicateID)
	}
	return fmt.Sprintf("plan coverage violation: planned %d of %d entities", e.Planned, e.Expected)
}

func (e *CoverageError) Unwrap() error { return ErrCoverage }

// PlannerConfig is the policy surface of the snake planner. Zero values
// are normalized by ApplyDefaults.
type PlannerConfig struct {
	// SectorOrder is the fixed sector visitation order. It is a policy
	// constant, not derived from geometry. Default: 1, 2, 3, 4.
	SectorOrder []model.Sector
	// PairInterval is the index distance, in column steps along a row,
	// between the two entities of a paired unit. Default: 2.
	PairInterval int
	// RowTolerance is the maximum Y distance between entities that share
	// a row. Default: DefaultRowTolerance.
	RowTolerance float64
}

// DefaultPlannerConfig returns the standard sweep policy.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		SectorOrder:  []model.Sector{model.Sector1, model.Sector2, model.Sector3, model.Sector4},
		PairInterval: 2,
		RowTolerance: DefaultRowTolerance,
	}
}

// ApplyDefaults fills zero-valued fields with the defaults.
func (c PlannerConfig) ApplyDefaults() PlannerConfig {
	d := DefaultPlannerConfig()
	if len(c.SectorOrder) == 0 {
		c.SectorOrder = d.SectorOrder
	}
	if c.PairInterval <= 0 {
		c.PairInterval = d.PairInterval
	}
	if c.RowTolerance <= 0 {
		c.RowTolerance = d.RowTolerance
	}
	return c
}

// Validate rejects a sector order that is not a permutation of the four
// sectors.
func (c PlannerConfig) Validate() error {
	seen := make(map[model.Sector]bool, 4)
	for _, s := range c.SectorOrder {
		if s < model.Sector1 || s > model.Sector4 || seen[s] {
			return fmt.Errorf("%w: got %v", ErrBadSectorOrder, c.SectorOrder)
		}
		seen[s] = true
	}
	if len(seen) != 4 {
		return fmt.Errorf("%w: got %v", ErrBadSectorOrder, c.SectorOrder)
	}
	return nil
}

// SnakePathPlanner turns a partitioned entity set into one ordered
// sequence of detection units covering every entity exactly once.
//
// Within a sector, entities are grouped into rows, rows are visited
// outermost-first proceeding inward toward the centroid (descending Y in
// the upper sector pair, ascending Y in the lower pair, chosen by sector
// identity rather than raw coordinate sign), and the column direction
// alternates between successive rows (serpentine).
type SnakePathPlanner struct {
	cfg PlannerConfig
}

// NewSnakePathPlanner constructs a planner, normalizing and validating the
// config.
func NewSnakePathPlanner(cfg PlannerConfig) (*SnakePathPlanner, error) {
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SnakePathPlanner{cfg: cfg}, nil
}

// Config returns the normalized planner policy.
func (p *SnakePathPlanner) Config() PlannerConfig { return p.cfg }

// Plan produces the full sweep sequence for the given entities and their
// sector assignment. Planning is deterministic: the same entities and
// assignment always yield the same sequence.
func (p *SnakePathPlanner) Plan(entities []*model.Entity, asg *Assignment) (*model.PlannedSequence, error) {
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}
	if asg == nil {
		return nil, fmt.Errorf("%w: nil assignment", ErrNoEntities)
	}

	bySector := make(map[model.Sector][]*model.Entity, 4)
	for _, e := range entities {
		s, ok := asg.Sectors[e.ID]
		if !ok {
			return nil, fmt.Errorf("%w: entity %q has no sector assignment", ErrCoverage, e.ID)
		}
		bySector[s] = append(bySector[s], e)
	}

	seq := &model.PlannedSequence{}
	for _, sector := range p.cfg.SectorOrder {
		units := p.planSector(sector, bySector[sector])
		seq.Units = append(seq.Units, units...)
	}
	for _, u := range seq.Units {
		seq.EntityCount += u.Len()
	}

	if err := VerifyCoverage(seq, entities); err != nil {
		return nil, err
	}
	return seq, nil
}

// planSector orders one sector's entities into rows and units.
func (p *SnakePathPlanner) planSector(sector model.Sector, entities []*model.Entity) []model.DetectionUnit {
	if len(entities) == 0 {
		return nil
	}

	rows := groupRows(entities, p.cfg.RowTolerance)

	// Outermost row first, proceeding inward toward the centroid. For the
	// upper pair the outermost row has the largest Y; for the lower pair
	// the smallest.
	sort.SliceStable(rows, func(i, j int) bool {
		if sector.Upper() {
			return rows[i].y > rows[j].y
		}
		return rows[i].y < rows[j].y
	})

	var units []model.DetectionUnit
	for ri, row := range rows {
		ordered := row.entities
		// Serpentine: odd rows run in reverse column direction.
		if ri%2 == 1 {
			ordered = reversed(ordered)
		}
		units = append(units, p.pairRow(sector, ri, ordered)...)
	}
	return units
}

// pairRow splits a direction-ordered row into detection units. Entities a
// fixed index interval apart form a paired unit; anything left over at the
// end of the row becomes a single-entity unit of the same type.
func (p *SnakePathPlanner) pairRow(sector model.Sector, row int, ordered []*model.Entity) []model.DetectionUnit {
	k := p.cfg.PairInterval
	used := make([]bool, len(ordered))
	var units []model.DetectionUnit

	for i := range ordered {
		if used[i] {
			continue
		}
		used[i] = true
		j := i + k
		if j < len(ordered) && !used[j] {
			used[j] = true
			units = append(units, model.DetectionUnit{
				EntityIDs: []string{ordered[i].ID, ordered[j].ID},
				Paired:    true,
				Sector:    sector,
				Row:       row,
			})
			continue
		}
		units = append(units, model.DetectionUnit{
			EntityIDs: []string{ordered[i].ID},
			Sector:    sector,
			Row:       row,
		})
	}
	return units
}

// VerifyCoverage asserts the full-coverage invariant: every entity appears
// in exactly one unit of the sequence. It is run on every plan; callers
// may also invoke it independently (plan-inspect does).
func VerifyCoverage(seq *model.PlannedSequence, entities []*model.Entity) error {
	seen := make(map[string]bool, len(entities))
	planned := 0
	for _, u := range seq.Units {
		for _, id := range u.EntityIDs {
			if seen[id] {
				return &CoverageError{Expected: len(entities), Planned: planned, DuplicateID: id}
			}
			seen[id] = true
			planned++
		}
	}
	if planned != len(entities) {
		return &CoverageError{Expected: len(entities), Planned: planned}
	}
	for _, e := range entities {
		if !seen[e.ID] {
			return &CoverageError{Expected: len(entities), Planned: planned}
		}
	}
	return nil
}

type plannedRow struct {
	y        float64 // representative Y (first entity seen)
	entities []*model.Entity
}

// groupRows clusters entities into rows by Y within the tolerance, then
// sorts each row by X (ties broken by ID for determinism).
func groupRows(entities []*model.Entity, tol float64) []plannedRow {
	sorted := make([]*model.Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].ID < sorted[j].ID
	})

	var rows []plannedRow
	for _, e := range sorted {
		if n := len(rows); n > 0 && e.Y-rows[n-1].entities[len(rows[n-1].entities)-1].Y <= tol {
			rows[n-1].entities = append(rows[n-1].entities, e)
			continue
		}
		rows = append(rows, plannedRow{y: e.Y, entities: []*model.Entity{e}})
	}

	for ri := range rows {
		sort.SliceStable(rows[ri].entities, func(i, j int) bool {
			a, b := rows[ri].entities[i], rows[ri].entities[j]
			if a.X != b.X {
				return a.X < b.X
			}
			return a.ID < b.ID
		})
	}
	return rows
}

func reversed(in []*model.Entity) []*model.Entity {
	out := make([]*model.Entity, len(in))
	for i, e := range in {
		out[len(in)-1-i] = e
	}
	return out
}
