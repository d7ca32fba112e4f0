package model

// DetectionUnit is the atomic scheduling grain of a sweep: one or two
// entity IDs processed together. There is no separate "fallback" shape
// for unpaired entities; a single-entity unit is just a unit whose
// Paired flag is false.
type DetectionUnit struct {
	// EntityIDs holds one or two entity IDs, in column order.
	EntityIDs []string
	// Paired is true when the unit wraps two entities.
	Paired bool
	// Sector is the sector the unit was planned in.
	Sector Sector
	// Row is the row index within the sector's traversal order, starting
	// at the sector's outermost row.
	Row int
}

// Len returns the number of entities in the unit (1 or 2).
func (u DetectionUnit) Len() int { return len(u.EntityIDs) }

// PlannedSequence is the complete ordered list of detection units for one
// sweep. It covers every entity exactly once; the planner enforces this
// before the sequence is handed to the scheduler.
type PlannedSequence struct {
	Units []DetectionUnit
	// EntityCount is the total number of entities covered by Units.
	EntityCount int
}

// UnitCount returns the number of planned units.
func (p *PlannedSequence) UnitCount() int { return len(p.Units) }
