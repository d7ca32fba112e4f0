package model

// BaseStatus is the persisted inspection result of an entity. It is
// mutated only by the detection scheduler (or an explicit reset).
type BaseStatus int

const (
	// StatusPending means the entity has not been inspected yet.
	StatusPending BaseStatus = iota
	// StatusQualified means the entity passed inspection.
	StatusQualified
	// StatusDefective means the entity failed inspection.
	StatusDefective
	// StatusBlind marks a blind hole that is skipped by measurement but
	// still participates in the sweep.
	StatusBlind
	// StatusTieRod marks a tie-rod position.
	StatusTieRod
)

// String returns a stable lower-case name, used in logs and metric labels.
func (s BaseStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusQualified:
		return "qualified"
	case StatusDefective:
		return "defective"
	case StatusBlind:
		return "blind"
	case StatusTieRod:
		return "tierod"
	default:
		return "unknown"
	}
}

// Override is a transient visual marker attached to an entity while its
// detection unit is active. It is independent of BaseStatus and must be
// cleared no later than when the owning unit resolves.
type Override int

const (
	// OverrideNone means no transient marker is attached.
	OverrideNone Override = iota
	// OverrideActive marks an entity currently under test.
	OverrideActive
)

// String returns a stable lower-case name for the override state.
func (o Override) String() string {
	if o == OverrideActive {
		return "active"
	}
	return "none"
}

// SideTag is an optional group tag carried by an entity from the geometry
// source. It disambiguates sector classification for entities that sit
// within tolerance of a centroid axis.
type SideTag string

const (
	SideNone  SideTag = ""
	SideLeft  SideTag = "left"
	SideRight SideTag = "right"
	SideUpper SideTag = "upper"
	SideLower SideTag = "lower"
)

// Entity is a point-like inspectable item on the workpiece. Identity and
// geometry are fixed at load time; only Status and the transient override
// change during a session.
type Entity struct {
	ID     string
	X, Y   float64
	Radius float64

	// Side is an optional tag from the geometry source used to break
	// near-axis ties during sector classification.
	Side SideTag

	Status   BaseStatus
	Override Override
}
