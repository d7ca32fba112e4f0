package model

// Sector is one of the four angular partitions of the entity set around
// its centroid. The whole system uses a single convention: +X right,
// +Y up, sectors numbered counter-clockwise from the upper-right
// quadrant. Sector1 is dx>=0, dy>=0; Sector2 is dx<0, dy>=0; Sector3 is
// dx<0, dy<0; Sector4 is dx>=0, dy<0.
type Sector int

const (
	SectorUnassigned Sector = iota
	Sector1
	Sector2
	Sector3
	Sector4
)

// AllSectors lists the four sectors in their canonical numbering order.
var AllSectors = [4]Sector{Sector1, Sector2, Sector3, Sector4}

// String returns a short stable name for logs and metric labels.
func (s Sector) String() string {
	switch s {
	case Sector1:
		return "sector1"
	case Sector2:
		return "sector2"
	case Sector3:
		return "sector3"
	case Sector4:
		return "sector4"
	default:
		return "unassigned"
	}
}

// Upper reports whether the sector lies above the horizontal centroid
// axis. The planner uses this to pick the outermost starting row.
func (s Sector) Upper() bool {
	return s == Sector1 || s == Sector2
}
