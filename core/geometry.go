package core

import (
	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/sweep-simulator/model"
)

// Point2 is a position in the shared planar workpiece coordinate space.
// The convention everywhere in this module is +X right, +Y up.
type Point2 struct {
	X, Y float64
}

// DefaultAxisTolerance is the absolute distance from a centroid axis
// within which an entity is treated as sitting on the axis and classified
// by the deterministic tie-break rule instead of the floating-point sign.
const DefaultAxisTolerance = 1e-6

// DefaultRowTolerance is the maximum Y distance between two entities that
// still counts as sharing a row. Hole patterns come from drilled grids, so
// genuine rows differ by at least one pitch.
const DefaultRowTolerance = 0.5

// Centroid returns the arithmetic mean position of the entity set.
// It returns the zero point for an empty set; callers validate emptiness
// before planning.
func Centroid(entities []*model.Entity) Point2 {
	if len(entities) == 0 {
		return Point2{}
	}
	xs := make([]float64, len(entities))
	ys := make([]float64, len(entities))
	for i, e := range entities {
		xs[i] = e.X
		ys[i] = e.Y
	}
	return Point2{
		X: stat.Mean(xs, nil),
		Y: stat.Mean(ys, nil),
	}
}
