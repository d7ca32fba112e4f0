package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/sweep-simulator/model"
)

// GridPatternConfig describes a synthetic circular hole pattern: holes on
// a square grid clipped to a disc, the way tubesheet layouts are drilled.
// It exists for demos, fixtures, and stress tests; real workpieces come
// from the external geometry source.
type GridPatternConfig struct {
	// DiscRadius is the workpiece radius in the shared coordinate space.
	DiscRadius float64
	// Pitch is the grid spacing along both axes.
	Pitch float64
	// HoleRadius is assigned to every generated entity.
	HoleRadius float64
}

// GenerateGridPattern fills the table with a clipped-grid pattern centred
// on the origin. IDs are "h<row>-<col>" with row/col indexed from the
// negative extreme, so generation is deterministic.
func GenerateGridPattern(t *EntityTable, cfg GridPatternConfig) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("nil entity table")
	}
	if cfg.DiscRadius <= 0 || cfg.Pitch <= 0 {
		return 0, fmt.Errorf("grid pattern needs positive disc radius and pitch")
	}

	half := int(math.Floor(cfg.DiscRadius / cfg.Pitch))
	n := 0
	for ri := -half; ri <= half; ri++ {
		y := float64(ri) * cfg.Pitch
		for ci := -half; ci <= half; ci++ {
			x := float64(ci) * cfg.Pitch
			if math.Hypot(x, y) > cfg.DiscRadius {
				continue
			}
			e := &model.Entity{
				ID:     fmt.Sprintf("h%d-%d", ri+half, ci+half),
				X:      x,
				Y:      y,
				Radius: cfg.HoleRadius,
			}
			if err := t.Add(e); err != nil {
				return n, err
			}
			n++
		}
	}
	if n == 0 {
		return 0, ErrNoEntities
	}
	return n, nil
}
