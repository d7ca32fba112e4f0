// Package sweep contains the detection scheduler: the cooperative state
// machine that walks a planned sequence, applies timed visual-state
// transitions per detection unit, and reports progress.
package sweep

import (
	"time"
)

// Config holds the timing and outcome policy for one sweep run.
type Config struct {
	// ActiveDuration is how long a unit holds the "under test" marker
	// before it resolves. Default: 9.5s of the 10s cycle.
	ActiveDuration time.Duration

	// ResolveGap is the pause between a unit resolving and the next unit
	// going active. Default: 0.5s, the rest of the cycle.
	ResolveGap time.Duration

	// QualifyProbability is the chance a measured entity resolves as
	// Qualified under the default outcome function. Default: 0.995.
	QualifyProbability float64

	// Outcome overrides the default weighted draw. Tests install a fixed
	// function here for deterministic runs.
	Outcome OutcomeFunc

	// Seed feeds the default outcome function's RNG so simulated runs are
	// reproducible. Zero seeds from the current wall-clock time.
	Seed int64
}

// DefaultConfig returns the standard 10-time-unit detection cycle.
func DefaultConfig() Config {
	return Config{
		ActiveDuration:     9500 * time.Millisecond,
		ResolveGap:         500 * time.Millisecond,
		QualifyProbability: 0.995,
	}
}

// ApplyDefaults fills zero-valued fields with the defaults.
func (c Config) ApplyDefaults() Config {
	d := DefaultConfig()
	if c.ActiveDuration <= 0 {
		c.ActiveDuration = d.ActiveDuration
	}
	if c.ResolveGap <= 0 {
		c.ResolveGap = d.ResolveGap
	}
	if c.QualifyProbability <= 0 || c.QualifyProbability > 1 {
		c.QualifyProbability = d.QualifyProbability
	}
	return c
}
