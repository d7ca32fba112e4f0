package model

import "time"

// StatusChange is a single entity transition emitted by the scheduler and
// fanned out to view consumers.
type StatusChange struct {
	EntityID  string
	OldStatus BaseStatus
	NewStatus BaseStatus
	Override  Override
}

// ClearsOverride reports whether this change removes a transient marker.
// Clearing changes must never be delayed by batching.
func (c StatusChange) ClearsOverride() bool { return c.Override == OverrideNone }

// RunSummary describes a finished sweep run, emitted once when the
// scheduler reaches Stopped.
type RunSummary struct {
	RunID             string
	EntitiesProcessed int
	EntitiesTotal     int
	UnitsProcessed    int
	Elapsed           time.Duration // simulation time from Start to Stopped
	Completed         bool          // false when the run was stopped early
}
