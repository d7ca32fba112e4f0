package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/sweep-simulator/model"
)

var (
	ErrEntityExists   = errors.New("entity already exists")
	ErrEntityNotFound = errors.New("entity not found")
	ErrEntityBadInput = errors.New("invalid entity")
)

// EntityTable is the concurrency-safe store for the loaded hole pattern:
// entities, their persisted statuses, transient overrides, and the cached
// sector assignment. It is constructed once per loaded geometry and passed
// explicitly to every component that needs it; there is no ambient global
// registry.
//
// During a run the detection scheduler holds exclusive mutation rights over
// statuses and overrides. Other components only read.
type EntityTable struct {
	mu sync.RWMutex

	entities map[string]*model.Entity
	// order preserves insertion order so iteration is deterministic.
	order []string

	// sectors caches the partitioner's assignment. Invalidated whenever the
	// geometry changes (Clear / Add).
	sectors map[string]model.Sector
}

// NewEntityTable creates an empty table.
func NewEntityTable() *EntityTable {
	return &EntityTable{
		entities: make(map[string]*model.Entity),
		sectors:  make(map[string]model.Sector),
	}
}

// Add inserts a new entity. The ID must be non-empty and unique.
func (t *EntityTable) Add(e *model.Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: nil or empty ID", ErrEntityBadInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entities[e.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEntityExists, e.ID)
	}
	t.entities[e.ID] = e
	t.order = append(t.order, e.ID)
	// Geometry changed; any cached sector assignment is stale.
	t.sectors = make(map[string]model.Sector)
	return nil
}

// Get returns a copy of the entity, or an error if the ID is unknown.
// Copies keep readers from mutating table state behind the scheduler's back.
func (t *EntityTable) Get(id string) (model.Entity, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entities[id]
	if !ok {
		return model.Entity{}, fmt.Errorf("%w: %q", ErrEntityNotFound, id)
	}
	return *e, nil
}

// All returns pointers to every entity in insertion order. Callers other
// than the scheduler must treat the results as read-only.
func (t *EntityTable) All() []*model.Entity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*model.Entity, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entities[id])
	}
	return out
}

// Len returns the number of entities.
func (t *EntityTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entities)
}

// SetStatus commits a persisted status for an entity and returns the
// previous status.
func (t *EntityTable) SetStatus(id string, s model.BaseStatus) (model.BaseStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entities[id]
	if !ok {
		return model.StatusPending, fmt.Errorf("%w: %q", ErrEntityNotFound, id)
	}
	old := e.Status
	e.Status = s
	return old, nil
}

// SetOverride attaches or clears the transient visual marker.
func (t *EntityTable) SetOverride(id string, o model.Override) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entities[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntityNotFound, id)
	}
	e.Override = o
	return nil
}

// OverrideCount returns the number of entities currently holding a
// non-none override. After any run has left Running this must be zero.
func (t *EntityTable) OverrideCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, e := range t.entities {
		if e.Override != model.OverrideNone {
			n++
		}
	}
	return n
}

// SetSectors installs the partitioner's assignment as the table's cache.
func (t *EntityTable) SetSectors(assignment map[string]model.Sector) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sectors = assignment
}

// SectorOf returns the cached sector for an entity, or SectorUnassigned
// when the partitioner has not run since the last geometry change.
func (t *EntityTable) SectorOf(id string) model.Sector {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sectors[id]
}

// ResetStatuses returns every measurable entity to Pending and drops all
// overrides. Blind holes and tie-rod positions keep their markers; those
// describe the geometry, not a measurement result. Used when a session
// re-runs the sweep on the same pattern.
func (t *EntityTable) ResetStatuses() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entities {
		if e.Status != model.StatusBlind && e.Status != model.StatusTieRod {
			e.Status = model.StatusPending
		}
		e.Override = model.OverrideNone
	}
}

// IDs returns all entity IDs sorted lexically, mainly for tests and the
// plan-inspect tool.
func (t *EntityTable) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.entities))
	for id := range t.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
