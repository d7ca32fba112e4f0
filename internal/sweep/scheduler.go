package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/sweep-simulator/core"
	"github.com/signalsfoundry/sweep-simulator/internal/broadcast"
	"github.com/signalsfoundry/sweep-simulator/internal/logging"
	"github.com/signalsfoundry/sweep-simulator/internal/observability"
	"github.com/signalsfoundry/sweep-simulator/model"
	"github.com/signalsfoundry/sweep-simulator/timectrl"
)

var (
	// ErrInvalidTransition is the sentinel wrapped by TransitionError.
	ErrInvalidTransition = errors.New("invalid scheduler transition")
	// ErrEmptyPlan indicates Start was invoked without a planned sequence.
	// Starting on nothing is an error, never a silent success.
	ErrEmptyPlan = errors.New("cannot start on an empty plan")
)

// TransitionError reports a control call rejected because of the
// scheduler's current state. The scheduler remains in its prior state.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid scheduler transition: %s from %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// State is the scheduler's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// phase tracks which half of the detection cycle the armed timer belongs
// to, so pause/resume re-arms the right callback.
type phase int

const (
	phaseActive phase = iota // unit is marked, waiting to resolve
	phaseGap                 // unit resolved, waiting to start the next
)

// Scheduler walks a planned sequence unit by unit: mark the unit's
// entities with the active override, wait out the active duration, commit
// simulated outcomes, clear the overrides, wait out the resolve gap, and
// move on. It is single-threaded and cooperative; the only suspension is
// a deferred callback on the event scheduler.
//
// The scheduler exclusively owns mutation of entity statuses and
// overrides for the duration of a run. A hard Stop force-resolves the
// in-flight unit before halting, so no entity is ever left holding a
// transient override while the scheduler is not Running.
type Scheduler struct {
	mu sync.Mutex

	cfg     Config
	table   *core.EntityTable
	seq     *model.PlannedSequence
	sched   timectrl.EventScheduler
	bc      *broadcast.Broadcaster
	log     logging.Logger
	outcome OutcomeFunc

	collector *observability.SweepCollector

	state     State
	runID     string
	cursor    int
	processed int
	startedAt time.Time

	// Timer bookkeeping for the in-flight deferred callback.
	eventID  string
	phase    phase
	armedAt  time.Time
	armedFor time.Duration
	// remaining holds the unserved portion of the armed wait while Paused,
	// so Resume re-arms with exactly what is left, never the full duration.
	remaining time.Duration

	onComplete []func(model.RunSummary)
}

// NewScheduler constructs a scheduler over the given table and plan. The
// event scheduler and broadcaster must share the same simulation clock.
func NewScheduler(table *core.EntityTable, seq *model.PlannedSequence, es timectrl.EventScheduler, bc *broadcast.Broadcaster, cfg Config, log logging.Logger) *Scheduler {
	cfg = cfg.ApplyDefaults()
	outcome := cfg.Outcome
	if outcome == nil {
		outcome = weightedOutcome(newRNG(cfg.Seed), cfg.QualifyProbability)
	}
	return &Scheduler{
		cfg:     cfg,
		table:   table,
		seq:     seq,
		sched:   es,
		bc:      bc,
		log:     logging.OrNoop(log),
		outcome: outcome,
		state:   StateIdle,
	}
}

// SetCollector attaches an optional metrics collector. Nil is fine.
func (s *Scheduler) SetCollector(c *observability.SweepCollector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collector = c
}

// SetSequence replaces the planned sequence. Only legal while no run is
// in flight; the sequence is rebuilt whenever the geometry source changes.
func (s *Scheduler) SetSequence(seq *model.PlannedSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning || s.state == StatePaused {
		return &TransitionError{Op: "set-sequence", From: s.state}
	}
	s.seq = seq
	return nil
}

// OnComplete registers a callback fired once when a run reaches Stopped,
// whether by natural completion or a hard Stop.
func (s *Scheduler) OnComplete(fn func(model.RunSummary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID returns the identifier of the current (or last) run.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Progress returns entities processed so far and the planned total.
func (s *Scheduler) Progress() (processed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == nil {
		return s.processed, 0
	}
	return s.processed, s.seq.EntityCount
}

// Start begins a run from Idle. It validates the plan synchronously
// before any timer is armed: an empty plan is an error and the scheduler
// stays Idle.
func (s *Scheduler) Start() error {
	s.mu.Lock()

	if s.state != StateIdle {
		from := s.state
		s.mu.Unlock()
		return &TransitionError{Op: "start", From: from}
	}
	if s.seq == nil || len(s.seq.Units) == 0 {
		s.mu.Unlock()
		return ErrEmptyPlan
	}

	s.state = StateRunning
	s.runID = uuid.NewString()
	s.cursor = 0
	s.processed = 0
	s.startedAt = s.sched.Now()

	emits := s.activateUnitLocked()
	runID := s.runID
	units := len(s.seq.Units)
	collector := s.collector
	s.mu.Unlock()

	collector.SetUnitsPlanned(units)
	collector.SetProgress(0)
	s.bc.NotifyAll(emits)

	s.log.Info(context.Background(), "sweep started",
		logging.String("run_id", runID),
		logging.Int("units", units))
	return nil
}

// Pause cancels the in-flight wait and records how much of it remains.
// Only legal while Running.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return &TransitionError{Op: "pause", From: s.state}
	}

	if s.eventID != "" {
		s.sched.Cancel(s.eventID)
		s.eventID = ""
	}
	elapsed := s.sched.Now().Sub(s.armedAt)
	s.remaining = s.armedFor - elapsed
	if s.remaining < 0 {
		s.remaining = 0
	}
	s.state = StatePaused

	s.log.Info(context.Background(), "sweep paused",
		logging.String("run_id", s.runID),
		logging.Int("unit", s.cursor),
		logging.Any("remaining", s.remaining))
	return nil
}

// Resume re-arms the interrupted wait with the remaining time only.
// Only legal while Paused.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return &TransitionError{Op: "resume", From: s.state}
	}

	s.state = StateRunning
	s.armedAt = s.sched.Now()
	s.armedFor = s.remaining
	switch s.phase {
	case phaseActive:
		s.eventID = s.sched.ScheduleAfter(s.armedFor, s.onActiveElapsed)
	case phaseGap:
		s.eventID = s.sched.ScheduleAfter(s.armedFor, s.onGapElapsed)
	}

	s.log.Info(context.Background(), "sweep resumed",
		logging.String("run_id", s.runID),
		logging.Int("unit", s.cursor),
		logging.Any("remaining", s.armedFor))
	return nil
}

// Stop halts the run from any state. If a unit is mid-active-phase its
// resolution runs synchronously first, so no entity retains an override
// once Stop returns. Stop is idempotent; stopping a Stopped scheduler is
// a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()

	switch s.state {
	case StateStopped:
		s.mu.Unlock()
		return nil
	case StateIdle:
		s.state = StateStopped
		s.mu.Unlock()
		return nil
	}

	if s.eventID != "" {
		s.sched.Cancel(s.eventID)
		s.eventID = ""
	}

	var emits []model.StatusChange
	var outcomes []model.BaseStatus
	if s.phase == phaseActive && s.cursor < len(s.seq.Units) {
		emits, outcomes = s.resolveUnitLocked()
		s.processed += s.seq.Units[s.cursor].Len()
		s.cursor++
	}
	summary := s.finishLocked(false)
	collector := s.collector
	s.mu.Unlock()

	for _, st := range outcomes {
		collector.ObserveOutcome(st.String())
	}
	s.bc.NotifyAll(emits)
	s.bc.Flush()
	s.fireCompletion(summary, collector)

	s.log.Info(context.Background(), "sweep stopped",
		logging.String("run_id", summary.RunID),
		logging.Int("entities_processed", summary.EntitiesProcessed))
	return nil
}

// Reset returns a Stopped scheduler to Idle and all entities to Pending
// with no overrides. Views treat this as a full-resync boundary and
// re-read the table rather than receiving 20,000 individual events.
func (s *Scheduler) Reset() error {
	s.mu.Lock()

	if s.state == StateRunning || s.state == StatePaused {
		from := s.state
		s.mu.Unlock()
		return &TransitionError{Op: "reset", From: from}
	}
	s.state = StateIdle
	s.runID = ""
	s.cursor = 0
	s.processed = 0
	collector := s.collector
	s.mu.Unlock()

	s.table.ResetStatuses()
	collector.SetProgress(0)
	return nil
}

// onActiveElapsed fires when the current unit's active phase ends:
// commit outcomes, clear overrides, and arm the gap before the next unit.
func (s *Scheduler) onActiveElapsed() {
	s.mu.Lock()
	if s.state != StateRunning {
		// Stale timer: a pause or stop beat the callback.
		s.mu.Unlock()
		return
	}

	emits, outcomes := s.resolveUnitLocked()
	unitLen := s.seq.Units[s.cursor].Len()
	s.processed += unitLen
	s.cursor++

	var summary *model.RunSummary
	if s.cursor < len(s.seq.Units) {
		s.phase = phaseGap
		s.armedAt = s.sched.Now()
		s.armedFor = s.cfg.ResolveGap
		s.eventID = s.sched.ScheduleAfter(s.armedFor, s.onGapElapsed)
	} else {
		summary = s.finishLocked(true)
	}

	processed := s.processed
	total := s.seq.EntityCount
	collector := s.collector
	s.mu.Unlock()

	for _, st := range outcomes {
		collector.ObserveOutcome(st.String())
	}
	if total > 0 {
		collector.SetProgress(float64(processed) / float64(total))
	}

	// Clearing changes: dispatched immediately, never batched.
	s.bc.NotifyAll(emits)

	if summary != nil {
		s.bc.Flush()
		s.fireCompletion(summary, collector)
		s.log.Info(context.Background(), "sweep completed",
			logging.String("run_id", summary.RunID),
			logging.Int("entities_processed", summary.EntitiesProcessed))
	}
}

// onGapElapsed fires when the resolve gap ends: activate the next unit.
func (s *Scheduler) onGapElapsed() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}

	emits := s.activateUnitLocked()
	s.mu.Unlock()

	s.bc.NotifyAll(emits)
}

// activateUnitLocked marks the cursor's unit as under test and arms the
// active-phase timer. Caller holds s.mu.
func (s *Scheduler) activateUnitLocked() []model.StatusChange {
	unit := s.seq.Units[s.cursor]

	emits := make([]model.StatusChange, 0, unit.Len())
	for _, id := range unit.EntityIDs {
		if err := s.table.SetOverride(id, model.OverrideActive); err != nil {
			// The plan is validated against the table before Start, so a
			// miss here is a programming error worth a loud log.
			s.log.Error(context.Background(), "activate: unknown entity",
				logging.String("entity_id", id),
				logging.Int("unit", s.cursor))
			continue
		}
		e, _ := s.table.Get(id)
		emits = append(emits, model.StatusChange{
			EntityID:  id,
			OldStatus: e.Status,
			NewStatus: e.Status,
			Override:  model.OverrideActive,
		})
	}

	s.phase = phaseActive
	s.armedAt = s.sched.Now()
	s.armedFor = s.cfg.ActiveDuration
	s.eventID = s.sched.ScheduleAfter(s.armedFor, s.onActiveElapsed)
	return emits
}

// resolveUnitLocked commits outcomes for the cursor's unit and clears its
// overrides unconditionally. Clearing is an explicit step here, not a
// side effect of the status write: the returned changes carry
// OverrideNone so the broadcaster dispatches them immediately. Caller
// holds s.mu.
func (s *Scheduler) resolveUnitLocked() ([]model.StatusChange, []model.BaseStatus) {
	unit := s.seq.Units[s.cursor]

	emits := make([]model.StatusChange, 0, unit.Len())
	outcomes := make([]model.BaseStatus, 0, unit.Len())
	for _, id := range unit.EntityIDs {
		e, err := s.table.Get(id)
		if err != nil {
			continue
		}

		next := e.Status
		if measurable(e.Status) {
			next = s.outcome(e)
		}
		old, _ := s.table.SetStatus(id, next)
		_ = s.table.SetOverride(id, model.OverrideNone)

		emits = append(emits, model.StatusChange{
			EntityID:  id,
			OldStatus: old,
			NewStatus: next,
			Override:  model.OverrideNone,
		})
		outcomes = append(outcomes, next)
	}
	return emits, outcomes
}

// finishLocked moves to Stopped and builds the run summary. Caller holds
// s.mu.
func (s *Scheduler) finishLocked(completed bool) *model.RunSummary {
	s.state = StateStopped
	s.eventID = ""

	total := 0
	if s.seq != nil {
		total = s.seq.EntityCount
	}
	return &model.RunSummary{
		RunID:             s.runID,
		EntitiesProcessed: s.processed,
		EntitiesTotal:     total,
		UnitsProcessed:    s.cursor,
		Elapsed:           s.sched.Now().Sub(s.startedAt),
		Completed:         completed,
	}
}

// fireCompletion runs completion callbacks outside the scheduler lock.
func (s *Scheduler) fireCompletion(summary *model.RunSummary, collector *observability.SweepCollector) {
	if summary == nil {
		return
	}
	collector.ObserveRunDuration(summary.Elapsed.Seconds())

	s.mu.Lock()
	callbacks := make([]func(model.RunSummary), len(s.onComplete))
	copy(callbacks, s.onComplete)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(*summary)
	}
}
