package timectrl

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// EventScheduler schedules callbacks to run at specific simulation times
// based on a SimClock. It is the only suspension primitive in the sweep
// subsystem: "wait N time-units" is always expressed as a scheduled event,
// never as a blocking sleep.
//
// The run loop advances simulation time via the TimeController and calls
// RunDue after each advance. The detection scheduler and broadcaster use
// ScheduleAfter / Cancel to manage their deferred transitions.
type EventScheduler interface {
	// Schedule registers a callback f to run at simulation time at. It
	// returns an opaque event ID usable with Cancel.
	Schedule(at time.Time, f func()) (id string)

	// ScheduleAfter registers a callback to run d after the current
	// simulation time.
	ScheduleAfter(d time.Duration, f func()) (id string)

	// Cancel attempts to cancel a previously scheduled event. It is a
	// no-op if the ID is unknown or the event already ran.
	Cancel(id string)

	// Now returns the current simulation time from the underlying clock.
	Now() time.Time

	// RunDue executes all events whose scheduled time is <= Now(), in
	// time order. Already-run events never run again.
	RunDue()
}

type scheduledEvent struct {
	id        string
	when      time.Time
	f         func()
	cancelled bool
}

// eventScheduler is the concrete EventScheduler backed by a SimClock.
// Events are kept ordered by scheduled time, earliest first.
type eventScheduler struct {
	clock SimClock

	mu      sync.Mutex
	counter uint64
	events  []*scheduledEvent
	index   map[string]*scheduledEvent
}

// NewEventScheduler creates an event scheduler backed by the given clock.
// Normal runs pass the TimeController; unit tests pass a fake clock.
func NewEventScheduler(clock SimClock) EventScheduler {
	return &eventScheduler{
		clock: clock,
		index: make(map[string]*scheduledEvent),
	}
}

func (s *eventScheduler) Schedule(at time.Time, f func()) (id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id = fmt.Sprintf("ev-%d", s.counter)

	ev := &scheduledEvent{id: id, when: at, f: f}

	// Insert keeping time order, earliest first.
	idx := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].when.Before(ev.when)
	})
	s.events = append(s.events, nil)
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev

	s.index[id] = ev
	return id
}

func (s *eventScheduler) ScheduleAfter(d time.Duration, f func()) (id string) {
	return s.Schedule(s.clock.Now().Add(d), f)
}

func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[id]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(s.index, id)
	// Removal from the ordered slice is lazy; RunDue skips cancelled events.
}

func (s *eventScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *eventScheduler) RunDue() {
	for {
		s.mu.Lock()
		now := s.clock.Now()

		var due *scheduledEvent
		for len(s.events) > 0 {
			ev := s.events[0]
			if ev.cancelled {
				s.events = s.events[1:]
				continue
			}
			if ev.when.After(now) {
				break
			}
			s.events = s.events[1:]
			due = ev
			break
		}

		if due == nil {
			s.mu.Unlock()
			return
		}
		delete(s.index, due.id)
		s.mu.Unlock()

		// Run the callback outside the lock: callbacks routinely schedule
		// the next event.
		if due.f != nil {
			due.f()
		}
	}
}
