package timectrl

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// FakeEventScheduler is a test implementation of EventScheduler that owns
// its notion of simulation time. Tests call AdvanceBy / AdvanceTo to move
// time forward and execute due events deterministically, so scheduler and
// broadcaster behaviour is verified without any wall-clock waits.
type FakeEventScheduler struct {
	mu      sync.Mutex
	now     time.Time
	counter uint64

	events []*scheduledEvent
	index  map[string]*scheduledEvent
}

// NewFakeEventScheduler creates a fake scheduler starting at the given time.
func NewFakeEventScheduler(start time.Time) *FakeEventScheduler {
	return &FakeEventScheduler{
		now:   start,
		index: make(map[string]*scheduledEvent),
	}
}

// Now returns the current fake simulation time.
func (s *FakeEventScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule registers a callback to run at the specified fake time.
func (s *FakeEventScheduler) Schedule(at time.Time, f func()) (id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id = fmt.Sprintf("fake-ev-%d", s.counter)

	ev := &scheduledEvent{id: id, when: at, f: f}
	idx := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].when.Before(ev.when)
	})
	s.events = append(s.events, nil)
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev

	s.index[id] = ev
	return id
}

// ScheduleAfter registers a callback to run d after the current fake time.
func (s *FakeEventScheduler) ScheduleAfter(d time.Duration, f func()) (id string) {
	s.mu.Lock()
	at := s.now.Add(d)
	s.mu.Unlock()
	return s.Schedule(at, f)
}

// Cancel marks a scheduled event cancelled.
func (s *FakeEventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[id]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(s.index, id)
}

// RunDue executes all events due at the current fake time.
func (s *FakeEventScheduler) RunDue() {
	for {
		s.mu.Lock()

		var due *scheduledEvent
		for len(s.events) > 0 {
			ev := s.events[0]
			if ev.cancelled {
				s.events = s.events[1:]
				continue
			}
			if ev.when.After(s.now) {
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

		if due.f != nil {
			due.f()
		}
	}
}

// AdvanceTo moves fake time forward to t, executing every due event with
// the clock pinned to that event's scheduled time, so callbacks observe
// the same Now() they would under a real clock. Events a callback
// schedules within the advance window run in the same pass. Earlier
// targets are ignored; time never goes backwards.
func (s *FakeEventScheduler) AdvanceTo(t time.Time) {
	for {
		s.mu.Lock()

		var due *scheduledEvent
		for len(s.events) > 0 {
			ev := s.events[0]
			if ev.cancelled {
				s.events = s.events[1:]
				continue
			}
			if ev.when.After(t) {
				break
			}
			s.events = s.events[1:]
			due = ev
			break
		}

		if due == nil {
			if t.After(s.now) {
				s.now = t
			}
			s.mu.Unlock()
			return
		}
		if due.when.After(s.now) {
			s.now = due.when
		}
		delete(s.index, due.id)
		s.mu.Unlock()

		if due.f != nil {
			due.f()
		}
	}
}

// AdvanceBy moves fake time forward by d and runs all due events.
func (s *FakeEventScheduler) AdvanceBy(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}

// PendingEvents returns the number of scheduled, uncancelled events.
func (s *FakeEventScheduler) PendingEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, ev := range s.events {
		if !ev.cancelled {
			n++
		}
	}
	return n
}
