package timectrl

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestEventSchedulerRunsDueEventsInOrder(t *testing.T) {
	clock := NewTimeController(epoch, time.Second, Accelerated)
	s := NewEventScheduler(clock)

	var fired []string
	s.Schedule(epoch.Add(2*time.Second), func() { fired = append(fired, "late") })
	s.Schedule(epoch.Add(1*time.Second), func() { fired = append(fired, "early") })

	clock.SetTime(epoch.Add(3 * time.Second))
	s.RunDue()

	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("fired = %v, want [early late]", fired)
	}

	// Already-run events must not run again.
	s.RunDue()
	if len(fired) != 2 {
		t.Fatalf("events re-ran: fired = %v", fired)
	}
}

func TestEventSchedulerCancel(t *testing.T) {
	clock := NewTimeController(epoch, time.Second, Accelerated)
	s := NewEventScheduler(clock)

	ran := false
	id := s.Schedule(epoch.Add(time.Second), func() { ran = true })
	s.Cancel(id)
	s.Cancel(id) // unknown ID is a no-op

	clock.SetTime(epoch.Add(2 * time.Second))
	s.RunDue()

	if ran {
		t.Fatal("cancelled event ran")
	}
}

func TestEventSchedulerScheduleAfter(t *testing.T) {
	clock := NewTimeController(epoch, time.Second, Accelerated)
	s := NewEventScheduler(clock)

	ran := false
	s.ScheduleAfter(5*time.Second, func() { ran = true })

	clock.SetTime(epoch.Add(4 * time.Second))
	s.RunDue()
	if ran {
		t.Fatal("event fired before its delay elapsed")
	}

	clock.SetTime(epoch.Add(5 * time.Second))
	s.RunDue()
	if !ran {
		t.Fatal("event did not fire at its due time")
	}
}

func TestEventSchedulerCallbackMaySchedule(t *testing.T) {
	clock := NewTimeController(epoch, time.Second, Accelerated)
	s := NewEventScheduler(clock)

	chained := false
	s.Schedule(epoch.Add(time.Second), func() {
		// A due chained event runs within the same RunDue pass.
		s.Schedule(epoch.Add(2*time.Second), func() { chained = true })
	})

	clock.SetTime(epoch.Add(3 * time.Second))
	s.RunDue()

	if !chained {
		t.Fatal("chained event did not run")
	}
}

func TestFakeEventSchedulerAdvance(t *testing.T) {
	s := NewFakeEventScheduler(epoch)

	var fired []string
	s.ScheduleAfter(time.Second, func() { fired = append(fired, "a") })
	s.ScheduleAfter(3*time.Second, func() { fired = append(fired, "b") })

	s.AdvanceBy(2 * time.Second)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("after 2s fired = %v, want [a]", fired)
	}
	if s.PendingEvents() != 1 {
		t.Fatalf("PendingEvents = %d, want 1", s.PendingEvents())
	}

	// Time never goes backwards.
	s.AdvanceTo(epoch)
	if got := s.Now(); !got.Equal(epoch.Add(2 * time.Second)) {
		t.Fatalf("Now() = %v, want %v", got, epoch.Add(2*time.Second))
	}

	s.AdvanceBy(time.Second)
	if len(fired) != 2 {
		t.Fatalf("after 3s fired = %v, want [a b]", fired)
	}
}

func TestFakeEventSchedulerStepsClockPerEvent(t *testing.T) {
	s := NewFakeEventScheduler(epoch)

	var seen []time.Duration
	s.ScheduleAfter(time.Second, func() {
		seen = append(seen, s.Now().Sub(epoch))
		// Chained event inside the advance window runs in the same pass,
		// again at its own due time.
		s.ScheduleAfter(500*time.Millisecond, func() {
			seen = append(seen, s.Now().Sub(epoch))
		})
	})

	s.AdvanceBy(10 * time.Second)

	want := []time.Duration{time.Second, 1500 * time.Millisecond}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("callback times = %v, want %v", seen, want)
	}
	if got := s.Now(); !got.Equal(epoch.Add(10 * time.Second)) {
		t.Fatalf("Now() after advance = %v, want %v", got, epoch.Add(10*time.Second))
	}
}
