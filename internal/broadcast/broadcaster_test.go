package broadcast

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/sweep-simulator/model"
	"github.com/signalsfoundry/sweep-simulator/timectrl"
)

var epoch = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

type recordingConsumer struct {
	batches [][]model.StatusChange
}

func (r *recordingConsumer) OnStatusChanges(changes []model.StatusChange) {
	batch := make([]model.StatusChange, len(changes))
	copy(batch, changes)
	r.batches = append(r.batches, batch)
}

func activeChange(id string) model.StatusChange {
	return model.StatusChange{EntityID: id, Override: model.OverrideActive}
}

func clearingChange(id string, status model.BaseStatus) model.StatusChange {
	return model.StatusChange{
		EntityID:  id,
		NewStatus: status,
		Override:  model.OverrideNone,
	}
}

func TestBatchingHoldsUntilWindow(t *testing.T) {
	sched := timectrl.NewFakeEventScheduler(epoch)
	b := New(sched, Config{BatchWindow: 50 * time.Millisecond}, nil)

	sink := &recordingConsumer{}
	b.Register(sink)

	b.Notify(activeChange("h1"))
	b.Notify(activeChange("h2"))

	if len(sink.batches) != 0 {
		t.Fatalf("non-clearing changes delivered before the window: %v", sink.batches)
	}

	sched.AdvanceBy(50 * time.Millisecond)

	if len(sink.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(sink.batches))
	}
	want := []model.StatusChange{activeChange("h1"), activeChange("h2")}
	if diff := cmp.Diff(want, sink.batches[0]); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestClearingDispatchesImmediately(t *testing.T) {
	sched := timectrl.NewFakeEventScheduler(epoch)
	b := New(sched, Config{BatchWindow: time.Hour}, nil)

	sink := &recordingConsumer{}
	b.Register(sink)

	// A pending non-clearing change must be flushed ahead of the clearing
	// event, preserving order, with no time advance at all.
	b.Notify(activeChange("h1"))
	b.Notify(clearingChange("h1", model.StatusQualified))

	if len(sink.batches) != 1 {
		t.Fatalf("got %d batches, want 1 immediate delivery", len(sink.batches))
	}
	want := []model.StatusChange{activeChange("h1"), clearingChange("h1", model.StatusQualified)}
	if diff := cmp.Diff(want, sink.batches[0]); diff != "" {
		t.Fatalf("delivery order mismatch (-want +got):\n%s", diff)
	}

	// The armed window flush must not redeliver anything.
	sched.AdvanceBy(2 * time.Hour)
	if len(sink.batches) != 1 {
		t.Fatalf("window flush redelivered: %d batches", len(sink.batches))
	}
}

func TestPairedUnitDeliversAtomically(t *testing.T) {
	sched := timectrl.NewFakeEventScheduler(epoch)
	b := New(sched, DefaultConfig(), nil)

	sink := &recordingConsumer{}
	b.Register(sink)

	b.NotifyAll([]model.StatusChange{
		clearingChange("h1", model.StatusQualified),
		clearingChange("h2", model.StatusDefective),
	})

	if len(sink.batches) != 1 {
		t.Fatalf("paired resolution split across %d batches, want 1", len(sink.batches))
	}
	if len(sink.batches[0]) != 2 {
		t.Fatalf("batch holds %d changes, want both entities", len(sink.batches[0]))
	}
}

func TestMaxBatchFlushesEarly(t *testing.T) {
	sched := timectrl.NewFakeEventScheduler(epoch)
	b := New(sched, Config{BatchWindow: time.Hour, MaxBatch: 3}, nil)

	sink := &recordingConsumer{}
	b.Register(sink)

	b.Notify(activeChange("h1"))
	b.Notify(activeChange("h2"))
	b.Notify(activeChange("h3"))

	if len(sink.batches) != 1 || len(sink.batches[0]) != 3 {
		t.Fatalf("batches = %v, want one full batch of 3", sink.batches)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	sched := timectrl.NewFakeEventScheduler(epoch)
	b := New(sched, Config{BatchWindow: 0}, nil) // batching off

	sink := &recordingConsumer{}
	handle := b.Register(sink)

	b.Notify(activeChange("h1"))
	b.Unregister(handle)
	b.Notify(activeChange("h2"))

	if len(sink.batches) != 1 {
		t.Fatalf("got %d batches after unregister, want 1", len(sink.batches))
	}

	batches, changes := b.Stats()
	if batches != 2 || changes != 2 {
		t.Fatalf("Stats = (%d, %d), want (2, 2)", batches, changes)
	}
}
