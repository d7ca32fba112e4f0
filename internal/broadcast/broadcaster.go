// Package broadcast fans entity status transitions out to registered view
// consumers, coalescing bursts into small time-windowed batches for
// throughput. Clearing events (override removed) are never delayed: they
// flush whatever is pending and dispatch synchronously, so a consumer can
// never keep rendering a stale "under test" marker past its unit's
// resolution.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/sweep-simulator/internal/logging"
	"github.com/signalsfoundry/sweep-simulator/internal/observability"
	"github.com/signalsfoundry/sweep-simulator/model"
	"github.com/signalsfoundry/sweep-simulator/timectrl"
)

// Consumer receives batches of status changes. Changes within a batch are
// in emission order; batches are delivered in order.
type Consumer interface {
	OnStatusChanges(changes []model.StatusChange)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(changes []model.StatusChange)

func (f ConsumerFunc) OnStatusChanges(changes []model.StatusChange) { f(changes) }

// Config controls batching behaviour.
type Config struct {
	// BatchWindow is how long non-clearing notifications may be held
	// before a flush. Zero disables batching entirely. Default: 50ms.
	BatchWindow time.Duration
	// MaxBatch flushes early once this many changes are pending.
	// Default: 256.
	MaxBatch int
}

// DefaultConfig returns the standard batching policy.
func DefaultConfig() Config {
	return Config{BatchWindow: 50 * time.Millisecond, MaxBatch: 256}
}

// ApplyDefaults fills unset fields. A negative BatchWindow normalizes to
// zero (batching off).
func (c Config) ApplyDefaults() Config {
	if c.BatchWindow < 0 {
		c.BatchWindow = 0
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 256
	}
	return c
}

type registration struct {
	handle   string
	consumer Consumer
}

// Broadcaster is the single fan-out point between the detection scheduler
// and view consumers. Views never mutate entities; they only react to the
// changes delivered here.
type Broadcaster struct {
	mu sync.Mutex

	cfg   Config
	sched timectrl.EventScheduler
	log   logging.Logger

	// consumers in registration order, so delivery order is stable.
	consumers []registration

	pending []model.StatusChange
	flushID string // scheduled flush event, "" when none armed

	batchesFlushed int
	changesSent    int

	collector *observability.SweepCollector
}

// New constructs a broadcaster. The event scheduler drives the batch
// window; it must be the same scheduler the detection run uses so flushes
// stay on the single cooperative thread.
func New(sched timectrl.EventScheduler, cfg Config, log logging.Logger) *Broadcaster {
	return &Broadcaster{
		cfg:   cfg.ApplyDefaults(),
		sched: sched,
		log:   logging.OrNoop(log),
	}
}

// SetCollector attaches an optional metrics collector. Nil is fine.
func (b *Broadcaster) SetCollector(c *observability.SweepCollector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collector = c
}

// Register adds a consumer and returns an opaque handle for Unregister.
func (b *Broadcaster) Register(c Consumer) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle := uuid.NewString()
	b.consumers = append(b.consumers, registration{handle: handle, consumer: c})
	return handle
}

// Unregister removes a consumer. Unknown handles are a no-op.
func (b *Broadcaster) Unregister(handle string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, reg := range b.consumers {
		if reg.handle == handle {
			b.consumers = append(b.consumers[:i], b.consumers[i+1:]...)
			return
		}
	}
}

// Notify accepts one status change. Clearing changes flush the pending
// batch and dispatch immediately; everything else is coalesced within the
// batch window.
func (b *Broadcaster) Notify(change model.StatusChange) {
	b.NotifyAll([]model.StatusChange{change})
}

// NotifyAll accepts the changes of one atomic transition (both entities of
// a paired unit). If any change clears an override the whole group is
// dispatched immediately, after the pending batch, so consumers see the
// unit transition as one delivery and never out of order.
func (b *Broadcaster) NotifyAll(changes []model.StatusChange) {
	if len(changes) == 0 {
		return
	}

	clearing := false
	for _, c := range changes {
		if c.ClearsOverride() {
			clearing = true
			break
		}
	}

	b.mu.Lock()

	if clearing || b.cfg.BatchWindow == 0 {
		// Pending changes must be seen before the clearing event or
		// consumers would observe transitions out of order.
		batch := b.takePendingLocked()
		batch = append(batch, changes...)
		consumers := b.snapshotConsumersLocked()
		b.mu.Unlock()

		b.deliver(consumers, batch)
		return
	}

	b.pending = append(b.pending, changes...)
	if len(b.pending) >= b.cfg.MaxBatch {
		batch := b.takePendingLocked()
		consumers := b.snapshotConsumersLocked()
		b.mu.Unlock()

		b.deliver(consumers, batch)
		return
	}

	if b.flushID == "" {
		b.flushID = b.sched.ScheduleAfter(b.cfg.BatchWindow, b.Flush)
	}
	b.mu.Unlock()
}

// Flush dispatches any pending batch immediately. The scheduler calls it
// on stop so no buffered change outlives a run.
func (b *Broadcaster) Flush() {
	b.mu.Lock()
	batch := b.takePendingLocked()
	consumers := b.snapshotConsumersLocked()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.deliver(consumers, batch)
	}
}

// Stats returns how many batches and individual changes were delivered.
func (b *Broadcaster) Stats() (batches, changes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batchesFlushed, b.changesSent
}

// takePendingLocked detaches the pending batch and disarms the flush
// timer. Caller holds b.mu.
func (b *Broadcaster) takePendingLocked() []model.StatusChange {
	batch := b.pending
	b.pending = nil
	if b.flushID != "" {
		b.sched.Cancel(b.flushID)
		b.flushID = ""
	}
	return batch
}

func (b *Broadcaster) snapshotConsumersLocked() []registration {
	out := make([]registration, len(b.consumers))
	copy(out, b.consumers)
	return out
}

func (b *Broadcaster) deliver(consumers []registration, batch []model.StatusChange) {
	if len(batch) == 0 {
		return
	}

	for _, reg := range consumers {
		reg.consumer.OnStatusChanges(batch)
	}

	b.mu.Lock()
	b.batchesFlushed++
	b.changesSent += len(batch)
	collector := b.collector
	b.mu.Unlock()

	collector.ObserveBatch(len(batch))

	b.log.Debug(context.Background(), "broadcast batch delivered",
		logging.Int("changes", len(batch)),
		logging.Int("consumers", len(consumers)))
}
