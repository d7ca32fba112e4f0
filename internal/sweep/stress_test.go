package sweep

import (
	"testing"
	"time"

	"github.com/signalsfoundry/sweep-simulator/core"
	"github.com/signalsfoundry/sweep-simulator/internal/broadcast"
	"github.com/signalsfoundry/sweep-simulator/model"
	"github.com/signalsfoundry/sweep-simulator/timectrl"
)

// TestFullSweepAtScale drives a complete run over a generated disc of
// more than 25,000 holes on the virtual clock. It is the end-to-end
// check that pairing, batching and the cycle state machine hold up at
// the grid sizes the simulator is built for.
func TestFullSweepAtScale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 25k-entity sweep in short mode")
	}

	table := core.NewEntityTable()
	n, err := core.GenerateGridPattern(table, core.GridPatternConfig{
		DiscRadius: 90,
		Pitch:      1,
		HoleRadius: 0.3,
	})
	if err != nil {
		t.Fatalf("GenerateGridPattern: %v", err)
	}
	if n < 25000 {
		t.Fatalf("generated %d holes, want at least 25000", n)
	}

	entities := table.All()
	asg, err := core.NewSectorPartitioner().Assign(entities)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	table.SetSectors(asg.Sectors)

	planner, err := core.NewSnakePathPlanner(core.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("NewSnakePathPlanner: %v", err)
	}
	seq, err := planner.Plan(entities, asg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if seq.EntityCount != n {
		t.Fatalf("plan covers %d entities, table holds %d", seq.EntityCount, n)
	}

	sched := timectrl.NewFakeEventScheduler(epoch)
	bc := broadcast.New(sched, broadcast.DefaultConfig(), nil)

	// Track the live override set through the broadcast stream only, the
	// way a view would.
	active := map[string]bool{}
	bc.Register(broadcast.ConsumerFunc(func(changes []model.StatusChange) {
		for _, c := range changes {
			if c.Override == model.OverrideActive {
				active[c.EntityID] = true
			} else {
				delete(active, c.EntityID)
			}
		}
	}))

	sw := NewScheduler(table, seq, sched, bc, Config{
		ActiveDuration: 9500 * time.Millisecond,
		ResolveGap:     500 * time.Millisecond,
		Outcome:        alwaysQualify,
	}, nil)

	if err := sw.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	limit := 2*len(seq.Units) + 10
	for i := 0; sw.State() != StateStopped; i++ {
		if i > limit {
			t.Fatalf("run did not finish within %d cycles", limit)
		}
		sched.AdvanceBy(10 * time.Second)
	}

	processed, total := sw.Progress()
	if processed != n || total != n {
		t.Fatalf("Progress = (%d, %d), want (%d, %d)", processed, total, n, n)
	}
	if table.OverrideCount() != 0 {
		t.Fatalf("%d overrides left after the run", table.OverrideCount())
	}
	if len(active) != 0 {
		t.Fatalf("view still tracks %d active entities after the run", len(active))
	}
	for _, sum := range core.SummarizeAll(table) {
		if sum.Pending != 0 {
			t.Fatalf("sector %v still holds %d pending entities", sum.Sector, sum.Pending)
		}
	}
}
