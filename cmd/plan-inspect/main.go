// plan-inspect loads a hole pattern, partitions and plans it, and prints
// the traversal breakdown. It exits non-zero if the plan fails the
// full-coverage check, which makes it usable as a fixture validator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/signalsfoundry/sweep-simulator/core"
	"github.com/signalsfoundry/sweep-simulator/model"
)

func main() {
	pattern := flag.String("pattern", "", "JSON hole pattern file (required)")
	pairInterval := flag.Int("pair-interval", 0, "column interval for paired units (default 2)")
	showUnits := flag.Int("show-units", 10, "number of leading units to print; -1 for all")

	flag.Parse()

	if *pattern == "" {
		fmt.Fprintln(os.Stderr, "usage: plan-inspect -pattern <file>")
		os.Exit(2)
	}

	f, err := os.Open(*pattern)
	if err != nil {
		fatal(err)
	}
	table := core.NewEntityTable()
	if _, err := core.LoadHolePattern(table, f); err != nil {
		f.Close()
		fatal(err)
	}
	f.Close()

	entities := table.All()
	asg, err := core.NewSectorPartitioner().Assign(entities)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("entities: %d, centroid: (%.3f, %.3f)\n", len(entities), asg.Centroid.X, asg.Centroid.Y)
	for _, s := range model.AllSectors {
		fmt.Printf("  %s: %d\n", s, asg.Counts[s])
	}

	planner, err := core.NewSnakePathPlanner(core.PlannerConfig{PairInterval: *pairInterval})
	if err != nil {
		fatal(err)
	}
	seq, err := planner.Plan(entities, asg)
	if err != nil {
		fatal(err)
	}

	paired, singles := 0, 0
	for _, u := range seq.Units {
		if u.Paired {
			paired++
		} else {
			singles++
		}
	}
	fmt.Printf("units: %d (%d paired, %d single), coverage: %d/%d\n",
		seq.UnitCount(), paired, singles, seq.EntityCount, len(entities))

	n := *showUnits
	if n < 0 || n > len(seq.Units) {
		n = len(seq.Units)
	}
	for i := 0; i < n; i++ {
		u := seq.Units[i]
		fmt.Printf("  %4d  %-8s row %-3d %v\n", i, u.Sector, u.Row, u.EntityIDs)
	}

	// Plan() already verified coverage; re-check so the tool stays honest
	// if it is ever pointed at a hand-edited sequence.
	if err := core.VerifyCoverage(seq, entities); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "plan-inspect:", err)
	os.Exit(1)
}
