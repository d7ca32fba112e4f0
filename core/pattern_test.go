package core

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/signalsfoundry/sweep-simulator/model"
)

func TestLoadHolePatternFixture(t *testing.T) {
	f, err := os.Open("testdata/nine_holes.json")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	table := NewEntityTable()
	sum, err := LoadHolePattern(table, f)
	if err != nil {
		t.Fatalf("LoadHolePattern: %v", err)
	}
	if len(sum.HoleIDs) != 9 || table.Len() != 9 {
		t.Fatalf("loaded %d holes (table %d), want 9", len(sum.HoleIDs), table.Len())
	}

	// The fixture is the documented sector-count reference.
	asg, err := NewSectorPartitioner().Assign(table.All())
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	want := map[model.Sector]int{
		model.Sector1: 2, model.Sector2: 1, model.Sector3: 2, model.Sector4: 4,
	}
	for s, n := range want {
		if asg.Counts[s] != n {
			t.Errorf("%s count = %d, want %d", s, asg.Counts[s], n)
		}
	}
}

func TestLoadHolePatternKindsAndSides(t *testing.T) {
	doc := `{"holes": [
		{"id": "a", "x": 0, "y": 0, "radius": 1, "side": "left"},
		{"id": "b", "x": 1, "y": 0, "radius": 1, "kind": "blind"},
		{"id": "c", "x": 2, "y": 0, "radius": 1, "kind": "tierod"}
	]}`
	table := NewEntityTable()
	sum, err := LoadHolePattern(table, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadHolePattern: %v", err)
	}
	if sum.Blind != 1 || sum.TieRods != 1 {
		t.Fatalf("summary = %+v, want 1 blind and 1 tierod", sum)
	}

	a, _ := table.Get("a")
	if a.Side != model.SideLeft {
		t.Fatalf("side tag = %q, want left", a.Side)
	}
	b, _ := table.Get("b")
	if b.Status != model.StatusBlind {
		t.Fatalf("blind hole status = %v, want Blind", b.Status)
	}
	c, _ := table.Get("c")
	if c.Status != model.StatusTieRod {
		t.Fatalf("tierod status = %v, want TieRod", c.Status)
	}
}

func TestLoadHolePatternRejectsUnknownKind(t *testing.T) {
	doc := `{"holes": [{"id": "a", "x": 0, "y": 0, "radius": 1, "kind": "mystery"}]}`
	_, err := LoadHolePattern(NewEntityTable(), strings.NewReader(doc))
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("error = %v, want unknown kind", err)
	}
}

func TestLoadHolePatternEmpty(t *testing.T) {
	_, err := LoadHolePattern(NewEntityTable(), strings.NewReader(`{"holes": []}`))
	if !errors.Is(err, ErrNoEntities) {
		t.Fatalf("error = %v, want ErrNoEntities", err)
	}
}

func TestGenerateGridPatternStaysInDisc(t *testing.T) {
	table := NewEntityTable()
	n, err := GenerateGridPattern(table, GridPatternConfig{DiscRadius: 10, Pitch: 1, HoleRadius: 0.25})
	if err != nil {
		t.Fatalf("GenerateGridPattern: %v", err)
	}
	if n != table.Len() {
		t.Fatalf("returned %d, table holds %d", n, table.Len())
	}
	for _, e := range table.All() {
		if math.Hypot(e.X, e.Y) > 10 {
			t.Fatalf("entity %s at (%v, %v) outside the disc", e.ID, e.X, e.Y)
		}
	}

	// Same config generates the same pattern.
	again := NewEntityTable()
	m, err := GenerateGridPattern(again, GridPatternConfig{DiscRadius: 10, Pitch: 1, HoleRadius: 0.25})
	if err != nil {
		t.Fatalf("GenerateGridPattern (again): %v", err)
	}
	if m != n {
		t.Fatalf("second generation produced %d holes, first %d", m, n)
	}
}

func TestGenerateGridPatternBadConfig(t *testing.T) {
	if _, err := GenerateGridPattern(NewEntityTable(), GridPatternConfig{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}
