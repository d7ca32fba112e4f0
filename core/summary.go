package core

import (
	"github.com/signalsfoundry/sweep-simulator/model"
)

// SectorSummary holds the on-demand status counts for one sector.
type SectorSummary struct {
	Sector    model.Sector
	Total     int
	Pending   int
	Qualified int
	Defective int
	Blind     int
	TieRod    int
}

// Summarize recomputes the status breakdown for one sector from the
// current table state. It is read-only and cheap enough to call whenever
// a view focuses a sector; nothing is cached.
func Summarize(t *EntityTable, sector model.Sector) SectorSummary {
	sum := SectorSummary{Sector: sector}
	for _, e := range t.All() {
		if t.SectorOf(e.ID) != sector {
			continue
		}
		sum.Total++
		switch e.Status {
		case model.StatusPending:
			sum.Pending++
		case model.StatusQualified:
			sum.Qualified++
		case model.StatusDefective:
			sum.Defective++
		case model.StatusBlind:
			sum.Blind++
		case model.StatusTieRod:
			sum.TieRod++
		}
	}
	return sum
}

// SummarizeAll returns summaries for the four sectors in canonical order.
func SummarizeAll(t *EntityTable) [4]SectorSummary {
	var out [4]SectorSummary
	for i, s := range model.AllSectors {
		out[i] = Summarize(t, s)
	}
	return out
}
