package answer

import (
	"strings"
	"testing"

	"github.com/propdoc-io/propdoc/internal/extract"
	"github.com/propdoc-io/propdoc/internal/query"
)

func sampleBundle() *query.ContextBundle {
	return &query.ContextBundle{
		Query:  "How many units are vacant?",
		Intent: query.IntentStructured,
		Items: []query.Item{
			{Kind: query.ItemFact, Text: "Unit 01-102 (1BR): rent $1205.00, vacant",
				DocumentID: "aaaaaaaaaaaabbbb", PageStart: 1, PageEnd: 1, Score: 0.85},
			{Kind: query.ItemPassage, Text: "Unit 01-102 has been listed since June.",
				DocumentID: "aaaaaaaaaaaabbbb", PageStart: 2, PageEnd: 2, Score: 0.72},
		},
		Aggregates: &extract.Summary{
			TotalUnits: 3, OccupiedUnits: 2, VacantUnits: 1,
			OccupancyRate: 66.7, TotalRent: 4504, AverageRent: 1501.33,
		},
	}
}

func TestRenderContext(t *testing.T) {
	got := RenderContext(sampleBundle())

	if !strings.Contains(got, "AGGREGATES (exact):") {
		t.Error("aggregates section missing")
	}
	if !strings.Contains(got, "occupied 2, vacant 1") {
		t.Errorf("aggregate figures missing:\n%s", got)
	}
	if !strings.Contains(got, "[1] (fact, doc aaaaaaaaaaaa p.1-1)") {
		t.Errorf("fact attribution missing:\n%s", got)
	}
	if !strings.Contains(got, "[2] (passage, doc aaaaaaaaaaaa p.2-2)") {
		t.Errorf("passage attribution missing:\n%s", got)
	}
	if strings.Contains(got, "retrieval path was unavailable") {
		t.Error("partial note rendered for a complete bundle")
	}
}

func TestRenderContextPartialNote(t *testing.T) {
	b := sampleBundle()
	b.Partial = true
	if !strings.Contains(RenderContext(b), "retrieval path was unavailable") {
		t.Error("partial bundles must carry the incompleteness note")
	}
}

func TestAttributionsFollowRankOrder(t *testing.T) {
	got := Attributions(sampleBundle())
	if len(got) != 2 {
		t.Fatalf("attributions = %d, want 2", len(got))
	}
	if got[0].Kind != "fact" || got[0].PageStart != 1 {
		t.Errorf("first attribution = %+v", got[0])
	}
	if got[1].Kind != "passage" || got[1].PageStart != 2 {
		t.Errorf("second attribution = %+v", got[1])
	}
}
