package vectordb

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/embeddings"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(embeddings.NewFakeEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return s
}

func testPassages() []Passage {
	return []Passage{
		{ID: "doc1:v1:p0", DocumentID: "doc1", Version: 1, Seq: 0, PageStart: 1, PageEnd: 1,
			PropertyName: "riverview", Text: "Unit 01-101 rents for $1,511.00 per month to Simon Marie."},
		{ID: "doc1:v1:p1", DocumentID: "doc1", Version: 1, Seq: 1, PageStart: 2, PageEnd: 2,
			PropertyName: "riverview", Text: "The lease permits one cat or dog under 30 pounds with a pet deposit."},
		{ID: "doc2:v1:p0", DocumentID: "doc2", Version: 1, Seq: 0, PageStart: 1, PageEnd: 1,
			PropertyName: "lakeside", Text: "Lakeside Apartments parking policy: one assigned space per unit."},
	}
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddPassages(ctx, "", testPassages()); err != nil {
		t.Fatalf("AddPassages: %v", err)
	}
	if s.Count() != 3 {
		t.Fatalf("count = %d, want 3", s.Count())
	}

	// An exact-text query embeds identically under the fake embedder, so the
	// matching passage comes back with similarity ~1.
	hits, err := s.Search(ctx, "The lease permits one cat or dog under 30 pounds with a pet deposit.", 3, 0.9, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1 above floor", len(hits))
	}
	h := hits[0]
	if h.Passage.ID != "doc1:v1:p1" {
		t.Errorf("hit = %s", h.Passage.ID)
	}
	if h.Passage.DocumentID != "doc1" || h.Passage.PageStart != 2 || h.Passage.PropertyName != "riverview" {
		t.Errorf("attribution lost: %+v", h.Passage)
	}
}

func TestSearchFloorFiltersWeakHits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddPassages(ctx, "", testPassages()); err != nil {
		t.Fatal(err)
	}

	// With floor 0 everything in top-k comes back; a high floor filters the
	// unrelated passages.
	all, err := s.Search(ctx, "pet policies in leases", 3, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("unfloored hits = %d, want 3", len(all))
	}
	strict, err := s.Search(ctx, "pet policies in leases", 3, 0.99, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(strict) != 0 {
		t.Fatalf("floored hits = %d, want 0 for an unrelated query", len(strict))
	}
}

func TestSearchFilterByProperty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddPassages(ctx, "", testPassages()); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "parking", 1, 0, &Filter{PropertyName: "lakeside"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Passage.DocumentID != "doc2" {
		t.Fatalf("property filter hits = %+v", hits)
	}
}

func TestDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddPassages(ctx, "", testPassages()); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteByDocument(ctx, "doc1"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if s.Count() != 1 {
		t.Fatalf("count = %d, want 1 after delete", s.Count())
	}

	hits, err := s.Search(ctx, "rents", 1, 0, &Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("deleted document still searchable: %+v", hits)
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "propdoc-vectordb")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s := newTestStore(t)
	if err := s.AddPassages(ctx, "", testPassages()); err != nil {
		t.Fatal(err)
	}
	if err := s.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := newTestStore(t)
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Count() != 3 {
		t.Fatalf("restored count = %d, want 3", restored.Count())
	}
}

func TestFromPassages(t *testing.T) {
	ps := []document.Passage{
		{ID: "d:v1:p0", DocumentID: "d", Version: 1, Seq: 0, PageStart: 1, PageEnd: 2, Text: "body"},
	}
	got := FromPassages("riverview", ps)
	if len(got) != 1 {
		t.Fatal("conversion dropped passages")
	}
	if got[0].PropertyName != "riverview" || got[0].PageEnd != 2 || got[0].Text != "body" {
		t.Errorf("converted = %+v", got[0])
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s := newTestStore(t)
	hits, err := s.Search(context.Background(), "anything", 5, 0.7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if hits != nil {
		t.Errorf("hits = %+v, want nil", hits)
	}
}

func TestFormatHits(t *testing.T) {
	hits := []Hit{
		{
			Passage: Passage{
				ID: "abcdef1234567890:v1:p0", DocumentID: "abcdef1234567890",
				PageStart: 2, PageEnd: 3, PropertyName: "riverview", Text: "lease body",
			},
			Similarity: 0.91,
		},
	}
	out := FormatHits(hits)
	for _, want := range []string{"abcdef123456 p.2-3", "riverview", "lease body", "0.9100"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if got := FormatHits(nil); got != "No results found." {
		t.Errorf("empty = %q", got)
	}
}
