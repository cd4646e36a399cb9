package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/propdoc-io/propdoc/internal/document"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(id, property, filename string) *document.Document {
	return &document.Document{
		ID:           id,
		PropertyName: property,
		Filename:     filename,
		PageCount:    2,
		Method:       document.MethodDigital,
		Status:       document.StatusPending,
		Version:      1,
	}
}

func unitRecord(t *testing.T, docID string, version int, unit, rent string, conf float64) *document.StructuredRecord {
	t.Helper()
	rec, err := document.NewStructuredRecord(docID, version, document.EntityUnit, unit, []document.ExtractedField{
		{Entity: document.EntityUnit, Name: "unit_number", Value: unit, Confidence: conf, PageNumber: 1},
		{Entity: document.EntityUnit, Name: "rent_amount", Value: rent, Confidence: conf, PageNumber: 1},
		{Entity: document.EntityUnit, Name: "status", Value: "occupied", Confidence: conf, PageNumber: 1},
	}, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	rec.ID = fmt.Sprintf("%s:v%d:unit:%s", docID, version, unit)
	return rec
}

func TestDocumentLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	doc := testDoc("hash1", "riverview", "rentroll.pdf")
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}

	if err := s.SetStatus(ctx, "hash1", document.StatusExtracted, ""); err != nil {
		t.Fatalf("pending -> extracted: %v", err)
	}
	if err := s.SetStatus(ctx, "hash1", document.StatusIndexed, ""); err != nil {
		t.Fatalf("extracted -> indexed: %v", err)
	}

	got, err := s.GetDocument(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != document.StatusIndexed {
		t.Errorf("status = %s, want indexed", got.Status)
	}
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}

	// Skipping extracted is not allowed.
	err := s.SetStatus(ctx, "hash1", document.StatusIndexed, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("pending -> indexed err = %v, want ErrIllegalTransition", err)
	}

	if err := s.SetStatus(ctx, "hash1", document.StatusFailed, "ocr exploded"); err != nil {
		t.Fatal(err)
	}
	// Failed is terminal.
	err = s.SetStatus(ctx, "hash1", document.StatusExtracted, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("failed -> extracted err = %v, want ErrIllegalTransition", err)
	}

	got, _ := s.GetDocument(ctx, "hash1")
	if got.FailReason != "ocr exploded" {
		t.Errorf("fail reason = %q", got.FailReason)
	}
}

func TestSetStatusMissingDocument(t *testing.T) {
	s := openTest(t)
	err := s.SetStatus(context.Background(), "nope", document.StatusExtracted, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertDocumentIdempotent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	doc := testDoc("hash1", "riverview", "a.pdf")
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "hash1", document.StatusExtracted, ""); err != nil {
		t.Fatal(err)
	}

	// Re-upserting the same hash must not reset the lifecycle.
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetDocument(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != document.StatusExtracted {
		t.Errorf("status = %s, want extracted after re-upsert", got.Status)
	}
}

func TestPagesRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	pages := []document.Page{
		{DocumentID: "hash1", Number: 1, Text: "page one", Method: document.MethodDigital, Confidence: 0.95},
		{DocumentID: "hash1", Number: 2, Text: "page two", Method: document.MethodOCR, Confidence: 0.7},
	}
	if err := s.SavePages(ctx, "hash1", pages); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPages(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("pages = %d, want 2", len(got))
	}
	if got[1].Method != document.MethodOCR || got[1].Confidence != 0.7 {
		t.Errorf("page 2 = %+v", got[1])
	}
}

func TestReplaceRecordsAndQuery(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	recs := []*document.StructuredRecord{
		unitRecord(t, "hash1", 1, "01-101", "1511.00", 0.9),
		unitRecord(t, "hash1", 1, "01-102", "950.00", 0.9),
	}
	if err := s.ReplaceRecords(ctx, "hash1", 1, recs); err != nil {
		t.Fatal(err)
	}

	got, err := s.QueryRecords(ctx, RecordFilter{Entity: document.EntityUnit})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Field("rent_amount") == nil {
		t.Fatal("fields not loaded")
	}

	byKey, err := s.QueryRecords(ctx, RecordFilter{Entity: document.EntityUnit, Key: "01-101"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byKey) != 1 || byKey[0].Key != "01-101" {
		t.Fatalf("key filter returned %d records", len(byKey))
	}
}

func TestQueryRecordsFieldPredicates(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	recs := []*document.StructuredRecord{
		unitRecord(t, "hash1", 1, "01-101", "1511.00", 0.9),
		unitRecord(t, "hash1", 1, "01-102", "950.00", 0.9),
	}
	if err := s.ReplaceRecords(ctx, "hash1", 1, recs); err != nil {
		t.Fatal(err)
	}

	expensive, err := s.QueryRecords(ctx, RecordFilter{
		Entity:       document.EntityUnit,
		FieldCompare: []FieldCompare{{Name: "rent_amount", Op: OpGT, Value: 1000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(expensive) != 1 || expensive[0].Key != "01-101" {
		t.Fatalf("rent > 1000 returned %d records", len(expensive))
	}

	occupied, err := s.QueryRecords(ctx, RecordFilter{
		Entity:      document.EntityUnit,
		FieldEquals: map[string]string{"status": "occupied"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(occupied) != 2 {
		t.Fatalf("status=occupied returned %d records", len(occupied))
	}

	if _, err := s.QueryRecords(ctx, RecordFilter{
		FieldCompare: []FieldCompare{{Name: "rent_amount", Op: CompareOp("; DROP TABLE records"), Value: 1}},
	}); err == nil {
		t.Fatal("invalid operator must be rejected")
	}
}

func TestQueryRecordsPropertyFilter(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDocument(ctx, testDoc("hash2", "lakeside", "b.pdf")); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceRecords(ctx, "hash1", 1, []*document.StructuredRecord{unitRecord(t, "hash1", 1, "01-101", "1511.00", 0.9)}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceRecords(ctx, "hash2", 1, []*document.StructuredRecord{unitRecord(t, "hash2", 1, "02-201", "1300.00", 0.9)}); err != nil {
		t.Fatal(err)
	}

	got, err := s.QueryRecords(ctx, RecordFilter{PropertyName: "lakeside"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Key != "02-201" {
		t.Fatalf("property filter returned %d records", len(got))
	}
}

func TestSupersededRecordsHiddenByDefault(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceRecords(ctx, "hash1", 1, []*document.StructuredRecord{unitRecord(t, "hash1", 1, "01-101", "1511.00", 0.9)}); err != nil {
		t.Fatal(err)
	}
	if err := s.SupersedeDocument(ctx, "hash1"); err != nil {
		t.Fatal(err)
	}

	visible, err := s.QueryRecords(ctx, RecordFilter{Entity: document.EntityUnit})
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 0 {
		t.Fatalf("superseded records leaked: %d", len(visible))
	}

	all, err := s.QueryRecords(ctx, RecordFilter{Entity: document.EntityUnit, IncludeSuperseded: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("IncludeSuperseded returned %d records", len(all))
	}
}

func TestReplaceRecordsSupersedesPriorVersion(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceRecords(ctx, "hash1", 1, []*document.StructuredRecord{unitRecord(t, "hash1", 1, "01-101", "1511.00", 0.9)}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceRecords(ctx, "hash1", 2, []*document.StructuredRecord{unitRecord(t, "hash1", 2, "01-101", "1600.00", 0.9)}); err != nil {
		t.Fatal(err)
	}

	got, err := s.QueryRecords(ctx, RecordFilter{Entity: document.EntityUnit})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want only the current version", len(got))
	}
	if got[0].Field("rent_amount").Value != "1600.00" {
		t.Errorf("rent = %q, want the new version's value", got[0].Field("rent_amount").Value)
	}
}

func TestNextVersion(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	v, err := s.NextVersion(ctx, "riverview", "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("first version = %d, want 1", v)
	}

	doc := testDoc("hash1", "riverview", "a.pdf")
	doc.Version = 1
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}

	v, err = s.NextVersion(ctx, "riverview", "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("next version = %d, want 2", v)
	}

	ids, err := s.PriorVersions(ctx, "riverview", "a.pdf", "hash2")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "hash1" {
		t.Fatalf("prior versions = %v", ids)
	}
}

func TestPassagesRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	passages := []document.Passage{
		{ID: document.PassageID("hash1", 1, 0), DocumentID: "hash1", Version: 1, Seq: 0, PageStart: 1, PageEnd: 1, Text: "first"},
		{ID: document.PassageID("hash1", 1, 1), DocumentID: "hash1", Version: 1, Seq: 1, PageStart: 1, PageEnd: 2, Text: "second"},
	}
	if err := s.SavePassages(ctx, "hash1", passages); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPassages(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("passages = %d, want 2", len(got))
	}
	if got[1].PageEnd != 2 || got[1].Text != "second" {
		t.Errorf("passage 2 = %+v", got[1])
	}
}

func TestReplaceRecordsSameVersionRewrite(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, testDoc("hash1", "riverview", "a.pdf")); err != nil {
		t.Fatal(err)
	}
	recs := []*document.StructuredRecord{
		unitRecord(t, "hash1", 1, "01-101", "1511.00", 0.9),
		unitRecord(t, "hash1", 1, "01-102", "950.00", 0.9),
	}
	if err := s.ReplaceRecords(ctx, "hash1", 1, recs); err != nil {
		t.Fatal(err)
	}

	// A retried ingest of the same bytes writes the same version with the
	// same deterministic record IDs. The rewrite must not trip over rows
	// left by the first attempt.
	if err := s.ReplaceRecords(ctx, "hash1", 1, recs); err != nil {
		t.Fatalf("same-version rewrite: %v", err)
	}

	got, err := s.QueryRecords(ctx, RecordFilter{Entity: document.EntityUnit})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("records after rewrite = %d, want 2", len(got))
	}
	for _, r := range got {
		if len(r.Fields) != 3 {
			t.Errorf("record %s has %d fields, want 3", r.Key, len(r.Fields))
		}
	}
}
