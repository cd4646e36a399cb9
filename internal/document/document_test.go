package document

import "testing"

func TestHashBytesStable(t *testing.T) {
	a := HashBytes([]byte("rent roll"))
	b := HashBytes([]byte("rent roll"))
	if a != b {
		t.Error("same bytes must hash identically")
	}
	if a == HashBytes([]byte("rent roll 2")) {
		t.Error("different bytes must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected sha256 hex length 64, got %d", len(a))
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusExtracted, true},
		{StatusPending, StatusFailed, true},
		{StatusExtracted, StatusIndexed, true},
		{StatusExtracted, StatusFailed, true},
		{StatusPending, StatusIndexed, false},
		{StatusIndexed, StatusExtracted, false},
		{StatusIndexed, StatusFailed, false},
		{StatusFailed, StatusPending, true},
		{StatusFailed, StatusExtracted, false},
		{StatusFailed, StatusIndexed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPassageIDDeterministic(t *testing.T) {
	if PassageID("abc", 1, 3) != PassageID("abc", 1, 3) {
		t.Error("passage IDs must be deterministic")
	}
	if PassageID("abc", 1, 3) == PassageID("abc", 2, 3) {
		t.Error("versions must yield distinct passage IDs")
	}
}

func TestNewStructuredRecordCompleteness(t *testing.T) {
	fields := []ExtractedField{
		{Entity: EntityUnit, Name: "unit_number", Value: "01-101", Confidence: 0.9, PageNumber: 1},
		{Entity: EntityUnit, Name: "rent_amount", Value: "1511.00", Confidence: 0.8, PageNumber: 2},
	}
	rec, err := NewStructuredRecord("doc1", 1, EntityUnit, "01-101", fields, 0.6)
	if err != nil {
		t.Fatalf("NewStructuredRecord: %v", err)
	}
	if !rec.Complete {
		t.Error("record with all required fields above threshold should be complete")
	}
	if rec.NeedsReview {
		t.Error("record should not need review")
	}
	if rec.PageStart != 1 || rec.PageEnd != 2 {
		t.Errorf("page range = [%d,%d], want [1,2]", rec.PageStart, rec.PageEnd)
	}
}

func TestNewStructuredRecordLowConfidenceFlaggedNotDropped(t *testing.T) {
	fields := []ExtractedField{
		{Entity: EntityUnit, Name: "unit_number", Value: "01-102", Confidence: 0.9, PageNumber: 1},
		{Entity: EntityUnit, Name: "rent_amount", Value: "1306.00", Confidence: 0.3, PageNumber: 1},
	}
	rec, err := NewStructuredRecord("doc1", 1, EntityUnit, "01-102", fields, 0.6)
	if err != nil {
		t.Fatalf("NewStructuredRecord: %v", err)
	}
	if rec.Complete {
		t.Error("record with a below-threshold required field must not be complete")
	}
	if !rec.NeedsReview {
		t.Error("record must be flagged needs_review")
	}
	f := rec.Field("rent_amount")
	if f == nil {
		t.Fatal("low-confidence field must be retained, not nulled")
	}
	if !f.NeedsReview {
		t.Error("low-confidence field must carry the needs_review flag")
	}
	if f.Value != "1306.00" {
		t.Errorf("value retained = %q", f.Value)
	}
}

func TestNewStructuredRecordRejectsInvalid(t *testing.T) {
	f := []ExtractedField{{Name: "x", Value: "y", Confidence: 1, PageNumber: 1}}
	if _, err := NewStructuredRecord("d", 1, Entity("boat"), "k", f, 0.5); err == nil {
		t.Error("unknown entity type must be rejected at construction")
	}
	if _, err := NewStructuredRecord("d", 1, EntityUnit, "", f, 0.5); err == nil {
		t.Error("empty key must be rejected")
	}
	if _, err := NewStructuredRecord("d", 1, EntityUnit, "k", nil, 0.5); err == nil {
		t.Error("empty field set must be rejected")
	}
}
