package query

import (
	"fmt"
	"strings"

	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/extract"
)

// ItemKind tells a structured fact from a retrieved passage.
type ItemKind string

const (
	ItemFact    ItemKind = "fact"
	ItemPassage ItemKind = "passage"
)

// Item is one ranked entry in a context bundle. Every item names the
// document and page range it came from.
type Item struct {
	Kind       ItemKind `json:"kind"`
	Text       string   `json:"text"`
	DocumentID string   `json:"document_id"`
	PageStart  int      `json:"page_start"`
	PageEnd    int      `json:"page_end"`
	// Score orders the bundle: similarity for passages, a fixed fact rank
	// for structured results.
	Score float64 `json:"score"`
	// Record is set for facts; NeedsReview surfaces low-confidence data.
	NeedsReview bool `json:"needs_review,omitempty"`
}

// ContextBundle is the assembled retrieval result.
type ContextBundle struct {
	Query      string           `json:"query"`
	Intent     Intent           `json:"intent"`
	Items      []Item           `json:"items"`
	Aggregates *extract.Summary `json:"aggregates,omitempty"`
	// Partial marks a hybrid result where one path failed and the other
	// stood in for it.
	Partial bool `json:"partial"`
	// Truncated marks a bundle cut down to the context budget.
	Truncated bool `json:"truncated"`
}

// factText renders a structured record as a one-line fact.
func factText(r *document.StructuredRecord) string {
	var b strings.Builder
	switch r.Entity {
	case document.EntityUnit:
		fmt.Fprintf(&b, "Unit %s", r.Key)
		if f := r.Field("unit_type"); f != nil {
			fmt.Fprintf(&b, " (%s)", f.Value)
		}
		fmt.Fprintf(&b, ":")
		if f := r.Field("rent_amount"); f != nil {
			fmt.Fprintf(&b, " rent $%s,", f.Value)
		}
		if f := r.Field("area_sqft"); f != nil {
			fmt.Fprintf(&b, " %s sqft,", f.Value)
		}
		if f := r.Field("status"); f != nil {
			fmt.Fprintf(&b, " %s,", f.Value)
		}
	case document.EntityLease:
		fmt.Fprintf(&b, "Lease for unit %s:", r.Key)
		if f := r.Field("tenant_name"); f != nil {
			fmt.Fprintf(&b, " tenant %s,", f.Value)
		}
		if f := r.Field("lease_start"); f != nil {
			fmt.Fprintf(&b, " from %s,", f.Value)
		}
		if f := r.Field("lease_end"); f != nil {
			fmt.Fprintf(&b, " to %s,", f.Value)
		}
	case document.EntityTenant:
		fmt.Fprintf(&b, "Tenant %s:", r.Key)
		if f := r.Field("unit_number"); f != nil {
			fmt.Fprintf(&b, " unit %s,", f.Value)
		}
	default:
		fmt.Fprintf(&b, "%s %s:", r.Entity, r.Key)
		for _, f := range r.Fields {
			fmt.Fprintf(&b, " %s=%s,", f.Name, f.Value)
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(b.String()), ",")
}
