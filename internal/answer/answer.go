// Package answer synthesizes natural-language answers from retrieval
// bundles. The query path works without it; synthesis is an optional layer
// on top of the bundle.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/propdoc-io/propdoc/internal/query"
)

// Attribution points an answer back at its sources.
type Attribution struct {
	DocumentID string `json:"document_id"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	Kind       string `json:"kind"`
}

// Answer is a synthesized response with its source attributions.
type Answer struct {
	Text         string        `json:"text"`
	Attributions []Attribution `json:"attributions"`
	Model        string        `json:"model"`
}

// Synthesizer turns a question and its context bundle into prose.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, bundle *query.ContextBundle) (*Answer, error)
}

const systemPrompt = `You are an assistant for property managers. You answer questions about
rent rolls, leases and tenant ledgers using ONLY the context provided.
Figures in the AGGREGATES section are computed exactly from the records;
never recompute or estimate them. If the context does not contain the
answer, say so. Cite units and documents the way the context names them.`

// RenderContext flattens a bundle into the grounded-context block of the
// prompt. Facts and passages keep their rank order.
func RenderContext(bundle *query.ContextBundle) string {
	var b strings.Builder

	if bundle.Aggregates != nil {
		a := bundle.Aggregates
		b.WriteString("AGGREGATES (exact):\n")
		fmt.Fprintf(&b, "- units: %d (occupied %d, vacant %d, occupancy %.1f%%)\n",
			a.TotalUnits, a.OccupiedUnits, a.VacantUnits, a.OccupancyRate)
		fmt.Fprintf(&b, "- rent: total $%.2f, average $%.2f\n", a.TotalRent, a.AverageRent)
		if a.TotalArea > 0 {
			fmt.Fprintf(&b, "- area: total %d sqft, average %.0f sqft\n", a.TotalArea, a.AverageArea)
		}
		b.WriteString("\n")
	}

	b.WriteString("CONTEXT:\n")
	for i, it := range bundle.Items {
		fmt.Fprintf(&b, "[%d] (%s, doc %s p.%d-%d) %s\n",
			i+1, it.Kind, shortID(it.DocumentID), it.PageStart, it.PageEnd, it.Text)
	}

	if bundle.Partial {
		b.WriteString("\nNOTE: one retrieval path was unavailable; the context may be incomplete.\n")
	}
	return b.String()
}

// Attributions copies the bundle's source references in rank order.
func Attributions(bundle *query.ContextBundle) []Attribution {
	out := make([]Attribution, 0, len(bundle.Items))
	for _, it := range bundle.Items {
		out = append(out, Attribution{
			DocumentID: it.DocumentID,
			PageStart:  it.PageStart,
			PageEnd:    it.PageEnd,
			Kind:       string(it.Kind),
		})
	}
	return out
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
