package vectordb

import (
	"fmt"
	"strings"
)

// FormatHits renders search hits as human-readable text with attribution.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(hits)))

	for i, h := range hits {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f) ---\n", i+1, h.Similarity))

		loc := shortID(h.Passage.DocumentID)
		if h.Passage.PageStart > 0 {
			loc += fmt.Sprintf(" p.%d", h.Passage.PageStart)
			if h.Passage.PageEnd > h.Passage.PageStart {
				loc += fmt.Sprintf("-%d", h.Passage.PageEnd)
			}
		}
		sb.WriteString(fmt.Sprintf("Source: %s\n", loc))
		if h.Passage.PropertyName != "" {
			sb.WriteString(fmt.Sprintf("Property: %s\n", h.Passage.PropertyName))
		}

		sb.WriteString("\n")
		sb.WriteString(h.Passage.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
