package acquire

import (
	"strings"

	"github.com/propdoc-io/propdoc/internal/document"
)

// deriveBlocks approximates page layout from extracted text. pdftotext keeps
// the column layout with -layout, so tabular regions survive as contiguous
// runs of rows carrying a unit identifier plus money columns. Coordinates
// are fractional line positions on the page.
func deriveBlocks(text string) []document.LayoutBlock {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(text) == "" {
		return []document.LayoutBlock{{Kind: document.BlockImage, X1: 1, Y1: 1}}
	}

	blocks := []document.LayoutBlock{{Kind: document.BlockText, X1: 1, Y1: 1}}

	tableStart, tableEnd := -1, -1
	for i, line := range lines {
		if isTableRow(line) {
			if tableStart < 0 {
				tableStart = i
			}
			tableEnd = i
		}
	}
	// Two rows make a table; a single hit is just a line with numbers on it.
	if tableStart >= 0 && tableEnd > tableStart {
		n := float64(len(lines))
		blocks = append(blocks, document.LayoutBlock{
			Kind: document.BlockTable,
			Y0:   float64(tableStart) / n,
			X1:   1,
			Y1:   float64(tableEnd+1) / n,
		})
	}

	return blocks
}

func isTableRow(line string) bool {
	return reUnit.MatchString(line) && reAmount.MatchString(line)
}
