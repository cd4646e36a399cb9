package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/propdoc-io/propdoc/internal/extract"
	"github.com/propdoc-io/propdoc/internal/query"
)

func TestPrintBundleOccupancyRate(t *testing.T) {
	b := &query.ContextBundle{
		Intent: query.IntentStructured,
		Aggregates: &extract.Summary{
			TotalUnits:    2,
			OccupiedUnits: 1,
			VacantUnits:   1,
			OccupancyRate: 50, // Summarize reports a percentage
			TotalRent:     1511,
			AverageRent:   1511,
		},
	}

	var buf bytes.Buffer
	printBundle(&buf, b)
	out := buf.String()

	if !strings.Contains(out, "(50.0% occupancy)") {
		t.Errorf("output = %q, want the rate printed as 50.0%%", out)
	}
	if !strings.Contains(out, "Rent: $1511.00 total") {
		t.Errorf("output = %q, want the rent line", out)
	}
}
