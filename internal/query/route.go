// Package query classifies questions and runs them against the structured
// store, the semantic index, or both, fusing the results into an ordered
// context bundle with per-item attribution.
package query

import (
	"regexp"
	"strings"
)

// Intent is the retrieval strategy chosen for a query.
type Intent string

const (
	IntentStructured Intent = "structured"
	IntentSemantic   Intent = "semantic"
	IntentHybrid     Intent = "hybrid"
)

// Filter is the structured scope extracted from the query text.
type Filter struct {
	UnitNumber string
	UnitType   string
	Status     string
	Property   string
}

// Plan is a routed query: the intent plus the parameters each path needs.
type Plan struct {
	Query  string
	Intent Intent
	Filter Filter
	TopK   int
	Floor  float32
}

// Aggregate phrasing asks for exact numbers over records.
var aggregateWords = []string{
	"how many", "how much", "count", "total", "sum", "average", "avg",
	"occupancy rate", "vacancy rate", "number of", "percentage",
}

// Semantic phrasing asks for document content rather than figures.
var semanticWords = []string{
	"find", "show me", "describe", "explain", "policy", "policies",
	"terms", "about", "similar", "clause", "mention", "say about",
	"agreement", "provisions", "what does",
}

var (
	reQueryUnit    = regexp.MustCompile(`\b(\d{2}-\d{3})\b`)
	reBedrooms     = regexp.MustCompile(`\b([1-9])[\s-]*(?:br|bed|beds|bedroom|bedrooms)\b`)
	reMBLCode      = regexp.MustCompile(`\b(MBL\d+AC\d+)\b`)
	reComparison   = regexp.MustCompile(`\b(over|under|above|below|more than|less than|at least|at most)\b`)
	reStudio       = regexp.MustCompile(`\bstudios?\b`)
	reVacantWord   = regexp.MustCompile(`\b(vacant|vacanc\w*|available|unrented)\b`)
	reOccupiedWord = regexp.MustCompile(`\b(occupied|rented)\b`)
)

// Route classifies the query. The rules are deterministic: the same text
// always yields the same plan.
func Route(query string) Plan {
	lower := strings.ToLower(query)

	plan := Plan{Query: query, Filter: extractFilter(query)}

	structured := 0
	for _, w := range aggregateWords {
		if strings.Contains(lower, w) {
			structured++
		}
	}
	// An explicit unit identifier or a numeric comparison is a lookup the
	// structured store answers exactly.
	if plan.Filter.UnitNumber != "" {
		structured++
	}
	if reComparison.MatchString(lower) {
		structured++
	}

	semantic := 0
	for _, w := range semanticWords {
		if strings.Contains(lower, w) {
			semantic++
		}
	}

	switch {
	case structured > 0 && semantic == 0:
		plan.Intent = IntentStructured
	case semantic > 0 && structured == 0:
		plan.Intent = IntentSemantic
	default:
		// Mixed or unrecognized phrasing: take the union of both paths.
		plan.Intent = IntentHybrid
	}
	return plan
}

// extractFilter pulls structured scope out of the query text.
func extractFilter(query string) Filter {
	lower := strings.ToLower(query)
	var f Filter

	if m := reQueryUnit.FindString(query); m != "" {
		f.UnitNumber = m
	}
	if m := reMBLCode.FindString(query); m != "" {
		f.UnitType = m
	} else if m := reBedrooms.FindStringSubmatch(lower); m != nil {
		f.UnitType = m[1] + "BR"
	} else if reStudio.MatchString(lower) {
		f.UnitType = "Studio"
	}

	if reVacantWord.MatchString(lower) {
		f.Status = "vacant"
	} else if reOccupiedWord.MatchString(lower) {
		f.Status = "occupied"
	}
	return f
}

// ExampleQueries lists representative questions per intent, used by the CLI
// help and the dashboard.
func ExampleQueries() map[Intent][]string {
	return map[Intent][]string{
		IntentStructured: {
			"How many units are vacant?",
			"What is the total monthly rent?",
			"What is the average rent for 2 bedroom units?",
			"How many units rent for more than $1,500?",
			"What is the occupancy rate?",
		},
		IntentSemantic: {
			"Find lease agreements with pet policies",
			"What do the leases say about early termination?",
			"Show me documents that mention parking provisions",
		},
		IntentHybrid: {
			"Tell me about unit 01-101 and how many similar units are vacant",
			"How many leases mention pet policies?",
			"Which tenants moved in this year?",
		},
	}
}
