package extract

import "regexp"

// Lexical patterns for the rent-roll vocabulary. Unit identifiers follow the
// BB-UUU building-unit convention; unit type codes look like MBL2AC60.
var (
	reUnitNumber = regexp.MustCompile(`\b(\d{2}-\d{3})\b`)
	reUnitType   = regexp.MustCompile(`\b(MBL\d+AC\d+|[A-Z]{2,4}\d+[A-Z]+\d+)\b`)
	reMoney      = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.\d{1,2})?)|\b([0-9]{1,3}(?:,[0-9]{3})*\.[0-9]{2})\b`)
	reSquareFeet = regexp.MustCompile(`(?i)\b(\d{1,2}?,?\d{3}|\d{3})\s*(?:sq\.?\s*ft\.?|sqft|square\s*feet)\b`)
	reBareArea   = regexp.MustCompile(`\b([1-9]\d{2,3})\b`)
	reDate       = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)
	reTenantName = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
	reOccupied   = regexp.MustCompile(`(?i)\b(occupied|rented)\b`)
	reVacant     = regexp.MustCompile(`(?i)\b(vacant|available|unrented)\b`)
)

// nonNameWords are capitalized tokens that show up in rent rolls but are
// never tenant names.
var nonNameWords = map[string]bool{
	"Unit": true, "Rent": true, "Total": true, "Notice": true,
	"Occupied": true, "Vacant": true, "Status": true, "Tenant": true,
	"Building": true, "Lease": true, "Roll": true, "Type": true,
	"Sqft": true, "Amount": true, "Monthly": true,
}

// isTableRow marks lines that look like rent-roll table rows: a unit
// identifier plus at least one money column.
func isTableRow(line string) bool {
	return reUnitNumber.MatchString(line) && reMoney.MatchString(line)
}

// Rule reliability weights. A field's confidence is the product of the page
// acquisition confidence and the weight of the rule that produced it, so a
// structural table hit on a clean digital page approaches 1.0 while a loose
// lexical hit on an OCR page stays well below the review threshold.
const (
	weightStructural = 0.95
	weightUnitNumber = 0.90
	weightUnitType   = 0.85
	weightMoney      = 0.80
	weightSquareFeet = 0.80
	weightBareArea   = 0.55
	weightDate       = 0.75
	weightStatus     = 0.90
	weightTenantName = 0.60
	// Types inferred from rent or area rather than read off the page.
	weightInferred = 0.40
)
