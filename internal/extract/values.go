package extract

import (
	"strconv"
	"strings"
	"time"
)

// parseMoney extracts candidate amounts from a line and returns the largest
// one above the fee cutoff: rent rolls list deposits and fees alongside the
// rent, and the rent is the dominant figure.
func parseMoney(line string) (string, bool) {
	var best float64
	matches := reMoney.FindAllStringSubmatch(line, -1)
	for _, m := range matches {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil || v <= 100 {
			continue
		}
		if v > best {
			best = v
		}
	}
	if best == 0 {
		return "", false
	}
	return strconv.FormatFloat(best, 'f', 2, 64), true
}

// dateFormats in preference order; two-digit years are rare but appear in
// older ledgers.
var dateFormats = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"1-2-2006",
	"2006-01-02",
}

// parseDate normalizes a date string to ISO form, rejecting implausible
// years.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, f := range dateFormats {
		t, err := time.Parse(f, s)
		if err != nil {
			continue
		}
		if t.Year() < 2000 || t.Year() > 2030 {
			continue
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}

// cleanTenantName strips rent-roll artifacts and rejects non-name matches.
func cleanTenantName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	words := strings.Fields(s)
	var kept []string
	for _, w := range words {
		if nonNameWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) < 2 {
		return "", false
	}
	name := strings.Join(kept, " ")
	for _, r := range strings.ReplaceAll(name, " ", "") {
		if !isLetter(r) {
			return "", false
		}
	}
	return name, true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// parseArea reads an explicit square-feet mention.
func parseArea(line string) (string, bool) {
	m := reSquareFeet.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n < 100 || n > 10000 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// parseBareArea reads a standalone 3-4 digit column as square footage.
// Only used inside structural table rows, where the column position makes
// the interpretation plausible; anything that is part of a money amount or
// a unit identifier is excluded.
func parseBareArea(line string) (string, bool) {
	stripped := reMoney.ReplaceAllString(line, " ")
	stripped = reUnitNumber.ReplaceAllString(stripped, " ")
	stripped = reUnitType.ReplaceAllString(stripped, " ")
	stripped = reDate.ReplaceAllString(stripped, " ")
	m := reBareArea.FindStringSubmatch(stripped)
	if m == nil {
		return "", false
	}
	n, _ := strconv.Atoi(m[1])
	if n < 100 || n > 10000 {
		return "", false
	}
	return strconv.Itoa(n), true
}
