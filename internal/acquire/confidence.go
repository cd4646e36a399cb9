package acquire

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	reCurr   = regexp.MustCompile(`[$£€]|\b(usd|eur|gbp)\b`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
	reUnit   = regexp.MustCompile(`\b\d{2}-\d{3}\b`)
)

// nonWhitespaceCount is the textual-density measure for a page.
func nonWhitespaceCount(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
		default:
			n++
		}
	}
	return n
}

// digitalConfidence scores machine-extracted page text. Density alone drives
// it: a full rent-roll page easily clears 800 characters.
func digitalConfidence(text string, densityThreshold int) float64 {
	n := nonWhitespaceCount(text)
	if n < densityThreshold {
		return 0
	}
	score := 0.6 + 0.4*float64(n)/800.0
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ocrConfidence scores recognized text by the presence of the artifacts a
// financial page is expected to carry. The result is capped at ceiling so an
// OCR page can never outrank a digital one.
func ocrConfidence(text string, ceiling float64) float64 {
	if nonWhitespaceCount(text) == 0 {
		return 0
	}
	low := strings.ToLower(text)
	score := 0.2
	if reDate.MatchString(low) {
		score += 0.2
	}
	if reCurr.MatchString(low) {
		score += 0.15
	}
	if reAmount.MatchString(low) {
		score += 0.15
	}
	if reUnit.MatchString(low) {
		score += 0.1
	}
	if len(text) > 120 {
		score += 0.1
	}
	if score > ceiling {
		score = ceiling
	}
	return score
}
