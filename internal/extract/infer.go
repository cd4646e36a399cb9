package extract

import (
	"strconv"
	"strings"
)

// normalizeUnitType maps raw unit-type codes to bedroom classes. MBL2AC60
// style codes encode the bedroom count after the letter prefix.
func normalizeUnitType(raw string) (string, bool) {
	if strings.HasPrefix(raw, "MBL") {
		for _, r := range raw[3:] {
			if r >= '1' && r <= '9' {
				return string(r) + "BR", true
			}
		}
	}
	return raw, raw != ""
}

// inferUnitType guesses a bedroom class from rent or area when the document
// never states a type. Returns the source candidate so the caller can derive
// confidence and attribution from it.
func inferUnitType(resolved map[string]candidate) (string, candidate, bool) {
	if c, ok := resolved["rent_amount"]; ok {
		if rent, err := strconv.ParseFloat(c.value, 64); err == nil {
			switch {
			case rent > 2000:
				return "3BR", c, true
			case rent > 1500:
				return "2BR", c, true
			case rent > 1000:
				return "1BR", c, true
			case rent > 0:
				return "Studio", c, true
			}
		}
	}
	if c, ok := resolved["area_sqft"]; ok {
		if area, err := strconv.Atoi(c.value); err == nil {
			switch {
			case area > 1200:
				return "3BR", c, true
			case area > 800:
				return "2BR", c, true
			case area > 500:
				return "1BR", c, true
			case area > 0:
				return "Studio", c, true
			}
		}
	}
	return "", candidate{}, false
}
