package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AmountTolerance is the absolute tolerance for comparing monetary amounts.
// Extracted values pass through string formatting on several hops, so exact
// float equality is not reliable.
const AmountTolerance = 0.001

// ParseAmount parses a monetary amount that may use either '.' or ',' as the
// fractional separator. Currency symbols and surrounding whitespace are not
// handled; the extractor is prompted to return bare numbers.
func ParseAmount(s string) (float64, error) {
	normalized := strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if normalized == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// AmountsEqual compares two nullable amount strings as numeric values within
// AmountTolerance. Two nils are equal; a nil against a value is not. A value
// that fails to parse makes the comparison fail closed.
func AmountsEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	av, err := ParseAmount(*a)
	if err != nil {
		return false
	}
	bv, err := ParseAmount(*b)
	if err != nil {
		return false
	}
	diff := av - bv
	if diff < 0 {
		diff = -diff
	}
	return diff <= AmountTolerance
}
