package table

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses survey numeric text. Thousands separators (thou) are
// removed before parsing, so "1,250" reads as 1250. A zero thou disables
// separator handling. Blank text and non-finite values (NaN, Inf) are not
// numbers.
func ParseNumber(s string, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	// Normalize spaces
	raw = strings.ReplaceAll(raw, "\u00A0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}
	if thou != 0 && thou != '.' {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	// Quoted numbers occasionally survive an export round-trip
	raw = strings.Trim(raw, `"'`)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCode parses an integer category code such as "1" or "1.0".
func ParseCode(s string) (int, bool) {
	f, ok := ParseNumber(s, 0)
	if !ok {
		return 0, false
	}
	i := int(f)
	if float64(i) != f {
		return 0, false
	}
	return i, true
}
