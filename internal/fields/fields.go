// Package fields converts raw spreadsheet cells into typed values.
//
// Every parser in this package is total: malformed input maps to a defined
// zero or missing value instead of an error, so a single bad cell never
// aborts an upload. Callers must branch on Float.Valid rather than treating
// an absent value as zero.
package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float is a float64 that may be absent. The zero value is missing.
// Missing is not zero: a driver reporting 0% completion and a driver with no
// completion data at all must aggregate differently.
type Float struct {
	Value float64
	Valid bool
}

// Missing is the absent Float value.
var Missing = Float{}

// Of returns a present Float.
func Of(v float64) Float { return Float{Value: v, Valid: true} }

// MarshalJSON encodes a missing Float as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON decodes null as missing.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Missing
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// ParseRatio parses a "<to_be>/<total>" cell. Either side that fails to
// parse contributes 0. Delivered is total minus to-be, clamped at zero so
// inconsistent exports (to-be greater than total) never yield a negative
// delivered count.
func ParseRatio(s string) (toBe, total, delivered int) {
	left, right, _ := strings.Cut(s, "/")
	toBe = intOrZero(left)
	total = intOrZero(right)
	delivered = total - toBe
	if delivered < 0 {
		delivered = 0
	}
	return toBe, total, delivered
}

// intOrZero parses an integer-like cell, accepting float formatting
// ("123.0") the way spreadsheet exports produce it.
func intOrZero(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v)
	}
	return 0
}

// ParsePercent parses a completion cell formatted "<number>%" or
// "<number>". An empty cell and any unparseable cell are missing.
func ParsePercent(s string) Float {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "%")
	if s == "" {
		return Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing
	}
	return Of(v)
}

// ParseHours parses an "HH:MM:SS" inactivity cell into fractional hours.
// Anything other than exactly three integer components is missing.
func ParseHours(s string) Float {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Missing
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Missing
		}
		nums[i] = n
	}
	return Of(float64(nums[0]) + float64(nums[1])/60 + float64(nums[2])/3600)
}

// FormatHours renders fractional hours as "{H}h {M}m {S}s", rounding to the
// nearest whole second. Missing renders as "N/A" and negative values clamp
// to zero.
func FormatHours(f Float) string {
	if !f.Valid {
		return "N/A"
	}
	h := f.Value
	if h < 0 {
		h = 0
	}
	totalSeconds := int(math.Round(h * 3600))
	return fmt.Sprintf("%dh %dm %ds",
		totalSeconds/3600, (totalSeconds%3600)/60, totalSeconds%60)
}
