// Package columns heuristically locates the four semantically required
// columns in an uploaded delivery-monitoring export.
//
// Detection is a two-tier strategy: a case-insensitive marker-substring
// lookup over the header row, then a fixed positional fallback measured from
// the end of the column list. The fallback is best-effort and may pick the
// wrong column on exports with unusual shapes; the Matched flag on each
// selector exists so the shell can display what was actually chosen.
package columns

import (
	"strconv"
	"strings"
)

// Column identifies one selected column and how it was selected.
type Column struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Matched bool   `json:"matched"`
}

// Resolution holds the four column selectors used by the field parsers.
type Resolution struct {
	Driver     Column `json:"driver"`
	Ratio      Column `json:"ratio"`
	Completion Column `json:"completion"`
	Inactive   Column `json:"inactive"`
}

// Resolve selects the driver, ratio, completion and inactive columns from
// the header row. sample is the first data row (may be nil) and is used to
// recognise the ratio column by content when no header marker matches.
func Resolve(headers []string, sample []string) Resolution {
	return Resolution{
		Driver:     resolveOne(headers, []string{"driver"}, 0),
		Ratio:      resolveRatio(headers, sample),
		Completion: resolveOne(headers, []string{"completion"}, len(headers)-4),
		Inactive:   resolveOne(headers, []string{"inactive"}, len(headers)-1),
	}
}

func resolveOne(headers []string, markers []string, fallbackIdx int) Column {
	for i, h := range headers {
		lower := strings.ToLower(h)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return Column{Index: i, Name: h, Matched: true}
			}
		}
	}
	return fallback(headers, fallbackIdx)
}

func resolveRatio(headers []string, sample []string) Column {
	markers := []string{"to be", "delivered/total", "tobe/total"}
	if c := resolveOne(headers, markers, -1); c.Matched {
		return c
	}
	// No header marker: sniff the first data row for a "<num>/<num>" cell.
	for i, cell := range sample {
		if i < len(headers) && looksLikeRatio(cell) {
			return Column{Index: i, Name: headers[i], Matched: true}
		}
	}
	return fallback(headers, len(headers)-5)
}

// looksLikeRatio reports whether a cell splits on "/" into two numbers.
func looksLikeRatio(cell string) bool {
	left, right, found := strings.Cut(cell, "/")
	if !found {
		return false
	}
	return isNumeric(left) && isNumeric(right)
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// fallback clamps the positional index into range so short tables select a
// real column rather than panicking. The selection itself stays best-effort.
func fallback(headers []string, idx int) Column {
	if len(headers) == 0 {
		return Column{Index: -1}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(headers) {
		idx = len(headers) - 1
	}
	return Column{Index: idx, Name: headers[idx]}
}
