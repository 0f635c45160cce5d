// Package chapters compares chapter identifiers as stored in the library.
package chapters

import (
	"strconv"
	"strings"
)

// Parse reads a chapter identifier such as "363" or "12.5". A comma
// decimal separator is accepted.
func Parse(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// IsNewer reports whether next should replace current. Numeric chapters
// only move forward; if either side is not a number the new value wins.
func IsNewer(current, next string) bool {
	next = strings.TrimSpace(next)
	if next == "" {
		return false
	}

	_, okC := Parse(current)
	_, okN := Parse(next)
	if !okC || !okN {
		return next != strings.TrimSpace(current)
	}

	return Compare(next, current) > 0
}

// Compare orders two chapter identifiers numerically when both parse and
// lexically otherwise. It returns -1, 0 or 1.
func Compare(a, b string) int {
	fa, okA := Parse(a)
	fb, okB := Parse(b)

	switch {
	case okA && okB:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case okA:
		return -1
	case okB:
		return 1
	}

	return strings.Compare(a, b)
}
