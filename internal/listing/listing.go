// Package listing provides pure predicate filtering and sorting helpers for
// collection endpoints. Inputs are never mutated; every call returns a fresh
// slice so repeated refinement over the same fetch stays deterministic.
package listing

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var collator = collate.New(language.English, collate.IgnoreCase)

// Filter returns the elements matching every predicate. Predicates compose
// with logical AND, so their order does not affect the result.
func Filter[T any](items []T, predicates ...func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		keep := true
		for _, pred := range predicates {
			if !pred(item) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, item)
		}
	}
	return out
}

// ContainsFold reports whether s contains substr, case-insensitively.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// DateWithin reports whether t falls inside the inclusive [from, to] range.
// A nil bound is open.
func DateWithin(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// SortBy returns a stably sorted copy of items ordered by cmp ascending.
func SortBy[T any](items []T, cmp func(a, b T) int) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// Directional applies a sort direction to cmp while keeping elements with a
// missing key at the end regardless of direction.
func Directional[T any](cmp func(a, b T) int, missing func(T) bool, descending bool) func(a, b T) int {
	return func(a, b T) int {
		am, bm := missing(a), missing(b)
		switch {
		case am && bm:
			return 0
		case am:
			return 1
		case bm:
			return -1
		}
		c := cmp(a, b)
		if descending {
			return -c
		}
		return c
	}
}

// CompareFold compares two strings case-insensitively using English collation.
func CompareFold(a, b string) int {
	return collator.CompareString(a, b)
}

// CompareNumericIDs compares identifier strings numerically. Values that do
// not parse as integers compare equal to each other and after every numeric
// value; pair with Directional's missing func to pin them last.
func CompareNumericIDs(a, b string) int {
	av, aok := ParseID(a)
	bv, bok := ParseID(b)
	switch {
	case aok && bok:
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case aok:
		return -1
	case bok:
		return 1
	default:
		return 0
	}
}

// ParseID parses a numeric identifier, reporting whether it was numeric.
func ParseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
