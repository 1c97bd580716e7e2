package store

import (
	"Go2AdversaryLab/internal/model"
	"math"
	"slices"
	"strconv"
	"strings"
)

// parseFinite parses v as a finite number. "nan" and "inf" count as text.
func parseFinite(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CompareValues orders feature values: numerically when both parse as finite
// numbers, byte-wise otherwise. Numbers sort before text.
func CompareValues(a, b string) int {
	fa, okA := parseFinite(a)
	fb, okB := parseFinite(b)
	switch {
	case okA && okB:
		if fa < fb {
			return -1
		}
		if fa > fb {
			return 1
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// SortEntries sorts the entries of a feature's table into Scan order in place.
// Values of text features are compared byte-wise even when they look numeric.
func SortEntries(f model.Feature, entries []model.Entry) {
	compare := CompareValues
	if !f.Numeric() {
		compare = strings.Compare
	}
	slices.SortFunc(entries, func(a, b model.Entry) int {
		return compare(a.Value, b.Value)
	})
}
