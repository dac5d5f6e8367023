// Package version orders package version strings. Dotted-numeric versions
// (any number of non-negative integer components, optional leading "v")
// compare component by component; any other pair compares lexically by byte
// order.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare returns -1, 0 or 1 as a is lower than, equal to or higher than b.
// An empty string sorts before any non-empty one. When either side is not
// dotted-numeric the pair falls back to strings.Compare, so "beta" < "rc"
// and "1.0.0-preview.3" > "1.0.0".
func Compare(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	av, aOK := parse(a)
	bv, bOK := parse(b)
	if !aOK || !bOK {
		return strings.Compare(a, b)
	}
	return compareParts(av, bv)
}

// AtLeast reports whether installed satisfies a minimum of required. An empty
// requirement is always satisfied.
func AtLeast(installed, required string) bool {
	if strings.TrimSpace(required) == "" {
		return true
	}
	return Compare(installed, required) >= 0
}

// Valid reports whether v is dotted-numeric and so orders numerically.
func Valid(v string) bool {
	_, ok := parse(strings.TrimSpace(v))
	return ok
}

// Lint returns a note describing how v will be ordered when that is not
// numerically, or "" for empty and dotted-numeric versions.
func Lint(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || Valid(v) {
		return ""
	}
	if sv, err := semver.NewVersion(v); err == nil && (sv.Prerelease() != "" || sv.Metadata() != "") {
		return fmt.Sprintf("version %q carries a prerelease or build suffix and is ordered as text", v)
	}
	return fmt.Sprintf("version %q is not dotted-numeric and is ordered as text", v)
}

// parse splits v into integer components. A missing component sorts lower,
// so "1.2" < "1.2.0".
func parse(v string) ([]uint64, bool) {
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return nil, false
	}
	fields := strings.Split(v, ".")
	parts := make([]uint64, len(fields))
	for i, f := range fields {
		if f == "" || strings.TrimLeft(f, "0123456789") != "" {
			return nil, false
		}
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, false
		}
		parts[i] = n
	}
	return parts, true
}

func compareParts(a, b []uint64) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
