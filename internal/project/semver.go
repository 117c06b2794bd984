package project

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// satisfies reports whether version matches a package-manager style range.
// Supported: "*", "x", exact, "=", ">", ">=", "<", "<=", "^", "~", comparator
// sets separated by spaces and alternatives separated by "||". Anything it
// cannot parse (tags, urls, protocols) matches nothing.
func satisfies(version, rng string) bool {
	v, ok := canonical(version)
	if !ok {
		return false
	}
	for _, alt := range strings.Split(rng, "||") {
		if matchSet(v, strings.Fields(alt)) {
			return true
		}
	}
	return false
}

func matchSet(v string, comparators []string) bool {
	if len(comparators) == 0 {
		return true
	}
	for _, c := range comparators {
		if !matchComparator(v, c) {
			return false
		}
	}
	return true
}

func matchComparator(v, c string) bool {
	if c == "*" || c == "x" || c == "X" {
		return true
	}

	for _, op := range []string{">=", "<=", ">", "<", "=", "^", "~"} {
		if !strings.HasPrefix(c, op) {
			continue
		}
		bound, ok := canonical(strings.TrimPrefix(c, op))
		if !ok {
			return false
		}
		cmp := semver.Compare(v, bound)
		switch op {
		case ">=":
			return cmp >= 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		case "<":
			return cmp < 0
		case "=":
			return cmp == 0
		case "^":
			return cmp >= 0 && semver.Compare(v, caretCeiling(bound)) < 0
		case "~":
			return cmp >= 0 && semver.Compare(v, tildeCeiling(bound)) < 0
		}
	}

	bound, ok := canonical(c)
	if !ok {
		return false
	}
	return semver.Compare(v, bound) == 0
}

// canonical converts "1.2.3" into the "v1.2.3" form x/mod/semver expects.
func canonical(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !semver.IsValid(s) {
		return "", false
	}
	return semver.Canonical(s), true
}

func triple(v string) (major, minor, patch int) {
	core := strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.SplitN(core, ".", 3)
	nums := [3]int{}
	for i := 0; i < len(parts) && i < 3; i++ {
		nums[i], _ = strconv.Atoi(parts[i])
	}
	return nums[0], nums[1], nums[2]
}

func format(major, minor, patch int) string {
	return "v" + strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch)
}

// caretCeiling returns the exclusive upper bound of ^v: the next change to
// the left-most non-zero component.
func caretCeiling(v string) string {
	major, minor, patch := triple(v)
	switch {
	case major > 0:
		return format(major+1, 0, 0) + "-0"
	case minor > 0:
		return format(0, minor+1, 0) + "-0"
	default:
		return format(0, 0, patch+1) + "-0"
	}
}

// tildeCeiling returns the exclusive upper bound of ~v: the next minor.
func tildeCeiling(v string) string {
	major, minor, _ := triple(v)
	return format(major, minor+1, 0) + "-0"
}
