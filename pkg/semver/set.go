package semver

import (
	"sort"
	"strconv"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

// VersionSet is an immutable set of interface majors. It is built either from
// explicit numbers or from a constraint evaluated against "<major>.0.0".
type VersionSet struct {
	majors     []uint8
	constraint *masterminds.Constraints
	expr       string
}

// Versions returns a set holding exactly the given majors. AnyMajor is dropped.
func Versions(majors ...uint8) VersionSet {
	seen := make(map[uint8]bool, len(majors))
	out := make([]uint8, 0, len(majors))
	for _, m := range majors {
		if m == AnyMajor || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return VersionSet{majors: out}
}

// Range returns a set holding every major that satisfies expr.
func Range(expr string) (VersionSet, error) {
	c, err := ParseRange(expr)
	if err != nil {
		return VersionSet{}, err
	}
	return VersionSet{constraint: c, expr: strings.TrimSpace(expr)}, nil
}

// MustRange is like Range but panics on an invalid expression.
func MustRange(expr string) VersionSet {
	s, err := Range(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports whether major belongs to the set.
func (s VersionSet) Contains(major uint8) bool {
	if major == AnyMajor {
		return false
	}
	if s.constraint != nil {
		return s.constraint.Check(masterminds.New(uint64(major), 0, 0, "", ""))
	}
	for _, m := range s.majors {
		if m == major {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no major can match.
func (s VersionSet) IsEmpty() bool {
	return len(s.List()) == 0
}

// List returns the members in ascending order.
func (s VersionSet) List() []uint8 {
	if s.constraint == nil {
		return append([]uint8(nil), s.majors...)
	}
	var out []uint8
	for m := 0; m < int(AnyMajor); m++ {
		if s.Contains(uint8(m)) {
			out = append(out, uint8(m))
		}
	}
	return out
}

// String renders the set as its range expression or as "[1 2 3]".
func (s VersionSet) String() string {
	if s.constraint != nil {
		return s.expr
	}
	parts := make([]string, len(s.majors))
	for i, m := range s.majors {
		parts[i] = strconv.Itoa(int(m))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
