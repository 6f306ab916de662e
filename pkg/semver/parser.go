// Package semver parses interface version numbers and builds the version sets a
// method registry declares support for.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:parser"

// AnyMajor is the sentinel for "no version pinned". It is never a member of a
// version set.
const AnyMajor uint8 = ^uint8(0)

var majorOnlyRegex = regexp.MustCompile(`^\d{1,3}$`)

// ParseMajor parses a designator version segment ("1", "12"). It reports false
// for anything that is not a decimal in 0..254.
func ParseMajor(segment string) (uint8, bool) {
	if !majorOnlyRegex.MatchString(segment) {
		return 0, false
	}
	n, err := strconv.Atoi(segment)
	if err != nil || n >= int(AnyMajor) {
		return 0, false
	}
	return uint8(n), true
}

// IsMajorOnly checks if a string is a bare major version (e.g., "3").
func IsMajorOnly(s string) bool {
	_, ok := ParseMajor(s)
	return ok
}

// ParseRange parses a version constraint such as "^2", "1 - 3" or ">=2, <5".
// Major-only strings are accepted and match exactly that major.
func ParseRange(expr string) (*masterminds.Constraints, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%s - empty version range", logPrefix)
	}
	if major, ok := ParseMajor(expr); ok {
		expr = fmt.Sprintf("%d.x", major)
	}
	c, err := masterminds.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version range %q: %w", logPrefix, expr, err)
	}
	return c, nil
}
