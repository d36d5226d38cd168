// Package version orders schema versions, diffs the argument sets of two
// versions of a provider resource or Ansible module, and answers
// compatibility queries against a target version.
package version

import (
	"sort"
	"strings"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
)

// Validate reports whether v is a well-formed version: one or more
// non-empty dot-separated segments of ASCII letters, digits, '-', '_' or '+'.
func Validate(v string) error {
	if v == "" {
		return errors.Validationf("version is empty")
	}
	for _, seg := range strings.Split(v, ".") {
		if seg == "" {
			return errors.Validationf("version %q has an empty segment", v)
		}
		for _, c := range seg {
			if !isSegmentRune(c) {
				return errors.Validationf("version %q contains %q", v, c)
			}
		}
	}
	return nil
}

func isSegmentRune(c rune) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-' || c == '_' || c == '+'
}

// Compare orders two versions segment by segment and returns -1, 0 or 1.
//
// Two numeric segments compare by value. A numeric segment sorts before an
// alphanumeric one, and two alphanumeric segments compare lexically, which
// keeps the order total. When one version is a prefix of the other the
// shorter one is smaller.
func Compare(a, b string) (int, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return compare(a, b), nil
}

// MustCompare is Compare for versions already known to be valid.
func MustCompare(a, b string) int {
	c, err := Compare(a, b)
	if err != nil {
		panic(err)
	}
	return c
}

func compare(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return sign(len(as) - len(bs))
}

func compareSegment(a, b string) int {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && bn:
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			return sign(len(ta) - len(tb))
		}
		if c := strings.Compare(ta, tb); c != 0 {
			return c
		}
		// "01" and "1" are equal in value; fall back to the raw text so
		// distinct strings never compare equal.
		return strings.Compare(a, b)
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Sort orders versions ascending in place.
func Sort(versions []string) error {
	for _, v := range versions {
		if err := Validate(v); err != nil {
			return err
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return compare(versions[i], versions[j]) < 0
	})
	return nil
}

// Previous returns the greatest version in versions strictly below v.
func Previous(versions []string, v string) (string, bool) {
	var best string
	found := false
	for _, c := range versions {
		if compare(c, v) < 0 && (!found || compare(c, best) > 0) {
			best, found = c, true
		}
	}
	return best, found
}

// Latest returns the greatest version in versions.
func Latest(versions []string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	best := versions[0]
	for _, c := range versions[1:] {
		if compare(c, best) > 0 {
			best = c
		}
	}
	return best, true
}
