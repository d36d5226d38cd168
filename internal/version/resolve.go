package version

import (
	"github.com/Masterminds/semver/v3"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
)

// Resolve returns the greatest version in versions that satisfies a semver
// constraint such as ">= 4.50, < 5". Versions that are not semver are
// skipped; the result is chosen by Compare so it agrees with Sort.
func Resolve(versions []string, constraint string) (string, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", errors.Validationf("invalid version constraint %q: %v", constraint, err)
	}
	var matching []string
	for _, v := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if c.Check(sv) {
			matching = append(matching, v)
		}
	}
	best, ok := Latest(matching)
	if !ok {
		return "", errors.UnknownVersionf("no registered version satisfies %q", constraint)
	}
	return best, nil
}
