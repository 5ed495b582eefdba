package installer

import (
	"errors"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/serverkit/addonctl/internal/catalog"
)

// ErrNoCompatibleVersion is returned when no version of an item matches the
// target or the requested version does not exist.
var ErrNoCompatibleVersion = errors.New("no compatible version")

// PickVersion returns the newest version compatible with target. Versions
// are ordered by publish time; equal times fall back to comparing version
// numbers as semantic versions.
func PickVersion(versions []catalog.Version, target catalog.Target) (catalog.Version, error) {
	var compatible []catalog.Version
	for _, v := range versions {
		if target.Matches(v) {
			compatible = append(compatible, v)
		}
	}
	if len(compatible) == 0 {
		return catalog.Version{}, ErrNoCompatibleVersion
	}

	slices.SortStableFunc(compatible, func(a, b catalog.Version) int {
		if c := b.Published.Compare(a.Published); c != 0 {
			return c
		}
		return compareNumbers(b.Number, a.Number)
	})
	return compatible[0], nil
}

// compareNumbers compares version strings semantically when both parse and
// lexically otherwise.
func compareNumbers(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}

// findVersion looks a version up by provider ID or version number.
func findVersion(versions []catalog.Version, id string) (catalog.Version, bool) {
	for _, v := range versions {
		if v.ID == id || v.Number == id {
			return v, true
		}
	}
	return catalog.Version{}, false
}
