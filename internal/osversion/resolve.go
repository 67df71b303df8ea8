// Package osversion resolves the balenaOS version a run configures for,
// combining the user's request, the version embedded in the image, and the
// versions the device type supports.
package osversion

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrVersionRequired is returned when no version was requested and the image
// carries no version metadata.
var ErrVersionRequired = errors.New("no version found in the image; please specify one explicitly")

// Aliases that resolve to the newest supported final release.
func isLatestAlias(s string) bool {
	switch s {
	case "default", "latest", "recommended":
		return true
	}
	return false
}

// Resolve picks the OS version for a run.
//
// With no explicit request the image's own version wins; an image without
// version metadata makes an explicit request mandatory. An explicit request
// may be an exact version, the alias default/latest/recommended, or a semver
// range resolved against supported (highest matching final release wins).
func Resolve(requested, imageVersion string, supported []string) (string, error) {
	if requested == "" {
		if imageVersion == "" {
			return "", ErrVersionRequired
		}
		return imageVersion, nil
	}

	if isLatestAlias(requested) {
		v := highestFinal(supported)
		if v == "" {
			return "", fmt.Errorf("no final releases to satisfy %q", requested)
		}
		return v, nil
	}

	if _, err := semver.StrictNewVersion(strings.TrimPrefix(requested, "v")); err == nil {
		return requested, nil
	}

	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return "", fmt.Errorf("invalid version or range %q: %w", requested, err)
	}

	var best *semver.Version
	var bestRaw string
	for _, raw := range supported {
		v, err := semver.NewVersion(raw)
		if err != nil || v.Prerelease() != "" {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if best == nil {
		return "", fmt.Errorf("no version matching %q", requested)
	}
	return bestRaw, nil
}

// highestFinal returns the highest non-prerelease version in raw form, or ""
// when there is none.
func highestFinal(supported []string) string {
	type entry struct {
		raw string
		v   *semver.Version
	}
	var finals []entry
	for _, raw := range supported {
		v, err := semver.NewVersion(raw)
		if err != nil || v.Prerelease() != "" {
			continue
		}
		finals = append(finals, entry{raw: raw, v: v})
	}
	if len(finals) == 0 {
		return ""
	}
	sort.Slice(finals, func(i, j int) bool { return finals[i].v.LessThan(finals[j].v) })
	return finals[len(finals)-1].raw
}
