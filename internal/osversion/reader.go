package osversion

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aniongithub/balena-cli/internal/devicetype"
	"github.com/aniongithub/balena-cli/internal/image"
)

// VersionLocation is where balenaOS images record their own version.
var VersionLocation = image.Location{Partition: image.BootPartition, Path: "/os-release"}

// API lists the OS versions published for a device type.
type API interface {
	GetOSVersions(ctx context.Context, slug string) ([]string, error)
}

// Reader resolves the version for a run by combining the image's own
// metadata with the device type's published versions.
type Reader struct {
	API    API
	Images image.Reader
}

// Resolve implements the version-resolution collaborator contract. The
// published version list is only fetched when the request actually needs it
// (an alias or a range).
func (r Reader) Resolve(ctx context.Context, imagePath, requested string, m *devicetype.Manifest) (string, error) {
	var supported []string
	if needsSupported(requested) {
		versions, err := r.API.GetOSVersions(ctx, m.Slug)
		if err != nil {
			return "", err
		}
		supported = versions
	}
	return Resolve(requested, r.imageVersion(ctx, imagePath), supported)
}

// needsSupported reports whether resolving requested consults the published
// version list.
func needsSupported(requested string) bool {
	if requested == "" {
		return false
	}
	if isLatestAlias(requested) {
		return true
	}
	_, err := semver.StrictNewVersion(strings.TrimPrefix(requested, "v"))
	return err != nil
}

// imageVersion reads the version baked into the image, or "" when the image
// carries none.
func (r Reader) imageVersion(ctx context.Context, imagePath string) string {
	if r.Images == nil || imagePath == "" {
		return ""
	}
	data, err := r.Images.ReadFile(ctx, imagePath, VersionLocation)
	if err != nil {
		return ""
	}
	return ParseOSRelease(data)
}

// ParseOSRelease extracts the VERSION field from os-release style content.
func ParseOSRelease(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "VERSION=") {
			continue
		}
		return strings.Trim(strings.TrimPrefix(line, "VERSION="), `"'`)
	}
	return ""
}
