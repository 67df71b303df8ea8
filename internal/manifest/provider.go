// Package manifest resolves device-type manifests for a provisioning run.
//
// balenaOS images newer than 2.14 embed their own device-type descriptor in
// the boot partition; the provider prefers that copy and falls back to the
// API when the image has none or it describes a different device type.
package manifest

import (
	"context"
	"encoding/json"

	"github.com/aniongithub/balena-cli/internal/devicetype"
	"github.com/aniongithub/balena-cli/internal/image"
)

// EmbeddedPath is where images carry their own device-type descriptor.
var EmbeddedPath = image.Location{Partition: image.BootPartition, Path: "/device-type.json"}

// API is the subset of the balena API the provider needs.
type API interface {
	GetDeviceTypeManifest(ctx context.Context, slug string) (*devicetype.Manifest, error)
}

// Provider fetches manifests, image copy first.
type Provider struct {
	api    API
	images image.Reader
}

// NewProvider returns a provider reading embedded manifests through images
// and falling back to api.
func NewProvider(api API, images image.Reader) *Provider {
	return &Provider{api: api, images: images}
}

// GetManifest returns the device-type manifest for slug. The copy embedded in
// the image wins when present and matching; anything else goes to the API.
func (p *Provider) GetManifest(ctx context.Context, imagePath, slug string) (*devicetype.Manifest, error) {
	if m := p.embedded(ctx, imagePath); m != nil && m.Slug == slug {
		return m, nil
	}
	return p.api.GetDeviceTypeManifest(ctx, slug)
}

// embedded returns the image's own manifest, or nil when the image carries
// none or it cannot be parsed.
func (p *Provider) embedded(ctx context.Context, imagePath string) *devicetype.Manifest {
	if p.images == nil || imagePath == "" {
		return nil
	}
	data, err := p.images.ReadFile(ctx, imagePath, EmbeddedPath)
	if err != nil {
		return nil
	}
	var m devicetype.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return &m
}
