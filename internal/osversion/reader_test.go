package osversion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniongithub/balena-cli/internal/devicetype"
	"github.com/aniongithub/balena-cli/internal/image"
)

type fakeAPI struct {
	versions []string
	err      error
	calls    int
}

func (f *fakeAPI) GetOSVersions(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.versions, f.err
}

type fakeImages struct {
	data []byte
	err  error
}

func (f *fakeImages) ReadFile(_ context.Context, _ string, _ image.Location) ([]byte, error) {
	return f.data, f.err
}

var rpi = &devicetype.Manifest{Slug: "raspberrypi3"}

func TestReader_ImageVersionWins(t *testing.T) {
	api := &fakeAPI{}
	r := Reader{API: api, Images: &fakeImages{data: []byte("ID=balena-os\nVERSION=\"2.113.12\"\n")}}

	v, err := r.Resolve(context.Background(), "balena.img", "", rpi)
	require.NoError(t, err)
	assert.Equal(t, "2.113.12", v)
	// No request means no version-list fetch.
	assert.Zero(t, api.calls)
}

func TestReader_ExactRequestSkipsVersionList(t *testing.T) {
	api := &fakeAPI{}
	r := Reader{API: api, Images: &fakeImages{err: errors.New("no such file")}}

	v, err := r.Resolve(context.Background(), "balena.img", "2.108.28", rpi)
	require.NoError(t, err)
	assert.Equal(t, "2.108.28", v)
	assert.Zero(t, api.calls)
}

func TestReader_RangeFetchesVersionList(t *testing.T) {
	api := &fakeAPI{versions: []string{"2.108.28", "2.113.12", "3.0.4"}}
	r := Reader{API: api, Images: &fakeImages{err: errors.New("no such file")}}

	v, err := r.Resolve(context.Background(), "balena.img", "^2.0.0", rpi)
	require.NoError(t, err)
	assert.Equal(t, "2.113.12", v)
	assert.Equal(t, 1, api.calls)
}

func TestReader_VersionListFetchFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("api down")}
	r := Reader{API: api, Images: &fakeImages{}}

	_, err := r.Resolve(context.Background(), "balena.img", "latest", rpi)
	assert.Error(t, err)
}

func TestReader_NoVersionAnywhere(t *testing.T) {
	r := Reader{API: &fakeAPI{}, Images: &fakeImages{err: errors.New("no such file")}}

	_, err := r.Resolve(context.Background(), "balena.img", "", rpi)
	assert.ErrorIs(t, err, ErrVersionRequired)
}

func TestParseOSRelease(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"quoted", "NAME=\"balenaOS\"\nVERSION=\"2.113.12\"\n", "2.113.12"},
		{"unquoted", "VERSION=2.113.12\n", "2.113.12"},
		{"missing", "NAME=\"balenaOS\"\n", ""},
		{"empty", "", ""},
		{"version_id ignored", "VERSION_ID=2.113\nVERSION=2.113.12\n", "2.113.12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOSRelease([]byte(tt.data)))
		})
	}
}
