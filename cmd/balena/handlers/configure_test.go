package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniongithub/balena-cli/internal/image"
	"github.com/aniongithub/balena-cli/internal/provisioning"
)

// mockProvisioner implements Provisioner for testing.
type mockProvisioner struct {
	req    provisioning.Request
	result *provisioning.Result
	err    error
}

func (m *mockProvisioner) Run(_ context.Context, req provisioning.Request) (*provisioning.Result, error) {
	m.req = req
	return m.result, m.err
}

// saveAndRestoreConfigureFactories saves and restores configure factory
// functions.
func saveAndRestoreConfigureFactories(t *testing.T) {
	origNewProvisioner := newProvisioner
	origStdoutIsTerminal := stdoutIsTerminal

	t.Cleanup(func() {
		newProvisioner = origNewProvisioner
		stdoutIsTerminal = origStdoutIsTerminal
	})
}

func okResult() *provisioning.Result {
	return &provisioning.Result{
		DeviceType: "raspberrypi3",
		Version:    "2.48.0+rev1",
		Written:    []image.Location{{Partition: 1, Path: "/config.json"}},
	}
}

func TestConfigure_BuildsRequest(t *testing.T) {
	saveAndRestoreConfigureFactories(t)

	mock := &mockProvisioner{result: okResult()}
	newProvisioner = func(_ provisioning.EventSink) Provisioner { return mock }
	stdoutIsTerminal = func() bool { return false }

	err := Configure(context.Background(), ConfigureOptions{
		ImagePath:         "balena.img",
		FleetSlug:         "myorg/myfleet",
		Version:           "^2.0.0",
		SystemConnections: []string{"./wifi-office"},
		Network:           "wifi",
		WifiSsid:          "Home",
		WifiKey:           "hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, "balena.img", mock.req.ImagePath)
	assert.Equal(t, "myorg/myfleet", mock.req.FleetSlug)
	assert.Equal(t, "^2.0.0", mock.req.Version)
	assert.Equal(t, []string{"./wifi-office"}, mock.req.SystemConnections)
	assert.Equal(t, "wifi", mock.req.ConfigFlags["config-network"])
	assert.Equal(t, "Home", mock.req.ConfigFlags["config-wifi-ssid"])
	assert.Equal(t, "hunter2", mock.req.ConfigFlags["config-wifi-key"])
	assert.False(t, mock.req.Interactive)
	assert.False(t, mock.req.DeprecatedApplicationFlag)
}

func TestConfigure_DeprecatedApplicationAlias(t *testing.T) {
	saveAndRestoreConfigureFactories(t)

	mock := &mockProvisioner{result: okResult()}
	newProvisioner = func(_ provisioning.EventSink) Provisioner { return mock }
	stdoutIsTerminal = func() bool { return false }

	err := Configure(context.Background(), ConfigureOptions{
		ImagePath:   "balena.img",
		Application: "myorg/legacy",
	})
	require.NoError(t, err)

	assert.Equal(t, "myorg/legacy", mock.req.FleetSlug)
	assert.True(t, mock.req.DeprecatedApplicationFlag)
}

func TestConfigure_FleetWinsOverApplication(t *testing.T) {
	saveAndRestoreConfigureFactories(t)

	mock := &mockProvisioner{result: okResult()}
	newProvisioner = func(_ provisioning.EventSink) Provisioner { return mock }
	stdoutIsTerminal = func() bool { return false }

	err := Configure(context.Background(), ConfigureOptions{
		ImagePath:   "balena.img",
		FleetSlug:   "myorg/current",
		Application: "myorg/legacy",
	})
	require.NoError(t, err)

	assert.Equal(t, "myorg/current", mock.req.FleetSlug)
	assert.False(t, mock.req.DeprecatedApplicationFlag)
}

func TestConfigure_InteractiveFollowsTerminal(t *testing.T) {
	saveAndRestoreConfigureFactories(t)

	mock := &mockProvisioner{result: okResult()}
	newProvisioner = func(_ provisioning.EventSink) Provisioner { return mock }
	stdoutIsTerminal = func() bool { return true }

	err := Configure(context.Background(), ConfigureOptions{
		ImagePath: "balena.img",
		FleetSlug: "myorg/myfleet",
	})
	require.NoError(t, err)

	assert.True(t, mock.req.Interactive)
}

func TestConfigure_PropagatesEngineError(t *testing.T) {
	saveAndRestoreConfigureFactories(t)

	mock := &mockProvisioner{err: provisioning.NewUsageError("either --device or --fleet is required")}
	newProvisioner = func(_ provisioning.EventSink) Provisioner { return mock }
	stdoutIsTerminal = func() bool { return false }

	err := Configure(context.Background(), ConfigureOptions{ImagePath: "balena.img"})
	require.Error(t, err)
	assert.True(t, provisioning.IsUsage(err))
}

func TestConfigure_EventSinkRendersWithoutPanic(t *testing.T) {
	sink := eventSink(newLogger())

	assert.NotPanics(t, func() {
		sink(provisioning.Event{Level: provisioning.LevelInfo, Message: "resolved device type manifest"})
		sink(provisioning.Event{
			Level:   provisioning.LevelWarn,
			Message: "the --application flag is deprecated, use --fleet instead",
			Fields:  map[string]string{"flag": "--application"},
		})
	})
}
