package deviceconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniongithub/balena-cli/internal/answers"
	"github.com/aniongithub/balena-cli/internal/api"
)

var gen = Generator{APIEndpoint: "https://api.balena-cloud.com"}

func resolved(values map[string]any) answers.Resolved {
	return answers.Resolved{Values: values}
}

func TestGenerateDevice(t *testing.T) {
	dev := &api.Device{ID: 7, UUID: "1234abcd", DeviceType: "raspberrypi3", ApplicationID: 42}

	d, err := gen.GenerateDevice(dev, "device-key", resolved(map[string]any{
		"network":  "wifi",
		"wifiSsid": "home",
		"wifiKey":  "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 42, d["applicationId"])
	assert.Equal(t, "raspberrypi3", d["deviceType"])
	assert.Equal(t, "1234abcd", d["uuid"])
	assert.Equal(t, "device-key", d["deviceApiKey"])
	assert.Equal(t, "https://api.balena-cloud.com", d["apiEndpoint"])
	assert.Equal(t, "wifi", d["network"])
	assert.Equal(t, "home", d["wifiSsid"])
}

func TestGenerateApplication(t *testing.T) {
	app := &api.Application{ID: 42, Slug: "gh_me/myfleet", DeviceType: "raspberry-pi2"}

	d, err := gen.GenerateApplication(app, resolved(map[string]any{"network": "ethernet"}))
	require.NoError(t, err)

	assert.Equal(t, 42, d["applicationId"])
	assert.Equal(t, "raspberry-pi2", d["deviceType"])
	assert.Equal(t, "ethernet", d["network"])

	// Fleet descriptors carry no device key; the device registers on boot.
	_, ok := d["deviceApiKey"]
	assert.False(t, ok)
	_, ok = d["uuid"]
	assert.False(t, ok)
}

func TestGenerate_DeviceTypeAnswerOverrides(t *testing.T) {
	app := &api.Application{ID: 42, DeviceType: "raspberry-pi2"}

	d, err := gen.GenerateApplication(app, resolved(map[string]any{"deviceType": "raspberrypi3"}))
	require.NoError(t, err)
	assert.Equal(t, "raspberrypi3", d["deviceType"])
}

func TestGenerate_PollIntervalNormalizedToMs(t *testing.T) {
	app := &api.Application{ID: 42, DeviceType: "raspberry-pi2"}

	tests := []struct {
		name   string
		answer any
		wantMs any
	}{
		{"int minutes", 10, 600000},
		{"string minutes", "15", 900000},
		{"float minutes", float64(20), 1200000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := gen.GenerateApplication(app, resolved(map[string]any{
				"appUpdatePollInterval": tt.answer,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMs, d["appUpdatePollInterval"])
		})
	}
}

func TestGenerate_PollIntervalBelowMinimumRejected(t *testing.T) {
	app := &api.Application{ID: 42, DeviceType: "raspberry-pi2"}

	_, err := gen.GenerateApplication(app, resolved(map[string]any{
		"appUpdatePollInterval": 5,
	}))
	assert.Error(t, err)
}

func TestGenerate_ExtraAnswersRideAlong(t *testing.T) {
	app := &api.Application{ID: 42, DeviceType: "raspberry-pi2"}

	d, err := gen.GenerateApplication(app, resolved(map[string]any{
		"persistentLogging": true,
		"version":           "2.113.12", // derived field, not part of the descriptor
	}))
	require.NoError(t, err)
	assert.Equal(t, true, d["persistentLogging"])
	_, ok := d["version"]
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		wantErr bool
	}{
		{"minimal valid", Descriptor{"deviceType": "raspberrypi3"}, false},
		{"missing device type", Descriptor{"applicationId": 42}, true},
		{"bad endpoint", Descriptor{"deviceType": "x", "apiEndpoint": "not a url"}, true},
		{"bad network value", Descriptor{"deviceType": "x", "network": "token-ring"}, true},
		{"weakly typed application id", Descriptor{"deviceType": "x", "applicationId": "42"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.d)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"deviceType": "raspberrypi3", "applicationId": 42}`), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.False(t, d.Empty())
	assert.Equal(t, "raspberrypi3", d["deviceType"])
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestDescriptor_Bytes(t *testing.T) {
	data, err := Descriptor{"deviceType": "raspberrypi3"}.Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"deviceType": "raspberrypi3"}`, string(data))
}
