package answers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aniongithub/balena-cli/internal/devicetype"
)

func TestNormalizeFlagName(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"config-network", "network"},
		{"config-wifi-ssid", "wifiSsid"},
		{"config-wifi-key", "wifiKey"},
		{"config-app-update-poll-interval", "appUpdatePollInterval"},
		{"network", "network"},
		{"wifi-ssid", "wifiSsid"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFlagName(tt.flag))
		})
	}
}

func TestFromFlags(t *testing.T) {
	src := FromFlags(map[string]string{
		"config-wifi-ssid": "home",
		"config-wifi-key":  "secret",
		"config-network":   "", // unset flag must not shadow lower sources
	})

	assert.Equal(t, "flags", src.Name)

	v, ok := src.Lookup("wifiSsid")
	assert.True(t, ok)
	assert.Equal(t, "home", v)

	_, ok = src.Lookup("network")
	assert.False(t, ok)
}

func TestSource_Empty(t *testing.T) {
	assert.True(t, Source{Name: "file"}.Empty())
	assert.True(t, Source{Name: "file", Values: map[string]any{"x": nil}}.Empty())
	assert.False(t, Source{Name: "file", Values: map[string]any{"x": 1}}.Empty())
}

func TestAdvancedDefaults(t *testing.T) {
	m := &devicetype.Manifest{
		Options: []devicetype.OptionGroup{
			{
				IsGroup: true,
				Option:  devicetype.Option{Name: "advanced"},
				Options: []devicetype.Option{
					{Name: "appUpdatePollInterval", Type: "number", Default: 10},
					{Name: "persistentLogging", Type: "confirm"}, // no default, stays promptable
				},
			},
		},
	}

	src := AdvancedDefaults(m)
	v, ok := src.Lookup("appUpdatePollInterval")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	_, ok = src.Lookup("persistentLogging")
	assert.False(t, ok)
}

func TestAdvancedDefaults_NoAdvancedGroup(t *testing.T) {
	src := AdvancedDefaults(&devicetype.Manifest{})
	assert.True(t, src.Empty())
}
