// Package deviceconfig builds and validates the config.json descriptor
// embedded into a provisioned image.
package deviceconfig

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/aniongithub/balena-cli/internal/answers"
	"github.com/aniongithub/balena-cli/internal/api"
)

// Descriptor is one config.json payload. Beyond the typed settings below it
// carries whatever extra answers the device type declared, so it stays a map.
type Descriptor map[string]any

// Empty reports whether the descriptor has no content. A supplied config file
// that parses to an empty descriptor does not suppress generation.
func (d Descriptor) Empty() bool {
	return len(d) == 0
}

// Bytes renders the descriptor as the JSON written into the image.
func (d Descriptor) Bytes() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config descriptor: %w", err)
	}
	return data, nil
}

// MinPollInterval is the minimum supervisor update poll interval, in
// milliseconds (10 minutes).
const MinPollInterval = 10 * 60 * 1000

// Settings are the typed fields of a descriptor. Everything else rides along
// untyped.
type Settings struct {
	ApplicationID         int    `mapstructure:"applicationId,omitempty"`
	DeviceType            string `mapstructure:"deviceType" validate:"required"`
	UUID                  string `mapstructure:"uuid,omitempty"`
	DeviceAPIKey          string `mapstructure:"deviceApiKey,omitempty"`
	APIEndpoint           string `mapstructure:"apiEndpoint,omitempty" validate:"omitempty,url"`
	AppUpdatePollInterval int    `mapstructure:"appUpdatePollInterval,omitempty" validate:"omitempty,gte=600000"`
	Network               string `mapstructure:"network,omitempty" validate:"omitempty,oneof=ethernet wifi"`
	WifiSsid              string `mapstructure:"wifiSsid,omitempty"`
	WifiKey               string `mapstructure:"wifiKey,omitempty"`
}

var validate = validator.New()

// Generator produces descriptors for devices and fleets.
type Generator struct {
	// APIEndpoint is baked into every descriptor so the provisioned device
	// knows which API to register against.
	APIEndpoint string
}

// GenerateDevice builds the descriptor for a device target. Device
// descriptors embed the freshly provisioned device API key.
func (g Generator) GenerateDevice(dev *api.Device, apiKey string, r answers.Resolved) (Descriptor, error) {
	s := g.settings(dev.DeviceType, r)
	s.ApplicationID = dev.ApplicationID
	s.UUID = dev.UUID
	s.DeviceAPIKey = apiKey
	return build(s, r)
}

// GenerateApplication builds the descriptor for a fleet target. The device
// registers itself on first boot, so no device key is embedded.
func (g Generator) GenerateApplication(app *api.Application, r answers.Resolved) (Descriptor, error) {
	s := g.settings(app.DeviceType, r)
	s.ApplicationID = app.ID
	return build(s, r)
}

func (g Generator) settings(deviceType string, r answers.Resolved) Settings {
	if dt := r.String("deviceType"); dt != "" {
		deviceType = dt
	}
	return Settings{
		DeviceType:            deviceType,
		APIEndpoint:           g.APIEndpoint,
		AppUpdatePollInterval: pollIntervalMs(r.Values[keyPollInterval]),
		Network:               r.String(answers.KeyNetwork),
		WifiSsid:              r.String(answers.KeyWifiSsid),
		WifiKey:               r.String(answers.KeyWifiKey),
	}
}

// build merges the untyped answers under the typed settings (typed values
// win) and validates the result.
func build(s Settings, r answers.Resolved) (Descriptor, error) {
	d := make(Descriptor, len(r.Values)+8)
	for k, v := range r.Values {
		if k == "version" {
			continue
		}
		d[k] = v
	}

	var typed map[string]any
	if err := mapstructure.Decode(s, &typed); err != nil {
		return nil, fmt.Errorf("failed to encode config settings: %w", err)
	}
	for k, v := range typed {
		d[k] = v
	}

	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the typed fields of a descriptor, supplied or generated.
func Validate(d Descriptor) error {
	var s Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build descriptor decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(d)); err != nil {
		return fmt.Errorf("invalid config descriptor: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid config descriptor: %w", err)
	}
	return nil
}

// Load reads a pre-generated descriptor from a local JSON file. An empty or
// whitespace-only file yields an empty descriptor, not an error.
func Load(path string) (Descriptor, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) == 0 {
		return Descriptor{}, nil
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return d, nil
}

// keyPollInterval is the answer key for the supervisor poll interval, which
// interactive flows collect in minutes.
const keyPollInterval = "appUpdatePollInterval"

// pollIntervalMs converts an answered poll interval (minutes, as whatever
// type the source produced) to milliseconds. Unanswered or unparseable
// values yield 0, which omits the field.
func pollIntervalMs(v any) int {
	minutes := 0
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		minutes = n
	case int64:
		minutes = int(n)
	case float64:
		if n != math.Trunc(n) {
			return 0
		}
		minutes = int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		minutes = parsed
	default:
		return 0
	}
	if minutes <= 0 {
		return 0
	}
	return minutes * 60 * 1000
}
