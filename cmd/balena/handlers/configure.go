// Package handlers implements the command logic behind the CLI commands.
//
// Handlers wire the engine collaborators together, translate flag values
// into engine requests, and render results. Collaborator construction goes
// through package-level factory variables so tests can swap in mocks.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/aniongithub/balena-cli/internal/api"
	"github.com/aniongithub/balena-cli/internal/deviceconfig"
	"github.com/aniongithub/balena-cli/internal/image"
	"github.com/aniongithub/balena-cli/internal/manifest"
	"github.com/aniongithub/balena-cli/internal/osversion"
	"github.com/aniongithub/balena-cli/internal/prompt"
	"github.com/aniongithub/balena-cli/internal/provisioning"
	"github.com/aniongithub/balena-cli/internal/ui"
)

// ConfigureOptions carries the flag values bound by the commands package.
type ConfigureOptions struct {
	ImagePath         string
	DeviceUUID        string
	FleetSlug         string
	Application       string // deprecated alias for FleetSlug
	DeviceType        string
	Version           string
	ConfigPath        string
	SystemConnections []string
	Advanced          bool

	Network               string
	WifiSsid              string
	WifiKey               string
	AppUpdatePollInterval string
}

// Provisioner interface for testing - matches provisioning.Sequencer.
type Provisioner interface {
	Run(ctx context.Context, req provisioning.Request) (*provisioning.Result, error)
}

// Factory function variables - can be replaced in tests.
var (
	// newAPIClient builds the API client from the environment.
	newAPIClient = func() *api.Client {
		return api.NewClientFromEnv()
	}

	// newProvisioner assembles the provisioning engine with real
	// collaborators.
	newProvisioner = func(events provisioning.EventSink) Provisioner {
		client := newAPIClient()
		io := image.DiskIO{}
		return provisioning.New(provisioning.Deps{
			API:       client,
			Manifests: manifest.NewProvider(client, io),
			Versions:  osversion.Reader{API: client, Images: io},
			Prompter:  prompt.Prompter{},
			Generator: deviceconfig.Generator{APIEndpoint: client.BaseURL()},
			Writer:    io,
			Events:    events,
		})
	}

	// stdoutIsTerminal gates interactive prompting.
	stdoutIsTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
)

// Configure handles the os configure command.
//
// It translates flag values into a provisioning request, runs the engine,
// and prints a summary of what was written. Engine diagnostics go to
// stderr as structured log lines; the summary goes to stdout.
func Configure(ctx context.Context, opts ConfigureOptions) error {
	logger := newLogger()
	seq := newProvisioner(eventSink(logger))

	res, err := seq.Run(ctx, opts.request())
	if err != nil {
		return err
	}

	fmt.Println(ui.ConfigureSummary(opts.ImagePath, res))
	return nil
}

// request maps the flag values onto an engine request. The deprecated
// --application flag is folded into the fleet slug; the engine emits the
// deprecation warning.
func (o ConfigureOptions) request() provisioning.Request {
	fleet := o.FleetSlug
	deprecated := false
	if fleet == "" && o.Application != "" {
		fleet = o.Application
		deprecated = true
	}

	return provisioning.Request{
		ImagePath:          o.ImagePath,
		DeviceUUID:         o.DeviceUUID,
		FleetSlug:          fleet,
		DeviceTypeOverride: o.DeviceType,
		Version:            o.Version,
		ConfigPath:         o.ConfigPath,
		SystemConnections:  o.SystemConnections,
		ConfigFlags: map[string]string{
			"config-network":                  o.Network,
			"config-wifi-ssid":                o.WifiSsid,
			"config-wifi-key":                 o.WifiKey,
			"config-app-update-poll-interval": o.AppUpdatePollInterval,
		},
		Advanced:                  o.Advanced,
		Interactive:               stdoutIsTerminal(),
		DeprecatedApplicationFlag: deprecated,
	}
}

// newLogger builds the stderr console logger for engine diagnostics.
func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// eventSink renders engine events as structured log lines.
func eventSink(logger zerolog.Logger) provisioning.EventSink {
	return func(ev provisioning.Event) {
		entry := logger.Info()
		if ev.Level == provisioning.LevelWarn {
			entry = logger.Warn()
		}
		for k, v := range ev.Fields {
			entry = entry.Str(k, v)
		}
		entry.Msg(ev.Message)
	}
}
