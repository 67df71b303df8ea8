package commands

import (
	"github.com/spf13/cobra"

	"github.com/aniongithub/balena-cli/cmd/balena/handlers"
)

// OS returns the parent command for balenaOS image operations.
func OS() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "os",
		Short: "Manage balenaOS images",
	}

	cmd.AddCommand(Configure())

	return cmd
}

// Configure returns the command for injecting configuration into a
// balenaOS image.
//
// The image is configured for a single device (--device) or for a fleet
// (--fleet), never both. Configuration answers come from config-* flags,
// an optional --config file, and the device type's declared defaults;
// anything still missing is asked interactively when a terminal is
// attached.
//
// Environment variables:
//
//	BALENA_TOKEN:   API token (required unless --config supplies a full descriptor)
//	BALENA_API_URL: API endpoint (default: https://api.balena-cloud.com)
func Configure() *cobra.Command {
	var opts handlers.ConfigureOptions

	cmd := &cobra.Command{
		Use:   "configure <image>",
		Short: "Configure a balenaOS image for a device or fleet",
		Long: `Configure a previously downloaded balenaOS image.

This command writes the device configuration into the image's boot
partition so the device registers with the right fleet on first boot.

Examples:
  # Configure an image for a fleet
  balena os configure balena.img --fleet myorg/myfleet

  # Configure an image for an existing device
  balena os configure balena.img --device 7cf02a6

  # Configure non-interactively with wifi credentials
  balena os configure balena.img --fleet myorg/myfleet \
    --config-network wifi --config-wifi-ssid Home --config-wifi-key hunter2

  # Inject NetworkManager connection profiles
  balena os configure balena.img --fleet myorg/myfleet \
    --system-connection ./wifi-office`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ImagePath = args[0]
			return handlers.Configure(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.DeviceUUID, "device", "d", "", "UUID of the device to configure the image for")
	cmd.Flags().StringVarP(&opts.FleetSlug, "fleet", "f", "", "Slug of the fleet to configure the image for")
	cmd.Flags().StringVarP(&opts.Application, "application", "a", "", "DEPRECATED alias for --fleet")
	cmd.Flags().StringVar(&opts.DeviceType, "device-type", "", "Provision for a device type compatible with the fleet's default")
	cmd.Flags().StringVar(&opts.Version, "version", "", "OS version: exact, a semver range, or default/latest/recommended")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a pre-generated config.json file")
	cmd.Flags().StringArrayVar(&opts.SystemConnections, "system-connection", nil, "Connection profile to inject (repeatable, order preserved)")
	cmd.Flags().BoolVar(&opts.Advanced, "advanced", false, "Ask advanced configuration questions instead of using defaults")

	cmd.Flags().StringVar(&opts.Network, "config-network", "", "Network type: ethernet or wifi")
	cmd.Flags().StringVar(&opts.WifiSsid, "config-wifi-ssid", "", "WiFi SSID")
	cmd.Flags().StringVar(&opts.WifiKey, "config-wifi-key", "", "WiFi passphrase")
	cmd.Flags().StringVar(&opts.AppUpdatePollInterval, "config-app-update-poll-interval", "", "Interval in minutes between update checks")

	return cmd
}
