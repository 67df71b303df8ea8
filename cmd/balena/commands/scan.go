package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aniongithub/balena-cli/cmd/balena/handlers"
)

// Scan returns the command for discovering balenaOS devices on the local
// network.
//
// Devices are probed on the supervisor's device API port; hosts that do
// not answer are silently skipped.
func Scan() *cobra.Command {
	var opts handlers.ScanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover balenaOS devices on the local network",
		Long: `Scan a subnet for balenaOS devices.

Examples:
  # Scan the local subnet
  balena scan --subnet 192.168.1.0/24

  # Scan with a longer per-host timeout
  balena scan --subnet 10.0.0.0/24 --timeout 5s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Scan(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Subnet, "subnet", "", "CIDR subnet to scan (required)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Second, "Per-host probe timeout")
	_ = cmd.MarkFlagRequired("subnet")

	return cmd
}
