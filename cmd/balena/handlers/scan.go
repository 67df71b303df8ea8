package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/aniongithub/balena-cli/internal/scan"
	"github.com/aniongithub/balena-cli/internal/ui"
)

// ScanOptions carries the flag values bound by the commands package.
type ScanOptions struct {
	Subnet  string
	Timeout time.Duration
}

// scanSubnet probes a subnet for devices - can be replaced in tests.
var scanSubnet = func(ctx context.Context, subnet string, timeout time.Duration) ([]scan.Device, error) {
	hosts, err := scan.HostsFromCIDR(subnet)
	if err != nil {
		return nil, err
	}
	return scan.Scan(ctx, hosts, scan.Options{Timeout: timeout})
}

// Scan handles the scan command.
func Scan(ctx context.Context, opts ScanOptions) error {
	devices, err := scanSubnet(ctx, opts.Subnet, opts.Timeout)
	if err != nil {
		return err
	}

	fmt.Println(ui.ScanResults(devices))
	return nil
}
