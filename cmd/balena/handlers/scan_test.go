package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniongithub/balena-cli/internal/scan"
)

// saveAndRestoreScanFactories saves and restores scan factory functions.
func saveAndRestoreScanFactories(t *testing.T) {
	origScanSubnet := scanSubnet

	t.Cleanup(func() {
		scanSubnet = origScanSubnet
	})
}

func TestScan_PassesOptions(t *testing.T) {
	saveAndRestoreScanFactories(t)

	var gotSubnet string
	var gotTimeout time.Duration
	scanSubnet = func(_ context.Context, subnet string, timeout time.Duration) ([]scan.Device, error) {
		gotSubnet = subnet
		gotTimeout = timeout
		return []scan.Device{{Host: "192.168.1.5", Addr: "192.168.1.5:48484"}}, nil
	}

	err := Scan(context.Background(), ScanOptions{Subnet: "192.168.1.0/24", Timeout: 5 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.0/24", gotSubnet)
	assert.Equal(t, 5*time.Second, gotTimeout)
}

func TestScan_PropagatesError(t *testing.T) {
	saveAndRestoreScanFactories(t)

	scanSubnet = func(_ context.Context, _ string, _ time.Duration) ([]scan.Device, error) {
		return nil, errors.New("subnet 10.0.0.0/8 is too large to scan")
	}

	err := Scan(context.Background(), ScanOptions{Subnet: "10.0.0.0/8"})
	assert.Error(t, err)
}
