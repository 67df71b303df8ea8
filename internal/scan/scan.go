// Package scan discovers balenaOS devices on the local network by probing
// candidate hosts against the on-device supervisor API.
package scan

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DeviceAPIPort is the port the balenaOS device API listens on.
	DeviceAPIPort = 48484

	// DefaultTimeout bounds each individual host probe.
	DefaultTimeout = 2 * time.Second

	// DefaultConcurrency bounds parallel probes.
	DefaultConcurrency = 16
)

// Device is one reachable balenaOS device.
type Device struct {
	Host string
	Addr string
}

// Options tune a scan. The zero value uses the defaults above.
type Options struct {
	Port        int
	Timeout     time.Duration
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DeviceAPIPort
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Scan probes every candidate host concurrently with a bounded per-host
// timeout. Unreachable hosts are silently excluded; a scan only fails when
// the context is cancelled. Result order follows the input host order.
func Scan(ctx context.Context, hosts []string, opts Options) ([]Device, error) {
	opts = opts.withDefaults()

	client := &http.Client{Timeout: opts.Timeout}

	var mu sync.Mutex
	found := make(map[string]Device, len(hosts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, host := range hosts {
		host := host
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dev, ok := probe(ctx, client, host, opts.Port)
			if !ok {
				return nil
			}
			mu.Lock()
			found[host] = dev
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var devices []Device
	for _, host := range hosts {
		if dev, ok := found[host]; ok {
			devices = append(devices, dev)
		}
	}
	return devices, nil
}

// probe pings one host's device API. Any failure excludes the host.
func probe(ctx context.Context, client *http.Client, host string, port int) (Device, bool) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/ping", nil)
	if err != nil {
		return Device{}, false
	}

	resp, err := client.Do(req)
	if err != nil {
		return Device{}, false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Device{}, false
	}
	return Device{Host: host, Addr: addr}, true
}

// HostsFromCIDR expands a subnet into its candidate host addresses, network
// and broadcast addresses excluded. Subnets wider than /16 are refused to
// keep scans bounded.
func HostsFromCIDR(cidr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet %q: %w", cidr, err)
	}
	ip = ip.To4()
	if ip == nil {
		return nil, fmt.Errorf("only IPv4 subnets are supported, got %q", cidr)
	}
	ones, bits := ipnet.Mask.Size()
	if bits-ones > 16 {
		return nil, fmt.Errorf("subnet %q is too wide to scan, use /16 or narrower", cidr)
	}

	var hosts []string
	for addr := ip.Mask(ipnet.Mask); ipnet.Contains(addr); addr = nextIP(addr) {
		hosts = append(hosts, addr.String())
	}
	if len(hosts) > 2 {
		// Drop network and broadcast addresses.
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

func nextIP(ip net.IP) net.IP {
	next := make(net.IP, len(ip))
	copy(next, ip)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next
}
