package wifi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

const hostPollInterval = 500 * time.Millisecond

// HostRadio drives a wireless interface managed by the host network stack.
// Association itself is handled by the system supplicant; the radio watches
// the interface state and reports what the kernel exposes.
type HostRadio struct {
	iface string
}

func NewHostRadio(iface string) *HostRadio {
	return &HostRadio{iface: iface}
}

// Associate waits for the kernel to report the link as operationally up.
func (r *HostRadio) Associate(ctx context.Context) error {
	for {
		if r.LinkUp() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrAssociationFailed, r.iface, ctx.Err())
		case <-time.After(hostPollInterval):
		}
	}
}

// Lease waits for a global unicast IPv4 address on the interface.
func (r *HostRadio) Lease(ctx context.Context) (netip.Addr, error) {
	for {
		if addr, ok := r.address(); ok {
			return addr, nil
		}
		select {
		case <-ctx.Done():
			return netip.Addr{}, fmt.Errorf("%w: %s: %v", ErrLeaseTimeout, r.iface, ctx.Err())
		case <-time.After(hostPollInterval):
		}
	}
}

func (r *HostRadio) address() (netip.Addr, bool) {
	ifc, err := net.InterfaceByName(r.iface)
	if err != nil {
		return netip.Addr{}, false
	}
	addrs, err := ifc.Addrs()
	if err != nil {
		return netip.Addr{}, false
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.Is4() && ip.IsGlobalUnicast() {
			return ip, true
		}
	}
	return netip.Addr{}, false
}

// LinkUp reads the interface operational state from sysfs.
func (r *HostRadio) LinkUp() bool {
	data, err := os.ReadFile("/sys/class/net/" + r.iface + "/operstate")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "up"
}

// SignalStrength parses the interface RSSI from /proc/net/wireless.
func (r *HostRadio) SignalStrength() (int, bool) {
	f, err := os.Open("/proc/net/wireless")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, r.iface+":") {
			continue
		}
		fields := strings.Fields(line)
		// iface: status link level noise ...
		if len(fields) < 4 {
			return 0, false
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			return 0, false
		}
		return int(level), true
	}
	return 0, false
}
