// Package netif resolves bind addresses from network interface names,
// so the daemon can attach itself to a VPN interface (tun0, wg0, zt...)
// whose address is not known ahead of time.
package netif

import (
	"net"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// Interface pairs an interface name with its first IPv4 address.
type Interface struct {
	Name string
	IP   string
}

// List returns the host's interfaces that carry an IPv4 address.
func List() ([]Interface, error) {
	stats, err := psnet.Interfaces()
	if err != nil {
		// mirror the original behavior: enumeration trouble degrades
		// to loopback instead of failing startup
		return []Interface{{Name: "lo", IP: "127.0.0.1"}}, nil
	}
	return FromStats(stats), nil
}

// FromStats extracts IPv4-bearing interfaces from a raw stat list.
// Split out so lookup logic is testable without touching the host.
func FromStats(stats psnet.InterfaceStatList) []Interface {
	var out []Interface
	for _, stat := range stats {
		for _, addr := range stat.Addrs {
			ip := ipv4Of(addr.Addr)
			if ip == "" {
				continue
			}
			out = append(out, Interface{Name: stat.Name, IP: ip})
			break
		}
	}
	return out
}

// ipv4Of parses addresses of the form "192.168.1.5/24" or bare IPs,
// returning "" for anything that is not IPv4.
func ipv4Of(addr string) string {
	host := addr
	if idx := strings.Index(addr, "/"); idx >= 0 {
		host = addr[:idx]
	}
	parsed := net.ParseIP(host)
	if parsed == nil || parsed.To4() == nil {
		return ""
	}
	return parsed.To4().String()
}

// IPByName returns the IPv4 address of the named interface.
func IPByName(interfaces []Interface, name string) (string, bool) {
	for _, iface := range interfaces {
		if iface.Name == name {
			return iface.IP, true
		}
	}
	return "", false
}

// FirstByPrefix returns the first interface whose name starts with prefix.
// Useful for ZeroTier-style interfaces with generated suffixes.
func FirstByPrefix(interfaces []Interface, prefix string) (Interface, bool) {
	for _, iface := range interfaces {
		if strings.HasPrefix(iface.Name, prefix) {
			return iface, true
		}
	}
	return Interface{}, false
}
