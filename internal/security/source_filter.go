// Package security provides security features including rate limiting
// and source IP validation for mDNS multicast traffic.
package security

import (
	"net"
)

// SourceFilter validates source IPs before parsing packets. Per RFC 6762
// §2, mDNS is link-local scope: source IPs must be link-local or on the
// same subnet as the receiving interface.
type SourceFilter struct {
	iface      net.Interface // Receiving interface
	ifaceAddrs []net.IPNet   // Cached interface addresses (avoids syscall per packet)
}

// NewSourceFilter creates a new source filter for the given interface,
// caching its addresses to avoid a syscall on every packet.
func NewSourceFilter(iface net.Interface) (*SourceFilter, error) {
	// Get interface addresses
	addrs, err := iface.Addrs()
	if err != nil {
		// If we can't get addresses, create filter without cached addresses
		// IsValid() will fall back to link-local check only
		return &SourceFilter{
			iface:      iface,
			ifaceAddrs: []net.IPNet{},
		}, nil
	}

	// Extract IPNet addresses and cache them
	var ipnets []net.IPNet
	for _, addr := range addrs {
		// addr is *net.IPNet or *net.IPAddr
		if ipnet, ok := addr.(*net.IPNet); ok {
			ipnets = append(ipnets, *ipnet)
		}
	}

	return &SourceFilter{
		iface:      iface,
		ifaceAddrs: ipnets,
	}, nil
}

// IsValid checks if the source IP is valid for mDNS: link-local (RFC 3927
// for IPv4, the fe80::/10 scope for IPv6) or on the same subnet as the
// receiving interface.
func (sf *SourceFilter) IsValid(srcIP net.IP) bool {
	if ip4 := srcIP.To4(); ip4 != nil {
		if ip4[0] == 169 && ip4[1] == 254 {
			return true // RFC 3927 link-local address
		}
	} else if srcIP.IsLinkLocalUnicast() {
		return true // fe80::/10
	}

	for _, ipnet := range sf.ifaceAddrs {
		if ipnet.Contains(srcIP) {
			return true // same subnet as interface
		}
	}

	return false
}

// isPrivate returns true if the IP is in a private address range
// (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16).
func isPrivate(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false // Not IPv4
	}

	// Check private ranges:
	// 10.0.0.0/8
	if ip4[0] == 10 {
		return true
	}

	// 172.16.0.0/12 (172.16.0.0 - 172.31.255.255)
	if ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31 {
		return true
	}

	// 192.168.0.0/16
	if ip4[0] == 192 && ip4[1] == 168 {
		return true
	}

	return false
}
