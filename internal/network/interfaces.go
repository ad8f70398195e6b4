// Package network provides network interface filtering and management.
package network

import (
	"net"
)

// DefaultInterfaces returns network interfaces suitable for mDNS multicast,
// excluding VPN interfaces, Docker interfaces, loopback, and down interfaces.
// The advertiser and multicast transports use this as their default
// interface set; callers that need something narrower can filter the
// returned slice themselves before passing it on.
func DefaultInterfaces() ([]net.Interface, error) {
	allIfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	filtered := make([]net.Interface, 0, len(allIfaces))
	for _, iface := range allIfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isVPN(iface.Name) {
			continue
		}
		if isDocker(iface.Name) {
			continue
		}
		filtered = append(filtered, iface)
	}

	return filtered, nil
}

// isVPN returns true if the interface name matches a known VPN naming
// pattern: utun*/tun* (macOS/Linux TUN devices), ppp* (PPTP/L2TP), wg*/
// wireguard* and tailscale* (WireGuard-based VPNs).
func isVPN(name string) bool {
	vpnPrefixes := []string{"utun", "tun", "ppp", "wg", "tailscale", "wireguard"}
	for _, prefix := range vpnPrefixes {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// isDocker returns true if the interface name matches a known Docker
// networking pattern: docker0 (default bridge), veth* (container pairs),
// or br-* (custom bridge networks).
func isDocker(name string) bool {
	if name == "docker0" {
		return true
	}

	dockerPrefixes := []string{"veth", "br-"}
	for _, prefix := range dockerPrefixes {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}

	return false
}
