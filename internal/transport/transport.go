// Package transport provides the UDP endpoints this library sends and
// receives DNS/mDNS datagrams over: a unicast client transport for the
// resolver and discoverer, and real IPv4/IPv6 multicast transports for the
// advertiser and any multicast-mode querier. All three share one Transport
// interface so the protocol-role packages never touch net.PacketConn
// directly.
package transport

import (
	"context"
	"net"
)

// Transport abstracts the one send/receive/close socket contract every
// protocol role depends on, per the external I/O runtime contract: send_to,
// recv_from with a timeout (via ctx), close.
type Transport interface {
	// Send transmits packet to dest, respecting ctx cancellation.
	Send(ctx context.Context, packet []byte, dest net.Addr) error

	// Receive waits for one incoming datagram, respecting ctx's deadline or
	// cancellation. The returned slice is owned by the caller.
	Receive(ctx context.Context) ([]byte, net.Addr, error)

	// Close releases the underlying socket.
	Close() error
}
