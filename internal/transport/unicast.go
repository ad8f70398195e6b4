package transport

import (
	"context"
	"net"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
)

// UnicastTransport is the client-side transport the resolver and discoverer
// use to talk to a specific configured DNS server: an ephemeral-port UDP
// socket, family-matched (udp4 or udp6) to that server, using the 512-byte
// strict-unicast buffer size class.
type UnicastTransport struct {
	conn *net.UDPConn
}

var _ Transport = (*UnicastTransport)(nil)

// NewUnicastTransport opens an ephemeral-port UDP socket in the given
// network family ("udp4" or "udp6"), matching the family of the server
// this transport will query.
func NewUnicastTransport(network string) (*UnicastTransport, error) {
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, &dnserrors.NetworkError{
			Operation: "listen unicast",
			Err:       err,
			Details:   "failed to open ephemeral-port socket",
		}
	}
	return &UnicastTransport{conn: conn}, nil
}

// Send transmits packet to dest, respecting ctx cancellation.
func (t *UnicastTransport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &dnserrors.NetworkError{Operation: "send unicast", Err: ctx.Err()}
	default:
	}
	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &dnserrors.NetworkError{Operation: "send unicast", Err: err}
	}
	if n != len(packet) {
		return &dnserrors.NetworkError{Operation: "send unicast", Err: net.ErrClosed}
	}
	return nil
}

// Receive waits for one inbound datagram, honoring ctx's deadline.
func (t *UnicastTransport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &dnserrors.NetworkError{Operation: "receive unicast", Err: ctx.Err()}
	default:
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil, nil, &dnserrors.NetworkError{Operation: "receive unicast", Details: "context has no deadline"}
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, &dnserrors.NetworkError{Operation: "set read deadline", Err: err}
	}

	bufPtr := unicastBufferPool.Get()
	defer unicastBufferPool.Put(bufPtr)
	buf := *bufPtr

	n, src, err := t.conn.ReadFrom(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil, &dnserrors.TimeoutError{Operation: "receive unicast", Err: err}
		}
		return nil, nil, &dnserrors.NetworkError{Operation: "receive unicast", Err: err}
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, src, nil
}

// Close releases the underlying socket.
func (t *UnicastTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &dnserrors.NetworkError{Operation: "close unicast", Err: err}
	}
	return nil
}
