package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/network"
	"github.com/joshuafuller/dnssd/internal/protocol"
)

// MulticastV4Transport is the advertiser/querier-side mDNS transport over
// IPv4: bound to 0.0.0.0:5353, joined to 224.0.0.251, with SO_REUSEADDR and
// (where the platform supports it) SO_REUSEPORT so this process can run
// alongside Avahi or systemd-resolved on the same port.
type MulticastV4Transport struct {
	conn   *net.UDPConn
	pktcn  *ipv4.PacketConn
	group  *net.UDPAddr
}

var _ Transport = (*MulticastV4Transport)(nil)

// NewMulticastV4Transport binds an IPv4 mDNS multicast socket on all
// interfaces and joins the mDNS group on every interface returned by
// network.DefaultInterfaces. An interface that fails to join is skipped
// without being reported; construction fails only if no interface joined.
func NewMulticastV4Transport() (*MulticastV4Transport, error) {
	lc := net.ListenConfig{Control: PlatformControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", protocol.Port))
	if err != nil {
		return nil, &dnserrors.NetworkError{
			Operation: "listen multicast v4",
			Err:       err,
			Details:   fmt.Sprintf("failed to bind 0.0.0.0:%d", protocol.Port),
		}
	}
	conn := pc.(*net.UDPConn)

	pktConn := ipv4.NewPacketConn(conn)
	group := protocol.MulticastGroupIPv4()

	ifaces, err := network.DefaultInterfaces()
	if err != nil {
		_ = conn.Close()
		return nil, &dnserrors.NetworkError{Operation: "list interfaces", Err: err}
	}
	joined := 0
	for i := range ifaces {
		if err := pktConn.JoinGroup(&ifaces[i], group); err == nil {
			joined++
		}
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, &dnserrors.NetworkError{
			Operation: "join multicast group",
			Details:   "no multicast-capable interface joined 224.0.0.251",
		}
	}

	_ = pktConn.SetMulticastTTL(255)
	_ = pktConn.SetMulticastLoopback(false)

	return &MulticastV4Transport{conn: conn, pktcn: pktConn, group: group}, nil
}

// Send writes packet to dest (typically the mDNS group address, but unicast
// replies to a querier's source address are also valid per RFC 6762 §6.7).
func (t *MulticastV4Transport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &dnserrors.NetworkError{Operation: "send multicast v4", Err: ctx.Err()}
	default:
	}
	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &dnserrors.NetworkError{Operation: "send multicast v4", Err: err, Details: fmt.Sprintf("to %s", dest)}
	}
	if n != len(packet) {
		return &dnserrors.NetworkError{Operation: "send multicast v4", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(packet))}
	}
	return nil
}

// Receive waits for one inbound datagram, honoring ctx's deadline.
func (t *MulticastV4Transport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &dnserrors.NetworkError{Operation: "receive multicast v4", Err: ctx.Err()}
	default:
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &dnserrors.NetworkError{Operation: "set read deadline", Err: err}
		}
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}

	bufPtr := multicastBufferPool.Get()
	defer multicastBufferPool.Put(bufPtr)
	buf := *bufPtr

	n, src, err := t.conn.ReadFrom(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil, &dnserrors.TimeoutError{Operation: "receive multicast v4", Err: err}
		}
		return nil, nil, &dnserrors.NetworkError{Operation: "receive multicast v4", Err: err}
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, src, nil
}

// Close releases the underlying socket.
func (t *MulticastV4Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &dnserrors.NetworkError{Operation: "close multicast v4", Err: err}
	}
	return nil
}

// MulticastV6Transport mirrors MulticastV4Transport for the ff02::fb group.
type MulticastV6Transport struct {
	conn  *net.UDPConn
	pktcn *ipv6.PacketConn
	group *net.UDPAddr
}

var _ Transport = (*MulticastV6Transport)(nil)

// NewMulticastV6Transport binds an IPv6 mDNS multicast socket and joins
// ff02::fb on every multicast-capable interface.
func NewMulticastV6Transport() (*MulticastV6Transport, error) {
	lc := net.ListenConfig{Control: PlatformControl}
	pc, err := lc.ListenPacket(context.Background(), "udp6", net.JoinHostPort("::", strconv.Itoa(protocol.Port)))
	if err != nil {
		return nil, &dnserrors.NetworkError{
			Operation: "listen multicast v6",
			Err:       err,
			Details:   fmt.Sprintf("failed to bind [::]:%d", protocol.Port),
		}
	}
	conn := pc.(*net.UDPConn)

	pktConn := ipv6.NewPacketConn(conn)
	group := protocol.MulticastGroupIPv6()

	ifaces, err := network.DefaultInterfaces()
	if err != nil {
		_ = conn.Close()
		return nil, &dnserrors.NetworkError{Operation: "list interfaces", Err: err}
	}
	joined := 0
	for i := range ifaces {
		if err := pktConn.JoinGroup(&ifaces[i], group); err == nil {
			joined++
		}
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, &dnserrors.NetworkError{
			Operation: "join multicast group",
			Details:   "no multicast-capable interface joined ff02::fb",
		}
	}

	_ = pktConn.SetMulticastHopLimit(255)
	_ = pktConn.SetMulticastLoopback(false)

	return &MulticastV6Transport{conn: conn, pktcn: pktConn, group: group}, nil
}

// Send writes packet to dest.
func (t *MulticastV6Transport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &dnserrors.NetworkError{Operation: "send multicast v6", Err: ctx.Err()}
	default:
	}
	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &dnserrors.NetworkError{Operation: "send multicast v6", Err: err, Details: fmt.Sprintf("to %s", dest)}
	}
	if n != len(packet) {
		return &dnserrors.NetworkError{Operation: "send multicast v6", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(packet))}
	}
	return nil
}

// Receive waits for one inbound datagram, honoring ctx's deadline.
func (t *MulticastV6Transport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &dnserrors.NetworkError{Operation: "receive multicast v6", Err: ctx.Err()}
	default:
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &dnserrors.NetworkError{Operation: "set read deadline", Err: err}
		}
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}

	bufPtr := multicastBufferPool.Get()
	defer multicastBufferPool.Put(bufPtr)
	buf := *bufPtr

	n, src, err := t.conn.ReadFrom(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil, &dnserrors.TimeoutError{Operation: "receive multicast v6", Err: err}
		}
		return nil, nil, &dnserrors.NetworkError{Operation: "receive multicast v6", Err: err}
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, src, nil
}

// Close releases the underlying socket.
func (t *MulticastV6Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &dnserrors.NetworkError{Operation: "close multicast v6", Err: err}
	}
	return nil
}
