// Package resolver is the public stub-resolver API: it turns a host name
// into a set of addresses by querying one or more unicast DNS servers.
package resolver

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/name"
	internalresolver "github.com/joshuafuller/dnssd/internal/resolver"
	"github.com/joshuafuller/dnssd/internal/telemetry"
	"github.com/joshuafuller/dnssd/internal/transport"
)

// defaultTimeout is the per-receive socket timeout Resolve uses when the
// caller's context carries no deadline of its own.
const defaultTimeout = 2 * time.Second

// Resolver resolves host names against one or more unicast DNS servers, all
// of the same IP family.
type Resolver struct {
	transport *transport.UnicastTransport
	inner     *internalresolver.Resolver
	timeout   time.Duration
	logger    *logrus.Logger
	registerer prometheus.Registerer
	tel       *telemetry.Telemetry
}

// New constructs a Resolver that queries the given server endpoints (e.g.
// "192.0.2.1:53" or "[2001:db8::1]:53"), all of which must share one IP
// family; mixing families across servers panics, matching the internal
// resolver's programmer-error constraint.
func New(servers []string, opts ...Option) (*Resolver, error) {
	if len(servers) == 0 {
		return nil, &dnserrors.ValidationError{Field: "servers", Message: "at least one server is required"}
	}

	addrs := make([]net.Addr, 0, len(servers))
	for _, s := range servers {
		addr, err := net.ResolveUDPAddr("udp", s)
		if err != nil {
			return nil, &dnserrors.ValidationError{Field: "servers", Value: s, Message: "not a valid host:port"}
		}
		addrs = append(addrs, addr)
	}

	network := "udp4"
	if udpAddr, ok := addrs[0].(*net.UDPAddr); ok && udpAddr.IP.To4() == nil {
		network = "udp6"
	}
	tr, err := transport.NewUnicastTransport(network)
	if err != nil {
		return nil, err
	}

	r := &Resolver{transport: tr, timeout: defaultTimeout}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			_ = tr.Close()
			return nil, err
		}
	}

	r.tel = telemetry.New("resolver", r.registerer, telemetryLoggerOption(r.logger)...)
	r.inner = internalresolver.New(tr, addrs, false, r.tel)
	return r, nil
}

func telemetryLoggerOption(l *logrus.Logger) []telemetry.Option {
	if l == nil {
		return nil
	}
	return []telemetry.Option{telemetry.WithLogger(l)}
}

// Resolve looks up hostname's A and AAAA records. If ctx carries no
// deadline, one is derived from the resolver's configured timeout.
func (r *Resolver) Resolve(ctx context.Context, hostname string) ([]net.IP, error) {
	n, err := name.Parse(hostname)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.inner.Resolve(ctx, n)
}

// Close releases the resolver's socket.
func (r *Resolver) Close() error {
	return r.transport.Close()
}
