// Package discoverer is the public DNS-SD discoverer API: service-type
// enumeration, instance enumeration, and instance-detail resolution against
// a single configured server.
package discoverer

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	internaldiscoverer "github.com/joshuafuller/dnssd/internal/discoverer"
	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/svc"
	"github.com/joshuafuller/dnssd/internal/telemetry"
	"github.com/joshuafuller/dnssd/internal/transport"
)

const (
	defaultRetransmitTimeout = time.Second
	defaultOverallTimeout    = 5 * time.Second
)

// Service and ServiceInstance are re-exported so callers don't need their
// own import of the internal domain-model package.
type (
	Service         = svc.Service
	ServiceInstance = svc.ServiceInstance
	InstanceDetails = svc.InstanceDetails
	TxtRecords      = svc.TxtRecords
)

const (
	TCP   = svc.TCP
	Other = svc.Other
)

// Discoverer browses one DNS-SD server for advertised services.
type Discoverer struct {
	domainStr         string
	retransmitTimeout time.Duration
	logger            *logrus.Logger
	registerer        prometheus.Registerer

	transport *transport.UnicastTransport
	inner     *internaldiscoverer.Discoverer
	tel       *telemetry.Telemetry
}

// New constructs a Discoverer that queries server (e.g. "192.0.2.1:5353").
func New(server string, opts ...Option) (*Discoverer, error) {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, &dnserrors.ValidationError{Field: "server", Value: server, Message: "not a valid host:port"}
	}

	network := "udp4"
	if addr.IP.To4() == nil {
		network = "udp6"
	}
	tr, err := transport.NewUnicastTransport(network)
	if err != nil {
		return nil, err
	}

	d := &Discoverer{
		domainStr:         "local.",
		retransmitTimeout: defaultRetransmitTimeout,
		transport:         tr,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			_ = tr.Close()
			return nil, err
		}
	}

	domain, err := name.Parse(d.domainStr)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}

	d.tel = telemetry.New("discoverer", d.registerer, loggerOpt(d.logger)...)
	d.inner = internaldiscoverer.New(tr, addr, domain, d.tel)
	return d, nil
}

func loggerOpt(l *logrus.Logger) []telemetry.Option {
	if l == nil {
		return nil
	}
	return []telemetry.Option{telemetry.WithLogger(l)}
}

// withOverallDeadline ensures ctx carries a deadline, deriving one from
// defaultOverallTimeout if the caller didn't supply one.
func withOverallDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultOverallTimeout)
}

// DiscoverServiceTypes invokes cb for every distinct service type
// advertised under the configured domain, until ctx's (or the default)
// deadline elapses.
func (d *Discoverer) DiscoverServiceTypes(ctx context.Context, cb func(Service)) error {
	ctx, cancel := withOverallDeadline(ctx)
	defer cancel()
	return d.inner.DiscoverServiceTypes(ctx, d.retransmitTimeout, cb)
}

// DiscoverInstances invokes cb for every distinct instance of service,
// until ctx's (or the default) deadline elapses.
func (d *Discoverer) DiscoverInstances(ctx context.Context, service Service, cb func(ServiceInstance)) error {
	ctx, cancel := withOverallDeadline(ctx)
	defer cancel()
	return d.inner.DiscoverInstances(ctx, service, d.retransmitTimeout, cb)
}

// LoadInstanceDetails resolves instance's SRV/TXT records into host, port,
// and TXT metadata.
func (d *Discoverer) LoadInstanceDetails(ctx context.Context, instance ServiceInstance) (InstanceDetails, error) {
	ctx, cancel := withOverallDeadline(ctx)
	defer cancel()
	return d.inner.LoadInstanceDetails(ctx, instance, d.retransmitTimeout)
}

// Close releases the discoverer's socket.
func (d *Discoverer) Close() error {
	return d.transport.Close()
}
