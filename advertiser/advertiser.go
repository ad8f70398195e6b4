// Package advertiser is the public DNS-SD advertiser API: it populates a
// record database and answers mDNS queries against it over a multicast
// socket. It does not probe for name conflicts before advertising (RFC
// 6762 §8's probing/rename machinery is out of scope).
package advertiser

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	internaladvertiser "github.com/joshuafuller/dnssd/internal/advertiser"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/security"
	"github.com/joshuafuller/dnssd/internal/svc"
	"github.com/joshuafuller/dnssd/internal/telemetry"
	"github.com/joshuafuller/dnssd/internal/transport"
)

// rateLimitThreshold/rateLimitCooldown/rateLimitMaxEntries match the
// security.RateLimiter's documented defaults: 100 queries/second per source, a 60-second cooldown,
// bounded to 10,000 tracked sources.
const (
	rateLimitThreshold  = 100
	rateLimitCooldown   = 60 * time.Second
	rateLimitMaxEntries = 10000
	cleanupInterval     = 5 * time.Minute
)

// Advertiser advertises services over mDNS, answering queries from a
// background receive loop.
type Advertiser struct {
	hostname   string
	logger     *logrus.Logger
	registerer prometheus.Registerer

	domain      name.Name
	db          *internaladvertiser.Database
	transport   transport.Transport
	rateLimiter *security.RateLimiter
	tel         *telemetry.Telemetry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Advertiser bound to the "local." domain and starts its
// background query-handling loop over an IPv4 mDNS multicast socket.
func New(opts ...Option) (*Advertiser, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	hostname += ".local"

	domain, err := name.Parse("local.")
	if err != nil {
		return nil, err
	}

	tr, err := transport.NewMulticastV4Transport()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Advertiser{
		hostname:    hostname,
		domain:      domain,
		db:          internaladvertiser.NewDatabase(domain),
		transport:   tr,
		rateLimiter: security.NewRateLimiter(rateLimitThreshold, rateLimitCooldown, rateLimitMaxEntries),
		ctx:         ctx,
		cancel:      cancel,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			cancel()
			_ = tr.Close()
			return nil, err
		}
	}

	a.tel = telemetry.New("advertiser", a.registerer, loggerOpt(a.logger)...)

	a.wg.Add(2)
	go a.receiveLoop()
	go a.cleanupLoop()

	return a, nil
}

func loggerOpt(l *logrus.Logger) []telemetry.Option {
	if l == nil {
		return nil
	}
	return []telemetry.Option{telemetry.WithLogger(l)}
}

// AddName advertises an A or AAAA record (by addr's family) for
// hostname.local., where hostname is the single label passed in; the
// Advertiser's configured hostname is not used.
func (a *Advertiser) AddName(hostname string, addr net.IP) error {
	return a.db.AddName(hostname, addr)
}

// Register advertises s (SRV, TXT, and both PTR records), per RFC
// 6763 §4-9.
func (a *Advertiser) Register(s Service) error {
	if err := s.Validate(); err != nil {
		return err
	}
	host := a.hostname
	if s.Hostname != "" {
		host = s.Hostname
	}
	hostName, err := name.Parse(host)
	if err != nil {
		return err
	}

	transportKind := svc.TCP
	if strings.EqualFold(s.Transport, "udp") {
		transportKind = svc.Other
	}
	si := svc.ServiceInstance{
		Instance: s.InstanceName,
		Service:  svc.Service{Name: s.ServiceName, Transport: transportKind},
	}

	txt := svc.NewTxtRecords()
	for k, v := range s.TXT {
		txt.Set(k, []byte(v))
	}

	return a.db.AddInstance(si, hostName, s.Port, txt)
}

// receiveLoop is the background goroutine that reads inbound datagrams,
// applies rate limiting, hands them to the database's pure match-and-
// respond engine, and sends any produced response back over multicast.
func (a *Advertiser) receiveLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		default:
		}

		recvCtx, cancel := context.WithTimeout(a.ctx, 100*time.Millisecond)
		packet, src, err := a.transport.Receive(recvCtx)
		cancel()
		if err != nil {
			if a.ctx.Err() != nil {
				return
			}
			continue // per-receive timeout; poll again
		}

		qtype, ok := internaladvertiser.QuestionType(packet)
		if !ok {
			if a.tel != nil {
				a.tel.Log.WithFields(telemetry.Fields{"peer": src}).Debug("advertiser: dropping malformed query")
			}
			continue
		}
		sourceIP := sourceIPOf(src)
		if sourceIP != "" && !a.rateLimiter.Allow(sourceIP, qtype) {
			if a.tel != nil {
				a.tel.RecordError("rate_limited")
			}
			continue
		}

		resp, ok := a.db.HandlePacket(packet)
		if !ok {
			continue
		}
		group := protocol.MulticastGroupIPv4()
		if err := a.transport.Send(a.ctx, resp, group); err != nil && a.tel != nil {
			a.tel.RecordError("send_failed")
		}
	}
}

func sourceIPOf(addr net.Addr) string {
	if udpAddr, ok := addr.(*net.UDPAddr); ok {
		return udpAddr.IP.String()
	}
	return ""
}

// cleanupLoop periodically prunes the rate limiter's stale entries.
func (a *Advertiser) cleanupLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.rateLimiter.Cleanup()
		}
	}
}

// Close stops the background loops and releases the multicast socket.
func (a *Advertiser) Close() error {
	a.cancel()
	a.wg.Wait()
	return a.transport.Close()
}

// String renders the advertiser for diagnostics.
func (a *Advertiser) String() string {
	return fmt.Sprintf("Advertiser{hostname:%s, %s}", a.hostname, a.db.String())
}
