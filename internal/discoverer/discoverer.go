// Package discoverer implements the DNS-SD discoverer: service-type
// enumeration, instance enumeration, and instance-detail resolution, all
// built on top of a single retransmit-and-deadline query loop.
package discoverer

import (
	"context"
	"net"
	"time"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/message"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/rr"
	"github.com/joshuafuller/dnssd/internal/svc"
	"github.com/joshuafuller/dnssd/internal/telemetry"
	"github.com/joshuafuller/dnssd/internal/transport"
)

// Decision is the callback's continue/stop signal for SendQuery.
type Decision int

const (
	Continue Decision = iota
	Stop
)

// Discoverer browses one server for DNS-SD advertisements within one
// domain.
type Discoverer struct {
	transport transport.Transport
	server    net.Addr
	domain    name.Name
	tel       *telemetry.Telemetry
}

// New constructs a Discoverer bound to tr, querying server about domain
// (e.g. name.Parse("local.")).
func New(tr transport.Transport, server net.Addr, domain name.Name, tel *telemetry.Telemetry) *Discoverer {
	return &Discoverer{transport: tr, server: server, domain: domain, tel: tel}
}

// SendQuery encodes a single query carrying one question per qtype, sends
// it to the configured server, and receives datagrams until the overall
// deadline in ctx elapses. Each receive uses retransmitTimeout as its own
// per-receive deadline: if a receive times out and ctx's deadline has not
// yet elapsed, the query is retransmitted and receiving resumes; otherwise
// SendQuery returns. For every supported record decoded from the Answer
// section of a received datagram, cb is invoked; a Stop return causes
// immediate, successful termination of the loop. Malformed datagrams and
// records of unsupported types are logged and skipped.
func (d *Discoverer) SendQuery(ctx context.Context, qname name.Name, qtypes []protocol.QType, retransmitTimeout time.Duration, cb func(rr.Record) Decision) error {
	query, err := buildQuery(qname, qtypes)
	if err != nil {
		return err
	}

	if err := d.transport.Send(ctx, query, d.server); err != nil {
		return err
	}
	if d.tel != nil {
		d.tel.RecordQuery("discover")
	}

	for {
		recvCtx, cancel := withRetransmitDeadline(ctx, retransmitTimeout)
		resp, src, err := d.transport.Receive(recvCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil // overall deadline elapsed; exit successfully
			}
			// Per-receive timeout: retransmit and keep waiting.
			if err := d.transport.Send(ctx, query, d.server); err != nil {
				return err
			}
			if d.tel != nil {
				d.tel.RecordQuery("discover_retransmit")
			}
			continue
		}

		records, ok := decodeAnswers(resp)
		if !ok {
			if d.tel != nil {
				d.tel.RecordError("malformed_response")
				d.tel.Log.WithFields(telemetry.Fields{"peer": src}).Debug("discoverer: skipping malformed datagram")
			}
			continue
		}
		stop := false
		for _, rec := range records {
			if _, unsupported := rec.Data.(rr.Unknown); unsupported {
				if d.tel != nil {
					d.tel.Log.WithFields(telemetry.Fields{"peer": src, "type": rec.Data.Type().String()}).Debug("discoverer: skipping record of unsupported type")
				}
				continue
			}
			if cb(rec) == Stop {
				stop = true
				break
			}
		}
		if stop {
			return nil
		}
	}
}

// withRetransmitDeadline derives a context bounded by both parent's
// deadline and now+timeout, whichever comes first.
func withRetransmitDeadline(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func buildQuery(qname name.Name, qtypes []protocol.QType) ([]byte, error) {
	h := message.Header{ID: 0}
	enc := message.NewEncoder(make([]byte, 0, protocol.UnicastBufferSize), h)
	for _, qt := range qtypes {
		if err := enc.WriteQuestion(message.Question{Name: qname, Type: qt, Class: protocol.QClass(protocol.ClassIN)}); err != nil {
			return nil, err
		}
	}
	return enc.Finalize()
}

func decodeAnswers(resp []byte) ([]rr.Record, bool) {
	dec, h, err := message.NewDecoder(resp)
	if err != nil || !h.IsResponse() {
		return nil, false
	}
	if err := dec.To(message.SectionAnswer); err != nil {
		return nil, false
	}
	records, err := dec.Records()
	if err != nil {
		return nil, false
	}
	return records, true
}

// DiscoverServiceTypes queries PTR on the discovery meta-domain, decodes
// each PTR target as a Service, and invokes cb for every newly-seen
// service (deduped by the (name, transport) pair) until ctx's deadline
// elapses.
func (d *Discoverer) DiscoverServiceTypes(ctx context.Context, retransmitTimeout time.Duration, cb func(svc.Service)) error {
	metaName, err := svc.MetaQueryName(d.domain)
	if err != nil {
		return err
	}
	seen := make(map[svc.Service]bool)
	return d.SendQuery(ctx, metaName, []protocol.QType{protocol.QType(protocol.TypePTR)}, retransmitTimeout, func(rec rr.Record) Decision {
		ptr, ok := rec.Data.(rr.PTR)
		if !ok {
			return Continue
		}
		s, _, err := svc.ParseService(ptr.Target)
		if err != nil {
			return Continue
		}
		if seen[s] {
			return Continue
		}
		seen[s] = true
		cb(s)
		return Continue
	})
}

// DiscoverInstances queries PTR on service.transport.<domain>, decodes
// each PTR target as a ServiceInstance, and invokes cb for every newly-seen
// instance (deduped by full identity) until ctx's deadline elapses.
func (d *Discoverer) DiscoverInstances(ctx context.Context, service svc.Service, retransmitTimeout time.Duration, cb func(svc.ServiceInstance)) error {
	serviceName, err := service.ServiceName(d.domain)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	return d.SendQuery(ctx, serviceName, []protocol.QType{protocol.QType(protocol.TypePTR)}, retransmitTimeout, func(rec rr.Record) Decision {
		ptr, ok := rec.Data.(rr.PTR)
		if !ok {
			return Continue
		}
		si, _, err := svc.ParseServiceInstance(ptr.Target)
		if err != nil {
			return Continue
		}
		key := ptr.Target.String()
		if seen[key] {
			return Continue
		}
		seen[key] = true
		cb(si)
		return Continue
	})
}

// LoadInstanceDetails queries SRV and TXT together on
// instance.service.transport.<domain>. The first SRV seen becomes the
// result's host/port (later SRVs are ignored: this does not honor RFC 6763
// SRV-priority rules, a known, deliberately preserved gap). The first TXT
// seen becomes the result's TXT records. If no SRV is seen before ctx's
// deadline elapses, it returns a timeout error.
func (d *Discoverer) LoadInstanceDetails(ctx context.Context, instance svc.ServiceInstance, retransmitTimeout time.Duration) (svc.InstanceDetails, error) {
	fullName, err := instance.FullName(d.domain)
	if err != nil {
		return svc.InstanceDetails{}, err
	}

	var details svc.InstanceDetails
	haveSRV := false
	haveTXT := false

	err = d.SendQuery(ctx, fullName,
		[]protocol.QType{protocol.QType(protocol.TypeSRV), protocol.QType(protocol.TypeTXT)},
		retransmitTimeout,
		func(rec rr.Record) Decision {
			switch data := rec.Data.(type) {
			case rr.SRV:
				if !haveSRV {
					details.Host = data.Target
					details.Port = data.Port
					haveSRV = true
				}
			case rr.TXT:
				if !haveTXT {
					var strs [][]byte
					strs = append(strs, data.Strings...)
					details.TXT = svc.DecodeTxtRecords(strs)
					haveTXT = true
				}
			}
			if haveSRV && haveTXT {
				return Stop
			}
			return Continue
		},
	)
	if err != nil {
		return svc.InstanceDetails{}, err
	}
	if !haveSRV {
		return svc.InstanceDetails{}, &dnserrors.TimeoutError{Operation: "load instance details"}
	}
	if details.TXT == nil {
		details.TXT = svc.NewTxtRecords()
	}
	return details, nil
}
