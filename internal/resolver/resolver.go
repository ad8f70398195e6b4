// Package resolver implements the stub resolver: it turns a host name into
// a set of addresses by sending one query carrying both an A and an AAAA
// question to one or more configured servers and collecting answers until
// either an address is seen or the receive deadline fires. It does not
// chase CNAME or NS records.
package resolver

import (
	"context"
	"fmt"
	"net"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/message"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/rr"
	"github.com/joshuafuller/dnssd/internal/telemetry"
	"github.com/joshuafuller/dnssd/internal/transport"
)

// queryID is the fixed DNS message ID this resolver stamps on every query.
// Responses are not checked against it: any well-formed response datagram
// that arrives on the resolver's socket is accepted, whatever its ID or
// source address.
const queryID = 12345

// Resolver is a stub resolver bound to one transport and one or more
// servers of a single IP family.
type Resolver struct {
	transport transport.Transport
	servers   []net.Addr
	multicast bool
	family    string // "udp4" or "udp6", fixed by the first server added
	tel       *telemetry.Telemetry
}

// New constructs a Resolver over tr, querying the given servers (which must
// all share one IP family). multicast marks this resolver as bound to a
// multicast transport, after which AddServer panics: a multicast resolver
// always queries its one fixed group address.
func New(tr transport.Transport, servers []net.Addr, multicast bool, tel *telemetry.Telemetry) *Resolver {
	r := &Resolver{transport: tr, multicast: multicast, tel: tel}
	for _, s := range servers {
		r.AddServer(s)
	}
	return r
}

// AddServer appends a server endpoint to query. It panics if the resolver
// is bound to a multicast transport (programmer error: a multicast
// resolver always targets its fixed group address), or if addr's IP
// family does not match the first server already configured.
func (r *Resolver) AddServer(addr net.Addr) {
	if r.multicast {
		panic("resolver: cannot add a server to a multicast resolver")
	}
	family := addrFamily(addr)
	if len(r.servers) == 0 {
		r.family = family
	} else if family != r.family {
		panic(fmt.Sprintf("resolver: server family %q does not match configured family %q", family, r.family))
	}
	r.servers = append(r.servers, addr)
}

func addrFamily(addr net.Addr) string {
	var ip net.IP
	switch a := addr.(type) {
	case *net.UDPAddr:
		ip = a.IP
	default:
		panic("resolver: unsupported address type")
	}
	if ip.To4() != nil {
		return "udp4"
	}
	return "udp6"
}

// Resolve constructs one query carrying (hostname, A) and (hostname, AAAA)
// questions with RD set, sends it to every configured server, then
// receives datagrams until one contains an A or AAAA answer (success) or
// ctx's deadline fires (timeout). Malformed or non-matching datagrams are
// logged and skipped without resetting the deadline.
func (r *Resolver) Resolve(ctx context.Context, hostname name.Name) ([]net.IP, error) {
	h := message.Header{ID: queryID}
	h = h.SetRD(true)
	enc := message.NewEncoder(make([]byte, 0, protocol.UnicastBufferSize), h)
	if err := enc.WriteQuestion(message.Question{Name: hostname, Type: protocol.QType(protocol.TypeA), Class: protocol.QClass(protocol.ClassIN)}); err != nil {
		return nil, err
	}
	if err := enc.WriteQuestion(message.Question{Name: hostname, Type: protocol.QType(protocol.TypeAAAA), Class: protocol.QClass(protocol.ClassIN)}); err != nil {
		return nil, err
	}
	query, err := enc.Finalize()
	if err != nil {
		return nil, err
	}

	for _, server := range r.servers {
		if err := r.transport.Send(ctx, query, server); err != nil {
			return nil, err
		}
		if r.tel != nil {
			r.tel.RecordQuery("A+AAAA")
		}
	}

	for {
		resp, src, err := r.transport.Receive(ctx)
		if err != nil {
			return nil, &dnserrors.TimeoutError{Operation: "resolve", Err: err}
		}

		ips, ok := extractAddresses(resp)
		if !ok {
			if r.tel != nil {
				r.tel.RecordError("malformed_response")
				r.tel.Log.WithFields(telemetry.Fields{"peer": src}).Debug("resolver: skipping malformed or non-response datagram")
			}
			continue
		}
		if len(ips) == 0 {
			if r.tel != nil {
				r.tel.Log.WithFields(telemetry.Fields{"peer": src}).Debug("resolver: skipping response without A/AAAA answers")
			}
			continue
		}
		if r.tel != nil {
			r.tel.RecordResponse("answered")
		}
		return ips, nil
	}
}

// extractAddresses decodes resp as a response datagram, returning the IPs
// carried by every A/AAAA answer in wire order. ok is false if resp is not
// a well-formed response (malformed or not a response) and should be
// skipped without resetting the deadline.
func extractAddresses(resp []byte) (ips []net.IP, ok bool) {
	dec, h, err := message.NewDecoder(resp)
	if err != nil || !h.IsResponse() {
		return nil, false
	}
	if err := dec.To(message.SectionAnswer); err != nil {
		return nil, false
	}
	answers, err := dec.Records()
	if err != nil {
		return nil, false
	}

	for _, a := range answers {
		switch data := a.Data.(type) {
		case rr.A:
			ips = append(ips, data.Addr)
		case rr.AAAA:
			ips = append(ips, data.Addr)
		}
	}
	return ips, true
}
