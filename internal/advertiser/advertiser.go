// Package advertiser implements the DNS-SD advertiser: a record database
// populated via AddName/AddInstance, and a pure packet-in/packet-out
// handler that answers queries against it. It never probes for name
// conflicts before advertising (RFC 6762 §8's probing/rename machinery is
// deliberately not part of this component).
package advertiser

import (
	"fmt"
	"net"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/message"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/rr"
	"github.com/joshuafuller/dnssd/internal/svc"
)

// entry is one row of the record database: an owner name plus the record
// the advertiser will return when a question matches it.
type entry struct {
	owner  name.Name
	record rr.Record
}

// Database holds the advertised records for one local domain (typically
// "local."), plus the DNS-SD service-type enumeration meta-domain.
type Database struct {
	domain  name.Name
	entries []entry
}

// NewDatabase constructs an empty record database scoped to domain (e.g.
// name.Parse("local.")).
func NewDatabase(domain name.Name) *Database {
	return &Database{domain: domain}
}

// AddName appends one address entry for hostname.<domain>: an A record if
// addr is IPv4, an AAAA record if it is IPv6.
func (d *Database) AddName(hostname string, addr net.IP) error {
	label, err := name.NewLabel(hostname)
	if err != nil {
		return err
	}
	owner := name.Name{Labels: []name.Label{label}}.Join(d.domain)

	var data rr.RDATA
	if v4 := addr.To4(); v4 != nil {
		data = rr.A{Addr: v4}
	} else if v6 := addr.To16(); v6 != nil {
		data = rr.AAAA{Addr: v6}
	} else {
		return &dnserrors.ValidationError{Field: "addr", Value: addr.String(), Message: "not a valid IPv4 or IPv6 address"}
	}

	d.entries = append(d.entries, entry{
		owner:  owner,
		record: rr.Record{Name: owner, Class: protocol.ClassIN, TTL: protocol.TTLService, Data: data},
	})
	return nil
}

// AddInstance appends the four records RFC 6763 requires to advertise one
// service instance: an SRV and TXT at the instance's full name, a PTR from
// the service type to the instance, and a PTR from the discovery
// meta-domain to the service type. txt may be nil, in which case a single
// empty TXT entry is advertised (RFC 6763 §6.1: every SRV needs an
// accompanying TXT, even an empty one).
func (d *Database) AddInstance(si svc.ServiceInstance, host name.Name, port uint16, txt *svc.TxtRecords) error {
	instanceName, err := si.FullName(d.domain)
	if err != nil {
		return err
	}
	serviceName, err := si.Service.ServiceName(d.domain)
	if err != nil {
		return err
	}
	metaName, err := svc.MetaQueryName(d.domain)
	if err != nil {
		return err
	}

	srv := rr.Record{
		Name: instanceName, Class: protocol.ClassIN, TTL: protocol.TTLService,
		Data: rr.SRV{Priority: 0, Weight: 0, Port: port, Target: host},
	}

	txtData, err := encodeTXT(txt)
	if err != nil {
		return err
	}
	txtRecord := rr.Record{Name: instanceName, Class: protocol.ClassIN, TTL: protocol.TTLService, Data: txtData}

	servicePTR := rr.Record{
		Name: serviceName, Class: protocol.ClassIN, TTL: protocol.TTLService,
		Data: rr.PTR{Target: instanceName},
	}
	metaPTR := rr.Record{
		Name: metaName, Class: protocol.ClassIN, TTL: protocol.TTLService,
		Data: rr.PTR{Target: serviceName},
	}

	d.entries = append(d.entries,
		entry{owner: instanceName, record: srv},
		entry{owner: instanceName, record: txtRecord},
		entry{owner: serviceName, record: servicePTR},
		entry{owner: metaName, record: metaPTR},
	)
	return nil
}

// encodeTXT builds a TXT RDATA from a svc.TxtRecords set (key=value or bare
// boolean-attribute strings, per RFC 6763 §6.3), or a single empty
// character-string if txt is nil or has no keys.
func encodeTXT(txt *svc.TxtRecords) (rr.TXT, error) {
	if txt == nil {
		return rr.NewTXT([]byte{})
	}
	keys := txt.Keys()
	if len(keys) == 0 {
		return rr.NewTXT([]byte{})
	}
	strs := make([][]byte, 0, len(keys))
	for _, k := range keys {
		v, _ := txt.Get(k)
		if v == nil {
			strs = append(strs, []byte(k))
		} else {
			strs = append(strs, append([]byte(k+"="), v...))
		}
	}
	return rr.NewTXT(strs...)
}

// QuestionType decodes just enough of query to report the QType of its
// first question, without validating or matching it against any database.
// Callers driving HandlePacket from real I/O use this to rate-limit by
// (source, qtype) before paying for a full decode — a flood of
// "_services._dns-sd._udp" PTR enumeration queries (expensive: many
// matching records) shouldn't consume the same per-source budget as a
// flood of cheap single-name A lookups.
func QuestionType(query []byte) (protocol.QType, bool) {
	dec, _, err := message.NewDecoder(query)
	if err != nil {
		return 0, false
	}
	questions, err := dec.Questions()
	if err != nil || len(questions) == 0 {
		return 0, false
	}
	return questions[0].Type, true
}

// HandlePacket implements the advertiser's pure match-and-respond engine:
// given one inbound query datagram, it returns the response datagram to
// send (and true), or (nil, false) if the query should produce no
// response at all. It performs no I/O and holds no state of its own beyond
// the record database it closes over.
func (d *Database) HandlePacket(query []byte) ([]byte, bool) {
	dec, qh, err := message.NewDecoder(query)
	if err != nil {
		return nil, false
	}
	if qh.IsResponse() || qh.Opcode() != protocol.OpcodeQuery || qh.RCode() != protocol.RCodeNoError {
		return nil, false
	}
	questions, err := dec.Questions()
	if err != nil {
		return nil, false
	}

	respHeader := message.Header{ID: qh.ID}
	respHeader = respHeader.SetQR(true).SetAA(true)

	enc := message.NewEncoder(make([]byte, 0, protocol.MulticastBufferSize), respHeader)
	enc.To(message.SectionAnswer)

	answered := false
	for _, q := range questions {
		for _, e := range d.entries {
			if !protocol.MatchesQClass(e.record.Class, q.Class) {
				continue
			}
			if !protocol.MatchesQType(e.record.Data.Type(), q.Type) {
				continue
			}
			if !name.Equal(e.owner, q.Name) {
				continue
			}
			if err := enc.WriteRecord(e.record); err != nil {
				continue
			}
			answered = true
		}
	}

	if !answered {
		return nil, false
	}

	resp, err := enc.Finalize()
	if err != nil {
		if _, ok := err.(*dnserrors.WireFormatError); ok {
			return resp, true // TC set, send anyway per RFC 6762
		}
		return nil, false
	}
	return resp, true
}

// Remove drops every entry owned by owner, used to implement goodbye
// announcements (TTL=0) or service withdrawal at a higher layer; the
// caller is responsible for sending any goodbye packet before calling this.
func (d *Database) Remove(owner name.Name) {
	out := d.entries[:0]
	for _, e := range d.entries {
		if !name.Equal(e.owner, owner) {
			out = append(out, e)
		}
	}
	d.entries = out
}

// String renders the database for diagnostics as a single line giving its
// domain and entry count.
func (d *Database) String() string {
	return fmt.Sprintf("Database{domain:%s, entries:%d}", d.domain.String(), len(d.entries))
}
