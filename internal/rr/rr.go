// Package rr implements the nine supported DNS resource record data types
// (A, AAAA, CNAME, MX, NS, PTR, TXT, SRV, SOA) as a tagged union, plus an
// opaque passthrough for any other type, per RFC 1035 §3.3 and RFC 2782
// (SRV). Decoding and encoding bind RDATA strictly to its RDLENGTH.
package rr

import (
	"fmt"
	"net"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/wire"
)

// RDATA is implemented by every supported record-data variant and by
// Unknown, the raw-bytes fallback for unsupported types.
type RDATA interface {
	// Type returns the record type this RDATA encodes as.
	Type() protocol.Type

	// encode appends the wire-format RDATA body to w. The caller is
	// responsible for the RDLENGTH back-patch.
	encode(w *wire.Writer) error
}

// A is the RDATA of an A record: a 4-byte IPv4 address.
type A struct {
	Addr net.IP
}

func (A) Type() protocol.Type { return protocol.TypeA }

func (r A) encode(w *wire.Writer) error {
	v4 := r.Addr.To4()
	if v4 == nil {
		return &dnserrors.ValidationError{Field: "A.Addr", Value: r.Addr.String(), Message: "not a valid IPv4 address"}
	}
	w.WriteBytes(v4)
	return nil
}

// AAAA is the RDATA of an AAAA record: a 16-byte IPv6 address.
type AAAA struct {
	Addr net.IP
}

func (AAAA) Type() protocol.Type { return protocol.TypeAAAA }

func (r AAAA) encode(w *wire.Writer) error {
	v6 := r.Addr.To16()
	if v6 == nil || r.Addr.To4() != nil {
		return &dnserrors.ValidationError{Field: "AAAA.Addr", Value: r.Addr.String(), Message: "not a valid IPv6 address"}
	}
	w.WriteBytes(v6)
	return nil
}

// CNAME is the RDATA of a CNAME record: an alias target name.
type CNAME struct {
	Target name.Name
}

func (CNAME) Type() protocol.Type { return protocol.TypeCNAME }

func (r CNAME) encode(w *wire.Writer) error { return name.Encode(w, r.Target) }

// NS is the RDATA of an NS record: an authoritative nameserver name.
type NS struct {
	Target name.Name
}

func (NS) Type() protocol.Type { return protocol.TypeNS }

func (r NS) encode(w *wire.Writer) error { return name.Encode(w, r.Target) }

// PTR is the RDATA of a PTR record: a pointer to another name, used by
// DNS-SD for both service-enumeration and instance-enumeration records.
type PTR struct {
	Target name.Name
}

func (PTR) Type() protocol.Type { return protocol.TypePTR }

func (r PTR) encode(w *wire.Writer) error { return name.Encode(w, r.Target) }

// MX is the RDATA of an MX record: mail exchange preference and host.
type MX struct {
	Preference uint16
	Exchange   name.Name
}

func (MX) Type() protocol.Type { return protocol.TypeMX }

func (r MX) encode(w *wire.Writer) error {
	w.WriteUint16(r.Preference)
	return name.Encode(w, r.Exchange)
}

// TXT is the RDATA of a TXT record: one or more character-strings, each at
// most 255 bytes (I5: each is individually length-prefixed, and the prefix
// bytes plus content bytes must exactly sum to RDLENGTH on decode).
//
// A TXT record with zero character-strings decodes validly from an
// RDLENGTH-0 RDATA (Strings is nil/empty), but NewTXT rejects an empty
// argument list: callers that want to advertise "no TXT data" construct a
// single empty string per RFC 6763 §6.1, not zero strings.
type TXT struct {
	Strings [][]byte
}

// NewTXT validates and constructs a TXT RDATA from character-string values.
func NewTXT(strs ...[]byte) (TXT, error) {
	if len(strs) == 0 {
		return TXT{}, &dnserrors.ValidationError{Field: "TXT.Strings", Message: "TXT record requires at least one character-string; use a single empty string for \"no data\""}
	}
	for i, s := range strs {
		if len(s) > 255 {
			return TXT{}, &dnserrors.ValidationError{Field: "TXT.Strings", Value: i, Message: "character-string exceeds 255 bytes"}
		}
	}
	return TXT{Strings: strs}, nil
}

func (TXT) Type() protocol.Type { return protocol.TypeTXT }

func (r TXT) encode(w *wire.Writer) error {
	for _, s := range r.Strings {
		if len(s) > 255 {
			return &dnserrors.ValidationError{Field: "TXT.Strings", Value: len(s), Message: "character-string exceeds 255 bytes"}
		}
		w.WriteByte(byte(len(s)))
		w.WriteBytes(s)
	}
	return nil
}

// SRV is the RDATA of an SRV record per RFC 2782.
type SRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   name.Name
}

func (SRV) Type() protocol.Type { return protocol.TypeSRV }

func (r SRV) encode(w *wire.Writer) error {
	w.WriteUint16(r.Priority)
	w.WriteUint16(r.Weight)
	w.WriteUint16(r.Port)
	return name.Encode(w, r.Target)
}

// SOA is the RDATA of an SOA record per RFC 1035 §3.3.13.
type SOA struct {
	MName   name.Name
	RName   name.Name
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (SOA) Type() protocol.Type { return protocol.TypeSOA }

func (r SOA) encode(w *wire.Writer) error {
	if err := name.Encode(w, r.MName); err != nil {
		return err
	}
	if err := name.Encode(w, r.RName); err != nil {
		return err
	}
	w.WriteUint32(r.Serial)
	w.WriteUint32(r.Refresh)
	w.WriteUint32(r.Retry)
	w.WriteUint32(r.Expire)
	w.WriteUint32(r.Minimum)
	return nil
}

// Unknown is the RDATA fallback for any record type outside the nine
// supported ones: its bytes are carried verbatim and never interpreted.
type Unknown struct {
	RRType protocol.Type
	Raw    []byte
}

func (u Unknown) Type() protocol.Type { return u.RRType }

func (u Unknown) encode(w *wire.Writer) error {
	w.WriteBytes(u.Raw)
	return nil
}

// Record is a single resource record: an owner name, type (implicit in
// Data's dynamic type), class, TTL, cache-flush bit, and RDATA.
type Record struct {
	Name       name.Name
	Class      protocol.Class
	CacheFlush bool
	TTL        uint32
	Data       RDATA
}

// DecodeRecord decodes one resource record (the shared ANSWER/AUTHORITY/
// ADDITIONAL wire shape) starting at offset within the complete message
// buffer msg, returning the record and the offset immediately following it.
func DecodeRecord(msg []byte, offset int) (Record, int, error) {
	nm, pos, err := name.Decode(msg, offset)
	if err != nil {
		return Record{}, offset, err
	}

	r := wire.NewReader(msg)
	r.Seek(pos)

	rtypeRaw, err := r.ReadUint16("decode record type")
	if err != nil {
		return Record{}, offset, err
	}
	classRaw, err := r.ReadUint16("decode record class")
	if err != nil {
		return Record{}, offset, err
	}
	ttl, err := r.ReadUint32("decode record ttl")
	if err != nil {
		return Record{}, offset, err
	}
	rdlength, err := r.ReadUint16("decode record rdlength")
	if err != nil {
		return Record{}, offset, err
	}

	rdataStart := r.Pos()
	if rdataStart+int(rdlength) > len(msg) {
		return Record{}, offset, &dnserrors.WireFormatError{
			Operation: "decode record rdata", Kind: dnserrors.KindEOF, Offset: rdataStart,
			Message: fmt.Sprintf("rdlength %d exceeds remaining message bytes", rdlength),
		}
	}

	rtype := protocol.Type(rtypeRaw)
	data, err := decodeRDATA(msg, rtype, rdataStart, int(rdlength))
	if err != nil {
		return Record{}, offset, err
	}

	rec := Record{
		Name:       nm,
		Class:      protocol.Class(classRaw & protocol.ClassMask),
		CacheFlush: classRaw&protocol.ClassTopBit != 0,
		TTL:        ttl,
		Data:       data,
	}
	return rec, rdataStart + int(rdlength), nil
}

// decodeRDATA dispatches on rtype to decode the RDLENGTH-bounded region
// msg[offset:offset+rdlength] into a typed RDATA, falling back to Unknown
// for any unsupported type. Name-valued RDATA (CNAME/NS/PTR/MX/SRV/SOA)
// decodes via the full message buffer so embedded compression pointers can
// still resolve, per RFC 1035 §4.1.4.
func decodeRDATA(msg []byte, rtype protocol.Type, offset, rdlength int) (RDATA, error) {
	end := offset + rdlength

	switch rtype {
	case protocol.TypeA:
		if rdlength != 4 {
			return nil, invalidRDLen("A", rdlength, 4)
		}
		ip := make(net.IP, 4)
		copy(ip, msg[offset:end])
		return A{Addr: ip}, nil

	case protocol.TypeAAAA:
		if rdlength != 16 {
			return nil, invalidRDLen("AAAA", rdlength, 16)
		}
		ip := make(net.IP, 16)
		copy(ip, msg[offset:end])
		return AAAA{Addr: ip}, nil

	case protocol.TypeCNAME:
		n, newOffset, err := name.Decode(msg, offset)
		if err != nil {
			return nil, err
		}
		if err := checkRDATABound("CNAME", newOffset, end); err != nil {
			return nil, err
		}
		return CNAME{Target: n}, nil

	case protocol.TypeNS:
		n, newOffset, err := name.Decode(msg, offset)
		if err != nil {
			return nil, err
		}
		if err := checkRDATABound("NS", newOffset, end); err != nil {
			return nil, err
		}
		return NS{Target: n}, nil

	case protocol.TypePTR:
		n, newOffset, err := name.Decode(msg, offset)
		if err != nil {
			return nil, err
		}
		if err := checkRDATABound("PTR", newOffset, end); err != nil {
			return nil, err
		}
		return PTR{Target: n}, nil

	case protocol.TypeMX:
		r := wire.NewReader(msg)
		r.Seek(offset)
		pref, err := r.ReadUint16("decode MX preference")
		if err != nil {
			return nil, err
		}
		n, newOffset, err := name.Decode(msg, r.Pos())
		if err != nil {
			return nil, err
		}
		if err := checkRDATABound("MX", newOffset, end); err != nil {
			return nil, err
		}
		return MX{Preference: pref, Exchange: n}, nil

	case protocol.TypeTXT:
		return decodeTXT(msg[offset:end])

	case protocol.TypeSRV:
		r := wire.NewReader(msg)
		r.Seek(offset)
		priority, err := r.ReadUint16("decode SRV priority")
		if err != nil {
			return nil, err
		}
		weight, err := r.ReadUint16("decode SRV weight")
		if err != nil {
			return nil, err
		}
		port, err := r.ReadUint16("decode SRV port")
		if err != nil {
			return nil, err
		}
		n, newOffset, err := name.Decode(msg, r.Pos())
		if err != nil {
			return nil, err
		}
		if err := checkRDATABound("SRV", newOffset, end); err != nil {
			return nil, err
		}
		return SRV{Priority: priority, Weight: weight, Port: port, Target: n}, nil

	case protocol.TypeSOA:
		mname, pos, err := name.Decode(msg, offset)
		if err != nil {
			return nil, err
		}
		rname, pos2, err := name.Decode(msg, pos)
		if err != nil {
			return nil, err
		}
		r := wire.NewReader(msg)
		r.Seek(pos2)
		serial, err := r.ReadUint32("decode SOA serial")
		if err != nil {
			return nil, err
		}
		refresh, err := r.ReadUint32("decode SOA refresh")
		if err != nil {
			return nil, err
		}
		retry, err := r.ReadUint32("decode SOA retry")
		if err != nil {
			return nil, err
		}
		expire, err := r.ReadUint32("decode SOA expire")
		if err != nil {
			return nil, err
		}
		minimum, err := r.ReadUint32("decode SOA minimum")
		if err != nil {
			return nil, err
		}
		if err := checkRDATABound("SOA", r.Pos(), end); err != nil {
			return nil, err
		}
		return SOA{MName: mname, RName: rname, Serial: serial, Refresh: refresh, Retry: retry, Expire: expire, Minimum: minimum}, nil

	default:
		raw := make([]byte, rdlength)
		copy(raw, msg[offset:end])
		return Unknown{RRType: rtype, Raw: raw}, nil
	}
}

// decodeTXT splits a TXT RDATA region into its character-strings (I5: the
// length-prefix bytes plus content bytes must exactly consume the region;
// zero-length input decodes to a TXT with no strings).
func decodeTXT(rdata []byte) (TXT, error) {
	var strs [][]byte
	pos := 0
	for pos < len(rdata) {
		n := int(rdata[pos])
		pos++
		if pos+n > len(rdata) {
			return TXT{}, &dnserrors.WireFormatError{
				Operation: "decode TXT character-string", Kind: dnserrors.KindEOF, Offset: pos,
				Message: "character-string length exceeds remaining RDATA",
			}
		}
		s := make([]byte, n)
		copy(s, rdata[pos:pos+n])
		strs = append(strs, s)
		pos += n
	}
	return TXT{Strings: strs}, nil
}

// checkRDATABound reports an error if a name embedded in RDATA decoded past
// the record's own RDLENGTH boundary (the name's compression pointer, if
// any, may still legitimately reach backward outside the RDATA region; only
// the forward cursor returned by Decode is bounds-checked here).
func checkRDATABound(what string, newOffset, end int) error {
	if newOffset > end {
		return &dnserrors.WireFormatError{
			Operation: "decode " + what + " rdata", Kind: dnserrors.KindInvalidValue, Offset: newOffset,
			Message: "embedded name extends past RDLENGTH",
		}
	}
	return nil
}

func invalidRDLen(what string, got, want int) error {
	return &dnserrors.WireFormatError{
		Operation: "decode " + what + " rdata", Kind: dnserrors.KindInvalidValue, Offset: -1,
		Message: fmt.Sprintf("rdlength %d, want %d", got, want),
	}
}

// Encode appends r to w in the shared NAME/TYPE/CLASS/TTL/RDLENGTH/RDATA
// wire shape, back-patching RDLENGTH once the RDATA body length is known.
func Encode(w *wire.Writer, r Record) error {
	if err := name.Encode(w, r.Name); err != nil {
		return err
	}
	w.WriteUint16(uint16(r.Data.Type()))

	classWord := uint16(r.Class)
	if r.CacheFlush {
		classWord |= protocol.ClassTopBit
	}
	w.WriteUint16(classWord)
	w.WriteUint32(r.TTL)

	rdlenPos := w.Len()
	w.WriteUint16(0) // placeholder, back-patched below

	bodyStart := w.Len()
	if err := r.Data.encode(w); err != nil {
		return err
	}
	bodyLen := w.Len() - bodyStart
	w.PatchUint16(rdlenPos, uint16(bodyLen))
	return nil
}
