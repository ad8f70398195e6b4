// Package message implements the DNS message header, question section, and
// the section-ordered streaming decoder/encoder built on top of the name
// and rr packages, per RFC 1035 §4.1.
package message

import (
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/wire"
)

// Header is the 12-byte fixed DNS message header per RFC 1035 §4.1.1.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsQuery reports whether the QR bit is clear (P4: each setter is observed
// by its getter and leaves other fields unchanged).
func (h Header) IsQuery() bool { return h.Flags&protocol.FlagQR == 0 }

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return h.Flags&protocol.FlagQR != 0 }

// SetQR returns h with the QR bit set to response (true) or query (false).
func (h Header) SetQR(response bool) Header {
	if response {
		h.Flags |= protocol.FlagQR
	} else {
		h.Flags &^= protocol.FlagQR
	}
	return h
}

// SetAA returns h with the Authoritative Answer bit set or cleared.
func (h Header) SetAA(aa bool) Header {
	if aa {
		h.Flags |= protocol.FlagAA
	} else {
		h.Flags &^= protocol.FlagAA
	}
	return h
}

// SetTC returns h with the Truncated bit set or cleared.
func (h Header) SetTC(tc bool) Header {
	if tc {
		h.Flags |= protocol.FlagTC
	} else {
		h.Flags &^= protocol.FlagTC
	}
	return h
}

// IsTruncated reports whether the Truncated bit is set.
func (h Header) IsTruncated() bool { return h.Flags&protocol.FlagTC != 0 }

// SetRD returns h with the Recursion Desired bit set or cleared.
func (h Header) SetRD(rd bool) Header {
	if rd {
		h.Flags |= protocol.FlagRD
	} else {
		h.Flags &^= protocol.FlagRD
	}
	return h
}

// Opcode returns the header's OPCODE field.
func (h Header) Opcode() protocol.Opcode { return protocol.GetOpcode(h.Flags) }

// SetOpcode returns h with OPCODE replaced.
func (h Header) SetOpcode(op protocol.Opcode) Header {
	h.Flags = protocol.SetOpcode(h.Flags, op)
	return h
}

// RCode returns the header's RCODE field.
func (h Header) RCode() protocol.RCode { return protocol.GetRCode(h.Flags) }

// SetRCode returns h with RCODE replaced.
func (h Header) SetRCode(rc protocol.RCode) Header {
	h.Flags = protocol.SetRCode(h.Flags, rc)
	return h
}

// HeaderSize is the fixed wire length of a DNS message header.
const HeaderSize = 12

// decodeHeader reads the 12-byte header from the start of msg.
func decodeHeader(msg []byte) (Header, error) {
	r := wire.NewReader(msg)
	id, err := r.ReadUint16("decode header id")
	if err != nil {
		return Header{}, err
	}
	flags, err := r.ReadUint16("decode header flags")
	if err != nil {
		return Header{}, err
	}
	qd, err := r.ReadUint16("decode header qdcount")
	if err != nil {
		return Header{}, err
	}
	an, err := r.ReadUint16("decode header ancount")
	if err != nil {
		return Header{}, err
	}
	ns, err := r.ReadUint16("decode header nscount")
	if err != nil {
		return Header{}, err
	}
	ar, err := r.ReadUint16("decode header arcount")
	if err != nil {
		return Header{}, err
	}
	return Header{ID: id, Flags: flags, QDCount: qd, ANCount: an, NSCount: ns, ARCount: ar}, nil
}

// encodeHeader writes h's 12 bytes to w.
func encodeHeader(w *wire.Writer, h Header) {
	w.WriteUint16(h.ID)
	w.WriteUint16(h.Flags)
	w.WriteUint16(h.QDCount)
	w.WriteUint16(h.ANCount)
	w.WriteUint16(h.NSCount)
	w.WriteUint16(h.ARCount)
}

// Question is a single question-section entry per RFC 1035 §4.1.2.
type Question struct {
	Name name.Name
	Type protocol.QType

	// Class is the query class, already masked (ClassMask): the top bit
	// (RFC 6762 §5.4 "QU" unicast-response-preferred flag) is reported
	// separately via Unicast.
	Class protocol.QClass

	// Unicast reports whether the QU bit was set, i.e. the querier
	// prefers a unicast response over a multicast one.
	Unicast bool
}
