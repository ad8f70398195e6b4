// Package name implements DNS domain-name and label encoding/decoding per
// RFC 1035 §§3.1, 4.1.4, including pointer-compressed, loop-safe decoding.
//
// Decoding models the message as a single immutable byte buffer and a
// cursor that may jump backward through compression pointers; it never
// builds an explicit node graph for the implicit backward-pointer graph.
package name

import (
	"strings"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/wire"
)

// Label is a single dot-separated component of a domain name, 1-63 bytes,
// compared byte-for-byte. It is immutable once constructed.
type Label string

// NewLabel validates and constructs a Label from raw bytes (I1).
func NewLabel(s string) (Label, error) {
	if len(s) == 0 {
		return "", &dnserrors.WireFormatError{Operation: "construct label", Kind: dnserrors.KindInvalidEmptyLabel, Offset: -1, Message: "label cannot be empty"}
	}
	if len(s) > protocol.MaxLabelLength {
		return "", &dnserrors.WireFormatError{Operation: "construct label", Kind: dnserrors.KindLabelTooLong, Offset: -1, Message: "label exceeds 63 bytes"}
	}
	return Label(s), nil
}

// String returns the label's byte sequence as a Go string (P1: round-trips
// through NewLabel).
func (l Label) String() string { return string(l) }

// Name is an ordered sequence of labels, excluding the implicit empty root
// label. A Name with no labels denotes the root ".". Labels may be appended
// during incremental construction via Append.
type Name struct {
	Labels []Label
}

// Root is the domain name ".".
var Root = Name{}

// Append returns a new Name with label appended, used for incremental
// construction (e.g. building "instance.service.transport.local" piece by
// piece).
func (n Name) Append(l Label) Name {
	out := Name{Labels: make([]Label, len(n.Labels)+1)}
	copy(out.Labels, n.Labels)
	out.Labels[len(n.Labels)] = l
	return out
}

// Join concatenates n and suffix into a single Name, e.g. an instance label
// joined with its service/transport/domain suffix.
func (n Name) Join(suffix Name) Name {
	out := Name{Labels: make([]Label, 0, len(n.Labels)+len(suffix.Labels))}
	out.Labels = append(out.Labels, n.Labels...)
	out.Labels = append(out.Labels, suffix.Labels...)
	return out
}

// IsRoot reports whether n is the root name.
func (n Name) IsRoot() bool { return len(n.Labels) == 0 }

// WireLen returns the number of bytes n would occupy on the wire,
// uncompressed: each label's length-prefix byte plus its content, plus the
// one-byte terminator (I2 bounds this to 255).
func (n Name) WireLen() int {
	total := 1
	for _, l := range n.Labels {
		total += 1 + len(l)
	}
	return total
}

// String renders n in presentation format: labels joined by ".", with a
// trailing "." for any non-root name, and "." alone for the root. This is
// the inverse of Parse.
func (n Name) String() string {
	if n.IsRoot() {
		return "."
	}
	parts := make([]string, len(n.Labels))
	for i, l := range n.Labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ".") + "."
}

// Equal reports byte-for-byte (case-sensitive) equality, per the wire-level
// comparison rule in §3.
func Equal(a, b Name) bool {
	if len(a.Labels) != len(b.Labels) {
		return false
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			return false
		}
	}
	return true
}

// EqualFold reports case-insensitive equality, for lookups that ignore
// case. The advertiser's match-and-respond engine and the discoverer's
// dedup sets compare names exactly and do not call it.
func EqualFold(a, b Name) bool {
	if len(a.Labels) != len(b.Labels) {
		return false
	}
	for i := range a.Labels {
		if !strings.EqualFold(string(a.Labels[i]), string(b.Labels[i])) {
			return false
		}
	}
	return true
}

// Parse parses presentation-format text ("example.com", "example.com.", or
// "." for the root) into a Name (B2). A single trailing dot is stripped;
// any other empty label (consecutive dots, or a leading dot) is rejected.
func Parse(s string) (Name, error) {
	if s == "." || s == "" {
		return Root, nil
	}
	s = strings.TrimSuffix(s, ".")
	parts := strings.Split(s, ".")
	labels := make([]Label, 0, len(parts))
	for _, p := range parts {
		l, err := NewLabel(p)
		if err != nil {
			return Name{}, err
		}
		labels = append(labels, l)
	}
	n := Name{Labels: labels}
	if n.WireLen() > protocol.MaxNameLength {
		return Name{}, &dnserrors.WireFormatError{
			Operation: "parse name", Kind: dnserrors.KindInvalidValue, Offset: -1,
			Message: "name exceeds 255 bytes of wire-format encoding",
		}
	}
	return n, nil
}

// Decode decodes a domain name starting at offset within the complete
// message buffer msg, following compression pointers per RFC 1035 §4.1.4.
// It returns the decoded Name and the offset immediately following the
// name's own encoding in the forward stream (i.e. after the first pointer,
// not after wherever pointers were chased to).
//
// Loop safety (I3/I4/P6): a length byte's top two bits select a literal
// label (00) or a pointer (11); 01/10 are invalid. Every pointer target
// must be strictly less than the lowest offset reached so far — a
// monotonically decreasing bound — which makes both self-loops and cycles
// of any length impossible: following a pointer can only ever move the
// cursor to a strictly smaller offset, a sequence that must terminate.
// MaxCompressionPointers is a second, cheap defense against pathological
// chains of strictly-decreasing-but-numerous pointers.
func Decode(msg []byte, offset int) (Name, int, error) {
	if offset < 0 || offset >= len(msg) {
		return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindEOF, Offset: offset, Message: "offset out of bounds"}
	}

	var labels []Label
	pos := offset
	bound := offset
	newOffset := -1
	jumps := 0
	wireLen := 1 // terminator

	for {
		if pos >= len(msg) {
			return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindEOF, Offset: pos, Message: "unexpected end of message while parsing name"}
		}
		b := msg[pos]

		switch b & 0xC0 {
		case protocol.PointerTag: // 11: compression pointer
			if pos+1 >= len(msg) {
				return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindEOF, Offset: pos, Message: "truncated compression pointer"}
			}
			ptr := int(b&protocol.PointerOffsetMask)<<8 | int(msg[pos+1])
			if newOffset == -1 {
				newOffset = pos + 2
			}
			if ptr >= bound {
				return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindPointerLoop, Offset: pos, Message: "compression pointer does not strictly decrease"}
			}
			bound = ptr
			pos = ptr
			jumps++
			if jumps > protocol.MaxCompressionPointers {
				return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindPointerLoop, Offset: pos, Message: "too many compression pointer jumps"}
			}
			continue

		case 0x00: // 00: literal label or terminator
			if b == 0 {
				if newOffset == -1 {
					newOffset = pos + 1
				}
				return Name{Labels: labels}, newOffset, nil
			}
			length := int(b)
			if length > protocol.MaxLabelLength {
				return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindLabelTooLong, Offset: pos, Message: "label exceeds 63 bytes"}
			}
			if pos+1+length > len(msg) {
				return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindEOF, Offset: pos, Message: "truncated label"}
			}
			wireLen += 1 + length
			if wireLen > protocol.MaxNameLength {
				return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindInvalidValue, Offset: pos, Message: "name exceeds 255 bytes of wire-format encoding"}
			}
			labels = append(labels, Label(msg[pos+1:pos+1+length]))
			pos += 1 + length

		default: // 01 or 10: invalid per I4
			return Name{}, offset, &dnserrors.WireFormatError{Operation: "decode name", Kind: dnserrors.KindInvalidValue, Offset: pos, Message: "invalid label length tag bits"}
		}
	}
}

// Encode appends n to w in uncompressed form: each label as (length, bytes)
// followed by a terminating zero byte. Compression is never required of an
// encoder (mDNS permits uncompressed names); this library does not attempt
// it, so I2 is checked directly against n's uncompressed length.
func Encode(w *wire.Writer, n Name) error {
	if n.WireLen() > protocol.MaxNameLength {
		return &dnserrors.ValidationError{Field: "name", Value: n.String(), Message: "encoded name exceeds 255 bytes"}
	}
	for _, l := range n.Labels {
		w.WriteByte(byte(len(l)))
		w.WriteBytes([]byte(l))
	}
	w.WriteByte(0)
	return nil
}
