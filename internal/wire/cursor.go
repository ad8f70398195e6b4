// Package wire implements the big-endian integer primitives and the byte
// cursor that every higher layer (name codec, record codec, message
// decoder/encoder) reads from or writes to. Nothing above this package
// touches a raw byte slice directly.
package wire

import (
	"encoding/binary"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
)

// Reader is a read-only cursor over a complete message buffer. Readers
// never copy the buffer; every returned byte slice is a view into it valid
// only for the lifetime of the decode.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential, bounds-checked reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Bytes returns the whole underlying buffer, e.g. so a name decoder can
// follow a compression pointer back into the start of the message.
func (r *Reader) Bytes() []byte { return r.buf }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Seek repositions the cursor to an absolute offset without bounds checking
// the destination; the next Read call will fail if it is out of range.
func (r *Reader) Seek(pos int) { r.pos = pos }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

func eof(op string, pos int) error {
	return &dnserrors.WireFormatError{Operation: op, Kind: dnserrors.KindEOF, Offset: pos, Message: "unexpected end of message"}
}

// ReadByte reads and consumes a single byte.
func (r *Reader) ReadByte(op string) (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, eof(op, r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads a big-endian 16-bit integer.
func (r *Reader) ReadUint16(op string) (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, eof(op, r.pos)
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads a big-endian 32-bit integer.
func (r *Reader) ReadUint32(op string) (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, eof(op, r.pos)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// ReadBytes reads n raw bytes and returns a view into the underlying buffer.
func (r *Reader) ReadBytes(op string, n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, eof(op, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// PeekByte reads the byte at the current position without consuming it.
func (r *Reader) PeekByte(op string) (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, eof(op, r.pos)
	}
	return r.buf[r.pos], nil
}

// Sub returns a new Reader over buf alone, with positions reported relative
// to the start of buf. A Reader made this way cannot reach bytes outside
// buf, so a compression pointer decoded through it cannot target them.
func Sub(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Writer is an append-only, truncation-aware cursor over a caller-provided
// fixed-size buffer. Writes past the buffer's capacity are silently
// dropped and latch the Truncated flag rather than panicking or growing the
// buffer; per §4.4 the bytes already written remain a valid, if incomplete,
// message.
type Writer struct {
	buf       []byte // fixed capacity, len() is the "committed" length
	truncated bool
}

// NewWriter wraps buf (from index 0, len(buf)==0, cap(buf)==the datagram
// size limit) for section-ordered, truncation-aware encoding.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Len returns the number of bytes committed so far.
func (w *Writer) Len() int { return len(w.buf) }

// Truncated reports whether any write so far exceeded the buffer's capacity.
func (w *Writer) Truncated() bool { return w.truncated }

// Bytes returns the committed portion of the buffer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) reserve(n int) bool {
	if len(w.buf)+n > cap(w.buf) {
		w.truncated = true
		return false
	}
	return true
}

// WriteByte appends a single byte, setting Truncated if it would not fit.
func (w *Writer) WriteByte(b byte) {
	if !w.reserve(1) {
		return
	}
	w.buf = append(w.buf, b)
}

// WriteUint16 appends a big-endian 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	if !w.reserve(2) {
		return
	}
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteUint32 appends a big-endian 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	if !w.reserve(4) {
		return
	}
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	if !w.reserve(len(b)) {
		return
	}
	w.buf = append(w.buf, b...)
}

// PatchUint16 overwrites the big-endian 16-bit integer at committed offset
// pos, used to back-patch RDLENGTH once a record's body length is known.
// pos must refer to bytes already committed; it never participates in
// truncation accounting.
func (w *Writer) PatchUint16(pos int, v uint16) {
	if pos < 0 || pos+2 > len(w.buf) {
		return
	}
	binary.BigEndian.PutUint16(w.buf[pos:pos+2], v)
}
