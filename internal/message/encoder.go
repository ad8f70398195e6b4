package message

import (
	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/rr"
	"github.com/joshuafuller/dnssd/internal/wire"
)

// Encoder is a section-ordered streaming encoder over a caller-provided
// buffer. It reserves the 12-byte header up front, writes questions and
// records in section order, and back-patches the header's counts and TC bit
// on Finalize. Transitions mirror the decoder's one-way
// Question -> Answer -> Authority -> Additional order.
type Encoder struct {
	w       *wire.Writer
	header  Header
	section Section
	counts  [4]uint16
}

// NewEncoder wraps buf (cap(buf) is the datagram size ceiling) and reserves
// the header's 12 bytes.
func NewEncoder(buf []byte, header Header) *Encoder {
	w := wire.NewWriter(buf)
	for i := 0; i < HeaderSize; i++ {
		w.WriteByte(0)
	}
	return &Encoder{w: w, header: header, section: SectionQuestion}
}

// Section reports the encoder's current section.
func (e *Encoder) Section() Section { return e.section }

// To advances the encoder to target; sections may only be skipped forward,
// matching the decoder's one-way transitions.
func (e *Encoder) To(target Section) {
	if target > e.section {
		e.section = target
	}
}

// WriteQuestion appends a question-section entry. Valid only while
// Section() == SectionQuestion.
func (e *Encoder) WriteQuestion(q Question) error {
	if err := encodeQuestion(e.w, q); err != nil {
		return err
	}
	if !e.w.Truncated() {
		e.counts[SectionQuestion]++
	}
	return nil
}

// WriteRecord appends a resource record to the encoder's current section
// (Answer, Authority, or Additional).
func (e *Encoder) WriteRecord(r rr.Record) error {
	if err := rr.Encode(e.w, r); err != nil {
		return err
	}
	if !e.w.Truncated() {
		e.counts[sectionIndex(e.section)]++
	}
	return nil
}

// Finalize back-patches the header's four section counts and the TC bit,
// then returns the complete message bytes. If any write along the way
// exceeded buf's capacity, the TC bit is set, the counts reflect only the
// entries actually written, and Finalize returns a *WireFormatError with
// Kind KindTruncated alongside the (valid, if incomplete) message bytes.
func (e *Encoder) Finalize() ([]byte, error) {
	h := e.header
	h.QDCount = e.counts[SectionQuestion]
	h.ANCount = e.counts[SectionAnswer]
	h.NSCount = e.counts[SectionAuthority]
	h.ARCount = e.counts[SectionAdditional]
	h.Flags = h.SetTC(e.w.Truncated()).Flags

	headerBuf := make([]byte, 0, HeaderSize)
	hw := wire.NewWriter(headerBuf)
	encodeHeader(hw, h)
	copy(e.w.Bytes()[:HeaderSize], hw.Bytes())

	if e.w.Truncated() {
		return e.w.Bytes(), &dnserrors.WireFormatError{
			Operation: "finalize message", Kind: dnserrors.KindTruncated, Offset: -1,
			Message: "buffer too small; message finalized with TC set",
		}
	}
	return e.w.Bytes(), nil
}
