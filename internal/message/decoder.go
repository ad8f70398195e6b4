package message

import (
	"github.com/joshuafuller/dnssd/internal/rr"
)

// Section identifies one of the four one-way states a Decoder moves
// through: Question, Answer, Authority, Additional, and the terminal End.
type Section int

const (
	SectionQuestion Section = iota
	SectionAnswer
	SectionAuthority
	SectionAdditional
	SectionEnd
)

// Decoder is a section-ordered streaming decoder over a single DNS message
// buffer. It reads the header on construction and starts in
// SectionQuestion; each section has a remaining count that only decreases
// as entries are read, and transitions out of a section are one-way.
//
// Any decode error is sticky: the failing NextQuestion/NextRecord call and
// every later one return false, Err reports the error, and To, Questions
// and Records return it. Transitioning
// past a section that had remaining, undelivered entries drains — and may
// surface the error of — those entries first.
type Decoder struct {
	msg     []byte
	offset  int
	section Section
	err     error

	remaining [4]uint16 // indexed by Section: Question, Answer, Authority, Additional
}

// NewDecoder reads msg's 12-byte header and returns a Decoder positioned at
// the start of the question section.
func NewDecoder(msg []byte) (*Decoder, Header, error) {
	h, err := decodeHeader(msg)
	if err != nil {
		return nil, Header{}, err
	}
	d := &Decoder{
		msg:     msg,
		offset:  HeaderSize,
		section: SectionQuestion,
		remaining: [4]uint16{
			h.QDCount, h.ANCount, h.NSCount, h.ARCount,
		},
	}
	return d, h, nil
}

// Section reports the decoder's current section.
func (d *Decoder) Section() Section { return d.section }

// Err returns the sticky decode error, if any.
func (d *Decoder) Err() error { return d.err }

// NextQuestion decodes one question-section entry, or returns (_, false)
// once the section's count is exhausted or a prior/this decode failed (see
// Err). It is only valid to call while Section() == SectionQuestion.
func (d *Decoder) NextQuestion() (Question, bool) {
	if d.err != nil {
		return Question{}, false
	}
	if d.remaining[SectionQuestion] == 0 {
		return Question{}, false
	}
	q, newOffset, err := decodeQuestion(d.msg, d.offset)
	if err != nil {
		d.err = err
		return Question{}, false
	}
	d.offset = newOffset
	d.remaining[SectionQuestion]--
	return q, true
}

// sectionIndex maps Answer/Authority/Additional to their remaining-count slot.
func sectionIndex(s Section) int { return int(s) }

// NextRecord decodes one resource-record entry from the decoder's current
// section (Answer, Authority, or Additional), or returns (_, false) once
// that section's count is exhausted or a decode failed (see Err). It is
// only valid to call while Section() is one of those three.
func (d *Decoder) NextRecord() (rr.Record, bool) {
	if d.err != nil {
		return rr.Record{}, false
	}
	idx := sectionIndex(d.section)
	if d.remaining[idx] == 0 {
		return rr.Record{}, false
	}
	rec, newOffset, err := rr.DecodeRecord(d.msg, d.offset)
	if err != nil {
		d.err = err
		return rr.Record{}, false
	}
	d.offset = newOffset
	d.remaining[idx]--
	return rec, true
}

// drainCurrent discards any entries remaining in the decoder's current
// section, stopping early (and recording the error) if one fails to decode.
func (d *Decoder) drainCurrent() {
	for d.err == nil {
		switch d.section {
		case SectionQuestion:
			if _, ok := d.NextQuestion(); !ok {
				return
			}
		case SectionAnswer, SectionAuthority, SectionAdditional:
			if _, ok := d.NextRecord(); !ok {
				return
			}
		default:
			return
		}
	}
}

// To transitions the decoder to target, draining (and discarding, except
// for a sticky error) every entry of the current section and any
// intervening sections along the way. Transitioning backward or to the
// current section is a no-op. Returns the decoder's sticky error, if the
// drain produced one.
func (d *Decoder) To(target Section) error {
	for d.section < target {
		d.drainCurrent()
		if d.err != nil {
			d.section = target
			return d.err
		}
		d.section++
	}
	return d.err
}

// Questions returns every question-section entry via repeated NextQuestion
// calls, the iterator-wrapper form of (a)/(b) alongside NextQuestion itself.
func (d *Decoder) Questions() ([]Question, error) {
	var out []Question
	for {
		q, ok := d.NextQuestion()
		if !ok {
			return out, d.err
		}
		out = append(out, q)
	}
}

// Records returns every resource-record entry of the decoder's current
// section via repeated NextRecord calls.
func (d *Decoder) Records() ([]rr.Record, error) {
	var out []rr.Record
	for {
		r, ok := d.NextRecord()
		if !ok {
			return out, d.err
		}
		out = append(out, r)
	}
}
