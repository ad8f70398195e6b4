package message

import (
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/wire"
)

// decodeQuestion decodes one question-section entry starting at offset,
// returning it and the offset immediately following.
func decodeQuestion(msg []byte, offset int) (Question, int, error) {
	qname, pos, err := name.Decode(msg, offset)
	if err != nil {
		return Question{}, offset, err
	}

	r := wire.NewReader(msg)
	r.Seek(pos)
	qtype, err := r.ReadUint16("decode question qtype")
	if err != nil {
		return Question{}, offset, err
	}
	qclassRaw, err := r.ReadUint16("decode question qclass")
	if err != nil {
		return Question{}, offset, err
	}

	q := Question{
		Name:    qname,
		Type:    protocol.QType(qtype),
		Class:   protocol.QClass(qclassRaw & protocol.ClassMask),
		Unicast: qclassRaw&protocol.ClassTopBit != 0,
	}
	return q, r.Pos(), nil
}

// encodeQuestion appends q to w.
func encodeQuestion(w *wire.Writer, q Question) error {
	if err := name.Encode(w, q.Name); err != nil {
		return err
	}
	w.WriteUint16(uint16(q.Type))

	classWord := uint16(q.Class)
	if q.Unicast {
		classWord |= protocol.ClassTopBit
	}
	w.WriteUint16(classWord)
	return nil
}
