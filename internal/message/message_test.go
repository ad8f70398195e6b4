package message

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/rr"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		t.Fatalf("hex.DecodeString: %v", err)
	}
	return b
}

// TestDecodeQueryScenario covers S1.
func TestDecodeQueryScenario(t *testing.T) {
	msg := mustHex(t, `
		303901000002000000000000076578616d706c6503636f6d000001000107
		6578616d706c6503636f6d00001c0001`)

	d, h, err := NewDecoder(msg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if h.ID != 12345 {
		t.Errorf("ID = %d, want 12345", h.ID)
	}
	if h.Opcode() != protocol.OpcodeQuery {
		t.Errorf("Opcode = %v, want Query", h.Opcode())
	}
	if h.Flags&protocol.FlagRD == 0 {
		t.Error("RD bit should be set")
	}
	if h.IsResponse() {
		t.Error("should be a query, not a response")
	}

	questions, err := d.Questions()
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	want := []struct {
		name string
		qt   protocol.QType
	}{
		{"example.com.", protocol.QType(protocol.TypeA)},
		{"example.com.", protocol.QType(protocol.TypeAAAA)},
	}
	for i, w := range want {
		if questions[i].Name.String() != w.name {
			t.Errorf("question %d name = %q, want %q", i, questions[i].Name.String(), w.name)
		}
		if questions[i].Type != w.qt {
			t.Errorf("question %d type = %v, want %v", i, questions[i].Type, w.qt)
		}
	}
}

// TestDecodeResponseScenario covers S2.
func TestDecodeResponseScenario(t *testing.T) {
	msg := mustHex(t, `
		303981800001000100000000076578616d706c6503636f6d0000060001c0
		0c0006000100000e10002c026e73056963616e6e036f726700036e6f6303
		646e73c02c7886aa5a00001c2000000e100012750000000e10`)

	d, h, err := NewDecoder(msg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if h.ID != 12345 {
		t.Errorf("ID = %d, want 12345", h.ID)
	}
	if !h.IsResponse() {
		t.Error("should be a response")
	}
	if h.Flags&protocol.FlagRD == 0 || h.Flags&protocol.FlagRA == 0 {
		t.Error("RD and RA bits should both be set")
	}

	questions, err := d.Questions()
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Type != protocol.QType(protocol.TypeSOA) {
		t.Fatalf("questions = %+v", questions)
	}

	if err := d.To(SectionAnswer); err != nil {
		t.Fatalf("To(SectionAnswer): %v", err)
	}
	answers, err := d.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("got %d answers, want 1", len(answers))
	}
	soa, ok := answers[0].Data.(rr.SOA)
	if !ok {
		t.Fatalf("answer Data is %T, want SOA", answers[0].Data)
	}
	if soa.MName.String() != "ns.icann.org." {
		t.Errorf("MName = %q, want %q", soa.MName.String(), "ns.icann.org.")
	}
	if soa.RName.String() != "noc.dns.icann.org." {
		t.Errorf("RName = %q, want %q", soa.RName.String(), "noc.dns.icann.org.")
	}
	if soa.Serial != 2022091354 {
		t.Errorf("Serial = %d, want 2022091354", soa.Serial)
	}
	if soa.Refresh != 7200 || soa.Retry != 3600 || soa.Expire != 1209600 || soa.Minimum != 3600 {
		t.Errorf("SOA timers = %+v", soa)
	}
	if answers[0].TTL != 3600 {
		t.Errorf("TTL = %d, want 3600", answers[0].TTL)
	}
}

// TestEncodeDecodeQueryRoundTrip exercises WriteQuestion + Finalize against
// NewDecoder/Questions for a two-question query, mirroring S1's shape.
func TestEncodeDecodeQueryRoundTrip(t *testing.T) {
	qname := func(s string) name.Name {
		n, err := name.Parse(s)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		return n
	}

	h := Header{ID: 12345}
	h = h.SetRD(true)
	enc := NewEncoder(make([]byte, 0, 512), h)
	if err := enc.WriteQuestion(Question{Name: qname("example.com."), Type: protocol.QType(protocol.TypeA), Class: protocol.QClass(protocol.ClassIN)}); err != nil {
		t.Fatalf("WriteQuestion: %v", err)
	}
	if err := enc.WriteQuestion(Question{Name: qname("example.com."), Type: protocol.QType(protocol.TypeAAAA), Class: protocol.QClass(protocol.ClassIN)}); err != nil {
		t.Fatalf("WriteQuestion: %v", err)
	}
	msg, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	d, gotHeader, err := NewDecoder(msg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if gotHeader.ID != 12345 || gotHeader.Flags&protocol.FlagRD == 0 {
		t.Errorf("header = %+v", gotHeader)
	}
	questions, err := d.Questions()
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
}

// TestHeaderSettersIndependent covers P4: each setter is observed by its
// getter and leaves other fields unchanged.
func TestHeaderSettersIndependent(t *testing.T) {
	h := Header{ID: 7, QDCount: 1, ANCount: 2, NSCount: 3, ARCount: 4}
	h = h.SetQR(true).SetAA(true).SetRD(true).SetOpcode(protocol.Opcode(2)).SetRCode(protocol.RCode(3))

	if !h.IsResponse() {
		t.Error("QR not observed")
	}
	if h.Flags&protocol.FlagAA == 0 {
		t.Error("AA not observed")
	}
	if h.Flags&protocol.FlagRD == 0 {
		t.Error("RD not observed")
	}
	if h.Opcode() != 2 {
		t.Errorf("Opcode = %v, want 2", h.Opcode())
	}
	if h.RCode() != 3 {
		t.Errorf("RCode = %v, want 3", h.RCode())
	}
	if h.ID != 7 || h.QDCount != 1 || h.ANCount != 2 || h.NSCount != 3 || h.ARCount != 4 {
		t.Errorf("unrelated fields mutated: %+v", h)
	}
}

// TestEncoderTruncation covers B5: a too-small buffer sets TC, patches
// counts to entries actually written, and Finalize reports Truncated.
func TestEncoderTruncation(t *testing.T) {
	qname, _ := name.Parse("example.com.")
	// Buffer has room for the header plus 12 bytes: not even one 17-byte question fits.
	enc := NewEncoder(make([]byte, 0, 24), Header{})
	_ = enc.WriteQuestion(Question{Name: qname, Type: protocol.QType(protocol.TypeA), Class: protocol.QClass(protocol.ClassIN)})
	_ = enc.WriteQuestion(Question{Name: qname, Type: protocol.QType(protocol.TypeAAAA), Class: protocol.QClass(protocol.ClassIN)})

	msg, err := enc.Finalize()
	var wfe *dnserrors.WireFormatError
	if !errors.As(err, &wfe) || wfe.Kind != dnserrors.KindTruncated {
		t.Fatalf("got err %v, want Truncated", err)
	}

	d, h, err := NewDecoder(msg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if h.Flags&protocol.FlagTC == 0 {
		t.Error("TC bit should be set")
	}
	if int(h.QDCount) > len(msg) {
		t.Errorf("QDCount %d implausible for a %d-byte message", h.QDCount, len(msg))
	}
	_ = d
}

// TestDecoderStickyError covers the decoder's sticky-error contract: once a
// section fails to decode, further Next calls on it return false with no
// additional error, and To still surfaces the original error.
func TestDecoderStickyError(t *testing.T) {
	// Header claims 1 question, but the buffer ends immediately after it.
	msg := make([]byte, HeaderSize)
	msg[4] = 0 // QDCOUNT high byte
	msg[5] = 1 // QDCOUNT low byte = 1

	d, _, err := NewDecoder(msg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, ok := d.NextQuestion(); ok {
		t.Fatal("expected decode failure, got ok=true")
	}
	if d.Err() == nil {
		t.Fatal("expected sticky error after failed decode")
	}
	if _, ok := d.NextQuestion(); ok {
		t.Fatal("sticky error should keep returning ok=false")
	}
	if err := d.To(SectionAnswer); err == nil {
		t.Fatal("To should surface the sticky error")
	}
}

// TestDecoderTransitionDrains verifies that To(SectionAnswer) silently
// consumes any undelivered questions rather than leaving the cursor
// mid-section.
func TestDecoderTransitionDrains(t *testing.T) {
	msg := mustHex(t, `
		303901000002000000000000076578616d706c6503636f6d000001000107
		6578616d706c6503636f6d00001c0001`)
	d, _, err := NewDecoder(msg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	// Deliberately skip calling Questions(); go straight to Answer.
	if err := d.To(SectionAnswer); err != nil {
		t.Fatalf("To: %v", err)
	}
	if d.Section() != SectionAnswer {
		t.Errorf("Section() = %v, want SectionAnswer", d.Section())
	}
	records, err := d.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d answer records, want 0", len(records))
	}
}
