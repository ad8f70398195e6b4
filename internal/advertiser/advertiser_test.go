package advertiser

import (
	"net"
	"testing"

	"github.com/joshuafuller/dnssd/internal/message"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/rr"
	"github.com/joshuafuller/dnssd/internal/svc"
)

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return n
}

func buildQuery(t *testing.T, qname name.Name, qtype protocol.QType) []byte {
	t.Helper()
	h := message.Header{ID: 42}
	enc := message.NewEncoder(make([]byte, 0, protocol.MulticastBufferSize), h)
	if err := enc.WriteQuestion(message.Question{Name: qname, Type: qtype, Class: protocol.QClass(protocol.ClassIN)}); err != nil {
		t.Fatalf("WriteQuestion: %v", err)
	}
	out, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return out
}

func TestAddNameThenQueryA(t *testing.T) {
	domain := mustName(t, "local.")
	db := NewDatabase(domain)
	if err := db.AddName("host", net.ParseIP("192.0.2.5")); err != nil {
		t.Fatalf("AddName: %v", err)
	}

	query := buildQuery(t, mustName(t, "host.local."), protocol.QType(protocol.TypeA))
	resp, ok := db.HandlePacket(query)
	if !ok {
		t.Fatal("expected a response")
	}

	dec, h, err := message.NewDecoder(resp)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if !h.IsResponse() {
		t.Error("response header missing QR")
	}
	if h.Flags&protocol.FlagAA == 0 {
		t.Error("response header missing AA")
	}
	if h.ID != 42 {
		t.Errorf("response ID = %d, want 42", h.ID)
	}
	if err := dec.To(message.SectionAnswer); err != nil {
		t.Fatalf("To(Answer): %v", err)
	}
	answers, err := dec.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("got %d answers, want 1", len(answers))
	}
	a, ok := answers[0].Data.(rr.A)
	if !ok || !a.Addr.Equal(net.ParseIP("192.0.2.5")) {
		t.Errorf("answer = %+v, want A 192.0.2.5", answers[0].Data)
	}
}

// TestAddNameUsesServiceTTL ensures AddName advertises its A/AAAA entries
// at the same 120s TTL as AddInstance's SRV/TXT/PTR records, rather than
// the longer 4500s TTL RFC 6762 §10 recommends for unique (non-shared)
// records; this database's schema uses one uniform TTL for everything it
// advertises.
func TestAddNameUsesServiceTTL(t *testing.T) {
	domain := mustName(t, "local.")
	db := NewDatabase(domain)
	if err := db.AddName("host", net.ParseIP("192.0.2.5")); err != nil {
		t.Fatalf("AddName: %v", err)
	}
	if len(db.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(db.entries))
	}
	if ttl := db.entries[0].record.TTL; ttl != protocol.TTLService {
		t.Errorf("AddName TTL = %d, want %d (protocol.TTLService)", ttl, protocol.TTLService)
	}
}

// TestQuestionTypeReportsFirstQuestion verifies the rate-limiting peek
// helper reports a query's first question type without fully validating
// or matching it.
func TestQuestionTypeReportsFirstQuestion(t *testing.T) {
	query := buildQuery(t, mustName(t, "_services._dns-sd._udp.local."), protocol.QType(protocol.TypePTR))
	qtype, ok := QuestionType(query)
	if !ok {
		t.Fatal("expected QuestionType to succeed on a well-formed query")
	}
	if qtype != protocol.QType(protocol.TypePTR) {
		t.Errorf("QuestionType = %v, want PTR", qtype)
	}
}

func TestQuestionTypeRejectsMalformedPacket(t *testing.T) {
	if _, ok := QuestionType([]byte{0x01, 0x02}); ok {
		t.Error("expected QuestionType to fail on a malformed packet")
	}
}

func TestAddInstanceProducesFourRecordsAndPTRChain(t *testing.T) {
	domain := mustName(t, "local.")
	db := NewDatabase(domain)
	si := svc.ServiceInstance{Instance: "My Printer", Service: svc.Service{Name: "ipp", Transport: svc.TCP}}
	host := mustName(t, "printer.local.")
	txt := svc.NewTxtRecords()
	txt.Set("path", []byte("/ipp"))

	if err := db.AddInstance(si, host, 631, txt); err != nil {
		t.Fatalf("AddInstance: %v", err)
	}
	if len(db.entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(db.entries))
	}

	// Query the meta-domain; expect one PTR pointing at the service type.
	metaQuery := buildQuery(t, mustName(t, "_services._dns-sd._udp.local."), protocol.QType(protocol.TypePTR))
	resp, ok := db.HandlePacket(metaQuery)
	if !ok {
		t.Fatal("expected a response to the meta-domain query")
	}
	dec, _, err := message.NewDecoder(resp)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if err := dec.To(message.SectionAnswer); err != nil {
		t.Fatalf("To(Answer): %v", err)
	}
	answers, err := dec.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("got %d meta answers, want 1", len(answers))
	}
	ptr, ok := answers[0].Data.(rr.PTR)
	if !ok || ptr.Target.String() != "_ipp._tcp.local." {
		t.Errorf("meta PTR target = %+v, want _ipp._tcp.local.", answers[0].Data)
	}

	// Query the service type; expect a PTR to the full instance name.
	svcQuery := buildQuery(t, mustName(t, "_ipp._tcp.local."), protocol.QType(protocol.TypePTR))
	resp2, ok := db.HandlePacket(svcQuery)
	if !ok {
		t.Fatal("expected a response to the service-type query")
	}
	dec2, _, err := message.NewDecoder(resp2)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if err := dec2.To(message.SectionAnswer); err != nil {
		t.Fatalf("To(Answer): %v", err)
	}
	answers2, err := dec2.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(answers2) != 1 {
		t.Fatalf("got %d instance answers, want 1", len(answers2))
	}
	ptr2, ok := answers2[0].Data.(rr.PTR)
	if !ok || ptr2.Target.String() != "My Printer._ipp._tcp.local." {
		t.Errorf("service PTR target = %+v, want My Printer._ipp._tcp.local.", answers2[0].Data)
	}

	// Query the instance name for SRV and TXT.
	srvQuery := buildQuery(t, mustName(t, "My Printer._ipp._tcp.local."), protocol.QTypeALL)
	resp3, ok := db.HandlePacket(srvQuery)
	if !ok {
		t.Fatal("expected a response to the instance query")
	}
	dec3, _, err := message.NewDecoder(resp3)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if err := dec3.To(message.SectionAnswer); err != nil {
		t.Fatalf("To(Answer): %v", err)
	}
	answers3, err := dec3.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(answers3) != 2 {
		t.Fatalf("got %d instance answers, want 2 (SRV+TXT)", len(answers3))
	}
}

func TestHandlePacketRejectsNonQuery(t *testing.T) {
	domain := mustName(t, "local.")
	db := NewDatabase(domain)
	_ = db.AddName("host", net.ParseIP("192.0.2.5"))

	h := message.Header{ID: 1}
	h = h.SetQR(true) // a response, not a query
	enc := message.NewEncoder(make([]byte, 0, protocol.MulticastBufferSize), h)
	_ = enc.WriteQuestion(message.Question{Name: mustName(t, "host.local."), Type: protocol.QType(protocol.TypeA), Class: protocol.QClass(protocol.ClassIN)})
	query, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if _, ok := db.HandlePacket(query); ok {
		t.Error("expected no response to a non-query packet")
	}
}

func TestHandlePacketNoMatchReturnsNoResponse(t *testing.T) {
	domain := mustName(t, "local.")
	db := NewDatabase(domain)
	_ = db.AddName("host", net.ParseIP("192.0.2.5"))

	query := buildQuery(t, mustName(t, "other.local."), protocol.QType(protocol.TypeA))
	if _, ok := db.HandlePacket(query); ok {
		t.Error("expected no response for an unmatched name")
	}
}

func TestRemoveDropsOwnerEntries(t *testing.T) {
	domain := mustName(t, "local.")
	db := NewDatabase(domain)
	_ = db.AddName("host", net.ParseIP("192.0.2.5"))
	owner := mustName(t, "host.local.")

	db.Remove(owner)
	query := buildQuery(t, owner, protocol.QType(protocol.TypeA))
	if _, ok := db.HandlePacket(query); ok {
		t.Error("expected no response after Remove")
	}
}
