package rr

import (
	"errors"
	"net"
	"testing"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/name"
	"github.com/joshuafuller/dnssd/internal/protocol"
	"github.com/joshuafuller/dnssd/internal/wire"
)

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.Parse(s)
	if err != nil {
		t.Fatalf("name.Parse(%q): %v", s, err)
	}
	return n
}

// TestRecordRoundTrip covers P3: every supported record type round-trips
// through Encode then DecodeRecord with identical field values.
func TestRecordRoundTrip(t *testing.T) {
	txt, err := NewTXT([]byte("path=/"), []byte("version=1"))
	if err != nil {
		t.Fatalf("NewTXT: %v", err)
	}

	tests := []struct {
		name string
		rec  Record
	}{
		{"A", Record{Name: mustName(t, "host.local."), Class: protocol.ClassIN, TTL: protocol.TTLHostname, Data: A{Addr: net.IPv4(192, 168, 1, 5)}}},
		{"AAAA", Record{Name: mustName(t, "host.local."), Class: protocol.ClassIN, TTL: protocol.TTLHostname, Data: AAAA{Addr: net.ParseIP("fe80::1")}}},
		{"CNAME", Record{Name: mustName(t, "alias.local."), Class: protocol.ClassIN, TTL: protocol.TTLHostname, Data: CNAME{Target: mustName(t, "host.local.")}}},
		{"NS", Record{Name: mustName(t, "local."), Class: protocol.ClassIN, TTL: protocol.TTLService, Data: NS{Target: mustName(t, "ns.local.")}}},
		{"PTR", Record{Name: mustName(t, "_http._tcp.local."), Class: protocol.ClassIN, CacheFlush: false, TTL: protocol.TTLService, Data: PTR{Target: mustName(t, "My Instance._http._tcp.local.")}}},
		{"MX", Record{Name: mustName(t, "local."), Class: protocol.ClassIN, TTL: protocol.TTLHostname, Data: MX{Preference: 10, Exchange: mustName(t, "mail.local.")}}},
		{"TXT", Record{Name: mustName(t, "My Instance._http._tcp.local."), Class: protocol.ClassIN, CacheFlush: true, TTL: protocol.TTLService, Data: txt}},
		{"SRV", Record{Name: mustName(t, "My Instance._http._tcp.local."), Class: protocol.ClassIN, CacheFlush: true, TTL: protocol.TTLService, Data: SRV{Priority: 0, Weight: 0, Port: 8080, Target: mustName(t, "host.local.")}}},
		{"SOA", Record{Name: mustName(t, "local."), Class: protocol.ClassIN, TTL: protocol.TTLHostname, Data: SOA{MName: mustName(t, "ns.local."), RName: mustName(t, "admin.local."), Serial: 1, Refresh: 3600, Retry: 900, Expire: 604800, Minimum: 60}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 0, 512)
			w := wire.NewWriter(buf)
			if err := Encode(w, tt.rec); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, newOffset, err := DecodeRecord(w.Bytes(), 0)
			if err != nil {
				t.Fatalf("DecodeRecord: %v", err)
			}
			if newOffset != w.Len() {
				t.Errorf("newOffset = %d, want %d", newOffset, w.Len())
			}
			if got.Data.Type() != tt.rec.Data.Type() {
				t.Errorf("decoded type = %v, want %v", got.Data.Type(), tt.rec.Data.Type())
			}
			if got.TTL != tt.rec.TTL {
				t.Errorf("TTL = %d, want %d", got.TTL, tt.rec.TTL)
			}
			if got.CacheFlush != tt.rec.CacheFlush {
				t.Errorf("CacheFlush = %v, want %v", got.CacheFlush, tt.rec.CacheFlush)
			}
		})
	}
}

// TestSOAScenarioBytes covers S2: a hand-built SOA record decodes to the
// expected field values.
func TestSOAScenarioBytes(t *testing.T) {
	rec := Record{
		Name:  mustName(t, "example.com."),
		Class: protocol.ClassIN,
		TTL:   3600,
		Data: SOA{
			MName: mustName(t, "ns1.example.com."), RName: mustName(t, "admin.example.com."),
			Serial: 2024010100, Refresh: 7200, Retry: 3600, Expire: 1209600, Minimum: 300,
		},
	}
	buf := make([]byte, 0, 512)
	w := wire.NewWriter(buf)
	if err := Encode(w, rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := DecodeRecord(w.Bytes(), 0)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	soa, ok := got.Data.(SOA)
	if !ok {
		t.Fatalf("decoded Data is %T, want SOA", got.Data)
	}
	if soa.Serial != 2024010100 || soa.Minimum != 300 {
		t.Errorf("SOA = %+v", soa)
	}
	if !name.Equal(soa.MName, rec.Data.(SOA).MName) {
		t.Errorf("MName = %v, want %v", soa.MName, rec.Data.(SOA).MName)
	}
}

func TestNewTXTRejectsEmpty(t *testing.T) {
	_, err := NewTXT()
	var ve *dnserrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got err %v, want ValidationError", err)
	}
}

func TestDecodeTXTZeroLength(t *testing.T) {
	txt, err := decodeTXT(nil)
	if err != nil {
		t.Fatalf("decodeTXT: %v", err)
	}
	if len(txt.Strings) != 0 {
		t.Errorf("got %d strings, want 0", len(txt.Strings))
	}
}

func TestDecodeTXTLengthSumInvariant(t *testing.T) {
	// claims a 10-byte string but only 3 bytes remain (I5 violation).
	rdata := []byte{10, 'a', 'b', 'c'}
	_, err := decodeTXT(rdata)
	var wfe *dnserrors.WireFormatError
	if !errors.As(err, &wfe) || wfe.Kind != dnserrors.KindEOF {
		t.Fatalf("got err %v, want EOF", err)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	rec := Record{Name: mustName(t, "host.local."), Class: protocol.ClassIN, TTL: 60, Data: Unknown{RRType: protocol.Type(13), Raw: []byte{1, 2, 3}}}
	buf := make([]byte, 0, 64)
	w := wire.NewWriter(buf)
	if err := Encode(w, rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := DecodeRecord(w.Bytes(), 0)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	u, ok := got.Data.(Unknown)
	if !ok {
		t.Fatalf("decoded Data is %T, want Unknown", got.Data)
	}
	if u.RRType != protocol.Type(13) || len(u.Raw) != 3 {
		t.Errorf("Unknown = %+v", u)
	}
}

func TestDecodeInvalidARecordLength(t *testing.T) {
	rec := Record{Name: mustName(t, "host.local."), Class: protocol.ClassIN, TTL: 60, Data: Unknown{RRType: protocol.TypeA, Raw: []byte{1, 2, 3}}}
	buf := make([]byte, 0, 64)
	w := wire.NewWriter(buf)
	if err := Encode(w, rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, _, err := DecodeRecord(w.Bytes(), 0)
	var wfe *dnserrors.WireFormatError
	if !errors.As(err, &wfe) || wfe.Kind != dnserrors.KindInvalidValue {
		t.Fatalf("got err %v, want InvalidValue", err)
	}
}

func TestCacheFlushBitRoundTrip(t *testing.T) {
	rec := Record{Name: mustName(t, "host.local."), Class: protocol.ClassIN, CacheFlush: true, TTL: 60, Data: A{Addr: net.IPv4(10, 0, 0, 1)}}
	buf := make([]byte, 0, 64)
	w := wire.NewWriter(buf)
	if err := Encode(w, rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := DecodeRecord(w.Bytes(), 0)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if !got.CacheFlush {
		t.Error("cache-flush bit lost on round trip")
	}
	if got.Class != protocol.ClassIN {
		t.Errorf("Class = %v, want ClassIN (top bit must be masked out)", got.Class)
	}
}
