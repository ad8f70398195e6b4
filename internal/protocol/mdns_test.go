package protocol

import "testing"

func TestTypeIsSupported(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want bool
	}{
		{"A", TypeA, true},
		{"AAAA", TypeAAAA, true},
		{"CNAME", TypeCNAME, true},
		{"MX", TypeMX, true},
		{"NS", TypeNS, true},
		{"PTR", TypePTR, true},
		{"TXT", TypeTXT, true},
		{"SRV", TypeSRV, true},
		{"SOA", TypeSOA, true},
		{"unsupported HINFO (13)", Type(13), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsSupported(); got != tt.want {
				t.Errorf("Type(%d).IsSupported() = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestMatchesQType(t *testing.T) {
	if !MatchesQType(TypeA, QTypeALL) {
		t.Error("ALL wildcard must match any record type")
	}
	if !MatchesQType(TypeSRV, QType(TypeSRV)) {
		t.Error("exact QType must match same record type")
	}
	if MatchesQType(TypeSRV, QType(TypeA)) {
		t.Error("mismatched QType must not match")
	}
}

func TestMatchesQClass(t *testing.T) {
	if !MatchesQClass(ClassIN, QClassANY) {
		t.Error("ANY wildcard must match any class")
	}
	if !MatchesQClass(ClassIN, QClass(ClassIN)) {
		t.Error("exact QClass must match same class")
	}
}

func TestOpcodeRoundTrip(t *testing.T) {
	var flags uint16
	flags = SetOpcode(flags, OpcodeQuery)
	if GetOpcode(flags) != OpcodeQuery {
		t.Errorf("GetOpcode() = %v, want OpcodeQuery", GetOpcode(flags))
	}

	// Setting OPCODE must not disturb unrelated flag bits.
	flags = FlagRD | FlagQR
	flags = SetOpcode(flags, Opcode(2))
	if flags&FlagRD == 0 || flags&FlagQR == 0 {
		t.Error("SetOpcode must not clear unrelated flag bits")
	}
	if GetOpcode(flags) != 2 {
		t.Errorf("GetOpcode() = %v, want 2", GetOpcode(flags))
	}
}

func TestRCodeRoundTrip(t *testing.T) {
	flags := SetRCode(uint16(0), RCode(3))
	if GetRCode(flags) != 3 {
		t.Errorf("GetRCode() = %v, want 3", GetRCode(flags))
	}
}

func TestClassTopBitMask(t *testing.T) {
	wire := uint16(ClassIN) | ClassTopBit
	if wire&ClassMask != uint16(ClassIN) {
		t.Errorf("masked class = %d, want %d", wire&ClassMask, ClassIN)
	}
	if wire&ClassTopBit == 0 {
		t.Error("top bit should still be set on the raw wire value")
	}
}
