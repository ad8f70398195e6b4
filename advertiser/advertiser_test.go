package advertiser

import (
	"net"
	"testing"
)

func TestServiceValidateRejectsMissingFields(t *testing.T) {
	cases := []Service{
		{ServiceName: "http", Transport: "tcp", Port: 80},
		{InstanceName: "x", Transport: "tcp", Port: 80},
		{InstanceName: "x", ServiceName: "http", Port: 80},
		{InstanceName: "x", ServiceName: "http", Transport: "tcp"},
	}
	for i, s := range cases {
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: expected a validation error, got nil", i)
		}
	}
}

func TestServiceValidateAcceptsWellFormed(t *testing.T) {
	s := Service{InstanceName: "My Printer", ServiceName: "ipp", Transport: "tcp", Port: 631}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithHostnameRejectsEmpty(t *testing.T) {
	a, err := New(WithHostname(""))
	if err == nil {
		a.Close()
		t.Fatal("expected an error for an empty hostname")
	}
}

func TestNewRegisterAndClose(t *testing.T) {
	a, err := New(WithHostname("test-host.local"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.AddName("test-host", net.ParseIP("192.0.2.50")); err != nil {
		t.Fatalf("AddName: %v", err)
	}

	err = a.Register(Service{
		InstanceName: "Test Service",
		ServiceName:  "test",
		Transport:    "tcp",
		Port:         9999,
		TXT:          map[string]string{"k": "v"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if s := a.String(); s == "" {
		t.Fatal("expected a non-empty String() diagnostic")
	}
}

func TestRegisterRejectsInvalidService(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Register(Service{}); err == nil {
		t.Fatal("expected an error for an empty Service")
	}
}
