package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestUnicastTransportImplementsTransport(_ *testing.T) {
	var _ Transport = (*UnicastTransport)(nil)
}

func TestUnicastTransportSendReceiveLoopback(t *testing.T) {
	server, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP server: %v", err)
	}
	defer server.Close()

	client, err := NewUnicastTransport("udp4")
	if err != nil {
		t.Fatalf("NewUnicastTransport: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := client.Send(ctx, payload, server.LocalAddr()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 512)
	_ = server.SetReadDeadline(time.Now().Add(time.Second))
	n, clientAddr, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatalf("server ReadFrom: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("server got %v, want %v", buf[:n], payload)
	}

	if _, err := server.WriteTo([]byte("reply"), clientAddr); err != nil {
		t.Fatalf("server WriteTo: %v", err)
	}

	got, _, err := client.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "reply" {
		t.Fatalf("Receive = %q, want %q", got, "reply")
	}
}

func TestUnicastTransportReceiveRequiresDeadline(t *testing.T) {
	client, err := NewUnicastTransport("udp4")
	if err != nil {
		t.Fatalf("NewUnicastTransport: %v", err)
	}
	defer client.Close()

	_, _, err = client.Receive(context.Background())
	if err == nil {
		t.Fatal("expected error when ctx carries no deadline")
	}
}

func TestUnicastTransportReceiveRespectsCancellation(t *testing.T) {
	client, err := NewUnicastTransport("udp4")
	if err != nil {
		t.Fatalf("NewUnicastTransport: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, _, err = client.Receive(ctx)
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Receive took too long to detect cancellation")
	}
}
