package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestDialerFunc(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	var gotAddr string
	d := DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		gotAddr = address
		return client, nil
	})
	conn, err := d.DialContext(context.Background(), "tcp", "example.test:11011")
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()
	if gotAddr != "example.test:11011" {
		t.Errorf("address = %q", gotAddr)
	}
}

func TestNetDialerRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	_, err = NewDialer(SocketOptions{NoDelay: true}).DialContext(ctx, "tcp", addr)
	if err == nil {
		t.Fatal("expected dial error on closed port")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("refused dial took %v", time.Since(start))
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("error %T is not *net.OpError", err)
	}
}

func TestNewDialerKeepAliveOwnership(t *testing.T) {
	if d := NewDialer(SocketOptions{KeepAlive: time.Minute}); d.d.KeepAlive != -1 {
		t.Errorf("KeepAlive = %v, want -1 when configured explicitly", d.d.KeepAlive)
	}
	if d := NewDialer(SocketOptions{}); d.d.KeepAlive != 0 {
		t.Errorf("KeepAlive = %v, want net default", d.d.KeepAlive)
	}
	if got := NewDialer(SocketOptions{NoDelay: true}).Options(); !got.NoDelay {
		t.Error("Options lost NoDelay")
	}
}
