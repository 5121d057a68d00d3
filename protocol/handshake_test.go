package protocol_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/fake"
	"github.com/momentics/hioload-handshake/protocol"
)

const sampleKey = "dGhlIHNhbXBsZSBub25jZQ=="

var localhost = api.Endpoint{Host: "localhost", Port: 11011, Path: "/"}

func TestRequestWireFormat(t *testing.T) {
	req := protocol.NewRequest(localhost, sampleKey)
	want := "GET / HTTP/1.1\r\n" +
		"Host: localhost:11011\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	if got := string(protocol.AppendRequest(nil, req)); got != want {
		t.Fatalf("request bytes:\n%q\nwant\n%q", got, want)
	}
	if req.Key() != sampleKey {
		t.Errorf("Key() = %q", req.Key())
	}
}

func TestRequestPathAndIPv6Host(t *testing.T) {
	req := protocol.NewRequest(api.Endpoint{Host: "::1", Port: 9000, Path: "/chat?room=1"}, sampleKey)
	got := string(protocol.AppendRequest(nil, req))
	if !bytes.HasPrefix([]byte(got), []byte("GET /chat?room=1 HTTP/1.1\r\nHost: [::1]:9000\r\n")) {
		t.Errorf("unexpected request head %q", got)
	}
	req = protocol.NewRequest(api.Endpoint{Host: "h", Port: 80}, sampleKey)
	if req.Path != "/" {
		t.Errorf("empty path should default to /, got %q", req.Path)
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := protocol.GenerateKey(bytes.NewReader(make([]byte, protocol.NonceSize)))
	if err != nil {
		t.Fatal(err)
	}
	if key != "AAAAAAAAAAAAAAAAAAAAAA==" {
		t.Errorf("key = %q", key)
	}
	if _, err := protocol.GenerateKey(bytes.NewReader(make([]byte, 4))); err == nil {
		t.Error("short nonce source should fail")
	}

	a, err := protocol.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := protocol.GenerateKey(nil)
	if a == b {
		t.Error("random keys repeat")
	}
	if !protocol.ValidKey(a) {
		t.Errorf("generated key %q is not valid", a)
	}
	if protocol.ValidKey("c2hvcnQ=") || protocol.ValidKey("not base64!") {
		t.Error("ValidKey accepted a bad key")
	}
}

func TestComputeAcceptKey(t *testing.T) {
	// RFC 6455 section 1.3 example.
	if got := protocol.ComputeAcceptKey(sampleKey); got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Errorf("accept = %q", got)
	}
}

func TestWriteRequestShortWrites(t *testing.T) {
	req := protocol.NewRequest(localhost, sampleKey)
	var out bytes.Buffer
	sw := &fake.ShortWriter{W: &out, Max: 7}
	n, err := protocol.WriteRequest(sw, req)
	if err != nil {
		t.Fatal(err)
	}
	want := protocol.AppendRequest(nil, req)
	if n != len(want) || !bytes.Equal(out.Bytes(), want) {
		t.Errorf("wrote %d bytes %q", n, out.Bytes())
	}
	if sw.Calls < len(want)/7 {
		t.Errorf("expected repeated writes, got %d calls", sw.Calls)
	}
}

type stuckWriter struct{}

func (stuckWriter) Write([]byte) (int, error) { return 0, nil }

type brokenWriter struct{ after int }

func (w *brokenWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, io.ErrClosedPipe
	}
	n := min(len(p), w.after)
	w.after -= n
	return n, nil
}

func TestWriteRequestErrors(t *testing.T) {
	req := protocol.NewRequest(localhost, sampleKey)
	if _, err := protocol.WriteRequest(stuckWriter{}, req); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("zero-progress writer: %v", err)
	}
	n, err := protocol.WriteRequest(&brokenWriter{after: 10}, req)
	if !errors.Is(err, io.ErrClosedPipe) || n != 10 {
		t.Errorf("broken writer: n=%d err=%v", n, err)
	}
}
