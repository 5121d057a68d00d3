// File: protocol/handshake.go
// Package protocol implements the client side of the RFC 6455 opening
// handshake for hioload-handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Everything here works on io.Reader/io.Writer and byte slices, so the
// serialization and parsing rules are testable without sockets.

package protocol

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/momentics/hioload-handshake/api"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderHost               = "Host"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	RequiredWebSocketVersion = "13"
	MaxHandshakeHeadersSize  = 8192

	// NonceSize is the length of the raw Sec-WebSocket-Key nonce.
	NonceSize = 16
)

var crlf = []byte("\r\n")

// GenerateKey reads a 16-byte nonce from r (crypto/rand when r is nil)
// and returns it base64 encoded.
func GenerateKey(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return "", fmt.Errorf("handshake nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(nonce[:]), nil
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value for key
// (RFC 6455 section 1.3).
func ComputeAcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// NewRequest builds the Upgrade request for ep. The Host header carries
// host:port as given by the endpoint.
func NewRequest(ep api.Endpoint, key string) *api.HandshakeRequest {
	return &api.HandshakeRequest{
		Method: "GET",
		Path:   ep.RequestPath(),
		Headers: []api.Header{
			{Name: HeaderHost, Value: ep.Address()},
			{Name: HeaderUpgrade, Value: "websocket"},
			{Name: HeaderConnection, Value: "Upgrade"},
			{Name: HeaderSecWebSocketKey, Value: key},
			{Name: HeaderSecWebSocketVer, Value: RequiredWebSocketVersion},
		},
	}
}

// AppendRequest appends the wire form of req to dst.
func AppendRequest(dst []byte, req *api.HandshakeRequest) []byte {
	dst = append(dst, req.Method...)
	dst = append(dst, ' ')
	dst = append(dst, req.Path...)
	dst = append(dst, " HTTP/1.1"...)
	dst = append(dst, crlf...)
	for _, h := range req.Headers {
		dst = append(dst, h.Name...)
		dst = append(dst, ": "...)
		dst = append(dst, h.Value...)
		dst = append(dst, crlf...)
	}
	return append(dst, crlf...)
}

// WriteRequest writes the complete request to w, retrying short writes.
// It returns the number of bytes written.
func WriteRequest(w io.Writer, req *api.HandshakeRequest) (int, error) {
	buf := AppendRequest(make([]byte, 0, 256), req)
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// ValidKey reports whether key is a base64 encoded 16-byte nonce.
func ValidKey(key string) bool {
	raw, err := base64.StdEncoding.DecodeString(key)
	return err == nil && len(raw) == NonceSize
}
