// File: protocol/validate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/momentics/hioload-handshake/api"
)

// ValidateResponse checks that resp accepts the upgrade: status 101, an
// Upgrade header equal to "websocket" and a Connection header containing
// "upgrade", both compared case-insensitively. With verifyAccept the
// Sec-WebSocket-Accept value must match key as well.
func ValidateResponse(resp *api.HandshakeResponse, key string, verifyAccept bool) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return reject(resp, "unexpected status %d", resp.StatusCode)
	}
	if !headerEquals(resp.Header, HeaderUpgrade, "websocket") {
		return reject(resp, "Upgrade header is %q, want \"websocket\"", resp.Header.Get(HeaderUpgrade))
	}
	if !headerContains(resp.Header, HeaderConnection, "upgrade") {
		return reject(resp, "Connection header %q does not contain \"Upgrade\"", resp.Header.Get(HeaderConnection))
	}
	if verifyAccept {
		want := ComputeAcceptKey(key)
		if got := resp.Header.Get(HeaderSecWebSocketAccept); got != want {
			return reject(resp, "Sec-WebSocket-Accept is %q, want %q", got, want)
		}
	}
	return nil
}

func reject(resp *api.HandshakeResponse, format string, args ...any) error {
	return &api.HandshakeRejectedError{Response: resp, Reason: fmt.Sprintf(format, args...)}
}

func headerEquals(h http.Header, name, want string) bool {
	for _, v := range h.Values(name) {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

func headerContains(h http.Header, name, sub string) bool {
	for _, v := range h.Values(name) {
		if strings.Contains(strings.ToLower(v), sub) {
			return true
		}
	}
	return false
}
