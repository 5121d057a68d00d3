// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants of the handshake client.

package api

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPath is used when an Endpoint carries no path.
const DefaultPath = "/"

// Endpoint identifies the server a handshake is attempted against.
type Endpoint struct {
	Host string
	Port int
	Path string
}

// Address returns host:port, bracketing IPv6 literals.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// RequestPath returns the path, defaulting to "/".
func (e Endpoint) RequestPath() string {
	if e.Path == "" {
		return DefaultPath
	}
	return e.Path
}

// String renders the endpoint as a ws:// URL.
func (e Endpoint) String() string {
	return "ws://" + e.Address() + e.RequestPath()
}

// Validate checks host, port range and path.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return NewError(ErrCodeInvalidArgument, "endpoint host is empty")
	}
	if !validHost(e.Host) {
		return NewError(ErrCodeInvalidArgument, "endpoint host contains invalid characters").
			WithContext("host", e.Host)
	}
	if e.Port < 1 || e.Port > 65535 {
		return NewError(ErrCodeInvalidArgument, "endpoint port out of range").
			WithContext("port", e.Port)
	}
	if p := e.Path; p != "" && !strings.HasPrefix(p, "/") {
		return NewError(ErrCodeInvalidArgument, "endpoint path must start with '/'").
			WithContext("path", p)
	}
	if strings.IndexFunc(e.Path, isSpaceOrControl) >= 0 {
		return NewError(ErrCodeInvalidArgument, "endpoint path contains whitespace or control characters").
			WithContext("path", e.Path)
	}
	return nil
}

// validHost rejects anything that could end the Host header line or is
// not part of a bare host name or IP literal.
func validHost(h string) bool {
	return strings.IndexFunc(h, isSpaceOrControl) < 0 && !strings.ContainsAny(h, "/?#@[]")
}

func isSpaceOrControl(r rune) bool {
	return r <= ' ' || r == 0x7f
}

// ParseEndpoint accepts "ws://host:port/path", "host:port/path" or
// "host:port". A ws:// URL without a port gets 80.
func ParseEndpoint(s string) (Endpoint, error) {
	if s == "" {
		return Endpoint{}, NewError(ErrCodeInvalidArgument, "empty endpoint")
	}
	if !strings.Contains(s, "://") {
		s = "ws://" + s
	} else if !strings.HasPrefix(s, "ws://") {
		return Endpoint{}, NewError(ErrCodeInvalidArgument, "only ws:// endpoints are supported").
			WithContext("endpoint", s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, NewError(ErrCodeInvalidArgument, "invalid endpoint: "+err.Error())
	}
	ep := Endpoint{Host: u.Hostname(), Port: 80, Path: u.RequestURI()}
	if ps := u.Port(); ps != "" {
		p, err := strconv.Atoi(ps)
		if err != nil {
			return Endpoint{}, NewError(ErrCodeInvalidArgument, "invalid endpoint port").
				WithContext("port", ps)
		}
		ep.Port = p
	}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

// Header is a single name/value pair of a HandshakeRequest.
type Header struct {
	Name  string
	Value string
}

// HandshakeRequest is the opening Upgrade request, built once per attempt.
// Headers keep their wire order.
type HandshakeRequest struct {
	Method  string
	Path    string
	Headers []Header
}

// Get returns the first value of the named header (case-insensitive).
func (r *HandshakeRequest) Get(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Key returns the Sec-WebSocket-Key nonce.
func (r *HandshakeRequest) Key() string {
	return r.Get("Sec-WebSocket-Key")
}

// HandshakeResponse is the parsed response header block.
type HandshakeResponse struct {
	Proto      string // e.g. "HTTP/1.1"
	StatusCode int
	Reason     string
	StatusLine string
	Header     http.Header // canonical keys, case-insensitive via Get
	Raw        []byte      // header block as received, terminator included
}

// ConnState enumerates the externally observable states of a connection.
type ConnState int

const (
	ConnOpen ConnState = iota
	ConnClosed
)

func (s ConnState) String() string {
	if s == ConnOpen {
		return "open"
	}
	return "closed"
}
