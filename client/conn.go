// File: client/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-handshake/api"
)

// Conn is a connection whose opening handshake succeeded. It is open until
// Close is called, then closed for good. Conn implements net.Conn.
type Conn struct {
	nc   net.Conn
	req  *api.HandshakeRequest
	resp *api.HandshakeResponse
	log  zerolog.Logger

	mu      sync.Mutex // guards pending
	pending []byte     // bytes read past the header block

	closed atomic.Bool
}

var _ net.Conn = (*Conn)(nil)

func newConn(nc net.Conn, req *api.HandshakeRequest, resp *api.HandshakeResponse, rest []byte, log zerolog.Logger) *Conn {
	c := &Conn{nc: nc, req: req, resp: resp, log: log}
	if len(rest) > 0 {
		c.pending = append([]byte(nil), rest...)
	}
	return c
}

// Request returns the request that opened the connection.
func (c *Conn) Request() *api.HandshakeRequest { return c.req }

// Response returns the accepted handshake response.
func (c *Conn) Response() *api.HandshakeResponse { return c.resp }

// State reports whether the connection is open or closed.
func (c *Conn) State() api.ConnState {
	if c.closed.Load() {
		return api.ConnClosed
	}
	return api.ConnOpen
}

// Read serves bytes that arrived with the handshake response first, then
// reads from the socket.
func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrConnClosed
	}
	c.mu.Lock()
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()
	return c.nc.Read(p)
}

// Write writes to the socket.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrConnClosed
	}
	return c.nc.Write(p)
}

// Close closes the socket once. Later calls are no-ops returning nil.
func (c *Conn) Close() error {
	// Only first caller proceeds
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.nc.Close()
	c.log.Debug().Err(err).Msg("connection closed")
	return err
}

func (c *Conn) LocalAddr() net.Addr  { return c.nc.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *Conn) SetDeadline(t time.Time) error      { return c.nc.SetDeadline(t) }
func (c *Conn) SetReadDeadline(t time.Time) error  { return c.nc.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.nc.SetWriteDeadline(t) }
