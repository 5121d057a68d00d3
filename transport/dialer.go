// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"context"
	"net"
	"syscall"
	"time"
)

// Dialer opens a stream connection. *net.Dialer satisfies it, and tests
// substitute in-memory pipes.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContext calls f.
func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// SocketOptions are TCP options set on the socket before connecting.
type SocketOptions struct {
	NoDelay     bool          `koanf:"nodelay"`
	KeepAlive   time.Duration `koanf:"keepalive"`   // idle time before probes, 0 = system default
	UserTimeout time.Duration `koanf:"usertimeout"` // TCP_USER_TIMEOUT, 0 = unset
}

// NetDialer is a net.Dialer that applies SocketOptions.
type NetDialer struct {
	opts SocketOptions
	d    net.Dialer
}

// NewDialer returns a dialer applying opts to every socket it opens.
func NewDialer(opts SocketOptions) *NetDialer {
	nd := &NetDialer{opts: opts}
	if opts.KeepAlive > 0 {
		// keepalive is configured in control; keep net from overriding it
		nd.d.KeepAlive = -1
	}
	nd.d.Control = nd.control
	return nd
}

// Options returns the socket options of the dialer.
func (nd *NetDialer) Options() SocketOptions { return nd.opts }

// DialContext dials address honoring ctx's deadline.
func (nd *NetDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return nd.d.DialContext(ctx, network, address)
}

func (nd *NetDialer) control(network, address string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = applySocketOptions(fd, nd.opts)
	}); err != nil {
		return err
	}
	return serr
}
