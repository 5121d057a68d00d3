// File: client/client.go
// Package client provides the WebSocket opening-handshake client.
// Author: momentics <momentics.com>
// License: Apache-2.0
//
// The client implements:
// - RFC6455 Upgrade handshake over bare TCP
// - One deadline bounding dial, request write and response read
// - Typed failures (connect, timeout, peer close, rejected, malformed)
// - Idempotent Close on the resulting connection
//
// A call to Connect or Probe is a single synchronous attempt on the
// caller's goroutine. Retrying is left to the caller.

package client

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/protocol"
	"github.com/momentics/hioload-handshake/transport"
)

// Observer receives one start and one finish notification per attempt.
// err is nil for a successful handshake.
type Observer interface {
	HandshakeStarted(ep api.Endpoint)
	HandshakeFinished(ep api.Endpoint, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) HandshakeStarted(api.Endpoint) {}
func (nopObserver) HandshakeFinished(api.Endpoint, time.Duration, error) {}

// Option customises a Client.
type Option func(*Client)

// WithDialer replaces the TCP dialer, e.g. with an in-memory pipe.
func WithDialer(d transport.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithObserver registers an attempt observer such as control.Metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.obs = o }
}

// WithRandom sets the nonce source. Defaults to crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(c *Client) { c.rand = r }
}

// Client performs handshakes. It holds no per-connection state and is
// safe for concurrent use.
type Client struct {
	cfg    Config
	dialer transport.Dialer
	log    zerolog.Logger
	obs    Observer
	rand   io.Reader
}

// New constructs a Client. Zero fields of cfg take their defaults.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg.withDefaults(),
		log: zerolog.Nop(),
		obs: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = transport.NewDialer(c.cfg.Socket)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Request builds the handshake request that an attempt against ep
// would send.
func (c *Client) Request(ep api.Endpoint) (*api.HandshakeRequest, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	key := c.cfg.Key
	if key == "" {
		var err error
		if key, err = protocol.GenerateKey(c.rand); err != nil {
			return nil, err
		}
	}
	return protocol.NewRequest(ep, key), nil
}

// Connect performs one handshake against ep. The whole exchange is bounded
// by timeout. On success the returned Conn is open and owns the socket;
// on failure no socket is left open.
func (c *Client) Connect(ep api.Endpoint, timeout time.Duration) (*Conn, error) {
	res, err := c.attempt(ep, timeout, true)
	if err != nil {
		return nil, err
	}
	return newConn(res.nc, res.req, res.resp, res.rest, res.log), nil
}

// Probe sends the handshake request and returns whatever response header
// block comes back, without validating it. The socket is always closed.
func (c *Client) Probe(ep api.Endpoint, timeout time.Duration) (*api.HandshakeResponse, error) {
	res, err := c.attempt(ep, timeout, false)
	if err != nil {
		return nil, err
	}
	if cerr := res.nc.Close(); cerr != nil {
		res.log.Debug().Err(cerr).Msg("close after probe")
	}
	return res.resp, nil
}

type result struct {
	nc   net.Conn
	req  *api.HandshakeRequest
	resp *api.HandshakeResponse
	rest []byte
	log  zerolog.Logger
}

func (c *Client) attempt(ep api.Endpoint, timeout time.Duration, validate bool) (res result, err error) {
	if err := ep.Validate(); err != nil {
		return res, err
	}
	if timeout <= 0 {
		return res, api.NewError(api.ErrCodeInvalidArgument, "timeout must be positive").
			WithContext("timeout", timeout.String())
	}

	res.log = c.log.With().
		Str("attempt", uuid.NewString()).
		Str("endpoint", ep.String()).
		Logger()

	start := time.Now()
	deadline := start.Add(timeout)
	c.obs.HandshakeStarted(ep)
	defer func() {
		elapsed := time.Since(start)
		c.obs.HandshakeFinished(ep, elapsed, err)
		if err != nil {
			res.log.Debug().Err(err).Str("code", api.CodeOf(err).String()).Dur("elapsed", elapsed).Msg("handshake failed")
			return
		}
		res.log.Debug().Int("status", res.resp.StatusCode).Dur("elapsed", elapsed).Msg("handshake complete")
	}()

	if res.req, err = c.Request(ep); err != nil {
		return res, err
	}

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	nc, err := c.dialer.DialContext(ctx, "tcp", ep.Address())
	if err != nil {
		return res, connectError(ep, err)
	}
	// Every path below either hands nc to the caller or closes it.
	fail := func(e error) (result, error) {
		_ = nc.Close()
		return res, e
	}

	if err := nc.SetDeadline(deadline); err != nil {
		return fail(ioError(err, timeout, 0))
	}
	n, err := protocol.WriteRequest(nc, res.req)
	if err != nil {
		return fail(ioError(err, timeout, 0))
	}
	res.log.Debug().Int("bytes", n).Msg("request sent")

	head, rest, err := protocol.ReadHeaderBlock(nc, c.cfg.MaxHeaderBytes)
	if err != nil {
		return fail(ioError(err, timeout, len(head)))
	}
	if res.resp, err = protocol.ParseResponse(head); err != nil {
		return fail(err)
	}
	if validate {
		if err := protocol.ValidateResponse(res.resp, res.req.Key(), c.cfg.VerifyAccept); err != nil {
			return fail(err)
		}
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		return fail(ioError(err, timeout, len(head)))
	}
	res.nc = nc
	res.rest = rest
	return res, nil
}

// connectError maps a dial failure to *api.ConnectError with a short reason.
func connectError(ep api.Endpoint, err error) error {
	reason := err.Error()
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		reason = "dns lookup failed: " + dnsErr.Err
	case errors.Is(err, syscall.ECONNREFUSED):
		reason = "connection refused"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		reason = "host unreachable"
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		reason = "dial timed out"
	}
	return &api.ConnectError{Addr: ep.Address(), Reason: reason, Err: err}
}

// ioError classifies an error from the request write or response read.
// Errors already typed by the protocol package pass through.
func ioError(err error, timeout time.Duration, received int) error {
	var closed *api.ConnectionClosedError
	var malformed *api.MalformedResponseError
	switch {
	case errors.As(err, &closed), errors.As(err, &malformed):
		return err
	case isTimeout(err):
		return &api.TimeoutError{Limit: timeout, Received: received, Err: err}
	default:
		return &api.ConnectionClosedError{Received: received, Err: err}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
