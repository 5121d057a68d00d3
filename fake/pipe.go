// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/momentics/hioload-handshake/transport"
)

// PipeDialer returns a dialer whose connections are in-memory pipes served
// by peer. Each dial runs peer on its own goroutine; the peer end is closed
// when peer returns.
func PipeDialer(peer func(conn net.Conn)) transport.Dialer {
	return transport.DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		local, remote := net.Pipe()
		go func() {
			defer remote.Close()
			peer(remote)
		}()
		return local, nil
	})
}

// FailingDialer returns a dialer that always fails with err.
func FailingDialer(err error) transport.Dialer {
	return transport.DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, err
	})
}

// ShortWriter accepts at most Max bytes per Write call.
type ShortWriter struct {
	W     io.Writer
	Max   int
	Calls int
}

func (sw *ShortWriter) Write(p []byte) (int, error) {
	sw.Calls++
	if len(p) > sw.Max {
		p = p[:sw.Max]
	}
	return sw.W.Write(p)
}

// ChunkReader returns the data in chunks of at most Size bytes per Read,
// then Err (io.EOF when nil).
type ChunkReader struct {
	Data []byte
	Size int
	Err  error
}

func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(cr.Data) == 0 {
		if cr.Err != nil {
			return 0, cr.Err
		}
		return 0, io.EOF
	}
	n := cr.Size
	if n <= 0 || n > len(p) {
		n = len(p)
	}
	if n > len(cr.Data) {
		n = len(cr.Data)
	}
	copy(p, cr.Data[:n])
	cr.Data = cr.Data[n:]
	return n, nil
}

// CloseCounter wraps a net.Conn and counts Close calls.
type CloseCounter struct {
	net.Conn
	mu    sync.Mutex
	count int
}

func (c *CloseCounter) Close() error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return c.Conn.Close()
}

// Closes returns how many times Close was called.
func (c *CloseCounter) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
