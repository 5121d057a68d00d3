// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake servers and byte pipes for testing the handshake client.
// Provides predictable, controllable peer behavior: a real gorilla/websocket
// upgrader, canned replies, silent peers and peers that hang up mid-response.

package fake

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gobwas/httphead"
	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/protocol"
)

// Handler serves one accepted connection. It owns conn only until it
// returns; the server closes conn afterwards.
type Handler func(s *Server, conn net.Conn)

// Server is a loopback TCP server that runs a Handler per connection and
// records the handshake requests it reads.
type Server struct {
	ln      net.Listener
	handler Handler
	done    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	requests [][]byte
}

// NewServer starts a server on 127.0.0.1 with an ephemeral port.
func NewServer(h Handler) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(fmt.Sprintf("fake: listen: %v", err))
	}
	s := &Server{
		ln:      ln,
		handler: h,
		done:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	return s
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		select {
		case <-s.done:
			conn.Close()
			return
		default:
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			s.handler(s, conn)
		}()
	}
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// Endpoint returns the endpoint clients should dial.
func (s *Server) Endpoint() api.Endpoint {
	return endpointOf(s.ln.Addr())
}

// Done is closed when the server shuts down; handlers that block use it.
func (s *Server) Done() <-chan struct{} { return s.done }

// ReadRequest reads one handshake request header block from conn and
// records it.
func (s *Server) ReadRequest(conn net.Conn) ([]byte, error) {
	head, _, err := protocol.ReadHeaderBlock(conn, protocol.MaxHandshakeHeadersSize)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.requests = append(s.requests, head)
	s.mu.Unlock()
	return head, nil
}

// Requests returns the request header blocks read so far.
func (s *Server) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close stops accepting, closes live connections and waits for handlers.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Reply returns a handler that reads the request, writes resp and then
// waits for the peer to go away.
func Reply(resp string) Handler {
	return func(s *Server, conn net.Conn) {
		if _, err := s.ReadRequest(conn); err != nil {
			return
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			return
		}
		drain(conn)
	}
}

// Accept101 replies with a valid 101 that carries the correct
// Sec-WebSocket-Accept for the received key.
func Accept101() Handler {
	return func(s *Server, conn net.Conn) {
		head, err := s.ReadRequest(conn)
		if err != nil {
			return
		}
		if _, err := conn.Write([]byte(SwitchingProtocols(KeyOf(head)))); err != nil {
			return
		}
		drain(conn)
	}
}

// KeyOf extracts Sec-WebSocket-Key from a request header block.
func KeyOf(head []byte) string {
	for _, line := range bytes.Split(head, []byte("\r\n"))[1:] {
		k, v, ok := httphead.ParseHeaderLine(line)
		if ok && strings.EqualFold(string(k), protocol.HeaderSecWebSocketKey) {
			return string(v)
		}
	}
	return ""
}

// Silent reads the request and never answers.
func Silent() Handler {
	return func(s *Server, conn net.Conn) {
		_, _ = s.ReadRequest(conn)
		<-s.Done()
	}
}

// HangUp reads the request, writes partial and closes the connection.
func HangUp(partial string) Handler {
	return func(s *Server, conn net.Conn) {
		if _, err := s.ReadRequest(conn); err != nil {
			return
		}
		_, _ = conn.Write([]byte(partial))
	}
}

// SwitchingProtocols renders a valid 101 response for key.
func SwitchingProtocols(key string) string {
	return "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + protocol.ComputeAcceptKey(key) + "\r\n" +
		"\r\n"
}

// drain reads until the peer closes or the connection is torn down.
func drain(conn net.Conn) {
	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

// UpgradeServer is a real WebSocket server built on gorilla/websocket.
type UpgradeServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	upgrades int
}

// NewUpgradeServer starts an httptest server whose handler upgrades every
// request and holds the connection until the client goes away.
func NewUpgradeServer() *UpgradeServer {
	us := &UpgradeServer{}
	upgrader := websocket.Upgrader{}
	us.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		us.mu.Lock()
		us.upgrades++
		us.mu.Unlock()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return us
}

// Endpoint returns the endpoint clients should dial.
func (us *UpgradeServer) Endpoint() api.Endpoint {
	return endpointOf(us.srv.Listener.Addr())
}

// Upgrades returns the number of successful upgrades.
func (us *UpgradeServer) Upgrades() int {
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.upgrades
}

// Close shuts the server down.
func (us *UpgradeServer) Close() {
	us.srv.CloseClientConnections()
	us.srv.Close()
}

func endpointOf(addr net.Addr) api.Endpoint {
	host, port, _ := net.SplitHostPort(addr.String())
	p, _ := strconv.Atoi(port)
	return api.Endpoint{Host: host, Port: p, Path: "/"}
}
