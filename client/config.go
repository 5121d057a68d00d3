// File: client/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"github.com/momentics/hioload-handshake/protocol"
	"github.com/momentics/hioload-handshake/transport"
)

// Config holds the handshake parameters of a Client.
type Config struct {
	MaxHeaderBytes int                     // response header block limit, 0 = 8192
	Key            string                  // fixed Sec-WebSocket-Key, "" = random per attempt
	VerifyAccept   bool                    // also check Sec-WebSocket-Accept
	Socket         transport.SocketOptions // applied by the default dialer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxHeaderBytes: protocol.MaxHandshakeHeadersSize,
		Socket:         transport.SocketOptions{NoDelay: true},
	}
}

func (c Config) withDefaults() Config {
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = protocol.MaxHandshakeHeadersSize
	}
	return c
}
