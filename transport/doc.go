// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport opens the TCP connections the handshake client runs on.
// Socket options are applied in the dialer Control hook before connect.
package transport
