//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func applySocketOptions(fd uintptr, opts SocketOptions) error {
	s := int(fd)
	if opts.NoDelay {
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("set TCP_NODELAY: %w", err)
		}
	}
	if opts.KeepAlive > 0 {
		if err := unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return fmt.Errorf("set SO_KEEPALIVE: %w", err)
		}
		secs := int(opts.KeepAlive.Seconds())
		if secs < 1 {
			secs = 1
		}
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs); err != nil {
			return fmt.Errorf("set TCP_KEEPIDLE: %w", err)
		}
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs); err != nil {
			return fmt.Errorf("set TCP_KEEPINTVL: %w", err)
		}
	}
	if opts.UserTimeout > 0 {
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, int(opts.UserTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set TCP_USER_TIMEOUT: %w", err)
		}
	}
	return nil
}
