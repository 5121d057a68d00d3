//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>

package transport

// Socket options are only applied on Linux; elsewhere the net package
// defaults stand.
func applySocketOptions(fd uintptr, opts SocketOptions) error {
	return nil
}
