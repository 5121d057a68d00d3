// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the handshake client.

package api

import (
	"errors"
	"fmt"
	"time"
)

// Common errors used across the library.
var (
	ErrConnClosed      = fmt.Errorf("connection is closed")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrHeaderTooLarge  = fmt.Errorf("handshake header block too large")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeConnect
	ErrCodeTimeout
	ErrCodeConnectionClosed
	ErrCodeRejected
	ErrCodeMalformed
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeConnect:
		return "connect"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnectionClosed:
		return "connection_closed"
	case ErrCodeRejected:
		return "rejected"
	case ErrCodeMalformed:
		return "malformed"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// ErrorCode returns the code of the error.
func (e *Error) ErrorCode() ErrorCode { return e.Code }

// Unwrap lets errors.Is match ErrInvalidArgument for argument errors.
func (e *Error) Unwrap() error {
	if e.Code == ErrCodeInvalidArgument {
		return ErrInvalidArgument
	}
	return nil
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ConnectError reports a failure to open the TCP connection: DNS failure,
// refused or unreachable peer, or a dial that ran out of time.
type ConnectError struct {
	Addr   string
	Reason string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s", e.Addr, e.Reason)
}

func (e *ConnectError) Unwrap() error        { return e.Err }
func (e *ConnectError) ErrorCode() ErrorCode { return ErrCodeConnect }

// TimeoutError reports that no complete handshake response arrived
// before the deadline.
type TimeoutError struct {
	Limit    time.Duration
	Received int // bytes of the response read before the deadline
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("handshake timed out after %s (%d bytes received)", e.Limit, e.Received)
}

func (e *TimeoutError) Unwrap() error        { return e.Err }
func (e *TimeoutError) ErrorCode() ErrorCode { return ErrCodeTimeout }

// Timeout reports true, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// ConnectionClosedError reports that the peer closed or reset the
// connection before the response header block was complete.
type ConnectionClosedError struct {
	Received int
	Partial  []byte
	Err      error
}

func (e *ConnectionClosedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection closed by peer during handshake after %d bytes: %v", e.Received, e.Err)
	}
	return fmt.Sprintf("connection closed by peer during handshake after %d bytes", e.Received)
}

func (e *ConnectionClosedError) Unwrap() error        { return e.Err }
func (e *ConnectionClosedError) ErrorCode() ErrorCode { return ErrCodeConnectionClosed }

// HandshakeRejectedError reports a well-formed response that does not
// accept the upgrade.
type HandshakeRejectedError struct {
	Response *HandshakeResponse
	Reason   string
}

func (e *HandshakeRejectedError) Error() string {
	if e.Response == nil {
		return "handshake rejected: " + e.Reason
	}
	return fmt.Sprintf("handshake rejected (%s): %s", e.Response.StatusLine, e.Reason)
}

func (e *HandshakeRejectedError) ErrorCode() ErrorCode { return ErrCodeRejected }

// MalformedResponseError reports a response whose status line or headers
// cannot be parsed.
type MalformedResponseError struct {
	Raw    []byte
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return "malformed handshake response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error        { return e.Err }
func (e *MalformedResponseError) ErrorCode() ErrorCode { return ErrCodeMalformed }

// CodeOf returns the ErrorCode carried by err or by any error it wraps.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var coded interface{ ErrorCode() ErrorCode }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return ErrCodeInternal
}

// IsTransient reports whether a fresh attempt could plausibly succeed.
// Rejected and malformed responses are answers from a live peer and are
// not transient.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case ErrCodeConnect, ErrCodeTimeout, ErrCodeConnectionClosed:
		return true
	default:
		return false
	}
}
