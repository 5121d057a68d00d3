package api

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{nil, ErrCodeOK},
		{&ConnectError{Addr: "h:1", Reason: "connection refused"}, ErrCodeConnect},
		{&TimeoutError{Limit: time.Second}, ErrCodeTimeout},
		{&ConnectionClosedError{Received: 3}, ErrCodeConnectionClosed},
		{&HandshakeRejectedError{Reason: "unexpected status 200"}, ErrCodeRejected},
		{&MalformedResponseError{Reason: "bad status line"}, ErrCodeMalformed},
		{NewError(ErrCodeInvalidArgument, "bad"), ErrCodeInvalidArgument},
		{fmt.Errorf("wrapped: %w", &TimeoutError{}), ErrCodeTimeout},
		{errors.New("plain"), ErrCodeInternal},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.code {
			t.Errorf("CodeOf(%v) = %s, want %s", c.err, got, c.code)
		}
	}
}

func TestIsTransient(t *testing.T) {
	transient := []error{&ConnectError{}, &TimeoutError{}, &ConnectionClosedError{}}
	final := []error{nil, &HandshakeRejectedError{}, &MalformedResponseError{}, NewError(ErrCodeInvalidArgument, "x")}
	for _, err := range transient {
		if !IsTransient(err) {
			t.Errorf("IsTransient(%T) = false", err)
		}
	}
	for _, err := range final {
		if IsTransient(err) {
			t.Errorf("IsTransient(%T) = true", err)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	if err := (&TimeoutError{Err: os.ErrDeadlineExceeded}); !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Error("TimeoutError does not unwrap")
	}
	if err := (&ConnectionClosedError{Err: io.EOF}); !errors.Is(err, io.EOF) {
		t.Error("ConnectionClosedError does not unwrap")
	}
	if err := (&MalformedResponseError{Err: ErrHeaderTooLarge}); !errors.Is(err, ErrHeaderTooLarge) {
		t.Error("MalformedResponseError does not unwrap")
	}
	var te interface{ Timeout() bool }
	if !errors.As(&TimeoutError{}, &te) || !te.Timeout() {
		t.Error("TimeoutError should report Timeout()")
	}
}

func TestErrorMessages(t *testing.T) {
	resp := &HandshakeResponse{StatusCode: 200, StatusLine: "HTTP/1.1 200 OK"}
	msgs := []struct {
		err  error
		want string
	}{
		{&ConnectError{Addr: "localhost:11011", Reason: "connection refused"}, "localhost:11011"},
		{&TimeoutError{Limit: 200 * time.Millisecond}, "200ms"},
		{&HandshakeRejectedError{Response: resp, Reason: "unexpected status 200"}, "unexpected status 200"},
		{&MalformedResponseError{Reason: "bad status line"}, "bad status line"},
		{NewError(ErrCodeInvalidArgument, "bad port").WithContext("port", 0), "port"},
	}
	for _, m := range msgs {
		if !strings.Contains(m.err.Error(), m.want) {
			t.Errorf("%T message %q does not mention %q", m.err, m.err.Error(), m.want)
		}
	}
}
