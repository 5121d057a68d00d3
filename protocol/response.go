// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gobwas/httphead"

	"github.com/momentics/hioload-handshake/api"
)

var headerTerminator = []byte("\r\n\r\n")

const readChunk = 512

// ReadHeaderBlock reads from r until the blank line that ends the HTTP
// header block. head holds the block including the terminator, rest holds
// whatever followed it in the same reads.
//
// A peer that stops sending (io.EOF) yields *api.ConnectionClosedError and a
// block longer than limit yields *api.MalformedResponseError. Any other read
// error is returned unchanged together with the bytes read so far in head,
// so callers can classify deadlines themselves.
func ReadHeaderBlock(r io.Reader, limit int) (head, rest []byte, err error) {
	if limit <= 0 {
		limit = MaxHandshakeHeadersSize
	}
	buf := make([]byte, 0, readChunk)
	chunk := make([]byte, readChunk)
	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			from := len(buf) - (len(headerTerminator) - 1)
			if from < 0 {
				from = 0
			}
			buf = append(buf, chunk[:n]...)
			if i := bytes.Index(buf[from:], headerTerminator); i >= 0 {
				end := from + i + len(headerTerminator)
				if end > limit {
					return nil, nil, tooLarge(buf)
				}
				return buf[:end], buf[end:], nil
			}
			if len(buf) > limit {
				return nil, nil, tooLarge(buf)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil, nil, &api.ConnectionClosedError{Received: len(buf), Partial: buf, Err: rerr}
			}
			return buf, nil, rerr
		}
	}
}

func tooLarge(buf []byte) error {
	return &api.MalformedResponseError{
		Raw:    buf,
		Reason: "header block exceeds limit",
		Err:    api.ErrHeaderTooLarge,
	}
}

// ParseResponse parses a header block as returned by ReadHeaderBlock.
func ParseResponse(head []byte) (*api.HandshakeResponse, error) {
	block := bytes.TrimSuffix(head, headerTerminator)
	lines := bytes.Split(block, crlf)

	status, ok := httphead.ParseResponseLine(lines[0])
	if !ok && bytes.Count(lines[0], []byte(" ")) == 1 {
		// "HTTP/1.1 101" without a reason phrase, as net/http accepts.
		status, ok = httphead.ParseResponseLine(append(bytes.Clone(lines[0]), ' '))
	}
	if !ok || status.Version.Major != 1 || status.Status < 100 || status.Status > 999 {
		return nil, &api.MalformedResponseError{Raw: head, Reason: "bad status line " + quote(lines[0])}
	}

	resp := &api.HandshakeResponse{
		Proto:      string(bytes.SplitN(lines[0], []byte(" "), 2)[0]),
		StatusCode: status.Status,
		Reason:     string(status.Reason),
		StatusLine: string(lines[0]),
		Header:     make(http.Header, len(lines)-1),
		Raw:        head,
	}
	for _, line := range lines[1:] {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			return nil, &api.MalformedResponseError{Raw: head, Reason: "folded header line " + quote(line)}
		}
		k, v, ok := httphead.ParseHeaderLine(line)
		if !ok || len(k) == 0 {
			return nil, &api.MalformedResponseError{Raw: head, Reason: "bad header line " + quote(line)}
		}
		resp.Header.Add(string(k), string(v))
	}
	return resp, nil
}

// ReadResponse combines ReadHeaderBlock and ParseResponse.
func ReadResponse(r io.Reader, limit int) (*api.HandshakeResponse, []byte, error) {
	head, rest, err := ReadHeaderBlock(r, limit)
	if err != nil {
		return nil, nil, err
	}
	resp, err := ParseResponse(head)
	if err != nil {
		return nil, nil, err
	}
	return resp, rest, nil
}

func quote(b []byte) string {
	const maxQuoted = 64
	if len(b) > maxQuoted {
		b = b[:maxQuoted]
	}
	return `"` + string(bytes.ToValidUTF8(b, []byte("?"))) + `"`
}
