// Package probe drives handshake attempts against a list of targets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Targets are served first-in first-out. A target whose attempt failed for
// a transient reason goes back to the tail of the queue until its attempt
// budget is spent, so one unreachable host does not delay the others.
package probe

import (
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/client"
)

// Mode selects what the runner does per attempt.
type Mode int

const (
	// ModeConnect performs a validated handshake and closes the connection.
	ModeConnect Mode = iota
	// ModeRaw sends the request and captures the response unvalidated.
	ModeRaw
)

func (m Mode) String() string {
	if m == ModeRaw {
		return "raw"
	}
	return "connect"
}

// Handshaker is the subset of *client.Client the runner needs.
type Handshaker interface {
	Connect(ep api.Endpoint, timeout time.Duration) (*client.Conn, error)
	Probe(ep api.Endpoint, timeout time.Duration) (*api.HandshakeResponse, error)
}

// Options tune a Runner.
type Options struct {
	Mode     Mode
	Timeout  time.Duration
	Attempts int // per target, minimum 1
	Logger   zerolog.Logger
}

// Report is the final outcome for one target.
type Report struct {
	Endpoint api.Endpoint
	Attempts int
	Code     api.ErrorCode
	Err      error
	Latency  time.Duration // of the last attempt
	Response *api.HandshakeResponse
}

// OK reports whether the last attempt succeeded.
func (r Report) OK() bool { return r.Err == nil }

// Runner executes attempts sequentially on the calling goroutine.
type Runner struct {
	hs   Handshaker
	opts Options
}

// NewRunner returns a Runner using hs.
func NewRunner(hs Handshaker, opts Options) *Runner {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &Runner{hs: hs, opts: opts}
}

type job struct {
	index int
	ep    api.Endpoint
}

// Run probes every target and returns one report per target, in input
// order.
func (r *Runner) Run(targets []api.Endpoint) []Report {
	reports := make([]Report, len(targets))
	pending := queue.New()
	for i, ep := range targets {
		reports[i].Endpoint = ep
		pending.Add(job{index: i, ep: ep})
	}

	for pending.Length() > 0 {
		j := pending.Remove().(job)
		rep := &reports[j.index]
		rep.Attempts++

		start := time.Now()
		rep.Response, rep.Err = r.once(j.ep)
		rep.Latency = time.Since(start)
		rep.Code = api.CodeOf(rep.Err)

		ev := r.opts.Logger.Debug()
		if rep.Err != nil {
			ev = r.opts.Logger.Info().Err(rep.Err)
		}
		ev.Str("endpoint", j.ep.String()).
			Str("mode", r.opts.Mode.String()).
			Int("attempt", rep.Attempts).
			Str("code", rep.Code.String()).
			Dur("latency", rep.Latency).
			Msg("probe attempt")

		if rep.Err != nil && api.IsTransient(rep.Err) && rep.Attempts < r.opts.Attempts {
			pending.Add(j)
		}
	}
	return reports
}

func (r *Runner) once(ep api.Endpoint) (*api.HandshakeResponse, error) {
	if r.opts.Mode == ModeRaw {
		return r.hs.Probe(ep, r.opts.Timeout)
	}
	conn, err := r.hs.Connect(ep, r.opts.Timeout)
	if err != nil {
		return nil, err
	}
	resp := conn.Response()
	if cerr := conn.Close(); cerr != nil {
		r.opts.Logger.Debug().Err(cerr).Str("endpoint", ep.String()).Msg("close after connect")
	}
	return resp, nil
}

// Failed counts reports whose last attempt failed.
func Failed(reports []Report) int {
	n := 0
	for _, rep := range reports {
		if !rep.OK() {
			n++
		}
	}
	return n
}
