package control

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/client"
)

var _ client.Observer = (*Metrics)(nil)

func TestMetricsCountsResults(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	ep := api.Endpoint{Host: "localhost", Port: 11011, Path: "/"}
	m.HandshakeStarted(ep)
	m.HandshakeFinished(ep, 3*time.Millisecond, nil)
	m.HandshakeStarted(ep)
	m.HandshakeFinished(ep, time.Second, &api.TimeoutError{Limit: time.Second})
	m.HandshakeStarted(ep)
	m.HandshakeFinished(ep, time.Millisecond, &api.ConnectError{Addr: ep.Address(), Reason: "connection refused"})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.attempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("connect")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetricsDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))
}

func TestMetricsWriteText(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	ep := api.Endpoint{Host: "localhost", Port: 11011}
	m.HandshakeStarted(ep)
	m.HandshakeFinished(ep, time.Millisecond, &api.HandshakeRejectedError{Reason: "unexpected status 200"})

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "hioload_handshake_attempts_total 1")
	assert.Contains(t, out, `hioload_handshake_results_total{result="rejected"} 1`)
	assert.Contains(t, out, "hioload_handshake_duration_seconds_count 1")
}
