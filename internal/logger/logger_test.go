package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(LogConf{Level: "debug", Format: "json"}, &buf))
	buf.Reset()

	l := WithComponent("client")
	l.Info().Str("endpoint", "ws://localhost:11011/").Msg("handshake complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "client", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "handshake complete", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInitWriterLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(LogConf{Level: "warn", Format: "json"}, &buf))

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(LogConf{Level: "info"}, &buf))
	log.Info().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestInitWriterRejectsUnknown(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, InitWriter(LogConf{Level: "loud"}, &buf))
	assert.Error(t, InitWriter(LogConf{Level: "info", Format: "xml"}, &buf))
}
