// Package logger configures the process-wide zerolog logger used by the
// wsprobe tool.
// Author: momentics <momentics@gmail.com>
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConf selects level and output format.
type LogConf struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console or json
}

// Formats accepted by Init.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Init initializes the global logger writing to os.Stderr.
func Init(cfg LogConf) error {
	return InitWriter(cfg, os.Stderr)
}

// InitWriter initializes the global logger writing to out.
func InitWriter(cfg LogConf, out io.Writer) error {
	levelStr := strings.ToLower(cfg.Level)
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("unknown log level %q", cfg.Level)
	}

	// Force all timestamps to be in UTC.
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	case FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Debug().Msgf("logger initialized with level: %s", level.String())
	return nil
}

// WithComponent returns a child of the global logger tagged with name.
func WithComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
