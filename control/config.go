// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Layered configuration loader built on koanf.
// Priority, lowest first: defaults, YAML file, environment, overrides.

package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/client"
	"github.com/momentics/hioload-handshake/internal/logger"
	"github.com/momentics/hioload-handshake/protocol"
	"github.com/momentics/hioload-handshake/transport"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "HIOLOAD_"

// Defaults for the target endpoint and attempt.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 11011
	DefaultTimeout  = 5 * time.Second
	DefaultAttempts = 1
)

// Config is the full tool configuration.
type Config struct {
	Host           string                  `koanf:"host"`
	Port           int                     `koanf:"port"`
	Path           string                  `koanf:"path"`
	Timeout        time.Duration           `koanf:"timeout"`
	MaxHeaderBytes int                     `koanf:"max_header_bytes"`
	Key            string                  `koanf:"key"`
	VerifyAccept   bool                    `koanf:"verify_accept"`
	Attempts       int                     `koanf:"attempts"`
	Socket         transport.SocketOptions `koanf:"socket"`
	Log            logger.LogConf          `koanf:"log"`
}

// Defaults returns the default configuration as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"host":             DefaultHost,
		"port":             DefaultPort,
		"path":             api.DefaultPath,
		"timeout":          DefaultTimeout,
		"max_header_bytes": protocol.MaxHandshakeHeadersSize,
		"key":              "",
		"verify_accept":    false,
		"attempts":         DefaultAttempts,
		"socket.nodelay":   true,
		"log.level":        "info",
		"log.format":       logger.FormatConsole,
	}
}

// Endpoint returns the configured default target.
func (c Config) Endpoint() api.Endpoint {
	return api.Endpoint{Host: c.Host, Port: c.Port, Path: c.Path}
}

// ClientConfig projects the handshake parameters.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		MaxHeaderBytes: c.MaxHeaderBytes,
		Key:            c.Key,
		VerifyAccept:   c.VerifyAccept,
		Socket:         c.Socket,
	}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := c.Endpoint().Validate(); err != nil {
		return err
	}
	var problems []string
	if c.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Attempts <= 0 {
		problems = append(problems, fmt.Sprintf("attempts must be positive, got %d", c.Attempts))
	}
	if c.MaxHeaderBytes <= 0 {
		problems = append(problems, fmt.Sprintf("max_header_bytes must be positive, got %d", c.MaxHeaderBytes))
	}
	if c.Key != "" && !protocol.ValidKey(c.Key) {
		problems = append(problems, fmt.Sprintf("key %q is not a base64 encoded %d-byte nonce", c.Key, protocol.NonceSize))
	}
	if len(problems) > 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets flat, dot-delimited values applied last, typically
// from command line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges every source and returns the validated result.
func (l *Loader) Load() (Config, error) {
	var cfg Config
	if err := l.k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}
	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if len(l.overrides) > 0 {
		if err := l.k.Load(confmap.Provider(l.overrides, "."), nil); err != nil {
			return cfg, fmt.Errorf("load overrides: %w", err)
		}
	}
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envKey maps HIOLOAD_LOG__LEVEL to log.level. A double underscore
// separates levels so single underscores survive in key names.
func (l *Loader) envKey(s string) string {
	s = strings.TrimPrefix(s, l.envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// All returns the merged configuration as a flat map.
func (l *Loader) All() map[string]any {
	return l.k.All()
}
