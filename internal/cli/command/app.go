// Package command provides the wsprobe command-line interface.
//
// It uses urfave/cli/v2 for command parsing. Global flags override the
// layered configuration loaded by control.Loader.
package command

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/momentics/hioload-handshake/api"
	"github.com/momentics/hioload-handshake/client"
	"github.com/momentics/hioload-handshake/control"
	"github.com/momentics/hioload-handshake/internal/logger"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// ErrTargetsFailed is returned by probing commands when at least one
// target did not succeed.
var ErrTargetsFailed = errors.New("one or more targets failed")

const sessionKey = "session"

// session carries what Before prepared for the commands.
type session struct {
	cfg     control.Config
	metrics *control.Metrics
	log     zerolog.Logger
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "wsprobe",
		Usage:   "Perform WebSocket opening handshakes against a server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ConnectCommand(),
			RawCommand(),
			RequestCommand(),
		},
		Before: setup,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"HIOLOAD_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: console, json",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Deadline for dial, request and response of one attempt",
		},
		&cli.IntFlag{
			Name:    "attempts",
			Aliases: []string{"n"},
			Usage:   "Attempts per target; only connect, timeout and closed failures are retried",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "Fixed Sec-WebSocket-Key instead of a random nonce",
		},
		&cli.BoolFlag{
			Name:  "verify-accept",
			Usage: "Also check Sec-WebSocket-Accept",
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "Print handshake metrics in Prometheus text format on exit",
		},
	}
}

// overrides collects the global flags that were set explicitly.
func overrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	if c.IsSet("log-level") {
		out["log.level"] = c.String("log-level")
	}
	if c.IsSet("log-format") {
		out["log.format"] = c.String("log-format")
	}
	if c.IsSet("timeout") {
		out["timeout"] = c.Duration("timeout")
	}
	if c.IsSet("attempts") {
		out["attempts"] = c.Int("attempts")
	}
	if c.IsSet("key") {
		out["key"] = c.String("key")
	}
	if c.IsSet("verify-accept") {
		out["verify_accept"] = c.Bool("verify-accept")
	}
	return out
}

func setup(c *cli.Context) error {
	cfg, err := control.NewLoader(
		control.WithConfigFile(c.String("config")),
		control.WithOverrides(overrides(c)),
	).Load()
	if err != nil {
		return err
	}
	if err := logger.InitWriter(cfg.Log, c.App.ErrWriter); err != nil {
		return err
	}
	s := &session{cfg: cfg, log: logger.WithComponent("wsprobe")}
	if c.Bool("metrics") {
		if s.metrics, err = control.NewMetrics(prometheus.NewRegistry()); err != nil {
			return err
		}
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[sessionKey] = s
	s.log.Debug().Str("endpoint", cfg.Endpoint().String()).Dur("timeout", cfg.Timeout).Msg("configuration loaded")
	return nil
}

func getSession(c *cli.Context) *session {
	if s, ok := c.App.Metadata[sessionKey].(*session); ok {
		return s
	}
	return nil
}

// newClient builds a client with the session's logger and metrics.
func (s *session) newClient() *client.Client {
	opts := []client.Option{client.WithLogger(logger.WithComponent("client"))}
	if s.metrics != nil {
		opts = append(opts, client.WithObserver(s.metrics))
	}
	return client.New(s.cfg.ClientConfig(), opts...)
}

// targets parses command arguments, falling back to the configured
// endpoint.
func (s *session) targets(args cli.Args) ([]api.Endpoint, error) {
	if args.Len() == 0 {
		return []api.Endpoint{s.cfg.Endpoint()}, nil
	}
	eps := make([]api.Endpoint, 0, args.Len())
	for _, a := range args.Slice() {
		ep, err := api.ParseEndpoint(a)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", a, err)
		}
		eps = append(eps, ep)
	}
	return eps, nil
}
