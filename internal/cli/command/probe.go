package command

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/momentics/hioload-handshake/internal/probe"
	"github.com/momentics/hioload-handshake/protocol"
)

// ConnectCommand performs a validated handshake per target and closes the
// connection right away.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Open and close a WebSocket connection to each target",
		ArgsUsage: "[target...]",
		Action: func(c *cli.Context) error {
			return runProbe(c, probe.ModeConnect)
		},
	}
}

// RawCommand sends the handshake request and prints the response header
// block as received.
func RawCommand() *cli.Command {
	return &cli.Command{
		Name:      "raw",
		Usage:     "Send the handshake request and print the raw response",
		ArgsUsage: "[target...]",
		Action: func(c *cli.Context) error {
			return runProbe(c, probe.ModeRaw)
		},
	}
}

// RequestCommand prints the request bytes that would be sent.
func RequestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Print the handshake request for a target without connecting",
		ArgsUsage: "[target]",
		Action: func(c *cli.Context) error {
			s := getSession(c)
			if c.Args().Len() > 1 {
				return fmt.Errorf("request takes at most one target")
			}
			eps, err := s.targets(c.Args())
			if err != nil {
				return err
			}
			req, err := s.newClient().Request(eps[0])
			if err != nil {
				return err
			}
			_, err = protocol.WriteRequest(c.App.Writer, req)
			return err
		},
	}
}

func runProbe(c *cli.Context, mode probe.Mode) error {
	s := getSession(c)
	eps, err := s.targets(c.Args())
	if err != nil {
		return err
	}
	runner := probe.NewRunner(s.newClient(), probe.Options{
		Mode:     mode,
		Timeout:  s.cfg.Timeout,
		Attempts: s.cfg.Attempts,
		Logger:   s.log,
	})
	reports := runner.Run(eps)

	out := c.App.Writer
	for _, rep := range reports {
		printReport(out, mode, rep)
	}
	if s.metrics != nil {
		if err := s.metrics.WriteText(out); err != nil {
			return err
		}
	}
	if failed := probe.Failed(reports); failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTargetsFailed, failed, len(reports))
	}
	return nil
}

func printReport(w io.Writer, mode probe.Mode, rep probe.Report) {
	if !rep.OK() {
		fmt.Fprintf(w, "FAIL %s code=%s attempts=%d: %v\n", rep.Endpoint, rep.Code, rep.Attempts, rep.Err)
		return
	}
	if mode == probe.ModeRaw {
		_, _ = w.Write(rep.Response.Raw)
		return
	}
	fmt.Fprintf(w, "ok %s %q attempts=%d latency=%s\n",
		rep.Endpoint, rep.Response.StatusLine, rep.Attempts, rep.Latency.Round(time.Microsecond))
}
