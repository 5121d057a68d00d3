// Package main provides the entry point for wsprobe.
//
// wsprobe performs WebSocket opening handshakes against a server and
// reports whether each one was accepted.
package main

import (
	"fmt"
	"os"

	"github.com/momentics/hioload-handshake/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
