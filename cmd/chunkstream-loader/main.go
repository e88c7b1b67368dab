// Package main provides the chunkstream-loader CLI entrypoint.
//
// `run` is the only command that starts a pool; every other command is
// read-only and reaches a running pool over its control-plane socket.
//
// Usage:
//
//	chunkstream-loader <command> [subcommand] [options]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/chunkstream/cli/cmd"
	"github.com/justapithecus/chunkstream/types"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "chunkstream-loader",
		Usage:          "Shuffling chunk pool loader CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.AnchorCommand(),
			cmd.StatsCommand(),
			cmd.InspectCommand(),
			cmd.VersionCommand("", commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
