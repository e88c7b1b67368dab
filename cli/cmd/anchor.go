package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/chunkstream/cli/render"
	"github.com/justapithecus/chunkstream/controlplane"
)

// AnchorCommand returns the anchor command with its get/set/reset
// subcommands, each reaching a running pool over its control-plane socket.
func AnchorCommand() *cli.Command {
	return &cli.Command{
		Name:  "anchor",
		Usage: "Inspect or move a running pool's anchor watermark",
		Subcommands: []*cli.Command{
			anchorGetCommand(),
			anchorSetCommand(),
			anchorResetCommand(),
		},
	}
}

func anchorGetCommand() *cli.Command {
	return &cli.Command{
		Name:   "get",
		Usage:  "Show the current anchor watermark",
		Flags:  append(ReadOnlyFlags(), socketFlag()),
		Action: anchorGetAction,
	}
}

func anchorGetAction(c *cli.Context) error {
	client := controlplane.NewClient(c.String("socket"))
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	anchor, err := client.AnchorGet(ctx)
	if err != nil {
		return fmt.Errorf("get anchor: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(anchor)
}

func anchorSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set the anchor watermark to a specific sort key",
		ArgsUsage: "<anchor>",
		Flags:     append(ReadOnlyFlags(), socketFlag()),
		Action:    anchorSetAction,
	}
}

func anchorSetAction(c *cli.Context) error {
	anchor := c.Args().First()
	if anchor == "" {
		return cli.Exit("anchor set requires a <anchor> argument", 1)
	}

	client := controlplane.NewClient(c.String("socket"))
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	state, err := client.AnchorSet(ctx, anchor)
	if err != nil {
		return fmt.Errorf("set anchor: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(state)
}

func anchorResetCommand() *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Move the anchor watermark to the newest source and print the previous state",
		Flags:  append(ReadOnlyFlags(), socketFlag()),
		Action: anchorResetAction,
	}
}

func anchorResetAction(c *cli.Context) error {
	client := controlplane.NewClient(c.String("socket"))
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	state, err := client.AnchorReset(ctx)
	if err != nil {
		return fmt.Errorf("reset anchor: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(state)
}
