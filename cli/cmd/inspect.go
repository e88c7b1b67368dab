package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/chunkstream/cli/render"
	"github.com/justapithecus/chunkstream/types"
)

// InspectResponse is a human-readable view of one decoded TrainingChunk:
// frame contents are summarized (count, byte size) rather than dumped,
// since a frame's interior layout is opaque to this package.
type InspectResponse struct {
	SortKey            string `json:"sort_key"`
	IndexWithinSortKey uint64 `json:"index_within_sort_key"`
	GlobalIndex        uint64 `json:"global_index"`
	UseCount           uint32 `json:"use_count"`
	FrameCount         int    `json:"frame_count"`
	FrameSize          int    `json:"frame_size_bytes"`
}

// InspectCommand decodes a msgpack-encoded TrainingChunk snapshot from
// disk (written by a consumer for debugging) and renders its fields.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a training chunk snapshot written to disk",
		ArgsUsage: "<path>",
		Flags:     ReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("inspect requires a <path> argument", 1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read chunk snapshot %q: %w", path, err)
	}

	var chunk types.TrainingChunk
	if err := msgpack.Unmarshal(data, &chunk); err != nil {
		return fmt.Errorf("decode chunk snapshot %q: %w", path, err)
	}

	resp := InspectResponse{
		SortKey:            chunk.SortKey,
		IndexWithinSortKey: chunk.IndexWithinSortKey,
		GlobalIndex:        chunk.GlobalIndex,
		UseCount:           chunk.UseCount,
		FrameCount:         len(chunk.Frames),
	}
	if len(chunk.Frames) > 0 {
		resp.FrameSize = len(chunk.Frames[0])
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for inspect; use stats --tui for live pool metrics", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(resp)
}
