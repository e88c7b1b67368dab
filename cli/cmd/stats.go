package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/chunkstream/cli/render"
	"github.com/justapithecus/chunkstream/cli/tui"
	"github.com/justapithecus/chunkstream/controlplane"
	"github.com/justapithecus/chunkstream/pool"
)

// StatsCommand reports a running pool's metrics, queue state, and worker
// loads over its control-plane socket.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show a running pool's metrics",
		Flags:  append(TUIReadOnlyFlags(), socketFlag()),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	client := controlplane.NewClient(c.String("socket"))

	if c.Bool("tui") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.RenderDashboard(func() tui.DashboardSnapshot {
			return pollDashboard(c.Context, client)
		}, time.Second)
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	stats, err := client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(stats)
}

// pollDashboard fetches one stats snapshot and reshapes it into a
// DashboardSnapshot. Errors are folded into the summary line rather than
// aborting the TUI's polling loop.
func pollDashboard(ctx context.Context, client *controlplane.Client) tui.DashboardSnapshot {
	pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats, err := client.Stats(pollCtx)
	if err != nil {
		return tui.DashboardSnapshot{Summary: fmt.Sprintf("error: %v", err)}
	}

	anchor, err := client.AnchorGet(pollCtx)
	anchorLabel := "unknown"
	if err == nil {
		anchorLabel = anchor.ChunkAnchor
		if anchorLabel == "" {
			anchorLabel = "(none)"
		}
	}

	return tui.DashboardSnapshot{
		Summary: fmt.Sprintf("pool=%s source=%s anchor=%s", stats.Metrics.PoolID, stats.Metrics.Source, anchorLabel),
		Window: []tui.StatBox{
			{Label: "sources", Value: fmt.Sprintf("%d", stats.Metrics.ChunkSources)},
			{Label: "chunks current", Value: fmt.Sprintf("%d", stats.Metrics.ChunksCurrent)},
			{Label: "chunks total", Value: fmt.Sprintf("%d", stats.Metrics.ChunksTotal)},
		},
		Selection: []tui.StatBox{
			{Label: "hanse hits", Value: fmt.Sprintf("%d", stats.Metrics.HanseCacheHits)},
			{Label: "hanse misses", Value: fmt.Sprintf("%d", stats.Metrics.HanseCacheMisses)},
			{Label: "hanse rejected", Value: fmt.Sprintf("%d", stats.Metrics.HanseRejected)},
			{Label: "reshuffles", Value: fmt.Sprintf("%d", stats.Metrics.Reshuffles)},
			{Label: "dropped", Value: fmt.Sprintf("%d", stats.Metrics.DroppedChunks)},
		},
		Queues: []tui.StatBox{
			{Label: "q1 size", Value: fmt.Sprintf("%d/%d", stats.Q1.Size, stats.Q1.Capacity)},
			{Label: "q2 size", Value: fmt.Sprintf("%d/%d", stats.Q2.Size, stats.Q2.Capacity)},
			{Label: "q2 dropped", Value: fmt.Sprintf("%d", stats.Q2.Counts.Drop)},
		},
		IngestionWorkers: formatWorkerLoads(stats.IngestionWorkers),
		OutputWorkers:    formatWorkerLoads(stats.OutputWorkers),
	}
}

func formatWorkerLoads(loads []pool.WorkerLoad) []string {
	formatted := make([]string, len(loads))
	for i, l := range loads {
		formatted[i] = fmt.Sprintf("worker %d: busy %s, paused %s", l.Index, l.Busy, l.Paused)
	}
	return formatted
}
