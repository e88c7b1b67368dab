package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/chunkstream/chunksource"
	"github.com/justapithecus/chunkstream/cli/render"
	"github.com/justapithecus/chunkstream/cli/tui"
	"github.com/justapithecus/chunkstream/cliconfig"
	"github.com/justapithecus/chunkstream/controlplane"
	"github.com/justapithecus/chunkstream/discovery"
	"github.com/justapithecus/chunkstream/log"
	"github.com/justapithecus/chunkstream/metrics"
	"github.com/justapithecus/chunkstream/pool"
	"github.com/justapithecus/chunkstream/telemetry"
	"github.com/justapithecus/chunkstream/telemetry/redis"
	"github.com/justapithecus/chunkstream/telemetry/webhook"
	"github.com/justapithecus/chunkstream/types"
)

// Exit codes for the run command.
const (
	exitSuccess      = 0
	exitConfigError  = 1
	exitStartupError = 2
)

// RunCommand returns the run command: the only command that starts a pool.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start a chunk pool and serve training chunks",
		UsageText: `chunkstream-loader run --config <path> [options]

EXAMPLES:
  # Start a pool from a config file
  chunkstream-loader run --config ./chunkstream-loader.yaml

  # Override the control socket path and watch the live dashboard
  chunkstream-loader run --config ./chunkstream-loader.yaml \
    --socket /tmp/pool.sock --tui`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to chunkstream-loader.yaml",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "Override the config file's control-plane socket path",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Launch the live dashboard after startup",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := cliconfig.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitConfigError)
	}

	if socket := c.String("socket"); socket != "" {
		cfg.ControlSocket = socket
	}
	if cfg.PoolID == "" {
		cfg.PoolID = uuid.NewString()
	}

	format, err := parseFrameFormat(cfg.FrameFormat)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	meta := &types.LoaderMeta{PoolID: cfg.PoolID, Source: cfg.Source}
	if err := meta.Validate(); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	logger := log.NewLogger(meta)
	collector := metrics.NewCollector(cfg.PoolID, cfg.Source)

	publisher, err := buildTelemetryPublisher(cfg.Telemetry)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to configure telemetry: %v", err), exitConfigError)
	}
	if publisher != nil {
		defer func() { _ = publisher.Close() }()
	}

	poolCfg := pool.Config{
		ChunkPoolSize:                   cfg.Pool.ChunkPoolSize,
		SourceIngestionThreads:          cfg.Pool.SourceIngestionThreads,
		ChunkLoadingThreads:             cfg.Pool.ChunkLoadingThreads,
		HanseSamplingThreshold:          cfg.Pool.HanseSamplingThreshold,
		HanseSamplingGamma:              cfg.Pool.HanseSamplingGamma,
		OutputQueueCapacity:             cfg.Pool.OutputQueueCapacity,
		FrameFormat:                     format,
		RandSeed:                        cfg.Pool.RandSeed,
		CountInitialScanUnconditionally: cfg.Pool.CountInitialScanUnconditionally,
	}
	p := pool.New(poolCfg, logger, collector)

	producer, err := p.Q1Producer()
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create source producer: %v", err), exitStartupError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if errs := discovery.Announce(ctx, producer, cfg.Sources, format); len(errs) > 0 {
		for _, announceErr := range errs {
			logger.Error("discovery: failed to announce source", map[string]any{"error": announceErr.Error()})
		}
	}
	producer.Release()

	if err := p.Start(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("pool failed to start: %v", err), exitStartupError)
	}
	defer p.Stop()

	var cpServer *controlplane.Server
	if cfg.ControlSocket != "" {
		cpServer, err = controlplane.Listen(cfg.ControlSocket, p, logger)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to start control plane: %v", err), exitStartupError)
		}
		defer cpServer.Close()

		if publisher != nil {
			cpServer.OnAnchorChange(publishAnchorEvent(ctx, publisher, logger, cfg.PoolID, cfg.Source))
		}

		go func() {
			if err := cpServer.Serve(); err != nil {
				logger.Error("control plane: serve failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	if c.Bool("tui") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.RenderDashboard(func() tui.DashboardSnapshot { return dashboardSnapshot(p) }, time.Second)
	}

	<-ctx.Done()
	return cli.Exit("", exitSuccess)
}

func parseFrameFormat(s string) (chunksource.FrameFormat, error) {
	switch s {
	case "", "v7":
		return chunksource.FrameFormatV7, nil
	case "v6":
		return chunksource.FrameFormatV6, nil
	default:
		return 0, fmt.Errorf("invalid frame_format %q (must be v6 or v7)", s)
	}
}

func buildTelemetryPublisher(cfg cliconfig.TelemetryConfig) (telemetry.Publisher, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Retries, redis.DefaultRetries),
		})
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Retries, webhook.DefaultRetries),
		})
	default:
		return nil, fmt.Errorf("unknown telemetry type %q (must be redis or webhook)", cfg.Type)
	}
}

func retriesOrDefault(retries *int, def int) int {
	if retries == nil {
		return def
	}
	return *retries
}

func publishAnchorEvent(ctx context.Context, publisher telemetry.Publisher, logger *log.Logger, poolID, source string) func(types.AnchorState) {
	return func(state types.AnchorState) {
		event := &telemetry.AnchorEvent{
			PoolID:            poolID,
			Source:            source,
			ChunkAnchor:       state.ChunkAnchor,
			ChunksSinceAnchor: state.ChunksSinceAnchor,
			Timestamp:         time.Now().UTC().Format(time.RFC3339),
		}
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Error("telemetry: failed to publish anchor event", map[string]any{"error": err.Error()})
		}
	}
}

func dashboardSnapshot(p *pool.Pool) tui.DashboardSnapshot {
	snapshot, q1Counts, q2Counts := p.FlushMetrics()

	q1 := p.Q1Metrics()
	q1.Counts = q1Counts
	q2 := p.Q2Metrics()
	q2.Counts = q2Counts

	anchor := p.CurrentAnchor()
	anchorLabel := anchor.ChunkAnchor
	if anchorLabel == "" {
		anchorLabel = "(none)"
	}

	ingestion := p.IngestionWorkerLoads()
	output := p.OutputWorkerLoads()

	return tui.DashboardSnapshot{
		Summary: fmt.Sprintf("pool=%s source=%s anchor=%s", snapshot.PoolID, snapshot.Source, anchorLabel),
		Window: []tui.StatBox{
			{Label: "sources", Value: fmt.Sprintf("%d", snapshot.ChunkSources)},
			{Label: "chunks current", Value: fmt.Sprintf("%d", snapshot.ChunksCurrent)},
			{Label: "chunks total", Value: fmt.Sprintf("%d", snapshot.ChunksTotal)},
		},
		Selection: []tui.StatBox{
			{Label: "hanse hits", Value: fmt.Sprintf("%d", snapshot.HanseCacheHits)},
			{Label: "hanse misses", Value: fmt.Sprintf("%d", snapshot.HanseCacheMisses)},
			{Label: "hanse rejected", Value: fmt.Sprintf("%d", snapshot.HanseRejected)},
			{Label: "reshuffles", Value: fmt.Sprintf("%d", snapshot.Reshuffles)},
			{Label: "dropped", Value: fmt.Sprintf("%d", snapshot.DroppedChunks)},
		},
		Queues: []tui.StatBox{
			{Label: "q1 size", Value: fmt.Sprintf("%d/%d", q1.Size, q1.Capacity)},
			{Label: "q2 size", Value: fmt.Sprintf("%d/%d", q2.Size, q2.Capacity)},
			{Label: "q2 dropped", Value: fmt.Sprintf("%d", q2.Counts.Drop)},
		},
		IngestionWorkers: formatWorkerLoads(ingestion),
		OutputWorkers:    formatWorkerLoads(output),
	}
}
