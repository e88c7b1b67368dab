package controlplane

import (
	"github.com/justapithecus/chunkstream/metrics"
	"github.com/justapithecus/chunkstream/pool"
	"github.com/justapithecus/chunkstream/types"
)

// Op identifies a control-plane operation.
type Op string

// Supported control-plane operations.
const (
	OpAnchorGet   Op = "anchor_get"
	OpAnchorSet   Op = "anchor_set"
	OpAnchorReset Op = "anchor_reset"
	OpStats       Op = "stats"
)

// Request is one control-plane call. Anchor is only read for OpAnchorSet.
type Request struct {
	Op     Op     `msgpack:"op"`
	Anchor string `msgpack:"anchor,omitempty"`
}

// Response is the reply to a Request. Error is empty on success.
type Response struct {
	Error  string            `msgpack:"error,omitempty"`
	Anchor *types.AnchorState `msgpack:"anchor,omitempty"`
	Stats  *StatsPayload      `msgpack:"stats,omitempty"`
}

// StatsPayload is the stats command's wire shape: a pool's metrics
// snapshot plus queue and worker-load detail.
type StatsPayload struct {
	Metrics          metrics.Snapshot  `msgpack:"metrics"`
	Q1               pool.QueueMetrics `msgpack:"q1"`
	Q2               pool.QueueMetrics `msgpack:"q2"`
	IngestionWorkers []pool.WorkerLoad `msgpack:"ingestion_workers"`
	OutputWorkers    []pool.WorkerLoad `msgpack:"output_workers"`
}
