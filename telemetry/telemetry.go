// Package telemetry defines the anchor-watermark publisher boundary.
//
// A loader process that advances its anchor (via pool.ResetAnchor or
// pool.SetAnchor) can optionally publish the new watermark to a downstream
// system, so other processes sharing the same chunk-source namespace know
// how much of it this loader has already consumed. The loader core itself
// never depends on this package; only cmd/chunkstream-loader wires a
// publisher in.
package telemetry

import "context"

// AnchorEvent is the payload published whenever a pool's anchor watermark
// changes.
type AnchorEvent struct {
	PoolID            string `json:"pool_id"`
	Source            string `json:"source"`
	ChunkAnchor       string `json:"chunk_anchor"`
	ChunksSinceAnchor uint64 `json:"chunks_since_anchor"`
	Timestamp         string `json:"timestamp"` // ISO 8601
}

// Publisher publishes anchor watermark events to a downstream system.
// Implementations must be safe for single-use per loader process.
type Publisher interface {
	// Publish sends an anchor event to the downstream system. Must
	// respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AnchorEvent) error

	// Close releases publisher resources.
	Close() error
}
