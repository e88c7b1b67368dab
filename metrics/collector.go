// Package metrics provides pool-lifetime metrics collection for the
// shuffling chunk pool.
//
// The Collector accumulates counters during a single pool's lifetime. It is
// a leaf package with no internal dependencies: a mutex-guarded struct with
// nil-receiver-safe increment methods and an immutable Snapshot().
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all pool metrics. Returned
// by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Window state
	ChunkSources  int64
	ChunksCurrent int64
	ChunksTotal   int64

	// Hanse acceptance sampling
	HanseCacheHits   int64
	HanseCacheMisses int64
	HanseRejected    int64

	// Selection loop
	Reshuffles    int64
	DroppedChunks int64

	// Anchor control plane
	ChunksSinceAnchor int64
	Anchor            string

	// Dimensions (informational, set at construction)
	PoolID string
	Source string
}

// Collector accumulates pool metrics across its lifetime. Thread-safe via
// sync.Mutex. All increment/set methods are nil-receiver safe so callers
// can pass a nil *Collector when metrics are disabled.
type Collector struct {
	mu sync.Mutex

	chunkSources  int64
	chunksCurrent int64
	chunksTotal   int64

	hanseCacheHits   int64
	hanseCacheMisses int64
	hanseRejected    int64

	reshuffles    int64
	droppedChunks int64

	chunksSinceAnchor int64
	anchor            string

	poolID string
	source string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(poolID, source string) *Collector {
	return &Collector{poolID: poolID, source: source}
}

// SetWindowState records the current window shape: number of chunk
// sources in the sliding window, chunks currently reachable, and the
// monotone high-water total.
func (c *Collector) SetWindowState(chunkSources, chunksCurrent, chunksTotal int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunkSources = chunkSources
	c.chunksCurrent = chunksCurrent
	c.chunksTotal = chunksTotal
	c.mu.Unlock()
}

// IncHanseCacheHit records a Hanse sampling frame-count cache hit.
func (c *Collector) IncHanseCacheHit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hanseCacheHits++
	c.mu.Unlock()
}

// IncHanseCacheMiss records a Hanse sampling frame-count cache miss.
func (c *Collector) IncHanseCacheMiss() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hanseCacheMisses++
	c.mu.Unlock()
}

// IncHanseRejected records a Hanse acceptance-sampling rejection.
func (c *Collector) IncHanseRejected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hanseRejected++
	c.mu.Unlock()
}

// IncReshuffle records a stream-shuffler reset triggered by pass exhaustion.
func (c *Collector) IncReshuffle() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.reshuffles++
	c.mu.Unlock()
}

// IncDroppedChunk records a chunk permanently excluded due to a load
// failure.
func (c *Collector) IncDroppedChunk() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.droppedChunks++
	c.mu.Unlock()
}

// SetAnchorState records the current anchor watermark.
func (c *Collector) SetAnchorState(anchor string, chunksSinceAnchor int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.anchor = anchor
	c.chunksSinceAnchor = chunksSinceAnchor
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics. The
// returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ChunkSources:  c.chunkSources,
		ChunksCurrent: c.chunksCurrent,
		ChunksTotal:   c.chunksTotal,

		HanseCacheHits:   c.hanseCacheHits,
		HanseCacheMisses: c.hanseCacheMisses,
		HanseRejected:    c.hanseRejected,

		Reshuffles:    c.reshuffles,
		DroppedChunks: c.droppedChunks,

		ChunksSinceAnchor: c.chunksSinceAnchor,
		Anchor:            c.anchor,

		PoolID: c.poolID,
		Source: c.source,
	}
}
