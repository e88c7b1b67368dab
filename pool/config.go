package pool

import "github.com/justapithecus/chunkstream/chunksource"

// Config configures a Pool's window size, worker counts, Hanse sampling
// parameters, and frame layout.
type Config struct {
	// ChunkPoolSize is the maximum in-window chunk count. When a new
	// source's chunks push the total above it, oldest sources evict from
	// the front.
	ChunkPoolSize int
	// SourceIngestionThreads is the number of goroutines draining live
	// Q1 announcements after the initial scan completes.
	SourceIngestionThreads int
	// ChunkLoadingThreads is the number of goroutines selecting, loading,
	// and emitting chunks to the output queue.
	ChunkLoadingThreads int
	// HanseSamplingThreshold is the target frame count for Hanse
	// acceptance sampling. Zero disables Hanse sampling entirely.
	HanseSamplingThreshold uint32
	// HanseSamplingGamma is the acceptance curve's exponent: 1.0 is
	// linear in frames/threshold, higher values bias more steeply toward
	// longer chunks.
	HanseSamplingGamma float64
	// OutputQueueCapacity is Q2's fixed capacity.
	OutputQueueCapacity int
	// FrameFormat determines the byte size of one frame, used both to
	// reinterpret loaded chunk bytes and to validate chunk alignment.
	FrameFormat chunksource.FrameFormat
	// RandSeed seeds the stream shuffler and every worker's thread-local
	// Hanse RNG. Zero is a valid seed (not treated as "unset"); callers
	// wanting process-random behavior should derive one themselves.
	RandSeed uint64
	// CountInitialScanUnconditionally controls whether initial-scan sources
	// count toward chunks_since_anchor the same way live-ingested sources
	// do. By default, chunks_since_anchor only counts an initial-scan
	// source when its sort key is strictly greater than the anchor in
	// effect at scan time. Setting this true counts every initial-scan
	// source unconditionally, same as live ingestion.
	CountInitialScanUnconditionally bool
}

func (c Config) withDefaults() Config {
	if c.ChunkPoolSize <= 0 {
		c.ChunkPoolSize = 1000
	}
	if c.SourceIngestionThreads <= 0 {
		c.SourceIngestionThreads = 1
	}
	if c.ChunkLoadingThreads <= 0 {
		c.ChunkLoadingThreads = 4
	}
	if c.OutputQueueCapacity <= 0 {
		c.OutputQueueCapacity = 256
	}
	if c.HanseSamplingGamma == 0 {
		c.HanseSamplingGamma = 1.0
	}
	return c
}

func (c Config) hanseEnabled() bool {
	return c.HanseSamplingThreshold > 0
}
