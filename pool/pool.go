// Package pool implements the shuffling chunk pool: the stage that keeps a
// bounded, sliding window of the most recently observed chunk sources,
// serves training chunks out of that window in a uniform random order via
// package shuffle, and optionally biases selection by chunk length through
// Hanse acceptance sampling.
//
// A Pool owns two queues: Q1 (chunksource.Message, fed by an upstream
// discovery stage) and Q2 (*types.TrainingChunk, drained by training
// consumers). The initial scan runs inside Start, in the caller's goroutine;
// the pool has no separate startup goroutine. Once the scan completes it runs
// two goroutine groups: a configurable number of source-ingestion workers
// that drain live Q1 announcements, and a configurable number of output
// workers that run the selection loop and push to Q2.
package pool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/justapithecus/chunkstream/chunksource"
	"github.com/justapithecus/chunkstream/log"
	"github.com/justapithecus/chunkstream/metrics"
	"github.com/justapithecus/chunkstream/queue"
	"github.com/justapithecus/chunkstream/shuffle"
	"github.com/justapithecus/chunkstream/types"
)

// Pool is the shuffling chunk pool. Create with New, then Start, then Stop.
// Not safe to Start twice.
type Pool struct {
	cfg       Config
	frameSize int
	logger    *log.Logger
	collector *metrics.Collector

	q1 *queue.Queue[chunksource.Message]
	q2 *queue.Queue[*types.TrainingChunk]

	mu       sync.Mutex
	entries  []*chunkSourceEntry
	shuffler *shuffle.Shuffler

	anchorMu          sync.Mutex
	anchor            string
	chunksSinceAnchor atomic.Uint64

	ingestionPausers []*metrics.LoadPauser
	outputPausers    []*metrics.LoadPauser

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Pool. Q1 and Q2 are created here with the configured
// overflow behaviors: Q1 blocks (discovery must not silently lose sources),
// Q2 blocks too (backpressure into the pool is how a slow consumer throttles
// ingestion).
func New(cfg Config, logger *log.Logger, collector *metrics.Collector) *Pool {
	cfg = cfg.withDefaults()
	return &Pool{
		cfg:       cfg,
		frameSize: cfg.FrameFormat.Size(),
		logger:    logger,
		collector: collector,
		q1:        queue.New[chunksource.Message](cfg.OutputQueueCapacity, queue.Block),
		q2:        queue.New[*types.TrainingChunk](cfg.OutputQueueCapacity, queue.Block),
		shuffler:  shuffle.New(cfg.RandSeed),
	}
}

// Q1Producer returns a producer token for announcing chunk sources. Callers
// must Release it when the discovery stage is done announcing.
func (p *Pool) Q1Producer() (*queue.Producer[chunksource.Message], error) {
	return p.q1.CreateProducer()
}

// Next blocks until a training chunk is available or ctx is canceled.
func (p *Pool) Next(ctx context.Context) (*types.TrainingChunk, error) {
	return p.q2.Get(ctx)
}

// Start blocks on the initial scan (draining Q1 until
// chunksource.InitialScanComplete), builds the dense window, then launches
// the ingestion and output worker goroutines and returns. Returns
// ErrStartupNoChunks if the scan collects zero chunks.
func (p *Pool) Start(ctx context.Context) error {
	sources, err := p.initializeChunkSources(ctx)
	if err != nil {
		return err
	}
	if err := p.processInputFiles(sources); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.ingestionPausers = make([]*metrics.LoadPauser, p.cfg.SourceIngestionThreads)
	for i := 0; i < p.cfg.SourceIngestionThreads; i++ {
		pauser := metrics.NewLoadPauser()
		p.ingestionPausers[i] = pauser
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.sourceIngestionWorker(runCtx, pauser)
		}()
	}

	p.outputPausers = make([]*metrics.LoadPauser, p.cfg.ChunkLoadingThreads)
	for i := 0; i < p.cfg.ChunkLoadingThreads; i++ {
		pauser := metrics.NewLoadPauser()
		p.outputPausers[i] = pauser
		rng := rand.New(rand.NewPCG(p.cfg.RandSeed, uint64(i)+1))
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.outputWorker(runCtx, pauser, rng)
		}()
	}

	return nil
}

// Stop cancels the running workers, closes Q2, and waits for every worker
// goroutine to exit. Idempotent.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.q2.Close()
	p.wg.Wait()
}

// updateWindowMetrics publishes the current window shape (chunk source
// count, in-window chunk count, monotone high-water total) to the
// collector.
func (p *Pool) updateWindowMetrics() {
	p.mu.Lock()
	sources := int64(len(p.entries))
	lower, upper := p.windowBoundsLocked()
	p.mu.Unlock()

	p.collector.SetWindowState(sources, int64(upper-lower), int64(upper))
}

// FlushMetrics publishes the current window and anchor state, and returns
// the Collector's cumulative snapshot plus each queue's counters
// accumulated since the last flush. Queue counters (TakeCounts) are reset
// by this call; Collector counters are not.
func (p *Pool) FlushMetrics() (metrics.Snapshot, queue.Counts, queue.Counts) {
	p.updateWindowMetrics()

	anchor := p.CurrentAnchor()
	p.collector.SetAnchorState(anchor.ChunkAnchor, int64(anchor.ChunksSinceAnchor))

	return p.collector.Snapshot(), p.q1.TakeCounts(), p.q2.TakeCounts()
}

// WorkerLoad is one worker goroutine's busy/paused duration since the last
// snapshot, in the order the workers were launched.
type WorkerLoad struct {
	Index  int
	Busy   string
	Paused string
}

// IngestionWorkerLoads snapshots every source-ingestion worker's load and
// resets their accumulators.
func (p *Pool) IngestionWorkerLoads() []WorkerLoad {
	return snapshotPausers(p.ingestionPausers)
}

// OutputWorkerLoads snapshots every output worker's load and resets their
// accumulators.
func (p *Pool) OutputWorkerLoads() []WorkerLoad {
	return snapshotPausers(p.outputPausers)
}

func snapshotPausers(pausers []*metrics.LoadPauser) []WorkerLoad {
	loads := make([]WorkerLoad, len(pausers))
	for i, pauser := range pausers {
		busy, paused := pauser.Snapshot()
		loads[i] = WorkerLoad{Index: i, Busy: busy.String(), Paused: paused.String()}
	}
	return loads
}

// QueueMetrics holds one queue's size, capacity, and cumulative counters.
type QueueMetrics struct {
	Size     int
	Capacity int
	Counts   queue.Counts
}

// Q1Metrics reports the discovery-input queue's current state.
func (p *Pool) Q1Metrics() QueueMetrics {
	return QueueMetrics{Size: p.q1.Size(), Capacity: p.q1.Capacity(), Counts: p.q1.Counts()}
}

// Q2Metrics reports the training-chunk output queue's current state.
func (p *Pool) Q2Metrics() QueueMetrics {
	return QueueMetrics{Size: p.q2.Size(), Capacity: p.q2.Capacity(), Counts: p.q2.Counts()}
}

// String renders a one-line summary of the source count and window bounds.
func (p *Pool) String() string {
	p.mu.Lock()
	sources := len(p.entries)
	lower, upper := p.windowBoundsLocked()
	p.mu.Unlock()
	return fmt.Sprintf("pool(sources=%d window=[%d,%d))", sources, lower, upper)
}
