package pool

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/justapithecus/chunkstream/chunksource"
	"github.com/justapithecus/chunkstream/metrics"
	"github.com/justapithecus/chunkstream/queue"
)

// sourceIngestionWorker drains live Q1 announcements after the initial scan
// and folds each one into the window via addNewChunkSourceLocked. Exits
// when Q1 closes or ctx is canceled.
func (p *Pool) sourceIngestionWorker(ctx context.Context, pauser *metrics.LoadPauser) {
	for {
		resume := pauser.Pause()
		msg, err := p.q1.Get(ctx)
		resume()
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			continue
		}

		switch msg.Kind {
		case chunksource.KindFile:
			if msg.Source == nil {
				continue
			}
			p.mu.Lock()
			p.addNewChunkSourceLocked(msg.Source)
			p.mu.Unlock()
			p.chunksSinceAnchor.Add(uint64(msg.Source.ChunkCount()))
			p.updateWindowMetrics()
		case chunksource.KindInitialScanComplete:
			// Only meaningful once, during Start; a second one here is a
			// signal to ignore rather than a defect.
		}
	}
}

// outputWorker runs the selection loop and pushes emitted chunks to Q2.
// When the window is momentarily empty it backs off briefly rather than
// spinning.
func (p *Pool) outputWorker(ctx context.Context, pauser *metrics.LoadPauser, rng *rand.Rand) {
	for {
		if ctx.Err() != nil {
			return
		}

		chunk := p.getNextChunkData(ctx, rng)
		if chunk == nil {
			resume := pauser.Pause()
			select {
			case <-ctx.Done():
				resume()
				return
			case <-time.After(time.Millisecond):
				resume()
			}
			continue
		}

		resume := pauser.Pause()
		err := p.q2.Put(ctx, chunk)
		resume()
		if err != nil {
			return
		}
	}
}
