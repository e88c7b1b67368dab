package pool

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/justapithecus/chunkstream/chunksource"
	"github.com/justapithecus/chunkstream/frame"
	"github.com/justapithecus/chunkstream/types"
)

// getNextChunkData runs the selection loop under the pool lock: draw the
// next shuffled index, resolve it to an owning entry, apply Hanse sampling,
// and build a TrainingChunk. Returns nil once the window is observed empty
// or ctx is canceled; callers should back off briefly before calling again.
// A pathologically low Hanse acceptance rate can reject indefinitely, so the
// loop periodically checks ctx rather than holding the lock forever.
func (p *Pool) getNextChunkData(ctx context.Context, rng *rand.Rand) *types.TrainingChunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	checkEvery := 0
	for {
		checkEvery++
		if checkEvery%256 == 0 && ctx.Err() != nil {
			return nil
		}

		idx, ok := p.shuffler.Next()
		if !ok {
			if len(p.entries) == 0 {
				return nil
			}
			lower, upper := p.windowBoundsLocked()
			p.shuffler.Reset(lower, upper)
			p.collector.IncReshuffle()
			idx, ok = p.shuffler.Next()
			if !ok {
				return nil
			}
		}

		e, local, found := p.findEntryLocked(idx)
		if !found {
			continue
		}
		if e.isDropped(local) {
			continue
		}

		data, accepted := p.hanseAcceptAndMaybeLoadLocked(e, local, rng)
		if !accepted {
			continue
		}

		frames, err := frame.Reinterpret(data, p.frameSize)
		if err != nil {
			e.markDropped(local)
			p.collector.IncDroppedChunk()
			continue
		}

		useCount := incSaturating16(&e.useCounts[local])

		return &types.TrainingChunk{
			SortKey:            e.source.SortKey(),
			IndexWithinSortKey: uint64(local),
			GlobalIndex:        idx,
			UseCount:           uint32(useCount),
			Frames:             frames,
		}
	}
}

// findEntryLocked binary-searches entries for the one owning idx, returning
// its local (within-source) index. found is false if the search misses,
// which only happens when idx raced with a concurrent eviction.
func (p *Pool) findEntryLocked(idx uint64) (e *chunkSourceEntry, local int, found bool) {
	entries := p.entries
	i, j := 0, len(entries)
	for i < j {
		mid := (i + j) / 2
		if entries[mid].end() <= idx {
			i = mid + 1
		} else {
			j = mid
		}
	}
	if i >= len(entries) {
		return nil, 0, false
	}
	candidate := entries[i]
	if idx < candidate.startChunkIndex || idx >= candidate.end() {
		return nil, 0, false
	}
	return candidate, int(idx - candidate.startChunkIndex), true
}

// windowBoundsLocked computes the pool invariant's [lower, upper) bounds
// from the current entry set.
func (p *Pool) windowBoundsLocked() (lower, upper uint64) {
	if len(p.entries) == 0 {
		return 0, 0
	}
	last := p.entries[len(p.entries)-1]
	upper = last.end()

	if upper > uint64(p.cfg.ChunkPoolSize) {
		lower = upper - uint64(p.cfg.ChunkPoolSize)
	}
	if first := p.entries[0]; lower < first.startChunkIndex {
		lower = first.startChunkIndex
	}
	return lower, upper
}

// loadChunkDataLocked loads chunk local from e's source, marking it
// permanently dropped on any of: an error, empty bytes, or a length not a
// multiple of the frame size.
func (p *Pool) loadChunkDataLocked(e *chunkSourceEntry, local int) ([]byte, bool) {
	data, err := e.source.ChunkData(local)
	if err != nil || len(data) == 0 || len(data)%p.frameSize != 0 {
		e.markDropped(local)
		p.collector.IncDroppedChunk()
		return nil, false
	}
	return data, true
}

// hanseAcceptAndMaybeLoadLocked applies Hanse acceptance sampling when
// enabled. accepted is false whenever the selection loop should retry
// without emitting, whether due to a load failure (already marked dropped)
// or a Hanse rejection.
func (p *Pool) hanseAcceptAndMaybeLoadLocked(e *chunkSourceEntry, local int, rng *rand.Rand) (data []byte, accepted bool) {
	if !p.cfg.hanseEnabled() {
		return p.loadChunkDataLocked(e, local)
	}

	loaded := false
	if e.numRecords[local] == 0 {
		p.collector.IncHanseCacheMiss()
		d, ok := p.loadChunkDataLocked(e, local)
		if !ok {
			return nil, false
		}
		data = d
		loaded = true
		e.numRecords[local] = clampUint16(len(d) / p.frameSize)
	} else {
		p.collector.IncHanseCacheHit()
	}

	ratio := float64(e.numRecords[local]) / float64(p.cfg.HanseSamplingThreshold)
	if ratio > 1 {
		ratio = 1
	}
	acceptProb := math.Pow(ratio, p.cfg.HanseSamplingGamma)

	if rng.Float64() >= acceptProb {
		p.collector.IncHanseRejected()
		return nil, false
	}

	if !loaded {
		d, ok := p.loadChunkDataLocked(e, local)
		if !ok {
			return nil, false
		}
		data = d
	}
	return data, true
}

// addNewChunkSourceLocked appends a newly ingested source to the window,
// evicts from the front while the window would still meet ChunkPoolSize
// without the oldest entry, and updates the shuffler's bounds. Caller must
// hold p.mu.
func (p *Pool) addNewChunkSourceLocked(source chunksource.ChunkSource) {
	start := uint64(0)
	if n := len(p.entries); n > 0 {
		start = p.entries[n-1].end()
	}
	e := newChunkSourceEntry(start, source)
	p.entries = append(p.entries, e)

	newUpper := e.end()
	for len(p.entries) > 1 && newUpper-p.entries[1].startChunkIndex >= uint64(p.cfg.ChunkPoolSize) {
		p.entries = p.entries[1:]
	}

	lower := uint64(0)
	if newUpper > uint64(p.cfg.ChunkPoolSize) {
		lower = newUpper - uint64(p.cfg.ChunkPoolSize)
	}
	if first := p.entries[0]; lower < first.startChunkIndex {
		lower = first.startChunkIndex
	}

	p.shuffler.SetUpperBound(newUpper)
	p.shuffler.SetLowerBound(lower)
}
