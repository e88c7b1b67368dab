package pool

import (
	"context"
	"sort"

	"github.com/justapithecus/chunkstream/chunksource"
)

// initializeChunkSources drains Q1 until InitialScanComplete, then sorts the
// collected sources newest-first and keeps a newest-dominant prefix
// totalling at least ChunkPoolSize chunks (truncating whatever is older).
// Every collected source, kept or not, counts toward chunks_since_anchor
// when it qualifies per Config.CountInitialScanUnconditionally.
func (p *Pool) initializeChunkSources(ctx context.Context) ([]chunksource.ChunkSource, error) {
	var collected []chunksource.ChunkSource

	for {
		msg, err := p.q1.Get(ctx)
		if err != nil {
			return nil, err
		}
		switch msg.Kind {
		case chunksource.KindInitialScanComplete:
			return p.truncateToWindow(collected), nil
		case chunksource.KindFile:
			if msg.Source == nil {
				continue
			}
			collected = append(collected, msg.Source)
			p.accountInitialScanSource(msg.Source)
		default:
			continue
		}
	}
}

func (p *Pool) accountInitialScanSource(source chunksource.ChunkSource) {
	if p.cfg.CountInitialScanUnconditionally {
		p.chunksSinceAnchor.Add(uint64(source.ChunkCount()))
		return
	}
	p.anchorMu.Lock()
	anchor := p.anchor
	p.anchorMu.Unlock()
	if source.SortKey() > anchor {
		p.chunksSinceAnchor.Add(uint64(source.ChunkCount()))
	}
}

// truncateToWindow sorts sources newest-first and keeps a prefix whose
// cumulative chunk count reaches ChunkPoolSize, returned in that
// newest-first order for processInputFiles to reverse.
func (p *Pool) truncateToWindow(collected []chunksource.ChunkSource) []chunksource.ChunkSource {
	sorted := append([]chunksource.ChunkSource(nil), collected...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SortKey() > sorted[j].SortKey()
	})

	var kept []chunksource.ChunkSource
	var total int
	for _, src := range sorted {
		kept = append(kept, src)
		total += src.ChunkCount()
		if total >= p.cfg.ChunkPoolSize {
			break
		}
	}

	if total > 0 && total < p.cfg.ChunkPoolSize {
		p.logger.Warn("initial window below target pool size", map[string]any{
			"chunks_collected": total,
			"pool_size":        p.cfg.ChunkPoolSize,
		})
	}

	return kept
}

// processInputFiles re-inserts the kept sources in ascending sort-key order,
// assigns dense start_chunk_index values from zero, and initializes the
// stream shuffler's bounds per the pool invariants.
func (p *Pool) processInputFiles(sources []chunksource.ChunkSource) error {
	for i, j := 0, len(sources)-1; i < j; i, j = i+1, j-1 {
		sources[i], sources[j] = sources[j], sources[i]
	}

	var start uint64
	entries := make([]*chunkSourceEntry, 0, len(sources))
	for _, src := range sources {
		e := newChunkSourceEntry(start, src)
		entries = append(entries, e)
		start = e.end()
	}

	if start == 0 {
		return ErrStartupNoChunks
	}

	lower := uint64(0)
	if start > uint64(p.cfg.ChunkPoolSize) {
		lower = start - uint64(p.cfg.ChunkPoolSize)
	}

	p.mu.Lock()
	p.entries = entries
	p.shuffler.Reset(lower, start)
	p.mu.Unlock()

	p.updateWindowMetrics()
	return nil
}
