package pool

import (
	"math"

	"github.com/justapithecus/chunkstream/chunksource"
)

// chunkSourceEntry is one source in the window: its dense starting global
// index, the owned source handle, and the per-chunk bookkeeping the
// selection loop and Hanse sampling need.
type chunkSourceEntry struct {
	startChunkIndex uint64
	source          chunksource.ChunkSource
	count           int

	droppedChunks map[int]struct{}
	useCounts     []uint16
	numRecords    []uint16
}

func newChunkSourceEntry(start uint64, source chunksource.ChunkSource) *chunkSourceEntry {
	n := source.ChunkCount()
	return &chunkSourceEntry{
		startChunkIndex: start,
		source:          source,
		count:           n,
		droppedChunks:   make(map[int]struct{}),
		useCounts:       make([]uint16, n),
		numRecords:      make([]uint16, n),
	}
}

// end returns the exclusive upper bound of this entry's global index range.
func (e *chunkSourceEntry) end() uint64 {
	return e.startChunkIndex + uint64(e.count)
}

func (e *chunkSourceEntry) isDropped(local int) bool {
	_, ok := e.droppedChunks[local]
	return ok
}

func (e *chunkSourceEntry) markDropped(local int) {
	e.droppedChunks[local] = struct{}{}
}

// incSaturating16 returns the pre-increment value and bumps *v by one,
// saturating at math.MaxUint16 rather than wrapping.
func incSaturating16(v *uint16) uint16 {
	old := *v
	if *v != math.MaxUint16 {
		*v++
	}
	return old
}

// clampUint16 saturates n to math.MaxUint16 when it overflows a uint16.
func clampUint16(n int) uint16 {
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}
