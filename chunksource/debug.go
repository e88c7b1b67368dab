package chunksource

import (
	"fmt"
	"hash/maphash"
	"math"
	"math/rand/v2"
)

// DebugChunkSource synthesizes deterministic chunk data from an id and a
// target mean chunk count, for exercising the pool without real archives.
// Chunk count is sampled once from a clamped normal distribution seeded by
// id; chunk bytes are deterministic from hash(id, index).
type DebugChunkSource struct {
	id             uint64
	meanChunkCount float64
	frameFormat    FrameFormat

	chunkCount    int
	chunkCountSet bool
}

// NewDebugChunkSource creates a debug source. meanChunkCount must be > 0.
func NewDebugChunkSource(id uint64, meanChunkCount float64, format FrameFormat) *DebugChunkSource {
	return &DebugChunkSource{id: id, meanChunkCount: meanChunkCount, frameFormat: format}
}

// SortKey returns the zero-padded decimal id, so sources sort by id order.
func (d *DebugChunkSource) SortKey() string {
	return fmt.Sprintf("%08d", d.id)
}

// ChunkCount samples (once, then caches) a chunk count from
// N(mean, max(1, mean/4)), clamped to at least 1.
func (d *DebugChunkSource) ChunkCount() int {
	if d.chunkCountSet {
		return d.chunkCount
	}
	rng := rand.New(rand.NewPCG(d.id, d.id))
	stddev := math.Max(1.0, d.meanChunkCount/4.0)
	sampled := rng.NormFloat64()*stddev + d.meanChunkCount
	rounded := math.Round(math.Max(sampled, 1.0))
	d.chunkCount = int(rounded)
	d.chunkCountSet = true
	return d.chunkCount
}

// ChunkData deterministically synthesizes 1-200 frames from hash(id,
// index), each frame's first three fields set to (id, index, frameIndex).
func (d *DebugChunkSource) ChunkData(index int) ([]byte, error) {
	var h maphash.Hash
	h.SetSeed(debugHashSeed)
	var buf [16]byte
	putUint64(buf[0:8], d.id)
	putUint64(buf[8:16], uint64(index))
	_, _ = h.Write(buf[:])
	seed := h.Sum64()

	rng := rand.New(rand.NewPCG(seed, seed))
	frameCount := 1 + rng.IntN(200)

	frameSize := d.frameFormat.Size()
	out := make([]byte, frameCount*frameSize)
	for frameIndex := 0; frameIndex < frameCount; frameIndex++ {
		off := frameIndex * frameSize
		putUint64(out[off:off+8], d.id)
		putUint64(out[off+8:off+16], uint64(index))
		putUint64(out[off+16:off+24], uint64(frameIndex))
	}
	return out, nil
}

// debugHashSeed is fixed once per process so DebugChunkSource.ChunkData is
// deterministic within a run: repeated calls for the same (id, index)
// within one process always agree, which is what the pool's Hanse cache
// and drop bookkeeping rely on. It is not stable across process restarts.
var debugHashSeed = maphash.MakeSeed()

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
