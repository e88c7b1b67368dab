//nolint:revive // types is a common Go package naming convention
package types

import "github.com/justapithecus/chunkstream/frame"

// TrainingChunk is the fully-loaded record carried on Q2, the shuffling
// chunk pool's output queue. A msgpack-tagged wire record carrying decoded
// frames directly, since the loader core never serializes chunks over a
// wire boundary itself — msgpack tags exist only for the CLI's
// chunk-inspection command (cli/cmd), which decodes a msgpack-encoded
// TrainingChunk with vmihailenco/msgpack's default struct codec.
type TrainingChunk struct {
	// SortKey is the owning chunk source's sort key (recency order).
	SortKey string `msgpack:"sort_key"`
	// IndexWithinSortKey is the chunk's local index within its source.
	IndexWithinSortKey uint64 `msgpack:"index_within_sort_key"`
	// GlobalIndex is the monotone index across the whole window.
	GlobalIndex uint64 `msgpack:"global_index"`
	// UseCount is how many times this chunk was emitted before this one
	// (the current emission counts as 0).
	UseCount uint32 `msgpack:"use_count"`
	// Frames holds the decoded frame bytes, F bytes each.
	Frames []frame.Frame `msgpack:"frames"`
}
