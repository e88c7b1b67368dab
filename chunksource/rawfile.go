package chunksource

import (
	"os"
	"path/filepath"
)

// RawFileChunkSource treats a single on-disk file as one chunk. Its sort key
// is the bare filename, and ChunkData(0) rejects the file if its byte
// length isn't a multiple of the configured frame format's size.
type RawFileChunkSource struct {
	path   string
	format FrameFormat
}

// NewRawFileChunkSource creates a source over a single file.
func NewRawFileChunkSource(path string, format FrameFormat) *RawFileChunkSource {
	return &RawFileChunkSource{path: path, format: format}
}

// SortKey returns the file's base name.
func (r *RawFileChunkSource) SortKey() string {
	return filepath.Base(r.path)
}

// ChunkCount always returns 1.
func (r *RawFileChunkSource) ChunkCount() int { return 1 }

// ChunkData reads the whole file for index 0. Returns ErrIndexOutOfRange
// for any other index, and ErrMisaligned if the file's length isn't a
// multiple of the frame size.
func (r *RawFileChunkSource) ChunkData(index int) ([]byte, error) {
	if index != 0 {
		return nil, NewSourceError(ErrIndexOutOfRange, "chunk_data", r.SortKey(), nil)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, NewSourceError(ErrUnavailable, "chunk_data", r.SortKey(), err)
	}
	if len(data) == 0 {
		return nil, NewSourceError(ErrUnavailable, "chunk_data", r.SortKey(), nil)
	}

	frameSize := r.format.Size()
	if len(data)%frameSize != 0 {
		return nil, NewSourceError(ErrMisaligned, "chunk_data", r.SortKey(), nil)
	}
	return data, nil
}
