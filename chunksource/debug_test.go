package chunksource_test

import (
	"testing"

	"github.com/justapithecus/chunkstream/chunksource"
)

func TestDebugChunkSource_SortKeyIsZeroPadded(t *testing.T) {
	src := chunksource.NewDebugChunkSource(42, 10, chunksource.FrameFormatV6)
	if got := src.SortKey(); got != "00000042" {
		t.Errorf("SortKey() = %q, want 00000042", got)
	}
}

func TestDebugChunkSource_ChunkCount_ClampedAndStable(t *testing.T) {
	src := chunksource.NewDebugChunkSource(1, 2, chunksource.FrameFormatV6)
	first := src.ChunkCount()
	if first < 1 {
		t.Fatalf("ChunkCount() = %d, want >= 1", first)
	}
	if second := src.ChunkCount(); second != first {
		t.Errorf("ChunkCount() not stable across calls: %d then %d", first, second)
	}
}

func TestDebugChunkSource_ChunkData_Deterministic(t *testing.T) {
	src := chunksource.NewDebugChunkSource(7, 5, chunksource.FrameFormatV6)
	a, err := src.ChunkData(3)
	if err != nil {
		t.Fatalf("ChunkData failed: %v", err)
	}
	b, err := src.ChunkData(3)
	if err != nil {
		t.Fatalf("ChunkData failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("ChunkData(3) not deterministic across repeated calls")
	}

	c, err := src.ChunkData(4)
	if err != nil {
		t.Fatalf("ChunkData failed: %v", err)
	}
	if string(a) == string(c) {
		t.Error("ChunkData for different indices should differ")
	}
}

func TestDebugChunkSource_ChunkData_SizeIsMultipleOfFrame(t *testing.T) {
	src := chunksource.NewDebugChunkSource(9, 20, chunksource.FrameFormatV7)
	data, err := src.ChunkData(0)
	if err != nil {
		t.Fatalf("ChunkData failed: %v", err)
	}
	frameSize := chunksource.FrameFormatV7.Size()
	if len(data)%frameSize != 0 {
		t.Errorf("ChunkData length %d not a multiple of frame size %d", len(data), frameSize)
	}
	if len(data) < frameSize || len(data) > 200*frameSize {
		t.Errorf("ChunkData length %d outside expected 1-200 frame range", len(data))
	}
}
