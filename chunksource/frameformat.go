package chunksource

// FrameFormat identifies an on-disk training record layout. The loader core
// only needs each format's byte size to reinterpret a chunk's bytes as
// frames (package frame); the fields within a frame are a downstream
// decoding concern.
type FrameFormat int

const (
	// FrameFormatV6 is the legacy fixed-size training record layout.
	FrameFormatV6 FrameFormat = iota
	// FrameFormatV7 extends V6 with additional trailing fields; a V6 file
	// read under V7 framing must be upconverted by the frame-format codec
	// (external to the core), not by this package.
	FrameFormatV7
)

// frameSizes holds the wire size, in bytes, of one frame under each format.
// The core treats these as opaque POD sizes only.
var frameSizes = map[FrameFormat]int{
	FrameFormatV6: 8356,
	FrameFormatV7: 8388,
}

// Size returns the byte size of one frame under this format.
func (f FrameFormat) Size() int {
	return frameSizes[f]
}

// String implements fmt.Stringer.
func (f FrameFormat) String() string {
	switch f {
	case FrameFormatV6:
		return "v6"
	case FrameFormatV7:
		return "v7"
	default:
		return "unknown"
	}
}
