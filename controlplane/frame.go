// Package controlplane implements the loader's anchor control plane: a
// length-prefixed msgpack RPC over a Unix domain socket that lets the
// anchor CLI subcommands (get/set/reset) and the stats command reach a
// running pool process.
//
// Framing follows the same length-prefixed msgpack convention the loader
// uses for its other wire formats: a 4-byte big-endian payload length
// followed by a msgpack-encoded body.
package controlplane

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxFrameSize is the maximum frame size (1 MiB), including length prefix.
	// Control-plane payloads are small structured records, never chunk data.
	MaxFrameSize = 1 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// frameReader reads length-prefixed frames from a stream.
type frameReader struct {
	reader *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &frameReader{reader: br}
}

// readFrame reads a single frame, returning the raw msgpack payload.
func (d *frameReader) readFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize)}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// encodeFrame prefixes payload with its big-endian length.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

// writeMsg encodes v as msgpack and writes it as a single frame.
func writeMsg(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode control-plane frame: %w", err)
	}
	_, err = w.Write(encodeFrame(payload))
	return err
}

// readMsg reads one frame from r and decodes it into v.
func readMsg(r io.Reader, v any) error {
	fr := newFrameReader(r)
	payload, err := fr.readFrame()
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode control-plane frame", Err: err}
	}
	return nil
}

var errUnknownOp = errors.New("controlplane: unknown op")
