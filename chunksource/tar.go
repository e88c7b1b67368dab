package chunksource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	kgzip "github.com/klauspost/compress/gzip"
)

const tarHeaderSize = 512
const tarBlockSize = 512

// tarTypeRegular and tarTypeDirectory are the USTAR typeflag bytes this
// indexer understands; any other typeflag is skipped like an unsupported
// entry.
const (
	tarTypeRegular   = '0'
	tarTypeDirectory = '5'
)

// tarEntry records where one regular-file member lives in the archive and
// whether its content needs gunzipping.
type tarEntry struct {
	offset  int64
	size    int64
	isGzip  bool
	relName string
}

// TarChunkSource indexes a USTAR tar archive at construction time (reading
// only 512-byte headers, never entry bodies) and serves each regular-file
// entry as one chunk. Directory entries (typeflag '5') and a file literally
// named LICENSE are excluded from the index; entries ending in ".gz" are
// transparently gunzipped on read.
//
// Reads go through an io.ReaderAt rather than a stateful *os.File so the
// same indexing and chunk-reading logic serves both a local file
// (OpenTarChunkSource) and a ranged-GET view over an S3 object
// (OpenS3TarChunkSource, s3tar.go).
type TarChunkSource struct {
	sortKey  string
	readerAt io.ReaderAt
	size     int64
	closer   io.Closer

	entries []tarEntry
}

// OpenTarChunkSource opens and indexes a tar archive on local disk. The
// sort key is the archive's base filename.
func OpenTarChunkSource(path string) (*TarChunkSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewSourceError(ErrUnavailable, "open", filepath.Base(path), err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, NewSourceError(ErrUnavailable, "open", filepath.Base(path), err)
	}

	t := &TarChunkSource{
		sortKey:  filepath.Base(path),
		readerAt: f,
		size:     info.Size(),
		closer:   f,
	}
	if err := t.indexFromReaderAt(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return t, nil
}

// Close releases the underlying file handle, if any (S3-backed sources
// have nothing to close).
func (t *TarChunkSource) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// SortKey returns the archive's base filename (or S3 key).
func (t *TarChunkSource) SortKey() string { return t.sortKey }

// ChunkCount returns the number of indexed regular-file entries.
func (t *TarChunkSource) ChunkCount() int {
	return len(t.entries)
}

type tarHeader struct {
	name     [100]byte
	mode     [8]byte
	uid      [8]byte
	gid      [8]byte
	size     [12]byte
	mtime    [12]byte
	chksum   [8]byte
	typeflag byte
	linkname [100]byte
	magic    [6]byte
	version  [2]byte
	uname    [32]byte
	gname    [32]byte
	devmajor [8]byte
	devminor [8]byte
	prefix   [155]byte
}

func parseOctal(field []byte) int64 {
	var value int64
	for _, digit := range field {
		if digit == 0 {
			break
		}
		if digit < '0' || digit > '7' {
			continue
		}
		value = value<<3 + int64(digit-'0')
	}
	return value
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func parseTarHeader(raw []byte) tarHeader {
	var hdr tarHeader
	copy(hdr.name[:], raw[0:100])
	copy(hdr.mode[:], raw[100:108])
	copy(hdr.uid[:], raw[108:116])
	copy(hdr.gid[:], raw[116:124])
	copy(hdr.size[:], raw[124:136])
	copy(hdr.mtime[:], raw[136:148])
	copy(hdr.chksum[:], raw[148:156])
	hdr.typeflag = raw[156]
	copy(hdr.linkname[:], raw[157:257])
	copy(hdr.magic[:], raw[257:263])
	copy(hdr.version[:], raw[263:265])
	copy(hdr.uname[:], raw[265:297])
	copy(hdr.gname[:], raw[297:329])
	copy(hdr.devmajor[:], raw[329:337])
	copy(hdr.devminor[:], raw[337:345])
	copy(hdr.prefix[:], raw[345:500])
	return hdr
}

// indexFromReaderAt walks sequential 512-byte headers from offset 0,
// recording each regular-file entry's {offset, size, isGzip} and skipping
// directories, LICENSE, and unrecognised typeflags. It never reads entry
// bodies.
func (t *TarChunkSource) indexFromReaderAt() error {
	var pos int64
	var raw [tarHeaderSize]byte

	for pos+tarHeaderSize <= t.size {
		if _, err := t.readerAt.ReadAt(raw[:], pos); err != nil {
			return NewSourceError(ErrUnavailable, "index", t.sortKey, err)
		}
		pos += tarHeaderSize

		hdr := parseTarHeader(raw[:])
		if hdr.name[0] == 0 {
			break // end-of-archive marker
		}

		size := parseOctal(hdr.size[:])
		bodyBlocks := (size + tarBlockSize - 1) / tarBlockSize
		bodyOffset := pos
		pos += bodyBlocks * tarBlockSize

		if hdr.typeflag != tarTypeRegular {
			continue
		}

		name := cstring(hdr.name[:])
		if filepath.Base(name) == "LICENSE" {
			continue
		}

		t.entries = append(t.entries, tarEntry{
			offset:  bodyOffset,
			size:    size,
			isGzip:  strings.HasSuffix(name, ".gz"),
			relName: name,
		})
	}
	return nil
}

// ChunkData reads entry i's raw bytes and gunzips them if the entry was
// ".gz"-suffixed.
func (t *TarChunkSource) ChunkData(i int) ([]byte, error) {
	if i < 0 || i >= len(t.entries) {
		return nil, NewSourceError(ErrIndexOutOfRange, "chunk_data", t.sortKey, nil)
	}
	e := t.entries[i]

	raw := make([]byte, e.size)
	if _, err := io.ReadFull(io.NewSectionReader(t.readerAt, e.offset, e.size), raw); err != nil {
		return nil, NewSourceError(ErrUnavailable, "chunk_data", t.sortKey, err)
	}

	if !e.isGzip {
		return raw, nil
	}

	gz, err := kgzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, NewSourceError(ErrUnavailable, "chunk_data", t.sortKey, err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, NewSourceError(ErrUnavailable, "chunk_data", t.sortKey, err)
	}
	return out, nil
}

// ChunkPrefix streams only enough compressed input to produce up to
// maxBytes of decoded output, used by out-of-core record-count probes.
// Non-gzipped entries are simply truncated on read.
func (t *TarChunkSource) ChunkPrefix(i int, maxBytes int) ([]byte, error) {
	if i < 0 || i >= len(t.entries) {
		return nil, NewSourceError(ErrIndexOutOfRange, "chunk_prefix", t.sortKey, nil)
	}
	e := t.entries[i]

	if maxBytes == 0 {
		return []byte{}, nil
	}

	section := io.NewSectionReader(t.readerAt, e.offset, e.size)

	if !e.isGzip {
		toRead := e.size
		if int64(maxBytes) < toRead {
			toRead = int64(maxBytes)
		}
		buf := make([]byte, toRead)
		if _, err := io.ReadFull(section, buf); err != nil {
			return nil, NewSourceError(ErrUnavailable, "chunk_prefix", t.sortKey, err)
		}
		return buf, nil
	}

	gz, err := kgzip.NewReader(section)
	if err != nil {
		return nil, NewSourceError(ErrUnavailable, "chunk_prefix", t.sortKey, err)
	}
	defer gz.Close()

	out := make([]byte, 0, maxBytes)
	buf := make([]byte, 16384)
	for len(out) < maxBytes {
		n, err := gz.Read(buf)
		if n > 0 {
			take := n
			if remaining := maxBytes - len(out); take > remaining {
				take = remaining
			}
			out = append(out, buf[:take]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewSourceError(ErrUnavailable, "chunk_prefix", t.sortKey, err)
		}
	}
	return out, nil
}
