// Package deflate is the DEFLATE/zlib adapter capability from
// spec.md §4.3: it streams bytes to/from klauspost/compress's zlib
// implementation and owns the compression parameters, matching the
// "treat as a capability: supply input, request output" redesign note
// in spec.md §9.
package deflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Strategy mirrors the flate/zlib strategy knobs spec.md §4.3 names.
type Strategy int

const (
	StrategyDefault Strategy = iota
	StrategyFiltered
	StrategyHuffmanOnly
	StrategyRLE
	StrategyFixed
)

// DefaultLevel and DefaultMaxIDAT match the documented defaults in
// spec.md §6: "compression level = 6-equivalent... window = 15, max
// IDAT = 8192".
const (
	DefaultLevel      = 6
	DefaultWindowBits = 15
	DefaultMemLevel   = 8
	DefaultMaxIDAT    = 8192
	MaxIDATCeiling    = 1<<31 - 1
)

// Options configures the DEFLATE adapter, per spec.md §4.3.
type Options struct {
	Level       int // 0-9, or -1 for library default
	Strategy    Strategy
	WindowBits  int // 8-15
	MemLevel    int // 1-9 (advisory; klauspost/compress ignores this knob but it is retained for API parity)
	MaxIDATSize int
	// IgnoreAdlerMismatch downgrades an Adler-32 mismatch from an error
	// to a silently accepted stream, for known pathological encoders
	// (spec.md §4.3).
	IgnoreAdlerMismatch bool
}

// DefaultOptions returns the documented default configuration.
func DefaultOptions() Options {
	return Options{
		Level:       DefaultLevel,
		Strategy:    StrategyFiltered,
		WindowBits:  DefaultWindowBits,
		MemLevel:    DefaultMemLevel,
		MaxIDATSize: DefaultMaxIDAT,
	}
}

var (
	ErrZlibHeader = errors.New("png: invalid zlib header")
	ErrAdler32    = errors.New("png: zlib Adler-32 checksum mismatch")
	ErrTruncated  = errors.New("png: compressed data truncated")
	ErrExtraData  = errors.New("png: extra data after DEFLATE stream")
)

// Writer streams raw (already-filtered) scanline bytes into a zlib
// stream, per spec.md §4.3 ("Output on write: a single zlib stream").
type Writer struct {
	buf *bytes.Buffer
	zw  *zlib.Writer
}

// NewWriter creates a Writer configured by opt. Level is applied, and
// StrategyHuffmanOnly selects the Huffman-only level; WindowBits,
// MemLevel and the filtered/RLE/fixed strategies are accepted but not
// honored, as klauspost/compress's zlib writer has no knob for them.
func NewWriter(opt Options) (*Writer, error) {
	buf := &bytes.Buffer{}
	level := opt.Level
	if level < -2 || level > 9 {
		level = DefaultLevel
	}
	if opt.Strategy == StrategyHuffmanOnly {
		level = flate.HuffmanOnly
	}
	zw, err := zlib.NewWriterLevel(buf, level)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Writer{buf: buf, zw: zw}, nil
}

// Write compresses p into the internal zlib stream.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.zw.Write(p)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Flush flushes the compressor's internal buffers without closing the
// stream, for legacy periodic sync-flush support; bit-exact output of
// sync-flushed streams is not a conformance requirement (spec.md §9)
// so this simply calls the underlying Flush.
func (w *Writer) Flush() error {
	return errors.WithStack(w.zw.Flush())
}

// Close finalizes the zlib stream (writes the DEFLATE end block and the
// Adler-32 footer).
func (w *Writer) Close() error {
	return errors.WithStack(w.zw.Close())
}

// Bytes returns the accumulated compressed bytes produced so far; the
// caller drains this into IDAT chunks of at most MaxIDATSize bytes.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Reset clears the accumulated compressed bytes after the caller has
// drained them into IDAT chunks, without resetting the compressor
// state (the zlib stream itself continues).
func (w *Writer) Reset() { w.buf.Reset() }

// Reader inflates a concatenated-IDAT zlib stream back into raw
// (filtered) scanline bytes, per spec.md §4.3. It wraps an arbitrary
// io.Reader — the orchestrator supplies one that pulls additional IDAT
// chunks off the wire as the zlib reader asks for more input, so
// decompression and chunk framing stay decoupled, per the "treat as a
// capability" redesign note in spec.md §9.
type Reader struct {
	src                 io.Reader
	zr                  io.ReadCloser
	ignoreAdlerMismatch bool
}

// NewReader constructs a Reader that lazily initializes the zlib
// decompressor on the first Read call, so construction itself never
// blocks on input. opt.IgnoreAdlerMismatch, if set, downgrades a
// trailing Adler-32 mismatch to a clean end-of-stream instead of
// ErrAdler32 (spec.md §4.3).
func NewReader(src io.Reader, opt Options) *Reader {
	return &Reader{src: src, ignoreAdlerMismatch: opt.IgnoreAdlerMismatch}
}

// Read inflates decompressed bytes into p. It classifies errors per
// spec.md §4.3: a bad 2-byte zlib header becomes ErrZlibHeader, Adler-32
// mismatch becomes ErrAdler32 (or io.EOF, if the Reader was constructed
// with IgnoreAdlerMismatch), and an unexpected EOF mid-stream becomes
// ErrTruncated.
func (r *Reader) Read(p []byte) (int, error) {
	if r.zr == nil {
		zr, err := zlib.NewReader(r.src)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return 0, errors.WithStack(ErrTruncated)
			}
			return 0, errors.Wrap(ErrZlibHeader, err.Error())
		}
		r.zr = zr
	}
	n, err := r.zr.Read(p)
	if err != nil && err != io.EOF {
		if err == io.ErrUnexpectedEOF {
			return n, errors.WithStack(ErrTruncated)
		}
		if isAdlerError(err) {
			if r.ignoreAdlerMismatch {
				return n, io.EOF
			}
			return n, errors.WithStack(ErrAdler32)
		}
		return n, errors.WithStack(err)
	}
	return n, err
}

func isAdlerError(err error) bool {
	return err != nil && (err.Error() == "zlib: invalid checksum" || err.Error() == "zlib: checksum error")
}

// SplitIDAT divides a compressed byte slice into chunks of at most max
// bytes each, per spec.md §4.3's IDAT-splitting rule. At least one
// chunk is always returned, even for empty data, per the "writer must
// emit at least one IDAT" invariant.
func SplitIDAT(data []byte, max int) [][]byte {
	if max <= 0 {
		max = DefaultMaxIDAT
	}
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var out [][]byte
	for len(data) > 0 {
		n := max
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
