package pnglib

import (
	"github.com/xczero/pnglib/internal/chunk"
	"github.com/xczero/pnglib/internal/deflate"
	"github.com/xczero/pnglib/internal/filter"
)

// WarnFunc receives non-fatal warnings (duplicate single-instance
// ancillary chunks, ignorable Adler-32 mismatches, and the like), per
// spec.md §4.7's separate warning path. The default, if none is
// supplied, logs via log.Printf.
type WarnFunc func(error)

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*Reader)

// WithCRCAction overrides the default CRCError behavior for chunk
// CRC-32 mismatches (spec.md §4.1).
func WithCRCAction(action chunk.CRCAction) ReaderOption {
	return func(r *Reader) { r.crcAction = action }
}

// WithSigBytesRead tells the Reader that the caller has already
// consumed the first n bytes of the 8-byte PNG signature externally
// (spec.md §4.1's "pre-consumed" signature support).
func WithSigBytesRead(n int) ReaderOption {
	return func(r *Reader) { r.sigBytesRead = n }
}

// WithAllowedUnknownCritical whitelists unknown critical chunk types
// that would otherwise be fatal (spec.md §4.2).
func WithAllowedUnknownCritical(types ...string) ReaderOption {
	return func(r *Reader) {
		for _, s := range types {
			r.allowedUnknownCritical = append(r.allowedUnknownCritical, chunk.TypeOf(s))
		}
	}
}

// WithKeepUnknownChunks retains unknown chunk payloads in the returned
// Store (tagged by read location) instead of discarding them, for
// write-through (spec.md §3).
func WithKeepUnknownChunks() ReaderOption {
	return func(r *Reader) { r.keepUnknown = true }
}

// WithReaderWarnFunc installs a callback for non-fatal read warnings.
func WithReaderWarnFunc(fn WarnFunc) ReaderOption {
	return func(r *Reader) { r.warn = fn }
}

// WithBenignErrors downgrades an unknown critical chunk from a fatal
// error to a warning, and reading continues past it (spec.md §4.7's
// benign-error mode). Every other error, out-of-range ancillary values
// included, stays fatal.
func WithBenignErrors() ReaderOption {
	return func(r *Reader) { r.benign = true }
}

// WithIgnoreAdlerMismatch downgrades a trailing zlib Adler-32 checksum
// mismatch from ErrAdler32 to a clean end-of-stream, for known
// pathological encoders that emit a wrong or truncated checksum
// (spec.md §4.3).
func WithIgnoreAdlerMismatch() ReaderOption {
	return func(r *Reader) { r.ignoreAdlerMismatch = true }
}

// WithInterlaceMode selects sparkle vs. block row combination for
// library-driven Adam7 de-interlacing (spec.md §4.4). The default is
// Sparkle.
func WithInterlaceMode(mode InterlaceCombineMode) ReaderOption {
	return func(r *Reader) { r.combineMode = mode }
}

// Transform declares one pixel-transform the Reader applies between
// the wire pixel format and the rows ReadRow/ReadImage deliver,
// mirroring spec.md §4.6's "optional set_* transform declarations".
// Declare transforms in any order; ReadInfo resolves them into a
// validated transform.Pipeline once IHDR is known.
type Transform int

const (
	// TransformExpand expands palette, sub-8-bit gray, and tRNS color
	// keys to 8-bit-or-wider Gray/GA/RGB/RGBA samples.
	TransformExpand Transform = iota
	// TransformStripAlpha removes the alpha channel after composing it
	// against a background (requires WithBackground).
	TransformStripAlpha
	// TransformGrayToRGB replicates a gray sample into R=G=B.
	TransformGrayToRGB
	// TransformRGBToGray applies the weighted RGB->Gray reduction.
	TransformRGBToGray
	// TransformStrip16 discards the low byte of 16-bit samples.
	TransformStrip16
	// TransformScale16 rescales 16-bit samples to 8-bit with rounding.
	TransformScale16
	// TransformSwapBGR exchanges the red and blue channels.
	TransformSwapBGR
	// TransformInvertAlpha subtracts the alpha channel from its max.
	TransformInvertAlpha
)

// WithTransform declares one or more Transform stages.
func WithTransform(ts ...Transform) ReaderOption {
	return func(r *Reader) { r.transforms = append(r.transforms, ts...) }
}

// WithBackground supplies the background color TransformStripAlpha
// composes against, in the pre-transform sample bit depth (spec.md
// §4.6's "Background compose").
func WithBackground(channels []uint16) ReaderOption {
	return func(r *Reader) { r.background = channels }
}

// WithScreenGamma requests gamma correction to the given display
// gamma, combined with the file's gAMA chunk (or a file gamma of 1/2.2
// if absent) per spec.md §4.6's `out = in^(γf·γs)` contract. When the
// combined exponent is within transform.GammaThreshold of 1.0, no gamma
// stage is added.
func WithScreenGamma(screenGamma float64) ReaderOption {
	return func(r *Reader) { r.screenGamma = screenGamma; r.haveScreenGamma = true }
}

// InterlaceCombineMode selects how library-driven de-interlacing
// merges a decoded pass row into the full-width output row.
type InterlaceCombineMode int

const (
	CombineSparkle InterlaceCombineMode = iota
	CombineBlock
)

// WriterOption configures a Writer at construction time.
type WriterOption func(*Writer)

// WithCompression overrides the DEFLATE adapter's default options
// (level, strategy, window, max IDAT size) from spec.md §4.3.
func WithCompression(opt deflate.Options) WriterOption {
	return func(w *Writer) { w.deflateOpts = opt }
}

// WithFilterMask restricts the write-side filter heuristic to the
// given subset of {None,Sub,Up,Avg,Paeth}, per spec.md §4.5.
func WithFilterMask(mask filter.Mask) WriterOption {
	return func(w *Writer) { w.filterMask = mask }
}

// WithFastFilter forces filter=None for every scanline, skipping the
// selection heuristic, per spec.md §4.5's "fast" mode.
func WithFastFilter() WriterOption {
	return func(w *Writer) { w.fastFilter = true }
}

// WithMaxIDATSize overrides the default 8192-byte IDAT chunk size
// ceiling (spec.md §4.3).
func WithMaxIDATSize(n int) WriterOption {
	return func(w *Writer) { w.deflateOpts.MaxIDATSize = n }
}

// WithWriterWarnFunc installs a callback for non-fatal write warnings.
func WithWriterWarnFunc(fn WarnFunc) WriterOption {
	return func(w *Writer) { w.warn = fn }
}

// WithKeepUnknownChunksOnWrite re-emits unknown chunks carried over
// from a Store built by a Reader with WithKeepUnknownChunks, at the
// same before-PLTE/before-IDAT/after-IDAT slot they were read from.
func WithKeepUnknownChunksOnWrite() WriterOption {
	return func(w *Writer) { w.writeUnknown = true }
}
