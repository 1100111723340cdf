package pnglib

import (
	"github.com/pkg/errors"

	"github.com/xczero/pnglib/internal/chunk"
	"github.com/xczero/pnglib/internal/deflate"
	"github.com/xczero/pnglib/internal/filter"
	"github.com/xczero/pnglib/internal/meta"
)

// Signature/format errors, per spec.md §7.
var (
	ErrBadSignature    = chunk.ErrBadSignature
	ErrAsciiTranslated = chunk.ErrAsciiTranslated
)

// Chunk-structure errors.
var (
	ErrBadCRC            = chunk.ErrBadCRC
	ErrChunkTooLarge     = chunk.ErrChunkTooLarge
	ErrInvalidTypeBytes  = chunk.ErrInvalidTypeBytes
	ErrChunkOrder        = chunk.ErrChunkOrder
	ErrDuplicateIHDR     = chunk.ErrDuplicateIHDR
	ErrDuplicatePLTE     = chunk.ErrDuplicatePLTE
	ErrDuplicateIEND     = chunk.ErrDuplicateIEND
	ErrUnknownCritical   = chunk.ErrUnknownCritical
	ErrIDATNotContiguous = chunk.ErrIDATNotContiguous
)

// Semantic errors.
var (
	ErrZeroDimension     = meta.ErrZeroDimension
	ErrDimensionTooLarge = meta.ErrDimensionTooLarge
	ErrDimensionOverflow = meta.ErrDimensionOverflow
	ErrBadColorType      = meta.ErrBadColorType
	ErrBadBitDepth       = meta.ErrBadBitDepth
	ErrPaletteRequired   = meta.ErrPaletteRequired
	ErrPaletteForbidden  = meta.ErrPaletteForbidden
	ErrPaletteTooLarge   = meta.ErrPaletteTooLarge
	ErrPaletteOverflows  = meta.ErrPaletteOverflows
	ErrTrnsForbidden     = meta.ErrTrnsForbidden
	ErrTrnsTooManyAlpha  = meta.ErrTrnsTooManyAlpha
	ErrSrgbIccpConflict  = meta.ErrSrgbIccpConflict
)

// DEFLATE errors.
var (
	ErrZlibHeader = deflate.ErrZlibHeader
	ErrAdler32    = deflate.ErrAdler32
	ErrTruncated  = deflate.ErrTruncated
	ErrExtraData  = deflate.ErrExtraData
)

// Filter errors.
var ErrUnknownFilter = filter.ErrUnknownFilter

// Resource and user errors, defined at this layer (spec.md §7):
// "row overflow", "row count exceeded", "transform conflicts",
// "simplified-API format not supported".
var (
	ErrRowOverflow        = errors.New("png: row buffer is the wrong size")
	ErrRowCountExceeded   = errors.New("png: more rows written than IHDR height declares")
	ErrTransformConflict  = errors.New("png: requested transforms are mutually exclusive")
	ErrUnsupportedFormat  = errors.New("png: simplified-API format not supported")
	ErrPalettePixelBounds = errors.New("png: palette index exceeds declared palette length")
	ErrStreamClosed          = errors.New("png: stream already closed")
	ErrIHDRNotSet            = errors.New("png: IHDR has not been set")
	ErrPreIHDRData           = errors.New("png: caller-injected data before IHDR is not permitted")
	ErrInterlaceRequiresImage = errors.New("png: an Adam7 stream must be written with WriteImage, not row by row")
	ErrInfoNotWritten        = errors.New("png: WriteInfo has not been called")
)

// ErrIHDRImmutableChange is returned by SetIHDR when called more than
// once on the same Writer (spec.md §3: "Immutable after it is set").
var ErrIHDRImmutableChange = meta.ErrIHDRImmutableChange
