// Package meta is the typed, validated in-memory representation of
// IHDR and every ancillary chunk spec.md §3 enumerates: the "Metadata
// store" component.
package meta

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ColorType is the PNG color_type field (spec.md §3).
type ColorType uint8

const (
	Gray      ColorType = 0
	RGB       ColorType = 2
	Palette   ColorType = 3
	GrayAlpha ColorType = 4
	RGBA      ColorType = 6
)

// Channels returns the sample count per pixel for c, excluding the
// index-vs-triple distinction palette mode has (a palette pixel is one
// index byte/nibble regardless of the palette's own channel count).
func (c ColorType) Channels() int {
	switch c {
	case Gray, Palette:
		return 1
	case GrayAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	default:
		return 0
	}
}

func (c ColorType) valid() bool {
	switch c {
	case Gray, RGB, Palette, GrayAlpha, RGBA:
		return true
	default:
		return false
	}
}

// allowedBitDepths returns the legal bit depths for c, per the table in
// spec.md §3.
func (c ColorType) allowedBitDepths() []uint8 {
	switch c {
	case Gray:
		return []uint8{1, 2, 4, 8, 16}
	case Palette:
		return []uint8{1, 2, 4, 8}
	case RGB, GrayAlpha, RGBA:
		return []uint8{8, 16}
	default:
		return nil
	}
}

var (
	ErrZeroDimension       = errors.New("png: zero width or height")
	ErrDimensionTooLarge   = errors.New("png: width or height exceeds 2^31-1")
	ErrDimensionOverflow   = errors.New("png: width*height overflows")
	ErrBadColorType        = errors.New("png: invalid color type")
	ErrBadBitDepth         = errors.New("png: bit depth not allowed for color type")
	ErrBadCompressionMeth  = errors.New("png: unsupported compression method")
	ErrBadFilterMethod     = errors.New("png: unsupported filter method")
	ErrBadInterlaceMethod  = errors.New("png: unsupported interlace method")
	ErrIHDRImmutableChange = errors.New("png: IHDR cannot be changed after it is set")
)

// InterlaceMethod is the IHDR interlace_method field.
type InterlaceMethod uint8

const (
	InterlaceNone  InterlaceMethod = 0
	InterlaceAdam7 InterlaceMethod = 1
)

// IHDR is the decoded image header chunk. It is immutable once attached
// to a Store (spec.md §3).
type IHDR struct {
	Width             uint32
	Height            uint32
	BitDepth          uint8
	ColorType         ColorType
	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   InterlaceMethod
}

// MaxDimension is the largest legal width or height (2^31-1).
const MaxDimension = 1<<31 - 1

// Validate checks every IHDR invariant from spec.md §3.
func (h IHDR) Validate() error {
	if h.Width == 0 || h.Height == 0 {
		return errors.WithStack(ErrZeroDimension)
	}
	if h.Width > MaxDimension || h.Height > MaxDimension {
		return errors.WithStack(ErrDimensionTooLarge)
	}
	if _, overflow := mulOverflowsInt64(uint64(h.Width), uint64(h.Height)); overflow {
		return errors.WithStack(ErrDimensionOverflow)
	}
	if !h.ColorType.valid() {
		return errors.WithStack(ErrBadColorType)
	}
	ok := false
	for _, d := range h.ColorType.allowedBitDepths() {
		if d == h.BitDepth {
			ok = true
			break
		}
	}
	if !ok {
		return errors.Wrapf(ErrBadBitDepth, "color type %d, bit depth %d", h.ColorType, h.BitDepth)
	}
	if h.CompressionMethod != 0 {
		return errors.WithStack(ErrBadCompressionMeth)
	}
	if h.FilterMethod != 0 {
		return errors.WithStack(ErrBadFilterMethod)
	}
	if h.InterlaceMethod != InterlaceNone && h.InterlaceMethod != InterlaceAdam7 {
		return errors.WithStack(ErrBadInterlaceMethod)
	}
	return nil
}

func mulOverflowsInt64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	p := a * b
	if p/a != b {
		return 0, true
	}
	return p, p > uint64(MaxDimension)*uint64(MaxDimension)
}

// SampleDepth is the bit depth at which each channel sample is stored;
// equal to BitDepth except for Palette, which always stores 8-bit RGB
// triples in PLTE regardless of the index bit depth.
func (h IHDR) SampleDepth() uint8 {
	if h.ColorType == Palette {
		return 8
	}
	return h.BitDepth
}

// RowBits returns the number of bits in one scanline, before byte
// rounding: width * channels * bit_depth, per spec.md §3.
func (h IHDR) RowBits() uint64 {
	return uint64(h.Width) * uint64(h.ColorType.Channels()) * uint64(h.BitDepth)
}

// RowBytes returns ceil(width*channels*bit_depth/8), the caller-visible
// row stride from spec.md §6.
func (h IHDR) RowBytes() int {
	return int((h.RowBits() + 7) / 8)
}

// BytesPerPixel returns max(1, ceil(channels*bit_depth/8)), the "bpp"
// distance used by the filter pipeline (spec.md §4.5).
func (h IHDR) BytesPerPixel() int {
	bits := h.ColorType.Channels() * int(h.BitDepth)
	bpp := (bits + 7) / 8
	if bpp < 1 {
		return 1
	}
	return bpp
}

// Encode serializes the 13-byte IHDR payload, per spec.md §6.
func (h IHDR) Encode() []byte {
	buf := make([]byte, 13)
	binary.BigEndian.PutUint32(buf[0:4], h.Width)
	binary.BigEndian.PutUint32(buf[4:8], h.Height)
	buf[8] = h.BitDepth
	buf[9] = uint8(h.ColorType)
	buf[10] = h.CompressionMethod
	buf[11] = h.FilterMethod
	buf[12] = uint8(h.InterlaceMethod)
	return buf
}

// DecodeIHDR parses the 13-byte IHDR payload and validates it,
// generalizing the teacher's IHDR.Parse in chunk.go from a raw struct
// fill to a validated decode.
func DecodeIHDR(data []byte) (IHDR, error) {
	if len(data) != 13 {
		return IHDR{}, errors.Errorf("png: IHDR length %d, want 13", len(data))
	}
	h := IHDR{
		Width:             binary.BigEndian.Uint32(data[0:4]),
		Height:            binary.BigEndian.Uint32(data[4:8]),
		BitDepth:          data[8],
		ColorType:         ColorType(data[9]),
		CompressionMethod: data[10],
		FilterMethod:      data[11],
		InterlaceMethod:   InterlaceMethod(data[12]),
	}
	if err := h.Validate(); err != nil {
		return IHDR{}, err
	}
	return h, nil
}
