package transform

import "github.com/xczero/pnglib/internal/interlace"

// RGBA8 is an 8-bit color used for palette and background arguments;
// A is only meaningful where the stage documents it.
type RGBA8 struct{ R, G, B, A uint8 }

func sample(row []byte, bitDepth, idx int) uint16    { return interlace.Sample(row, bitDepth, idx) }
func setSample(row []byte, bitDepth, idx int, v uint16) { interlace.SetSample(row, bitDepth, idx, v) }

// --- Palette expand -------------------------------------------------

type paletteExpand struct {
	bitDepth     int
	palette      []RGBA8
	includeAlpha bool
}

// NewPaletteExpand builds the "Palette expand" stage from spec.md §4.6:
// palette (+ tRNS already folded into palette[i].A by the caller) index
// bytes, at the index bit depth, expand to RGB or RGBA 8-bit samples.
func NewPaletteExpand(bitDepth int, palette []RGBA8, includeAlpha bool) Stage {
	return paletteExpand{bitDepth: bitDepth, palette: palette, includeAlpha: includeAlpha}
}

func (s paletteExpand) Name() string { return "palette-expand" }

func (s paletteExpand) channels() int {
	if s.includeAlpha {
		return 4
	}
	return 3
}

func (s paletteExpand) OutBytes(width int) int { return width * s.channels() }

func (s paletteExpand) Apply(dst, src []byte) {
	n := len(dst) / s.channels()
	for i := 0; i < n; i++ {
		idx := int(sample(src, s.bitDepth, i))
		// Out-of-range indices are rejected by the reader before a row
		// ever reaches this stage (readWireRow checks against
		// meta.Store.MaxPaletteIndex); palette[idx] is always valid here.
		c := s.palette[idx]
		o := i * s.channels()
		dst[o], dst[o+1], dst[o+2] = c.R, c.G, c.B
		if s.includeAlpha {
			dst[o+3] = c.A
		}
	}
}

// --- tRNS color-key to alpha -----------------------------------------

type trnsToAlpha struct {
	channels int // 1 (gray) or 3 (rgb), input channel count before this stage adds alpha
	bitDepth int
	key      []uint16 // len==channels
}

// NewTrnsToAlpha builds the "tRNS-to-alpha" stage: Gray/RGB + tRNS key
// -> GA/RGBA, alpha 0 where the pixel equals key, else the max value
// for bitDepth (spec.md §4.6).
func NewTrnsToAlpha(channels, bitDepth int, key []uint16) Stage {
	return trnsToAlpha{channels: channels, bitDepth: bitDepth, key: key}
}

func (s trnsToAlpha) Name() string              { return "trns-to-alpha" }
func (s trnsToAlpha) OutBytes(width int) int    { return width * (s.channels + 1) }

func (s trnsToAlpha) Apply(dst, src []byte) {
	n := len(dst) / (s.channels + 1)
	maxVal := uint16(1)<<s.bitDepth - 1
	for i := 0; i < n; i++ {
		match := true
		for c := 0; c < s.channels; c++ {
			v := sample(src, s.bitDepth, i*s.channels+c)
			setSample(dst, s.bitDepth, i*(s.channels+1)+c, v)
			if v != s.key[c] {
				match = false
			}
		}
		alpha := maxVal
		if match {
			alpha = 0
		}
		setSample(dst, s.bitDepth, i*(s.channels+1)+s.channels, alpha)
	}
}

// --- Bit-depth expand (sub-8-bit gray -> 8-bit) ----------------------

type bitExpand struct {
	bitDepth int
	channels int // samples per pixel carried through this stage (e.g. 2 for gray+alpha after tRNS)
}

// NewBitExpand builds the "Bit-depth expand" stage: 1/2/4-bit samples
// replicated to fill 8 bits, per spec.md §4.6. channels accounts for
// any channel the pipeline has already added ahead of this stage (the
// tRNS-to-alpha stage, in particular, still packs its alpha channel at
// the pre-expand bit depth, so bit-expand must widen every channel).
func NewBitExpand(bitDepth, channels int) Stage { return bitExpand{bitDepth: bitDepth, channels: channels} }

func (s bitExpand) Name() string           { return "bit-expand" }
func (s bitExpand) OutBytes(width int) int { return width * s.channels }

func (s bitExpand) Apply(dst, src []byte) {
	maxIn := uint16(1)<<s.bitDepth - 1
	for i := range dst {
		v := sample(src, s.bitDepth, i)
		dst[i] = replicate(uint8(v), s.bitDepth, maxIn)
	}
}

// replicate spreads a sub-8-bit sample v across a full byte by bit
// replication, the standard PNG expand rule (e.g. a 1-bit sample of 1
// becomes 0xff, a 2-bit sample of 2/3 becomes 0xaa/0xff).
func replicate(v uint8, bitDepth int, maxIn uint16) uint8 {
	if maxIn == 0 {
		return 0
	}
	return uint8((uint32(v) * 255) / uint32(maxIn))
}

// --- Gray <-> RGB ------------------------------------------------------

type grayToRGB struct{ bitDepth int; alpha bool }

// NewGrayToRGB replicates gray into R=G=B, per spec.md §4.6. alpha
// indicates the row also carries a trailing alpha channel that must be
// passed through unchanged.
func NewGrayToRGB(bitDepth int, alpha bool) Stage { return grayToRGB{bitDepth: bitDepth, alpha: alpha} }

func (s grayToRGB) Name() string { return "gray-to-rgb" }
func (s grayToRGB) inChannels() int {
	if s.alpha {
		return 2
	}
	return 1
}
func (s grayToRGB) outChannels() int {
	if s.alpha {
		return 4
	}
	return 3
}
func (s grayToRGB) OutBytes(width int) int {
	return width * s.outChannels() * bytesPerSample(s.bitDepth)
}

func bytesPerSample(bitDepth int) int {
	if bitDepth == 16 {
		return 2
	}
	return 1
}

func (s grayToRGB) Apply(dst, src []byte) {
	bps := bytesPerSample(s.bitDepth)
	n := len(src) / (s.inChannels() * bps)
	for i := 0; i < n; i++ {
		g := sample(src, s.bitDepth, i*s.inChannels())
		o := i * s.outChannels()
		setSample(dst, s.bitDepth, o, g)
		setSample(dst, s.bitDepth, o+1, g)
		setSample(dst, s.bitDepth, o+2, g)
		if s.alpha {
			a := sample(src, s.bitDepth, i*s.inChannels()+1)
			setSample(dst, s.bitDepth, o+3, a)
		}
	}
}

// RGBToGrayErrorAction controls what happens when an RGB triple is not
// exactly representable as a single gray value under the weighted
// conversion (spec.md §4.6 "configurable error action").
type RGBToGrayErrorAction int

const (
	RGBToGrayIgnore RGBToGrayErrorAction = iota
	RGBToGrayWarn
	RGBToGrayError
)

type rgbToGray struct {
	bitDepth int
	alpha    bool
	action   RGBToGrayErrorAction
	inexact  *bool // set true if any pixel required rounding, for the caller's warn/error decision
}

// NewRGBToGray builds the "RGB→Gray" stage using the exact weights from
// spec.md §4.6: Y = round(0.21268 R + 0.71514 G + 0.07218 B).
func NewRGBToGray(bitDepth int, alpha bool, action RGBToGrayErrorAction, inexact *bool) Stage {
	return rgbToGray{bitDepth: bitDepth, alpha: alpha, action: action, inexact: inexact}
}

func (s rgbToGray) Name() string { return "rgb-to-gray" }
func (s rgbToGray) inChannels() int {
	if s.alpha {
		return 4
	}
	return 3
}
func (s rgbToGray) outChannels() int {
	if s.alpha {
		return 2
	}
	return 1
}
func (s rgbToGray) OutBytes(width int) int { return width * s.outChannels() }

func (s rgbToGray) Apply(dst, src []byte) {
	n := len(dst) / s.outChannels()
	for i := 0; i < n; i++ {
		r := float64(sample(src, s.bitDepth, i*s.inChannels()))
		g := float64(sample(src, s.bitDepth, i*s.inChannels()+1))
		b := float64(sample(src, s.bitDepth, i*s.inChannels()+2))
		if r != g || g != b {
			if s.inexact != nil {
				*s.inexact = true
			}
		}
		y := 0.21268*r + 0.71514*g + 0.07218*b
		gray := uint16(y + 0.5)
		o := i * s.outChannels()
		setSample(dst, s.bitDepth, o, gray)
		if s.alpha {
			a := sample(src, s.bitDepth, i*s.inChannels()+3)
			setSample(dst, s.bitDepth, o+1, a)
		}
	}
}

// --- 16-bit <-> 8-bit -------------------------------------------------

type strip16 struct{ channels int }

// NewStrip16 discards the low byte of each 16-bit sample, per spec.md
// §4.6 "16→8 strip".
func NewStrip16(channels int) Stage { return strip16{channels: channels} }

func (s strip16) Name() string           { return "16-to-8-strip" }
func (s strip16) OutBytes(width int) int { return width * s.channels }
func (s strip16) Apply(dst, src []byte) {
	for i := range dst {
		dst[i] = src[i*2]
	}
}

type scale16 struct{ channels int }

// NewScale16 rescales 16-bit samples to 8-bit with rounding,
// (x*255+32895)>>16, per spec.md §4.6 "16→8 scale".
func NewScale16(channels int) Stage { return scale16{channels: channels} }

func (s scale16) Name() string           { return "16-to-8-scale" }
func (s scale16) OutBytes(width int) int { return width * s.channels }
func (s scale16) Apply(dst, src []byte) {
	for i := range dst {
		x := uint32(src[i*2])<<8 | uint32(src[i*2+1])
		dst[i] = uint8((x*255 + 32895) >> 16)
	}
}

// --- Pack / unpack -----------------------------------------------------

type unpack struct {
	bitDepth int
	channels int
}

// NewUnpack expands packed sub-8-bit samples into one byte per sample
// (without bit replication — the raw value, left-justified at 0), the
// precursor most other stages operate on. Used on write to go from a
// caller's unpacked 8-bit buffer back down is the pack stage below;
// this one is used on read before palette/gray processing when the
// pipeline needs per-sample addressability at 8-bit granularity.
func NewUnpack(bitDepth, channels int) Stage { return unpack{bitDepth: bitDepth, channels: channels} }

func (s unpack) Name() string           { return "unpack" }
func (s unpack) OutBytes(width int) int { return width * s.channels }
func (s unpack) Apply(dst, src []byte) {
	for i := range dst {
		dst[i] = uint8(sample(src, s.bitDepth, i))
	}
}

type pack struct {
	bitDepth int
	channels int
}

// NewPack packs one-byte-per-sample rows down into bitDepth-wide
// samples (1/2/4 bits), per spec.md §4.6 "Pack / Unpack".
func NewPack(bitDepth, channels int) Stage { return pack{bitDepth: bitDepth, channels: channels} }

func (s pack) Name() string { return "pack" }
func (s pack) OutBytes(width int) int {
	bits := width * s.channels * s.bitDepth
	return (bits + 7) / 8
}
func (s pack) Apply(dst, src []byte) {
	for i := range dst {
		dst[i] = 0
	}
	for i, v := range src {
		setSample(dst, s.bitDepth, i, uint16(v))
	}
}

// --- Channel swap / filler / invert -------------------------------------

type channelSwap struct {
	channels int
	bitDepth int
	kind     swapKind
}

type swapKind int

const (
	SwapBGR swapKind = iota
	SwapAlphaFirst
	SwapAlphaLast
	SwapByteOrder16
)

// NewChannelSwap builds one of the BGR/alpha-position/16-bit-byte-swap
// stages from spec.md §4.6.
func NewChannelSwap(channels, bitDepth int, kind swapKind) Stage {
	return channelSwap{channels: channels, bitDepth: bitDepth, kind: kind}
}

func (s channelSwap) Name() string           { return "channel-swap" }
func (s channelSwap) OutBytes(width int) int { return width * s.channels * bytesPerSample(s.bitDepth) }

func (s channelSwap) Apply(dst, src []byte) {
	bps := bytesPerSample(s.bitDepth)
	copy(dst, src)
	n := len(src) / (s.channels * bps)
	switch s.kind {
	case SwapBGR:
		for i := 0; i < n; i++ {
			o := i * s.channels
			swapSample(dst, s.bitDepth, o, o+2)
		}
	case SwapAlphaFirst:
		for i := 0; i < n; i++ {
			o := i * s.channels
			last := o + s.channels - 1
			rotateRight(dst, s.bitDepth, o, last)
		}
	case SwapAlphaLast:
		for i := 0; i < n; i++ {
			o := i * s.channels
			last := o + s.channels - 1
			rotateLeft(dst, s.bitDepth, o, last)
		}
	case SwapByteOrder16:
		for i := 0; i+1 < len(dst); i += 2 {
			dst[i], dst[i+1] = dst[i+1], dst[i]
		}
	}
}

func swapSample(row []byte, bitDepth, a, b int) {
	va, vb := sample(row, bitDepth, a), sample(row, bitDepth, b)
	setSample(row, bitDepth, a, vb)
	setSample(row, bitDepth, b, va)
}

func rotateRight(row []byte, bitDepth, first, last int) {
	vLast := sample(row, bitDepth, last)
	for i := last; i > first; i-- {
		setSample(row, bitDepth, i, sample(row, bitDepth, i-1))
	}
	setSample(row, bitDepth, first, vLast)
}

func rotateLeft(row []byte, bitDepth, first, last int) {
	vFirst := sample(row, bitDepth, first)
	for i := first; i < last; i++ {
		setSample(row, bitDepth, i, sample(row, bitDepth, i+1))
	}
	setSample(row, bitDepth, last, vFirst)
}

type filler struct {
	channels int // input channel count (without filler)
	bitDepth int
	value    uint16
	atEnd    bool
	strip    bool // true = remove a filler channel instead of inserting one
}

// NewFiller builds the "Filler" stage from spec.md §4.6: insert or
// strip an extra channel at the alpha position to emulate RGBA/BGRA
// layout without a real alpha channel.
func NewFiller(channels, bitDepth int, value uint16, atEnd, strip bool) Stage {
	return filler{channels: channels, bitDepth: bitDepth, value: value, atEnd: atEnd, strip: strip}
}

func (s filler) Name() string { return "filler" }

func (s filler) OutBytes(width int) int {
	out := s.channels
	if s.strip {
		out--
	} else {
		out++
	}
	return width * out * bytesPerSample(s.bitDepth)
}

func (s filler) Apply(dst, src []byte) {
	bps := bytesPerSample(s.bitDepth)
	inCh := s.channels
	outCh := inCh + 1
	if s.strip {
		outCh = inCh - 1
		inCh = s.channels
	}
	n := len(src) / (inCh * bps)
	for i := 0; i < n; i++ {
		in := i * inCh
		out := i * outCh
		if s.strip {
			if s.atEnd {
				for c := 0; c < outCh; c++ {
					setSample(dst, s.bitDepth, out+c, sample(src, s.bitDepth, in+c))
				}
			} else {
				for c := 0; c < outCh; c++ {
					setSample(dst, s.bitDepth, out+c, sample(src, s.bitDepth, in+1+c))
				}
			}
			continue
		}
		if s.atEnd {
			for c := 0; c < inCh; c++ {
				setSample(dst, s.bitDepth, out+c, sample(src, s.bitDepth, in+c))
			}
			setSample(dst, s.bitDepth, out+inCh, s.value)
		} else {
			setSample(dst, s.bitDepth, out, s.value)
			for c := 0; c < inCh; c++ {
				setSample(dst, s.bitDepth, out+1+c, sample(src, s.bitDepth, in+c))
			}
		}
	}
}

type invert struct {
	channels  int
	bitDepth  int
	channelIx int // which channel to invert (alpha index, or 0 for mono-all)
	allMono   bool
}

// NewInvertAlpha inverts just the alpha channel (subtract from max),
// per spec.md §4.6 "Invert alpha".
func NewInvertAlpha(channels, bitDepth, alphaIndex int) Stage {
	return invert{channels: channels, bitDepth: bitDepth, channelIx: alphaIndex}
}

// NewInvertMono inverts every sample of a single-channel (gray or
// palette-index) row, per spec.md §4.6 "invert mono".
func NewInvertMono(bitDepth int) Stage {
	return invert{channels: 1, bitDepth: bitDepth, allMono: true}
}

func (s invert) Name() string           { return "invert" }
func (s invert) OutBytes(width int) int { return width * s.channels * bytesPerSample(s.bitDepth) }
func (s invert) Apply(dst, src []byte) {
	copy(dst, src)
	maxVal := uint16(1)<<s.bitDepth - 1
	n := len(dst) / (s.channels * bytesPerSample(s.bitDepth))
	if s.allMono {
		for i := 0; i < n*s.channels; i++ {
			setSample(dst, s.bitDepth, i, maxVal-sample(dst, s.bitDepth, i))
		}
		return
	}
	for i := 0; i < n; i++ {
		idx := i*s.channels + s.channelIx
		setSample(dst, s.bitDepth, idx, maxVal-sample(dst, s.bitDepth, idx))
	}
}

// fuseAdjacent collapses a bit-depth-expand stage immediately followed
// by a gamma stage into a single combined LUT pass, per spec.md §4.6's
// "pre-composes them into a single LUT pass where possible". Any other
// adjacency is left as-is; this is a narrow, documented fusion rather
// than a general stage optimizer.
func fuseAdjacent(stages []Tagged) []Tagged {
	out := make([]Tagged, 0, len(stages))
	for i := 0; i < len(stages); i++ {
		if i+1 < len(stages) {
			if be, ok := stages[i].Stage.(bitExpand); ok {
				if g, ok2 := stages[i+1].Stage.(gammaStage); ok2 && be.channels == g.channels && !g.hasAlpha {
					out = append(out, Tagged{Stage: fuseBitExpandGamma(be, g), rank: RankGamma})
					i++
					continue
				}
			}
		}
		out = append(out, stages[i])
	}
	return out
}
