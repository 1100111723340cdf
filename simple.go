package pnglib

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/xczero/pnglib/internal/chunk"
	"github.com/xczero/pnglib/internal/interlace"
	"github.com/xczero/pnglib/internal/meta"
)

// Layout is one of the channel orderings the simplified one-shot API
// works with, per spec.md §4.6.
type Layout int

const (
	LayoutGray Layout = iota
	LayoutGrayAlpha
	LayoutAlphaGray
	LayoutRGB
	LayoutBGR
	LayoutRGBA
	LayoutARGB
	LayoutBGRA
	LayoutABGR
)

func (l Layout) isGray() bool {
	return l == LayoutGray || l == LayoutGrayAlpha || l == LayoutAlphaGray
}

func (l Layout) hasAlpha() bool {
	switch l {
	case LayoutGrayAlpha, LayoutAlphaGray, LayoutRGBA, LayoutARGB, LayoutBGRA, LayoutABGR:
		return true
	}
	return false
}

func (l Layout) alphaFirst() bool {
	return l == LayoutAlphaGray || l == LayoutARGB || l == LayoutABGR
}

func (l Layout) isBGR() bool {
	return l == LayoutBGR || l == LayoutBGRA || l == LayoutABGR
}

// Format pins down a Layout, a sample bit depth (8 or 16), and whether
// the buffer is indexed (colormap) rather than direct color, the
// closed set the simplified API accepts (spec.md §4.6).
type Format struct {
	Layout   Layout
	BitDepth int
	Colormap bool
}

// RGB8 is one colormap entry for a Colormap Image.
type RGB8 struct{ R, G, B uint8 }

// Image is the simplified API's in-memory pixel buffer. Pixels holds
// Height rows of Width samples-per-pixel, packed MSB-first with no row
// padding; 16-bit samples are big-endian. Palette is populated only
// when Format.Colormap is true, in which case Pixels holds one index
// byte per pixel.
type Image struct {
	Format        Format
	Width, Height int
	Pixels        []byte
	Palette       []RGB8
}

type decodeConfig struct {
	background []uint16
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

// WithDecodeBackground supplies the color composed under a source
// image's alpha channel when the requested Format has none, in the
// color channels' own pre-transform bit depth. Without it, Decode
// composes against opaque white.
func WithDecodeBackground(channels []uint16) DecodeOption {
	return func(c *decodeConfig) { c.background = channels }
}

type encodeConfig struct {
	premultiplied  bool
	outputBitDepth int
	interlace      bool
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeConfig)

// WithPremultipliedAlpha tells Encode that img's color samples are
// already multiplied by their alpha sample, so that a 16-to-8-bit
// depth reduction (via WithOutputBitDepth) un-premultiplies instead of
// simply rescaling (spec.md §4.6's S6 scenario).
func WithPremultipliedAlpha() EncodeOption {
	return func(c *encodeConfig) { c.premultiplied = true }
}

// WithOutputBitDepth writes the PNG at a bit depth other than img's
// own (only 16-to-8 reduction is supported).
func WithOutputBitDepth(n int) EncodeOption {
	return func(c *encodeConfig) { c.outputBitDepth = n }
}

// WithEncodeInterlace writes the image Adam7-interlaced.
func WithEncodeInterlace() EncodeOption {
	return func(c *encodeConfig) { c.interlace = true }
}

func bytesPerSampleLocal(bitDepth int) int {
	if bitDepth == 16 {
		return 2
	}
	return 1
}

// peekIHDR reads the bit depth and color type directly out of the
// buffered stream's leading IHDR chunk, before a Reader is built, so
// that background defaults can be expressed in the pipeline's actual
// pre-transform sample depth.
func peekIHDR(data []byte) (bitDepth, colorType uint8, err error) {
	if len(data) < len(chunk.Signature)+8+13 || !bytes.Equal(data[:len(chunk.Signature)], chunk.Signature[:]) {
		return 0, 0, errors.WithStack(ErrBadSignature)
	}
	if !bytes.Equal(data[12:16], chunk.IHDR[:]) {
		return 0, 0, errors.WithStack(chunk.ErrChunkOrder)
	}
	return data[24], data[25], nil
}

// backgroundBitDepth is the sample bit depth in effect when the
// background-compose transform runs: Gray sub-8-bit and Palette
// samples have already been expanded to 8-bit by that point.
func backgroundBitDepth(bitDepth, colorType uint8) int {
	if colorType == uint8(meta.Palette) {
		return 8
	}
	if colorType == uint8(meta.Gray) && bitDepth < 8 {
		return 8
	}
	return int(bitDepth)
}

func scale16to8(v uint16) uint8 {
	return uint8((uint32(v)*255 + 32895) >> 16)
}

// unpremultiplyChannel reverses alpha premultiplication while
// reducing a 16-bit linear sample to 8-bit, per spec.md §4.6's
// UNP_RECIPROCAL formula. A source alpha below half intensity is
// treated as the fully-transparent special case: the color channel is
// passed through the ordinary 16-to-8 scale rather than divided by a
// near-zero alpha.
func unpremultiplyChannel(channel16, alpha16 uint16) uint8 {
	if scale16to8(alpha16) < 128 {
		return scale16to8(channel16)
	}
	recip := (uint64(0xffff)*0xff<<7 + uint64(alpha16)/2) / uint64(alpha16)
	v := (uint64(channel16)*recip + 1<<22) >> 23
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Decode reads a complete PNG stream and delivers it in the requested
// Format, composing, reducing, and reordering channels as needed.
func Decode(r io.Reader, format Format, opts ...DecodeOption) (*Image, error) {
	cfg := &decodeConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if format.BitDepth != 8 && format.BitDepth != 16 {
		return nil, errors.WithStack(ErrUnsupportedFormat)
	}

	all, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if format.Colormap {
		return decodeColormap(all, format)
	}

	srcBitDepth, srcColorType, err := peekIHDR(all)
	if err != nil {
		return nil, err
	}
	bgBitDepth := backgroundBitDepth(srcBitDepth, srcColorType)

	layout := format.Layout
	colorChannels := 3
	if layout.isGray() {
		colorChannels = 1
	}
	wantAlpha := layout.hasAlpha()

	readerOpts := []ReaderOption{WithTransform(TransformExpand)}
	if layout.isGray() {
		readerOpts = append(readerOpts, WithTransform(TransformRGBToGray))
	} else {
		readerOpts = append(readerOpts, WithTransform(TransformGrayToRGB))
	}
	if !wantAlpha {
		bg := cfg.background
		if len(bg) == 0 {
			maxVal := uint16(1)<<uint(bgBitDepth) - 1
			bg = make([]uint16, colorChannels)
			for i := range bg {
				bg[i] = maxVal
			}
		}
		readerOpts = append(readerOpts, WithTransform(TransformStripAlpha), WithBackground(bg))
	}
	if format.BitDepth == 8 {
		readerOpts = append(readerOpts, WithTransform(TransformScale16))
	}
	if layout.isBGR() {
		readerOpts = append(readerOpts, WithTransform(TransformSwapBGR))
	}

	rd := NewReader(bytes.NewReader(all), readerOpts...)
	info, err := rd.ReadInfo()
	if err != nil {
		return nil, err
	}
	rows, err := rd.ReadImage()
	if err != nil {
		return nil, err
	}
	if _, err := rd.ReadEnd(); err != nil {
		return nil, err
	}

	width, height := int(info.IHDR.Width), int(info.IHDR.Height)
	pipelineChannels := rd.OutChannels()
	pipelineBitDepth := rd.OutBitDepth()
	pipelineHasAlpha := pipelineChannels == colorChannels+1

	samplesPerPixel := colorChannels
	if wantAlpha {
		samplesPerPixel++
	}
	out := make([]byte, width*height*samplesPerPixel*bytesPerSampleLocal(format.BitDepth))
	stride := width * samplesPerPixel * bytesPerSampleLocal(format.BitDepth)
	maxOut := uint16(1)<<uint(format.BitDepth) - 1

	for y, row := range rows {
		dst := out[y*stride : (y+1)*stride]
		for x := 0; x < width; x++ {
			vals := make([]uint16, samplesPerPixel)
			for c := 0; c < colorChannels; c++ {
				v := interlace.Sample(row, pipelineBitDepth, x*pipelineChannels+c)
				vals[c] = upscaleSample(v, pipelineBitDepth, format.BitDepth)
			}
			if wantAlpha {
				var a uint16
				if pipelineHasAlpha {
					a = interlace.Sample(row, pipelineBitDepth, x*pipelineChannels+colorChannels)
					a = upscaleSample(a, pipelineBitDepth, format.BitDepth)
				} else {
					a = maxOut
				}
				vals[colorChannels] = a
			}
			if wantAlpha && layout.alphaFirst() {
				last := vals[len(vals)-1]
				copy(vals[1:], vals[:len(vals)-1])
				vals[0] = last
			}
			for c, v := range vals {
				interlace.SetSample(dst, format.BitDepth, x*samplesPerPixel+c, v)
			}
		}
	}

	return &Image{Format: format, Width: width, Height: height, Pixels: out}, nil
}

func upscaleSample(v uint16, from, to int) uint16 {
	switch {
	case from == to:
		return v
	case from == 8 && to == 16:
		return v<<8 | v
	case from == 16 && to == 8:
		return uint16(scale16to8(v))
	default:
		return v
	}
}

func decodeColormap(all []byte, format Format) (*Image, error) {
	if format.BitDepth != 8 {
		return nil, errors.WithStack(ErrUnsupportedFormat)
	}
	rd := NewReader(bytes.NewReader(all))
	info, err := rd.ReadInfo()
	if err != nil {
		return nil, err
	}
	if info.IHDR.ColorType != meta.Palette {
		return nil, errors.WithStack(ErrUnsupportedFormat)
	}
	rows, err := rd.ReadImage()
	if err != nil {
		return nil, err
	}
	if _, err := rd.ReadEnd(); err != nil {
		return nil, err
	}

	width, height := int(info.IHDR.Width), int(info.IHDR.Height)
	pixels := make([]byte, width*height)
	for y, row := range rows {
		for x := 0; x < width; x++ {
			pixels[y*width+x] = byte(interlace.Sample(row, int(info.IHDR.BitDepth), x))
		}
	}
	var palette []RGB8
	if info.Palette != nil {
		palette = make([]RGB8, len(info.Palette.Entries))
		for i, e := range info.Palette.Entries {
			palette[i] = RGB8{R: e.R, G: e.G, B: e.B}
		}
	}
	return &Image{Format: format, Width: width, Height: height, Pixels: pixels, Palette: palette}, nil
}

// Encode writes img as a complete PNG stream in the given Format.
func Encode(w io.Writer, img *Image, format Format, opts ...EncodeOption) error {
	cfg := &encodeConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if format.BitDepth != 8 && format.BitDepth != 16 {
		return errors.WithStack(ErrUnsupportedFormat)
	}
	outBitDepth := format.BitDepth
	if cfg.outputBitDepth != 0 {
		if cfg.outputBitDepth != 8 && cfg.outputBitDepth != 16 {
			return errors.WithStack(ErrUnsupportedFormat)
		}
		if cfg.outputBitDepth > format.BitDepth {
			return errors.WithStack(ErrUnsupportedFormat)
		}
		outBitDepth = cfg.outputBitDepth
	}

	if format.Colormap {
		return encodeColormap(w, img, format)
	}

	layout := format.Layout
	colorChannels := 3
	if layout.isGray() {
		colorChannels = 1
	}
	wantAlpha := layout.hasAlpha()
	samplesPerPixel := colorChannels
	if wantAlpha {
		samplesPerPixel++
	}
	rowPixels := img.Width * samplesPerPixel * bytesPerSampleLocal(format.BitDepth)
	if len(img.Pixels) != rowPixels*img.Height {
		return errors.WithStack(ErrRowOverflow)
	}

	var colorType meta.ColorType
	switch {
	case layout.isGray() && !wantAlpha:
		colorType = meta.Gray
	case layout.isGray() && wantAlpha:
		colorType = meta.GrayAlpha
	case !layout.isGray() && !wantAlpha:
		colorType = meta.RGB
	default:
		colorType = meta.RGBA
	}

	wr := NewWriter(w)
	ihdr := meta.IHDR{
		Width:           uint32(img.Width),
		Height:          uint32(img.Height),
		BitDepth:        uint8(outBitDepth),
		ColorType:       colorType,
		InterlaceMethod: meta.InterlaceNone,
	}
	if cfg.interlace {
		ihdr.InterlaceMethod = meta.InterlaceAdam7
	}
	if err := wr.SetIHDR(ihdr); err != nil {
		return err
	}
	if err := wr.WriteInfo(); err != nil {
		return err
	}

	rows := make([][]byte, img.Height)
	for y := 0; y < img.Height; y++ {
		src := img.Pixels[y*rowPixels : (y+1)*rowPixels]
		rows[y] = encodeRowToWire(src, layout, colorChannels, format.BitDepth, outBitDepth, wantAlpha, cfg.premultiplied)
	}
	if err := wr.WriteImage(rows); err != nil {
		return err
	}
	return wr.WriteEnd()
}

func encodeRowToWire(src []byte, layout Layout, colorChannels, inBitDepth, outBitDepth int, wantAlpha, premultiplied bool) []byte {
	samplesPerPixel := colorChannels
	if wantAlpha {
		samplesPerPixel++
	}
	n := len(src) / (samplesPerPixel * bytesPerSampleLocal(inBitDepth))
	out := make([]byte, n*samplesPerPixel*bytesPerSampleLocal(outBitDepth))

	for i := 0; i < n; i++ {
		vals := make([]uint16, samplesPerPixel)
		for c := 0; c < samplesPerPixel; c++ {
			vals[c] = interlace.Sample(src, inBitDepth, i*samplesPerPixel+c)
		}
		if wantAlpha && layout.alphaFirst() {
			first := vals[0]
			copy(vals[:len(vals)-1], vals[1:])
			vals[len(vals)-1] = first
		}
		if layout.isBGR() {
			vals[0], vals[2] = vals[2], vals[0]
		}

		var alpha16 uint16
		if wantAlpha {
			alpha16 = vals[colorChannels]
		}
		for c := 0; c < colorChannels; c++ {
			v := vals[c]
			var outV uint16
			switch {
			case inBitDepth == outBitDepth:
				outV = v
			case inBitDepth == 16 && outBitDepth == 8:
				if premultiplied && wantAlpha {
					outV = uint16(unpremultiplyChannel(v, alpha16))
				} else {
					outV = uint16(scale16to8(v))
				}
			case inBitDepth == 8 && outBitDepth == 16:
				outV = v<<8 | v
			}
			interlace.SetSample(out, outBitDepth, i*samplesPerPixel+c, outV)
		}
		if wantAlpha {
			outA := upscaleSample(alpha16, inBitDepth, outBitDepth)
			interlace.SetSample(out, outBitDepth, i*samplesPerPixel+colorChannels, outA)
		}
	}
	return out
}

func encodeColormap(w io.Writer, img *Image, format Format) error {
	if format.BitDepth != 8 {
		return errors.WithStack(ErrUnsupportedFormat)
	}
	if len(img.Palette) == 0 || len(img.Palette) > 256 {
		return errors.WithStack(ErrUnsupportedFormat)
	}
	rowBytes := img.Width
	if len(img.Pixels) != rowBytes*img.Height {
		return errors.WithStack(ErrRowOverflow)
	}

	wr := NewWriter(w)
	ihdr := meta.IHDR{
		Width:           uint32(img.Width),
		Height:          uint32(img.Height),
		BitDepth:        8,
		ColorType:       meta.Palette,
		InterlaceMethod: meta.InterlaceNone,
	}
	if err := wr.SetIHDR(ihdr); err != nil {
		return err
	}
	entries := make([]meta.RGB8, len(img.Palette))
	for i, c := range img.Palette {
		entries[i] = meta.RGB8{R: c.R, G: c.G, B: c.B}
	}
	if err := wr.SetPLTE(meta.Palette{Entries: entries}); err != nil {
		return err
	}
	if err := wr.WriteInfo(); err != nil {
		return err
	}

	rows := make([][]byte, img.Height)
	for y := 0; y < img.Height; y++ {
		rows[y] = img.Pixels[y*rowBytes : (y+1)*rowBytes]
	}
	if err := wr.WriteImage(rows); err != nil {
		return err
	}
	return wr.WriteEnd()
}
