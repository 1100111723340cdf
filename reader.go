package pnglib

import (
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/xczero/pnglib/internal/chunk"
	"github.com/xczero/pnglib/internal/deflate"
	"github.com/xczero/pnglib/internal/filter"
	"github.com/xczero/pnglib/internal/interlace"
	"github.com/xczero/pnglib/internal/meta"
	"github.com/xczero/pnglib/internal/transform"
)

// Reader is the streaming read-side orchestrator from spec.md §2: it
// threads the wire I/O adapter, chunk dispatcher, metadata store,
// DEFLATE adapter, filter pipeline, interlace pass machine, and
// transform pipeline together into row-at-a-time decoding. A Reader
// is not safe for concurrent use (spec.md §5).
type Reader struct {
	r            io.Reader
	crcAction    chunk.CRCAction
	sigBytesRead int

	allowedUnknownCritical []chunk.Type
	keepUnknown            bool
	benign                 bool
	warn                   WarnFunc

	combineMode InterlaceCombineMode
	transforms  []Transform
	background  []uint16

	screenGamma     float64
	haveScreenGamma bool

	ignoreAdlerMismatch bool

	machine *chunk.Machine
	store   *meta.Store
	pending *chunk.Raw
	closed  bool

	idat    *idatReader
	inflate *deflate.Reader

	pipeline     *transform.Pipeline
	outColorType meta.ColorType
	outBitDepth  int
	outChannels  int

	rowIdx   int
	prevRow  []byte
	fullRows [][]byte // populated lazily for Adam7 images
}

// NewReader constructs a Reader over r. ReadInfo must be called before
// any row is read.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{r: r, crcAction: chunk.CRCError, combineMode: CombineSparkle}
	for _, o := range opts {
		o(rd)
	}
	return rd
}

func (r *Reader) warnf(err error) {
	if err == nil {
		return
	}
	if r.warn != nil {
		r.warn(err)
		return
	}
	log.Printf("png: %v", err)
}

// nextChunk returns the next chunk frame, transparently discarding
// CRC-rejected chunks (per the Reader's CRCAction) and advancing the
// chunk-ordering state machine. A previously stashed lookahead chunk
// (see idatReader) is returned first and is not re-advanced, since it
// was already advanced the first time it was read off the wire.
func (r *Reader) nextChunk() (chunk.Raw, error) {
	if r.pending != nil {
		raw := *r.pending
		r.pending = nil
		return raw, nil
	}
	for {
		raw, keep, warn, err := chunk.ReadRaw(r.r, r.crcAction)
		if err != nil {
			return chunk.Raw{}, err
		}
		if warn {
			r.warnf(errors.Wrapf(ErrBadCRC, "chunk %s", raw.Type))
		}
		if !keep {
			continue
		}
		if err := r.machine.Advance(raw.Type); err != nil {
			if r.benign && isBenignOrderError(err) {
				r.warnf(err)
				continue
			}
			return chunk.Raw{}, err
		}
		return raw, nil
	}
}

// isBenignOrderError reports whether err is one spec.md §4.7's benign
// mode may downgrade to a warning. Only genuinely recoverable
// ordering slips qualify; structural corruption (bad signature,
// duplicate IHDR/PLTE/IEND, non-contiguous IDAT) always remains fatal.
func isBenignOrderError(err error) bool {
	return errors.Is(err, chunk.ErrUnknownCritical)
}

// ReadInfo reads the PNG signature and every chunk up to (but not
// including) the first IDAT, populating and validating a metadata
// Store, per spec.md §6's read_info.
func (r *Reader) ReadInfo() (*meta.Store, error) {
	if r.closed {
		return nil, errors.WithStack(ErrStreamClosed)
	}
	if err := chunk.CheckSignature(r.r, r.sigBytesRead); err != nil {
		return nil, err
	}
	r.machine = chunk.NewMachine(r.allowedUnknownCritical)
	r.store = &meta.Store{}

	for {
		raw, err := r.nextChunk()
		if err != nil {
			return nil, err
		}
		if raw.Type == chunk.IDAT || raw.Type == chunk.IEND {
			r.pending = &raw
			break
		}
		if err := r.decodeAncillary(raw); err != nil {
			return nil, err
		}
	}

	if err := r.store.Validate(); err != nil {
		return nil, err
	}
	if err := r.buildPipeline(); err != nil {
		return nil, err
	}

	r.idat = &idatReader{rd: r}
	r.inflate = deflate.NewReader(r.idat, deflate.Options{IgnoreAdlerMismatch: r.ignoreAdlerMismatch})
	return r.store, nil
}

// decodeAncillary dispatches one non-IHDR/PLTE/IDAT/IEND chunk into
// the Store, per the per-chunk-type table in spec.md §3. Duplicate
// single-instance ancillary chunks are warned about and discarded
// rather than erroring, per spec.md §4.2.
func (r *Reader) decodeAncillary(raw chunk.Raw) error {
	s := r.store
	ct := s.IHDR.ColorType
	dup := func(present bool) bool {
		if present {
			r.warnf(errors.Errorf("png: duplicate %s chunk discarded", raw.Type))
		}
		return present
	}

	switch raw.Type {
	case chunk.IHDR:
		ihdr, err := meta.DecodeIHDR(raw.Data)
		if err != nil {
			return err
		}
		s.IHDR = ihdr
		return nil

	case chunk.PLTE:
		pal, err := meta.DecodePalette(raw.Data)
		if err != nil {
			return err
		}
		s.Palette = &pal
		return nil

	case chunk.TRNS:
		if dup(s.Trns != nil) {
			return nil
		}
		trns, err := meta.DecodeTrns(raw.Data, ct)
		if err != nil {
			return err
		}
		s.Trns = &trns
		return nil

	case chunk.GAMA:
		if dup(s.Gama != nil) {
			return nil
		}
		v, err := meta.DecodeGama(raw.Data)
		if err != nil {
			return err
		}
		s.Gama = &v
		return nil

	case chunk.CHRM:
		if dup(s.Chrm != nil) {
			return nil
		}
		v, err := meta.DecodeChrm(raw.Data)
		if err != nil {
			return err
		}
		s.Chrm = &v
		return nil

	case chunk.SRGB:
		if dup(s.Srgb != nil) {
			return nil
		}
		v, err := meta.DecodeSrgb(raw.Data)
		if err != nil {
			return err
		}
		s.Srgb = &v
		return nil

	case chunk.ICCP:
		if dup(s.Iccp != nil) {
			return nil
		}
		v, err := meta.DecodeIccp(raw.Data)
		if err != nil {
			return err
		}
		s.Iccp = &v
		return nil

	case chunk.BKGD:
		if dup(s.Bkgd != nil) {
			return nil
		}
		v, err := meta.DecodeBkgd(raw.Data, ct)
		if err != nil {
			return err
		}
		s.Bkgd = &v
		return nil

	case chunk.HIST:
		if dup(s.Hist != nil) {
			return nil
		}
		v, err := meta.DecodeHist(raw.Data)
		if err != nil {
			return err
		}
		s.Hist = &v
		return nil

	case chunk.PHYS:
		if dup(s.Phys != nil) {
			return nil
		}
		v, err := meta.DecodePhys(raw.Data)
		if err != nil {
			return err
		}
		s.Phys = &v
		return nil

	case chunk.SBIT:
		if dup(s.Sbit != nil) {
			return nil
		}
		v, err := meta.DecodeSbit(raw.Data, ct)
		if err != nil {
			return err
		}
		s.Sbit = &v
		return nil

	case chunk.SCAL:
		if dup(s.Scal != nil) {
			return nil
		}
		v, err := meta.DecodeScal(raw.Data)
		if err != nil {
			return err
		}
		s.Scal = &v
		return nil

	case chunk.PCAL:
		if dup(s.Pcal != nil) {
			return nil
		}
		v, err := meta.DecodePcal(raw.Data)
		if err != nil {
			return err
		}
		s.Pcal = &v
		return nil

	case chunk.OFFS:
		if dup(s.Offs != nil) {
			return nil
		}
		v, err := meta.DecodeOffs(raw.Data)
		if err != nil {
			return err
		}
		s.Offs = &v
		return nil

	case chunk.TIME:
		if dup(s.Time != nil) {
			return nil
		}
		v, err := meta.DecodeTime(raw.Data)
		if err != nil {
			return err
		}
		s.Time = &v
		return nil

	case chunk.TEXT:
		v, err := meta.DecodeText(raw.Data)
		if err != nil {
			return err
		}
		s.Text = append(s.Text, v)
		return nil

	case chunk.ZTXT:
		v, err := meta.DecodeZtxt(raw.Data)
		if err != nil {
			return err
		}
		s.Ztxt = append(s.Ztxt, v)
		return nil

	case chunk.ITXT:
		v, err := meta.DecodeItxt(raw.Data)
		if err != nil {
			return err
		}
		s.Itxt = append(s.Itxt, v)
		return nil

	case chunk.SPLT:
		v, err := meta.DecodeSplt(raw.Data)
		if err != nil {
			return err
		}
		s.Splt = append(s.Splt, v)
		return nil

	default:
		if r.keepUnknown {
			s.Unknown = append(s.Unknown, meta.Unknown{
				Type:     raw.Type,
				Data:     raw.Data,
				Location: meta.Location(r.machine.Location()),
			})
		}
		return nil
	}
}

// idatReader streams the concatenation of IDAT chunk payloads as a
// single io.Reader, pulling additional chunks off the wire as the
// zlib decompressor asks for more input. The first non-IDAT chunk it
// encounters is stashed on the Reader as lookahead for ReadEnd, per
// the "treat DEFLATE as a capability" redesign note in spec.md §9.
type idatReader struct {
	rd   *Reader
	buf  []byte
	done bool
}

func (ir *idatReader) Read(p []byte) (int, error) {
	for len(ir.buf) == 0 {
		if ir.done {
			return 0, io.EOF
		}
		raw, err := ir.rd.nextChunk()
		if err != nil {
			return 0, err
		}
		if raw.Type != chunk.IDAT {
			ir.rd.pending = &raw
			ir.done = true
			continue
		}
		ir.buf = raw.Data
	}
	n := copy(p, ir.buf)
	ir.buf = ir.buf[n:]
	return n, nil
}

// buildPipeline resolves the Reader's declared Transform set into a
// validated transform.Pipeline, once IHDR (and any PLTE/tRNS) is
// known. It is a no-op if no transforms were declared, in which case
// ReadRow delivers the wire pixel format unchanged.
func (r *Reader) buildPipeline() error {
	ihdr := r.store.IHDR
	r.outColorType = ihdr.ColorType
	r.outBitDepth = int(ihdr.BitDepth)
	r.outChannels = ihdr.ColorType.Channels()
	if len(r.transforms) == 0 {
		return nil
	}

	want := make(map[Transform]bool, len(r.transforms))
	for _, t := range r.transforms {
		want[t] = true
	}

	var stages []transform.Tagged
	curColor := ihdr.ColorType
	curBitDepth := int(ihdr.BitDepth)
	curChannels := curColor.Channels()

	if want[TransformExpand] {
		switch curColor {
		case meta.Palette:
			entries := r.store.Palette.Entries
			palette := make([]transform.RGBA8, len(entries))
			includeAlpha := r.store.Trns != nil
			for i, e := range entries {
				a := uint8(255)
				if includeAlpha {
					a = r.store.Trns.AlphaFor(i)
				}
				palette[i] = transform.RGBA8{R: e.R, G: e.G, B: e.B, A: a}
			}
			stages = append(stages, transform.Tag(transform.NewPaletteExpand(curBitDepth, palette, includeAlpha), transform.RankPaletteExpand))
			curBitDepth = 8
			if includeAlpha {
				curColor, curChannels = meta.RGBA, 4
			} else {
				curColor, curChannels = meta.RGB, 3
			}
		case meta.Gray:
			if r.store.Trns != nil && r.store.Trns.HasGrayKey {
				stages = append(stages, transform.Tag(transform.NewTrnsToAlpha(1, curBitDepth, []uint16{r.store.Trns.GrayKey}), transform.RankTrnsToAlpha))
				curColor, curChannels = meta.GrayAlpha, 2
			}
			if curBitDepth < 8 {
				stages = append(stages, transform.Tag(transform.NewBitExpand(curBitDepth, curChannels), transform.RankBitExpand))
				curBitDepth = 8
			}
		case meta.RGB:
			if r.store.Trns != nil && r.store.Trns.HasRGBKey {
				key := r.store.Trns.RGBKey
				stages = append(stages, transform.Tag(transform.NewTrnsToAlpha(3, curBitDepth, key[:]), transform.RankTrnsToAlpha))
				curColor, curChannels = meta.RGBA, 4
			}
		}
	}

	if want[TransformGrayToRGB] && (curColor == meta.Gray || curColor == meta.GrayAlpha) {
		alpha := curColor == meta.GrayAlpha
		stages = append(stages, transform.Tag(transform.NewGrayToRGB(curBitDepth, alpha), transform.RankGrayRGB))
		if alpha {
			curColor, curChannels = meta.RGBA, 4
		} else {
			curColor, curChannels = meta.RGB, 3
		}
	}

	if want[TransformRGBToGray] && (curColor == meta.RGB || curColor == meta.RGBA) {
		alpha := curColor == meta.RGBA
		stages = append(stages, transform.Tag(transform.NewRGBToGray(curBitDepth, alpha, transform.RGBToGrayIgnore, nil), transform.RankGrayRGB))
		if alpha {
			curColor, curChannels = meta.GrayAlpha, 2
		} else {
			curColor, curChannels = meta.Gray, 1
		}
	}

	if r.haveScreenGamma {
		fileGamma := 1.0 / 2.2
		if r.store.Gama != nil {
			fileGamma = r.store.Gama.Value()
		}
		exponent := transform.CombinedExponent(fileGamma, r.screenGamma)
		if !transform.IsNoop(exponent) {
			hasAlpha := curColor == meta.GrayAlpha || curColor == meta.RGBA
			stages = append(stages, transform.Tag(transform.NewGamma(curBitDepth, curChannels, hasAlpha, exponent), transform.RankGamma))
		}
	}

	if want[TransformStripAlpha] {
		hasAlpha := curColor == meta.GrayAlpha || curColor == meta.RGBA
		if hasAlpha {
			if len(r.background) == 0 {
				return errors.WithStack(ErrTransformConflict)
			}
			colorChannels := curChannels - 1
			stages = append(stages, transform.Tag(transform.NewBackgroundCompose(curBitDepth, colorChannels, r.background), transform.RankBackground))
			curChannels = colorChannels
			if curColor == meta.GrayAlpha {
				curColor = meta.Gray
			} else {
				curColor = meta.RGB
			}
		}
	}

	if curBitDepth == 16 {
		switch {
		case want[TransformScale16]:
			stages = append(stages, transform.Tag(transform.NewScale16(curChannels), transform.Rank16To8))
			curBitDepth = 8
		case want[TransformStrip16]:
			stages = append(stages, transform.Tag(transform.NewStrip16(curChannels), transform.Rank16To8))
			curBitDepth = 8
		}
	}

	if want[TransformSwapBGR] {
		stages = append(stages, transform.Tag(transform.NewChannelSwap(curChannels, curBitDepth, transform.SwapBGR), transform.RankChannelSwap))
	}

	if want[TransformInvertAlpha] {
		hasAlpha := curColor == meta.GrayAlpha || curColor == meta.RGBA
		if hasAlpha {
			stages = append(stages, transform.Tag(transform.NewInvertAlpha(curChannels, curBitDepth, curChannels-1), transform.RankInvert))
		}
	}

	pipeline, err := transform.Compose(int(ihdr.Width), stages...)
	if err != nil {
		return err
	}
	r.pipeline = pipeline
	r.outColorType = curColor
	r.outBitDepth = curBitDepth
	r.outChannels = curChannels
	return nil
}

// OutColorType reports the pipeline's output color type, after any
// declared transforms — equal to the wire IHDR color type if no
// transform changes channel shape.
func (r *Reader) OutColorType() meta.ColorType { return r.outColorType }

// OutBitDepth reports the pipeline's output sample bit depth.
func (r *Reader) OutBitDepth() int { return r.outBitDepth }

// OutChannels reports the pipeline's output channel count per pixel,
// including alpha if present.
func (r *Reader) OutChannels() int { return r.outChannels }

// OutRowBytes returns the byte length ReadRow delivers per row, after
// any declared transforms (spec.md §6's caller-visible row stride).
func (r *Reader) OutRowBytes() int {
	width := int(r.store.IHDR.Width)
	bits := width * r.outChannels * r.outBitDepth
	return (bits + 7) / 8
}

// ReadRow reads one decoded, transformed scanline into buf, which
// must be exactly OutRowBytes() long. Rows are delivered in PNG
// canonical order (spec.md §5): top-to-bottom for non-interlaced
// images, or pass-major order materialized internally for Adam7.
func (r *Reader) ReadRow(buf []byte) error {
	if len(buf) != r.OutRowBytes() {
		return errors.WithStack(ErrRowOverflow)
	}
	if r.store.IHDR.InterlaceMethod == meta.InterlaceAdam7 {
		if r.fullRows == nil {
			rows, err := r.decodeAdam7()
			if err != nil {
				return err
			}
			r.fullRows = rows
		}
		if r.rowIdx >= len(r.fullRows) {
			return errors.WithStack(io.EOF)
		}
		copy(buf, r.fullRows[r.rowIdx])
		r.rowIdx++
		return nil
	}

	row, err := r.readWireRow(int(r.store.IHDR.Width))
	if err != nil {
		return err
	}
	if r.pipeline != nil {
		row = r.pipeline.Run(row)
	}
	copy(buf, row)
	r.rowIdx++
	return nil
}

// readWireRow reads and unfilters one scanline of widthPixels wire
// pixels, maintaining the previous-scanline state Up/Avg/Paeth need.
func (r *Reader) readWireRow(widthPixels int) ([]byte, error) {
	ihdr := r.store.IHDR
	bits := widthPixels * ihdr.ColorType.Channels() * int(ihdr.BitDepth)
	rowBytes := (bits + 7) / 8
	bpp := ihdr.BytesPerPixel()

	var ftByte [1]byte
	if _, err := io.ReadFull(r.inflate, ftByte[:]); err != nil {
		return nil, classifyDeflateErr(err)
	}
	ft := filter.Type(ftByte[0])

	cur := make([]byte, rowBytes)
	if _, err := io.ReadFull(r.inflate, cur); err != nil {
		return nil, classifyDeflateErr(err)
	}
	if err := filter.Unfilter(ft, cur, r.prevRow, bpp); err != nil {
		return nil, err
	}
	r.prevRow = cur
	if ihdr.ColorType == meta.Palette {
		if err := r.checkPaletteBounds(cur, widthPixels, int(ihdr.BitDepth)); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// checkPaletteBounds rejects a palette-indexed row containing a pixel
// value beyond the declared PLTE length (spec.md §8 invariant 9).
func (r *Reader) checkPaletteBounds(row []byte, widthPixels, bitDepth int) error {
	max := r.store.MaxPaletteIndex()
	for i := 0; i < widthPixels; i++ {
		if int(interlace.Sample(row, bitDepth, i)) > max {
			return errors.WithStack(ErrPalettePixelBounds)
		}
	}
	return nil
}

func classifyDeflateErr(err error) error {
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return errors.WithStack(ErrTruncated)
	}
	return err
}

// decodeAdam7 decodes every pass of an interlaced image and combines
// them into full-width, full-height wire-format rows, per spec.md
// §4.4's library-driven de-interlace mode. Each row is then run
// through the declared transform pipeline.
func (r *Reader) decodeAdam7() ([][]byte, error) {
	ihdr := r.store.IHDR
	w, h := int(ihdr.Width), int(ihdr.Height)
	bitDepth := int(ihdr.BitDepth)
	channels := ihdr.ColorType.Channels()
	fullRowBits := w * channels * bitDepth
	fullRowBytes := (fullRowBits + 7) / 8

	raw := make([][]byte, h)
	for y := range raw {
		raw[y] = make([]byte, fullRowBytes)
	}

	for _, pass := range interlace.Passes {
		pw, ph := pass.Dims(w, h)
		if pw == 0 || ph == 0 {
			continue
		}
		r.prevRow = nil
		for row := 0; row < ph; row++ {
			passRow, err := r.readWireRow(pw)
			if err != nil {
				return nil, err
			}
			y := pass.RowY(row)
			mode := interlace.Mode(r.combineMode)
			interlace.Combine(mode, raw[y], y, pass, passRow, bitDepth, channels, w)
		}
	}
	r.prevRow = nil

	if r.pipeline == nil {
		return raw, nil
	}
	out := make([][]byte, h)
	for y, row := range raw {
		out[y] = r.pipeline.Run(row)
	}
	return out, nil
}

// ReadImage decodes the entire image into one row slice per scanline,
// in the output pixel format, per spec.md §6's read_image.
func (r *Reader) ReadImage() ([][]byte, error) {
	if r.store.IHDR.InterlaceMethod == meta.InterlaceAdam7 {
		if r.fullRows == nil {
			rows, err := r.decodeAdam7()
			if err != nil {
				return nil, err
			}
			r.fullRows = rows
		}
		r.rowIdx = len(r.fullRows)
		return r.fullRows, nil
	}
	h := int(r.store.IHDR.Height)
	rows := make([][]byte, h)
	outBytes := r.OutRowBytes()
	for y := 0; y < h; y++ {
		buf := make([]byte, outBytes)
		if err := r.ReadRow(buf); err != nil {
			return nil, err
		}
		rows[y] = buf
	}
	return rows, nil
}

// ReadEnd drains any chunks after IDAT (tEXt/zTXt/iTXt/tIME commonly
// appear here), checks that the decompressed stream yields no data past
// the last image row, and returns the fully populated Store once IEND
// is reached. Compressed bytes after the end of the zlib stream are not
// examined.
func (r *Reader) ReadEnd() (*meta.Store, error) {
	var probe [1]byte
	n, err := r.inflate.Read(probe[:])
	if n > 0 {
		return nil, errors.WithStack(ErrExtraData)
	}
	if err != nil && err != io.EOF {
		return nil, err
	}

	for {
		raw, err := r.nextChunk()
		if err != nil {
			return nil, err
		}
		if raw.Type == chunk.IEND {
			break
		}
		if err := r.decodeAncillary(raw); err != nil {
			return nil, err
		}
	}
	if r.machine.State() != chunk.AfterIEND {
		return nil, errors.WithStack(chunk.ErrChunkOrder)
	}
	return r.store, nil
}

// Close releases the Reader's internal buffers. It does not close the
// underlying io.Reader, which the caller owns.
func (r *Reader) Close() error {
	r.closed = true
	r.prevRow = nil
	r.fullRows = nil
	return nil
}
