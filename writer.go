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
)

// Writer is the streaming write-side orchestrator from spec.md §2. It
// enforces the write-side chunk ordering automatically (spec.md §4.2):
// info-before-PLTE chunks, PLTE, info-before-IDAT chunks, the IDAT
// stream, info-after-IDAT chunks, then IEND. A Writer is not safe for
// concurrent use.
type Writer struct {
	w io.Writer

	deflateOpts  deflate.Options
	filterMask   filter.Mask
	fastFilter   bool
	warn         WarnFunc
	writeUnknown bool

	store   meta.Store
	ihdrSet bool

	infoWritten bool
	ended       bool
	closed      bool

	rowsWritten int
	prevRow     []byte
	picker      *filter.Picker
	scratch     []byte

	deflateW *deflate.Writer
	idatSent int
}

// NewWriter constructs a Writer over w with the documented defaults
// (compression level 6, strategy filtered, window 15, max IDAT 8192,
// per spec.md §6).
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	wr := &Writer{w: w, deflateOpts: deflate.DefaultOptions(), filterMask: filter.MaskAll}
	for _, o := range opts {
		o(wr)
	}
	return wr
}

func (w *Writer) warnf(err error) {
	if err == nil {
		return
	}
	if w.warn != nil {
		w.warn(err)
		return
	}
	log.Printf("png: %v", err)
}

// SetIHDR validates and records the image header. IHDR is immutable
// once set, per spec.md §3.
func (w *Writer) SetIHDR(h meta.IHDR) error {
	if w.ihdrSet {
		return errors.WithStack(meta.ErrIHDRImmutableChange)
	}
	if err := h.Validate(); err != nil {
		return err
	}
	w.store.IHDR = h
	w.ihdrSet = true
	return nil
}

// SetPLTE records the palette chunk.
func (w *Writer) SetPLTE(p meta.Palette) error { w.store.Palette = &p; return nil }

// SetTrns records the tRNS chunk.
func (w *Writer) SetTrns(t meta.Trns) error { w.store.Trns = &t; return nil }

// SetGama records the gAMA chunk.
func (w *Writer) SetGama(g meta.Gama) error { w.store.Gama = &g; return nil }

// SetChrm records the cHRM chunk.
func (w *Writer) SetChrm(c meta.Chrm) error { w.store.Chrm = &c; return nil }

// SetSrgb records the sRGB chunk.
func (w *Writer) SetSrgb(s meta.Srgb) error { w.store.Srgb = &s; return nil }

// SetIccp records the iCCP chunk.
func (w *Writer) SetIccp(i meta.Iccp) error { w.store.Iccp = &i; return nil }

// SetBkgd records the bKGD chunk.
func (w *Writer) SetBkgd(b meta.Bkgd) error { w.store.Bkgd = &b; return nil }

// SetHist records the hIST chunk.
func (w *Writer) SetHist(h meta.Hist) error { w.store.Hist = &h; return nil }

// SetPhys records the pHYs chunk.
func (w *Writer) SetPhys(p meta.Phys) error { w.store.Phys = &p; return nil }

// SetSbit records the sBIT chunk.
func (w *Writer) SetSbit(s meta.Sbit) error { w.store.Sbit = &s; return nil }

// SetScal records the sCAL chunk.
func (w *Writer) SetScal(s meta.Scal) error { w.store.Scal = &s; return nil }

// SetPcal records the pCAL chunk.
func (w *Writer) SetPcal(p meta.Pcal) error { w.store.Pcal = &p; return nil }

// SetOffs records the oFFs chunk.
func (w *Writer) SetOffs(o meta.Offs) error { w.store.Offs = &o; return nil }

// SetTime records the tIME chunk.
func (w *Writer) SetTime(t meta.Time) error { w.store.Time = &t; return nil }

// AddText appends a tEXt chunk, written at WriteEnd (spec.md §3 allows
// text chunks anywhere after IHDR; this Writer places them after the
// image data).
func (w *Writer) AddText(t meta.Text) { w.store.Text = append(w.store.Text, t) }

// AddZtxt appends a zTXt chunk.
func (w *Writer) AddZtxt(z meta.Ztxt) { w.store.Ztxt = append(w.store.Ztxt, z) }

// AddItxt appends an iTXt chunk.
func (w *Writer) AddItxt(i meta.Itxt) { w.store.Itxt = append(w.store.Itxt, i) }

// AddSplt appends a named sPLT chunk.
func (w *Writer) AddSplt(s meta.Splt) { w.store.Splt = append(w.store.Splt, s) }

// AddUnknown re-queues a chunk this library does not itself generate
// (typically one carried over from a Reader built WithKeepUnknownChunks),
// to be re-emitted at the slot matching its recorded Location.
func (w *Writer) AddUnknown(u meta.Unknown) { w.store.Unknown = append(w.store.Unknown, u) }

func (w *Writer) writeChunk(typ chunk.Type, data []byte) error {
	return chunk.WriteRaw(w.w, typ, data)
}

func (w *Writer) writeUnknownAt(loc meta.Location) error {
	if !w.writeUnknown {
		return nil
	}
	for _, u := range w.store.Unknown {
		if u.Location != loc {
			continue
		}
		if err := w.writeChunk(chunk.Type(u.Type), u.Data); err != nil {
			return err
		}
	}
	return nil
}

// WriteInfo validates the accumulated Store and emits the signature,
// IHDR, and every chunk that must precede IDAT: colorimetry
// (cHRM/gAMA/sRGB/iCCP/sBIT), PLTE, and the transparency/physical
// chunks that follow it (bKGD/hIST/tRNS/pHYs/sCAL/pCAL/oFFs), per
// spec.md §6's write_info.
func (w *Writer) WriteInfo() error {
	if !w.ihdrSet {
		return errors.WithStack(ErrIHDRNotSet)
	}
	if err := w.store.Validate(); err != nil {
		return err
	}
	if err := chunk.WriteSignature(w.w); err != nil {
		return err
	}
	if err := w.writeChunk(chunk.IHDR, w.store.IHDR.Encode()); err != nil {
		return err
	}
	if err := w.writeUnknownAt(meta.LocationBeforePLTE); err != nil {
		return err
	}

	s := &w.store
	ct := s.IHDR.ColorType
	type preChunk struct {
		typ  chunk.Type
		data []byte
	}
	before := []preChunk{}
	if s.Chrm != nil {
		before = append(before, preChunk{chunk.CHRM, s.Chrm.Encode()})
	}
	if s.Gama != nil {
		before = append(before, preChunk{chunk.GAMA, s.Gama.Encode()})
	}
	if s.Srgb != nil {
		before = append(before, preChunk{chunk.SRGB, s.Srgb.Encode()})
	}
	if s.Iccp != nil {
		before = append(before, preChunk{chunk.ICCP, s.Iccp.Encode()})
	}
	if s.Sbit != nil {
		before = append(before, preChunk{chunk.SBIT, s.Sbit.Encode()})
	}
	for _, c := range before {
		if err := w.writeChunk(c.typ, c.data); err != nil {
			return err
		}
	}

	if s.Palette != nil {
		if err := w.writeChunk(chunk.PLTE, s.Palette.Encode()); err != nil {
			return err
		}
	}

	after := []preChunk{}
	if s.Bkgd != nil {
		after = append(after, preChunk{chunk.BKGD, s.Bkgd.Encode(ct)})
	}
	if s.Hist != nil {
		after = append(after, preChunk{chunk.HIST, s.Hist.Encode()})
	}
	if s.Trns != nil {
		after = append(after, preChunk{chunk.TRNS, s.Trns.Encode(ct)})
	}
	if s.Phys != nil {
		after = append(after, preChunk{chunk.PHYS, s.Phys.Encode()})
	}
	if s.Scal != nil {
		after = append(after, preChunk{chunk.SCAL, s.Scal.Encode()})
	}
	if s.Pcal != nil {
		after = append(after, preChunk{chunk.PCAL, s.Pcal.Encode()})
	}
	if s.Offs != nil {
		after = append(after, preChunk{chunk.OFFS, s.Offs.Encode()})
	}
	for _, c := range after {
		if err := w.writeChunk(c.typ, c.data); err != nil {
			return err
		}
	}
	if err := w.writeUnknownAt(meta.LocationBeforeIDAT); err != nil {
		return err
	}

	deflateW, err := deflate.NewWriter(w.deflateOpts)
	if err != nil {
		return err
	}
	w.deflateW = deflateW
	w.infoWritten = true
	return nil
}

// maxIDAT returns the configured IDAT size ceiling, or the default.
func (w *Writer) maxIDAT() int {
	if w.deflateOpts.MaxIDATSize <= 0 {
		return deflate.DefaultMaxIDAT
	}
	return w.deflateOpts.MaxIDATSize
}

func (w *Writer) drainIDAT() error {
	data := w.deflateW.Bytes()
	if len(data) == 0 {
		return nil
	}
	for _, part := range deflate.SplitIDAT(data, w.maxIDAT()) {
		if err := w.writeChunk(chunk.IDAT, part); err != nil {
			return err
		}
		w.idatSent++
	}
	w.deflateW.Reset()
	return nil
}

// WriteRow filters and compresses one wire-format scanline, in PNG
// canonical row order. For an Adam7 (interlaced) stream, rows must be
// supplied whole via WriteImage instead: the library itself splits an
// interlaced image into its seven passes.
func (w *Writer) WriteRow(buf []byte) error {
	if !w.infoWritten {
		return errors.WithStack(ErrInfoNotWritten)
	}
	if w.store.IHDR.InterlaceMethod == meta.InterlaceAdam7 {
		return errors.WithStack(ErrInterlaceRequiresImage)
	}
	if w.rowsWritten >= int(w.store.IHDR.Height) {
		return errors.WithStack(ErrRowCountExceeded)
	}
	if len(buf) != w.store.IHDR.RowBytes() {
		return errors.WithStack(ErrRowOverflow)
	}
	if err := w.encodeRow(buf); err != nil {
		return err
	}
	w.rowsWritten++
	return nil
}

// encodeRow filters one raw scanline (bpp computed from IHDR) and
// streams the filtered bytes into the DEFLATE adapter, draining
// completed IDAT chunks as they accumulate.
func (w *Writer) encodeRow(raw []byte) error {
	bpp := w.store.IHDR.BytesPerPixel()
	if w.picker == nil {
		w.picker = filter.NewPicker(len(raw))
		w.scratch = make([]byte, len(raw))
	}
	var ft filter.Type
	var filtered []byte
	if w.fastFilter {
		ft = filter.Fast(w.scratch, raw)
		filtered = w.scratch
	} else {
		ft, filtered = w.picker.Pick(raw, w.prevRow, bpp, w.filterMask)
	}
	if _, err := w.deflateW.Write([]byte{byte(ft)}); err != nil {
		return err
	}
	if _, err := w.deflateW.Write(filtered); err != nil {
		return err
	}
	prev := make([]byte, len(raw))
	copy(prev, raw)
	w.prevRow = prev
	return w.drainIDAT()
}

// WriteImage writes every row of a full image. For a non-interlaced
// stream this is equivalent to calling WriteRow for each row in
// order; for an Adam7 stream, rows holds the full-width, full-height
// image and the library extracts and writes each of the 7 passes in
// turn, per spec.md §4.4's library-driven interlacing.
func (w *Writer) WriteImage(rows [][]byte) error {
	if !w.infoWritten {
		return errors.WithStack(ErrInfoNotWritten)
	}
	if w.store.IHDR.InterlaceMethod != meta.InterlaceAdam7 {
		for _, row := range rows {
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}
		return nil
	}
	return w.writeAdam7(rows)
}

func (w *Writer) writeAdam7(rows [][]byte) error {
	ihdr := w.store.IHDR
	width, height := int(ihdr.Width), int(ihdr.Height)
	bitDepth := int(ihdr.BitDepth)
	channels := ihdr.ColorType.Channels()

	for _, pass := range interlace.Passes {
		pw, ph := pass.Dims(width, height)
		if pw == 0 || ph == 0 {
			continue
		}
		w.prevRow = nil
		passRowBytes := (pw*channels*bitDepth + 7) / 8
		passRow := make([]byte, passRowBytes)
		for row := 0; row < ph; row++ {
			y := pass.RowY(row)
			extractPassRow(passRow, rows[y], pass, bitDepth, channels)
			if err := w.encodeRow(passRow); err != nil {
				return err
			}
		}
	}
	w.prevRow = nil
	return nil
}

// extractPassRow copies the pass-owned pixels of fullRow (at the
// image's own width) into dst, the pass's own narrower row buffer,
// the inverse of internal/interlace.Combine.
func extractPassRow(dst, fullRow []byte, pass interlace.Pass, bitDepth, channels int) {
	pw := len(dst) * 8 / (bitDepth * channels)
	for col := 0; col < pw; col++ {
		x := pass.ColX(col)
		for ch := 0; ch < channels; ch++ {
			v := interlace.Sample(fullRow, bitDepth, x*channels+ch)
			interlace.SetSample(dst, bitDepth, col*channels+ch, v)
		}
	}
}

// WriteEnd flushes the DEFLATE stream (guaranteeing at least one
// IDAT chunk per spec.md §4.3), emits every chunk that may follow
// IDAT (tIME, text chunks, sPLT, after-IDAT unknown chunks), and
// writes IEND.
func (w *Writer) WriteEnd() error {
	if !w.infoWritten {
		return errors.WithStack(ErrInfoNotWritten)
	}
	if err := w.deflateW.Close(); err != nil {
		return err
	}
	if err := w.drainIDAT(); err != nil {
		return err
	}
	if w.idatSent == 0 {
		if err := w.writeChunk(chunk.IDAT, nil); err != nil {
			return err
		}
		w.idatSent++
	}

	s := &w.store
	if s.Time != nil {
		if err := w.writeChunk(chunk.TIME, s.Time.Encode()); err != nil {
			return err
		}
	}
	for _, t := range s.Text {
		if err := w.writeChunk(chunk.TEXT, t.Encode()); err != nil {
			return err
		}
	}
	for _, z := range s.Ztxt {
		if err := w.writeChunk(chunk.ZTXT, z.Encode()); err != nil {
			return err
		}
	}
	for _, it := range s.Itxt {
		if err := w.writeChunk(chunk.ITXT, it.Encode()); err != nil {
			return err
		}
	}
	for _, sp := range s.Splt {
		if err := w.writeChunk(chunk.SPLT, sp.Encode()); err != nil {
			return err
		}
	}
	if err := w.writeUnknownAt(meta.LocationAfterIDAT); err != nil {
		return err
	}
	if err := w.writeChunk(chunk.IEND, nil); err != nil {
		return err
	}
	w.ended = true
	return nil
}

// Close releases the Writer's internal buffers. It does not close the
// underlying io.Writer, which the caller owns, and does not call
// WriteEnd on the caller's behalf.
func (w *Writer) Close() error {
	w.closed = true
	w.prevRow = nil
	w.scratch = nil
	return nil
}
