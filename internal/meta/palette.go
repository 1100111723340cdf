package meta

import "github.com/pkg/errors"

// RGB8 is one 8-bit palette entry, per spec.md §3.
type RGB8 struct {
	R, G, B uint8
}

// Palette is the ordered PLTE entry list. The teacher's PLTE struct
// modeled a single entry (chunk.go); Palette generalizes it to the full
// "up to 256 RGB triples" the spec requires.
type Palette struct {
	Entries []RGB8
}

var (
	ErrPaletteEmpty       = errors.New("png: PLTE chunk has zero entries")
	ErrPaletteTooLarge    = errors.New("png: PLTE has more than 256 entries")
	ErrPaletteLengthBytes = errors.New("png: PLTE length is not a multiple of 3")
	ErrPaletteForbidden   = errors.New("png: PLTE is forbidden for this color type")
	ErrPaletteRequired    = errors.New("png: PLTE is required for indexed color")
	ErrPaletteOverflows   = errors.New("png: PLTE has more entries than the bit depth allows")
)

// DecodePalette parses a PLTE chunk payload.
func DecodePalette(data []byte) (Palette, error) {
	if len(data)%3 != 0 {
		return Palette{}, errors.WithStack(ErrPaletteLengthBytes)
	}
	n := len(data) / 3
	if n == 0 {
		return Palette{}, errors.WithStack(ErrPaletteEmpty)
	}
	if n > 256 {
		return Palette{}, errors.WithStack(ErrPaletteTooLarge)
	}
	entries := make([]RGB8, n)
	for i := 0; i < n; i++ {
		entries[i] = RGB8{R: data[i*3], G: data[i*3+1], B: data[i*3+2]}
	}
	return Palette{Entries: entries}, nil
}

// Encode serializes the palette back to its 3n-byte wire form.
func (p Palette) Encode() []byte {
	buf := make([]byte, len(p.Entries)*3)
	for i, e := range p.Entries {
		buf[i*3] = e.R
		buf[i*3+1] = e.G
		buf[i*3+2] = e.B
	}
	return buf
}

// ValidateFor checks PLTE-vs-IHDR invariants from spec.md §3: required
// for Palette, forbidden for Gray/GrayAlpha, and within the bit-depth
// index range.
func (p *Palette) ValidateFor(h IHDR) error {
	switch h.ColorType {
	case Gray, GrayAlpha:
		if p != nil {
			return errors.WithStack(ErrPaletteForbidden)
		}
	case Palette:
		if p == nil {
			return errors.WithStack(ErrPaletteRequired)
		}
		if len(p.Entries) > (1 << h.BitDepth) {
			return errors.WithStack(ErrPaletteOverflows)
		}
	}
	return nil
}

// Trns is the transparency chunk. Its shape depends on color type, per
// spec.md §3: palette alpha list, a gray key, or an RGB key.
type Trns struct {
	// Alpha holds one entry per PLTE index (Palette color type only).
	// Missing trailing entries are implicitly fully opaque (255).
	Alpha []uint8

	// GrayKey and RGBKey store the 16-bit transparent-color sample(s)
	// for Gray and RGB color types respectively; only one is set.
	HasGrayKey bool
	GrayKey    uint16
	HasRGBKey  bool
	RGBKey     [3]uint16
}

var (
	ErrTrnsForbidden    = errors.New("png: tRNS is forbidden for this color type")
	ErrTrnsTooManyAlpha = errors.New("png: tRNS has more entries than PLTE")
	ErrTrnsBadLength    = errors.New("png: tRNS length does not match color type")
)

// DecodeTrns parses a tRNS chunk payload for the given color type.
func DecodeTrns(data []byte, ct ColorType) (Trns, error) {
	switch ct {
	case Palette:
		return Trns{Alpha: append([]uint8(nil), data...)}, nil
	case Gray:
		if len(data) != 2 {
			return Trns{}, errors.WithStack(ErrTrnsBadLength)
		}
		return Trns{HasGrayKey: true, GrayKey: be16(data)}, nil
	case RGB:
		if len(data) != 6 {
			return Trns{}, errors.WithStack(ErrTrnsBadLength)
		}
		return Trns{HasRGBKey: true, RGBKey: [3]uint16{be16(data[0:2]), be16(data[2:4]), be16(data[4:6])}}, nil
	default:
		return Trns{}, errors.WithStack(ErrTrnsForbidden)
	}
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func put16(b []byte, v uint16) {
	b[0] = uint8(v >> 8)
	b[1] = uint8(v)
}

// Encode serializes a tRNS chunk for the given color type.
func (t Trns) Encode(ct ColorType) []byte {
	switch ct {
	case Palette:
		return t.Alpha
	case Gray:
		buf := make([]byte, 2)
		put16(buf, t.GrayKey)
		return buf
	case RGB:
		buf := make([]byte, 6)
		put16(buf[0:2], t.RGBKey[0])
		put16(buf[2:4], t.RGBKey[1])
		put16(buf[4:6], t.RGBKey[2])
		return buf
	default:
		return nil
	}
}

// ValidateFor checks the tRNS-vs-IHDR/PLTE invariants from spec.md §3.
func (t Trns) ValidateFor(h IHDR, p *Palette) error {
	if h.ColorType == GrayAlpha || h.ColorType == RGBA {
		return errors.WithStack(ErrTrnsForbidden)
	}
	if h.ColorType == Palette {
		if p != nil && len(t.Alpha) > len(p.Entries) {
			return errors.WithStack(ErrTrnsTooManyAlpha)
		}
	}
	return nil
}

// AlphaFor returns the effective alpha for palette index idx, applying
// the "missing entries are fully opaque" rule from spec.md §3.
func (t Trns) AlphaFor(idx int) uint8 {
	if idx < len(t.Alpha) {
		return t.Alpha[idx]
	}
	return 255
}
