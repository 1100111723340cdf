package meta

import "github.com/pkg/errors"

// Location mirrors chunk.Location without importing the chunk package,
// to keep meta free of a dependency on the wire layer; pnglib maps
// between the two when it builds a Store from raw chunks.
type Location int

const (
	LocationBeforePLTE Location = iota
	LocationBeforeIDAT
	LocationAfterIDAT
)

// Unknown is a chunk this library has no registered parser for. Its
// payload is retained verbatim so a write-through pass can re-emit it
// at the same chunk-order slot it was read from (spec.md §3).
type Unknown struct {
	Type     [4]byte
	Data     []byte
	Location Location
}

// Store is the "Metadata store" component: the typed, validated
// in-memory representation of IHDR and every ancillary chunk. Reader
// populates one on read; Writer is configured by filling one (or by
// the Set* calls that mutate it) before WriteInfo.
type Store struct {
	IHDR IHDR

	Palette *Palette
	Trns    *Trns

	Gama *Gama
	Chrm *Chrm
	Srgb *Srgb
	Iccp *Iccp
	Bkgd *Bkgd
	Hist *Hist
	Phys *Phys
	Sbit *Sbit
	Scal *Scal
	Pcal *Pcal
	Offs *Offs
	Time *Time

	Text []Text
	Ztxt []Ztxt
	Itxt []Itxt
	Splt []Splt

	Unknown []Unknown
}

var (
	ErrSrgbIccpConflict = errors.New("png: sRGB and iCCP are mutually exclusive")
	ErrSbitWidth        = errors.New("png: sBIT channel count does not match color type")
	ErrHistNoPalette    = errors.New("png: hIST present without PLTE")
	ErrHistLength       = errors.New("png: hIST entry count does not match PLTE")
	ErrSpltDuplicate    = errors.New("png: duplicate sPLT name")
)

// Validate runs every cross-chunk invariant from spec.md §3 that is not
// already enforced at decode time for a single chunk.
func (s *Store) Validate() error {
	if err := s.IHDR.Validate(); err != nil {
		return err
	}
	if err := s.Palette.ValidateFor(s.IHDR); err != nil {
		return err
	}
	if s.Trns != nil {
		if err := s.Trns.ValidateFor(s.IHDR, s.Palette); err != nil {
			return err
		}
	}
	if s.Srgb != nil && s.Iccp != nil {
		return errors.WithStack(ErrSrgbIccpConflict)
	}
	if s.Sbit != nil {
		want := map[ColorType]int{Gray: 1, RGB: 3, Palette: 3, GrayAlpha: 2, RGBA: 4}[s.IHDR.ColorType]
		if len(s.Sbit.Depths) != want {
			return errors.WithStack(ErrSbitWidth)
		}
		for _, d := range s.Sbit.Depths {
			if d == 0 || d > s.IHDR.SampleDepth() {
				return errors.Errorf("png: sBIT depth %d out of range for sample depth %d", d, s.IHDR.SampleDepth())
			}
		}
	}
	if s.Hist != nil {
		if s.Palette == nil {
			return errors.WithStack(ErrHistNoPalette)
		}
		if len(s.Hist.Frequencies) != len(s.Palette.Entries) {
			return errors.WithStack(ErrHistLength)
		}
	}
	seen := map[string]bool{}
	for _, sp := range s.Splt {
		if seen[sp.Name] {
			return errors.Wrapf(ErrSpltDuplicate, "%q", sp.Name)
		}
		seen[sp.Name] = true
	}
	return nil
}

// MaxPaletteIndex reports the largest legal pixel byte value for
// indexed color, used to check invariant 9 (palette bounds) while
// decoding scanlines.
func (s *Store) MaxPaletteIndex() int {
	if s.Palette == nil {
		return -1
	}
	return len(s.Palette.Entries) - 1
}
