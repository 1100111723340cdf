package meta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Gama is the gAMA chunk: image gamma times 100000, per spec.md §3.
type Gama struct {
	Gamma100000 uint32
}

// Value returns the gamma as a float (e.g. 0.45455 for a 1/2.2 file
// gamma), per spec.md §4.6.
func (g Gama) Value() float64 { return float64(g.Gamma100000) / 100000.0 }

func DecodeGama(data []byte) (Gama, error) {
	if len(data) != 4 {
		return Gama{}, errors.New("png: gAMA length must be 4")
	}
	return Gama{Gamma100000: binary.BigEndian.Uint32(data)}, nil
}

func (g Gama) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, g.Gamma100000)
	return buf
}

// Chrm is the cHRM chunk: CIE xy chromaticities times 100000.
type Chrm struct {
	WhiteX, WhiteY uint32
	RedX, RedY     uint32
	GreenX, GreenY uint32
	BlueX, BlueY   uint32
}

func DecodeChrm(data []byte) (Chrm, error) {
	if len(data) != 32 {
		return Chrm{}, errors.New("png: cHRM length must be 32")
	}
	u := func(i int) uint32 { return binary.BigEndian.Uint32(data[i*4:]) }
	return Chrm{
		WhiteX: u(0), WhiteY: u(1),
		RedX: u(2), RedY: u(3),
		GreenX: u(4), GreenY: u(5),
		BlueX: u(6), BlueY: u(7),
	}, nil
}

func (c Chrm) Encode() []byte {
	buf := make([]byte, 32)
	vals := []uint32{c.WhiteX, c.WhiteY, c.RedX, c.RedY, c.GreenX, c.GreenY, c.BlueX, c.BlueY}
	for i, v := range vals {
		binary.BigEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// Srgb is the sRGB chunk: a rendering intent byte.
type Srgb struct {
	Intent uint8
}

func DecodeSrgb(data []byte) (Srgb, error) {
	if len(data) != 1 {
		return Srgb{}, errors.New("png: sRGB length must be 1")
	}
	if data[0] > 3 {
		return Srgb{}, errors.Errorf("png: sRGB rendering intent %d out of range", data[0])
	}
	return Srgb{Intent: data[0]}, nil
}

func (s Srgb) Encode() []byte { return []byte{s.Intent} }

// Iccp is the iCCP chunk: a named, zlib-compressed ICC profile. The
// profile bytes are stored compressed here; the caller decompresses
// through internal/deflate when it actually needs the profile.
type Iccp struct {
	Name              string
	CompressionMethod uint8
	CompressedProfile []byte
}

func DecodeIccp(data []byte) (Iccp, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 || nul > 79 || nul == 0 {
		return Iccp{}, errors.New("png: iCCP malformed profile name")
	}
	if nul+1 >= len(data) {
		return Iccp{}, errors.New("png: iCCP missing compression method")
	}
	return Iccp{
		Name:              string(data[:nul]),
		CompressionMethod: data[nul+1],
		CompressedProfile: append([]byte(nil), data[nul+2:]...),
	}, nil
}

func (i Iccp) Encode() []byte {
	buf := make([]byte, 0, len(i.Name)+2+len(i.CompressedProfile))
	buf = append(buf, i.Name...)
	buf = append(buf, 0, i.CompressionMethod)
	buf = append(buf, i.CompressedProfile...)
	return buf
}

// Bkgd is the bKGD chunk; its shape depends on color type (spec.md §3).
type Bkgd struct {
	PaletteIndex uint8
	Gray         uint16
	R, G, B      uint16
}

func DecodeBkgd(data []byte, ct ColorType) (Bkgd, error) {
	switch ct {
	case Palette:
		if len(data) != 1 {
			return Bkgd{}, errors.New("png: bKGD length must be 1 for palette")
		}
		return Bkgd{PaletteIndex: data[0]}, nil
	case Gray, GrayAlpha:
		if len(data) != 2 {
			return Bkgd{}, errors.New("png: bKGD length must be 2 for gray")
		}
		return Bkgd{Gray: be16(data)}, nil
	case RGB, RGBA:
		if len(data) != 6 {
			return Bkgd{}, errors.New("png: bKGD length must be 6 for rgb")
		}
		return Bkgd{R: be16(data[0:2]), G: be16(data[2:4]), B: be16(data[4:6])}, nil
	default:
		return Bkgd{}, errors.New("png: unknown color type for bKGD")
	}
}

func (bk Bkgd) Encode(ct ColorType) []byte {
	switch ct {
	case Palette:
		return []byte{bk.PaletteIndex}
	case Gray, GrayAlpha:
		buf := make([]byte, 2)
		put16(buf, bk.Gray)
		return buf
	default:
		buf := make([]byte, 6)
		put16(buf[0:2], bk.R)
		put16(buf[2:4], bk.G)
		put16(buf[4:6], bk.B)
		return buf
	}
}

// Hist is the hIST chunk: one usage-frequency count per PLTE entry.
type Hist struct {
	Frequencies []uint16
}

func DecodeHist(data []byte) (Hist, error) {
	if len(data)%2 != 0 {
		return Hist{}, errors.New("png: hIST length must be even")
	}
	n := len(data) / 2
	freq := make([]uint16, n)
	for i := 0; i < n; i++ {
		freq[i] = be16(data[i*2:])
	}
	return Hist{Frequencies: freq}, nil
}

func (h Hist) Encode() []byte {
	buf := make([]byte, len(h.Frequencies)*2)
	for i, f := range h.Frequencies {
		put16(buf[i*2:], f)
	}
	return buf
}

// Phys is the pHYs chunk: intended pixel density or aspect ratio.
type Phys struct {
	PixelsPerUnitX uint32
	PixelsPerUnitY uint32
	Unit           uint8 // 0 = unknown, 1 = meter
}

func DecodePhys(data []byte) (Phys, error) {
	if len(data) != 9 {
		return Phys{}, errors.New("png: pHYs length must be 9")
	}
	return Phys{
		PixelsPerUnitX: binary.BigEndian.Uint32(data[0:4]),
		PixelsPerUnitY: binary.BigEndian.Uint32(data[4:8]),
		Unit:           data[8],
	}, nil
}

func (p Phys) Encode() []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint32(buf[0:4], p.PixelsPerUnitX)
	binary.BigEndian.PutUint32(buf[4:8], p.PixelsPerUnitY)
	buf[8] = p.Unit
	return buf
}

// Sbit is the sBIT chunk: original significant-bit counts per channel,
// per the per-color-type layout in spec.md §3.
type Sbit struct {
	Depths []uint8 // 1 to 4 entries, order matches the color type's channels
}

func DecodeSbit(data []byte, ct ColorType) (Sbit, error) {
	want := map[ColorType]int{Gray: 1, RGB: 3, Palette: 3, GrayAlpha: 2, RGBA: 4}[ct]
	if len(data) != want {
		return Sbit{}, errors.Errorf("png: sBIT length %d, want %d for color type %d", len(data), want, ct)
	}
	return Sbit{Depths: append([]uint8(nil), data...)}, nil
}

func (s Sbit) Encode() []byte { return s.Depths }

// Scal is the sCAL chunk: physical scale of a pixel.
type Scal struct {
	Unit    uint8 // 1 = meter, 2 = radian
	Width   float64
	Height  float64
}

func DecodeScal(data []byte) (Scal, error) {
	if len(data) < 1 {
		return Scal{}, errors.New("png: sCAL too short")
	}
	rest := data[1:]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return Scal{}, errors.New("png: sCAL missing separator")
	}
	w, err := parseASCIIFloat(rest[:nul])
	if err != nil {
		return Scal{}, err
	}
	h, err := parseASCIIFloat(rest[nul+1:])
	if err != nil {
		return Scal{}, err
	}
	return Scal{Unit: data[0], Width: w, Height: h}, nil
}

func parseASCIIFloat(b []byte) (float64, error) {
	var f float64
	_, err := fmt.Sscan(string(b), &f)
	if err != nil || math.IsNaN(f) {
		return 0, errors.Errorf("png: sCAL malformed float %q", b)
	}
	return f, nil
}

func (s Scal) Encode() []byte {
	buf := []byte{s.Unit}
	buf = append(buf, formatASCIIFloat(s.Width)...)
	buf = append(buf, 0)
	buf = append(buf, formatASCIIFloat(s.Height)...)
	return buf
}

func formatASCIIFloat(f float64) []byte {
	return []byte(strconv.FormatFloat(f, 'g', -1, 64))
}

// Pcal is the pCAL chunk: calibration of sample values to physical
// values for scientific imagery.
type Pcal struct {
	Name             string
	X0, X1           int32
	EquationType     uint8
	NumParams        uint8
	UnitName         string
	Params           []string
}

func DecodePcal(data []byte) (Pcal, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return Pcal{}, errors.New("png: pCAL malformed name")
	}
	name := string(data[:nul])
	rest := data[nul+1:]
	if len(rest) < 10 {
		return Pcal{}, errors.New("png: pCAL too short")
	}
	x0 := int32(binary.BigEndian.Uint32(rest[0:4]))
	x1 := int32(binary.BigEndian.Uint32(rest[4:8]))
	eq := rest[8]
	np := rest[9]
	rest = rest[10:]
	unitNul := bytes.IndexByte(rest, 0)
	if unitNul < 0 {
		return Pcal{}, errors.New("png: pCAL missing unit name terminator")
	}
	unit := string(rest[:unitNul])
	rest = rest[unitNul+1:]
	var params []string
	for i := uint8(0); i < np && len(rest) > 0; i++ {
		n := bytes.IndexByte(rest, 0)
		if n < 0 {
			params = append(params, string(rest))
			rest = nil
			break
		}
		params = append(params, string(rest[:n]))
		rest = rest[n+1:]
	}
	return Pcal{Name: name, X0: x0, X1: x1, EquationType: eq, NumParams: np, UnitName: unit, Params: params}, nil
}

func (p Pcal) Encode() []byte {
	buf := make([]byte, 0, len(p.Name)+11+len(p.UnitName))
	buf = append(buf, p.Name...)
	buf = append(buf, 0)
	var x0, x1 [4]byte
	binary.BigEndian.PutUint32(x0[:], uint32(p.X0))
	binary.BigEndian.PutUint32(x1[:], uint32(p.X1))
	buf = append(buf, x0[:]...)
	buf = append(buf, x1[:]...)
	buf = append(buf, p.EquationType, p.NumParams)
	buf = append(buf, p.UnitName...)
	buf = append(buf, 0)
	for _, param := range p.Params {
		buf = append(buf, param...)
		buf = append(buf, 0)
	}
	return buf
}

// Offs is the oFFs chunk: image position on an abstract page.
type Offs struct {
	X, Y int32
	Unit uint8 // 0 = pixel, 1 = micrometer
}

func DecodeOffs(data []byte) (Offs, error) {
	if len(data) != 9 {
		return Offs{}, errors.New("png: oFFs length must be 9")
	}
	return Offs{
		X:    int32(binary.BigEndian.Uint32(data[0:4])),
		Y:    int32(binary.BigEndian.Uint32(data[4:8])),
		Unit: data[8],
	}, nil
}

func (o Offs) Encode() []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint32(buf[0:4], uint32(o.X))
	binary.BigEndian.PutUint32(buf[4:8], uint32(o.Y))
	buf[8] = o.Unit
	return buf
}

// Time is the tIME chunk: UTC last-modification timestamp. Grounded on
// the teacher's TIME struct and ToTime method in chunk.go.
type Time struct {
	Year                      uint16
	Month, Day                uint8
	Hour, Minute, Second      uint8
}

func DecodeTime(data []byte) (Time, error) {
	if len(data) != 7 {
		return Time{}, errors.New("png: tIME length must be 7")
	}
	return Time{
		Year: be16(data[0:2]), Month: data[2], Day: data[3],
		Hour: data[4], Minute: data[5], Second: data[6],
	}, nil
}

func (t Time) Encode() []byte {
	buf := make([]byte, 7)
	put16(buf[0:2], t.Year)
	buf[2], buf[3], buf[4], buf[5], buf[6] = t.Month, t.Day, t.Hour, t.Minute, t.Second
	return buf
}

// ToTime converts to a standard library time.Time in UTC, same as the
// teacher's ToTime.
func (t Time) ToTime() time.Time {
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day), int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}

func FromTime(t time.Time) Time {
	u := t.UTC()
	return Time{
		Year: uint16(u.Year()), Month: uint8(u.Month()), Day: uint8(u.Day()),
		Hour: uint8(u.Hour()), Minute: uint8(u.Minute()), Second: uint8(u.Second()),
	}
}

// Text is a tEXt chunk: an uncompressed Latin-1 keyword/text pair.
// Grounded on the teacher's TEXT struct in chunk.go, but split on the
// first NUL rather than requiring exactly one NUL in the whole payload
// (text may legally be empty, and must not be trimmed of meaningful
// trailing whitespace the way the teacher's strings.TrimSpace did).
type Text struct {
	Keyword string
	Value   string
}

func DecodeText(data []byte) (Text, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return Text{}, errors.New("png: tEXt missing keyword separator")
	}
	return Text{Keyword: string(data[:nul]), Value: string(data[nul+1:])}, nil
}

func (t Text) Encode() []byte {
	buf := make([]byte, 0, len(t.Keyword)+1+len(t.Value))
	buf = append(buf, t.Keyword...)
	buf = append(buf, 0)
	buf = append(buf, t.Value...)
	return buf
}

// Ztxt is a zTXt chunk: a keyword paired with a zlib-compressed Latin-1
// text blob. The compressed bytes are kept as-is here; the caller
// inflates through internal/deflate.
type Ztxt struct {
	Keyword           string
	CompressionMethod uint8
	CompressedText    []byte
}

func DecodeZtxt(data []byte) (Ztxt, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return Ztxt{}, errors.New("png: zTXt missing keyword separator")
	}
	if nul+1 >= len(data) {
		return Ztxt{}, errors.New("png: zTXt missing compression method")
	}
	return Ztxt{
		Keyword:           string(data[:nul]),
		CompressionMethod: data[nul+1],
		CompressedText:    append([]byte(nil), data[nul+2:]...),
	}, nil
}

func (z Ztxt) Encode() []byte {
	buf := make([]byte, 0, len(z.Keyword)+2+len(z.CompressedText))
	buf = append(buf, z.Keyword...)
	buf = append(buf, 0, z.CompressionMethod)
	buf = append(buf, z.CompressedText...)
	return buf
}

// Itxt is an iTXt chunk: an international text chunk with an optional
// language tag, translated keyword, and optional compression.
type Itxt struct {
	Keyword           string
	Compressed        bool
	CompressionMethod uint8
	LanguageTag       string
	TranslatedKeyword string
	Text              string // valid only if !Compressed
	CompressedText    []byte // valid only if Compressed
}

func DecodeItxt(data []byte) (Itxt, error) {
	kwEnd := bytes.IndexByte(data, 0)
	if kwEnd < 0 {
		return Itxt{}, errors.New("png: iTXt malformed field layout")
	}
	keyword := string(data[:kwEnd])
	// The compression flag and method are single raw bytes (either may
	// be 0), so they are read by position rather than split on NUL.
	if len(data) < kwEnd+3 {
		return Itxt{}, errors.New("png: iTXt missing compression flag or method")
	}
	compressed := data[kwEnd+1] != 0
	method := data[kwEnd+2]
	// The rest is languageTag\x00translatedKeyword\x00text.
	fields := bytes.SplitN(data[kwEnd+3:], []byte{0}, 3)
	if len(fields) != 3 {
		return Itxt{}, errors.New("png: iTXt missing translated-keyword separator")
	}
	lang := string(fields[0])
	translated := string(fields[1])
	payload := fields[2]
	it := Itxt{Keyword: keyword, Compressed: compressed, CompressionMethod: method,
		LanguageTag: lang, TranslatedKeyword: translated}
	if compressed {
		it.CompressedText = append([]byte(nil), payload...)
	} else {
		it.Text = string(payload)
	}
	return it, nil
}

func (it Itxt) Encode() []byte {
	var flag uint8
	if it.Compressed {
		flag = 1
	}
	buf := make([]byte, 0, 64+len(it.Text)+len(it.CompressedText))
	buf = append(buf, it.Keyword...)
	buf = append(buf, 0, flag, it.CompressionMethod)
	buf = append(buf, it.LanguageTag...)
	buf = append(buf, 0)
	buf = append(buf, it.TranslatedKeyword...)
	buf = append(buf, 0)
	if it.Compressed {
		buf = append(buf, it.CompressedText...)
	} else {
		buf = append(buf, it.Text...)
	}
	return buf
}

// Splt is an sPLT chunk: a named suggested palette with per-entry
// sample depth of 8 or 16 bits.
type Splt struct {
	Name       string
	SampleDepth uint8
	Entries    []SpltEntry
}

type SpltEntry struct {
	R, G, B, A uint16
	Frequency  uint16
}

func DecodeSplt(data []byte) (Splt, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return Splt{}, errors.New("png: sPLT missing name separator")
	}
	name := string(data[:nul])
	rest := data[nul+1:]
	if len(rest) < 1 {
		return Splt{}, errors.New("png: sPLT missing sample depth")
	}
	depth := rest[0]
	rest = rest[1:]
	var entrySize int
	switch depth {
	case 8:
		entrySize = 6
	case 16:
		entrySize = 10
	default:
		return Splt{}, errors.Errorf("png: sPLT sample depth %d invalid", depth)
	}
	if len(rest)%entrySize != 0 {
		return Splt{}, errors.New("png: sPLT entry data misaligned")
	}
	n := len(rest) / entrySize
	entries := make([]SpltEntry, n)
	for i := 0; i < n; i++ {
		e := rest[i*entrySize:]
		if depth == 8 {
			entries[i] = SpltEntry{
				R: uint16(e[0]), G: uint16(e[1]), B: uint16(e[2]), A: uint16(e[3]),
				Frequency: be16(e[4:6]),
			}
		} else {
			entries[i] = SpltEntry{
				R: be16(e[0:2]), G: be16(e[2:4]), B: be16(e[4:6]), A: be16(e[6:8]),
				Frequency: be16(e[8:10]),
			}
		}
	}
	return Splt{Name: name, SampleDepth: depth, Entries: entries}, nil
}

func (s Splt) Encode() []byte {
	buf := make([]byte, 0, len(s.Name)+2+len(s.Entries)*10)
	buf = append(buf, s.Name...)
	buf = append(buf, 0, s.SampleDepth)
	for _, e := range s.Entries {
		if s.SampleDepth == 8 {
			tail := make([]byte, 2)
			put16(tail, e.Frequency)
			buf = append(buf, uint8(e.R), uint8(e.G), uint8(e.B), uint8(e.A))
			buf = append(buf, tail...)
		} else {
			entry := make([]byte, 10)
			put16(entry[0:2], e.R)
			put16(entry[2:4], e.G)
			put16(entry[4:6], e.B)
			put16(entry[6:8], e.A)
			put16(entry[8:10], e.Frequency)
			buf = append(buf, entry...)
		}
	}
	return buf
}
