package meta

import (
	"bytes"
	"testing"
	"time"
)

func TestGamaRoundTrip(t *testing.T) {
	g := Gama{Gamma100000: 45455}
	got, err := DecodeGama(g.Encode())
	if err != nil {
		t.Fatalf("DecodeGama: %v", err)
	}
	if got != g {
		t.Errorf("got %+v, want %+v", got, g)
	}
	if v := g.Value(); v < 0.4545 || v > 0.4546 {
		t.Errorf("Value() = %v", v)
	}
}

func TestSrgbRangeCheck(t *testing.T) {
	if _, err := DecodeSrgb([]byte{4}); err == nil {
		t.Fatal("want error for an out-of-range rendering intent")
	}
	s, err := DecodeSrgb([]byte{1})
	if err != nil || s.Intent != 1 {
		t.Errorf("DecodeSrgb: %+v, %v", s, err)
	}
}

func TestIccpRoundTrip(t *testing.T) {
	i := Iccp{Name: "profile", CompressionMethod: 0, CompressedProfile: []byte{1, 2, 3}}
	got, err := DecodeIccp(i.Encode())
	if err != nil {
		t.Fatalf("DecodeIccp: %v", err)
	}
	if got.Name != i.Name || !bytes.Equal(got.CompressedProfile, i.CompressedProfile) {
		t.Errorf("got %+v, want %+v", got, i)
	}
}

func TestBkgdPerColorType(t *testing.T) {
	b := Bkgd{R: 1, G: 2, B: 3}
	got, err := DecodeBkgd(b.Encode(RGB), RGB)
	if err != nil || got.R != 1 || got.G != 2 || got.B != 3 {
		t.Errorf("DecodeBkgd: %+v, %v", got, err)
	}
	pb := Bkgd{PaletteIndex: 7}
	got2, err := DecodeBkgd(pb.Encode(Palette), Palette)
	if err != nil || got2.PaletteIndex != 7 {
		t.Errorf("DecodeBkgd palette: %+v, %v", got2, err)
	}
}

func TestScalRoundTrip(t *testing.T) {
	s := Scal{Unit: 1, Width: 0.025, Height: 0.025}
	got, err := DecodeScal(s.Encode())
	if err != nil {
		t.Fatalf("DecodeScal: %v", err)
	}
	if got.Unit != s.Unit || got.Width != s.Width || got.Height != s.Height {
		t.Errorf("got %+v, want %+v", got, s)
	}
}

func TestPcalRoundTrip(t *testing.T) {
	p := Pcal{
		Name: "Linear", X0: -10, X1: 10, EquationType: 0, NumParams: 2,
		UnitName: "Celsius", Params: []string{"1.0", "2.0"},
	}
	got, err := DecodePcal(p.Encode())
	if err != nil {
		t.Fatalf("DecodePcal: %v", err)
	}
	if got.Name != p.Name || got.X0 != p.X0 || got.X1 != p.X1 || got.UnitName != p.UnitName {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if len(got.Params) != len(p.Params) || got.Params[0] != p.Params[0] || got.Params[1] != p.Params[1] {
		t.Errorf("Params = %v, want %v", got.Params, p.Params)
	}
}

func TestOffsRoundTrip(t *testing.T) {
	o := Offs{X: -100, Y: 200, Unit: 1}
	got, err := DecodeOffs(o.Encode())
	if err != nil || got != o {
		t.Errorf("got %+v, want %+v, err %v", got, o, err)
	}
}

func TestTimeRoundTripAndConversion(t *testing.T) {
	want := time.Date(2024, time.March, 5, 13, 45, 30, 0, time.UTC)
	tm := FromTime(want)
	got, err := DecodeTime(tm.Encode())
	if err != nil {
		t.Fatalf("DecodeTime: %v", err)
	}
	if !got.ToTime().Equal(want) {
		t.Errorf("ToTime() = %v, want %v", got.ToTime(), want)
	}
}

func TestTextRoundTrip(t *testing.T) {
	tx := Text{Keyword: "Comment", Value: "hello, world"}
	got, err := DecodeText(tx.Encode())
	if err != nil || got != tx {
		t.Errorf("got %+v, want %+v, err %v", got, tx, err)
	}
}

func TestItxtRoundTripCompressed(t *testing.T) {
	it := Itxt{
		Keyword: "Title", Compressed: true, CompressionMethod: 0,
		LanguageTag: "en", TranslatedKeyword: "Titre", CompressedText: []byte{9, 8, 7},
	}
	got, err := DecodeItxt(it.Encode())
	if err != nil {
		t.Fatalf("DecodeItxt: %v", err)
	}
	if got.Keyword != it.Keyword || got.LanguageTag != it.LanguageTag ||
		got.TranslatedKeyword != it.TranslatedKeyword || !bytes.Equal(got.CompressedText, it.CompressedText) {
		t.Errorf("got %+v, want %+v", got, it)
	}
}

func TestSpltRoundTrip8And16(t *testing.T) {
	s8 := Splt{Name: "small", SampleDepth: 8, Entries: []SpltEntry{{R: 1, G: 2, B: 3, A: 4, Frequency: 5}}}
	got8, err := DecodeSplt(s8.Encode())
	if err != nil {
		t.Fatalf("DecodeSplt (8-bit): %v", err)
	}
	if got8.Name != s8.Name || len(got8.Entries) != 1 || got8.Entries[0] != s8.Entries[0] {
		t.Errorf("got %+v, want %+v", got8, s8)
	}

	s16 := Splt{Name: "big", SampleDepth: 16, Entries: []SpltEntry{{R: 1000, G: 2000, B: 3000, A: 4000, Frequency: 5000}}}
	got16, err := DecodeSplt(s16.Encode())
	if err != nil {
		t.Fatalf("DecodeSplt (16-bit): %v", err)
	}
	if got16.Entries[0] != s16.Entries[0] {
		t.Errorf("got %+v, want %+v", got16.Entries[0], s16.Entries[0])
	}
}
