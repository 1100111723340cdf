package pnglib

import (
	"bytes"
	"testing"
)

func TestSimpleRGB8RoundTrip(t *testing.T) {
	img := &Image{
		Format: Format{Layout: LayoutRGB, BitDepth: 8},
		Width:  2, Height: 1,
		Pixels: []byte{1, 2, 3, 4, 5, 6},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, img.Format); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, img.Format)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Pixels, img.Pixels) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, img.Pixels)
	}
}

func TestSimpleGray8RoundTrip(t *testing.T) {
	format := Format{Layout: LayoutGray, BitDepth: 8}
	img := &Image{Format: format, Width: 3, Height: 1, Pixels: []byte{10, 20, 30}}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, format)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Pixels, img.Pixels) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, img.Pixels)
	}
}

func TestSimpleRGBARoundTrip(t *testing.T) {
	format := Format{Layout: LayoutRGBA, BitDepth: 8}
	img := &Image{
		Format: format, Width: 1, Height: 1,
		Pixels: []byte{100, 150, 200, 128},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, format)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Pixels, img.Pixels) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, img.Pixels)
	}
}

func TestSimpleBGRSwapsChannelsOnEncodeAndDecode(t *testing.T) {
	format := Format{Layout: LayoutBGR, BitDepth: 8}
	img := &Image{Format: format, Width: 1, Height: 1, Pixels: []byte{1, 2, 3}}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, format)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Pixels, img.Pixels) {
		t.Errorf("Pixels = %v, want %v (BGR round trip should be stable)", got.Pixels, img.Pixels)
	}
}

func TestSimpleDecodeStripsAlphaAgainstOpaqueWhiteDefault(t *testing.T) {
	srcFormat := Format{Layout: LayoutRGBA, BitDepth: 8}
	src := &Image{
		Format: srcFormat, Width: 1, Height: 1,
		Pixels: []byte{10, 20, 30, 0}, // fully transparent
	}
	var buf bytes.Buffer
	if err := Encode(&buf, src, srcFormat); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, Format{Layout: LayoutRGB, BitDepth: 8})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{255, 255, 255}
	if !bytes.Equal(got.Pixels, want) {
		t.Errorf("Pixels = %v, want opaque white %v", got.Pixels, want)
	}
}

func TestSimpleDecodeStripsAlphaAgainstCustomBackground(t *testing.T) {
	srcFormat := Format{Layout: LayoutRGBA, BitDepth: 8}
	src := &Image{
		Format: srcFormat, Width: 1, Height: 1,
		Pixels: []byte{10, 20, 30, 0},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, src, srcFormat); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, Format{Layout: LayoutRGB, BitDepth: 8}, WithDecodeBackground([]uint16{1, 2, 3}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{1, 2, 3}
	if !bytes.Equal(got.Pixels, want) {
		t.Errorf("Pixels = %v, want background %v", got.Pixels, want)
	}
}

func TestSimpleColormapRoundTrip(t *testing.T) {
	format := Format{Colormap: true, BitDepth: 8}
	img := &Image{
		Format: format, Width: 2, Height: 1,
		Pixels:  []byte{0, 1},
		Palette: []RGB8{{R: 10, G: 20, B: 30}, {R: 40, G: 50, B: 60}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, format)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Pixels, img.Pixels) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, img.Pixels)
	}
	if len(got.Palette) != 2 || got.Palette[0] != img.Palette[0] || got.Palette[1] != img.Palette[1] {
		t.Errorf("Palette = %v, want %v", got.Palette, img.Palette)
	}
}

func TestUnpremultiplyChannelFullyOpaque(t *testing.T) {
	if got := unpremultiplyChannel(0xffff, 0xffff); got != 255 {
		t.Errorf("unpremultiplyChannel(0xffff,0xffff) = %d, want 255", got)
	}
}

func TestUnpremultiplyChannelHalfAlphaPremultipliedMax(t *testing.T) {
	if got := unpremultiplyChannel(0x8000, 0x8000); got != 255 {
		t.Errorf("unpremultiplyChannel(0x8000,0x8000) = %d, want 255", got)
	}
}

func TestUnpremultiplyChannelLowAlphaFallsBackToPlainScale(t *testing.T) {
	// alpha=0x4000 scales to 64 (<128), so the low-alpha special case
	// applies and the color channel is scaled directly, ignoring alpha.
	if got := unpremultiplyChannel(0x1000, 0x4000); got != 16 {
		t.Errorf("unpremultiplyChannel(0x1000,0x4000) = %d, want 16 (plain scale16to8)", got)
	}
}

func TestEncodeWithOutputBitDepthAndPremultipliedAlpha(t *testing.T) {
	format := Format{Layout: LayoutRGBA, BitDepth: 16}
	pixels := make([]byte, 8)
	// one RGBA16 pixel, fully opaque white, premultiplied (R=G=B=alpha=0xffff)
	for i := 0; i < 4; i++ {
		pixels[i*2] = 0xff
		pixels[i*2+1] = 0xff
	}
	img := &Image{Format: format, Width: 1, Height: 1, Pixels: pixels}
	var buf bytes.Buffer
	err := Encode(&buf, img, format, WithOutputBitDepth(8), WithPremultipliedAlpha())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf, Format{Layout: LayoutRGBA, BitDepth: 8})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{255, 255, 255, 255}
	if !bytes.Equal(got.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, want)
	}
}

func TestDecodeRejectsUnsupportedBitDepth(t *testing.T) {
	var buf bytes.Buffer
	img := &Image{Format: Format{Layout: LayoutGray, BitDepth: 8}, Width: 1, Height: 1, Pixels: []byte{1}}
	if err := Encode(&buf, img, img.Format); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(&buf, Format{Layout: LayoutGray, BitDepth: 4}); err == nil {
		t.Fatal("want an error for an unsupported output bit depth")
	}
}
