package transform

import "testing"

func TestQuantizePicksNearestPaletteEntry(t *testing.T) {
	pal := []RGBA8{{R: 0, G: 0, B: 0}, {R: 255, G: 255, B: 255}}
	q := NewQuantize(3, pal, nil)
	dst := make([]byte, q.OutBytes(2))
	q.Apply(dst, []byte{10, 10, 10, 240, 240, 240})
	if dst[0] != 0 {
		t.Errorf("nearest(10,10,10) = %d, want palette index 0 (black)", dst[0])
	}
	if dst[1] != 1 {
		t.Errorf("nearest(240,240,240) = %d, want palette index 1 (white)", dst[1])
	}
}

func TestQuantizePrefersUsedEntryOnExactTie(t *testing.T) {
	pal := []RGBA8{{R: 0, G: 0, B: 0}, {R: 10, G: 10, B: 10}}
	hist := []int{0, 5} // palette[0] unused, palette[1] used
	q := NewQuantize(3, pal, hist)
	dst := make([]byte, q.OutBytes(1))
	q.Apply(dst, []byte{5, 5, 5}) // equidistant from both entries
	if dst[0] != 1 {
		t.Errorf("tie-break chose index %d, want 1 (the used entry)", dst[0])
	}
}
