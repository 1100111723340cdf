package meta

import "testing"

func baseStore() *Store {
	return &Store{IHDR: IHDR{Width: 2, Height: 2, BitDepth: 8, ColorType: RGBA}}
}

func TestStoreValidateOK(t *testing.T) {
	if err := baseStore().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestStoreValidateSrgbIccpConflict(t *testing.T) {
	s := baseStore()
	s.Srgb = &Srgb{}
	s.Iccp = &Iccp{Name: "profile"}
	if err := s.Validate(); err == nil {
		t.Fatal("want error for simultaneous sRGB and iCCP")
	}
}

func TestStoreValidateSbitWidth(t *testing.T) {
	s := baseStore()
	s.Sbit = &Sbit{Depths: []uint8{8, 8}} // RGBA wants 4
	if err := s.Validate(); err == nil {
		t.Fatal("want error for sBIT depth count mismatch")
	}
	s.Sbit = &Sbit{Depths: []uint8{5, 5, 5, 9}} // 9 exceeds an 8-bit sample
	if err := s.Validate(); err == nil {
		t.Fatal("want error for sBIT depth exceeding sample depth")
	}
}

func TestStoreValidateHistRequiresPalette(t *testing.T) {
	s := baseStore()
	s.IHDR.ColorType = Palette
	s.IHDR.BitDepth = 8
	s.Hist = &Hist{Frequencies: []uint16{1, 2}}
	if err := s.Validate(); err == nil {
		t.Fatal("want error for hIST without PLTE")
	}
	s.Palette = &Palette{Entries: []RGB8{{}, {}, {}}}
	if err := s.Validate(); err == nil {
		t.Fatal("want error for hIST length not matching PLTE")
	}
	s.Palette = &Palette{Entries: []RGB8{{}, {}}}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStoreValidateDuplicateSplt(t *testing.T) {
	s := baseStore()
	s.Splt = []Splt{{Name: "palette1"}, {Name: "palette1"}}
	if err := s.Validate(); err == nil {
		t.Fatal("want error for duplicate sPLT name")
	}
}

func TestStoreMaxPaletteIndex(t *testing.T) {
	s := baseStore()
	if got := s.MaxPaletteIndex(); got != -1 {
		t.Errorf("MaxPaletteIndex with no PLTE = %d, want -1", got)
	}
	s.Palette = &Palette{Entries: []RGB8{{}, {}, {}}}
	if got := s.MaxPaletteIndex(); got != 2 {
		t.Errorf("MaxPaletteIndex = %d, want 2", got)
	}
}
