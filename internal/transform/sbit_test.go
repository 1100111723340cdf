package transform

import "testing"

func TestSBitExpandRescalesToFullRange(t *testing.T) {
	s := NewSBitExpand(8, 1, []uint8{3})
	dst := make([]byte, s.OutBytes(1))
	s.Apply(dst, []byte{7}) // max 3-bit value
	if dst[0] != 255 {
		t.Errorf("expand(7, sig=3) = %d, want 255", dst[0])
	}
}

func TestSBitExpandNoopWhenSigEqualsBitDepth(t *testing.T) {
	s := NewSBitExpand(8, 1, []uint8{8})
	dst := make([]byte, s.OutBytes(1))
	s.Apply(dst, []byte{42})
	if dst[0] != 42 {
		t.Errorf("expand with sig==bitDepth changed the sample: got %d, want 42", dst[0])
	}
}

func TestSBitShrinkIsApproximateInverseOfExpand(t *testing.T) {
	expand := NewSBitExpand(8, 1, []uint8{3})
	shrink := NewSBitShrink(8, 1, []uint8{3})
	expanded := make([]byte, expand.OutBytes(1))
	expand.Apply(expanded, []byte{7})
	shrunk := make([]byte, shrink.OutBytes(1))
	shrink.Apply(shrunk, expanded)
	if shrunk[0] != 7 {
		t.Errorf("shrink(expand(7)) = %d, want 7", shrunk[0])
	}
}
