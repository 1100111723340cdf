package interlace

import "testing"

func TestSampleSetSampleBitDepths(t *testing.T) {
	for _, bd := range []int{1, 2, 4, 8, 16} {
		row := make([]byte, 8)
		max := uint16(1)<<uint(bd) - 1
		for idx := 0; idx < 4; idx++ {
			SetSample(row, bd, idx, max)
			if got := Sample(row, bd, idx); got != max {
				t.Errorf("bitDepth %d: Sample(idx=%d) = %d, want %d", bd, idx, got, max)
			}
		}
	}
}

func TestSetSampleDoesNotDisturbNeighbors(t *testing.T) {
	row := make([]byte, 1)
	SetSample(row, 2, 0, 3)
	SetSample(row, 2, 1, 1)
	SetSample(row, 2, 2, 2)
	SetSample(row, 2, 3, 0)
	if Sample(row, 2, 0) != 3 || Sample(row, 2, 1) != 1 || Sample(row, 2, 2) != 2 || Sample(row, 2, 3) != 0 {
		t.Errorf("packed row = %08b, want samples 3,1,2,0", row[0])
	}
}

func TestCombineSparkle(t *testing.T) {
	// 4x4 image, 1 channel, 8-bit, pass 0 (every 2nd pixel both axes:
	// x0=0,xinc=2 emulated via a synthetic 2-step pass for the test).
	pass := Pass{X0: 0, Y0: 0, XInc: 2, YInc: 2}
	full := make([]byte, 4)
	passRow := []byte{0xAA} // single pixel, value 0xAA
	Combine(Sparkle, full, 0, pass, passRow, 8, 1, 4)
	if full[0] != 0xAA {
		t.Errorf("full[0] = %#x, want 0xaa", full[0])
	}
	if full[1] != 0 || full[2] != 0 || full[3] != 0 {
		t.Errorf("Sparkle mode touched pixels outside the pass, full = %v", full)
	}
}

func TestCombineBlockFillsNeighborhood(t *testing.T) {
	pass := Pass{X0: 0, Y0: 0, XInc: 2, YInc: 2}
	full := make([]byte, 4)
	passRow := []byte{0xAA}
	Combine(Block, full, 0, pass, passRow, 8, 1, 4)
	if full[0] != 0xAA || full[1] != 0xAA {
		t.Errorf("Block mode should replicate across the XInc-wide run, full = %v", full)
	}
	if full[2] != 0 || full[3] != 0 {
		t.Errorf("Block mode should not touch columns beyond destX+XInc, full = %v", full)
	}
}

func TestCombineStopsAtFullWidth(t *testing.T) {
	pass := Pass{X0: 0, Y0: 0, XInc: 1, YInc: 1}
	full := make([]byte, 2)
	passRow := []byte{1, 2, 3, 4}
	Combine(Sparkle, full, 0, pass, passRow, 8, 1, 2)
	if full[0] != 1 || full[1] != 2 {
		t.Errorf("full = %v, want [1 2]", full)
	}
}
