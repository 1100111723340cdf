package interlace

import "testing"

func TestPassDimsKnownImage(t *testing.T) {
	// An 8x8 image: each pass should contribute exactly one row/column
	// combination matching the classic Adam7 diagram.
	want := [7][2]int{
		{1, 1}, {1, 1}, {2, 1}, {2, 2}, {4, 2}, {4, 4}, {8, 4},
	}
	for i, p := range Passes {
		pw, ph := p.Dims(8, 8)
		if pw != want[i][0] || ph != want[i][1] {
			t.Errorf("pass %d Dims(8,8) = (%d,%d), want (%d,%d)", i, pw, ph, want[i][0], want[i][1])
		}
	}
}

func TestPassDimsTinyImageInactivePasses(t *testing.T) {
	// A 1x1 image is only covered by pass 0 (the corner pixel).
	for i, p := range Passes {
		active := p.Active(1, 1)
		if i == 0 && !active {
			t.Error("pass 0 should be active for a 1x1 image")
		}
		if i != 0 && active {
			t.Errorf("pass %d should be inactive for a 1x1 image", i)
		}
	}
}

func TestPassRowYColX(t *testing.T) {
	p := Passes[3] // X0:2, Y0:0, XInc:4, YInc:4
	if got := p.RowY(0); got != 0 {
		t.Errorf("RowY(0) = %d, want 0", got)
	}
	if got := p.RowY(2); got != 8 {
		t.Errorf("RowY(2) = %d, want 8", got)
	}
	if got := p.ColX(0); got != 2 {
		t.Errorf("ColX(0) = %d, want 2", got)
	}
	if got := p.ColX(3); got != 14 {
		t.Errorf("ColX(3) = %d, want 14", got)
	}
}

func TestPassDimsSumsToFullImage(t *testing.T) {
	w, h := 37, 29 // deliberately not a multiple of 8
	total := 0
	for _, p := range Passes {
		pw, ph := p.Dims(w, h)
		total += pw * ph
	}
	if total != w*h {
		t.Errorf("sum of pass pixel counts = %d, want %d", total, w*h)
	}
}
