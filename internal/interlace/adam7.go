// Package interlace implements the Adam7 pass machine from spec.md §4.4:
// pass enumeration, per-pass dimensions, and row combination for
// library-driven progressive de-interlacing.
package interlace

// Pass describes one of the seven Adam7 passes.
type Pass struct {
	X0, Y0 int
	XInc, YInc int
}

// Passes is the fixed Adam7 offset/increment table from spec.md §4.4.
var Passes = [7]Pass{
	{X0: 0, Y0: 0, XInc: 8, YInc: 8},
	{X0: 4, Y0: 0, XInc: 8, YInc: 8},
	{X0: 0, Y0: 4, XInc: 4, YInc: 8},
	{X0: 2, Y0: 0, XInc: 4, YInc: 4},
	{X0: 0, Y0: 2, XInc: 2, YInc: 4},
	{X0: 1, Y0: 0, XInc: 2, YInc: 2},
	{X0: 0, Y0: 1, XInc: 1, YInc: 2},
}

// Dims returns the pass's pixel width/height for a W×H image, per the
// ceil((W-x0)/xi) formula in spec.md §4.4. A pass whose width or
// height would be negative (x0 or y0 >= W/H) reports 0, not negative.
func (p Pass) Dims(w, h int) (pw, ph int) {
	pw = ceilDiv(w-p.X0, p.XInc)
	ph = ceilDiv(h-p.Y0, p.YInc)
	return
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Active reports whether pass p contributes any pixels for a W×H
// image — passes with Wp=0 or Hp=0 are still counted but skipped in
// the filter/DEFLATE stream, per spec.md §4.4.
func (p Pass) Active(w, h int) bool {
	pw, ph := p.Dims(w, h)
	return pw > 0 && ph > 0
}

// RowY maps a pass-local row index to its full-image y coordinate.
func (p Pass) RowY(row int) int { return p.Y0 + row*p.YInc }

// ColX maps a pass-local column index to its full-image x coordinate.
func (p Pass) ColX(col int) int { return p.X0 + col*p.XInc }
