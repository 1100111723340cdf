package transform

// quantize implements the "Dither / quantize" stage from spec.md §4.6:
// 8-bit RGB(A) -> <=256-entry palette via a user-supplied palette and
// an optional histogram, grounded on original_source/pngwrite.c's
// png_do_quantize nearest-entry search (plain nearest-RGB; when a
// histogram is supplied, entries with a zero count get a +1 penalty on
// their squared distance, and other counts do not affect the choice).
type quantize struct {
	channels int // 3 or 4 (RGB or RGBA input)
	palette  []RGBA8
	hist     []int // optional per-palette-entry weight, same length as palette
}

// NewQuantize builds the stage. hist may be nil for unweighted nearest
// search.
func NewQuantize(channels int, palette []RGBA8, hist []int) Stage {
	return quantize{channels: channels, palette: palette, hist: hist}
}

func (q quantize) Name() string           { return "quantize" }
func (q quantize) OutBytes(width int) int { return width }

func (q quantize) Apply(dst, src []byte) {
	n := len(dst)
	for i := 0; i < n; i++ {
		o := i * q.channels
		r, g, b := src[o], src[o+1], src[o+2]
		dst[i] = byte(q.nearest(r, g, b))
	}
}

func (q quantize) nearest(r, g, b byte) int {
	best, bestD := 0, -1
	for i, e := range q.palette {
		dr := int(r) - int(e.R)
		dg := int(g) - int(e.G)
		db := int(b) - int(e.B)
		d := dr*dr + dg*dg + db*db
		if len(q.hist) == len(q.palette) && q.hist[i] == 0 {
			// An entry with zero observed usage is a worse match at an
			// equal distance, per png_do_quantize's preference for
			// palette entries the image actually exercises.
			d += 1
		}
		if bestD < 0 || d < bestD {
			bestD, best = d, i
		}
	}
	return best
}
