package filter

// Mask restricts which filter types the encoder may choose from, a
// bitmask over the five Type values (spec.md §4.5, "respect a
// caller-supplied filter-mask that may restrict candidates").
type Mask uint8

const (
	MaskNone  Mask = 1 << None
	MaskSub   Mask = 1 << Sub
	MaskUp    Mask = 1 << Up
	MaskAvg   Mask = 1 << Avg
	MaskPaeth Mask = 1 << Paeth
	MaskAll   Mask = MaskNone | MaskSub | MaskUp | MaskAvg | MaskPaeth
)

func (m Mask) allows(ft Type) bool { return m&(1<<ft) != 0 }

// Picker holds the per-candidate scratch rows an encoder reuses across
// scanlines, the same shape as the teacher lineage's `cr [nFilter][]uint8`
// buffer in rmamba-image/png/writer.go, generalized here to a named
// Count-sized array keyed by filter Type instead of a bare int index.
type Picker struct {
	scratch [Count][]byte
}

// NewPicker allocates scratch rows of length rowBytes (the filtered row
// length, equal to the raw row length — the filter byte itself is
// stored separately by the caller).
func NewPicker(rowBytes int) *Picker {
	p := &Picker{}
	for i := range p.scratch {
		p.scratch[i] = make([]byte, rowBytes)
	}
	return p
}

// Fast forces filter=None unconditionally, per spec.md §4.5's "fast"
// mode.
func Fast(dst, raw []byte) Type {
	copy(dst, raw)
	return None
}

// Pick selects a filter for raw (given prev, the previous unfiltered
// scanline) by the minimum-sum-of-absolute-signed-byte-values
// heuristic, restricted to the filters mask allows; ties favor the
// lowest filter index. It writes the chosen filtered row into p's
// scratch and returns it along with the filter type.
func (p *Picker) Pick(raw, prev []byte, bpp int, mask Mask) (Type, []byte) {
	bestType := None
	bestSum := -1
	var bestRow []byte
	for ft := Type(0); ft < Count; ft++ {
		if !mask.allows(ft) {
			continue
		}
		row := p.scratch[ft]
		Filter(ft, row, raw, prev, bpp)
		sum := sumAbsSigned(row)
		if bestSum < 0 || sum < bestSum {
			bestSum = sum
			bestType = ft
			bestRow = row
		}
	}
	if bestRow == nil {
		// mask excluded everything; fall back to None.
		Filter(None, p.scratch[None], raw, prev, bpp)
		return None, p.scratch[None]
	}
	return bestType, bestRow
}

// sumAbsSigned sums |b| where each byte is reinterpreted as a signed
// int8, the heuristic spec.md §4.5 specifies.
func sumAbsSigned(row []byte) int {
	sum := 0
	for _, b := range row {
		v := int(int8(b))
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum
}
