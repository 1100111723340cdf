// Package filter implements the five PNG scanline filters and the
// write-side filter-selection heuristic from spec.md §4.5.
package filter

import "github.com/pkg/errors"

// Type is the one-byte filter selector prepended to every scanline.
type Type uint8

const (
	None Type = 0
	Sub  Type = 1
	Up   Type = 2
	Avg  Type = 3
	Paeth Type = 4

	Count = 5
)

var ErrUnknownFilter = errors.New("png: unknown scanline filter type")

// Unfilter reverses the filter applied to cur in place. prev is the
// already-unfiltered previous scanline (all zero for the first row of
// a pass, per spec.md §4.5); bpp is max(1, ceil(channels*bitdepth/8)).
// cur and prev must not include the leading filter-type byte.
func Unfilter(ft Type, cur, prev []byte, bpp int) error {
	switch ft {
	case None:
		return nil
	case Sub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
		return nil
	case Up:
		for i := range cur {
			cur[i] += up(prev, i)
		}
		return nil
	case Avg:
		for i := range cur {
			var left byte
			if i >= bpp {
				left = cur[i-bpp]
			}
			cur[i] += byte((int(left) + int(up(prev, i))) / 2)
		}
		return nil
	case Paeth:
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = up(prev, i-bpp)
			}
			cur[i] += paeth(left, up(prev, i), upLeft)
		}
		return nil
	default:
		return errors.Wrapf(ErrUnknownFilter, "%d", ft)
	}
}

// up returns prev[i], or 0 if prev is nil/out of range/i<0 — the "first
// row of a pass treats up as 0" rule.
func up(prev []byte, i int) byte {
	if prev == nil || i < 0 || i >= len(prev) {
		return 0
	}
	return prev[i]
}

// paeth is the Paeth predictor from spec.md §4.5: pick whichever of
// left/up/upLeft is closest to p = left+up-upLeft.
func paeth(left, up, upLeft byte) byte {
	p := int(left) + int(up) - int(upLeft)
	pa := abs(p - int(left))
	pb := abs(p - int(up))
	pc := abs(p - int(upLeft))
	switch {
	case pa <= pb && pa <= pc:
		return left
	case pb <= pc:
		return up
	default:
		return upLeft
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Filter applies filter ft to raw (given prev, the already-unfiltered
// previous scanline) writing the result into dst, which must be the
// same length as raw. Unlike Unfilter, Filter does not mutate raw.
func Filter(ft Type, dst, raw, prev []byte, bpp int) {
	switch ft {
	case None:
		copy(dst, raw)
	case Sub:
		for i := range raw {
			var left byte
			if i >= bpp {
				left = raw[i-bpp]
			}
			dst[i] = raw[i] - left
		}
	case Up:
		for i := range raw {
			dst[i] = raw[i] - up(prev, i)
		}
	case Avg:
		for i := range raw {
			var left byte
			if i >= bpp {
				left = raw[i-bpp]
			}
			dst[i] = raw[i] - byte((int(left)+int(up(prev, i)))/2)
		}
	case Paeth:
		for i := range raw {
			var left, upLeft byte
			if i >= bpp {
				left = raw[i-bpp]
				upLeft = up(prev, i-bpp)
			}
			dst[i] = raw[i] - paeth(left, up(prev, i), upLeft)
		}
	}
}
