// Package transform implements the ordered pixel-transform pipeline
// from spec.md §4.6: bit-depth/color-type conversion, gamma, alpha
// composition, channel swaps, and palette quantization, composed as a
// tagged list of stages per the redesign note in spec.md §9.
package transform

import "github.com/pkg/errors"

// Row is one scanline buffer, in whatever sample layout the stage
// currently operates on (channels * samples-per-channel, packed
// MSB-first within a byte for sub-8-bit depths).
type Row = []byte

// Stage is one named pixel-level transformation. Implementations live
// in stages.go, gamma.go, background.go, and quantize.go.
type Stage interface {
	// Name identifies the stage for diagnostics and ordering checks.
	Name() string
	// Apply transforms src into dst. dst must be pre-sized by the
	// caller (Pipeline.Compose computes each stage's output length).
	Apply(dst, src Row)
	// OutBytes returns the row length this stage produces for an image
	// of the given width, given its own input channel/depth shape.
	OutBytes(width int) int
}

var ErrStageOrder = errors.New("png: transform stage violates required ordering")

// Rank assigns every stage kind a position; Compose refuses to build a
// Pipeline whose stages are not non-decreasing in rank, enforcing
// spec.md §4.6's ordering rule ("gamma is applied... after expansion...
// before background compose, before quantization, before packing").
type Rank int

const (
	RankPaletteExpand Rank = iota
	RankTrnsToAlpha
	RankBitExpand
	RankGrayRGB
	RankSbit
	RankGamma
	RankBackground
	Rank16To8
	RankQuantize
	RankChannelSwap
	RankFiller
	RankInvert
	RankPack
)

// Tagged pairs a Stage with its ordering Rank. Build one with Tag and
// pass it to Compose.
type Tagged struct {
	Stage
	rank Rank
}

// Tag attaches an ordering Rank to a Stage for use with Compose.
func Tag(s Stage, rank Rank) Tagged { return Tagged{Stage: s, rank: rank} }

// Pipeline is a composed, ordered list of stages plus the fused-or-not
// sequence actually executed. Construct with Compose.
type Pipeline struct {
	stages []Stage
	width  int
}

// Compose validates stage ordering and builds a Pipeline for rows of
// the given pixel width. Adjacent stages that can be algebraically
// fused (bit-depth expand immediately followed by gamma) are collapsed
// into a single LUT pass by fuseAdjacent, per spec.md §4.6.
func Compose(width int, stages ...Tagged) (*Pipeline, error) {
	last := Rank(-1)
	for _, s := range stages {
		if s.rank < last {
			return nil, errors.Wrapf(ErrStageOrder, "%s after rank %d", s.Stage.Name(), last)
		}
		last = s.rank
	}
	fused := fuseAdjacent(stages)
	plain := make([]Stage, len(fused))
	for i, s := range fused {
		plain[i] = s
	}
	return &Pipeline{stages: plain, width: width}, nil
}

// Run applies every stage in sequence to src, returning the final row.
// Each stage writes into a freshly allocated row of its OutBytes length;
// no buffers are reused across stages or calls.
func (p *Pipeline) Run(src Row) Row {
	cur := src
	for _, s := range p.stages {
		out := make(Row, s.OutBytes(p.width))
		s.Apply(out, cur)
		cur = out
	}
	return cur
}

// Stages exposes the composed stage list, e.g. for tests asserting
// fusion occurred.
func (p *Pipeline) Stages() []Stage { return p.stages }
