package transform

// backgroundCompose implements the "Background compose" stage from
// spec.md §4.6: merge alpha against a specified background, producing
// an opaque row (alpha is consumed, not passed through). The linear
// blend out = round((sample*alpha + bg*(max-alpha)) / max) is applied
// to whatever samples the stage receives; Compose ranks it after the
// gamma stage, so in a composed pipeline that has a gamma stage it
// blends gamma-corrected samples.
type backgroundCompose struct {
	bitDepth int
	channels int // color channels, not counting alpha
	bg       []uint16
}

// NewBackgroundCompose builds the stage. bg holds one value per color
// channel, in the row's current bit-depth space (the caller is
// responsible for having already expanded/scaled both the image and
// the bKGD value to the same bit depth, per S1/S2 in spec.md §8).
func NewBackgroundCompose(bitDepth, channels int, bg []uint16) Stage {
	return backgroundCompose{bitDepth: bitDepth, channels: channels, bg: bg}
}

func (s backgroundCompose) Name() string           { return "background-compose" }
func (s backgroundCompose) OutBytes(width int) int { return width * s.channels * bytesPerSample(s.bitDepth) }

func (s backgroundCompose) Apply(dst, src []byte) {
	maxVal := uint32(1)<<s.bitDepth - 1
	inCh := s.channels + 1
	n := len(src) / (inCh * bytesPerSample(s.bitDepth))
	for i := 0; i < n; i++ {
		alpha := uint32(sample(src, s.bitDepth, i*inCh+s.channels))
		for c := 0; c < s.channels; c++ {
			v := uint32(sample(src, s.bitDepth, i*inCh+c))
			bg := uint32(s.bg[c])
			out := (v*alpha + bg*(maxVal-alpha) + maxVal/2) / maxVal
			setSample(dst, s.bitDepth, i*s.channels+c, uint16(out))
		}
	}
}
