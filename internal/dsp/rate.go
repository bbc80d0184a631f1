package dsp

import (
	"fmt"
	"math"
)

// Decimator keeps every Nth sample of a real stream. It does no filtering of
// its own; an upstream low-pass is expected to limit aliasing.
type Decimator struct {
	ratio int
	phase int
}

// NewDecimator creates a decimator from inRate down to outRate. The ratio is
// rounded to the nearest integer.
func NewDecimator(inRate, outRate int) (*Decimator, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("decimator: %w: %d -> %d", ErrInvalidRate, inRate, outRate)
	}
	ratio := int(math.Round(float64(inRate) / float64(outRate)))
	if ratio < 1 {
		return nil, fmt.Errorf("decimator: %w: %d -> %d", ErrInvalidRatio, inRate, outRate)
	}
	return &Decimator{ratio: ratio}, nil
}

// Ratio returns the decimation factor.
func (d *Decimator) Ratio() int {
	return d.ratio
}

// Process appends the retained samples of src to dst. The decimation phase
// carries over between calls.
func (d *Decimator) Process(dst, src []float32) []float32 {
	i := 0
	if d.phase != 0 {
		i = d.ratio - d.phase
	}
	for ; i < len(src); i += d.ratio {
		dst = append(dst, src[i])
	}
	d.phase = (d.phase + len(src)) % d.ratio
	return dst
}

// Lerp linearly interpolates between a and b at fraction t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
