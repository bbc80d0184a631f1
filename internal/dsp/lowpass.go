package dsp

import (
	"fmt"
	"math"
)

// lowPassAlpha derives the single-pole smoothing coefficient for a cutoff
// frequency at the given sample rate, clamped to (0, 1].
func lowPassAlpha(cutoff float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("low pass: %w: %d", ErrInvalidRate, sampleRate)
	}
	if !(cutoff > 0) {
		return 0, fmt.Errorf("low pass: %w: %g", ErrInvalidCutoff, cutoff)
	}
	alpha := 1 - math.Exp(-2*math.Pi*cutoff/float64(sampleRate))
	switch {
	case alpha > 1:
		alpha = 1
	case alpha <= 0:
		alpha = math.SmallestNonzeroFloat64
	}
	return alpha, nil
}

// LowPass is a single-pole exponential smoothing filter for real samples.
// The state is seeded from the first sample it sees.
type LowPass struct {
	alpha  float64
	prev   float64
	primed bool
}

// NewLowPass creates a low-pass filter with the given cutoff in Hz.
func NewLowPass(cutoff float64, sampleRate int) (*LowPass, error) {
	alpha, err := lowPassAlpha(cutoff, sampleRate)
	if err != nil {
		return nil, err
	}
	return &LowPass{alpha: alpha}, nil
}

// Alpha returns the smoothing coefficient.
func (f *LowPass) Alpha() float64 {
	return f.alpha
}

// Filter applies the filter to a single sample.
func (f *LowPass) Filter(x float32) float32 {
	if !f.primed {
		f.prev = float64(x)
		f.primed = true
		return x
	}
	f.prev = f.alpha*float64(x) + (1-f.alpha)*f.prev
	return float32(f.prev)
}

// Process filters buf in place.
func (f *LowPass) Process(buf []float32) {
	for i, x := range buf {
		buf[i] = f.Filter(x)
	}
}

// ComplexLowPass applies a single-pole low-pass filter to the real and
// imaginary parts of a complex stream independently.
type ComplexLowPass struct {
	alpha  float64
	prev   complex128
	primed bool
}

// NewComplexLowPass creates a complex low-pass filter with the given cutoff in Hz.
func NewComplexLowPass(cutoff float64, sampleRate int) (*ComplexLowPass, error) {
	alpha, err := lowPassAlpha(cutoff, sampleRate)
	if err != nil {
		return nil, err
	}
	return &ComplexLowPass{alpha: alpha}, nil
}

// Alpha returns the smoothing coefficient.
func (f *ComplexLowPass) Alpha() float64 {
	return f.alpha
}

// Filter applies the filter to a single sample.
func (f *ComplexLowPass) Filter(x complex64) complex64 {
	in := complex128(x)
	if !f.primed {
		f.prev = in
		f.primed = true
		return x
	}
	re := f.alpha*real(in) + (1-f.alpha)*real(f.prev)
	im := f.alpha*imag(in) + (1-f.alpha)*imag(f.prev)
	f.prev = complex(re, im)
	return complex64(f.prev)
}

// Process filters buf in place.
func (f *ComplexLowPass) Process(buf []complex64) {
	for i, x := range buf {
		buf[i] = f.Filter(x)
	}
}

// state returns the last output at full precision.
func (f *ComplexLowPass) state() (complex128, bool) {
	return f.prev, f.primed
}

// restore replaces the filter history.
func (f *ComplexLowPass) restore(prev complex128, primed bool) {
	f.prev = prev
	f.primed = primed
}
