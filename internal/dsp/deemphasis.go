package dsp

import "fmt"

// Deemphasis is the first-order RC low-pass that undoes broadcast FM
// pre-emphasis.
type Deemphasis struct {
	alpha float64
	prev  float64
}

// NewDeemphasis creates a de-emphasis filter for audio at sampleRate.
// tau is the time constant (50e-6 for Europe, 75e-6 for the US).
func NewDeemphasis(sampleRate int, tau float64) (*Deemphasis, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("deemphasis: %w: %d", ErrInvalidRate, sampleRate)
	}
	if !(tau > 0) {
		return nil, fmt.Errorf("deemphasis: invalid time constant %g", tau)
	}
	dt := 1.0 / float64(sampleRate)
	return &Deemphasis{alpha: dt / (tau + dt)}, nil
}

// Filter applies the de-emphasis filter to a single sample.
func (d *Deemphasis) Filter(x float64) float64 {
	d.prev += d.alpha * (x - d.prev)
	return d.prev
}

// Process filters an audio block in place.
func (d *Deemphasis) Process(buf []float32) {
	for i, x := range buf {
		buf[i] = float32(d.Filter(float64(x)))
	}
}
