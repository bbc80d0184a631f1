package dsp

import (
	"fmt"
	"math"
)

// Mixer shifts the centre frequency of a complex stream by a fixed offset.
// The rotation angle is computed from the absolute sample index, so there is
// no accumulated phase to drift. The index is owned by the caller.
type Mixer struct {
	offset float64
	rate   float64
}

// NewMixer creates a mixer that shifts by offset Hz at the given sample rate.
func NewMixer(offset float64, sampleRate int) (*Mixer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("mixer: %w: %d", ErrInvalidRate, sampleRate)
	}
	return &Mixer{offset: offset, rate: float64(sampleRate)}, nil
}

// Offset returns the frequency shift in Hz.
func (m *Mixer) Offset() float64 {
	return m.offset
}

// Mix rotates x by 2π·offset·n/rate.
func (m *Mixer) Mix(x complex64, n uint64) complex64 {
	// Only the fractional cycle matters; reducing first keeps the argument
	// to Sincos small for large n.
	cycles := math.Mod(m.offset*float64(n), m.rate) / m.rate
	sin, cos := math.Sincos(2 * math.Pi * cycles)
	re, im := float64(real(x)), float64(imag(x))
	return complex(float32(re*cos-im*sin), float32(re*sin+im*cos))
}

// Process mixes buf in place. The first element is treated as sample index
// start and the returned value is the index following the last element.
func (m *Mixer) Process(buf []complex64, start uint64) uint64 {
	for i, x := range buf {
		buf[i] = m.Mix(x, start+uint64(i))
	}
	return start + uint64(len(buf))
}
