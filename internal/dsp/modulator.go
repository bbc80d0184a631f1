package dsp

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// AudioSource is a sequential reader of normalised mono audio. Next returns
// samples in [-1, 1] from the first channel and io.EOF once exhausted.
type AudioSource interface {
	SampleRate() int
	Len() int
	Channels() int
	Next() (float32, error)
}

// ModulatorConfig describes the transmit chain.
type ModulatorConfig struct {
	// SampleRate is the RF output rate.
	SampleRate int
	// Bandwidth is the frequency deviation in Hz for a full-scale sample.
	Bandwidth float64
	// RoundRatio accepts an RF rate that is not an exact multiple of the
	// audio rate by rounding the ratio to the nearest integer. Without it
	// that is an error.
	RoundRatio bool
}

// Modulator produces a phase-continuous FM IQ stream from an audio source,
// one sample per call.
type Modulator struct {
	src        AudioSource
	audioRate  int
	audioTotal int
	sampleRate uint64
	ratio      uint64
	bandwidth  float64

	i       uint64
	phase   float64
	sample  float32
	next    float32
	drained bool
	err     error
}

// NewModulator validates the rates and creates a modulator reading from src.
func NewModulator(src AudioSource, cfg ModulatorConfig) (*Modulator, error) {
	audioRate := src.SampleRate()
	if cfg.SampleRate <= 0 || audioRate <= 0 {
		return nil, fmt.Errorf("modulator: %w: rf %d, audio %d", ErrInvalidRate, cfg.SampleRate, audioRate)
	}
	if cfg.SampleRate < audioRate {
		return nil, fmt.Errorf("modulator: %w: rf %d, audio %d", ErrRateOrder, cfg.SampleRate, audioRate)
	}
	if cfg.SampleRate%audioRate != 0 && !cfg.RoundRatio {
		return nil, fmt.Errorf("modulator: %w: rf %d, audio %d", ErrFractionalRatio, cfg.SampleRate, audioRate)
	}
	if !(cfg.Bandwidth > 0) {
		return nil, fmt.Errorf("modulator: %w: %g", ErrInvalidBandwidth, cfg.Bandwidth)
	}
	ratio := max(uint64(math.Round(float64(cfg.SampleRate)/float64(audioRate))), 1)
	return &Modulator{
		src:        src,
		audioRate:  audioRate,
		audioTotal: src.Len(),
		sampleRate: uint64(cfg.SampleRate),
		ratio:      ratio,
		bandwidth:  cfg.Bandwidth,
	}, nil
}

// Ratio returns the number of RF samples generated per audio sample.
func (m *Modulator) Ratio() int {
	return int(m.ratio)
}

// Phase returns the accumulated carrier phase in radians. It is never wrapped.
func (m *Modulator) Phase() float64 {
	return m.phase
}

// Exhausted reports whether the audio source has run out.
func (m *Modulator) Exhausted() bool {
	return m.drained
}

// Err returns the first read error other than io.EOF from the audio source.
func (m *Modulator) Err() error {
	return m.err
}

// Progress estimates the fraction of the audio that has been modulated.
// It never decreases and never exceeds 1.
func (m *Modulator) Progress() float64 {
	if m.audioTotal <= 0 {
		return 1
	}
	t := float64(m.i) / float64(m.sampleRate) * float64(m.audioRate) / float64(m.audioTotal)
	return math.Min(t, 1)
}

// Sample returns the next unit-magnitude IQ sample.
func (m *Modulator) Sample() complex64 {
	step := m.i % m.ratio
	if step == 0 {
		m.sample = m.next
		m.next = m.read()
	}
	m.i++

	t := float32(step) / float32(m.ratio)
	deviation := float64(Lerp(m.sample, m.next, t)) * m.bandwidth
	m.phase += 2 * math.Pi * deviation / float64(m.sampleRate)

	sin, cos := math.Sincos(m.phase)
	return complex(float32(cos), float32(sin))
}

// Fill writes len(buf) consecutive samples into buf.
func (m *Modulator) Fill(buf []complex64) {
	for i := range buf {
		buf[i] = m.Sample()
	}
}

// read pulls the next audio sample, substituting silence once the source is
// exhausted or fails.
func (m *Modulator) read() float32 {
	if m.drained {
		return 0
	}
	x, err := m.src.Next()
	if err != nil {
		m.drained = true
		if !errors.Is(err, io.EOF) {
			m.err = err
		}
		return 0
	}
	return x
}
