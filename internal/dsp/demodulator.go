package dsp

import (
	"fmt"
	"math/cmplx"
)

// DCMode selects how the demodulator removes DC bias from its audio output.
type DCMode int

const (
	// DCPerChunk subtracts the mean of the samples produced by each call.
	DCPerChunk DCMode = iota
	// DCRunning subtracts the mean of every sample produced so far.
	DCRunning
	// DCOff leaves the discriminator bias in place.
	DCOff
)

// ParseDCMode converts a config string to a DCMode.
func ParseDCMode(s string) (DCMode, error) {
	switch s {
	case "chunk", "":
		return DCPerChunk, nil
	case "running":
		return DCRunning, nil
	case "off", "none":
		return DCOff, nil
	default:
		return 0, fmt.Errorf("dsp: unknown dc mode %q", s)
	}
}

func (m DCMode) String() string {
	switch m {
	case DCPerChunk:
		return "chunk"
	case DCRunning:
		return "running"
	case DCOff:
		return "off"
	default:
		return "unknown"
	}
}

// Discriminate appends the polar discriminator output of each adjacent pair
// in samples to dst: the phase of b·conj(a), scaled by gain. The result has
// one fewer sample than the input.
func Discriminate(dst []float32, samples []complex64, gain float32) []float32 {
	for i := 1; i < len(samples); i++ {
		prev, current := samples[i-1], samples[i]
		// Multiply the current sample by the conjugate of the previous one.
		// The angle of the product is the phase difference.
		prevConjugate := complex(real(prev), -imag(prev))
		p := current * prevConjugate
		dst = append(dst, float32(cmplx.Phase(complex128(p)))*gain)
	}
	return dst
}

// DemodulatorConfig describes the receive chain.
type DemodulatorConfig struct {
	// SampleRate is the RF sample rate of the incoming IQ stream.
	SampleRate int
	// AudioRate is the target audio sample rate.
	AudioRate int
	// Offset is the mixer shift in Hz that brings the station to DC.
	Offset float64
	// IFCutoff isolates the channel before the discriminator.
	IFCutoff float64
	// AudioCutoff smooths the discriminator output before decimation.
	AudioCutoff float64
	// Gain scales the discriminator output.
	Gain float32
	DC   DCMode
}

// Demodulator turns chunks of raw IQ samples into audio. All filter and
// decimation state carries across calls, so a stream split into any chunk
// sizes produces the same audio as a single call, apart from per-chunk DC
// removal.
type Demodulator struct {
	cfg      DemodulatorConfig
	mixer    *Mixer
	ifFilter *ComplexLowPass
	afFilter *LowPass
	decim    *Decimator

	// last raw sample of the previous chunk
	last complex64
	// index of last in the mixer's sample count
	index uint64
	// IF filter history before last was filtered
	ifPrev   complex128
	ifPrimed bool

	dcSum   float64
	dcCount uint64

	work  []complex64
	phase []float32
}

// NewDemodulator validates cfg and creates a demodulator.
func NewDemodulator(cfg DemodulatorConfig) (*Demodulator, error) {
	mixer, err := NewMixer(cfg.Offset, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("demodulator: %w", err)
	}
	ifFilter, err := NewComplexLowPass(cfg.IFCutoff, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("demodulator: if filter: %w", err)
	}
	afFilter, err := NewLowPass(cfg.AudioCutoff, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("demodulator: audio filter: %w", err)
	}
	decim, err := NewDecimator(cfg.SampleRate, cfg.AudioRate)
	if err != nil {
		return nil, fmt.Errorf("demodulator: %w", err)
	}
	return &Demodulator{
		cfg:      cfg,
		mixer:    mixer,
		ifFilter: ifFilter,
		afFilter: afFilter,
		decim:    decim,
	}, nil
}

// Config returns the configuration the demodulator was built with.
func (d *Demodulator) Config() DemodulatorConfig {
	return d.cfg
}

// Ratio returns the RF to audio decimation factor.
func (d *Demodulator) Ratio() int {
	return d.decim.Ratio()
}

// Process demodulates one chunk of IQ samples and returns the audio it
// produces, which may be empty for short chunks. NaN and Inf inputs are not
// sanitised.
func (d *Demodulator) Process(samples []complex64) []float32 {
	if len(samples) == 0 {
		return nil
	}

	// The previous chunk's last sample gives the discriminator a predecessor
	// for the first new sample. It is mixed at its original index and the IF
	// filter is rolled back to just before it, so it filters to the same value
	// it had at the end of the previous call.
	d.work = append(d.work[:0], d.last)
	d.work = append(d.work, samples...)
	d.ifFilter.restore(d.ifPrev, d.ifPrimed)

	start := d.index
	d.mixer.Process(d.work, start)
	for i, x := range d.work {
		if i == len(d.work)-1 {
			d.ifPrev, d.ifPrimed = d.ifFilter.state()
		}
		d.work[i] = d.ifFilter.Filter(x)
	}
	d.last = samples[len(samples)-1]
	d.index = start + uint64(len(samples))

	d.phase = Discriminate(d.phase[:0], d.work, d.cfg.Gain)
	d.afFilter.Process(d.phase)

	audio := d.decim.Process(make([]float32, 0, len(d.phase)/d.decim.Ratio()+1), d.phase)
	d.removeDC(audio)
	return audio
}

func (d *Demodulator) removeDC(audio []float32) {
	if len(audio) == 0 {
		return
	}
	var dc float64
	switch d.cfg.DC {
	case DCPerChunk:
		var sum float64
		for _, x := range audio {
			sum += float64(x)
		}
		dc = sum / float64(len(audio))
	case DCRunning:
		for _, x := range audio {
			d.dcSum += float64(x)
		}
		d.dcCount += uint64(len(audio))
		dc = d.dcSum / float64(d.dcCount)
	default:
		return
	}
	for i := range audio {
		audio[i] -= float32(dc)
	}
}
