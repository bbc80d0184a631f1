// Package session connects the DSP pipeline to a radio device. Receiver and
// Transmitter expose the callbacks a Device invokes once per transfer, and
// the short-lived accessors the rest of the program polls while streaming.
package session

import (
	"sync"
	"sync/atomic"

	"fm-transceiver/internal/dsp"
	"fm-transceiver/internal/iq"
)

// Receiver demodulates received transfers into audio.
type Receiver struct {
	demod   *dsp.Demodulator
	deemph  *dsp.Deemphasis
	scratch []complex64

	mu      sync.Mutex
	pending []float32

	chunks  atomic.Uint64
	samples atomic.Uint64
}

// NewReceiver builds a receiver. A positive deemphTau adds a de-emphasis
// stage after the demodulator.
func NewReceiver(cfg dsp.DemodulatorConfig, deemphTau float64) (*Receiver, error) {
	demod, err := dsp.NewDemodulator(cfg)
	if err != nil {
		return nil, err
	}
	r := &Receiver{demod: demod}
	if deemphTau > 0 {
		if r.deemph, err = dsp.NewDeemphasis(cfg.AudioRate, deemphTau); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// HandleRX is the device receive callback.
func (r *Receiver) HandleRX(buf []int8) {
	r.scratch = iq.FromInt8(r.scratch[:0], buf)
	audio := r.demod.Process(r.scratch)
	if r.deemph != nil {
		r.deemph.Process(audio)
	}
	r.chunks.Add(1)
	r.samples.Add(uint64(len(r.scratch)))

	r.mu.Lock()
	r.pending = append(r.pending, audio...)
	r.mu.Unlock()
}

// Drain returns the audio produced since the last call.
func (r *Receiver) Drain() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

// Chunks returns the number of transfers processed.
func (r *Receiver) Chunks() uint64 { return r.chunks.Load() }

// Samples returns the number of IQ samples processed.
func (r *Receiver) Samples() uint64 { return r.samples.Load() }

// AudioRate is the rate of the drained audio.
func (r *Receiver) AudioRate() int { return r.demod.Config().AudioRate }

// Transmitter fills transmit transfers from an audio source.
type Transmitter struct {
	mu      sync.Mutex
	mod     *dsp.Modulator
	scratch []complex64

	finished chan struct{}
	once     sync.Once
}

// NewTransmitter builds a transmitter reading from src.
func NewTransmitter(src dsp.AudioSource, cfg dsp.ModulatorConfig) (*Transmitter, error) {
	mod, err := dsp.NewModulator(src, cfg)
	if err != nil {
		return nil, err
	}
	return &Transmitter{mod: mod, finished: make(chan struct{})}, nil
}

// HandleTX is the device transmit callback.
func (t *Transmitter) HandleTX(buf []int8) {
	n := len(buf) / 2

	t.mu.Lock()
	defer t.mu.Unlock()
	if cap(t.scratch) < n {
		t.scratch = make([]complex64, n)
	}
	t.scratch = t.scratch[:n]
	t.mod.Fill(t.scratch)
	iq.PutInt8(buf, t.scratch)
	if len(buf)%2 == 1 {
		buf[len(buf)-1] = 0
	}
	if t.mod.Progress() >= 1 {
		t.once.Do(func() { close(t.finished) })
	}
}

// Progress returns the fraction of the audio transmitted so far.
func (t *Transmitter) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mod.Progress()
}

// Err returns the audio read error that ended the transmission early, if
// any.
func (t *Transmitter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mod.Err()
}

// Ratio returns the number of RF samples per audio sample.
func (t *Transmitter) Ratio() int { return t.mod.Ratio() }

// Finished is closed once the whole source has been transmitted.
func (t *Transmitter) Finished() <-chan struct{} { return t.finished }
