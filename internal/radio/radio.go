// Package radio is the boundary to the SDR hardware. A Device streams
// fixed-size buffers of interleaved signed 8-bit I/Q to and from callbacks;
// a Host owns the library lifecycle shared by every open Device.
package radio

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBusy is returned when starting a stream on a device that is already streaming.
	ErrBusy = errors.New("radio: device already streaming")
	// ErrClosed is returned by any call on a closed device.
	ErrClosed = errors.New("radio: device closed")
	// ErrNotTuned is returned when a stream is started before the sample rate is set.
	ErrNotTuned = errors.New("radio: sample rate not set")
	// ErrInvalidRate indicates a zero sample rate.
	ErrInvalidRate = errors.New("radio: invalid sample rate")
	// ErrInvalidGain indicates a gain above the stage maximum.
	ErrInvalidGain = errors.New("radio: gain out of range")
	// ErrNoInput is returned by StartRX when the device has nothing to receive from.
	ErrNoInput = errors.New("radio: no receive source")
	// ErrNoOutput is returned by StartTX when the device has nowhere to transmit to.
	ErrNoOutput = errors.New("radio: no transmit sink")
	// ErrBadRecording indicates an IQ recording in a format the file device cannot read.
	ErrBadRecording = errors.New("radio: unsupported IQ recording")
)

// Gain limits of the HackRF front end. Values are rounded down to the step.
const (
	MaxLNAGain   = 40 // step 8
	MaxRXVGAGain = 62 // step 2
	MaxTXVGAGain = 47 // step 1
)

// RXCallback receives one transfer of interleaved I/Q bytes. The buffer is
// reused once the callback returns.
type RXCallback func(buf []int8)

// TXCallback fills one transfer of interleaved I/Q bytes.
type TXCallback func(buf []int8)

// Device is an open SDR. Callbacks run on a streaming goroutine owned by the
// device, one transfer at a time. Stopping waits for the transfer in flight.
type Device interface {
	Serial() string
	SetSampleRate(hz uint32) error
	SetFrequency(hz uint64) error
	SetLNAGain(db uint32) error
	SetRXVGAGain(db uint32) error
	SetTXVGAGain(db uint32) error
	StartRX(cb RXCallback) error
	StopRX() error
	StartTX(cb TXCallback) error
	StopTX() error
	IsStreaming() bool
	// Done is closed when the current stream ends, either by Stop or because
	// the device ran out of samples.
	Done() <-chan struct{}
	Close() error
}

// Backend is a driver library: global Init/Exit around any number of Open
// calls.
type Backend interface {
	Init() error
	Exit() error
	Open() (Device, error)
}

// Host reference counts open devices. The first Open initialises the
// backend and closing the last device shuts it down.
type Host struct {
	backend Backend

	mu   sync.Mutex
	open int
}

// NewHost wraps a backend.
func NewHost(b Backend) *Host {
	return &Host{backend: b}
}

// Open initialises the backend if needed and opens a device. Closing the
// returned device more than once is harmless.
func (h *Host) Open() (Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.open == 0 {
		if err := h.backend.Init(); err != nil {
			return nil, fmt.Errorf("radio: init: %w", err)
		}
	}
	dev, err := h.backend.Open()
	if err != nil {
		err = fmt.Errorf("radio: open: %w", err)
		if h.open == 0 {
			if xerr := h.backend.Exit(); xerr != nil {
				err = errors.Join(err, fmt.Errorf("radio: exit: %w", xerr))
			}
		}
		return nil, err
	}
	h.open++
	return &handle{Device: dev, host: h}, nil
}

// Handles returns the number of open devices.
func (h *Host) Handles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

func (h *Host) release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open--
	if h.open == 0 {
		if err := h.backend.Exit(); err != nil {
			return fmt.Errorf("radio: exit: %w", err)
		}
	}
	return nil
}

type handle struct {
	Device
	host *Host
	once sync.Once
	err  error
}

func (d *handle) Close() error {
	d.once.Do(func() {
		d.err = errors.Join(d.Device.Close(), d.host.release())
	})
	return d.err
}

func clampGain(db, max, step uint32) (uint32, error) {
	if db > max {
		return 0, fmt.Errorf("%w: %d dB (max %d)", ErrInvalidGain, db, max)
	}
	return db - db%step, nil
}
