package dsp

import "errors"

var (
	// ErrInvalidRate indicates a non-positive sample rate.
	ErrInvalidRate = errors.New("dsp: invalid sample rate")
	// ErrRateOrder indicates an RF rate below the audio rate.
	ErrRateOrder = errors.New("dsp: rf sample rate below audio sample rate")
	// ErrFractionalRatio indicates an RF rate that is not an integer multiple of the audio rate.
	ErrFractionalRatio = errors.New("dsp: rf sample rate is not an integer multiple of audio sample rate")
	// ErrInvalidRatio indicates a rate ratio that rounds to less than one.
	ErrInvalidRatio = errors.New("dsp: invalid rate ratio")
	// ErrInvalidBandwidth indicates a non-positive deviation bandwidth.
	ErrInvalidBandwidth = errors.New("dsp: invalid deviation bandwidth")
	// ErrInvalidCutoff indicates a non-positive filter cutoff.
	ErrInvalidCutoff = errors.New("dsp: invalid cutoff frequency")
)
