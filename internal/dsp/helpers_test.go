package dsp

import (
	"io"
	"math"
)

const float32EqualityThreshold = 1e-6

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) <= float32EqualityThreshold
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// generateTestSignal creates a complex signal with a constant phase rotation.
func generateTestSignal(numSamples int, phaseIncrement, startPhase float64) []complex64 {
	samples := make([]complex64, numSamples)
	for i := 0; i < numSamples; i++ {
		// e^(j*theta) = cos(theta) + j*sin(theta)
		phase := startPhase + float64(i+1)*phaseIncrement
		samples[i] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}
	return samples
}

// sliceSource is an AudioSource over an in-memory mono signal.
type sliceSource struct {
	rate    int
	samples []float32
	pos     int
	err     error
}

func (s *sliceSource) SampleRate() int { return s.rate }
func (s *sliceSource) Len() int        { return len(s.samples) }
func (s *sliceSource) Channels() int   { return 1 }

func (s *sliceSource) Next() (float32, error) {
	if s.pos >= len(s.samples) {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	x := s.samples[s.pos]
	s.pos++
	return x, nil
}

func constantSource(rate, n int, value float32) *sliceSource {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = value
	}
	return &sliceSource{rate: rate, samples: samples}
}

func toneSource(rate, n int, freq, amplitude float64) *sliceSource {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return &sliceSource{rate: rate, samples: samples}
}
