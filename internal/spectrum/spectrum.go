// Package spectrum measures the dominant tone and level of audio blocks.
package spectrum

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Hann returns a Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// PeakFrequency returns the frequency in Hz of the strongest non-DC
// component of samples taken at sampleRate. The peak bin is refined with
// parabolic interpolation on the log magnitudes. It returns 0 for fewer than
// four samples.
func PeakFrequency(samples []float32, sampleRate int) float64 {
	n := len(samples)
	if n < 4 || sampleRate <= 0 {
		return 0
	}

	win := Hann(n)
	seq := make([]float64, n)
	var mean float64
	for _, x := range samples {
		mean += float64(x)
	}
	mean /= float64(n)
	for i, x := range samples {
		seq[i] = (float64(x) - mean) * win[i]
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, seq)

	peak := 1
	for i := 2; i < len(coeff); i++ {
		if cmplx.Abs(coeff[i]) > cmplx.Abs(coeff[peak]) {
			peak = i
		}
	}

	bin := float64(peak)
	if peak > 1 && peak < len(coeff)-1 {
		bin += parabolicOffset(logMag(coeff[peak-1]), logMag(coeff[peak]), logMag(coeff[peak+1]))
	}
	return bin * fft.Freq(1) * float64(sampleRate)
}

// RMS returns the root-mean-square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, x := range samples {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// parabolicOffset is the vertex of the parabola through (-1, a), (0, b) and
// (1, c). It is 0 when any point is not finite, as for a silent neighbour.
func parabolicOffset(a, b, c float64) float64 {
	for _, v := range [...]float64{a, b, c} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0
		}
	}
	d := a - 2*b + c
	if d == 0 {
		return 0
	}
	return 0.5 * (a - c) / d
}

func logMag(c complex128) float64 {
	m := cmplx.Abs(c)
	if m == 0 {
		return math.Inf(-1)
	}
	return math.Log(m)
}
