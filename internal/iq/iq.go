// Package iq converts between the fixed-point sample formats used by radio
// hardware and recordings and the complex64 samples used by the DSP code.
package iq

import "math"

// Scale8 maps a full-scale float component onto a signed 8-bit value.
const Scale8 = 127.0

// Scale16 normalises signed 16-bit components.
const Scale16 = 32768.0

// FromInt8 appends the complex samples encoded in interleaved I/Q bytes to
// dst. A trailing unpaired byte is ignored.
func FromInt8(dst []complex64, src []int8) []complex64 {
	for i := 0; i+1 < len(src); i += 2 {
		dst = append(dst, complex(float32(src[i])/Scale8, float32(src[i+1])/Scale8))
	}
	return dst
}

// FromInt16 appends the complex samples encoded in interleaved 16-bit I/Q
// values to dst.
func FromInt16(dst []complex64, src []int16) []complex64 {
	for i := 0; i+1 < len(src); i += 2 {
		dst = append(dst, complex(float32(src[i])/Scale16, float32(src[i+1])/Scale16))
	}
	return dst
}

// ToInt8 quantises a sample to signed 8-bit components, saturating values
// outside [-1, 1]. NaN maps to zero.
func ToInt8(c complex64) (i, q int8) {
	return quantize8(real(c)), quantize8(imag(c))
}

// PutInt8 quantises samples into interleaved I/Q bytes. It writes
// min(len(samples), len(dst)/2) samples and returns that count.
func PutInt8(dst []int8, samples []complex64) int {
	n := len(dst) / 2
	if len(samples) < n {
		n = len(samples)
	}
	for k := 0; k < n; k++ {
		dst[2*k], dst[2*k+1] = ToInt8(samples[k])
	}
	return n
}

// Int16ToInt8 reduces a 16-bit component to the 8-bit hardware range.
func Int16ToInt8(x int16) int8 {
	return int8(x >> 8)
}

func quantize8(x float32) int8 {
	v := float64(x) * Scale8
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt8:
		return math.MaxInt8
	case v <= math.MinInt8:
		return math.MinInt8
	}
	return int8(v)
}
