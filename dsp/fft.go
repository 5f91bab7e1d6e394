package dsp

// Fast Fourier Transform
//
// Recursive radix-2 Cooley-Tukey transform used by the spectral analyzer to
// find the dominant pulse frequency of a filtered PPG trace.
//
//  1. The input is zero-padded to the next power of two so the even/odd split
//     always divides evenly.
//  2. Even-indexed and odd-indexed samples are transformed recursively.
//  3. The halves are recombined with the twiddle factor W_N^k = e^(-2πik/N).
//
// Bin k of an N-point transform sampled at fs Hz sits at k·fs/N Hz. Only the
// first N/2+1 bins carry information for a real-valued input.

import (
	"math"
	"math/cmplx"
)

// FFT transforms a real-valued series, zero-padding it to a power of two.
func FFT(input []float64) []complex128 {
	size := NextPowerOfTwo(len(input))
	buffer := make([]complex128, size)
	for i, v := range input {
		buffer[i] = complex(v, 0)
	}
	return recursiveFFT(buffer)
}

func recursiveFFT(values []complex128) []complex128 {
	n := len(values)
	if n <= 1 {
		return values
	}

	half := n / 2
	even := make([]complex128, half)
	odd := make([]complex128, half)
	for i := 0; i < half; i++ {
		even[i] = values[2*i]
		odd[i] = values[2*i+1]
	}

	even = recursiveFFT(even)
	odd = recursiveFFT(odd)

	out := make([]complex128, n)
	for k := 0; k < half; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		t := complex(math.Cos(angle), math.Sin(angle)) * odd[k]
		out[k] = even[k] + t
		out[k+half] = even[k] - t
	}
	return out
}

// PowerSpectrum returns |X[k]|² for bins 0..N/2 of the zero-padded transform,
// together with the transform length N.
func PowerSpectrum(input []float64) ([]float64, int) {
	spectrum := FFT(input)
	n := len(spectrum)
	power := make([]float64, n/2+1)
	for k := range power {
		mag := cmplx.Abs(spectrum[k])
		power[k] = mag * mag
	}
	return power, n
}

// BinFrequency converts a bin index into Hz for an n-point transform at sampleRate.
func BinFrequency(bin, n int, sampleRate float64) float64 {
	if n == 0 {
		return 0
	}
	return float64(bin) * sampleRate / float64(n)
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
