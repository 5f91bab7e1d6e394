package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 450: 512, 512: 512, 513: 1024}
	for in, want := range cases {
		if got := NextPowerOfTwo(in); got != want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestFFTMatchesDirectDFT(t *testing.T) {
	t.Parallel()

	input := []float64{1, 2, 0, -1, 3, 0.5, -2, 4}
	got := FFT(input)
	n := len(input)
	for k := 0; k < n; k++ {
		var want complex128
		for i, v := range input {
			angle := -2 * math.Pi * float64(k*i) / float64(n)
			want += complex(v*math.Cos(angle), v*math.Sin(angle))
		}
		if cmplx.Abs(got[k]-want) > 1e-9 {
			t.Fatalf("bin %d: got %v want %v", k, got[k], want)
		}
	}
}

func TestPowerSpectrumPeaksAtToneBin(t *testing.T) {
	t.Parallel()

	const (
		sampleRate = 32.0
		toneHz     = 4.0
	)
	input := make([]float64, 64)
	for i := range input {
		input[i] = math.Sin(2 * math.Pi * toneHz * float64(i) / sampleRate)
	}

	power, n := PowerSpectrum(input)
	if n != 64 || len(power) != 33 {
		t.Fatalf("unexpected spectrum shape n=%d bins=%d", n, len(power))
	}

	best := 0
	for k := range power {
		if power[k] > power[best] {
			best = k
		}
	}
	if got := BinFrequency(best, n, sampleRate); got != toneHz {
		t.Fatalf("expected peak at %.1f Hz, got %.3f Hz", toneHz, got)
	}
}
