package ppg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"ppg-heartrate/dsp"
)

// DominantFrequency returns the frequency of the strongest spectral bin within
// [lowHz, highHz]. The signal is zero-padded to the next power of two, so the
// result is quantised to sampleRate/N.
func DominantFrequency(signal []float64, sampleRate, lowHz, highHz float64) (float64, error) {
	if len(signal) < 2 {
		return 0, fmt.Errorf("%w: spectrum needs at least 2 samples, got %d", ErrInsufficientSamples, len(signal))
	}

	power, n := dsp.PowerSpectrum(signal)

	lo := int(math.Ceil(lowHz * float64(n) / sampleRate))
	hi := int(math.Floor(highHz * float64(n) / sampleRate))
	if lo < 1 {
		lo = 1
	}
	if hi > len(power)-1 {
		hi = len(power) - 1
	}
	if lo > hi {
		return 0, fmt.Errorf("%w: no spectral bins in [%.2f, %.2f] Hz at N=%d", ErrInsufficientSamples, lowHz, highHz, n)
	}

	band := power[lo : hi+1]
	if floats.Max(band) <= 0 {
		return 0, fmt.Errorf("%w: flat spectrum", ErrNoPeaksDetected)
	}

	return dsp.BinFrequency(lo+floats.MaxIdx(band), n, sampleRate), nil
}

// SpectralBPM converts a dominant frequency into beats per minute.
func SpectralBPM(frequencyHz float64) float64 {
	return math.Round(frequencyHz * 60)
}
