package ppg

import "math"

// rcTerms returns the RC time constant for cutoffHz and the sampling
// period, both in seconds.
func rcTerms(sampleRate, cutoffHz float64) (rc, dt float64) {
	return 1 / (2 * math.Pi * cutoffHz), 1 / sampleRate
}

// HighPassFilter strips the slow components of a PPG trace: the DC level of
// skin perfusion and the baseline wander from breathing and finger pressure.
// It is a first-order IIR stage, y[i] = a·(y[i-1] + x[i] - x[i-1]), seeded
// with the first raw value. Cutoffs outside (0, Nyquist) return the input
// unchanged.
func HighPassFilter(samples []float64, sampleRate, cutoffHz float64) []float64 {
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 || len(samples) == 0 {
		return samples
	}
	rc, dt := rcTerms(sampleRate, cutoffHz)
	a := rc / (rc + dt)

	out := make([]float64, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = a * (out[i-1] + samples[i] - samples[i-1])
	}
	return out
}

// LowPassFilter smooths camera sensor noise and frame jitter above the
// highest plausible pulse harmonic. It is a first-order IIR stage,
// y[i] = a·x[i] + (1-a)·y[i-1], starting from rest. Cutoffs outside
// (0, Nyquist) return the input unchanged.
func LowPassFilter(samples []float64, sampleRate, cutoffHz float64) []float64 {
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 || len(samples) == 0 {
		return samples
	}
	rc, dt := rcTerms(sampleRate, cutoffHz)
	a := dt / (rc + dt)

	out := make([]float64, len(samples))
	var prev float64
	for i, x := range samples {
		out[i] = a*x + (1-a)*prev
		prev = out[i]
	}
	return out
}

// BandRestrict keeps the cardiac band [lowHz, highHz] by cascading the
// high-pass and low-pass stages.
func BandRestrict(samples []float64, sampleRate, lowHz, highHz float64) []float64 {
	return LowPassFilter(HighPassFilter(samples, sampleRate, lowHz), sampleRate, highHz)
}

// AdaptiveFilter is a short LMS predictor. Each sample is predicted from the
// preceding ones and a fraction of the prediction error is removed, which
// damps recurring noise while leaving the pulse shape in place.
type AdaptiveFilter struct {
	coeffs      []float64
	history     []float64 // most recent input first
	step        float64
	suppression float64
}

// NewAdaptiveFilter returns a filter with length taps, LMS step alpha and the
// fraction of error subtracted from each output sample.
func NewAdaptiveFilter(length int, alpha, suppression float64) *AdaptiveFilter {
	if length < 1 {
		length = 1
	}
	return &AdaptiveFilter{
		coeffs:      make([]float64, length),
		history:     make([]float64, length),
		step:        alpha,
		suppression: suppression,
	}
}

// Reset clears coefficients and history.
func (f *AdaptiveFilter) Reset() {
	for i := range f.coeffs {
		f.coeffs[i] = 0
		f.history[i] = 0
	}
}

// Process filters one sample and adapts the coefficients.
func (f *AdaptiveFilter) Process(x float64) float64 {
	var prediction float64
	for j, c := range f.coeffs {
		prediction += c * f.history[j]
	}
	e := x - prediction

	for j := range f.coeffs {
		f.coeffs[j] += f.step * e * f.history[j]
	}

	copy(f.history[1:], f.history[:len(f.history)-1])
	f.history[0] = x

	return x - f.suppression*e
}

// Apply runs the filter over a whole series from a clean state.
func (f *AdaptiveFilter) Apply(signal []float64) []float64 {
	f.Reset()
	out := make([]float64, len(signal))
	for i, x := range signal {
		out[i] = f.Process(x)
	}
	return out
}
