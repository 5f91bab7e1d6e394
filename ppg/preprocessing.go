package ppg

import "sort"

// RedChannel extracts the red intensities, which carry the strongest
// pulsatile component through a lit fingertip.
func RedChannel(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Red
	}
	return out
}

// Preprocess removes the DC level, scales to unit variance and applies a
// 3-point median filter. The input is not modified.
func Preprocess(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	result := make([]float64, len(values))
	m := mean(values)
	for i, v := range values {
		result[i] = v - m
	}

	if sd := stdDev(result); sd > 0 {
		for i := range result {
			result[i] /= sd
		}
	}

	return MedianFilter3(result)
}

// MedianFilter3 replaces each interior value with the median of itself and its
// two neighbours. The endpoints are copied unchanged.
func MedianFilter3(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(values) < 3 {
		return out
	}

	var window [3]float64
	for i := 1; i < len(values)-1; i++ {
		window[0], window[1], window[2] = values[i-1], values[i], values[i+1]
		sort.Float64s(window[:])
		out[i] = window[1]
	}
	return out
}
