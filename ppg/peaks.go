package ppg

// DetectPeaks returns the indices of pulse peaks in a filtered series. A peak
// must exceed Q1 + 0.5·IQR of the series, be the strict maximum within
// ±refractory samples, rise over the preceding half window, fall over the
// following one and stand above the local mean by 10%. The returned indices
// are strictly increasing and at least refractory apart.
func DetectPeaks(signal []float64, refractory int) []int {
	n := len(signal)
	if n < 3 || refractory < 1 {
		return nil
	}

	q1, q3 := quartiles(signal)
	threshold := q1 + 0.5*(q3-q1)

	half := refractory / 2
	if half < 1 {
		half = 1
	}

	var peaks []int
	for i := half; i < n-half; i++ {
		v := signal[i]
		if v <= threshold {
			continue
		}
		if !isStrictLocalMax(signal, i, refractory) {
			continue
		}

		// mean slope over a window telescopes to the end-point difference
		if (v-signal[i-half])/float64(half) <= 0 {
			continue
		}
		if (signal[i+half]-v)/float64(half) >= 0 {
			continue
		}

		lo, hi := window(i, refractory, n)
		localMean := mean(signal[lo:hi])
		if v <= localMean+0.1*abs(localMean) {
			continue
		}

		if len(peaks) > 0 && i-peaks[len(peaks)-1] < refractory {
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

func isStrictLocalMax(signal []float64, i, radius int) bool {
	lo, hi := window(i, radius, len(signal))
	for j := lo; j < hi; j++ {
		if j != i && signal[j] >= signal[i] {
			return false
		}
	}
	return true
}

// window returns the half-open bounds of [i-radius, i+radius] clipped to [0, n).
func window(i, radius, n int) (int, int) {
	lo, hi := i-radius, i+radius+1
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
