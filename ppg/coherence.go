package ppg

import (
	"fmt"
	"math"
)

// neutralBPM is reported when there are too few peaks to measure rhythm.
const neutralBPM = 60

// PeakIntervals converts consecutive peak indices into intervals in
// milliseconds using the sample timestamps.
func PeakIntervals(peaks []int, samples []Sample) []float64 {
	if len(peaks) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		prev, cur := peaks[i-1], peaks[i]
		if prev < 0 || cur >= len(samples) {
			continue
		}
		intervals = append(intervals, float64(samples[cur].TimestampMs-samples[prev].TimestampMs))
	}
	return intervals
}

// AnalyzeCoherence measures how regular the R-R intervals are. Fewer than
// three peaks yields zero coherence and the neutral 60 BPM.
func AnalyzeCoherence(peaks []int, samples []Sample) Coherence {
	neutral := Coherence{AvgBPM: neutralBPM}
	if len(peaks) < 3 {
		return neutral
	}

	intervals := PeakIntervals(peaks, samples)
	meanRR := mean(intervals)
	if len(intervals) < 2 || meanRR <= 0 {
		return neutral
	}

	stdRR := stdDev(intervals)
	return Coherence{
		MeanRR:    meanRR,
		StdRR:     stdRR,
		Coherence: math.Max(0, 1-stdRR/meanRR),
		AvgBPM:    int(math.Round(60000 / meanRR)),
	}
}

// FilterIntervalOutliers drops intervals outside [Q1-1.5·IQR, Q3+1.5·IQR].
// A non-empty input never produces an empty result: if every interval would
// be removed, the median is kept.
func FilterIntervalOutliers(intervals []float64) []float64 {
	if len(intervals) == 0 {
		return nil
	}

	q1, q3 := quartiles(intervals)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	kept := make([]float64, 0, len(intervals))
	for _, v := range intervals {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, median(intervals))
	}
	return kept
}

// PeakIntervalBPM converts the mean of outlier-filtered peak intervals into BPM.
func PeakIntervalBPM(peaks []int, samples []Sample) (float64, error) {
	intervals := PeakIntervals(peaks, samples)
	if len(intervals) == 0 {
		return 0, fmt.Errorf("%w: %d peaks", ErrNoPeaksDetected, len(peaks))
	}

	meanRR := mean(FilterIntervalOutliers(intervals))
	if meanRR <= 0 {
		return 0, fmt.Errorf("%w: non-positive mean interval", ErrNoPeaksDetected)
	}
	return 60000 / meanRR, nil
}
