package ppg

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func sine(n int, period float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}
	return out
}

func stampedSamples(n int, rate float64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Red: 128, Green: 64, Blue: 32, TimestampMs: int64(math.Round(float64(i) * 1000 / rate))}
	}
	return out
}

func TestDetectPeaksOnSinusoid(t *testing.T) {
	t.Parallel()

	peaks := DetectPeaks(sine(300, 25), 12)
	if len(peaks) != 12 {
		t.Fatalf("expected 12 peaks, got %d: %v", len(peaks), peaks)
	}
	if peaks[0] != 6 {
		t.Errorf("first peak at %d, want 6", peaks[0])
	}
	for i := 1; i < len(peaks); i++ {
		if d := peaks[i] - peaks[i-1]; d != 25 {
			t.Errorf("peak spacing %d at %d, want 25", d, i)
		}
	}
}

func TestDetectPeaksRespectsRefractory(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		signal := make([]float64, 400)
		for i := range signal {
			signal[i] = rng.NormFloat64() + 0.5*math.Sin(float64(i)/3)
		}
		for _, refractory := range []int{1, 4, 12, 20} {
			peaks := DetectPeaks(signal, refractory)
			for i := 1; i < len(peaks); i++ {
				if peaks[i] <= peaks[i-1] {
					t.Fatalf("seed %d refractory %d: peaks not increasing: %v", seed, refractory, peaks)
				}
				if peaks[i]-peaks[i-1] < refractory {
					t.Fatalf("seed %d refractory %d: spacing %d too small", seed, refractory, peaks[i]-peaks[i-1])
				}
			}
		}
	}
}

func TestDetectPeaksDegenerateInput(t *testing.T) {
	t.Parallel()

	if peaks := DetectPeaks(nil, 12); len(peaks) != 0 {
		t.Errorf("nil input produced peaks %v", peaks)
	}
	flat := make([]float64, 200)
	if peaks := DetectPeaks(flat, 12); len(peaks) != 0 {
		t.Errorf("flat input produced peaks %v", peaks)
	}
	if peaks := DetectPeaks(sine(100, 25), 0); len(peaks) != 0 {
		t.Errorf("zero refractory produced peaks %v", peaks)
	}
}

func TestAnalyzeCoherenceTooFewPeaks(t *testing.T) {
	t.Parallel()

	samples := stampedSamples(100, 30)
	for _, peaks := range [][]int{nil, {10}, {10, 35}} {
		c := AnalyzeCoherence(peaks, samples)
		if c.Coherence != 0 || c.AvgBPM != 60 {
			t.Errorf("peaks %v: got %+v, want zero coherence at 60 BPM", peaks, c)
		}
	}
}

func TestAnalyzeCoherenceRegularRhythm(t *testing.T) {
	t.Parallel()

	samples := stampedSamples(450, 30)
	var peaks []int
	for i := 5; i < len(samples); i += 25 {
		peaks = append(peaks, i)
	}

	c := AnalyzeCoherence(peaks, samples)
	if c.AvgBPM != 72 {
		t.Errorf("AvgBPM = %d, want 72", c.AvgBPM)
	}
	if c.Coherence < 0.99 {
		t.Errorf("coherence = %.4f for a regular rhythm", c.Coherence)
	}
	if math.Abs(c.MeanRR-833.3) > 1 {
		t.Errorf("MeanRR = %.2f", c.MeanRR)
	}
}

func TestAnalyzeCoherenceIrregularRhythm(t *testing.T) {
	t.Parallel()

	samples := stampedSamples(450, 30)
	c := AnalyzeCoherence([]int{0, 10, 60, 70, 150}, samples)
	if c.Coherence >= 0.9 {
		t.Errorf("coherence %.3f too high for irregular peaks", c.Coherence)
	}
	if c.Coherence < 0 || c.Coherence > 1 {
		t.Errorf("coherence %.3f outside [0,1]", c.Coherence)
	}
}

func TestFilterIntervalOutliersDropsArtifact(t *testing.T) {
	t.Parallel()

	kept := FilterIntervalOutliers([]float64{800, 810, 805, 2000, 795})
	if len(kept) != 4 {
		t.Fatalf("expected 4 intervals kept, got %v", kept)
	}
	for _, v := range kept {
		if v == 2000 {
			t.Fatalf("outlier survived: %v", kept)
		}
	}
}

func TestFilterIntervalOutliersNeverEmpties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(12)
		intervals := make([]float64, n)
		for i := range intervals {
			intervals[i] = 300 + rng.ExpFloat64()*600
		}
		if kept := FilterIntervalOutliers(intervals); len(kept) == 0 {
			t.Fatalf("trial %d: %v filtered to nothing", trial, intervals)
		}
	}
	if kept := FilterIntervalOutliers(nil); len(kept) != 0 {
		t.Fatalf("empty input produced %v", kept)
	}
}

func TestPeakIntervalBPM(t *testing.T) {
	t.Parallel()

	samples := stampedSamples(300, 30)
	if _, err := PeakIntervalBPM([]int{4}, samples); !errors.Is(err, ErrNoPeaksDetected) {
		t.Fatalf("single peak: expected ErrNoPeaksDetected, got %v", err)
	}

	bpm, err := PeakIntervalBPM([]int{0, 30, 60, 90, 120}, samples)
	if err != nil {
		t.Fatalf("PeakIntervalBPM: %v", err)
	}
	if math.Abs(bpm-60) > 0.1 {
		t.Fatalf("bpm = %.3f, want 60", bpm)
	}
}
