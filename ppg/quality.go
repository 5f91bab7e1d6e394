package ppg

import (
	"fmt"
	"math"
)

// snrEpsilon keeps the SNR finite on a perfectly smooth trace.
const snrEpsilon = 1e-3

// QualityWindowSeconds is the trailing span used to compute per-sample
// strength, noise and stability.
const QualityWindowSeconds = 2.0

type sampleQuality struct {
	snr        float64
	stability  float64
	saturation float64
}

// QualityAnalyzer classifies acquisition quality from the first seconds of a
// session. It is fed one sample at a time and is not safe for concurrent use.
type QualityAnalyzer struct {
	cfg       Config
	window    []Sample
	recent    []sampleQuality
	observed  int
	lastStamp int64

	// running channel sums over unclipped samples, used as synthetic baseline
	sumR, sumG, sumB float64
	unclipped        int
}

func NewQualityAnalyzer(cfg Config) *QualityAnalyzer {
	size := int(math.Round(QualityWindowSeconds * cfg.SampleRate))
	if size < 3 {
		size = 3
	}
	recent := cfg.QualityWindow
	if recent < 1 {
		recent = 1
	}
	return &QualityAnalyzer{
		cfg:    cfg,
		window: make([]Sample, 0, size),
		recent: make([]sampleQuality, 0, recent),
	}
}

// Observe folds one sample into the analysis. Non-finite or out-of-range
// channels and non-increasing timestamps are rejected with ErrInvalidSample.
func (a *QualityAnalyzer) Observe(s Sample) error {
	if err := CheckSample(s); err != nil {
		return err
	}
	if a.observed > 0 && s.TimestampMs <= a.lastStamp {
		return fmt.Errorf("%w: timestamp %d does not follow %d", ErrInvalidSample, s.TimestampMs, a.lastStamp)
	}
	a.observed++
	a.lastStamp = s.TimestampMs

	if len(a.window) == cap(a.window) {
		copy(a.window, a.window[1:])
		a.window = a.window[:len(a.window)-1]
	}
	a.window = append(a.window, s)

	q := a.measure(s)
	if len(a.recent) == cap(a.recent) {
		copy(a.recent, a.recent[1:])
		a.recent = a.recent[:len(a.recent)-1]
	}
	a.recent = append(a.recent, q)
	return nil
}

func (a *QualityAnalyzer) measure(s Sample) sampleQuality {
	saturation := sampleSaturation(s, a.cfg.SaturationMargin)
	if saturation >= 1 {
		// a clipped reading carries no pulsatile information
		return sampleQuality{saturation: 1}
	}

	a.sumR += s.Red
	a.sumG += s.Green
	a.sumB += s.Blue
	a.unclipped++

	return sampleQuality{
		snr:        windowSNR(a.window),
		stability:  windowStability(a.window, a.cfg.TickInterval()),
		saturation: saturation,
	}
}

// Observed returns the number of samples accepted so far.
func (a *QualityAnalyzer) Observed() int {
	return a.observed
}

// Metrics aggregates the most recent QualityWindow samples. Without any
// samples it returns FallbackMetrics.
func (a *QualityAnalyzer) Metrics() QualityMetrics {
	if len(a.recent) == 0 {
		return FallbackMetrics()
	}

	snrs := make([]float64, len(a.recent))
	var stability, saturation float64
	for i, q := range a.recent {
		snrs[i] = q.snr
		stability += q.stability
		saturation += q.saturation
	}
	count := float64(len(a.recent))
	meanSNR := mean(snrs)

	return QualityMetrics{
		SNR:        meanSNR,
		Stability:  clamp01(stability / count),
		Confidence: clamp01(1 - popVariance(snrs)/(meanSNR+0.1)),
		Saturation: clamp01(saturation / count),
	}
}

// Mode maps the current metrics to an acquisition mode.
func (a *QualityAnalyzer) Mode() (AcquisitionMode, QualityMetrics) {
	q := a.Metrics()
	return a.cfg.ModeForScore(a.cfg.OverallScore(q)), q
}

// Baseline returns the mean channel intensities of unclipped samples.
func (a *QualityAnalyzer) Baseline() (Sample, bool) {
	if a.unclipped == 0 {
		return Sample{}, false
	}
	n := float64(a.unclipped)
	return Sample{Red: a.sumR / n, Green: a.sumG / n, Blue: a.sumB / n}, true
}

// OverallScore collapses metrics into [0,1].
func (c Config) OverallScore(q QualityMetrics) float64 {
	w := c.QualityWeights
	snrTerm := 0.0
	if w.SNRRef > 0 {
		snrTerm = math.Min(math.Max(q.SNR, 0)/w.SNRRef, 1)
	}
	score := w.SNR*snrTerm +
		w.Stability*clamp01(q.Stability) +
		w.Confidence*clamp01(q.Confidence) +
		w.Saturation*(1-clamp01(q.Saturation))
	return clamp01(score)
}

// ModeForScore applies the score thresholds. Fallback is never returned here;
// it is reserved for analysis failures.
func (c Config) ModeForScore(score float64) AcquisitionMode {
	switch {
	case score >= c.OptimizedScore:
		return ModeRealOptimized
	case score >= c.CorrectedScore:
		return ModeRealCorrected
	default:
		return ModeAdaptiveSimulation
	}
}

// FallbackMetrics are the minimum-confidence metrics attached to Fallback mode.
func FallbackMetrics() QualityMetrics {
	return QualityMetrics{SNR: 0, Stability: 0, Confidence: 0, Saturation: 1}
}

// CheckSample rejects non-finite channels or timestamps and intensities
// outside [0,255].
func CheckSample(s Sample) error {
	for _, v := range [3]float64{s.Red, s.Green, s.Blue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite channel", ErrInvalidSample)
		}
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: channel %.1f outside [0,255]", ErrInvalidSample, v)
		}
	}
	if s.TimestampMs < 0 {
		return fmt.Errorf("%w: negative timestamp %d", ErrInvalidSample, s.TimestampMs)
	}
	return nil
}

func sampleSaturation(s Sample, margin float64) float64 {
	lo := math.Min(s.Red, math.Min(s.Green, s.Blue))
	hi := math.Max(s.Red, math.Max(s.Green, s.Blue))
	if lo <= margin || hi >= 255-margin {
		return 1
	}
	return (hi - lo) / hi
}

// windowSNR compares the half peak-to-peak red swing with the mean absolute
// second difference, a proxy for high-frequency noise.
func windowSNR(window []Sample) float64 {
	if len(window) < 3 {
		return 0
	}
	lo, hi := window[0].Red, window[0].Red
	var noise float64
	for i, s := range window {
		lo = math.Min(lo, s.Red)
		hi = math.Max(hi, s.Red)
		if i >= 2 {
			noise += abs(s.Red - 2*window[i-1].Red + window[i-2].Red)
		}
	}
	noise /= float64(len(window) - 2)
	return ((hi - lo) / 2) / (noise + snrEpsilon)
}

// windowStability averages, over consecutive pairs, how small the red step is
// relative to 10% of the mean level, weighted by how close the timestamp gap
// is to the nominal tick.
func windowStability(window []Sample, tickMs float64) float64 {
	if len(window) < 2 {
		return 1
	}
	var level float64
	for _, s := range window {
		level += s.Red
	}
	level /= float64(len(window))
	if level <= 0 {
		return 0
	}

	var total float64
	for i := 1; i < len(window); i++ {
		step := 1 - math.Min(1, abs(window[i].Red-window[i-1].Red)/(0.1*level))
		gap := float64(window[i].TimestampMs - window[i-1].TimestampMs)
		regularity := 1 - math.Min(1, abs(gap-tickMs)/tickMs)
		total += step * regularity
	}
	return clamp01(total / float64(len(window)-1))
}
