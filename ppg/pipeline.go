package ppg

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// StageTimer observes how long a pipeline stage took. A nil StageTimer is
// allowed and ignored.
type StageTimer func(stage string, d time.Duration)

// Estimate runs the full synchronous pass over a finalized buffer:
// preprocessing, band filtering, spectral and peak analysis, fusion and
// validation. It is a pure function of its arguments. Buffers shorter than
// cfg.MinSamples() fail with ErrInsufficientSamples.
func Estimate(samples []Sample, mode AcquisitionMode, quality QualityMetrics, cfg Config) (Report, error) {
	return EstimateTimed(samples, mode, quality, cfg, nil)
}

// EstimateTimed is Estimate with per-stage timing reported to observe.
func EstimateTimed(samples []Sample, mode AcquisitionMode, quality QualityMetrics, cfg Config, observe StageTimer) (Report, error) {
	if len(samples) < cfg.MinSamples() {
		return Report{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(samples), cfg.MinSamples())
	}
	report := analyze(samples, cfg, observe)

	stop := startStage(observe, "validate")
	report.Result = SessionResult{
		BPM:     Validate(report.Fused, mode, quality, cfg),
		Mode:    mode,
		Quality: quality,
	}
	stop()
	return report, nil
}

// RoughHeartRate runs the analysis without the minimum-duration check and
// without validation. It is meant for short windows such as the quality
// phase, where only an indicative rate is needed.
func RoughHeartRate(samples []Sample, cfg Config) (float64, bool) {
	if len(samples) < 2*cfg.RefractorySamples() {
		return 0, false
	}
	report := analyze(samples, cfg, nil)
	return report.Fused, !report.LowConfidence
}

func analyze(samples []Sample, cfg Config, observe StageTimer) Report {
	report := Report{SampleCount: len(samples)}

	stop := startStage(observe, "preprocess")
	cleaned := Preprocess(RedChannel(samples))
	stop()

	stop = startStage(observe, "filter")
	filtered := BandRestrict(cleaned, cfg.SampleRate, cfg.BandLowHz, cfg.BandHighHz)
	filtered = NewAdaptiveFilter(cfg.LMSLength, cfg.LMSStep, cfg.LMSSuppression).Apply(filtered)
	stop()

	stop = startStage(observe, "spectral")
	spectral := BPMEstimate{Method: MethodSpectral}
	if freq, err := DominantFrequency(filtered, cfg.SampleRate, cfg.SpectralLowHz, cfg.SpectralHighHz); err == nil {
		report.DominantFrequency = freq
		spectral.Value = SpectralBPM(freq)
		spectral.Valid = cfg.Plausible(spectral.Value)
	}
	stop()

	stop = startStage(observe, "peaks")
	peaks := DetectPeaks(filtered, cfg.RefractorySamples())
	report.PeakCount = len(peaks)
	report.Coherence = AnalyzeCoherence(peaks, samples)
	stop()

	stop = startStage(observe, "fusion")
	peakInterval := BPMEstimate{Method: MethodPeakInterval}
	if bpm, err := PeakIntervalBPM(peaks, samples); err == nil {
		peakInterval.Value = bpm
		peakInterval.Valid = cfg.Plausible(bpm)
	}

	autocorr := BPMEstimate{Method: MethodAutocorrelation}
	if bpm, err := AutocorrelationBPM(filtered, cfg.SampleRate, cfg.AutocorrMinBPM, cfg.AutocorrMaxBPM); err == nil {
		autocorr.Value = bpm
		autocorr.Valid = cfg.Plausible(bpm)
	}

	temporal := BPMEstimate{Method: MethodTemporal, Value: float64(report.Coherence.AvgBPM)}
	temporal.Valid = len(peaks) >= 3 && cfg.Plausible(temporal.Value)

	report.Estimates = []BPMEstimate{peakInterval, spectral, autocorr, temporal}
	RejectPeakOutliers(report.Estimates)
	fused, err := Fuse(report.Estimates, report.Coherence.Coherence, cfg)
	report.Fused = fused
	report.LowConfidence = errors.Is(err, ErrAllMethodsImplausible)
	stop()

	return report
}

func startStage(observe StageTimer, stage string) func() {
	if observe == nil {
		return func() {}
	}
	start := time.Now()
	return func() { observe(stage, time.Since(start)) }
}

// AnalyzeRecording processes an already-captured buffer the way a live session
// would: the first QualitySeconds drive mode assignment, and for simulated
// modes the remainder is replaced by synthetic samples derived from the
// observed quality. The seed is derived from the buffer, so identical input
// yields identical output.
func AnalyzeRecording(samples []Sample, cfg Config) (Report, error) {
	return AnalyzeRecordingTimed(samples, cfg, nil)
}

// AnalyzeRecordingTimed is AnalyzeRecording with per-stage timing.
func AnalyzeRecordingTimed(samples []Sample, cfg Config, observe StageTimer) (Report, error) {
	if len(samples) < cfg.MinSamples() {
		return Report{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(samples), cfg.MinSamples())
	}

	qaCount := cfg.QualitySamples()
	if qaCount > len(samples) {
		qaCount = len(samples)
	}

	analyzer := NewQualityAnalyzer(cfg)
	mode := ModeAnalyzing
	var quality QualityMetrics
	for _, s := range samples[:qaCount] {
		if err := analyzer.Observe(s); err != nil {
			mode, quality = ModeFallback, FallbackMetrics()
			break
		}
	}
	if mode == ModeAnalyzing {
		mode, quality = analyzer.Mode()
	}

	buffer := samples
	if mode.Simulated() {
		buffer = make([]Sample, len(samples))
		copy(buffer, samples[:qaCount])
		gen := NewSyntheticGenerator(SyntheticContinuation(analyzer, samples[:qaCount], quality, cfg, BufferSeed(samples)))
		for i := qaCount; i < len(buffer); i++ {
			s := gen.Next()
			s.TimestampMs = samples[i].TimestampMs
			buffer[i] = s
		}
	}

	return EstimateTimed(buffer, mode, quality, cfg, observe)
}

// SyntheticContinuation builds the generator settings used once a session
// switches to simulation. The base rate is an indicative estimate from the
// quality window when it falls within [50,110] BPM, otherwise 72 BPM with a
// small seeded jitter.
func SyntheticContinuation(analyzer *QualityAnalyzer, observed []Sample, quality QualityMetrics, cfg Config, seed int64) SyntheticConfig {
	bpm, ok := RoughHeartRate(observed, cfg)
	if !ok || bpm < 50 || bpm > 110 {
		rng := rand.New(rand.NewSource(seed))
		bpm = cfg.TypicalBPM + (rng.Float64()*2-1)*6
	}

	var baseline Sample
	if analyzer != nil {
		baseline, _ = analyzer.Baseline()
	}

	sc := SyntheticConfigFromQuality(quality, baseline, bpm, cfg.SampleRate, seed)
	if n := len(observed); n > 0 {
		sc.StartMs = observed[n-1].TimestampMs + int64(math.Round(cfg.TickInterval()))
	}
	return sc
}

// BufferSeed hashes a buffer into a generator seed.
func BufferSeed(samples []Sample) int64 {
	h := fnv.New64a()
	var b [8]byte
	for _, s := range samples {
		for _, v := range [3]float64{s.Red, s.Green, s.Blue} {
			bits := math.Float64bits(v)
			for i := range b {
				b[i] = byte(bits >> (8 * i))
			}
			_, _ = h.Write(b[:])
		}
	}
	return int64(h.Sum64() >> 1)
}
