package ppg

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestQualityAnalyzerSaturatedSelectsSimulation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	analyzer := NewQualityAnalyzer(cfg)
	for i := 0; i < 30; i++ {
		s := Sample{Red: 255, Green: 254, Blue: 250, TimestampMs: int64(i) * 33}
		if err := analyzer.Observe(s); err != nil {
			t.Fatalf("Observe(%d): %v", i, err)
		}
	}

	q := analyzer.Metrics()
	if math.Abs(q.Saturation-1) > 1e-9 {
		t.Fatalf("saturation = %.3f, want 1", q.Saturation)
	}
	score := cfg.OverallScore(q)
	if score >= 0.4 {
		t.Fatalf("overall score %.3f should be below 0.4", score)
	}
	if mode, _ := analyzer.Mode(); mode != ModeAdaptiveSimulation {
		t.Fatalf("mode = %s, want adaptive_simulation", mode)
	}
}

func TestQualityAnalyzerCleanSignalIsOptimized(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	analyzer := NewQualityAnalyzer(cfg)
	for _, s := range NewSyntheticGenerator(CleanSyntheticConfig(72, cfg.SampleRate)).Generate(cfg.QualitySamples()) {
		if err := analyzer.Observe(s); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}

	mode, q := analyzer.Mode()
	if mode != ModeRealOptimized {
		t.Fatalf("mode = %s (score %.3f, metrics %+v)", mode, cfg.OverallScore(q), q)
	}
	if q.SNR < 5 {
		t.Errorf("snr %.2f unexpectedly low for a clean trace", q.SNR)
	}
	if _, ok := analyzer.Baseline(); !ok {
		t.Errorf("baseline missing after unclipped samples")
	}
}

func TestQualityMetricsStayInBounds(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		analyzer := NewQualityAnalyzer(cfg)
		var ts int64
		for i := 0; i < 120; i++ {
			ts += 1 + rng.Int63n(120)
			s := Sample{
				Red:         rng.Float64() * 255,
				Green:       rng.Float64() * 255,
				Blue:        rng.Float64() * 255,
				TimestampMs: ts,
			}
			if err := analyzer.Observe(s); err != nil {
				t.Fatalf("seed %d sample %d: %v", seed, i, err)
			}

			q := analyzer.Metrics()
			for name, v := range map[string]float64{"stability": q.Stability, "confidence": q.Confidence, "saturation": q.Saturation} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("seed %d sample %d: %s = %v outside [0,1]", seed, i, name, v)
				}
			}
			if q.SNR < 0 || math.IsNaN(q.SNR) {
				t.Fatalf("seed %d sample %d: snr = %v", seed, i, q.SNR)
			}
			if score := cfg.OverallScore(q); score < 0 || score > 1 {
				t.Fatalf("seed %d sample %d: score = %v", seed, i, score)
			}
		}
	}
}

func TestQualityAnalyzerRejectsInvalidSamples(t *testing.T) {
	t.Parallel()

	analyzer := NewQualityAnalyzer(DefaultConfig())
	if err := analyzer.Observe(Sample{Red: 100, Green: 50, Blue: 30, TimestampMs: 100}); err != nil {
		t.Fatalf("valid sample rejected: %v", err)
	}

	cases := map[string]Sample{
		"nan channel":    {Red: math.NaN(), Green: 50, Blue: 30, TimestampMs: 200},
		"out of range":   {Red: 300, Green: 50, Blue: 30, TimestampMs: 200},
		"stale stamp":    {Red: 100, Green: 50, Blue: 30, TimestampMs: 100},
		"negative stamp": {Red: 100, Green: 50, Blue: 30, TimestampMs: -5},
	}
	for name, s := range cases {
		if err := analyzer.Observe(s); !errors.Is(err, ErrInvalidSample) {
			t.Errorf("%s: expected ErrInvalidSample, got %v", name, err)
		}
	}
	if analyzer.Observed() != 1 {
		t.Errorf("rejected samples were counted: %d", analyzer.Observed())
	}
}

func TestModeForScoreThresholds(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cases := []struct {
		score float64
		want  AcquisitionMode
	}{
		{0.95, ModeRealOptimized},
		{0.7, ModeRealOptimized},
		{0.69, ModeRealCorrected},
		{0.4, ModeRealCorrected},
		{0.39, ModeAdaptiveSimulation},
		{0, ModeAdaptiveSimulation},
	}
	for _, tc := range cases {
		if got := cfg.ModeForScore(tc.score); got != tc.want {
			t.Errorf("ModeForScore(%.2f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestOverallScoreWeights(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	q := QualityMetrics{SNR: 2.5, Stability: 0.5, Confidence: 0.5, Saturation: 0.5}
	want := 0.4*0.5 + 0.3*0.5 + 0.2*0.5 + 0.1*0.5
	if got := cfg.OverallScore(q); math.Abs(got-want) > 1e-9 {
		t.Fatalf("OverallScore = %.4f, want %.4f", got, want)
	}
	if got := cfg.OverallScore(FallbackMetrics()); got != 0 {
		t.Fatalf("fallback metrics score = %.4f, want 0", got)
	}
}

func TestAcquisitionModeText(t *testing.T) {
	t.Parallel()

	for _, mode := range []AcquisitionMode{ModeAnalyzing, ModeRealOptimized, ModeRealCorrected, ModeAdaptiveSimulation, ModeFallback} {
		text, err := mode.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", mode, err)
		}
		var parsed AcquisitionMode
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if parsed != mode {
			t.Errorf("round trip %s -> %s", mode, parsed)
		}
	}
	if !ModeFallback.Simulated() || ModeRealCorrected.Simulated() {
		t.Errorf("Simulated() misclassifies modes")
	}
}
