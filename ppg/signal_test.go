package ppg

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestMedianFilter3RemovesImpulse(t *testing.T) {
	t.Parallel()

	got := MedianFilter3([]float64{0, 0, 10, 0, 0, -8, 0})
	want := []float64{0, 0, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MedianFilter3 = %v, want %v", got, want)
	}
}

func TestPreprocessNormalises(t *testing.T) {
	t.Parallel()

	ramp := make([]float64, 50)
	for i := range ramp {
		ramp[i] = 100 + 2*float64(i)
	}
	out := Preprocess(ramp)
	if len(out) != len(ramp) {
		t.Fatalf("length changed: %d -> %d", len(ramp), len(out))
	}
	if m := mean(out); math.Abs(m) > 1e-9 {
		t.Errorf("mean = %g, want 0", m)
	}
	if sd := stdDev(out); math.Abs(sd-1) > 1e-9 {
		t.Errorf("std = %g, want 1", sd)
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Fatalf("order not preserved at %d", i)
		}
	}

	flat := Preprocess([]float64{5, 5, 5, 5})
	for _, v := range flat {
		if v != 0 {
			t.Fatalf("constant input should become zeros, got %v", flat)
		}
	}
	if Preprocess(nil) != nil {
		t.Fatalf("nil input should stay nil")
	}
}

func TestHighPassRemovesDC(t *testing.T) {
	t.Parallel()

	constant := make([]float64, 300)
	for i := range constant {
		constant[i] = 5
	}
	out := HighPassFilter(constant, 30, 0.5)
	if out[0] != 5 {
		t.Errorf("first output = %v, want input", out[0])
	}
	if last := out[len(out)-1]; math.Abs(last) > 1e-6 {
		t.Errorf("DC not removed, last output %g", last)
	}

	low := LowPassFilter(constant, 30, 4)
	if last := low[len(low)-1]; math.Abs(last-5) > 1e-6 {
		t.Errorf("low-pass should settle on DC, got %g", last)
	}

	// cutoff above Nyquist leaves the signal alone
	if got := LowPassFilter(constant, 30, 20); &got[0] != &constant[0] {
		t.Errorf("out-of-range cutoff should return input")
	}

	if got := HighPassFilter(nil, 30, 0.5); len(got) != 0 {
		t.Errorf("empty trace produced %d samples", len(got))
	}
	if got := LowPassFilter([]float64{}, 30, 4); len(got) != 0 {
		t.Errorf("empty trace produced %d samples", len(got))
	}
}

func TestBandRestrictAttenuatesOutOfBand(t *testing.T) {
	t.Parallel()

	inBand := BandRestrict(sine(600, 25), 30, 0.5, 4)   // 1.2 Hz
	outBand := BandRestrict(sine(600, 2.5), 30, 0.5, 4) // 12 Hz
	slow := BandRestrict(sine(600, 300), 30, 0.5, 4)    // 0.1 Hz
	tail := func(x []float64) float64 { return stdDev(x[300:]) }

	if tail(outBand) >= tail(inBand) {
		t.Errorf("12 Hz not attenuated: %.3f vs %.3f", tail(outBand), tail(inBand))
	}
	if tail(slow) >= tail(inBand) {
		t.Errorf("0.1 Hz not attenuated: %.3f vs %.3f", tail(slow), tail(inBand))
	}
}

func TestAdaptiveFilterDeterministic(t *testing.T) {
	t.Parallel()

	signal := sine(200, 25)
	f := NewAdaptiveFilter(5, 0.01, 0.3)
	first := f.Apply(signal)
	second := f.Apply(signal)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Apply depends on previous state")
	}
	if len(first) != len(signal) {
		t.Fatalf("length changed")
	}
	// with zero coefficients the first output keeps 70% of the input
	if math.Abs(first[1]-0.7*signal[1]) > 1e-12 {
		t.Errorf("first adaptive output %g, want %g", first[1], 0.7*signal[1])
	}
}

func TestDominantFrequency(t *testing.T) {
	t.Parallel()

	freq, err := DominantFrequency(sine(300, 20), 30, 0.5, 3.5)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	if math.Abs(freq-1.5) > 30.0/512 {
		t.Fatalf("frequency %.4f, want 1.5 within one bin", freq)
	}
	if bpm := SpectralBPM(freq); math.Abs(bpm-90) > 4 {
		t.Fatalf("spectral BPM %.0f", bpm)
	}

	if _, err := DominantFrequency([]float64{1}, 30, 0.5, 3.5); !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("single sample: expected ErrInsufficientSamples, got %v", err)
	}
	if _, err := DominantFrequency(make([]float64, 64), 30, 0.5, 3.5); !errors.Is(err, ErrNoPeaksDetected) {
		t.Errorf("silent input: expected ErrNoPeaksDetected, got %v", err)
	}
}

func TestSyntheticGeneratorReproducible(t *testing.T) {
	t.Parallel()

	cfg := SyntheticConfigFromQuality(QualityMetrics{Confidence: 0.3, Stability: 0.4}, Sample{Red: 170, Green: 70, Blue: 50}, 80, 30, 99)
	a := NewSyntheticGenerator(cfg).Generate(300)
	b := NewSyntheticGenerator(cfg).Generate(300)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different traces")
	}

	cfg.Seed = 100
	c := NewSyntheticGenerator(cfg).Generate(300)
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced identical traces")
	}
}

func TestSyntheticGeneratorChannels(t *testing.T) {
	t.Parallel()

	samples := NewSyntheticGenerator(CleanSyntheticConfig(72, 30)).Generate(90)
	redLo, redHi, blueLo, blueHi := 255.0, 0.0, 255.0, 0.0
	for i, s := range samples {
		if err := CheckSample(s); err != nil {
			t.Fatalf("sample %d invalid: %v", i, err)
		}
		if want := int64(math.Round(float64(i) * 1000 / 30)); s.TimestampMs != want {
			t.Fatalf("sample %d timestamp %d, want %d", i, s.TimestampMs, want)
		}
		redLo, redHi = math.Min(redLo, s.Red), math.Max(redHi, s.Red)
		blueLo, blueHi = math.Min(blueLo, s.Blue), math.Max(blueHi, s.Blue)
	}
	if redHi-redLo <= blueHi-blueLo {
		t.Fatalf("red swing %.2f should exceed blue swing %.2f", redHi-redLo, blueHi-blueLo)
	}
}
