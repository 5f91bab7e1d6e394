package ppg

import (
	"errors"
	"math"
	"testing"
)

func TestFuseWeightedAverage(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	estimates := []BPMEstimate{
		{Method: MethodPeakInterval, Value: 70, Valid: true},
		{Method: MethodSpectral, Value: 80, Valid: true},
		{Method: MethodAutocorrelation, Value: 90, Valid: true},
		{Method: MethodTemporal, Value: 100, Valid: true},
	}

	cases := []struct {
		name      string
		coherence float64
		want      float64
	}{
		{"full coherence", 1, 80},
		{"no coherence", 0, 84},
		{"half coherence", 0.5, (0.2*70 + 0.3*80 + 0.2*90 + 0.05*100) / 0.75},
	}
	for _, tc := range cases {
		got, err := Fuse(estimates, tc.coherence, cfg)
		if err != nil {
			t.Fatalf("%s: Fuse returned error: %v", tc.name, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: fused %.4f, want %.4f", tc.name, got, tc.want)
		}
	}
}

func TestFuseDiscardsImplausible(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	estimates := []BPMEstimate{
		{Method: MethodSpectral, Value: 250, Valid: true},
		{Method: MethodAutocorrelation, Value: 66, Valid: true},
		{Method: MethodPeakInterval, Value: 30, Valid: true},
	}
	got, err := Fuse(estimates, 1, cfg)
	if err != nil {
		t.Fatalf("Fuse returned error: %v", err)
	}
	if math.Abs(got-66) > 1e-9 {
		t.Fatalf("fused %.2f, want 66", got)
	}
}

func TestFuseDefaultsWhenNothingValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	estimates := []BPMEstimate{
		{Method: MethodPeakInterval, Value: 72, Valid: true},
		{Method: MethodSpectral, Value: 20, Valid: true},
		{Method: MethodAutocorrelation, Valid: false},
		{Method: MethodTemporal, Value: 72, Valid: true},
	}

	// without coherence the peak-based methods carry no weight
	got, err := Fuse(estimates, 0, cfg)
	if !errors.Is(err, ErrAllMethodsImplausible) {
		t.Fatalf("expected ErrAllMethodsImplausible, got %v", err)
	}
	if got != 75 {
		t.Fatalf("fused %.2f, want population default 75", got)
	}
}

func TestAutocorrelationBPM(t *testing.T) {
	t.Parallel()

	cases := []struct {
		period float64
		want   float64
	}{
		{20, 90},
		{25, 72},
		{36, 50},
	}
	for _, tc := range cases {
		got, err := AutocorrelationBPM(sine(450, tc.period), 30, 40, 150)
		if err != nil {
			t.Fatalf("period %.0f: %v", tc.period, err)
		}
		if math.Abs(got-tc.want) > 1 {
			t.Errorf("period %.0f: %.2f BPM, want %.0f", tc.period, got, tc.want)
		}
	}

	if _, err := AutocorrelationBPM(make([]float64, 200), 30, 40, 150); !errors.Is(err, ErrNoPeaksDetected) {
		t.Errorf("flat input: expected ErrNoPeaksDetected, got %v", err)
	}
	if _, err := AutocorrelationBPM(sine(10, 5), 30, 40, 150); !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("short input: expected ErrInsufficientSamples, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	confident := QualityMetrics{Confidence: 1}

	cases := []struct {
		name    string
		fused   float64
		mode    AcquisitionMode
		quality QualityMetrics
		want    int
	}{
		{"real low untouched", 55, ModeRealOptimized, confident, 55},
		{"simulated low nudged up", 55, ModeAdaptiveSimulation, confident, 58},
		{"simulated high nudged down", 120, ModeFallback, confident, 117},
		{"simulated mid untouched", 80, ModeAdaptiveSimulation, confident, 80},
		{"zero confidence regresses fully", 100, ModeRealCorrected, QualityMetrics{}, 72},
		{"quarter confidence", 100, ModeRealCorrected, QualityMetrics{Confidence: 0.25}, 79},
		{"half confidence untouched", 100, ModeRealCorrected, QualityMetrics{Confidence: 0.5}, 100},
		{"clamped high", 300, ModeRealOptimized, confident, 190},
		{"clamped low", 20, ModeRealOptimized, confident, 45},
		{"nan uses default", math.NaN(), ModeRealOptimized, confident, 75},
	}
	for _, tc := range cases {
		if got := Validate(tc.fused, tc.mode, tc.quality, cfg); got != tc.want {
			t.Errorf("%s: Validate(%.1f) = %d, want %d", tc.name, tc.fused, got, tc.want)
		}
	}
}

func TestRejectPeakOutliers(t *testing.T) {
	t.Parallel()

	skipped := []BPMEstimate{
		{Method: MethodPeakInterval, Value: 59.7, Valid: true},
		{Method: MethodSpectral, Value: 144, Valid: true},
		{Method: MethodAutocorrelation, Value: 150, Valid: true},
		{Method: MethodTemporal, Value: 60, Valid: true},
	}
	RejectPeakOutliers(skipped)
	if skipped[0].Valid || skipped[3].Valid {
		t.Fatalf("beat-skipping estimates kept: %+v", skipped)
	}
	if !skipped[1].Valid || !skipped[2].Valid {
		t.Fatalf("consensus estimates dropped: %+v", skipped)
	}
	fused, err := Fuse(skipped, 0.95, DefaultConfig())
	if err != nil {
		t.Fatalf("Fuse returned error: %v", err)
	}
	if math.Abs(fused-145) > 3 {
		t.Fatalf("fused %.2f, want 145±3", fused)
	}

	// no consensus to judge against
	split := []BPMEstimate{
		{Method: MethodPeakInterval, Value: 60, Valid: true},
		{Method: MethodSpectral, Value: 144, Valid: true},
		{Method: MethodAutocorrelation, Value: 90, Valid: true},
		{Method: MethodTemporal, Value: 60, Valid: true},
	}
	RejectPeakOutliers(split)
	if !split[0].Valid || !split[3].Valid {
		t.Fatalf("estimates rejected without consensus: %+v", split)
	}

	agreeing := []BPMEstimate{
		{Method: MethodPeakInterval, Value: 73, Valid: true},
		{Method: MethodSpectral, Value: 72, Valid: true},
		{Method: MethodAutocorrelation, Value: 71, Valid: true},
		{Method: MethodTemporal, Value: 74, Valid: true},
	}
	RejectPeakOutliers(agreeing)
	for _, e := range agreeing {
		if !e.Valid {
			t.Fatalf("agreeing estimate rejected: %+v", e)
		}
	}
}
