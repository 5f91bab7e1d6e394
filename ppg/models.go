package ppg

import (
	"fmt"
	"strings"
)

// Sample is one optical reading: three channel intensities (0-255) and a
// monotonic timestamp in milliseconds since the session started.
type Sample struct {
	Red         float64 `json:"red"`
	Green       float64 `json:"green"`
	Blue        float64 `json:"blue"`
	TimestampMs int64   `json:"timestamp"`
}

// QualityMetrics summarises acquisition quality over an analysis window.
// Stability, Confidence and Saturation lie in [0,1]; SNR is unbounded.
type QualityMetrics struct {
	SNR        float64 `json:"snr"`
	Stability  float64 `json:"stability"`
	Confidence float64 `json:"confidence"`
	Saturation float64 `json:"saturation"`
}

// AcquisitionMode is assigned once per session after the quality phase.
type AcquisitionMode int

const (
	ModeAnalyzing AcquisitionMode = iota
	ModeRealOptimized
	ModeRealCorrected
	ModeAdaptiveSimulation
	ModeFallback
)

var modeNames = map[AcquisitionMode]string{
	ModeAnalyzing:          "analyzing",
	ModeRealOptimized:      "real_optimized",
	ModeRealCorrected:      "real_corrected",
	ModeAdaptiveSimulation: "adaptive_simulation",
	ModeFallback:           "fallback",
}

func (m AcquisitionMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Simulated reports whether remaining samples come from the synthetic generator.
func (m AcquisitionMode) Simulated() bool {
	return m == ModeAdaptiveSimulation || m == ModeFallback
}

func (m AcquisitionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *AcquisitionMode) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for mode, candidate := range modeNames {
		if candidate == name {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown acquisition mode %q", name)
}

// Method identifies one BPM estimation technique.
type Method int

const (
	MethodPeakInterval Method = iota
	MethodSpectral
	MethodAutocorrelation
	MethodTemporal
)

func (m Method) String() string {
	switch m {
	case MethodPeakInterval:
		return "peak_interval"
	case MethodSpectral:
		return "spectral"
	case MethodAutocorrelation:
		return "autocorrelation"
	case MethodTemporal:
		return "temporal"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	for _, candidate := range []Method{MethodPeakInterval, MethodSpectral, MethodAutocorrelation, MethodTemporal} {
		if candidate.String() == string(text) {
			*m = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown estimation method %q", text)
}

// BPMEstimate is the output of a single estimation method. Valid is false when
// the method produced nothing or its value falls outside the plausible range.
type BPMEstimate struct {
	Method Method  `json:"method"`
	Value  float64 `json:"value"`
	Valid  bool    `json:"valid"`
}

// SessionResult is the only artifact handed to a result sink.
type SessionResult struct {
	BPM     int             `json:"bpm"`
	Mode    AcquisitionMode `json:"mode"`
	Quality QualityMetrics  `json:"quality"`
}

// Coherence describes the regularity of inter-peak intervals.
type Coherence struct {
	MeanRR    float64 `json:"meanRR"`
	StdRR     float64 `json:"stdRR"`
	Coherence float64 `json:"coherence"`
	AvgBPM    int     `json:"avgBPM"`
}

// Report packages a SessionResult with the intermediate values that produced it.
type Report struct {
	Result            SessionResult `json:"result"`
	Estimates         []BPMEstimate `json:"estimates"`
	Fused             float64       `json:"fused"`
	LowConfidence     bool          `json:"lowConfidence"`
	Coherence         Coherence     `json:"coherence"`
	DominantFrequency float64       `json:"dominantFrequency"`
	PeakCount         int           `json:"peakCount"`
	SampleCount       int           `json:"sampleCount"`
}
