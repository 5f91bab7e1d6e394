package ppg

import (
	"fmt"
	"math"
)

// FusionWeights holds the base weight of each estimation method. The peak
// interval and temporal weights are further scaled by interval coherence.
type FusionWeights struct {
	PeakInterval    float64
	Spectral        float64
	Autocorrelation float64
	Temporal        float64
}

// QualityWeights controls how QualityMetrics collapse into an overall score.
type QualityWeights struct {
	SNR        float64
	Stability  float64
	Confidence float64
	Saturation float64
	SNRRef     float64 // snr at which the SNR term saturates
}

// Config carries every tunable of the engine. These values are heuristics
// that have not been calibrated against reference hardware.
type Config struct {
	SampleRate         float64 // Hz
	MeasurementSeconds float64
	QualitySeconds     float64 // length of the quality analysis phase
	QualityWindow      int     // N samples aggregated into QualityMetrics
	MinDataSeconds     float64 // finalization refuses shorter buffers
	MaxCaptureFailures int     // consecutive frame source failures tolerated
	InterimSeconds     float64 // 0 disables interim estimates

	SaturationMargin float64 // distance from 0/255 treated as clipped
	QualityWeights   QualityWeights
	OptimizedScore   float64 // overall score for RealOptimized
	CorrectedScore   float64 // overall score for RealCorrected

	BandLowHz      float64
	BandHighHz     float64
	SpectralLowHz  float64
	SpectralHighHz float64

	LMSLength      int
	LMSStep        float64
	LMSSuppression float64

	MaxPeakBPM     float64 // sets the refractory window
	AutocorrMinBPM float64
	AutocorrMaxBPM float64

	Weights         FusionWeights
	PlausibleMinBPM float64
	PlausibleMaxBPM float64
	DefaultBPM      float64 // population default when fusion has nothing

	SimulationBias       float64
	SimulationLowBPM     float64
	SimulationHighBPM    float64
	RegressionConfidence float64
	TypicalBPM           float64
	ClampMinBPM          float64
	ClampMaxBPM          float64
}

// DefaultConfig returns the engine defaults for a 30 Hz, 15 second session.
func DefaultConfig() Config {
	return Config{
		SampleRate:         30,
		MeasurementSeconds: 15,
		QualitySeconds:     3,
		QualityWindow:      30,
		MinDataSeconds:     5,
		MaxCaptureFailures: 5,
		InterimSeconds:     2,

		SaturationMargin: 15,
		QualityWeights: QualityWeights{
			SNR:        0.4,
			Stability:  0.3,
			Confidence: 0.2,
			Saturation: 0.1,
			SNRRef:     5,
		},
		OptimizedScore: 0.7,
		CorrectedScore: 0.4,

		BandLowHz:      0.5,
		BandHighHz:     4.0,
		SpectralLowHz:  0.5,
		SpectralHighHz: 3.5,

		LMSLength:      5,
		LMSStep:        0.01,
		LMSSuppression: 0.3,

		MaxPeakBPM:     150,
		AutocorrMinBPM: 40,
		AutocorrMaxBPM: 150,

		Weights: FusionWeights{
			PeakInterval:    0.4,
			Spectral:        0.3,
			Autocorrelation: 0.2,
			Temporal:        0.1,
		},
		PlausibleMinBPM: 40,
		PlausibleMaxBPM: 200,
		DefaultBPM:      75,

		SimulationBias:       3,
		SimulationLowBPM:     60,
		SimulationHighBPM:    100,
		RegressionConfidence: 0.5,
		TypicalBPM:           72,
		ClampMinBPM:          45,
		ClampMaxBPM:          190,
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfig, c.SampleRate)
	case c.MeasurementSeconds <= 0:
		return fmt.Errorf("%w: measurement duration must be positive, got %v", ErrInvalidConfig, c.MeasurementSeconds)
	case c.QualitySeconds < 0 || c.QualitySeconds > c.MeasurementSeconds:
		return fmt.Errorf("%w: quality phase %vs outside measurement of %vs", ErrInvalidConfig, c.QualitySeconds, c.MeasurementSeconds)
	case c.QualityWindow <= 0:
		return fmt.Errorf("%w: quality window must be positive, got %d", ErrInvalidConfig, c.QualityWindow)
	case c.BandLowHz <= 0 || c.BandLowHz >= c.BandHighHz:
		return fmt.Errorf("%w: invalid band [%v, %v] Hz", ErrInvalidConfig, c.BandLowHz, c.BandHighHz)
	case c.BandHighHz >= c.SampleRate/2:
		return fmt.Errorf("%w: band edge %v Hz at or above Nyquist for %v Hz", ErrInvalidConfig, c.BandHighHz, c.SampleRate)
	case c.SpectralLowHz >= c.SpectralHighHz:
		return fmt.Errorf("%w: invalid spectral search band [%v, %v] Hz", ErrInvalidConfig, c.SpectralLowHz, c.SpectralHighHz)
	case c.LMSLength <= 0:
		return fmt.Errorf("%w: adaptive filter length must be positive, got %d", ErrInvalidConfig, c.LMSLength)
	case c.MaxPeakBPM <= 0:
		return fmt.Errorf("%w: peak ceiling must be positive, got %v", ErrInvalidConfig, c.MaxPeakBPM)
	case c.AutocorrMinBPM <= 0 || c.AutocorrMinBPM >= c.AutocorrMaxBPM:
		return fmt.Errorf("%w: invalid autocorrelation range [%v, %v] BPM", ErrInvalidConfig, c.AutocorrMinBPM, c.AutocorrMaxBPM)
	case c.ClampMinBPM >= c.ClampMaxBPM:
		return fmt.Errorf("%w: invalid clamp range [%v, %v] BPM", ErrInvalidConfig, c.ClampMinBPM, c.ClampMaxBPM)
	}
	return nil
}

// WithOverrides returns c adjusted for a client-requested duration and sample
// rate, validated. Zero values keep c's own.
func (c Config) WithOverrides(durationSeconds, sampleRate float64) (Config, error) {
	if durationSeconds > 0 {
		c.MeasurementSeconds = durationSeconds
	}
	if sampleRate > 0 {
		c.SampleRate = sampleRate
	}
	return c, c.Validate()
}

// Capacity is the number of samples a full session holds.
func (c Config) Capacity() int {
	return int(math.Ceil(c.MeasurementSeconds * c.SampleRate))
}

// MinSamples is the smallest buffer finalization accepts.
func (c Config) MinSamples() int {
	return int(math.Ceil(c.MinDataSeconds * c.SampleRate))
}

// QualitySamples is the number of samples consumed by the quality phase.
func (c Config) QualitySamples() int {
	return int(math.Ceil(c.QualitySeconds * c.SampleRate))
}

// RefractorySamples is the minimum peak spacing implied by MaxPeakBPM.
func (c Config) RefractorySamples() int {
	n := int(math.Round(60 / c.MaxPeakBPM * c.SampleRate))
	if n < 1 {
		n = 1
	}
	return n
}

// TickInterval is the nominal sampling period in milliseconds.
func (c Config) TickInterval() float64 {
	return 1000 / c.SampleRate
}
