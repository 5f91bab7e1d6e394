package ppg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// AutocorrelationBPM finds the lag of maximum autocorrelation among lags that
// correspond to [minBPM, maxBPM] and converts it to BPM. The lag is refined
// by parabolic interpolation around the maximum.
func AutocorrelationBPM(signal []float64, sampleRate, minBPM, maxBPM float64) (float64, error) {
	n := len(signal)
	minLag := int(math.Floor(60 / maxBPM * sampleRate))
	maxLag := int(math.Ceil(60 / minBPM * sampleRate))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag > n-2 {
		maxLag = n - 2
	}
	if minLag > maxLag {
		return 0, fmt.Errorf("%w: %d samples cannot cover lag %d", ErrInsufficientSamples, n, minLag)
	}

	corr := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1; lag++ {
		corr[lag] = floats.Dot(signal[:n-lag], signal[lag:])
	}

	search := corr[minLag : maxLag+1]
	best := minLag + floats.MaxIdx(search)
	if corr[best] <= 0 {
		return 0, fmt.Errorf("%w: no positive autocorrelation between lags %d and %d", ErrNoPeaksDetected, minLag, maxLag)
	}

	lag := float64(best)
	if best > minLag && best < maxLag {
		y0, y1, y2 := corr[best-1], corr[best], corr[best+1]
		if denom := y0 - 2*y1 + y2; denom < 0 {
			lag += 0.5 * (y0 - y2) / denom
		}
	}
	return 60 * sampleRate / lag, nil
}

const (
	consensusTolerance = 0.10
	peakRateTolerance  = 0.25
)

// RejectPeakOutliers marks the peak-interval and temporal estimates invalid
// when spectral and autocorrelation agree with each other within 10% but the
// peak-based value sits more than 25% away from their mean. Near the
// refractory ceiling the peak detector can skip beats and report a fraction
// of the true rate with high coherence.
func RejectPeakOutliers(estimates []BPMEstimate) {
	var spectral, autocorr BPMEstimate
	var haveSpectral, haveAutocorr bool
	for _, e := range estimates {
		switch e.Method {
		case MethodSpectral:
			spectral, haveSpectral = e, e.Valid
		case MethodAutocorrelation:
			autocorr, haveAutocorr = e, e.Valid
		}
	}
	if !haveSpectral || !haveAutocorr {
		return
	}

	consensus := (spectral.Value + autocorr.Value) / 2
	if consensus <= 0 || math.Abs(spectral.Value-autocorr.Value) > consensusTolerance*consensus {
		return
	}

	for i := range estimates {
		e := &estimates[i]
		if e.Method != MethodPeakInterval && e.Method != MethodTemporal {
			continue
		}
		if e.Valid && math.Abs(e.Value-consensus) > peakRateTolerance*consensus {
			e.Valid = false
		}
	}
}

// Plausible reports whether bpm lies within the configured physiological range.
func (c Config) Plausible(bpm float64) bool {
	return !math.IsNaN(bpm) && bpm >= c.PlausibleMinBPM && bpm <= c.PlausibleMaxBPM
}

// Fuse combines valid estimates as a weighted average. Peak-interval and
// temporal weights scale with coherence. When no estimate carries weight it
// returns DefaultBPM together with ErrAllMethodsImplausible.
func Fuse(estimates []BPMEstimate, coherence float64, cfg Config) (float64, error) {
	var sum, total float64
	for _, e := range estimates {
		if !e.Valid || !cfg.Plausible(e.Value) {
			continue
		}
		w := methodWeight(e.Method, coherence, cfg.Weights)
		if w <= 0 {
			continue
		}
		sum += w * e.Value
		total += w
	}

	if total == 0 {
		return cfg.DefaultBPM, ErrAllMethodsImplausible
	}
	return sum / total, nil
}

func methodWeight(m Method, coherence float64, w FusionWeights) float64 {
	switch m {
	case MethodPeakInterval:
		return w.PeakInterval * coherence
	case MethodSpectral:
		return w.Spectral
	case MethodAutocorrelation:
		return w.Autocorrelation
	case MethodTemporal:
		return w.Temporal * coherence
	}
	return 0
}
