package ppg

import "errors"

var (
	// ErrInsufficientSamples is returned when a buffer holds less than the
	// configured minimum duration of samples at finalization.
	ErrInsufficientSamples = errors.New("ppg: insufficient samples")

	// ErrNoPeaksDetected marks a peak-based method that found nothing to measure.
	ErrNoPeaksDetected = errors.New("ppg: no peaks detected")

	// ErrAllMethodsImplausible is reported when fusion has no valid candidate.
	// Fuse still returns the default estimate alongside it.
	ErrAllMethodsImplausible = errors.New("ppg: all estimation methods implausible")

	ErrInvalidSample = errors.New("ppg: invalid sample")
	ErrInvalidConfig = errors.New("ppg: invalid config")
)
