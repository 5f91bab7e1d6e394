package ppg

import "math"

// Validate turns a fused estimate into the reported BPM. Simulated modes nudge
// values below SimulationLowBPM up and above SimulationHighBPM down, low
// confidence pulls the value toward TypicalBPM, and the result is clamped to
// [ClampMinBPM, ClampMaxBPM].
func Validate(fused float64, mode AcquisitionMode, quality QualityMetrics, cfg Config) int {
	v := fused
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = cfg.DefaultBPM
	}

	if mode.Simulated() {
		switch {
		case v < cfg.SimulationLowBPM:
			v += cfg.SimulationBias
		case v > cfg.SimulationHighBPM:
			v -= cfg.SimulationBias
		}
	}

	if c := clamp01(quality.Confidence); c < cfg.RegressionConfidence {
		v = v*c + cfg.TypicalBPM*(1-c)
	}

	return int(math.Round(clamp(v, cfg.ClampMinBPM, cfg.ClampMaxBPM)))
}
