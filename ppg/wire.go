package ppg

import (
	"time"

	"ppg-heartrate/models"
)

// FromFrame converts a wire frame into a Sample.
func FromFrame(f models.Frame) Sample {
	return Sample{Red: f.Red, Green: f.Green, Blue: f.Blue, TimestampMs: f.Timestamp}
}

// ToFrame converts a Sample into its wire form.
func ToFrame(s Sample) models.Frame {
	return models.Frame{Red: s.Red, Green: s.Green, Blue: s.Blue, Timestamp: s.TimestampMs}
}

// ResultEnvelope builds the transport payload for a finished session,
// including the wellness assessment of the reported rate.
func ResultEnvelope(sessionID string, report Report, completedAt time.Time) models.Result {
	r := report.Result
	assessment := AssessWellness(r.BPM)

	activities := make([]string, len(assessment.Activities))
	for i, a := range assessment.Activities {
		activities[i] = string(a)
	}

	return models.Result{
		SessionID:     sessionID,
		BPM:           r.BPM,
		Mode:          r.Mode.String(),
		SNR:           r.Quality.SNR,
		Stability:     r.Quality.Stability,
		Confidence:    r.Quality.Confidence,
		Saturation:    r.Quality.Saturation,
		LowConfidence: report.LowConfidence,
		Samples:       report.SampleCount,
		Wellness: &models.Wellness{
			Level:       string(assessment.Level),
			Label:       assessment.Label,
			Suggestion:  assessment.Suggestion,
			Activities:  activities,
			RangeMinBPM: assessment.RangeMinBPM,
			RangeMaxBPM: assessment.RangeMaxBPM,
		},
		CompletedAt: completedAt,
	}
}

// ModeEnvelope builds the live mode/quality label.
func ModeEnvelope(sessionID string, mode AcquisitionMode, q QualityMetrics, score float64) models.ModeUpdate {
	return models.ModeUpdate{
		SessionID:  sessionID,
		Mode:       mode.String(),
		Score:      score,
		SNR:        q.SNR,
		Stability:  q.Stability,
		Confidence: q.Confidence,
		Saturation: q.Saturation,
	}
}
