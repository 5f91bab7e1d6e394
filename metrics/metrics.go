package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ppg_sessions_active",
		Help: "Measurement sessions currently acquiring samples",
	})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppg_sessions_started_total",
		Help: "Measurement sessions started",
	})

	SessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppg_sessions_completed_total",
		Help: "Finished sessions by outcome",
	}, []string{"outcome"})

	ModeAssigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppg_mode_assigned_total",
		Help: "Acquisition modes chosen after the quality phase",
	}, []string{"mode"})

	CaptureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppg_capture_failures_total",
		Help: "Frame source ticks that produced no usable sample",
	})

	SynthesizedSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppg_synthesized_samples_total",
		Help: "Samples produced by the synthetic generator",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ppg_stage_duration_seconds",
		Help:    "Per-stage estimation latency",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}, []string{"stage"})

	QualityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppg_quality_score",
		Help:    "Overall acquisition quality score per session",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	RecordingsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppg_recordings_analyzed_total",
		Help: "Offline recordings submitted for estimation by outcome",
	}, []string{"outcome"})

	StreamConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ppg_stream_connections",
		Help: "Open WebSocket frame streams",
	})

	LastBPM = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ppg_last_bpm",
		Help: "Most recently reported heart rate",
	})
)

// Outcome labels for SessionsCompleted and RecordingsAnalyzed.
const (
	OutcomeResult           = "result"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeProcessingError  = "processing_error"
	OutcomeInvalidInput     = "invalid_input"
)

// ObserveStage records one estimation stage duration.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
