package main

import (
	"ppg-heartrate/ppg"
	"ppg-heartrate/utils"
)

// loadEngineConfig applies PPG_* environment overrides to the default
// engine configuration.
func loadEngineConfig() (ppg.Config, error) {
	cfg := ppg.DefaultConfig()
	cfg.SampleRate = utils.GetEnvFloat("PPG_SAMPLE_RATE", cfg.SampleRate)
	cfg.MeasurementSeconds = utils.GetEnvFloat("PPG_DURATION_SECONDS", cfg.MeasurementSeconds)
	cfg.QualitySeconds = utils.GetEnvFloat("PPG_QUALITY_SECONDS", cfg.QualitySeconds)
	cfg.MinDataSeconds = utils.GetEnvFloat("PPG_MIN_DATA_SECONDS", cfg.MinDataSeconds)
	cfg.InterimSeconds = utils.GetEnvFloat("PPG_INTERIM_SECONDS", cfg.InterimSeconds)
	cfg.MaxCaptureFailures = utils.GetEnvInt("PPG_MAX_CAPTURE_FAILURES", cfg.MaxCaptureFailures)
	cfg.DefaultBPM = utils.GetEnvFloat("PPG_DEFAULT_BPM", cfg.DefaultBPM)
	return cfg, cfg.Validate()
}
