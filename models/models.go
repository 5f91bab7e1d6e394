package models

import "time"

// Frame is one optical sample as sent by a client or published on the bus.
type Frame struct {
	Red       float64 `json:"red"`
	Green     float64 `json:"green"`
	Blue      float64 `json:"blue"`
	Timestamp int64   `json:"timestamp"` // ms since session start
}

// RecordData is an already-captured measurement submitted for offline
// estimation. Either Frames is set, or Packed holds base64 RGB triplets
// (one byte per channel) sampled at SampleRate.
type RecordData struct {
	Frames     []Frame `json:"frames,omitempty"`
	Packed     string  `json:"packed,omitempty"`
	SampleRate float64 `json:"sampleRate"`
	DeviceID   string  `json:"deviceId,omitempty"`
}

// StartSession requests a live measurement over the socket transport.
// Zero values keep the server defaults.
type StartSession struct {
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	SampleRate      float64 `json:"sampleRate,omitempty"`
	DeviceID        string  `json:"deviceId,omitempty"`
}

// Progress is emitted while a session is acquiring samples.
type Progress struct {
	SessionID string `json:"sessionId"`
	Percent   int    `json:"percent"`
}

// ModeUpdate carries the acquisition mode and quality label for live display.
type ModeUpdate struct {
	SessionID  string  `json:"sessionId"`
	Mode       string  `json:"mode"`
	Score      float64 `json:"score"`
	SNR        float64 `json:"snr"`
	Stability  float64 `json:"stability"`
	Confidence float64 `json:"confidence"`
	Saturation float64 `json:"saturation"`
}

// Interim is a provisional reading computed on the trailing window.
type Interim struct {
	SessionID string `json:"sessionId"`
	BPM       int    `json:"bpm"`
}

// Wellness mirrors the arousal assessment attached to a reading.
type Wellness struct {
	Level       string   `json:"level"`
	Label       string   `json:"label"`
	Suggestion  string   `json:"suggestion"`
	Activities  []string `json:"activities"`
	RangeMinBPM int      `json:"rangeMinBpm"`
	RangeMaxBPM int      `json:"rangeMaxBpm"`
}

// Result is the envelope delivered to clients and published on the bus.
type Result struct {
	SessionID     string    `json:"sessionId"`
	BPM           int       `json:"bpm"`
	Mode          string    `json:"mode"`
	SNR           float64   `json:"snr"`
	Stability     float64   `json:"stability"`
	Confidence    float64   `json:"confidence"`
	Saturation    float64   `json:"saturation"`
	LowConfidence bool      `json:"lowConfidence"`
	Samples       int       `json:"samples"`
	Wellness      *Wellness `json:"wellness,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
	LatencyMs     float64   `json:"latencyMs"`
}

// Failure reports a session that produced no reading.
type Failure struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"` // insufficient_data | processing_error
	Message   string `json:"message"`
}

// Reading is a stored result together with where it came from.
type Reading struct {
	ID       int64  `json:"id"`
	DeviceID string `json:"deviceId,omitempty"`
	Source   string `json:"source"` // http | socket | ws
	Result
}
