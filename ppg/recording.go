package ppg

// Recording Decoding
//
// Offline estimation receives a measurement that was captured elsewhere. The
// client either sends explicit frames or a compact base64 blob:
//
//  1. Frames: each carries its own channel intensities and timestamp.
//  2. Packed: base64 of consecutive R,G,B bytes; timestamps are derived from
//     the sample rate, sample i sitting at round(i·1000/rate) ms.
//
// Both forms are validated sample by sample before entering the pipeline.

import (
	"encoding/base64"
	"fmt"
	"math"

	"ppg-heartrate/models"
)

// Recording is a decoded, validated sample buffer.
type Recording struct {
	Samples    []Sample
	SampleRate float64
	Duration   float64 // seconds
}

// PrepareRecording decodes a submitted recording. A zero sample rate means
// defaultRate.
func PrepareRecording(rec models.RecordData, defaultRate float64) (*Recording, error) {
	rate := rec.SampleRate
	if rate == 0 {
		rate = defaultRate
	}
	if rate <= 0 || math.IsNaN(rate) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidSample, rate)
	}

	var samples []Sample
	switch {
	case len(rec.Frames) > 0:
		samples = make([]Sample, len(rec.Frames))
		for i, f := range rec.Frames {
			samples[i] = FromFrame(f)
		}
	case rec.Packed != "":
		raw, err := base64.StdEncoding.DecodeString(rec.Packed)
		if err != nil {
			return nil, fmt.Errorf("failed to decode packed samples: %w", err)
		}
		if len(raw)%3 != 0 {
			return nil, fmt.Errorf("%w: packed length %d is not a multiple of 3", ErrInvalidSample, len(raw))
		}
		samples = make([]Sample, len(raw)/3)
		for i := range samples {
			samples[i] = Sample{
				Red:         float64(raw[3*i]),
				Green:       float64(raw[3*i+1]),
				Blue:        float64(raw[3*i+2]),
				TimestampMs: int64(math.Round(float64(i) * 1000 / rate)),
			}
		}
	default:
		return nil, fmt.Errorf("%w: recording carries no samples", ErrInsufficientSamples)
	}

	for i, s := range samples {
		if err := CheckSample(s); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if i > 0 && s.TimestampMs <= samples[i-1].TimestampMs {
			return nil, fmt.Errorf("sample %d: %w: timestamp %d does not follow %d", i, ErrInvalidSample, s.TimestampMs, samples[i-1].TimestampMs)
		}
	}

	return &Recording{
		Samples:    samples,
		SampleRate: rate,
		Duration:   float64(len(samples)) / rate,
	}, nil
}

// PackSamples encodes samples in the packed base64 form, rounding channels to bytes.
func PackSamples(samples []Sample) string {
	raw := make([]byte, 0, 3*len(samples))
	for _, s := range samples {
		raw = append(raw, toByte(s.Red), toByte(s.Green), toByte(s.Blue))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func toByte(v float64) byte {
	return byte(math.Round(clamp(v, 0, 255)))
}
