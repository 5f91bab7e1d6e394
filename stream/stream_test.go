package stream

import (
	"fmt"
	"testing"

	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
)

func TestDecodeFrames(t *testing.T) {
	t.Parallel()

	single, err := DecodeFrames([]byte(` {"red":120.5,"green":60,"blue":40,"timestamp":33} `))
	if err != nil {
		t.Fatalf("single frame: %v", err)
	}
	if len(single) != 1 || single[0].Red != 120.5 || single[0].Timestamp != 33 {
		t.Fatalf("single frame decoded as %+v", single)
	}

	batch, err := DecodeFrames([]byte(`[{"red":1,"timestamp":0},{"red":2,"timestamp":33}]`))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(batch) != 2 || batch[1].Red != 2 {
		t.Fatalf("batch decoded as %+v", batch)
	}

	for _, bad := range []string{"", "   ", "{", "[1,2]", "nope"} {
		if _, err := DecodeFrames([]byte(bad)); err == nil {
			t.Errorf("DecodeFrames(%q) accepted malformed input", bad)
		}
	}
}

func TestFailureEnvelope(t *testing.T) {
	t.Parallel()

	insufficient := FailureEnvelope("ppg_1", fmt.Errorf("finalize: %w", ppg.ErrInsufficientSamples))
	if insufficient.Reason != ReasonInsufficientData {
		t.Fatalf("reason = %s", insufficient.Reason)
	}

	processing := FailureEnvelope("ppg_2", fmt.Errorf("%w: boom", session.ErrProcessing))
	if processing.Reason != ReasonProcessingError || processing.Message == "" {
		t.Fatalf("processing failure = %+v", processing)
	}
}
