package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
)

func main() {
	file := flag.String("file", "", "JSON file holding a recorded frame array (synthetic traces are sent when empty)")
	endpoint := flag.String("url", "http://localhost:5000/api/ppg/estimate", "Estimation endpoint")
	rate := flag.Float64("fs", 30, "Sampling rate of synthetic traces")
	seconds := flag.Float64("seconds", 15, "Duration of synthetic traces")
	count := flag.Int("n", 3, "Number of synthetic traces to upload")
	delay := flag.Duration("delay", 2*time.Second, "Delay between uploads")
	flag.Parse()

	records, err := resolveRecords(*file, *rate, *seconds, *count)
	if err != nil {
		log.Fatalf("failed to build recordings: %v", err)
	}

	fmt.Printf("Uploading %d recording(s) to %s\n\n", len(records), *endpoint)
	for idx, record := range records {
		if err := uploadRecording(record, *endpoint); err != nil {
			log.Printf("upload failed for %s: %v\n", record.DeviceID, err)
		}

		if idx < len(records)-1 && *delay > 0 {
			time.Sleep(*delay)
		}
	}
}

func resolveRecords(file string, rate, seconds float64, count int) ([]models.RecordData, error) {
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read frames: %w", err)
		}
		var frames []models.Frame
		if err := json.Unmarshal(raw, &frames); err != nil {
			return nil, fmt.Errorf("parse frames: %w", err)
		}
		return []models.RecordData{{Frames: frames, SampleRate: rate, DeviceID: file}}, nil
	}

	n := int(rate * seconds)
	records := make([]models.RecordData, 0, count)
	for i := 0; i < count; i++ {
		bpm := 60 + float64(i*15)
		sc := ppg.CleanSyntheticConfig(bpm, rate)
		sc.NoiseLevel = 0.05 * float64(i)
		sc.HRVDepth = 0.03
		sc.Seed = int64(i + 1)
		if i%3 == 2 {
			sc.Baseline.Red = 250
		}
		samples := ppg.NewSyntheticGenerator(sc).Generate(n)
		records = append(records, models.RecordData{
			Packed:     ppg.PackSamples(samples),
			SampleRate: rate,
			DeviceID:   fmt.Sprintf("synthetic-%.0fbpm", bpm),
		})
	}
	return records, nil
}

func uploadRecording(record models.RecordData, endpoint string) error {
	fmt.Printf("→ %s\n", record.DeviceID)

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post estimation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var result models.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode estimation response: %w", err)
	}

	fmt.Printf("   bpm=%d mode=%s snr=%.2f lowConfidence=%v latency=%.1fms\n",
		result.BPM, result.Mode, result.SNR, result.LowConfidence, result.LatencyMs)
	if result.Wellness != nil {
		fmt.Printf("   %s: %s\n", result.Wellness.Label, result.Wellness.Suggestion)
	}

	return nil
}
