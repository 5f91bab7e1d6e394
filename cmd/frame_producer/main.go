package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	osSignal "os/signal"
	"time"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/stream"
)

// Publishes a synthetic fingertip trace on the frame subject at the camera
// rate, standing in for a phone during bench tests of the listen command.
func main() {

	var (
		natsURL   = flag.String("nats", "nats://127.0.0.1:4222", "NATS url")
		subject   = flag.String("subject", "ppg.frames", "subject")
		fs        = flag.Float64("fs", 30, "sampling rate Hz")
		hr        = flag.Float64("hr", 72, "heart rate bpm")
		noise     = flag.Float64("noise", 0.05, "relative noise level")
		saturated = flag.Bool("saturated", false, "clip the red channel as an over-exposed camera would")
		batch     = flag.Int("batch", 3, "frames per message")
		seed      = flag.Int64("seed", 1, "generator seed")
	)
	flag.Parse()

	nc, err := stream.Connect(*natsURL)
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Drain()

	cfg := ppg.CleanSyntheticConfig(*hr, *fs)
	cfg.NoiseLevel = *noise
	cfg.HRVDepth = 0.03
	cfg.RespirationRate = 0.25
	cfg.RespirationAmplitude = 0.1
	cfg.Seed = *seed
	if *saturated {
		cfg.Baseline.Red = 250
	}
	gen := ppg.NewSyntheticGenerator(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	osSignal.Notify(ch, os.Interrupt)

	go func() {
		<-ch
		cancel()
	}()

	period := time.Duration(float64(time.Second) / *fs)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buffer := make([]models.Frame, 0, *batch)
	sent := 0

	for {
		select {
		case <-ctx.Done():
			log.Printf("producer: stopping after %d frames\n", sent)
			return

		case <-ticker.C:
			buffer = append(buffer, ppg.ToFrame(gen.Next()))

			if len(buffer) >= *batch {
				out, err := json.Marshal(buffer)
				if err != nil {
					log.Fatal(err)
				}
				if err := nc.Publish(*subject, out); err != nil {
					log.Printf("producer: publish failed: %v\n", err)
				}
				sent += len(buffer)
				buffer = buffer[:0]
			}
		}
	}
}
