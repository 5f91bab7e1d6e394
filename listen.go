package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
	"ppg-heartrate/stream"
	"ppg-heartrate/utils"

	"github.com/mdobak/go-xerrors"
)

// listen runs sessions back to back on frames read from the bus and
// publishes each outcome. sessions <= 0 keeps going until interrupted.
func listen(natsURL, framesSubject, resultsSubject string, sessions int) {
	logger := utils.GetLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadEngineConfig()
	if err != nil {
		log.Fatalf("invalid engine configuration: %v", err)
	}

	nc, err := stream.Connect(natsURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS at %s: %v", natsURL, err)
	}
	defer nc.Drain()

	frames, err := stream.NewFrameSubscriber(nc, framesSubject, session.QueueCapacity(cfg), logger)
	if err != nil {
		log.Fatalf("failed to subscribe to %s: %v", framesSubject, err)
	}
	defer frames.Close()

	publisher := stream.NewResultPublisher(nc, resultsSubject, logger)
	controller := session.NewController(session.Options{
		Config:   cfg,
		Sink:     publisher,
		Listener: logListener{logger: logger},
		Logger:   logger,
	})

	logger.InfoContext(ctx, "listening for frames",
		slog.String("frames", framesSubject),
		slog.String("results", resultsSubject),
	)

	for n := 0; sessions <= 0 || n < sessions; n++ {
		id, err := controller.Start(ctx, frames)
		if err != nil {
			err := xerrors.New(err)
			logger.ErrorContext(ctx, "failed to start session", slog.Any("error", err))
			return
		}
		logger.InfoContext(ctx, "session started", slog.String("sessionId", id))
		controller.Wait()
		if ctx.Err() != nil {
			logger.InfoContext(context.Background(), "interrupted, session abandoned", slog.String("sessionId", id))
			return
		}
	}
}

// logListener reports live session events through the structured logger.
type logListener struct {
	logger *slog.Logger
}

func (l logListener) Progress(sessionID string, percent int) {
	if percent%25 == 0 {
		l.logger.Debug("progress", slog.String("sessionId", sessionID), slog.Int("percent", percent))
	}
}

func (l logListener) ModeAssigned(sessionID string, mode ppg.AcquisitionMode, q ppg.QualityMetrics, score float64) {
	l.logger.Info("mode assigned",
		slog.String("sessionId", sessionID),
		slog.String("mode", mode.String()),
		slog.Float64("score", score),
		slog.Float64("snr", q.SNR),
		slog.Float64("saturation", q.Saturation),
	)
}

func (l logListener) Interim(sessionID string, bpm int) {
	l.logger.Info("interim", slog.String("sessionId", sessionID), slog.Int("bpm", bpm))
}

// simulateOptions drives the simulate subcommand.
type simulateOptions struct {
	BPM       float64 `json:"bpm"`
	Seconds   float64 `json:"seconds,omitempty"`
	Noise     float64 `json:"noise"`
	Artifacts float64 `json:"artifacts"`
	Seed      int64   `json:"seed"`
	Live      bool    `json:"live"`
}

// simulate estimates the rate of a synthetic trace and prints the result
// envelope. Live runs the trace through a paced session instead of the
// offline pipeline.
func simulate(opts simulateOptions) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	if cfg, err = cfg.WithOverrides(opts.Seconds, 0); err != nil {
		return err
	}

	sc := ppg.CleanSyntheticConfig(opts.BPM, cfg.SampleRate)
	sc.NoiseLevel = opts.Noise
	sc.ArtifactProbability = opts.Artifacts
	if opts.Artifacts > 0 {
		sc.ArtifactAmplitude = 1.5
	}
	sc.Seed = opts.Seed

	var report ppg.Report
	started := time.Now()
	if opts.Live {
		report, err = simulateLive(cfg, sc)
	} else {
		samples := ppg.NewSyntheticGenerator(sc).Generate(cfg.Capacity())
		report, err = ppg.AnalyzeRecording(samples, cfg)
	}
	if err != nil {
		return err
	}

	result := ppg.ResultEnvelope(utils.GenerateSessionID(), report, time.Now())
	result.LatencyMs = float64(time.Since(started).Microseconds()) / 1000

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Input  simulateOptions `json:"input"`
		Result models.Result   `json:"result"`
		Fused  float64         `json:"fused"`
		Peaks  int             `json:"peaks"`
	}{opts, result, report.Fused, report.PeakCount})
}

type reportSink struct {
	done chan struct{}
	rep  ppg.Report
	err  error
}

func (s *reportSink) Pending(string) {}

func (s *reportSink) Complete(_ string, report ppg.Report) {
	s.rep = report
	close(s.done)
}

func (s *reportSink) Fail(_ string, err error) {
	s.err = err
	close(s.done)
}

func simulateLive(cfg ppg.Config, sc ppg.SyntheticConfig) (ppg.Report, error) {
	sink := &reportSink{done: make(chan struct{})}
	controller := session.NewController(session.Options{
		Config:   cfg,
		Sink:     sink,
		Listener: logListener{logger: utils.GetLogger()},
		Seed:     sc.Seed,
	})
	if _, err := controller.Start(context.Background(), session.NewGeneratorSource(sc)); err != nil {
		return ppg.Report{}, err
	}

	timeout := time.Duration(2*cfg.MeasurementSeconds)*time.Second + 5*time.Second
	select {
	case <-sink.done:
	case <-time.After(timeout):
		controller.Cancel()
		<-sink.done
	}
	if sink.err != nil {
		return ppg.Report{}, fmt.Errorf("live simulation: %w", sink.err)
	}
	return sink.rep, nil
}
