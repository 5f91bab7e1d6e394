package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"ppg-heartrate/metrics"
	"ppg-heartrate/ppg"
)

// maxStaleFrames bounds how many late frames one tick may discard.
const maxStaleFrames = 8

var errStaleFrame = fmt.Errorf("%w: stale frame", ppg.ErrInvalidSample)

type stopReason int

const (
	stopCancel  stopReason = iota + 1 // finalize with collected samples
	stopDiscard                       // replaced or abandoned, no result
)

// Session owns one measurement: its buffer, its acquisition mode and the
// sampler goroutine that fills the buffer. It is created by a Controller.
type Session struct {
	id       string
	cfg      ppg.Config
	source   FrameSource
	sink     ResultSink
	listener Listener
	logger   *slog.Logger
	tick     time.Duration
	seed     int64

	buffer   *ppg.SampleBuffer
	analyzer *ppg.QualityAnalyzer
	mode     ppg.AcquisitionMode
	quality  ppg.QualityMetrics

	// synthetic substitution for failed ticks and for simulated modes
	generator *ppg.SyntheticGenerator
	failures  int
	ticks     int
	progress  int

	stopOnce sync.Once
	stopped  chan struct{}
	reason   stopReason
	done     chan struct{}
}

func newSession(id string, opts Options, source FrameSource) *Session {
	cfg := opts.Config
	return &Session{
		id:       id,
		cfg:      cfg,
		source:   source,
		sink:     opts.Sink,
		listener: opts.Listener,
		logger:   opts.Logger.With(slog.String("sessionID", id)),
		tick:     opts.tickInterval(),
		seed:     opts.Seed,
		buffer:   ppg.NewSampleBuffer(cfg.Capacity()),
		analyzer: ppg.NewQualityAnalyzer(cfg),
		mode:     ppg.ModeAnalyzing,
		progress: -1,
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed when the sampler has exited and the sink was notified.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) stop(reason stopReason) {
	s.stopOnce.Do(func() {
		s.reason = reason
		close(s.stopped)
	})
}

func (s *Session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer metrics.SessionsActive.Dec()
	metrics.SessionsActive.Inc()

	s.sink.Pending(s.id)
	s.logger.InfoContext(ctx, "session started",
		slog.Int("capacity", s.buffer.Cap()),
		slog.Duration("tick", s.tick),
	)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session abandoned", slog.Int("samples", s.buffer.Len()))
			return
		case <-s.stopped:
			if s.reason == stopDiscard {
				s.logger.InfoContext(ctx, "session discarded", slog.Int("samples", s.buffer.Len()))
				return
			}
			s.finalize(ctx)
			return
		case <-ticker.C:
			if !s.step(ctx) {
				s.finalize(ctx)
				return
			}
		}
	}
}

// step acquires one sample and reports whether sampling should continue.
func (s *Session) step(ctx context.Context) bool {
	sample := s.acquire(ctx)
	s.buffer.Append(sample)
	s.ticks++

	if s.mode == ppg.ModeAnalyzing {
		if err := s.analyzer.Observe(sample); err != nil {
			s.logger.WarnContext(ctx, "quality analysis failed", slog.Any("error", err))
			s.assignMode(ctx, ppg.ModeFallback, ppg.FallbackMetrics())
		} else if s.analyzer.Observed() >= s.cfg.QualitySamples() {
			mode, q := s.analyzer.Mode()
			s.assignMode(ctx, mode, q)
		}
	}

	if s.failures > s.cfg.MaxCaptureFailures && !s.mode.Simulated() {
		if s.mode == ppg.ModeAnalyzing {
			s.logger.WarnContext(ctx, "capture failing during quality phase", slog.Int("failures", s.failures))
			s.assignMode(ctx, ppg.ModeFallback, ppg.FallbackMetrics())
		} else if s.buffer.Len() >= s.cfg.MinSamples() {
			// below the minimum, synthetic substitution keeps filling the buffer
			s.logger.WarnContext(ctx, "capture failing, finalizing early",
				slog.Int("failures", s.failures),
				slog.Int("samples", s.buffer.Len()),
			)
			return false
		}
	}

	s.reportProgress()
	s.maybeInterim(ctx)

	return !s.buffer.Full()
}

// acquire returns the next sample, substituting a synthetic one when the
// frame source fails or the session runs in a simulated mode.
func (s *Session) acquire(ctx context.Context) ppg.Sample {
	if s.mode.Simulated() {
		return s.synthesize()
	}

	tickCtx, cancel := context.WithTimeout(ctx, s.tick)
	sample, err := s.nextFresh(tickCtx)
	cancel()
	if err != nil {
		s.failures++
		metrics.CaptureFailures.Inc()
		if !errors.Is(err, ErrFrameUnavailable) {
			s.logger.DebugContext(ctx, "frame rejected", slog.Any("error", err))
		}
		return s.synthesize()
	}

	s.failures = 0
	return sample
}

// nextFresh reads from the source, discarding up to maxStaleFrames frames
// whose timestamp does not advance past the buffer. Those are frames whose
// slot was already filled by a synthetic sample.
func (s *Session) nextFresh(ctx context.Context) (ppg.Sample, error) {
	for skipped := 0; ; skipped++ {
		sample, err := s.source.NextSample(ctx)
		if err != nil {
			return sample, err
		}
		err = s.accept(sample)
		if errors.Is(err, errStaleFrame) && skipped < maxStaleFrames {
			continue
		}
		return sample, err
	}
}

func (s *Session) accept(sample ppg.Sample) error {
	if err := ppg.CheckSample(sample); err != nil {
		return err
	}
	if last, ok := s.buffer.Last(); ok && sample.TimestampMs <= last.TimestampMs {
		return fmt.Errorf("%w: timestamp %d does not follow %d", errStaleFrame, sample.TimestampMs, last.TimestampMs)
	}
	return nil
}

func (s *Session) synthesize() ppg.Sample {
	if s.generator == nil {
		quality := s.quality
		if s.mode == ppg.ModeAnalyzing {
			quality = s.analyzer.Metrics()
		}
		s.generator = ppg.NewSyntheticGenerator(ppg.SyntheticContinuation(s.analyzer, s.buffer.Samples(), quality, s.cfg, s.seed))
	}

	sample := s.generator.Next()
	sample.TimestampMs = s.nextTimestamp()
	metrics.SynthesizedSamples.Inc()
	return sample
}

func (s *Session) nextTimestamp() int64 {
	last, ok := s.buffer.Last()
	if !ok {
		return 0
	}
	step := int64(math.Round(s.cfg.TickInterval()))
	if step < 1 {
		step = 1
	}
	return last.TimestampMs + step
}

func (s *Session) assignMode(ctx context.Context, mode ppg.AcquisitionMode, quality ppg.QualityMetrics) {
	s.mode = mode
	s.quality = quality
	// a fresh generator picks up the measured quality
	s.generator = nil

	score := s.cfg.OverallScore(quality)
	metrics.ModeAssigned.WithLabelValues(mode.String()).Inc()
	metrics.QualityScore.Observe(score)
	s.logger.InfoContext(ctx, "acquisition mode assigned",
		slog.String("mode", mode.String()),
		slog.Float64("score", score),
		slog.Float64("snr", quality.SNR),
		slog.Float64("confidence", quality.Confidence),
	)
	s.listener.ModeAssigned(s.id, mode, quality, score)
}

func (s *Session) reportProgress() {
	percent := s.ticks * 100 / s.buffer.Cap()
	if percent > 100 {
		percent = 100
	}
	if percent <= s.progress {
		return
	}
	s.progress = percent
	s.listener.Progress(s.id, percent)
}

// maybeInterim runs a read-only estimate on the trailing 2·MinSamples window
// once that many samples are buffered.
func (s *Session) maybeInterim(ctx context.Context) {
	window := 2 * s.cfg.MinSamples()
	if s.cfg.InterimSeconds <= 0 || s.buffer.Len() < window || s.buffer.Full() {
		return
	}
	every := int(math.Round(s.cfg.InterimSeconds * s.cfg.SampleRate))
	if every < 1 || s.ticks%every != 0 {
		return
	}

	mode, quality := s.mode, s.quality
	if mode == ppg.ModeAnalyzing {
		mode, quality = s.analyzer.Mode()
	}
	report, err := ppg.Estimate(s.buffer.Tail(window), mode, quality, s.cfg)
	if err != nil {
		s.logger.DebugContext(ctx, "interim estimate skipped", slog.Any("error", err))
		return
	}
	s.listener.Interim(s.id, report.Result.BPM)
}

func (s *Session) finalize(ctx context.Context) {
	samples := s.buffer.Samples()
	mode, quality := s.mode, s.quality
	if mode == ppg.ModeAnalyzing {
		if s.analyzer.Observed() > 0 {
			mode, quality = s.analyzer.Mode()
		} else {
			mode, quality = ppg.ModeFallback, ppg.FallbackMetrics()
		}
	}

	report, err := s.estimate(samples, mode, quality)
	switch {
	case errors.Is(err, ppg.ErrInsufficientSamples):
		metrics.SessionsCompleted.WithLabelValues(metrics.OutcomeInsufficientData).Inc()
		s.logger.WarnContext(ctx, "insufficient data", slog.Int("samples", len(samples)))
		s.sink.Fail(s.id, err)
	case err != nil:
		metrics.SessionsCompleted.WithLabelValues(metrics.OutcomeProcessingError).Inc()
		s.logger.ErrorContext(ctx, "estimation failed", slog.Any("error", err))
		s.sink.Fail(s.id, err)
	default:
		metrics.SessionsCompleted.WithLabelValues(metrics.OutcomeResult).Inc()
		metrics.LastBPM.Set(float64(report.Result.BPM))
		s.logger.InfoContext(ctx, "session complete",
			slog.Int("bpm", report.Result.BPM),
			slog.String("mode", report.Result.Mode.String()),
			slog.Int("samples", len(samples)),
			slog.Bool("lowConfidence", report.LowConfidence),
		)
		s.sink.Complete(s.id, report)
	}
}

func (s *Session) estimate(samples []ppg.Sample, mode ppg.AcquisitionMode, quality ppg.QualityMetrics) (report ppg.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProcessing, r)
		}
	}()

	report, err = ppg.EstimateTimed(samples, mode, quality, s.cfg, metrics.ObserveStage)
	if err != nil && !errors.Is(err, ppg.ErrInsufficientSamples) {
		err = fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return report, err
}
