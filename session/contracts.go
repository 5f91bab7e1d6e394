package session

import (
	"context"
	"errors"

	"ppg-heartrate/ppg"
)

var (
	// ErrFrameUnavailable is returned by a FrameSource that has no sample for
	// the current tick. The sampler substitutes a synthetic sample.
	ErrFrameUnavailable = errors.New("session: frame unavailable")

	// ErrProcessing wraps unexpected failures of the estimation pass.
	ErrProcessing = errors.New("session: processing error")
)

// FrameSource hands the sampler one optical sample per tick. NextSample must
// return within the context deadline, which is one tick interval.
type FrameSource interface {
	NextSample(ctx context.Context) (ppg.Sample, error)
}

// ResultSink receives the outcome of a session. Pending is called once when
// the session starts; afterwards exactly one of Complete or Fail follows
// unless the session is discarded by a newer one.
type ResultSink interface {
	Pending(sessionID string)
	Complete(sessionID string, report ppg.Report)
	Fail(sessionID string, err error)
}

// Listener receives live feedback. Calls happen on the sampler goroutine and
// must not block.
type Listener interface {
	Progress(sessionID string, percent int)
	ModeAssigned(sessionID string, mode ppg.AcquisitionMode, quality ppg.QualityMetrics, score float64)
	Interim(sessionID string, bpm int)
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func(ctx context.Context) (ppg.Sample, error)

func (f FrameSourceFunc) NextSample(ctx context.Context) (ppg.Sample, error) {
	return f(ctx)
}

// NoFrames is a FrameSource that is never available; every tick is synthesized.
var NoFrames FrameSource = FrameSourceFunc(func(context.Context) (ppg.Sample, error) {
	return ppg.Sample{}, ErrFrameUnavailable
})

// GeneratorSource serves samples from a synthetic generator, rebasing the
// timestamps on the session clock. Useful for demos and tests.
type GeneratorSource struct {
	gen *ppg.SyntheticGenerator
}

func NewGeneratorSource(cfg ppg.SyntheticConfig) *GeneratorSource {
	return &GeneratorSource{gen: ppg.NewSyntheticGenerator(cfg)}
}

func (g *GeneratorSource) NextSample(ctx context.Context) (ppg.Sample, error) {
	if err := ctx.Err(); err != nil {
		return ppg.Sample{}, err
	}
	return g.gen.Next(), nil
}

type nopListener struct{}

func (nopListener) Progress(string, int) {}
func (nopListener) ModeAssigned(string, ppg.AcquisitionMode, ppg.QualityMetrics, float64) {}
func (nopListener) Interim(string, int) {}
