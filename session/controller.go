package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ppg-heartrate/metrics"
	"ppg-heartrate/ppg"
	"ppg-heartrate/utils"
)

// Options configures a Controller.
type Options struct {
	Config   ppg.Config
	Sink     ResultSink
	Listener Listener     // optional
	Logger   *slog.Logger // optional, defaults to utils.GetLogger()

	// Pace overrides the wall-clock tick. Sample timestamps and progress
	// still follow Config.SampleRate, so a shorter Pace only speeds the
	// session up.
	Pace time.Duration

	// Seed fixes the synthetic generator; 0 picks a random seed per session.
	Seed int64
}

func (o Options) tickInterval() time.Duration {
	if o.Pace > 0 {
		return o.Pace
	}
	return time.Duration(float64(time.Second) / o.Config.SampleRate)
}

// Controller runs at most one measurement session at a time.
type Controller struct {
	opts Options

	mu      sync.Mutex
	current *Session
}

func NewController(opts Options) *Controller {
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	return &Controller{opts: opts}
}

// Start stops any running session, discarding its samples, and begins a new
// one reading from src. The session ends when the buffer is full, when Cancel
// is called, or when ctx is cancelled (in which case no result is reported).
func (c *Controller) Start(ctx context.Context, src FrameSource) (string, error) {
	if c.opts.Sink == nil {
		return "", fmt.Errorf("session: no result sink configured")
	}
	if src == nil {
		return "", fmt.Errorf("session: nil frame source")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.opts.Config.Validate(); err != nil {
		return "", err
	}

	if prev := c.current; prev != nil {
		prev.stop(stopDiscard)
		<-prev.done
	}

	opts := c.opts
	if opts.Seed == 0 {
		opts.Seed = int64(utils.GenerateUniqueID()) + 1
	}

	s := newSession(utils.GenerateSessionID(), opts, src)
	c.current = s
	metrics.SessionsStarted.Inc()

	go s.run(ctx)
	return s.id, nil
}

// SetConfig replaces the engine configuration used by the next Start.
// A running session keeps its configuration.
func (c *Controller) SetConfig(cfg ppg.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Config = cfg
	return nil
}

// Config returns the configuration used by the next Start.
func (c *Controller) Config() ppg.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Config
}

// Cancel stops the running session and finalizes it with the samples
// collected so far. It reports whether a session was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil || s.finished() {
		return false
	}
	s.stop(stopCancel)
	return true
}

// Wait blocks until the current session, if any, has finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s != nil {
		<-s.done
	}
}

// Active reports whether a session is acquiring samples.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && !c.current.finished()
}

// Current returns the ID of the most recent session, finished or not.
func (c *Controller) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.id
}
