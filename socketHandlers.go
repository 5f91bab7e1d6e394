package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"sync"
	"time"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
	"ppg-heartrate/stream"
	"ppg-heartrate/utils"

	socketio "github.com/googollee/go-socket.io"
	"github.com/mdobak/go-xerrors"
)

// socketController gives every connected client its own session controller
// and frame queue. Each client runs at most one session.
type socketController struct {
	cfg   ppg.Config
	store readingStore

	mu      sync.Mutex
	clients map[string]*socketClient
}

type socketClient struct {
	controller *session.Controller
	sink       *socketSink
	frames     *session.QueueSource
	ctx        context.Context
	cancel     context.CancelFunc
}

func newSocketController(cfg ppg.Config, store readingStore) *socketController {
	return &socketController{cfg: cfg, store: store, clients: make(map[string]*socketClient)}
}

// handleConnect registers a client. Events from sockets that are not
// registered, including late ones after a disconnect, are ignored.
func (c *socketController) handleConnect(socket socketio.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.clients[socket.ID()]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sink := &socketSink{socket: socket, store: c.store}
	c.clients[socket.ID()] = &socketClient{
		sink: sink,
		controller: session.NewController(session.Options{
			Config:   c.cfg,
			Sink:     sink,
			Listener: sink,
			Logger:   utils.GetLogger().With(slog.String("socketID", socket.ID())),
		}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *socketController) client(socket socketio.Conn) (*socketClient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[socket.ID()]
	return cl, ok
}

func (c *socketController) handleStartSession(socket socketio.Conn, msg string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	var req models.StartSession
	if msg != "" {
		if err := json.Unmarshal([]byte(msg), &req); err != nil {
			err := xerrors.New(err)
			logger.ErrorContext(ctx, "failed to parse startSession payload", slog.Any("error", err))
			socket.Emit("analysisError", apiError{Message: "invalid session request"})
			return
		}
	}

	cfg, err := c.cfg.WithOverrides(req.DurationSeconds, req.SampleRate)
	if err != nil {
		socket.Emit("analysisError", apiError{Message: err.Error()})
		return
	}

	cl, ok := c.client(socket)
	if !ok {
		logger.InfoContext(ctx, "ignoring startSession from a disconnected socket", slog.String("socketID", socket.ID()))
		return
	}
	if err := cl.controller.SetConfig(cfg); err != nil {
		socket.Emit("analysisError", apiError{Message: err.Error()})
		return
	}

	cl.sink.setDevice(req.DeviceID)
	frames := session.NewQueueSource(session.QueueCapacity(cfg))
	c.mu.Lock()
	previous := cl.frames
	cl.frames = frames
	c.mu.Unlock()

	id, err := cl.controller.Start(cl.ctx, frames)
	if previous != nil {
		previous.Close()
	}
	if err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "failed to start session", slog.String("socketID", socket.ID()), slog.Any("error", err))
		socket.Emit("analysisError", apiError{Message: "unable to start session"})
		return
	}

	logger.InfoContext(ctx, "session started",
		slog.String("socketID", socket.ID()),
		slog.String("sessionId", id),
		slog.Float64("durationSeconds", cfg.MeasurementSeconds),
		slog.Float64("sampleRate", cfg.SampleRate),
	)
	socket.Emit("sessionStarted", map[string]interface{}{
		"sessionId":       id,
		"durationSeconds": cfg.MeasurementSeconds,
		"sampleRate":      cfg.SampleRate,
	})
}

func (c *socketController) handleFrames(socket socketio.Conn, msg string) {
	frames, err := stream.DecodeFrames([]byte(msg))
	if err != nil {
		log.Printf("dropping malformed frame from %s: %v\n", socket.ID(), err)
		return
	}

	c.mu.Lock()
	var queue *session.QueueSource
	if cl, ok := c.clients[socket.ID()]; ok {
		queue = cl.frames
	}
	c.mu.Unlock()
	if queue == nil {
		return
	}

	for _, f := range frames {
		queue.Push(ppg.FromFrame(f))
	}
}

func (c *socketController) handleCancel(socket socketio.Conn) {
	cl, ok := c.client(socket)
	if !ok || !cl.controller.Cancel() {
		socket.Emit("analysisError", apiError{Message: "no active session"})
	}
}

func (c *socketController) handleDisconnect(socket socketio.Conn) {
	c.mu.Lock()
	cl, ok := c.clients[socket.ID()]
	var frames *session.QueueSource
	if ok {
		frames = cl.frames
	}
	delete(c.clients, socket.ID())
	c.mu.Unlock()

	if !ok {
		return
	}
	cl.cancel()
	if frames != nil {
		frames.Close()
	}
}

// socketSink emits session events to a single client and records results.
type socketSink struct {
	socket socketio.Conn
	store  readingStore

	mu       sync.Mutex
	deviceID string
}

func (s *socketSink) setDevice(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceID = id
}

var (
	_ session.ResultSink = (*socketSink)(nil)
	_ session.Listener   = (*socketSink)(nil)
)

func (s *socketSink) Pending(sessionID string) {
	s.socket.Emit("processing", models.Progress{SessionID: sessionID})
}

func (s *socketSink) Complete(sessionID string, report ppg.Report) {
	result := ppg.ResultEnvelope(sessionID, report, time.Now())
	s.socket.Emit("result", result)

	s.mu.Lock()
	deviceID := s.deviceID
	s.mu.Unlock()
	recordReading(s.store, "socket", deviceID, result)
}

func (s *socketSink) Fail(sessionID string, err error) {
	event := "analysisError"
	if errors.Is(err, ppg.ErrInsufficientSamples) {
		event = "insufficientData"
	}
	s.socket.Emit(event, stream.FailureEnvelope(sessionID, err))
}

func (s *socketSink) Progress(sessionID string, percent int) {
	s.socket.Emit("progress", models.Progress{SessionID: sessionID, Percent: percent})
}

func (s *socketSink) ModeAssigned(sessionID string, mode ppg.AcquisitionMode, q ppg.QualityMetrics, score float64) {
	s.socket.Emit("quality", ppg.ModeEnvelope(sessionID, mode, q, score))
}

func (s *socketSink) Interim(sessionID string, bpm int) {
	s.socket.Emit("interim", models.Interim{SessionID: sessionID, BPM: bpm})
}
