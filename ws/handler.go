package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ppg-heartrate/metrics"
	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
	"ppg-heartrate/stream"
	"ppg-heartrate/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the engine settings shared by all connections.
type HandlerConfig struct {
	Engine        ppg.Config
	MaxConcurrent int
	Pace          time.Duration // overrides the session tick, for tests
	Logger        *slog.Logger

	// OnResult, when set, receives every completed reading.
	OnResult func(deviceID string, result models.Result)
}

// Handler runs one measurement session per WebSocket connection with
// admission control.
//
// The first text message is a models.StartSession. Every following text
// message carries a frame or a frame array, except the literal "cancel",
// which finalizes the session with what was captured so far. The
// connection is closed once the outcome has been sent.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 32
	}
	if cfg.Logger == nil {
		cfg.Logger = utils.GetLogger()
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// Event is a server-to-client message.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Event types.
const (
	EventStarted          = "sessionStarted"
	EventProgress         = "progress"
	EventQuality          = "quality"
	EventInterim          = "interim"
	EventProcessing       = "processing"
	EventResult           = "result"
	EventInsufficientData = "insufficientData"
	EventError            = "error"
)

const cancelMessage = "cancel"

// ServeHTTP upgrades the connection and runs the session.
// Returns 503 if at max concurrent session capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := newEventSender(conn, h.cfg.Logger)

	req, err := readStart(conn)
	if err != nil {
		h.cfg.Logger.Warn("read start message", slog.Any("error", err))
		send(Event{Type: EventError, Payload: models.Failure{Reason: stream.ReasonProcessingError, Message: "invalid session request"}})
		return
	}

	cfg, err := h.cfg.Engine.WithOverrides(req.DurationSeconds, req.SampleRate)
	if err != nil {
		send(Event{Type: EventError, Payload: models.Failure{Reason: stream.ReasonProcessingError, Message: err.Error()}})
		return
	}

	frames := session.NewQueueSource(session.QueueCapacity(cfg))
	defer frames.Close()

	sink := newEventSink(send)
	if h.cfg.OnResult != nil {
		deviceID := req.DeviceID
		sink.onResult = func(result models.Result) { h.cfg.OnResult(deviceID, result) }
	}
	ctrl := session.NewController(session.Options{
		Config:   cfg,
		Sink:     sink,
		Listener: sink,
		Logger:   h.cfg.Logger,
		Pace:     h.cfg.Pace,
	})

	id, err := ctrl.Start(ctx, frames)
	if err != nil {
		send(Event{Type: EventError, Payload: models.Failure{Reason: stream.ReasonProcessingError, Message: err.Error()}})
		return
	}
	send(Event{Type: EventStarted, SessionID: id, Payload: req})

	readDone := make(chan error, 1)
	go func() { readDone <- readFrames(conn, frames, ctrl) }()

	select {
	case <-sink.done:
	case err := <-readDone:
		h.cfg.Logger.Info("client left before the result", slog.String("sessionId", id), slog.Any("error", err))
		cancel()
		ctrl.Wait()
	}
}

func readStart(conn *websocket.Conn) (models.StartSession, error) {
	var req models.StartSession
	_, data, err := conn.ReadMessage()
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(data, &req)
	return req, err
}

// readFrames feeds frames into the queue until the connection fails.
func readFrames(conn *websocket.Conn, frames *session.QueueSource, ctrl *session.Controller) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if strings.TrimSpace(string(data)) == cancelMessage {
			ctrl.Cancel()
			continue
		}

		batch, err := stream.DecodeFrames(data)
		if err != nil {
			continue
		}
		for _, f := range batch {
			frames.Push(ppg.FromFrame(f))
		}
	}
}

type sendFunc func(Event)

func newEventSender(conn *websocket.Conn, logger *slog.Logger) sendFunc {
	var mu sync.Mutex
	return func(ev Event) {
		mu.Lock()
		defer mu.Unlock()

		jsonBytes, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			logger.Debug("write event", slog.String("type", ev.Type), slog.Any("error", err))
		}
	}
}
