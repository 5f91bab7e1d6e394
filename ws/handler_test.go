package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
)

type rawEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, maxConcurrent int, onResult func(string, models.Result)) *httptest.Server {
	t.Helper()
	cfg := ppg.DefaultConfig()
	cfg.MeasurementSeconds = 6
	srv := httptest.NewServer(NewHandler(HandlerConfig{
		Engine:        cfg,
		MaxConcurrent: maxConcurrent,
		Pace:          2 * time.Millisecond,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnResult:      onResult,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var ev rawEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestHandlerStreamsSessionToResult(t *testing.T) {
	t.Parallel()

	recorded := make(chan string, 1)
	srv := newTestServer(t, 4, func(deviceID string, result models.Result) {
		recorded <- deviceID
	})
	conn := dial(t, srv)

	if err := conn.WriteJSON(models.StartSession{DeviceID: "bench-1"}); err != nil {
		t.Fatalf("write start: %v", err)
	}

	// the session may report before the start acknowledgement is written
	started := readEvent(t, conn)
	for started.Type != EventStarted {
		started = readEvent(t, conn)
	}
	if started.SessionID == "" {
		t.Fatalf("%s without a session id", EventStarted)
	}

	go func() {
		gen := ppg.NewSyntheticGenerator(ppg.CleanSyntheticConfig(72, 30))
		for {
			batch := make([]models.Frame, 3)
			for j := range batch {
				batch[j] = ppg.ToFrame(gen.Next())
			}
			if err := conn.WriteJSON(batch); err != nil {
				return
			}
			time.Sleep(4 * time.Millisecond)
		}
	}()

	seen := make(map[string]bool)
	for {
		ev := readEvent(t, conn)
		seen[ev.Type] = true
		if ev.SessionID != "" && ev.SessionID != started.SessionID {
			t.Fatalf("event for foreign session %q", ev.SessionID)
		}
		switch ev.Type {
		case EventResult:
			var result models.Result
			if err := json.Unmarshal(ev.Payload, &result); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			cfg := ppg.DefaultConfig()
			if float64(result.BPM) < cfg.ClampMinBPM || float64(result.BPM) > cfg.ClampMaxBPM {
				t.Fatalf("bpm %d outside the reportable range", result.BPM)
			}
			if result.Samples != 180 {
				t.Fatalf("samples = %d, want 180", result.Samples)
			}
			if !seen[EventQuality] {
				t.Fatalf("result arrived without a quality event")
			}
			select {
			case id := <-recorded:
				if id != "bench-1" {
					t.Fatalf("recorded device %q, want bench-1", id)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("result was not recorded")
			}
			return
		case EventError, EventInsufficientData:
			t.Fatalf("session failed: %s", ev.Payload)
		}
	}
}

func TestHandlerRejectsInvalidStart(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, 4, nil)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Type != EventError {
		t.Fatalf("expected %s, got %s", EventError, ev.Type)
	}

	if err := conn.WriteJSON(models.StartSession{}); err != nil {
		return
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection to be closed")
	}
}

func TestHandlerRejectsInvalidOverrides(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, 4, nil)
	conn := dial(t, srv)

	if err := conn.WriteJSON(models.StartSession{SampleRate: 4}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Type != EventError {
		t.Fatalf("expected %s for a rate below the band edge, got %s", EventError, ev.Type)
	}
}

func TestHandlerAdmissionControl(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, 1, nil)
	_ = dial(t, srv)

	// the first connection holds the only slot while it waits for a start message
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			conn.Close()
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %v (%v)", resp, err)
		}
		return
	}
	t.Fatalf("second connection was never refused")
}
