package main

import (
	"sync"
	"testing"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"

	socketio "github.com/googollee/go-socket.io"
)

type emitted struct {
	event string
	args  []interface{}
}

// fakeSocket records emits. Methods other than ID and Emit are not used by
// the handlers and panic through the nil embedded Conn.
type fakeSocket struct {
	socketio.Conn
	id string

	mu     sync.Mutex
	events []emitted
}

func (s *fakeSocket) ID() string { return s.id }

func (s *fakeSocket) Emit(event string, v ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, emitted{event: event, args: v})
}

func (s *fakeSocket) named(event string) []emitted {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []emitted
	for _, e := range s.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func TestSocketSinkPendingStartsAtZero(t *testing.T) {
	t.Parallel()

	socket := &fakeSocket{id: "s1"}
	sink := &socketSink{socket: socket}
	sink.Pending("session-1")

	events := socket.named("processing")
	if len(events) != 1 {
		t.Fatalf("processing emitted %d times", len(events))
	}
	progress, ok := events[0].args[0].(models.Progress)
	if !ok {
		t.Fatalf("processing payload is %T", events[0].args[0])
	}
	if progress.SessionID != "session-1" || progress.Percent != 0 {
		t.Fatalf("processing payload = %+v", progress)
	}
}

func TestSocketStartAfterDisconnectIsIgnored(t *testing.T) {
	t.Parallel()

	controller := newSocketController(ppg.DefaultConfig(), nil)
	socket := &fakeSocket{id: "s2"}

	controller.handleConnect(socket)
	controller.handleDisconnect(socket)
	controller.handleStartSession(socket, `{"deviceId":"late"}`)

	if _, ok := controller.client(socket); ok {
		t.Fatalf("client recreated after disconnect")
	}
	if got := socket.named("sessionStarted"); len(got) != 0 {
		t.Fatalf("session started for a disconnected socket")
	}
}

func TestSocketStartAndCancel(t *testing.T) {
	t.Parallel()

	controller := newSocketController(ppg.DefaultConfig(), nil)
	socket := &fakeSocket{id: "s3"}
	controller.handleConnect(socket)
	defer controller.handleDisconnect(socket)

	controller.handleStartSession(socket, `{"durationSeconds":6}`)
	started := socket.named("sessionStarted")
	if len(started) != 1 {
		t.Fatalf("sessionStarted emitted %d times: %+v", len(started), started)
	}
	payload := started[0].args[0].(map[string]interface{})
	if payload["durationSeconds"] != 6.0 {
		t.Fatalf("duration override not applied: %+v", payload)
	}

	cl, ok := controller.client(socket)
	if !ok {
		t.Fatalf("client missing")
	}
	controller.handleCancel(socket)
	cl.controller.Wait()

	// cancelled at once, so finalization reports too little data
	if got := socket.named("insufficientData"); len(got) != 1 {
		t.Fatalf("insufficientData emitted %d times", len(got))
	}

	controller.handleCancel(socket)
	if got := socket.named("analysisError"); len(got) != 1 {
		t.Fatalf("second cancel should report no active session, got %d errors", len(got))
	}
}
