package ws

import (
	"errors"
	"sync"
	"time"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
	"ppg-heartrate/stream"
)

// eventSink forwards session callbacks to the connection. done closes once
// the outcome has been sent.
type eventSink struct {
	send     sendFunc
	onResult func(models.Result)
	done     chan struct{}
	once     sync.Once
}

var (
	_ session.ResultSink = (*eventSink)(nil)
	_ session.Listener   = (*eventSink)(nil)
)

func newEventSink(send sendFunc) *eventSink {
	return &eventSink{send: send, done: make(chan struct{})}
}

func (s *eventSink) Pending(sessionID string) {
	s.send(Event{Type: EventProcessing, SessionID: sessionID})
}

func (s *eventSink) Complete(sessionID string, report ppg.Report) {
	result := ppg.ResultEnvelope(sessionID, report, time.Now())
	s.send(Event{Type: EventResult, SessionID: sessionID, Payload: result})
	if s.onResult != nil {
		s.onResult(result)
	}
	s.once.Do(func() { close(s.done) })
}

func (s *eventSink) Fail(sessionID string, err error) {
	event := EventError
	if errors.Is(err, ppg.ErrInsufficientSamples) {
		event = EventInsufficientData
	}
	s.send(Event{Type: event, SessionID: sessionID, Payload: stream.FailureEnvelope(sessionID, err)})
	s.once.Do(func() { close(s.done) })
}

func (s *eventSink) Progress(sessionID string, percent int) {
	s.send(Event{Type: EventProgress, SessionID: sessionID, Payload: models.Progress{SessionID: sessionID, Percent: percent}})
}

func (s *eventSink) ModeAssigned(sessionID string, mode ppg.AcquisitionMode, q ppg.QualityMetrics, score float64) {
	s.send(Event{Type: EventQuality, SessionID: sessionID, Payload: ppg.ModeEnvelope(sessionID, mode, q, score)})
}

func (s *eventSink) Interim(sessionID string, bpm int) {
	s.send(Event{Type: EventInterim, SessionID: sessionID, Payload: models.Interim{SessionID: sessionID, BPM: bpm}})
}
