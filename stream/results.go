package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/nats-io/nats.go"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
)

// Failure reasons published on the error subject.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonProcessingError  = "processing_error"
)

// ResultPublisher is a session.ResultSink that publishes JSON envelopes.
// Results go to subject, failures to subject+".error" and the pending
// indication to subject+".pending".
type ResultPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

var _ session.ResultSink = (*ResultPublisher)(nil)

func NewResultPublisher(nc *nats.Conn, subject string, logger *slog.Logger) *ResultPublisher {
	return &ResultPublisher{nc: nc, subject: subject, logger: logger, now: time.Now}
}

func (p *ResultPublisher) Pending(sessionID string) {
	p.publish(p.subject+".pending", models.Progress{SessionID: sessionID})
}

func (p *ResultPublisher) Complete(sessionID string, report ppg.Report) {
	p.publish(p.subject, ppg.ResultEnvelope(sessionID, report, p.now()))
}

func (p *ResultPublisher) Fail(sessionID string, err error) {
	p.publish(p.subject+".error", FailureEnvelope(sessionID, err))
}

func (p *ResultPublisher) publish(subject string, payload any) {
	ctx := context.Background()
	data, err := json.Marshal(payload)
	if err == nil {
		err = p.nc.Publish(subject, data)
	}
	if err != nil {
		err := xerrors.New(err)
		p.logger.ErrorContext(ctx, "failed to publish", slog.String("subject", subject), slog.Any("error", err))
	}
}

// FailureEnvelope classifies a session failure for transport.
func FailureEnvelope(sessionID string, err error) models.Failure {
	reason := ReasonProcessingError
	if errors.Is(err, ppg.ErrInsufficientSamples) {
		reason = ReasonInsufficientData
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return models.Failure{SessionID: sessionID, Reason: reason, Message: msg}
}
