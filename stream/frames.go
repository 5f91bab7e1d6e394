package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/session"
)

// FrameSubscriber feeds frames published on a subject into a session queue.
// It satisfies session.FrameSource.
type FrameSubscriber struct {
	*session.QueueSource
	sub    *nats.Subscription
	logger *slog.Logger
}

// NewFrameSubscriber subscribes to subject. Each message carries either one
// frame object or an array of frames.
func NewFrameSubscriber(nc *nats.Conn, subject string, capacity int, logger *slog.Logger) (*FrameSubscriber, error) {
	fs := &FrameSubscriber{
		QueueSource: session.NewQueueSource(capacity),
		logger:      logger,
	}

	sub, err := nc.Subscribe(subject, fs.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	fs.sub = sub
	return fs, nil
}

func (fs *FrameSubscriber) handle(msg *nats.Msg) {
	frames, err := DecodeFrames(msg.Data)
	if err != nil {
		fs.logger.WarnContext(context.Background(), "dropping malformed frame message",
			slog.String("subject", msg.Subject),
			slog.Any("error", err),
		)
		return
	}
	for _, f := range frames {
		fs.Push(ppg.FromFrame(f))
	}
}

// Close unsubscribes and closes the queue.
func (fs *FrameSubscriber) Close() error {
	fs.QueueSource.Close()
	if fs.sub == nil {
		return nil
	}
	return fs.sub.Unsubscribe()
}

// DecodeFrames accepts a JSON frame object or array of frames.
func DecodeFrames(data []byte) ([]models.Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty frame message")
	}

	if trimmed[0] == '[' {
		var frames []models.Frame
		if err := json.Unmarshal(trimmed, &frames); err != nil {
			return nil, fmt.Errorf("decode frame batch: %w", err)
		}
		return frames, nil
	}

	var frame models.Frame
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return []models.Frame{frame}, nil
}
