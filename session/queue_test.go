package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"ppg-heartrate/ppg"
)

func TestQueueSourceOrder(t *testing.T) {
	t.Parallel()

	q := NewQueueSource(4)
	for i := 0; i < 3; i++ {
		q.Push(ppg.Sample{Red: float64(i), TimestampMs: int64(i)})
	}

	for i := 0; i < 3; i++ {
		s, err := q.NextSample(context.Background())
		if err != nil {
			t.Fatalf("NextSample %d: %v", i, err)
		}
		if s.TimestampMs != int64(i) {
			t.Fatalf("got sample %d, want %d", s.TimestampMs, i)
		}
	}
}

func TestQueueSourceTimesOut(t *testing.T) {
	t.Parallel()

	q := NewQueueSource(4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := q.NextSample(ctx); !errors.Is(err, ErrFrameUnavailable) {
		t.Fatalf("expected ErrFrameUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("NextSample blocked for %s", elapsed)
	}
}

func TestQueueSourceWakesOnPush(t *testing.T) {
	t.Parallel()

	q := NewQueueSource(4)
	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Push(ppg.Sample{TimestampMs: 42})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := q.NextSample(ctx)
	if err != nil {
		t.Fatalf("NextSample: %v", err)
	}
	if s.TimestampMs != 42 {
		t.Fatalf("got %d", s.TimestampMs)
	}
}

func TestQueueSourceDropsOldest(t *testing.T) {
	t.Parallel()

	q := NewQueueSource(2)
	for i := 0; i < 5; i++ {
		q.Push(ppg.Sample{TimestampMs: int64(i)})
	}
	if q.Len() != 2 || q.Dropped() != 3 {
		t.Fatalf("len=%d dropped=%d", q.Len(), q.Dropped())
	}
	s, _ := q.NextSample(context.Background())
	if s.TimestampMs != 3 {
		t.Fatalf("oldest kept sample = %d, want 3", s.TimestampMs)
	}
}

func TestQueueSourceClose(t *testing.T) {
	t.Parallel()

	q := NewQueueSource(2)
	q.Push(ppg.Sample{TimestampMs: 1})
	q.Close()
	q.Push(ppg.Sample{TimestampMs: 2})

	if s, err := q.NextSample(context.Background()); err != nil || s.TimestampMs != 1 {
		t.Fatalf("queued sample lost after Close: %+v, %v", s, err)
	}
	if _, err := q.NextSample(context.Background()); !errors.Is(err, ErrFrameUnavailable) {
		t.Fatalf("drained closed queue: expected ErrFrameUnavailable, got %v", err)
	}
}
