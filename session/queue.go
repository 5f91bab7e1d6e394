package session

import (
	"context"
	"math"
	"sync"

	"ppg-heartrate/ppg"
)

// QueueSource is a FrameSource fed by a push-based transport such as a
// socket or message bus. When the queue is full the oldest sample is dropped.
type QueueSource struct {
	mu      sync.Mutex
	queue   []ppg.Sample
	limit   int
	dropped int
	notify  chan struct{}
	closed  bool
}

// QueueCapacity buffers two seconds of frames at cfg's sample rate.
func QueueCapacity(cfg ppg.Config) int {
	return int(math.Ceil(2 * cfg.SampleRate))
}

func NewQueueSource(capacity int) *QueueSource {
	if capacity < 1 {
		capacity = 1
	}
	return &QueueSource{
		queue:  make([]ppg.Sample, 0, capacity),
		limit:  capacity,
		notify: make(chan struct{}, 1),
	}
}

// Push enqueues a sample. It never blocks. Samples pushed after Close are ignored.
func (q *QueueSource) Push(s ppg.Sample) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if len(q.queue) == q.limit {
		copy(q.queue, q.queue[1:])
		q.queue = q.queue[:len(q.queue)-1]
		q.dropped++
	}
	q.queue = append(q.queue, s)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// NextSample returns the oldest queued sample, waiting until ctx expires.
// An expired wait or a closed, drained queue yields ErrFrameUnavailable.
func (q *QueueSource) NextSample(ctx context.Context) (ppg.Sample, error) {
	for {
		q.mu.Lock()
		if len(q.queue) > 0 {
			s := q.queue[0]
			copy(q.queue, q.queue[1:])
			q.queue = q.queue[:len(q.queue)-1]
			q.mu.Unlock()
			return s, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return ppg.Sample{}, ErrFrameUnavailable
		}

		select {
		case <-ctx.Done():
			return ppg.Sample{}, ErrFrameUnavailable
		case <-q.notify:
		}
	}
}

// Close stops accepting samples. Queued samples remain readable.
func (q *QueueSource) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of queued samples.
func (q *QueueSource) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Dropped returns how many samples were discarded because the queue was full.
func (q *QueueSource) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
