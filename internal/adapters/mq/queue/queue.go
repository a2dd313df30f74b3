// Package queue carries score refresh requests from the attempt workflow to
// the scoreboard workers.
//
// A refresh recomputes the whole account total, so requests for an account
// that is already waiting are coalesced into the pending one. An account being
// refreshed stays claimed until the consumer calls Done; a request arriving in
// the meantime is replayed then, so one account is never refreshed twice at once.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Event is the payload flowing through the queue.
type Event = model.ScoreEvent

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue schedules a refresh. It returns ErrFull or ErrClosed when the
	// event was dropped; a coalesced event is not an error.
	Enqueue(ctx context.Context, e Event) error
	// Dequeue returns a channel of events, closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event
	// Done releases an account handed out by Dequeue.
	Done(ctx context.Context, accountID string)
	// Len returns the number of accounts waiting for a refresh.
	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

type state uint8

const (
	stateWaiting state = iota + 1
	stateRunning
	// stateRerun is a running account that was requested again.
	stateRerun
)

// InMemoryQueue implements Queue with a buffered channel and a pending set.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu      sync.Mutex
	pending map[string]state
	waiting int
	closed  bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	q.pending = make(map[string]state, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	switch q.pending[e.AccountID] {
	case stateWaiting, stateRerun:
		return nil
	case stateRunning:
		q.pending[e.AccountID] = stateRerun
		return nil
	}
	return q.push(e)
}

// push requires q.mu.
func (q *InMemoryQueue) push(e Event) error {
	select {
	case q.events <- e:
		q.pending[e.AccountID] = stateWaiting
		q.waiting++
		metrics.UpdateQueueSize(len(q.events))
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

// Dequeue implements Queue. Each event handed out must be released with Done.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for e := range q.events {
			q.mu.Lock()
			q.pending[e.AccountID] = stateRunning
			q.waiting--
			q.mu.Unlock()
			metrics.UpdateQueueSize(len(q.events))

			select {
			case out <- e:
			case <-ctx.Done():
				q.Done(context.WithoutCancel(ctx), e.AccountID)
				return
			}
		}
	}()
	return out
}

// Done implements Queue. An account requested again while it was running is
// queued once more with a fresh timestamp.
func (q *InMemoryQueue) Done(_ context.Context, accountID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.pending[accountID]
	if st != stateRunning && st != stateRerun {
		return
	}
	delete(q.pending, accountID)
	if st != stateRerun {
		return
	}
	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return
	}
	_ = q.push(Event{AccountID: accountID, At: time.Now()})
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting
}

// Close implements Queue. Events already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
