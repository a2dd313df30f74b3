// Package worker recomputes account scores and publishes them to the standings.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/forfeit/internal/adapters/mq/queue"
	"github.com/okian/forfeit/internal/domain/types"
	"github.com/okian/forfeit/pkg/logger"
	"github.com/okian/forfeit/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// ScoreSource reads an account's committed score.
type ScoreSource interface {
	Score(ctx context.Context, accountID string) (types.ScoreSummary, error)
}

// Updater publishes a score to the standings.
type Updater interface {
	Set(ctx context.Context, accountID string, score int64) bool
}

// Queue defines how workers receive events. Done is called once the refresh
// for a dequeued event has finished.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
	Done(ctx context.Context, accountID string)
}

// Worker processes score refresh events.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)
	// Shutdown stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	source  ScoreSource
	updater Updater
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, source ScoreSource, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		source:   source,
		updater:  updater,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.refresh(ctx, e); err != nil {
				w.logger.Error(ctx, "score refresh failed", logger.String("account", e.AccountID), logger.Error(err))
			}
			w.queue.Done(ctx, e.AccountID)
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) refresh(ctx context.Context, e queue.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	sum, err := w.source.Score(ctx, e.AccountID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "score_read")
		return fmt.Errorf("read score for %s: %w", e.AccountID, err)
	}

	if w.updater.Set(ctx, e.AccountID, sum.Total) {
		w.logger.Debug(ctx, "standings updated",
			logger.String("account", e.AccountID),
			logger.Int64("score", sum.Total),
		)
	}
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool. workerCount < 1 uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, source ScoreSource, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, source, updater, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue if it can be closed, lets the workers drain what
// is already queued, and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
