package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/forfeit/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	e := <-q.Dequeue(ctx)
	if e.AccountID != "acct-1" {
		t.Errorf("expected acct-1, got %s", e.AccountID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Coalesces(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected one pending account, got %d", l)
	}

	// capacity counts accounts, so a second account still fits
	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-2"}); err != nil {
		t.Fatalf("enqueue acct-2: %v", err)
	}
	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-3"}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_RequeueAfterDone(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	ch := q.Dequeue(ctx)

	_ = q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"})
	<-ch

	// still running: the request is held back, not handed to another consumer
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"}); err != nil {
			t.Fatalf("enqueue while running: %v", err)
		}
	}
	select {
	case e := <-ch:
		t.Fatalf("acct-1 handed out twice while running: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected nothing waiting, got %d", l)
	}

	q.Done(ctx, "acct-1")
	select {
	case e := <-ch:
		if e.AccountID != "acct-1" || e.At.IsZero() {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a second refresh for acct-1")
	}

	// released without a new request: nothing is replayed
	q.Done(ctx, "acct-1")
	select {
	case e := <-ch:
		t.Fatalf("unexpected replay %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"}); err != nil {
		t.Fatalf("enqueue after done: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a fresh refresh after done")
	}
}

func TestInMemoryQueue_DoneAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()
	ch := q.Dequeue(ctx)

	_ = q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"})
	<-ch
	_ = q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"})
	_ = q.Close()

	q.Done(ctx, "acct-1")
	q.Done(ctx, "unknown")
	if _, ok := <-ch; ok {
		t.Error("expected the consumer channel to close")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()
	_ = q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"})

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected closed queue")
	}
	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-2"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var got []string
	for e := range q.Dequeue(ctx) {
		got = append(got, e.AccountID)
	}
	if len(got) != 1 || got[0] != "acct-1" {
		t.Errorf("queued events should drain after close, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: "acct-1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = q.Enqueue(ctx, model.ScoreEvent{AccountID: fmt.Sprintf("acct-%d-%d", g, i)})
			}
		}(g)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 500 {
		t.Errorf("expected 500 pending accounts, got %d", l)
	}
	_ = q.Close()

	seen := 0
	for range q.Dequeue(ctx) {
		seen++
	}
	if seen != 500 {
		t.Errorf("expected 500 events, got %d", seen)
	}
}
