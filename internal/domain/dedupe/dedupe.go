// Package dedupe tracks client request ids so a retried attempt is not
// processed twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records request ids for at-most-once attempt processing.
type Deduper interface {
	// Claim records the request id for the account. It returns false when the
	// id was already claimed and has not expired.
	Claim(ctx context.Context, accountID, requestID string) bool

	// Release forgets a claim so the request can be retried. Used when the
	// attempt that claimed it failed before committing.
	Release(ctx context.Context, accountID, requestID string)

	Size() int
}

type entry struct {
	key     string
	claimed time.Time
}

// requestLog keeps claims in insertion order; the oldest is evicted first
// once maxSize is reached.
type requestLog struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewRequestLog creates an in-memory Deduper.
func NewRequestLog(opts ...Option) Deduper {
	d := &requestLog{
		maxSize: 100_000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func key(accountID, requestID string) string {
	return accountID + "\x00" + requestID
}

// Claim implements Deduper.
func (d *requestLog) Claim(_ context.Context, accountID, requestID string) bool {
	k := key(accountID, requestID)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.expire(now)
	if _, ok := d.index[k]; ok {
		return false
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.index[k] = d.order.PushBack(&entry{key: k, claimed: now})
	return true
}

// Release implements Deduper.
func (d *requestLog) Release(_ context.Context, accountID, requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key(accountID, requestID)]; ok {
		d.remove(el)
	}
}

// Size implements Deduper.
func (d *requestLog) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}

// expire drops claims older than ttl. Must be called with d.mu held.
func (d *requestLog) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Sub(el.Value.(*entry).claimed) < d.ttl {
			return
		}
		d.remove(el)
	}
}

func (d *requestLog) remove(el *list.Element) {
	e := d.order.Remove(el).(*entry)
	delete(d.index, e.key)
}
