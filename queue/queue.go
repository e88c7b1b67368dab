// Package queue implements a bounded, closable, multi-producer/multi-consumer
// ring buffer. It is the Q1/Q2 transport between pipeline stages: chunk
// source discovery feeds a Queue[Message], the shuffling chunk pool feeds a
// Queue[*types.TrainingChunk], and a fresh Queue[T] is cheap enough to stand
// up for any other stage that needs a bounded handoff.
//
// A fixed-capacity circular buffer guarded by one lock, producer tokens
// that auto-close the queue once the last one is released, and three
// overflow behaviors. Go has no destructors, so the Producer token here is
// released explicitly via Release (or Close), not implicitly via scope
// exit — callers must defer it.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Put when the queue has been closed, and by Get
// when the queue is both closed and empty.
var ErrClosed = errors.New("queue: closed")

// OverflowBehavior selects what Put does when the queue is at capacity.
type OverflowBehavior int

const (
	// Block waits for room to free up before writing.
	Block OverflowBehavior = iota
	// DropNew discards the incoming item and counts it as dropped.
	DropNew
	// KeepNewest evicts the oldest buffered item to make room.
	KeepNewest
)

// Queue is a thread-safe, fixed-capacity circular buffer with blocking Get
// and configurable-overflow Put. It automatically closes once every Producer
// token created against it has been released.
//
// Close is idempotent: once closed, Put returns ErrClosed immediately, while
// Get keeps draining any items already buffered and only returns ErrClosed
// once the queue is both closed and empty. This lets consumers finish
// processing a batch a producer queued just before shutting down.
type Queue[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	capacity  int
	behavior  OverflowBehavior
	buf       []T
	head      int
	tail      int
	size      int
	producers int
	closed    bool

	totalPut  uint64
	totalGet  uint64
	totalDrop uint64
}

// New creates a queue with the given capacity and overflow behavior.
// Capacity must be at least 1.
func New[T any](capacity int, behavior OverflowBehavior) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{
		capacity: capacity,
		behavior: behavior,
		buf:      make([]T, capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Producer is an RAII-style token for writing to a Queue. The queue closes
// automatically once every outstanding Producer has been released via
// Release or Close. Producer is not safe for concurrent use by multiple
// goroutines; create one Producer per writer goroutine.
type Producer[T any] struct {
	q        *Queue[T]
	released bool
}

// CreateProducer registers a new producer token. Returns ErrClosed if the
// queue is already closed.
func (q *Queue[T]) CreateProducer() (*Producer[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	q.producers++
	return &Producer[T]{q: q}, nil
}

// Release decrements the queue's producer count, closing the queue if this
// was the last outstanding producer. Safe to call more than once; only the
// first call has an effect.
func (p *Producer[T]) Release() {
	if p.released {
		return
	}
	p.released = true
	p.q.removeProducer()
}

// Close is an alias for Release, for callers that prefer io.Closer-shaped
// cleanup.
func (p *Producer[T]) Close() error {
	p.Release()
	return nil
}

// Put writes a single item through this producer. See Queue.Put.
func (p *Producer[T]) Put(ctx context.Context, item T) error {
	return p.q.put(ctx, item)
}

// PutBatch writes items through this producer. See Queue.PutBatch.
func (p *Producer[T]) PutBatch(ctx context.Context, items []T) error {
	return p.q.putBatch(ctx, items)
}

func (q *Queue[T]) removeProducer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.producers--
	if q.producers <= 0 && !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// Close closes the queue directly, independent of producer bookkeeping.
// Idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// IsClosed reports whether the queue has been closed.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Size returns the current number of buffered items.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity returns the queue's fixed capacity.
func (q *Queue[T]) Capacity() int { return q.capacity }

func (q *Queue[T]) put(ctx context.Context, item T) error {
	return q.putBatch(ctx, []T{item})
}

// putBatch applies overflow policy and blocking uniformly to single- and
// multi-item writes.
func (q *Queue[T]) putBatch(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	remaining := items
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}

		var batch int
		switch q.behavior {
		case Block:
			for !q.closed && q.size >= q.capacity {
				q.cond.Wait()
			}
			if q.closed {
				q.mu.Unlock()
				return ErrClosed
			}
			batch = min(len(remaining), q.capacity-q.size)
		case DropNew:
			batch = min(len(remaining), q.capacity-q.size)
			if batch == 0 {
				q.totalPut += uint64(len(remaining))
				q.totalDrop += uint64(len(remaining))
				q.mu.Unlock()
				return nil
			}
		case KeepNewest:
			batch = min(len(remaining), q.capacity)
			for q.size+batch > q.capacity {
				q.head = (q.head + 1) % q.capacity
				q.size--
				q.totalDrop++
			}
		}

		for i := 0; i < batch; i++ {
			q.buf[q.tail] = remaining[i]
			q.tail = (q.tail + 1) % q.capacity
			q.size++
		}
		q.totalPut += uint64(batch)
		q.cond.Broadcast()
		q.mu.Unlock()

		remaining = remaining[batch:]
	}
	return nil
}

// Put writes a single item directly against the queue, without a producer
// token. Prefer CreateProducer for long-lived writer goroutines so the
// queue closes automatically on shutdown; Put is for call sites (tests,
// one-shot writers) that manage their own lifetime.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	return q.put(ctx, item)
}

// PutBatch writes items directly against the queue. See Put.
func (q *Queue[T]) PutBatch(ctx context.Context, items []T) error {
	return q.putBatch(ctx, items)
}

// Get blocks until an item is available or the queue closes with nothing
// left to drain, returning ErrClosed in the latter case. ctx cancellation
// unblocks the wait and returns ctx.Err().
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T

	done := make(chan struct{})
	defer close(done)
	if ctx != context.Background() && ctx != context.TODO() {
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.size > 0 {
			item := q.buf[q.head]
			q.buf[q.head] = zero
			q.head = (q.head + 1) % q.capacity
			q.size--
			q.totalGet++
			q.cond.Broadcast()
			return item, nil
		}
		if q.closed {
			return zero, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.cond.Wait()
	}
}

// GetBatch blocks until exactly count items are available (draining fewer
// than count plus ErrClosed if the queue closes first). count == 0 returns
// an empty, non-nil slice immediately.
func (q *Queue[T]) GetBatch(ctx context.Context, count int) ([]T, error) {
	if count == 0 {
		return []T{}, nil
	}

	result := make([]T, 0, count)
	for len(result) < count {
		item, err := q.Get(ctx)
		if err != nil {
			return result, err
		}
		result = append(result, item)
	}
	return result, nil
}

// WaitForRoomAtLeast blocks until the queue has at least room free slots,
// or ctx is canceled.
func (q *Queue[T]) WaitForRoomAtLeast(ctx context.Context, room int) error {
	return q.waitFor(ctx, func() bool { return q.capacity-q.size >= room })
}

// WaitForRoomAtMost blocks until the queue has at most room free slots.
func (q *Queue[T]) WaitForRoomAtMost(ctx context.Context, room int) error {
	return q.waitFor(ctx, func() bool { return q.capacity-q.size <= room })
}

// WaitForSizeAtLeast blocks until the queue holds at least size items.
func (q *Queue[T]) WaitForSizeAtLeast(ctx context.Context, size int) error {
	return q.waitFor(ctx, func() bool { return q.size >= size })
}

// WaitForSizeAtMost blocks until the queue holds at most size items.
func (q *Queue[T]) WaitForSizeAtMost(ctx context.Context, size int) error {
	return q.waitFor(ctx, func() bool { return q.size <= size })
}

func (q *Queue[T]) waitFor(ctx context.Context, predicateLocked func() bool) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()
	for !predicateLocked() {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.cond.Wait()
	}
	return nil
}

// Counts holds the put/get/drop totals reported by Counts and TakeCounts.
type Counts struct {
	Put  uint64
	Get  uint64
	Drop uint64
}

// Counts returns the cumulative put/get/drop totals without resetting them.
func (q *Queue[T]) Counts() Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Counts{Put: q.totalPut, Get: q.totalGet, Drop: q.totalDrop}
}

// TakeCounts returns the cumulative totals and resets them to zero, for
// periodic metrics flushes (see metrics.Collector).
func (q *Queue[T]) TakeCounts() Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	c := Counts{Put: q.totalPut, Get: q.totalGet, Drop: q.totalDrop}
	q.totalPut, q.totalGet, q.totalDrop = 0, 0, 0
	return c
}
