package scraper

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO that decouples producers from a consumer.
// Push never blocks. Pull returns the oldest item, or waits for the next
// Push; waiting pulls are served in the order they started.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	waiters []chan T
}

// Push hands item to the longest-waiting Pull, or buffers it.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		w <- item // buffered, never blocks
		return
	}
	q.items = append(q.items, item)
}

// Pull returns the next item, blocking until one is available or ctx ends.
func (q *Queue[T]) Pull(ctx context.Context) (T, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		item := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()
		return item, nil
	}
	w := make(chan T, 1)
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case item := <-w:
		return item, nil
	case <-ctx.Done():
		q.abandon(w)
		var zero T
		return zero, ctx.Err()
	}
}

// abandon unregisters a cancelled waiter. If a Push already handed it an
// item, the item goes back to the head of the queue.
func (q *Queue[T]) abandon(w chan T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, other := range q.waiters {
		if other == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
	select {
	case item := <-w:
		q.items = append([]T{item}, q.items...)
	default:
	}
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
