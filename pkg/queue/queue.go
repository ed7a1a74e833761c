package queue

import (
	"sync"
)

// Queue is a generic FIFO queue with thread-safe operations. It is guarded by its
// own mutex so producers never contend with unrelated locks.
type Queue[T any] struct {
	queue    []T
	mu       sync.Mutex
	notifyCh chan struct{}
}

// New creates a new Queue
func New[T any]() *Queue[T] {
	return &Queue[T]{
		queue:    make([]T, 0),
		notifyCh: make(chan struct{}, 1),
	}
}

// Add appends items to the tail of the queue, preserving their order.
func (q *Queue[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, items...)
	select {
	case q.notifyCh <- struct{}{}: // Send notification if there's no pending notification
	default:
		// Do nothing if a notification is already pending
	}
}

// PopN removes and returns up to max items from the head of the queue. It never
// blocks: it returns fewer items, possibly none, when the queue is shorter.
func (q *Queue[T]) PopN(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || len(q.queue) == 0 {
		return nil
	}
	n := min(max, len(q.queue))
	out := make([]T, n)
	copy(out, q.queue[:n])
	clear(q.queue[:n])
	q.queue = q.queue[n:]
	if len(q.queue) == 0 {
		q.queue = make([]T, 0)
	}
	return out
}

// NotifyCh returns the notification channel
func (q *Queue[T]) NotifyCh() <-chan struct{} {
	return q.notifyCh
}

// Len returns the current length of the queue
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
