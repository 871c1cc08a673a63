// Package buffer provides buffer implementations for concurrent streaming.
package buffer

import (
	"sync"
)

// Unbounded is a FIFO queue in front of a channel. Push never blocks; a
// background goroutine forwards queued items to Out in order.
//
// Usage:
//
//	q := buffer.NewUnbounded[string]()
//	go func() {
//	    for s := range q.Out() {
//	        fmt.Print(s)
//	    }
//	}()
//	q.Push("a")  // never blocks
//	q.Close()    // Out closes once "a" has been delivered
//
// A reader that walks away must call Stop instead of Close, otherwise the
// forwarding goroutine waits on Out forever.
type Unbounded[T any] struct {
	mu      sync.Mutex
	pending []T
	closed  bool
	stopped bool
	wake    chan struct{}
	stop    chan struct{}
	out     chan T
	done    chan struct{}
}

// NewUnbounded creates an empty queue and starts its forwarding goroutine.
func NewUnbounded[T any]() *Unbounded[T] {
	q := &Unbounded[T]{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go q.forward()
	return q
}

func (q *Unbounded[T]) forward() {
	defer close(q.done)
	defer close(q.out)
	for {
		batch, closed := q.take()
		for _, item := range batch {
			select {
			case <-q.stop:
				return
			default:
			}
			select {
			case q.out <- item:
			case <-q.stop:
				return
			}
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			select {
			case <-q.wake:
			case <-q.stop:
				return
			}
		}
	}
}

// take swaps out everything pending. It reports whether the queue is closed.
func (q *Unbounded[T]) take() ([]T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.pending
	q.pending = nil
	return batch, q.closed
}

func (q *Unbounded[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Push queues item. It is safe for concurrent use and never blocks. Items
// pushed after Close are dropped.
func (q *Unbounded[T]) Push(item T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, item)
	q.mu.Unlock()
	q.signal()
}

// Out returns the delivery channel. It is closed after Close once every item
// pushed before Close has been received.
func (q *Unbounded[T]) Out() <-chan T {
	return q.out
}

// Close stops accepting items. It is safe to call more than once.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Stop drops every undelivered item and closes Out without waiting for a
// reader. It implies Close and is safe to call more than once.
func (q *Unbounded[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
	if !q.stopped {
		q.stopped = true
		close(q.stop)
	}
}

// Done is closed when the forwarding goroutine has exited.
func (q *Unbounded[T]) Done() <-chan struct{} {
	return q.done
}

// Len returns the number of items queued but not yet handed to Out's reader.
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
