// Package stream provides an observer that republishes streamed model output
// fragments to channel subscribers.
package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rickchristie/relay"
	"github.com/rickchristie/relay/internal/buffer"
)

// Chunk is one output fragment delivered to subscribers.
type Chunk struct {
	// Run identifies the model call that produced the fragment.
	Run relay.Run

	// Token is the text fragment.
	Token string
}

// UnsubscribeFunc cancels a subscription. Chunks not yet received are
// dropped and the subscription channel is closed, so the caller may stop
// reading. Safe to call multiple times.
type UnsubscribeFunc func()

type subscription struct {
	id    uint64
	queue *buffer.Unbounded[Chunk]
}

// Observer fans CallNewTokenEvent fragments out to subscribers. Emitting never
// blocks: every subscription has its own unbounded queue.
//
// By default the observer ignores chain and agent events and is always
// verbose, so it streams tokens even when the emitter is quiet.
//
// All methods are safe for concurrent use.
type Observer struct {
	relay.BaseObserver

	mu     sync.RWMutex
	all    []*subscription
	byRun  map[uuid.UUID][]*subscription
	closed bool
	nextID uint64
}

var _ relay.Observer = (*Observer)(nil)

// New creates a stream observer with the default filter.
func New() *Observer {
	return NewWithFilter(relay.Filter{IgnoreChain: true, IgnoreAgent: true, AlwaysVerbose: true})
}

// NewWithFilter creates a stream observer with a custom filter.
func NewWithFilter(f relay.Filter) *Observer {
	return &Observer{
		BaseObserver: relay.BaseObserver{Filter: f},
		byRun:        make(map[uuid.UUID][]*subscription),
	}
}

func closedChannel() <-chan Chunk {
	ch := make(chan Chunk)
	close(ch)
	return ch
}

func (o *Observer) newSubscription() *subscription {
	sub := &subscription{id: o.nextID, queue: buffer.NewUnbounded[Chunk]()}
	o.nextID++
	return sub
}

// Subscribe returns a channel receiving every fragment from every run.
func (o *Observer) Subscribe() (<-chan Chunk, UnsubscribeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return closedChannel(), func() {}
	}

	sub := o.newSubscription()
	o.all = append(o.all, sub)

	return sub.queue.Out(), func() { o.unsubscribe(uuid.Nil, sub) }
}

// SubscribeRun returns a channel receiving the fragments of one run. The
// channel is closed when that run's CallEndEvent or CallErrorEvent is
// observed. The zero run id gets an already closed channel.
func (o *Observer) SubscribeRun(runID uuid.UUID) (<-chan Chunk, UnsubscribeFunc) {
	if runID == uuid.Nil {
		return closedChannel(), func() {}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return closedChannel(), func() {}
	}

	sub := o.newSubscription()
	o.byRun[runID] = append(o.byRun[runID], sub)

	return sub.queue.Out(), func() { o.unsubscribe(runID, sub) }
}

func (o *Observer) unsubscribe(runID uuid.UUID, sub *subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sub.queue.Stop()

	if runID == uuid.Nil {
		o.all = without(o.all, sub)
		return
	}
	subs := without(o.byRun[runID], sub)
	if len(subs) == 0 {
		delete(o.byRun, runID)
	} else {
		o.byRun[runID] = subs
	}
}

func without(subs []*subscription, sub *subscription) []*subscription {
	for i, s := range subs {
		if s.id == sub.id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// OnCallNewToken publishes the fragment to every matching subscriber.
func (o *Observer) OnCallNewToken(_ context.Context, e *relay.CallNewTokenEvent) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return nil
	}

	chunk := Chunk{Run: e.Run, Token: e.Token}
	for _, sub := range o.all {
		sub.queue.Push(chunk)
	}
	if e.ID != uuid.Nil {
		for _, sub := range o.byRun[e.ID] {
			sub.queue.Push(chunk)
		}
	}
	return nil
}

// OnCallEnd completes the subscriptions of the finished run.
func (o *Observer) OnCallEnd(_ context.Context, e *relay.CallEndEvent) error {
	o.finishRun(e.ID)
	return nil
}

// OnCallError completes the subscriptions of the failed run.
func (o *Observer) OnCallError(_ context.Context, e *relay.CallErrorEvent) error {
	o.finishRun(e.ID)
	return nil
}

func (o *Observer) finishRun(runID uuid.UUID) {
	if runID == uuid.Nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, sub := range o.byRun[runID] {
		sub.queue.Close()
	}
	delete(o.byRun, runID)
}

// Close closes every subscription. Later fragments are dropped and later
// subscriptions receive an already closed channel. Safe to call multiple times.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true

	for _, sub := range o.all {
		sub.queue.Close()
	}
	for _, subs := range o.byRun {
		for _, sub := range subs {
			sub.queue.Close()
		}
	}
	o.all = nil
	o.byRun = make(map[uuid.UUID][]*subscription)
}
