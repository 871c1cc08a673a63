package events

import (
	"context"
	"sync"

	"github.com/rickchristie/relay"
)

// Locked guards a Registry with a read-write mutex so it can be shared by
// several goroutines. Mutations take the write lock; emits take the read lock
// and may run concurrently with each other.
//
// Handlers run while the read lock is held. A handler that calls a mutating
// method on the same Locked will deadlock.
type Locked struct {
	mu       sync.RWMutex
	registry *Registry
}

var _ relay.Emitter = (*Locked)(nil)

// NewLocked wraps registry. The caller must not use registry directly
// afterwards. A nil registry is replaced by an empty one.
func NewLocked(registry *Registry) *Locked {
	if registry == nil {
		registry = New()
	}
	return &Locked{registry: registry}
}

func (l *Locked) Add(o relay.Observer) *Locked {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry.Add(o)
	return l
}

func (l *Locked) Remove(o relay.Observer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Remove(o)
}

func (l *Locked) Set(o relay.Observer) *Locked {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry.Set(o)
	return l
}

func (l *Locked) SetAll(observers []relay.Observer) *Locked {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry.SetAll(observers)
	return l
}

func (l *Locked) Observers() []relay.Observer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Observers()
}

func (l *Locked) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Len()
}

func (l *Locked) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry.Clear()
}

func (l *Locked) EmitCallStart(ctx context.Context, e *relay.CallStartEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitCallStart(ctx, e, verbose)
}

func (l *Locked) EmitCallNewToken(ctx context.Context, e *relay.CallNewTokenEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitCallNewToken(ctx, e, verbose)
}

func (l *Locked) EmitCallEnd(ctx context.Context, e *relay.CallEndEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitCallEnd(ctx, e, verbose)
}

func (l *Locked) EmitCallError(ctx context.Context, e *relay.CallErrorEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitCallError(ctx, e, verbose)
}

func (l *Locked) EmitChainStart(ctx context.Context, e *relay.ChainStartEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitChainStart(ctx, e, verbose)
}

func (l *Locked) EmitChainEnd(ctx context.Context, e *relay.ChainEndEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitChainEnd(ctx, e, verbose)
}

func (l *Locked) EmitChainError(ctx context.Context, e *relay.ChainErrorEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitChainError(ctx, e, verbose)
}

func (l *Locked) EmitToolStart(ctx context.Context, e *relay.ToolStartEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitToolStart(ctx, e, verbose)
}

func (l *Locked) EmitToolEnd(ctx context.Context, e *relay.ToolEndEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitToolEnd(ctx, e, verbose)
}

func (l *Locked) EmitToolError(ctx context.Context, e *relay.ToolErrorEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitToolError(ctx, e, verbose)
}

func (l *Locked) EmitAgentAction(ctx context.Context, e *relay.AgentActionEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitAgentAction(ctx, e, verbose)
}

func (l *Locked) EmitAgentFinish(ctx context.Context, e *relay.AgentFinishEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitAgentFinish(ctx, e, verbose)
}

func (l *Locked) EmitText(ctx context.Context, e *relay.TextEvent, verbose bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.EmitText(ctx, e, verbose)
}
