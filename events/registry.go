package events

import (
	"context"
	"reflect"

	"github.com/rickchristie/relay"
)

// Registry keeps an ordered list of observers and broadcasts lifecycle events
// to them.
//
// # Overview
//
// Registry is the central coordination point for observers. It:
//   - Stores registered observers in insertion order
//   - Offers one Emit method per event kind
//   - Skips observers whose filter flags reject the event (see relay.Accepts)
//   - Stops at the first handler error and returns it unchanged
//
// # Creating and Using
//
//	registry := events.New(consoleObserver)
//	registry.Add(metricsObserver)
//
//	// In the pipeline
//	if err := registry.EmitChainStart(ctx, &relay.ChainStartEvent{Inputs: in}, verbose); err != nil {
//	    return err
//	}
//
// # Duplicates
//
// The same observer may be added more than once and is then invoked once per
// entry. Remove drops only the first matching entry.
//
// # Thread Safety
//
// Registry is NOT thread-safe. Callers that emit or mutate from several
// goroutines must serialize access themselves, or use Locked.
type Registry struct {
	observers []relay.Observer
}

var _ relay.Emitter = (*Registry)(nil)

// New creates a Registry holding a copy of the given observers, in order.
func New(observers ...relay.Observer) *Registry {
	r := &Registry{}
	r.SetAll(observers)
	return r
}

// Add appends an observer to the end of the sequence. Duplicates are kept.
func (r *Registry) Add(o relay.Observer) *Registry {
	r.observers = append(r.observers, o)
	return r
}

// Remove deletes the first entry equal to o. It returns
// relay.ErrObserverNotFound and leaves the sequence untouched when o is not
// registered.
//
// Entries are compared with ==. An entry whose value cannot be compared, such
// as a struct holding a slice, never matches.
func (r *Registry) Remove(o relay.Observer) error {
	for i, existing := range r.observers {
		if sameObserver(existing, o) {
			next := make([]relay.Observer, 0, len(r.observers)-1)
			next = append(next, r.observers[:i]...)
			next = append(next, r.observers[i+1:]...)
			r.observers = next
			return nil
		}
	}
	return relay.ErrObserverNotFound
}

// sameObserver reports a == b without panicking on uncomparable values.
func sameObserver(a, b relay.Observer) bool {
	if a == nil || b == nil {
		return a == b
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}

// Set replaces the whole sequence with o alone.
func (r *Registry) Set(o relay.Observer) *Registry {
	r.observers = []relay.Observer{o}
	return r
}

// SetAll replaces the whole sequence with a copy of observers. The input is
// neither deduplicated nor validated.
func (r *Registry) SetAll(observers []relay.Observer) *Registry {
	r.observers = make([]relay.Observer, len(observers))
	copy(r.observers, observers)
	return r
}

// Observers returns a copy of the current sequence.
func (r *Registry) Observers() []relay.Observer {
	out := make([]relay.Observer, len(r.observers))
	copy(out, r.observers)
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.observers)
}

// Clear removes all registered observers.
func (r *Registry) Clear() {
	r.observers = nil
}

// -----------------------------------------------------------------------------
// Model Call Events
// -----------------------------------------------------------------------------

// EmitCallStart broadcasts a CallStartEvent to observers that accept call events.
func (r *Registry) EmitCallStart(ctx context.Context, e *relay.CallStartEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindCallStart, verbose) {
			continue
		}
		if err := o.OnCallStart(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitCallNewToken broadcasts a CallNewTokenEvent to observers that accept call events.
func (r *Registry) EmitCallNewToken(ctx context.Context, e *relay.CallNewTokenEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindCallNewToken, verbose) {
			continue
		}
		if err := o.OnCallNewToken(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitCallEnd broadcasts a CallEndEvent to observers that accept call events.
func (r *Registry) EmitCallEnd(ctx context.Context, e *relay.CallEndEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindCallEnd, verbose) {
			continue
		}
		if err := o.OnCallEnd(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitCallError broadcasts a CallErrorEvent to observers that accept call events.
func (r *Registry) EmitCallError(ctx context.Context, e *relay.CallErrorEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindCallError, verbose) {
			continue
		}
		if err := o.OnCallError(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Chain Events
// -----------------------------------------------------------------------------

// EmitChainStart broadcasts a ChainStartEvent to observers that accept chain events.
func (r *Registry) EmitChainStart(ctx context.Context, e *relay.ChainStartEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindChainStart, verbose) {
			continue
		}
		if err := o.OnChainStart(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitChainEnd broadcasts a ChainEndEvent to observers that accept chain events.
func (r *Registry) EmitChainEnd(ctx context.Context, e *relay.ChainEndEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindChainEnd, verbose) {
			continue
		}
		if err := o.OnChainEnd(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitChainError broadcasts a ChainErrorEvent to observers that accept chain events.
func (r *Registry) EmitChainError(ctx context.Context, e *relay.ChainErrorEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindChainError, verbose) {
			continue
		}
		if err := o.OnChainError(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Tool and Agent Events
// -----------------------------------------------------------------------------

// EmitToolStart broadcasts a ToolStartEvent to observers that accept agent events.
func (r *Registry) EmitToolStart(ctx context.Context, e *relay.ToolStartEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindToolStart, verbose) {
			continue
		}
		if err := o.OnToolStart(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitToolEnd broadcasts a ToolEndEvent to observers that accept agent events.
func (r *Registry) EmitToolEnd(ctx context.Context, e *relay.ToolEndEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindToolEnd, verbose) {
			continue
		}
		if err := o.OnToolEnd(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitToolError broadcasts a ToolErrorEvent to observers that accept agent events.
func (r *Registry) EmitToolError(ctx context.Context, e *relay.ToolErrorEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindToolError, verbose) {
			continue
		}
		if err := o.OnToolError(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitAgentAction broadcasts an AgentActionEvent to observers that accept agent events.
func (r *Registry) EmitAgentAction(ctx context.Context, e *relay.AgentActionEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindAgentAction, verbose) {
			continue
		}
		if err := o.OnAgentAction(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EmitAgentFinish broadcasts an AgentFinishEvent to observers that accept agent events.
func (r *Registry) EmitAgentFinish(ctx context.Context, e *relay.AgentFinishEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindAgentFinish, verbose) {
			continue
		}
		if err := o.OnAgentFinish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Text Event
// -----------------------------------------------------------------------------

// EmitText broadcasts a TextEvent. Category flags do not apply to text; only
// the verbosity check does.
func (r *Registry) EmitText(ctx context.Context, e *relay.TextEvent, verbose bool) error {
	for _, o := range r.observers {
		if !relay.Accepts(o, relay.KindText, verbose) {
			continue
		}
		if err := o.OnText(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
