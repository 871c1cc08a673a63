package relay

import (
	"context"
)

// -----------------------------------------------------------------------------
// Observer Interface
// -----------------------------------------------------------------------------
//
// Observers receive lifecycle events from an events.Registry. To use them:
//
//  1. Implement Observer, usually by embedding BaseObserver and overriding the
//     handlers you care about
//  2. Register with events.Registry
//  3. Have the pipeline call the registry's Emit methods
//
// Example:
//
//	type ChainPrinter struct {
//	    relay.BaseObserver
//	}
//
//	func (p *ChainPrinter) OnChainStart(ctx context.Context, e *relay.ChainStartEvent) error {
//	    fmt.Println("chain started with", len(e.Inputs), "inputs")
//	    return nil
//	}
//
//	registry := events.New(&ChainPrinter{
//	    BaseObserver: relay.BaseObserver{Filter: relay.Filter{IgnoreCall: true}},
//	})
//
// # Filtering
//
// The registry reads four flags from every observer before each dispatch.
// Observers must return the same values for their whole lifetime; the
// registry never changes them. See Accepts for the exact rule.
//
// # Error Handling
//
// A non-nil error returned from a handler stops the current emit: observers
// registered later do not see the event and the error is returned to the
// emitter unchanged. Panics are not recovered.
// -----------------------------------------------------------------------------

// Observer is the capability every registered listener must expose: four
// read-only policy flags and one handler per event kind.
type Observer interface {
	// IgnoreCallEvents opts the observer out of every model call event.
	IgnoreCallEvents() bool

	// IgnoreChainEvents opts the observer out of every chain event.
	IgnoreChainEvents() bool

	// IgnoreAgentEvents opts the observer out of every tool and agent event.
	IgnoreAgentEvents() bool

	// AlwaysVerbose makes the observer receive events even when the emitter did
	// not ask for verbose reporting.
	AlwaysVerbose() bool

	OnCallStart(ctx context.Context, e *CallStartEvent) error
	OnCallNewToken(ctx context.Context, e *CallNewTokenEvent) error
	OnCallEnd(ctx context.Context, e *CallEndEvent) error
	OnCallError(ctx context.Context, e *CallErrorEvent) error

	OnChainStart(ctx context.Context, e *ChainStartEvent) error
	OnChainEnd(ctx context.Context, e *ChainEndEvent) error
	OnChainError(ctx context.Context, e *ChainErrorEvent) error

	OnToolStart(ctx context.Context, e *ToolStartEvent) error
	OnToolEnd(ctx context.Context, e *ToolEndEvent) error
	OnToolError(ctx context.Context, e *ToolErrorEvent) error
	OnAgentAction(ctx context.Context, e *AgentActionEvent) error
	OnAgentFinish(ctx context.Context, e *AgentFinishEvent) error

	OnText(ctx context.Context, e *TextEvent) error
}

// Accepts reports whether o should receive an event of kind k emitted with the
// given verbosity.
//
// An observer receives an event if and only if it does not ignore the kind's
// category, and either verbose is true or the observer is always verbose.
// KindText has no category and is subject to the verbosity check only.
func Accepts(o Observer, k Kind, verbose bool) bool {
	switch k.Category() {
	case CategoryCall:
		if o.IgnoreCallEvents() {
			return false
		}
	case CategoryChain:
		if o.IgnoreChainEvents() {
			return false
		}
	case CategoryAgent:
		if o.IgnoreAgentEvents() {
			return false
		}
	}
	return verbose || o.AlwaysVerbose()
}

// -----------------------------------------------------------------------------
// Emitter Interface
// -----------------------------------------------------------------------------

// Emitter is the surface a pipeline reports lifecycle events to. The verbose
// argument states whether the calling context asked for verbose reporting of
// this particular event.
//
// events.Registry and events.Locked implement Emitter.
type Emitter interface {
	EmitCallStart(ctx context.Context, e *CallStartEvent, verbose bool) error
	EmitCallNewToken(ctx context.Context, e *CallNewTokenEvent, verbose bool) error
	EmitCallEnd(ctx context.Context, e *CallEndEvent, verbose bool) error
	EmitCallError(ctx context.Context, e *CallErrorEvent, verbose bool) error

	EmitChainStart(ctx context.Context, e *ChainStartEvent, verbose bool) error
	EmitChainEnd(ctx context.Context, e *ChainEndEvent, verbose bool) error
	EmitChainError(ctx context.Context, e *ChainErrorEvent, verbose bool) error

	EmitToolStart(ctx context.Context, e *ToolStartEvent, verbose bool) error
	EmitToolEnd(ctx context.Context, e *ToolEndEvent, verbose bool) error
	EmitToolError(ctx context.Context, e *ToolErrorEvent, verbose bool) error
	EmitAgentAction(ctx context.Context, e *AgentActionEvent, verbose bool) error
	EmitAgentFinish(ctx context.Context, e *AgentFinishEvent, verbose bool) error

	EmitText(ctx context.Context, e *TextEvent, verbose bool) error
}
