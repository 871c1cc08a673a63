// Package events provides the observer registry that broadcasts pipeline
// lifecycle events.
//
// # Overview
//
// A pipeline (a model call, a chain, a tool run) reports each lifecycle event to
// a Registry by calling the matching Emit method. The Registry walks its
// observers in insertion order and invokes the matching handler on every
// observer that accepts the event.
//
// # Quick Start
//
//	registry := events.New(
//	    console.New(os.Stdout),
//	    metrics.MustNew(nil, metrics.Options{}),
//	)
//
//	err := registry.EmitCallStart(ctx, &relay.CallStartEvent{Messages: msgs}, verbose)
//
// # Filtering
//
// Each observer exposes four flags. An observer receives an event if and only
// if:
//   - it does not ignore the event's category (call, chain or agent), and
//   - the emitter passed verbose=true, or the observer is always verbose.
//
// Text events have no category and are only subject to the verbosity check.
//
// # Event Kinds
//
//   - Call: EmitCallStart, EmitCallNewToken, EmitCallEnd, EmitCallError
//   - Chain: EmitChainStart, EmitChainEnd, EmitChainError
//   - Agent: EmitToolStart, EmitToolEnd, EmitToolError, EmitAgentAction,
//     EmitAgentFinish
//   - Text: EmitText
//
// # Errors
//
// The first handler error aborts the emit and is returned unchanged; later
// observers do not see the event. Remove returns relay.ErrObserverNotFound for
// an observer that is not registered.
//
// # Concurrency
//
// Registry has no locking. Use Locked when several goroutines share one
// registry.
package events
