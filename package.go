// Package relay defines the observer contract for broadcasting LLM pipeline
// lifecycle events: model calls, chains, tools, agent decisions and free text.
//
// The package is a leaf. It holds the Observer interface, the event kinds and
// their payloads, the gate that decides whether an observer sees an event, and
// small helpers for writing observers. The broadcasting Registry lives in
// package events; ready-made observers live under observers/.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "os"
//
//	    "github.com/google/uuid"
//	    "github.com/rickchristie/relay"
//	    "github.com/rickchristie/relay/events"
//	    "github.com/rickchristie/relay/observers/console"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    // 1. Build a registry with the observers you want
//	    registry := events.New(console.New(os.Stdout))
//
//	    // 2. Report lifecycle events as the pipeline runs
//	    run := relay.NewRun(uuid.Nil)
//	    _ = registry.EmitChainStart(ctx, &relay.ChainStartEvent{
//	        Run:        run,
//	        Serialized: map[string]any{"name": "LLMChain"},
//	    }, true)
//	    _ = registry.EmitChainEnd(ctx, &relay.ChainEndEvent{Run: run}, true)
//	}
//
// # Event Kinds and Categories
//
// Every kind belongs to at most one category. An observer can opt out of a
// whole category with its Ignore flags.
//
//	Category  Kinds
//	call      CallStart, CallNewToken, CallEnd, CallError
//	chain     ChainStart, ChainEnd, ChainError
//	agent     ToolStart, ToolEnd, ToolError, AgentAction, AgentFinish
//	(none)    Text
//
// Kind values are namespaced strings ("relay:chain:start") and can be used as
// log keys or metric labels.
//
// # Verbosity
//
// Emitters pass a verbose flag with every event. Observers only see events
// emitted with verbose=true unless AlwaysVerbose reports true. Accepts combines
// this with the category check:
//
//	relay.Accepts(o, relay.KindChainStart, verbose)
//
// # Writing an Observer
//
// Embed BaseObserver and override only the handlers you need:
//
//	type tokenCounter struct {
//	    relay.BaseObserver
//	    n int
//	}
//
//	func (c *tokenCounter) OnCallNewToken(ctx context.Context, e *relay.CallNewTokenEvent) error {
//	    c.n++
//	    return nil
//	}
//
//	counter := &tokenCounter{BaseObserver: relay.BaseObserver{
//	    Filter: relay.Filter{IgnoreChain: true, IgnoreAgent: true, AlwaysVerbose: true},
//	}}
//
// For one-off observers FuncObserver takes a function per kind; nil fields are
// no-ops.
//
// # Errors
//
// A handler error stops the emit: later observers are skipped and the error is
// returned to the emitter unchanged. Panics are not recovered.
//
// # Runs
//
// Payloads embed a Run carrying an id and the id of the enclosing run. The
// registry never reads them; observers such as tracing and stream use them to
// pair start and end events and to nest spans.
//
// # langchaingo
//
// Package lcg adapts in both directions: lcg.Handler is a
// callbacks.Handler that emits into a registry, and lcg.Observer puts any
// callbacks.Handler into a registry.
package relay
