package relay

import (
	"context"
)

// Filter holds the four policy flags every Observer exposes. It is embedded in
// BaseObserver and FuncObserver, and loaded from configuration by the config
// package.
type Filter struct {
	IgnoreCall    bool `yaml:"ignore_call" env:"IGNORE_CALL"`
	IgnoreChain   bool `yaml:"ignore_chain" env:"IGNORE_CHAIN"`
	IgnoreAgent   bool `yaml:"ignore_agent" env:"IGNORE_AGENT"`
	AlwaysVerbose bool `yaml:"always_verbose" env:"ALWAYS_VERBOSE"`
}

// BaseObserver implements Observer with no-op handlers. Embed it and override
// the handlers you need.
//
// Filter must not be changed after the observer has been registered.
type BaseObserver struct {
	Filter Filter
}

var _ Observer = (*BaseObserver)(nil)

func (b *BaseObserver) IgnoreCallEvents() bool  { return b.Filter.IgnoreCall }
func (b *BaseObserver) IgnoreChainEvents() bool { return b.Filter.IgnoreChain }
func (b *BaseObserver) IgnoreAgentEvents() bool { return b.Filter.IgnoreAgent }
func (b *BaseObserver) AlwaysVerbose() bool     { return b.Filter.AlwaysVerbose }

func (*BaseObserver) OnCallStart(context.Context, *CallStartEvent) error       { return nil }
func (*BaseObserver) OnCallNewToken(context.Context, *CallNewTokenEvent) error { return nil }
func (*BaseObserver) OnCallEnd(context.Context, *CallEndEvent) error           { return nil }
func (*BaseObserver) OnCallError(context.Context, *CallErrorEvent) error       { return nil }
func (*BaseObserver) OnChainStart(context.Context, *ChainStartEvent) error     { return nil }
func (*BaseObserver) OnChainEnd(context.Context, *ChainEndEvent) error         { return nil }
func (*BaseObserver) OnChainError(context.Context, *ChainErrorEvent) error     { return nil }
func (*BaseObserver) OnToolStart(context.Context, *ToolStartEvent) error       { return nil }
func (*BaseObserver) OnToolEnd(context.Context, *ToolEndEvent) error           { return nil }
func (*BaseObserver) OnToolError(context.Context, *ToolErrorEvent) error       { return nil }
func (*BaseObserver) OnAgentAction(context.Context, *AgentActionEvent) error   { return nil }
func (*BaseObserver) OnAgentFinish(context.Context, *AgentFinishEvent) error   { return nil }
func (*BaseObserver) OnText(context.Context, *TextEvent) error                 { return nil }

// FuncObserver adapts plain functions to the Observer interface. Nil fields
// are treated as no-op handlers.
//
// Example:
//
//	obs := &relay.FuncObserver{
//	    Filter: relay.Filter{AlwaysVerbose: true},
//	    ChainEnd: func(ctx context.Context, e *relay.ChainEndEvent) error {
//	        log.Printf("chain finished: %v", e.Outputs)
//	        return nil
//	    },
//	}
type FuncObserver struct {
	Filter Filter

	CallStart    func(ctx context.Context, e *CallStartEvent) error
	CallNewToken func(ctx context.Context, e *CallNewTokenEvent) error
	CallEnd      func(ctx context.Context, e *CallEndEvent) error
	CallError    func(ctx context.Context, e *CallErrorEvent) error
	ChainStart   func(ctx context.Context, e *ChainStartEvent) error
	ChainEnd     func(ctx context.Context, e *ChainEndEvent) error
	ChainError   func(ctx context.Context, e *ChainErrorEvent) error
	ToolStart    func(ctx context.Context, e *ToolStartEvent) error
	ToolEnd      func(ctx context.Context, e *ToolEndEvent) error
	ToolError    func(ctx context.Context, e *ToolErrorEvent) error
	AgentAction  func(ctx context.Context, e *AgentActionEvent) error
	AgentFinish  func(ctx context.Context, e *AgentFinishEvent) error
	Text         func(ctx context.Context, e *TextEvent) error
}

var _ Observer = (*FuncObserver)(nil)

func (f *FuncObserver) IgnoreCallEvents() bool  { return f.Filter.IgnoreCall }
func (f *FuncObserver) IgnoreChainEvents() bool { return f.Filter.IgnoreChain }
func (f *FuncObserver) IgnoreAgentEvents() bool { return f.Filter.IgnoreAgent }
func (f *FuncObserver) AlwaysVerbose() bool     { return f.Filter.AlwaysVerbose }

func (f *FuncObserver) OnCallStart(ctx context.Context, e *CallStartEvent) error {
	return call(f.CallStart, ctx, e)
}

func (f *FuncObserver) OnCallNewToken(ctx context.Context, e *CallNewTokenEvent) error {
	return call(f.CallNewToken, ctx, e)
}

func (f *FuncObserver) OnCallEnd(ctx context.Context, e *CallEndEvent) error {
	return call(f.CallEnd, ctx, e)
}

func (f *FuncObserver) OnCallError(ctx context.Context, e *CallErrorEvent) error {
	return call(f.CallError, ctx, e)
}

func (f *FuncObserver) OnChainStart(ctx context.Context, e *ChainStartEvent) error {
	return call(f.ChainStart, ctx, e)
}

func (f *FuncObserver) OnChainEnd(ctx context.Context, e *ChainEndEvent) error {
	return call(f.ChainEnd, ctx, e)
}

func (f *FuncObserver) OnChainError(ctx context.Context, e *ChainErrorEvent) error {
	return call(f.ChainError, ctx, e)
}

func (f *FuncObserver) OnToolStart(ctx context.Context, e *ToolStartEvent) error {
	return call(f.ToolStart, ctx, e)
}

func (f *FuncObserver) OnToolEnd(ctx context.Context, e *ToolEndEvent) error {
	return call(f.ToolEnd, ctx, e)
}

func (f *FuncObserver) OnToolError(ctx context.Context, e *ToolErrorEvent) error {
	return call(f.ToolError, ctx, e)
}

func (f *FuncObserver) OnAgentAction(ctx context.Context, e *AgentActionEvent) error {
	return call(f.AgentAction, ctx, e)
}

func (f *FuncObserver) OnAgentFinish(ctx context.Context, e *AgentFinishEvent) error {
	return call(f.AgentFinish, ctx, e)
}

func (f *FuncObserver) OnText(ctx context.Context, e *TextEvent) error {
	return call(f.Text, ctx, e)
}

func call[E any](fn func(context.Context, E) error, ctx context.Context, e E) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, e)
}
