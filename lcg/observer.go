package lcg

import (
	"context"

	"github.com/rickchristie/relay"
	"github.com/tmc/langchaingo/callbacks"
)

// Observer adapts a callbacks.Handler to relay.Observer. Handlers never fail,
// so every On method returns nil.
//
// Call starts with Messages go to HandleLLMGenerateContentStart, otherwise to
// HandleLLMStart. Token events go to HandleStreamingFunc with Chunk, or the
// Token bytes when Chunk is nil.
type Observer struct {
	relay.BaseObserver

	handler callbacks.Handler
}

var _ relay.Observer = (*Observer)(nil)

// NewObserver wraps h with filter f.
func NewObserver(h callbacks.Handler, f relay.Filter) *Observer {
	return &Observer{BaseObserver: relay.BaseObserver{Filter: f}, handler: h}
}

// Handler returns the wrapped handler.
func (o *Observer) Handler() callbacks.Handler {
	return o.handler
}

func (o *Observer) OnCallStart(ctx context.Context, e *relay.CallStartEvent) error {
	if e.Messages != nil {
		o.handler.HandleLLMGenerateContentStart(ctx, e.Messages)
	} else {
		o.handler.HandleLLMStart(ctx, e.Prompts)
	}
	return nil
}

func (o *Observer) OnCallNewToken(ctx context.Context, e *relay.CallNewTokenEvent) error {
	chunk := e.Chunk
	if chunk == nil {
		chunk = []byte(e.Token)
	}
	o.handler.HandleStreamingFunc(ctx, chunk)
	return nil
}

func (o *Observer) OnCallEnd(ctx context.Context, e *relay.CallEndEvent) error {
	o.handler.HandleLLMGenerateContentEnd(ctx, e.Response)
	return nil
}

func (o *Observer) OnCallError(ctx context.Context, e *relay.CallErrorEvent) error {
	o.handler.HandleLLMError(ctx, e.Err)
	return nil
}

func (o *Observer) OnChainStart(ctx context.Context, e *relay.ChainStartEvent) error {
	o.handler.HandleChainStart(ctx, e.Inputs)
	return nil
}

func (o *Observer) OnChainEnd(ctx context.Context, e *relay.ChainEndEvent) error {
	o.handler.HandleChainEnd(ctx, e.Outputs)
	return nil
}

func (o *Observer) OnChainError(ctx context.Context, e *relay.ChainErrorEvent) error {
	o.handler.HandleChainError(ctx, e.Err)
	return nil
}

func (o *Observer) OnToolStart(ctx context.Context, e *relay.ToolStartEvent) error {
	o.handler.HandleToolStart(ctx, e.Input)
	return nil
}

func (o *Observer) OnToolEnd(ctx context.Context, e *relay.ToolEndEvent) error {
	o.handler.HandleToolEnd(ctx, e.Output)
	return nil
}

func (o *Observer) OnToolError(ctx context.Context, e *relay.ToolErrorEvent) error {
	o.handler.HandleToolError(ctx, e.Err)
	return nil
}

func (o *Observer) OnAgentAction(ctx context.Context, e *relay.AgentActionEvent) error {
	o.handler.HandleAgentAction(ctx, e.Action)
	return nil
}

func (o *Observer) OnAgentFinish(ctx context.Context, e *relay.AgentFinishEvent) error {
	o.handler.HandleAgentFinish(ctx, e.Finish)
	return nil
}

func (o *Observer) OnText(ctx context.Context, e *relay.TextEvent) error {
	o.handler.HandleText(ctx, e.Text)
	return nil
}
