// Package tt provides test helpers shared by the relay packages.
package tt

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickchristie/relay"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// ErrSample is the error carried by the sample error events.
var ErrSample = errors.New("sample failure")

// SampleEvent returns a small, fully populated payload of the given kind.
// It panics on an unknown kind.
func SampleEvent(kind relay.Kind) relay.Event {
	switch kind {
	case relay.KindCallStart:
		return &relay.CallStartEvent{
			Serialized: map[string]any{"name": "test-model"},
			Messages: []llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
			},
		}
	case relay.KindCallNewToken:
		return &relay.CallNewTokenEvent{Token: "hel", Chunk: []byte("hel")}
	case relay.KindCallEnd:
		return &relay.CallEndEvent{Response: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "hello back"}},
		}}
	case relay.KindCallError:
		return &relay.CallErrorEvent{Err: ErrSample}
	case relay.KindChainStart:
		return &relay.ChainStartEvent{
			Serialized: map[string]any{"name": "qa"},
			Inputs:     map[string]any{"question": "why?"},
		}
	case relay.KindChainEnd:
		return &relay.ChainEndEvent{Outputs: map[string]any{"answer": "because"}}
	case relay.KindChainError:
		return &relay.ChainErrorEvent{Err: ErrSample}
	case relay.KindToolStart:
		return &relay.ToolStartEvent{
			Serialized: map[string]any{"name": "search"},
			Input:      "weather in Jakarta",
		}
	case relay.KindToolEnd:
		return &relay.ToolEndEvent{
			Output:            "sunny",
			ObservationPrefix: "Observation: ",
			LLMPrefix:         "Thought:",
		}
	case relay.KindToolError:
		return &relay.ToolErrorEvent{Err: ErrSample}
	case relay.KindAgentAction:
		return &relay.AgentActionEvent{Action: schema.AgentAction{
			Tool:      "search",
			ToolInput: "weather in Jakarta",
			Log:       "I should search.",
		}}
	case relay.KindAgentFinish:
		return &relay.AgentFinishEvent{Finish: schema.AgentFinish{
			ReturnValues: map[string]any{"output": "sunny"},
			Log:          "Final Answer: sunny",
		}}
	case relay.KindText:
		return &relay.TextEvent{Text: "prompt text", End: "\n"}
	default:
		panic(fmt.Sprintf("tt: unknown kind %q", kind))
	}
}

// Emit sends e through the Emit method matching its kind.
func Emit(ctx context.Context, emitter relay.Emitter, e relay.Event, verbose bool) error {
	switch ev := e.(type) {
	case *relay.CallStartEvent:
		return emitter.EmitCallStart(ctx, ev, verbose)
	case *relay.CallNewTokenEvent:
		return emitter.EmitCallNewToken(ctx, ev, verbose)
	case *relay.CallEndEvent:
		return emitter.EmitCallEnd(ctx, ev, verbose)
	case *relay.CallErrorEvent:
		return emitter.EmitCallError(ctx, ev, verbose)
	case *relay.ChainStartEvent:
		return emitter.EmitChainStart(ctx, ev, verbose)
	case *relay.ChainEndEvent:
		return emitter.EmitChainEnd(ctx, ev, verbose)
	case *relay.ChainErrorEvent:
		return emitter.EmitChainError(ctx, ev, verbose)
	case *relay.ToolStartEvent:
		return emitter.EmitToolStart(ctx, ev, verbose)
	case *relay.ToolEndEvent:
		return emitter.EmitToolEnd(ctx, ev, verbose)
	case *relay.ToolErrorEvent:
		return emitter.EmitToolError(ctx, ev, verbose)
	case *relay.AgentActionEvent:
		return emitter.EmitAgentAction(ctx, ev, verbose)
	case *relay.AgentFinishEvent:
		return emitter.EmitAgentFinish(ctx, ev, verbose)
	case *relay.TextEvent:
		return emitter.EmitText(ctx, ev, verbose)
	default:
		panic(fmt.Sprintf("tt: unsupported event %T", e))
	}
}

// EmitKind emits a fresh SampleEvent of the given kind.
func EmitKind(ctx context.Context, emitter relay.Emitter, kind relay.Kind, verbose bool) error {
	return Emit(ctx, emitter, SampleEvent(kind), verbose)
}

// Deliver invokes the handler of o that matches e's kind, bypassing any
// registry. Observer tests use it to drive handlers directly.
func Deliver(ctx context.Context, o relay.Observer, e relay.Event) error {
	switch ev := e.(type) {
	case *relay.CallStartEvent:
		return o.OnCallStart(ctx, ev)
	case *relay.CallNewTokenEvent:
		return o.OnCallNewToken(ctx, ev)
	case *relay.CallEndEvent:
		return o.OnCallEnd(ctx, ev)
	case *relay.CallErrorEvent:
		return o.OnCallError(ctx, ev)
	case *relay.ChainStartEvent:
		return o.OnChainStart(ctx, ev)
	case *relay.ChainEndEvent:
		return o.OnChainEnd(ctx, ev)
	case *relay.ChainErrorEvent:
		return o.OnChainError(ctx, ev)
	case *relay.ToolStartEvent:
		return o.OnToolStart(ctx, ev)
	case *relay.ToolEndEvent:
		return o.OnToolEnd(ctx, ev)
	case *relay.ToolErrorEvent:
		return o.OnToolError(ctx, ev)
	case *relay.AgentActionEvent:
		return o.OnAgentAction(ctx, ev)
	case *relay.AgentFinishEvent:
		return o.OnAgentFinish(ctx, ev)
	case *relay.TextEvent:
		return o.OnText(ctx, ev)
	default:
		panic(fmt.Sprintf("tt: unsupported event %T", e))
	}
}
