// Package lcg bridges relay and github.com/tmc/langchaingo/callbacks.
//
// Handler lets a langchaingo chain, agent or model drive a relay emitter:
// pass it wherever langchaingo accepts a callbacks.Handler. Observer goes the
// other way and lets an existing callbacks.Handler (for example
// callbacks.LogHandler) sit in a relay registry.
package lcg

import (
	"context"
	"sync"

	"github.com/rickchristie/relay"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Handler implements callbacks.Handler by emitting the matching relay event.
//
// langchaingo callbacks carry no run ids, so Handler assigns them: every
// call, chain or tool start opens a run whose parent is the innermost run
// still open, and the matching end or error closes it. Token and agent events
// reuse the innermost open run.
//
// callbacks.Handler methods cannot fail. Handler keeps the first error an
// emit returned and reports it through Err; later callbacks are still
// emitted. Retriever callbacks have no relay counterpart and are dropped.
//
// Handler is safe for concurrent use, but concurrent runs through one Handler
// will interleave their run ids.
type Handler struct {
	callbacks.SimpleHandler

	emitter relay.Emitter
	verbose bool

	mu   sync.Mutex
	runs []relay.Run
	err  error
}

var _ callbacks.Handler = (*Handler)(nil)

// NewHandler returns a Handler that emits into emitter with the given
// verbosity.
func NewHandler(emitter relay.Emitter, verbose bool) *Handler {
	return &Handler{emitter: emitter, verbose: verbose}
}

// Err returns the first error returned by the emitter, or nil.
func (h *Handler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Depth returns the number of runs opened and not yet closed.
func (h *Handler) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

func (h *Handler) open() relay.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	run := relay.NewRun(h.topLocked().ID)
	h.runs = append(h.runs, run)
	return run
}

func (h *Handler) close() relay.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	run := h.topLocked()
	if len(h.runs) > 0 {
		h.runs = h.runs[:len(h.runs)-1]
	}
	return run
}

func (h *Handler) current() relay.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.topLocked()
}

func (h *Handler) topLocked() relay.Run {
	if len(h.runs) == 0 {
		return relay.Run{}
	}
	return h.runs[len(h.runs)-1]
}

func (h *Handler) keep(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *Handler) HandleText(ctx context.Context, text string) {
	h.keep(h.emitter.EmitText(ctx, &relay.TextEvent{Run: h.current(), Text: text}, h.verbose))
}

func (h *Handler) HandleLLMStart(ctx context.Context, prompts []string) {
	h.keep(h.emitter.EmitCallStart(ctx, &relay.CallStartEvent{Run: h.open(), Prompts: prompts}, h.verbose))
}

func (h *Handler) HandleLLMGenerateContentStart(ctx context.Context, ms []llms.MessageContent) {
	h.keep(h.emitter.EmitCallStart(ctx, &relay.CallStartEvent{Run: h.open(), Messages: ms}, h.verbose))
}

func (h *Handler) HandleLLMGenerateContentEnd(ctx context.Context, res *llms.ContentResponse) {
	h.keep(h.emitter.EmitCallEnd(ctx, &relay.CallEndEvent{Run: h.close(), Response: res}, h.verbose))
}

func (h *Handler) HandleLLMError(ctx context.Context, err error) {
	h.keep(h.emitter.EmitCallError(ctx, &relay.CallErrorEvent{Run: h.close(), Err: err}, h.verbose))
}

func (h *Handler) HandleStreamingFunc(ctx context.Context, chunk []byte) {
	h.keep(h.emitter.EmitCallNewToken(ctx, &relay.CallNewTokenEvent{
		Run:   h.current(),
		Token: string(chunk),
		Chunk: chunk,
	}, h.verbose))
}

func (h *Handler) HandleChainStart(ctx context.Context, inputs map[string]any) {
	h.keep(h.emitter.EmitChainStart(ctx, &relay.ChainStartEvent{Run: h.open(), Inputs: inputs}, h.verbose))
}

func (h *Handler) HandleChainEnd(ctx context.Context, outputs map[string]any) {
	h.keep(h.emitter.EmitChainEnd(ctx, &relay.ChainEndEvent{Run: h.close(), Outputs: outputs}, h.verbose))
}

func (h *Handler) HandleChainError(ctx context.Context, err error) {
	h.keep(h.emitter.EmitChainError(ctx, &relay.ChainErrorEvent{Run: h.close(), Err: err}, h.verbose))
}

func (h *Handler) HandleToolStart(ctx context.Context, input string) {
	h.keep(h.emitter.EmitToolStart(ctx, &relay.ToolStartEvent{Run: h.open(), Input: input}, h.verbose))
}

func (h *Handler) HandleToolEnd(ctx context.Context, output string) {
	h.keep(h.emitter.EmitToolEnd(ctx, &relay.ToolEndEvent{Run: h.close(), Output: output}, h.verbose))
}

func (h *Handler) HandleToolError(ctx context.Context, err error) {
	h.keep(h.emitter.EmitToolError(ctx, &relay.ToolErrorEvent{Run: h.close(), Err: err}, h.verbose))
}

func (h *Handler) HandleAgentAction(ctx context.Context, action schema.AgentAction) {
	h.keep(h.emitter.EmitAgentAction(ctx, &relay.AgentActionEvent{Run: h.current(), Action: action}, h.verbose))
}

func (h *Handler) HandleAgentFinish(ctx context.Context, finish schema.AgentFinish) {
	h.keep(h.emitter.EmitAgentFinish(ctx, &relay.AgentFinishEvent{Run: h.current(), Finish: finish}, h.verbose))
}
