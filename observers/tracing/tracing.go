// Package tracing provides an observer that turns call, chain and tool runs
// into OpenTelemetry spans.
package tracing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rickchristie/relay"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is the instrumentation scope used when none is given.
const DefaultTracerName = "github.com/rickchristie/relay"

const (
	spanCall  = "relay.call"
	spanChain = "relay.chain"
	spanTool  = "relay.tool"

	attrRunID       = "relay.run_id"
	attrParentRunID = "relay.parent_run_id"
	attrKind        = "relay.kind"
	attrStatus      = "relay.status"
	attrToolInput   = "relay.tool.input"
	attrToolOutput  = "relay.tool.output"
	attrAgentTool   = "relay.agent.tool"
	attrPrompts     = "relay.call.prompts"
	attrMessages    = "relay.call.messages"
	attrChoices     = "relay.call.choices"
	attrTokens      = "relay.call.tokens"
	attrChainName   = "relay.chain.name"
)

// Observer opens a span on every call, chain and tool start and ends it on
// the matching end or error event.
//
// Spans are matched by Run.ID. Runs without an id are matched last-in,
// first-out within their span family, which pairs correctly as long as the
// pipeline nests runs of the same family. When a start event carries a
// ParentID whose span is still open, the new span becomes its child.
//
// Agent actions, agent finishes and text are recorded as span events on the
// innermost open span, if any. Tokens are counted on their call span.
type Observer struct {
	relay.BaseObserver

	tracer     trace.Tracer
	tracerName string

	mu        sync.Mutex
	byID      map[uuid.UUID]*openSpan
	anonymous map[string][]*openSpan
	order     []*openSpan
}

type openSpan struct {
	family string
	id     uuid.UUID
	ctx    context.Context
	span   trace.Span
	tokens int
}

var _ relay.Observer = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithFilter replaces the default filter (AlwaysVerbose).
func WithFilter(f relay.Filter) Option {
	return func(o *Observer) { o.Filter = f }
}

// WithTracerName sets the instrumentation scope name.
func WithTracerName(name string) Option {
	return func(o *Observer) { o.tracerName = name }
}

// New creates an Observer using tp, or the global provider when tp is nil.
func New(tp trace.TracerProvider, opts ...Option) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	o := &Observer{
		BaseObserver: relay.BaseObserver{Filter: relay.Filter{AlwaysVerbose: true}},
		tracerName:   DefaultTracerName,
		byID:         make(map[uuid.UUID]*openSpan),
		anonymous:    make(map[string][]*openSpan),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.tracer = tp.Tracer(o.tracerName)
	return o
}

// Open returns the number of spans started but not yet ended.
func (o *Observer) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// ----------------------------------------------------------------------------
// Span bookkeeping
// ----------------------------------------------------------------------------

func runAttrs(run relay.Run, kind relay.Kind) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(attrKind, string(kind))}
	if run.ID != uuid.Nil {
		attrs = append(attrs, attribute.String(attrRunID, run.ID.String()))
	}
	if run.ParentID != uuid.Nil {
		attrs = append(attrs, attribute.String(attrParentRunID, run.ParentID.String()))
	}
	return attrs
}

func (o *Observer) start(ctx context.Context, family string, e relay.Event, attrs ...attribute.KeyValue) {
	run := e.RunInfo()

	o.mu.Lock()
	defer o.mu.Unlock()

	if parent, ok := o.byID[run.ParentID]; ok && run.ParentID != uuid.Nil {
		ctx = parent.ctx
	}
	ctx, span := o.tracer.Start(ctx, family,
		trace.WithAttributes(runAttrs(run, e.Kind())...),
		trace.WithAttributes(attrs...),
	)
	s := &openSpan{family: family, id: run.ID, ctx: ctx, span: span}
	if run.ID != uuid.Nil {
		if prev, ok := o.byID[run.ID]; ok {
			// A repeated start for the same run closes the stale span.
			o.drop(prev)
			prev.span.End()
		}
		o.byID[run.ID] = s
	} else {
		o.anonymous[family] = append(o.anonymous[family], s)
	}
	o.order = append(o.order, s)
}

// take removes and returns the open span for run, or nil. Caller holds mu.
func (o *Observer) take(family string, run relay.Run) *openSpan {
	var s *openSpan
	if run.ID != uuid.Nil {
		s = o.byID[run.ID]
		if s == nil || s.family != family {
			return nil
		}
	} else {
		stack := o.anonymous[family]
		if len(stack) == 0 {
			return nil
		}
		s = stack[len(stack)-1]
	}
	o.drop(s)
	return s
}

func (o *Observer) drop(s *openSpan) {
	if s.id != uuid.Nil {
		delete(o.byID, s.id)
	} else {
		stack := o.anonymous[s.family]
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == s {
				o.anonymous[s.family] = append(stack[:i:i], stack[i+1:]...)
				break
			}
		}
	}
	for i := len(o.order) - 1; i >= 0; i-- {
		if o.order[i] == s {
			o.order = append(o.order[:i:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *Observer) finish(family string, run relay.Run, err error, attrs ...attribute.KeyValue) {
	o.mu.Lock()
	s := o.take(family, run)
	o.mu.Unlock()
	if s == nil {
		return
	}

	if s.family == spanCall {
		s.span.SetAttributes(attribute.Int(attrTokens, s.tokens))
	}
	s.span.SetAttributes(attrs...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.span.SetAttributes(attribute.String(attrStatus, "error"))
	} else {
		s.span.SetStatus(codes.Ok, "")
		s.span.SetAttributes(attribute.String(attrStatus, "success"))
	}
	s.span.End()
}

// annotate adds a span event to the span for run, falling back to the
// innermost open span.
func (o *Observer) annotate(e relay.Event, attrs ...attribute.KeyValue) {
	run := e.RunInfo()

	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.byID[run.ID]
	if s == nil || run.ID == uuid.Nil {
		if len(o.order) == 0 {
			return
		}
		s = o.order[len(o.order)-1]
	}
	s.span.AddEvent(string(e.Kind()), trace.WithAttributes(attrs...))
}

func failure(err error, kind relay.Kind) error {
	if err != nil {
		return err
	}
	return errUnknown{kind: kind}
}

type errUnknown struct{ kind relay.Kind }

func (e errUnknown) Error() string { return string(e.kind) + " without error value" }

// ----------------------------------------------------------------------------
// Handlers
// ----------------------------------------------------------------------------

func (o *Observer) OnCallStart(ctx context.Context, e *relay.CallStartEvent) error {
	o.start(ctx, spanCall, e,
		attribute.Int(attrPrompts, len(e.Prompts)),
		attribute.Int(attrMessages, len(e.Messages)),
	)
	return nil
}

func (o *Observer) OnCallNewToken(_ context.Context, e *relay.CallNewTokenEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var s *openSpan
	if e.ID != uuid.Nil {
		s = o.byID[e.ID]
	} else if stack := o.anonymous[spanCall]; len(stack) > 0 {
		s = stack[len(stack)-1]
	}
	if s != nil {
		s.tokens++
	}
	return nil
}

func (o *Observer) OnCallEnd(_ context.Context, e *relay.CallEndEvent) error {
	choices := 0
	if e.Response != nil {
		choices = len(e.Response.Choices)
	}
	o.finish(spanCall, e.Run, nil, attribute.Int(attrChoices, choices))
	return nil
}

func (o *Observer) OnCallError(_ context.Context, e *relay.CallErrorEvent) error {
	o.finish(spanCall, e.Run, failure(e.Err, relay.KindCallError))
	return nil
}

func (o *Observer) OnChainStart(ctx context.Context, e *relay.ChainStartEvent) error {
	var attrs []attribute.KeyValue
	if name, ok := e.Serialized["name"].(string); ok && name != "" {
		attrs = append(attrs, attribute.String(attrChainName, name))
	}
	o.start(ctx, spanChain, e, attrs...)
	return nil
}

func (o *Observer) OnChainEnd(_ context.Context, e *relay.ChainEndEvent) error {
	o.finish(spanChain, e.Run, nil)
	return nil
}

func (o *Observer) OnChainError(_ context.Context, e *relay.ChainErrorEvent) error {
	o.finish(spanChain, e.Run, failure(e.Err, relay.KindChainError))
	return nil
}

func (o *Observer) OnToolStart(ctx context.Context, e *relay.ToolStartEvent) error {
	o.start(ctx, spanTool, e, attribute.String(attrToolInput, e.Input))
	return nil
}

func (o *Observer) OnToolEnd(_ context.Context, e *relay.ToolEndEvent) error {
	o.finish(spanTool, e.Run, nil, attribute.String(attrToolOutput, e.Output))
	return nil
}

func (o *Observer) OnToolError(_ context.Context, e *relay.ToolErrorEvent) error {
	o.finish(spanTool, e.Run, failure(e.Err, relay.KindToolError))
	return nil
}

func (o *Observer) OnAgentAction(_ context.Context, e *relay.AgentActionEvent) error {
	o.annotate(e, attribute.String(attrAgentTool, e.Action.Tool))
	return nil
}

func (o *Observer) OnAgentFinish(_ context.Context, e *relay.AgentFinishEvent) error {
	o.annotate(e)
	return nil
}

func (o *Observer) OnText(_ context.Context, e *relay.TextEvent) error {
	o.annotate(e)
	return nil
}
