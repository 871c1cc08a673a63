// Package slogobs provides an observer that emits one structured log record
// per event.
package slogobs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rickchristie/relay"
)

// Observer writes events to a slog.Logger. The event kind becomes the log
// message; run ids and a few payload fields become attributes.
//
// Levels: tokens log at Debug, error events at Error, everything else at Info.
type Observer struct {
	relay.BaseObserver

	logger *slog.Logger
}

var _ relay.Observer = (*Observer)(nil)

// New creates an Observer that logs to logger, or slog.Default() when nil.
func New(logger *slog.Logger, f relay.Filter) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{BaseObserver: relay.BaseObserver{Filter: f}, logger: logger}
}

func levelFor(k relay.Kind) slog.Level {
	switch {
	case k == relay.KindCallNewToken:
		return slog.LevelDebug
	case k.IsError():
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (o *Observer) log(ctx context.Context, e relay.Event, attrs ...slog.Attr) {
	kind := e.Kind()
	run := e.RunInfo()
	base := []slog.Attr{slog.String("category", string(kind.Category()))}
	if run.ID != uuid.Nil {
		base = append(base, slog.String("run_id", run.ID.String()))
	}
	if run.ParentID != uuid.Nil {
		base = append(base, slog.String("parent_run_id", run.ParentID.String()))
	}
	o.logger.LogAttrs(ctx, levelFor(kind), string(kind), append(base, attrs...)...)
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func (o *Observer) OnCallStart(ctx context.Context, e *relay.CallStartEvent) error {
	o.log(ctx, e, slog.Int("prompts", len(e.Prompts)), slog.Int("messages", len(e.Messages)))
	return nil
}

func (o *Observer) OnCallNewToken(ctx context.Context, e *relay.CallNewTokenEvent) error {
	o.log(ctx, e, slog.String("token", e.Token))
	return nil
}

func (o *Observer) OnCallEnd(ctx context.Context, e *relay.CallEndEvent) error {
	choices := 0
	if e.Response != nil {
		choices = len(e.Response.Choices)
	}
	o.log(ctx, e, slog.Int("choices", choices))
	return nil
}

func (o *Observer) OnCallError(ctx context.Context, e *relay.CallErrorEvent) error {
	o.log(ctx, e, errAttr(e.Err))
	return nil
}

func (o *Observer) OnChainStart(ctx context.Context, e *relay.ChainStartEvent) error {
	o.log(ctx, e, slog.Any("inputs", e.Inputs))
	return nil
}

func (o *Observer) OnChainEnd(ctx context.Context, e *relay.ChainEndEvent) error {
	o.log(ctx, e, slog.Any("outputs", e.Outputs))
	return nil
}

func (o *Observer) OnChainError(ctx context.Context, e *relay.ChainErrorEvent) error {
	o.log(ctx, e, errAttr(e.Err))
	return nil
}

func (o *Observer) OnToolStart(ctx context.Context, e *relay.ToolStartEvent) error {
	o.log(ctx, e, slog.String("input", e.Input))
	return nil
}

func (o *Observer) OnToolEnd(ctx context.Context, e *relay.ToolEndEvent) error {
	o.log(ctx, e, slog.String("output", e.Output))
	return nil
}

func (o *Observer) OnToolError(ctx context.Context, e *relay.ToolErrorEvent) error {
	o.log(ctx, e, errAttr(e.Err))
	return nil
}

func (o *Observer) OnAgentAction(ctx context.Context, e *relay.AgentActionEvent) error {
	o.log(ctx, e, slog.String("tool", e.Action.Tool), slog.String("tool_input", e.Action.ToolInput))
	return nil
}

func (o *Observer) OnAgentFinish(ctx context.Context, e *relay.AgentFinishEvent) error {
	o.log(ctx, e, slog.Any("return_values", e.Finish.ReturnValues))
	return nil
}

func (o *Observer) OnText(ctx context.Context, e *relay.TextEvent) error {
	o.log(ctx, e, slog.String("text", e.Text))
	return nil
}
