// Package yamllog provides an observer that logs every event it receives as a
// timestamped YAML document.
package yamllog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rickchristie/relay"
	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"
)

// TimestampLayout is the layout of the header timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Logger writes one entry per event: a header line naming the event kind and
// time, followed by the payload rendered as YAML. Nothing is truncated.
//
// Each entry is assembled in memory and written with a single Write call, so a
// Logger may be shared by concurrent emitters. Write and marshal failures are
// returned from the handler.
type Logger struct {
	relay.BaseObserver

	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var _ relay.Observer = (*Logger)(nil)

// New creates a Logger that writes to stdout and accepts every category.
func New() *Logger {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a Logger that writes to w and accepts every category.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{out: w, now: time.Now}
}

// WithFilter sets the logger's policy flags. Call before registering.
func (l *Logger) WithFilter(f relay.Filter) *Logger {
	l.Filter = f
	return l
}

// WithClock replaces the time source used for headers.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

func (l *Logger) write(kind relay.Kind, run relay.Run, body any) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n>>> [%s]: %s\n", kind, l.now().Format(TimestampLayout))

	doc := map[string]any{}
	if run.ID != uuid.Nil {
		doc["run_id"] = run.ID.String()
	}
	if run.ParentID != uuid.Nil {
		doc["parent_run_id"] = run.ParentID.String()
	}
	if body != nil {
		doc["event"] = body
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("yamllog: marshal %s: %w", kind, err)
	}
	buf.Write(data)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("yamllog: write %s: %w", kind, err)
	}
	return nil
}

func errorBody(err error) map[string]any {
	if err == nil {
		return map[string]any{"error": nil}
	}
	return map[string]any{"error": err.Error()}
}

func messagesBody(messages []llms.MessageContent) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		var texts []string
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				texts = append(texts, tc.Text)
			}
		}
		out = append(out, map[string]any{
			"role":    string(msg.Role),
			"content": strings.Join(texts, "\n"),
		})
	}
	return out
}

func (l *Logger) OnCallStart(_ context.Context, e *relay.CallStartEvent) error {
	body := map[string]any{}
	if len(e.Serialized) > 0 {
		body["serialized"] = e.Serialized
	}
	if len(e.Prompts) > 0 {
		body["prompts"] = e.Prompts
	}
	if len(e.Messages) > 0 {
		body["messages"] = messagesBody(e.Messages)
	}
	return l.write(e.Kind(), e.Run, body)
}

func (l *Logger) OnCallNewToken(_ context.Context, e *relay.CallNewTokenEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{"token": e.Token})
}

func (l *Logger) OnCallEnd(_ context.Context, e *relay.CallEndEvent) error {
	body := map[string]any{}
	if e.Response != nil {
		choices := make([]map[string]any, 0, len(e.Response.Choices))
		for _, c := range e.Response.Choices {
			if c == nil {
				continue
			}
			choice := map[string]any{"content": c.Content}
			if c.StopReason != "" {
				choice["stop_reason"] = c.StopReason
			}
			if len(c.GenerationInfo) > 0 {
				choice["generation_info"] = c.GenerationInfo
			}
			choices = append(choices, choice)
		}
		body["choices"] = choices
	}
	return l.write(e.Kind(), e.Run, body)
}

func (l *Logger) OnCallError(_ context.Context, e *relay.CallErrorEvent) error {
	return l.write(e.Kind(), e.Run, errorBody(e.Err))
}

func (l *Logger) OnChainStart(_ context.Context, e *relay.ChainStartEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{
		"serialized": e.Serialized,
		"inputs":     e.Inputs,
	})
}

func (l *Logger) OnChainEnd(_ context.Context, e *relay.ChainEndEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{"outputs": e.Outputs})
}

func (l *Logger) OnChainError(_ context.Context, e *relay.ChainErrorEvent) error {
	return l.write(e.Kind(), e.Run, errorBody(e.Err))
}

func (l *Logger) OnToolStart(_ context.Context, e *relay.ToolStartEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{
		"serialized": e.Serialized,
		"input":      e.Input,
	})
}

func (l *Logger) OnToolEnd(_ context.Context, e *relay.ToolEndEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{"output": e.Output})
}

func (l *Logger) OnToolError(_ context.Context, e *relay.ToolErrorEvent) error {
	return l.write(e.Kind(), e.Run, errorBody(e.Err))
}

func (l *Logger) OnAgentAction(_ context.Context, e *relay.AgentActionEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{
		"tool":       e.Action.Tool,
		"tool_input": e.Action.ToolInput,
		"log":        e.Action.Log,
	})
}

func (l *Logger) OnAgentFinish(_ context.Context, e *relay.AgentFinishEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{
		"return_values": e.Finish.ReturnValues,
		"log":           e.Finish.Log,
	})
}

func (l *Logger) OnText(_ context.Context, e *relay.TextEvent) error {
	return l.write(e.Kind(), e.Run, map[string]any{"text": e.Text})
}
