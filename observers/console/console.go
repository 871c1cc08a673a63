// Package console provides a human-readable terminal observer.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rickchristie/relay"
)

var colors = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"pink":    color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

// Observer prints chain boundaries, agent decisions, tool output and free text
// to a terminal. Colours come from each payload's Color field; unknown or
// empty names print without colour.
//
// Model call events are not printed, so the default filter ignores them.
type Observer struct {
	relay.BaseObserver

	mu      sync.Mutex
	out     io.Writer
	colored bool
}

var _ relay.Observer = (*Observer)(nil)

// New creates a console observer writing to w with colour enabled unless the
// process-wide color.NoColor is set.
func New(w io.Writer) *Observer {
	if w == nil {
		w = os.Stdout
	}
	return &Observer{
		BaseObserver: relay.BaseObserver{Filter: relay.Filter{IgnoreCall: true}},
		out:          w,
		colored:      !color.NoColor,
	}
}

// WithFilter sets the observer's policy flags. Call before registering.
func (o *Observer) WithFilter(f relay.Filter) *Observer {
	o.Filter = f
	return o
}

// WithColor forces colour output on or off.
func (o *Observer) WithColor(enabled bool) *Observer {
	o.colored = enabled
	return o
}

func (o *Observer) paint(text, name string, attrs ...color.Attribute) string {
	if attr, ok := colors[strings.ToLower(name)]; ok {
		attrs = append(attrs, attr)
	}
	if !o.colored || len(attrs) == 0 {
		return text
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(text)
}

func (o *Observer) print(parts ...string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := io.WriteString(o.out, strings.Join(parts, ""))
	return err
}

func chainName(serialized map[string]any) string {
	if name, ok := serialized["name"].(string); ok && name != "" {
		return name
	}
	return "unnamed"
}

// OnChainStart prints "> Entering new <name> chain...".
func (o *Observer) OnChainStart(_ context.Context, e *relay.ChainStartEvent) error {
	line := fmt.Sprintf("> Entering new %s chain...", chainName(e.Serialized))
	return o.print("\n\n", o.paint(line, "", color.Bold), "\n")
}

// OnChainEnd prints "> Finished chain.".
func (o *Observer) OnChainEnd(_ context.Context, _ *relay.ChainEndEvent) error {
	return o.print("\n", o.paint("> Finished chain.", "", color.Bold), "\n")
}

// OnChainError prints the chain failure in red.
func (o *Observer) OnChainError(_ context.Context, e *relay.ChainErrorEvent) error {
	return o.print("\n", o.paint(fmt.Sprintf("> Chain failed: %v", e.Err), "red", color.Bold), "\n")
}

// OnAgentAction prints the agent's reasoning log.
func (o *Observer) OnAgentAction(_ context.Context, e *relay.AgentActionEvent) error {
	return o.print(o.paint(e.Action.Log, e.Color))
}

// OnToolEnd prints the observation prefix, the tool output and the LLM prefix.
func (o *Observer) OnToolEnd(_ context.Context, e *relay.ToolEndEvent) error {
	return o.print("\n", e.ObservationPrefix, o.paint(e.Output, e.Color), "\n", e.LLMPrefix)
}

// OnToolError prints the tool failure in red.
func (o *Observer) OnToolError(_ context.Context, e *relay.ToolErrorEvent) error {
	return o.print("\n", o.paint(fmt.Sprintf("Tool error: %v", e.Err), "red"), "\n")
}

// OnAgentFinish prints the agent's final log.
func (o *Observer) OnAgentFinish(_ context.Context, e *relay.AgentFinishEvent) error {
	return o.print(o.paint(e.Finish.Log, e.Color), "\n")
}

// OnText prints the text followed by its End suffix.
func (o *Observer) OnText(_ context.Context, e *relay.TextEvent) error {
	return o.print(o.paint(e.Text, e.Color), e.End)
}
