package relay

import (
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// -----------------------------------------------------------------------------
// Event Interface
// -----------------------------------------------------------------------------

// Event is implemented by every payload the registry can broadcast.
type Event interface {
	// Kind returns the event kind the payload belongs to.
	Kind() Kind

	// RunInfo returns the correlation ids attached to the payload.
	RunInfo() Run
}

// Run correlates start, end and error events that belong to the same model
// call, chain or tool invocation. Both ids may be zero; observers that pair
// events must cope with that.
type Run struct {
	// ID identifies the call, chain or tool invocation.
	ID uuid.UUID

	// ParentID identifies the enclosing run, if any.
	ParentID uuid.UUID
}

// RunInfo implements Event for every payload that embeds Run.
func (r Run) RunInfo() Run {
	return r
}

// NewRun returns a Run with a fresh random ID under the given parent.
func NewRun(parent uuid.UUID) Run {
	return Run{ID: uuid.New(), ParentID: parent}
}

// -----------------------------------------------------------------------------
// Model Call Events
// -----------------------------------------------------------------------------

// CallStartEvent is emitted before a model call is made.
type CallStartEvent struct {
	Run

	// Serialized describes the model being called (name, parameters).
	Serialized map[string]any

	// Prompts holds plain-text prompts for completion-style calls.
	Prompts []string

	// Messages holds the chat messages for message-style calls.
	Messages []llms.MessageContent
}

func (*CallStartEvent) Kind() Kind { return KindCallStart }

// CallNewTokenEvent is emitted for every streamed output fragment.
type CallNewTokenEvent struct {
	Run

	// Token is the text fragment.
	Token string

	// Chunk is the raw fragment as received from the provider, if available.
	Chunk []byte
}

func (*CallNewTokenEvent) Kind() Kind { return KindCallNewToken }

// CallEndEvent is emitted after a model call completes successfully.
type CallEndEvent struct {
	Run

	// Response is the full model response.
	Response *llms.ContentResponse
}

func (*CallEndEvent) Kind() Kind { return KindCallEnd }

// CallErrorEvent is emitted when a model call fails or is interrupted.
type CallErrorEvent struct {
	Run

	// Err is the failure or interruption cause.
	Err error
}

func (*CallErrorEvent) Kind() Kind { return KindCallError }

// -----------------------------------------------------------------------------
// Chain Events
// -----------------------------------------------------------------------------

// ChainStartEvent is emitted when a chain begins running.
type ChainStartEvent struct {
	Run

	// Serialized describes the chain.
	Serialized map[string]any

	// Inputs are the chain's input values.
	Inputs map[string]any
}

func (*ChainStartEvent) Kind() Kind { return KindChainStart }

// ChainEndEvent is emitted when a chain finishes successfully.
type ChainEndEvent struct {
	Run

	// Outputs are the chain's output values.
	Outputs map[string]any
}

func (*ChainEndEvent) Kind() Kind { return KindChainEnd }

// ChainErrorEvent is emitted when a chain fails or is interrupted.
type ChainErrorEvent struct {
	Run

	// Err is the failure or interruption cause.
	Err error
}

func (*ChainErrorEvent) Kind() Kind { return KindChainError }

// -----------------------------------------------------------------------------
// Tool and Agent Events
// -----------------------------------------------------------------------------

// ToolStartEvent is emitted before a tool runs.
type ToolStartEvent struct {
	Run

	// Serialized describes the tool (name, description).
	Serialized map[string]any

	// Input is the raw tool input.
	Input string

	// Color is a display hint for console observers. Empty means default.
	Color string
}

func (*ToolStartEvent) Kind() Kind { return KindToolStart }

// ToolEndEvent is emitted after a tool returns.
type ToolEndEvent struct {
	Run

	// Output is the tool's output.
	Output string

	// ObservationPrefix is printed before Output by console observers.
	ObservationPrefix string

	// LLMPrefix is printed after Output by console observers.
	LLMPrefix string

	// Color is a display hint for console observers. Empty means default.
	Color string
}

func (*ToolEndEvent) Kind() Kind { return KindToolEnd }

// ToolErrorEvent is emitted when a tool fails or is interrupted.
type ToolErrorEvent struct {
	Run

	// Err is the failure or interruption cause.
	Err error
}

func (*ToolErrorEvent) Kind() Kind { return KindToolError }

// AgentActionEvent is emitted when an agent decides on its next action.
type AgentActionEvent struct {
	Run

	// Action is the chosen action.
	Action schema.AgentAction

	// Color is a display hint for console observers. Empty means default.
	Color string
}

func (*AgentActionEvent) Kind() Kind { return KindAgentAction }

// AgentFinishEvent is emitted when an agent produces its final answer.
type AgentFinishEvent struct {
	Run

	// Finish holds the return values and the agent's final log.
	Finish schema.AgentFinish

	// Color is a display hint for console observers. Empty means default.
	Color string
}

func (*AgentFinishEvent) Kind() Kind { return KindAgentFinish }

// -----------------------------------------------------------------------------
// Text Event
// -----------------------------------------------------------------------------

// TextEvent carries free text produced by a pipeline, e.g. a formatted prompt.
type TextEvent struct {
	Run

	// Text is the text to report.
	Text string

	// Color is a display hint for console observers. Empty means default.
	Color string

	// End is appended after Text by console observers.
	End string
}

func (*TextEvent) Kind() Kind { return KindText }
