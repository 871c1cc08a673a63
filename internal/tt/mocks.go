package tt

import (
	"context"

	"github.com/rickchristie/relay"
)

// -----------------------------------------------------------------------------
// MockObserver - implements relay.Observer and records every invocation
// -----------------------------------------------------------------------------

// Call is one recorded handler invocation.
type Call struct {
	ID    string
	Kind  relay.Kind
	Event relay.Event
}

// MockObserver is a configurable relay.Observer that records every handler
// invocation, optionally into a log shared with other observers so tests can
// check cross-observer ordering.
type MockObserver struct {
	id     string
	filter relay.Filter
	errs   map[relay.Kind]error
	calls  []Call
	shared *[]Call
}

// NewMockObserver creates a MockObserver with all flags false.
func NewMockObserver(id string) *MockObserver {
	return &MockObserver{id: id, errs: make(map[relay.Kind]error)}
}

// WithFilter sets the observer's policy flags. Call before registering.
func (m *MockObserver) WithFilter(f relay.Filter) *MockObserver {
	m.filter = f
	return m
}

// WithSharedLog makes the observer also append its calls to log.
func (m *MockObserver) WithSharedLog(log *[]Call) *MockObserver {
	m.shared = log
	return m
}

// FailOn makes the handler for kind record the call and then return err.
func (m *MockObserver) FailOn(kind relay.Kind, err error) *MockObserver {
	m.errs[kind] = err
	return m
}

// Calls returns the recorded invocations in order.
func (m *MockObserver) Calls() []Call {
	return m.calls
}

// Kinds returns the kinds of the recorded invocations in order.
func (m *MockObserver) Kinds() []relay.Kind {
	kinds := make([]relay.Kind, len(m.calls))
	for i, c := range m.calls {
		kinds[i] = c.Kind
	}
	return kinds
}

// CallCount returns the number of recorded invocations.
func (m *MockObserver) CallCount() int {
	return len(m.calls)
}

// Reset forgets recorded invocations.
func (m *MockObserver) Reset() {
	m.calls = nil
}

func (m *MockObserver) record(e relay.Event) error {
	c := Call{ID: m.id, Kind: e.Kind(), Event: e}
	m.calls = append(m.calls, c)
	if m.shared != nil {
		*m.shared = append(*m.shared, c)
	}
	return m.errs[e.Kind()]
}

func (m *MockObserver) IgnoreCallEvents() bool  { return m.filter.IgnoreCall }
func (m *MockObserver) IgnoreChainEvents() bool { return m.filter.IgnoreChain }
func (m *MockObserver) IgnoreAgentEvents() bool { return m.filter.IgnoreAgent }
func (m *MockObserver) AlwaysVerbose() bool     { return m.filter.AlwaysVerbose }

func (m *MockObserver) OnCallStart(_ context.Context, e *relay.CallStartEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnCallNewToken(_ context.Context, e *relay.CallNewTokenEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnCallEnd(_ context.Context, e *relay.CallEndEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnCallError(_ context.Context, e *relay.CallErrorEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnChainStart(_ context.Context, e *relay.ChainStartEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnChainEnd(_ context.Context, e *relay.ChainEndEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnChainError(_ context.Context, e *relay.ChainErrorEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnToolStart(_ context.Context, e *relay.ToolStartEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnToolEnd(_ context.Context, e *relay.ToolEndEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnToolError(_ context.Context, e *relay.ToolErrorEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnAgentAction(_ context.Context, e *relay.AgentActionEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnAgentFinish(_ context.Context, e *relay.AgentFinishEvent) error {
	return m.record(e)
}

func (m *MockObserver) OnText(_ context.Context, e *relay.TextEvent) error {
	return m.record(e)
}
