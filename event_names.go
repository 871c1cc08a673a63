package relay

// Kind identifies one lifecycle event kind.
//
// # Naming Convention
//
// Kind values follow the pattern: "namespace:category:timing"
//   - namespace: always "relay"
//   - category: what the event is about (call, chain, tool, agent)
//   - timing: where in the lifecycle (start, token, end, error, action, finish)
//
// Text is the only uncategorised kind and is named "relay:text".
type Kind string

const (
	// Model calls
	KindCallStart    Kind = "relay:call:start"
	KindCallNewToken Kind = "relay:call:token"
	KindCallEnd      Kind = "relay:call:end"
	KindCallError    Kind = "relay:call:error"

	// Chains
	KindChainStart Kind = "relay:chain:start"
	KindChainEnd   Kind = "relay:chain:end"
	KindChainError Kind = "relay:chain:error"

	// Tools and agents
	KindToolStart   Kind = "relay:tool:start"
	KindToolEnd     Kind = "relay:tool:end"
	KindToolError   Kind = "relay:tool:error"
	KindAgentAction Kind = "relay:agent:action"
	KindAgentFinish Kind = "relay:agent:finish"

	// Free text
	KindText Kind = "relay:text"
)

// Category partitions event kinds for the per-observer opt-out flags.
type Category string

const (
	// CategoryNone is the category of kinds that cannot be filtered out by category.
	CategoryNone Category = ""

	// CategoryCall covers model invocations.
	CategoryCall Category = "call"

	// CategoryChain covers multi-step chains.
	CategoryChain Category = "chain"

	// CategoryAgent covers tool invocations and agent decisions.
	CategoryAgent Category = "agent"
)

var allKinds = []Kind{
	KindCallStart, KindCallNewToken, KindCallEnd, KindCallError,
	KindChainStart, KindChainEnd, KindChainError,
	KindToolStart, KindToolEnd, KindToolError, KindAgentAction, KindAgentFinish,
	KindText,
}

// Kinds returns every event kind, grouped by category.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Category returns the category k belongs to. Unknown kinds and KindText
// return CategoryNone.
func (k Kind) Category() Category {
	switch k {
	case KindCallStart, KindCallNewToken, KindCallEnd, KindCallError:
		return CategoryCall
	case KindChainStart, KindChainEnd, KindChainError:
		return CategoryChain
	case KindToolStart, KindToolEnd, KindToolError, KindAgentAction, KindAgentFinish:
		return CategoryAgent
	default:
		return CategoryNone
	}
}

// IsError reports whether k is one of the error kinds.
func (k Kind) IsError() bool {
	return k == KindCallError || k == KindChainError || k == KindToolError
}

func (k Kind) String() string {
	return string(k)
}
