package tt

import (
	"testing"

	"github.com/rickchristie/relay"
	"github.com/stretchr/testify/assert"
)

// AssertCallOrder asserts that log holds exactly the given observer ids, in order.
func AssertCallOrder(t *testing.T, log []Call, ids ...string) {
	t.Helper()
	got := make([]string, len(log))
	for i, c := range log {
		got[i] = c.ID
	}
	if len(ids) == 0 {
		ids = []string{}
	}
	assert.Equal(t, ids, got, "observer invocation order")
}

// AssertReceived asserts that m recorded exactly one invocation and that it
// carried e.
func AssertReceived(t *testing.T, m *MockObserver, e relay.Event) {
	t.Helper()
	if assert.Equal(t, 1, m.CallCount(), "expected exactly one invocation") {
		assert.Same(t, e, m.Calls()[0].Event, "payload must be passed through unchanged")
	}
}
