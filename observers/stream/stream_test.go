package stream

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rickchristie/relay"
	"github.com/rickchristie/relay/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Chunk) []string {
	t.Helper()
	var tokens []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return tokens
			}
			tokens = append(tokens, c.Token)
		case <-timeout:
			t.Fatal("subscription channel was not closed")
			return nil
		}
	}
}

func receive(t *testing.T, ch <-chan Chunk, n int) []string {
	t.Helper()
	tokens := make([]string, 0, n)
	timeout := time.After(2 * time.Second)
	for len(tokens) < n {
		select {
		case c, ok := <-ch:
			require.True(t, ok, "subscription closed after %d chunks", len(tokens))
			tokens = append(tokens, c.Token)
		case <-timeout:
			t.Fatalf("received %d of %d chunks", len(tokens), n)
		}
	}
	return tokens
}

func TestObserver_DefaultFilter(t *testing.T) {
	obs := New()

	assert.False(t, obs.IgnoreCallEvents())
	assert.True(t, obs.IgnoreChainEvents())
	assert.True(t, obs.IgnoreAgentEvents())
	assert.True(t, obs.AlwaysVerbose())
}

func TestObserver_SubscribeReceivesTokensFromQuietEmitter(t *testing.T) {
	obs := New()
	registry := events.New(obs)
	ch, unsubscribe := obs.Subscribe()
	ctx := context.Background()

	for _, tok := range []string{"Hel", "lo", "!"} {
		require.NoError(t, registry.EmitCallNewToken(ctx, &relay.CallNewTokenEvent{Token: tok}, false))
	}

	assert.Equal(t, []string{"Hel", "lo", "!"}, receive(t, ch, 3))
	unsubscribe()
	assert.Empty(t, collect(t, ch))
}

func TestObserver_SubscribeRunFiltersAndCompletesOnEnd(t *testing.T) {
	obs := New()
	registry := events.New(obs)
	ctx := context.Background()
	runA := relay.NewRun(uuid.Nil)
	runB := relay.NewRun(uuid.Nil)

	chA, _ := obs.SubscribeRun(runA.ID)
	chAll, unsubscribeAll := obs.Subscribe()

	require.NoError(t, registry.EmitCallNewToken(ctx, &relay.CallNewTokenEvent{Run: runA, Token: "a1"}, true))
	require.NoError(t, registry.EmitCallNewToken(ctx, &relay.CallNewTokenEvent{Run: runB, Token: "b1"}, true))
	require.NoError(t, registry.EmitCallNewToken(ctx, &relay.CallNewTokenEvent{Run: runA, Token: "a2"}, true))
	require.NoError(t, registry.EmitCallEnd(ctx, &relay.CallEndEvent{Run: runA}, true))

	assert.Equal(t, []string{"a1", "a2"}, collect(t, chA))

	assert.Equal(t, []string{"a1", "b1", "a2"}, receive(t, chAll, 3))
	unsubscribeAll()
	assert.Empty(t, collect(t, chAll))
}

func TestObserver_SubscribeRunCompletesOnError(t *testing.T) {
	obs := New()
	run := relay.NewRun(uuid.Nil)
	ch, _ := obs.SubscribeRun(run.ID)

	require.NoError(t, obs.OnCallNewToken(context.Background(), &relay.CallNewTokenEvent{Run: run, Token: "partial"}))
	require.NoError(t, obs.OnCallError(context.Background(), &relay.CallErrorEvent{Run: run}))

	assert.Equal(t, []string{"partial"}, collect(t, ch))
}

func TestObserver_SubscribeRunZeroIDReturnsClosedChannel(t *testing.T) {
	ch, unsubscribe := New().SubscribeRun(uuid.Nil)

	require.NotNil(t, ch)
	require.NotNil(t, unsubscribe)
	assert.NotPanics(t, func() { unsubscribe() })
	assert.Empty(t, collect(t, ch))
}

func TestObserver_UnsubscribeWithoutReadingDropsPending(t *testing.T) {
	obs := New()
	run := relay.NewRun(uuid.Nil)
	ch, unsubscribe := obs.SubscribeRun(run.ID)
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		require.NoError(t, obs.OnCallNewToken(ctx, &relay.CallNewTokenEvent{Run: run, Token: tok}))
	}
	unsubscribe()

	// At most one chunk can already be in flight.
	assert.LessOrEqual(t, len(collect(t, ch)), 1)
	assert.NoError(t, obs.OnCallNewToken(ctx, &relay.CallNewTokenEvent{Run: run, Token: "late"}))
}

func TestObserver_UnsubscribeIsIdempotent(t *testing.T) {
	obs := New()
	run := relay.NewRun(uuid.Nil)
	ch, unsubscribe := obs.SubscribeRun(run.ID)

	assert.NotPanics(t, func() {
		unsubscribe()
		unsubscribe()
	})
	assert.Empty(t, collect(t, ch))
}

func TestObserver_CloseClosesEverything(t *testing.T) {
	obs := New()
	chAll, _ := obs.Subscribe()
	chRun, _ := obs.SubscribeRun(uuid.New())

	obs.Close()
	obs.Close()

	assert.Empty(t, collect(t, chAll))
	assert.Empty(t, collect(t, chRun))

	late, unsubscribe := obs.Subscribe()
	assert.Empty(t, collect(t, late))
	assert.NotPanics(t, func() { unsubscribe() })

	assert.NoError(t, obs.OnCallNewToken(context.Background(), &relay.CallNewTokenEvent{Token: "dropped"}))
}

func TestObserver_IgnoredByRegistryWhenCallsFiltered(t *testing.T) {
	obs := NewWithFilter(relay.Filter{IgnoreCall: true, AlwaysVerbose: true})
	registry := events.New(obs)
	ch, unsubscribe := obs.Subscribe()

	require.NoError(t, registry.EmitCallNewToken(context.Background(), &relay.CallNewTokenEvent{Token: "x"}, true))
	unsubscribe()

	assert.Empty(t, collect(t, ch))
}
