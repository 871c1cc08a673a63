package events

import (
	"context"
	"errors"
	"testing"

	"github.com/rickchristie/relay"
	"github.com/rickchristie/relay/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Mutation Tests
// -----------------------------------------------------------------------------

func TestNew_ReturnsEmptyRegistry(t *testing.T) {
	registry := New()

	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, registry.Observers())
}

func TestNew_CopiesInitialObservers(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	initial := []relay.Observer{a, b}

	registry := New(initial...)
	initial[0] = b

	assert.Equal(t, []relay.Observer{a, b}, registry.Observers())
}

func TestRegistry_Add_AppendsInOrder(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	registry := New()

	result := registry.Add(a).Add(b)

	assert.Same(t, registry, result, "Add should return registry for chaining")
	assert.Equal(t, []relay.Observer{a, b}, registry.Observers())
}

func TestRegistry_Add_KeepsDuplicates(t *testing.T) {
	var log []tt.Call
	a := tt.NewMockObserver("a").WithFilter(relay.Filter{AlwaysVerbose: true}).WithSharedLog(&log)
	registry := New().Add(a).Add(a)

	require.NoError(t, tt.EmitKind(context.Background(), registry, relay.KindChainStart, false))

	assert.Equal(t, 2, registry.Len())
	tt.AssertCallOrder(t, log, "a", "a")
}

func TestRegistry_Remove_RemovesFirstMatch(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	registry := New(a, b, a)

	err := registry.Remove(a)

	require.NoError(t, err)
	assert.Equal(t, []relay.Observer{b, a}, registry.Observers())
}

func TestRegistry_Remove_UnknownObserverReturnsNotFound(t *testing.T) {
	a := tt.NewMockObserver("a")
	stranger := tt.NewMockObserver("stranger")
	registry := New(a)

	err := registry.Remove(stranger)

	assert.ErrorIs(t, err, relay.ErrObserverNotFound)
	assert.Equal(t, []relay.Observer{a}, registry.Observers(), "sequence must be untouched")
}

func TestRegistry_Remove_EmptyRegistryReturnsNotFound(t *testing.T) {
	err := New().Remove(tt.NewMockObserver("a"))

	assert.True(t, errors.Is(err, relay.ErrObserverNotFound))
}

// taggedObserver is a value observer whose type cannot be compared with ==.
type taggedObserver struct {
	*relay.BaseObserver
	tags []string
}

// labelObserver is a comparable value observer.
type labelObserver struct {
	*relay.BaseObserver
	label string
}

func TestRegistry_Remove_UncomparableValueReturnsNotFound(t *testing.T) {
	base := &relay.BaseObserver{}
	stored := taggedObserver{BaseObserver: base, tags: []string{"a"}}
	registry := New(stored)

	var err error
	assert.NotPanics(t, func() {
		err = registry.Remove(taggedObserver{BaseObserver: base, tags: []string{"b"}})
	})

	assert.ErrorIs(t, err, relay.ErrObserverNotFound)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_Remove_SkipsUncomparableEntries(t *testing.T) {
	base := &relay.BaseObserver{}
	a := tt.NewMockObserver("a")
	registry := New(taggedObserver{BaseObserver: base, tags: []string{"x"}}, a)

	require.NoError(t, registry.Remove(a))

	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_Remove_ComparableValueMatchesByValue(t *testing.T) {
	base := &relay.BaseObserver{}
	registry := New(labelObserver{BaseObserver: base, label: "x"})

	require.NoError(t, registry.Remove(labelObserver{BaseObserver: base, label: "x"}))

	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_AddThenRemove_RestoresSequence(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	x := tt.NewMockObserver("x")
	registry := New(a, b)
	before := registry.Observers()

	registry.Add(x)
	require.NoError(t, registry.Remove(x))

	assert.Equal(t, before, registry.Observers())
}

func TestRegistry_AddThenRemove_DuplicateRestoresSequence(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	registry := New(a, b, a)
	before := registry.Observers()

	registry.Add(a)
	require.NoError(t, registry.Remove(a))

	// Remove drops the first entry, so membership is restored but the
	// positions of the duplicates shift.
	assert.ElementsMatch(t, before, registry.Observers())
	assert.Equal(t, 3, registry.Len())
}

func TestRegistry_Set_ReplacesWithSingleObserver(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	c := tt.NewMockObserver("c")
	registry := New(a, b)

	result := registry.Set(c)

	assert.Same(t, registry, result)
	assert.Equal(t, []relay.Observer{c}, registry.Observers())
}

func TestRegistry_SetAll_ReplacesPriorContents(t *testing.T) {
	var log []tt.Call
	verbose := relay.Filter{AlwaysVerbose: true}
	old := tt.NewMockObserver("old").WithFilter(verbose).WithSharedLog(&log)
	a := tt.NewMockObserver("a").WithFilter(verbose).WithSharedLog(&log)
	b := tt.NewMockObserver("b").WithFilter(verbose).WithSharedLog(&log)
	registry := New(old, old)

	registry.SetAll([]relay.Observer{a, b})
	require.NoError(t, tt.EmitKind(context.Background(), registry, relay.KindToolStart, false))

	tt.AssertCallOrder(t, log, "a", "b")
}

func TestRegistry_SetAll_DoesNotAliasInput(t *testing.T) {
	a := tt.NewMockObserver("a")
	b := tt.NewMockObserver("b")
	input := []relay.Observer{a}
	registry := New()

	registry.SetAll(input)
	input[0] = b

	assert.Equal(t, []relay.Observer{a}, registry.Observers())
}

func TestRegistry_Observers_ReturnsCopy(t *testing.T) {
	a := tt.NewMockObserver("a")
	registry := New(a)

	snapshot := registry.Observers()
	snapshot[0] = tt.NewMockObserver("b")

	assert.Equal(t, []relay.Observer{a}, registry.Observers())
}

func TestRegistry_Clear_RemovesAllObservers(t *testing.T) {
	registry := New(tt.NewMockObserver("a"), tt.NewMockObserver("b"))

	registry.Clear()

	assert.Equal(t, 0, registry.Len())
}

// -----------------------------------------------------------------------------
// Dispatch Tests
// -----------------------------------------------------------------------------

func TestRegistry_Emit_GateTruthTable(t *testing.T) {
	filters := map[string]relay.Filter{}
	for _, ic := range []bool{false, true} {
		for _, ih := range []bool{false, true} {
			for _, ia := range []bool{false, true} {
				for _, av := range []bool{false, true} {
					f := relay.Filter{IgnoreCall: ic, IgnoreChain: ih, IgnoreAgent: ia, AlwaysVerbose: av}
					filters[filterName(f)] = f
				}
			}
		}
	}

	for _, kind := range relay.Kinds() {
		for name, f := range filters {
			for _, verbose := range []bool{false, true} {
				obs := tt.NewMockObserver("o").WithFilter(f)
				registry := New(obs)

				err := tt.EmitKind(context.Background(), registry, kind, verbose)
				require.NoError(t, err)

				ignored := (kind.Category() == relay.CategoryCall && f.IgnoreCall) ||
					(kind.Category() == relay.CategoryChain && f.IgnoreChain) ||
					(kind.Category() == relay.CategoryAgent && f.IgnoreAgent)
				want := !ignored && (verbose || f.AlwaysVerbose)

				if want {
					assert.Equal(t, []relay.Kind{kind}, obs.Kinds(), "%s %s verbose=%v", kind, name, verbose)
				} else {
					assert.Empty(t, obs.Kinds(), "%s %s verbose=%v", kind, name, verbose)
				}
			}
		}
	}
}

func filterName(f relay.Filter) string {
	flag := func(b bool, s string) string {
		if b {
			return s
		}
		return "-"
	}
	return flag(f.IgnoreCall, "C") + flag(f.IgnoreChain, "H") + flag(f.IgnoreAgent, "A") + flag(f.AlwaysVerbose, "V")
}

func TestRegistry_Emit_PassesPayloadUnchanged(t *testing.T) {
	for _, kind := range relay.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			obs := tt.NewMockObserver("o")
			registry := New(obs)
			event := tt.SampleEvent(kind)

			require.NoError(t, tt.Emit(context.Background(), registry, event, true))

			tt.AssertReceived(t, obs, event)
		})
	}
}

func TestRegistry_Emit_IgnoreCallAlwaysVerbose(t *testing.T) {
	obs := tt.NewMockObserver("o").WithFilter(relay.Filter{IgnoreCall: true, AlwaysVerbose: true})
	registry := New(obs)
	ctx := context.Background()

	require.NoError(t, registry.EmitCallStart(ctx, &relay.CallStartEvent{}, false))
	assert.Equal(t, 0, obs.CallCount())

	require.NoError(t, registry.EmitChainStart(ctx, &relay.ChainStartEvent{}, false))
	assert.Equal(t, 1, obs.CallCount())
	assert.Equal(t, []relay.Kind{relay.KindChainStart}, obs.Kinds())
}

func TestRegistry_Emit_QuietObserverFollowsVerboseContext(t *testing.T) {
	for _, kind := range relay.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			obs := tt.NewMockObserver("o")
			registry := New(obs)

			require.NoError(t, tt.EmitKind(context.Background(), registry, kind, false))
			assert.Equal(t, 0, obs.CallCount())

			require.NoError(t, tt.EmitKind(context.Background(), registry, kind, true))
			assert.Equal(t, 1, obs.CallCount())
		})
	}
}

func TestRegistry_EmitText_IgnoresCategoryFlags(t *testing.T) {
	obs := tt.NewMockObserver("o").WithFilter(relay.Filter{
		IgnoreCall:  true,
		IgnoreChain: true,
		IgnoreAgent: true,
	})
	registry := New(obs)
	ctx := context.Background()

	require.NoError(t, registry.EmitText(ctx, &relay.TextEvent{Text: "quiet"}, false))
	assert.Equal(t, 0, obs.CallCount(), "text is still subject to the verbosity gate")

	require.NoError(t, registry.EmitText(ctx, &relay.TextEvent{Text: "loud"}, true))
	assert.Equal(t, []relay.Kind{relay.KindText}, obs.Kinds())
}

func TestRegistry_Emit_CallsInInsertionOrder(t *testing.T) {
	var log []tt.Call
	verbose := relay.Filter{AlwaysVerbose: true}
	a := tt.NewMockObserver("a").WithFilter(verbose).WithSharedLog(&log)
	b := tt.NewMockObserver("b").WithFilter(verbose).WithSharedLog(&log)
	c := tt.NewMockObserver("c").WithFilter(verbose).WithSharedLog(&log)
	removed := tt.NewMockObserver("removed").WithFilter(verbose).WithSharedLog(&log)

	registry := New(a, removed)
	registry.Add(b).Add(c)
	require.NoError(t, registry.Remove(removed))

	require.NoError(t, tt.EmitKind(context.Background(), registry, relay.KindCallEnd, false))

	tt.AssertCallOrder(t, log, "a", "b", "c")
}

func TestRegistry_Emit_SkipsFilteredButKeepsOrder(t *testing.T) {
	var log []tt.Call
	a := tt.NewMockObserver("a").WithFilter(relay.Filter{AlwaysVerbose: true}).WithSharedLog(&log)
	b := tt.NewMockObserver("b").WithFilter(relay.Filter{IgnoreAgent: true}).WithSharedLog(&log)
	c := tt.NewMockObserver("c").WithSharedLog(&log)
	registry := New(a, b, c)

	require.NoError(t, registry.EmitToolEnd(context.Background(), &relay.ToolEndEvent{}, true))

	tt.AssertCallOrder(t, log, "a", "c")
}

func TestRegistry_Emit_HandlerErrorStopsDispatch(t *testing.T) {
	failure := errors.New("first observer failed")
	first := tt.NewMockObserver("first").FailOn(relay.KindToolStart, failure)
	second := tt.NewMockObserver("second")
	registry := New(first, second)

	err := registry.EmitToolStart(context.Background(), &relay.ToolStartEvent{Input: "x"}, true)

	assert.Same(t, failure, err, "error must propagate unchanged")
	assert.Equal(t, 1, first.CallCount())
	assert.Equal(t, 0, second.CallCount())
}

func TestRegistry_Emit_HandlerErrorOnEveryKind(t *testing.T) {
	for _, kind := range relay.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			failure := errors.New("boom")
			first := tt.NewMockObserver("first").FailOn(kind, failure)
			second := tt.NewMockObserver("second")
			registry := New(first, second)

			err := tt.EmitKind(context.Background(), registry, kind, true)

			assert.ErrorIs(t, err, failure)
			assert.Equal(t, 0, second.CallCount())
		})
	}
}

func TestRegistry_Emit_FilteredFailingObserverDoesNotBlock(t *testing.T) {
	failing := tt.NewMockObserver("failing").
		WithFilter(relay.Filter{IgnoreChain: true}).
		FailOn(relay.KindChainEnd, errors.New("never seen"))
	second := tt.NewMockObserver("second")
	registry := New(failing, second)

	err := registry.EmitChainEnd(context.Background(), &relay.ChainEndEvent{}, true)

	require.NoError(t, err)
	assert.Equal(t, 1, second.CallCount())
}

func TestRegistry_Emit_HandlerPanicPropagates(t *testing.T) {
	panicking := &relay.FuncObserver{
		Filter: relay.Filter{AlwaysVerbose: true},
		Text: func(context.Context, *relay.TextEvent) error {
			panic("observer exploded")
		},
	}
	second := tt.NewMockObserver("second")
	registry := New(panicking, second)

	assert.PanicsWithValue(t, "observer exploded", func() {
		_ = registry.EmitText(context.Background(), &relay.TextEvent{}, false)
	})
	assert.Equal(t, 0, second.CallCount())
}

func TestRegistry_Emit_MutationDuringDispatchAffectsLaterEmits(t *testing.T) {
	registry := New()
	late := tt.NewMockObserver("late").WithFilter(relay.Filter{AlwaysVerbose: true})
	adder := &relay.FuncObserver{
		Filter: relay.Filter{AlwaysVerbose: true},
		ChainStart: func(context.Context, *relay.ChainStartEvent) error {
			registry.Add(late)
			return nil
		},
	}
	registry.Add(adder)
	ctx := context.Background()

	require.NoError(t, registry.EmitChainStart(ctx, &relay.ChainStartEvent{}, false))
	assert.Equal(t, 0, late.CallCount(), "observer added mid-emit is not invoked by that emit")

	require.NoError(t, registry.EmitChainEnd(ctx, &relay.ChainEndEvent{}, false))
	assert.Equal(t, 1, late.CallCount())
}

func TestRegistry_Emit_PassesContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "run-1")
	var got any
	obs := &relay.FuncObserver{
		AgentFinish: func(ctx context.Context, _ *relay.AgentFinishEvent) error {
			got = ctx.Value(ctxKey{})
			return nil
		},
	}

	require.NoError(t, New(obs).EmitAgentFinish(ctx, &relay.AgentFinishEvent{}, true))

	assert.Equal(t, "run-1", got)
}

func TestRegistry_Emit_EmptyRegistry(t *testing.T) {
	registry := New()

	for _, kind := range relay.Kinds() {
		assert.NoError(t, tt.EmitKind(context.Background(), registry, kind, true))
	}
}
