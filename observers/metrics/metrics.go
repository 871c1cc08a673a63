// Package metrics provides an observer that exposes event activity as
// Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickchristie/relay"
)

// DefaultNamespace prefixes every collector name.
const DefaultNamespace = "relay"

// Observer counts events. It is always verbose by default, so it sees every
// event regardless of the emitter's verbosity.
//
// Collectors:
//   - <ns>_events_total{kind}: events received
//   - <ns>_errors_total{category}: error events received
//   - <ns>_runs_in_flight{category}: started minus finished calls, chains and tools
//   - <ns>_tokens_total: streamed output fragments
//
// Prometheus collectors are safe for concurrent use, so one Observer may be
// shared by several registries.
type Observer struct {
	relay.BaseObserver

	events   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	tokens   prometheus.Counter
}

var _ relay.Observer = (*Observer)(nil)

// Options configures New.
type Options struct {
	// Namespace prefixes collector names. Defaults to DefaultNamespace.
	Namespace string

	// Filter overrides the default {AlwaysVerbose: true} filter when non-nil.
	Filter *relay.Filter
}

// New creates an Observer and registers its collectors with reg, or with
// prometheus.DefaultRegisterer when reg is nil. Collectors that are already
// registered with an identical description are reused.
func New(reg prometheus.Registerer, opts Options) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	filter := relay.Filter{AlwaysVerbose: true}
	if opts.Filter != nil {
		filter = *opts.Filter
	}

	o := &Observer{
		BaseObserver: relay.BaseObserver{Filter: filter},
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_total",
			Help:      "Lifecycle events received, by kind.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "errors_total",
			Help:      "Error events received, by category.",
		}, []string{"category"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "runs_in_flight",
			Help:      "Calls, chains and tools started but not yet ended or failed.",
		}, []string{"category"}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "tokens_total",
			Help:      "Streamed output fragments received.",
		}),
	}

	var err error
	if o.events, err = register(reg, o.events); err != nil {
		return nil, err
	}
	if o.errors, err = register(reg, o.errors); err != nil {
		return nil, err
	}
	if o.inFlight, err = register(reg, o.inFlight); err != nil {
		return nil, err
	}
	if o.tokens, err = register(reg, o.tokens); err != nil {
		return nil, err
	}
	return o, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer, opts Options) *Observer {
	o, err := New(reg, opts)
	if err != nil {
		panic(err)
	}
	return o
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("metrics: register collector: %w", err)
	}
	return c, nil
}

func (o *Observer) count(k relay.Kind) {
	o.events.WithLabelValues(string(k)).Inc()
}

func (o *Observer) started(k relay.Kind) {
	o.count(k)
	o.inFlight.WithLabelValues(string(k.Category())).Inc()
}

func (o *Observer) ended(k relay.Kind) {
	o.count(k)
	o.inFlight.WithLabelValues(string(k.Category())).Dec()
}

func (o *Observer) failed(k relay.Kind) {
	o.ended(k)
	o.errors.WithLabelValues(string(k.Category())).Inc()
}

func (o *Observer) OnCallStart(context.Context, *relay.CallStartEvent) error {
	o.started(relay.KindCallStart)
	return nil
}

func (o *Observer) OnCallNewToken(context.Context, *relay.CallNewTokenEvent) error {
	o.count(relay.KindCallNewToken)
	o.tokens.Inc()
	return nil
}

func (o *Observer) OnCallEnd(context.Context, *relay.CallEndEvent) error {
	o.ended(relay.KindCallEnd)
	return nil
}

func (o *Observer) OnCallError(context.Context, *relay.CallErrorEvent) error {
	o.failed(relay.KindCallError)
	return nil
}

func (o *Observer) OnChainStart(context.Context, *relay.ChainStartEvent) error {
	o.started(relay.KindChainStart)
	return nil
}

func (o *Observer) OnChainEnd(context.Context, *relay.ChainEndEvent) error {
	o.ended(relay.KindChainEnd)
	return nil
}

func (o *Observer) OnChainError(context.Context, *relay.ChainErrorEvent) error {
	o.failed(relay.KindChainError)
	return nil
}

func (o *Observer) OnToolStart(context.Context, *relay.ToolStartEvent) error {
	o.started(relay.KindToolStart)
	return nil
}

func (o *Observer) OnToolEnd(context.Context, *relay.ToolEndEvent) error {
	o.ended(relay.KindToolEnd)
	return nil
}

func (o *Observer) OnToolError(context.Context, *relay.ToolErrorEvent) error {
	o.failed(relay.KindToolError)
	return nil
}

func (o *Observer) OnAgentAction(context.Context, *relay.AgentActionEvent) error {
	o.count(relay.KindAgentAction)
	return nil
}

func (o *Observer) OnAgentFinish(context.Context, *relay.AgentFinishEvent) error {
	o.count(relay.KindAgentFinish)
	return nil
}

func (o *Observer) OnText(context.Context, *relay.TextEvent) error {
	o.count(relay.KindText)
	return nil
}
