package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickchristie/relay"
	"github.com/rickchristie/relay/config"
	"github.com/rickchristie/relay/events"
	"github.com/rickchristie/relay/observers/console"
	"github.com/rickchristie/relay/observers/metrics"
	"github.com/rickchristie/relay/observers/slogobs"
	"github.com/rickchristie/relay/observers/stream"
	"github.com/rickchristie/relay/observers/tracing"
	"github.com/rickchristie/relay/observers/yamllog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// namedObserver is a registry member the user can mute by name.
type namedObserver struct {
	name     string
	observer relay.Observer
}

// stack is everything built from a config.Config.
type stack struct {
	registry  *events.Locked
	observers []namedObserver
	stream    *stream.Observer
	tracing   *tracing.Observer
	gatherer  prometheus.Gatherer

	closers []func(context.Context) error
}

// build creates the observers enabled in cfg, in a fixed order, and
// registers them. Console and slog output go to out.
func build(ctx context.Context, cfg config.Config, out io.Writer) (*stack, error) {
	s := &stack{registry: events.NewLocked(nil)}
	add := func(name string, o relay.Observer) {
		s.observers = append(s.observers, namedObserver{name: name, observer: o})
		s.registry.Add(o)
	}

	if cfg.Console.Enabled {
		obs := console.New(out).WithFilter(cfg.Console.Filter)
		switch cfg.Console.Color {
		case config.ColorAlways:
			obs.WithColor(true)
		case config.ColorNever:
			obs.WithColor(false)
		}
		add("console", obs)
	}

	if cfg.YAMLLog.Enabled {
		w := out
		if cfg.YAMLLog.Path != "" {
			f, err := os.OpenFile(cfg.YAMLLog.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open yaml log: %w", err)
			}
			s.closers = append(s.closers, func(context.Context) error { return f.Close() })
			w = f
		}
		add("yamllog", yamllog.NewWithWriter(w).WithFilter(cfg.YAMLLog.Filter))
	}

	if cfg.Slog.Enabled {
		level, err := cfg.Slog.SlogLevel()
		if err != nil {
			return nil, err
		}
		logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
		add("slog", slogobs.New(logger, cfg.Slog.Filter))
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		filter := cfg.Metrics.Filter
		obs, err := metrics.New(reg, metrics.Options{Namespace: cfg.Metrics.Namespace, Filter: &filter})
		if err != nil {
			return nil, err
		}
		s.gatherer = reg
		add("metrics", obs)
		if cfg.Metrics.Addr != "" {
			s.serveMetrics(cfg.Metrics.Addr, reg)
		}
	}

	if cfg.Tracing.Enabled {
		tp, err := tracerProvider(ctx, cfg.Tracing)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, tp.Shutdown)
		s.tracing = tracing.New(tp,
			tracing.WithFilter(cfg.Tracing.Filter),
			tracing.WithTracerName(cfg.Tracing.TracerName),
		)
		add("tracing", s.tracing)
	}

	if cfg.Stream.Enabled {
		s.stream = stream.NewWithFilter(cfg.Stream.Filter)
		s.closers = append(s.closers, func(context.Context) error {
			s.stream.Close()
			return nil
		})
		add("stream", s.stream)
	}

	return s, nil
}

func (s *stack) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(os.Stderr, color.RedString("metrics server: %v", err))
		}
	}()
	s.closers = append(s.closers, srv.Shutdown)
}

func tracerProvider(ctx context.Context, cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	}
	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// lookup returns the observer registered under name.
func (s *stack) lookup(name string) (relay.Observer, bool) {
	for _, n := range s.observers {
		if n.name == name {
			return n.observer, true
		}
	}
	return nil, false
}

// close releases resources in reverse order of creation.
func (s *stack) close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
