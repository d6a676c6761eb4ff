// Package dispatcher routes inbound gesture events to registered
// handlers by event kind.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aegisone/hudlink/pkg/gesture"
)

// HandlerFunc processes a single event. A returned error means the
// event was rejected; the caller logs it and state stays untouched.
type HandlerFunc func(gesture.Event) error

// Logger is the narrow logging interface dispatcher components accept.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
// View-state handlers must stay synchronous to preserve arrival order;
// buffering is for side taps (journal, metrics) only.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to handlers registered per event kind.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	rejected  metric.Int64Counter
	dropped   metric.Int64Counter
	queueSize metric.Int64ObservableGauge

	mu      sync.RWMutex
	buffers map[string]chan gesture.Event
}

// New creates a Dispatcher. Uses the global OTel meter for metrics
// (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan gesture.Event),
		logger:   logger,
	}

	m := meter()

	var err error

	d.processed, err = m.Int64Counter(
		"hudlink.events.processed",
		metric.WithDescription("Events applied to the view state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.rejected, err = m.Int64Counter(
		"hudlink.events.rejected",
		metric.WithDescription("Events rejected by their handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"hudlink.events.dropped",
		metric.WithDescription("Events dropped due to a full buffer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.queueSize, err = m.Int64ObservableGauge(
		"hudlink.events.queue.size",
		metric.WithDescription("Buffered events awaiting processing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("kind", kind)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given event kind.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(kind, cfg.bufferSize, handler)
	}

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	d.handlers[kind] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e gesture.Event) error {
	h, ok := d.handlers[e.Type]
	if !ok {
		return fmt.Errorf("no handler for event kind %s", e.Type)
	}

	kindAttr := attribute.String("kind", e.Type)
	if err := h(e); err != nil {
		d.rejected.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
		return err
	}
	d.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
	return nil
}

// HasHandler reports whether a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind string) bool {
	_, ok := d.handlers[kind]
	return ok
}

func (d *Dispatcher) withBuffer(kind string, size int, h HandlerFunc) HandlerFunc {
	buffer := make(chan gesture.Event, size)

	d.mu.Lock()
	d.buffers[kind] = buffer
	d.mu.Unlock()

	kindAttr := attribute.String("kind", kind)

	go func() {
		for e := range buffer {
			if err := h(e); err != nil {
				d.logger.Error("buffered handler failed", "kind", kind, "error", err)
			}
		}
	}()

	return func(e gesture.Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
			return fmt.Errorf("buffer full for %s", kind)
		}
	}
}

func (d *Dispatcher) withLogging(kind string, h HandlerFunc) HandlerFunc {
	return func(e gesture.Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "kind", kind)

		err := h(e)

		if err != nil {
			d.logger.Error("event rejected", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event applied", "kind", kind, "duration", time.Since(start))
		}

		return err
	}
}
