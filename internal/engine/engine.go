// Package engine assembles the synchronization pipeline: socket frames
// in, parsed events through the dispatcher into the reducer, view-state
// snapshots out.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aegisone/hudlink/internal/conn"
	"github.com/aegisone/hudlink/internal/dispatcher"
	"github.com/aegisone/hudlink/internal/emitter"
	"github.com/aegisone/hudlink/internal/parser"
	"github.com/aegisone/hudlink/internal/reducer"
	"github.com/aegisone/hudlink/internal/state"
	"github.com/aegisone/hudlink/pkg/gesture"
)

// Recorder receives every accepted event for diagnostics. Implementations
// must not block; the engine calls Record on the consume goroutine.
type Recorder interface {
	Record(gesture.Event)
}

// Config holds engine settings.
type Config struct {
	Conn    conn.Config
	ToolTTL time.Duration

	// OptimisticMarkers appends locally dropped markers without waiting
	// for the SELECT echo.
	OptimisticMarkers bool
}

// Stats is a point-in-time counter snapshot for monitoring.
type Stats struct {
	FramesDropped uint64
	Reconnects    uint64
	GaveUp        bool
	Markers       int
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	recorder Recorder
	onCamera reducer.CameraObserver
	onMarker reducer.MarkerObserver
}

// WithRecorder taps every accepted event into rec.
func WithRecorder(rec Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithCameraObserver forwards camera replacements to fn.
func WithCameraObserver(fn reducer.CameraObserver) Option {
	return func(o *options) { o.onCamera = fn }
}

// WithMarkerObserver forwards marker placements to fn.
func WithMarkerObserver(fn reducer.MarkerObserver) Option {
	return func(o *options) { o.onMarker = fn }
}

// Engine owns the single consume goroutine. Events are applied one at a
// time in socket-delivery order; all other goroutines read snapshots.
type Engine struct {
	conn     *conn.Manager
	parser   *parser.Parser
	d        *dispatcher.Dispatcher
	view     *state.View
	emitter  *emitter.Emitter
	recorder Recorder
	logger   *slog.Logger

	framesDropped atomic.Uint64

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// New wires up an engine. The returned engine is idle until Start.
func New(cfg Config, logger *slog.Logger, dispatchLogger dispatcher.Logger, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	view := state.NewView()

	d, err := dispatcher.New(dispatchLogger)
	if err != nil {
		return nil, err
	}

	reducerOpts := []reducer.Option{}
	if cfg.ToolTTL > 0 {
		reducerOpts = append(reducerOpts, reducer.WithToolTTL(cfg.ToolTTL))
	}
	if o.onCamera != nil {
		reducerOpts = append(reducerOpts, reducer.WithCameraObserver(o.onCamera))
	}
	if o.onMarker != nil {
		reducerOpts = append(reducerOpts, reducer.WithMarkerObserver(o.onMarker))
	}
	reducer.New(view, logger, reducerOpts...).Register(d)

	m := conn.New(cfg.Conn, logger, view.SetConnected)

	emitterOpts := []emitter.Option{}
	if cfg.OptimisticMarkers {
		emitterOpts = append(emitterOpts, emitter.WithOptimisticMarkers())
	}

	return &Engine{
		conn:     m,
		parser:   parser.New(logger),
		d:        d,
		view:     view,
		emitter:  emitter.New(m, view, logger, emitterOpts...),
		recorder: o.recorder,
		logger:   logger,
	}, nil
}

// Start connects and begins consuming. A dial failure is not fatal; the
// connection manager keeps retrying per its policy.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	if err := e.conn.Connect(); err != nil {
		e.logger.Warn("Initial connect failed, reconnect policy engaged", "error", err)
	}

	e.wg.Add(1)
	go e.consume()
}

// consume is the single event consumer. Each event is fully applied
// before the next frame is read.
func (e *Engine) consume() {
	defer e.wg.Done()

	for {
		select {
		case <-e.conn.Done():
			return
		case raw := <-e.conn.Receive():
			e.apply(raw)
		}
	}
}

func (e *Engine) apply(raw []byte) {
	ev, err := e.parser.Parse(raw)
	if err != nil {
		e.framesDropped.Add(1)
		e.logger.Warn("Dropping unusable frame", "error", err)
		return
	}

	if e.recorder != nil {
		e.recorder.Record(ev)
	}

	if err := e.d.Dispatch(ev); err != nil {
		e.framesDropped.Add(1)
		e.logger.Warn("Event rejected", "type", ev.Type, "error", err)
		return
	}

	e.view.SetLastEvent(ev.Type)
}

// Stop tears the engine down: the socket closes, any pending reconnect
// is cancelled and the consume goroutine exits.
func (e *Engine) Stop() error {
	err := e.conn.Close()
	e.wg.Wait()
	return err
}

// Snapshot returns the current view state.
func (e *Engine) Snapshot() state.Snapshot {
	return e.view.Snapshot()
}

// Emitter returns the outbound command interface.
func (e *Engine) Emitter() *emitter.Emitter {
	return e.emitter
}

// View exposes the live view for wiring, not for mutation outside the
// reducer and emitter paths.
func (e *Engine) View() *state.View {
	return e.view
}

// Stats returns monitoring counters.
func (e *Engine) Stats() Stats {
	return Stats{
		FramesDropped: e.framesDropped.Load(),
		Reconnects:    e.conn.Reconnects(),
		GaveUp:        e.conn.GaveUp(),
		Markers:       e.view.MarkerCount(),
	}
}
