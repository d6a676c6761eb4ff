// Package reducer applies typed gesture events to the shared view
// state. It is the single writer: one event at a time, in arrival
// order, all-or-nothing per event.
package reducer

import (
	"log/slog"
	"time"

	"github.com/aegisone/hudlink/internal/dispatcher"
	"github.com/aegisone/hudlink/internal/state"
	"github.com/aegisone/hudlink/pkg/gesture"
)

// DefaultToolTTL is how long the tool-execution indicator stays up
// without being superseded.
const DefaultToolTTL = 3 * time.Second

// CameraObserver is notified after every camera replacement.
type CameraObserver func(state.Camera)

// MarkerObserver is notified after every marker append.
type MarkerObserver func(state.Marker)

// Reducer owns all view-state transitions driven by inbound events.
type Reducer struct {
	view    *state.View
	logger  *slog.Logger
	toolTTL time.Duration

	onCamera CameraObserver
	onMarker MarkerObserver

	// afterFunc is swapped in tests to control timer firing.
	afterFunc func(time.Duration, func()) *time.Timer
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithToolTTL overrides the tool indicator expiry.
func WithToolTTL(ttl time.Duration) Option {
	return func(r *Reducer) { r.toolTTL = ttl }
}

// WithCameraObserver registers a camera-change callback.
func WithCameraObserver(fn CameraObserver) Option {
	return func(r *Reducer) { r.onCamera = fn }
}

// WithMarkerObserver registers a marker-placement callback.
func WithMarkerObserver(fn MarkerObserver) Option {
	return func(r *Reducer) { r.onMarker = fn }
}

// New creates a reducer writing to view.
func New(view *state.View, logger *slog.Logger, opts ...Option) *Reducer {
	r := &Reducer{
		view:      view,
		logger:    logger,
		toolTTL:   DefaultToolTTL,
		afterFunc: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register wires one synchronous handler per event kind into the
// dispatcher. Handlers must stay synchronous: the ordering contract
// requires each event to be fully applied before the next is processed.
func (r *Reducer) Register(d *dispatcher.Dispatcher) {
	d.Register(gesture.TypeInit, r.handleInit, dispatcher.Logged())
	d.Register(gesture.TypeMove, r.handleMove)
	d.Register(gesture.TypeSelect, r.handleSelect, dispatcher.Logged())
	d.Register(gesture.TypeZoom, r.handleZoom)
	d.Register(gesture.TypeRotate, r.handleRotate)
	d.Register(gesture.TypeVoiceStart, r.handleVoiceStart)
	d.Register(gesture.TypeVoiceEnd, r.handleVoiceEnd)
	d.Register(gesture.TypeAgentSpeakStart, r.handleAgentSpeakStart)
	d.Register(gesture.TypeAgentSpeakEnd, r.handleAgentSpeakEnd)
	d.Register(gesture.TypeToolExecute, r.handleToolExecute, dispatcher.Logged())
	d.Register(gesture.TypeAlert, r.handleAlert, dispatcher.Logged())
}

// handleInit seeds the session: camera and marker list are replaced
// wholesale when present in the payload.
func (r *Reducer) handleInit(e gesture.Event) error {
	payload, err := e.DecodeInit()
	if err != nil {
		return err
	}

	if payload.Camera != nil {
		cam := cameraFromPayload(*payload.Camera)
		if cam.Altitude == 0 {
			cam.Altitude = state.DefaultAltitude
		}
		r.view.ReplaceCamera(cam)
	}

	if payload.Markers != nil {
		markers := make([]state.Marker, 0, len(payload.Markers))
		for _, m := range payload.Markers {
			markers = append(markers, state.Marker{
				Name:      m.Name,
				Lat:       m.Lat,
				Lon:       m.Lon,
				Kind:      m.MarkerType,
				CreatedAt: e.Timestamp,
			})
		}
		r.view.ReplaceMarkers(markers)
	}

	return nil
}

func (r *Reducer) handleMove(e gesture.Event) error {
	payload, err := e.DecodeMove()
	if err != nil {
		return err
	}

	cam := cameraFromPayload(payload)
	r.view.ReplaceCamera(cam)
	if r.onCamera != nil {
		r.onCamera(cam)
	}
	return nil
}

func (r *Reducer) handleSelect(e gesture.Event) error {
	payload, err := e.DecodeSelect()
	if err != nil {
		return err
	}

	marker := state.Marker{
		Name:      payload.Name,
		Lat:       payload.Lat,
		Lon:       payload.Lon,
		Kind:      payload.MarkerType,
		CreatedAt: e.Timestamp,
	}
	r.view.AppendMarker(marker)
	if r.onMarker != nil {
		r.onMarker(marker)
	}
	return nil
}

func (r *Reducer) handleZoom(e gesture.Event) error {
	payload, err := e.DecodeZoom()
	if err != nil {
		return err
	}
	r.view.AdjustAltitude(payload.Delta)
	return nil
}

func (r *Reducer) handleRotate(e gesture.Event) error {
	payload, err := e.DecodeRotate()
	if err != nil {
		return err
	}
	r.view.AdjustHeading(payload.Angle)
	return nil
}

func (r *Reducer) handleVoiceStart(gesture.Event) error {
	r.view.SetListening(true)
	return nil
}

func (r *Reducer) handleVoiceEnd(e gesture.Event) error {
	if _, err := e.DecodeVoiceEnd(); err != nil {
		return err
	}
	r.view.SetListening(false)
	return nil
}

func (r *Reducer) handleAgentSpeakStart(gesture.Event) error {
	r.view.SetSpeaking(true)
	return nil
}

func (r *Reducer) handleAgentSpeakEnd(gesture.Event) error {
	r.view.SetSpeaking(false)
	return nil
}

// handleToolExecute replaces the tool indicator and arms its expiry.
// The timer is not cancelled when a newer TOOL_EXECUTE supersedes this
// record; it fires and finds its generation stale, so the clear is a
// no-op.
func (r *Reducer) handleToolExecute(e gesture.Event) error {
	payload, err := e.DecodeToolExecute()
	if err != nil {
		return err
	}

	gen := r.view.BeginTool(payload.Tool, payload.Status, e.Timestamp)
	r.afterFunc(r.toolTTL, func() {
		if r.view.ClearTool(gen) {
			r.logger.Debug("Tool indicator expired", "tool", payload.Tool)
		}
	})
	return nil
}

func (r *Reducer) handleAlert(e gesture.Event) error {
	payload, err := e.DecodeAlert()
	if err != nil {
		return err
	}

	r.view.PushAlert(state.Alert{
		Level:      state.ParseAlertLevel(payload.Level),
		Message:    payload.Message,
		OccurredAt: e.Timestamp,
	})
	return nil
}

func cameraFromPayload(p gesture.CameraPayload) state.Camera {
	return state.Camera{
		Lat:        p.Lat,
		Lon:        p.Lon,
		Altitude:   p.Altitude,
		TargetName: p.TargetName,
	}
}
