// Package emitter is the outbound half of the protocol: it serializes
// user commands and sends them over the open socket, fire-and-forget.
package emitter

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aegisone/hudlink/internal/conn"
	"github.com/aegisone/hudlink/internal/state"
	"github.com/aegisone/hudlink/pkg/gesture"
)

// Emitter sends commands to the gesture controller. Commands are
// silently dropped, not queued, when the socket is not open.
type Emitter struct {
	conn   *conn.Manager
	view   *state.View
	logger *slog.Logger

	// optimistic appends locally placed markers immediately instead of
	// waiting for the SELECT echo. Leave off when the controller echoes
	// placements back, or markers double up.
	optimistic bool
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithOptimisticMarkers enables local marker placement ahead of the
// server echo.
func WithOptimisticMarkers() Option {
	return func(e *Emitter) { e.optimistic = true }
}

// New creates an emitter sending over m and, when optimistic placement
// is on, writing to view.
func New(m *conn.Manager, view *state.View, logger *slog.Logger, opts ...Option) *Emitter {
	e := &Emitter{conn: m, view: view, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartListening requests voice capture.
func (e *Emitter) StartListening() {
	e.send(gesture.NewStartListening())
}

// StopListening ends voice capture. The transcription may be empty.
func (e *Emitter) StopListening(transcription string) {
	e.send(gesture.NewStopListening(transcription))
}

// DropMarker places a marker at the given coordinates.
func (e *Emitter) DropMarker(lat, lon float64) {
	e.send(gesture.NewDropMarker(lat, lon))

	if e.optimistic {
		e.view.AppendMarker(state.Marker{
			Lat:       lat,
			Lon:       lon,
			CreatedAt: time.Now(),
		})
	}
}

func (e *Emitter) send(cmd any) {
	data, err := json.Marshal(cmd)
	if err != nil {
		e.logger.Error("Failed to marshal command", "error", err)
		return
	}
	e.conn.Send(data)
}
