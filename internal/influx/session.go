package influx

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// SessionSample is one snapshot of engine health for the metrics loop.
type SessionSample struct {
	Connected     bool
	GaveUp        bool
	FramesDropped uint64
	Reconnects    uint64
	Markers       int
	Alerts        int
}

// SampleFunc produces the current sample. Called on the reporter
// goroutine.
type SampleFunc func() SessionSample

// Reporter periodically writes session health points.
type Reporter struct {
	manager   *Manager
	sessionID string
	sample    SampleFunc
	interval  time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewReporter starts a reporting loop writing to the session bucket.
func NewReporter(m *Manager, sessionID string, sample SampleFunc, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	r := &Reporter{
		manager:   m,
		sessionID: sessionID,
		sample:    sample,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Reporter) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.report()
		case <-r.stop:
			r.report()
			return
		}
	}
}

func (r *Reporter) report() {
	s := r.sample()

	point := influxdb2.NewPointWithMeasurement("hud_session").
		AddTag("session", r.sessionID).
		AddField("connected", s.Connected).
		AddField("gave_up", s.GaveUp).
		AddField("frames_dropped", int64(s.FramesDropped)).
		AddField("reconnects", int64(s.Reconnects)).
		AddField("markers", s.Markers).
		AddField("alerts", s.Alerts).
		SetTime(time.Now())

	if err := r.manager.WritePoint(context.Background(), BucketSession, point); err != nil {
		r.manager.Logger.Error().Err(err).Msg("Failed to write session point")
	}
}

// Stop writes a final point and stops the loop.
func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
}
