// Package journal archives the session's accepted events and marker
// placements to a local database for after-action review. It never
// feeds state back into the engine.
package journal

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aegisone/hudlink/internal/queue"
	"github.com/aegisone/hudlink/internal/state"
	"github.com/aegisone/hudlink/pkg/gesture"
)

// DefaultFlushInterval is how often queued records are written out.
const DefaultFlushInterval = 5 * time.Second

// Config selects the journal backend.
type Config struct {
	Driver        string // sqlite (default) or postgres
	Path          string // sqlite file, empty for in-memory
	DSN           string // postgres only
	FlushInterval time.Duration
}

// Recorder batches event records and flushes them on a ticker. Record
// never blocks on the database; the engine calls it on the consume
// goroutine.
type Recorder struct {
	db        *gorm.DB
	log       zerolog.Logger
	sessionID string
	interval  time.Duration

	events  *queue.Queue[EventRecord]
	markers *queue.Queue[MarkerRecord]

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRecorder opens the backend and starts the flush loop.
func NewRecorder(cfg Config, sessionID string, log zerolog.Logger) (*Recorder, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	r := &Recorder{
		db:        db,
		log:       log,
		sessionID: sessionID,
		interval:  interval,
		events:    queue.New[EventRecord](),
		markers:   queue.New[MarkerRecord](),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go r.flushLoop()
	return r, nil
}

// Record queues one accepted event.
func (r *Recorder) Record(ev gesture.Event) {
	r.events.Push(EventRecord{
		SessionID:  r.sessionID,
		Kind:       ev.Type,
		ReceivedAt: time.Now().UTC(),
		EventTime:  ev.Timestamp,
		Payload:    datatypes.JSON(ev.Data),
	})
}

// RecordMarker queues one marker placement.
func (r *Recorder) RecordMarker(m state.Marker) {
	r.markers.Push(MarkerRecord{
		SessionID: r.sessionID,
		Name:      m.Name,
		Kind:      m.Kind,
		Lat:       m.Lat,
		Lon:       m.Lon,
		PlacedAt:  time.Now().UTC(),
	})
}

func (r *Recorder) flushLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.stop:
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	if events := r.events.Drain(); len(events) > 0 {
		if err := r.db.CreateInBatches(events, 500).Error; err != nil {
			r.log.Error().Err(err).Int("count", len(events)).Msg("Failed to write event records")
		}
	}
	if markers := r.markers.Drain(); len(markers) > 0 {
		if err := r.db.CreateInBatches(markers, 500).Error; err != nil {
			r.log.Error().Err(err).Int("count", len(markers)).Msg("Failed to write marker records")
		}
	}
}

// Close flushes pending records and closes the database.
func (r *Recorder) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done

	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
