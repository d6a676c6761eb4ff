package journal

import (
	"time"

	"gorm.io/datatypes"
)

// EventRecord is one accepted gesture event as archived for a session.
// The journal is write-only diagnostics; nothing in the engine reads it
// back.
type EventRecord struct {
	ID         uint   `gorm:"primarykey"`
	SessionID  string `gorm:"index"`
	Kind       string `gorm:"index"`
	ReceivedAt time.Time
	EventTime  time.Time
	Payload    datatypes.JSON
}

// MarkerRecord is a marker placement archived for after-action review.
type MarkerRecord struct {
	ID        uint   `gorm:"primarykey"`
	SessionID string `gorm:"index"`
	Name      string
	Kind      string
	Lat       float64
	Lon       float64
	PlacedAt  time.Time
}
