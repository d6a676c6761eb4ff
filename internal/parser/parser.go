// Package parser validates raw socket frames at the protocol boundary
// and produces typed gesture events. Nothing past this point sees
// unvalidated input.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegisone/hudlink/pkg/gesture"
)

// ErrUnknownEventType is returned for frames whose type is not one of
// the recognized gesture event kinds.
var ErrUnknownEventType = errors.New("unknown event type")

// Parser converts raw frames to gesture events. It has no dependencies
// beyond a logger and a clock.
type Parser struct {
	logger *slog.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New creates a parser.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger, now: time.Now}
}

// Parse validates a raw frame. Malformed JSON and unrecognized types are
// errors; the caller drops the frame and moves on. A frame with an
// unparseable timestamp is accepted with the receive time substituted,
// since the payload is still usable.
func (p *Parser) Parse(raw []byte) (gesture.Event, error) {
	var frame gesture.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return gesture.Event{}, fmt.Errorf("malformed frame: %w", err)
	}

	if !gesture.KnownType(frame.Type) {
		return gesture.Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, frame.Type)
	}

	ts, err := gesture.ParseTimestamp(frame.Timestamp)
	if err != nil {
		p.logger.Debug("Unparseable event timestamp, using receive time",
			"type", frame.Type, "timestamp", frame.Timestamp)
		ts = p.now()
	}

	return gesture.Event{
		Type:      frame.Type,
		Timestamp: ts,
		Data:      frame.Data,
	}, nil
}
