package parser

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisone/hudlink/pkg/gesture"
)

func newTestParser() *Parser {
	p := New(slog.New(slog.DiscardHandler))
	p.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestParse_ValidMove(t *testing.T) {
	p := newTestParser()

	e, err := p.Parse([]byte(`{
		"type": "MOVE",
		"timestamp": "2026-03-14T09:26:53.589793",
		"data": {"lat": -6.2088, "lon": 106.8456, "altitude": 15000000, "target_name": "Jakarta Flood"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, gesture.TypeMove, e.Type)
	assert.Equal(t, 2026, e.Timestamp.Year())

	payload, err := e.DecodeMove()
	require.NoError(t, err)
	assert.Equal(t, "Jakarta Flood", payload.TargetName)
}

func TestParse_MalformedJSON(t *testing.T) {
	p := newTestParser()

	tests := []string{
		`not json`,
		``,
		`{"type": "MOVE"`,
		`[1,2,3]`,
	}
	for _, raw := range tests {
		_, err := p.Parse([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestParse_UnknownType(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse([]byte(`{"type":"TELEPORT","timestamp":"2026-03-14T09:26:53","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = p.Parse([]byte(`{"timestamp":"2026-03-14T09:26:53","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestParse_BadTimestampFallsBackToReceiveTime(t *testing.T) {
	p := newTestParser()

	e, err := p.Parse([]byte(`{"type":"VOICE_START","timestamp":"yesterday","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), e.Timestamp)
}

func TestParse_AllKnownKindsAccepted(t *testing.T) {
	p := newTestParser()

	kinds := []string{
		gesture.TypeInit, gesture.TypeMove, gesture.TypeSelect,
		gesture.TypeZoom, gesture.TypeRotate, gesture.TypeVoiceStart,
		gesture.TypeVoiceEnd, gesture.TypeAgentSpeakStart,
		gesture.TypeAgentSpeakEnd, gesture.TypeToolExecute, gesture.TypeAlert,
	}
	for _, kind := range kinds {
		raw := []byte(`{"type":"` + kind + `","timestamp":"2026-03-14T09:26:53","data":{}}`)
		e, err := p.Parse(raw)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, e.Type)
	}
}
