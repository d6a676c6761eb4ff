package reducer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisone/hudlink/internal/dispatcher"
	"github.com/aegisone/hudlink/internal/state"
	"github.com/aegisone/hudlink/pkg/gesture"
)

type harness struct {
	view  *state.View
	d     *dispatcher.Dispatcher
	r     *Reducer
	clock *fakeClock
}

// fakeClock collects armed timers and fires them on demand.
type fakeClock struct {
	pending []func()
}

func (c *fakeClock) afterFunc(_ time.Duration, fn func()) *time.Timer {
	c.pending = append(c.pending, fn)
	return nil
}

// fireAll runs every armed timer in order.
func (c *fakeClock) fireAll() {
	fns := c.pending
	c.pending = nil
	for _, fn := range fns {
		fn()
	}
}

// fire runs the i-th armed timer without removing the others.
func (c *fakeClock) fire(i int) {
	c.pending[i]()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	view := state.NewView()
	clock := &fakeClock{}

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)

	r := New(view, slog.New(slog.DiscardHandler), opts...)
	r.afterFunc = clock.afterFunc
	r.Register(d)

	return &harness{view: view, d: d, r: r, clock: clock}
}

func event(kind, data string) gesture.Event {
	return gesture.Event{
		Type:      kind,
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Data:      json.RawMessage(data),
	}
}

func TestMove_LastEventWins(t *testing.T) {
	h := newHarness(t)

	moves := []string{
		`{"lat":1,"lon":2,"altitude":100,"target_name":"A"}`,
		`{"lat":3,"lon":4,"altitude":200,"target_name":"B"}`,
		`{"lat":35.6762,"lon":139.6503,"altitude":15000000,"target_name":"Tokyo Earthquake"}`,
	}
	for _, m := range moves {
		require.NoError(t, h.d.Dispatch(event(gesture.TypeMove, m)))
	}

	cam := h.view.Snapshot().Camera
	require.NotNil(t, cam)
	assert.Equal(t, 35.6762, cam.Lat)
	assert.Equal(t, 139.6503, cam.Lon)
	assert.Equal(t, float64(15000000), cam.Altitude)
	assert.Equal(t, "Tokyo Earthquake", cam.TargetName)
}

func TestSelect_AppendsInOrder(t *testing.T) {
	h := newHarness(t)

	const n = 7
	for i := 0; i < n; i++ {
		data := fmt.Sprintf(`{"lat":%d,"lon":%d,"marker_type":"relief"}`, i, i)
		require.NoError(t, h.d.Dispatch(event(gesture.TypeSelect, data)))
	}

	markers := h.view.Snapshot().Markers
	require.Len(t, markers, n)
	for i, m := range markers {
		assert.Equal(t, float64(i), m.Lat)
	}
}

func TestInit_SeedsCameraAndMarkers(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeInit,
		`{"camera":{"lat":10,"lon":20},"markers":[{"lat":1,"lon":1},{"lat":2,"lon":2}]}`)))

	snap := h.view.Snapshot()
	require.NotNil(t, snap.Camera)
	assert.Equal(t, 10.0, snap.Camera.Lat)
	// Altitude defaults when the controller omits it.
	assert.Equal(t, float64(state.DefaultAltitude), snap.Camera.Altitude)
	assert.Len(t, snap.Markers, 2)

	// INIT replaces the marker list wholesale.
	require.NoError(t, h.d.Dispatch(event(gesture.TypeInit,
		`{"markers":[{"lat":9,"lon":9}]}`)))
	snap = h.view.Snapshot()
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, 9.0, snap.Markers[0].Lat)
	// Camera untouched when absent from the payload.
	assert.Equal(t, 10.0, snap.Camera.Lat)
}

func TestVoiceAndAgentFlags(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeVoiceStart, `{}`)))
	assert.True(t, h.view.Snapshot().IsListening)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeVoiceEnd, `{"transcription":"status report"}`)))
	assert.False(t, h.view.Snapshot().IsListening)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeAgentSpeakStart, `{"agent":"Aegis-1"}`)))
	assert.True(t, h.view.Snapshot().IsSpeaking)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeAgentSpeakEnd, `{"agent":"Aegis-1"}`)))
	assert.False(t, h.view.Snapshot().IsSpeaking)
}

func TestToolExecute_ExpiresAfterTTL(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeToolExecute,
		`{"tool":"calculate_supply_needs","status":"executing"}`)))

	tool := h.view.Snapshot().CurrentTool
	require.NotNil(t, tool)
	assert.Equal(t, "calculate_supply_needs", tool.Tool)

	h.clock.fireAll()
	assert.Nil(t, h.view.Snapshot().CurrentTool)
}

func TestToolExecute_StaleTimerDoesNotClearNewerRecord(t *testing.T) {
	h := newHarness(t)

	// Two executions: the first timer fires after the second record is
	// already live.
	require.NoError(t, h.d.Dispatch(event(gesture.TypeToolExecute,
		`{"tool":"NASA_FIRMS","status":"Fetching fire data..."}`)))
	require.NoError(t, h.d.Dispatch(event(gesture.TypeToolExecute,
		`{"tool":"OpenMeteo","status":"Getting weather forecast..."}`)))

	require.Len(t, h.clock.pending, 2)
	h.clock.fire(0)

	// The second record must survive the first record's timer.
	tool := h.view.Snapshot().CurrentTool
	require.NotNil(t, tool)
	assert.Equal(t, "OpenMeteo", tool.Tool)

	// Its own timer clears it.
	h.clock.fire(1)
	assert.Nil(t, h.view.Snapshot().CurrentTool)
}

func TestAlert_CapAndOrder(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 9; i++ {
		data := fmt.Sprintf(`{"level":"warning","message":"alert %d"}`, i)
		require.NoError(t, h.d.Dispatch(event(gesture.TypeAlert, data)))
	}

	alerts := h.view.Snapshot().Alerts
	require.Len(t, alerts, state.AlertCapacity)
	assert.Equal(t, "alert 8", alerts[0].Message)
	assert.Equal(t, state.AlertWarning, alerts[0].Level)
}

func TestZoomAndRotate_PartialCameraUpdates(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeMove,
		`{"lat":5,"lon":10,"altitude":1000,"target_name":"X"}`)))

	require.NoError(t, h.d.Dispatch(event(gesture.TypeZoom, `{"delta":-250}`)))
	require.NoError(t, h.d.Dispatch(event(gesture.TypeRotate, `{"angle":15}`)))

	cam := h.view.Snapshot().Camera
	require.NotNil(t, cam)
	assert.Equal(t, 750.0, cam.Altitude)
	assert.Equal(t, 25.0, cam.Lon)
	// Untouched fields survive the partial updates.
	assert.Equal(t, 5.0, cam.Lat)
	assert.Equal(t, "X", cam.TargetName)
}

func TestMalformedPayload_IsAllOrNothing(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeMove,
		`{"lat":1,"lon":2,"altitude":3}`)))

	// Malformed payload: rejected, camera untouched.
	err := h.d.Dispatch(event(gesture.TypeMove, `{"lat":"north"}`))
	assert.Error(t, err)
	cam := h.view.Snapshot().Camera
	require.NotNil(t, cam)
	assert.Equal(t, 1.0, cam.Lat)

	// TOOL_EXECUTE without the required tool name: rejected, no
	// indicator appears and no timer is armed.
	err = h.d.Dispatch(event(gesture.TypeToolExecute, `{"status":"executing"}`))
	assert.Error(t, err)
	assert.Nil(t, h.view.Snapshot().CurrentTool)
	assert.Empty(t, h.clock.pending)
}

func TestObservers(t *testing.T) {
	var cams []state.Camera
	var marks []state.Marker

	h := newHarness(t,
		WithCameraObserver(func(c state.Camera) { cams = append(cams, c) }),
		WithMarkerObserver(func(m state.Marker) { marks = append(marks, m) }),
	)

	require.NoError(t, h.d.Dispatch(event(gesture.TypeMove, `{"lat":1,"lon":2}`)))
	require.NoError(t, h.d.Dispatch(event(gesture.TypeSelect, `{"lat":3,"lon":4,"marker_type":"medical"}`)))

	require.Len(t, cams, 1)
	assert.Equal(t, 1.0, cams[0].Lat)
	require.Len(t, marks, 1)
	assert.Equal(t, "medical", marks[0].Kind)
}
