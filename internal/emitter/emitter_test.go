package emitter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisone/hudlink/internal/conn"
	"github.com/aegisone/hudlink/internal/state"
)

type commandLog struct {
	mu   sync.Mutex
	cmds []map[string]any
}

func (cl *commandLog) all() []map[string]any {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cp := make([]map[string]any, len(cl.cmds))
	copy(cp, cl.cmds)
	return cp
}

func commandServer(t *testing.T) (*httptest.Server, *commandLog) {
	t.Helper()
	cl := &commandLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var cmd map[string]any
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			cl.mu.Lock()
			cl.cmds = append(cl.cmds, cmd)
			cl.mu.Unlock()
		}
	}))

	return srv, cl
}

func TestEmitter_SendsCommands(t *testing.T) {
	srv, cl := commandServer(t)
	defer srv.Close()

	logger := slog.New(slog.DiscardHandler)
	m := conn.New(conn.Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, logger, nil)
	defer m.Close()
	require.NoError(t, m.Connect())

	view := state.NewView()
	e := New(m, view, logger)

	e.StartListening()
	e.StopListening("dispatch supplies to sector 7")
	e.DropMarker(25.7617, -80.1918)

	require.Eventually(t, func() bool { return len(cl.all()) == 3 }, time.Second, 10*time.Millisecond)

	cmds := cl.all()
	assert.Equal(t, "START_LISTENING", cmds[0]["command"])
	assert.Equal(t, "STOP_LISTENING", cmds[1]["command"])
	assert.Equal(t, "dispatch supplies to sector 7", cmds[1]["transcription"])
	assert.Equal(t, "DROP_MARKER", cmds[2]["command"])
	assert.Equal(t, 25.7617, cmds[2]["lat"])

	// Default emitter does not write markers locally; the SELECT echo
	// owns that.
	assert.Equal(t, 0, view.MarkerCount())
}

func TestEmitter_DroppedWhenDisconnected(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	m := conn.New(conn.Config{URL: "ws://127.0.0.1:0"}, logger, nil)
	defer m.Close()

	view := state.NewView()
	e := New(m, view, logger)

	// No connection: all of these are silent no-ops.
	e.StartListening()
	e.StopListening("")
	e.DropMarker(1, 2)

	assert.Equal(t, 0, view.MarkerCount())
}

func TestEmitter_OptimisticMarkerPlacement(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	m := conn.New(conn.Config{URL: "ws://127.0.0.1:0"}, logger, nil)
	defer m.Close()

	view := state.NewView()
	e := New(m, view, logger, WithOptimisticMarkers())

	e.DropMarker(-6.2088, 106.8456)

	require.Equal(t, 1, view.MarkerCount())
	markers := view.Snapshot().Markers
	assert.Equal(t, -6.2088, markers[0].Lat)
	assert.False(t, markers[0].CreatedAt.IsZero())
}
