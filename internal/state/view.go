// Package state holds the shared HUD view state: camera pose, markers,
// voice/agent activity flags, the current tool indicator and the alert feed.
// The reducer is the only writer apart from the emitter's optimistic marker
// path; readers get immutable snapshots.
package state

import (
	"strings"
	"sync"
	"time"
)

// AlertCapacity is the fixed size of the alert feed. Insertion beyond
// capacity evicts the oldest entry.
const AlertCapacity = 5

// DefaultAltitude is used when INIT omits the camera altitude, in meters.
const DefaultAltitude = 15_000_000

// Camera is the full camera pose. It is replaced wholesale on MOVE and
// INIT; ZOOM and ROTATE adjust single fields.
type Camera struct {
	Lat        float64
	Lon        float64
	Altitude   float64
	TargetName string
}

// Marker is an immutable placed marker. Markers are never deleted within
// a session.
type Marker struct {
	Name      string
	Lat       float64
	Lon       float64
	Kind      string
	CreatedAt time.Time
}

// ToolExecution is the single ephemeral tool-execution indicator.
type ToolExecution struct {
	Tool      string
	Status    string
	StartedAt time.Time
}

// AlertLevel is the severity of an alert feed entry.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// ParseAlertLevel coerces a wire-level string to an AlertLevel. Unknown
// values become info rather than rejecting the alert.
func ParseAlertLevel(s string) AlertLevel {
	switch AlertLevel(strings.ToLower(s)) {
	case AlertWarning:
		return AlertWarning
	case AlertCritical:
		return AlertCritical
	default:
		return AlertInfo
	}
}

// Alert is an entry in the HUD alert feed.
type Alert struct {
	Level      AlertLevel
	Message    string
	OccurredAt time.Time
}

// Snapshot is a point-in-time copy of the view state for the rendering
// layer. Slices and pointers are owned by the snapshot; mutating them
// does not affect the live view.
type Snapshot struct {
	Connected   bool
	Camera      *Camera
	Markers     []Marker
	IsListening bool
	IsSpeaking  bool
	CurrentTool *ToolExecution
	Alerts      []Alert
	LastEvent   string
}

// View is the live view state. All access goes through its methods.
type View struct {
	mu sync.RWMutex

	connected   bool
	camera      *Camera
	markers     []Marker
	isListening bool
	isSpeaking  bool
	alerts      []Alert
	lastEvent   string

	// Tool indicator with its generation counter. A ClearTool carrying a
	// stale generation is a no-op, so a timer armed for a superseded
	// record can never clear its successor.
	tool    *ToolExecution
	toolGen uint64
}

// NewView creates an empty view. The camera stays nil until the first
// INIT or MOVE event.
func NewView() *View {
	return &View{}
}

// SetConnected records the socket connection state.
func (v *View) SetConnected(connected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = connected
}

// ReplaceCamera swaps in a complete camera pose. No field merging.
func (v *View) ReplaceCamera(c Camera) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera = &c
}

// AdjustAltitude applies a ZOOM delta to the camera altitude. No-op
// before the first camera pose arrives. Altitude never goes below zero.
func (v *View) AdjustAltitude(delta float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.camera == nil {
		return
	}
	c := *v.camera
	c.Altitude += delta
	if c.Altitude < 0 {
		c.Altitude = 0
	}
	v.camera = &c
}

// AdjustHeading applies a ROTATE angle to the camera longitude,
// normalized to (-180, 180]. No-op before the first camera pose.
func (v *View) AdjustHeading(angle float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.camera == nil {
		return
	}
	c := *v.camera
	c.Lon = normalizeLon(c.Lon + angle)
	v.camera = &c
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon <= -180 {
		lon += 360
	}
	return lon
}

// Camera returns a copy of the current camera pose, or nil if none yet.
func (v *View) Camera() *Camera {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.camera == nil {
		return nil
	}
	c := *v.camera
	return &c
}

// ReplaceMarkers swaps the whole marker list, used by INIT only.
func (v *View) ReplaceMarkers(markers []Marker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append([]Marker(nil), markers...)
}

// AppendMarker adds a marker to the end of the list.
func (v *View) AppendMarker(m Marker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append(v.markers, m)
}

// MarkerCount returns the current number of markers.
func (v *View) MarkerCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.markers)
}

// SetListening records voice input activity.
func (v *View) SetListening(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isListening = on
}

// SetSpeaking records agent speech activity.
func (v *View) SetSpeaking(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isSpeaking = on
}

// BeginTool replaces the tool indicator and returns the generation that
// identifies this record. The caller arms an expiry timer with it.
func (v *View) BeginTool(tool, status string, at time.Time) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toolGen++
	v.tool = &ToolExecution{Tool: tool, Status: status, StartedAt: at}
	return v.toolGen
}

// ClearTool clears the tool indicator if gen still identifies the
// current record. Reports whether anything was cleared.
func (v *View) ClearTool(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.toolGen || v.tool == nil {
		return false
	}
	v.tool = nil
	return true
}

// PushAlert prepends an alert and truncates the feed to AlertCapacity.
func (v *View) PushAlert(a Alert) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append([]Alert{a}, v.alerts...)
	if len(v.alerts) > AlertCapacity {
		v.alerts = v.alerts[:AlertCapacity]
	}
}

// SetLastEvent records the kind of the last applied event for diagnostics.
func (v *View) SetLastEvent(kind string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastEvent = kind
}

// Snapshot returns a deep copy of the view for readers.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := Snapshot{
		Connected:   v.connected,
		Markers:     append([]Marker(nil), v.markers...),
		IsListening: v.isListening,
		IsSpeaking:  v.isSpeaking,
		Alerts:      append([]Alert(nil), v.alerts...),
		LastEvent:   v.lastEvent,
	}
	if v.camera != nil {
		c := *v.camera
		s.Camera = &c
	}
	if v.tool != nil {
		t := *v.tool
		s.CurrentTool = &t
	}
	return s
}
