// Package gesture defines the wire protocol spoken between the gesture
// controller and the HUD engine: inbound event frames and outbound commands.
package gesture

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type constants matching the gesture controller protocol.
const (
	TypeInit            = "INIT"
	TypeMove            = "MOVE"
	TypeSelect          = "SELECT"
	TypeZoom            = "ZOOM"
	TypeRotate          = "ROTATE"
	TypeVoiceStart      = "VOICE_START"
	TypeVoiceEnd        = "VOICE_END"
	TypeAgentSpeakStart = "AGENT_SPEAK_START"
	TypeAgentSpeakEnd   = "AGENT_SPEAK_END"
	TypeToolExecute     = "TOOL_EXECUTE"
	TypeAlert           = "ALERT"
)

// knownTypes is the closed set of event kinds the engine accepts.
var knownTypes = map[string]struct{}{
	TypeInit:            {},
	TypeMove:            {},
	TypeSelect:          {},
	TypeZoom:            {},
	TypeRotate:          {},
	TypeVoiceStart:      {},
	TypeVoiceEnd:        {},
	TypeAgentSpeakStart: {},
	TypeAgentSpeakEnd:   {},
	TypeToolExecute:     {},
	TypeAlert:           {},
}

// KnownType reports whether t is one of the recognized event kinds.
func KnownType(t string) bool {
	_, ok := knownTypes[t]
	return ok
}

// Frame is the raw inbound message as it appears on the wire.
// The timestamp stays a string here; the controller emits bare ISO-8601
// without a zone offset, which time.Time refuses to unmarshal directly.
type Frame struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Event is a validated inbound message with a parsed timestamp.
// The payload is kept raw; decode it with the typed Decode* methods.
type Event struct {
	Type      string
	Timestamp time.Time
	Data      json.RawMessage
}

// timestampLayouts covers the formats the controller is known to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp, tolerating a missing zone
// offset. Returns the zero time and an error if no layout matches.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CameraPayload carries a full camera pose. MOVE events replace the
// camera wholesale with these fields.
type CameraPayload struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Altitude   float64 `json:"altitude"`
	TargetName string  `json:"target_name,omitempty"`
}

// MarkerPayload is a marker as transmitted in INIT and SELECT events.
type MarkerPayload struct {
	Name       string  `json:"name,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	MarkerType string  `json:"marker_type,omitempty"`
}

// InitPayload seeds the session: camera pose plus the full marker list.
// Either field may be absent.
type InitPayload struct {
	Camera  *CameraPayload  `json:"camera"`
	Markers []MarkerPayload `json:"markers"`
}

// ZoomPayload adjusts camera altitude by a delta in meters.
type ZoomPayload struct {
	Delta float64 `json:"delta"`
}

// RotatePayload adjusts the camera heading by an angle in degrees.
type RotatePayload struct {
	Angle float64 `json:"angle"`
}

// VoiceEndPayload optionally carries the transcription of the utterance.
type VoiceEndPayload struct {
	Transcription string `json:"transcription,omitempty"`
}

// AgentSpeakPayload identifies which agent started or stopped speaking.
type AgentSpeakPayload struct {
	Agent   string `json:"agent,omitempty"`
	Message string `json:"message,omitempty"`
}

// ToolExecutePayload announces a running tool invocation.
type ToolExecutePayload struct {
	Tool   string `json:"tool"`
	Status string `json:"status"`
}

// AlertPayload is a system alert for the HUD feed.
type AlertPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (e Event) decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// DecodeInit decodes an INIT payload.
func (e Event) DecodeInit() (InitPayload, error) {
	var p InitPayload
	err := e.decode(&p)
	return p, err
}

// DecodeMove decodes a MOVE payload.
func (e Event) DecodeMove() (CameraPayload, error) {
	var p CameraPayload
	err := e.decode(&p)
	return p, err
}

// DecodeSelect decodes a SELECT payload.
func (e Event) DecodeSelect() (MarkerPayload, error) {
	var p MarkerPayload
	err := e.decode(&p)
	return p, err
}

// DecodeZoom decodes a ZOOM payload.
func (e Event) DecodeZoom() (ZoomPayload, error) {
	var p ZoomPayload
	err := e.decode(&p)
	return p, err
}

// DecodeRotate decodes a ROTATE payload.
func (e Event) DecodeRotate() (RotatePayload, error) {
	var p RotatePayload
	err := e.decode(&p)
	return p, err
}

// DecodeVoiceEnd decodes a VOICE_END payload.
func (e Event) DecodeVoiceEnd() (VoiceEndPayload, error) {
	var p VoiceEndPayload
	err := e.decode(&p)
	return p, err
}

// DecodeAgentSpeak decodes an AGENT_SPEAK_START or AGENT_SPEAK_END payload.
func (e Event) DecodeAgentSpeak() (AgentSpeakPayload, error) {
	var p AgentSpeakPayload
	err := e.decode(&p)
	return p, err
}

// DecodeToolExecute decodes a TOOL_EXECUTE payload. The tool name is
// required; a frame without it is a format error.
func (e Event) DecodeToolExecute() (ToolExecutePayload, error) {
	var p ToolExecutePayload
	if err := e.decode(&p); err != nil {
		return p, err
	}
	if p.Tool == "" {
		return p, fmt.Errorf("TOOL_EXECUTE payload missing tool name")
	}
	return p, nil
}

// DecodeAlert decodes an ALERT payload. The message is required.
func (e Event) DecodeAlert() (AlertPayload, error) {
	var p AlertPayload
	if err := e.decode(&p); err != nil {
		return p, err
	}
	if p.Message == "" {
		return p, fmt.Errorf("ALERT payload missing message")
	}
	return p, nil
}
