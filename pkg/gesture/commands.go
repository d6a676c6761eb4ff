package gesture

// Command name constants for the outbound half of the protocol.
const (
	CmdStartListening = "START_LISTENING"
	CmdStopListening  = "STOP_LISTENING"
	CmdDropMarker     = "DROP_MARKER"
)

// StartListeningCommand asks the controller to begin voice capture.
type StartListeningCommand struct {
	Command string `json:"command"`
}

// StopListeningCommand ends voice capture, optionally carrying the
// transcription produced on the client side.
type StopListeningCommand struct {
	Command       string `json:"command"`
	Transcription string `json:"transcription,omitempty"`
}

// DropMarkerCommand places a marker at the given coordinates.
type DropMarkerCommand struct {
	Command string  `json:"command"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// NewStartListening builds a START_LISTENING command.
func NewStartListening() StartListeningCommand {
	return StartListeningCommand{Command: CmdStartListening}
}

// NewStopListening builds a STOP_LISTENING command.
func NewStopListening(transcription string) StopListeningCommand {
	return StopListeningCommand{Command: CmdStopListening, Transcription: transcription}
}

// NewDropMarker builds a DROP_MARKER command.
func NewDropMarker(lat, lon float64) DropMarkerCommand {
	return DropMarkerCommand{Command: CmdDropMarker, Lat: lat, Lon: lon}
}
