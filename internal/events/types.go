package events

// Event type constants for kelindar/event.
const (
	TypeRecordingStarted uint32 = iota + 1
	TypeRecordingStopped
	TypeReconfigured
	TypeSignalTimeout
	TypeEngineDisconnected
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RecordingStartedEvent is published once the engine confirms recording.
type RecordingStartedEvent struct {
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for RecordingStartedEvent.
func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// RecordingStoppedEvent is published after the engine has written the file.
type RecordingStoppedEvent struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for RecordingStoppedEvent.
func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }

// ReconfiguredEvent is published after every successful reconfigure.
type ReconfiguredEvent struct {
	CaptureMode string `json:"capture_mode"`
	AudioTracks int    `json:"audio_tracks"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for ReconfiguredEvent.
func (e ReconfiguredEvent) Type() uint32 { return TypeReconfigured }

// SignalTimeoutEvent is published when an awaited output signal never arrives.
type SignalTimeoutEvent struct {
	Expected  string `json:"expected"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for SignalTimeoutEvent.
func (e SignalTimeoutEvent) Type() uint32 { return TypeSignalTimeout }

// EngineDisconnectedEvent is published when the engine host connection drops.
type EngineDisconnectedEvent struct {
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for EngineDisconnectedEvent.
func (e EngineDisconnectedEvent) Type() uint32 { return TypeEngineDisconnected }
