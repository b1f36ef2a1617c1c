package types

import "time"

// SessionState is the tag of a recording session's status.
type SessionState string

const (
	StateIdle       SessionState = "Idle"
	StateRecording  SessionState = "Recording"
	StateProcessing SessionState = "Processing"
	StateCompleted  SessionState = "Completed"
	StateError      SessionState = "Error"
)

// SessionStatus is a tagged state; Reason is only meaningful for StateError.
type SessionStatus struct {
	State  SessionState `json:"state"`
	Reason string       `json:"reason,omitempty"`
}

func StatusIdle() SessionStatus       { return SessionStatus{State: StateIdle} }
func StatusRecording() SessionStatus  { return SessionStatus{State: StateRecording} }
func StatusProcessing() SessionStatus { return SessionStatus{State: StateProcessing} }
func StatusCompleted() SessionStatus  { return SessionStatus{State: StateCompleted} }

func StatusError(reason string) SessionStatus {
	return SessionStatus{State: StateError, Reason: reason}
}

// InFlight reports whether a recording is being captured or processed.
func (s SessionStatus) InFlight() bool {
	return s.State == StateRecording || s.State == StateProcessing
}

// RecordingSession identifies one recording attempt. It is never persisted.
type RecordingSession struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	StartTime time.Time     `json:"start_time,omitempty"`
}

// Frame is one sampled still image (JPEG) and its offset into the recording.
type Frame struct {
	Image         []byte  `json:"-"`
	OffsetSeconds float64 `json:"offset_seconds"`
}

// UIElement is a UI control inferred from the text seen on one frame.
type UIElement struct {
	Type             string  `json:"type"`
	Text             string  `json:"text"`
	State            string  `json:"state"`
	TimestampSeconds float64 `json:"timestamp"`
}
