package websocket

import (
	"time"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/runner"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Run execution messages
	MessageTypeRunStarted      MessageType = "run_started"
	MessageTypeStatement       MessageType = "statement"
	MessageTypePinChanged      MessageType = "pin_changed"
	MessageTypeIterationGraded MessageType = "iteration_graded"
	MessageTypeRunCompleted    MessageType = "run_completed"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
	LevelID   string      `json:"level_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewRunEventMessage converts a run event into its wire form.
func NewRunEventMessage(event *runner.Event) Message {
	return Message{
		Type:      MessageType(event.Type),
		Timestamp: event.Timestamp,
		RunID:     event.RunID.String(),
		LevelID:   event.LevelID,
		Data:      event.Data,
	}
}
