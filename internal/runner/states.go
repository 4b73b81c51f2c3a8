package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/grade"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StatePassed    State = "passed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
	StateError     State = "error"
)

// Terminal reports whether a run in this state can no longer change.
func (s State) Terminal() bool {
	switch s {
	case StatePassed, StateFailed, StateCancelled, StateError:
		return true
	}
	return false
}

// Run is the status snapshot of one live execution.
type Run struct {
	ID          uuid.UUID     `json:"id"`
	LevelID     string        `json:"level_id"`
	State       State         `json:"state"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Iterations  int           `json:"iterations"`
	Score       int           `json:"score"`
	Result      *grade.Result `json:"result,omitempty"`
	Error       *sketch.Error `json:"error,omitempty"`
}

type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventStatement       EventType = "statement"
	EventPinChanged      EventType = "pin_changed"
	EventIterationGraded EventType = "iteration_graded"
	EventRunCompleted    EventType = "run_completed"
)

// Event is one live update published while a run executes. The UI
// animates pins and statements from these.
type Event struct {
	RunID     uuid.UUID      `json:"run_id"`
	LevelID   string         `json:"level_id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
