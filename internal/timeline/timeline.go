package timeline

import "github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interp"

// Origin identifies which entry-point body emitted an event.
type Origin string

const (
	OriginSetup Origin = "setup"
	OriginLoop  Origin = "loop"
)

// Event is one observable pin-state change. This shape is the interchange
// format between the extractor, the live recorder and the grader; it must
// round-trip losslessly between producer and consumer.
type Event struct {
	TimeMs      int64             `json:"time_ms"`
	Pin         int               `json:"pin"`
	On          bool              `json:"on"`
	Kind        interp.ChangeKind `json:"kind"`
	Origin      Origin            `json:"origin"`
	DutyPercent *int              `json:"duty_percent,omitempty"`
}

// Sequence is a time-ordered pin event timeline. It is owned by whichever
// producer built it and never mutated after being handed to the grader.
type Sequence struct {
	Events          []Event `json:"events"`
	TotalDurationMs int64   `json:"total_duration_ms"`
	Looping         bool    `json:"looping"`
}

func eventFromChange(ch interp.PinChange, timeMs int64, origin Origin) Event {
	return Event{
		TimeMs:      timeMs,
		Pin:         ch.Pin,
		On:          ch.On,
		Kind:        ch.Kind,
		Origin:      origin,
		DutyPercent: ch.DutyPercent,
	}
}
