package board

import "math"

// Usable pin range of the simulated board.
const (
	MinPin = 8
	MaxPin = 13
)

// PWMMax is the normalized raw PWM scale. All raw hardware units
// (Timer1 0-1023, Timer3 0-255) are normalized to this scale.
const PWMMax = 255

type Direction int

const (
	DirUnset Direction = iota
	DirInput
	DirOutput
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "INPUT"
	case DirOutput:
		return "OUTPUT"
	default:
		return "UNSET"
	}
}

// TimerID identifies one of the two emulated hardware timers.
type TimerID int

const (
	Timer1 TimerID = 1
	Timer3 TimerID = 3
)

func (t TimerID) String() string {
	if t == Timer1 {
		return "Timer1"
	}
	return "Timer3"
}

// RawMax returns the raw duty scale of the timer's hardware unit.
func (t TimerID) RawMax() int {
	if t == Timer1 {
		return 1023
	}
	return 255
}

// PinState holds the mutable state of a single pin.
type PinState struct {
	Direction Direction
	Level     bool // digital level written via digitalWrite
	PWM       int  // 0..PWMMax, normalized
}

// On reports the pin's effective on/off state. A PWM value above zero
// always implies "on", regardless of the digital level.
func (p PinState) On() bool {
	return p.PWM > 0 || p.Level
}

// DutyPercent derives the 0-100 duty cycle from the normalized PWM value.
func (p PinState) DutyPercent() int {
	return int(math.Round(float64(p.PWM) * 100 / PWMMax))
}

type TimerState struct {
	Initialized bool
	// Pins currently driven by this timer; cleared on stop.
	Pins map[int]bool
}

// Board is the pin-state model. One interpretation pass owns exactly one
// board; the static and live regimes never share an instance.
type Board struct {
	pins   map[int]*PinState
	timers map[TimerID]*TimerState
}

func New() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reset returns every pin to unset/off and de-initializes both timers.
func (b *Board) Reset() {
	b.pins = make(map[int]*PinState, MaxPin-MinPin+1)
	for n := MinPin; n <= MaxPin; n++ {
		b.pins[n] = &PinState{}
	}
	b.timers = map[TimerID]*TimerState{
		Timer1: {Pins: make(map[int]bool)},
		Timer3: {Pins: make(map[int]bool)},
	}
}

// ValidPin reports whether n is within the usable pin range.
func ValidPin(n int) bool {
	return n >= MinPin && n <= MaxPin
}

// Pin returns the state of pin n. The second return is false for pins
// outside the usable range.
func (b *Board) Pin(n int) (*PinState, bool) {
	if !ValidPin(n) {
		return nil, false
	}
	return b.pins[n], true
}

func (b *Board) Timer(id TimerID) *TimerState {
	return b.timers[id]
}

// PercentToPWM converts a 0-100 duty cycle to the normalized PWM scale.
func PercentToPWM(percent int) int {
	return int(math.Round(float64(percent) * PWMMax / 100))
}

// RawToPWM normalizes a raw timer duty value to the 0-255 scale.
func RawToPWM(raw int, rawMax int) int {
	if rawMax == PWMMax {
		return raw
	}
	return int(math.Round(float64(raw) * PWMMax / float64(rawMax)))
}
