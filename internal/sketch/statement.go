package sketch

import "github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"

// Statement is one recognized line of the dialect. The closed set of
// implementations below replaces the regex matching of earlier designs:
// a type switch over Statement is exhaustiveness-checked by the compiler
// and the default case is the UNRECOGNIZED_STATEMENT path.
type Statement interface {
	stmt()
}

// PinMode declares a pin direction: pinMode(pin, OUTPUT|INPUT).
type PinMode struct {
	Pin       int
	Direction board.Direction
}

// DigitalWrite sets a digital level: digitalWrite(pin, HIGH|LOW).
type DigitalWrite struct {
	Pin   int
	Level bool
}

// DutyCycleWrite sets a duty cycle in percent: setDutyCycle(pin, 0-100).
type DutyCycleWrite struct {
	Pin     int
	Percent int
}

// AnalogWrite is the legacy raw PWM form. It is recognized so the
// interpreter can reject it with a migration hint instead of reporting
// an unrecognized statement.
type AnalogWrite struct {
	Pin   int
	Value int
}

// TimerInit initializes a hardware timer: Timer1.initialize() / Timer3.initialize().
type TimerInit struct {
	Timer board.TimerID
}

// TimerPWM configures timer-driven PWM on a pin, in the timer's raw
// hardware units (Timer1: 0-1023, Timer3: 0-255).
type TimerPWM struct {
	Timer board.TimerID
	Pin   int
	Raw   int
}

// TimerStop stops a timer and releases the pins it drives.
type TimerStop struct {
	Timer board.TimerID
}

// Delay suspends execution: delay(0-10000). The interpreter treats it as
// a no-op; time belongs to whichever driver replays the statements.
type Delay struct {
	Millis int
}

// Conditional is pass-through recognition of basic `if`/`else` syntax.
// Execution ignores it, but declaration checking inspects Raw for
// digitalRead usage.
type Conditional struct {
	Raw string
}

func (*PinMode) stmt()        {}
func (*DigitalWrite) stmt()   {}
func (*DutyCycleWrite) stmt() {}
func (*AnalogWrite) stmt()    {}
func (*TimerInit) stmt()      {}
func (*TimerPWM) stmt()       {}
func (*TimerStop) stmt()      {}
func (*Delay) stmt()          {}
func (*Conditional) stmt()    {}
