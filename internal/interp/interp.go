package interp

import (
	"strconv"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
)

// ChangeKind tags a pin change with the statement family that caused it.
type ChangeKind string

const (
	KindDigital ChangeKind = "digital"
	KindPWM     ChangeKind = "pwm"
)

// PinChange is reported whenever a statement actually changes a pin's
// effective state. DutyPercent is set for PWM changes only.
type PinChange struct {
	Pin         int
	On          bool
	Kind        ChangeKind
	DutyPercent *int
}

// Interpreter is a pure state-transition function from (board, statement)
// to board, plus error signaling. It never sleeps: delay statements are
// no-ops here and belong to whichever driver replays the program, so the
// same interpreter serves both the virtual-clock and the real-time
// regime. Exactly one driver owns an interpreter at a time.
type Interpreter struct {
	board *board.Board
}

func New(b *board.Board) *Interpreter {
	return &Interpreter{board: b}
}

func (in *Interpreter) Board() *board.Board {
	return in.board
}

// ExecuteLine scans and applies a single source line.
func (in *Interpreter) ExecuteLine(line string, lineNo int) ([]PinChange, error) {
	stmt, serr := sketch.ScanLine(line, lineNo)
	if serr != nil {
		return nil, serr
	}
	if stmt == nil {
		return nil, nil
	}
	return in.Apply(stmt, lineNo)
}

// Apply executes one statement against the board and returns the pin
// changes it caused. Preconditions are enforced here: pins must be in
// the usable range, writes require an OUTPUT direction and timers must
// be initialized before use.
func (in *Interpreter) Apply(stmt sketch.Statement, lineNo int) ([]PinChange, error) {
	switch st := stmt.(type) {
	case *sketch.PinMode:
		return nil, in.pinMode(st, lineNo)

	case *sketch.DigitalWrite:
		return in.digitalWrite(st, lineNo)

	case *sketch.DutyCycleWrite:
		return in.dutyCycleWrite(st, lineNo)

	case *sketch.AnalogWrite:
		return nil, &sketch.Error{
			Code:    sketch.CodeLegacyStatement,
			Line:    lineNo,
			Message: "analogWrite is not supported",
			Hint:    "use setDutyCycle(pin, 0-100) instead",
		}

	case *sketch.TimerInit:
		in.board.Timer(st.Timer).Initialized = true
		return nil, nil

	case *sketch.TimerPWM:
		return in.timerPWM(st, lineNo)

	case *sketch.TimerStop:
		return in.timerStop(st), nil

	case *sketch.Delay, *sketch.Conditional:
		return nil, nil
	}

	return nil, &sketch.Error{
		Code:    sketch.CodeUnrecognized,
		Line:    lineNo,
		Message: "unrecognized statement",
	}
}

func (in *Interpreter) pinMode(st *sketch.PinMode, lineNo int) error {
	pin, err := in.pin(st.Pin, lineNo)
	if err != nil {
		return err
	}
	pin.Direction = st.Direction
	return nil
}

func (in *Interpreter) digitalWrite(st *sketch.DigitalWrite, lineNo int) ([]PinChange, error) {
	pin, err := in.outputPin(st.Pin, lineNo)
	if err != nil {
		return nil, err
	}

	before := *pin
	pin.Level = st.Level
	return changed(before, *pin, st.Pin, KindDigital), nil
}

func (in *Interpreter) dutyCycleWrite(st *sketch.DutyCycleWrite, lineNo int) ([]PinChange, error) {
	pin, err := in.outputPin(st.Pin, lineNo)
	if err != nil {
		return nil, err
	}

	before := *pin
	pin.PWM = board.PercentToPWM(st.Percent)
	return changed(before, *pin, st.Pin, KindPWM), nil
}

func (in *Interpreter) timerPWM(st *sketch.TimerPWM, lineNo int) ([]PinChange, error) {
	timer := in.board.Timer(st.Timer)
	if !timer.Initialized {
		return nil, &sketch.Error{
			Code:    sketch.CodeUninitializedTimer,
			Line:    lineNo,
			Message: st.Timer.String() + ".pwm called before " + st.Timer.String() + ".initialize()",
			Hint:    "call " + st.Timer.String() + ".initialize() in setup() first",
		}
	}

	pin, err := in.outputPin(st.Pin, lineNo)
	if err != nil {
		return nil, err
	}

	before := *pin
	pin.PWM = board.RawToPWM(st.Raw, st.Timer.RawMax())
	timer.Pins[st.Pin] = true
	return changed(before, *pin, st.Pin, KindPWM), nil
}

// timerStop releases every pin the timer drives. Stopping an
// uninitialized timer is a harmless no-op, matching the hardware library.
func (in *Interpreter) timerStop(st *sketch.TimerStop) []PinChange {
	timer := in.board.Timer(st.Timer)
	timer.Initialized = false

	var changes []PinChange
	for n := board.MinPin; n <= board.MaxPin; n++ {
		if !timer.Pins[n] {
			continue
		}
		pin, _ := in.board.Pin(n)
		before := *pin
		pin.PWM = 0
		changes = append(changes, changed(before, *pin, n, KindPWM)...)
	}
	timer.Pins = make(map[int]bool)
	return changes
}

func (in *Interpreter) pin(n int, lineNo int) (*board.PinState, error) {
	pin, ok := in.board.Pin(n)
	if !ok {
		return nil, &sketch.Error{
			Code:    sketch.CodeInvalidPin,
			Line:    lineNo,
			Message: "pin " + strconv.Itoa(n) + " is outside the usable range",
			Hint:    "use pins " + strconv.Itoa(board.MinPin) + "-" + strconv.Itoa(board.MaxPin),
		}
	}
	return pin, nil
}

func (in *Interpreter) outputPin(n int, lineNo int) (*board.PinState, error) {
	pin, err := in.pin(n, lineNo)
	if err != nil {
		return nil, err
	}
	if pin.Direction != board.DirOutput {
		return nil, &sketch.Error{
			Code:    sketch.CodeUndeclaredPin,
			Line:    lineNo,
			Message: "pin " + strconv.Itoa(n) + " written without OUTPUT direction",
			Hint:    "add pinMode(" + strconv.Itoa(n) + ", OUTPUT); to setup()",
		}
	}
	return pin, nil
}

// changed compares effective state before and after a write and reports
// at most one change. Effective state is (on, pwm): a PWM value above
// zero keeps the pin on regardless of digital level.
func changed(before, after board.PinState, pinNo int, kind ChangeKind) []PinChange {
	if before.On() == after.On() && before.PWM == after.PWM {
		return nil
	}
	ch := PinChange{Pin: pinNo, On: after.On(), Kind: kind}
	if kind == KindPWM {
		duty := after.DutyPercent()
		ch.DutyPercent = &duty
	}
	return []PinChange{ch}
}

