package interp

import (
	"errors"
	"testing"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
)

func newTestInterp(t *testing.T, lines ...string) *Interpreter {
	t.Helper()
	in := New(board.New())
	for i, line := range lines {
		if _, err := in.ExecuteLine(line, i+1); err != nil {
			t.Fatalf("setup line %q failed: %v", line, err)
		}
	}
	return in
}

func mustExecute(t *testing.T, in *Interpreter, line string) []PinChange {
	t.Helper()
	changes, err := in.ExecuteLine(line, 1)
	if err != nil {
		t.Fatalf("ExecuteLine(%q) failed: %v", line, err)
	}
	return changes
}

func sketchCode(t *testing.T, err error) sketch.Code {
	t.Helper()
	var serr *sketch.Error
	if !errors.As(err, &serr) {
		t.Fatalf("error %v is not a sketch error", err)
	}
	return serr.Code
}

func TestDigitalWriteEmitsOnEffectiveChange(t *testing.T) {
	in := newTestInterp(t, "pinMode(13, OUTPUT);")

	changes := mustExecute(t, in, "digitalWrite(13, HIGH);")
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one", changes)
	}
	if ch := changes[0]; ch.Pin != 13 || !ch.On || ch.Kind != KindDigital {
		t.Errorf("change = %+v", ch)
	}

	// Writing the same level again changes nothing.
	if changes := mustExecute(t, in, "digitalWrite(13, HIGH);"); len(changes) != 0 {
		t.Errorf("repeated HIGH emitted %v", changes)
	}

	changes = mustExecute(t, in, "digitalWrite(13, LOW);")
	if len(changes) != 1 || changes[0].On {
		t.Errorf("LOW change = %v", changes)
	}
}

func TestPWMOverridesDigitalLevel(t *testing.T) {
	in := newTestInterp(t, "pinMode(10, OUTPUT);", "setDutyCycle(10, 50);")

	// Pin is held on by PWM; toggling the digital level must not
	// produce an effective change.
	if changes := mustExecute(t, in, "digitalWrite(10, HIGH);"); len(changes) != 0 {
		t.Errorf("digital HIGH under PWM emitted %v", changes)
	}
	if changes := mustExecute(t, in, "digitalWrite(10, LOW);"); len(changes) != 0 {
		t.Errorf("digital LOW under PWM emitted %v", changes)
	}

	changes := mustExecute(t, in, "setDutyCycle(10, 0);")
	if len(changes) != 1 || changes[0].On {
		t.Fatalf("zero duty change = %v", changes)
	}
}

func TestDutyCycleChangeCarriesPercent(t *testing.T) {
	in := newTestInterp(t, "pinMode(10, OUTPUT);")

	changes := mustExecute(t, in, "setDutyCycle(10, 50);")
	if len(changes) != 1 {
		t.Fatalf("changes = %v", changes)
	}
	ch := changes[0]
	if ch.Kind != KindPWM || ch.DutyPercent == nil || *ch.DutyPercent != 50 {
		t.Errorf("change = %+v", ch)
	}
}

func TestWriteRequiresOutputDirection(t *testing.T) {
	in := New(board.New())

	_, err := in.ExecuteLine("digitalWrite(13, HIGH);", 3)
	if code := sketchCode(t, err); code != sketch.CodeUndeclaredPin {
		t.Errorf("code = %s, want UNDECLARED_PIN", code)
	}

	in = newTestInterp(t, "pinMode(13, INPUT);")
	_, err = in.ExecuteLine("digitalWrite(13, HIGH);", 3)
	if code := sketchCode(t, err); code != sketch.CodeUndeclaredPin {
		t.Errorf("code = %s, want UNDECLARED_PIN", code)
	}
}

func TestInvalidPinRange(t *testing.T) {
	in := New(board.New())

	_, err := in.ExecuteLine("pinMode(7, OUTPUT);", 1)
	if code := sketchCode(t, err); code != sketch.CodeInvalidPin {
		t.Errorf("pin 7 code = %s, want INVALID_PIN", code)
	}

	_, err = in.ExecuteLine("pinMode(14, OUTPUT);", 1)
	if code := sketchCode(t, err); code != sketch.CodeInvalidPin {
		t.Errorf("pin 14 code = %s, want INVALID_PIN", code)
	}
}

func TestAnalogWriteRejectedWithHint(t *testing.T) {
	in := newTestInterp(t, "pinMode(10, OUTPUT);")

	_, err := in.ExecuteLine("analogWrite(10, 128);", 5)
	var serr *sketch.Error
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v", err)
	}
	if serr.Code != sketch.CodeLegacyStatement {
		t.Errorf("code = %s, want LEGACY_STATEMENT", serr.Code)
	}
	if serr.Hint == "" {
		t.Error("expected a migration hint")
	}
	if serr.Line != 5 {
		t.Errorf("line = %d, want 5", serr.Line)
	}
}

func TestTimerPWMRequiresInitialize(t *testing.T) {
	in := newTestInterp(t, "pinMode(10, OUTPUT);")

	_, err := in.ExecuteLine("Timer1.pwm(10, 512);", 2)
	if code := sketchCode(t, err); code != sketch.CodeUninitializedTimer {
		t.Errorf("code = %s, want UNINITIALIZED_TIMER", code)
	}

	mustExecute(t, in, "Timer1.initialize();")
	changes := mustExecute(t, in, "Timer1.pwm(10, 512);")
	if len(changes) != 1 {
		t.Fatalf("changes = %v", changes)
	}
	ch := changes[0]
	if !ch.On || ch.Kind != KindPWM || ch.DutyPercent == nil || *ch.DutyPercent != 50 {
		t.Errorf("change = %+v", ch)
	}
}

func TestTimersAreIndependent(t *testing.T) {
	in := newTestInterp(t, "pinMode(10, OUTPUT);", "Timer1.initialize();")

	_, err := in.ExecuteLine("Timer3.pwm(10, 100);", 3)
	if code := sketchCode(t, err); code != sketch.CodeUninitializedTimer {
		t.Errorf("code = %s, want UNINITIALIZED_TIMER", code)
	}
}

func TestTimerStopReleasesDrivenPins(t *testing.T) {
	in := newTestInterp(t,
		"pinMode(10, OUTPUT);",
		"pinMode(11, OUTPUT);",
		"Timer1.initialize();",
		"Timer1.pwm(10, 512);",
		"Timer1.pwm(11, 1023);",
	)

	changes := mustExecute(t, in, "Timer1.stop();")
	if len(changes) != 2 {
		t.Fatalf("stop changes = %v, want two", changes)
	}
	for _, ch := range changes {
		if ch.On {
			t.Errorf("pin %d still on after stop", ch.Pin)
		}
	}

	// Stopping again is a no-op.
	if changes := mustExecute(t, in, "Timer1.stop();"); len(changes) != 0 {
		t.Errorf("second stop emitted %v", changes)
	}
}

func TestTimerStopKeepsDigitallyHighPinOn(t *testing.T) {
	in := newTestInterp(t,
		"pinMode(10, OUTPUT);",
		"digitalWrite(10, HIGH);",
		"Timer1.initialize();",
		"Timer1.pwm(10, 512);",
	)

	// The digital level is still HIGH, so removing PWM changes the
	// duty but not the on state.
	changes := mustExecute(t, in, "Timer1.stop();")
	if len(changes) != 1 {
		t.Fatalf("stop changes = %v", changes)
	}
	if !changes[0].On {
		t.Error("pin should stay on via digital level")
	}
}

func TestDelayAndConditionalAreNoOps(t *testing.T) {
	in := newTestInterp(t, "pinMode(13, OUTPUT);")

	for _, line := range []string{"delay(500);", "if (digitalRead(8) == HIGH) {", "}"} {
		changes, err := in.ExecuteLine(line, 1)
		if err != nil {
			t.Fatalf("ExecuteLine(%q) failed: %v", line, err)
		}
		if len(changes) != 0 {
			t.Errorf("ExecuteLine(%q) emitted %v", line, changes)
		}
	}
}

func TestTimer1RawScaleNormalization(t *testing.T) {
	in := newTestInterp(t, "pinMode(10, OUTPUT);", "Timer1.initialize();")

	mustExecute(t, in, "Timer1.pwm(10, 1023);")
	pin, _ := in.Board().Pin(10)
	if pin.PWM != board.PWMMax {
		t.Errorf("PWM = %d, want %d", pin.PWM, board.PWMMax)
	}
}
