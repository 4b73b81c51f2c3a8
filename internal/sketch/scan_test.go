package sketch

import (
	"testing"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"
)

func TestScanLineStatements(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Statement
	}{
		{"pin mode output", "pinMode(13, OUTPUT);", &PinMode{Pin: 13, Direction: board.DirOutput}},
		{"pin mode input", "pinMode(8, INPUT);", &PinMode{Pin: 8, Direction: board.DirInput}},
		{"digital high", "digitalWrite(13, HIGH);", &DigitalWrite{Pin: 13, Level: true}},
		{"digital low", "digitalWrite(13, LOW);", &DigitalWrite{Pin: 13, Level: false}},
		{"no semicolon", "digitalWrite(13, HIGH)", &DigitalWrite{Pin: 13, Level: true}},
		{"extra spaces", "  digitalWrite( 13 , HIGH ) ; ", &DigitalWrite{Pin: 13, Level: true}},
		{"duty cycle", "setDutyCycle(10, 50);", &DutyCycleWrite{Pin: 10, Percent: 50}},
		{"analog write", "analogWrite(10, 128);", &AnalogWrite{Pin: 10, Value: 128}},
		{"delay", "delay(1000);", &Delay{Millis: 1000}},
		{"timer1 init", "Timer1.initialize(1000);", &TimerInit{Timer: board.Timer1}},
		{"timer1 init bare", "Timer1.initialize();", &TimerInit{Timer: board.Timer1}},
		{"timer1 pwm", "Timer1.pwm(10, 512);", &TimerPWM{Timer: board.Timer1, Pin: 10, Raw: 512}},
		{"timer3 pwm", "Timer3.pwm(10, 200);", &TimerPWM{Timer: board.Timer3, Pin: 10, Raw: 200}},
		{"timer1 stop", "Timer1.stop();", &TimerStop{Timer: board.Timer1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, serr := ScanLine(tt.line, 1)
			if serr != nil {
				t.Fatalf("ScanLine(%q) error: %v", tt.line, serr)
			}
			assertStatement(t, got, tt.want)
		})
	}
}

func assertStatement(t *testing.T, got, want Statement) {
	t.Helper()
	switch w := want.(type) {
	case *PinMode:
		g, ok := got.(*PinMode)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *DigitalWrite:
		g, ok := got.(*DigitalWrite)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *DutyCycleWrite:
		g, ok := got.(*DutyCycleWrite)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *AnalogWrite:
		g, ok := got.(*AnalogWrite)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *Delay:
		g, ok := got.(*Delay)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *TimerInit:
		g, ok := got.(*TimerInit)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *TimerPWM:
		g, ok := got.(*TimerPWM)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	case *TimerStop:
		g, ok := got.(*TimerStop)
		if !ok || *g != *w {
			t.Errorf("got %#v, want %#v", got, want)
		}
	default:
		t.Fatalf("unhandled statement type %T", want)
	}
}

func TestScanLineSkipsBlankAndComments(t *testing.T) {
	for _, line := range []string{"", "   ", "// comment", "  // indented comment"} {
		stmt, serr := ScanLine(line, 1)
		if stmt != nil || serr != nil {
			t.Errorf("ScanLine(%q) = %v, %v; want nil, nil", line, stmt, serr)
		}
	}
}

func TestScanLineTrailingComment(t *testing.T) {
	stmt, serr := ScanLine("digitalWrite(13, HIGH); // turn on", 1)
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}
	dw, ok := stmt.(*DigitalWrite)
	if !ok || dw.Pin != 13 || !dw.Level {
		t.Errorf("got %#v", stmt)
	}
}

func TestScanLineConditionals(t *testing.T) {
	for _, line := range []string{
		"if (digitalRead(8) == HIGH) {",
		"} else {",
		"}",
		"{",
	} {
		stmt, serr := ScanLine(line, 1)
		if serr != nil {
			t.Fatalf("ScanLine(%q) error: %v", line, serr)
		}
		if _, ok := stmt.(*Conditional); !ok {
			t.Errorf("ScanLine(%q) = %T, want *Conditional", line, stmt)
		}
	}
}

func TestScanLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		code Code
	}{
		{"unknown call", "digitalToggle(13);", CodeUnrecognized},
		{"not a call", "int x = 5;", CodeUnrecognized},
		{"bad level", "digitalWrite(13, MEDIUM);", CodeInvalidValue},
		{"bad mode", "pinMode(13, OUT);", CodeInvalidValue},
		{"bad arity", "digitalWrite(13);", CodeInvalidValue},
		{"non numeric pin", "digitalWrite(led, HIGH);", CodeInvalidValue},
		{"duty over 100", "setDutyCycle(10, 101);", CodeInvalidValue},
		{"duty negative", "setDutyCycle(10, -1);", CodeInvalidValue},
		{"delay negative", "delay(-5);", CodeInvalidValue},
		{"delay too long", "delay(10001);", CodeInvalidValue},
		{"timer1 raw over", "Timer1.pwm(10, 1024);", CodeInvalidValue},
		{"timer3 raw over", "Timer3.pwm(10, 256);", CodeInvalidValue},
		{"unknown timer", "Timer2.pwm(10, 100);", CodeUnrecognized},
		{"unknown method", "Timer1.setPeriod(100);", CodeUnrecognized},
		{"missing paren", "digitalWrite(13, HIGH", CodeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, serr := ScanLine(tt.line, 7)
			if serr == nil {
				t.Fatalf("ScanLine(%q) = %#v, want error", tt.line, stmt)
			}
			if serr.Code != tt.code {
				t.Errorf("ScanLine(%q) code = %s, want %s", tt.line, serr.Code, tt.code)
			}
			if serr.Line != 7 {
				t.Errorf("ScanLine(%q) line = %d, want 7", tt.line, serr.Line)
			}
		})
	}
}

func TestTimerRawBoundsPerTimer(t *testing.T) {
	// 1023 is fine for Timer1 but out of range for Timer3.
	if _, serr := ScanLine("Timer1.pwm(10, 1023);", 1); serr != nil {
		t.Errorf("Timer1.pwm 1023 rejected: %v", serr)
	}
	if _, serr := ScanLine("Timer3.pwm(10, 1023);", 1); serr == nil {
		t.Error("Timer3.pwm 1023 accepted, want error")
	}
}
