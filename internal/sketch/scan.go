package sketch

import (
	"strconv"
	"strings"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"
)

// Value limits of the statement grammar.
const (
	MinDutyPercent = 0
	MaxDutyPercent = 100
	MaxDelayMillis = 10000
)

// ScanLine recognizes a single statement line. It returns (nil, nil) for
// blank and comment-only lines. Unrecognized non-empty lines fail with
// CodeUnrecognized; malformed values fail with CodeInvalidValue. Pin
// range and ordering preconditions are checked later, by the interpreter.
func ScanLine(line string, lineNo int) (Statement, *Error) {
	text := strings.TrimSpace(stripLineComment(line))
	if text == "" {
		return nil, nil
	}

	if isConditional(text) {
		return &Conditional{Raw: text}, nil
	}

	s := &lineScanner{src: text, line: lineNo}
	return s.scanCall()
}

// stripLineComment removes a trailing // comment, ignoring // inside
// double-quoted strings.
func stripLineComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '"':
			inString = !inString
		case !inString && line[i] == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// isConditional recognizes the pass-through control syntax: if headers,
// else branches and bare braces that belong to them.
func isConditional(text string) bool {
	switch {
	case text == "{" || text == "}":
		return true
	case strings.HasPrefix(text, "if(") || strings.HasPrefix(text, "if ("), strings.HasPrefix(text, "if "):
		return true
	case strings.HasPrefix(text, "}"):
		// "} else {", "} else if (...) {"
		return true
	case strings.HasPrefix(text, "else"):
		return true
	}
	return false
}

type lineScanner struct {
	src  string
	pos  int
	line int
}

func (s *lineScanner) scanCall() (Statement, *Error) {
	name := s.ident()
	if name == "" {
		return nil, s.unrecognized()
	}

	var method string
	if s.peek() == '.' {
		s.pos++
		method = s.ident()
		if method == "" {
			return nil, s.unrecognized()
		}
	}

	args, err := s.argList()
	if err != nil {
		return nil, err
	}

	if !s.terminated() {
		return nil, s.unrecognized()
	}

	if method != "" {
		return s.timerStatement(name, method, args)
	}
	return s.plainStatement(name, args)
}

func (s *lineScanner) plainStatement(name string, args []string) (Statement, *Error) {
	switch name {
	case "pinMode":
		if len(args) != 2 {
			return nil, s.badArity("pinMode", 2, len(args))
		}
		pin, perr := s.intArg("pinMode", args[0])
		if perr != nil {
			return nil, perr
		}
		var dir board.Direction
		switch args[1] {
		case "OUTPUT":
			dir = board.DirOutput
		case "INPUT":
			dir = board.DirInput
		default:
			return nil, newError(CodeInvalidValue, s.line,
				"invalid pin mode %q", args[1]).withHint("use OUTPUT or INPUT")
		}
		return &PinMode{Pin: pin, Direction: dir}, nil

	case "digitalWrite":
		if len(args) != 2 {
			return nil, s.badArity("digitalWrite", 2, len(args))
		}
		pin, perr := s.intArg("digitalWrite", args[0])
		if perr != nil {
			return nil, perr
		}
		var level bool
		switch args[1] {
		case "HIGH":
			level = true
		case "LOW":
			level = false
		default:
			return nil, newError(CodeInvalidValue, s.line,
				"invalid digital level %q", args[1]).withHint("use HIGH or LOW")
		}
		return &DigitalWrite{Pin: pin, Level: level}, nil

	case "setDutyCycle":
		if len(args) != 2 {
			return nil, s.badArity("setDutyCycle", 2, len(args))
		}
		pin, perr := s.intArg("setDutyCycle", args[0])
		if perr != nil {
			return nil, perr
		}
		pct, perr := s.intArg("setDutyCycle", args[1])
		if perr != nil {
			return nil, perr
		}
		if pct < MinDutyPercent || pct > MaxDutyPercent {
			return nil, newError(CodeInvalidValue, s.line,
				"duty cycle %d out of range %d-%d", pct, MinDutyPercent, MaxDutyPercent)
		}
		return &DutyCycleWrite{Pin: pin, Percent: pct}, nil

	case "analogWrite":
		if len(args) != 2 {
			return nil, s.badArity("analogWrite", 2, len(args))
		}
		pin, perr := s.intArg("analogWrite", args[0])
		if perr != nil {
			return nil, perr
		}
		val, perr := s.intArg("analogWrite", args[1])
		if perr != nil {
			return nil, perr
		}
		return &AnalogWrite{Pin: pin, Value: val}, nil

	case "delay":
		if len(args) != 1 {
			return nil, s.badArity("delay", 1, len(args))
		}
		ms, perr := s.intArg("delay", args[0])
		if perr != nil {
			return nil, perr
		}
		if ms < 0 || ms > MaxDelayMillis {
			return nil, newError(CodeInvalidValue, s.line,
				"delay %d out of range 0-%d ms", ms, MaxDelayMillis)
		}
		return &Delay{Millis: ms}, nil
	}

	return nil, s.unrecognized()
}

func (s *lineScanner) timerStatement(receiver, method string, args []string) (Statement, *Error) {
	var timer board.TimerID
	switch receiver {
	case "Timer1":
		timer = board.Timer1
	case "Timer3":
		timer = board.Timer3
	default:
		return nil, s.unrecognized()
	}

	switch method {
	case "initialize":
		// An optional period argument is accepted and ignored; the
		// emulation only models duty cycle, not PWM frequency.
		if len(args) > 1 {
			return nil, s.badArity(receiver+".initialize", 1, len(args))
		}
		return &TimerInit{Timer: timer}, nil

	case "pwm":
		if len(args) != 2 {
			return nil, s.badArity(receiver+".pwm", 2, len(args))
		}
		pin, perr := s.intArg(receiver+".pwm", args[0])
		if perr != nil {
			return nil, perr
		}
		raw, perr := s.intArg(receiver+".pwm", args[1])
		if perr != nil {
			return nil, perr
		}
		if raw < 0 || raw > timer.RawMax() {
			return nil, newError(CodeInvalidValue, s.line,
				"%s.pwm duty %d out of range 0-%d", receiver, raw, timer.RawMax())
		}
		return &TimerPWM{Timer: timer, Pin: pin, Raw: raw}, nil

	case "stop":
		if len(args) != 0 {
			return nil, s.badArity(receiver+".stop", 0, len(args))
		}
		return &TimerStop{Timer: timer}, nil
	}

	return nil, s.unrecognized()
}

func (s *lineScanner) ident() string {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

func (s *lineScanner) argList() ([]string, *Error) {
	if s.peek() != '(' {
		return nil, s.unrecognized()
	}
	s.pos++

	depth := 1
	start := s.pos
	var args []string
	push := func(end int) {
		arg := strings.TrimSpace(s.src[start:end])
		if arg != "" || len(args) > 0 {
			args = append(args, arg)
		}
	}

	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				push(s.pos)
				s.pos++
				return args, nil
			}
		case ',':
			if depth == 1 {
				push(s.pos)
				start = s.pos + 1
			}
		}
		s.pos++
	}
	return nil, newError(CodeSyntax, s.line, "missing closing parenthesis")
}

// terminated accepts an optional trailing semicolon followed only by
// whitespace.
func (s *lineScanner) terminated() bool {
	rest := strings.TrimSpace(s.src[s.pos:])
	return rest == "" || rest == ";"
}

func (s *lineScanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *lineScanner) intArg(call, arg string) (int, *Error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, newError(CodeInvalidValue, s.line,
			"%s expects a number, got %q", call, arg)
	}
	return n, nil
}

func (s *lineScanner) badArity(call string, want, got int) *Error {
	return newError(CodeInvalidValue, s.line,
		"%s expects %d argument(s), got %d", call, want, got)
}

func (s *lineScanner) unrecognized() *Error {
	return newError(CodeUnrecognized, s.line,
		"unrecognized statement: %s", s.src).withHint(
		"supported statements: pinMode, digitalWrite, setDutyCycle, Timer1/Timer3 pwm, delay")
}
