package sketch

import (
	"fmt"
	"strconv"
	"strings"
)

// Program is the parsed form of a submission: the two fixed entry-point
// bodies plus the library declarations seen above them. Immutable after
// Parse returns.
type Program struct {
	Setup    Body
	Loop     Body
	Includes []Include
	Warnings []Issue
}

type Body struct {
	Source    string // text between the entry point's braces
	StartLine int    // 1-based line of the opening brace
	Found     bool
}

type Include struct {
	Header string
	Line   int
}

// Line is one body line with its original source position.
type Line struct {
	Number int
	Text   string
}

// Lines splits the body into lines keyed by original line numbers.
// Blank and comment-only lines are kept; ScanLine skips them.
func (b Body) Lines() []Line {
	if b.Source == "" {
		return nil
	}
	parts := strings.Split(b.Source, "\n")
	lines := make([]Line, 0, len(parts))
	for i, text := range parts {
		lines = append(lines, Line{Number: b.StartLine + i, Text: text})
	}
	return lines
}

// HasInclude reports whether header was declared before the given line.
func (p *Program) HasInclude(header string, beforeLine int) bool {
	for _, inc := range p.Includes {
		if inc.Header == header && inc.Line < beforeLine {
			return true
		}
	}
	return false
}

// Parse extracts and validates a program. Pin-direction violations are
// hard errors: learner submissions must declare before use.
func Parse(source string) (*Program, error) {
	return parse(source, true)
}

// ParseLenient demotes pin-direction violations to warnings. Target
// sketches are parsed this way so that a permissive extraction pass can
// drop the offending writes instead of failing outright.
func ParseLenient(source string) (*Program, error) {
	return parse(source, false)
}

func parse(source string, strictDirections bool) (*Program, error) {
	if strings.TrimSpace(source) == "" {
		return nil, newError(CodeEmptySource, 0, "source is empty")
	}

	if err := checkBrackets(source); err != nil {
		return nil, err
	}

	prog := &Program{Includes: scanIncludes(source)}

	prog.Setup = extractBody(source, "setup")
	prog.Loop = extractBody(source, "loop")

	if !prog.Setup.Found && !prog.Loop.Found {
		return nil, newError(CodeMissingEntryPoints, 0,
			"no setup() or loop() entry point found").withHint(
			"define void setup() { } and void loop() { }")
	}
	if !prog.Setup.Found {
		prog.Warnings = append(prog.Warnings, Issue{
			Code:     CodeMissingEntryPoints,
			Severity: SevWarning,
			Message:  "setup() not found, treated as empty",
		})
	}
	if !prog.Loop.Found {
		prog.Warnings = append(prog.Warnings, Issue{
			Code:     CodeMissingEntryPoints,
			Severity: SevWarning,
			Message:  "loop() not found, treated as empty",
		})
	}

	if err := checkTimerLibraries(prog); err != nil {
		return nil, err
	}

	if err := checkDeclarations(prog, strictDirections); err != nil {
		return nil, err
	}

	return prog, nil
}

// Check runs the full static analysis and folds every finding into a
// single report for the check endpoint.
func Check(source string) Report {
	rep := Report{}

	prog, err := Parse(source)
	if err != nil {
		if serr, ok := err.(*Error); ok {
			rep.Errors = append(rep.Errors, issueFrom(serr, SevError))
		} else {
			rep.Errors = append(rep.Errors, Issue{
				Code: CodeSyntax, Severity: SevError, Message: err.Error(),
			})
		}
		return rep
	}

	rep.Warnings = append(rep.Warnings, prog.Warnings...)

	// Statement-level findings the parser defers to execution time.
	for _, body := range []Body{prog.Setup, prog.Loop} {
		for _, ln := range body.Lines() {
			if _, serr := ScanLine(ln.Text, ln.Number); serr != nil {
				rep.Errors = append(rep.Errors, issueFrom(serr, SevError))
			}
		}
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}

type bracket struct {
	open byte
	line int
	col  int
}

func closerFor(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '{':
		return '}'
	default:
		return ']'
	}
}

// checkBrackets verifies bracket balance over the whole source with a
// stack. Quotes and line comments do not count toward nesting. Positions
// are 1-based.
func checkBrackets(source string) *Error {
	var stack []bracket
	line, col := 1, 0
	inString, inChar, inComment := false, false, false

	for i := 0; i < len(source); i++ {
		c := source[i]
		if c == '\n' {
			line++
			col = 0
			inString, inChar, inComment = false, false, false
			continue
		}
		col++

		switch {
		case inComment:
			continue
		case inString:
			if c == '\\' {
				i++
				col++
			} else if c == '"' {
				inString = false
			}
			continue
		case inChar:
			if c == '\\' {
				i++
				col++
			} else if c == '\'' {
				inChar = false
			}
			continue
		case c == '"':
			inString = true
			continue
		case c == '\'':
			inChar = true
			continue
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			inComment = true
			continue
		}

		switch c {
		case '(', '{', '[':
			stack = append(stack, bracket{open: c, line: line, col: col})
		case ')', '}', ']':
			if len(stack) == 0 {
				e := newError(CodeSyntax, line, "unmatched %q", string(c))
				e.Column = col
				return e
			}
			top := stack[len(stack)-1]
			if closerFor(top.open) != c {
				e := newError(CodeSyntax, line,
					"mismatched %q, expected %q to close %q opened at line %d",
					string(c), string(closerFor(top.open)), string(top.open), top.line)
				e.Column = col
				return e
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		e := newError(CodeSyntax, top.line, "unclosed %q", string(top.open))
		e.Column = top.col
		return e
	}
	return nil
}

func scanIncludes(source string) []Include {
	var includes []Include
	for i, raw := range strings.Split(source, "\n") {
		text := strings.TrimSpace(stripLineComment(raw))
		if !strings.HasPrefix(text, "#include") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(text, "#include"))
		var header string
		switch {
		case strings.HasPrefix(rest, "<") && strings.Contains(rest, ">"):
			header = rest[1:strings.Index(rest, ">")]
		case strings.HasPrefix(rest, `"`) && strings.Count(rest, `"`) >= 2:
			header = rest[1 : 1+strings.Index(rest[1:], `"`)]
		default:
			continue
		}
		includes = append(includes, Include{Header: header, Line: i + 1})
	}
	return includes
}

// extractBody locates `void <name>()` and returns the brace-delimited
// body. Bracket balance has already been verified.
func extractBody(source, name string) Body {
	lines := strings.Split(source, "\n")

	// Find the header line, outside comments.
	headerLine := -1
	offset := 0 // byte offset of the header line within source
	pos := 0
	for i, raw := range lines {
		text := stripLineComment(raw)
		if idx := headerIndex(text, name); idx >= 0 {
			headerLine = i
			offset = pos + idx
			break
		}
		pos += len(raw) + 1
	}
	if headerLine < 0 {
		return Body{}
	}

	openIdx := strings.IndexByte(source[offset:], '{')
	if openIdx < 0 {
		return Body{}
	}
	openIdx += offset

	depth := 0
	inString, inComment := false, false
	for i := openIdx; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '\n':
			inString, inComment = false, false
			continue
		case inComment:
			continue
		case inString:
			if c == '"' {
				inString = false
			}
			continue
		case c == '"':
			inString = true
			continue
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			inComment = true
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return Body{
					Source:    source[openIdx+1 : i],
					StartLine: 1 + strings.Count(source[:openIdx], "\n"),
					Found:     true,
				}
			}
		}
	}
	return Body{}
}

// headerIndex returns the index of "void <name>" in text when followed by
// an empty parameter list, or -1.
func headerIndex(text, name string) int {
	idx := strings.Index(text, "void")
	for idx >= 0 {
		rest := strings.TrimLeft(text[idx+len("void"):], " \t")
		if strings.HasPrefix(rest, name) {
			after := strings.TrimLeft(rest[len(name):], " \t")
			if strings.HasPrefix(after, "(") {
				return idx
			}
		}
		next := strings.Index(text[idx+1:], "void")
		if next < 0 {
			return -1
		}
		idx += 1 + next
	}
	return -1
}

var timerHeaders = map[string]string{
	"Timer1": "TimerOne.h",
	"Timer3": "TimerThree.h",
}

// checkTimerLibraries requires the matching #include to appear earlier in
// the source than any use of the timer namespace.
func checkTimerLibraries(prog *Program) *Error {
	for _, body := range []Body{prog.Setup, prog.Loop} {
		for _, ln := range body.Lines() {
			text := stripLineComment(ln.Text)
			for ns, header := range timerHeaders {
				if !strings.Contains(text, ns+".") {
					continue
				}
				if !prog.HasInclude(header, ln.Number) {
					return newError(CodeMissingLibrary, ln.Number,
						"%s used without #include <%s>", ns, header).withHint(
						fmt.Sprintf("add #include <%s> at the top of the sketch", header))
				}
			}
		}
	}
	return nil
}

// checkDeclarations enforces declaration-before-use: setup() is scanned
// for pinMode declarations, then every direction-sensitive operation in
// either body must reference a pin declared with the matching direction.
func checkDeclarations(prog *Program, strict bool) *Error {
	declared := make(map[int]string)
	for _, ln := range prog.Setup.Lines() {
		stmt, serr := ScanLine(ln.Text, ln.Number)
		if serr != nil || stmt == nil {
			continue
		}
		if pm, ok := stmt.(*PinMode); ok {
			declared[pm.Pin] = pm.Direction.String()
		}
	}

	report := func(pin int, line int, dir string) *Error {
		e := newError(CodeUndeclaredPin, line,
			"pin %d used without a pinMode(%d, %s) declaration in setup()", pin, pin, dir)
		e.Hint = fmt.Sprintf("add pinMode(%d, %s); to setup()", pin, dir)
		if strict {
			return e
		}
		prog.Warnings = append(prog.Warnings, issueFrom(e, SevWarning))
		return nil
	}

	for _, body := range []Body{prog.Setup, prog.Loop} {
		for _, ln := range body.Lines() {
			stmt, serr := ScanLine(ln.Text, ln.Number)
			if serr != nil || stmt == nil {
				continue
			}
			switch st := stmt.(type) {
			case *DigitalWrite:
				if declared[st.Pin] != "OUTPUT" {
					if e := report(st.Pin, ln.Number, "OUTPUT"); e != nil {
						return e
					}
				}
			case *DutyCycleWrite:
				if declared[st.Pin] != "OUTPUT" {
					if e := report(st.Pin, ln.Number, "OUTPUT"); e != nil {
						return e
					}
				}
			case *AnalogWrite:
				if declared[st.Pin] != "OUTPUT" {
					if e := report(st.Pin, ln.Number, "OUTPUT"); e != nil {
						return e
					}
				}
			case *TimerPWM:
				if declared[st.Pin] != "OUTPUT" {
					if e := report(st.Pin, ln.Number, "OUTPUT"); e != nil {
						return e
					}
				}
			case *Conditional:
				for _, pin := range digitalReadPins(st.Raw) {
					if declared[pin] != "INPUT" {
						if e := report(pin, ln.Number, "INPUT"); e != nil {
							return e
						}
					}
				}
			}
		}
	}
	return nil
}

// digitalReadPins extracts pin arguments of digitalRead calls inside a
// conditional expression.
func digitalReadPins(expr string) []int {
	var pins []int
	rest := expr
	for {
		idx := strings.Index(rest, "digitalRead(")
		if idx < 0 {
			return pins
		}
		rest = rest[idx+len("digitalRead("):]
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return pins
		}
		if pin, err := strconv.Atoi(strings.TrimSpace(rest[:end])); err == nil {
			pins = append(pins, pin)
		}
		rest = rest[end:]
	}
}
