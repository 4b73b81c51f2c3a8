package sketch

import (
	"strings"
	"testing"
)

const blinkSource = `void setup() {
  pinMode(13, OUTPUT);
}

void loop() {
  digitalWrite(13, HIGH);
  delay(1000);
  digitalWrite(13, LOW);
  delay(1000);
}
`

func TestParseBlink(t *testing.T) {
	prog, err := Parse(blinkSource)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !prog.Setup.Found {
		t.Error("setup() not found")
	}
	if !prog.Loop.Found {
		t.Error("loop() not found")
	}
	if prog.Setup.StartLine != 1 {
		t.Errorf("setup StartLine = %d, want 1", prog.Setup.StartLine)
	}
	if prog.Loop.StartLine != 5 {
		t.Errorf("loop StartLine = %d, want 5", prog.Loop.StartLine)
	}
	if !strings.Contains(prog.Loop.Source, "digitalWrite(13, HIGH);") {
		t.Errorf("loop body missing statement: %q", prog.Loop.Source)
	}
}

func TestParseEmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t  "} {
		_, err := Parse(src)
		serr, ok := err.(*Error)
		if !ok || serr.Code != CodeEmptySource {
			t.Errorf("Parse(%q) error = %v, want EMPTY_SOURCE", src, err)
		}
	}
}

func TestParseMissingEntryPoints(t *testing.T) {
	_, err := Parse("int x = 5;\n")
	serr, ok := err.(*Error)
	if !ok || serr.Code != CodeMissingEntryPoints {
		t.Fatalf("error = %v, want MISSING_ENTRY_POINTS", err)
	}
}

func TestParseOnlySetupWarns(t *testing.T) {
	prog, err := Parse("void setup() {\n  pinMode(13, OUTPUT);\n}\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if prog.Loop.Found {
		t.Error("loop reported found")
	}

	found := false
	for _, w := range prog.Warnings {
		if w.Code == CodeMissingEntryPoints {
			found = true
		}
	}
	if !found {
		t.Error("expected missing-loop warning")
	}
}

func TestCheckBrackets(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		line    int
		col     int
		message string
	}{
		{
			name:    "unclosed brace",
			source:  "void setup() {\n  pinMode(13, OUTPUT);\n",
			line:    1,
			col:     14,
			message: "unclosed",
		},
		{
			name:    "unmatched closer",
			source:  "void setup() {\n}\n}\n",
			line:    3,
			col:     1,
			message: "unmatched",
		},
		{
			name:    "mismatched pair",
			source:  "void setup() {\n  pinMode(13, OUTPUT};\n}\n",
			line:    2,
			col:     21,
			message: "mismatched",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serr := checkBrackets(tt.source)
			if serr == nil {
				t.Fatal("expected bracket error")
			}
			if serr.Code != CodeSyntax {
				t.Errorf("code = %s, want SYNTAX_ERROR", serr.Code)
			}
			if serr.Line != tt.line || serr.Column != tt.col {
				t.Errorf("position = %d:%d, want %d:%d", serr.Line, serr.Column, tt.line, tt.col)
			}
			if !strings.Contains(serr.Message, tt.message) {
				t.Errorf("message %q does not contain %q", serr.Message, tt.message)
			}
		})
	}
}

func TestCheckBracketsIgnoresStringsAndComments(t *testing.T) {
	source := "void setup() {\n" +
		"  // comment with ( and {\n" +
		"  pinMode(13, OUTPUT); // trailing }\n" +
		"}\n" +
		"void loop() {\n" +
		"}\n"
	if serr := checkBrackets(source); serr != nil {
		t.Errorf("unexpected bracket error: %v", serr)
	}
}

func TestTimerRequiresInclude(t *testing.T) {
	source := `void setup() {
  pinMode(10, OUTPUT);
  Timer1.initialize(1000);
}
void loop() {
  Timer1.pwm(10, 512);
  delay(100);
}
`
	_, err := Parse(source)
	serr, ok := err.(*Error)
	if !ok || serr.Code != CodeMissingLibrary {
		t.Fatalf("error = %v, want MISSING_LIBRARY", err)
	}
	if !strings.Contains(serr.Message, "TimerOne.h") {
		t.Errorf("message %q should name TimerOne.h", serr.Message)
	}

	withInclude := "#include <TimerOne.h>\n" + source
	if _, err := Parse(withInclude); err != nil {
		t.Errorf("Parse with include failed: %v", err)
	}
}

func TestTimerIncludeMustPrecedeUse(t *testing.T) {
	source := `void setup() {
  pinMode(10, OUTPUT);
  Timer3.initialize();
  Timer3.pwm(10, 100);
}
void loop() {
}
`
	// Include placed after the sketch body does not count.
	after := source + "\n#include <TimerThree.h>\n"
	_, err := Parse(after)
	serr, ok := err.(*Error)
	if !ok || serr.Code != CodeMissingLibrary {
		t.Fatalf("error = %v, want MISSING_LIBRARY", err)
	}
}

func TestDeclarationBeforeUse(t *testing.T) {
	source := `void setup() {
}
void loop() {
  digitalWrite(13, HIGH);
}
`
	_, err := Parse(source)
	serr, ok := err.(*Error)
	if !ok || serr.Code != CodeUndeclaredPin {
		t.Fatalf("error = %v, want UNDECLARED_PIN", err)
	}
	if serr.Line != 4 {
		t.Errorf("line = %d, want 4", serr.Line)
	}
	if !strings.Contains(serr.Hint, "pinMode(13, OUTPUT)") {
		t.Errorf("hint %q should suggest the declaration", serr.Hint)
	}
}

func TestParseLenientDemotesDeclarationErrors(t *testing.T) {
	source := `void setup() {
}
void loop() {
  digitalWrite(13, HIGH);
}
`
	prog, err := ParseLenient(source)
	if err != nil {
		t.Fatalf("ParseLenient failed: %v", err)
	}

	found := false
	for _, w := range prog.Warnings {
		if w.Code == CodeUndeclaredPin {
			found = true
		}
	}
	if !found {
		t.Error("expected undeclared-pin warning")
	}
}

func TestConditionalReadRequiresInputDeclaration(t *testing.T) {
	source := `void setup() {
  pinMode(13, OUTPUT);
}
void loop() {
  if (digitalRead(8) == HIGH) {
    digitalWrite(13, HIGH);
  }
}
`
	_, err := Parse(source)
	serr, ok := err.(*Error)
	if !ok || serr.Code != CodeUndeclaredPin {
		t.Fatalf("error = %v, want UNDECLARED_PIN", err)
	}

	declared := `void setup() {
  pinMode(13, OUTPUT);
  pinMode(8, INPUT);
}
void loop() {
  if (digitalRead(8) == HIGH) {
    digitalWrite(13, HIGH);
  }
}
`
	if _, err := Parse(declared); err != nil {
		t.Errorf("Parse with INPUT declaration failed: %v", err)
	}
}

func TestHasInclude(t *testing.T) {
	prog := &Program{Includes: []Include{{Header: "TimerOne.h", Line: 1}}}

	if !prog.HasInclude("TimerOne.h", 5) {
		t.Error("include on line 1 should satisfy use on line 5")
	}
	if prog.HasInclude("TimerOne.h", 1) {
		t.Error("include on the same line should not satisfy use")
	}
	if prog.HasInclude("TimerThree.h", 5) {
		t.Error("unrelated header matched")
	}
}

func TestCheckReport(t *testing.T) {
	rep := Check(blinkSource)
	if !rep.Valid {
		t.Fatalf("valid sketch reported invalid: %+v", rep.Errors)
	}

	rep = Check("void setup() {\n  blorp(1);\n}\nvoid loop() {\n}\n")
	if rep.Valid {
		t.Fatal("invalid sketch reported valid")
	}
	if len(rep.Errors) == 0 || rep.Errors[0].Code != CodeUnrecognized {
		t.Errorf("errors = %+v, want UNRECOGNIZED_STATEMENT", rep.Errors)
	}
	if rep.Errors[0].Line != 2 {
		t.Errorf("error line = %d, want 2", rep.Errors[0].Line)
	}
}

func TestBodyLinesKeepPositions(t *testing.T) {
	prog, err := Parse(blinkSource)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	lines := prog.Loop.Lines()
	for _, ln := range lines {
		if strings.Contains(ln.Text, "digitalWrite(13, HIGH)") && ln.Number != 6 {
			t.Errorf("digitalWrite HIGH at line %d, want 6", ln.Number)
		}
		if strings.Contains(ln.Text, "digitalWrite(13, LOW)") && ln.Number != 8 {
			t.Errorf("digitalWrite LOW at line %d, want 8", ln.Number)
		}
	}
}
