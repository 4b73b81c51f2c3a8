package sketch

import "fmt"

// Code classifies sketch errors. Collaborators route feedback on the code
// and surface Message to the learner.
type Code string

const (
	CodeEmptySource        Code = "EMPTY_SOURCE"
	CodeSyntax             Code = "SYNTAX_ERROR"
	CodeMissingLibrary     Code = "MISSING_LIBRARY"
	CodeMissingEntryPoints Code = "MISSING_ENTRY_POINTS"
	CodeUndeclaredPin      Code = "UNDECLARED_PIN"
	CodeInvalidPin         Code = "INVALID_PIN"
	CodeInvalidValue       Code = "INVALID_VALUE"
	CodeLegacyStatement    Code = "LEGACY_STATEMENT"
	CodeUninitializedTimer Code = "UNINITIALIZED_TIMER"
	CodeUnrecognized       Code = "UNRECOGNIZED_STATEMENT"
)

// Error is a typed sketch-level error with a 1-based source position.
// Column is only set for bracket-balance errors.
type Error struct {
	Code    Code   `json:"code"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func newError(code Code, line int, format string, args ...any) *Error {
	return &Error{Code: code, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) withHint(hint string) *Error {
	e.Hint = hint
	return e
}

type Severity string

const (
	SevError   Severity = "error"
	SevWarning Severity = "warning"
)

// Issue is the report entry shape returned by the static check endpoint.
type Issue struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint,omitempty"`
}

type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func issueFrom(e *Error, sev Severity) Issue {
	return Issue{
		Code:     e.Code,
		Severity: sev,
		Line:     e.Line,
		Column:   e.Column,
		Message:  e.Message,
		Hint:     e.Hint,
	}
}
