package calcerr

import (
	"errors"
	"fmt"
)

// Code identifies a calc engine failure. The numbering and wording follow
// the status codes the record-processing layer already understands.
type Code int

const (
	None Code = iota
	TooMany
	BadLiteral
	BadAssignment
	BadSeparator
	ParenNotOpen
	ParenOpen
	Conditional
	Incomplete
	Underflow
	Overflow
	Syntax
	NullArg
	Internal
)

var texts = [...]string{
	None:          "No error",
	TooMany:       "Too many results returned",
	BadLiteral:    "Bad numeric literal",
	BadAssignment: "Bad assignment target",
	BadSeparator:  "Comma without enclosing parentheses",
	ParenNotOpen:  "Close parenthesis found without open",
	ParenOpen:     "Open parenthesis at end of expression",
	Conditional:   "Unbalanced conditional ?: operators",
	Incomplete:    "Incomplete expression, operand missing",
	Underflow:     "Runtime stack would underflow",
	Overflow:      "Runtime stack would overflow",
	Syntax:        "Syntax error",
	NullArg:       "NULL or empty input argument",
	Internal:      "Internal error, bad element type",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(texts) {
		return "Unknown error"
	}
	return texts[c]
}

// Error is a typed calc failure. Pos is the byte offset in the infix
// source for compile-time errors, or -1 for run-time errors.
type Error struct {
	Code Code
	Pos  int
}

func New(code Code, pos int) *Error {
	return &Error{Code: code, Pos: pos}
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return e.Code.String()
	}
	return fmt.Sprintf("%s at position %d", e.Code, e.Pos)
}

// CodeOf extracts the Code from err, or returns Internal for a foreign
// error and None for nil.
func CodeOf(err error) Code {
	if err == nil {
		return None
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Internal
}
