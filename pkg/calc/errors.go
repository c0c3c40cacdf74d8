package calc

import (
	"errors"
)

// ErrorKind identifies one of the closed set of calculator failures.
type ErrorKind int

const (
	KindDivideByZero ErrorKind = iota + 1
	KindInvalidNumber
	KindInvalidOperator
	KindUnrecognizedToken
	KindUnexpectedToken
	KindUnexpectedEndOfInput
	KindUnmatchedParenthesis
	KindIO
)

// String returns the kind's name as used in API payloads.
func (k ErrorKind) String() string {
	switch k {
	case KindDivideByZero:
		return "DivideByZero"
	case KindInvalidNumber:
		return "InvalidNumber"
	case KindInvalidOperator:
		return "InvalidOperator"
	case KindUnrecognizedToken:
		return "UnrecognizedToken"
	case KindUnexpectedToken:
		return "UnexpectedToken"
	case KindUnexpectedEndOfInput:
		return "UnexpectedEndOfInput"
	case KindUnmatchedParenthesis:
		return "UnmatchedParenthesis"
	case KindIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Error is a calculator failure. Evaluation stops at the first one.
type Error struct {
	Kind ErrorKind
	// Text is the parse failure description for InvalidNumber, the
	// character run for UnrecognizedToken or the token text for UnexpectedToken.
	Text string
	// Expected describes what the grammar wanted (UnexpectedToken only).
	Expected string
	// Op is the operator character (InvalidOperator only).
	Op rune
	// Err is the wrapped host error (IO only).
	Err error
}

// Error implements the error interface. The renderings are fixed.
func (e *Error) Error() string {
	switch e.Kind {
	case KindDivideByZero:
		return "calc: attempted to divide by zero"
	case KindInvalidNumber:
		return "calc: invalid number: " + e.Text
	case KindInvalidOperator:
		return "calc: invalid operator: " + string(e.Op)
	case KindUnrecognizedToken:
		return "calc: unrecognized token: " + e.Text
	case KindUnexpectedToken:
		return "calc: unexpected " + e.Expected + " token: " + e.Text
	case KindUnexpectedEndOfInput:
		return "calc: unexpected end of input"
	case KindUnmatchedParenthesis:
		return "calc: unmatched parenthesis"
	case KindIO:
		if e.Err == nil {
			return "calc: io error"
		}
		return e.Err.Error()
	default:
		return "calc: unknown error"
	}
}

// Unwrap returns the wrapped host error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a calculator error of the same kind, so that
// errors.Is(err, ErrDivideByZero) matches regardless of payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for matching with errors.Is.
var (
	ErrDivideByZero         = &Error{Kind: KindDivideByZero}
	ErrInvalidNumber        = &Error{Kind: KindInvalidNumber}
	ErrInvalidOperator      = &Error{Kind: KindInvalidOperator}
	ErrUnrecognizedToken    = &Error{Kind: KindUnrecognizedToken}
	ErrUnexpectedToken      = &Error{Kind: KindUnexpectedToken}
	ErrUnexpectedEndOfInput = &Error{Kind: KindUnexpectedEndOfInput}
	ErrUnmatchedParenthesis = &Error{Kind: KindUnmatchedParenthesis}
	ErrIO                   = &Error{Kind: KindIO}
)

// Common error constructors.

// NewInvalidNumber creates an InvalidNumber error from the description of
// why a literal failed to parse.
func NewInvalidNumber(description string) *Error {
	return &Error{Kind: KindInvalidNumber, Text: description}
}

// NewInvalidOperator creates an InvalidOperator error.
func NewInvalidOperator(op rune) *Error {
	return &Error{Kind: KindInvalidOperator, Op: op}
}

// NewUnrecognizedToken creates an UnrecognizedToken error.
func NewUnrecognizedToken(run string) *Error {
	return &Error{Kind: KindUnrecognizedToken, Text: run}
}

// NewUnexpectedToken creates an UnexpectedToken error. expected describes
// what the grammar wanted at that position.
func NewUnexpectedToken(text, expected string) *Error {
	return &Error{Kind: KindUnexpectedToken, Text: text, Expected: expected}
}

// NewIOError wraps an input-acquisition failure from a host.
func NewIOError(err error) *Error {
	return &Error{Kind: KindIO, Err: err}
}

// KindOf returns the kind of a calculator error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
