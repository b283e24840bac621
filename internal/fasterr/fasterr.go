// Package fasterr defines the error taxonomy shared by every layer of the
// FAST codec: the bit codec, the template compiler, the dictionary store
// and the codec engine all raise errors through this package so that
// callers can discriminate failure classes with errors.As/Is instead of
// string-matching messages.
package fasterr

import "fmt"

// Kind discriminates the error classes defined by the FAST specification.
type Kind int

const (
	// Static errors are malformed template definitions, caught at compile time.
	Static Kind = iota
	// Dynamic errors are malformed or inconsistent wire data found while decoding.
	Dynamic
	// Runtime errors are algorithmic or usage errors (wrong type pulled from a source, writer overflow).
	Runtime
	// Eof signals a clean stream boundary between messages.
	Eof
	// UnexpectedEof signals truncation in the middle of a message.
	UnexpectedEof
	// IO passes through a failure from an underlying byte source or sink.
	IO
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Runtime:
		return "runtime"
	case Eof:
		return "eof"
	case UnexpectedEof:
		return "unexpected-eof"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Code names one of the specific error rules cited by the FAST spec
// (e.g. "S2", "D6", "R1"). Empty for errors that have no spec citation.
type Code string

// Error is the concrete error type returned by the codec packages (bit
// codec, template compiler, dictionary store, codec engine).
type Error struct {
	Kind    Kind
	Code    Code
	Field   string // instruction/field name, when applicable
	Pos     int    // byte offset in the stream, when applicable, -1 if unknown
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Code != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Code)
	}
	if e.Field != "" && e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (field=%s pos=%d)", prefix, e.Message, e.Field, e.Pos)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", prefix, e.Message, e.Field)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (pos=%d)", prefix, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, fasterr.Eof) and friends by comparing Kind when
// the target is a bare *Error carrying only a Kind (no message/code).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Code != "" {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel bare-kind errors for errors.Is comparisons, e.g. errors.Is(err, fasterr.ErrEof).
var (
	ErrEof           = &Error{Kind: Eof}
	ErrUnexpectedEof = &Error{Kind: UnexpectedEof}
)

func newf(kind Kind, code Code, field string, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Field: field, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Staticf builds a static (compile-time) error.
func Staticf(code Code, field, format string, args ...any) *Error {
	return newf(Static, code, field, -1, format, args...)
}

// Dynamicf builds a dynamic (decode-time) error.
func Dynamicf(code Code, field string, pos int, format string, args ...any) *Error {
	return newf(Dynamic, code, field, pos, format, args...)
}

// Runtimef builds a runtime (usage) error.
func Runtimef(field string, format string, args ...any) *Error {
	return newf(Runtime, "", field, -1, format, args...)
}

// Eoff builds an Eof error for the given stream position.
func Eoff(pos int) *Error {
	return newf(Eof, "", "", pos, "end of stream")
}

// UnexpectedEoff builds an UnexpectedEof error.
func UnexpectedEoff(field string, pos int) *Error {
	return newf(UnexpectedEof, "", field, pos, "truncated input")
}

// Wrap attaches an IO-kind cause, matching the teacher's fmt.Errorf(...: %w...) idiom.
func Wrap(cause error, format string, args ...any) *Error {
	e := newf(IO, "", "", -1, format, args...)
	e.Cause = cause
	return e
}
