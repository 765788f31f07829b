// Package errz defines the errors reported by the Lox compiler and virtual
// machine.
//
// Compile errors and runtime errors are disjoint. A program with any
// CompileError never runs. A RuntimeError aborts the current run and carries
// the call stack at the point of failure. Callers classify errors with
// errors.As:
//
//	var rerr *errz.RuntimeError
//	if errors.As(err, &rerr) {
//		fmt.Println(rerr.Kind, rerr.Stack)
//	}
package errz

import (
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrSyntax indicates a lexical, syntax or static semantic error.
	ErrSyntax ErrorKind = iota
	// ErrType indicates an operation applied to values of the wrong type.
	ErrType
	// ErrName indicates an undefined variable or property.
	ErrName
	// ErrArity indicates a call with the wrong number of arguments.
	ErrArity
	// ErrOverflow indicates the call stack or value stack overflowed.
	ErrOverflow
	// ErrRuntime indicates any other runtime failure.
	ErrRuntime
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "syntax error"
	case ErrType:
		return "type error"
	case ErrName:
		return "name error"
	case ErrArity:
		return "arity error"
	case ErrOverflow:
		return "overflow error"
	case ErrRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// FriendlyError is an interface for errors that have a human friendly message
// in addition to the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	// Function is the function name, or "script" for top-level code.
	Function string
	Line     int
}

// String returns the frame in the form "[line 3] in add()".
func (f StackFrame) String() string {
	if f.Function == "script" || f.Function == "" {
		return fmt.Sprintf("[line %d] in script", f.Line)
	}
	return fmt.Sprintf("[line %d] in %s()", f.Line, f.Function)
}

// FormatStackTrace formats stack frames innermost first, one per line.
func FormatStackTrace(frames []StackFrame) string {
	lines := make([]string, len(frames))
	for i, frame := range frames {
		lines[i] = frame.String()
	}
	return strings.Join(lines, "\n")
}

// CompileError is one diagnostic produced while compiling. Where is the
// location suffix, such as " at 'foo'" or " at end", and is empty for errors
// reported by the scanner.
type CompileError struct {
	Line    int
	Where   string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// FriendlyErrorMessage returns the diagnostic prefixed with its kind.
func (e *CompileError) FriendlyErrorMessage() string {
	return fmt.Sprintf("%s: %s", ErrSyntax, e.Error())
}

// RuntimeError is raised when a running program fails. Stack lists the
// active call frames innermost first. Hint, when set, suggests a fix and
// appears only in the friendly message.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Stack   []StackFrame
	Hint    string
	Cause   error
}

// NewRuntimeError creates a RuntimeError with a formatted message.
func NewRuntimeError(kind ErrorKind, stack []StackFrame, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   stack,
	}
}

// Error returns the message followed by the stack trace.
func (e *RuntimeError) Error() string {
	if len(e.Stack) == 0 {
		return e.Message
	}
	return e.Message + "\n" + FormatStackTrace(e.Stack)
}

// Unwrap returns the underlying cause of the error.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// WithCause wraps the error with a cause.
func (e *RuntimeError) WithCause(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// WithHint attaches a suggestion to the error.
func (e *RuntimeError) WithHint(hint string) *RuntimeError {
	e.Hint = hint
	return e
}

// Line returns the line of the innermost frame, or 0 without a stack.
func (e *RuntimeError) Line() int {
	if len(e.Stack) == 0 {
		return 0
	}
	return e.Stack[0].Line
}

// FriendlyErrorMessage returns the error prefixed with its kind, followed
// by the hint if there is one.
func (e *RuntimeError) FriendlyErrorMessage() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Error())
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}
