package errz

import (
	"fmt"
	"strings"
)

// SourceLocation represents a position in assembly source.
type SourceLocation struct {
	Filename string
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Source   string // The line of source code
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// StackFrame represents a single active call at the time of a runtime error.
type StackFrame struct {
	Function string // Label of the called address, or "<main>"
	PC       int    // Instruction executing in this frame
	Location SourceLocation
}

// String returns a formatted string representation of the stack frame.
func (f StackFrame) String() string {
	where := fmt.Sprintf("pc %d", f.PC)
	if !f.Location.IsZero() {
		where = fmt.Sprintf("pc %d, %s", f.PC, f.Location.String())
	}
	if f.Function != "" {
		return fmt.Sprintf("at %s (%s)", f.Function, where)
	}
	return fmt.Sprintf("at %s", where)
}

// FormatStackTrace formats a slice of stack frames as a human-readable string.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Stack trace:\n")
	for _, frame := range frames {
		b.WriteString("  ")
		b.WriteString(frame.String())
		b.WriteString("\n")
	}
	return b.String()
}

// FriendlyError is an interface for errors that have a human friendly message
// in addition to the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// AssemblyError is raised when source text cannot be assembled.
type AssemblyError struct {
	Kind     Kind
	Message  string
	Location SourceLocation
	Hint     string
}

// NewAssemblyErrorf creates an AssemblyError with a formatted message.
func NewAssemblyErrorf(kind Kind, loc SourceLocation, format string, args ...any) *AssemblyError {
	return &AssemblyError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// WithHint attaches a hint such as a spelling suggestion.
func (e *AssemblyError) WithHint(hint string) *AssemblyError {
	e.Hint = hint
	return e
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("assembly error: %s", e.Message)
	}
	return fmt.Sprintf("assembly error: %s (%s)", e.Message, e.Location.String())
}

// Unwrap returns the sentinel error of the error's kind.
func (e *AssemblyError) Unwrap() error {
	return e.Kind.Sentinel()
}

// Code returns the error code of the error's kind.
func (e *AssemblyError) Code() ErrorCode {
	return e.Kind.Code()
}

// FriendlyErrorMessage returns a human-friendly error message with the
// offending source line and a caret under the offending column.
func (e *AssemblyError) FriendlyErrorMessage() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "error[%s]: %s\n", e.Code(), e.Message)
	writeSnippet(&msg, e.Location)
	if e.Hint != "" {
		msg.WriteString(" = hint: ")
		msg.WriteString(e.Hint)
		msg.WriteString("\n")
	}
	return msg.String()
}

// RuntimeError is raised when execution of an instruction fails.
type RuntimeError struct {
	Kind     Kind
	Message  string
	PC       int
	Location SourceLocation
	Stack    []StackFrame
	Cause    error
}

// NewRuntimeErrorf creates a RuntimeError with a formatted message.
func NewRuntimeErrorf(kind Kind, pc int, loc SourceLocation, stack []StackFrame, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		PC:       pc,
		Location: loc,
		Stack:    stack,
	}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("runtime error: %s (pc %d)", e.Message, e.PC)
	}
	return fmt.Sprintf("runtime error: %s (pc %d, %s)", e.Message, e.PC, e.Location.String())
}

// Unwrap returns the underlying cause, falling back to the sentinel error of
// the error's kind.
func (e *RuntimeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind.Sentinel(), e.Cause}
	}
	return []error{e.Kind.Sentinel()}
}

// WithCause wraps the error with a cause.
func (e *RuntimeError) WithCause(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// Code returns the error code of the error's kind.
func (e *RuntimeError) Code() ErrorCode {
	return e.Kind.Code()
}

// FriendlyErrorMessage returns a human-friendly error message with the source
// line of the failing instruction and a trace of the active frames.
func (e *RuntimeError) FriendlyErrorMessage() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "error[%s]: %s (pc %d)\n", e.Code(), e.Message, e.PC)
	writeSnippet(&msg, e.Location)
	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}
	return msg.String()
}

func writeSnippet(msg *strings.Builder, loc SourceLocation) {
	if loc.IsZero() {
		return
	}
	fmt.Fprintf(msg, " --> %s\n", loc.String())
	if loc.Source == "" {
		return
	}
	msg.WriteString("  | ")
	msg.WriteString(loc.Source)
	msg.WriteString("\n")
	if loc.Column > 0 {
		msg.WriteString("  | ")
		msg.WriteString(caretPadding(loc.Source, loc.Column))
		msg.WriteString("^\n")
	}
}

// caretPadding returns the padding that aligns a caret under the given
// 1-based column, keeping tabs so the alignment survives tab expansion.
func caretPadding(source string, column int) string {
	var b strings.Builder
	for i, r := range []rune(source) {
		if i >= column-1 {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// Ensure the structured errors implement FriendlyError.
var (
	_ FriendlyError = (*AssemblyError)(nil)
	_ FriendlyError = (*RuntimeError)(nil)
)
