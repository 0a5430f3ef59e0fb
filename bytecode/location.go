package bytecode

import "fmt"

// SourceLocation represents the position in assembly source that produced an
// instruction.
type SourceLocation struct {
	Line   int    // 1-based line number
	Column int    // 1-based column number
	Source string // The line of source code
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}
