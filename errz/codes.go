package errz

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Assembly errors
//   - E2xxx: Runtime errors
type ErrorCode string

const (
	// Assembly errors (E1xxx)
	E1001 ErrorCode = "E1001" // Unknown opcode
	E1002 ErrorCode = "E1002" // Unknown label reference
	E1003 ErrorCode = "E1003" // Wrong number of operands
	E1004 ErrorCode = "E1004" // Invalid operand
	E1005 ErrorCode = "E1005" // Duplicate label
	E1006 ErrorCode = "E1006" // Invalid label name

	// Runtime errors (E2xxx)
	E2001 ErrorCode = "E2001" // Stack underflow
	E2002 ErrorCode = "E2002" // Program counter out of range
	E2003 ErrorCode = "E2003" // Local index out of range
	E2004 ErrorCode = "E2004" // Division by zero
	E2005 ErrorCode = "E2005" // No active frame
	E2006 ErrorCode = "E2006" // Negative local count
	E2007 ErrorCode = "E2007" // Frame overflow
	E2008 ErrorCode = "E2008" // Step limit exceeded
	E2009 ErrorCode = "E2009" // Halted by observer
	E2010 ErrorCode = "E2010" // Output write failed
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E1001: "unknown opcode",
	E1002: "unknown label reference",
	E1003: "wrong number of operands",
	E1004: "invalid operand",
	E1005: "duplicate label",
	E1006: "invalid label name",

	E2001: "stack underflow",
	E2002: "program counter out of range",
	E2003: "local index out of range",
	E2004: "division by zero",
	E2005: "no active frame",
	E2006: "negative local count",
	E2007: "frame overflow",
	E2008: "step limit exceeded",
	E2009: "execution halted by observer",
	E2010: "output write failed",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "assembly"
	case '2':
		return "runtime"
	default:
		return "unknown"
	}
}
