// Package errz defines the structured errors reported by the stackvm
// assembler and virtual machine.
package errz

import "errors"

// Kind represents the category of an error.
type Kind int

const (
	// KindUnknown is the zero Kind.
	KindUnknown Kind = iota

	// Assembly errors
	UnknownOpcode
	UnknownLabel
	ArityMismatch
	InvalidOperand
	DuplicateLabel
	InvalidLabel

	// Runtime errors
	StackUnderflow
	PCOutOfRange
	LocalIndexOutOfRange
	DivisionByZero
	NoActiveFrame
	NegativeLocalCount
	FrameOverflow
	StepLimitExceeded
	HaltedByObserver
	OutputFailed
)

// Sentinel errors, one per Kind. Structured errors unwrap to these so callers
// can use errors.Is.
var (
	ErrUnknownOpcode        = errors.New("unknown opcode")
	ErrUnknownLabel         = errors.New("unknown label reference")
	ErrArityMismatch        = errors.New("wrong number of operands")
	ErrInvalidOperand       = errors.New("invalid operand")
	ErrDuplicateLabel       = errors.New("duplicate label")
	ErrInvalidLabel         = errors.New("invalid label name")
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrPCOutOfRange         = errors.New("program counter out of range")
	ErrLocalIndexOutOfRange = errors.New("local index out of range")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrNoActiveFrame        = errors.New("no active frame")
	ErrNegativeLocalCount   = errors.New("negative local count")
	ErrFrameOverflow        = errors.New("frame overflow")
	ErrStepLimitExceeded    = errors.New("step limit exceeded")
	ErrHaltedByObserver     = errors.New("execution halted by observer")
	ErrOutputFailed         = errors.New("output write failed")
)

type kindInfo struct {
	name     string
	code     ErrorCode
	sentinel error
}

var kinds = map[Kind]kindInfo{
	UnknownOpcode:        {"unknown opcode", E1001, ErrUnknownOpcode},
	UnknownLabel:         {"unknown label", E1002, ErrUnknownLabel},
	ArityMismatch:        {"arity mismatch", E1003, ErrArityMismatch},
	InvalidOperand:       {"invalid operand", E1004, ErrInvalidOperand},
	DuplicateLabel:       {"duplicate label", E1005, ErrDuplicateLabel},
	InvalidLabel:         {"invalid label", E1006, ErrInvalidLabel},
	StackUnderflow:       {"stack underflow", E2001, ErrStackUnderflow},
	PCOutOfRange:         {"pc out of range", E2002, ErrPCOutOfRange},
	LocalIndexOutOfRange: {"local index out of range", E2003, ErrLocalIndexOutOfRange},
	DivisionByZero:       {"division by zero", E2004, ErrDivisionByZero},
	NoActiveFrame:        {"no active frame", E2005, ErrNoActiveFrame},
	NegativeLocalCount:   {"negative local count", E2006, ErrNegativeLocalCount},
	FrameOverflow:        {"frame overflow", E2007, ErrFrameOverflow},
	StepLimitExceeded:    {"step limit exceeded", E2008, ErrStepLimitExceeded},
	HaltedByObserver:     {"halted by observer", E2009, ErrHaltedByObserver},
	OutputFailed:         {"output failed", E2010, ErrOutputFailed},
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "error"
}

// Code returns the stable error code of the kind.
func (k Kind) Code() ErrorCode {
	return kinds[k].code
}

// Sentinel returns the sentinel error that errors of this kind unwrap to.
func (k Kind) Sentinel() error {
	return kinds[k].sentinel
}

// IsAssembly returns true for kinds raised by the assembler.
func (k Kind) IsAssembly() bool {
	return k >= UnknownOpcode && k <= InvalidLabel
}

// IsRuntime returns true for kinds raised by the virtual machine.
func (k Kind) IsRuntime() bool {
	return k >= StackUnderflow && k <= OutputFailed
}

// KindOf returns the Kind of the first structured error in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var asmErr *AssemblyError
	if errors.As(err, &asmErr) {
		return asmErr.Kind
	}
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr.Kind
	}
	return KindUnknown
}
