// Package op defines opcodes used by the stackvm assembler and virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Constants and locals
	PushConst Code = 1
	Load      Code = 2
	Store     Code = 3

	// Arithmetic
	Add Code = 10
	Sub Code = 11
	Mul Code = 12
	Div Code = 13

	// Stack
	Pop Code = 20

	// Jump
	Jump       Code = 30
	JumpIfZero Code = 31

	// Execution
	Call   Code = 40
	Return Code = 41
	Print  Code = 42
	Halt   Code = 43
)

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

// String returns the assembly mnemonic of the opcode, or an empty string for
// unknown codes.
func (c Code) String() string {
	return GetInfo(c).Name
}

var (
	infos   = make([]Info, 64)
	byName  = map[string]Code{}
	ordered []Code
)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{PushConst, "PUSH_CONST", 1},
		{Load, "LOAD", 1},
		{Store, "STORE", 1},
		{Add, "ADD", 0},
		{Sub, "SUB", 0},
		{Mul, "MUL", 0},
		{Div, "DIV", 0},
		{Pop, "POP", 0},
		{Jump, "JMP", 1},
		{JumpIfZero, "JZ", 1},
		{Call, "CALL", 2},
		{Return, "RET", 0},
		{Print, "PRINT", 0},
		{Halt, "HALT", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
		byName[o.name] = o.op
		ordered = append(ordered, o.op)
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}

// Lookup returns the opcode for an assembly mnemonic. Mnemonics are
// case-sensitive.
func Lookup(name string) (Code, bool) {
	code, ok := byName[name]
	return code, ok
}

// All returns every defined opcode in declaration order.
func All() []Code {
	result := make([]Code, len(ordered))
	copy(result, ordered)
	return result
}
