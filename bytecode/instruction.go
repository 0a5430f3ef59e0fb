package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/stackvm/op"
)

// Instruction is one decoded operation. Each opcode has its own concrete type
// carrying exactly the operands that opcode needs, so the set of
// implementations is closed to this package.
type Instruction interface {
	// Opcode returns the operation kind.
	Opcode() op.Code

	// Operands returns the operand values in assembly order.
	Operands() []int64

	instruction()
}

// PushConst pushes Value onto the operand stack.
type PushConst struct{ Value int64 }

// Load pushes the current frame's local at Index.
type Load struct{ Index int64 }

// Store pops a value into the current frame's local at Index.
type Store struct{ Index int64 }

// Add pops b and a and pushes a+b.
type Add struct{}

// Sub pops b and a and pushes a-b.
type Sub struct{}

// Mul pops b and a and pushes a*b.
type Mul struct{}

// Div pops b and a and pushes a/b rounded toward negative infinity.
type Div struct{}

// Pop discards the top of the operand stack.
type Pop struct{}

// Jump transfers control to Target.
type Jump struct{ Target int64 }

// JumpIfZero pops a value and transfers control to Target if it is zero.
type JumpIfZero struct{ Target int64 }

// Call pushes a frame with LocalCount zeroed locals and transfers control to
// Target. The frame returns to the instruction after the call.
type Call struct {
	Target     int64
	LocalCount int64
}

// Return pops the current frame and resumes at its return address.
type Return struct{}

// Print pops a value and writes it to the output.
type Print struct{}

// Halt stops execution.
type Halt struct{}

func (PushConst) Opcode() op.Code  { return op.PushConst }
func (Load) Opcode() op.Code       { return op.Load }
func (Store) Opcode() op.Code      { return op.Store }
func (Add) Opcode() op.Code        { return op.Add }
func (Sub) Opcode() op.Code        { return op.Sub }
func (Mul) Opcode() op.Code        { return op.Mul }
func (Div) Opcode() op.Code        { return op.Div }
func (Pop) Opcode() op.Code        { return op.Pop }
func (Jump) Opcode() op.Code       { return op.Jump }
func (JumpIfZero) Opcode() op.Code { return op.JumpIfZero }
func (Call) Opcode() op.Code       { return op.Call }
func (Return) Opcode() op.Code     { return op.Return }
func (Print) Opcode() op.Code      { return op.Print }
func (Halt) Opcode() op.Code       { return op.Halt }

func (i PushConst) Operands() []int64  { return []int64{i.Value} }
func (i Load) Operands() []int64       { return []int64{i.Index} }
func (i Store) Operands() []int64      { return []int64{i.Index} }
func (Add) Operands() []int64          { return nil }
func (Sub) Operands() []int64          { return nil }
func (Mul) Operands() []int64          { return nil }
func (Div) Operands() []int64          { return nil }
func (Pop) Operands() []int64          { return nil }
func (i Jump) Operands() []int64       { return []int64{i.Target} }
func (i JumpIfZero) Operands() []int64 { return []int64{i.Target} }
func (i Call) Operands() []int64       { return []int64{i.Target, i.LocalCount} }
func (Return) Operands() []int64       { return nil }
func (Print) Operands() []int64        { return nil }
func (Halt) Operands() []int64         { return nil }

func (PushConst) instruction()  {}
func (Load) instruction()       {}
func (Store) instruction()      {}
func (Add) instruction()        {}
func (Sub) instruction()        {}
func (Mul) instruction()        {}
func (Div) instruction()        {}
func (Pop) instruction()        {}
func (Jump) instruction()       {}
func (JumpIfZero) instruction() {}
func (Call) instruction()       {}
func (Return) instruction()     {}
func (Print) instruction()      {}
func (Halt) instruction()       {}

// NewInstruction builds the instruction for the given opcode. The number of
// operands must match the opcode's operand count.
func NewInstruction(code op.Code, operands ...int64) (Instruction, error) {
	info := op.GetInfo(code)
	if info.Name == "" {
		return nil, fmt.Errorf("unknown opcode: %d", code)
	}
	if len(operands) != info.OperandCount {
		return nil, fmt.Errorf("%s takes %d operand(s) (%d given)",
			info.Name, info.OperandCount, len(operands))
	}
	switch code {
	case op.PushConst:
		return PushConst{Value: operands[0]}, nil
	case op.Load:
		return Load{Index: operands[0]}, nil
	case op.Store:
		return Store{Index: operands[0]}, nil
	case op.Add:
		return Add{}, nil
	case op.Sub:
		return Sub{}, nil
	case op.Mul:
		return Mul{}, nil
	case op.Div:
		return Div{}, nil
	case op.Pop:
		return Pop{}, nil
	case op.Jump:
		return Jump{Target: operands[0]}, nil
	case op.JumpIfZero:
		return JumpIfZero{Target: operands[0]}, nil
	case op.Call:
		return Call{Target: operands[0], LocalCount: operands[1]}, nil
	case op.Return:
		return Return{}, nil
	case op.Print:
		return Print{}, nil
	case op.Halt:
		return Halt{}, nil
	}
	return nil, fmt.Errorf("unknown opcode: %d", code)
}

// Format returns the assembly text of an instruction, for example
// "CALL 7 1".
func Format(instr Instruction) string {
	var sb strings.Builder
	sb.WriteString(instr.Opcode().String())
	for _, operand := range instr.Operands() {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(operand, 10))
	}
	return sb.String()
}
