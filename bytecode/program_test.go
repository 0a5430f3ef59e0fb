package bytecode

import (
	"reflect"
	"testing"

	"github.com/deepnoodle-ai/stackvm/op"
)

func TestNewProgramImmutability(t *testing.T) {
	instructions := []Instruction{PushConst{Value: 1}, Print{}, Halt{}}
	labels := map[string]int{"start": 0}
	locations := []SourceLocation{{Line: 2, Column: 3}, {Line: 3, Column: 3}, {Line: 4, Column: 3}}

	program := NewProgram(ProgramParams{
		Instructions: instructions,
		Labels:       labels,
		Locations:    locations,
		Filename:     "main.asm",
	})

	instructions[0] = Pop{}
	labels["start"] = 99
	labels["other"] = 1
	locations[0] = SourceLocation{Line: 999, Column: 999}

	if program.InstructionAt(0) != (PushConst{Value: 1}) {
		t.Errorf("expected instruction 0 to be PushConst 1, got %v", program.InstructionAt(0))
	}
	if addr, ok := program.LabelAddress("start"); !ok || addr != 0 {
		t.Errorf("expected label start at 0, got %d (%v)", addr, ok)
	}
	if _, ok := program.LabelAddress("other"); ok {
		t.Errorf("expected label other to be absent")
	}
	if program.LocationAt(0).Line != 2 {
		t.Errorf("expected location 0 line to be 2, got %d", program.LocationAt(0).Line)
	}
	if program.Filename() != "main.asm" {
		t.Errorf("expected filename main.asm, got %q", program.Filename())
	}
}

func TestProgramAccessors(t *testing.T) {
	program := NewProgram(ProgramParams{
		Instructions: []Instruction{
			Call{Target: 3, LocalCount: 2},
			Print{},
			Halt{},
			JumpIfZero{Target: 5},
			Jump{Target: 3},
			Return{},
		},
		Labels: map[string]int{"fn": 3, "alias": 3, "done": 5, "start": 0},
	})

	if program.InstructionCount() != 6 {
		t.Fatalf("expected 6 instructions, got %d", program.InstructionCount())
	}
	if program.LabelCount() != 4 {
		t.Fatalf("expected 4 labels, got %d", program.LabelCount())
	}
	if !program.LocationAt(0).IsZero() {
		t.Errorf("expected zero location when none recorded")
	}
	if !program.LocationAt(-1).IsZero() || !program.LocationAt(100).IsZero() {
		t.Errorf("expected zero location for out of range addresses")
	}

	expected := []Label{
		{Name: "start", Address: 0},
		{Name: "alias", Address: 3},
		{Name: "fn", Address: 3},
		{Name: "done", Address: 5},
	}
	if got := program.Labels(); !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected labels: %v", got)
	}
	if got := program.LabelsAt(3); !reflect.DeepEqual(got, []string{"alias", "fn"}) {
		t.Errorf("unexpected labels at 3: %v", got)
	}
	if got := program.LabelsAt(1); got != nil {
		t.Errorf("expected no labels at 1, got %v", got)
	}

	stats := program.Stats()
	if stats != (Stats{InstructionCount: 6, LabelCount: 4, CallCount: 1, JumpCount: 2, MaxLocals: 2}) {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestNewInstruction(t *testing.T) {
	tests := []struct {
		code     op.Code
		operands []int64
		expected Instruction
		text     string
	}{
		{op.PushConst, []int64{-7}, PushConst{Value: -7}, "PUSH_CONST -7"},
		{op.Load, []int64{1}, Load{Index: 1}, "LOAD 1"},
		{op.Store, []int64{2}, Store{Index: 2}, "STORE 2"},
		{op.Add, nil, Add{}, "ADD"},
		{op.Sub, nil, Sub{}, "SUB"},
		{op.Mul, nil, Mul{}, "MUL"},
		{op.Div, nil, Div{}, "DIV"},
		{op.Pop, nil, Pop{}, "POP"},
		{op.Jump, []int64{4}, Jump{Target: 4}, "JMP 4"},
		{op.JumpIfZero, []int64{9}, JumpIfZero{Target: 9}, "JZ 9"},
		{op.Call, []int64{5, 1}, Call{Target: 5, LocalCount: 1}, "CALL 5 1"},
		{op.Return, nil, Return{}, "RET"},
		{op.Print, nil, Print{}, "PRINT"},
		{op.Halt, nil, Halt{}, "HALT"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			instr, err := NewInstruction(tt.code, tt.operands...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if instr != tt.expected {
				t.Errorf("expected %#v, got %#v", tt.expected, instr)
			}
			if instr.Opcode() != tt.code {
				t.Errorf("expected opcode %v, got %v", tt.code, instr.Opcode())
			}
			if got := Format(instr); got != tt.text {
				t.Errorf("expected %q, got %q", tt.text, got)
			}
		})
	}
}

func TestNewInstructionErrors(t *testing.T) {
	if _, err := NewInstruction(op.Call, 1); err == nil || err.Error() != "CALL takes 2 operand(s) (1 given)" {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := NewInstruction(op.Add, 1); err == nil {
		t.Errorf("expected arity error")
	}
	if _, err := NewInstruction(op.Invalid); err == nil || err.Error() != "unknown opcode: 0" {
		t.Errorf("unexpected error: %v", err)
	}
}
