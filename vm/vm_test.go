package vm

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stackvm/asm"
	"github.com/deepnoodle-ai/stackvm/bytecode"
	"github.com/deepnoodle-ai/stackvm/errz"
	"github.com/deepnoodle-ai/stackvm/programs"
)

// newVM assembles source and returns a VM writing to the returned buffer.
func newVM(t *testing.T, source string, opts ...Option) (*VirtualMachine, *bytes.Buffer) {
	t.Helper()
	program, err := asm.AssembleString(source)
	require.Nil(t, err)
	var out bytes.Buffer
	opts = append([]Option{WithOutput(&out)}, opts...)
	return New(program, opts...), &out
}

// run assembles and runs source from address 0, returning printed output.
func run(t *testing.T, source string, opts ...Option) (string, error) {
	t.Helper()
	vm, out := newVM(t, source, opts...)
	err := vm.Run(context.Background(), 0)
	return out.String(), err
}

func requireRuntimeError(t *testing.T, err error, kind errz.Kind) *errz.RuntimeError {
	t.Helper()
	require.Error(t, err)
	var rtErr *errz.RuntimeError
	require.True(t, errors.As(err, &rtErr), "expected *errz.RuntimeError, got %T: %v", err, err)
	require.Equal(t, kind, rtErr.Kind, rtErr.Error())
	require.True(t, errors.Is(err, kind.Sentinel()))
	return rtErr
}

func TestSubtract(t *testing.T) {
	out, err := run(t, `
	PUSH_CONST 5
	PUSH_CONST 3
	SUB
	PRINT
	HALT
	`)
	require.Nil(t, err)
	require.Equal(t, "2\n", out)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int64
		op     string
		expect string
	}{
		{"add", 2, 3, "ADD", "5\n"},
		{"sub", 2, 3, "SUB", "-1\n"},
		{"mul", -4, 3, "MUL", "-12\n"},
		{"div", 7, 2, "DIV", "3\n"},
		{"div negative dividend", -7, 2, "DIV", "-4\n"},
		{"div negative divisor", 7, -2, "DIV", "-4\n"},
		{"div both negative", -7, -2, "DIV", "3\n"},
		{"div exact negative", -8, 2, "DIV", "-4\n"},
		{"add wraps", math.MaxInt64, 1, "ADD", "-9223372036854775808\n"},
		{"mul wraps", math.MaxInt64, 2, "MUL", "-2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := bytecode.NewProgram(bytecode.ProgramParams{
				Instructions: []bytecode.Instruction{
					bytecode.PushConst{Value: tt.a},
					bytecode.PushConst{Value: tt.b},
					mustInstruction(t, tt.op),
					bytecode.Print{},
					bytecode.Halt{},
				},
			})
			var out bytes.Buffer
			require.Nil(t, Run(context.Background(), program, 0, WithOutput(&out)))
			require.Equal(t, tt.expect, out.String())
		})
	}
}

func mustInstruction(t *testing.T, mnemonic string) bytecode.Instruction {
	t.Helper()
	program, err := asm.AssembleString(mnemonic)
	require.Nil(t, err)
	return program.InstructionAt(0)
}

func TestFloorDiv(t *testing.T) {
	require.Equal(t, int64(-4), floorDiv(-7, 2))
	require.Equal(t, int64(-4), floorDiv(7, -2))
	require.Equal(t, int64(3), floorDiv(-7, -2))
	require.Equal(t, int64(0), floorDiv(0, -5))
	require.Equal(t, int64(-1), floorDiv(-1, 5))
	require.Equal(t, int64(math.MinInt64), floorDiv(math.MinInt64, -1))
}

func TestExamples(t *testing.T) {
	for _, ex := range programs.All() {
		t.Run(ex.Name, func(t *testing.T) {
			program, err := asm.Assemble(ex.Lines(), asm.WithFilename(ex.Filename()))
			require.Nil(t, err)
			var out bytes.Buffer
			require.Nil(t, Run(context.Background(), program, 0, WithOutput(&out)))
			require.Equal(t, ex.Expected, out.String())
		})
	}
}

func TestFactorial(t *testing.T) {
	program, err := asm.Assemble(programs.Lines("factorial"))
	require.Nil(t, err)
	var out bytes.Buffer
	vm := New(program, WithOutput(&out))
	require.Equal(t, Idle, vm.State())
	require.Nil(t, vm.Run(context.Background(), 0))
	require.Equal(t, "120\n", out.String())
	require.Equal(t, Halted, vm.State())
	require.Equal(t, 1, vm.FrameDepth())
	require.Empty(t, vm.Stack())
}

func TestSum(t *testing.T) {
	program, err := asm.Assemble(programs.Lines("sum"))
	require.Nil(t, err)
	var out bytes.Buffer
	require.Nil(t, Run(context.Background(), program, 0, WithOutput(&out)))
	require.Equal(t, "45\n", out.String())
}

func TestPopUnderflow(t *testing.T) {
	vm, out := newVM(t, "POP\nHALT")
	err := vm.Run(context.Background(), 0)
	rtErr := requireRuntimeError(t, err, errz.StackUnderflow)
	require.Equal(t, 0, rtErr.PC)
	require.Equal(t, "", out.String())
	require.Equal(t, 0, vm.PC())
	require.Equal(t, Halted, vm.State())
}

func TestFailedInstructionHasNoEffect(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   errz.Kind
		pc     int
		stack  []int64
	}{
		{"add underflow", "PUSH_CONST 1\nADD", errz.StackUnderflow, 1, []int64{1}},
		{"div by zero", "PUSH_CONST 1\nPUSH_CONST 0\nDIV", errz.DivisionByZero, 2, []int64{1, 0}},
		{"div underflow", "PUSH_CONST 0\nDIV", errz.StackUnderflow, 1, []int64{0}},
		{"store out of range", "PUSH_CONST 3\nSTORE 0", errz.LocalIndexOutOfRange, 1, []int64{3}},
		{"load out of range", "PUSH_CONST 3\nLOAD 0", errz.LocalIndexOutOfRange, 1, []int64{3}},
		{"jz underflow", "JZ 0", errz.StackUnderflow, 0, []int64{}},
		{"print underflow", "PRINT", errz.StackUnderflow, 0, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, out := newVM(t, tt.source)
			err := vm.Run(context.Background(), 0)
			rtErr := requireRuntimeError(t, err, tt.kind)
			require.Equal(t, tt.pc, rtErr.PC)
			require.Equal(t, tt.pc, vm.PC())
			require.Equal(t, tt.stack, vm.Stack())
			require.Equal(t, "", out.String())
		})
	}
}

func TestStoreUnderflowInFrame(t *testing.T) {
	_, err := run(t, "CALL f 1\nHALT\nf:\nSTORE 0")
	requireRuntimeError(t, err, errz.StackUnderflow)
}

func TestLocalIndexBounds(t *testing.T) {
	_, err := run(t, "CALL f 2\nHALT\nf:\nLOAD 2")
	rtErr := requireRuntimeError(t, err, errz.LocalIndexOutOfRange)
	require.Equal(t, "local index 2 out of range (frame has 2 locals)", rtErr.Message)

	_, err = run(t, "CALL f 2\nHALT\nf:\nLOAD -1")
	requireRuntimeError(t, err, errz.LocalIndexOutOfRange)

	out, err := run(t, "CALL f 2\nHALT\nf:\nPUSH_CONST 8\nSTORE 1\nLOAD 1\nLOAD 0\nPRINT\nPRINT\nRET")
	require.Nil(t, err)
	require.Equal(t, "0\n8\n", out)
}

func TestProgramCounterOutOfRange(t *testing.T) {
	_, err := run(t, "PUSH_CONST 1")
	rtErr := requireRuntimeError(t, err, errz.PCOutOfRange)
	require.Equal(t, 1, rtErr.PC)
	require.True(t, rtErr.Location.IsZero())

	_, err = run(t, "JMP 99")
	rtErr = requireRuntimeError(t, err, errz.PCOutOfRange)
	require.Equal(t, 99, rtErr.PC)

	_, err = run(t, "JMP -3")
	rtErr = requireRuntimeError(t, err, errz.PCOutOfRange)
	require.Equal(t, -3, rtErr.PC)

	_, err = run(t, "")
	requireRuntimeError(t, err, errz.PCOutOfRange)
}

func TestReturnResumesAfterCall(t *testing.T) {
	out, err := run(t, "CALL f 0\nPUSH_CONST 1\nPRINT\nHALT\nf:\nPUSH_CONST 6\nPRINT\nRET")
	require.Nil(t, err)
	require.Equal(t, "6\n1\n", out)
}

func TestEntryPoint(t *testing.T) {
	vm, out := newVM(t, `
	PUSH_CONST 1
	PRINT
	HALT
second:
	PUSH_CONST 2
	PRINT
	HALT
`)
	entry, ok := vm.Program().LabelAddress("second")
	require.True(t, ok)
	require.Nil(t, vm.Run(context.Background(), entry))
	require.Equal(t, "2\n", out.String())

	err := vm.Run(context.Background(), 42)
	requireRuntimeError(t, err, errz.PCOutOfRange)
}

func TestFrameIsolation(t *testing.T) {
	out, err := run(t, `
start:
	CALL setter 1
	CALL getter 1
	HALT
setter:
	PUSH_CONST 7
	STORE 0
	LOAD 0
	PRINT
	RET
getter:
	LOAD 0
	PRINT
	RET
`)
	require.Nil(t, err)
	require.Equal(t, "7\n0\n", out)
}

func TestOperandStackIsShared(t *testing.T) {
	out, err := run(t, `
	PUSH_CONST 20
	CALL double 0
	PRINT
	HALT
double:
	PUSH_CONST 2
	MUL
	RET
`)
	require.Nil(t, err)
	require.Equal(t, "40\n", out)
}

func TestTopLevelReturnHalts(t *testing.T) {
	vm, out := newVM(t, "PUSH_CONST 4\nPRINT\nRET\nPUSH_CONST 9\nPRINT")
	require.Nil(t, vm.Run(context.Background(), 0))
	require.Equal(t, "4\n", out.String())
	require.Equal(t, 0, vm.FrameDepth())
	require.Equal(t, int64(3), vm.Steps())
	require.Equal(t, 2, vm.PC())
}

func TestJumpIfZero(t *testing.T) {
	out, err := run(t, `
	PUSH_CONST 0
	JZ zero
	PUSH_CONST 1
	PRINT
zero:
	PUSH_CONST 5
	JZ end
	PUSH_CONST 2
	PRINT
end:
	HALT
`)
	require.Nil(t, err)
	require.Equal(t, "2\n", out)
}

func TestNegativeLocalCount(t *testing.T) {
	program := bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: []bytecode.Instruction{
			bytecode.Call{Target: 1, LocalCount: -1},
			bytecode.Halt{},
		},
	})
	vm := New(program)
	err := vm.Run(context.Background(), 0)
	requireRuntimeError(t, err, errz.NegativeLocalCount)
	require.Equal(t, 1, vm.FrameDepth())
	require.Equal(t, 0, vm.PC())
}

func TestMaxLocals(t *testing.T) {
	source := "CALL f 70000\nHALT\nf:\nPUSH_CONST 9\nSTORE 69999\nLOAD 69999\nPRINT\nRET"
	out, err := run(t, source)
	require.Nil(t, err)
	require.Equal(t, "9\n", out)

	vm, _ := newVM(t, source, WithMaxLocals(65536))
	err = vm.Run(context.Background(), 0)
	rtErr := requireRuntimeError(t, err, errz.FrameOverflow)
	require.Contains(t, rtErr.Message, "CALL local count 70000 exceeds limit of 65536")
	require.Equal(t, 1, vm.FrameDepth())
	require.Equal(t, 0, vm.PC())
}

func TestMaxFrameDepth(t *testing.T) {
	vm, _ := newVM(t, "f:\nCALL f 0", WithMaxFrameDepth(10))
	err := vm.Run(context.Background(), 0)
	rtErr := requireRuntimeError(t, err, errz.FrameOverflow)
	require.Equal(t, 10, vm.FrameDepth())
	require.Len(t, rtErr.Stack, 10)
	require.Equal(t, "f", rtErr.Stack[0].Function)
	require.Equal(t, "<main>", rtErr.Stack[9].Function)
}

func TestMaxSteps(t *testing.T) {
	vm, _ := newVM(t, "loop:\nJMP loop", WithMaxSteps(100))
	err := vm.Run(context.Background(), 0)
	requireRuntimeError(t, err, errz.StepLimitExceeded)
	require.Equal(t, int64(100), vm.Steps())
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vm, _ := newVM(t, "loop:\nJMP loop")
	err := vm.Run(ctx, 0)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, int64(0), vm.Steps())

	vm, _ = newVM(t, "loop:\nJMP loop", WithContextCheckInterval(0))
	err = vm.Run(ctx, 0)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	vm, _ := newVM(t, "loop:\nJMP loop")
	err := vm.Run(ctx, 0)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Greater(t, vm.Steps(), int64(0))
	require.Equal(t, Halted, vm.State())
}

func TestRerun(t *testing.T) {
	program, err := asm.Assemble(programs.Lines("factorial"))
	require.Nil(t, err)
	var out bytes.Buffer
	vm := New(program, WithOutput(&out))
	require.Nil(t, vm.Run(context.Background(), 0))
	steps := vm.Steps()
	require.Nil(t, vm.Run(context.Background(), 0))
	require.Equal(t, "120\n120\n", out.String())
	require.Equal(t, steps, vm.Steps())

	// A failed run leaves state behind that the next run discards.
	failing, out2 := newVM(t, "PUSH_CONST 1\nPUSH_CONST 2\nCALL f 3\nf:\nPOP\nPOP\nPOP")
	requireRuntimeError(t, failing.Run(context.Background(), 0), errz.StackUnderflow)
	require.Equal(t, 2, failing.FrameDepth())
	requireRuntimeError(t, failing.Run(context.Background(), 0), errz.StackUnderflow)
	require.Equal(t, 2, failing.FrameDepth())
	require.Equal(t, "", out2.String())
}

func TestConcurrentMachinesShareProgram(t *testing.T) {
	program, err := asm.Assemble(programs.Lines("factorial"))
	require.Nil(t, err)
	const workers = 8
	outputs := make([]bytes.Buffer, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = Run(context.Background(), program, 0, WithOutput(&outputs[i]))
		}(i)
	}
	wg.Wait()
	for i := 0; i < workers; i++ {
		require.Nil(t, errs[i])
		require.Equal(t, "120\n", outputs[i].String())
	}
}

type reentrantObserver struct {
	NoOpObserver
	vm  *VirtualMachine
	err error
}

func (o *reentrantObserver) OnStep(StepEvent) bool {
	if o.err == nil {
		o.err = o.vm.Run(context.Background(), 0)
	}
	return true
}

func TestAlreadyRunning(t *testing.T) {
	observer := &reentrantObserver{}
	vm, _ := newVM(t, "HALT", WithObserver(observer))
	observer.vm = vm
	require.Nil(t, vm.Run(context.Background(), 0))
	require.Equal(t, ErrAlreadyRunning, observer.err)
}

func TestNoProgram(t *testing.T) {
	require.Equal(t, ErrNoProgram, New(nil).Run(context.Background(), 0))
}

func TestRuntimeErrorStackTrace(t *testing.T) {
	program, err := asm.AssembleString("start:\n  CALL f 0\n  HALT\nf:\n  POP", asm.WithFilename("trace.asm"))
	require.Nil(t, err)
	err = Run(context.Background(), program, 0)
	rtErr := requireRuntimeError(t, err, errz.StackUnderflow)
	require.Equal(t, 2, rtErr.PC)
	require.Equal(t, errz.SourceLocation{Filename: "trace.asm", Line: 5, Column: 3, Source: "  POP"}, rtErr.Location)
	require.Len(t, rtErr.Stack, 2)
	require.Equal(t, "f", rtErr.Stack[0].Function)
	require.Equal(t, 2, rtErr.Stack[0].PC)
	require.Equal(t, "<main>", rtErr.Stack[1].Function)
	require.Equal(t, 0, rtErr.Stack[1].PC)
	require.Equal(t, 2, rtErr.Stack[1].Location.Line)

	msg := rtErr.FriendlyErrorMessage()
	require.Contains(t, msg, "error[E2001]")
	require.Contains(t, msg, "at f (pc 2, trace.asm:5:3)")
	require.Contains(t, msg, "at <main> (pc 0, trace.asm:2:3)")
}

func TestUnlabeledFrameName(t *testing.T) {
	program := bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: []bytecode.Instruction{
			bytecode.Call{Target: 2, LocalCount: 0},
			bytecode.Halt{},
			bytecode.Pop{},
		},
	})
	err := Run(context.Background(), program, 0)
	rtErr := requireRuntimeError(t, err, errz.StackUnderflow)
	require.Equal(t, "<2>", rtErr.Stack[0].Function)
	require.Equal(t, "at <2> (pc 2)", rtErr.Stack[0].String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPrintWriteError(t *testing.T) {
	vm, _ := newVM(t, "PUSH_CONST 1\nPRINT\nHALT", WithOutput(failingWriter{}))
	err := vm.Run(context.Background(), 0)
	rtErr := requireRuntimeError(t, err, errz.OutputFailed)
	require.Equal(t, errz.E2010, rtErr.Code())
	require.Equal(t, "PRINT failed: disk full", rtErr.Message)
	require.EqualError(t, rtErr.Cause, "disk full")
	require.Equal(t, 1, vm.PC())
	require.Equal(t, []int64{1}, vm.Stack())
	require.Len(t, rtErr.Stack, 1)
	require.Equal(t, 1, rtErr.Stack[0].PC)
	require.Equal(t, 2, rtErr.Location.Line)
}
