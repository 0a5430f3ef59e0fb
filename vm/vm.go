// Package vm provides a VirtualMachine that executes assembled stackvm
// programs.
//
// The machine has one operand stack shared by all frames, a stack of call
// frames holding each activation's locals, and a single program counter.
// Every instruction checks its failure conditions before it mutates any of
// them, so a failed run leaves the state of the failing instruction
// untouched for inspection.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stackvm/bytecode"
	"github.com/deepnoodle-ai/stackvm/errz"
)

const (
	// StopSignal is the return address of the top-level frame. Returning to
	// it halts the machine.
	StopSignal = -1

	// DefaultContextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000

	mainFunction = "<main>"
)

var (
	ErrAlreadyRunning = errors.New("vm is already running")
	ErrNoProgram      = errors.New("no program to run")
)

// State is the lifecycle state of a VirtualMachine.
type State uint8

const (
	Idle State = iota
	Running
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

type VirtualMachine struct {
	pc       int // program counter
	depth    int // number of active frames
	steps    int64
	halt     int32 // set when the run context is cancelled
	halted   bool
	lastLine int
	state    State
	running  bool
	program  *bytecode.Program
	stack    stack
	frames   []frame
	runMutex sync.Mutex
	stopWait func() bool

	output               io.Writer
	logger               zerolog.Logger
	observer             Observer
	observerConfig       ObserverConfig
	contextCheckInterval int
	maxSteps             int64
	maxFrameDepth        int
	maxLocals            int64
}

// New creates a new Virtual Machine for the given program.
func New(program *bytecode.Program, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		program:              program,
		output:               os.Stdout,
		logger:               zerolog.Nop(),
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

func (vm *VirtualMachine) start(ctx context.Context) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return ErrAlreadyRunning
	}
	vm.running = true
	vm.state = Running
	// Halt execution when the context is cancelled
	atomic.StoreInt32(&vm.halt, 0)
	vm.stopWait = context.AfterFunc(ctx, func() {
		atomic.StoreInt32(&vm.halt, 1)
	})
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.stopWait != nil {
		vm.stopWait()
		vm.stopWait = nil
	}
	vm.running = false
	vm.state = Halted
}

// Run executes the program starting at entry until it halts or fails.
// Operand and frame stacks are reset first, so a VirtualMachine may be run
// any number of times, but not concurrently.
func (vm *VirtualMachine) Run(ctx context.Context, entry int) (err error) {
	if vm.program == nil {
		return ErrNoProgram
	}
	// Set up some guarantees:
	// 1. It is an error to call Run on a VM that is already running
	// 2. The running flag will always be set to false when Run returns
	// 3. Any panics are translated to errors and the VM is stopped
	if err := vm.start(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.stop()
	}()

	vm.reset(entry)
	vm.logger.Debug().
		Str("filename", vm.program.Filename()).
		Int("entry", entry).
		Int("instructions", vm.program.InstructionCount()).
		Msg("run started")

	err = vm.eval(ctx)

	event := vm.logger.Debug()
	if err != nil {
		event = event.Err(err)
	}
	event.Int64("steps", vm.steps).Int("pc", vm.pc).Msg("run finished")
	return err
}

func (vm *VirtualMachine) reset(entry int) {
	vm.stack.reset()
	vm.depth = 0
	vm.steps = 0
	vm.halted = false
	vm.lastLine = 0
	if vm.observer != nil {
		vm.observerConfig = NormalizeConfig(vm.observer.Config())
	}
	vm.pushFrame(entry, StopSignal, StopSignal, 0)
	vm.pc = entry
}

func (vm *VirtualMachine) eval(ctx context.Context) error {
	count := vm.program.InstructionCount()
	for !vm.halted {
		if atomic.LoadInt32(&vm.halt) == 1 {
			return ctx.Err()
		}
		if vm.contextCheckInterval > 0 && vm.steps%int64(vm.contextCheckInterval) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if vm.pc < 0 || vm.pc >= count {
			return vm.errorf(errz.PCOutOfRange,
				"program counter %d out of range [0, %d)", vm.pc, count)
		}
		if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
			return vm.errorf(errz.StepLimitExceeded,
				"step limit of %d exceeded", vm.maxSteps)
		}
		instr := vm.program.InstructionAt(vm.pc)
		if vm.observer != nil && !vm.notifyStep(instr) {
			return vm.errorf(errz.HaltedByObserver, "execution halted by observer")
		}
		if err := vm.exec(instr); err != nil {
			return err
		}
		vm.steps++
	}
	return nil
}

// exec executes one instruction.
func (vm *VirtualMachine) exec(instr bytecode.Instruction) error {
	switch instr := instr.(type) {
	case bytecode.PushConst:
		vm.stack.push(instr.Value)
		vm.pc++
	case bytecode.Load:
		f, err := vm.activeFrame(instr)
		if err != nil {
			return err
		}
		if !f.validLocal(instr.Index) {
			return vm.localIndexError(f, instr.Index)
		}
		vm.stack.push(f.locals[instr.Index])
		vm.pc++
	case bytecode.Store:
		f, err := vm.activeFrame(instr)
		if err != nil {
			return err
		}
		if err := vm.require(instr, 1); err != nil {
			return err
		}
		if !f.validLocal(instr.Index) {
			return vm.localIndexError(f, instr.Index)
		}
		f.locals[instr.Index] = vm.stack.pop()
		vm.pc++
	case bytecode.Add:
		return vm.binary(instr, func(a, b int64) int64 { return a + b })
	case bytecode.Sub:
		return vm.binary(instr, func(a, b int64) int64 { return a - b })
	case bytecode.Mul:
		return vm.binary(instr, func(a, b int64) int64 { return a * b })
	case bytecode.Div:
		if err := vm.require(instr, 2); err != nil {
			return err
		}
		if divisor, _ := vm.stack.top(); divisor == 0 {
			return vm.errorf(errz.DivisionByZero, "division by zero")
		}
		return vm.binary(instr, floorDiv)
	case bytecode.Pop:
		if err := vm.require(instr, 1); err != nil {
			return err
		}
		vm.stack.pop()
		vm.pc++
	case bytecode.Jump:
		vm.pc = address(instr.Target)
	case bytecode.JumpIfZero:
		if err := vm.require(instr, 1); err != nil {
			return err
		}
		if vm.stack.pop() == 0 {
			vm.pc = address(instr.Target)
		} else {
			vm.pc++
		}
	case bytecode.Call:
		return vm.call(instr)
	case bytecode.Return:
		return vm.ret()
	case bytecode.Print:
		if err := vm.require(instr, 1); err != nil {
			return err
		}
		value, _ := vm.stack.top()
		if _, err := fmt.Fprintf(vm.output, "%d\n", value); err != nil {
			return vm.errorf(errz.OutputFailed, "PRINT failed: %v", err).WithCause(err)
		}
		vm.stack.pop()
		vm.pc++
	case bytecode.Halt:
		vm.halted = true
	default:
		return fmt.Errorf("unsupported instruction %T at pc %d", instr, vm.pc)
	}
	return nil
}

func (vm *VirtualMachine) call(instr bytecode.Call) error {
	if instr.LocalCount < 0 {
		return vm.errorf(errz.NegativeLocalCount,
			"CALL local count must not be negative (got %d)", instr.LocalCount)
	}
	if vm.maxLocals > 0 && instr.LocalCount > vm.maxLocals {
		return vm.errorf(errz.FrameOverflow,
			"CALL local count %d exceeds limit of %d", instr.LocalCount, vm.maxLocals)
	}
	if vm.maxFrameDepth > 0 && vm.depth >= vm.maxFrameDepth {
		return vm.errorf(errz.FrameOverflow,
			"call depth limit of %d exceeded", vm.maxFrameDepth)
	}
	callSite := vm.pc
	target := address(instr.Target)
	vm.pushFrame(target, callSite+1, callSite, int(instr.LocalCount))
	vm.pc = target
	if vm.observer != nil && vm.observerConfig.ObserveCalls {
		ok := vm.observer.OnCall(CallEvent{
			FunctionName: vm.labelAt(target),
			Target:       target,
			LocalCount:   int(instr.LocalCount),
			CallSite:     callSite,
			Location:     vm.program.LocationAt(callSite),
			FrameDepth:   vm.depth,
		})
		if !ok {
			return vm.errorf(errz.HaltedByObserver, "execution halted by observer")
		}
	}
	return nil
}

func (vm *VirtualMachine) ret() error {
	if vm.depth == 0 {
		return vm.errorf(errz.NoActiveFrame, "RET with no active frame")
	}
	returning := vm.frames[vm.depth-1]
	name := vm.frameName(vm.depth - 1)
	retPC := vm.pc
	vm.depth--
	if returning.returnAddr == StopSignal {
		vm.halted = true
	} else {
		vm.pc = returning.returnAddr
	}
	if vm.observer != nil && vm.observerConfig.ObserveReturns {
		ok := vm.observer.OnReturn(ReturnEvent{
			FunctionName: name,
			PC:           retPC,
			ReturnAddr:   returning.returnAddr,
			Location:     vm.program.LocationAt(retPC),
			FrameDepth:   vm.depth,
		})
		if !ok {
			return vm.errorf(errz.HaltedByObserver, "execution halted by observer")
		}
	}
	return nil
}

func (vm *VirtualMachine) binary(instr bytecode.Instruction, fn func(a, b int64) int64) error {
	if err := vm.require(instr, 2); err != nil {
		return err
	}
	b := vm.stack.pop()
	a := vm.stack.pop()
	vm.stack.push(fn(a, b))
	vm.pc++
	return nil
}

// floorDiv divides a by b rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// address converts an operand to an instruction address. Values that do not
// fit in an int map to StopSignal, which fails the next fetch.
func address(target int64) int {
	if target < math.MinInt || target > math.MaxInt {
		return StopSignal
	}
	return int(target)
}

func (vm *VirtualMachine) require(instr bytecode.Instruction, n int) error {
	if have := vm.stack.len(); have < n {
		return vm.errorf(errz.StackUnderflow,
			"stack underflow: %s needs %d value(s), stack has %d", instr.Opcode(), n, have)
	}
	return nil
}

func (vm *VirtualMachine) activeFrame(instr bytecode.Instruction) (*frame, error) {
	if vm.depth == 0 {
		return nil, vm.errorf(errz.NoActiveFrame, "%s with no active frame", instr.Opcode())
	}
	return &vm.frames[vm.depth-1], nil
}

func (vm *VirtualMachine) localIndexError(f *frame, index int64) error {
	return vm.errorf(errz.LocalIndexOutOfRange,
		"local index %d out of range (frame has %d locals)", index, len(f.locals))
}

func (vm *VirtualMachine) pushFrame(target, returnAddr, callSite, localCount int) {
	if vm.depth == len(vm.frames) {
		vm.frames = append(vm.frames, frame{})
	}
	vm.frames[vm.depth].activate(target, returnAddr, callSite, localCount)
	vm.depth++
}

func (vm *VirtualMachine) notifyStep(instr bytecode.Instruction) bool {
	switch vm.observerConfig.StepMode {
	case StepNone:
		return true
	case StepSampled:
		if vm.steps%int64(vm.observerConfig.SampleInterval) != 0 {
			return true
		}
	case StepOnLine:
		line := vm.program.LocationAt(vm.pc).Line
		if line == vm.lastLine {
			return true
		}
		vm.lastLine = line
	}
	code := instr.Opcode()
	return vm.observer.OnStep(StepEvent{
		PC:          vm.pc,
		Opcode:      code,
		OpcodeName:  code.String(),
		Instruction: instr,
		Location:    vm.program.LocationAt(vm.pc),
		Stack:       vm.stack.values,
		FrameDepth:  vm.depth,
		Step:        vm.steps,
	})
}

func (vm *VirtualMachine) errorf(kind errz.Kind, format string, args ...any) *errz.RuntimeError {
	return errz.NewRuntimeErrorf(kind, vm.pc, vm.location(vm.pc), vm.stackTrace(), format, args...)
}

func (vm *VirtualMachine) location(pc int) errz.SourceLocation {
	loc := vm.program.LocationAt(pc)
	if loc.IsZero() {
		return errz.SourceLocation{}
	}
	return errz.SourceLocation{
		Filename: vm.program.Filename(),
		Line:     loc.Line,
		Column:   loc.Column,
		Source:   loc.Source,
	}
}

// stackTrace lists the active frames, innermost first.
func (vm *VirtualMachine) stackTrace() []errz.StackFrame {
	trace := make([]errz.StackFrame, 0, vm.depth)
	pc := vm.pc
	for i := vm.depth - 1; i >= 0; i-- {
		trace = append(trace, errz.StackFrame{
			Function: vm.frameName(i),
			PC:       pc,
			Location: vm.location(pc),
		})
		pc = vm.frames[i].callSiteIP
	}
	return trace
}

func (vm *VirtualMachine) frameName(i int) string {
	if i == 0 {
		return mainFunction
	}
	target := vm.frames[i].target
	if name := vm.labelAt(target); name != "" {
		return name
	}
	return fmt.Sprintf("<%d>", target)
}

func (vm *VirtualMachine) labelAt(addr int) string {
	if names := vm.program.LabelsAt(addr); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Program returns the program the VM executes.
func (vm *VirtualMachine) Program() *bytecode.Program {
	return vm.program
}

// PC returns the program counter.
func (vm *VirtualMachine) PC() int {
	return vm.pc
}

// Stack returns a copy of the operand stack, bottom first.
func (vm *VirtualMachine) Stack() []int64 {
	return vm.stack.snapshot()
}

// TOS returns the top value of the operand stack, if any.
func (vm *VirtualMachine) TOS() (int64, bool) {
	return vm.stack.top()
}

// FrameDepth returns the number of active call frames.
func (vm *VirtualMachine) FrameDepth() int {
	return vm.depth
}

// Steps returns the number of instructions executed by the latest run.
func (vm *VirtualMachine) Steps() int64 {
	return vm.steps
}

// State returns the lifecycle state of the VM.
func (vm *VirtualMachine) State() State {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	return vm.state
}
