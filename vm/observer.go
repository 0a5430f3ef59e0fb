package vm

import (
	"github.com/deepnoodle-ai/stackvm/bytecode"
	"github.com/deepnoodle-ai/stackvm/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	// Use for: detailed tracing, instruction-level debugging.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	// Use for: observers that only need Call/Return events.
	StepNone

	// StepSampled calls OnStep every N instructions.
	StepSampled

	// StepOnLine calls OnStep when the source line changes.
	// Use for: coverage tools and line-level debugging.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with safe defaults.
// ObserveCalls and ObserveReturns default to true.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives VM execution events. Implementations can embed
// NoOpObserver and override only the methods they need.
//
// Observer methods are called synchronously during execution. Returning
// false from any method halts the run with errz.ErrHaltedByObserver.
type Observer interface {
	// Config returns the observer's configuration.
	// Called once at the start of each run.
	Config() ObserverConfig

	// OnStep is called before an instruction executes, based on StepMode.
	OnStep(event StepEvent) bool

	// OnCall is called after a CALL has pushed its frame.
	OnCall(event CallEvent) bool

	// OnReturn is called after a RET has popped its frame.
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes the instruction about to execute.
type StepEvent struct {
	PC          int
	Opcode      op.Code
	OpcodeName  string
	Instruction bytecode.Instruction
	Location    bytecode.SourceLocation

	// Stack is the operand stack, bottom first. It aliases VM storage and is
	// only valid for the duration of the callback.
	Stack []int64

	FrameDepth int
	Step       int64 // number of instructions executed before this one
}

// StackDepth returns the number of values on the operand stack.
func (e StepEvent) StackDepth() int {
	return len(e.Stack)
}

// CallEvent describes a CALL.
type CallEvent struct {
	// FunctionName is the first label bound to the call target, or empty.
	FunctionName string
	Target       int
	LocalCount   int
	CallSite     int
	Location     bytecode.SourceLocation // of the CALL instruction

	// FrameDepth is the call stack depth after the call.
	FrameDepth int
}

// ReturnEvent describes a RET.
type ReturnEvent struct {
	FunctionName string
	PC           int // address of the RET instruction
	ReturnAddr   int // StopSignal when the top-level frame returns
	Location     bytecode.SourceLocation

	// FrameDepth is the call stack depth after returning.
	FrameDepth int
}

// NoOpObserver is an Observer that does nothing. It uses StepAll mode with
// ObserveCalls and ObserveReturns enabled.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}
