package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithOutput sets the writer PRINT writes to. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.output = w
	}
}

// WithObserver sets an observer for VM execution events.
// Returning false from any observer method halts execution immediately.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithLogger sets the logger used for run lifecycle messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of 0
// disables deterministic checking, relying only on the cancellation callback
// registered with the context. The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithMaxSteps limits the number of instructions a single run may execute.
// Zero means unlimited.
func WithMaxSteps(n int64) Option {
	return func(vm *VirtualMachine) {
		vm.maxSteps = n
	}
}

// WithMaxFrameDepth limits the call stack depth, counting the top-level
// frame. Zero means unlimited.
func WithMaxFrameDepth(n int) Option {
	return func(vm *VirtualMachine) {
		vm.maxFrameDepth = n
	}
}

// WithMaxLocals limits the local count a single CALL may request. Zero means
// unlimited.
func WithMaxLocals(n int64) Option {
	return func(vm *VirtualMachine) {
		vm.maxLocals = n
	}
}
