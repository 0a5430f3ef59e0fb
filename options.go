package stackvm

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stackvm/asm"
	"github.com/deepnoodle-ai/stackvm/vm"
)

// Option configures an assembly or execution.
type Option func(*options)

type options struct {
	filename   string
	entry      int
	entryLabel string
	output     io.Writer
	observer   vm.Observer
	logger     *zerolog.Logger
	maxSteps   int64
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) asmOpts() []asm.Option {
	var opts []asm.Option
	if o.filename != "" {
		opts = append(opts, asm.WithFilename(o.filename))
	}
	if o.logger != nil {
		opts = append(opts, asm.WithLogger(*o.logger))
	}
	return opts
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	if o.maxSteps > 0 {
		opts = append(opts, vm.WithMaxSteps(o.maxSteps))
	}
	return opts
}

// WithFilename sets the filename for the source being assembled.
// This is used in error messages and stack traces.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithEntry sets the address execution starts at. The default is 0.
func WithEntry(addr int) Option {
	return func(o *options) {
		o.entry = addr
	}
}

// WithEntryLabel starts execution at the address of the named label.
// It takes precedence over WithEntry.
func WithEntryLabel(name string) Option {
	return func(o *options) {
		o.entryLabel = name
	}
}

// WithOutput sets the writer PRINT writes to. The default is os.Stdout, or
// only the returned string in the case of Eval.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithLogger sets the logger used by the assembler and the VM.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithMaxSteps limits the number of instructions a run may execute.
func WithMaxSteps(n int64) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}
