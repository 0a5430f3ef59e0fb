// Package stackvm assembles and runs programs for a small stack-based virtual
// machine.
//
// Source text is assembled into an immutable *bytecode.Program which may be
// run any number of times, concurrently if desired:
//
//	program, err := stackvm.Assemble(source)
//	if err != nil {
//		return err
//	}
//	err = stackvm.Run(ctx, program, stackvm.WithOutput(os.Stdout))
package stackvm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/deepnoodle-ai/stackvm/asm"
	"github.com/deepnoodle-ai/stackvm/bytecode"
	"github.com/deepnoodle-ai/stackvm/vm"
)

// Assemble assembles source text into an executable program.
// The returned Program is immutable and safe for concurrent use.
func Assemble(source string, opts ...Option) (*bytecode.Program, error) {
	o := collectOptions(opts...)
	return asm.AssembleString(source, o.asmOpts()...)
}

// Check reports every assembly problem in source, or nil if there are none.
func Check(source string, opts ...Option) error {
	o := collectOptions(opts...)
	return asm.Check(asm.SplitLines(source), o.asmOpts()...)
}

// Run executes an assembled program. Each call creates fresh runtime state,
// allowing concurrent execution of the same Program.
func Run(ctx context.Context, program *bytecode.Program, opts ...Option) error {
	o := collectOptions(opts...)
	entry, err := o.entryAddress(program)
	if err != nil {
		return err
	}
	return vm.Run(ctx, program, entry, o.vmOpts()...)
}

// Eval is a convenience function that assembles and runs source text and
// returns everything the program printed. On a runtime error the output
// printed before the failure is returned along with the error.
func Eval(ctx context.Context, source string, opts ...Option) (string, error) {
	program, err := Assemble(source, opts...)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	o := collectOptions(opts...)
	var out io.Writer = &buf
	if o.output != nil {
		out = io.MultiWriter(&buf, o.output)
	}
	err = Run(ctx, program, append(slices.Clone(opts), WithOutput(out))...)
	return buf.String(), err
}

func (o *options) entryAddress(program *bytecode.Program) (int, error) {
	if o.entryLabel == "" {
		return o.entry, nil
	}
	addr, ok := program.LabelAddress(o.entryLabel)
	if !ok {
		return 0, fmt.Errorf("entry label %q not found", o.entryLabel)
	}
	return addr, nil
}
