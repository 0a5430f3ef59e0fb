package vm

import (
	"context"

	"github.com/deepnoodle-ai/stackvm/bytecode"
)

// Run executes the program in a new Virtual Machine starting at entry.
func Run(ctx context.Context, program *bytecode.Program, entry int, options ...Option) error {
	return New(program, options...).Run(ctx, entry)
}
