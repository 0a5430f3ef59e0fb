package bytecode

// Stats contains statistics about an assembled program.
type Stats struct {
	// InstructionCount is the total number of instructions.
	InstructionCount int

	// LabelCount is the number of labels declared in the source.
	LabelCount int

	// CallCount is the number of CALL instructions.
	CallCount int

	// JumpCount is the number of JMP and JZ instructions.
	JumpCount int

	// MaxLocals is the largest local count requested by any CALL.
	MaxLocals int64
}
