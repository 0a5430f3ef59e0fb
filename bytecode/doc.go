// Package bytecode provides immutable representations of assembled programs.
//
// This package defines the output of assembly: pure data structures that
// represent decoded instructions, the label table and per-instruction source
// locations. These types are created once by the assembler and can be shared
// safely across multiple goroutines and VM instances.
//
// # Key Types
//
//   - [Instruction]: A decoded operation. Each opcode has a concrete type
//     ([PushConst], [Call], ...) carrying exactly its operands.
//   - [Program]: An immutable instruction sequence plus label table.
//   - [SourceLocation]: Maps an instruction back to its assembly line.
//
// # Immutability Guarantees
//
// Program has no mutation methods, all of its fields are unexported and its
// constructor copies the input slices and maps. Index-based access is used
// for the instruction sequence:
//
//	program.InstructionAt(0)
//	program.LocationAt(i)
//
// Instructions are small value types, so returning one by value never exposes
// internal state.
//
// # Dispatch
//
// Consumers switch on the concrete instruction type:
//
//	switch instr := program.InstructionAt(pc).(type) {
//	case bytecode.PushConst:
//	    push(instr.Value)
//	case bytecode.Call:
//	    call(instr.Target, instr.LocalCount)
//	}
package bytecode
