package bytecode

import (
	"sort"
)

// Label binds a name to an instruction address.
type Label struct {
	Name    string
	Address int
}

// Program is an assembled instruction sequence together with its label table.
// It is immutable after creation and safe for concurrent use by multiple
// virtual machines.
type Program struct {
	instructions []Instruction
	labels       map[string]int
	locations    []SourceLocation
	filename     string
}

// ProgramParams contains parameters for creating a new Program.
type ProgramParams struct {
	Instructions []Instruction
	Labels       map[string]int
	Locations    []SourceLocation // One per instruction, optional
	Filename     string
}

// NewProgram creates a new immutable Program from the given parameters.
// Input slices and maps are copied so later changes by the caller have no
// effect on the Program.
func NewProgram(params ProgramParams) *Program {
	return &Program{
		instructions: copyInstructions(params.Instructions),
		labels:       copyLabels(params.Labels),
		locations:    copyLocations(params.Locations),
		filename:     params.Filename,
	}
}

// InstructionCount returns the number of instructions.
func (p *Program) InstructionCount() int {
	return len(p.instructions)
}

// InstructionAt returns the instruction at the given address.
func (p *Program) InstructionAt(addr int) Instruction {
	return p.instructions[addr]
}

// LocationAt returns the source location of the instruction at the given
// address, or a zero location if none was recorded.
func (p *Program) LocationAt(addr int) SourceLocation {
	if addr < 0 || addr >= len(p.locations) {
		return SourceLocation{}
	}
	return p.locations[addr]
}

// Filename returns the name of the source file, if one was provided.
func (p *Program) Filename() string {
	return p.filename
}

// LabelCount returns the number of labels.
func (p *Program) LabelCount() int {
	return len(p.labels)
}

// LabelAddress returns the address bound to the named label.
func (p *Program) LabelAddress(name string) (int, bool) {
	addr, ok := p.labels[name]
	return addr, ok
}

// Labels returns all labels ordered by address, then by name.
func (p *Program) Labels() []Label {
	labels := make([]Label, 0, len(p.labels))
	for name, addr := range p.labels {
		labels = append(labels, Label{Name: name, Address: addr})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Address != labels[j].Address {
			return labels[i].Address < labels[j].Address
		}
		return labels[i].Name < labels[j].Name
	})
	return labels
}

// LabelsAt returns the sorted names of the labels bound to the given address.
func (p *Program) LabelsAt(addr int) []string {
	var names []string
	for name, a := range p.labels {
		if a == addr {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Stats returns statistics about this program.
func (p *Program) Stats() Stats {
	stats := Stats{
		InstructionCount: len(p.instructions),
		LabelCount:       len(p.labels),
	}
	for _, instr := range p.instructions {
		switch instr := instr.(type) {
		case Call:
			stats.CallCount++
			if instr.LocalCount > stats.MaxLocals {
				stats.MaxLocals = instr.LocalCount
			}
		case Jump, JumpIfZero:
			stats.JumpCount++
		}
	}
	return stats
}
