// Package dis supports analysis of assembled programs by disassembling them
// into an annotated listing.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/deepnoodle-ai/stackvm/bytecode"
	"github.com/deepnoodle-ai/stackvm/op"
)

// Instruction represents a single instruction, its operands and what is known
// about it from the program's label table and source locations.
type Instruction struct {
	Address    int      `json:"address"`
	Name       string   `json:"name"`
	Opcode     op.Code  `json:"opcode"`
	Operands   []int64  `json:"operands"`
	Labels     []string `json:"labels,omitempty"`
	Annotation string   `json:"annotation,omitempty"`
	Line       int      `json:"line,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// Disassemble returns a parsed representation of the given program.
func Disassemble(program *bytecode.Program) []Instruction {
	count := program.InstructionCount()
	instructions := make([]Instruction, 0, count)
	for addr := 0; addr < count; addr++ {
		instr := program.InstructionAt(addr)
		loc := program.LocationAt(addr)
		operands := instr.Operands()
		if operands == nil {
			operands = []int64{}
		}
		instructions = append(instructions, Instruction{
			Address:    addr,
			Name:       instr.Opcode().String(),
			Opcode:     instr.Opcode(),
			Operands:   operands,
			Labels:     program.LabelsAt(addr),
			Annotation: annotate(program, instr),
			Line:       loc.Line,
			Source:     strings.TrimSpace(loc.Source),
		})
	}
	return instructions
}

func annotate(program *bytecode.Program, instr bytecode.Instruction) string {
	switch instr := instr.(type) {
	case bytecode.Jump:
		return "-> " + targetName(program, instr.Target)
	case bytecode.JumpIfZero:
		return "-> " + targetName(program, instr.Target) + " if zero"
	case bytecode.Call:
		locals := "locals"
		if instr.LocalCount == 1 {
			locals = "local"
		}
		return fmt.Sprintf("call %s (%d %s)", targetName(program, instr.Target), instr.LocalCount, locals)
	case bytecode.Load, bytecode.Store:
		return fmt.Sprintf("local[%d]", instr.Operands()[0])
	}
	return ""
}

func targetName(program *bytecode.Program, target int64) string {
	if target < 0 || target >= int64(program.InstructionCount()) {
		if target == int64(program.InstructionCount()) {
			if names := program.LabelsAt(int(target)); len(names) > 0 {
				return names[0] + " (end)"
			}
		}
		return fmt.Sprintf("%d (out of range)", target)
	}
	if names := program.LabelsAt(int(target)); len(names) > 0 {
		return names[0]
	}
	return fmt.Sprintf("%d", target)
}

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
)

// Print a table of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(writer)
	tw.AppendHeader(table.Row{"Addr", "Label", "Opcode", "Operands", "Info"})
	for _, instr := range instructions {
		var label string
		if len(instr.Labels) > 0 {
			label = green(strings.Join(instr.Labels, ", ") + ":")
		}
		operands := formatOperands(instr.Operands)
		if instr.Opcode == op.PushConst && operands != "" {
			operands = yellow(operands)
		}
		var info string
		if instr.Annotation != "" {
			info = cyan(instr.Annotation)
		}
		tw.AppendRow(table.Row{instr.Address, label, bold(instr.Name), operands, info})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})
	tw.Render()
}

func formatOperands(operands []int64) string {
	var sb strings.Builder
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%d", operand))
	}
	return sb.String()
}
