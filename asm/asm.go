// Package asm assembles stackvm assembly text into an immutable
// bytecode.Program.
//
// # Two-Pass Assembly
//
// The assembler makes two passes over the source lines so that a jump or call
// may reference a label declared later in the source.
//
// Pass 1: collectLabels
//
// Walks every line, skipping blank and comment-only lines. A line ending in a
// colon declares a label bound to the address of the next instruction. Every
// other line is one instruction and advances the address by one.
//
// Pass 2: emit
//
// Walks the lines again and decodes each instruction line. The first word is
// the mnemonic; the remaining words are operands. An operand made only of
// digits, with at most one leading sign, is an integer. Any other operand is a
// label reference resolved through the table built in pass 1.
//
// # Validation
//
// Beyond unknown mnemonics and labels, the assembler rejects operand-count
// mismatches, integer literals that do not fit in 64 bits, negative CALL
// local counts, duplicate labels and malformed label names. Assemble stops at
// the first problem; Check reports all of them.
package asm

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stackvm/bytecode"
	"github.com/deepnoodle-ai/stackvm/errz"
	"github.com/deepnoodle-ai/stackvm/op"
)

// Option configures an Assembler.
type Option func(*Assembler)

// WithFilename sets the source filename used in error locations.
func WithFilename(filename string) Option {
	return func(a *Assembler) {
		a.filename = filename
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// Assembler converts assembly source lines into a bytecode.Program.
// An Assembler holds no state between calls and may be reused.
type Assembler struct {
	filename string
	logger   zerolog.Logger
}

// New returns an Assembler configured with the given options.
func New(opts ...Option) *Assembler {
	a := &Assembler{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble assembles the given source lines, stopping at the first error.
func Assemble(lines []string, opts ...Option) (*bytecode.Program, error) {
	return New(opts...).Assemble(lines)
}

// AssembleString splits src into lines and assembles them.
func AssembleString(src string, opts ...Option) (*bytecode.Program, error) {
	return Assemble(SplitLines(src), opts...)
}

// Check assembles the given source lines and reports every problem found
// instead of stopping at the first. The returned error is a
// *multierror.Error of *errz.AssemblyError values, or nil if the source
// assembles cleanly.
func Check(lines []string, opts ...Option) error {
	return New(opts...).Check(lines)
}

// SplitLines splits source text into lines.
func SplitLines(src string) []string {
	return strings.Split(src, "\n")
}

// Assemble assembles the given source lines, stopping at the first error.
func (a *Assembler) Assemble(lines []string) (*bytecode.Program, error) {
	p := a.newPass(lines, false)
	if err := p.collectLabels(); err != nil {
		return nil, err
	}
	if err := p.emit(); err != nil {
		return nil, err
	}
	program := p.program()
	a.logger.Debug().
		Str("filename", a.filename).
		Int("instructions", program.InstructionCount()).
		Int("labels", program.LabelCount()).
		Msg("assembled program")
	return program, nil
}

// Check assembles the given source lines and reports every problem found.
func (a *Assembler) Check(lines []string) error {
	p := a.newPass(lines, true)
	p.collectLabels()
	p.emit()
	if p.errs != nil {
		a.logger.Debug().
			Str("filename", a.filename).
			Int("errors", p.errs.Len()).
			Msg("check found problems")
	}
	return p.errs.ErrorOrNil()
}

// pass carries the state of one assembly run.
type pass struct {
	filename     string
	lines        []sourceLine
	labels       map[string]int
	labelLines   map[string]int
	instructions []bytecode.Instruction
	locations    []bytecode.SourceLocation
	collect      bool
	errs         *multierror.Error
}

func (a *Assembler) newPass(lines []string, collect bool) *pass {
	return &pass{
		filename:   a.filename,
		lines:      cleanLines(lines),
		labels:     map[string]int{},
		labelLines: map[string]int{},
		collect:    collect,
	}
}

// fail records err. It returns err when assembly should stop.
func (p *pass) fail(err *errz.AssemblyError) error {
	if p.collect {
		p.errs = multierror.Append(p.errs, err)
		return nil
	}
	return err
}

func (p *pass) location(line sourceLine, textOffset int) errz.SourceLocation {
	return errz.SourceLocation{
		Filename: p.filename,
		Line:     line.number,
		Column:   line.column(textOffset),
		Source:   line.raw,
	}
}

// collectLabels registers every label at the address of the instruction that
// follows it.
func (p *pass) collectLabels() error {
	addr := 0
	for _, line := range p.lines {
		if line.isBlank() {
			continue
		}
		if !line.isLabel() {
			addr++
			continue
		}
		name := line.labelName()
		loc := p.location(line, 0)
		switch {
		case name == "":
			if err := p.fail(errz.NewAssemblyErrorf(errz.InvalidLabel, loc,
				"empty label name")); err != nil {
				return err
			}
			continue
		case strings.IndexFunc(name, unicode.IsSpace) >= 0:
			if err := p.fail(errz.NewAssemblyErrorf(errz.InvalidLabel, loc,
				"label name %q contains whitespace", name)); err != nil {
				return err
			}
			continue
		case isInteger(name):
			if err := p.fail(errz.NewAssemblyErrorf(errz.InvalidLabel, loc,
				"label name %q is an integer literal", name)); err != nil {
				return err
			}
			continue
		}
		if first, exists := p.labelLines[name]; exists {
			dup := errz.NewAssemblyErrorf(errz.DuplicateLabel, loc,
				"label %q already declared", name).
				WithHint("first declared on line " + strconv.Itoa(first))
			if err := p.fail(dup); err != nil {
				return err
			}
			continue
		}
		p.labels[name] = addr
		p.labelLines[name] = line.number
	}
	return nil
}

// emit decodes every instruction line into the instruction sequence.
func (p *pass) emit() error {
	for _, line := range p.lines {
		if line.isBlank() || line.isLabel() {
			continue
		}
		instr, err := p.decode(line)
		if err != nil {
			if stop := p.fail(err); stop != nil {
				return stop
			}
			continue
		}
		p.instructions = append(p.instructions, instr)
		p.locations = append(p.locations, bytecode.SourceLocation{
			Line:   line.number,
			Column: line.column(0),
			Source: line.raw,
		})
	}
	return nil
}

func (p *pass) decode(line sourceLine) (bytecode.Instruction, *errz.AssemblyError) {
	tokens := line.tokens()
	mnemonic := tokens[0]
	code, ok := op.Lookup(mnemonic.text)
	if !ok {
		err := errz.NewAssemblyErrorf(errz.UnknownOpcode, p.location(line, mnemonic.offset),
			"unknown opcode: %s", mnemonic.text)
		return nil, err.WithHint(errz.Hint(mnemonic.text, mnemonicNames()))
	}

	operands := make([]int64, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		value, err := p.resolve(line, tok)
		if err != nil {
			return nil, err
		}
		operands = append(operands, value)
	}

	info := op.GetInfo(code)
	if len(operands) != info.OperandCount {
		return nil, errz.NewAssemblyErrorf(errz.ArityMismatch, p.location(line, mnemonic.offset),
			"%s takes %s (%d given)", info.Name, pluralOperands(info.OperandCount), len(operands))
	}
	if code == op.Call && operands[1] < 0 {
		return nil, errz.NewAssemblyErrorf(errz.InvalidOperand, p.location(line, tokens[2].offset),
			"CALL local count must not be negative (got %d)", operands[1])
	}

	instr, err := bytecode.NewInstruction(code, operands...)
	if err != nil {
		return nil, errz.NewAssemblyErrorf(errz.ArityMismatch, p.location(line, mnemonic.offset),
			"%s", err.Error())
	}
	return instr, nil
}

// resolve converts an operand token to its value: either an integer literal
// or the address of a label.
func (p *pass) resolve(line sourceLine, tok token) (int64, *errz.AssemblyError) {
	if isInteger(tok.text) {
		value, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return 0, errz.NewAssemblyErrorf(errz.InvalidOperand, p.location(line, tok.offset),
				"integer operand %s out of range", tok.text)
		}
		return value, nil
	}
	addr, ok := p.labels[tok.text]
	if !ok {
		err := errz.NewAssemblyErrorf(errz.UnknownLabel, p.location(line, tok.offset),
			"unknown label reference: %s", tok.text)
		return 0, err.WithHint(errz.Hint(tok.text, p.labelNames()))
	}
	return int64(addr), nil
}

func (p *pass) labelNames() []string {
	names := make([]string, 0, len(p.labels))
	for name := range p.labels {
		names = append(names, name)
	}
	return names
}

func (p *pass) program() *bytecode.Program {
	return bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: p.instructions,
		Labels:       p.labels,
		Locations:    p.locations,
		Filename:     p.filename,
	})
}

func mnemonicNames() []string {
	codes := op.All()
	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = code.String()
	}
	return names
}

func pluralOperands(n int) string {
	switch n {
	case 0:
		return "no operands"
	case 1:
		return "1 operand"
	default:
		return strconv.Itoa(n) + " operands"
	}
}
