package instruction

import (
	"fmt"
	"strings"
)

// Category is fixed when the instruction is built.
type Category uint8

const (
	CategoryOperation Category = iota
	CategoryGapMoves
	CategoryBlockStart
	CategorySourcePosition
)

func (c Category) String() string {
	switch c {
	case CategoryOperation:
		return "operation"
	case CategoryGapMoves:
		return "gap"
	case CategoryBlockStart:
		return "block-start"
	case CategorySourcePosition:
		return "source-position"
	default:
		return fmt.Sprintf("category(%d)", c)
	}
}

type Instruction struct {
	code     InstructionCode
	category Category

	arch      ArchOpcode
	mode      AddressingMode
	flagsMode FlagsMode
	condition FlagsCondition
	misc      int

	outputs []Operand
	inputs  []Operand
	temps   []Operand

	pointerMap *PointerMap

	// gaps and block starts
	moves [GapPositionCount]*ParallelMove
	block BlockID

	position SourcePosition
}

// New decodes code once; the decoded fields are what the generator reads.
func New(code InstructionCode, outputs, inputs, temps []Operand) *Instruction {
	return &Instruction{
		code:      code,
		category:  CategoryOperation,
		arch:      code.ArchOpcode(),
		mode:      code.AddressingMode(),
		flagsMode: code.FlagsMode(),
		condition: code.FlagsCondition(),
		misc:      code.Misc(),
		outputs:   outputs,
		inputs:    inputs,
		temps:     temps,
	}
}

func NewGap() *Instruction {
	return &Instruction{category: CategoryGapMoves}
}

func NewBlockStart(block BlockID) *Instruction {
	return &Instruction{category: CategoryBlockStart, block: block}
}

func NewSourcePosition(pos SourcePosition) *Instruction {
	return &Instruction{category: CategorySourcePosition, position: pos}
}

func (i *Instruction) Code() InstructionCode          { return i.code }
func (i *Instruction) Category() Category             { return i.category }
func (i *Instruction) ArchOpcode() ArchOpcode         { return i.arch }
func (i *Instruction) AddressingMode() AddressingMode { return i.mode }
func (i *Instruction) FlagsMode() FlagsMode           { return i.flagsMode }
func (i *Instruction) FlagsCondition() FlagsCondition { return i.condition }
func (i *Instruction) Misc() int                      { return i.misc }

func (i *Instruction) IsBlockStart() bool { return i.category == CategoryBlockStart }

// IsGapMoves is true for plain gaps and for block starts.
func (i *Instruction) IsGapMoves() bool {
	return i.category == CategoryGapMoves || i.category == CategoryBlockStart
}

func (i *Instruction) IsSourcePosition() bool { return i.category == CategorySourcePosition }

func (i *Instruction) DeoptimizationSupport() DeoptimizationSupport {
	return DeoptimizationSupport(i.misc)
}

func (i *Instruction) OutputCount() int     { return len(i.outputs) }
func (i *Instruction) Output(n int) Operand { return i.outputs[n] }
func (i *Instruction) Outputs() []Operand   { return i.outputs }
func (i *Instruction) InputCount() int      { return len(i.inputs) }
func (i *Instruction) Input(n int) Operand  { return i.inputs[n] }
func (i *Instruction) Inputs() []Operand    { return i.inputs }
func (i *Instruction) TempCount() int       { return len(i.temps) }
func (i *Instruction) Temp(n int) Operand   { return i.temps[n] }

func (i *Instruction) HasPointerMap() bool          { return i.pointerMap != nil }
func (i *Instruction) PointerMap() *PointerMap      { return i.pointerMap }
func (i *Instruction) SetPointerMap(pm *PointerMap) { i.pointerMap = pm }

// Block is the block a BlockStart opens.
func (i *Instruction) Block() BlockID { return i.block }

func (i *Instruction) SourcePosition() SourcePosition { return i.position }

// ParallelMove returns the move at pos, or nil if none was created.
func (i *Instruction) ParallelMove(pos GapPosition) *ParallelMove {
	return i.moves[pos]
}

func (i *Instruction) GetOrCreateParallelMove(pos GapPosition) *ParallelMove {
	if i.moves[pos] == nil {
		i.moves[pos] = &ParallelMove{}
	}
	return i.moves[pos]
}

func (i *Instruction) String() string {
	var sb strings.Builder
	switch i.category {
	case CategoryBlockStart:
		fmt.Fprintf(&sb, "[B%d]", i.block)
		i.writeMoves(&sb)
		return sb.String()
	case CategoryGapMoves:
		sb.WriteString("gap")
		i.writeMoves(&sb)
		return sb.String()
	case CategorySourcePosition:
		return fmt.Sprintf("position %s", i.position)
	}
	if len(i.outputs) > 0 {
		sb.WriteString(joinOperands(i.outputs))
		sb.WriteString(" = ")
	}
	sb.WriteString(i.arch.String())
	if i.flagsMode != FlagsNone {
		fmt.Fprintf(&sb, " && %s if %s", i.flagsMode, i.condition)
	}
	if len(i.inputs) > 0 {
		sb.WriteString(" ")
		sb.WriteString(joinOperands(i.inputs))
	}
	if i.pointerMap != nil {
		fmt.Fprintf(&sb, " %s", i.pointerMap)
	}
	return sb.String()
}

func (i *Instruction) writeMoves(sb *strings.Builder) {
	for pos, m := range i.moves {
		if m == nil || len(m.moves) == 0 {
			continue
		}
		fmt.Fprintf(sb, " %s(%s)", GapPosition(pos), m)
	}
}

func joinOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for n, op := range ops {
		parts[n] = op.String()
	}
	return strings.Join(parts, ", ")
}
