package instruction

import (
	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/heap"
)

// Sequence is the register-allocated instruction stream of one compilation unit.
type Sequence struct {
	instructions   []*Instruction
	blocks         []*BasicBlock
	frameStates    []*FrameStateDescriptor
	spillSlotCount int
	factory        *heap.Factory
}

func NewSequence(factory *heap.Factory) *Sequence {
	if factory == nil {
		factory = heap.NewFactory()
	}
	return &Sequence{factory: factory}
}

// Factory allocates the constants the unit references.
func (s *Sequence) Factory() *heap.Factory { return s.factory }

// AddBlock appends a block; ids and RPO numbers follow insertion order.
func (s *Sequence) AddBlock() *BasicBlock {
	b := &BasicBlock{ID: BlockID(len(s.blocks)), RPONumber: len(s.blocks)}
	s.blocks = append(s.blocks, b)
	return b
}

func (s *Sequence) Blocks() []*BasicBlock { return s.blocks }
func (s *Sequence) BlockCount() int       { return len(s.blocks) }

func (s *Sequence) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(s.blocks) {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownBlock, "block %d of %d", id, len(s.blocks))
	}
	return s.blocks[id]
}

// StartBlock appends the BlockStart gap that opens b.
func (s *Sequence) StartBlock(b *BasicBlock) *Instruction {
	instr := NewBlockStart(b.ID)
	s.Add(instr)
	return instr
}

// Add appends instr and returns its index.
func (s *Sequence) Add(instr *Instruction) int {
	s.instructions = append(s.instructions, instr)
	return len(s.instructions) - 1
}

func (s *Sequence) Instructions() []*Instruction     { return s.instructions }
func (s *Sequence) InstructionAt(i int) *Instruction { return s.instructions[i] }

// AddDeoptimizationEntry registers a frame state and returns its deopt id.
func (s *Sequence) AddDeoptimizationEntry(d *FrameStateDescriptor) int {
	s.frameStates = append(s.frameStates, d)
	return len(s.frameStates) - 1
}

func (s *Sequence) DeoptimizationEntryCount() int { return len(s.frameStates) }

func (s *Sequence) DeoptimizationEntry(id int) *FrameStateDescriptor {
	if id < 0 || id >= len(s.frameStates) {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownDeoptEntry, "deopt id %d of %d", id, len(s.frameStates))
	}
	return s.frameStates[id]
}

func (s *Sequence) SpillSlotCount() int     { return s.spillSlotCount }
func (s *Sequence) SetSpillSlotCount(n int) { s.spillSlotCount = n }

// AllocateSpillSlot reserves the next stack slot index.
func (s *Sequence) AllocateSpillSlot() int {
	s.spillSlotCount++
	return s.spillSlotCount - 1
}
