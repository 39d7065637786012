package instruction

import (
	"errors"
	"strings"
	"testing"

	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionCodeFields(t *testing.T) {
	code := EncodeCode(FirstTargetOpcode+3, ModeNone, FlagsBranch, CondUnsignedLessThan, 0xabc)
	assert.Equal(t, FirstTargetOpcode+3, code.ArchOpcode())
	assert.Equal(t, FlagsBranch, code.FlagsMode())
	assert.Equal(t, CondUnsignedLessThan, code.FlagsCondition())
	assert.Equal(t, 0xabc, code.Misc())

	instr := New(code, nil, nil, nil)
	assert.Equal(t, CategoryOperation, instr.Category())
	assert.Equal(t, FirstTargetOpcode+3, instr.ArchOpcode())
	assert.Equal(t, 0xabc, instr.Misc())
}

func TestRawFlagsModeThreeIsKept(t *testing.T) {
	code := InstructionCode(3 << flagsModeShift)
	instr := New(code, nil, nil, nil)
	assert.Equal(t, FlagsMode(3), instr.FlagsMode())
	assert.Equal(t, "flags(3)", instr.FlagsMode().String())
}

func TestDeoptimizationSupport(t *testing.T) {
	instr := New(EncodeCode(ArchCallCodeObject, ModeNone, FlagsNone, 0, int(LazyDeoptimization|NeedsFrameState)), nil, nil, nil)
	d := instr.DeoptimizationSupport()
	assert.True(t, d.HasLazyDeoptimization())
	assert.True(t, d.NeedsFrameState())
	assert.False(t, NoDeoptimization.NeedsFrameState())
}

func TestConditionNegate(t *testing.T) {
	assert.Equal(t, CondNotEqual, CondEqual.Negate())
	assert.Equal(t, CondSignedLessThan, CondSignedGreaterThanOrEqual.Negate())
	assert.Equal(t, CondNotOverflow, CondOverflow.Negate())
	c, ok := ParseCondition("unsigned-greater-than")
	require.True(t, ok)
	assert.Equal(t, CondUnsignedGreaterThan, c)
}

func TestOperandEquals(t *testing.T) {
	f := heap.NewFactory()
	a := f.Object("a")
	assert.True(t, Register(1).Equals(Register(1)))
	assert.False(t, Register(1).Equals(DoubleRegister(1)))
	assert.False(t, StackSlot(1).Equals(StackSlot(2)))
	assert.True(t, Immediate(Int32(4)).Equals(Immediate(Int32(4))))
	assert.False(t, Immediate(Int32(4)).Equals(Immediate(Float64(4))))
	assert.True(t, Immediate(HeapReference(a)).Equals(Immediate(HeapReference(f.Object("a")))))
	assert.False(t, Immediate(HeapReference(f.NewHeapNumber(1))).Equals(Immediate(HeapReference(f.NewHeapNumber(1)))))
	assert.Equal(t, "ds3", DoubleStackSlot(3).String())
	assert.Equal(t, "#<a>", Immediate(HeapReference(a)).String())
}

func TestConstantWrongTypeIsFatal(t *testing.T) {
	run := func() (err error) {
		defer codegenerrors.Recover(&err)
		Float64(1.5).ToInt32()
		return nil
	}
	err := run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, codegenerrors.ErrMConstantType))
	assert.Equal(t, 1.5, Float64(1.5).ToFloat64())
	assert.Equal(t, int32(-7), Int32(-7).ToInt32())
}

func TestPointerMapNormalized(t *testing.T) {
	pm := NewPointerMap()
	pm.RecordPointer(StackSlot(2))
	pm.RecordPointer(Register(3))
	pm.RecordPointer(StackSlot(2))
	pm.RecordPointer(StackSlot(5))
	pm.RecordPointer(Immediate(Int32(1)))
	pm.RecordUntagged(StackSlot(5))
	assert.Equal(t, []Operand{StackSlot(2), Register(3)}, pm.NormalizedOperands())

	pm.RemovePointer(StackSlot(2))
	assert.Equal(t, []Operand{Register(3)}, pm.NormalizedOperands())
	assert.Equal(t, "{r3}", pm.String())
}

func TestParallelMoveRedundancy(t *testing.T) {
	gap := NewGap()
	assert.Nil(t, gap.ParallelMove(GapRegular))
	pm := gap.GetOrCreateParallelMove(GapRegular)
	self := pm.AddMove(Register(1), Register(1))
	assert.True(t, pm.IsRedundant())

	m := pm.AddMove(Register(1), StackSlot(0))
	assert.False(t, pm.IsRedundant())
	assert.True(t, m.Blocks(Register(1)))
	assert.False(t, m.Blocks(StackSlot(0)))

	m.Eliminate()
	assert.True(t, m.IsEliminated())
	assert.False(t, m.Blocks(Register(1)))
	assert.True(t, self.IsRedundant())
	assert.True(t, pm.IsRedundant())
	assert.True(t, gap.IsGapMoves())
	assert.True(t, NewBlockStart(2).IsGapMoves())
}

func TestSequenceDeoptEntries(t *testing.T) {
	seq := NewSequence(nil)
	id := seq.AddDeoptimizationEntry(&FrameStateDescriptor{BailoutID: 9, Size: 4, ParametersCount: 1})
	assert.Equal(t, 0, id)
	assert.Equal(t, 3, seq.DeoptimizationEntry(0).Height())
	assert.Panics(t, func() { seq.DeoptimizationEntry(1) })
	assert.Panics(t, func() { seq.Block(0) })

	b := seq.AddBlock()
	start := seq.StartBlock(b)
	assert.True(t, start.IsBlockStart())
	assert.Equal(t, b.ID, start.Block())
	assert.Equal(t, 0, seq.AllocateSpillSlot())
	assert.Equal(t, 1, seq.SpillSlotCount())
}

func TestScriptLineColumn(t *testing.T) {
	s := NewScript("f.js", "ab\ncde\n\nx")
	tests := []struct {
		offset, line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{5, 2, 3},
		{7, 3, 1},
		{8, 4, 1},
	}
	for _, tc := range tests {
		line, col := s.LineColumn(tc.offset)
		assert.Equal(t, tc.line, line, "offset %d", tc.offset)
		assert.Equal(t, tc.col, col, "offset %d", tc.offset)
	}
}

const sampleUnit = `{
  "name": "add",
  "kind": "js-function",
  "parameters": 2,
  "optimization_id": 4,
  "optimizing": true,
  "shared_info": "add",
  "spill_slots": 2,
  "frame_states": [{"bailout_id": 7, "size": 3, "parameters": 2}],
  "blocks": [
    {
      "moves": {"regular": [{"src": "r1", "dst": "s0"}]},
      "instructions": [
        {"op": "position", "position": 12},
        {"op": "ArchCallCodeObject", "inputs": ["#h:callee", "#0", "r1", "#h:callee", "B1", "B1"],
         "deopt": ["lazy", "frame-state"], "pointers": ["s0", "s1"], "untagged": ["s1"]},
        {"op": "gap", "moves": {"pre-phi": [{"src": "#f:1.5", "dst": "d0"}]}}
      ]
    },
    {"instructions": [{"op": "ArchRet"}]}
  ]
}`

func TestLoadSequence(t *testing.T) {
	unit, err := LoadSequence(strings.NewReader(sampleUnit), nil)
	require.NoError(t, err)
	assert.Equal(t, "add", unit.Name)
	assert.True(t, unit.Linkage.Incoming.IsJSFunctionCall())
	assert.Equal(t, 2, unit.Linkage.Incoming.ParameterCount)
	assert.Equal(t, 4, unit.Linkage.OptimizationID)

	seq := unit.Sequence
	require.Equal(t, 2, seq.BlockCount())
	require.Equal(t, 1, seq.DeoptimizationEntryCount())
	instrs := seq.Instructions()
	require.Len(t, instrs, 6)

	assert.True(t, instrs[0].IsBlockStart())
	moves := instrs[0].ParallelMove(GapRegular).Moves()
	require.Len(t, moves, 1)
	assert.Equal(t, StackSlot(0), moves[0].Destination)

	assert.Equal(t, 12, instrs[1].SourcePosition().Raw())

	call := instrs[2]
	assert.Equal(t, ArchCallCodeObject, call.ArchOpcode())
	assert.True(t, call.DeoptimizationSupport().NeedsFrameState())
	assert.Equal(t, []Operand{StackSlot(0)}, call.PointerMap().NormalizedOperands())
	assert.True(t, heap.Identical(call.Input(0).Constant.ToHeapObject(), call.Input(3).Constant.ToHeapObject()))
	assert.Equal(t, int32(1), call.Input(5).Constant.ToInt32())

	assert.Equal(t, 1.5, instrs[3].ParallelMove(GapPrePhi).Moves()[0].Source.Constant.ToFloat64())
	assert.True(t, instrs[4].IsBlockStart())
	assert.Equal(t, ArchRet, instrs[5].ArchOpcode())
}

func TestLoadSequenceErrors(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"opcode", `{"blocks":[{"instructions":[{"op":"Frobnicate"}]}]}`},
		{"operand", `{"blocks":[{"instructions":[{"op":"ArchJmp","inputs":["q1"]}]}]}`},
		{"position", `{"blocks":[{"moves":{"middle":[]},"instructions":[]}]}`},
		{"immediate destination", `{"blocks":[{"instructions":[{"op":"gap","moves":{"regular":[{"src":"r0","dst":"#1"}]}}]}]}`},
		{"frame state", `{"frame_states":[{"bailout_id":1,"size":1,"parameters":2}],"blocks":[]}`},
		{"unknown field", `{"bogus":1}`},
		{"negative misc", `{"blocks":[{"instructions":[{"op":"ArchNop","misc":-1}]}]}`},
		{"misc too wide", `{"blocks":[{"instructions":[{"op":"ArchNop","misc":4096}]}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadSequence(strings.NewReader(tc.body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadSequenceBackendOpcodes(t *testing.T) {
	table := func(name string) (ArchOpcode, bool) {
		if name == "Add" {
			return FirstTargetOpcode, true
		}
		return 0, false
	}
	body := `{"blocks":[{"instructions":[{"op":"Add","outputs":["r0"],"inputs":["r0","#2"],"flags":"set","cond":"overflow"}]}]}`
	unit, err := LoadSequence(strings.NewReader(body), table)
	require.NoError(t, err)
	add := unit.Sequence.InstructionAt(1)
	assert.Equal(t, FirstTargetOpcode, add.ArchOpcode())
	assert.Equal(t, FlagsSet, add.FlagsMode())
	assert.Equal(t, CondOverflow, add.FlagsCondition())
	assert.Equal(t, "r0 = TargetOpcode(16) && set if overflow r0, #2", add.String())
}
