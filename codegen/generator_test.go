package codegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/deopt"
	"github.com/colorfulnotion/lowering/instruction"
	"github.com/colorfulnotion/lowering/safepoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingBackend emits placeholder bytes and logs every seam call.
type recordingBackend struct {
	ops []string
}

var _ Backend = (*recordingBackend)(nil)

func (b *recordingBackend) AssemblePrologue(g *CodeGenerator) {
	g.Buffer().Emit(0x55)
	b.ops = append(b.ops, "prologue")
}

func (b *recordingBackend) AssembleArchInstruction(g *CodeGenerator, instr *instruction.Instruction) {
	buf := g.Buffer()
	switch instr.ArchOpcode() {
	case instruction.ArchCallCodeObject:
		buf.Emit(0xe8, 0, 0, 0, 0)
		g.AddSafepointAndDeopt(instr)
		if instr.DeoptimizationSupport().HasLazyDeoptimization() {
			buf.Emit(0xe9)
			buf.EmitRel32(g.BlockLabel(g.InputBlock(instr, instr.InputCount()-2)))
		}
	case instruction.ArchJmp:
		buf.Emit(0xe9)
		buf.EmitRel32(g.BlockLabel(g.InputBlock(instr, 0)))
	case instruction.ArchRet:
		b.AssembleReturn(g)
	case instruction.ArchDeoptimize:
		g.BuildTranslation(instr, 0, instr.Misc())
		buf.Emit(0xcc)
	default:
		buf.Emit(0x90)
	}
	b.ops = append(b.ops, instr.ArchOpcode().String())
}

func (b *recordingBackend) AssembleArchBranch(g *CodeGenerator, instr *instruction.Instruction, cond instruction.FlagsCondition) {
	n := instr.InputCount()
	g.Buffer().Emit(0x0f, 0x80)
	g.Buffer().EmitRel32(g.BlockLabel(g.InputBlock(instr, n-2)))
	if fblock := g.InputBlock(instr, n-1); !g.IsNextInAssemblyOrder(fblock) {
		g.Buffer().Emit(0xe9)
		g.Buffer().EmitRel32(g.BlockLabel(fblock))
	}
	b.ops = append(b.ops, "branch "+cond.String())
}

func (b *recordingBackend) AssembleArchBoolean(g *CodeGenerator, instr *instruction.Instruction, cond instruction.FlagsCondition) {
	g.Buffer().Emit(0x0f, 0x90)
	b.ops = append(b.ops, "boolean "+cond.String())
}

func (b *recordingBackend) AssembleReturn(g *CodeGenerator) {
	g.Buffer().Emit(0xc3)
}

func (b *recordingBackend) AssembleMove(g *CodeGenerator, src, dst instruction.Operand) {
	g.Buffer().Emit(0x89)
	b.ops = append(b.ops, fmt.Sprintf("move %s->%s", src, dst))
}

func (b *recordingBackend) AssembleSwap(g *CodeGenerator, src, dst instruction.Operand) {
	g.Buffer().Emit(0x87)
	b.ops = append(b.ops, fmt.Sprintf("swap %s,%s", src, dst))
}

func (b *recordingBackend) AddNopForSmiCodeInlining(g *CodeGenerator) {
	g.Buffer().Emit(0x90)
}

func op(arch instruction.ArchOpcode, inputs ...instruction.Operand) *instruction.Instruction {
	return instruction.New(instruction.EncodeCode(arch, instruction.ModeNone, instruction.FlagsNone, 0, 0), nil, inputs, nil)
}

func callWith(support instruction.DeoptimizationSupport, inputs ...instruction.Operand) *instruction.Instruction {
	code := instruction.EncodeCode(instruction.ArchCallCodeObject, instruction.ModeNone, instruction.FlagsNone, 0, int(support))
	return instruction.New(code, nil, inputs, nil)
}

func generate(t *testing.T, seq *instruction.Sequence, linkage *instruction.Linkage, opts Options) (*Code, *recordingBackend, error) {
	t.Helper()
	backend := &recordingBackend{}
	code, err := New(seq, linkage, backend, opts).GenerateCode(context.Background())
	return code, backend, err
}

func stub() *instruction.Linkage {
	return &instruction.Linkage{Incoming: &instruction.CallDescriptor{Kind: instruction.CallStub}}
}

// lazyCallSequence: B0 calls with a lazy deopt point continuing in B1 or
// deoptimizing in B2.
func lazyCallSequence() *instruction.Sequence {
	seq := instruction.NewSequence(nil)
	seq.SetSpillSlotCount(2)
	deoptID := seq.AddDeoptimizationEntry(&instruction.FrameStateDescriptor{BailoutID: 5, Size: 2, ParametersCount: 1})
	b0, b1, b2 := seq.AddBlock(), seq.AddBlock(), seq.AddBlock()

	seq.StartBlock(b0)
	call := callWith(instruction.LazyDeoptimization|instruction.NeedsFrameState,
		instruction.Immediate(instruction.HeapReference(seq.Factory().Object("target"))),
		instruction.Immediate(instruction.Int32(int32(deoptID))),
		instruction.StackSlot(0),
		instruction.Immediate(instruction.Int32(17)),
		instruction.BlockRef(b1.ID),
		instruction.BlockRef(b2.ID),
	)
	pm := instruction.NewPointerMap()
	pm.RecordPointer(instruction.StackSlot(1))
	pm.RecordPointer(instruction.Register(4))
	call.SetPointerMap(pm)
	seq.Add(call)

	seq.StartBlock(b1)
	seq.Add(op(instruction.ArchRet))
	seq.StartBlock(b2)
	seq.Add(op(instruction.ArchRet))
	return seq
}

func TestLazyDeoptimizationPcIsPatched(t *testing.T) {
	seq := lazyCallSequence()
	linkage := &instruction.Linkage{
		Incoming:       &instruction.CallDescriptor{Kind: instruction.CallJSFunction, ParameterCount: 1},
		OptimizationID: 11,
		Optimizing:     true,
		SharedInfo:     seq.Factory().Object("shared"),
	}
	code, backend, err := generate(t, seq, linkage, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"prologue", "ArchCallCodeObject", "ArchRet", "ArchRet"}, backend.ops)
	assert.Equal(t, KindOptimizedFunction, code.Kind)
	assert.True(t, code.Turbofanned)
	assert.Equal(t, 0, code.PrologueOffset)
	assert.Equal(t, 2, code.StackSlots)
	assert.Equal(t, 13, code.InstructionSize)
	assert.Equal(t, 16, code.SafepointTableOffset)

	// prologue 1 + call 5; jmp 5 -> B1 at 11, B2 at 12
	table, err := code.SafepointTable()
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	e, ok := table.Find(6)
	require.True(t, ok)
	assert.Equal(t, 12, e.DeoptPC)
	assert.Equal(t, 0, e.DeoptIndex)
	assert.Equal(t, safepoint.LazyDeopt, e.DeoptMode)
	assert.Equal(t, []int{1}, e.Slots)
	assert.Empty(t, e.Registers)

	data := code.DeoptimizationData
	require.NotNil(t, data)
	assert.Equal(t, 11, data.OptimizationID)
	assert.Equal(t, "<shared>", data.SharedFunctionInfo.String())
	require.Len(t, data.Entries, 1)
	assert.Equal(t, deopt.EntryData{AstID: 5, TranslationIndex: 0, ArgumentsStackHeight: 0, Pc: -1}, data.Entries[0])

	cmds, err := deopt.Decode(data.TranslationByteArray, 0)
	require.NoError(t, err)
	assert.Equal(t, []deopt.Command{
		{Op: deopt.OpBegin, Args: []int{1, 1}},
		{Op: deopt.OpJSFrame, Args: []int{5, deopt.SelfLiteralID, 1}},
		{Op: deopt.OpStackSlot, Args: []int{0}},
		{Op: deopt.OpLiteral, Args: []int{0}},
	}, cmds)
	require.Len(t, data.LiteralArray, 1)
	assert.Equal(t, "17", data.LiteralArray[0].String())
}

func TestEveryCallHasASafepoint(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.SetSpillSlotCount(3)
	b0 := seq.AddBlock()
	seq.StartBlock(b0)
	target := instruction.Immediate(instruction.HeapReference(seq.Factory().Object("f")))
	for i := 0; i < 3; i++ {
		call := callWith(instruction.NoDeoptimization, target)
		pm := instruction.NewPointerMap()
		pm.RecordPointer(instruction.StackSlot(i))
		call.SetPointerMap(pm)
		seq.Add(call)
		seq.Add(op(instruction.ArchNop))
	}
	seq.Add(op(instruction.ArchRet))

	code, _, err := generate(t, seq, stub(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, KindStub, code.Kind)
	assert.Nil(t, code.DeoptimizationData)

	table, err := code.SafepointTable()
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	for i, pc := range []int{6, 12, 18} {
		e, ok := table.Find(pc)
		require.True(t, ok, "pc %d", pc)
		assert.Equal(t, i, e.ID)
		assert.Equal(t, []int{i}, e.Slots)
		assert.Equal(t, safepoint.NoDeoptimizationIndex, e.DeoptIndex)
		assert.Equal(t, safepoint.NoDeoptimizationPc, e.DeoptPC)
	}
	assert.Equal(t, 0, code.SafepointTableOffset%8)
}

func TestRecordSafepointRegistersOnlyWithRegisters(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.SetSpillSlotCount(1)
	g := New(seq, stub(), &recordingBackend{}, DefaultOptions())
	pm := instruction.NewPointerMap()
	pm.RecordPointer(instruction.Register(2))
	pm.RecordPointer(instruction.StackSlot(0))
	pm.RecordPointer(instruction.DoubleStackSlot(0))

	simple := g.RecordSafepoint(pm, safepoint.Simple, 0, safepoint.NoLazyDeopt)
	withRegs := g.RecordSafepoint(pm, safepoint.WithRegisters, 1, safepoint.NoLazyDeopt)
	assert.Empty(t, g.Safepoints().Entry(simple).Registers)
	assert.Equal(t, []int{0}, g.Safepoints().Entry(simple).Slots)
	assert.Equal(t, []int{2}, g.Safepoints().Entry(withRegs).Registers)
	assert.Equal(t, 1, g.Safepoints().Entry(withRegs).Arguments)
}

func TestNoMetadataFastPath(t *testing.T) {
	seq := instruction.NewSequence(nil)
	b0 := seq.AddBlock()
	seq.StartBlock(b0)
	seq.Add(op(instruction.ArchRet))
	code, _, err := generate(t, seq, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, code.DeoptimizationData)
	assert.Equal(t, KindStub, code.Kind)
	table, err := code.SafepointTable()
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func requireFatal(t *testing.T, err error, want error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "got %v", err)
	var fe *codegenerrors.FatalError
	assert.True(t, errors.As(err, &fe))
}

func TestInvalidFlagsModeIsFatal(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.StartBlock(seq.AddBlock())
	seq.Add(instruction.New(instruction.EncodeCode(instruction.FirstTargetOpcode, instruction.ModeNone, instruction.FlagsMode(3), 0, 0), nil, nil, nil))
	code, _, err := generate(t, seq, stub(), DefaultOptions())
	assert.Nil(t, code)
	requireFatal(t, err, codegenerrors.ErrMInvalidFlagsMode)
}

func TestFlagsContinuations(t *testing.T) {
	seq := instruction.NewSequence(nil)
	b0, b1, b2 := seq.AddBlock(), seq.AddBlock(), seq.AddBlock()
	seq.StartBlock(b0)
	set := instruction.EncodeCode(instruction.FirstTargetOpcode, instruction.ModeNone, instruction.FlagsSet, instruction.CondSignedLessThan, 0)
	seq.Add(instruction.New(set, []instruction.Operand{instruction.Register(0)}, nil, nil))
	branch := instruction.EncodeCode(instruction.FirstTargetOpcode, instruction.ModeNone, instruction.FlagsBranch, instruction.CondEqual, 0)
	seq.Add(instruction.New(branch, nil, []instruction.Operand{instruction.BlockRef(b2.ID), instruction.BlockRef(b1.ID)}, nil))
	seq.StartBlock(b1)
	seq.Add(op(instruction.ArchJmp, instruction.BlockRef(b2.ID)))
	seq.StartBlock(b2)
	seq.Add(op(instruction.ArchRet))

	code, backend, err := generate(t, seq, stub(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"prologue",
		"TargetOpcode(16)", "boolean signed-less-than",
		"TargetOpcode(16)", "branch equal",
		"ArchJmp", "ArchRet",
	}, backend.ops)
	// 1 + (1+2) + (1+2+4) ; fall through to B1 needs no jmp
	assert.Equal(t, byte(0xe9), code.Instructions[11])
	assert.Equal(t, byte(0xc3), code.Instructions[16])
}

func TestGapPositionsResolvedInOrder(t *testing.T) {
	seq := instruction.NewSequence(nil)
	start := seq.StartBlock(seq.AddBlock())
	start.GetOrCreateParallelMove(instruction.GapRegular).AddMove(instruction.Register(0), instruction.Register(1))
	start.GetOrCreateParallelMove(instruction.GapPrePhi).AddMove(instruction.Register(2), instruction.Register(3))
	gap := instruction.NewGap()
	gap.GetOrCreateParallelMove(instruction.GapPostPhi).AddMove(instruction.Register(5), instruction.Register(6))
	gap.GetOrCreateParallelMove(instruction.GapPhi).AddMove(instruction.Register(1), instruction.Register(0))
	gap.GetOrCreateParallelMove(instruction.GapPhi).AddMove(instruction.Register(0), instruction.Register(1))
	seq.Add(gap)
	seq.Add(op(instruction.ArchRet))

	_, backend, err := generate(t, seq, stub(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"prologue",
		"move r2->r3", "move r0->r1",
		"swap r0,r1", "move r5->r6",
		"ArchRet",
	}, backend.ops)
}

func TestSequenceReusableAcrossGenerators(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.StartBlock(seq.AddBlock())
	gap := instruction.NewGap()
	gap.GetOrCreateParallelMove(instruction.GapRegular).AddMove(instruction.Register(0), instruction.Register(1))
	gap.GetOrCreateParallelMove(instruction.GapRegular).AddMove(instruction.Register(1), instruction.Register(0))
	seq.Add(gap)
	seq.Add(op(instruction.ArchRet))
	moves := gap.ParallelMove(instruction.GapRegular).String()

	first, firstBackend, err := generate(t, seq, stub(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, moves, gap.ParallelMove(instruction.GapRegular).String(), "gap moves survive code generation")

	second, secondBackend, err := generate(t, seq, stub(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, firstBackend.ops, secondBackend.ops)
	assert.Contains(t, secondBackend.ops, "swap r1,r0")
	assert.Equal(t, first.Instructions, second.Instructions)
}

func TestSourcePositions(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.StartBlock(seq.AddBlock())
	for _, p := range []instruction.SourcePosition{
		instruction.NewPosition(3), instruction.NewPosition(3),
	} {
		seq.Add(instruction.NewSourcePosition(p))
	}
	seq.Add(op(instruction.ArchNop))
	seq.Add(instruction.NewSourcePosition(instruction.UnknownPosition()))
	seq.Add(op(instruction.ArchNop))
	seq.Add(instruction.NewSourcePosition(instruction.NewPosition(7)))
	seq.Add(op(instruction.ArchRet))

	linkage := stub()
	linkage.Script = instruction.NewScript("f.js", "a\nbcdefg\n")
	opts := DefaultOptions()
	opts.CodeComments = true
	code, _, err := generate(t, seq, linkage, opts)
	require.NoError(t, err)
	assert.Equal(t, []PositionEntry{{PCOffset: 1, Position: 3}, {PCOffset: 3, Position: 7}}, code.SourcePositions)

	var texts []string
	for _, c := range code.Comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"-- B0 start --", "-- f.js:2:2 --", "-- f.js:2:6 --"}, texts)

	tree := code.Tree()
	assert.Contains(t, tree, "STUB")
	assert.Contains(t, tree, "-- f.js:2:6 --")
}

func TestInvalidSourcePositionIsFatal(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.StartBlock(seq.AddBlock())
	seq.Add(instruction.NewSourcePosition(instruction.InvalidPosition()))
	_, _, err := generate(t, seq, stub(), DefaultOptions())
	requireFatal(t, err, codegenerrors.ErrMInvalidPosition)
}

func TestTranslationBuiltTwiceIsFatal(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.SetSpillSlotCount(1)
	id := seq.AddDeoptimizationEntry(&instruction.FrameStateDescriptor{BailoutID: 1, Size: 1})
	seq.StartBlock(seq.AddBlock())
	target := instruction.Immediate(instruction.HeapReference(seq.Factory().Object("g")))
	for i := 0; i < 2; i++ {
		seq.Add(callWith(instruction.NeedsFrameState, target, instruction.Immediate(instruction.Int32(int32(id))), instruction.StackSlot(0)))
	}
	_, _, err := generate(t, seq, stub(), DefaultOptions())
	requireFatal(t, err, codegenerrors.ErrDTranslationBuiltTwice)
}

func registerFrameState() *instruction.Sequence {
	seq := instruction.NewSequence(nil)
	seq.AddDeoptimizationEntry(&instruction.FrameStateDescriptor{BailoutID: 1, Size: 1})
	seq.StartBlock(seq.AddBlock())
	seq.Add(callWith(instruction.NeedsFrameState, instruction.Register(0), instruction.Immediate(instruction.Int32(0)), instruction.Register(3)))
	seq.Add(op(instruction.ArchRet))
	return seq
}

func TestRegisterInFrameState(t *testing.T) {
	_, _, err := generate(t, registerFrameState(), stub(), DefaultOptions())
	requireFatal(t, err, codegenerrors.ErrDRegisterInFrameState)

	opts := DefaultOptions()
	opts.ValidateFrameStates = false
	code, _, err := generate(t, registerFrameState(), stub(), opts)
	require.NoError(t, err)
	cmds, err := deopt.Decode(code.DeoptimizationData.TranslationByteArray, 0)
	require.NoError(t, err)
	assert.Equal(t, deopt.Command{Op: deopt.OpRegister, Args: []int{3}}, cmds[2])
}

func TestConfigurableFrameStateInputs(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.SetSpillSlotCount(1)
	seq.AddDeoptimizationEntry(&instruction.FrameStateDescriptor{BailoutID: 8, Size: 1})
	seq.StartBlock(seq.AddBlock())
	seq.Add(callWith(instruction.NeedsFrameState,
		instruction.Register(0), instruction.Register(1), instruction.Immediate(instruction.Int32(0)), instruction.StackSlot(0)))
	seq.Add(op(instruction.ArchRet))

	opts := DefaultOptions()
	opts.DeoptIDInput = 2
	opts.FirstStateValueInput = 3
	code, _, err := generate(t, seq, stub(), opts)
	require.NoError(t, err)
	require.NotNil(t, code.DeoptimizationData)
	assert.Equal(t, 8, code.DeoptimizationData.Entries[0].AstID)
}

func TestMissingTranslationIsFatal(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.AddDeoptimizationEntry(&instruction.FrameStateDescriptor{BailoutID: 1, Size: 0})
	seq.StartBlock(seq.AddBlock())
	seq.Add(op(instruction.ArchRet))
	code, _, err := generate(t, seq, stub(), DefaultOptions())
	requireFatal(t, err, codegenerrors.ErrDMissingTranslation)
	assert.Nil(t, code, "an aborted unit produces no code")
}

func TestEagerDeoptimizeBuildsTranslation(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.AddDeoptimizationEntry(&instruction.FrameStateDescriptor{BailoutID: 2, Size: 1})
	seq.StartBlock(seq.AddBlock())
	code := instruction.EncodeCode(instruction.ArchDeoptimize, instruction.ModeNone, instruction.FlagsNone, 0, 0)
	seq.Add(instruction.New(code, nil, []instruction.Operand{instruction.Immediate(instruction.Float64(0.5))}, nil))
	out, _, err := generate(t, seq, stub(), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, out.DeoptimizationData)
	assert.Equal(t, "0.5", out.DeoptimizationData.LiteralArray[0].String())
}

func TestUnboundBlockLabelIsFatal(t *testing.T) {
	seq := instruction.NewSequence(nil)
	b0, b1 := seq.AddBlock(), seq.AddBlock()
	seq.StartBlock(b0)
	seq.Add(op(instruction.ArchJmp, instruction.BlockRef(b1.ID)))
	_, _, err := generate(t, seq, stub(), DefaultOptions())
	requireFatal(t, err, codegenerrors.ErrTUnboundLabel)
}

func TestGenerateCodeIsSingleUse(t *testing.T) {
	seq := instruction.NewSequence(nil)
	seq.StartBlock(seq.AddBlock())
	g := New(seq, stub(), &recordingBackend{}, DefaultOptions())
	_, err := g.GenerateCode(context.Background())
	require.NoError(t, err)
	_, err = g.GenerateCode(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(seq, stub(), &recordingBackend{}, DefaultOptions()).GenerateCode(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New(seq, stub(), nil, DefaultOptions()).GenerateCode(context.Background())
	assert.ErrorIs(t, err, codegenerrors.ErrMUnsupportedOperation)
}

func TestGenerateCodeSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prev)

	_, _, err := generate(t, lazyCallSequence(), stub(), DefaultOptions())
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"codegen.assemble", "codegen.finish", "codegen.GenerateCode"}, names)
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 1, opts.DeoptIDInput)
	assert.Equal(t, 2, opts.FirstStateValueInput)
	assert.Contains(t, opts.String(), `"first_state_value_input": 2`)

	path := filepath.Join(t.TempDir(), "opts.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"code_comments": true, "deopt_id_input": 3}`), 0o644))
	loaded, err := LoadOptions(path)
	require.NoError(t, err)
	assert.True(t, loaded.CodeComments)
	assert.Equal(t, 3, loaded.DeoptIDInput)
	assert.Equal(t, 2, loaded.FirstStateValueInput)
	assert.True(t, loaded.ValidateFrameStates)

	require.NoError(t, os.WriteFile(path, []byte(`{"deopt_id_input": -1}`), 0o644))
	_, err = LoadOptions(path)
	assert.Error(t, err)
	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
