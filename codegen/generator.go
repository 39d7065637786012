package codegen

import (
	"context"
	"fmt"

	"github.com/colorfulnotion/lowering/asm"
	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/deopt"
	"github.com/colorfulnotion/lowering/gapresolver"
	"github.com/colorfulnotion/lowering/heap"
	"github.com/colorfulnotion/lowering/instruction"
	"github.com/colorfulnotion/lowering/log"
	"github.com/colorfulnotion/lowering/safepoint"
	"github.com/colorfulnotion/lowering/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LazyDeoptimizationEntry ties a call's safepoint to the blocks execution
// continues in, normally or after lazy deoptimization.
type LazyDeoptimizationEntry struct {
	PositionAfterCall int
	Continuation      asm.Label
	Deoptimization    asm.Label
	SafepointID       int
}

// PositionEntry maps a code offset to a source position.
type PositionEntry struct {
	PCOffset int `json:"pc"`
	Position int `json:"position"`
}

// CodeGenerator assembles one instruction sequence into a Code object. It
// is single use and not safe for concurrent use.
type CodeGenerator struct {
	seq     *instruction.Sequence
	linkage *instruction.Linkage
	backend Backend
	opts    Options

	buf         *asm.Buffer
	blockLabels asm.Label
	resolver    *gapresolver.Resolver

	currentBlock          instruction.BlockID
	currentSourcePosition instruction.SourcePosition
	positions             []PositionEntry

	safepoints  *safepoint.Builder
	deopt       *deopt.Builder
	lazyEntries []LazyDeoptimizationEntry

	prologueOffset int
	generated      bool
}

func New(seq *instruction.Sequence, linkage *instruction.Linkage, backend Backend, opts Options) *CodeGenerator {
	if linkage == nil {
		linkage = &instruction.Linkage{Incoming: &instruction.CallDescriptor{}}
	}
	g := &CodeGenerator{
		seq:                   seq,
		linkage:               linkage,
		backend:               backend,
		opts:                  opts,
		buf:                   asm.NewBuffer(),
		currentSourcePosition: instruction.UnknownPosition(),
		safepoints:            safepoint.NewBuilder(),
		deopt:                 deopt.NewBuilder(seq),
		prologueOffset:        -1,
	}
	g.blockLabels = g.buf.NewLabels(seq.BlockCount())
	return g
}

func (g *CodeGenerator) Sequence() *instruction.Sequence { return g.seq }
func (g *CodeGenerator) Linkage() *instruction.Linkage   { return g.linkage }
func (g *CodeGenerator) Options() Options                { return g.opts }
func (g *CodeGenerator) Buffer() *asm.Buffer             { return g.buf }
func (g *CodeGenerator) Factory() *heap.Factory          { return g.seq.Factory() }
func (g *CodeGenerator) Safepoints() *safepoint.Builder  { return g.safepoints }

func (g *CodeGenerator) CurrentBlock() instruction.BlockID { return g.currentBlock }

func (g *CodeGenerator) LazyDeoptimizationEntries() []LazyDeoptimizationEntry {
	return g.lazyEntries
}

// BlockLabel returns the label bound at the start of block id.
func (g *CodeGenerator) BlockLabel(id instruction.BlockID) asm.Label {
	g.seq.Block(id)
	return g.blockLabels + asm.Label(id)
}

// IsNextInAssemblyOrder reports whether id directly follows the current block.
func (g *CodeGenerator) IsNextInAssemblyOrder(id instruction.BlockID) bool {
	return g.seq.Block(id).RPONumber == g.seq.Block(g.currentBlock).RPONumber+1
}

// InputBlock decodes input n of instr as a block reference.
func (g *CodeGenerator) InputBlock(instr *instruction.Instruction, n int) instruction.BlockID {
	op := g.input(instr, n)
	if !op.IsImmediate() || op.Constant.Type() != instruction.Int32Constant {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownBlock, "%s input %d is %s, not a block", instr.ArchOpcode(), n, op)
	}
	id := instruction.BlockID(op.Constant.ToInt32())
	g.seq.Block(id)
	return id
}

func (g *CodeGenerator) input(instr *instruction.Instruction, n int) instruction.Operand {
	if n < 0 || n >= instr.InputCount() {
		codegenerrors.Fatalf(codegenerrors.ErrDFrameStateTooShort, "%s has %d inputs, want input %d", instr.ArchOpcode(), instr.InputCount(), n)
	}
	return instr.Input(n)
}

// GenerateCode runs the whole pipeline. Invariant violations abort the unit
// and come back as a *codegenerrors.FatalError.
func (g *CodeGenerator) GenerateCode(ctx context.Context) (code *Code, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.generated {
		return nil, fmt.Errorf("code generator already used")
	}
	if g.backend == nil {
		return nil, fmt.Errorf("%w: no backend", codegenerrors.ErrMUnsupportedOperation)
	}
	g.generated = true

	ctx, span := telemetry.Tracer().Start(ctx, "codegen.GenerateCode")
	defer span.End()
	defer func() {
		if err != nil {
			code = nil
			span.RecordError(err)
			span.SetStatus(codes.Error, codegenerrors.GetErrorCodeWithName(err))
			log.Warn(log.CodegenMonitoring, "code generation failed", "err", err)
		}
	}()
	defer codegenerrors.Recover(&err)

	g.assemble(ctx)

	_, finish := telemetry.Tracer().Start(ctx, "codegen.finish")
	g.buf.Resolve()
	g.UpdateSafepointsWithDeoptimizationPc()
	instructionSize := g.buf.PCOffset()
	tableOffset := g.safepoints.Emit(g.buf, g.seq.SpillSlotCount())
	finish.End()

	result := &Code{
		Instructions:         g.buf.Bytes(),
		InstructionSize:      instructionSize,
		Kind:                 KindStub,
		Turbofanned:          true,
		StackSlots:           g.seq.SpillSlotCount(),
		SafepointTableOffset: tableOffset,
		PrologueOffset:       g.prologueOffset,
		SourcePositions:      g.positions,
		Relocations:          g.buf.Relocations(),
		Comments:             g.buf.Comments(),
	}
	if g.linkage.Incoming.IsJSFunctionCall() {
		result.Kind = KindOptimizedFunction
	}
	result.DeoptimizationData = g.PopulateDeoptimizationData()

	span.SetAttributes(
		attribute.Int("code.size", len(result.Instructions)),
		attribute.Int("code.safepoints", g.safepoints.Count()),
		attribute.Int("code.lazy_deopts", len(g.lazyEntries)),
	)
	log.Info(log.CodegenMonitoring, "code generated", "kind", result.Kind, "size", len(result.Instructions),
		"safepoints", g.safepoints.Count(), "deopts", g.seq.DeoptimizationEntryCount())
	return result, nil
}

func (g *CodeGenerator) assemble(ctx context.Context) {
	_, span := telemetry.Tracer().Start(ctx, "codegen.assemble")
	defer span.End()

	g.resolver = gapresolver.New(moveAssembler{g: g})
	g.prologueOffset = g.buf.PCOffset()
	g.backend.AssemblePrologue(g)
	for _, instr := range g.seq.Instructions() {
		g.AssembleInstruction(instr)
	}
	span.SetAttributes(attribute.Int("instructions", len(g.seq.Instructions())))
}

// AssembleInstruction binds block labels, resolves gaps, records source
// positions and hands everything else to the backend.
func (g *CodeGenerator) AssembleInstruction(instr *instruction.Instruction) {
	if g.opts.Trace {
		log.Trace(log.CodegenMonitoring, "assemble", "pc", g.buf.PCOffset(), "instr", instr.String())
	}
	if instr.IsBlockStart() {
		g.currentBlock = instr.Block()
		if g.opts.CodeComments {
			g.buf.RecordComment("-- B%d start --", g.currentBlock)
		}
		g.buf.Bind(g.BlockLabel(g.currentBlock))
	}
	if instr.IsGapMoves() {
		g.AssembleGap(instr)
		return
	}
	if instr.IsSourcePosition() {
		g.AssembleSourcePosition(instr)
		return
	}

	g.backend.AssembleArchInstruction(g, instr)
	switch instr.FlagsMode() {
	case instruction.FlagsNone:
	case instruction.FlagsSet:
		g.backend.AssembleArchBoolean(g, instr, instr.FlagsCondition())
	case instruction.FlagsBranch:
		g.backend.AssembleArchBranch(g, instr, instr.FlagsCondition())
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMInvalidFlagsMode, "%s has flags mode %d", instr.ArchOpcode(), instr.FlagsMode())
	}
}

// AssembleGap resolves the gap's parallel moves in position order.
func (g *CodeGenerator) AssembleGap(instr *instruction.Instruction) {
	for pos := instruction.GapPrePhi; pos <= instruction.GapPostPhi; pos++ {
		if pm := instr.ParallelMove(pos); pm != nil {
			g.resolver.Resolve(pm)
		}
	}
}

func (g *CodeGenerator) AssembleSourcePosition(instr *instruction.Instruction) {
	pos := instr.SourcePosition()
	if pos == g.currentSourcePosition {
		return
	}
	if pos.IsInvalid() {
		codegenerrors.Fatalf(codegenerrors.ErrMInvalidPosition, "at pc %d", g.buf.PCOffset())
	}
	if !pos.IsUnknown() {
		g.positions = append(g.positions, PositionEntry{PCOffset: g.buf.PCOffset(), Position: pos.Raw()})
		if g.opts.CodeComments {
			name := "<unknown>"
			line, col := 0, 0
			if script := g.linkage.Script; script != nil {
				if script.Name != "" {
					name = script.Name
				}
				line, col = script.LineColumn(pos.Raw())
			}
			g.buf.RecordComment("-- %s:%d:%d --", name, line, col)
		}
	}
	g.currentSourcePosition = pos
}

// RecordSafepoint defines a safepoint at the current pc. Tagged stack slots
// are always recorded; tagged registers only for kinds that save them.
func (g *CodeGenerator) RecordSafepoint(pm *instruction.PointerMap, kind safepoint.Kind, arguments int, mode safepoint.DeoptMode) int {
	sp := g.safepoints.DefineSafepoint(g.buf.PCOffset(), kind, arguments, mode)
	if pm != nil {
		for _, op := range pm.NormalizedOperands() {
			if op.IsStackSlot() {
				sp.DefinePointerSlot(op.Index)
			} else if op.IsRegister() && kind.HasRegisters() {
				sp.DefinePointerRegister(op.Index)
			}
		}
	}
	log.Debug(log.SafepointMonitoring, "safepoint", "id", sp.ID(), "pc", g.buf.PCOffset(), "kind", kind.String())
	return sp.ID()
}

// AddSafepointAndDeopt is called by backends right after emitting a call.
func (g *CodeGenerator) AddSafepointAndDeopt(instr *instruction.Instruction) {
	support := instr.DeoptimizationSupport()
	needsFrameState := support.NeedsFrameState()

	mode := safepoint.NoLazyDeopt
	if needsFrameState {
		mode = safepoint.LazyDeopt
	}
	id := g.RecordSafepoint(instr.PointerMap(), safepoint.Simple, 0, mode)

	if support.HasLazyDeoptimization() {
		g.RecordLazyDeoptimizationEntry(instr, id)
	}
	if needsFrameState {
		deoptID := int(g.input(instr, g.opts.DeoptIDInput).Constant.ToInt32())
		first := g.opts.FirstStateValueInput
		if g.opts.ValidateFrameStates {
			g.deopt.ValidateFrameState(instr, first, deoptID)
		}
		g.BuildTranslation(instr, first, deoptID)
		g.safepoints.RecordLazyDeoptimizationIndex(deoptID)
	}
}

// RecordLazyDeoptimizationEntry takes the continuation and deoptimization
// blocks from the last two inputs of instr.
func (g *CodeGenerator) RecordLazyDeoptimizationEntry(instr *instruction.Instruction, safepointID int) {
	n := instr.InputCount()
	cont := g.InputBlock(instr, n-2)
	deoptBlock := g.InputBlock(instr, n-1)
	entry := LazyDeoptimizationEntry{
		PositionAfterCall: g.buf.PCOffset(),
		Continuation:      g.BlockLabel(cont),
		Deoptimization:    g.BlockLabel(deoptBlock),
		SafepointID:       safepointID,
	}
	g.lazyEntries = append(g.lazyEntries, entry)
	log.Debug(log.DeoptMonitoring, "lazy deopt entry", "safepoint", safepointID, "pc", entry.PositionAfterCall,
		"continuation", cont, "deopt", deoptBlock)
}

func (g *CodeGenerator) BuildTranslation(instr *instruction.Instruction, firstArgument, deoptID int) int {
	return g.deopt.BuildTranslation(instr, firstArgument, deoptID)
}

func (g *CodeGenerator) DefineDeoptimizationLiteral(o heap.Object) int {
	return g.deopt.DefineDeoptimizationLiteral(o)
}

// UpdateSafepointsWithDeoptimizationPc points every lazy safepoint at its
// deoptimization block.
func (g *CodeGenerator) UpdateSafepointsWithDeoptimizationPc() {
	for _, entry := range g.lazyEntries {
		pos, ok := g.buf.Position(entry.Deoptimization)
		if !ok {
			codegenerrors.Fatalf(codegenerrors.ErrTUnpatchedLazyDeopt, "safepoint %d: deopt label %d unbound", entry.SafepointID, entry.Deoptimization)
		}
		g.safepoints.SetDeoptimizationPc(entry.SafepointID, pos)
	}
}

func (g *CodeGenerator) PopulateDeoptimizationData() *deopt.InputData {
	return g.deopt.PopulateDeoptimizationData(g.linkage, len(g.lazyEntries))
}
