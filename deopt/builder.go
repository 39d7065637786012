package deopt

import (
	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/heap"
	"github.com/colorfulnotion/lowering/instruction"
	"github.com/colorfulnotion/lowering/log"
)

// BailoutNone is the ast id of "no bailout point".
const BailoutNone = -1

// State is the per deopt id result of BuildTranslation.
type State struct {
	TranslationID int
}

// EntryData describes one deoptimization entry of a code object.
type EntryData struct {
	AstID                int `json:"ast_id"`
	TranslationIndex     int `json:"translation_index"`
	ArgumentsStackHeight int `json:"arguments_stack_height"`
	Pc                   int `json:"pc"`
}

// InputData is the deoptimization metadata attached to a code object.
type InputData struct {
	TranslationByteArray []byte        `json:"translations"`
	InlinedFunctionCount int           `json:"inlined_function_count"`
	OptimizationID       int           `json:"optimization_id"`
	SharedFunctionInfo   heap.Object   `json:"-"`
	LiteralArray         []heap.Object `json:"-"`
	OsrAstID             int           `json:"osr_ast_id"`
	OsrPcOffset          int           `json:"osr_pc_offset"`
	Entries              []EntryData   `json:"entries"`
}

// Builder accumulates translations and literals for one compilation unit.
type Builder struct {
	seq          *instruction.Sequence
	translations TranslationBuffer
	literals     LiteralPool
	states       []*State
}

func NewBuilder(seq *instruction.Sequence) *Builder {
	return &Builder{
		seq:    seq,
		states: make([]*State, seq.DeoptimizationEntryCount()),
	}
}

func (b *Builder) DefineDeoptimizationLiteral(o heap.Object) int {
	return b.literals.Define(o)
}

func (b *Builder) Literals() []heap.Object { return b.literals.Literals() }

func (b *Builder) Translations() *TranslationBuffer { return &b.translations }

// State returns the translation state of deoptID, or nil if none was built.
func (b *Builder) State(deoptID int) *State {
	b.seq.DeoptimizationEntry(deoptID)
	return b.states[deoptID]
}

func (b *Builder) frameState(instr *instruction.Instruction, first, deoptID int) *instruction.FrameStateDescriptor {
	desc := b.seq.DeoptimizationEntry(deoptID)
	if instr.InputCount() < first+desc.Size {
		codegenerrors.Fatalf(codegenerrors.ErrDFrameStateTooShort, "%s: %d inputs, frame state needs %d from %d",
			instr.ArchOpcode(), instr.InputCount(), desc.Size, first)
	}
	return desc
}

// ValidateFrameState checks that no frame state value lives in a register;
// registers do not survive the call.
func (b *Builder) ValidateFrameState(instr *instruction.Instruction, first, deoptID int) {
	desc := b.frameState(instr, first, deoptID)
	for i := 0; i < desc.Size; i++ {
		op := instr.Input(first + i)
		if !op.IsAnyStackSlot() && !op.IsImmediate() {
			codegenerrors.Fatalf(codegenerrors.ErrDRegisterInFrameState, "deopt %d value %d is %s", deoptID, i, op)
		}
	}
}

// BuildTranslation writes the translation for deoptID from the frame state
// values starting at input first. Each deopt id is built once.
func (b *Builder) BuildTranslation(instr *instruction.Instruction, first, deoptID int) int {
	desc := b.frameState(instr, first, deoptID)
	if b.states[deoptID] != nil {
		codegenerrors.Fatalf(codegenerrors.ErrDTranslationBuiltTwice, "deopt id %d", deoptID)
	}

	t := NewTranslation(&b.translations, 1, 1)
	t.BeginJSFrame(desc.BailoutID, SelfLiteralID, desc.Height())
	for i := 0; i < desc.Size; i++ {
		b.addOperand(t, instr.Input(first+i))
	}
	b.states[deoptID] = &State{TranslationID: t.Index()}
	log.Debug(log.DeoptMonitoring, "translation built", "deoptID", deoptID, "bailoutID", desc.BailoutID, "index", t.Index(), "values", desc.Size)
	return t.Index()
}

func (b *Builder) addOperand(t *Translation, op instruction.Operand) {
	switch op.Kind {
	case instruction.StackSlotOperand:
		t.StoreStackSlot(op.Index)
	case instruction.DoubleStackSlotOperand:
		t.StoreDoubleStackSlot(op.Index)
	case instruction.RegisterOperand:
		t.StoreRegister(op.Index)
	case instruction.DoubleRegisterOperand:
		t.StoreDoubleRegister(op.Index)
	case instruction.ImmediateOperand:
		t.StoreLiteral(b.DefineDeoptimizationLiteral(b.constantObject(op.Constant)))
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "operand %s in frame state", op)
	}
}

func (b *Builder) constantObject(c instruction.Constant) heap.Object {
	f := b.seq.Factory()
	switch c.Type() {
	case instruction.Int32Constant:
		return f.NumberFromInt(c.ToInt32())
	case instruction.Float64Constant:
		return f.NewHeapNumber(c.ToFloat64())
	case instruction.HeapObjectConstant:
		return c.ToHeapObject()
	}
	codegenerrors.Fatalf(codegenerrors.ErrMConstantType, "constant %s", c)
	return nil
}

// PopulateDeoptimizationData returns nil when the unit has neither deopt
// entries nor lazy deoptimization points.
func (b *Builder) PopulateDeoptimizationData(linkage *instruction.Linkage, lazyCount int) *InputData {
	deoptCount := b.seq.DeoptimizationEntryCount()
	if deoptCount == 0 && lazyCount == 0 {
		return nil
	}
	data := &InputData{
		TranslationByteArray: b.translations.Bytes(),
		InlinedFunctionCount: 0,
		OptimizationID:       linkage.OptimizationID,
		SharedFunctionInfo:   heap.Smi(0),
		LiteralArray:         append([]heap.Object(nil), b.literals.Literals()...),
		OsrAstID:             BailoutNone,
		OsrPcOffset:          -1,
		Entries:              make([]EntryData, deoptCount),
	}
	if linkage.Optimizing && linkage.SharedInfo != nil {
		data.SharedFunctionInfo = linkage.SharedInfo
	}
	for i := 0; i < deoptCount; i++ {
		state := b.states[i]
		if state == nil {
			codegenerrors.Fatalf(codegenerrors.ErrDMissingTranslation, "deopt id %d has no translation", i)
		}
		data.Entries[i] = EntryData{
			AstID:                b.seq.DeoptimizationEntry(i).BailoutID,
			TranslationIndex:     state.TranslationID,
			ArgumentsStackHeight: 0,
			Pc:                   -1,
		}
	}
	return data
}
