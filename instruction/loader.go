package instruction

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/colorfulnotion/lowering/heap"
)

// OpcodeTable resolves backend opcode names; the generic Arch* names are always known.
type OpcodeTable func(name string) (ArchOpcode, bool)

// Unit is one compilation unit read from disk.
type Unit struct {
	Name     string
	Sequence *Sequence
	Linkage  *Linkage
}

type unitJSON struct {
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	Parameters     int              `json:"parameters"`
	OptimizationID int              `json:"optimization_id"`
	Optimizing     bool             `json:"optimizing"`
	SharedInfo     string           `json:"shared_info,omitempty"`
	Script         *scriptJSON      `json:"script,omitempty"`
	SpillSlots     int              `json:"spill_slots"`
	FrameStates    []frameStateJSON `json:"frame_states"`
	Blocks         []blockJSON      `json:"blocks"`
}

type scriptJSON struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type frameStateJSON struct {
	BailoutID  int `json:"bailout_id"`
	Size       int `json:"size"`
	Parameters int `json:"parameters"`
}

type moveJSON struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

type blockJSON struct {
	Deferred     bool                  `json:"deferred,omitempty"`
	Moves        map[string][]moveJSON `json:"moves,omitempty"`
	Instructions []instructionJSON     `json:"instructions"`
}

type instructionJSON struct {
	Op       string                `json:"op"`
	Outputs  []string              `json:"outputs,omitempty"`
	Inputs   []string              `json:"inputs,omitempty"`
	Temps    []string              `json:"temps,omitempty"`
	Flags    string                `json:"flags,omitempty"`
	Cond     string                `json:"cond,omitempty"`
	Misc     int                   `json:"misc,omitempty"`
	Deopt    []string              `json:"deopt,omitempty"`
	Pointers []string              `json:"pointers,omitempty"`
	Untagged []string              `json:"untagged,omitempty"`
	Moves    map[string][]moveJSON `json:"moves,omitempty"`
	Position *int                  `json:"position,omitempty"`
}

// LoadSequence reads a register-allocated unit. Heap references with the
// same name resolve to the same object.
func LoadSequence(r io.Reader, opcodes OpcodeTable) (*Unit, error) {
	var u unitJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	l := &loader{factory: heap.NewFactory(), opcodes: opcodes}
	return l.build(&u)
}

type loader struct {
	factory *heap.Factory
	opcodes OpcodeTable
}

func (l *loader) build(u *unitJSON) (*Unit, error) {
	seq := NewSequence(l.factory)
	seq.SetSpillSlotCount(u.SpillSlots)

	linkage := &Linkage{
		Incoming:       &CallDescriptor{ParameterCount: u.Parameters},
		OptimizationID: u.OptimizationID,
		Optimizing:     u.Optimizing,
	}
	switch u.Kind {
	case "", "stub":
		linkage.Incoming.Kind = CallStub
	case "js-function":
		linkage.Incoming.Kind = CallJSFunction
	default:
		return nil, fmt.Errorf("unit %q: unknown kind %q", u.Name, u.Kind)
	}
	if u.SharedInfo != "" {
		linkage.SharedInfo = l.factory.Object(u.SharedInfo)
	}
	if u.Script != nil {
		linkage.Script = NewScript(u.Script.Name, u.Script.Source)
	}

	for _, fs := range u.FrameStates {
		if fs.Parameters > fs.Size {
			return nil, fmt.Errorf("frame state %d: %d parameters exceed size %d", fs.BailoutID, fs.Parameters, fs.Size)
		}
		seq.AddDeoptimizationEntry(&FrameStateDescriptor{
			BailoutID:       fs.BailoutID,
			Size:            fs.Size,
			ParametersCount: fs.Parameters,
		})
	}

	for range u.Blocks {
		seq.AddBlock()
	}
	for i, bj := range u.Blocks {
		b := seq.blocks[i]
		b.Deferred = bj.Deferred
		start := seq.StartBlock(b)
		if err := l.addMoves(start, bj.Moves); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		for n, ij := range bj.Instructions {
			instr, err := l.instruction(&ij)
			if err != nil {
				return nil, fmt.Errorf("block %d instruction %d: %w", i, n, err)
			}
			seq.Add(instr)
		}
	}
	return &Unit{Name: u.Name, Sequence: seq, Linkage: linkage}, nil
}

func (l *loader) instruction(ij *instructionJSON) (*Instruction, error) {
	switch ij.Op {
	case "gap":
		gap := NewGap()
		return gap, l.addMoves(gap, ij.Moves)
	case "position":
		if ij.Position == nil {
			return NewSourcePosition(UnknownPosition()), nil
		}
		return NewSourcePosition(NewPosition(*ij.Position)), nil
	}

	op, ok := GenericOpcode(ij.Op)
	if !ok && l.opcodes != nil {
		op, ok = l.opcodes(ij.Op)
	}
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", ij.Op)
	}

	flags := FlagsNone
	switch ij.Flags {
	case "", "none":
	case "branch":
		flags = FlagsBranch
	case "set":
		flags = FlagsSet
	default:
		return nil, fmt.Errorf("unknown flags mode %q", ij.Flags)
	}
	var cond FlagsCondition
	if ij.Cond != "" {
		if cond, ok = ParseCondition(ij.Cond); !ok {
			return nil, fmt.Errorf("unknown condition %q", ij.Cond)
		}
	}
	misc := ij.Misc
	for _, d := range ij.Deopt {
		switch d {
		case "lazy":
			misc |= int(LazyDeoptimization)
		case "frame-state":
			misc |= int(NeedsFrameState)
		default:
			return nil, fmt.Errorf("unknown deoptimization support %q", d)
		}
	}
	if misc < 0 || misc > MaxMisc {
		return nil, fmt.Errorf("misc %d does not fit", misc)
	}

	outputs, err := l.operands(ij.Outputs)
	if err != nil {
		return nil, err
	}
	inputs, err := l.operands(ij.Inputs)
	if err != nil {
		return nil, err
	}
	temps, err := l.operands(ij.Temps)
	if err != nil {
		return nil, err
	}
	instr := New(EncodeCode(op, ModeNone, flags, cond, misc), outputs, inputs, temps)

	if ij.Pointers != nil || ij.Untagged != nil {
		pm := NewPointerMap()
		ptrs, err := l.operands(ij.Pointers)
		if err != nil {
			return nil, err
		}
		for _, p := range ptrs {
			pm.RecordPointer(p)
		}
		untagged, err := l.operands(ij.Untagged)
		if err != nil {
			return nil, err
		}
		for _, p := range untagged {
			pm.RecordUntagged(p)
		}
		instr.SetPointerMap(pm)
	}
	return instr, nil
}

func (l *loader) addMoves(instr *Instruction, moves map[string][]moveJSON) error {
	for name, list := range moves {
		pos, ok := ParseGapPosition(name)
		if !ok {
			return fmt.Errorf("unknown gap position %q", name)
		}
		pm := instr.GetOrCreateParallelMove(pos)
		for _, m := range list {
			src, err := l.operand(m.Src)
			if err != nil {
				return err
			}
			dst, err := l.operand(m.Dst)
			if err != nil {
				return err
			}
			if dst.IsImmediate() {
				return fmt.Errorf("move into immediate %s", m.Dst)
			}
			pm.AddMove(src, dst)
		}
	}
	return nil
}

func (l *loader) operands(in []string) ([]Operand, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]Operand, len(in))
	for i, s := range in {
		op, err := l.operand(s)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

// operand parses r<n>, d<n>, s<n>, ds<n>, B<n> (block reference),
// #<int32>, #f:<float64> and #h:<name>.
func (l *loader) operand(s string) (Operand, error) {
	s = strings.TrimSpace(s)
	index := func(prefix string) (int, error) {
		n, err := strconv.Atoi(s[len(prefix):])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad operand %q", s)
		}
		return n, nil
	}
	switch {
	case strings.HasPrefix(s, "#h:"):
		return Immediate(HeapReference(l.factory.Object(s[3:]))), nil
	case strings.HasPrefix(s, "#f:"):
		v, err := strconv.ParseFloat(s[3:], 64)
		if err != nil {
			return Operand{}, fmt.Errorf("bad float operand %q: %w", s, err)
		}
		return Immediate(Float64(v)), nil
	case strings.HasPrefix(s, "#"):
		v, err := strconv.ParseInt(s[1:], 10, 32)
		if err != nil {
			return Operand{}, fmt.Errorf("bad int32 operand %q: %w", s, err)
		}
		return Immediate(Int32(int32(v))), nil
	case strings.HasPrefix(s, "ds"):
		n, err := index("ds")
		return DoubleStackSlot(n), err
	case strings.HasPrefix(s, "r"):
		n, err := index("r")
		return Register(n), err
	case strings.HasPrefix(s, "d"):
		n, err := index("d")
		return DoubleRegister(n), err
	case strings.HasPrefix(s, "s"):
		n, err := index("s")
		return StackSlot(n), err
	case strings.HasPrefix(s, "B"):
		n, err := index("B")
		return BlockRef(BlockID(n)), err
	}
	return Operand{}, fmt.Errorf("bad operand %q", s)
}
