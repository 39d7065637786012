package safepoint

import (
	"encoding/binary"

	"github.com/colorfulnotion/lowering/asm"
	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/log"
	"golang.org/x/exp/slices"
)

// Kind says which register files the collector must scan.
type Kind uint8

const (
	Simple                  Kind = 0
	WithRegisters           Kind = 1 << 0
	WithDoubles             Kind = 1 << 1
	WithRegistersAndDoubles      = WithRegisters | WithDoubles
)

func (k Kind) HasRegisters() bool { return k&WithRegisters != 0 }
func (k Kind) HasDoubles() bool   { return k&WithDoubles != 0 }

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case WithRegisters:
		return "with-registers"
	case WithDoubles:
		return "with-doubles"
	case WithRegistersAndDoubles:
		return "with-registers-and-doubles"
	default:
		return "kind(?)"
	}
}

type DeoptMode uint8

const (
	NoLazyDeopt DeoptMode = iota
	LazyDeopt
)

// NoDeoptimizationIndex and NoDeoptimizationPc mark absent deopt info.
const (
	NoDeoptimizationIndex = -1
	NoDeoptimizationPc    = -1

	MaxRegisters = 32
)

type info struct {
	id         int
	pc         int
	deoptPC    int
	deoptIndex int
	arguments  int
	kind       Kind
	deoptMode  DeoptMode
	slots      []int
	registers  []int
}

// Safepoint is the handle returned by DefineSafepoint.
type Safepoint struct {
	info *info
}

func (s Safepoint) ID() int { return s.info.id }

func (s Safepoint) DefinePointerSlot(index int) {
	s.info.slots = append(s.info.slots, index)
}

// DefinePointerRegister takes a register allocation index.
func (s Safepoint) DefinePointerRegister(index int) {
	codegenerrors.Check(index >= 0 && index < MaxRegisters, codegenerrors.ErrMUnknownOperand,
		"pointer register %d out of range", index)
	s.info.registers = append(s.info.registers, index)
}

// Builder collects safepoints during code assembly and emits the table once.
type Builder struct {
	infos           []*info
	lastLazyIndexed int
	emitted         bool
	offset          int
}

func NewBuilder() *Builder {
	return &Builder{offset: -1}
}

// DefineSafepoint records a safepoint at pc; ids are assigned in call order.
func (b *Builder) DefineSafepoint(pc int, kind Kind, arguments int, mode DeoptMode) Safepoint {
	codegenerrors.Check(!b.emitted, codegenerrors.ErrTTableEmitted, "safepoint after emission")
	in := &info{
		id:         len(b.infos),
		pc:         pc,
		deoptPC:    NoDeoptimizationPc,
		deoptIndex: NoDeoptimizationIndex,
		arguments:  arguments,
		kind:       kind,
		deoptMode:  mode,
	}
	b.infos = append(b.infos, in)
	return Safepoint{info: in}
}

func (b *Builder) Count() int { return len(b.infos) }

func (b *Builder) lookup(id int) *info {
	if id < 0 || id >= len(b.infos) {
		codegenerrors.Fatalf(codegenerrors.ErrTUnknownSafepoint, "safepoint %d of %d", id, len(b.infos))
	}
	return b.infos[id]
}

// SetDeoptimizationPc patches the lazy deopt return address of safepoint id.
func (b *Builder) SetDeoptimizationPc(id, pc int) {
	b.lookup(id).deoptPC = pc
}

// RecordLazyDeoptimizationIndex assigns index to every safepoint defined
// since the previous call.
func (b *Builder) RecordLazyDeoptimizationIndex(index int) {
	for _, in := range b.infos[b.lastLazyIndexed:] {
		in.deoptIndex = index
	}
	b.lastLazyIndexed = len(b.infos)
}

// Entry returns the current state of safepoint id.
func (b *Builder) Entry(id int) Entry {
	return b.lookup(id).entry()
}

// Offset is the table offset, or -1 before Emit.
func (b *Builder) Offset() int { return b.offset }

// Emit appends the table to buf, 8-byte aligned, and returns its offset.
func (b *Builder) Emit(buf *asm.Buffer, spillSlotCount int) int {
	codegenerrors.Check(!b.emitted, codegenerrors.ErrTTableEmitted, "table already at %d", b.offset)

	sorted := slices.Clone(b.infos)
	slices.SortStableFunc(sorted, func(x, y *info) int { return x.pc - y.pc })

	slotBytes := (spillSlotCount + 7) / 8
	buf.Align(8, 0)
	b.offset = buf.PCOffset()
	buf.Emit32(uint32(len(sorted)))
	buf.Emit32(uint32(slotBytes))

	bitmap := make([]byte, slotBytes)
	for _, in := range sorted {
		buf.Emit32(uint32(in.pc))
		buf.Emit32(uint32(in.id))
		buf.Emit32(uint32(in.deoptPC + 1))
		buf.Emit32(uint32(in.deoptIndex + 1))
		buf.Emit32(uint32(in.arguments))
		var regs uint32
		for _, r := range in.registers {
			regs |= 1 << uint(r)
		}
		buf.Emit32(regs)
		buf.Emit(byte(in.kind), byte(in.deoptMode))

		clear(bitmap)
		for _, s := range in.slots {
			codegenerrors.Check(s >= 0 && s < spillSlotCount, codegenerrors.ErrMUnknownOperand,
				"pointer slot %d outside %d spill slots", s, spillSlotCount)
			bitmap[s/8] |= 1 << uint(s%8)
		}
		buf.Emit(bitmap...)
	}
	b.emitted = true
	log.Debug(log.SafepointMonitoring, "safepoint table emitted", "offset", b.offset, "entries", len(sorted), "slotBytes", slotBytes)
	return b.offset
}

const (
	headerSize      = 8
	entryHeaderSize = 6*4 + 2
)

func (in *info) entry() Entry {
	return Entry{
		ID:         in.id,
		PC:         in.pc,
		DeoptPC:    in.deoptPC,
		DeoptIndex: in.deoptIndex,
		Arguments:  in.arguments,
		Kind:       in.kind,
		DeoptMode:  in.deoptMode,
		Slots:      slices.Clone(in.slots),
		Registers:  slices.Clone(in.registers),
	}
}

func readUint32(b []byte, at int) int {
	return int(binary.LittleEndian.Uint32(b[at:]))
}
