package asm

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/heap"
)

// Label names a code position. Labels are indices into the buffer's label
// table; a label is bound at most once.
type Label int

const unbound = -1

type RelocMode uint8

const (
	RelocCodeTarget RelocMode = iota
	RelocEmbeddedObject
	RelocDeoptEntry
)

func (m RelocMode) String() string {
	switch m {
	case RelocCodeTarget:
		return "code-target"
	case RelocEmbeddedObject:
		return "embedded-object"
	case RelocDeoptEntry:
		return "deopt-entry"
	default:
		return fmt.Sprintf("reloc(%d)", m)
	}
}

// RelocInfo marks a field at Offset the loader or GC must visit.
type RelocInfo struct {
	Offset int
	Mode   RelocMode
	Object heap.Object
	Data   int64
}

type Comment struct {
	Offset int
	Text   string
}

type pendingRel32 struct {
	at    int
	label Label
}

// Buffer is the emission cursor for one code object.
type Buffer struct {
	code     []byte
	labels   []int
	pending  []pendingRel32
	relocs   []RelocInfo
	comments []Comment
	resolved bool
}

func NewBuffer() *Buffer {
	return &Buffer{code: make([]byte, 0, 256)}
}

// PCOffset is the offset the next byte is written at.
func (b *Buffer) PCOffset() int { return len(b.code) }

func (b *Buffer) Bytes() []byte { return b.code }

func (b *Buffer) Emit(bytes ...byte) {
	b.code = append(b.code, bytes...)
}

func (b *Buffer) Emit32(v uint32) {
	b.code = binary.LittleEndian.AppendUint32(b.code, v)
}

func (b *Buffer) Emit64(v uint64) {
	b.code = binary.LittleEndian.AppendUint64(b.code, v)
}

// Align pads with fill until the offset is a multiple of n.
func (b *Buffer) Align(n int, fill byte) {
	for len(b.code)%n != 0 {
		b.code = append(b.code, fill)
	}
}

func (b *Buffer) PatchUint32(at int, v uint32) {
	binary.LittleEndian.PutUint32(b.code[at:], v)
}

func (b *Buffer) NewLabel() Label {
	b.labels = append(b.labels, unbound)
	return Label(len(b.labels) - 1)
}

// NewLabels allocates n consecutive labels and returns the first.
func (b *Buffer) NewLabels(n int) Label {
	first := Label(len(b.labels))
	for i := 0; i < n; i++ {
		b.labels = append(b.labels, unbound)
	}
	return first
}

func (b *Buffer) checkLabel(l Label) {
	if l < 0 || int(l) >= len(b.labels) {
		codegenerrors.Fatalf(codegenerrors.ErrTUnboundLabel, "label %d was never allocated", l)
	}
}

// Bind fixes l at the current offset.
func (b *Buffer) Bind(l Label) {
	b.checkLabel(l)
	if b.labels[l] != unbound {
		codegenerrors.Fatalf(codegenerrors.ErrTLabelBoundTwice, "label %d at %d and %d", l, b.labels[l], len(b.code))
	}
	b.labels[l] = len(b.code)
}

func (b *Buffer) IsBound(l Label) bool {
	b.checkLabel(l)
	return b.labels[l] != unbound
}

// Position returns the bound offset of l.
func (b *Buffer) Position(l Label) (int, bool) {
	b.checkLabel(l)
	pos := b.labels[l]
	return pos, pos != unbound
}

// EmitRel32 writes a 32-bit displacement to l, relative to the end of the
// field. Forward references are patched by Resolve.
func (b *Buffer) EmitRel32(l Label) {
	b.checkLabel(l)
	at := len(b.code)
	if pos := b.labels[l]; pos != unbound {
		b.Emit32(uint32(int32(pos - (at + 4))))
		return
	}
	b.pending = append(b.pending, pendingRel32{at: at, label: l})
	b.Emit32(0)
}

// Resolve patches every pending reference. An unbound label is fatal.
func (b *Buffer) Resolve() {
	for _, p := range b.pending {
		pos := b.labels[p.label]
		if pos == unbound {
			codegenerrors.Fatalf(codegenerrors.ErrTUnboundLabel, "label %d referenced at %d", p.label, p.at)
		}
		b.PatchUint32(p.at, uint32(int32(pos-(p.at+4))))
	}
	b.pending = b.pending[:0]
	for l, pos := range b.labels {
		if pos == unbound {
			codegenerrors.Fatalf(codegenerrors.ErrTUnboundLabel, "label %d", l)
		}
	}
	b.resolved = true
}

func (b *Buffer) Resolved() bool { return b.resolved }

func (b *Buffer) RecordRelocation(mode RelocMode, obj heap.Object, data int64) {
	b.relocs = append(b.relocs, RelocInfo{Offset: len(b.code), Mode: mode, Object: obj, Data: data})
}

func (b *Buffer) Relocations() []RelocInfo { return b.relocs }

func (b *Buffer) RecordComment(format string, args ...interface{}) {
	b.comments = append(b.comments, Comment{Offset: len(b.code), Text: fmt.Sprintf(format, args...)})
}

func (b *Buffer) Comments() []Comment { return b.comments }
