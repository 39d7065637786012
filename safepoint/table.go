package safepoint

import (
	"fmt"
	"sort"

	"github.com/colorfulnotion/lowering/codegenerrors"
)

// Entry is one decoded safepoint. Slots and Registers list the tagged
// spill slot indices and register allocation indices.
type Entry struct {
	ID         int
	PC         int
	DeoptPC    int
	DeoptIndex int
	Arguments  int
	Kind       Kind
	DeoptMode  DeoptMode
	Slots      []int
	Registers  []int
}

func (e Entry) HasDeoptimizationIndex() bool { return e.DeoptIndex != NoDeoptimizationIndex }

func (e Entry) String() string {
	return fmt.Sprintf("pc=%d id=%d kind=%s deopt=%d@%d slots=%v regs=%v", e.PC, e.ID, e.Kind, e.DeoptIndex, e.DeoptPC, e.Slots, e.Registers)
}

// Table is the collector's view of an emitted safepoint table.
type Table struct {
	entries   []Entry
	slotBytes int
}

// DecodeTable reads the table written by Builder.Emit at offset.
func DecodeTable(code []byte, offset int) (*Table, error) {
	if offset < 0 || offset+headerSize > len(code) {
		return nil, fmt.Errorf("%w: header at %d of %d bytes", codegenerrors.ErrTCorruptTable, offset, len(code))
	}
	count := readUint32(code, offset)
	slotBytes := readUint32(code, offset+4)
	entrySize := entryHeaderSize + slotBytes
	if offset+headerSize+count*entrySize > len(code) {
		return nil, fmt.Errorf("%w: %d entries of %d bytes overrun code", codegenerrors.ErrTCorruptTable, count, entrySize)
	}

	t := &Table{entries: make([]Entry, count), slotBytes: slotBytes}
	at := offset + headerSize
	for i := range t.entries {
		e := Entry{
			PC:         readUint32(code, at),
			ID:         readUint32(code, at+4),
			DeoptPC:    readUint32(code, at+8) - 1,
			DeoptIndex: readUint32(code, at+12) - 1,
			Arguments:  readUint32(code, at+16),
			Kind:       Kind(code[at+24]),
			DeoptMode:  DeoptMode(code[at+25]),
		}
		regs := uint32(readUint32(code, at+20))
		for r := 0; r < MaxRegisters; r++ {
			if regs&(1<<uint(r)) != 0 {
				e.Registers = append(e.Registers, r)
			}
		}
		bitmap := code[at+entryHeaderSize : at+entrySize]
		for s := 0; s < slotBytes*8; s++ {
			if bitmap[s/8]&(1<<uint(s%8)) != 0 {
				e.Slots = append(e.Slots, s)
			}
		}
		if i > 0 && e.PC < t.entries[i-1].PC {
			return nil, fmt.Errorf("%w: pc %d after %d", codegenerrors.ErrTCorruptTable, e.PC, t.entries[i-1].PC)
		}
		t.entries[i] = e
		at += entrySize
	}
	return t, nil
}

func (t *Table) Len() int         { return len(t.entries) }
func (t *Table) Entries() []Entry { return t.entries }
func (t *Table) At(i int) Entry   { return t.entries[i] }
func (t *Table) SlotBytes() int   { return t.slotBytes }

// Find returns the safepoint recorded at return address pc.
func (t *Table) Find(pc int) (Entry, bool) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].PC >= pc })
	if i < len(t.entries) && t.entries[i].PC == pc {
		return t.entries[i], true
	}
	return Entry{}, false
}
