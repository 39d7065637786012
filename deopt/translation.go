package deopt

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/lowering/codec"
	"github.com/colorfulnotion/lowering/codegenerrors"
	"golang.org/x/exp/slices"
)

type Opcode uint8

const (
	OpBegin Opcode = iota
	OpJSFrame
	OpRegister
	OpDoubleRegister
	OpStackSlot
	OpDoubleStackSlot
	OpLiteral

	opcodeCount
)

// SelfLiteralID in a JS frame means "the function being deoptimized".
const SelfLiteralID = -239

var opcodeInfo = [opcodeCount]struct {
	name string
	args int
}{
	OpBegin:           {"BEGIN", 2},
	OpJSFrame:         {"JS_FRAME", 3},
	OpRegister:        {"REGISTER", 1},
	OpDoubleRegister:  {"DOUBLE_REGISTER", 1},
	OpStackSlot:       {"STACK_SLOT", 1},
	OpDoubleStackSlot: {"DOUBLE_STACK_SLOT", 1},
	OpLiteral:         {"LITERAL", 1},
}

func (op Opcode) String() string {
	if op < opcodeCount {
		return opcodeInfo[op].name
	}
	return fmt.Sprintf("OPCODE(%d)", op)
}

// ArgumentCount is the number of operands following op in the stream.
func (op Opcode) ArgumentCount() int {
	return opcodeInfo[op].args
}

// TranslationBuffer holds the translations of one code object as a stream
// of zigzag signed naturals.
type TranslationBuffer struct {
	contents []byte
}

func (b *TranslationBuffer) Add(v int) {
	b.contents = append(b.contents, codec.EInt(int64(v))...)
}

func (b *TranslationBuffer) CurrentIndex() int { return len(b.contents) }

// Bytes returns a copy of the stream.
func (b *TranslationBuffer) Bytes() []byte { return slices.Clone(b.contents) }

// Translation appends one frame description to a TranslationBuffer.
type Translation struct {
	buffer *TranslationBuffer
	index  int
}

func NewTranslation(buffer *TranslationBuffer, frameCount, jsFrameCount int) *Translation {
	t := &Translation{buffer: buffer, index: buffer.CurrentIndex()}
	buffer.Add(int(OpBegin))
	buffer.Add(frameCount)
	buffer.Add(jsFrameCount)
	return t
}

// Index is the offset of this translation in the buffer.
func (t *Translation) Index() int { return t.index }

func (t *Translation) BeginJSFrame(bailoutID, literalID, height int) {
	t.buffer.Add(int(OpJSFrame))
	t.buffer.Add(bailoutID)
	t.buffer.Add(literalID)
	t.buffer.Add(height)
}

func (t *Translation) StoreRegister(reg int) {
	t.buffer.Add(int(OpRegister))
	t.buffer.Add(reg)
}

func (t *Translation) StoreDoubleRegister(reg int) {
	t.buffer.Add(int(OpDoubleRegister))
	t.buffer.Add(reg)
}

func (t *Translation) StoreStackSlot(index int) {
	t.buffer.Add(int(OpStackSlot))
	t.buffer.Add(index)
}

func (t *Translation) StoreDoubleStackSlot(index int) {
	t.buffer.Add(int(OpDoubleStackSlot))
	t.buffer.Add(index)
}

func (t *Translation) StoreLiteral(literalID int) {
	t.buffer.Add(int(OpLiteral))
	t.buffer.Add(literalID)
}

// Iterator walks a translation stream from a given index.
type Iterator struct {
	r *codec.Reader
}

func NewIterator(contents []byte, index int) *Iterator {
	r := codec.NewReader(contents)
	r.Seek(index)
	return &Iterator{r: r}
}

func (it *Iterator) HasNext() bool { return it.r.HasMore() }

func (it *Iterator) Next() (int, error) {
	v, err := it.r.ReadEInt()
	return int(v), err
}

// Command is one decoded opcode with its operands.
type Command struct {
	Op   Opcode
	Args []int
}

func (c Command) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf("%s %s", c.Op, strings.Join(parts, " "))
}

// Decode reads the translation starting at index, up to the next BEGIN or
// the end of the stream.
func Decode(contents []byte, index int) ([]Command, error) {
	it := NewIterator(contents, index)
	var out []Command
	for it.HasNext() {
		raw, err := it.Next()
		if err != nil {
			return nil, err
		}
		if raw < 0 || raw >= int(opcodeCount) {
			return nil, fmt.Errorf("%w: opcode %d at translation %d", codegenerrors.ErrDCorruptTranslation, raw, index)
		}
		op := Opcode(raw)
		if op == OpBegin && len(out) > 0 {
			break
		}
		if len(out) == 0 && op != OpBegin {
			return nil, fmt.Errorf("%w: translation %d starts with %s", codegenerrors.ErrDCorruptTranslation, index, op)
		}
		cmd := Command{Op: op, Args: make([]int, op.ArgumentCount())}
		for i := range cmd.Args {
			if cmd.Args[i], err = it.Next(); err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", op, i, err)
			}
		}
		out = append(out, cmd)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no translation at %d", codegenerrors.ErrDMissingTranslation, index)
	}
	return out, nil
}
