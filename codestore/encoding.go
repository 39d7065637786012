package codestore

import (
	"errors"
	"fmt"
	"math"

	"github.com/colorfulnotion/lowering/asm"
	"github.com/colorfulnotion/lowering/codec"
	"github.com/colorfulnotion/lowering/codegen"
	"github.com/colorfulnotion/lowering/deopt"
	"github.com/colorfulnotion/lowering/heap"
)

const formatVersion = 1

// ErrVersion is returned for code serialized by an incompatible format.
var ErrVersion = errors.New("codestore: unsupported format version")

const (
	tagNil byte = iota
	tagSmi
	tagHeapNumber
	tagHeapObject
)

type encoder struct {
	buf []byte
}

func (e *encoder) putNat(v int) { e.buf = append(e.buf, codec.E(uint64(v))...) }
func (e *encoder) putInt(v int) { e.buf = append(e.buf, codec.EInt(int64(v))...) }
func (e *encoder) putByte(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) putBytes(b []byte) {
	e.putNat(len(b))
	e.buf = append(e.buf, b...)
}

func (e *encoder) putString(s string) { e.putBytes([]byte(s)) }

func (e *encoder) putBool(b bool) {
	if b {
		e.putByte(1)
	} else {
		e.putByte(0)
	}
}

func (e *encoder) putObject(o heap.Object) {
	switch v := o.(type) {
	case nil:
		e.putByte(tagNil)
	case heap.Smi:
		e.putByte(tagSmi)
		e.putInt(int(v))
	case *heap.HeapNumber:
		e.putByte(tagHeapNumber)
		e.buf = append(e.buf, codec.E_l(math.Float64bits(v.Value), 8)...)
	case *heap.HeapObject:
		e.putByte(tagHeapObject)
		e.putString(v.Name)
	default:
		panic(fmt.Sprintf("codestore: cannot encode %T", o))
	}
}

// EncodeCode serializes c with the E codec.
func EncodeCode(c *codegen.Code) []byte {
	e := &encoder{}
	e.putByte(formatVersion)
	e.putString(c.Name)
	e.putByte(byte(c.Kind))
	e.putBool(c.Turbofanned)
	e.putNat(c.StackSlots)
	e.putNat(c.InstructionSize)
	e.putNat(c.SafepointTableOffset)
	e.putInt(c.PrologueOffset)
	e.putBytes(c.Instructions)

	e.putNat(len(c.SourcePositions))
	for _, p := range c.SourcePositions {
		e.putNat(p.PCOffset)
		e.putInt(p.Position)
	}
	e.putNat(len(c.Relocations))
	for _, r := range c.Relocations {
		e.putNat(r.Offset)
		e.putByte(byte(r.Mode))
		e.putObject(r.Object)
		e.putInt(int(r.Data))
	}
	e.putNat(len(c.Comments))
	for _, cm := range c.Comments {
		e.putNat(cm.Offset)
		e.putString(cm.Text)
	}

	d := c.DeoptimizationData
	e.putBool(d != nil)
	if d != nil {
		e.putBytes(d.TranslationByteArray)
		e.putNat(d.InlinedFunctionCount)
		e.putInt(d.OptimizationID)
		e.putObject(d.SharedFunctionInfo)
		e.putNat(len(d.LiteralArray))
		for _, l := range d.LiteralArray {
			e.putObject(l)
		}
		e.putInt(d.OsrAstID)
		e.putInt(d.OsrPcOffset)
		e.putNat(len(d.Entries))
		for _, en := range d.Entries {
			e.putInt(en.AstID)
			e.putNat(en.TranslationIndex)
			e.putNat(en.ArgumentsStackHeight)
			e.putInt(en.Pc)
		}
	}
	return e.buf
}

// decoder keeps the first error; reads after it return zero values.
type decoder struct {
	r       *codec.Reader
	factory *heap.Factory
	err     error
}

func (d *decoder) nat() int {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadE()
	if err == nil && v > math.MaxInt32 {
		err = fmt.Errorf("value %d out of range", v)
	}
	d.err = err
	return int(v)
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadEInt()
	d.err = err
	return int(v)
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	d.err = err
	return b
}

func (d *decoder) bool() bool { return d.byte() != 0 }

func (d *decoder) bytes() []byte {
	n := d.nat()
	if d.err != nil || n == 0 {
		return nil
	}
	b, err := d.r.ReadBytes(n)
	if err != nil {
		d.err = err
		return nil
	}
	return append([]byte(nil), b...)
}

func (d *decoder) string() string { return string(d.bytes()) }

func (d *decoder) object() heap.Object {
	switch tag := d.byte(); tag {
	case tagNil:
		return nil
	case tagSmi:
		return heap.Smi(d.int())
	case tagHeapNumber:
		if d.err != nil {
			return nil
		}
		b, err := d.r.ReadBytes(8)
		if err != nil {
			d.err = err
			return nil
		}
		return &heap.HeapNumber{Value: math.Float64frombits(codec.DecodeE_l(b))}
	case tagHeapObject:
		name := d.string()
		if d.err != nil {
			return nil
		}
		return d.factory.Object(name)
	default:
		if d.err == nil {
			d.err = fmt.Errorf("unknown object tag %d", tag)
		}
		return nil
	}
}

// DecodeCode reverses EncodeCode. Named heap objects are interned in
// factory, which may be nil.
func DecodeCode(data []byte, factory *heap.Factory) (*codegen.Code, error) {
	if factory == nil {
		factory = heap.NewFactory()
	}
	d := &decoder{r: codec.NewReader(data), factory: factory}
	if v := d.byte(); d.err == nil && v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	c := &codegen.Code{
		Name:                 d.string(),
		Kind:                 codegen.Kind(d.byte()),
		Turbofanned:          d.bool(),
		StackSlots:           d.nat(),
		InstructionSize:      d.nat(),
		SafepointTableOffset: d.nat(),
		PrologueOffset:       d.int(),
		Instructions:         d.bytes(),
	}

	for n := d.nat(); n > 0 && d.err == nil; n-- {
		c.SourcePositions = append(c.SourcePositions, codegen.PositionEntry{PCOffset: d.nat(), Position: d.int()})
	}
	for n := d.nat(); n > 0 && d.err == nil; n-- {
		c.Relocations = append(c.Relocations, asm.RelocInfo{
			Offset: d.nat(),
			Mode:   asm.RelocMode(d.byte()),
			Object: d.object(),
			Data:   int64(d.int()),
		})
	}
	for n := d.nat(); n > 0 && d.err == nil; n-- {
		c.Comments = append(c.Comments, asm.Comment{Offset: d.nat(), Text: d.string()})
	}

	if d.bool() {
		in := &deopt.InputData{
			TranslationByteArray: d.bytes(),
			InlinedFunctionCount: d.nat(),
			OptimizationID:       d.int(),
			SharedFunctionInfo:   d.object(),
		}
		for n := d.nat(); n > 0 && d.err == nil; n-- {
			in.LiteralArray = append(in.LiteralArray, d.object())
		}
		in.OsrAstID = d.int()
		in.OsrPcOffset = d.int()
		for n := d.nat(); n > 0 && d.err == nil; n-- {
			in.Entries = append(in.Entries, deopt.EntryData{
				AstID:                d.int(),
				TranslationIndex:     d.nat(),
				ArgumentsStackHeight: d.nat(),
				Pc:                   d.int(),
			})
		}
		c.DeoptimizationData = in
	}

	if d.err != nil {
		return nil, fmt.Errorf("decode code at byte %d: %w", d.r.Offset(), d.err)
	}
	if d.r.HasMore() {
		return nil, fmt.Errorf("decode code: %d trailing bytes", len(data)-d.r.Offset())
	}
	if c.InstructionSize > len(c.Instructions) || c.SafepointTableOffset > len(c.Instructions) {
		return nil, fmt.Errorf("decode code: offsets outside %d instruction bytes", len(c.Instructions))
	}
	return c, nil
}
