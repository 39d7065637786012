package instruction

import (
	"fmt"
	"math"
	"strconv"

	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/heap"
)

type OperandKind uint8

const (
	InvalidOperand OperandKind = iota
	RegisterOperand
	DoubleRegisterOperand
	StackSlotOperand
	DoubleStackSlotOperand
	ImmediateOperand
)

func (k OperandKind) String() string {
	switch k {
	case RegisterOperand:
		return "register"
	case DoubleRegisterOperand:
		return "double-register"
	case StackSlotOperand:
		return "stack-slot"
	case DoubleStackSlotOperand:
		return "double-stack-slot"
	case ImmediateOperand:
		return "immediate"
	default:
		return "invalid"
	}
}

// Operand is an allocated location or an immediate. Index is the register
// allocation index or the spill slot index; immediates carry their constant.
type Operand struct {
	Kind     OperandKind
	Index    int
	Constant Constant
}

func Register(index int) Operand        { return Operand{Kind: RegisterOperand, Index: index} }
func DoubleRegister(index int) Operand  { return Operand{Kind: DoubleRegisterOperand, Index: index} }
func StackSlot(index int) Operand       { return Operand{Kind: StackSlotOperand, Index: index} }
func DoubleStackSlot(index int) Operand { return Operand{Kind: DoubleStackSlotOperand, Index: index} }
func Immediate(c Constant) Operand      { return Operand{Kind: ImmediateOperand, Constant: c} }

// BlockRef is the immediate form used for branch and continuation targets.
func BlockRef(id BlockID) Operand { return Immediate(Int32(int32(id))) }

func (o Operand) IsInvalid() bool         { return o.Kind == InvalidOperand }
func (o Operand) IsRegister() bool        { return o.Kind == RegisterOperand }
func (o Operand) IsDoubleRegister() bool  { return o.Kind == DoubleRegisterOperand }
func (o Operand) IsStackSlot() bool       { return o.Kind == StackSlotOperand }
func (o Operand) IsDoubleStackSlot() bool { return o.Kind == DoubleStackSlotOperand }
func (o Operand) IsImmediate() bool       { return o.Kind == ImmediateOperand }

// IsAnyRegister reports general or double registers.
func (o Operand) IsAnyRegister() bool { return o.IsRegister() || o.IsDoubleRegister() }

// IsAnyStackSlot reports general or double stack slots.
func (o Operand) IsAnyStackSlot() bool { return o.IsStackSlot() || o.IsDoubleStackSlot() }

// Equals compares locations; immediates compare by constant.
func (o Operand) Equals(other Operand) bool {
	if o.Kind != other.Kind {
		return false
	}
	if o.Kind == ImmediateOperand {
		return o.Constant == other.Constant
	}
	return o.Index == other.Index
}

func (o Operand) String() string {
	switch o.Kind {
	case RegisterOperand:
		return "r" + strconv.Itoa(o.Index)
	case DoubleRegisterOperand:
		return "d" + strconv.Itoa(o.Index)
	case StackSlotOperand:
		return "s" + strconv.Itoa(o.Index)
	case DoubleStackSlotOperand:
		return "ds" + strconv.Itoa(o.Index)
	case ImmediateOperand:
		return "#" + o.Constant.String()
	default:
		return "(invalid)"
	}
}

type ConstantType uint8

const (
	Int32Constant ConstantType = iota
	Float64Constant
	HeapObjectConstant
)

func (t ConstantType) String() string {
	switch t {
	case Int32Constant:
		return "int32"
	case Float64Constant:
		return "float64"
	case HeapObjectConstant:
		return "heap-object"
	default:
		return "unknown"
	}
}

// Constant is a typed immediate value.
type Constant struct {
	typ   ConstantType
	bits  int64
	value heap.Object
}

func Int32(v int32) Constant {
	return Constant{typ: Int32Constant, bits: int64(v)}
}

func Float64(v float64) Constant {
	return Constant{typ: Float64Constant, bits: int64(math.Float64bits(v))}
}

func HeapReference(o heap.Object) Constant {
	return Constant{typ: HeapObjectConstant, value: o}
}

func (c Constant) Type() ConstantType { return c.typ }

func (c Constant) ToInt32() int32 {
	codegenerrors.Check(c.typ == Int32Constant, codegenerrors.ErrMConstantType, "want int32, have %s", c.typ)
	return int32(c.bits)
}

func (c Constant) ToFloat64() float64 {
	codegenerrors.Check(c.typ == Float64Constant, codegenerrors.ErrMConstantType, "want float64, have %s", c.typ)
	return math.Float64frombits(uint64(c.bits))
}

func (c Constant) ToHeapObject() heap.Object {
	codegenerrors.Check(c.typ == HeapObjectConstant, codegenerrors.ErrMConstantType, "want heap-object, have %s", c.typ)
	return c.value
}

func (c Constant) String() string {
	switch c.typ {
	case Int32Constant:
		return strconv.FormatInt(c.bits, 10)
	case Float64Constant:
		return strconv.FormatFloat(math.Float64frombits(uint64(c.bits)), 'g', -1, 64)
	case HeapObjectConstant:
		if c.value == nil {
			return "<null>"
		}
		return c.value.String()
	default:
		return fmt.Sprintf("constant(%d)", c.typ)
	}
}
