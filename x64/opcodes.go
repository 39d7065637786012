package x64

import (
	"fmt"

	"github.com/colorfulnotion/lowering/instruction"
)

// x64 opcodes. Integer arithmetic is 32-bit so overflow conditions observe
// int32 semantics.
const (
	X64Add = instruction.FirstTargetOpcode + iota
	X64Sub
	X64And
	X64Or
	X64Xor
	X64Imul
	X64Cmp
	X64Test
	Float64Add
	Float64Sub
	Float64Mul
	Float64Div
	Float64Cmp
)

var opcodeNames = map[instruction.ArchOpcode]string{
	X64Add:     "X64Add",
	X64Sub:     "X64Sub",
	X64And:     "X64And",
	X64Or:      "X64Or",
	X64Xor:     "X64Xor",
	X64Imul:    "X64Imul",
	X64Cmp:     "X64Cmp",
	X64Test:    "X64Test",
	Float64Add: "Float64Add",
	Float64Sub: "Float64Sub",
	Float64Mul: "Float64Mul",
	Float64Div: "Float64Div",
	Float64Cmp: "Float64Cmp",
}

// Opcodes resolves x64 opcode names for instruction.LoadSequence.
func Opcodes(name string) (instruction.ArchOpcode, bool) {
	for op, n := range opcodeNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// OpcodeName names generic and x64 opcodes alike.
func OpcodeName(op instruction.ArchOpcode) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	if op < instruction.FirstTargetOpcode {
		return op.String()
	}
	return fmt.Sprintf("X64Unknown(%d)", op)
}

// aluOp describes a classic two-operand integer instruction.
type aluOp struct {
	rmR   byte // op r/m, r
	rRM   byte // op r, r/m
	immOp byte // op r/m, imm32 with /ext
	ext   byte
}

var aluOps = map[instruction.ArchOpcode]aluOp{
	X64Add:  {X86_OP_ADD_RM_R, X86_OP_ADD_R_RM, X86_OP_GROUP1_RM_IMM32, X86_REG_ADD},
	X64Sub:  {X86_OP_SUB_RM_R, X86_OP_SUB_R_RM, X86_OP_GROUP1_RM_IMM32, X86_REG_SUB},
	X64And:  {X86_OP_AND_RM_R, X86_OP_AND_R_RM, X86_OP_GROUP1_RM_IMM32, X86_REG_AND},
	X64Or:   {X86_OP_OR_RM_R, X86_OP_OR_R_RM, X86_OP_GROUP1_RM_IMM32, X86_REG_OR},
	X64Xor:  {X86_OP_XOR_RM_R, X86_OP_XOR_R_RM, X86_OP_GROUP1_RM_IMM32, X86_REG_XOR},
	X64Cmp:  {X86_OP_CMP_RM_R, X86_OP_CMP_R_RM, X86_OP_GROUP1_RM_IMM32, X86_REG_CMP},
	X64Test: {X86_OP_TEST_RM_R, X86_OP_TEST_RM_R, X86_OP_GROUP3_RM, X86_REG_TEST},
}

var sseOps = map[instruction.ArchOpcode]byte{
	Float64Add: X86_OP2_ADDSD,
	Float64Sub: X86_OP2_SUBSD,
	Float64Mul: X86_OP2_MULSD,
	Float64Div: X86_OP2_DIVSD,
}

func isCommutative(op instruction.ArchOpcode) bool {
	switch op {
	case X64Add, X64And, X64Or, X64Xor, X64Imul, Float64Add, Float64Mul:
		return true
	}
	return false
}

// conditionCodes maps flags conditions onto x86 condition codes. The
// unordered conditions additionally consult the parity flag.
var conditionCodes = map[instruction.FlagsCondition]byte{
	instruction.CondEqual:                      X86_CC_E,
	instruction.CondNotEqual:                   X86_CC_NE,
	instruction.CondSignedLessThan:             X86_CC_L,
	instruction.CondSignedGreaterThanOrEqual:   X86_CC_GE,
	instruction.CondSignedLessThanOrEqual:      X86_CC_LE,
	instruction.CondSignedGreaterThan:          X86_CC_G,
	instruction.CondUnsignedLessThan:           X86_CC_B,
	instruction.CondUnsignedGreaterThanOrEqual: X86_CC_AE,
	instruction.CondUnsignedLessThanOrEqual:    X86_CC_BE,
	instruction.CondUnsignedGreaterThan:        X86_CC_A,
	instruction.CondUnorderedEqual:             X86_CC_E,
	instruction.CondUnorderedNotEqual:          X86_CC_NE,
	instruction.CondOverflow:                   X86_CC_O,
	instruction.CondNotOverflow:                X86_CC_NO,
}
