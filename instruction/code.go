package instruction

import "fmt"

// InstructionCode packs an opcode and its modifiers into one word:
//
//	bits  0-7   arch opcode
//	bits  8-12  addressing mode
//	bits 13-14  flags mode
//	bits 15-19  flags condition
//	bits 20-31  misc (deoptimization support, deopt id, ...)
type InstructionCode uint32

const (
	archOpcodeShift     = 0
	archOpcodeBits      = 8
	addressingModeShift = 8
	addressingModeBits  = 5
	flagsModeShift      = 13
	flagsModeBits       = 2
	flagsConditionShift = 15
	flagsConditionBits  = 5
	miscShift           = 20
	miscBits            = 12

	MaxMisc = 1<<miscBits - 1
)

func field(c InstructionCode, shift, bits uint) uint32 {
	return (uint32(c) >> shift) & (1<<bits - 1)
}

// EncodeCode builds an InstructionCode. Out of range values are truncated to their field.
func EncodeCode(op ArchOpcode, mode AddressingMode, flags FlagsMode, cond FlagsCondition, misc int) InstructionCode {
	c := uint32(op) & (1<<archOpcodeBits - 1)
	c |= (uint32(mode) & (1<<addressingModeBits - 1)) << addressingModeShift
	c |= (uint32(flags) & (1<<flagsModeBits - 1)) << flagsModeShift
	c |= (uint32(cond) & (1<<flagsConditionBits - 1)) << flagsConditionShift
	c |= (uint32(misc) & MaxMisc) << miscShift
	return InstructionCode(c)
}

func (c InstructionCode) ArchOpcode() ArchOpcode {
	return ArchOpcode(field(c, archOpcodeShift, archOpcodeBits))
}

func (c InstructionCode) AddressingMode() AddressingMode {
	return AddressingMode(field(c, addressingModeShift, addressingModeBits))
}

func (c InstructionCode) FlagsMode() FlagsMode {
	return FlagsMode(field(c, flagsModeShift, flagsModeBits))
}

func (c InstructionCode) FlagsCondition() FlagsCondition {
	return FlagsCondition(field(c, flagsConditionShift, flagsConditionBits))
}

func (c InstructionCode) Misc() int {
	return int(field(c, miscShift, miscBits))
}

// ArchOpcode values below FirstTargetOpcode are shared by every backend.
type ArchOpcode uint8

const (
	ArchNop ArchOpcode = iota
	ArchRet
	ArchJmp
	ArchCallCodeObject
	ArchDeoptimize

	FirstTargetOpcode ArchOpcode = 16
)

var archOpcodeNames = map[ArchOpcode]string{
	ArchNop:            "ArchNop",
	ArchRet:            "ArchRet",
	ArchJmp:            "ArchJmp",
	ArchCallCodeObject: "ArchCallCodeObject",
	ArchDeoptimize:     "ArchDeoptimize",
}

// GenericOpcode looks up a shared opcode by name.
func GenericOpcode(name string) (ArchOpcode, bool) {
	for op, n := range archOpcodeNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

func (op ArchOpcode) String() string {
	if n, ok := archOpcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("TargetOpcode(%d)", op)
}

type AddressingMode uint8

const (
	ModeNone AddressingMode = iota
)

type FlagsMode uint8

const (
	FlagsNone FlagsMode = iota
	FlagsBranch
	FlagsSet
)

func (m FlagsMode) String() string {
	switch m {
	case FlagsNone:
		return "none"
	case FlagsBranch:
		return "branch"
	case FlagsSet:
		return "set"
	default:
		return fmt.Sprintf("flags(%d)", m)
	}
}

type FlagsCondition uint8

const (
	CondEqual FlagsCondition = iota
	CondNotEqual
	CondSignedLessThan
	CondSignedGreaterThanOrEqual
	CondSignedLessThanOrEqual
	CondSignedGreaterThan
	CondUnsignedLessThan
	CondUnsignedGreaterThanOrEqual
	CondUnsignedLessThanOrEqual
	CondUnsignedGreaterThan
	CondUnorderedEqual
	CondUnorderedNotEqual
	CondOverflow
	CondNotOverflow
)

var conditionNames = []string{
	"equal", "not-equal",
	"signed-less-than", "signed-greater-than-or-equal",
	"signed-less-than-or-equal", "signed-greater-than",
	"unsigned-less-than", "unsigned-greater-than-or-equal",
	"unsigned-less-than-or-equal", "unsigned-greater-than",
	"unordered-equal", "unordered-not-equal",
	"overflow", "not-overflow",
}

func (c FlagsCondition) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return fmt.Sprintf("cond(%d)", c)
}

// ParseCondition maps a condition name back to its value.
func ParseCondition(name string) (FlagsCondition, bool) {
	for i, n := range conditionNames {
		if n == name {
			return FlagsCondition(i), true
		}
	}
	return 0, false
}

// Negate returns the condition that holds exactly when c does not.
func (c FlagsCondition) Negate() FlagsCondition {
	return c ^ 1
}

// DeoptimizationSupport is stored in the misc field of call instructions.
type DeoptimizationSupport int

const (
	NoDeoptimization   DeoptimizationSupport = 0
	LazyDeoptimization DeoptimizationSupport = 1 << 0
	NeedsFrameState    DeoptimizationSupport = 1 << 1
)

func (d DeoptimizationSupport) HasLazyDeoptimization() bool { return d&LazyDeoptimization != 0 }
func (d DeoptimizationSupport) NeedsFrameState() bool       { return d&NeedsFrameState != 0 }
