// Package x64 is the x86-64 backend of the code generator.
package x64

import (
	"fmt"

	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/instruction"
)

// X86Reg represents an x86-64 register with encoding information
type X86Reg struct {
	Name    string
	RegBits byte // 3-bit code for ModRM/SIB
	REXBit  byte // 1 if register index >= 8
}

// Standard x86-64 register definitions
var (
	RAX = X86Reg{"rax", 0, 0}
	RCX = X86Reg{"rcx", 1, 0}
	RDX = X86Reg{"rdx", 2, 0}
	RBX = X86Reg{"rbx", 3, 0}
	RSP = X86Reg{"rsp", 4, 0}
	RBP = X86Reg{"rbp", 5, 0}
	RSI = X86Reg{"rsi", 6, 0}
	RDI = X86Reg{"rdi", 7, 0}
	R8  = X86Reg{"r8", 0, 1}
	R9  = X86Reg{"r9", 1, 1}
	R10 = X86Reg{"r10", 2, 1} // scratch, never allocated
	R11 = X86Reg{"r11", 3, 1}
	R12 = X86Reg{"r12", 4, 1}
	R13 = X86Reg{"r13", 5, 1}
	R14 = X86Reg{"r14", 6, 1}
	R15 = X86Reg{"r15", 7, 1}
)

// ScratchReg and ScratchDouble are reserved for moves and swaps that need a
// temporary.
var (
	ScratchReg    = R10
	ScratchDouble = xmm(15)
)

// regInfoList maps register allocation indices to machine registers.
var regInfoList = []X86Reg{
	RAX, RCX, RDX, RBX, RSI, RDI, R8, R9, R11, R12, R13, R14, R15,
}

// DoubleRegisterCount is the number of allocatable xmm registers; xmm15 is
// the scratch.
const DoubleRegisterCount = 15

func xmm(i int) X86Reg {
	return X86Reg{Name: fmt.Sprintf("xmm%d", i), RegBits: byte(i & 7), REXBit: byte(i >> 3)}
}

// RegisterCount is the number of allocatable general registers.
func RegisterCount() int { return len(regInfoList) }

// Register returns the machine register for allocation index i.
func Register(i int) X86Reg {
	if i < 0 || i >= len(regInfoList) {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "no general register with index %d", i)
	}
	return regInfoList[i]
}

// DoubleRegister returns xmm register i.
func DoubleRegister(i int) X86Reg {
	if i < 0 || i >= DoubleRegisterCount {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "no double register with index %d", i)
	}
	return xmm(i)
}

// SlotDisplacement is the rbp-relative offset of spill slot i.
func SlotDisplacement(i int) int32 {
	return int32(-8 * (i + 1))
}

func generalRegister(op instruction.Operand) X86Reg {
	if !op.IsRegister() {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "%s is not a general register", op)
	}
	return Register(op.Index)
}

func doubleRegister(op instruction.Operand) X86Reg {
	if !op.IsDoubleRegister() {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "%s is not a double register", op)
	}
	return DoubleRegister(op.Index)
}
