package x64

import (
	"math"

	"github.com/colorfulnotion/lowering/asm"
	"github.com/colorfulnotion/lowering/codegen"
	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/instruction"
)

// Backend assembles instructions for x86-64. Spill slot i lives at
// [rbp-8*(i+1)]; r10 and xmm15 are scratch.
type Backend struct{}

var _ codegen.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{}
}

var (
	movRMR     = []byte{X86_OP_MOV_RM_R}
	movRRM     = []byte{X86_OP_MOV_R_RM}
	xchg       = []byte{X86_OP_XCHG_RM_R}
	movsdLoad  = []byte{X86_PREFIX_0F, X86_OP2_MOVSD_X_XM}
	movsdStore = []byte{X86_PREFIX_0F, X86_OP2_MOVSD_XM_X}
	callRM     = X86Reg{RegBits: X86_REG_CALL_RM}
)

func (b *Backend) AssemblePrologue(g *codegen.CodeGenerator) {
	e := emitter{g.Buffer()}
	e.push(RBP)
	e.rr(0, true, movRMR, RSP, RBP)
	if slots := g.Sequence().SpillSlotCount(); slots > 0 {
		e.extImm(true, X86_OP_GROUP1_RM_IMM32, X86_REG_SUB, RSP, int32(8*slots))
	}
}

// AssembleReturn tears the frame down. JS functions also pop their
// parameters.
func (b *Backend) AssembleReturn(g *codegen.CodeGenerator) {
	e := emitter{g.Buffer()}
	e.rr(0, true, movRMR, RBP, RSP)
	e.pop(RBP)
	popBytes := 0
	if incoming := g.Linkage().Incoming; incoming.IsJSFunctionCall() {
		popBytes = 8 * incoming.ParameterCount
	}
	e.ret(popBytes)
}

func (b *Backend) AssembleArchInstruction(g *codegen.CodeGenerator, instr *instruction.Instruction) {
	e := emitter{g.Buffer()}
	switch op := instr.ArchOpcode(); op {
	case instruction.ArchNop:
	case instruction.ArchRet:
		b.AssembleReturn(g)
	case instruction.ArchJmp:
		if target := g.InputBlock(instr, 0); !g.IsNextInAssemblyOrder(target) {
			e.jmp(g.BlockLabel(target))
		}
	case instruction.ArchCallCodeObject:
		b.assembleCall(g, e, instr)
	case instruction.ArchDeoptimize:
		deoptID := instr.Misc()
		g.BuildTranslation(instr, 0, deoptID)
		e.callRel32(asm.RelocDeoptEntry, nil, int64(deoptID))
	case X64Add, X64Sub, X64And, X64Or, X64Xor, X64Imul:
		b.assembleBinop(g, e, instr)
	case X64Cmp, X64Test:
		b.assembleCompare(e, instr)
	case Float64Add, Float64Sub, Float64Mul, Float64Div:
		b.assembleFloat64Binop(g, e, instr)
	case Float64Cmp:
		reg := ScratchDouble
		if lhs := instr.Input(0); lhs.IsDoubleStackSlot() {
			e.rm(X86_PREFIX_REPNE, false, movsdLoad, ScratchDouble, lhs.Index)
		} else {
			reg = doubleRegister(lhs)
		}
		e.sse(X86_PREFIX_66, X86_OP2_UCOMISD, reg, instr.Input(1))
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "opcode %s", OpcodeName(op))
	}
}

func (b *Backend) assembleCall(g *codegen.CodeGenerator, e emitter, instr *instruction.Instruction) {
	if instr.InputCount() == 0 {
		codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "call without target")
	}
	switch target := instr.Input(0); {
	case target.IsImmediate():
		e.callRel32(asm.RelocCodeTarget, target.Constant.ToHeapObject(), 0)
	case target.IsRegister():
		e.rr(0, false, []byte{X86_OP_GROUP5_RM}, callRM, Register(target.Index))
	case target.IsStackSlot():
		e.rm(0, false, []byte{X86_OP_GROUP5_RM}, callRM, target.Index)
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "call target %s", target)
	}
	g.AddSafepointAndDeopt(instr)
	b.AddNopForSmiCodeInlining(g)
}

// twoAddress brings the left operand into the output register. Commutative
// operations may swap operands when the output aliases the right one.
func (b *Backend) twoAddress(g *codegen.CodeGenerator, instr *instruction.Instruction) (out, rhs instruction.Operand) {
	out = instr.Output(0)
	lhs, rhs := instr.Input(0), instr.Input(1)
	if !out.Equals(lhs) && out.Equals(rhs) {
		if !isCommutative(instr.ArchOpcode()) {
			codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "%s: output %s aliases right operand",
				OpcodeName(instr.ArchOpcode()), out)
		}
		lhs, rhs = rhs, lhs
	}
	if !out.Equals(lhs) {
		b.AssembleMove(g, lhs, out)
	}
	return out, rhs
}

func (b *Backend) assembleBinop(g *codegen.CodeGenerator, e emitter, instr *instruction.Instruction) {
	out, rhs := b.twoAddress(g, instr)
	dst := generalRegister(out)
	if instr.ArchOpcode() == X64Imul {
		imul := []byte{X86_PREFIX_0F, X86_OP2_IMUL_R_RM}
		switch {
		case rhs.IsRegister():
			e.rr(0, false, imul, dst, Register(rhs.Index))
		case rhs.IsStackSlot():
			e.rm(0, false, imul, dst, rhs.Index)
		case rhs.IsImmediate():
			e.rr(0, false, []byte{X86_OP_IMUL_R_RM_IMM32}, dst, dst)
			e.buf.Emit32(uint32(rhs.Constant.ToInt32()))
		default:
			codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "imul operand %s", rhs)
		}
		return
	}
	e.alu(aluOps[instr.ArchOpcode()], dst, rhs)
}

func (b *Backend) assembleCompare(e emitter, instr *instruction.Instruction) {
	op := aluOps[instr.ArchOpcode()]
	lhs, rhs := instr.Input(0), instr.Input(1)
	switch {
	case lhs.IsRegister():
		e.alu(op, Register(lhs.Index), rhs)
	case lhs.IsStackSlot() && rhs.IsRegister():
		e.rm(0, false, []byte{op.rmR}, Register(rhs.Index), lhs.Index)
	case lhs.IsStackSlot() && rhs.IsImmediate():
		e.extImmSlot(false, op.immOp, op.ext, lhs.Index, rhs.Constant.ToInt32())
	case lhs.IsStackSlot():
		e.rm(0, true, movRRM, ScratchReg, lhs.Index)
		e.alu(op, ScratchReg, rhs)
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "%s operand %s", OpcodeName(instr.ArchOpcode()), lhs)
	}
}

func (b *Backend) assembleFloat64Binop(g *codegen.CodeGenerator, e emitter, instr *instruction.Instruction) {
	out, rhs := b.twoAddress(g, instr)
	e.sse(X86_PREFIX_REPNE, sseOps[instr.ArchOpcode()], doubleRegister(out), rhs)
}

// alu encodes "op dst, rhs" with a register, spill slot or int32 rhs.
func (e emitter) alu(op aluOp, dst X86Reg, rhs instruction.Operand) {
	switch {
	case rhs.IsRegister():
		e.rr(0, false, []byte{op.rRM}, dst, Register(rhs.Index))
	case rhs.IsStackSlot():
		e.rm(0, false, []byte{op.rRM}, dst, rhs.Index)
	case rhs.IsImmediate():
		e.extImm(false, op.immOp, op.ext, dst, rhs.Constant.ToInt32())
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "integer operand %s", rhs)
	}
}

// sse encodes a scalar double "op dst, rhs" with an xmm or double slot rhs.
func (e emitter) sse(prefix, opcode byte, reg X86Reg, rhs instruction.Operand) {
	code := []byte{X86_PREFIX_0F, opcode}
	switch {
	case rhs.IsDoubleRegister():
		e.rr(prefix, false, code, reg, DoubleRegister(rhs.Index))
	case rhs.IsDoubleStackSlot():
		e.rm(prefix, false, code, reg, rhs.Index)
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "double operand %s", rhs)
	}
}

func (b *Backend) AssembleArchBranch(g *codegen.CodeGenerator, instr *instruction.Instruction, cond instruction.FlagsCondition) {
	e := emitter{g.Buffer()}
	n := instr.InputCount()
	tblock, fblock := g.InputBlock(instr, n-2), g.InputBlock(instr, n-1)
	tlabel, flabel := g.BlockLabel(tblock), g.BlockLabel(fblock)
	switch cond {
	case instruction.CondUnorderedEqual:
		e.jcc(X86_CC_P, flabel)
	case instruction.CondUnorderedNotEqual:
		e.jcc(X86_CC_P, tlabel)
	}
	e.jcc(conditionCode(cond), tlabel)
	if !g.IsNextInAssemblyOrder(fblock) {
		e.jmp(flabel)
	}
}

// AssembleArchBoolean materializes cond as 0 or 1 in the last output.
func (b *Backend) AssembleArchBoolean(g *codegen.CodeGenerator, instr *instruction.Instruction, cond instruction.FlagsCondition) {
	e := emitter{g.Buffer()}
	if instr.OutputCount() == 0 {
		codegenerrors.Fatalf(codegenerrors.ErrMUnknownOperand, "%s sets flags without an output", OpcodeName(instr.ArchOpcode()))
	}
	reg := generalRegister(instr.Output(instr.OutputCount() - 1))
	e.setcc(conditionCode(cond), reg)
	switch cond {
	case instruction.CondUnorderedEqual:
		e.setcc(X86_CC_NP, ScratchReg)
		e.rr8([]byte{X86_OP_AND_RM8_R8}, ScratchReg, reg)
	case instruction.CondUnorderedNotEqual:
		e.setcc(X86_CC_P, ScratchReg)
		e.rr8([]byte{X86_OP_OR_RM8_R8}, ScratchReg, reg)
	}
	e.movzx8(reg)
}

func conditionCode(cond instruction.FlagsCondition) byte {
	cc, ok := conditionCodes[cond]
	if !ok {
		codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "condition %s", cond)
	}
	return cc
}

func (b *Backend) AssembleMove(g *codegen.CodeGenerator, source, destination instruction.Operand) {
	e := emitter{g.Buffer()}
	switch {
	case source.IsRegister() && destination.IsRegister():
		e.rr(0, true, movRMR, Register(source.Index), Register(destination.Index))
	case source.IsRegister() && destination.IsStackSlot():
		e.rm(0, true, movRMR, Register(source.Index), destination.Index)
	case source.IsStackSlot() && destination.IsRegister():
		e.rm(0, true, movRRM, Register(destination.Index), source.Index)
	case source.IsStackSlot() && destination.IsStackSlot():
		e.rm(0, true, movRRM, ScratchReg, source.Index)
		e.rm(0, true, movRMR, ScratchReg, destination.Index)
	case source.IsDoubleRegister() && destination.IsDoubleRegister():
		e.rr(X86_PREFIX_REPNE, false, movsdLoad, DoubleRegister(destination.Index), DoubleRegister(source.Index))
	case source.IsDoubleRegister() && destination.IsDoubleStackSlot():
		e.rm(X86_PREFIX_REPNE, false, movsdStore, DoubleRegister(source.Index), destination.Index)
	case source.IsDoubleStackSlot() && destination.IsDoubleRegister():
		e.rm(X86_PREFIX_REPNE, false, movsdLoad, DoubleRegister(destination.Index), source.Index)
	case source.IsDoubleStackSlot() && destination.IsDoubleStackSlot():
		e.rm(X86_PREFIX_REPNE, false, movsdLoad, ScratchDouble, source.Index)
		e.rm(X86_PREFIX_REPNE, false, movsdStore, ScratchDouble, destination.Index)
	case source.IsImmediate():
		b.moveConstant(e, source.Constant, destination)
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "move %s -> %s", source, destination)
	}
}

func (b *Backend) moveConstant(e emitter, c instruction.Constant, destination instruction.Operand) {
	switch {
	case c.Type() == instruction.Int32Constant && destination.IsRegister():
		e.extImm(true, X86_OP_MOV_RM_IMM, X86_REG_MOV_IMM, Register(destination.Index), c.ToInt32())
	case c.Type() == instruction.Int32Constant && destination.IsStackSlot():
		e.extImmSlot(true, X86_OP_MOV_RM_IMM, X86_REG_MOV_IMM, destination.Index, c.ToInt32())
	case c.Type() == instruction.Float64Constant && destination.IsDoubleRegister():
		e.movImm64(ScratchReg, math.Float64bits(c.ToFloat64()))
		e.rr(X86_PREFIX_66, true, []byte{X86_PREFIX_0F, X86_OP2_MOVQ_X_RM}, DoubleRegister(destination.Index), ScratchReg)
	case c.Type() == instruction.Float64Constant && destination.IsDoubleStackSlot():
		e.movImm64(ScratchReg, math.Float64bits(c.ToFloat64()))
		e.rm(0, true, movRMR, ScratchReg, destination.Index)
	case c.Type() == instruction.HeapObjectConstant && destination.IsRegister():
		e.movObject(Register(destination.Index), c.ToHeapObject())
	case c.Type() == instruction.HeapObjectConstant && destination.IsStackSlot():
		e.movObject(ScratchReg, c.ToHeapObject())
		e.rm(0, true, movRMR, ScratchReg, destination.Index)
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "move %s -> %s", c, destination)
	}
}

// AssembleSwap exchanges two locations. The gap resolver never passes a
// stack slot as source when the other side is a register.
func (b *Backend) AssembleSwap(g *codegen.CodeGenerator, source, destination instruction.Operand) {
	e := emitter{g.Buffer()}
	switch {
	case source.IsRegister() && destination.IsRegister():
		e.rr(0, true, xchg, Register(source.Index), Register(destination.Index))
	case source.IsRegister() && destination.IsStackSlot():
		e.rm(0, true, xchg, Register(source.Index), destination.Index)
	case source.IsStackSlot() && destination.IsStackSlot():
		e.rm(0, true, movRRM, ScratchReg, source.Index)
		e.rm(0, true, xchg, ScratchReg, destination.Index)
		e.rm(0, true, movRMR, ScratchReg, source.Index)
	case source.IsDoubleRegister() && destination.IsDoubleRegister():
		src, dst := DoubleRegister(source.Index), DoubleRegister(destination.Index)
		e.rr(X86_PREFIX_REPNE, false, movsdLoad, ScratchDouble, src)
		e.rr(X86_PREFIX_REPNE, false, movsdLoad, src, dst)
		e.rr(X86_PREFIX_REPNE, false, movsdLoad, dst, ScratchDouble)
	case source.IsDoubleRegister() && destination.IsDoubleStackSlot():
		src := DoubleRegister(source.Index)
		e.rr(X86_PREFIX_REPNE, false, movsdLoad, ScratchDouble, src)
		e.rm(X86_PREFIX_REPNE, false, movsdLoad, src, destination.Index)
		e.rm(X86_PREFIX_REPNE, false, movsdStore, ScratchDouble, destination.Index)
	case source.IsDoubleStackSlot() && destination.IsDoubleStackSlot():
		e.rm(X86_PREFIX_REPNE, false, movsdLoad, ScratchDouble, source.Index)
		e.rm(0, true, movRRM, ScratchReg, destination.Index)
		e.rm(0, true, movRMR, ScratchReg, source.Index)
		e.rm(X86_PREFIX_REPNE, false, movsdStore, ScratchDouble, destination.Index)
	default:
		codegenerrors.Fatalf(codegenerrors.ErrMUnsupportedOperation, "swap %s <-> %s", source, destination)
	}
}

// AddNopForSmiCodeInlining leaves a nop after calls; x64 has no inlined smi
// code to patch.
func (b *Backend) AddNopForSmiCodeInlining(g *codegen.CodeGenerator) {
	g.Buffer().Emit(X86_OP_NOP)
}
