package x64

import (
	"encoding/binary"

	"github.com/colorfulnotion/lowering/asm"
	"github.com/colorfulnotion/lowering/heap"
)

// emitter writes encoded x86-64 instructions into an asm.Buffer.
type emitter struct {
	buf *asm.Buffer
}

// rex returns the REX prefix for a reg/rm pair, or 0 when none is needed.
// byteRegs forces a prefix so that encodings 4-7 name spl..dil, not ah..bh.
func rex(w bool, reg, rm X86Reg, byteRegs bool) byte {
	var r byte
	if w {
		r |= X86_REX_W
	}
	if reg.REXBit == 1 {
		r |= X86_REX_R
	}
	if rm.REXBit == 1 {
		r |= X86_REX_B
	}
	if r != 0 || (byteRegs && (reg.RegBits >= 4 || rm.RegBits >= 4)) {
		return X86_REX_BASE | r
	}
	return 0
}

func modrm(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | rm&7
}

func (e emitter) prefixed(prefix, rexByte byte, opcode []byte) {
	if prefix != 0 {
		e.buf.Emit(prefix)
	}
	if rexByte != 0 {
		e.buf.Emit(rexByte)
	}
	e.buf.Emit(opcode...)
}

// rr encodes "op reg, rm" with a register r/m operand.
func (e emitter) rr(prefix byte, w bool, opcode []byte, reg, rm X86Reg) {
	e.prefixed(prefix, rex(w, reg, rm, false), opcode)
	e.buf.Emit(modrm(X86_MOD_REGISTER, reg.RegBits, rm.RegBits))
}

// rr8 is rr with byte register operands.
func (e emitter) rr8(opcode []byte, reg, rm X86Reg) {
	e.prefixed(0, rex(false, reg, rm, true), opcode)
	e.buf.Emit(modrm(X86_MOD_REGISTER, reg.RegBits, rm.RegBits))
}

// rm encodes "op reg, [rbp+disp32]" for spill slot.
func (e emitter) rm(prefix byte, w bool, opcode []byte, reg X86Reg, slot int) {
	e.prefixed(prefix, rex(w, reg, RBP, false), opcode)
	e.buf.Emit(modrm(X86_MOD_INDIRECT_DISP32, reg.RegBits, RBP.RegBits))
	e.buf.Emit32(uint32(SlotDisplacement(slot)))
}

// extImm encodes a group opcode with a /ext reg field and an imm32.
func (e emitter) extImm(w bool, opcode, ext byte, rm X86Reg, imm int32) {
	e.rr(0, w, []byte{opcode}, X86Reg{RegBits: ext}, rm)
	e.buf.Emit32(uint32(imm))
}

func (e emitter) extImmSlot(w bool, opcode, ext byte, slot int, imm int32) {
	e.rm(0, w, []byte{opcode}, X86Reg{RegBits: ext}, slot)
	e.buf.Emit32(uint32(imm))
}

// movImm64 encodes: mov reg, imm64
func (e emitter) movImm64(reg X86Reg, imm uint64) {
	prefix := byte(X86_REX_BASE | X86_REX_W)
	if reg.REXBit == 1 {
		prefix |= X86_REX_B
	}
	e.buf.Emit(prefix, X86_OP_MOV_R_IMM+reg.RegBits)
	e.buf.Emit64(imm)
}

// movObject loads a heap object address, leaving a relocation on the imm64.
func (e emitter) movObject(reg X86Reg, obj heap.Object) {
	prefix := byte(X86_REX_BASE | X86_REX_W)
	if reg.REXBit == 1 {
		prefix |= X86_REX_B
	}
	e.buf.Emit(prefix, X86_OP_MOV_R_IMM+reg.RegBits)
	e.buf.RecordRelocation(asm.RelocEmbeddedObject, obj, 0)
	e.buf.Emit64(0)
}

// callRel32 emits a call whose target the loader patches through reloc.
func (e emitter) callRel32(mode asm.RelocMode, obj heap.Object, data int64) {
	e.buf.Emit(X86_OP_CALL_REL32)
	e.buf.RecordRelocation(mode, obj, data)
	e.buf.Emit32(0)
}

func (e emitter) jmp(l asm.Label) {
	e.buf.Emit(X86_OP_JMP_REL32)
	e.buf.EmitRel32(l)
}

func (e emitter) jcc(cc byte, l asm.Label) {
	e.buf.Emit(X86_PREFIX_0F, X86_OP2_JCC+cc)
	e.buf.EmitRel32(l)
}

func (e emitter) push(reg X86Reg) {
	if reg.REXBit == 1 {
		e.buf.Emit(X86_REX_BASE | X86_REX_B)
	}
	e.buf.Emit(X86_OP_PUSH_R + reg.RegBits)
}

func (e emitter) pop(reg X86Reg) {
	if reg.REXBit == 1 {
		e.buf.Emit(X86_REX_BASE | X86_REX_B)
	}
	e.buf.Emit(X86_OP_POP_R + reg.RegBits)
}

func (e emitter) ret(popBytes int) {
	if popBytes == 0 {
		e.buf.Emit(X86_OP_RET)
		return
	}
	e.buf.Emit(X86_OP_RET_IMM16)
	e.buf.Emit(binary.LittleEndian.AppendUint16(nil, uint16(popBytes))...)
}

func (e emitter) setcc(cc byte, reg X86Reg) {
	e.rr8([]byte{X86_PREFIX_0F, X86_OP2_SETCC + cc}, X86Reg{}, reg)
}

// movzx8 zero extends the low byte of reg into the full register.
func (e emitter) movzx8(reg X86Reg) {
	e.rr8([]byte{X86_PREFIX_0F, X86_OP2_MOVZX_R_RM8}, reg, reg)
}
