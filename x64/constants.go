package x64

// REX Prefix Constants
const (
	X86_REX_BASE = 0x40 // Base value for REX prefix
	X86_REX_W    = 0x08 // REX.W - 64-bit operand size
	X86_REX_R    = 0x04 // REX.R - Extension of ModRM reg field
	X86_REX_X    = 0x02 // REX.X - Extension of SIB index field
	X86_REX_B    = 0x01 // REX.B - Extension of ModRM r/m, SIB base, or opcode reg field
)

// ModRM Mode Constants
const (
	X86_MOD_INDIRECT_DISP32 = 0x02 // [reg + disp32]
	X86_MOD_REGISTER        = 0x03 // reg
)

// Primary Opcodes
const (
	X86_OP_ADD_RM_R        = 0x01 // ADD r/m, r
	X86_OP_ADD_R_RM        = 0x03 // ADD r, r/m
	X86_OP_OR_RM8_R8       = 0x08 // OR r/m8, r8
	X86_OP_OR_RM_R         = 0x09 // OR r/m, r
	X86_OP_OR_R_RM         = 0x0B // OR r, r/m
	X86_OP_AND_RM8_R8      = 0x20 // AND r/m8, r8
	X86_OP_AND_RM_R        = 0x21 // AND r/m, r
	X86_OP_AND_R_RM        = 0x23 // AND r, r/m
	X86_OP_SUB_RM_R        = 0x29 // SUB r/m, r
	X86_OP_SUB_R_RM        = 0x2B // SUB r, r/m
	X86_OP_XOR_RM_R        = 0x31 // XOR r/m, r
	X86_OP_XOR_R_RM        = 0x33 // XOR r, r/m
	X86_OP_CMP_RM_R        = 0x39 // CMP r/m, r
	X86_OP_CMP_R_RM        = 0x3B // CMP r, r/m
	X86_OP_PUSH_R          = 0x50 // PUSH r64 (+ reg)
	X86_OP_POP_R           = 0x58 // POP r64 (+ reg)
	X86_OP_IMUL_R_RM_IMM32 = 0x69 // IMUL r, r/m, imm32
	X86_OP_GROUP1_RM_IMM32 = 0x81 // Group 1 operations with imm32
	X86_OP_TEST_RM_R       = 0x85 // TEST r/m, r
	X86_OP_XCHG_RM_R       = 0x87 // XCHG r/m, r
	X86_OP_MOV_RM_R        = 0x89 // MOV r/m, r
	X86_OP_MOV_R_RM        = 0x8B // MOV r, r/m
	X86_OP_MOV_R_IMM       = 0xB8 // MOV r, imm64 (+ reg)
	X86_OP_RET_IMM16       = 0xC2 // RET imm16
	X86_OP_RET             = 0xC3 // RET
	X86_OP_MOV_RM_IMM      = 0xC7 // MOV r/m, imm32
	X86_OP_CALL_REL32      = 0xE8 // CALL rel32
	X86_OP_JMP_REL32       = 0xE9 // JMP rel32
	X86_OP_GROUP3_RM       = 0xF7 // Group 3 unary operations
	X86_OP_GROUP5_RM       = 0xFF // Group 5 operations (INC, DEC, CALL, JMP, PUSH)
	X86_OP_NOP             = 0x90 // NOP
)

// Two-byte Opcodes (0x0F prefix)
const (
	X86_OP2_MOVSD_X_XM  = 0x10 // MOVSD xmm, xmm/m64 (F2)
	X86_OP2_MOVSD_XM_X  = 0x11 // MOVSD xmm/m64, xmm (F2)
	X86_OP2_UCOMISD     = 0x2E // UCOMISD xmm, xmm/m64 (66)
	X86_OP2_ADDSD       = 0x58 // ADDSD (F2)
	X86_OP2_MULSD       = 0x59 // MULSD (F2)
	X86_OP2_SUBSD       = 0x5C // SUBSD (F2)
	X86_OP2_DIVSD       = 0x5E // DIVSD (F2)
	X86_OP2_MOVQ_X_RM   = 0x6E // MOVQ xmm, r/m64 (66 REX.W)
	X86_OP2_JCC         = 0x80 // Jcc rel32 (+ cc)
	X86_OP2_SETCC       = 0x90 // SETcc r/m8 (+ cc)
	X86_OP2_IMUL_R_RM   = 0xAF // IMUL r, r/m
	X86_OP2_MOVZX_R_RM8 = 0xB6 // MOVZX r, r/m8
)

// ModRM reg field constants for opcodes with sub-operations
const (
	X86_REG_ADD = 0 // ADD (for 0x81 opcode)
	X86_REG_OR  = 1 // OR  (for 0x81 opcode)
	X86_REG_AND = 4 // AND (for 0x81 opcode)
	X86_REG_SUB = 5 // SUB (for 0x81 opcode)
	X86_REG_XOR = 6 // XOR (for 0x81 opcode)
	X86_REG_CMP = 7 // CMP (for 0x81 opcode)

	X86_REG_TEST    = 0 // TEST (for 0xF7 opcode)
	X86_REG_CALL_RM = 2 // CALL r/m (for 0xFF opcode)
	X86_REG_MOV_IMM = 0 // MOV (for 0xC7 opcode)
)

// Prefixes
const (
	X86_PREFIX_0F    = 0x0F // Two-byte opcode prefix
	X86_PREFIX_66    = 0x66 // Operand-size override prefix
	X86_PREFIX_REPNE = 0xF2 // REPNE prefix, selects the scalar double form of SSE2 opcodes
)

// Condition codes, added to X86_OP2_JCC and X86_OP2_SETCC.
const (
	X86_CC_O  = 0x0
	X86_CC_NO = 0x1
	X86_CC_B  = 0x2
	X86_CC_AE = 0x3
	X86_CC_E  = 0x4
	X86_CC_NE = 0x5
	X86_CC_BE = 0x6
	X86_CC_A  = 0x7
	X86_CC_P  = 0xA
	X86_CC_NP = 0xB
	X86_CC_L  = 0xC
	X86_CC_GE = 0xD
	X86_CC_LE = 0xE
	X86_CC_G  = 0xF
)
