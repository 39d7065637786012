package codegen

import "github.com/colorfulnotion/lowering/instruction"

// Backend is the architecture seam. A backend must provide every
// operation; implementations assert it with
//
//	var _ codegen.Backend = (*Backend)(nil)
type Backend interface {
	AssemblePrologue(g *CodeGenerator)
	AssembleArchInstruction(g *CodeGenerator, instr *instruction.Instruction)
	AssembleArchBranch(g *CodeGenerator, instr *instruction.Instruction, cond instruction.FlagsCondition)
	AssembleArchBoolean(g *CodeGenerator, instr *instruction.Instruction, cond instruction.FlagsCondition)
	AssembleReturn(g *CodeGenerator)
	AssembleMove(g *CodeGenerator, source, destination instruction.Operand)
	AssembleSwap(g *CodeGenerator, source, destination instruction.Operand)
	AddNopForSmiCodeInlining(g *CodeGenerator)
}

// moveAssembler hands the gap resolver the backend's move primitives.
type moveAssembler struct {
	g *CodeGenerator
}

func (m moveAssembler) AssembleMove(source, destination instruction.Operand) {
	m.g.backend.AssembleMove(m.g, source, destination)
}

func (m moveAssembler) AssembleSwap(source, destination instruction.Operand) {
	m.g.backend.AssembleSwap(m.g, source, destination)
}
