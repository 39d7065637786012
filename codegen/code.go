package codegen

import (
	"fmt"

	"github.com/colorfulnotion/lowering/asm"
	"github.com/colorfulnotion/lowering/deopt"
	"github.com/colorfulnotion/lowering/safepoint"
	"github.com/xlab/treeprint"
)

type Kind uint8

const (
	KindStub Kind = iota
	KindOptimizedFunction
)

func (k Kind) String() string {
	switch k {
	case KindStub:
		return "STUB"
	case KindOptimizedFunction:
		return "OPTIMIZED_FUNCTION"
	default:
		return fmt.Sprintf("KIND(%d)", k)
	}
}

// Code is a finished code object: machine code with its embedded safepoint
// table plus the side tables the runtime needs. Instructions[:InstructionSize]
// is the executable part.
type Code struct {
	Name                 string
	Instructions         []byte
	InstructionSize      int
	Kind                 Kind
	Turbofanned          bool
	StackSlots           int
	SafepointTableOffset int
	PrologueOffset       int
	DeoptimizationData   *deopt.InputData
	SourcePositions      []PositionEntry
	Relocations          []asm.RelocInfo
	Comments             []asm.Comment
}

// MachineCode is the executable prefix of Instructions.
func (c *Code) MachineCode() []byte {
	return c.Instructions[:c.InstructionSize]
}

// SafepointTable decodes the table embedded in Instructions.
func (c *Code) SafepointTable() (*safepoint.Table, error) {
	return safepoint.DecodeTable(c.Instructions, c.SafepointTableOffset)
}

// Tree renders the code object for inspection.
func (c *Code) Tree() string {
	tree := treeprint.New()
	name := c.Name
	if name == "" {
		name = "<anonymous>"
	}
	tree.SetValue(fmt.Sprintf("%s %s (%d bytes, %d executable, turbofanned=%v)", name, c.Kind, len(c.Instructions), c.InstructionSize, c.Turbofanned))
	tree.AddMetaNode("stack_slots", c.StackSlots)
	tree.AddMetaNode("prologue", c.PrologueOffset)

	sp := tree.AddMetaBranch("safepoints", fmt.Sprintf("table@%d", c.SafepointTableOffset))
	if table, err := c.SafepointTable(); err != nil {
		sp.AddNode(err.Error())
	} else {
		for _, e := range table.Entries() {
			sp.AddNode(e.String())
		}
	}

	if d := c.DeoptimizationData; d != nil {
		db := tree.AddBranch("deoptimization")
		db.AddMetaNode("optimization_id", d.OptimizationID)
		db.AddMetaNode("shared_info", d.SharedFunctionInfo.String())
		db.AddMetaNode("translations", fmt.Sprintf("%d bytes", len(d.TranslationByteArray)))
		lits := db.AddBranch("literals")
		for i, l := range d.LiteralArray {
			lits.AddMetaNode(i, l.String())
		}
		entries := db.AddBranch("entries")
		for i, e := range d.Entries {
			eb := entries.AddMetaBranch(i, fmt.Sprintf("ast_id=%d translation=%d", e.AstID, e.TranslationIndex))
			if cmds, err := deopt.Decode(d.TranslationByteArray, e.TranslationIndex); err == nil {
				for _, cmd := range cmds {
					eb.AddNode(cmd.String())
				}
			}
		}
	}

	if len(c.SourcePositions) > 0 {
		pb := tree.AddBranch("positions")
		for _, p := range c.SourcePositions {
			pb.AddMetaNode(p.PCOffset, p.Position)
		}
	}
	if len(c.Relocations) > 0 {
		rb := tree.AddBranch("relocations")
		for _, r := range c.Relocations {
			target := fmt.Sprint(r.Data)
			if r.Object != nil {
				target = r.Object.String()
			}
			rb.AddMetaNode(r.Offset, fmt.Sprintf("%s %s", r.Mode, target))
		}
	}
	if len(c.Comments) > 0 {
		cb := tree.AddBranch("comments")
		for _, cm := range c.Comments {
			cb.AddMetaNode(cm.Offset, cm.Text)
		}
	}
	return tree.String()
}
