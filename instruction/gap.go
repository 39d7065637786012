package instruction

import (
	"fmt"
	"strings"
)

// GapPosition orders the parallel moves of a gap. They are resolved in this order.
type GapPosition int

const (
	GapPrePhi GapPosition = iota
	GapPhi
	GapRegular
	GapPostPhi

	GapPositionCount = 4
)

var gapPositionNames = [GapPositionCount]string{"pre-phi", "phi", "regular", "post-phi"}

func (p GapPosition) String() string {
	if p >= 0 && int(p) < GapPositionCount {
		return gapPositionNames[p]
	}
	return fmt.Sprintf("gap(%d)", int(p))
}

// ParseGapPosition maps a position name back to its value.
func ParseGapPosition(name string) (GapPosition, bool) {
	for i, n := range gapPositionNames {
		if n == name {
			return GapPosition(i), true
		}
	}
	return 0, false
}

// MoveOperands is one source to destination move. An eliminated move has an
// invalid source; a pending move is on the resolver's current path.
type MoveOperands struct {
	Source      Operand
	Destination Operand
	pending     bool
}

func (m *MoveOperands) IsPending() bool { return m.pending }
func (m *MoveOperands) SetPending()     { m.pending = true }
func (m *MoveOperands) ClearPending()   { m.pending = false }

// Blocks reports whether this move reads op.
func (m *MoveOperands) Blocks(op Operand) bool {
	return !m.IsEliminated() && m.Source.Equals(op)
}

func (m *MoveOperands) Eliminate() {
	m.Source = Operand{}
	m.Destination = Operand{}
}

func (m *MoveOperands) IsEliminated() bool {
	return m.Source.IsInvalid()
}

// IsRedundant is true for eliminated moves and moves onto themselves.
func (m *MoveOperands) IsRedundant() bool {
	return m.IsEliminated() || m.Source.Equals(m.Destination)
}

func (m *MoveOperands) String() string {
	return fmt.Sprintf("%s = %s", m.Destination, m.Source)
}

// ParallelMove is a set of moves with simultaneous semantics.
type ParallelMove struct {
	moves []*MoveOperands
}

func (p *ParallelMove) AddMove(src, dst Operand) *MoveOperands {
	m := &MoveOperands{Source: src, Destination: dst}
	p.moves = append(p.moves, m)
	return m
}

func (p *ParallelMove) Moves() []*MoveOperands { return p.moves }

// IsRedundant is true when every move is redundant.
func (p *ParallelMove) IsRedundant() bool {
	for _, m := range p.moves {
		if !m.IsRedundant() {
			return false
		}
	}
	return true
}

func (p *ParallelMove) String() string {
	parts := make([]string, 0, len(p.moves))
	for _, m := range p.moves {
		if m.IsEliminated() {
			continue
		}
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "; ")
}
