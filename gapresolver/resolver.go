package gapresolver

import (
	"github.com/colorfulnotion/lowering/codegenerrors"
	"github.com/colorfulnotion/lowering/instruction"
	"github.com/colorfulnotion/lowering/log"
)

// Assembler emits the primitive moves. AssembleSwap exchanges two
// locations; it is only called with a register or two stack slots as
// source.
type Assembler interface {
	AssembleMove(source, destination instruction.Operand)
	AssembleSwap(source, destination instruction.Operand)
}

// Resolver sequentializes parallel moves.
type Resolver struct {
	assembler Assembler
}

func New(a Assembler) *Resolver {
	if a == nil {
		codegenerrors.Fatalf(codegenerrors.ErrTNoScratch, "gap resolver without assembler")
	}
	return &Resolver{assembler: a}
}

// Resolve emits moves and swaps so that every destination ends up holding
// the value its source held before the first emitted operation. pm is left
// untouched; the resolver works on a copy of its moves.
func (r *Resolver) Resolve(pm *instruction.ParallelMove) {
	moves := make([]*instruction.MoveOperands, len(pm.Moves()))
	for i, m := range pm.Moves() {
		c := *m
		moves[i] = &c
	}

	for _, m := range moves {
		if m.IsRedundant() {
			m.Eliminate()
		}
	}

	// Immediates never block another move, so they go last.
	for _, m := range moves {
		if !m.IsEliminated() && !m.Source.IsImmediate() {
			r.performMove(moves, m)
		}
	}
	for _, m := range moves {
		if !m.IsEliminated() {
			r.assembler.AssembleMove(m.Source, m.Destination)
			m.Eliminate()
		}
	}
}

func (r *Resolver) performMove(moves []*instruction.MoveOperands, move *instruction.MoveOperands) {
	// Depth first: perform every move that reads our destination first.
	// The pending mark stops the walk when it comes back around a cycle.
	move.SetPending()
	destination := move.Destination
	for _, other := range moves {
		if other.Blocks(destination) && !other.IsPending() {
			r.performMove(moves, other)
		}
	}
	move.ClearPending()

	source := move.Source
	// A swap further down may have already put the value in place.
	if source.Equals(destination) {
		move.Eliminate()
		return
	}

	var blocker *instruction.MoveOperands
	for _, other := range moves {
		if other != move && other.Blocks(destination) {
			blocker = other
			break
		}
	}
	if blocker == nil {
		r.assembler.AssembleMove(source, destination)
		move.Eliminate()
		return
	}

	codegenerrors.Check(blocker.IsPending(), codegenerrors.ErrMUnsupportedOperation,
		"move %s blocked by non-pending %s", move, blocker)
	log.Trace(log.GapMonitoring, "cycle broken by swap", "source", source.String(), "destination", destination.String())

	if source.IsAnyStackSlot() {
		source, destination = destination, source
	}
	r.assembler.AssembleSwap(source, destination)
	move.Eliminate()

	for _, other := range moves {
		if other.Blocks(source) {
			other.Source = destination
		} else if other.Blocks(destination) {
			other.Source = source
		}
	}
}
