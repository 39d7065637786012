package instruction

import "golang.org/x/exp/slices"

// PointerMap lists the tagged locations live across a call.
type PointerMap struct {
	pointers []Operand
	untagged []Operand
}

func NewPointerMap() *PointerMap {
	return &PointerMap{}
}

// RecordPointer ignores immediates; they are not locations.
func (pm *PointerMap) RecordPointer(op Operand) {
	if op.IsImmediate() {
		return
	}
	pm.pointers = append(pm.pointers, op)
}

func (pm *PointerMap) RemovePointer(op Operand) {
	pm.pointers = slices.DeleteFunc(pm.pointers, op.Equals)
}

func (pm *PointerMap) RecordUntagged(op Operand) {
	if op.IsImmediate() {
		return
	}
	pm.untagged = append(pm.untagged, op)
}

// NormalizedOperands returns the pointers not also recorded as untagged,
// without duplicates, in first occurrence order.
func (pm *PointerMap) NormalizedOperands() []Operand {
	out := make([]Operand, 0, len(pm.pointers))
	for _, op := range pm.pointers {
		if slices.ContainsFunc(pm.untagged, op.Equals) || slices.ContainsFunc(out, op.Equals) {
			continue
		}
		out = append(out, op)
	}
	return out
}

func (pm *PointerMap) String() string {
	return "{" + joinOperands(pm.NormalizedOperands()) + "}"
}
