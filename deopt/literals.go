package deopt

import "github.com/colorfulnotion/lowering/heap"

// LiteralPool deduplicates deoptimization literals by identity.
type LiteralPool struct {
	literals []heap.Object
}

// Define returns the index of o, adding it if no identical literal exists.
func (p *LiteralPool) Define(o heap.Object) int {
	for i, l := range p.literals {
		if heap.Identical(l, o) {
			return i
		}
	}
	p.literals = append(p.literals, o)
	return len(p.literals) - 1
}

func (p *LiteralPool) Len() int                { return len(p.literals) }
func (p *LiteralPool) Literals() []heap.Object { return p.literals }
