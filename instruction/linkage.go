package instruction

import "github.com/colorfulnotion/lowering/heap"

type CallKind uint8

const (
	CallStub CallKind = iota
	CallJSFunction
)

func (k CallKind) String() string {
	if k == CallJSFunction {
		return "js-function"
	}
	return "stub"
}

type CallDescriptor struct {
	Kind           CallKind
	ParameterCount int
}

func (d *CallDescriptor) IsJSFunctionCall() bool { return d != nil && d.Kind == CallJSFunction }

// Linkage carries what the generator needs to know about the unit being compiled.
type Linkage struct {
	Incoming       *CallDescriptor
	OptimizationID int
	Optimizing     bool
	SharedInfo     heap.Object
	Script         *Script
}
