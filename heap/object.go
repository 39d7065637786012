// Package heap is the minimal managed-object model the back end needs to talk
// about constants: small integers, boxed doubles and opaque heap objects.
package heap

import (
	"fmt"
	"strconv"
)

// Object is a value that can live in a literal array. Identity is Go
// equality: Smi compares by value, every other object by pointer.
type Object interface {
	Type() Type
	String() string
}

type Type uint8

const (
	SmiType Type = iota
	HeapNumberType
	HeapObjectType
)

func (t Type) String() string {
	switch t {
	case SmiType:
		return "smi"
	case HeapNumberType:
		return "heap-number"
	case HeapObjectType:
		return "heap-object"
	default:
		return "unknown"
	}
}

const (
	SmiMinValue = -(1 << 30)
	SmiMaxValue = 1<<30 - 1
)

// Smi is a tagged small integer. It is never allocated.
type Smi int32

func (s Smi) Type() Type     { return SmiType }
func (s Smi) String() string { return strconv.Itoa(int(s)) }

// IsValidSmi reports whether v fits in the Smi range.
func IsValidSmi(v int64) bool {
	return v >= SmiMinValue && v <= SmiMaxValue
}

// HeapNumber is a boxed double; every NewHeapNumber call is a new identity.
type HeapNumber struct {
	Value float64
}

func (n *HeapNumber) Type() Type { return HeapNumberType }
func (n *HeapNumber) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// HeapObject is any other referenced object (code targets, shared function
// infos, embedded constants), known only by name.
type HeapObject struct {
	Name string
}

func (o *HeapObject) Type() Type     { return HeapObjectType }
func (o *HeapObject) String() string { return fmt.Sprintf("<%s>", o.Name) }
