package heap

// Factory creates objects for one compilation unit. Named objects are interned
// so the same name always yields the same identity.
type Factory struct {
	named map[string]*HeapObject
}

func NewFactory() *Factory {
	return &Factory{named: make(map[string]*HeapObject)}
}

// NumberFromInt returns a Smi when v fits, otherwise a fresh HeapNumber.
func (f *Factory) NumberFromInt(v int32) Object {
	if IsValidSmi(int64(v)) {
		return Smi(v)
	}
	return &HeapNumber{Value: float64(v)}
}

// NewHeapNumber always allocates.
func (f *Factory) NewHeapNumber(v float64) *HeapNumber {
	return &HeapNumber{Value: v}
}

// Object returns the interned object called name.
func (f *Factory) Object(name string) *HeapObject {
	if o, ok := f.named[name]; ok {
		return o
	}
	o := &HeapObject{Name: name}
	f.named[name] = o
	return o
}

// Identical reports whether a and b are the same object.
func Identical(a, b Object) bool {
	return a == b
}
