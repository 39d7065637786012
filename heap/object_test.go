package heap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberFromInt(t *testing.T) {
	f := NewFactory()
	assert.Equal(t, Smi(7), f.NumberFromInt(7))
	assert.True(t, Identical(f.NumberFromInt(7), f.NumberFromInt(7)))

	big := f.NumberFromInt(math.MaxInt32)
	assert.Equal(t, HeapNumberType, big.Type())
	assert.False(t, Identical(big, f.NumberFromInt(math.MaxInt32)))
}

func TestHeapNumberIdentity(t *testing.T) {
	f := NewFactory()
	a, b := f.NewHeapNumber(1.5), f.NewHeapNumber(1.5)
	assert.False(t, Identical(a, b))
	assert.True(t, Identical(a, a))
	assert.Equal(t, "1.5", a.String())
}

func TestInternedObjects(t *testing.T) {
	f := NewFactory()
	assert.Same(t, f.Object("undefined"), f.Object("undefined"))
	assert.NotSame(t, f.Object("undefined"), f.Object("the_hole"))
	assert.Equal(t, "<undefined>", f.Object("undefined").String())
}
