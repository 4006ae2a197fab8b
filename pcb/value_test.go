package pcb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetValue(t *testing.T) {
	v, clamped := SetValue(3, 9)
	assert.False(t, clamped)
	assert.Equal(t, uint(7), v.Set.Count())
	assert.True(t, v.Set.Test(3))
	assert.False(t, v.Set.Test(10))
	assert.Equal(t, "[3,4,5,6,7,8,9]", v.String())

	b := v.SetBytes()
	assert.Len(t, b, SetSize)
	assert.Equal(t, byte(0xF8), b[0])
	assert.Equal(t, byte(0x03), b[1])
}

func TestSetValueClamps(t *testing.T) {
	v, clamped := SetValue(250, 300)
	assert.True(t, clamped)
	assert.Equal(t, uint(6), v.Set.Count())

	w := EmptySet()
	assert.True(t, w.AddRange(-2, 0))
	assert.True(t, w.Set.Test(0))
}

func TestValueConversions(t *testing.T) {
	assert.Equal(t, 2.0, IntValue(2).AsReal())
	assert.True(t, IntValue(2).IsNumeric())
	assert.False(t, CharValue('a').IsNumeric())
	assert.True(t, CharValue('a').IsOrdinal())
	assert.Equal(t, "a", CharValue('a').AsString())
	assert.True(t, BoolValue(true).Bool())
	assert.Equal(t, "nil", NilValue().String())
}

func TestSetValueHugeRange(t *testing.T) {
	v, clamped := SetValue(0, math.MaxInt64)
	assert.True(t, clamped)
	assert.Equal(t, uint(SetBits), v.Set.Count())

	v, clamped = SetValue(-math.MaxInt32, math.MaxInt32)
	assert.True(t, clamped)
	assert.Equal(t, uint(SetBits), v.Set.Count())

	v, clamped = SetValue(300, 400)
	assert.True(t, clamped)
	assert.Zero(t, v.Set.Count())
}
