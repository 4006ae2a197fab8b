package pcg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Code {
	c := NewCode()
	c.Begin(Header{Kind: KindUnit, Name: "demo", Entry: 1})
	s := c.Data([]byte("hello"))
	c.Import(Import{Unit: "sys", Name: "tick", Kind: SymProc, Label: 9})
	c.Export(Export{Name: "counter", Kind: SymVar, Value: 0, Size: 4})
	c.Emit(Instr{Op: OpLabel, A: 1})
	c.Emit(Instr{Op: OpEnter, A: 8})
	c.Emit(Instr{Op: OpPushStr, A: s, B: 5})
	c.Emit(Instr{Op: OpPushReal, R: 0.5})
	c.Emit(Instr{Op: OpPop})
	c.Emit(Instr{Op: OpLoad, Width: 4, Level: 0, A: -4})
	c.Emit(Instr{Op: OpJz, A: 2})
	c.Emit(Instr{Op: OpCall, A: 9, Level: 0})
	c.Emit(Instr{Op: OpLabel, A: 2})
	c.Emit(Instr{Op: OpLib, A: int64(LibStrRelease)})
	c.Emit(Instr{Op: OpRet})
	return c
}

func TestDataIsShared(t *testing.T) {
	c := NewCode()
	a := c.Data([]byte("abc"))
	b := c.Data([]byte("xyz"))
	assert.Equal(t, int64(0), a)
	assert.Equal(t, int64(3), b)
	assert.Equal(t, int64(1), c.Data([]byte("bc")))
	assert.Equal(t, "yz", c.Str(4, 2))
}

func TestLabels(t *testing.T) {
	c := sample()
	labels, err := c.Labels()
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 8}, labels)

	c.Emit(Instr{Op: OpJmp, A: 77})
	_, err = c.Labels()
	assert.EqualError(t, err, "instruction 11: undefined label L77")

	d := sample()
	d.Emit(Instr{Op: OpLabel, A: 2})
	_, err = d.Labels()
	assert.EqualError(t, err, "label L2 placed twice")
}

func TestObjectRoundTrip(t *testing.T) {
	c := sample()
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	d, err := ReadObject(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Header.Name, d.Header.Name)
	assert.Equal(t, Arch, d.Header.Arch)
	assert.Equal(t, c.Instrs, d.Instrs)
	assert.Equal(t, c.Imports, d.Imports)
	assert.Equal(t, c.Exports, d.Exports)
	assert.Equal(t, c.Listing(), d.Listing())
}

func TestReadObjectRejectsGarbage(t *testing.T) {
	_, err := ReadObject(bytes.NewReader([]byte("MZ\x90\x00")))
	assert.ErrorContains(t, err, "not an object file")

	_, err = ReadObject(bytes.NewReader(nil))
	assert.ErrorContains(t, err, "cannot read object")
}

func TestListing(t *testing.T) {
	want := `unit demo arch=stack32 entry=L1
import sys.tick proc L9
export counter var 0 size 4
rodata 5 bytes "hello"
L1:
     1  enter   8
     2  pushs   @0,5
     3  pushr   0.5
     4  pop
     5  load    4,0,-4
     6  jz      L2
     7  call    L9,0
L2:
     9  lib     strrelease
    10  ret     0
`
	assert.Equal(t, want, sample().Listing())
}
