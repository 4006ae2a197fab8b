package pcp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
)

func TestVariantRecordLayout(t *testing.T) {
	c := mustCompile(t, `
program variants;
type
  V = record
    tag: char;
    n: integer;
    case k: boolean of
      true: (x: real);
      false: (c: char; y: integer)
  end;
begin
end.`)
	rec := c.global("V")
	require.NotEqual(t, pcb.Nil, rec)
	tab := c.res.Table
	assert.Equal(t, int64(20), tab.SizeOf(rec))

	offsets := map[string]int64{"tag": 0, "n": 4, "k": 8, "x": 12, "c": 9, "y": 12}
	for name, off := range offsets {
		f := tab.Field(rec, name)
		require.NotEqual(t, pcb.Nil, f, name)
		assert.Equal(t, off, tab.FieldInfo(f).Offset, name)
	}
	var names []string
	for _, f := range tab.Fields(rec) {
		names = append(names, tab.Name(f))
	}
	assert.Equal(t, []string{"tag", "n", "k", "x", "c", "y"}, names)
	assert.Equal(t, pcb.Nil, c.global("x"), "fields are not found as plain identifiers")
}

func TestDuplicateField(t *testing.T) {
	c := compile(t, `
program fields;
type R = record a: integer; a: char end;
begin
end.`)
	assert.Equal(t, []string{"multiple declaration of field a"}, c.messages())
}

func TestArrayStrides(t *testing.T) {
	c := mustCompile(t, `
program arrays;
type M = array[1..3, 0..4] of integer;
var a: M;
begin
  a[2, 3] := 7
end.`)
	tab := c.res.Table
	m := c.global("M")
	ti := tab.Type(m)
	assert.Equal(t, int64(60), ti.Size)
	assert.Equal(t, 2, ti.Dims)

	first := tab.Type(ti.Index)
	assert.Equal(t, int64(1), first.Min)
	assert.Equal(t, int64(3), first.Max)
	assert.Equal(t, int64(20), first.Stride)
	second := tab.Type(first.Index)
	assert.Equal(t, int64(0), second.Min)
	assert.Equal(t, int64(4), second.Max)
	assert.Equal(t, int64(4), second.Stride)
	assert.Equal(t, pcb.Nil, second.Index)

	assertSeq(t, c,
		addr(0, 0),
		push(2), pcg.Instr{Op: pcg.OpIndex, A: 1, B: 20},
		push(3), pcg.Instr{Op: pcg.OpIndex, A: 0, B: 4},
		push(7), pcg.Instr{Op: pcg.OpStoreInd, Width: 4},
	)
}

func TestNestedArrayIndexing(t *testing.T) {
	const decl = `
program arrays;
var a: array[1..3] of array[0..4] of integer;
begin
  a%s := 7
end.`
	comma := mustCompile(t, fmt.Sprintf(decl, "[2, 3]"))
	brackets := mustCompile(t, fmt.Sprintf(decl, "[2][3]"))
	assert.Equal(t, comma.code.Instrs, brackets.code.Instrs)
}

func TestIndexChecks(t *testing.T) {
	opts := DefaultOptions()
	opts.RangeChecks = true
	c := compileWith(t, `
program checks;
var
  a: array[1..3] of integer;
  s: 1..10;
begin
  a[2] := 0;
  s := 4
end.`, opts, nil)
	require.NoError(t, c.err)
	assertSeq(t, c, push(2), pcg.Instr{Op: pcg.OpCheck, A: 1, B: 3}, pcg.Instr{Op: pcg.OpIndex, A: 1, B: 4})
	assertSeq(t, c, push(4), pcg.Instr{Op: pcg.OpCheck, A: 1, B: 10})
}

func TestSetTypeClamped(t *testing.T) {
	c := compile(t, `
program sets;
type
  Small = set of 10..20;
  Wide = set of integer;
begin
end.`)
	require.NoError(t, c.err)
	tab := c.res.Table
	small := tab.Type(c.global("Small"))
	assert.Equal(t, int64(10), small.Min)
	assert.Equal(t, int64(20), small.Max)
	assert.Equal(t, int64(pcb.SetSize), small.Size)

	wide := tab.Type(c.global("Wide"))
	assert.NotZero(t, wide.Flags&pcb.TypeClamped)
	assert.Equal(t, wide.Min+pcb.SetBits-1, wide.Max)
	assert.Equal(t, 1, c.rep.WarningCount())
}

func TestPointerForwardReference(t *testing.T) {
	c := mustCompile(t, `
program lists;
type
  Link = ^Node;
  Node = record
    value: integer;
    next: Link
  end;
var head: Link;
begin
  head^.value := 1
end.`)
	tab := c.res.Table
	link := tab.Type(c.global("Link"))
	assert.True(t, tab.Same(link.Parent, c.global("Node")))
	assert.Zero(t, link.Flags&pcb.TypeIncomplete)
	assertSeq(t, c, load(4, 0, 0), push(1), pcg.Instr{Op: pcg.OpStoreInd, Width: 4})

	c = compile(t, `
program lists;
type P = ^Missing;
begin
end.`)
	assert.Equal(t, []string{"undefined pointer base Missing"}, c.messages())
}

func TestShortString(t *testing.T) {
	c := mustCompile(t, `
program short;
var s: string[10];
begin
  s := 'hello'
end.`)
	assertSeq(t, c, addr(0, 0), push(10), push(1), push(4), lib(pcg.LibStrAlloc))
	assertSeq(t, c, pcg.Instr{Op: pcg.OpPushStr, A: 0, B: 5}, push(10), lib(pcg.LibStrAssign))

	c = compile(t, "program short; var s: string[300]; begin end.")
	assert.Equal(t, []string{"string capacity must lie in 1..255"}, c.messages())
}

func TestEnumeration(t *testing.T) {
	c := mustCompile(t, `
program colors;
type Color = (red, green, blue);
var c: Color;
begin
  c := blue
end.`)
	tab := c.res.Table
	assert.Equal(t, int64(2), tab.Type(c.global("Color")).Max)
	assert.Equal(t, int64(1), tab.Const(c.global("green")).Value.Int)
	assertSeq(t, c, push(2), store(1, 0, 0))
}
