package pcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
)

func TestDivisionFollowsContext(t *testing.T) {
	c := mustCompile(t, `
program divide;
var i: integer; r: real;
begin
  i := 1/2;
  r := 1/2
end.`)
	assertSeq(t, c, push(1), push(2), op(pcg.OpDiv), store(4, 0, 0))
	assertSeq(t, c, push(1), push(2), op(pcg.OpFloat2), op(pcg.OpFloat), op(pcg.OpRDiv), store(8, 0, 4))
}

func TestIntegerDivisionWithoutRealContext(t *testing.T) {
	c := mustCompile(t, `
program divide;
var b: integer;
begin
  b := 7/2;
  writeln(7/2)
end.`)
	assertSeq(t, c, push(7), push(2), op(pcg.OpDiv), store(4, 0, 0))
	for _, in := range c.code.Instrs {
		assert.NotEqual(t, pcg.OpRDiv, in.Op)
		assert.NotEqual(t, pcg.OpFloat2, in.Op)
	}
}

func TestConstantDivision(t *testing.T) {
	c := mustCompile(t, `
program divide;
const
  half = 1/2;
  rhalf = 1.0/2;
  three = 7 div 2;
begin
end.`)
	tab := c.res.Table
	h := tab.Const(c.global("half"))
	assert.Equal(t, pcb.KindInteger, h.Value.Kind)
	assert.Equal(t, int64(0), h.Value.Int)
	rh := tab.Const(c.global("rhalf"))
	assert.Equal(t, pcb.KindReal, rh.Value.Kind)
	assert.InDelta(t, 0.5, rh.Value.Real, 1e-12)
	assert.Equal(t, int64(3), tab.Const(c.global("three")).Value.Int)

	c = compile(t, "program divide; const z = 1 div 0; begin end.")
	assert.Equal(t, []string{"division by zero"}, c.messages())
}

func TestMixedArithmeticPromotes(t *testing.T) {
	c := mustCompile(t, `
program mixed;
var i: integer; r: real;
begin
  r := i + 0.5;
  r := i
end.`)
	assertSeq(t, c, load(4, 0, 0), pcg.Instr{Op: pcg.OpPushReal, R: 0.5}, op(pcg.OpFloat2), op(pcg.OpRAdd))
	assertSeq(t, c, load(4, 0, 0), op(pcg.OpFloat), store(8, 0, 4))

	c = compile(t, `
program mixed;
var i: integer; r: real;
begin
  i := r
end.`)
	assert.Equal(t, []string{"incompatible types"}, c.messages())
}

func TestSetConstructorIsRebased(t *testing.T) {
	c := mustCompile(t, `
program sets;
type S = set of 10..20;
var s: S; b: boolean; k: 10..20;
begin
  s := [12, 15..16];
  b := 12 in s;
  s := [k]
end.`)
	require.True(t, len(c.code.Instrs) > 0)
	assertSeq(t, c,
		push(2), op(pcg.OpSetSingle), op(pcg.OpSetUnion),
		push(5), push(6), op(pcg.OpSetRange), op(pcg.OpSetUnion),
		store(pcb.SetSize, 0, 0),
	)
	assertSeq(t, c, push(10), op(pcg.OpSub), op(pcg.OpSetSingle), op(pcg.OpSetUnion))
	assertSeq(t, c,
		push(12), load(pcb.SetSize, 0, 0),
		op(pcg.OpSwap), push(10), op(pcg.OpSub), op(pcg.OpSwap), op(pcg.OpSetIn),
	)
}

func TestSetConstructorClampsConstantElements(t *testing.T) {
	c := compile(t, `
program sets;
type S = set of 10..20; U = set of 0..255;
var s: S; u: U;
begin
  s := [5, 12..30];
  u := [-1, 300]
end.`)
	require.NoError(t, c.err)
	assert.Equal(t, []string{
		"set element outside 10..20; clamped",
		"set element outside 0..255; clamped",
	}, c.messages())
	assert.Equal(t, 2, c.rep.WarningCount())
	assertSeq(t, c,
		push(0), op(pcg.OpSetSingle), op(pcg.OpSetUnion),
		push(2), push(10), op(pcg.OpSetRange), op(pcg.OpSetUnion),
		store(pcb.SetSize, 0, 0),
	)
	assertSeq(t, c,
		push(0), op(pcg.OpSetSingle), op(pcg.OpSetUnion),
		push(255), op(pcg.OpSetSingle), op(pcg.OpSetUnion),
		store(pcb.SetSize, 0, pcb.SetSize),
	)
}

func TestConstantSets(t *testing.T) {
	c := mustCompile(t, `
program sets;
const
  odds = [1, 3..5];
  none = [];
begin
end.`)
	tab := c.res.Table
	v := tab.Const(c.global("odds")).Value
	require.Equal(t, pcb.KindSet, v.Kind)
	for i, want := range []bool{false, true, false, true, true, true, false} {
		assert.Equal(t, want, v.Set.Test(uint(i)), "element %d", i)
	}
	assert.Zero(t, tab.Const(c.global("none")).Value.Set.Count())

	c = compile(t, "program sets; const big = [1, 300]; begin end.")
	require.NoError(t, c.err)
	assert.Equal(t, []string{"set element outside 0..255; clamped"}, c.messages())
	assert.Equal(t, 1, c.rep.WarningCount())
}

func TestStringComparison(t *testing.T) {
	c := mustCompile(t, `
program strings;
var s: string; ch: char; b: boolean;
begin
  b := s = 'abc';
  b := ch < 'x';
  b := s > ch
end.`)
	assertSeq(t, c, load(4, 0, 0), pcg.Instr{Op: pcg.OpPushStr, A: 0, B: 3}, pcg.Instr{Op: pcg.OpEq, B: pcg.CmpString})
	assertSeq(t, c, load(1, 0, 4), push('x'), pcg.Instr{Op: pcg.OpLt, B: pcg.CmpInt})
	assertSeq(t, c, load(4, 0, 0), load(1, 0, 4), lib(pcg.LibStrFromChar), pcg.Instr{Op: pcg.OpGt, B: pcg.CmpString})
}

func TestConcatenation(t *testing.T) {
	c := mustCompile(t, `
program strings;
var s: string; ch: char;
begin
  s := ch + 'bc'
end.`)
	assertSeq(t, c,
		addr(0, 0),
		load(1, 0, 4), pcg.Instr{Op: pcg.OpPushStr, A: 0, B: 2},
		op(pcg.OpSwap), lib(pcg.LibStrFromChar), op(pcg.OpSwap),
		lib(pcg.LibConcat),
		push(255), lib(pcg.LibStrAssign),
	)
}

func TestSetRelations(t *testing.T) {
	c := compile(t, `
program sets;
var a, b: set of char; x: boolean;
begin
  x := a <= b;
  x := a < b
end.`)
	assert.Equal(t, []string{"invalid set comparison"}, c.messages())
}

func TestTypeCast(t *testing.T) {
	c := mustCompile(t, `
program casts;
type Color = (red, green);
var c: Color; i: integer;
begin
  c := Color(1);
  i := ord(c) + integer(green)
end.`)
	assertSeq(t, c, push(1), store(1, 0, 0))

	c = compile(t, "program casts; var i: integer; begin i := integer(1.5) end.")
	assert.Contains(t, c.messages(), "invalid type cast")
}
