package pcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-compiler/diag"
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
)

const mathxUnit = `
unit mathx;
interface
var counter: integer;
function twice(n: integer): integer;
implementation
var hidden: integer;
function twice(n: integer): integer;
begin
  twice := 2 * n
end;
end.`

func TestCompileUnit(t *testing.T) {
	c := mustCompile(t, mathxUnit)
	assert.Equal(t, pcg.KindUnit, c.res.Kind)
	assert.Equal(t, "mathx", c.res.Name)
	require.Len(t, c.code.Exports, 2)
	assert.Equal(t, pcg.Export{Name: "counter", Kind: pcg.SymVar, Value: 0, Size: 4}, c.code.Exports[0])
	assert.Equal(t, "twice", c.code.Exports[1].Name)
	assert.Equal(t, pcg.SymProc, c.code.Exports[1].Kind)

	pi := c.res.Table.Proc(c.global("twice"))
	require.NotNil(t, pi)
	assert.NotZero(t, pi.Flags&pcb.ProcExported)
	assert.Zero(t, pi.Flags&pcb.ProcForward)
	assert.Equal(t, c.code.Exports[1].Value, pi.Entry)

	assertSeq(t, c, push(2), load(4, 1, 12), op(pcg.OpMul), store(4, 1, 16))
	_, err := c.code.Labels()
	assert.NoError(t, err)
}

func TestUnitWithoutBody(t *testing.T) {
	c := compile(t, `
unit empty;
interface
procedure p;
implementation
end.`)
	assert.Equal(t, []string{"forward procedure p not resolved"}, c.messages())
}

func TestUsesUnit(t *testing.T) {
	units := map[string]string{"mathx": mathxUnit}
	c := compileWith(t, `
program client;
uses mathx;
var k: integer;
begin
  counter := 1;
  k := twice(3);
  k := mathx.twice(k)
end.`, DefaultOptions(), units)
	require.NoError(t, c.err, c.rep.Summary())

	require.Len(t, c.code.Imports, 2)
	assert.Equal(t, pcg.Import{Unit: "mathx", Name: "counter", Kind: pcg.SymVar, Label: 0}, c.code.Imports[0])
	twice := c.code.Imports[1]
	assert.Equal(t, "twice", twice.Name)
	assert.Equal(t, pcg.SymProc, twice.Kind)

	k := c.res.Table.Var(c.global("k"))
	assert.Equal(t, int64(0), k.Offset)
	assert.Equal(t, pcb.Nil, c.global("hidden"))

	assertSeq(t, c, push(1), store(4, -1, 0))
	assertSeq(t, c, push(0), push(3), pcg.Instr{Op: pcg.OpCall, A: twice.Label, Level: 1}, store(4, 0, 0))
	assert.Equal(t, 2, c.code.Count(pcg.OpCall))
	_, err := c.code.Labels()
	assert.NoError(t, err)
}

func TestMissingUnit(t *testing.T) {
	c := compileWith(t, `
program client;
uses nowhere;
begin
end.`, DefaultOptions(), map[string]string{})
	require.Error(t, c.err)
	assert.Equal(t, []string{"cannot open unit nowhere: unit nowhere not found"}, c.messages())
}

func TestUnitNestingLimit(t *testing.T) {
	units := map[string]string{
		"a": "unit a; interface uses b; implementation end.",
		"b": "unit b; interface uses c; implementation end.",
		"c": "unit c; interface implementation end.",
	}
	opts := DefaultOptions()
	opts.MaxUnitDepth = 2
	c := compileWith(t, "program deep; uses a; begin end.", opts, units)
	require.Error(t, c.err)
	assert.Equal(t, 1, c.rep.Count(diag.Fatal))
}

func TestForwardAndExternal(t *testing.T) {
	c := mustCompile(t, `
program decls;
procedure b(n: integer); forward;
procedure a;
begin
  b(1)
end;
procedure b(n: integer);
begin
end;
procedure ext(x: integer); external 'libc';
begin
  a;
  ext(2)
end.`)
	require.Len(t, c.code.Imports, 1)
	ext := c.code.Imports[0]
	assert.Equal(t, pcg.Import{Unit: "libc", Name: "ext", Kind: pcg.SymProc, Label: ext.Label}, ext)
	assertSeq(t, c, push(2), pcg.Instr{Op: pcg.OpCall, A: ext.Label, Level: 1})
	_, err := c.code.Labels()
	assert.NoError(t, err)

	c = compile(t, `
program decls;
procedure z; forward;
begin
end.`)
	assert.Equal(t, []string{"forward procedure z not resolved"}, c.messages())

	c = compile(t, `
program decls;
procedure z(n: integer); forward;
procedure z(n: char);
begin
end;
begin
end.`)
	assert.Equal(t, []string{"heading of z does not match its forward declaration"}, c.messages())
}

func TestRecursiveFunction(t *testing.T) {
	c := mustCompile(t, `
program rec;
function fact(n: integer): integer;
begin
  if n <= 1 then fact := 1 else fact := n * fact(n - 1)
end;
begin
end.`)
	assert.Equal(t, 1, c.code.Count(pcg.OpCall))
	assertSeq(t, c, pcg.Instr{Op: pcg.OpCall, A: 2, Level: 1}, op(pcg.OpMul), store(4, 1, 16))
}
