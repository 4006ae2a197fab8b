package pcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-compiler/diag"
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

type compilation struct {
	res  *Result
	code *pcg.Code
	rep  *diag.Reporter
	err  error
}

func compileWith(t *testing.T, src string, opts Options, units map[string]string) compilation {
	t.Helper()
	rep := diag.NewReporter(opts.MaxErrors)
	sc := pcs.NewScanner(strings.NewReader(src), "t.pas", rep)
	if units != nil {
		sc.SetResolver(pcs.MapResolver(units))
	}
	code := pcg.NewCode()
	opts.Reporter = rep
	res, err := Compile(sc, code, opts)
	return compilation{res: res, code: code, rep: rep, err: err}
}

func compile(t *testing.T, src string) compilation {
	t.Helper()
	return compileWith(t, src, DefaultOptions(), nil)
}

// mustCompile compiles src and fails the test on any diagnostic error.
func mustCompile(t *testing.T, src string) compilation {
	t.Helper()
	c := compile(t, src)
	require.NoError(t, c.err, c.rep.Summary())
	return c
}

func (c compilation) global(name string) pcb.Ref {
	return c.res.Table.Find(name, c.res.Table.Global())
}

func (c compilation) messages() []string {
	var ms []string
	for _, d := range c.rep.Diagnostics() {
		ms = append(ms, d.Msg)
	}
	return ms
}

func (c compilation) libCount(code pcg.LibCode) int {
	n := 0
	for _, in := range c.code.Instrs {
		if in.Op == pcg.OpLib && in.A == int64(code) {
			n++
		}
	}
	return n
}

// hasSeq reports whether want occurs as a contiguous run of code.
func hasSeq(code []pcg.Instr, want ...pcg.Instr) bool {
	for i := 0; i+len(want) <= len(code); i++ {
		match := true
		for j, w := range want {
			if code[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func assertSeq(t *testing.T, c compilation, want ...pcg.Instr) {
	t.Helper()
	assert.True(t, hasSeq(c.code.Instrs, want...), "sequence %v not found in\n%s", want, c.code.Listing())
}

func push(x int64) pcg.Instr { return pcg.Instr{Op: pcg.OpPush, A: x} }

func op(o pcg.Op) pcg.Instr { return pcg.Instr{Op: o} }

func lib(c pcg.LibCode) pcg.Instr { return pcg.Instr{Op: pcg.OpLib, A: int64(c)} }

func addr(level int, off int64) pcg.Instr {
	return pcg.Instr{Op: pcg.OpAddr, Level: level, A: off}
}

func load(w, level int, off int64) pcg.Instr {
	return pcg.Instr{Op: pcg.OpLoad, Width: w, Level: level, A: off}
}

func store(w, level int, off int64) pcg.Instr {
	return pcg.Instr{Op: pcg.OpStore, Width: w, Level: level, A: off}
}

func TestEmptyProgram(t *testing.T) {
	c := mustCompile(t, "program empty; begin end.")
	assert.Equal(t, "empty", c.res.Name)
	assert.Equal(t, pcg.KindProgram, c.res.Kind)
	assert.Equal(t, []pcg.Instr{
		{Op: pcg.OpLabel, A: 1},
		{Op: pcg.OpEnter, A: 0},
		{Op: pcg.OpLabel, A: 2},
		{Op: pcg.OpRet, A: 0},
	}, c.code.Instrs)
	_, err := c.code.Labels()
	assert.NoError(t, err)
}

func TestMissingPeriod(t *testing.T) {
	c := compile(t, "program p; begin end")
	assert.Error(t, c.err)
	assert.Contains(t, c.messages(), "period missing")
}

func TestGlobalLayout(t *testing.T) {
	c := mustCompile(t, `
program layout;
var
  a: char;
  b: integer;
  s: string;
  r: real;
begin
end.`)
	offsets := map[string]int64{"a": 0, "b": 4, "s": 8, "r": 12}
	for name, off := range offsets {
		r := c.global(name)
		require.NotEqual(t, pcb.Nil, r, name)
		vi := c.res.Table.Var(r)
		assert.Equal(t, off, vi.Offset, name)
		assert.NotZero(t, vi.Flags&pcb.VarGlobal, name)
	}
	assertSeq(t, c,
		pcg.Instr{Op: pcg.OpEnter, A: 20},
		lib(pcg.LibStrMark),
		addr(0, 8), push(255), push(1), push(4), lib(pcg.LibStrAlloc),
	)
	assertSeq(t, c, pcg.Instr{Op: pcg.OpLabel, A: 2}, lib(pcg.LibStrRelease))
}

func TestScopeIsReleasedAfterProcedure(t *testing.T) {
	c := mustCompile(t, `
program scope;
var g: integer;
procedure p;
var l: integer;
begin
  l := 1
end;
begin
  g := 2
end.`)
	assert.NotEqual(t, pcb.Nil, c.global("p"))
	assert.NotEqual(t, pcb.Nil, c.global("g"))
	assert.Equal(t, pcb.Nil, c.global("l"))
	assert.Equal(t, 0, c.res.Table.Level())

	assertSeq(t, c, pcg.Instr{Op: pcg.OpEnter, A: 4}, push(1), store(4, 1, -4))
	assertSeq(t, c, push(2), store(4, 0, 0))

	bare := mustCompile(t, `
program scope;
var g: integer;
procedure p;
begin
end;
begin
end.`)
	assert.Equal(t, bare.res.Table.Len(), c.res.Table.Len())
	assert.Equal(t, bare.res.Table.Mark(), c.res.Table.Mark())

	c = compile(t, `
program scope;
procedure p;
var l: integer;
begin
end;
begin
  l := 1
end.`)
	assert.Contains(t, c.messages(), "l undeclared")
}

func TestMultipleDeclaration(t *testing.T) {
	c := compile(t, `
program dup;
var x: integer;
    X: char;
begin
end.`)
	assert.Equal(t, []string{"multiple declaration of X"}, c.messages())
}

func TestTypedConstantAndInitializedVariable(t *testing.T) {
	c := mustCompile(t, `
program init;
const lim: integer = 5;
var name: string = 'abc';
begin
end.`)
	assert.NotZero(t, c.res.Table.Var(c.global("lim")).Flags&pcb.VarTyped)
	assertSeq(t, c, push(5), store(4, 0, 0))
	assertSeq(t, c,
		addr(0, 4),
		pcg.Instr{Op: pcg.OpPushStr, A: 0, B: 3},
		push(255),
		lib(pcg.LibStrAssign),
	)
	assert.Equal(t, "abc", string(c.code.RoData))
}

func TestErrorCeilingAborts(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxErrors = 3
	c := compileWith(t, `
program noisy;
begin
  a := 1;
  b := 2;
  c := 3;
  d := 4;
  e := 5
end.`, opts, nil)
	require.Error(t, c.err)
	assert.Contains(t, c.err.Error(), "compilation aborted")
	assert.Equal(t, 1, c.rep.Count(diag.Fatal))
}

func TestUndefinedLabelReportedOnce(t *testing.T) {
	c := compile(t, `
program labels;
label 10, 20;
begin
  goto 10;
  goto 20;
  10: ;
end.`)
	require.Error(t, c.err)
	assert.Equal(t, []string{"label 20 declared but not defined"}, c.messages())
	assert.Equal(t, 3, c.rep.Diagnostics()[0].Pos.Line)
}

func TestLabelDefinedTwice(t *testing.T) {
	c := compile(t, `
program labels;
label 1;
begin
  1: ;
  1: ;
end.`)
	assert.Equal(t, []string{"label 1 defined twice"}, c.messages())
}

func TestNonLocalGoto(t *testing.T) {
	c := compile(t, `
program labels;
label 1;
procedure p;
begin
  goto 1
end;
begin
  1: p
end.`)
	assert.Contains(t, c.messages(), "non-local goto not supported")
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"undeclared", "program e; begin x := 1 end.", "x undeclared"},
		{"not a variable", "program e; const k = 1; begin k := 2 end.", "k is not a variable"},
		{"boolean condition", "program e; var i: integer; begin if i then end.", "boolean expression expected"},
		{"bad subrange", "program e; type s = 5..1; begin end.", "lower bound exceeds upper bound"},
		{"function result", "program e; type r = record end; function f: r; begin end; begin end.", "invalid function result type"},
		{"file assignment", "program e; var f, g: text; begin f := g end.", "files cannot be assigned"},
		{"pointer order", "program e; var p, q: ^integer; b: boolean; begin b := p < q end.", "pointers can only be tested for equality"},
		{"procedure as function", "program e; procedure p; begin end; var i: integer; begin i := p end.", "procedure p used as a function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compile(t, tt.src)
			require.Error(t, c.err)
			assert.Contains(t, c.messages(), tt.msg)
		})
	}
}
