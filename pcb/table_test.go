package pcb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-compiler/diag"
)

func TestUniverse(t *testing.T) {
	tab := NewTable(0, nil)
	for _, name := range []string{"integer", "Boolean", "CHAR", "real", "string", "text", "longint", "byte", "word", "shortint"} {
		r := tab.Find(name, tab.Global())
		require.NotEqual(t, Nil, r, name)
		assert.Equal(t, KindType, tab.Kind(r), name)
	}
	assert.Equal(t, int64(4), tab.SizeOf(tab.Integer))
	assert.Equal(t, int64(8), tab.SizeOf(tab.Real))
	assert.Equal(t, ClassString, tab.Class(tab.String))

	r := tab.Find("maxint", tab.Global())
	require.NotEqual(t, Nil, r)
	assert.Equal(t, int64(2147483647), tab.Const(r).Value.Int)

	w := tab.Find("writeln", tab.Global())
	require.NotEqual(t, Nil, w)
	assert.Equal(t, KindProcedure, tab.Kind(w))
	assert.Equal(t, StdWriteln, tab.Proc(w).Code)
	assert.Equal(t, KindFunction, tab.Kind(tab.Find("sqrt", tab.Global())))

	// the program level may redeclare predeclared names
	assert.Equal(t, Nil, tab.Find("integer", tab.Floor()))
}

func TestFindShadowsAndIgnoresCase(t *testing.T) {
	tab := NewTable(0, nil)
	outer := tab.AddVar("Count", &VarInfo{Type: tab.Integer})
	assert.Equal(t, outer, tab.Find("count", tab.Global()))

	tab.Enter()
	inner := tab.AddVar("COUNT", &VarInfo{Type: tab.Char})
	assert.Equal(t, inner, tab.Find("count", tab.Global()))
	assert.Equal(t, inner, tab.Find("Count", tab.Floor()))
	assert.Equal(t, KindChar, tab.Kind(inner))
	assert.Equal(t, 1, tab.Sym(inner).Level)
	tab.Leave()
	assert.Equal(t, 0, tab.Level())
}

func TestFloorRestrictsToCurrentLevel(t *testing.T) {
	tab := NewTable(0, nil)
	tab.AddVar("x", &VarInfo{Type: tab.Integer})
	tab.Enter()
	assert.Equal(t, Nil, tab.Find("x", tab.Floor()))
	assert.NotEqual(t, Nil, tab.Find("x", tab.Global()))
	tab.Leave()
}

func TestMarkRelease(t *testing.T) {
	tab := NewTable(0, nil)
	before := tab.Mark()
	tab.Enter()
	tab.AddVar("alpha", &VarInfo{Type: tab.Integer})
	tab.AddType("beta", &TypeInfo{Base: KindRecord})
	tab.Leave()
	tab.Release(before)

	assert.Equal(t, before, tab.Mark())
	assert.Equal(t, Nil, tab.Find("alpha", tab.Global()))
	assert.Equal(t, Nil, tab.Find("beta", tab.Global()))
}

func newRecord(tab *Table, names ...string) Ref {
	rec := tab.AddType("R", &TypeInfo{Base: KindRecord})
	var prev Ref
	for i, n := range names {
		f := tab.AddField(n, &FieldInfo{Record: rec, Type: tab.Integer, Offset: int64(4 * i), Size: 4})
		if prev == Nil {
			tab.Type(rec).Index = f
		} else {
			tab.FieldInfo(prev).Next = f
		}
		prev = f
		tab.Type(rec).Fields++
	}
	return rec
}

func TestFieldLookup(t *testing.T) {
	tab := NewTable(0, nil)
	global := tab.AddVar("a", &VarInfo{Type: tab.Integer})
	rec := newRecord(tab, "a", "b")
	other := newRecord(tab, "c")

	// fields are invisible to the ordinary search
	assert.Equal(t, global, tab.Find("a", tab.Global()))
	assert.Equal(t, Nil, tab.Find("b", tab.Global()))

	f := tab.Lookup("A", tab.Global(), rec)
	require.Equal(t, KindField, tab.Kind(f))
	assert.Equal(t, rec, tab.FieldInfo(f).Record)

	// fields of an unrelated record do not match
	assert.Equal(t, global, tab.Lookup("a", tab.Global(), other))
	assert.Equal(t, Nil, tab.Lookup("b", tab.Global(), other))
	assert.Len(t, tab.Fields(rec), 2)
}

func TestCapacityIsFatal(t *testing.T) {
	tab := NewTable(0, diag.NewReporter(0))
	tab.capacity = tab.Len() + 1
	tab.AddVar("ok", &VarInfo{Type: tab.Integer})
	assert.PanicsWithValue(t, &diag.Abort{Diagnostic: diag.Diagnostic{
		Severity: diag.Fatal,
		Msg:      fmt.Sprintf("symbol table overflow (%d symbols)", tab.capacity),
	}}, func() {
		tab.AddVar("overflow", &VarInfo{Type: tab.Integer})
	})
}
