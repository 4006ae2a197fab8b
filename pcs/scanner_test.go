package pcs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-compiler/diag"
)

func scan(t *testing.T, src string) ([]Token, *diag.Reporter) {
	t.Helper()
	rep := diag.NewReporter(0)
	s := NewScanner(strings.NewReader(src), "t.pas", rep)
	var toks []Token
	for {
		tok := s.Next()
		if tok.Sym == SymEot {
			return toks, rep
		}
		toks = append(toks, tok)
		require.Less(t, len(toks), 1000, "scanner does not terminate")
	}
}

func syms(toks []Token) []Sym {
	ss := make([]Sym, len(toks))
	for i, t := range toks {
		ss[i] = t.Sym
	}
	return ss
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	toks, rep := scan(t, "BEGIN End wHiLe Counter")
	assert.Zero(t, rep.ErrorCount())
	assert.Equal(t, []Sym{SymBegin, SymEnd, SymWhile, SymIdent}, syms(toks))
	assert.Equal(t, "Counter", toks[3].Id)
}

func TestOperators(t *testing.T) {
	toks, _ := scan(t, "a := b^ <> c <= d >= e .. f; @g")
	assert.Equal(t, []Sym{
		SymIdent, SymBecomes, SymIdent, SymArrow, SymNeq, SymIdent, SymLeq,
		SymIdent, SymGeq, SymIdent, SymUpto, SymIdent, SymSemicolon, SymAt, SymIdent,
	}, syms(toks))
}

func TestIntegerRange(t *testing.T) {
	toks, rep := scan(t, "1..5")
	assert.Zero(t, rep.ErrorCount())
	require.Equal(t, []Sym{SymInt, SymUpto, SymInt}, syms(toks))
	assert.Equal(t, int64(1), toks[0].Int)
	assert.Equal(t, int64(5), toks[2].Int)
}

func TestNumbers(t *testing.T) {
	toks, rep := scan(t, "42 $FF 3.25 1e3 2.5E-1")
	assert.Zero(t, rep.ErrorCount())
	require.Equal(t, []Sym{SymInt, SymInt, SymReal, SymReal, SymReal}, syms(toks))
	assert.Equal(t, int64(42), toks[0].Int)
	assert.Equal(t, int64(255), toks[1].Int)
	assert.InDelta(t, 3.25, toks[2].Real, 1e-12)
	assert.InDelta(t, 1000.0, toks[3].Real, 1e-9)
	assert.InDelta(t, 0.25, toks[4].Real, 1e-12)
}

func TestIntegerOverflow(t *testing.T) {
	_, rep := scan(t, "9999999999999999999")
	assert.Equal(t, 1, rep.ErrorCount())
}

func TestStrings(t *testing.T) {
	toks, rep := scan(t, `'it''s' #13#10 'a'#65'b' ''`)
	assert.Zero(t, rep.ErrorCount())
	require.Len(t, toks, 4)
	assert.Equal(t, "it's", toks[0].Str)
	assert.Equal(t, "\r\n", toks[1].Str)
	assert.Equal(t, "aAb", toks[2].Str)
	assert.Equal(t, "", toks[3].Str)
}

func TestUnterminatedString(t *testing.T) {
	toks, rep := scan(t, "'abc\nx")
	assert.Equal(t, 1, rep.ErrorCount())
	assert.Equal(t, []Sym{SymString, SymIdent}, syms(toks))
}

func TestComments(t *testing.T) {
	toks, rep := scan(t, "a { brace } b (* paren ** *) c // line\n d {$R+} e")
	assert.Zero(t, rep.ErrorCount())
	require.Len(t, toks, 5)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, id, toks[i].Id)
	}

	_, rep = scan(t, "a { open")
	assert.Equal(t, 1, rep.ErrorCount())
}

func TestPositions(t *testing.T) {
	toks, _ := scan(t, "program p;\n  x := 1")
	require.Len(t, toks, 6)
	assert.Equal(t, diag.Pos{File: "t.pas", Line: 1, Col: 1}, toks[0].Pos)
	assert.Equal(t, diag.Pos{File: "t.pas", Line: 2, Col: 3}, toks[3].Pos)
	assert.Equal(t, 5, toks[4].Pos.Col)
	assert.Equal(t, 8, toks[5].Pos.Col)
}

func TestEndOfTextRepeats(t *testing.T) {
	s := NewScanner(strings.NewReader("x"), "t.pas", nil)
	assert.Equal(t, SymIdent, s.Next().Sym)
	assert.Equal(t, SymEot, s.Next().Sym)
	assert.Equal(t, SymEot, s.Next().Sym)
}

func TestOpenUnit(t *testing.T) {
	rep := diag.NewReporter(0)
	s := NewScanner(strings.NewReader(""), "main.pas", rep)
	_, err := s.OpenUnit("Util")
	assert.Error(t, err)

	s.SetResolver(MapResolver(map[string]string{"util": "unit util;"}))
	u, err := s.OpenUnit("Util")
	require.NoError(t, err)
	tok := u.Next()
	assert.Equal(t, SymUnit, tok.Sym)
	assert.Equal(t, "util.pas", tok.Pos.File)

	_, err = s.OpenUnit("missing")
	assert.EqualError(t, err, "unit missing not found")
}
