package pcs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type Sym int

// lexical symbols; the operator groups are contiguous
const (
	symNull Sym = iota

	// multiplicative operators
	SymTimes
	SymSlash
	SymDiv
	SymMod
	SymAnd
	SymShl
	SymShr

	// additive operators
	SymPlus
	SymMinus
	SymOr
	SymXor

	// relations
	SymEql
	SymNeq
	SymLss
	SymLeq
	SymGtr
	SymGeq
	SymIn

	SymArrow
	SymPeriod
	SymAt
	SymInt
	SymReal
	SymString
	SymNil
	SymNot
	SymLparen
	SymLbrak
	SymIdent

	// statement starters
	SymIf
	SymWhile
	SymRepeat
	SymCase
	SymFor
	SymWith
	SymGoto
	SymBegin

	SymComma
	SymColon
	SymBecomes
	SymUpto
	SymRparen
	SymRbrak
	SymThen
	SymOf
	SymDo
	SymTo
	SymDownto
	SymSemicolon
	SymEnd
	SymElse
	SymOtherwise
	SymUntil

	// declarations
	SymArray
	SymRecord
	SymSet
	SymFile
	SymPacked
	SymLabel
	SymConst
	SymType
	SymVar
	SymProcedure
	SymFunction
	SymForward
	SymExternal
	SymProgram
	SymUnit
	SymUses
	SymInterface
	SymImplementation
	SymEot
)

var symNames = [...]string{
	symNull: "?", SymTimes: "*", SymSlash: "/", SymDiv: "div", SymMod: "mod",
	SymAnd: "and", SymShl: "shl", SymShr: "shr", SymPlus: "+", SymMinus: "-",
	SymOr: "or", SymXor: "xor", SymEql: "=", SymNeq: "<>", SymLss: "<",
	SymLeq: "<=", SymGtr: ">", SymGeq: ">=", SymIn: "in", SymArrow: "^",
	SymPeriod: ".", SymAt: "@", SymInt: "integer literal", SymReal: "real literal",
	SymString: "string literal", SymNil: "nil", SymNot: "not", SymLparen: "(",
	SymLbrak: "[", SymIdent: "identifier", SymIf: "if", SymWhile: "while",
	SymRepeat: "repeat", SymCase: "case", SymFor: "for", SymWith: "with",
	SymGoto: "goto", SymBegin: "begin", SymComma: ",", SymColon: ":",
	SymBecomes: ":=", SymUpto: "..", SymRparen: ")", SymRbrak: "]",
	SymThen: "then", SymOf: "of", SymDo: "do", SymTo: "to", SymDownto: "downto",
	SymSemicolon: ";", SymEnd: "end", SymElse: "else", SymOtherwise: "otherwise",
	SymUntil: "until", SymArray: "array", SymRecord: "record", SymSet: "set",
	SymFile: "file", SymPacked: "packed", SymLabel: "label", SymConst: "const",
	SymType: "type", SymVar: "var", SymProcedure: "procedure",
	SymFunction: "function", SymForward: "forward", SymExternal: "external",
	SymProgram: "program", SymUnit: "unit", SymUses: "uses",
	SymInterface: "interface", SymImplementation: "implementation",
	SymEot: "end of text",
}

func (s Sym) String() string {
	if s >= 0 && int(s) < len(symNames) {
		return symNames[s]
	}
	return fmt.Sprintf("sym(%d)", int(s))
}

// IsMulOp reports whether s is a multiplicative operator.
func (s Sym) IsMulOp() bool {
	return s >= SymTimes && s <= SymShr
}

// IsAddOp reports whether s is an additive operator.
func (s Sym) IsAddOp() bool {
	return s >= SymPlus && s <= SymXor
}

// IsRelation reports whether s is a relational operator.
func (s Sym) IsRelation() bool {
	return s >= SymEql && s <= SymIn
}

var keyTab = map[string]Sym{
	"and":            SymAnd,
	"array":          SymArray,
	"begin":          SymBegin,
	"case":           SymCase,
	"const":          SymConst,
	"div":            SymDiv,
	"do":             SymDo,
	"downto":         SymDownto,
	"else":           SymElse,
	"end":            SymEnd,
	"external":       SymExternal,
	"file":           SymFile,
	"for":            SymFor,
	"forward":        SymForward,
	"function":       SymFunction,
	"goto":           SymGoto,
	"if":             SymIf,
	"implementation": SymImplementation,
	"in":             SymIn,
	"interface":      SymInterface,
	"label":          SymLabel,
	"mod":            SymMod,
	"nil":            SymNil,
	"not":            SymNot,
	"of":             SymOf,
	"or":             SymOr,
	"otherwise":      SymOtherwise,
	"packed":         SymPacked,
	"procedure":      SymProcedure,
	"program":        SymProgram,
	"record":         SymRecord,
	"repeat":         SymRepeat,
	"set":            SymSet,
	"shl":            SymShl,
	"shr":            SymShr,
	"then":           SymThen,
	"to":             SymTo,
	"type":           SymType,
	"unit":           SymUnit,
	"until":          SymUntil,
	"uses":           SymUses,
	"var":            SymVar,
	"while":          SymWhile,
	"with":           SymWith,
	"xor":            SymXor,
}

// Resolver locates the source text of a unit by name and returns it along
// with the file name used in diagnostics.
type Resolver func(name string) (io.Reader, string, error)

func errNoResolver(name string) error {
	return errors.Errorf("cannot open unit %s: no unit search path", name)
}

// DirResolver searches the given directories for name.pas (as written, then
// lower case).
func DirResolver(dirs ...string) Resolver {
	return func(name string) (io.Reader, string, error) {
		candidates := []string{name + ".pas", strings.ToLower(name) + ".pas"}
		for _, dir := range dirs {
			for _, c := range candidates {
				path := filepath.Join(dir, c)
				data, err := os.ReadFile(path)
				if err == nil {
					return bytes.NewReader(data), path, nil
				}
				if !os.IsNotExist(err) {
					return nil, "", errors.Wrapf(err, "cannot read unit %s", name)
				}
			}
		}
		return nil, "", errors.Errorf("unit %s not found in %s", name, strings.Join(dirs, string(filepath.ListSeparator)))
	}
}

// MapResolver serves unit sources from memory, keyed by lower-case name.
func MapResolver(units map[string]string) Resolver {
	return func(name string) (io.Reader, string, error) {
		src, ok := units[strings.ToLower(name)]
		if !ok {
			return nil, "", errors.Errorf("unit %s not found", name)
		}
		return strings.NewReader(src), strings.ToLower(name) + ".pas", nil
	}
}
