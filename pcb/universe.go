package pcb

import "math"

// WordSize is the size of integers, pointers and string and file handles.
const WordSize = 4

// Built-in procedure and function codes (ProcInfo.Code).
const (
	StdWrite = 1 + iota
	StdWriteln
	StdRead
	StdReadln
	StdAssign
	StdReset
	StdRewrite
	StdAppend
	StdClose
	StdEof
	StdEoln
	StdLength
	StdCopy
	StdPos
	StdConcat
	StdDelete
	StdInsert
	StdUpcase
	StdStr
	StdVal
	StdInclude
	StdExclude
	StdNew
	StdDispose
	StdHalt
	StdExit
	StdParamCount
	StdParamStr
	StdSqrt
	StdSin
	StdCos
	StdArctan
	StdLn
	StdExp
	StdAbs
	StdSqr
	StdOdd
	StdOrd
	StdChr
	StdSucc
	StdPred
	StdTrunc
	StdRound
	StdInc
	StdDec
	StdSizeOf
	StdLo
	StdHi
	StdLow
	StdHigh
)

// Universe holds the predeclared types.
type Universe struct {
	Integer  Ref
	LongInt  Ref
	ShortInt Ref
	Byte     Ref
	Word     Ref
	Boolean  Ref
	Char     Ref
	Real     Ref
	String   Ref
	Text     Ref
	AnyFile  Ref // untyped file
	NilType  Ref // type of nil, compatible with every pointer
	AnySet   Ref // type of [], compatible with every set
}

func (t *Table) newType(name string, base Kind, size, lo, hi int64) Ref {
	return t.AddType(name, &TypeInfo{Base: base, Size: size, Min: lo, Max: hi})
}

func (t *Table) enterProc(name string, code int, result Ref) {
	t.AddProc(name, &ProcInfo{Flags: ProcStandard, Code: code, Result: result})
}

func (t *Table) enterUniverse() {
	u := &t.Universe
	u.Integer = t.newType("integer", KindInteger, 4, math.MinInt32, math.MaxInt32)
	u.LongInt = t.newType("longint", KindInteger, 4, math.MinInt32, math.MaxInt32)
	u.ShortInt = t.newType("shortint", KindInteger, 1, math.MinInt8, math.MaxInt8)
	u.Byte = t.newType("byte", KindInteger, 1, 0, math.MaxUint8)
	u.Word = t.newType("word", KindInteger, 2, 0, math.MaxUint16)
	t.Type(u.Byte).Flags |= TypeUnsigned
	t.Type(u.Word).Flags |= TypeUnsigned
	u.Boolean = t.newType("boolean", KindBoolean, 1, 0, 1)
	u.Char = t.newType("char", KindChar, 1, 0, 255)
	u.Real = t.newType("real", KindReal, 8, 0, 0)
	u.String = t.newType("string", KindString, WordSize, 0, 255)
	u.Text = t.newType("text", KindText, WordSize, 0, 0)
	t.Type(u.Text).Parent = u.Char
	u.AnyFile = t.newType("", KindFile, WordSize, 0, 0)
	u.NilType = t.newType("", KindPointer, WordSize, 0, 0)
	u.AnySet = t.AddType("", &TypeInfo{Base: KindSet, Size: SetSize, Min: 0, Max: SetBits - 1})

	t.AddConst("false", BoolValue(false), u.Boolean)
	t.AddConst("true", BoolValue(true), u.Boolean)
	t.AddConst("maxint", IntValue(math.MaxInt32), u.Integer)
	t.AddConst("nil", NilValue(), u.NilType)

	// procedures
	t.enterProc("write", StdWrite, Nil)
	t.enterProc("writeln", StdWriteln, Nil)
	t.enterProc("read", StdRead, Nil)
	t.enterProc("readln", StdReadln, Nil)
	t.enterProc("assign", StdAssign, Nil)
	t.enterProc("reset", StdReset, Nil)
	t.enterProc("rewrite", StdRewrite, Nil)
	t.enterProc("append", StdAppend, Nil)
	t.enterProc("close", StdClose, Nil)
	t.enterProc("delete", StdDelete, Nil)
	t.enterProc("insert", StdInsert, Nil)
	t.enterProc("str", StdStr, Nil)
	t.enterProc("val", StdVal, Nil)
	t.enterProc("include", StdInclude, Nil)
	t.enterProc("exclude", StdExclude, Nil)
	t.enterProc("new", StdNew, Nil)
	t.enterProc("dispose", StdDispose, Nil)
	t.enterProc("halt", StdHalt, Nil)
	t.enterProc("exit", StdExit, Nil)
	t.enterProc("inc", StdInc, Nil)
	t.enterProc("dec", StdDec, Nil)

	// functions; the result of abs, sqr, succ, pred, low and high follows
	// the argument
	t.enterProc("eof", StdEof, u.Boolean)
	t.enterProc("eoln", StdEoln, u.Boolean)
	t.enterProc("length", StdLength, u.Integer)
	t.enterProc("copy", StdCopy, u.String)
	t.enterProc("pos", StdPos, u.Integer)
	t.enterProc("concat", StdConcat, u.String)
	t.enterProc("upcase", StdUpcase, u.Char)
	t.enterProc("paramcount", StdParamCount, u.Integer)
	t.enterProc("paramstr", StdParamStr, u.String)
	t.enterProc("sqrt", StdSqrt, u.Real)
	t.enterProc("sin", StdSin, u.Real)
	t.enterProc("cos", StdCos, u.Real)
	t.enterProc("arctan", StdArctan, u.Real)
	t.enterProc("ln", StdLn, u.Real)
	t.enterProc("exp", StdExp, u.Real)
	t.enterProc("abs", StdAbs, u.Integer)
	t.enterProc("sqr", StdSqr, u.Integer)
	t.enterProc("odd", StdOdd, u.Boolean)
	t.enterProc("ord", StdOrd, u.Integer)
	t.enterProc("chr", StdChr, u.Char)
	t.enterProc("succ", StdSucc, u.Integer)
	t.enterProc("pred", StdPred, u.Integer)
	t.enterProc("trunc", StdTrunc, u.Integer)
	t.enterProc("round", StdRound, u.Integer)
	t.enterProc("sizeof", StdSizeOf, u.Integer)
	t.enterProc("lo", StdLo, u.Integer)
	t.enterProc("hi", StdHi, u.Integer)
	t.enterProc("low", StdLow, u.Integer)
	t.enterProc("high", StdHigh, u.Integer)
}
