package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// Standard procedures and functions are compiled inline, to OpIO and
// OpLib pseudo-ops or to plain instructions. Their names have been
// consumed when these are called.

func (p *Parser) open() {
	p.check(pcs.SymLparen, "( missing")
}

func (p *Parser) close() {
	p.check(pcs.SymRparen, ") missing")
}

func (p *Parser) comma() {
	p.check(pcs.SymComma, ", missing")
}

// param parses one expression argument and converts it for want.
func (p *Parser) param(want pcb.Ref) pcb.Ref {
	t := p.expression(want)
	if want != pcb.Nil {
		p.coerce(t, want)
		return want
	}
	return t
}

// address parses a variable argument and pushes its address.
func (p *Parser) address(class pcb.Class) pcb.Ref {
	d, ok := p.designator()
	if !ok {
		p.push(0)
		return pcb.Nil
	}
	if class != pcb.ClassNone && p.tab.Class(d.typ) != class && d.typ != pcb.Nil {
		p.mark("%s variable expected", class)
	}
	p.toStack(&d)
	return d.typ
}

// isFileVar reports whether the current token starts a file variable.
func (p *Parser) isFileVar() bool {
	if p.sym != pcs.SymIdent {
		return false
	}
	r := p.find(p.tok.Id)
	return r != pcb.Nil && p.isVariable(r) && p.tab.Class(p.tab.TypeOf(r)) == pcb.ClassFile
}

func (p *Parser) stdProc(code int) {
	switch code {
	case pcb.StdWrite, pcb.StdWriteln:
		p.write(code == pcb.StdWriteln)
	case pcb.StdRead, pcb.StdReadln:
		p.read(code == pcb.StdReadln)
	case pcb.StdAssign:
		p.open()
		p.address(pcb.ClassFile)
		p.comma()
		p.param(p.tab.String)
		p.close()
		p.io(pcg.IOAssign, 0)
	case pcb.StdReset, pcb.StdRewrite, pcb.StdAppend, pcb.StdClose:
		p.open()
		p.address(pcb.ClassFile)
		p.close()
		p.io(fileOps[code], 0)
	case pcb.StdNew:
		p.open()
		typ := p.address(pcb.ClassPointer)
		p.close()
		if base := p.pointerBase(typ); base != pcb.Nil {
			p.push(p.tab.SizeOf(base))
		} else {
			p.push(0)
		}
		p.lib(pcg.LibNew)
	case pcb.StdDispose:
		p.open()
		p.address(pcb.ClassPointer)
		p.close()
		p.lib(pcg.LibDispose)
	case pcb.StdInc, pcb.StdDec:
		p.incDec(code == pcb.StdDec)
	case pcb.StdInclude, pcb.StdExclude:
		p.open()
		set := p.address(pcb.ClassSet)
		p.comma()
		var elem pcb.Ref
		var lo int64
		if ti := p.tab.Type(set); ti != nil {
			elem, lo = ti.Parent, ti.Min
		}
		p.param(elem)
		if lo != 0 {
			p.push(lo)
			p.op(pcg.OpSub)
		}
		p.close()
		if code == pcb.StdInclude {
			p.lib(pcg.LibInclude)
		} else {
			p.lib(pcg.LibExclude)
		}
	case pcb.StdDelete:
		p.open()
		p.address(pcb.ClassString)
		p.comma()
		p.param(p.tab.Integer)
		p.comma()
		p.param(p.tab.Integer)
		p.close()
		p.lib(pcg.LibDelete)
	case pcb.StdInsert:
		p.open()
		p.param(p.tab.String)
		p.comma()
		typ := p.address(pcb.ClassString)
		p.comma()
		p.param(p.tab.Integer)
		p.close()
		p.push(p.capacity(typ))
		p.lib(pcg.LibInsert)
	case pcb.StdStr:
		p.open()
		x := p.expression(pcb.Nil)
		if c := p.tab.Class(x); c != pcb.ClassInteger && c != pcb.ClassReal && c != pcb.ClassAny {
			p.mark("numeric value expected")
		}
		n := p.formats(x)
		p.comma()
		typ := p.address(pcb.ClassString)
		p.close()
		p.push(p.capacity(typ))
		p.put(pcg.Instr{Op: pcg.OpLib, Width: p.width(x), A: int64(pcg.LibStr), B: int64(n)})
	case pcb.StdVal:
		p.open()
		p.param(p.tab.String)
		p.comma()
		typ := p.address(pcb.ClassNone)
		if c := p.tab.Class(typ); c != pcb.ClassInteger && c != pcb.ClassReal && c != pcb.ClassAny {
			p.mark("numeric variable expected")
		}
		p.comma()
		p.address(pcb.ClassInteger)
		p.close()
		p.put(pcg.Instr{Op: pcg.OpLib, Width: p.width(typ), A: int64(pcg.LibVal)})
	case pcb.StdHalt:
		if p.sym == pcs.SymLparen {
			p.next()
			p.param(p.tab.Integer)
			p.close()
		} else {
			p.push(0)
		}
		p.lib(pcg.LibHalt)
	case pcb.StdExit:
		p.jump(pcg.OpJmp, p.exitLabel)
	default:
		// a function called as a statement
		res := p.stdFunc(code, pcb.Nil)
		p.put(pcg.Instr{Op: pcg.OpPop, Width: p.width(res)})
	}
}

func (p *Parser) pointerBase(typ pcb.Ref) pcb.Ref {
	if p.tab.Class(typ) != pcb.ClassPointer {
		return pcb.Nil
	}
	return p.tab.Type(p.tab.Host(typ)).Parent
}

// incDec compiles inc(x[, n]) and dec(x[, n]).
func (p *Parser) incDec(dec bool) {
	p.open()
	d, ok := p.designator()
	if ok && !p.tab.IsOrdinal(d.typ) {
		p.mark("ordinal variable expected")
		ok = false
	}
	if !ok {
		p.skipTo(pcs.SymRparen, pcs.SymSemicolon, pcs.SymEnd)
		p.close()
		return
	}
	w := p.width(d.typ)
	if d.mode == modeDirect {
		p.loadValue(&d)
	} else {
		p.toStack(&d)
		p.put(pcg.Instr{Op: pcg.OpDup, Width: wordSize})
		p.put(pcg.Instr{Op: pcg.OpLoadInd, Width: w})
	}
	if p.sym == pcs.SymComma {
		p.next()
		p.param(p.tab.Integer)
	} else {
		p.push(1)
	}
	p.close()
	if dec {
		p.op(pcg.OpSub)
	} else {
		p.op(pcg.OpAdd)
	}
	p.store(&d)
}

// formats parses the :width[:precision] suffix of a write argument and
// returns the number of format values pushed.
func (p *Parser) formats(x pcb.Ref) int {
	n := 0
	for p.sym == pcs.SymColon && n < 2 {
		p.next()
		p.param(p.tab.Integer)
		n++
	}
	if n == 2 && p.tab.Class(x) != pcb.ClassReal {
		p.mark("precision applies to real values only")
	}
	return n
}

// selectFile starts a transfer on the file variable given as the first
// argument, or on the standard file.
func (p *Parser) selectFile() bool {
	if p.isFileVar() {
		p.address(pcb.ClassFile)
		p.io(pcg.IOSelect, 0)
		return true
	}
	p.push(0)
	p.io(pcg.IOSelect, 0)
	return false
}

func (p *Parser) write(ln bool) {
	if p.sym != pcs.SymLparen {
		p.push(0)
		p.io(pcg.IOSelect, 0)
	} else {
		p.next()
		more := true
		if p.selectFile() {
			more = p.sym == pcs.SymComma
			if more {
				p.next()
			}
		}
		for more {
			x := p.expression(pcb.Nil)
			var code pcg.IOCode
			switch c := p.tab.Class(x); {
			case c == pcb.ClassInteger:
				code = pcg.IOWriteInt
			case c == pcb.ClassReal:
				code = pcg.IOWriteReal
			case c == pcb.ClassChar:
				code = pcg.IOWriteChar
			case c == pcb.ClassBoolean:
				code = pcg.IOWriteBool
			case c == pcb.ClassString || p.tab.IsCharArray(x):
				p.toStr(x)
				code = pcg.IOWriteStr
			case c == pcb.ClassAny:
				code = pcg.IOWriteInt
			default:
				p.mark("cannot write a value of type %s", c)
			}
			p.io(code, p.formats(x))
			more = p.sym == pcs.SymComma
			if more {
				p.next()
			}
		}
		p.close()
	}
	if ln {
		p.io(pcg.IOWriteln, 0)
	}
	p.io(pcg.IOEnd, 0)
}

func (p *Parser) read(ln bool) {
	if p.sym != pcs.SymLparen {
		p.push(0)
		p.io(pcg.IOSelect, 0)
	} else {
		p.next()
		more := true
		if p.selectFile() {
			more = p.sym == pcs.SymComma
			if more {
				p.next()
			}
		}
		for more {
			typ := p.address(pcb.ClassNone)
			switch c := p.tab.Class(typ); c {
			case pcb.ClassInteger:
				p.put(pcg.Instr{Op: pcg.OpIO, Width: p.width(typ), A: int64(pcg.IOReadInt)})
			case pcb.ClassReal:
				p.io(pcg.IOReadReal, 0)
			case pcb.ClassChar:
				p.io(pcg.IOReadChar, 0)
			case pcb.ClassString:
				p.push(p.capacity(typ))
				p.io(pcg.IOReadStr, 1)
			case pcb.ClassAny:
			default:
				p.mark("cannot read a value of type %s", c)
			}
			more = p.sym == pcs.SymComma
			if more {
				p.next()
			}
		}
		p.close()
	}
	if ln {
		p.io(pcg.IOReadln, 0)
	}
	p.io(pcg.IOEnd, 0)
}

// fileArg pushes the address of the optional file argument of eof and
// eoln, 0 for the standard input.
func (p *Parser) fileArg() {
	if p.sym != pcs.SymLparen {
		p.push(0)
		return
	}
	p.next()
	p.address(pcb.ClassFile)
	p.close()
}

// typeArg parses the type or variable name argument of sizeof, low and
// high and returns its type.
func (p *Parser) typeArg() pcb.Ref {
	if p.sym != pcs.SymIdent {
		p.mark("type or variable expected")
		return pcb.Nil
	}
	r := p.lookupIdent()
	p.next()
	if r == pcb.Nil {
		p.mark("identifier undeclared")
		return pcb.Nil
	}
	return p.tab.TypeOf(r)
}

// bounds returns the smallest and largest value of typ as seen by low and
// high: the first index range of an array, 0 and the capacity of a string.
func (p *Parser) bounds(typ pcb.Ref) (lo, hi pcb.Value, vt pcb.Ref) {
	switch p.tab.Class(typ) {
	case pcb.ClassArray:
		idx := p.tab.Type(p.tab.Host(typ)).Index
		ei := p.tab.Type(idx)
		return p.ordValue(ei.Parent, ei.Min), p.ordValue(ei.Parent, ei.Max), ei.Parent
	case pcb.ClassString:
		return pcb.IntValue(0), pcb.IntValue(p.capacity(typ)), p.tab.Integer
	}
	if !p.tab.IsOrdinal(typ) {
		p.mark("ordinal type expected")
		return pcb.IntValue(0), pcb.IntValue(0), p.tab.Integer
	}
	l, h := p.tab.Bounds(typ)
	return p.ordValue(typ, l), p.ordValue(typ, h), typ
}

// stdFunc compiles a call of a standard function and returns the result
// type.
func (p *Parser) stdFunc(code int, want pcb.Ref) pcb.Ref {
	switch code {
	case pcb.StdEof, pcb.StdEoln:
		p.fileArg()
		if code == pcb.StdEof {
			p.io(pcg.IOEof, 0)
		} else {
			p.io(pcg.IOEoln, 0)
		}
		return p.tab.Boolean
	case pcb.StdParamCount:
		p.lib(pcg.LibParamCount)
		return p.tab.Integer
	case pcb.StdSizeOf:
		p.open()
		typ := p.typeArg()
		p.close()
		p.push(p.tab.SizeOf(typ))
		return p.tab.Integer
	case pcb.StdLow, pcb.StdHigh:
		p.open()
		typ := p.typeArg()
		p.close()
		lo, hi, vt := p.bounds(typ)
		if code == pcb.StdLow {
			p.push(lo.Int)
		} else {
			p.push(hi.Int)
		}
		return vt
	case pcb.StdCopy:
		p.open()
		p.param(p.tab.String)
		p.comma()
		p.param(p.tab.Integer)
		p.comma()
		p.param(p.tab.Integer)
		p.close()
		p.lib(pcg.LibCopy)
		return p.tab.String
	case pcb.StdPos:
		p.open()
		p.param(p.tab.String)
		p.comma()
		p.param(p.tab.String)
		p.close()
		p.lib(pcg.LibPos)
		return p.tab.Integer
	case pcb.StdConcat:
		p.open()
		p.param(p.tab.String)
		for p.sym == pcs.SymComma {
			p.next()
			p.param(p.tab.String)
			p.lib(pcg.LibConcat)
		}
		p.close()
		return p.tab.String
	}

	p.open()
	x := p.expression(p.argWant(code, want))
	p.close()
	c := p.tab.Class(x)
	if c == pcb.ClassAny {
		return pcb.Nil
	}
	switch code {
	case pcb.StdAbs, pcb.StdSqr:
		switch c {
		case pcb.ClassInteger:
			if code == pcb.StdAbs {
				p.op(pcg.OpAbs)
			} else {
				p.op(pcg.OpSqr)
			}
			return p.tab.Integer
		case pcb.ClassReal:
			if code == pcb.StdAbs {
				p.op(pcg.OpRAbs)
			} else {
				p.op(pcg.OpRSqr)
			}
			return p.tab.Real
		}
		p.mark("numeric argument expected")
	case pcb.StdOdd:
		p.intArg(c)
		p.op(pcg.OpOdd)
		return p.tab.Boolean
	case pcb.StdOrd:
		if !p.tab.IsOrdinal(x) {
			p.mark("ordinal argument expected")
		}
		return p.tab.Integer
	case pcb.StdChr:
		p.intArg(c)
		return p.tab.Char
	case pcb.StdSucc, pcb.StdPred:
		if !p.tab.IsOrdinal(x) {
			p.mark("ordinal argument expected")
		}
		p.push(1)
		if code == pcb.StdSucc {
			p.op(pcg.OpAdd)
		} else {
			p.op(pcg.OpSub)
		}
		return x
	case pcb.StdTrunc, pcb.StdRound:
		switch c {
		case pcb.ClassReal:
		case pcb.ClassInteger:
			p.op(pcg.OpFloat)
		default:
			p.mark("numeric argument expected")
		}
		if code == pcb.StdTrunc {
			p.op(pcg.OpTrunc)
		} else {
			p.op(pcg.OpRound)
		}
		return p.tab.Integer
	case pcb.StdLength:
		if !p.stringLike(x) {
			p.mark("string argument expected")
		}
		p.toStr(x)
		p.lib(pcg.LibLength)
		return p.tab.Integer
	case pcb.StdUpcase:
		if c != pcb.ClassChar {
			p.mark("char argument expected")
		}
		p.lib(pcg.LibUpcase)
		return p.tab.Char
	case pcb.StdParamStr:
		p.intArg(c)
		p.lib(pcg.LibParamStr)
		return p.tab.String
	case pcb.StdSqrt, pcb.StdSin, pcb.StdCos, pcb.StdArctan, pcb.StdLn, pcb.StdExp:
		switch c {
		case pcb.ClassInteger:
			p.op(pcg.OpFloat)
		case pcb.ClassReal:
		default:
			p.mark("numeric argument expected")
		}
		p.lib(mathLib[code])
		return p.tab.Real
	case pcb.StdLo, pcb.StdHi:
		p.intArg(c)
		if code == pcb.StdHi {
			p.push(8)
			p.op(pcg.OpShr)
		}
		p.push(0xFF)
		p.op(pcg.OpAnd)
		return p.tab.Integer
	default:
		p.mark("procedure used as a function")
	}
	return pcb.Nil
}

var fileOps = map[int]pcg.IOCode{
	pcb.StdReset: pcg.IOReset, pcb.StdRewrite: pcg.IORewrite,
	pcb.StdAppend: pcg.IOAppend, pcb.StdClose: pcg.IOClose,
}

var mathLib = map[int]pcg.LibCode{
	pcb.StdSqrt: pcg.LibSqrt, pcb.StdSin: pcg.LibSin, pcb.StdCos: pcg.LibCos,
	pcb.StdArctan: pcg.LibArctan, pcb.StdLn: pcg.LibLn, pcb.StdExp: pcg.LibExp,
}

// argWant is the context of the argument of standard function code.
func (p *Parser) argWant(code int, want pcb.Ref) pcb.Ref {
	switch code {
	case pcb.StdAbs, pcb.StdSqr:
		return want
	case pcb.StdTrunc, pcb.StdRound, pcb.StdSqrt, pcb.StdSin, pcb.StdCos, pcb.StdArctan, pcb.StdLn, pcb.StdExp:
		return p.tab.Real
	case pcb.StdOdd, pcb.StdChr, pcb.StdParamStr, pcb.StdLo, pcb.StdHi:
		return p.tab.Integer
	}
	return pcb.Nil
}

func (p *Parser) intArg(c pcb.Class) {
	if c != pcb.ClassInteger {
		p.mark("integer argument expected")
	}
}
