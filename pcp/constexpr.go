package pcp

import (
	"math"

	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcs"
)

// The constant expression evaluator follows the expression grammar but
// computes values at compile time. It returns the value and its type.

func (p *Parser) constExpr(want pcb.Ref) (pcb.Value, pcb.Ref) {
	x, xt := p.constSimple(want)
	if !p.sym.IsRelation() {
		return x, xt
	}
	op := p.sym
	p.next()
	if op == pcs.SymIn {
		y, yt := p.constSimple(pcb.Nil)
		if y.Kind != pcb.KindSet || !x.IsOrdinal() {
			p.mark("invalid operands of in")
			return pcb.BoolValue(false), p.tab.Boolean
		}
		i := x.Int - p.tab.Type(yt).Min
		return pcb.BoolValue(i >= 0 && i < pcb.SetBits && y.Set.Test(uint(i))), p.tab.Boolean
	}
	y, _ := p.constSimple(p.operandWant(xt))
	return pcb.BoolValue(p.constCompare(op, x, y)), p.tab.Boolean
}

func (p *Parser) constCompare(op pcs.Sym, x, y pcb.Value) bool {
	var c int
	switch {
	case x.IsNumeric() && y.IsNumeric():
		if x.Kind == pcb.KindReal || y.Kind == pcb.KindReal {
			c = cmp(x.AsReal(), y.AsReal())
		} else {
			c = cmp(x.Int, y.Int)
		}
	case x.Kind == pcb.KindSet && y.Kind == pcb.KindSet:
		switch op {
		case pcs.SymEql:
			return x.Set.Equal(y.Set)
		case pcs.SymNeq:
			return !x.Set.Equal(y.Set)
		case pcs.SymLeq:
			return y.Set.IsSuperSet(x.Set)
		case pcs.SymGeq:
			return x.Set.IsSuperSet(y.Set)
		}
		p.mark("invalid set comparison")
		return false
	case isText(x) && isText(y) && (x.Kind != pcb.KindChar || y.Kind != pcb.KindChar):
		c = cmp(x.AsString(), y.AsString())
	case x.IsOrdinal() && y.IsOrdinal() && x.Kind == y.Kind:
		c = cmp(x.Int, y.Int)
	case x.Kind == pcb.KindPointer && y.Kind == pcb.KindPointer:
	default:
		p.mark("incompatible constants")
		return false
	}
	switch op {
	case pcs.SymEql:
		return c == 0
	case pcs.SymNeq:
		return c != 0
	case pcs.SymLss:
		return c < 0
	case pcs.SymLeq:
		return c <= 0
	case pcs.SymGtr:
		return c > 0
	}
	return c >= 0
}

func cmp[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isText(v pcb.Value) bool {
	return v.Kind == pcb.KindStringConst || v.Kind == pcb.KindChar
}

func (p *Parser) constSimple(want pcb.Ref) (pcb.Value, pcb.Ref) {
	neg := false
	switch p.sym {
	case pcs.SymMinus:
		neg = true
		p.next()
	case pcs.SymPlus:
		p.next()
	}
	x, xt := p.constTerm(want)
	if neg {
		switch x.Kind {
		case pcb.KindInteger:
			x.Int = -x.Int
		case pcb.KindReal:
			x.Real = -x.Real
		default:
			p.mark("numeric constant expected")
		}
	}
	for p.sym.IsAddOp() {
		op := p.sym
		p.next()
		y, yt := p.constTerm(p.rightWant(want, xt))
		x, xt = p.constAdd(op, x, xt, y, yt)
	}
	return x, xt
}

func (p *Parser) constAdd(op pcs.Sym, x pcb.Value, xt pcb.Ref, y pcb.Value, yt pcb.Ref) (pcb.Value, pcb.Ref) {
	switch op {
	case pcs.SymPlus, pcs.SymMinus:
		switch {
		case x.Kind == pcb.KindInteger && y.Kind == pcb.KindInteger:
			if op == pcs.SymPlus {
				return pcb.IntValue(x.Int + y.Int), p.tab.Integer
			}
			return pcb.IntValue(x.Int - y.Int), p.tab.Integer
		case x.IsNumeric() && y.IsNumeric():
			if op == pcs.SymPlus {
				return pcb.RealValue(x.AsReal() + y.AsReal()), p.tab.Real
			}
			return pcb.RealValue(x.AsReal() - y.AsReal()), p.tab.Real
		case x.Kind == pcb.KindSet && y.Kind == pcb.KindSet:
			v := pcb.Value{Kind: pcb.KindSet}
			if op == pcs.SymPlus {
				v.Set = x.Set.Union(y.Set)
			} else {
				v.Set = x.Set.Difference(y.Set)
			}
			return v, p.setResult(xt, yt)
		case op == pcs.SymPlus && isText(x) && isText(y):
			return pcb.StringValue(x.AsString() + y.AsString()), p.tab.String
		}
	case pcs.SymOr, pcs.SymXor:
		if x.Kind == y.Kind && (x.Kind == pcb.KindBoolean || x.Kind == pcb.KindInteger) {
			v := x
			if op == pcs.SymOr {
				v.Int = x.Int | y.Int
			} else {
				v.Int = x.Int ^ y.Int
			}
			return v, xt
		}
	}
	p.mark("invalid constant operands of %s", op)
	return pcb.IntValue(0), p.tab.Integer
}

func (p *Parser) constTerm(want pcb.Ref) (pcb.Value, pcb.Ref) {
	x, xt := p.constFactor(want)
	for p.sym.IsMulOp() {
		op := p.sym
		p.next()
		y, yt := p.constFactor(p.rightWant(want, xt))
		x, xt = p.constMul(op, x, xt, y, yt, want)
	}
	return x, xt
}

func (p *Parser) constMul(op pcs.Sym, x pcb.Value, xt pcb.Ref, y pcb.Value, yt pcb.Ref, want pcb.Ref) (pcb.Value, pcb.Ref) {
	ints := x.Kind == pcb.KindInteger && y.Kind == pcb.KindInteger
	switch op {
	case pcs.SymTimes:
		switch {
		case ints:
			return pcb.IntValue(x.Int * y.Int), p.tab.Integer
		case x.IsNumeric() && y.IsNumeric():
			return pcb.RealValue(x.AsReal() * y.AsReal()), p.tab.Real
		case x.Kind == pcb.KindSet && y.Kind == pcb.KindSet:
			return pcb.Value{Kind: pcb.KindSet, Set: x.Set.Intersection(y.Set)}, p.setResult(xt, yt)
		}
	case pcs.SymSlash:
		if x.IsNumeric() && y.IsNumeric() {
			if y.AsReal() == 0 {
				p.mark("division by zero")
				return pcb.IntValue(0), p.tab.Integer
			}
			if ints && !p.realDivision(want) {
				return pcb.IntValue(x.Int / y.Int), p.tab.Integer
			}
			return pcb.RealValue(x.AsReal() / y.AsReal()), p.tab.Real
		}
	case pcs.SymDiv, pcs.SymMod:
		if ints {
			if y.Int == 0 {
				p.mark("division by zero")
				return pcb.IntValue(0), p.tab.Integer
			}
			if op == pcs.SymDiv {
				return pcb.IntValue(x.Int / y.Int), p.tab.Integer
			}
			return pcb.IntValue(x.Int % y.Int), p.tab.Integer
		}
	case pcs.SymShl, pcs.SymShr:
		if ints && y.Int >= 0 && y.Int < 64 {
			if op == pcs.SymShl {
				return pcb.IntValue(x.Int << y.Int), p.tab.Integer
			}
			return pcb.IntValue(int64(uint32(x.Int) >> y.Int)), p.tab.Integer
		}
	case pcs.SymAnd:
		if x.Kind == y.Kind && (x.Kind == pcb.KindBoolean || x.Kind == pcb.KindInteger) {
			v := x
			v.Int = x.Int & y.Int
			return v, xt
		}
	}
	p.mark("invalid constant operands of %s", op)
	return pcb.IntValue(0), p.tab.Integer
}

func (p *Parser) constFactor(want pcb.Ref) (pcb.Value, pcb.Ref) {
	switch p.sym {
	case pcs.SymInt:
		v := pcb.IntValue(p.tok.Int)
		p.next()
		return v, p.tab.Integer
	case pcs.SymReal:
		v := pcb.RealValue(p.tok.Real)
		p.next()
		return v, p.tab.Real
	case pcs.SymString:
		s := p.tok.Str
		p.next()
		if len(s) == 1 {
			return pcb.CharValue(s[0]), p.tab.Char
		}
		return pcb.StringValue(s), p.tab.String
	case pcs.SymNil:
		p.next()
		return pcb.NilValue(), p.tab.NilType
	case pcs.SymLparen:
		p.next()
		v, t := p.constExpr(want)
		p.check(pcs.SymRparen, ") missing")
		return v, t
	case pcs.SymNot:
		p.next()
		v, t := p.constFactor(want)
		switch v.Kind {
		case pcb.KindBoolean:
			v.Int = 1 - v.Int
		case pcb.KindInteger:
			v.Int = ^v.Int
		default:
			p.mark("boolean constant expected")
		}
		return v, t
	case pcs.SymLbrak:
		return p.constSet(want)
	case pcs.SymIdent:
		return p.constIdent()
	}
	p.mark("constant expected")
	return pcb.IntValue(0), p.tab.Integer
}

func (p *Parser) constIdent() (pcb.Value, pcb.Ref) {
	r := p.lookupIdent()
	if r == pcb.Nil {
		p.mark("%s undeclared", p.tok.Id)
		p.next()
		return pcb.IntValue(0), pcb.Nil
	}
	p.next()
	if ci := p.tab.Const(r); ci != nil {
		return ci.Value, ci.Type
	}
	if p.tab.Kind(r) == pcb.KindType {
		// T(c) retypes an ordinal constant
		p.check(pcs.SymLparen, "( missing")
		v, _ := p.constExpr(pcb.Nil)
		p.check(pcs.SymRparen, ") missing")
		if !v.IsOrdinal() || !p.tab.IsOrdinal(r) {
			p.mark("invalid type cast")
			return pcb.IntValue(0), p.tab.Integer
		}
		return p.ordValue(r, v.Int), r
	}
	if pi := p.tab.Proc(r); pi != nil && pi.Flags&pcb.ProcStandard != 0 {
		return p.constFunc(pi.Code)
	}
	p.mark("constant expected")
	return pcb.IntValue(0), p.tab.Integer
}

// ordValue returns the value of type typ with ordinal n.
func (p *Parser) ordValue(typ pcb.Ref, n int64) pcb.Value {
	switch p.tab.Class(typ) {
	case pcb.ClassChar:
		return pcb.CharValue(byte(n))
	case pcb.ClassBoolean:
		return pcb.BoolValue(n != 0)
	case pcb.ClassScalar:
		return pcb.MemberValue(n)
	}
	return pcb.IntValue(n)
}

// constSet builds a set constant. Elements are rebased to the minimum of
// the expected set type; elements outside the set width are dropped with
// a warning.
func (p *Parser) constSet(want pcb.Ref) (pcb.Value, pcb.Ref) {
	p.next()
	typ, elem, base := p.tab.AnySet, pcb.Nil, int64(0)
	if p.tab.Class(want) == pcb.ClassSet {
		typ = want
		ti := p.tab.Type(p.tab.Host(want))
		elem, base = ti.Parent, ti.Min
	}
	v := pcb.EmptySet()
	clamped := false
	for p.sym != pcs.SymRbrak && p.sym != pcs.SymEot {
		lo, lt := p.constExpr(elem)
		hi := lo
		if p.sym == pcs.SymUpto {
			p.next()
			hi, _ = p.constExpr(lt)
		}
		switch {
		case !lo.IsOrdinal() || !hi.IsOrdinal():
			p.mark("ordinal constant expected")
		case elem != pcb.Nil && !p.tab.Compatible(elem, lt):
			p.mark("incompatible element type")
		default:
			if elem == pcb.Nil {
				elem = lt
			}
			if v.AddRange(lo.Int-base, hi.Int-base) {
				clamped = true
			}
		}
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	if clamped {
		p.warn("set element outside 0..%d; clamped", pcb.SetBits-1)
	}
	p.check(pcs.SymRbrak, "] missing")
	return v, typ
}

// constFunc evaluates a standard function on constant arguments.
func (p *Parser) constFunc(code int) (pcb.Value, pcb.Ref) {
	p.open()
	defer p.close()
	switch code {
	case pcb.StdSizeOf:
		return pcb.IntValue(p.tab.SizeOf(p.typeArg())), p.tab.Integer
	case pcb.StdLow, pcb.StdHigh:
		lo, hi, vt := p.bounds(p.typeArg())
		if code == pcb.StdLow {
			return lo, vt
		}
		return hi, vt
	}
	x, xt := p.constExpr(p.argWant(code, pcb.Nil))
	switch code {
	case pcb.StdOrd:
		if x.IsOrdinal() {
			return pcb.IntValue(x.Int), p.tab.Integer
		}
	case pcb.StdChr:
		if x.Kind == pcb.KindInteger {
			return pcb.CharValue(byte(x.Int)), p.tab.Char
		}
	case pcb.StdSucc, pcb.StdPred:
		if x.IsOrdinal() {
			if code == pcb.StdSucc {
				x.Int++
			} else {
				x.Int--
			}
			return x, xt
		}
	case pcb.StdAbs:
		switch x.Kind {
		case pcb.KindInteger:
			return pcb.IntValue(max(x.Int, -x.Int)), p.tab.Integer
		case pcb.KindReal:
			return pcb.RealValue(math.Abs(x.Real)), p.tab.Real
		}
	case pcb.StdSqr:
		switch x.Kind {
		case pcb.KindInteger:
			return pcb.IntValue(x.Int * x.Int), p.tab.Integer
		case pcb.KindReal:
			return pcb.RealValue(x.Real * x.Real), p.tab.Real
		}
	case pcb.StdOdd:
		if x.Kind == pcb.KindInteger {
			return pcb.BoolValue(x.Int%2 != 0), p.tab.Boolean
		}
	case pcb.StdLength:
		if isText(x) {
			return pcb.IntValue(int64(len(x.AsString()))), p.tab.Integer
		}
	case pcb.StdLo:
		if x.Kind == pcb.KindInteger {
			return pcb.IntValue(x.Int & 0xFF), p.tab.Integer
		}
	case pcb.StdHi:
		if x.Kind == pcb.KindInteger {
			return pcb.IntValue(x.Int >> 8 & 0xFF), p.tab.Integer
		}
	case pcb.StdTrunc, pcb.StdRound:
		if x.IsNumeric() {
			if code == pcb.StdTrunc {
				return pcb.IntValue(int64(math.Trunc(x.AsReal()))), p.tab.Integer
			}
			return pcb.IntValue(int64(math.Round(x.AsReal()))), p.tab.Integer
		}
	}
	p.mark("invalid constant argument")
	return pcb.IntValue(0), p.tab.Integer
}

// constInit parses the initial value of a variable of type typ.
func (p *Parser) constInit(typ pcb.Ref) pcb.Value {
	v, vt := p.constExpr(typ)
	switch p.tab.Class(typ) {
	case pcb.ClassReal:
		if v.IsNumeric() {
			return pcb.RealValue(v.AsReal())
		}
	case pcb.ClassString:
		if isText(v) {
			if int64(len(v.AsString())) > p.capacity(typ) {
				p.mark("string constant too long")
			}
			return pcb.StringValue(v.AsString())
		}
	case pcb.ClassArray:
		if p.tab.IsCharArray(typ) && isText(v) {
			if int64(len(v.AsString())) > p.tab.SizeOf(typ) {
				p.mark("string constant too long")
			}
			return pcb.StringValue(v.AsString())
		}
	case pcb.ClassSet:
		if v.Kind == pcb.KindSet {
			return v
		}
	case pcb.ClassPointer:
		if v.Kind == pcb.KindPointer {
			return v
		}
	default:
		if v.IsOrdinal() && p.tab.Compatible(typ, vt) {
			if lo, hi := p.tab.Bounds(typ); v.Int < lo || v.Int > hi {
				p.mark("constant out of range")
			}
			return v
		}
	}
	p.mark("invalid initial value")
	return v
}
