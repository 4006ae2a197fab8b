package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// Expressions leave their value on the stack and return its type; the
// type Nil stands for a value of any type after an error. want is the
// type the context expects, or Nil. It selects between integer and real
// division and fixes the base of set constructors.

func (p *Parser) expression(want pcb.Ref) pcb.Ref {
	x := p.simpleExpression(want)
	if !p.sym.IsRelation() {
		return x
	}
	op := p.sym
	p.next()
	if op == pcs.SymIn {
		y := p.simpleExpression(pcb.Nil)
		if p.tab.Class(y) != pcb.ClassSet {
			p.mark("set expected")
			return p.tab.Boolean
		}
		if !p.tab.IsOrdinal(x) {
			p.mark("ordinal expected")
		} else if elem := p.tab.Type(y).Parent; elem != pcb.Nil && !p.tab.Compatible(elem, x) {
			p.mark("incompatible element type")
		}
		if lo := p.tab.Type(y).Min; lo != 0 {
			p.op(pcg.OpSwap)
			p.push(lo)
			p.op(pcg.OpSub)
			p.op(pcg.OpSwap)
		}
		p.op(pcg.OpSetIn)
		return p.tab.Boolean
	}
	y := p.simpleExpression(p.operandWant(x))
	p.compare(op, x, y)
	return p.tab.Boolean
}

// operandWant is the context of a right operand whose left operand has
// type x: sets share their base.
func (p *Parser) operandWant(x pcb.Ref) pcb.Ref {
	if p.tab.Class(x) == pcb.ClassSet {
		return x
	}
	return pcb.Nil
}

var relOps = map[pcs.Sym]pcg.Op{
	pcs.SymEql: pcg.OpEq, pcs.SymNeq: pcg.OpNe, pcs.SymLss: pcg.OpLt,
	pcs.SymLeq: pcg.OpLe, pcs.SymGtr: pcg.OpGt, pcs.SymGeq: pcg.OpGe,
}

func (p *Parser) compare(op pcs.Sym, x, y pcb.Ref) {
	cx, cy := p.tab.Class(x), p.tab.Class(y)
	dom := pcg.CmpInt
	switch {
	case cx == pcb.ClassAny || cy == pcb.ClassAny:
	case cx == pcb.ClassReal || cy == pcb.ClassReal:
		p.promote(cx, cy)
		dom = pcg.CmpReal
	case p.stringLike(x) && p.stringLike(y) && (cx != pcb.ClassChar || cy != pcb.ClassChar):
		p.stringOperands(x, y)
		dom = pcg.CmpString
	case cx == pcb.ClassSet && cy == pcb.ClassSet:
		if op == pcs.SymLss || op == pcs.SymGtr {
			p.mark("invalid set comparison")
		}
		if !p.tab.Compatible(x, y) {
			p.mark("incompatible types")
		}
		dom = pcg.CmpSet
	case cx == pcb.ClassPointer && cy == pcb.ClassPointer:
		if op != pcs.SymEql && op != pcs.SymNeq {
			p.mark("pointers can only be tested for equality")
		}
		if !p.tab.Compatible(x, y) {
			p.mark("incompatible pointer types")
		}
		dom = pcg.CmpPtr
	case p.tab.IsOrdinal(x) && p.tab.IsOrdinal(y):
		if !p.tab.Compatible(x, y) {
			p.mark("incompatible types")
		}
	default:
		p.mark("incompatible types")
	}
	p.put(pcg.Instr{Op: relOps[op], B: int64(dom)})
}

// promote converts the integer operand of a mixed operation to real.
func (p *Parser) promote(cx, cy pcb.Class) {
	if cx == pcb.ClassInteger {
		p.op(pcg.OpFloat2)
	}
	if cy == pcb.ClassInteger {
		p.op(pcg.OpFloat)
	}
	if (cx != pcb.ClassReal && cx != pcb.ClassInteger) || (cy != pcb.ClassReal && cy != pcb.ClassInteger) {
		p.mark("numeric operands expected")
	}
}

// stringLike reports whether a value of typ can take part in string
// operations.
func (p *Parser) stringLike(typ pcb.Ref) bool {
	switch p.tab.Class(typ) {
	case pcb.ClassString, pcb.ClassChar:
		return true
	}
	return p.tab.IsCharArray(typ)
}

// toStr converts the char or char array on top of the stack to a string.
func (p *Parser) toStr(typ pcb.Ref) {
	switch {
	case p.tab.Class(typ) == pcb.ClassChar:
		p.lib(pcg.LibStrFromChar)
	case p.tab.IsCharArray(typ):
		p.push(p.tab.SizeOf(typ))
		p.lib(pcg.LibStrFromArray)
	}
}

// stringOperands converts both operands on the stack to strings.
func (p *Parser) stringOperands(x, y pcb.Ref) {
	if p.tab.Class(x) != pcb.ClassString {
		p.op(pcg.OpSwap)
		p.toStr(x)
		p.op(pcg.OpSwap)
	}
	if p.tab.Class(y) != pcb.ClassString {
		p.toStr(y)
	}
}

func (p *Parser) simpleExpression(want pcb.Ref) pcb.Ref {
	neg := false
	switch p.sym {
	case pcs.SymMinus:
		neg = true
		p.next()
	case pcs.SymPlus:
		p.next()
	}
	x := p.term(want)
	if neg {
		switch p.tab.Class(x) {
		case pcb.ClassInteger:
			p.op(pcg.OpNeg)
		case pcb.ClassReal:
			p.op(pcg.OpRNeg)
		case pcb.ClassAny:
		default:
			p.mark("numeric operand expected")
		}
	}
	for p.sym.IsAddOp() {
		op := p.sym
		p.next()
		y := p.term(p.rightWant(want, x))
		x = p.addOp(op, x, y)
	}
	return x
}

// rightWant is the context of the right operand of an arithmetic
// operator.
func (p *Parser) rightWant(want, x pcb.Ref) pcb.Ref {
	if p.tab.Class(x) == pcb.ClassSet {
		return x
	}
	return want
}

func (p *Parser) addOp(op pcs.Sym, x, y pcb.Ref) pcb.Ref {
	cx, cy := p.tab.Class(x), p.tab.Class(y)
	if cx == pcb.ClassAny || cy == pcb.ClassAny {
		return pcb.Nil
	}
	switch op {
	case pcs.SymPlus, pcs.SymMinus:
		switch {
		case cx == pcb.ClassInteger && cy == pcb.ClassInteger:
			p.arith(op, pcg.OpAdd, pcg.OpSub)
			return p.tab.Integer
		case cx == pcb.ClassReal || cy == pcb.ClassReal:
			p.promote(cx, cy)
			p.arith(op, pcg.OpRAdd, pcg.OpRSub)
			return p.tab.Real
		case cx == pcb.ClassSet && cy == pcb.ClassSet:
			if !p.tab.Compatible(x, y) {
				p.mark("incompatible set types")
			}
			p.arith(op, pcg.OpSetUnion, pcg.OpSetDiff)
			return p.setResult(x, y)
		case op == pcs.SymPlus && p.stringLike(x) && p.stringLike(y):
			p.stringOperands(x, y)
			p.lib(pcg.LibConcat)
			return p.tab.String
		}
	case pcs.SymOr, pcs.SymXor:
		if (cx == pcb.ClassBoolean && cy == pcb.ClassBoolean) || (cx == pcb.ClassInteger && cy == pcb.ClassInteger) {
			if op == pcs.SymOr {
				p.op(pcg.OpOr)
			} else {
				p.op(pcg.OpXor)
			}
			return x
		}
	}
	p.mark("invalid operands of %s", op)
	return pcb.Nil
}

func (p *Parser) arith(op pcs.Sym, add, sub pcg.Op) {
	if op == pcs.SymPlus || op == pcs.SymTimes {
		p.op(add)
	} else {
		p.op(sub)
	}
}

// setResult prefers a declared set type over the type of a constructor.
func (p *Parser) setResult(x, y pcb.Ref) pcb.Ref {
	if p.tab.Same(x, p.tab.AnySet) {
		return y
	}
	return x
}

func (p *Parser) term(want pcb.Ref) pcb.Ref {
	x := p.factor(want)
	for p.sym.IsMulOp() {
		op := p.sym
		p.next()
		y := p.factor(p.rightWant(want, x))
		x = p.mulOp(op, x, y, want)
	}
	return x
}

// realDivision reports whether / on two integers divides in real
// arithmetic: only when the context expects a real.
func (p *Parser) realDivision(want pcb.Ref) bool {
	return p.tab.Class(want) == pcb.ClassReal
}

var intOps = map[pcs.Sym]pcg.Op{
	pcs.SymDiv: pcg.OpDiv, pcs.SymMod: pcg.OpMod, pcs.SymShl: pcg.OpShl, pcs.SymShr: pcg.OpShr,
}

func (p *Parser) mulOp(op pcs.Sym, x, y, want pcb.Ref) pcb.Ref {
	cx, cy := p.tab.Class(x), p.tab.Class(y)
	if cx == pcb.ClassAny || cy == pcb.ClassAny {
		return pcb.Nil
	}
	ints := cx == pcb.ClassInteger && cy == pcb.ClassInteger
	switch op {
	case pcs.SymTimes:
		switch {
		case ints:
			p.op(pcg.OpMul)
			return p.tab.Integer
		case cx == pcb.ClassReal || cy == pcb.ClassReal:
			p.promote(cx, cy)
			p.op(pcg.OpRMul)
			return p.tab.Real
		case cx == pcb.ClassSet && cy == pcb.ClassSet:
			if !p.tab.Compatible(x, y) {
				p.mark("incompatible set types")
			}
			p.op(pcg.OpSetInter)
			return p.setResult(x, y)
		}
	case pcs.SymSlash:
		switch {
		case ints && !p.realDivision(want):
			p.op(pcg.OpDiv)
			return p.tab.Integer
		case ints:
			p.op(pcg.OpFloat2)
			p.op(pcg.OpFloat)
			p.op(pcg.OpRDiv)
			return p.tab.Real
		case cx == pcb.ClassReal || cy == pcb.ClassReal:
			p.promote(cx, cy)
			p.op(pcg.OpRDiv)
			return p.tab.Real
		}
	case pcs.SymDiv, pcs.SymMod, pcs.SymShl, pcs.SymShr:
		if ints {
			p.op(intOps[op])
			return p.tab.Integer
		}
	case pcs.SymAnd:
		if ints || (cx == pcb.ClassBoolean && cy == pcb.ClassBoolean) {
			p.op(pcg.OpAnd)
			return x
		}
	}
	p.mark("invalid operands of %s", op)
	return pcb.Nil
}

func (p *Parser) factor(want pcb.Ref) pcb.Ref {
	switch p.sym {
	case pcs.SymInt:
		p.push(p.tok.Int)
		p.next()
		return p.tab.Integer
	case pcs.SymReal:
		p.put(pcg.Instr{Op: pcg.OpPushReal, R: p.tok.Real})
		p.next()
		return p.tab.Real
	case pcs.SymString:
		s := p.tok.Str
		p.next()
		if len(s) == 1 {
			p.push(int64(s[0]))
			return p.tab.Char
		}
		p.pushString(s)
		return p.tab.String
	case pcs.SymNil:
		p.next()
		p.push(0)
		return p.tab.NilType
	case pcs.SymLparen:
		p.next()
		x := p.expression(want)
		p.check(pcs.SymRparen, ") missing")
		return x
	case pcs.SymNot:
		p.next()
		x := p.factor(want)
		switch p.tab.Class(x) {
		case pcb.ClassBoolean, pcb.ClassInteger:
			p.op(pcg.OpNot)
		case pcb.ClassAny:
		default:
			p.mark("boolean expected")
		}
		return x
	case pcs.SymLbrak:
		return p.setConstructor(want)
	case pcs.SymAt:
		p.next()
		if d, ok := p.designator(); ok {
			p.toStack(&d)
		} else {
			p.push(0)
		}
		return p.tab.NilType
	case pcs.SymIdent:
		return p.identFactor(want)
	}
	p.mark("factor expected")
	p.push(0)
	return pcb.Nil
}

// setConstructor builds a set at run time from the empty set, one element
// or range at a time. Elements are rebased to the minimum of the set type
// the context expects, or to 0.
func (p *Parser) setConstructor(want pcb.Ref) pcb.Ref {
	p.next()
	typ, elem, base, limit := p.tab.AnySet, pcb.Nil, int64(0), int64(pcb.SetBits-1)
	if p.tab.Class(want) == pcb.ClassSet {
		typ = want
		ti := p.tab.Type(p.tab.Host(want))
		elem, base = ti.Parent, ti.Min
		limit = min(ti.Max, base+pcb.SetBits-1)
	}
	p.pushValue(pcb.EmptySet())
	if p.sym == pcs.SymRbrak {
		p.next()
		return typ
	}
	clamped := false
	for {
		x, c := p.setElement(elem, base, limit)
		clamped = clamped || c
		if elem == pcb.Nil {
			elem = x
		}
		if p.sym == pcs.SymUpto {
			p.next()
			_, c = p.setElement(elem, base, limit)
			clamped = clamped || c
			p.op(pcg.OpSetRange)
		} else {
			p.op(pcg.OpSetSingle)
		}
		p.op(pcg.OpSetUnion)
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	if clamped {
		p.warn("set element outside %d..%d; clamped", base, limit)
	}
	p.check(pcs.SymRbrak, "] missing")
	return typ
}

// setElement compiles one bound of a set constructor, relative to base.
// A constant bound outside base..limit is clamped and reported.
func (p *Parser) setElement(elem pcb.Ref, base, limit int64) (pcb.Ref, bool) {
	if p.constElement() {
		v, x := p.constExpr(elem)
		if !v.IsOrdinal() {
			p.mark("ordinal expected")
			p.push(0)
			return pcb.Nil, false
		}
		if elem != pcb.Nil && !p.tab.Compatible(elem, x) {
			p.mark("incompatible element type")
		}
		n := min(max(v.Int, base), limit)
		p.push(n - base)
		return x, n != v.Int
	}
	x := p.expression(elem)
	if !p.tab.IsOrdinal(x) && x != pcb.Nil {
		p.mark("ordinal expected")
	} else if elem != pcb.Nil && !p.tab.Compatible(elem, x) {
		p.mark("incompatible element type")
	}
	if base != 0 {
		p.push(base)
		p.op(pcg.OpSub)
	}
	return x, false
}

// constElement reports whether the next set element is a single, possibly
// negated, literal or constant name.
func (p *Parser) constElement() bool {
	tok, n := p.tok, 1
	if tok.Sym == pcs.SymMinus {
		tok, n = p.peek(1), 2
	}
	switch tok.Sym {
	case pcs.SymInt:
	case pcs.SymString:
		if len(tok.Str) != 1 {
			return false
		}
	case pcs.SymIdent:
		r := p.find(tok.Id)
		if r == pcb.Nil || p.tab.Const(r) == nil {
			return false
		}
	default:
		return false
	}
	switch p.peek(n).Sym {
	case pcs.SymComma, pcs.SymUpto, pcs.SymRbrak:
		return true
	}
	return false
}

// coerce converts the value of type got on the stack for a destination of
// type want and reports incompatible types.
func (p *Parser) coerce(got, want pcb.Ref) {
	cg, cw := p.tab.Class(got), p.tab.Class(want)
	switch {
	case cg == pcb.ClassAny || cw == pcb.ClassAny:
	case cw == pcb.ClassReal && cg == pcb.ClassInteger:
		p.op(pcg.OpFloat)
	case cw == pcb.ClassString && p.stringLike(got):
		p.toStr(got)
	case cw == pcb.ClassSet && cg == pcb.ClassSet:
		if !p.tab.Compatible(want, got) {
			p.mark("incompatible set types")
		}
	case !p.tab.Compatible(want, got):
		p.mark("incompatible types")
	}
}

func (p *Parser) identFactor(want pcb.Ref) pcb.Ref {
	r := p.lookupIdent()
	if r == pcb.Nil {
		p.mark("%s undeclared", p.tok.Id)
		p.next()
		p.push(0)
		return pcb.Nil
	}
	if p.tab.Kind(r) == pcb.KindType {
		p.next()
		return p.typeCast(r)
	}
	if pi := p.tab.Proc(r); pi != nil {
		p.next()
		if pi.Flags&pcb.ProcStandard != 0 {
			return p.stdFunc(pi.Code, want)
		}
		if pi.Result == pcb.Nil {
			p.mark("procedure %s used as a function", p.tab.Name(r))
		}
		return p.call(r)
	}
	if ci := p.tab.Const(r); ci != nil {
		p.next()
		p.pushValue(ci.Value)
		return ci.Type
	}
	if vi := p.tab.Var(r); vi != nil && vi.Flags&pcb.VarResult != 0 {
		// the function name inside its body calls it again
		p.next()
		return p.call(vi.Owner)
	}
	if p.isVariable(r) {
		p.next()
		d := p.desigOf(r)
		p.selectors(&d)
		return p.loadItem(&d)
	}
	p.mark("%s cannot be used in an expression", p.tok.Id)
	p.next()
	p.push(0)
	return pcb.Nil
}

// typeCast retypes an ordinal or pointer value: T(x).
func (p *Parser) typeCast(typ pcb.Ref) pcb.Ref {
	p.check(pcs.SymLparen, "( missing")
	x := p.expression(pcb.Nil)
	p.check(pcs.SymRparen, ") missing")
	ordinals := p.tab.IsOrdinal(typ) && p.tab.IsOrdinal(x)
	pointers := p.tab.Class(typ) == pcb.ClassPointer && p.tab.Class(x) == pcb.ClassPointer
	if !ordinals && !pointers && x != pcb.Nil {
		p.mark("invalid type cast")
	}
	return typ
}
