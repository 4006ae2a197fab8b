package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

func (p *Parser) statSequence() {
	for {
		p.statement()
		if p.sym == pcs.SymSemicolon {
			p.next()
			continue
		}
		if p.startsStatement() {
			p.mark("; missing")
			continue
		}
		return
	}
}

func (p *Parser) startsStatement() bool {
	return p.sym == pcs.SymIdent || p.sym == pcs.SymInt ||
		(p.sym >= pcs.SymIf && p.sym <= pcs.SymBegin)
}

func (p *Parser) statement() {
	if p.sym == pcs.SymInt {
		p.labelledStatement()
	}
	switch p.sym {
	case pcs.SymIdent:
		p.identStatement()
	case pcs.SymBegin:
		p.next()
		p.statSequence()
		p.check(pcs.SymEnd, "end missing")
	case pcs.SymIf:
		p.ifStatement()
	case pcs.SymWhile:
		p.whileStatement()
	case pcs.SymRepeat:
		p.repeatStatement()
	case pcs.SymFor:
		p.forStatement()
	case pcs.SymCase:
		p.caseStatement()
	case pcs.SymWith:
		p.withStatement()
	case pcs.SymGoto:
		p.gotoStatement()
	}
}

// label finds the label with the number at the current token. Only labels
// of the current block can be reached.
func (p *Parser) label() *pcb.LabelInfo {
	name := labelName(p.tok.Int)
	r := p.tab.Find(name, p.tab.Floor())
	if r == pcb.Nil || p.tab.Kind(r) != pcb.KindLabel {
		if r = p.tab.Find(name, p.tab.Global()); r != pcb.Nil && p.tab.Kind(r) == pcb.KindLabel {
			p.mark("non-local goto not supported")
		} else {
			p.mark("label %s undeclared", name)
		}
		return nil
	}
	return p.tab.Label(r)
}

func (p *Parser) labelledStatement() {
	li := p.label()
	if li != nil {
		if li.Defined {
			p.mark("label %d defined twice", li.Number)
		} else {
			li.Defined = true
			p.place(li.Target)
		}
	}
	p.next()
	p.check(pcs.SymColon, ": missing")
}

func (p *Parser) gotoStatement() {
	p.next()
	if p.sym != pcs.SymInt {
		p.mark("label expected")
		return
	}
	if li := p.label(); li != nil {
		li.Referenced = true
		p.jump(pcg.OpJmp, li.Target)
	}
	p.next()
}

// identStatement compiles an assignment or a procedure call.
func (p *Parser) identStatement() {
	r := p.lookupIdent()
	if r == pcb.Nil {
		p.mark("%s undeclared", p.tok.Id)
		p.next()
		p.skipTo(pcs.SymSemicolon, pcs.SymEnd, pcs.SymElse, pcs.SymUntil)
		return
	}
	if pi := p.tab.Proc(r); pi != nil {
		p.next()
		switch {
		case pi.Flags&pcb.ProcStandard != 0:
			p.stdProc(pi.Code)
		case pi.Result != pcb.Nil:
			// function called for its side effects
			res := p.call(r)
			p.put(pcg.Instr{Op: pcg.OpPop, Width: p.width(res)})
		default:
			p.call(r)
		}
		return
	}
	if !p.isVariable(r) {
		p.mark("%s is not a variable", p.tok.Id)
		p.next()
		p.skipTo(pcs.SymSemicolon, pcs.SymEnd, pcs.SymElse, pcs.SymUntil)
		return
	}
	p.next()
	d := p.desigOf(r)
	p.selectors(&d)
	p.assignment(d)
}

func (p *Parser) condition() {
	if t := p.expression(p.tab.Boolean); p.tab.Class(t) != pcb.ClassBoolean && t != pcb.Nil {
		p.mark("boolean expression expected")
	}
}

func (p *Parser) ifStatement() {
	p.next()
	p.condition()
	p.check(pcs.SymThen, "then missing")
	els := p.newLabel()
	p.jump(pcg.OpJz, els)
	p.statement()
	if p.sym == pcs.SymElse {
		p.next()
		end := p.newLabel()
		p.jump(pcg.OpJmp, end)
		p.place(els)
		p.statement()
		p.place(end)
		return
	}
	p.place(els)
}

func (p *Parser) whileStatement() {
	p.next()
	top, exit := p.newLabel(), p.newLabel()
	p.place(top)
	p.condition()
	p.jump(pcg.OpJz, exit)
	p.check(pcs.SymDo, "do missing")
	p.statement()
	p.jump(pcg.OpJmp, top)
	p.place(exit)
}

func (p *Parser) repeatStatement() {
	p.next()
	top := p.newLabel()
	p.place(top)
	p.statSequence()
	p.check(pcs.SymUntil, "until missing")
	p.condition()
	p.jump(pcg.OpJz, top)
}

// forStatement keeps the limit on the stack while the loop runs.
func (p *Parser) forStatement() {
	p.next()
	d, ok := p.designator()
	if ok && (d.mode != modeDirect || d.disp != 0 || !p.tab.IsOrdinal(d.typ) || p.tab.FieldInfo(d.sym) != nil) {
		p.mark("control variable must be a simple ordinal variable")
		ok = false
	}
	if !ok {
		// the body is still compiled for its diagnostics
		p.skipTo(pcs.SymDo, pcs.SymSemicolon, pcs.SymEnd)
		if p.sym == pcs.SymDo {
			p.next()
			p.statement()
		}
		return
	}
	p.check(pcs.SymBecomes, ":= missing")
	p.coerce(p.expression(d.typ), d.typ)
	p.store(&d)
	down := false
	switch p.sym {
	case pcs.SymTo:
	case pcs.SymDownto:
		down = true
	default:
		p.mark("to or downto expected")
	}
	p.next()
	p.coerce(p.expression(d.typ), d.typ)
	p.check(pcs.SymDo, "do missing")
	w := p.width(d.typ)
	top, exit := p.newLabel(), p.newLabel()
	p.place(top)
	p.put(pcg.Instr{Op: pcg.OpDup, Width: w})
	p.loadValue(&d)
	if down {
		p.put(pcg.Instr{Op: pcg.OpLe, B: pcg.CmpInt})
	} else {
		p.put(pcg.Instr{Op: pcg.OpGe, B: pcg.CmpInt})
	}
	p.jump(pcg.OpJz, exit)
	p.statement()
	p.loadValue(&d)
	p.push(1)
	if down {
		p.op(pcg.OpSub)
	} else {
		p.op(pcg.OpAdd)
	}
	p.store(&d)
	p.jump(pcg.OpJmp, top)
	p.place(exit)
	p.put(pcg.Instr{Op: pcg.OpPop, Width: w})
}

type caseRange struct{ lo, hi int64 }

// caseStatement keeps the selector on the stack while the labels are
// tested; each arm drops it before running.
func (p *Parser) caseStatement() {
	p.next()
	sel := p.expression(pcb.Nil)
	if !p.tab.IsOrdinal(sel) && sel != pcb.Nil {
		p.mark("ordinal selector expected")
	}
	p.check(pcs.SymOf, "of missing")
	w := p.width(sel)
	end := p.newLabel()
	var seen []caseRange
	for p.sym != pcs.SymEnd && p.sym != pcs.SymElse && p.sym != pcs.SymOtherwise && p.sym != pcs.SymEot {
		arm, next := p.newLabel(), p.newLabel()
		for {
			seen = p.caseLabel(sel, arm, seen)
			if p.sym != pcs.SymComma {
				break
			}
			p.next()
		}
		p.jump(pcg.OpJmp, next)
		p.check(pcs.SymColon, ": missing")
		p.place(arm)
		p.put(pcg.Instr{Op: pcg.OpPop, Width: w})
		p.statement()
		p.jump(pcg.OpJmp, end)
		p.place(next)
		if p.sym != pcs.SymSemicolon {
			break
		}
		p.next()
	}
	p.put(pcg.Instr{Op: pcg.OpPop, Width: w})
	if p.sym == pcs.SymElse || p.sym == pcs.SymOtherwise {
		p.next()
		p.statSequence()
	}
	p.check(pcs.SymEnd, "end missing")
	p.place(end)
}

func (p *Parser) caseLabel(sel pcb.Ref, arm int64, seen []caseRange) []caseRange {
	lo, lt := p.constExpr(sel)
	hi := lo
	if p.sym == pcs.SymUpto {
		p.next()
		hi, _ = p.constExpr(sel)
	}
	if !lo.IsOrdinal() || !hi.IsOrdinal() || !p.tab.Compatible(sel, lt) {
		p.mark("invalid case label")
		return seen
	}
	for _, r := range seen {
		if lo.Int <= r.hi && hi.Int >= r.lo {
			p.mark("duplicate case label")
			break
		}
	}
	if lo.Int == hi.Int {
		p.op(pcg.OpDup)
		p.push(lo.Int)
		p.put(pcg.Instr{Op: pcg.OpEq, B: pcg.CmpInt})
		p.jump(pcg.OpJnz, arm)
	} else {
		skip := p.newLabel()
		p.op(pcg.OpDup)
		p.push(lo.Int)
		p.put(pcg.Instr{Op: pcg.OpGe, B: pcg.CmpInt})
		p.jump(pcg.OpJz, skip)
		p.op(pcg.OpDup)
		p.push(hi.Int)
		p.put(pcg.Instr{Op: pcg.OpLe, B: pcg.CmpInt})
		p.jump(pcg.OpJnz, arm)
		p.place(skip)
	}
	return append(seen, caseRange{lo.Int, hi.Int})
}
