package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// assignment compiles d := expression. Scalars are stored directly when
// d's address is static. Strings are copied into their buffer by the run
// time, whatever way the target was reached; structured values are
// copied as blocks.
func (p *Parser) assignment(d desig) {
	if d.idx != pcb.Nil {
		p.mark("index missing")
	}
	p.check(pcs.SymBecomes, ":= missing")
	switch p.tab.Class(d.typ) {
	case pcb.ClassString:
		p.toStack(&d)
		t := p.expression(d.typ)
		p.coerce(t, d.typ)
		p.push(p.capacity(d.typ))
		p.lib(pcg.LibStrAssign)
	case pcb.ClassArray:
		p.toStack(&d)
		t := p.expression(d.typ)
		if p.tab.IsCharArray(d.typ) && p.tab.Class(t) != pcb.ClassArray && p.stringLike(t) {
			p.toStr(t)
			p.push(p.tab.SizeOf(d.typ))
			p.lib(pcg.LibArrayAssign)
			return
		}
		p.blockCopy(d.typ, t)
	case pcb.ClassRecord:
		p.toStack(&d)
		p.blockCopy(d.typ, p.expression(d.typ))
	case pcb.ClassFile:
		p.mark("files cannot be assigned")
		p.expression(pcb.Nil)
	default:
		if d.mode != modeDirect {
			p.toStack(&d)
		}
		t := p.expression(d.typ)
		p.coerce(t, d.typ)
		p.rangeCheck(d.typ)
		p.store(&d)
	}
}

// blockCopy copies the structured value whose address is on the stack
// into the destination below it.
func (p *Parser) blockCopy(dst, src pcb.Ref) {
	if src != pcb.Nil && !p.tab.Same(dst, src) {
		p.mark("incompatible types")
	}
	p.push(p.tab.SizeOf(dst))
	p.lib(pcg.LibBlockCopy)
}

// rangeCheck traps values outside a subrange destination.
func (p *Parser) rangeCheck(typ pcb.Ref) {
	if !p.opts.RangeChecks || p.tab.Form(typ) != pcb.KindSubrange {
		return
	}
	lo, hi := p.tab.Bounds(typ)
	p.put(pcg.Instr{Op: pcg.OpCheck, A: lo, B: hi})
}
