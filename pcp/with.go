package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcs"
)

// withContext is the record opened by the outermost active WITH statement.
// Only one record is open at a time: its fields hide every other
// declaration of the same name, and a nested WITH does not replace it.
type withContext struct {
	active bool
	rec    pcb.Ref
	base   desig
}

// withStatement compiles
//
//	with d1, d2 do s
//
// Every designator is checked, but only the first record opens a context
// and only when no enclosing WITH is active. The record address must be
// static or held in a variable; a record reached by indexing is rejected.
func (p *Parser) withStatement() {
	p.next()
	saved := p.with
	for {
		if d, ok := p.designator(); ok {
			switch {
			case p.tab.Class(d.typ) != pcb.ClassRecord || d.idx != pcb.Nil:
				p.mark("record expected")
			case d.mode == modeStack:
				p.mark("with designator too complex")
			case !p.with.active:
				p.with = withContext{active: true, rec: p.tab.Host(d.typ), base: d}
			}
		}
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	p.check(pcs.SymDo, "do missing")
	p.statement()
	p.with = saved
}
