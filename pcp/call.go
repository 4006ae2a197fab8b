package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// call compiles a call of user procedure or function r whose name has
// been consumed and returns the result type. A function's result slot is
// reserved before the parameters are pushed left to right.
func (p *Parser) call(r pcb.Ref) pcb.Ref {
	pi := p.tab.Proc(r)
	if pi.Result != pcb.Nil {
		switch p.tab.Class(pi.Result) {
		case pcb.ClassReal:
			p.put(pcg.Instr{Op: pcg.OpPushReal})
		case pcb.ClassSet:
			p.pushValue(pcb.EmptySet())
		default:
			p.push(0)
		}
	}
	n := 0
	if p.sym == pcs.SymLparen {
		p.next()
		if p.sym != pcs.SymRparen {
			for {
				if n < len(pi.Params) {
					p.actual(pi.Params[n])
				} else {
					p.expression(pcb.Nil)
				}
				n++
				if p.sym != pcs.SymComma {
					break
				}
				p.next()
			}
		}
		p.check(pcs.SymRparen, ") missing")
	}
	if n != len(pi.Params) {
		p.mark("%s expects %d parameters, got %d", p.tab.Name(r), len(pi.Params), n)
	}
	p.put(pcg.Instr{Op: pcg.OpCall, A: pi.Entry, Level: p.tab.Sym(r).Level + 1})
	return pi.Result
}

// actual passes one parameter: the address of a variable for VAR
// parameters, otherwise the value. Structured values are copied onto the
// stack.
func (p *Parser) actual(par pcb.Param) {
	if par.IsVar {
		d, ok := p.designator()
		if !ok {
			p.push(0)
			return
		}
		if d.idx != pcb.Nil {
			p.mark("index missing")
		}
		p.toStack(&d)
		bothStrings := p.tab.Class(d.typ) == pcb.ClassString && p.tab.Class(par.Type) == pcb.ClassString
		if par.Type != pcb.Nil && d.typ != pcb.Nil && !bothStrings && !p.tab.Same(par.Type, d.typ) {
			p.mark("type of var parameter %s does not match", par.Name)
		}
		return
	}
	t := p.expression(par.Type)
	p.coerce(t, par.Type)
	if p.structured(par.Type) {
		if p.tab.Class(par.Type) == pcb.ClassFile {
			p.mark("files must be passed as var parameters")
			return
		}
		p.push(p.tab.SizeOf(par.Type))
		p.lib(pcg.LibPushBlock)
	}
}
