package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// Addressing modes of a designator.
const (
	modeDirect   = iota // variable at level, off+disp
	modeIndirect        // address held in the variable at level, off; plus disp
	modeStack           // address on the stack; plus disp
)

// desig is a variable access being reduced. Selectors only accumulate a
// displacement as long as the address is static; code is emitted when an
// index or a dereference needs the address at run time.
type desig struct {
	sym   pcb.Ref
	typ   pcb.Ref
	mode  int
	level int
	off   int64
	disp  int64
	idx   pcb.Ref // next index entry of a partly indexed array
}

// varLevel is the level operand addressing variable r; variables of a
// used unit are addressed through the unit's segment.
func (p *Parser) varLevel(r pcb.Ref) int {
	if vi := p.tab.Var(r); vi != nil && vi.Segment != 0 {
		return -vi.Segment
	}
	return p.tab.Sym(r).Level
}

// desigOf starts a designator at variable or with-field r.
func (p *Parser) desigOf(r pcb.Ref) desig {
	if fi := p.tab.FieldInfo(r); fi != nil {
		d := p.with.base
		d.disp += fi.Offset
		d.typ = fi.Type
		d.sym = r
		return d
	}
	vi := p.tab.Var(r)
	d := desig{sym: r, typ: vi.Type, level: p.varLevel(r), off: vi.Offset}
	if vi.Flags&pcb.VarParam != 0 {
		d.mode = modeIndirect
	}
	return d
}

// find resolves name in the active with context first.
func (p *Parser) find(name string) pcb.Ref {
	owner := pcb.Nil
	if p.with.active {
		owner = p.with.rec
	}
	return p.tab.Lookup(name, p.tab.Global(), owner)
}

// lookupIdent resolves the identifier at the current token, which may be
// qualified by a unit name. The final identifier is left unconsumed.
func (p *Parser) lookupIdent() pcb.Ref {
	r := p.find(p.tok.Id)
	if r != pcb.Nil && p.tab.Kind(r) == pcb.KindUnit {
		p.next()
		p.check(pcs.SymPeriod, ". missing")
		if p.sym != pcs.SymIdent {
			p.mark("identifier expected")
			return pcb.Nil
		}
		r = p.tab.Find(p.tok.Id, p.tab.Global())
	}
	return r
}

func (p *Parser) isVariable(r pcb.Ref) bool {
	return p.tab.Var(r) != nil || p.tab.FieldInfo(r) != nil
}

// designator parses a variable access.
func (p *Parser) designator() (desig, bool) {
	if p.sym != pcs.SymIdent {
		p.mark("variable expected")
		return desig{}, false
	}
	r := p.lookupIdent()
	switch {
	case r == pcb.Nil:
		p.mark("%s undeclared", p.tok.Id)
	case !p.isVariable(r):
		p.mark("variable expected")
		r = pcb.Nil
	}
	p.next()
	if r == pcb.Nil {
		return desig{}, false
	}
	d := p.desigOf(r)
	p.selectors(&d)
	return d, true
}

// selectors applies field selections, indices and dereferences.
func (p *Parser) selectors(d *desig) {
	for {
		switch p.sym {
		case pcs.SymPeriod:
			p.next()
			if d.idx != pcb.Nil || p.tab.Class(d.typ) != pcb.ClassRecord {
				p.mark("record expected")
			}
			id, ok := p.ident()
			if !ok {
				continue
			}
			f := p.tab.Field(d.typ, id)
			if f == pcb.Nil {
				p.mark("field %s undefined", id)
				d.typ = pcb.Nil
				continue
			}
			fi := p.tab.FieldInfo(f)
			d.disp += fi.Offset
			d.typ = fi.Type
		case pcs.SymLbrak:
			p.next()
			p.index(d)
			p.check(pcs.SymRbrak, "] missing")
		case pcs.SymArrow:
			p.next()
			if p.tab.Class(d.typ) != pcb.ClassPointer {
				p.mark("pointer expected")
				continue
			}
			if d.mode == modeDirect {
				d.mode = modeIndirect
				d.off += d.disp
				d.disp = 0
			} else {
				p.toStack(d)
				p.put(pcg.Instr{Op: pcg.OpLoadInd, Width: wordSize})
			}
			d.typ = p.tab.Type(p.tab.Host(d.typ)).Parent
		default:
			return
		}
	}
}

// index parses the index list of an array or string selector.
func (p *Parser) index(d *desig) {
	if d.idx == pcb.Nil && p.tab.Class(d.typ) == pcb.ClassString {
		p.loadValue(d)
		if c := p.tab.Class(p.expression(p.tab.Integer)); c != pcb.ClassInteger && c != pcb.ClassAny {
			p.mark("integer index expected")
		}
		p.put(pcg.Instr{Op: pcg.OpIndex, A: 0, B: 1})
		*d = desig{sym: d.sym, typ: p.tab.Char, mode: modeStack}
		return
	}
	if d.idx == pcb.Nil {
		if p.tab.Class(d.typ) != pcb.ClassArray {
			p.mark("array expected")
			p.expression(pcb.Nil)
			return
		}
		d.idx = p.tab.Type(p.tab.Host(d.typ)).Index
	}
	arr := d.typ
	p.toStack(d)
	for {
		ei := p.tab.Type(d.idx)
		t := p.expression(ei.Parent)
		if !p.tab.Compatible(ei.Parent, t) {
			p.mark("index type mismatch")
		}
		if p.opts.RangeChecks {
			p.put(pcg.Instr{Op: pcg.OpCheck, A: ei.Min, B: ei.Max})
		}
		p.put(pcg.Instr{Op: pcg.OpIndex, A: ei.Min, B: ei.Stride})
		d.idx = ei.Index
		if d.idx == pcb.Nil {
			d.typ = p.tab.Type(p.tab.Host(arr)).Parent
		}
		if p.sym != pcs.SymComma {
			return
		}
		p.next()
		if d.idx == pcb.Nil {
			// indices beyond the array's dimensions select into the element
			if p.tab.Class(d.typ) != pcb.ClassArray {
				p.mark("too many indices")
				p.expression(pcb.Nil)
				return
			}
			arr = d.typ
			d.idx = p.tab.Type(p.tab.Host(arr)).Index
		}
	}
}

// toStack reduces d to an address on the stack.
func (p *Parser) toStack(d *desig) {
	switch d.mode {
	case modeDirect:
		p.addr(d.level, d.off+d.disp)
	case modeIndirect:
		p.put(pcg.Instr{Op: pcg.OpLoad, Width: wordSize, Level: d.level, A: d.off})
		p.offset(d.disp)
	case modeStack:
		p.offset(d.disp)
	}
	d.mode, d.disp = modeStack, 0
}

// loadValue pushes the value of scalar designator d.
func (p *Parser) loadValue(d *desig) {
	w := p.width(d.typ)
	if d.mode == modeDirect {
		p.put(pcg.Instr{Op: pcg.OpLoad, Width: w, Level: d.level, A: d.off + d.disp})
		return
	}
	p.toStack(d)
	p.put(pcg.Instr{Op: pcg.OpLoadInd, Width: w})
}

// store stores the value on top of the stack into d. Unless d is
// direct, its address must have been pushed before the value.
func (p *Parser) store(d *desig) {
	w := p.width(d.typ)
	if d.mode == modeDirect {
		p.put(pcg.Instr{Op: pcg.OpStore, Width: w, Level: d.level, A: d.off + d.disp})
		return
	}
	p.put(pcg.Instr{Op: pcg.OpStoreInd, Width: w})
}

// loadItem pushes the value of d, or its address if d is structured.
func (p *Parser) loadItem(d *desig) pcb.Ref {
	if d.idx != pcb.Nil {
		p.mark("index missing")
	}
	if p.structured(d.typ) {
		p.toStack(d)
	} else {
		p.loadValue(d)
	}
	return d.typ
}

// structured reports whether values of typ are handled by address.
func (p *Parser) structured(typ pcb.Ref) bool {
	switch p.tab.Class(typ) {
	case pcb.ClassRecord, pcb.ClassArray, pcb.ClassFile:
		return true
	}
	return false
}
