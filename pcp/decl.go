package pcp

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// block parses the declarations and the statement part of a program or
// procedure body whose code starts at label entry.
func (p *Parser) block(entry int64, paramSize int64) {
	p.declarations()
	p.body(entry, paramSize, false)
}

// body emits the frame setup, the deferred initialization and the
// compound statement. Nested procedures have been emitted already, so the
// entry label follows their code. A unit body may consist of end alone.
func (p *Parser) body(entry int64, paramSize int64, optional bool) {
	p.checkForwards()
	p.exitLabel = p.newLabel()
	p.place(entry)
	p.put(pcg.Instr{Op: pcg.OpEnter, A: align(p.frame)})
	p.initialize()
	switch {
	case p.sym == pcs.SymBegin:
		p.next()
		p.statSequence()
		p.check(pcs.SymEnd, "end missing")
	case optional:
		p.check(pcs.SymEnd, "end missing")
	default:
		p.mark("begin missing")
		p.skipTo(pcs.SymEnd)
		p.next()
	}
	p.place(p.exitLabel)
	p.finalize()
	p.put(pcg.Instr{Op: pcg.OpRet, A: paramSize})
	p.checkLabels()
}

func (p *Parser) declarations() {
	for {
		switch p.sym {
		case pcs.SymLabel:
			p.labelDecl()
		case pcs.SymConst:
			p.constDecl()
		case pcs.SymType:
			p.typeDecl()
		case pcs.SymVar:
			p.varDecl()
		case pcs.SymProcedure, pcs.SymFunction:
			p.procedureDecl()
		default:
			return
		}
	}
}

// declare reports a name already declared at the current level.
func (p *Parser) declare(name string) {
	if p.tab.Find(name, p.tab.Floor()) != pcb.Nil {
		p.mark("multiple declaration of %s", name)
	}
}

func (p *Parser) identList() []string {
	var names []string
	for {
		if id, ok := p.ident(); ok {
			names = append(names, id)
		}
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	return names
}

func labelName(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (p *Parser) labelDecl() {
	p.next()
	for {
		if p.sym == pcs.SymInt {
			name := labelName(p.tok.Int)
			p.declare(name)
			p.tab.AddLabel(name, &pcb.LabelInfo{Number: p.tok.Int, Target: p.newLabel(), Pos: p.tok.Pos})
			p.next()
		} else {
			p.mark("label number expected")
		}
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	p.check(pcs.SymSemicolon, "; missing")
}

// checkLabels reports the labels of the current level that were declared
// but never placed.
func (p *Parser) checkLabels() {
	for r := p.tab.Floor(); int(r) < p.tab.Len(); r++ {
		if p.tab.Kind(r) != pcb.KindLabel || p.tab.Sym(r).Level != p.tab.Level() {
			continue
		}
		if li := p.tab.Label(r); !li.Defined {
			p.rep.Errorf(li.Pos, "label %d declared but not defined", li.Number)
		}
	}
}

func (p *Parser) constDecl() {
	p.next()
	for p.sym == pcs.SymIdent {
		id := p.tok.Id
		p.next()
		p.declare(id)
		if p.sym == pcs.SymColon {
			// typed constant: an initialized variable
			p.next()
			typ := p.typeDenoter("")
			p.check(pcs.SymEql, "= missing")
			v := p.constInit(typ)
			p.declareVar(id, typ, pcb.VarTyped, &v)
		} else {
			p.check(pcs.SymEql, "= missing")
			v, typ := p.constExpr(pcb.Nil)
			p.tab.AddConst(id, v, typ)
		}
		p.check(pcs.SymSemicolon, "; missing")
	}
}

func (p *Parser) typeDecl() {
	p.next()
	p.ptrFwd = p.ptrFwd[:0]
	p.inTypes = true
	for p.sym == pcs.SymIdent {
		id := p.tok.Id
		p.next()
		p.declare(id)
		p.check(pcs.SymEql, "= missing")
		p.typeDenoter(id)
		p.check(pcs.SymSemicolon, "; missing")
	}
	p.inTypes = false
	// pointer bases declared after their pointer type
	for _, fwd := range p.ptrFwd {
		r := p.tab.Find(fwd.name, p.tab.Global())
		ti := p.tab.Type(fwd.typ)
		if r == pcb.Nil || p.tab.Kind(r) != pcb.KindType {
			p.rep.Errorf(fwd.pos, "undefined pointer base %s", fwd.name)
			ti.Parent = p.tab.Integer
		} else {
			ti.Parent = r
		}
		ti.Flags &^= pcb.TypeIncomplete
	}
	p.ptrFwd = p.ptrFwd[:0]
}

func (p *Parser) varDecl() {
	p.next()
	for p.sym == pcs.SymIdent {
		names := p.identList()
		p.check(pcs.SymColon, ": missing")
		typ := p.typeDenoter("")
		var init *pcb.Value
		if p.sym == pcs.SymEql {
			p.next()
			if len(names) != 1 {
				p.mark("only a single variable can be initialized")
			}
			v := p.constInit(typ)
			init = &v
		}
		for _, n := range names {
			p.declare(n)
			p.declareVar(n, typ, 0, init)
		}
		p.check(pcs.SymSemicolon, "; missing")
	}
}

// allocVar reserves a word-aligned slot: globals grow upward from 0,
// locals downward from the frame base.
func (p *Parser) allocVar(size int64) int64 {
	size = align(size)
	if p.tab.Level() == 0 {
		off := p.frame
		p.frame += size
		return off
	}
	p.frame += size
	return -p.frame
}

func (p *Parser) declareVar(name string, typ pcb.Ref, flags uint8, init *pcb.Value) pcb.Ref {
	size := p.tab.SizeOf(typ)
	vi := &pcb.VarInfo{
		Flags:   flags,
		Offset:  p.allocVar(size),
		Size:    size,
		Type:    typ,
		Segment: p.segment,
	}
	if p.tab.Level() == 0 {
		vi.Flags |= pcb.VarGlobal
	}
	switch p.tab.Form(typ) {
	case pcb.KindText:
		vi.Unit = 1
	case pcb.KindFile:
		vi.Unit = 128
		if comp := p.tab.Type(typ).Parent; comp != pcb.Nil {
			vi.Unit = p.tab.SizeOf(comp)
		}
	}
	if p.segment != 0 {
		vi.Flags |= pcb.VarExternal
		r := p.tab.AddVar(name, vi)
		p.em.Import(pcg.Import{Unit: p.units[p.segment-1], Name: name, Kind: pcg.SymVar, Label: vi.Offset})
		return r
	}
	r := p.tab.AddVar(name, vi)
	if p.exporting {
		p.em.Export(pcg.Export{Name: name, Kind: pcg.SymVar, Value: vi.Offset, Size: size})
	}
	p.registerInits(p.tab.Level(), vi.Offset, typ)
	if init != nil {
		p.addInit(initEntry{kind: initValue, level: p.tab.Level(), off: vi.Offset, count: 1, typ: typ, val: *init})
	}
	return r
}

func (p *Parser) formalParams() []pcb.Param {
	var params []pcb.Param
	p.next()
	if p.sym == pcs.SymRparen {
		p.next()
		return nil
	}
	for {
		isVar := false
		switch p.sym {
		case pcs.SymVar:
			isVar = true
			p.next()
		case pcs.SymConst:
			p.next()
		}
		names := p.identList()
		typ := pcb.Nil
		if p.sym == pcs.SymColon {
			p.next()
			typ = p.typeIdent()
		} else if !isVar {
			p.mark(": missing")
		}
		for _, n := range names {
			for _, par := range params {
				if strings.EqualFold(par.Name, n) {
					p.mark("multiple declaration of %s", n)
				}
			}
			params = append(params, pcb.Param{Name: n, IsVar: isVar, Type: typ})
		}
		if p.sym != pcs.SymSemicolon {
			break
		}
		p.next()
	}
	p.check(pcs.SymRparen, ") missing")
	return params
}

func (p *Parser) paramSlot(par pcb.Param) int64 {
	if par.IsVar {
		return wordSize
	}
	return max(align(p.tab.SizeOf(par.Type)), wordSize)
}

func (p *Parser) paramSize(params []pcb.Param) int64 {
	var n int64
	for _, par := range params {
		n += p.paramSlot(par)
	}
	return n
}

func (p *Parser) sameSignature(pi *pcb.ProcInfo, params []pcb.Param, result pcb.Ref) bool {
	if len(params) != len(pi.Params) || (result != pcb.Nil && !p.tab.Same(result, pi.Result)) {
		return false
	}
	for i, par := range params {
		if par.IsVar != pi.Params[i].IsVar || !p.tab.Same(par.Type, pi.Params[i].Type) {
			return false
		}
	}
	return true
}

func (p *Parser) procedureDecl() {
	isFunc := p.sym == pcs.SymFunction
	p.next()
	name, ok := p.ident()
	if !ok {
		p.skipTo(pcs.SymSemicolon)
		p.next()
		return
	}
	var params []pcb.Param
	hasParams := p.sym == pcs.SymLparen
	if hasParams {
		params = p.formalParams()
	}
	result := pcb.Nil
	if isFunc && p.sym == pcs.SymColon {
		p.next()
		result = p.typeIdent()
		switch p.tab.Class(result) {
		case pcb.ClassRecord, pcb.ClassArray, pcb.ClassFile:
			p.mark("invalid function result type")
			result = p.tab.Integer
		}
	}
	p.check(pcs.SymSemicolon, "; missing")

	proc := p.tab.Find(name, p.tab.Floor())
	var pi *pcb.ProcInfo
	if proc != pcb.Nil {
		pi = p.tab.Proc(proc)
	}
	if pi != nil && pi.Flags&pcb.ProcForward != 0 {
		// body of a forward declaration; the heading may be repeated
		if (hasParams || result != pcb.Nil) && !p.sameSignature(pi, params, result) {
			p.mark("heading of %s does not match its forward declaration", name)
		}
		pi.Flags &^= pcb.ProcForward
	} else {
		if proc != pcb.Nil {
			p.mark("multiple declaration of %s", name)
		}
		if isFunc && result == pcb.Nil {
			p.mark("result type missing")
			result = p.tab.Integer
		}
		pi = &pcb.ProcInfo{Entry: p.newLabel(), Params: params, Result: result}
		pi.ParamSize = p.paramSize(params)
		proc = p.tab.AddProc(name, pi)
		if p.exporting {
			pi.Flags |= pcb.ProcExported
			p.em.Export(pcg.Export{Name: name, Kind: pcg.SymProc, Value: pi.Entry})
		}
	}

	switch {
	case p.segment != 0:
		pi.Flags |= pcb.ProcExternal
		p.em.Import(pcg.Import{Unit: p.units[p.segment-1], Name: name, Kind: pcg.SymProc, Label: pi.Entry})
		return
	case p.exporting:
		pi.Flags |= pcb.ProcForward
		return
	case p.sym == pcs.SymForward:
		p.next()
		p.check(pcs.SymSemicolon, "; missing")
		pi.Flags |= pcb.ProcForward
		return
	case p.sym == pcs.SymExternal:
		p.next()
		unit := ""
		if p.sym == pcs.SymString {
			unit = p.tok.Str
			p.next()
		}
		p.check(pcs.SymSemicolon, "; missing")
		pi.Flags |= pcb.ProcExternal
		p.em.Import(pcg.Import{Unit: unit, Name: name, Kind: pcg.SymProc, Label: pi.Entry})
		return
	}
	p.procedureBody(proc, name)
	p.check(pcs.SymSemicolon, "; missing")
}

// blockState is the per-block parser state saved around a nested body.
type blockState struct {
	frame     int64
	exitLabel int64
	initFloor int
	with      withContext
}

func (p *Parser) procedureBody(proc pcb.Ref, name string) {
	pi := p.tab.Proc(proc)
	saved := blockState{frame: p.frame, exitLabel: p.exitLabel, initFloor: p.initFloor, with: p.with}
	m := p.tab.Mark()
	p.tab.Enter()
	p.frame = 0
	p.initFloor = len(p.inits)
	p.with = withContext{}

	// the last parameter lies nearest to the return origin
	off := int64(returnOrigin)
	offs := make([]int64, len(pi.Params))
	for i := len(pi.Params) - 1; i >= 0; i-- {
		offs[i] = off
		off += p.paramSlot(pi.Params[i])
	}
	for i, par := range pi.Params {
		vi := &pcb.VarInfo{Offset: offs[i], Type: par.Type, Size: p.paramSlot(par)}
		if par.IsVar {
			vi.Flags = pcb.VarParam
		} else {
			vi.Flags = pcb.VarValueParam
		}
		p.tab.AddVar(par.Name, vi)
	}
	if pi.Result != pcb.Nil {
		p.tab.AddVar(name, &pcb.VarInfo{
			Flags:  pcb.VarResult,
			Offset: returnOrigin + pi.ParamSize,
			Size:   p.tab.SizeOf(pi.Result),
			Type:   pi.Result,
			Owner:  proc,
		})
	}
	log.Debugf("pcp: body of %s at level %d, mark %d", name, p.tab.Level(), m.Syms)

	p.block(pi.Entry, pi.ParamSize)

	p.inits = p.inits[:p.initFloor]
	p.tab.Leave()
	p.tab.Release(m)
	p.frame, p.exitLabel, p.initFloor, p.with = saved.frame, saved.exitLabel, saved.initFloor, saved.with
}

// checkForwards reports procedures of the current level declared forward
// but never given a body.
func (p *Parser) checkForwards() {
	for r := p.tab.Floor(); int(r) < p.tab.Len(); r++ {
		pi := p.tab.Proc(r)
		if pi != nil && pi.Flags&pcb.ProcForward != 0 && p.tab.Sym(r).Level == p.tab.Level() {
			p.mark("forward procedure %s not resolved", p.tab.Name(r))
			pi.Flags &^= pcb.ProcForward
		}
	}
}
