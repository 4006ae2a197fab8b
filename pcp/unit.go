package pcp

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// unit compiles
//
//	unit Name; interface [uses] decls implementation [uses] decls [begin stats] end.
//
// Level-zero variables and procedures of the interface are exported.
func (p *Parser) unit() {
	p.kind = pcg.KindUnit
	p.next()
	if id, ok := p.ident(); ok {
		p.name = id
	}
	p.check(pcs.SymSemicolon, "; missing")
	entry := p.newLabel()
	p.em.Begin(pcg.Header{Kind: pcg.KindUnit, Name: p.name, Arch: p.opts.Arch, Entry: entry})
	p.check(pcs.SymInterface, "interface missing")
	p.usesClause()
	p.exporting = true
	p.declarations()
	p.exporting = false
	p.check(pcs.SymImplementation, "implementation missing")
	p.usesClause()
	p.declarations()
	p.body(entry, 0, true)
	if p.sym != pcs.SymPeriod {
		p.mark("period missing")
	}
}

func (p *Parser) usesClause() {
	if p.sym != pcs.SymUses {
		return
	}
	p.next()
	for {
		if id, ok := p.ident(); ok {
			p.loadUnit(id)
		}
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	p.check(pcs.SymSemicolon, "; missing")
}

// loadUnit reads the interface of the named unit into the global scope.
// Its variables live in a data segment of their own and its procedures
// are imported; the rest of the unit text is not read.
func (p *Parser) loadUnit(name string) {
	for _, u := range p.units {
		if strings.EqualFold(u, name) {
			return
		}
	}
	if p.unitDepth >= p.opts.MaxUnitDepth {
		p.fatal("units nested more than %d deep", p.opts.MaxUnitDepth)
	}
	src, err := p.src.OpenUnit(name)
	if err != nil {
		p.mark("cannot open unit %s: %v", name, err)
		return
	}
	p.units = append(p.units, name)
	seg := len(p.units)
	p.tab.AddUnit(name, &pcb.UnitInfo{Index: seg})

	savedSrc, savedTok, savedAhead := p.src, p.tok, p.ahead
	savedSeg, savedFrame, savedExp := p.segment, p.frame, p.exporting
	p.src, p.ahead, p.segment, p.frame, p.exporting = src, nil, seg, 0, false
	p.unitDepth++

	p.next()
	p.check(pcs.SymUnit, "unit expected")
	if id, ok := p.ident(); ok && !strings.EqualFold(id, name) {
		p.mark("unit %s found where %s was expected", id, name)
	}
	p.check(pcs.SymSemicolon, "; missing")
	p.check(pcs.SymInterface, "interface missing")
	p.usesClause()
	p.declarations()
	if p.sym != pcs.SymImplementation {
		p.mark("implementation missing")
	}
	log.Debugf("pcp: unit %s loaded as segment %d, %d bytes of data", name, seg, p.frame)

	p.unitDepth--
	p.src, p.tok, p.sym, p.ahead = savedSrc, savedTok, savedTok.Sym, savedAhead
	p.segment, p.frame, p.exporting = savedSeg, savedFrame, savedExp
}
