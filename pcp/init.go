package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
)

type initKind uint8

const (
	initString initKind = iota // string buffers
	initFile                   // file numbers
	initValue                  // explicit initial value
)

// initEntry describes count objects at off, off+stride, ... of a block
// that need run-time setup at block entry and teardown at exit.
type initEntry struct {
	kind   initKind
	level  int
	off    int64
	count  int64
	stride int64
	cap    int64
	typ    pcb.Ref
	val    pcb.Value
}

func (p *Parser) addInit(e initEntry) {
	if len(p.inits)-p.initFloor >= p.opts.MaxInits {
		p.fatal("more than %d initialized variables in one block", p.opts.MaxInits)
	}
	if n := len(p.inits); n > p.initFloor {
		// extend a run of equally spaced objects
		last := &p.inits[n-1]
		if e.kind != initValue && last.kind == e.kind && last.level == e.level &&
			last.cap == e.cap && last.stride == e.stride && e.count > 0 &&
			last.off+last.count*last.stride == e.off {
			last.count += e.count
			return
		}
	}
	p.inits = append(p.inits, e)
}

// registerInits records the setup a variable of type typ at off needs.
func (p *Parser) registerInits(level int, off int64, typ pcb.Ref) {
	if p.tab.NeedsInit(typ) {
		p.collectInits(level, off, typ, 1, p.tab.SizeOf(typ))
	}
}

// collectInits walks count objects of type typ spaced stride bytes apart.
// Arrays whose elements are contiguous collapse into one entry.
func (p *Parser) collectInits(level int, off int64, typ pcb.Ref, count, stride int64) {
	ti := p.tab.Type(typ)
	switch ti.Base {
	case pcb.KindString:
		p.addInit(initEntry{kind: initString, level: level, off: off, count: count, stride: stride, cap: 255, typ: typ})
	case pcb.KindShortString:
		p.addInit(initEntry{kind: initString, level: level, off: off, count: count, stride: stride, cap: ti.Max, typ: typ})
	case pcb.KindFile, pcb.KindText:
		p.addInit(initEntry{kind: initFile, level: level, off: off, count: count, stride: stride, typ: typ})
	case pcb.KindArray:
		es := p.tab.SizeOf(ti.Parent)
		if es == 0 {
			return
		}
		n := ti.Size / es
		if count == 1 || stride == ti.Size {
			p.collectInits(level, off, ti.Parent, count*n, es)
			return
		}
		for i := int64(0); i < count; i++ {
			p.collectInits(level, off+i*stride, ti.Parent, n, es)
		}
	case pcb.KindRecord:
		for _, f := range p.tab.Fields(typ) {
			fi := p.tab.FieldInfo(f)
			if p.tab.NeedsInit(fi.Type) {
				p.collectInits(level, off+fi.Offset, fi.Type, count, stride)
			}
		}
	}
}

func (p *Parser) blockInits() []initEntry {
	return p.inits[p.initFloor:]
}

func (p *Parser) hasStrings() bool {
	for _, e := range p.blockInits() {
		if e.kind == initString {
			return true
		}
	}
	return false
}

func (p *Parser) addr(level int, off int64) {
	p.put(pcg.Instr{Op: pcg.OpAddr, Level: level, A: off})
}

// initialize emits the block entry setup: file numbers and string
// buffers first, explicit initial values after.
func (p *Parser) initialize() {
	if p.hasStrings() {
		p.lib(pcg.LibStrMark)
	}
	for _, e := range p.blockInits() {
		switch e.kind {
		case initString:
			p.addr(e.level, e.off)
			p.push(e.cap)
			p.push(e.count)
			p.push(e.stride)
			p.lib(pcg.LibStrAlloc)
		case initFile:
			p.addr(e.level, e.off)
			p.push(e.count)
			p.push(e.stride)
			p.lib(pcg.LibFileAlloc)
		}
	}
	for _, e := range p.blockInits() {
		if e.kind == initValue {
			p.initialValue(e)
		}
	}
}

func (p *Parser) initialValue(e initEntry) {
	switch p.tab.Class(e.typ) {
	case pcb.ClassString:
		p.addr(e.level, e.off)
		p.pushString(e.val.AsString())
		p.push(p.capacity(e.typ))
		p.lib(pcg.LibStrAssign)
	case pcb.ClassArray:
		p.addr(e.level, e.off)
		p.pushString(e.val.AsString())
		p.push(p.tab.SizeOf(e.typ))
		p.lib(pcg.LibArrayAssign)
	default:
		p.pushValue(e.val)
		p.put(pcg.Instr{Op: pcg.OpStore, Width: p.width(e.typ), Level: e.level, A: e.off})
	}
}

// finalize emits the block exit teardown in reverse order of setup.
func (p *Parser) finalize() {
	entries := p.blockInits()
	for i := len(entries) - 1; i >= 0; i-- {
		if e := entries[i]; e.kind == initFile {
			p.addr(e.level, e.off)
			p.push(e.count)
			p.push(e.stride)
			p.lib(pcg.LibFileFree)
		}
	}
	if p.hasStrings() {
		p.lib(pcg.LibStrRelease)
	}
}

// capacity is the largest length a string of type typ holds.
func (p *Parser) capacity(typ pcb.Ref) int64 {
	if p.tab.Form(p.tab.Host(typ)) == pcb.KindShortString {
		return p.tab.Type(typ).Max
	}
	return 255
}
