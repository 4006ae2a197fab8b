package pcp

import (
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcs"
)

const maxTypeSize = 1 << 30

// typeDenoter parses a type and returns its symbol. A non-empty name is
// given to the type; structured types are entered under it before their
// components so that they can refer to themselves through pointers.
func (p *Parser) typeDenoter(name string) pcb.Ref {
	packed := false
	if p.sym == pcs.SymPacked {
		packed = true
		p.next()
	}
	var typ pcb.Ref
	switch p.sym {
	case pcs.SymArrow:
		typ = p.pointerType(name)
	case pcs.SymLparen:
		typ = p.enumeration(name)
	case pcs.SymArray:
		typ = p.arrayType(name)
	case pcs.SymRecord:
		typ = p.recordType(name)
	case pcs.SymSet:
		typ = p.setType(name)
	case pcs.SymFile:
		typ = p.fileType(name)
	case pcs.SymIdent:
		if r := p.tab.Find(p.tok.Id, p.tab.Global()); r != pcb.Nil && p.tab.Kind(r) == pcb.KindType {
			p.next()
			typ = p.namedType(name, r)
			break
		}
		typ = p.subrange(name)
	default:
		typ = p.subrange(name)
	}
	if packed {
		switch p.tab.Form(typ) {
		case pcb.KindArray, pcb.KindRecord, pcb.KindSet, pcb.KindFile:
			p.tab.Type(typ).Flags |= pcb.TypePacked
		default:
			p.mark("packed applies to structured types only")
		}
	}
	return typ
}

// namedType handles a reference to the declared type r. string[n]
// declares a fresh short-string type of capacity n; any other type named
// here becomes an alias sharing r's description.
func (p *Parser) namedType(name string, r pcb.Ref) pcb.Ref {
	if p.tab.Form(r) == pcb.KindString && p.sym == pcs.SymLbrak {
		p.next()
		v, _ := p.constExpr(p.tab.Integer)
		p.check(pcs.SymRbrak, "] missing")
		n := v.Int
		if v.Kind != pcb.KindInteger || n < 1 || n > 255 {
			p.mark("string capacity must lie in 1..255")
			n = 255
		}
		return p.tab.AddType(name, &pcb.TypeInfo{Base: pcb.KindShortString, Size: wordSize, Max: n})
	}
	if name != "" {
		return p.tab.AddType(name, p.tab.Type(r))
	}
	return r
}

// typeIdent parses the type of a parameter or function result, which
// must be named.
func (p *Parser) typeIdent() pcb.Ref {
	switch p.sym {
	case pcs.SymFile:
		p.next()
		return p.tab.AnyFile
	case pcs.SymIdent:
		r := p.tab.Find(p.tok.Id, p.tab.Global())
		if r == pcb.Nil || p.tab.Kind(r) != pcb.KindType {
			p.mark("type %s undefined", p.tok.Id)
			p.next()
			return p.tab.Integer
		}
		p.next()
		return r
	}
	p.mark("type identifier expected")
	return p.tab.Integer
}

func (p *Parser) pointerType(name string) pcb.Ref {
	p.next()
	ti := &pcb.TypeInfo{Base: pcb.KindPointer, Size: wordSize}
	typ := p.tab.AddType(name, ti)
	if p.sym != pcs.SymIdent {
		p.mark("type identifier expected")
		ti.Parent = p.tab.Integer
		return typ
	}
	base, pos := p.tok.Id, p.tok.Pos
	p.next()
	floor := p.tab.Floor()
	if !p.inTypes {
		floor = p.tab.Global()
	}
	if r := p.tab.Find(base, floor); r != pcb.Nil && p.tab.Kind(r) == pcb.KindType {
		ti.Parent = r
	} else if p.inTypes {
		ti.Flags |= pcb.TypeIncomplete
		p.ptrFwd = append(p.ptrFwd, ptrBase{name: base, typ: typ, pos: pos})
	} else {
		p.rep.Errorf(pos, "undefined pointer base %s", base)
		ti.Parent = p.tab.Integer
	}
	return typ
}

func (p *Parser) enumeration(name string) pcb.Ref {
	p.next()
	ti := &pcb.TypeInfo{Base: pcb.KindScalar, Size: 1}
	typ := p.tab.AddType(name, ti)
	var n int64
	for {
		if id, ok := p.ident(); ok {
			p.declare(id)
			p.tab.AddConst(id, pcb.MemberValue(n), typ)
			n++
		}
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	p.check(pcs.SymRparen, ") missing")
	ti.Max = n - 1
	if n > 256 {
		ti.Size = 2
	}
	return typ
}

// subrange parses lo..hi; its host is the type of the bounds.
func (p *Parser) subrange(name string) pcb.Ref {
	lo, lt := p.constExpr(pcb.Nil)
	p.check(pcs.SymUpto, ".. missing")
	hi, ht := p.constExpr(lt)
	host := p.tab.Host(lt)
	if !lo.IsOrdinal() || !hi.IsOrdinal() || !p.tab.Compatible(lt, ht) {
		p.mark("invalid subrange bounds")
		lo, hi, host = pcb.IntValue(0), pcb.IntValue(0), p.tab.Integer
	} else if lo.Int > hi.Int {
		p.mark("lower bound exceeds upper bound")
		hi = lo
	}
	return p.tab.AddType(name, &pcb.TypeInfo{
		Base:   pcb.KindSubrange,
		Size:   p.tab.SizeOf(host),
		Min:    lo.Int,
		Max:    hi.Int,
		Parent: host,
	})
}

func (p *Parser) ordinalType() pcb.Ref {
	typ := p.typeDenoter("")
	if !p.tab.IsOrdinal(typ) {
		p.mark("ordinal type expected")
		return p.tab.Char
	}
	return typ
}

// arrayType builds the index chain of an array: one anonymous entry per
// dimension carrying its bounds and stride, the stride of a dimension
// being the element size times the ranges of the dimensions after it.
func (p *Parser) arrayType(name string) pcb.Ref {
	p.next()
	p.check(pcs.SymLbrak, "[ missing")
	var idx []pcb.Ref
	for {
		idx = append(idx, p.ordinalType())
		if p.sym != pcs.SymComma {
			break
		}
		p.next()
	}
	p.check(pcs.SymRbrak, "] missing")
	p.check(pcs.SymOf, "of missing")
	elem := p.typeDenoter("")

	strides := make([]int64, len(idx))
	size := p.tab.SizeOf(elem)
	for i := len(idx) - 1; i >= 0; i-- {
		strides[i] = size
		size *= p.tab.ElemCount(idx[i])
		if size > maxTypeSize {
			p.mark("array too large")
			size = 0
		}
	}
	next := pcb.Nil
	for i := len(idx) - 1; i >= 0; i-- {
		lo, hi := p.tab.Bounds(idx[i])
		next = p.tab.AddType("", &pcb.TypeInfo{
			Base:   pcb.KindSubrange,
			Size:   p.tab.SizeOf(idx[i]),
			Stride: strides[i],
			Min:    lo,
			Max:    hi,
			Parent: idx[i],
			Index:  next,
		})
	}
	return p.tab.AddType(name, &pcb.TypeInfo{
		Base:   pcb.KindArray,
		Dims:   len(idx),
		Size:   size,
		Parent: elem,
		Index:  next,
	})
}

func (p *Parser) recordType(name string) pcb.Ref {
	p.next()
	ti := &pcb.TypeInfo{Base: pcb.KindRecord}
	rec := p.tab.AddType(name, ti)
	prev := pcb.Nil
	ti.Size = p.fieldList(rec, 0, &prev)
	p.check(pcs.SymEnd, "end missing")
	return rec
}

func (p *Parser) addField(rec pcb.Ref, name string, prev *pcb.Ref) pcb.Ref {
	if p.tab.Field(rec, name) != pcb.Nil {
		p.mark("multiple declaration of field %s", name)
	}
	f := p.tab.AddField(name, &pcb.FieldInfo{Record: rec})
	if *prev == pcb.Nil {
		p.tab.Type(rec).Index = f
	} else {
		p.tab.FieldInfo(*prev).Next = f
	}
	*prev = f
	p.tab.Type(rec).Fields++
	return f
}

// layField lays a field out from off: anything wider than a byte is
// word-aligned.
func (p *Parser) layField(f, typ pcb.Ref, off int64) int64 {
	size := p.tab.SizeOf(typ)
	if size > 1 {
		off = align(off)
	}
	fi := p.tab.FieldInfo(f)
	fi.Type, fi.Size, fi.Offset = typ, size, off
	return off + size
}

// fieldList parses a fixed part and an optional variant part starting at
// offset origin and returns the end offset. All variants share the
// offset following the fixed part; the longest one decides.
func (p *Parser) fieldList(rec pcb.Ref, origin int64, prev *pcb.Ref) int64 {
	off := origin
	for p.sym == pcs.SymIdent {
		var fs []pcb.Ref
		for _, n := range p.identList() {
			fs = append(fs, p.addField(rec, n, prev))
		}
		p.check(pcs.SymColon, ": missing")
		typ := p.typeDenoter("")
		for _, f := range fs {
			off = p.layField(f, typ, off)
		}
		if p.sym != pcs.SymSemicolon {
			break
		}
		p.next()
	}
	if p.sym != pcs.SymCase {
		return off
	}

	p.next()
	var tagType pcb.Ref
	if id, ok := p.ident(); ok {
		if p.sym == pcs.SymColon {
			p.next()
			tagType = p.typeIdent()
			off = p.layField(p.addField(rec, id, prev), tagType, off)
		} else if r := p.tab.Find(id, p.tab.Global()); r != pcb.Nil && p.tab.Kind(r) == pcb.KindType {
			tagType = r
		} else {
			p.mark("type %s undefined", id)
		}
	}
	if tagType != pcb.Nil && !p.tab.IsOrdinal(tagType) {
		p.mark("ordinal tag type expected")
	}
	p.check(pcs.SymOf, "of missing")
	size := off
	for p.sym != pcs.SymEnd && p.sym != pcs.SymRparen && p.sym != pcs.SymEot {
		for {
			p.constExpr(tagType)
			if p.sym != pcs.SymComma {
				break
			}
			p.next()
		}
		p.check(pcs.SymColon, ": missing")
		p.check(pcs.SymLparen, "( missing")
		size = max(size, p.fieldList(rec, off, prev))
		p.check(pcs.SymRparen, ") missing")
		if p.sym != pcs.SymSemicolon {
			break
		}
		p.next()
	}
	return size
}

// setType accepts base types wider than a set and clamps them to the
// first SetBits elements.
func (p *Parser) setType(name string) pcb.Ref {
	p.next()
	p.check(pcs.SymOf, "of missing")
	base := p.ordinalType()
	lo, hi := p.tab.Bounds(base)
	ti := &pcb.TypeInfo{Base: pcb.KindSet, Size: pcb.SetSize, Min: lo, Max: hi, Parent: base}
	if hi-lo+1 > pcb.SetBits {
		p.warn("set base type has more than %d elements; clamped", pcb.SetBits)
		ti.Flags |= pcb.TypeClamped
		ti.Max = lo + pcb.SetBits - 1
	}
	return p.tab.AddType(name, ti)
}

func (p *Parser) fileType(name string) pcb.Ref {
	p.next()
	ti := &pcb.TypeInfo{Base: pcb.KindFile, Size: wordSize}
	if p.sym == pcs.SymOf {
		p.next()
		comp := p.typeDenoter("")
		if p.tab.Class(comp) == pcb.ClassFile || p.tab.NeedsInit(comp) {
			p.mark("invalid file component type")
		}
		ti.Parent = comp
	}
	return p.tab.AddType(name, ti)
}
