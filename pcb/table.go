// Package pcb contains the symbol table and type system of the Pascal
// compiler.
//
// All declarations live in one append-only slice of Symbols; a Ref is an
// index into it and Nil (0) is the reserved null reference. Names are kept
// in a parallel byte arena. Leaving a scope never deletes symbols one by
// one: the caller takes a Mark on entry and Releases it on exit, which
// truncates both the slice and the arena.
//
// Types are symbols too (kind KindType); their TypeInfo payload links them
// to parent, index-chain and field symbols by Ref.
package pcb

import (
	"bytes"

	log "github.com/sirupsen/logrus"

	"github.com/fzipp/pascal-compiler/diag"
)

// DefaultCapacity is the symbol capacity used when none is configured.
const DefaultCapacity = 1 << 16

type Ref int32

// Nil is the null symbol reference.
const Nil Ref = 0

type Symbol struct {
	nameOff int32
	nameLen int32
	Kind    Kind
	Level   int
	Payload Payload
}

// Mark is a high-water mark of the table and its name arena.
type Mark struct {
	Syms  int
	Arena int
}

type Table struct {
	syms     []Symbol
	arena    []byte
	capacity int
	rep      *diag.Reporter
	level    int
	floors   []Ref

	Universe
}

// NewTable returns a table preloaded with the predeclared identifiers.
// Exceeding capacity symbols aborts the compilation through rep.
func NewTable(capacity int, rep *diag.Reporter) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if rep == nil {
		rep = diag.NewReporter(0)
	}
	t := &Table{
		syms:     make([]Symbol, 1, 512),
		capacity: capacity,
		rep:      rep,
		floors:   []Ref{1},
	}
	t.enterUniverse()
	t.floors[0] = Ref(len(t.syms))
	return t
}

// Add appends a symbol at the current level.
func (t *Table) Add(name string, kind Kind, p Payload) Ref {
	if len(t.syms) >= t.capacity {
		t.rep.Fatalf(diag.Pos{}, "symbol table overflow (%d symbols)", t.capacity)
	}
	off := len(t.arena)
	t.arena = append(t.arena, name...)
	t.syms = append(t.syms, Symbol{
		nameOff: int32(off),
		nameLen: int32(len(name)),
		Kind:    kind,
		Level:   t.level,
		Payload: p,
	})
	return Ref(len(t.syms) - 1)
}

func (t *Table) Len() int {
	return len(t.syms)
}

// Sym returns the symbol r refers to. The pointer is invalidated by the
// next Add.
func (t *Table) Sym(r Ref) *Symbol {
	return &t.syms[r]
}

func (t *Table) Name(r Ref) string {
	s := &t.syms[r]
	return string(t.arena[s.nameOff : s.nameOff+s.nameLen])
}

func (t *Table) Kind(r Ref) Kind {
	return t.syms[r].Kind
}

func (t *Table) Level() int {
	return t.level
}

// Floor returns the first symbol of the current level; passing it to Find
// restricts the search to the current level.
func (t *Table) Floor() Ref {
	return t.floors[len(t.floors)-1]
}

// Global is the floor that makes Find search every level, universe
// included.
func (t *Table) Global() Ref {
	return 1
}

// Enter raises the static level by one. Symbols added from now on belong
// to the new level.
func (t *Table) Enter() {
	t.level++
	t.floors = append(t.floors, Ref(len(t.syms)))
	log.Debugf("pcb: enter level %d at symbol %d", t.level, len(t.syms))
}

func (t *Table) Leave() {
	t.level--
	t.floors = t.floors[:len(t.floors)-1]
	log.Debugf("pcb: leave to level %d", t.level)
}

func (t *Table) Mark() Mark {
	return Mark{Syms: len(t.syms), Arena: len(t.arena)}
}

// Release truncates the table and the arena back to m.
func (t *Table) Release(m Mark) {
	log.Debugf("pcb: release %d symbols, %d name bytes", len(t.syms)-m.Syms, len(t.arena)-m.Arena)
	t.syms = t.syms[:m.Syms]
	t.arena = t.arena[:m.Arena]
}

func (t *Table) matches(r Ref, name []byte) bool {
	s := &t.syms[r]
	return int(s.nameLen) == len(name) &&
		bytes.EqualFold(t.arena[s.nameOff:s.nameOff+s.nameLen], name)
}

// Find searches name case-insensitively from the newest symbol back to
// floor. Record fields are never found here.
func (t *Table) Find(name string, floor Ref) Ref {
	if name == "" {
		return Nil
	}
	n := []byte(name)
	for r := Ref(len(t.syms) - 1); r >= floor && r > Nil; r-- {
		if t.syms[r].Kind != KindField && t.matches(r, n) {
			return r
		}
	}
	return Nil
}

// Lookup is Find preceded by a search of the fields of the record type
// owner, if any.
func (t *Table) Lookup(name string, floor, owner Ref) Ref {
	if owner != Nil {
		if f := t.Field(owner, name); f != Nil {
			return f
		}
	}
	return t.Find(name, floor)
}

// Field returns the field called name of record type rec.
func (t *Table) Field(rec Ref, name string) Ref {
	ti := t.Type(rec)
	if ti == nil || ti.Base != KindRecord {
		return Nil
	}
	n := []byte(name)
	for f := ti.Index; f != Nil; f = t.FieldInfo(f).Next {
		if t.matches(f, n) {
			return f
		}
	}
	return Nil
}

// Fields returns the fields of record type rec in declaration order.
func (t *Table) Fields(rec Ref) []Ref {
	var fs []Ref
	ti := t.Type(rec)
	if ti == nil || ti.Base != KindRecord {
		return nil
	}
	for f := ti.Index; f != Nil; f = t.FieldInfo(f).Next {
		fs = append(fs, f)
	}
	return fs
}

func (t *Table) AddType(name string, ti *TypeInfo) Ref {
	return t.Add(name, KindType, ti)
}

// AddConst adds a constant whose kind is the kind of its value.
func (t *Table) AddConst(name string, v Value, typ Ref) Ref {
	return t.Add(name, v.Kind, &ConstInfo{Value: v, Type: typ})
}

// AddVar adds a variable of type vi.Type. Its kind is the form of that
// type, or KindVarParam for VAR parameters.
func (t *Table) AddVar(name string, vi *VarInfo) Ref {
	kind := t.Form(vi.Type)
	if vi.Flags&VarParam != 0 {
		kind = KindVarParam
	}
	return t.Add(name, kind, vi)
}

func (t *Table) AddProc(name string, pi *ProcInfo) Ref {
	kind := KindProcedure
	if pi.Result != Nil {
		kind = KindFunction
	}
	return t.Add(name, kind, pi)
}

func (t *Table) AddField(name string, fi *FieldInfo) Ref {
	return t.Add(name, KindField, fi)
}

func (t *Table) AddLabel(name string, li *LabelInfo) Ref {
	return t.Add(name, KindLabel, li)
}

func (t *Table) AddUnit(name string, ui *UnitInfo) Ref {
	return t.Add(name, KindUnit, ui)
}

// Payload accessors return nil when r carries a different variant.

func (t *Table) Type(r Ref) *TypeInfo {
	ti, _ := t.syms[r].Payload.(*TypeInfo)
	return ti
}

func (t *Table) Const(r Ref) *ConstInfo {
	ci, _ := t.syms[r].Payload.(*ConstInfo)
	return ci
}

func (t *Table) Var(r Ref) *VarInfo {
	vi, _ := t.syms[r].Payload.(*VarInfo)
	return vi
}

func (t *Table) Proc(r Ref) *ProcInfo {
	pi, _ := t.syms[r].Payload.(*ProcInfo)
	return pi
}

func (t *Table) FieldInfo(r Ref) *FieldInfo {
	fi, _ := t.syms[r].Payload.(*FieldInfo)
	return fi
}

func (t *Table) Label(r Ref) *LabelInfo {
	li, _ := t.syms[r].Payload.(*LabelInfo)
	return li
}

func (t *Table) Unit(r Ref) *UnitInfo {
	ui, _ := t.syms[r].Payload.(*UnitInfo)
	return ui
}

// TypeOf returns the type of a variable, constant, field or function.
func (t *Table) TypeOf(r Ref) Ref {
	switch p := t.syms[r].Payload.(type) {
	case *TypeInfo:
		return r
	case *VarInfo:
		return p.Type
	case *ConstInfo:
		return p.Type
	case *FieldInfo:
		return p.Type
	case *ProcInfo:
		return p.Result
	case *LabelInfo, *UnitInfo, nil:
		return Nil
	}
	return Nil
}
