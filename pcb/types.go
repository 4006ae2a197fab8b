package pcb

import (
	"fmt"

	"github.com/fzipp/pascal-compiler/diag"
)

// Kind tags a symbol. For type symbols it is KindType and the form of the
// type is TypeInfo.Base; variables and constants carry the form of their
// type.
type Kind uint8

const (
	KindNone Kind = iota
	KindProcedure
	KindFunction
	KindLabel
	KindType
	KindFile
	KindText
	KindInteger
	KindBoolean
	KindChar
	KindReal
	KindString
	KindShortString
	KindPointer
	KindScalar
	KindScalarMember
	KindSubrange
	KindSet
	KindArray
	KindRecord
	KindField
	KindVarParam
	KindStringConst
	KindUnit
)

var kindNames = [...]string{
	KindNone: "none", KindProcedure: "procedure", KindFunction: "function",
	KindLabel: "label", KindType: "type", KindFile: "file", KindText: "text",
	KindInteger: "integer", KindBoolean: "boolean", KindChar: "char",
	KindReal: "real", KindString: "string", KindShortString: "short string",
	KindPointer: "pointer", KindScalar: "scalar", KindScalarMember: "scalar member",
	KindSubrange: "subrange", KindSet: "set", KindArray: "array",
	KindRecord: "record", KindField: "field", KindVarParam: "var parameter",
	KindStringConst: "string constant", KindUnit: "unit",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Payload is one of *TypeInfo, *ConstInfo, *VarInfo, *ProcInfo,
// *FieldInfo, *LabelInfo and *UnitInfo.
type Payload interface {
	payload()
}

// Type flags.
const (
	TypePacked uint8 = 1 << iota
	TypeUnsigned
	TypeIncomplete // pointer whose target is declared later
	TypeClamped    // set type narrowed to the set width
)

// TypeInfo describes a type.
//
//	Base          Parent            Index              Min/Max
//	--------------------------------------------------------------------
//	integer       -                 -                  value range
//	subrange      host type         -                  bounds
//	scalar        -                 -                  0..n-1
//	pointer       target            -                  -
//	set           element type      -                  element bounds
//	file          component type    -                  -
//	array         element type      first index entry  -
//	index entry   index type        next index entry   bounds, Stride
//	record        -                 first field        -
//	shortstring   -                 -                  Max = capacity
type TypeInfo struct {
	Base   Kind
	Sub    Kind
	Flags  uint8
	Dims   int
	Fields int
	Size   int64
	Stride int64
	Min    int64
	Max    int64
	Parent Ref
	Index  Ref
}

type ConstInfo struct {
	Value Value
	Type  Ref
}

// Variable flags.
const (
	VarParam uint8 = 1 << iota // passed by reference
	VarValueParam
	VarResult // function result pseudo-variable
	VarGlobal
	VarExternal
	VarTyped // typed constant
)

type VarInfo struct {
	Flags   uint8
	Unit    int64 // file transfer unit
	Offset  int64
	Size    int64
	Type    Ref
	Owner   Ref // function owning a result variable
	Segment int // data segment of a variable imported from a unit, 0 otherwise
}

// Procedure flags.
const (
	ProcStandard uint8 = 1 << iota
	ProcForward
	ProcExternal
	ProcExported
)

// Param is a formal parameter descriptor.
type Param struct {
	Name  string
	IsVar bool
	Type  Ref
}

type ProcInfo struct {
	Entry     int64 // code label
	Params    []Param
	Flags     uint8
	Result    Ref
	Code      int // built-in code for standard procedures
	ParamSize int64
}

type FieldInfo struct {
	Size   int64
	Offset int64
	Record Ref
	Type   Ref
	Next   Ref
}

type LabelInfo struct {
	Number     int64
	Target     int64 // code label
	Defined    bool
	Referenced bool
	Pos        diag.Pos // declaration
}

type UnitInfo struct {
	Index int
}

func (*TypeInfo) payload()  {}
func (*ConstInfo) payload() {}
func (*VarInfo) payload()   {}
func (*ProcInfo) payload()  {}
func (*FieldInfo) payload() {}
func (*LabelInfo) payload() {}
func (*UnitInfo) payload()  {}

// Class is the coarse type of an expression.
type Class uint8

const (
	ClassNone Class = iota
	ClassInteger
	ClassChar
	ClassBoolean
	ClassReal
	ClassScalar
	ClassString
	ClassSet
	ClassRecord
	ClassArray
	ClassPointer
	ClassFile
	ClassAny
)

var classNames = [...]string{
	ClassNone: "none", ClassInteger: "integer", ClassChar: "char",
	ClassBoolean: "boolean", ClassReal: "real", ClassScalar: "scalar",
	ClassString: "string", ClassSet: "set", ClassRecord: "record",
	ClassArray: "array", ClassPointer: "pointer", ClassFile: "file",
	ClassAny: "any",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Form returns the form of type typ, KindNone for Nil.
func (t *Table) Form(typ Ref) Kind {
	if typ == Nil {
		return KindNone
	}
	ti := t.Type(typ)
	if ti == nil {
		return KindNone
	}
	return ti.Base
}

// Host strips subranges off typ.
func (t *Table) Host(typ Ref) Ref {
	for i := 0; typ != Nil && i < 64; i++ {
		ti := t.Type(typ)
		if ti == nil || ti.Base != KindSubrange {
			break
		}
		typ = ti.Parent
	}
	return typ
}

func (t *Table) Class(typ Ref) Class {
	switch t.Form(t.Host(typ)) {
	case KindInteger:
		return ClassInteger
	case KindChar:
		return ClassChar
	case KindBoolean:
		return ClassBoolean
	case KindReal:
		return ClassReal
	case KindScalar:
		return ClassScalar
	case KindString, KindShortString:
		return ClassString
	case KindSet:
		return ClassSet
	case KindRecord:
		return ClassRecord
	case KindArray:
		return ClassArray
	case KindPointer:
		return ClassPointer
	case KindFile, KindText:
		return ClassFile
	case KindNone:
		return ClassAny
	}
	return ClassNone
}

func (t *Table) IsOrdinal(typ Ref) bool {
	switch t.Class(typ) {
	case ClassInteger, ClassChar, ClassBoolean, ClassScalar:
		return true
	}
	return false
}

// Bounds returns the smallest and largest ordinal of typ.
func (t *Table) Bounds(typ Ref) (lo, hi int64) {
	ti := t.Type(typ)
	if ti == nil {
		return 0, 0
	}
	switch ti.Base {
	case KindChar:
		return 0, 255
	case KindBoolean:
		return 0, 1
	}
	return ti.Min, ti.Max
}

// ElemCount returns the number of values of ordinal type typ.
func (t *Table) ElemCount(typ Ref) int64 {
	lo, hi := t.Bounds(typ)
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

func (t *Table) SizeOf(typ Ref) int64 {
	if ti := t.Type(typ); ti != nil {
		return ti.Size
	}
	return 0
}

// IsCharArray reports whether typ is a one-dimensional array of char.
func (t *Table) IsCharArray(typ Ref) bool {
	ti := t.Type(typ)
	return ti != nil && ti.Base == KindArray && ti.Dims == 1 && t.Class(ti.Parent) == ClassChar
}

// NeedsInit reports whether variables of type typ need run-time setup at
// block entry: strings, files, and arrays or records containing them.
func (t *Table) NeedsInit(typ Ref) bool {
	return t.needsInit(typ, 0)
}

func (t *Table) needsInit(typ Ref, depth int) bool {
	ti := t.Type(typ)
	if ti == nil || depth > 32 {
		return false
	}
	switch ti.Base {
	case KindString, KindShortString, KindFile, KindText:
		return true
	case KindArray:
		return t.needsInit(ti.Parent, depth+1)
	case KindRecord:
		for f := ti.Index; f != Nil; f = t.FieldInfo(f).Next {
			if t.needsInit(t.FieldInfo(f).Type, depth+1) {
				return true
			}
		}
	}
	return false
}

// Compatible reports whether a value of type b may be assigned to or
// compared with a value of type a without conversion.
func (t *Table) Compatible(a, b Ref) bool {
	if t.Same(a, b) || a == Nil || b == Nil {
		return true
	}
	ha, hb := t.Host(a), t.Host(b)
	if t.Same(ha, hb) {
		return true
	}
	ca, cb := t.Class(ha), t.Class(hb)
	if ca != cb {
		return false
	}
	switch ca {
	case ClassInteger, ClassChar, ClassBoolean, ClassReal, ClassString:
		return true
	case ClassPointer:
		pa, pb := t.Type(ha).Parent, t.Type(hb).Parent
		return pa == Nil || pb == Nil || t.Same(pa, pb)
	case ClassSet:
		ea, eb := t.Type(ha).Parent, t.Type(hb).Parent
		return ea == Nil || eb == Nil || t.Compatible(ea, eb)
	case ClassFile:
		return t.Form(ha) == t.Form(hb)
	}
	return false
}

// Same reports whether a and b denote the same type; a type declared as
// another type's name shares its TypeInfo.
func (t *Table) Same(a, b Ref) bool {
	if a == b {
		return true
	}
	ta, tb := t.Type(a), t.Type(b)
	return ta != nil && ta == tb
}
