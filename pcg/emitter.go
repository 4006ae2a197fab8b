// Package pcg contains the instruction emitter of the Pascal compiler.
//
// The compiler core produces a stream of stack-machine instructions through
// the Emitter interface. Jump targets are numeric labels allocated by the
// core and placed with OpLabel; resolving them to positions is the
// emitter's business, so the core never backpatches. Code is the in-memory
// emitter: it keeps the stream, renders a listing and writes the
// relocatable object container.
package pcg

import "fmt"

type Op uint8

// Stack effects are given as (before -- after); a is an address, x, y are
// values of the instruction's width.
const (
	OpNop Op = iota

	OpPush     // ( -- A)
	OpPushReal // ( -- R)
	OpPushStr  // ( -- a) address of read-only string A, length B
	OpPushSet  // ( -- s) set image at read-only offset A
	OpPop      // (x -- )
	OpDup      // (x -- x x)
	OpSwap     // (x y -- y x)

	// Level is the static level of a variable; a negative Level -k
	// addresses the data segment of the k-th used unit.
	OpAddr     // ( -- a) address of the variable at offset A, Level
	OpLoad     // ( -- x) variable at offset A, Level
	OpStore    // (x -- ) variable at offset A, Level
	OpLoadInd  // (a -- x)
	OpStoreInd // (a x -- )
	OpIndex    // (a i -- a') a + (i-A)*B
	OpOffset   // (a -- a') a + A
	OpCheck    // (i -- i) trap unless A <= i <= B

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpAbs
	OpSqr
	OpOdd
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpNot

	OpRAdd
	OpRSub
	OpRMul
	OpRDiv
	OpRNeg
	OpRAbs
	OpRSqr
	OpFloat  // (i -- r)
	OpFloat2 // (i x -- r x)
	OpTrunc
	OpRound

	OpSetUnion
	OpSetDiff
	OpSetInter
	OpSetIn     // (i s -- b)
	OpSetSingle // (i -- s)
	OpSetRange  // (lo hi -- s)

	// relations compare in domain B (CmpInt, CmpReal, CmpString, CmpSet)
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpJmp   // jump to label A
	OpJz    // (b -- ) jump to label A if false
	OpJnz   // (b -- ) jump to label A if true
	OpLabel // place label A
	OpCall  // call label A of static level Level
	OpEnter // allocate a frame of A bytes
	OpRet   // return, dropping A bytes of parameters

	OpLib // library routine A
	OpIO  // I/O routine A with B format arguments
)

var opNames = [...]string{
	OpNop: "nop", OpPush: "push", OpPushReal: "pushr", OpPushStr: "pushs",
	OpPushSet: "pushset", OpPop: "pop", OpDup: "dup", OpSwap: "swap",
	OpAddr: "addr", OpLoad: "load", OpStore: "store", OpLoadInd: "loadi",
	OpStoreInd: "storei", OpIndex: "index", OpOffset: "offset", OpCheck: "check",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpNeg: "neg", OpAbs: "abs", OpSqr: "sqr", OpOdd: "odd", OpShl: "shl",
	OpShr: "shr", OpAnd: "and", OpOr: "or", OpXor: "xor", OpNot: "not",
	OpRAdd: "radd", OpRSub: "rsub", OpRMul: "rmul", OpRDiv: "rdiv",
	OpRNeg: "rneg", OpRAbs: "rabs", OpRSqr: "rsqr", OpFloat: "float",
	OpFloat2: "float2", OpTrunc: "trunc", OpRound: "round",
	OpSetUnion: "union", OpSetDiff: "diff", OpSetInter: "inter",
	OpSetIn: "in", OpSetSingle: "single", OpSetRange: "range",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpJmp: "jmp", OpJz: "jz", OpJnz: "jnz", OpLabel: "label", OpCall: "call",
	OpEnter: "enter", OpRet: "ret", OpLib: "lib", OpIO: "io",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// comparison domains of the relational operators
const (
	CmpInt = iota
	CmpReal
	CmpString
	CmpSet
	CmpPtr
)

var cmpNames = [...]string{"int", "real", "str", "set", "ptr"}

// Instr is one stack-machine instruction. Width is the operand size in
// bytes for loads, stores and arithmetic.
type Instr struct {
	Op    Op
	Width int
	Level int
	A, B  int64
	R     float64
}

func (in Instr) String() string {
	switch in.Op {
	case OpPush, OpOffset, OpEnter, OpRet:
		return fmt.Sprintf("%-8s%d", in.Op, in.A)
	case OpPushReal:
		return fmt.Sprintf("%-8s%g", in.Op, in.R)
	case OpPushStr:
		return fmt.Sprintf("%-8s@%d,%d", in.Op, in.A, in.B)
	case OpPushSet:
		return fmt.Sprintf("%-8s@%d", in.Op, in.A)
	case OpAddr:
		return fmt.Sprintf("%-8s%d,%d", in.Op, in.Level, in.A)
	case OpLoad, OpStore:
		return fmt.Sprintf("%-8s%d,%d,%d", in.Op, in.Width, in.Level, in.A)
	case OpLoadInd, OpStoreInd:
		return fmt.Sprintf("%-8s%d", in.Op, in.Width)
	case OpIndex, OpCheck:
		return fmt.Sprintf("%-8s%d,%d", in.Op, in.A, in.B)
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		dom := "?"
		if in.B >= 0 && int(in.B) < len(cmpNames) {
			dom = cmpNames[in.B]
		}
		return fmt.Sprintf("%-8s%s", in.Op, dom)
	case OpJmp, OpJz, OpJnz:
		return fmt.Sprintf("%-8sL%d", in.Op, in.A)
	case OpLabel:
		return fmt.Sprintf("L%d:", in.A)
	case OpCall:
		return fmt.Sprintf("%-8sL%d,%d", in.Op, in.A, in.Level)
	case OpLib:
		return fmt.Sprintf("%-8s%s", in.Op, LibCode(in.A))
	case OpIO:
		if in.B != 0 {
			return fmt.Sprintf("%-8s%s,%d", in.Op, IOCode(in.A), in.B)
		}
		return fmt.Sprintf("%-8s%s", in.Op, IOCode(in.A))
	}
	if in.Width != 0 {
		return fmt.Sprintf("%-8s%d", in.Op, in.Width)
	}
	return in.Op.String()
}

type FileKind uint8

const (
	KindProgram FileKind = iota
	KindUnit
)

func (k FileKind) String() string {
	if k == KindUnit {
		return "unit"
	}
	return "program"
}

// Arch is the target architecture tag of the object container.
const Arch = "stack32"

type Header struct {
	Kind  FileKind
	Name  string
	Arch  string
	Entry int64 // label of the main body
}

type SymKind uint8

const (
	SymVar SymKind = iota
	SymProc
)

func (k SymKind) String() string {
	if k == SymProc {
		return "proc"
	}
	return "var"
}

// Import names an entity of another unit used by this one.
type Import struct {
	Unit  string
	Name  string
	Kind  SymKind
	Label int64 // label standing for the entity in this stream
}

// Export names an entity of a unit visible to its users. Value is the
// entry label of a procedure or the offset of a variable.
type Export struct {
	Name  string
	Kind  SymKind
	Value int64
	Size  int64
}

// Emitter receives the output of the compiler core.
type Emitter interface {
	// Begin starts the object; it is called once, before anything else.
	Begin(h Header)
	Emit(in Instr)
	// Data appends b to the read-only data and returns its offset.
	Data(b []byte) int64
	Import(imp Import)
	Export(exp Export)
}
