package pcg

import "fmt"

// LibCode selects a run-time library routine of OpLib.
type LibCode int

// Arguments are pushed left to right; routines producing a value leave it
// on the stack.
const (
	LibStrMark     LibCode = 1 + iota // remember the string buffer stack
	LibStrRelease                     // pop string buffers to the last mark
	LibStrAlloc                       // (a cap n stride -- ) allocate n buffers into the handles from a on
	LibStrAssign                      // (a s cap -- ) copy string s into the handle at a
	LibStrFromChar                    // (c -- s)
	LibStrFromArray                   // (a n -- s) char array as string
	LibArrayAssign                    // (a s n -- ) copy string s into a char array of n bytes
	LibConcat                         // (s t -- u)
	LibLength
	LibCopy
	LibPos
	LibDelete
	LibInsert
	LibUpcase
	LibStr
	LibVal
	LibBlockCopy // (dst src n -- )
	LibPushBlock // (src n -- block) push a copy of n bytes at src
	LibInclude   // (a i -- ) set at a
	LibExclude
	LibNew     // (a n -- ) allocate n bytes into the pointer at a
	LibDispose // (a -- )
	LibHalt
	LibParamCount
	LibParamStr
	LibSqrt
	LibSin
	LibCos
	LibArctan
	LibLn
	LibExp
	LibFileAlloc // (a n stride -- ) allocate file numbers into n files from a on
	LibFileFree  // (a n stride -- )
)

var libNames = [...]string{
	LibStrMark: "strmark", LibStrRelease: "strrelease", LibStrAlloc: "stralloc",
	LibStrAssign: "strassign", LibStrFromChar: "strchar", LibStrFromArray: "strarray",
	LibArrayAssign: "arrassign", LibConcat: "concat",
	LibLength: "length", LibCopy: "copy", LibPos: "pos", LibDelete: "delete",
	LibInsert: "insert", LibUpcase: "upcase", LibStr: "str", LibVal: "val",
	LibBlockCopy: "blockcopy", LibPushBlock: "pushblock", LibInclude: "include", LibExclude: "exclude",
	LibNew: "new", LibDispose: "dispose", LibHalt: "halt",
	LibParamCount: "paramcount", LibParamStr: "paramstr", LibSqrt: "sqrt",
	LibSin: "sin", LibCos: "cos", LibArctan: "arctan", LibLn: "ln", LibExp: "exp",
	LibFileAlloc: "filealloc", LibFileFree: "filefree",
}

func (c LibCode) String() string {
	if c > 0 && int(c) < len(libNames) {
		return libNames[c]
	}
	return fmt.Sprintf("lib(%d)", int(c))
}

// IOCode selects an I/O routine of OpIO. A transfer statement starts with
// IOSelect, which pops the address of the file variable (0 for the standard
// files), and ends with IOEnd.
type IOCode int

const (
	IOSelect IOCode = 1 + iota
	IOEnd
	IOWriteInt  // (x [width] -- )
	IOWriteReal // (r [width [prec]] -- )
	IOWriteChar
	IOWriteBool
	IOWriteStr
	IOWriteln
	IOReadInt // (a -- )
	IOReadReal
	IOReadChar
	IOReadStr
	IOReadln
	IOAssign // (a s -- )
	IOReset  // (a -- )
	IORewrite
	IOAppend
	IOClose
	IOEof  // (a -- b)
	IOEoln // (a -- b)
)

var ioNames = [...]string{
	IOSelect: "select", IOEnd: "end", IOWriteInt: "wint", IOWriteReal: "wreal",
	IOWriteChar: "wchar", IOWriteBool: "wbool", IOWriteStr: "wstr",
	IOWriteln: "wln", IOReadInt: "rint", IOReadReal: "rreal",
	IOReadChar: "rchar", IOReadStr: "rstr", IOReadln: "rln", IOAssign: "assign",
	IOReset: "reset", IORewrite: "rewrite", IOAppend: "append", IOClose: "close",
	IOEof: "eof", IOEoln: "eoln",
}

func (c IOCode) String() string {
	if c > 0 && int(c) < len(ioNames) {
		return ioNames[c]
	}
	return fmt.Sprintf("io(%d)", int(c))
}
