// Package pcp contains the parser of the Pascal compiler.
//
// Parser pulls tokens from a pcs.Source, keeps declarations in a pcb.Table
// and emits stack-machine code through a pcg.Emitter. There is no syntax
// tree: each construct is checked and translated in the call that parses
// it. The parser performs type checking and data allocation.
package pcp

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fzipp/pascal-compiler/diag"
	"github.com/fzipp/pascal-compiler/pcb"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcs"
)

// Options configure a compilation.
type Options struct {
	// Reporter receives the diagnostics; it should be the one the token
	// source reports to. A new one is created if nil.
	Reporter     *diag.Reporter
	MaxErrors    int // error ceiling of a new Reporter
	Capacity     int // symbol table capacity
	MaxInits     int // deferred initializers per block
	MaxUnitDepth int // nesting of uses clauses
	Arch         string
	RangeChecks  bool
}

func DefaultOptions() Options {
	return Options{
		MaxErrors:    diag.DefaultMaxErrors,
		Capacity:     pcb.DefaultCapacity,
		MaxInits:     256,
		MaxUnitDepth: 8,
		Arch:         pcg.Arch,
	}
}

// Result describes a finished compilation.
type Result struct {
	Name     string
	Kind     pcg.FileKind
	Errors   int
	Warnings int
	Table    *pcb.Table
	Reporter *diag.Reporter
}

// stack layout
const (
	wordSize     = pcb.WordSize
	returnOrigin = 12 // offset of the parameter nearest to the frame base
)

type Parser struct {
	src   pcs.Source
	tok   pcs.Token
	sym   pcs.Sym
	ahead []pcs.Token // read by peek, not yet current
	rep   *diag.Reporter
	tab   *pcb.Table
	em    pcg.Emitter
	opts  Options

	labels    int64 // last code label allocated
	frame     int64 // data allocated in the current block
	exitLabel int64
	ptrFwd    []ptrBase // pointer types awaiting their base
	inTypes   bool
	inits     []initEntry
	initFloor int
	with      withContext

	kind      pcg.FileKind
	name      string
	exporting bool     // declarations go to a unit interface
	units     []string // used units; segment k is units[k-1]
	segment   int      // segment of the unit whose interface is being read
	unitDepth int
}

type ptrBase struct {
	name string
	typ  pcb.Ref
	pos  diag.Pos
}

func NewParser(src pcs.Source, em pcg.Emitter, opts Options) *Parser {
	def := DefaultOptions()
	if opts.MaxInits <= 0 {
		opts.MaxInits = def.MaxInits
	}
	if opts.MaxUnitDepth <= 0 {
		opts.MaxUnitDepth = def.MaxUnitDepth
	}
	if opts.Arch == "" {
		opts.Arch = def.Arch
	}
	rep := opts.Reporter
	if rep == nil {
		rep = diag.NewReporter(opts.MaxErrors)
	}
	return &Parser{
		src:  src,
		rep:  rep,
		tab:  pcb.NewTable(opts.Capacity, rep),
		em:   em,
		opts: opts,
	}
}

func (p *Parser) next() {
	if len(p.ahead) > 0 {
		p.tok, p.ahead = p.ahead[0], p.ahead[1:]
	} else {
		p.tok = p.src.Next()
	}
	p.sym = p.tok.Sym
}

// peek returns the n-th token after the current one without consuming it.
func (p *Parser) peek(n int) pcs.Token {
	for len(p.ahead) < n {
		p.ahead = append(p.ahead, p.src.Next())
	}
	return p.ahead[n-1]
}

func (p *Parser) mark(format string, args ...any) {
	p.rep.Errorf(p.tok.Pos, format, args...)
}

func (p *Parser) warn(format string, args ...any) {
	p.rep.Warnf(p.tok.Pos, format, args...)
}

func (p *Parser) fatal(format string, args ...any) {
	p.rep.Fatalf(p.tok.Pos, format, args...)
}

// check consumes s or reports its absence, assuming it was present.
func (p *Parser) check(s pcs.Sym, msg string) {
	if p.sym == s {
		p.next()
	} else {
		p.mark("%s", msg)
	}
}

func (p *Parser) ident() (string, bool) {
	if p.sym != pcs.SymIdent {
		p.mark("identifier expected")
		return "", false
	}
	id := p.tok.Id
	p.next()
	return id, true
}

// skipTo advances to the next token that can resume parsing.
func (p *Parser) skipTo(stop ...pcs.Sym) {
	for p.sym != pcs.SymEot {
		for _, s := range stop {
			if p.sym == s {
				return
			}
		}
		p.next()
	}
}

func (p *Parser) newLabel() int64 {
	p.labels++
	return p.labels
}

func (p *Parser) put(in pcg.Instr) {
	p.em.Emit(in)
}

func (p *Parser) op(op pcg.Op) {
	p.em.Emit(pcg.Instr{Op: op})
}

func (p *Parser) push(x int64) {
	p.em.Emit(pcg.Instr{Op: pcg.OpPush, A: x})
}

func (p *Parser) jump(op pcg.Op, label int64) {
	p.em.Emit(pcg.Instr{Op: op, A: label})
}

func (p *Parser) place(label int64) {
	p.em.Emit(pcg.Instr{Op: pcg.OpLabel, A: label})
}

func (p *Parser) lib(c pcg.LibCode) {
	p.em.Emit(pcg.Instr{Op: pcg.OpLib, A: int64(c)})
}

func (p *Parser) io(c pcg.IOCode, nfmt int) {
	p.em.Emit(pcg.Instr{Op: pcg.OpIO, A: int64(c), B: int64(nfmt)})
}

func (p *Parser) offset(n int64) {
	if n != 0 {
		p.em.Emit(pcg.Instr{Op: pcg.OpOffset, A: n})
	}
}

// pushString pushes a string constant held in read-only data.
func (p *Parser) pushString(s string) {
	off := p.em.Data([]byte(s))
	p.put(pcg.Instr{Op: pcg.OpPushStr, A: off, B: int64(len(s))})
}

// pushValue pushes a compile-time value.
func (p *Parser) pushValue(v pcb.Value) {
	switch v.Kind {
	case pcb.KindReal:
		p.put(pcg.Instr{Op: pcg.OpPushReal, R: v.Real})
	case pcb.KindStringConst:
		p.pushString(v.Str)
	case pcb.KindSet:
		off := p.em.Data(v.SetBytes())
		p.put(pcg.Instr{Op: pcg.OpPushSet, A: off})
	default:
		p.push(v.Int)
	}
}

// width is the operand size of a value of type typ.
func (p *Parser) width(typ pcb.Ref) int {
	switch p.tab.Class(typ) {
	case pcb.ClassReal:
		return 8
	case pcb.ClassSet:
		return pcb.SetSize
	case pcb.ClassString, pcb.ClassPointer, pcb.ClassFile:
		return wordSize
	}
	if s := p.tab.SizeOf(p.tab.Host(typ)); s > 0 && s <= 8 {
		return int(s)
	}
	return wordSize
}

func align(n int64) int64 {
	return (n + wordSize - 1) / wordSize * wordSize
}

// Compile translates the program or unit delivered by src. Errors are
// recorded in the reporter; the returned error summarizes them. A fatal
// diagnostic stops the compilation at once.
func Compile(src pcs.Source, em pcg.Emitter, opts Options) (res *Result, err error) {
	p := NewParser(src, em, opts)
	res = &Result{Table: p.tab, Reporter: p.rep}
	defer func() {
		res.Name = p.name
		res.Kind = p.kind
		res.Errors = p.rep.ErrorCount()
		res.Warnings = p.rep.WarningCount()
		if rec := recover(); rec != nil {
			abort, ok := rec.(*diag.Abort)
			if !ok {
				panic(rec)
			}
			err = errors.Wrap(abort, "compilation aborted")
			return
		}
		if res.Errors > 0 {
			err = errors.Errorf("%s: %d error(s)", p.name, res.Errors)
		}
	}()
	p.compilationUnit()
	return res, nil
}

func (p *Parser) compilationUnit() {
	p.next()
	switch p.sym {
	case pcs.SymUnit:
		p.unit()
	default:
		p.program()
	}
	log.Debugf("pcp: compiled %s %s, %d symbols", p.kind, p.name, p.tab.Len())
}

func (p *Parser) program() {
	p.kind = pcg.KindProgram
	p.name = "main"
	if p.sym == pcs.SymProgram {
		p.next()
		if id, ok := p.ident(); ok {
			p.name = id
		}
		if p.sym == pcs.SymLparen {
			// program parameters name the standard files
			for {
				p.next()
				p.ident()
				if p.sym != pcs.SymComma {
					break
				}
			}
			p.check(pcs.SymRparen, ") missing")
		}
		p.check(pcs.SymSemicolon, "; missing")
	}
	entry := p.newLabel()
	p.em.Begin(pcg.Header{Kind: pcg.KindProgram, Name: p.name, Arch: p.opts.Arch, Entry: entry})
	p.usesClause()
	p.block(entry, 0)
	if p.sym != pcs.SymPeriod {
		p.mark("period missing")
	}
}
