// Package pcs contains the token source of the Pascal compiler.
//
// The compiler core pulls tokens through the Source interface only. Scanner
// is the lexical analyser used by the driver and the tests: input is Pascal
// text, output is a sequence of tokens, i.e. identifiers, numbers, strings,
// and special symbols. It recognises all Pascal keywords (case-insensitively)
// and skips comments and compiler directives.
package pcs

import (
	"bufio"
	"io"
	"strings"

	"github.com/fzipp/pascal-compiler/diag"
)

const (
	maxExp     = 308
	maxStrLen  = 255
	maxDigits  = 19
	pendingDot = 0x7F // "n.." was read; the ".." is still owed
)

// Token is one lexical symbol. Id is set for identifiers (as written), Int
// for integer literals, Real for real literals and Str for string literals.
type Token struct {
	Sym  Sym
	Id   string
	Int  int64
	Real float64
	Str  string
	Pos  diag.Pos
}

// Source is the token stream consumed by the compiler core.
type Source interface {
	// Next delivers the next token; at the end of input it keeps
	// delivering SymEot.
	Next() Token
	// OpenUnit opens the source of the unit with the given name.
	OpenUnit(name string) (Source, error)
}

// Scanner does lexical analysis of Pascal text read from r.
type Scanner struct {
	file     string
	r        *bufio.Reader
	rep      *diag.Reporter
	resolver Resolver

	ch   byte // last character read
	eot  bool
	line int
	col  int
	pos  diag.Pos // position of the token being scanned
}

func NewScanner(r io.Reader, file string, rep *diag.Reporter) *Scanner {
	if rep == nil {
		rep = diag.NewReporter(0)
	}
	s := &Scanner{
		file: file,
		r:    bufio.NewReader(r),
		rep:  rep,
		line: 1,
	}
	s.nextCh()
	return s
}

// SetResolver installs the resolver used by OpenUnit.
func (s *Scanner) SetResolver(res Resolver) {
	s.resolver = res
}

func (s *Scanner) OpenUnit(name string) (Source, error) {
	if s.resolver == nil {
		return nil, errNoResolver(name)
	}
	r, file, err := s.resolver(name)
	if err != nil {
		return nil, err
	}
	n := NewScanner(r, file, s.rep)
	n.resolver = s.resolver
	return n, nil
}

func (s *Scanner) mark(msg string) {
	s.rep.Errorf(s.pos, "%s", msg)
}

func (s *Scanner) nextCh() {
	if s.eot {
		s.ch = 0
		return
	}
	if s.ch == '\n' {
		s.line++
		s.col = 0
	}
	ch, err := s.r.ReadByte()
	if err != nil {
		s.eot = true
		s.ch = 0
		return
	}
	s.ch = ch
	s.col++
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (s *Scanner) identifier(t *Token) {
	var sb strings.Builder
	for isLetter(s.ch) || isDigit(s.ch) {
		sb.WriteByte(s.ch)
		s.nextCh()
	}
	t.Id = sb.String()
	if kw, ok := keyTab[strings.ToLower(t.Id)]; ok {
		t.Sym = kw
	} else {
		t.Sym = SymIdent
	}
}

// str scans a sequence of quoted strings and #nn character codes, e.g.
// 'it''s'#13#10'done'.
func (s *Scanner) str(t *Token) {
	var sb strings.Builder
	for s.ch == '\'' || s.ch == '#' {
		if s.ch == '\'' {
			s.nextCh()
			for {
				if s.eot || s.ch == '\n' {
					s.mark("unterminated string")
					break
				}
				if s.ch == '\'' {
					s.nextCh()
					if s.ch != '\'' {
						break
					}
				}
				sb.WriteByte(s.ch)
				s.nextCh()
			}
		} else {
			s.nextCh()
			if !isDigit(s.ch) {
				s.mark("character code expected")
				break
			}
			k := 0
			for isDigit(s.ch) {
				k = k*10 + int(s.ch-'0')
				s.nextCh()
			}
			if k > 0xFF {
				s.mark("illegal character code")
				k = 0
			}
			sb.WriteByte(byte(k))
		}
	}
	if sb.Len() > maxStrLen {
		s.mark("string too long")
	}
	t.Sym = SymString
	t.Str = sb.String()
}

func ten(e int) float64 {
	x := 1.0
	t := 10.0
	for e > 0 {
		if e%2 != 0 {
			x = t * x
		}
		t = t * t
		e = e / 2
	}
	return x
}

func (s *Scanner) hexNumber(t *Token) {
	s.nextCh()
	var k uint64
	n := 0
	for {
		var d byte
		switch {
		case isDigit(s.ch):
			d = s.ch - '0'
		case s.ch >= 'A' && s.ch <= 'F':
			d = s.ch - 'A' + 10
		case s.ch >= 'a' && s.ch <= 'f':
			d = s.ch - 'a' + 10
		default:
			if n == 0 {
				s.mark("hex digit expected")
			}
			t.Sym = SymInt
			t.Int = int64(k)
			return
		}
		if n < 16 {
			k = k*16 + uint64(d)
		} else if n == 16 {
			s.mark("too many digits")
		}
		n++
		s.nextCh()
	}
}

func (s *Scanner) number(t *Token) {
	d := make([]byte, 0, maxDigits)
	for isDigit(s.ch) {
		if len(d) < maxDigits {
			d = append(d, s.ch-'0')
		} else if len(d) == maxDigits {
			s.mark("too many digits")
			d = append(d, 0)
		}
		s.nextCh()
	}
	t.Sym = SymInt
	t.Int = s.decimalInteger(d)
	frac := false
	if s.ch == '.' {
		s.nextCh()
		if s.ch == '.' {
			// 1..5: the integer ends here, ".." is delivered next
			s.ch = pendingDot
			return
		}
		frac = true
	}
	if !frac && s.ch != 'e' && s.ch != 'E' {
		return
	}
	x := 0.0
	e := 0
	for _, dd := range d {
		x = x*10.0 + float64(dd)
	}
	if frac {
		if !isDigit(s.ch) {
			s.mark("digit expected")
		}
		for isDigit(s.ch) {
			x = x*10.0 + float64(s.ch-'0')
			e--
			s.nextCh()
		}
	}
	if s.ch == 'e' || s.ch == 'E' {
		s.nextCh()
		neg := false
		if s.ch == '-' {
			neg = true
			s.nextCh()
		} else if s.ch == '+' {
			s.nextCh()
		}
		if isDigit(s.ch) {
			sf := 0
			for isDigit(s.ch) {
				if sf < 10000 {
					sf = sf*10 + int(s.ch-'0')
				}
				s.nextCh()
			}
			if neg {
				e -= sf
			} else {
				e += sf
			}
		} else {
			s.mark("digit?")
		}
	}
	if e < 0 {
		if e >= -maxExp {
			x = x / ten(-e)
		} else {
			x = 0.0
		}
	} else if e > 0 {
		if e <= maxExp {
			x = ten(e) * x
		} else {
			x = 0.0
			s.mark("too large")
		}
	}
	t.Sym = SymReal
	t.Real = x
	t.Int = 0
}

func (s *Scanner) decimalInteger(digits []byte) (k int64) {
	const max = 1<<63 - 1
	for _, d := range digits {
		if k <= (max-int64(d))/10 {
			k = k*10 + int64(d)
		} else {
			s.mark("too large")
			return 0
		}
	}
	return k
}

// comment skips a comment whose opening bracket has been consumed. Brace
// comments end at '}', parenthesis comments at "*)".
func (s *Scanner) comment(brace bool) {
	for !s.eot {
		if brace && s.ch == '}' {
			s.nextCh()
			return
		}
		if !brace && s.ch == '*' {
			s.nextCh()
			if s.ch == ')' {
				s.nextCh()
				return
			}
			continue
		}
		s.nextCh()
	}
	s.mark("unterminated comment")
}

func (s *Scanner) lineComment() {
	for !s.eot && s.ch != '\n' {
		s.nextCh()
	}
}

// Next delivers the next token.
func (s *Scanner) Next() (t Token) {
	for t.Sym == symNull {
		for !s.eot && s.ch <= ' ' && s.ch != pendingDot {
			s.nextCh()
		}
		s.pos = diag.Pos{File: s.file, Line: s.line, Col: s.col}
		t.Pos = s.pos
		if s.eot {
			t.Sym = SymEot
			return t
		}
		switch {
		case isLetter(s.ch):
			s.identifier(&t)
		case isDigit(s.ch):
			s.number(&t)
		default:
			s.special(&t)
		}
	}
	return t
}

func (s *Scanner) special(t *Token) {
	ch := s.ch
	switch ch {
	case pendingDot:
		s.nextCh()
		t.Sym = SymUpto
		return
	case '\'', '#':
		s.str(t)
		return
	case '$':
		s.hexNumber(t)
		return
	case '{':
		s.nextCh()
		s.comment(true)
		return
	}
	s.nextCh()
	switch ch {
	case '(':
		if s.ch == '*' {
			s.nextCh()
			s.comment(false)
			return
		}
		t.Sym = SymLparen
	case ')':
		t.Sym = SymRparen
	case '[':
		t.Sym = SymLbrak
	case ']':
		t.Sym = SymRbrak
	case '*':
		t.Sym = SymTimes
	case '/':
		if s.ch == '/' {
			s.lineComment()
			return
		}
		t.Sym = SymSlash
	case '+':
		t.Sym = SymPlus
	case '-':
		t.Sym = SymMinus
	case ',':
		t.Sym = SymComma
	case ';':
		t.Sym = SymSemicolon
	case '^':
		t.Sym = SymArrow
	case '@':
		t.Sym = SymAt
	case '=':
		t.Sym = SymEql
	case '.':
		if s.ch == '.' {
			s.nextCh()
			t.Sym = SymUpto
		} else {
			t.Sym = SymPeriod
		}
	case ':':
		if s.ch == '=' {
			s.nextCh()
			t.Sym = SymBecomes
		} else {
			t.Sym = SymColon
		}
	case '<':
		switch s.ch {
		case '=':
			s.nextCh()
			t.Sym = SymLeq
		case '>':
			s.nextCh()
			t.Sym = SymNeq
		default:
			t.Sym = SymLss
		}
	case '>':
		if s.ch == '=' {
			s.nextCh()
			t.Sym = SymGeq
		} else {
			t.Sym = SymGtr
		}
	default:
		s.mark("illegal character")
	}
}
