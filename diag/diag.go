// Package diag collects the diagnostics of a compilation.
//
// Three severities exist. A warning is recorded and compilation goes on.
// An error is recorded and counted; the parser recovers locally by assuming
// the expected token was present. A fatal diagnostic aborts the compilation
// immediately by panicking with an *Abort, which pcp.Compile recovers.
// Errors accumulate against a ceiling; exceeding it escalates to fatal.
package diag

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultMaxErrors is the error ceiling used when none is configured.
const DefaultMaxErrors = 25

type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Pos is a source position. Line and Col are 1-based; the zero Pos means
// "no position".
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	switch {
	case !p.IsValid():
		return p.File
	case p.File == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

type Diagnostic struct {
	Severity Severity
	Pos      Pos
	Msg      string
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() || d.Pos.File != "" {
		return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Msg)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Msg)
}

// Abort is the panic value of a fatal diagnostic.
type Abort struct {
	Diagnostic
}

func (a *Abort) Error() string {
	return a.Diagnostic.String()
}

// Reporter records diagnostics and enforces the error ceiling.
type Reporter struct {
	MaxErrors int

	list     []Diagnostic
	errCnt   int
	warnCnt  int
	errPos   Pos
	hasError bool
}

func NewReporter(maxErrors int) *Reporter {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &Reporter{MaxErrors: maxErrors}
}

func (r *Reporter) Warnf(pos Pos, format string, args ...any) {
	d := Diagnostic{Severity: Warning, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	r.warnCnt++
	r.list = append(r.list, d)
	log.WithField("pos", pos.String()).Warn(d.Msg)
}

// Errorf records an error. An error at the same position as the previous
// one is counted but not recorded again, so one malformed construct yields
// one message.
func (r *Reporter) Errorf(pos Pos, format string, args ...any) {
	r.errCnt++
	if !r.hasError || pos != r.errPos {
		d := Diagnostic{Severity: Error, Pos: pos, Msg: fmt.Sprintf(format, args...)}
		r.list = append(r.list, d)
		log.WithField("pos", pos.String()).Error(d.Msg)
	}
	r.errPos = pos
	r.hasError = true
	if r.errCnt > r.MaxErrors {
		r.Fatalf(pos, "too many errors (%d)", r.errCnt)
	}
}

// Fatalf records a fatal diagnostic and aborts the compilation.
func (r *Reporter) Fatalf(pos Pos, format string, args ...any) {
	d := Diagnostic{Severity: Fatal, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	r.list = append(r.list, d)
	log.WithField("pos", pos.String()).Error(d.Msg)
	panic(&Abort{Diagnostic: d})
}

func (r *Reporter) ErrorCount() int {
	return r.errCnt
}

func (r *Reporter) WarningCount() int {
	return r.warnCnt
}

// Diagnostics returns the recorded diagnostics in order of occurrence.
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.list
}

// Count returns how many recorded diagnostics have severity s.
func (r *Reporter) Count(s Severity) int {
	n := 0
	for _, d := range r.list {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Summary renders all diagnostics followed by a count line. It is empty
// when nothing was recorded.
func (r *Reporter) Summary() string {
	if len(r.list) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range r.list {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%d error(s), %d warning(s)\n", r.errCnt, r.warnCnt)
	return sb.String()
}
