package pcg

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Code is an Emitter that keeps everything in memory.
type Code struct {
	Header  Header
	Instrs  []Instr
	RoData  []byte
	Imports []Import
	Exports []Export
}

func NewCode() *Code {
	return &Code{}
}

func (c *Code) Begin(h Header) {
	if h.Arch == "" {
		h.Arch = Arch
	}
	c.Header = h
}

func (c *Code) Emit(in Instr) {
	c.Instrs = append(c.Instrs, in)
}

// Data appends b to the read-only data. Identical blocks are stored once.
func (c *Code) Data(b []byte) int64 {
	if len(b) > 0 {
		if i := bytes.Index(c.RoData, b); i >= 0 {
			return int64(i)
		}
	}
	off := len(c.RoData)
	c.RoData = append(c.RoData, b...)
	return int64(off)
}

func (c *Code) Import(imp Import) {
	c.Imports = append(c.Imports, imp)
}

func (c *Code) Export(exp Export) {
	c.Exports = append(c.Exports, exp)
}

// Str returns the read-only data slice at offset off of length n.
func (c *Code) Str(off, n int64) string {
	if off < 0 || off+n > int64(len(c.RoData)) {
		return ""
	}
	return string(c.RoData[off : off+n])
}

// Labels maps each placed label to the index of its OpLabel instruction.
// It fails on a label placed twice or a jump or call to a label that is
// neither placed nor imported.
func (c *Code) Labels() (map[int64]int, error) {
	labels := make(map[int64]int)
	for i, in := range c.Instrs {
		if in.Op != OpLabel {
			continue
		}
		if _, dup := labels[in.A]; dup {
			return nil, errors.Errorf("label L%d placed twice", in.A)
		}
		labels[in.A] = i
	}
	imported := make(map[int64]bool)
	for _, imp := range c.Imports {
		imported[imp.Label] = true
	}
	if _, ok := labels[c.Header.Entry]; !ok && len(c.Instrs) > 0 {
		return nil, errors.Errorf("entry label L%d not placed", c.Header.Entry)
	}
	for i, in := range c.Instrs {
		switch in.Op {
		case OpJmp, OpJz, OpJnz, OpCall:
			if _, ok := labels[in.A]; !ok && !imported[in.A] {
				return nil, errors.Errorf("instruction %d: undefined label L%d", i, in.A)
			}
		}
	}
	return labels, nil
}

// Listing renders the object as text.
func (c *Code) Listing() string {
	var sb strings.Builder
	h := c.Header
	fmt.Fprintf(&sb, "%s %s arch=%s entry=L%d\n", h.Kind, h.Name, h.Arch, h.Entry)
	for _, imp := range c.Imports {
		fmt.Fprintf(&sb, "import %s.%s %s L%d\n", imp.Unit, imp.Name, imp.Kind, imp.Label)
	}
	for _, exp := range c.Exports {
		fmt.Fprintf(&sb, "export %s %s %d size %d\n", exp.Name, exp.Kind, exp.Value, exp.Size)
	}
	if len(c.RoData) > 0 {
		fmt.Fprintf(&sb, "rodata %d bytes %q\n", len(c.RoData), c.RoData)
	}
	for i, in := range c.Instrs {
		if in.Op == OpLabel {
			fmt.Fprintf(&sb, "%s\n", in)
			continue
		}
		fmt.Fprintf(&sb, "%6d  %s\n", i, in)
	}
	return sb.String()
}

// Count returns how many instructions have opcode op.
func (c *Code) Count(op Op) int {
	n := 0
	for _, in := range c.Instrs {
		if in.Op == op {
			n++
		}
	}
	return n
}
