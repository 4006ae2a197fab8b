package pcg

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fzipp/pascal-compiler/files"
)

const (
	objMagic   = "PCO1"
	objTrailer = 'O'
	maxObjLen  = 1 << 24
)

// WriteTo writes the object container:
//
//	magic kind name arch entry
//	rodata
//	imports exports
//	instructions
//	label table
//	trailer
//
// Numbers use the variable-length encoding of package files.
func (c *Code) WriteTo(w io.Writer) (int64, error) {
	labels, err := c.Labels()
	if err != nil {
		return 0, errors.Wrapf(err, "cannot write %s %s", c.Header.Kind, c.Header.Name)
	}
	fw := files.NewWriter(w)
	fw.WriteBytes([]byte(objMagic))
	_ = fw.WriteByte(byte(c.Header.Kind))
	fw.WriteString(c.Header.Name)
	fw.WriteString(c.Header.Arch)
	fw.WriteNum(c.Header.Entry)

	fw.WriteNum(int64(len(c.RoData)))
	fw.WriteBytes(c.RoData)

	fw.WriteNum(int64(len(c.Imports)))
	for _, imp := range c.Imports {
		fw.WriteString(imp.Unit)
		fw.WriteString(imp.Name)
		_ = fw.WriteByte(byte(imp.Kind))
		fw.WriteNum(imp.Label)
	}
	fw.WriteNum(int64(len(c.Exports)))
	for _, exp := range c.Exports {
		fw.WriteString(exp.Name)
		_ = fw.WriteByte(byte(exp.Kind))
		fw.WriteNum(exp.Value)
		fw.WriteNum(exp.Size)
	}

	fw.WriteNum(int64(len(c.Instrs)))
	for _, in := range c.Instrs {
		_ = fw.WriteByte(byte(in.Op))
		_ = fw.WriteByte(byte(in.Width))
		fw.WriteNum(int64(in.Level))
		fw.WriteNum(in.A)
		fw.WriteNum(in.B)
		if in.Op == OpPushReal {
			fw.WriteReal(in.R)
		}
	}

	// label table in stream order
	fw.WriteNum(int64(len(labels)))
	for i, in := range c.Instrs {
		if in.Op == OpLabel {
			fw.WriteNum(in.A)
			fw.WriteNum(int64(i))
		}
	}
	_ = fw.WriteByte(objTrailer)
	if err := fw.Flush(); err != nil {
		return fw.Len(), errors.Wrapf(err, "cannot write %s %s", c.Header.Kind, c.Header.Name)
	}
	log.Debugf("pcg: wrote %s %s: %d instructions, %d bytes", c.Header.Kind, c.Header.Name, len(c.Instrs), fw.Len())
	return fw.Len(), nil
}

// ReadObject reads an object container written by WriteTo.
func ReadObject(r io.Reader) (*Code, error) {
	fr := files.NewReader(r)
	if magic := fr.ReadBytes(len(objMagic)); string(magic) != objMagic {
		if fr.Err() != nil {
			return nil, errors.Wrap(fr.Err(), "cannot read object")
		}
		return nil, errors.Errorf("not an object file (magic %q)", magic)
	}
	c := &Code{}
	kind, _ := fr.ReadByte()
	c.Header.Kind = FileKind(kind)
	c.Header.Name = fr.ReadString()
	c.Header.Arch = fr.ReadString()
	c.Header.Entry = fr.ReadNum()

	n, err := count(fr)
	if err != nil {
		return nil, err
	}
	c.RoData = fr.ReadBytes(n)

	if n, err = count(fr); err != nil {
		return nil, err
	}
	for i := 0; i < n && fr.Err() == nil; i++ {
		var imp Import
		imp.Unit = fr.ReadString()
		imp.Name = fr.ReadString()
		k, _ := fr.ReadByte()
		imp.Kind = SymKind(k)
		imp.Label = fr.ReadNum()
		c.Imports = append(c.Imports, imp)
	}
	if n, err = count(fr); err != nil {
		return nil, err
	}
	for i := 0; i < n && fr.Err() == nil; i++ {
		var exp Export
		exp.Name = fr.ReadString()
		k, _ := fr.ReadByte()
		exp.Kind = SymKind(k)
		exp.Value = fr.ReadNum()
		exp.Size = fr.ReadNum()
		c.Exports = append(c.Exports, exp)
	}

	if n, err = count(fr); err != nil {
		return nil, err
	}
	c.Instrs = make([]Instr, 0, n)
	for i := 0; i < n && fr.Err() == nil; i++ {
		var in Instr
		op, _ := fr.ReadByte()
		w, _ := fr.ReadByte()
		in.Op = Op(op)
		in.Width = int(w)
		in.Level = int(fr.ReadNum())
		in.A = fr.ReadNum()
		in.B = fr.ReadNum()
		if in.Op == OpPushReal {
			in.R = fr.ReadReal()
		}
		c.Instrs = append(c.Instrs, in)
	}

	if n, err = count(fr); err != nil {
		return nil, err
	}
	for i := 0; i < n && fr.Err() == nil; i++ {
		label, at := fr.ReadNum(), fr.ReadNum()
		if at < 0 || at >= int64(len(c.Instrs)) || c.Instrs[at].Op != OpLabel || c.Instrs[at].A != label {
			return nil, errors.Errorf("corrupt label table entry L%d at %d", label, at)
		}
	}
	t, _ := fr.ReadByte()
	if fr.Err() != nil {
		return nil, errors.Wrap(fr.Err(), "cannot read object")
	}
	if t != objTrailer {
		return nil, errors.New("object trailer missing")
	}
	return c, nil
}

func count(fr *files.Reader) (int, error) {
	n := fr.ReadNum()
	if fr.Err() != nil {
		return 0, errors.Wrap(fr.Err(), "cannot read object")
	}
	if n < 0 || n > maxObjLen {
		return 0, errors.Errorf("corrupt object: count %d", n)
	}
	return int(n), nil
}
