// Package files contains the binary primitives of the object container:
// fixed-width little-endian integers, compact variable-length integers and
// length-prefixed strings. Writer and Reader keep the first I/O error and
// turn every later call into a no-op, so callers check Err once at the end.
package files

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

var byteOrder = binary.LittleEndian

type Writer struct {
	w   *bufio.Writer
	n   int64
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteByte(b byte) error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.WriteByte(b)
	if w.err == nil {
		w.n++
	}
	return w.err
}

func (w *Writer) WriteBytes(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	w.err = err
}

// WriteInt writes x as four little-endian bytes.
func (w *Writer) WriteInt(x int32) {
	var buf [4]byte
	byteOrder.PutUint32(buf[:], uint32(x))
	w.WriteBytes(buf[:])
}

// WriteReal writes the IEEE 754 bits of x as eight little-endian bytes.
func (w *Writer) WriteReal(x float64) {
	var buf [8]byte
	byteOrder.PutUint64(buf[:], math.Float64bits(x))
	w.WriteBytes(buf[:])
}

// WriteNum writes x in the signed 7-bit group encoding: low groups first,
// bit 7 set on every byte but the last.
func (w *Writer) WriteNum(x int64) {
	for x < -0x40 || x >= 0x40 {
		_ = w.WriteByte(byte(x&0x7F) | 0x80)
		x >>= 7
	}
	_ = w.WriteByte(byte(x & 0x7F))
}

// WriteString writes the length of s followed by its bytes.
func (w *Writer) WriteString(s string) {
	w.WriteNum(int64(len(s)))
	w.WriteBytes([]byte(s))
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int64 {
	return w.n
}

func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

func (w *Writer) Err() error {
	return w.err
}

type Reader struct {
	r   *bufio.Reader
	err error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	var b byte
	b, r.err = r.r.ReadByte()
	return b, r.err
}

func (r *Reader) ReadBytes(n int) []byte {
	if r.err != nil || n < 0 {
		return nil
	}
	buf := make([]byte, n)
	_, r.err = io.ReadFull(r.r, buf)
	return buf
}

func (r *Reader) ReadInt() int32 {
	buf := r.ReadBytes(4)
	if r.err != nil {
		return 0
	}
	return int32(byteOrder.Uint32(buf))
}

func (r *Reader) ReadReal() float64 {
	buf := r.ReadBytes(8)
	if r.err != nil {
		return 0
	}
	return math.Float64frombits(byteOrder.Uint64(buf))
}

func (r *Reader) ReadNum() int64 {
	var x int64
	var s uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0
		}
		x |= int64(b&0x7F) << s
		s += 7
		if b < 0x80 {
			if s < 64 && b&0x40 != 0 {
				x |= -1 << s
			}
			return x
		}
	}
}

func (r *Reader) ReadString() string {
	n := r.ReadNum()
	return string(r.ReadBytes(int(n)))
}

func (r *Reader) Err() error {
	return r.err
}
