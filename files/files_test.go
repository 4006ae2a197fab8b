package files

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumEncoding(t *testing.T) {
	cases := []struct {
		x   int64
		enc []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7F}},
		{63, []byte{0x3F}},
		{64, []byte{0xC0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xBF, 0x7F}},
		{300, []byte{0xAC, 0x02}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		w.WriteNum(c.x)
		require.NoError(t, w.Flush())
		assert.Equal(t, c.enc, buf.Bytes(), "encoding of %d", c.x)

		r := NewReader(&buf)
		assert.Equal(t, c.x, r.ReadNum(), "decoding of %d", c.x)
		assert.NoError(t, r.Err())
	}
}

func TestWriterReaderSequence(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteInt(-2)
	w.WriteReal(2.5)
	w.WriteString("hello")
	w.WriteNum(1 << 40)
	require.NoError(t, w.Flush())
	assert.EqualValues(t, buf.Len(), w.Len())

	r := NewReader(&buf)
	assert.Equal(t, int32(-2), r.ReadInt())
	assert.Equal(t, 2.5, r.ReadReal())
	assert.Equal(t, "hello", r.ReadString())
	assert.Equal(t, int64(1<<40), r.ReadNum())
	require.NoError(t, r.Err())

	_, err := r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int32(0), r.ReadInt())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriterKeepsFirstError(t *testing.T) {
	w := NewWriter(failingWriter{})
	w.WriteBytes(make([]byte, 8192))
	w.WriteInt(1)
	assert.EqualError(t, w.Flush(), "disk full")
	assert.EqualError(t, w.Err(), "disk full")
}
