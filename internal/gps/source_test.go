package gps

import (
	"io"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

// chunkReader returns one predefined chunk per Read, then io.EOF.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestReaderSourceSplitsLines(t *testing.T) {
	src := NewReaderSource(&chunkReader{chunks: []string{"$GPRMC,1", ",2\r\n$GPGGA", ",3\r\n"}}, 0)

	_, ok := src.ReadLine()
	assert.Assert(t, !ok, "no terminator yet")

	line, ok := src.ReadLine()
	assert.Assert(t, ok)
	assert.Equal(t, string(line), "$GPRMC,1,2\r\n")

	line, ok = src.ReadLine()
	assert.Assert(t, ok)
	assert.Equal(t, string(line), "$GPGGA,3\r\n")

	_, ok = src.ReadLine()
	assert.Assert(t, !ok)
	assert.ErrorIs(t, src.Err(), io.EOF)
}

func TestReaderSourceBufferedLines(t *testing.T) {
	src := NewReaderSource(strings.NewReader("a\nb\nc\n"), 0)
	var got []string
	for i := 0; i < 5; i++ {
		if line, ok := src.ReadLine(); ok {
			got = append(got, string(line))
		}
	}
	assert.DeepEqual(t, got, []string{"a\n", "b\n", "c\n"})
}

func TestReaderSourceDropsOverflow(t *testing.T) {
	src := NewReaderSource(&chunkReader{chunks: []string{"0123456789", "ab\n"}}, 8)

	_, ok := src.ReadLine()
	assert.Assert(t, !ok)
	assert.Equal(t, src.Dropped(), 8)

	_, ok = src.ReadLine()
	assert.Assert(t, !ok, "tail of the dropped run is still unterminated")

	line, ok := src.ReadLine()
	assert.Assert(t, ok)
	assert.Equal(t, string(line), "89ab\n")
}

func TestAbsentSource(t *testing.T) {
	src := Absent()
	for i := 0; i < 3; i++ {
		line, ok := src.ReadLine()
		assert.Assert(t, !ok)
		assert.Assert(t, line == nil)
	}
}
