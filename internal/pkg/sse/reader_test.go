package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, lr *LineReader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestLineReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "data lines with blank separators",
			input: "data: {\"type\":\"a\"}\n\ndata: {\"type\":\"b\"}\n\n",
			want:  []string{`data: {"type":"a"}`, "", `data: {"type":"b"}`, ""},
		},
		{
			name:  "crlf line endings",
			input: "data: x\r\n: keep-alive\r\n",
			want:  []string{"data: x", ": keep-alive"},
		},
		{
			name:  "final line without newline",
			input: "event: message\ndata: tail",
			want:  []string{"event: message", "data: tail"},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(tt.input), 0)
			assert.Equal(t, tt.want, readAll(t, lr))
		})
	}
}

func TestLineReaderTooLong(t *testing.T) {
	long := strings.Repeat("x", 64)
	input := "data: short\ndata: " + long + "\ndata: after\n"

	lr := NewLineReader(strings.NewReader(input), 32)

	line, err := lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "data: short", line)

	_, err = lr.ReadLine()
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err = lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "data: after", line)

	_, err = lr.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestLineReaderPropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset by peer")
	lr := NewLineReader(failingReader{err: boom}, 0)

	_, err := lr.ReadLine()
	assert.ErrorIs(t, err, boom)
}
