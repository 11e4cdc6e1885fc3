package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// DefaultMaxLineSize bounds a single line when no size is given.
const DefaultMaxLineSize = 1 << 20

// ErrLineTooLong is returned by ReadLine when a line exceeds the configured
// maximum. The rest of that line is discarded and the reader stays usable.
var ErrLineTooLong = errors.New("sse: line exceeds maximum size")

// LineReader splits an event stream into raw lines.
//
// Unlike a full event assembler it does not group lines into events:
// every "data:" line of the agent stream carries one complete JSON
// document, so the caller decodes line by line. Trailing "\r\n" or "\n"
// is stripped; everything else (comments, "event:" fields, blank
// separators) is returned verbatim.
type LineReader struct {
	reader  *bufio.Reader
	maxSize int
}

// NewLineReader wraps r. maxSize <= 0 selects DefaultMaxLineSize.
func NewLineReader(r io.Reader, maxSize int) *LineReader {
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	bufSize := 64 * 1024
	if maxSize < bufSize {
		bufSize = maxSize
	}
	return &LineReader{
		reader:  bufio.NewReaderSize(r, bufSize),
		maxSize: maxSize,
	}
}

// ReadLine returns the next line. A final line without a trailing newline
// is returned with a nil error; the following call reports io.EOF.
func (lr *LineReader) ReadLine() (string, error) {
	var sb strings.Builder
	tooLong := false

	for {
		chunk, err := lr.reader.ReadSlice('\n')
		if !tooLong {
			if sb.Len()+len(chunk) > lr.maxSize+2 {
				tooLong = true
				sb.Reset()
			} else {
				sb.Write(chunk)
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return "", ErrLineTooLong
			}
			return strings.TrimRight(sb.String(), "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return "", ErrLineTooLong
			}
			if sb.Len() > 0 {
				return strings.TrimRight(sb.String(), "\r\n"), nil
			}
			return "", io.EOF
		default:
			return "", err
		}
	}
}
