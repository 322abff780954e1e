package consumer

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// maxLineSize bounds a single event line; anything beyond this is not a
// transaction event.
const maxLineSize = 1024 * 1024

// LineSource reads one UTF-8 JSON object per line from a byte stream, the
// producer|consumer pipe contract. Blank lines are skipped.
type LineSource struct {
	scanner *bufio.Scanner
}

func NewLineSource(r io.Reader) *LineSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineSource{scanner: scanner}
}

func (s *LineSource) Read(_ context.Context) ([]byte, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
