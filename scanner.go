package beancount

import (
	"bufio"
	"io"
)

// linescanner wraps a bufio.Scanner, tracking the source name and the
// current line number for diagnostics and directive positions.
type linescanner struct {
	scanner *bufio.Scanner
	name    string
	line    int
}

func newLineScanner(name string, r io.Reader) *linescanner {
	return &linescanner{scanner: bufio.NewScanner(r), name: name}
}

func (s *linescanner) Scan() bool {
	if !s.scanner.Scan() {
		return false
	}
	s.line++
	return true
}

func (s *linescanner) Text() string { return s.scanner.Text() }

func (s *linescanner) Name() string { return s.name }

// LineNumber returns the 1-based number of the line last returned by Text.
func (s *linescanner) LineNumber() int { return s.line }
