package service

import "strings"

// commentMarker prefixes a suppressed ledger line.
const commentMarker = "; "

type editKind int

const (
	opComment editKind = iota
	opUncomment
)

// editOp is one step of a line-indexed edit script against the platform
// segment. Line numbers are 1-based.
type editOp struct {
	line int
	op   editKind
}

// applyEdits runs the script over the lines and returns the result plus
// the number of lines actually changed. Out-of-range lines and no-op
// edits (commenting a commented line, uncommenting a plain one) are
// skipped, so scripts are safe to re-apply.
func applyEdits(lines []string, script []editOp) ([]string, int) {
	out := make([]string, len(lines))
	copy(out, lines)
	changed := 0
	for _, e := range script {
		i := e.line - 1
		if i < 0 || i >= len(out) {
			continue
		}
		switch e.op {
		case opComment:
			if _, commented := uncommented(out[i]); commented {
				continue
			}
			out[i] = commentMarker + out[i]
			changed++
		case opUncomment:
			content, commented := uncommented(out[i])
			if !commented {
				continue
			}
			out[i] = content
			changed++
		}
	}
	return out, changed
}

// uncommented strips the comment marker from a line, reporting whether
// the line was commented at all.
func uncommented(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, commentMarker); ok {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(line, ";"); ok {
		return rest, true
	}
	return line, false
}
