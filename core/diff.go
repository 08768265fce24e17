package core

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContextLen is the number of unchanged lines kept around each change
// in a collapsed report.
const DefaultContextLen = 2

type LineKind int

const (
	// Common lines appear in both renderings.
	Common LineKind = iota
	// Removed lines appear only in the old rendering.
	Removed
	// Added lines appear only in the new rendering.
	Added
)

func (k LineKind) String() string {
	switch k {
	case Common:
		return " "
	case Removed:
		return "-"
	case Added:
		return "+"
	}
	return "?"
}

// Line is one line of a change report, classified by where it occurs.
type Line struct {
	Kind LineKind
	Text string
}

// Change is the report for one URL whose rendering differs from the previous
// run. Lines is already context-collapsed.
type Change struct {
	RequestURL string
	URL        string
	Lines      []Line
}

// Compare computes a line-level longest-common-subsequence diff of two
// rendered texts. Lines are compared by exact value; within a replaced range
// removed lines precede added ones.
func Compare(oldText, newText string) []Line {
	a := splitLines(oldText)
	b := splitLines(newText)
	lines := make([]Line, 0, len(a)+len(b))
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, text := range a[op.I1:op.I2] {
				lines = append(lines, Line{Kind: Common, Text: text})
			}
		case 'd':
			for _, text := range a[op.I1:op.I2] {
				lines = append(lines, Line{Kind: Removed, Text: text})
			}
		case 'i':
			for _, text := range b[op.J1:op.J2] {
				lines = append(lines, Line{Kind: Added, Text: text})
			}
		case 'r':
			for _, text := range a[op.I1:op.I2] {
				lines = append(lines, Line{Kind: Removed, Text: text})
			}
			for _, text := range b[op.J1:op.J2] {
				lines = append(lines, Line{Kind: Added, Text: text})
			}
		}
	}
	return lines
}

// Collapse reduces long unchanged runs to at most contextLen common lines on
// each side of a change. Identical inputs collapse to an empty report: a
// trailing window of pending common lines is only flushed when a change
// arrives.
func Collapse(lines []Line, contextLen int) []Line {
	if contextLen <= 0 {
		contextLen = DefaultContextLen
	}
	out := make([]Line, 0, len(lines))
	window := make([]Line, 0, contextLen)
	sinceChange := -1
	for _, line := range lines {
		if line.Kind != Common {
			out = append(out, window...)
			window = window[:0]
			out = append(out, line)
			sinceChange = 0
			continue
		}
		if sinceChange >= 0 {
			out = append(out, line)
			sinceChange++
			if sinceChange >= contextLen {
				sinceChange = -1
			}
		} else {
			window = append(window, line)
			if len(window) > contextLen {
				window = window[1:]
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
