// Package chunk splits document text into line-aligned, token-budgeted
// segments and reassembles transformed segments.
//
// Lines are never split: a single line whose own cost exceeds the
// budget becomes its own oversized segment, which the caller must
// tolerate. Splitting is greedy single-pass bin packing; the segment
// count is minimized locally, not globally.
package chunk

import "strings"

// Counter is the cost function driving segment sizing.
// tokens.Counter satisfies it.
type Counter interface {
	Count(text string) int
}

// Split cuts text into segments whose token cost stays within budget.
// Segments keep their trailing line breaks, so concatenating them
// reproduces text exactly.
func Split(text string, budget int, counter Counter) []string {
	if text == "" {
		return nil
	}

	lines := strings.SplitAfter(text, "\n")
	// SplitAfter yields a trailing empty element when text ends in \n.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var segments []string
	var current strings.Builder

	for _, line := range lines {
		if current.Len() > 0 && counter.Count(current.String())+counter.Count(line) > budget {
			segments = append(segments, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

// Join reassembles segments in order. A segment that does not end in a
// line break (the transformation service strips trailing newlines) is
// separated from the next by exactly one; segments that kept their
// breaks are concatenated untouched, so Join(Split(text, ...)) == text.
func Join(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 && !strings.HasSuffix(segments[i-1], "\n") {
			b.WriteString("\n")
		}
		b.WriteString(seg)
	}
	return b.String()
}
