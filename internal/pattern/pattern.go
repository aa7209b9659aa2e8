// Package pattern parses user-entered phase patterns.
//
// A pattern is a string of phase symbols: '1', 'w', 'W', 'a', 'A' select the
// illuminated phase A; '0', 'b', 'B', 'd', 'D' select the dark phase B.
// Whitespace, ',' '-' and '_' are separators and ignored.
package pattern

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrLength is wrapped by Parse when the symbol count differs from the target
var ErrLength = errors.New("pattern: wrong length")

// Count returns the number of non-separator characters in text
func Count(text string) int {
	n := 0
	for _, r := range text {
		if !isSeparator(r) {
			n++
		}
	}
	return n
}

// Remaining returns how many more symbols text needs to reach length.
// A negative value means text has too many.
func Remaining(text string, length int) int {
	return length - Count(text)
}

// Parse converts text into a phase sequence of exactly length entries.
func Parse(text string, length int) ([]bool, error) {
	seq := make([]bool, 0, length)
	for i, r := range text {
		if isSeparator(r) {
			continue
		}
		phase, ok := symbol(r)
		if !ok {
			return nil, fmt.Errorf("pattern: invalid symbol %q at offset %d", r, i)
		}
		seq = append(seq, phase)
	}
	if len(seq) != length {
		return nil, fmt.Errorf("%w: got %d symbols, want %d", ErrLength, len(seq), length)
	}
	return seq, nil
}

// Format renders a sequence using '1' for phase A and '0' for phase B
func Format(seq []bool) string {
	var b strings.Builder
	b.Grow(len(seq))
	for _, phase := range seq {
		if phase {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Alternating returns a sequence of length entries starting with phase B
func Alternating(length int) []bool {
	seq := make([]bool, length)
	for i := range seq {
		seq[i] = i%2 == 1
	}
	return seq
}

func symbol(r rune) (phase bool, ok bool) {
	switch r {
	case '1', 'w', 'W', 'a', 'A':
		return true, true
	case '0', 'b', 'B', 'd', 'D':
		return false, true
	default:
		return false, false
	}
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == '-' || r == '_'
}
