package trigger

import (
	"errors"
	"fmt"
)

// DefaultMaxLen is the default number of trailing characters kept.
const DefaultMaxLen = 60

// ErrBufferTooSmall is returned when the buffer cannot hold a full trigger.
var ErrBufferTooSmall = errors.New("buffer shorter than trigger")

// Buffer holds the tail of what the user has typed together with the
// automaton state reached after each character.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	g      *Grammar
	max    int
	runes  []rune
	states []uint64
}

// NewBuffer returns an empty buffer that keeps at most maxLen characters.
func NewBuffer(g *Grammar, maxLen int) (*Buffer, error) {
	if maxLen < g.Len() {
		return nil, fmt.Errorf("%w: max %d, trigger needs %d", ErrBufferTooSmall, maxLen, g.Len())
	}
	return &Buffer{
		g:      g,
		max:    maxLen,
		runes:  make([]rune, 0, maxLen+1),
		states: make([]uint64, 0, maxLen+1),
	}, nil
}

// Grammar returns the grammar the buffer matches against.
func (b *Buffer) Grammar() *Grammar { return b.g }

// Cap returns the maximum number of characters retained.
func (b *Buffer) Cap() int { return b.max }

// Len returns the number of buffered characters.
func (b *Buffer) Len() int { return len(b.runes) }

// String returns the buffered text.
func (b *Buffer) String() string { return string(b.runes) }

// Append adds r to the end of the buffer, dropping the oldest character
// when the buffer is full.
func (b *Buffer) Append(r rune) {
	b.runes = append(b.runes, r)
	b.states = append(b.states, b.g.Step(b.last(), r))

	if over := len(b.runes) - b.max; over > 0 {
		b.dropFront(over)
	}
}

// Backspace removes the last character. It reports false when the buffer
// was already empty.
func (b *Buffer) Backspace() bool {
	if len(b.runes) == 0 {
		return false
	}
	b.runes = b.runes[:len(b.runes)-1]
	b.states = b.states[:len(b.states)-1]
	return true
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.runes = b.runes[:0]
	b.states = b.states[:0]
}

// Match reports the trigger ending exactly at the last buffered character.
func (b *Buffer) Match() (Match, bool) {
	if !b.g.Complete(b.last()) {
		return Match{}, false
	}
	n := b.g.Len()
	return b.g.extract(b.runes[len(b.runes)-n:]), true
}

// Progress reports how far into the grammar the buffer's tail has got.
func (b *Buffer) Progress() Stage {
	return b.g.StageOf(b.last())
}

func (b *Buffer) last() uint64 {
	if len(b.states) == 0 {
		return 0
	}
	return b.states[len(b.states)-1]
}

// dropFront discards n characters from the front. Partial matches that
// started in the discarded prefix are cleared so that no match can span
// text which is no longer buffered.
func (b *Buffer) dropFront(n int) {
	keep := copy(b.runes, b.runes[n:])
	b.runes = b.runes[:keep]
	copy(b.states, b.states[n:])
	b.states = b.states[:keep]

	for i := range b.states {
		if i+1 < 64 {
			b.states[i] &= (uint64(1) << uint(i+1)) - 1
		}
	}
}
