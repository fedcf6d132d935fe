// Package trigger recognizes the expansion grammar in a stream of typed
// characters.
//
// The grammar is fixed-length:
//
//	<keyword> DD.MM.YYYY HH:MM F
//
// where the keyword is matched case-insensitively and F is a single ASCII
// letter. Matching is a shift-and automaton with one bit per grammar
// position, so each typed character costs one table lookup and one shift
// regardless of how much text has been buffered.
package trigger

import (
	"errors"
	"fmt"
	"math/bits"
)

// DefaultKeyword is the trigger phrase used when none is configured.
const DefaultKeyword = "timestampus"

// Field widths of the grammar after the keyword.
const (
	dateLen = len("DD.MM.YYYY")
	timeLen = len("HH:MM")
	flagLen = 1

	// suffixLen covers " DD.MM.YYYY HH:MM F".
	suffixLen = 1 + dateLen + 1 + timeLen + 1 + flagLen
)

// MaxKeywordLen keeps the whole grammar inside a single 64-bit state word.
const MaxKeywordLen = 64 - suffixLen

// ErrInvalidKeyword is returned for keywords the grammar cannot express.
var ErrInvalidKeyword = errors.New("invalid trigger keyword")

type class uint8

const (
	classLiteral class = iota
	classDigit
	classLetter
)

type position struct {
	class class
	r     rune
}

// Grammar is the compiled trigger pattern for one keyword.
type Grammar struct {
	keyword   string
	positions []position

	// accept[c] has bit i set when ASCII character c may appear at
	// grammar position i.
	accept [128]uint64

	dateStart int
	timeStart int
}

// NewGrammar compiles the grammar for keyword. The keyword must be 1 to
// MaxKeywordLen ASCII letters or digits.
func NewGrammar(keyword string) (*Grammar, error) {
	if keyword == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKeyword)
	}
	if len(keyword) > MaxKeywordLen {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidKeyword, MaxKeywordLen)
	}

	g := &Grammar{}
	lower := make([]byte, 0, len(keyword))
	for i := 0; i < len(keyword); i++ {
		c := keyword[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return nil, fmt.Errorf("%w: %q contains %q", ErrInvalidKeyword, keyword, c)
		}
		lower = append(lower, c)
		g.positions = append(g.positions, position{class: classLiteral, r: rune(c)})
	}
	g.keyword = string(lower)

	lit := func(r rune) { g.positions = append(g.positions, position{class: classLiteral, r: r}) }
	digits := func(n int) {
		for i := 0; i < n; i++ {
			g.positions = append(g.positions, position{class: classDigit})
		}
	}

	lit(' ')
	g.dateStart = len(g.positions)
	digits(2)
	lit('.')
	digits(2)
	lit('.')
	digits(4)
	lit(' ')
	g.timeStart = len(g.positions)
	digits(2)
	lit(':')
	digits(2)
	lit(' ')
	g.positions = append(g.positions, position{class: classLetter})

	for c := 0; c < len(g.accept); c++ {
		g.accept[c] = g.mask(rune(c))
	}
	return g, nil
}

// MustGrammar is NewGrammar that panics on error. Intended for constants
// and tests.
func MustGrammar(keyword string) *Grammar {
	g, err := NewGrammar(keyword)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grammar) mask(r rune) uint64 {
	folded := r
	if r >= 'A' && r <= 'Z' {
		folded = r + ('a' - 'A')
	}

	var m uint64
	for i, p := range g.positions {
		var ok bool
		switch p.class {
		case classLiteral:
			if i < len(g.keyword) {
				ok = folded == p.r
			} else {
				ok = r == p.r
			}
		case classDigit:
			ok = r >= '0' && r <= '9'
		case classLetter:
			ok = (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		}
		if ok {
			m |= 1 << uint(i)
		}
	}
	return m
}

// Keyword returns the lowercased trigger keyword.
func (g *Grammar) Keyword() string { return g.keyword }

// Len returns the number of characters in a complete trigger.
func (g *Grammar) Len() int { return len(g.positions) }

// Pattern returns a human readable form of the grammar.
func (g *Grammar) Pattern() string {
	return g.keyword + " DD.MM.YYYY HH:MM F"
}

// Step advances state by one character.
func (g *Grammar) Step(state uint64, r rune) uint64 {
	if r < 0 || int(r) >= len(g.accept) {
		return 0
	}
	return ((state << 1) | 1) & g.accept[r]
}

// Complete reports whether state has matched the full grammar.
func (g *Grammar) Complete(state uint64) bool {
	return state&(1<<uint(len(g.positions)-1)) != 0
}

// Stage names the part of the grammar the longest partial match has reached.
type Stage int

const (
	StageNone Stage = iota
	StageKeyword
	StageDate
	StageTime
	StageFlag
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageKeyword:
		return "keyword"
	case StageDate:
		return "date"
	case StageTime:
		return "time"
	case StageFlag:
		return "flag"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// StageOf classifies the longest partial match recorded in state.
func (g *Grammar) StageOf(state uint64) Stage {
	if state == 0 {
		return StageNone
	}
	matched := 64 - bits.LeadingZeros64(state)
	switch {
	case matched >= len(g.positions):
		return StageComplete
	case matched <= len(g.keyword):
		return StageKeyword
	case matched < g.timeStart:
		return StageDate
	case matched < g.timeStart+timeLen+1:
		return StageTime
	default:
		return StageFlag
	}
}

// Match is the set of fields captured from a completed trigger.
type Match struct {
	Text string
	Date string
	Time string
	Flag rune
}

// extract splits a complete trigger into its fields. text must be exactly
// Len runes long.
func (g *Grammar) extract(text []rune) Match {
	return Match{
		Text: string(text),
		Date: string(text[g.dateStart : g.dateStart+dateLen]),
		Time: string(text[g.timeStart : g.timeStart+timeLen]),
		Flag: text[len(text)-1],
	}
}
