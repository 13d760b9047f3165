// Package alphabet maps the symbols of a cipher alphabet to integer ranks.
//
// Every transform and statistic in vigenere works on ranks; text is only
// converted at the boundary through Ranks and Text. Runes that are not part
// of the alphabet are dropped during conversion, never reported as errors.
package alphabet

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LatinSymbols are the 26 uppercase letters of the default alphabet.
const LatinSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrEmptyAlphabet is returned when an alphabet has no symbols.
var ErrEmptyAlphabet = errors.New("alphabet: no symbols")

// Latin is the default case-insensitive A-Z alphabet.
var Latin = MustNew(LatinSymbols)

// Alphabet is an ordered set of symbols with a bijective rank mapping.
// An Alphabet is immutable and safe for concurrent use.
type Alphabet struct {
	symbols     []rune
	ranks       map[rune]int
	foldAccents bool
}

// Option configures an Alphabet.
type Option func(*Alphabet)

// WithAccentFolding strips combining marks before ranking, so that
// accented variants count as their base letter.
func WithAccentFolding() Option {
	return func(a *Alphabet) {
		a.foldAccents = true
	}
}

// New builds an alphabet from the given symbols. Symbols are upper-cased;
// duplicates are rejected.
func New(symbols string, opts ...Option) (*Alphabet, error) {
	if symbols == "" {
		return nil, ErrEmptyAlphabet
	}

	a := &Alphabet{
		ranks: make(map[rune]int, utf8.RuneCountInString(symbols)),
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, s := range symbols {
		r, ok := upperRune(s)
		if !ok {
			return nil, fmt.Errorf("alphabet: symbol %q has no single upper-case form", s)
		}
		if _, dup := a.ranks[r]; dup {
			return nil, fmt.Errorf("alphabet: duplicate symbol %q", r)
		}
		a.ranks[r] = len(a.symbols)
		a.symbols = append(a.symbols, r)
	}

	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(symbols string, opts ...Option) *Alphabet {
	a, err := New(symbols, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the number of symbols.
func (a *Alphabet) Size() int {
	return len(a.symbols)
}

// Symbols returns the alphabet in rank order.
func (a *Alphabet) Symbols() string {
	return string(a.symbols)
}

// Rank returns the rank of r after the same normalization Ranks applies.
func (a *Alphabet) Rank(r rune) (int, bool) {
	r, ok := a.normalizeRune(r)
	if !ok {
		return 0, false
	}
	rank, ok := a.ranks[r]
	return rank, ok
}

// Contains reports whether r belongs to the alphabet.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.Rank(r)
	return ok
}

// Symbol returns the symbol for rank, reduced modulo the alphabet size.
func (a *Alphabet) Symbol(rank int) rune {
	n := len(a.symbols)
	rank %= n
	if rank < 0 {
		rank += n
	}
	return a.symbols[rank]
}

// Normalize upper-cases text rune by rune and, when accent folding is
// enabled, removes combining marks. A rune that does not map to exactly one
// rune (ß upper-cases to SS) is dropped, so Normalize never changes the
// number of symbols a letter contributes.
func (a *Alphabet) Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r, ok := a.normalizeRune(r); ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a *Alphabet) normalizeRune(r rune) (rune, bool) {
	if a.foldAccents && r >= utf8.RuneSelf {
		folded, _, err := transform.String(foldMarks(), string(r))
		if err != nil || utf8.RuneCountInString(folded) != 1 {
			return 0, false
		}
		r, _ = utf8.DecodeRuneInString(folded)
	}
	return upperRune(r)
}

func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// upperRune upper-cases r. A fresh Caser is built per call since Casers are
// stateful; ASCII skips it.
func upperRune(r rune) (rune, bool) {
	if r < utf8.RuneSelf {
		return unicode.ToUpper(r), true
	}
	up := cases.Upper(language.Und).String(string(r))
	if utf8.RuneCountInString(up) != 1 {
		return 0, false
	}
	r, _ = utf8.DecodeRuneInString(up)
	return r, true
}

// Ranks converts text to ranks, dropping runes outside the alphabet.
func (a *Alphabet) Ranks(text string) []int {
	ranks := make([]int, 0, len(text))
	for _, r := range text {
		if rank, ok := a.Rank(r); ok {
			ranks = append(ranks, rank)
		}
	}
	return ranks
}

// Filter returns the normalized text restricted to alphabet symbols.
func (a *Alphabet) Filter(text string) string {
	return a.Text(a.Ranks(text))
}

// Text converts ranks back to symbols.
func (a *Alphabet) Text(ranks []int) string {
	var b strings.Builder
	b.Grow(len(ranks))
	for _, rank := range ranks {
		b.WriteRune(a.Symbol(rank))
	}
	return b.String()
}

// StripLineBreaks trims every line and concatenates the results.
func StripLineBreaks(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(strings.TrimSpace(line))
	}
	return b.String()
}
