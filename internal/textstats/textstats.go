// Package textstats computes letter statistics over text: frequencies,
// Shannon entropy and the delta index of coincidence.
//
// Degenerate input never panics. Empty text yields empty tables and zero
// entropy; the index of coincidence reports ErrInsufficientData when fewer
// than two letters are available.
package textstats

import (
	"errors"
	"math"
	"sort"
	"unicode"

	"vigenere/internal/alphabet"
)

// ErrInsufficientData is returned when a statistic needs at least two symbols.
var ErrInsufficientData = errors.New("textstats: at least two symbols required")

// ErrInvalidAlphabetSize is returned for alphabet sizes below one.
var ErrInvalidAlphabetSize = errors.New("textstats: alphabet size must be positive")

// Counts maps a symbol to its absolute number of occurrences.
type Counts map[rune]int

// FrequencyTable maps a symbol to its relative frequency.
type FrequencyTable map[rune]float64

// Frequencies counts the symbols of alpha found in text, keyed by the
// alphabet symbol. Runes outside the alphabet are skipped exactly as the
// cipher skips them. With caseSensitive set, lower-case input is counted
// under the lower-case symbol. A nil alpha means alphabet.Latin.
func Frequencies(text string, alpha *alphabet.Alphabet, caseSensitive bool) Counts {
	if alpha == nil {
		alpha = alphabet.Latin
	}
	counts := make(Counts)
	for _, r := range text {
		rank, ok := alpha.Rank(r)
		if !ok {
			continue
		}
		sym := alpha.Symbol(rank)
		if caseSensitive && unicode.IsLower(r) {
			sym = unicode.ToLower(sym)
		}
		counts[sym]++
	}
	return counts
}

// RelativeFrequencies returns the symbol frequencies of text divided by the
// number of counted symbols. Text without symbols yields an empty table.
func RelativeFrequencies(text string, alpha *alphabet.Alphabet, caseSensitive bool) FrequencyTable {
	return Frequencies(text, alpha, caseSensitive).Relative()
}

// Total returns the number of counted symbols.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Relative divides every count by the total.
func (c Counts) Relative() FrequencyTable {
	table := make(FrequencyTable, len(c))
	n := c.Total()
	if n == 0 {
		return table
	}
	for r, v := range c {
		table[r] = float64(v) / float64(n)
	}
	return table
}

// Symbols returns the symbols of the table in ascending order.
func (f FrequencyTable) Symbols() []rune {
	symbols := make([]rune, 0, len(f))
	for r := range f {
		symbols = append(symbols, r)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

// Sum returns the sum of all frequencies.
func (f FrequencyTable) Sum() float64 {
	sum := 0.0
	for _, p := range f {
		sum += p
	}
	return sum
}

// Entropy returns the Shannon entropy of a relative frequency table in bits.
// Formula: H = -sum p * log2(p) for p > 0
func Entropy(table FrequencyTable) float64 {
	h := 0.0
	for _, p := range table {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	// Single-symbol tables produce -0.
	if h <= 0 {
		return 0
	}
	return h
}

// DeltaIndexOfCoincidence computes sum n_i(n_i-1) / (N(N-1)/alphabetSize)
// over absolute counts, where N is the total count.
func DeltaIndexOfCoincidence(counts Counts, alphabetSize int) (float64, error) {
	if alphabetSize < 1 {
		return 0, ErrInvalidAlphabetSize
	}
	n := counts.Total()
	if n <= 1 {
		return 0, ErrInsufficientData
	}

	sum := 0
	for _, v := range counts {
		sum += v * (v - 1)
	}
	return CoincidenceRatio(sum, n, alphabetSize), nil
}

// CoincidenceRatio normalizes a coincidence sum for a sample of size n.
// It returns 0 when n <= 1.
func CoincidenceRatio(sum, n, alphabetSize int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(sum) / (float64(n*(n-1)) / float64(alphabetSize))
}
