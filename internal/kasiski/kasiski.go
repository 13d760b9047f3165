// Package kasiski implements the Kasiski examination: it finds repeated
// character groups in a ciphertext and votes for key lengths that divide the
// distances between repetitions.
package kasiski

import (
	"runtime"
	"sort"
	"sync"
	"unicode/utf8"

	"vigenere/internal/alphabet"
)

// DefaultMinGroupLen is the shortest repetition considered significant.
const DefaultMinGroupLen = 3

// firstThreshold is the lowest group length that casts votes.
const firstThreshold = 3

// CoincidenceGroup is a repeated sequence found at two positions.
type CoincidenceGroup struct {
	First    int
	Second   int
	Sequence string
}

// Distance returns the gap between both occurrences.
func (g CoincidenceGroup) Distance() int {
	return g.Second - g.First
}

// Len returns the length of the repeated sequence.
func (g CoincidenceGroup) Len() int {
	return utf8.RuneCountInString(g.Sequence)
}

// Candidate is a probable key length with its share of the votes, in percent.
type Candidate struct {
	KeyLength int
	Support   float64
}

type options struct {
	minGroupLen int
	workers     int
	alphabet    *alphabet.Alphabet
}

// Option configures Test.
type Option func(*options)

// WithMinGroupLen sets the minimum repetition length (default 3).
func WithMinGroupLen(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minGroupLen = n
		}
	}
}

// WithWorkers splits the pairwise scan across n goroutines.
// n <= 0 selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithAlphabet selects the ciphertext alphabet (default alphabet.Latin).
func WithAlphabet(a *alphabet.Alphabet) Option {
	return func(o *options) {
		if a != nil {
			o.alphabet = a
		}
	}
}

// Test runs the Kasiski examination over ciphertext. Runes outside the
// alphabet are ignored. Candidates are sorted by support, then key length.
// Too short texts and texts without repetitions yield no candidates.
func Test(ciphertext string, opts ...Option) []Candidate {
	_, candidates := Examine(ciphertext, opts...)
	return candidates
}

// Examine is Test that also returns the coincidence groups the vote was
// taken over.
func Examine(ciphertext string, opts ...Option) ([]CoincidenceGroup, []Candidate) {
	o := options{
		minGroupLen: DefaultMinGroupLen,
		workers:     1,
		alphabet:    alphabet.Latin,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ranks := o.alphabet.Ranks(ciphertext)
	if len(ranks) < 2*o.minGroupLen {
		return nil, nil
	}

	groups := findGroups(ranks, o.minGroupLen, o.workers, o.alphabet)
	return groups, Vote(groups)
}

// FindGroups returns every coincidence group of at least minGroupLen symbols.
// For each pair of positions i < j holding the same symbol the match is
// extended greedily. Sequences are rendered with a.
func FindGroups(ranks []int, minGroupLen int, a *alphabet.Alphabet) []CoincidenceGroup {
	if a == nil {
		a = alphabet.Latin
	}
	return findGroups(ranks, minGroupLen, 1, a)
}

// findGroups scans the rows i of the pair matrix across workers goroutines.
// Rows are merged in order, so the result does not depend on workers.
func findGroups(ranks []int, minGroupLen, workers int, a *alphabet.Alphabet) []CoincidenceGroup {
	n := len(ranks)
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	rows := make([][]CoincidenceGroup, n)
	scan := func(i int) {
		for j := i + 1; j < n; j++ {
			if ranks[i] != ranks[j] {
				continue
			}
			k := matchLen(ranks, i, j)
			if k >= minGroupLen {
				rows[i] = append(rows[i], CoincidenceGroup{
					First:    i,
					Second:   j,
					Sequence: a.Text(ranks[i : i+k]),
				})
			}
		}
	}

	if workers <= 1 {
		for i := 0; i < n; i++ {
			scan(i)
		}
	} else {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(offset int) {
				defer wg.Done()
				for i := offset; i < n; i += workers {
					scan(i)
				}
			}(w)
		}
		wg.Wait()
	}

	var groups []CoincidenceGroup
	for _, row := range rows {
		groups = append(groups, row...)
	}
	return groups
}

// matchLen returns how many symbols match starting at i and j.
func matchLen(ranks []int, i, j int) int {
	k := 0
	for j+k < len(ranks) && ranks[i+k] == ranks[j+k] {
		k++
	}
	return k
}

// Factors returns all divisors of n in ascending order, enumerating pairs up
// to sqrt(n). Factors(1) is [1]; n < 1 has no factors.
func Factors(n int) []int {
	if n < 1 {
		return nil
	}
	var low, high []int
	for i := 1; i*i <= n; i++ {
		if n%i != 0 {
			continue
		}
		low = append(low, i)
		if j := n / i; j != i {
			high = append(high, j)
		}
	}
	for i := len(high) - 1; i >= 0; i-- {
		low = append(low, high[i])
	}
	return low
}

// Vote turns coincidence groups into key length candidates.
//
// For every threshold t from 3 to the longest group length, the factor sets
// of all groups at least t long are intersected and every common factor
// receives one vote. Support is a candidate's share of all votes.
func Vote(groups []CoincidenceGroup) []Candidate {
	if len(groups) == 0 {
		return nil
	}

	sorted := make([]CoincidenceGroup, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Len() > sorted[j].Len()
	})

	factorSets := make([]map[int]struct{}, len(sorted))
	for i, g := range sorted {
		set := make(map[int]struct{})
		for _, f := range Factors(g.Distance()) {
			set[f] = struct{}{}
		}
		factorSets[i] = set
	}

	maxLen := sorted[0].Len()
	votes := make(map[int]int)
	total := 0
	for t := firstThreshold; t <= maxLen; t++ {
		var common map[int]struct{}
		for i, g := range sorted {
			if g.Len() < t {
				break
			}
			if common == nil {
				common = copySet(factorSets[i])
				continue
			}
			for f := range common {
				if _, ok := factorSets[i][f]; !ok {
					delete(common, f)
				}
			}
		}
		for f := range common {
			votes[f]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(votes))
	for length, count := range votes {
		candidates = append(candidates, Candidate{
			KeyLength: length,
			Support:   float64(count) * 100 / float64(total),
		})
	}
	Sort(candidates)
	return candidates
}

// Sort orders candidates by support descending, then key length ascending.
func Sort(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Support != candidates[j].Support {
			return candidates[i].Support > candidates[j].Support
		}
		return candidates[i].KeyLength < candidates[j].KeyLength
	})
}

// Conclusions returns the two best candidates, skipping a leading key
// length of 1 which divides every distance.
func Conclusions(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	Sort(sorted)

	start := 0
	if sorted[0].KeyLength == 1 {
		start = 1
	}
	end := start + 2
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end]
}

func copySet(s map[int]struct{}) map[int]struct{} {
	c := make(map[int]struct{}, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}
