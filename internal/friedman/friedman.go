// Package friedman implements the Friedman (kappa) test, which estimates the
// key length of a polyalphabetic cipher from the index of coincidence of the
// ciphertext split into interleaved columns.
package friedman

import (
	"runtime"
	"sync"

	"vigenere/internal/alphabet"
	"vigenere/internal/textstats"
)

// Default candidate key length range, half-open.
const (
	DefaultMinLen = 3
	DefaultMaxLen = 50
)

// Padding fills the last row of the grid. It is outside every alphabet.
const Padding = -1

// Result is the averaged delta index of coincidence for one key length.
type Result struct {
	KeyLength int
	DeltaIC   float64
}

type options struct {
	minLen   int
	maxLen   int
	workers  int
	alphabet *alphabet.Alphabet
}

// Option configures Test.
type Option func(*options)

// WithRange sets the half-open range [minLen, maxLen) of key lengths tested.
func WithRange(minLen, maxLen int) Option {
	return func(o *options) {
		o.minLen = minLen
		o.maxLen = maxLen
	}
}

// WithWorkers evaluates key lengths on n goroutines.
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

// Test computes the averaged delta index of coincidence of ciphertext for
// every key length L in [minLen, min(maxLen, len(ciphertext))). Every length
// in range yields exactly one Result, in ascending order.
func Test(ciphertext string, opts ...Option) []Result {
	o := options{
		minLen:   DefaultMinLen,
		maxLen:   DefaultMaxLen,
		workers:  1,
		alphabet: alphabet.Latin,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ranks := o.alphabet.Ranks(ciphertext)
	minLen := o.minLen
	if minLen < 1 {
		minLen = 1
	}
	maxLen := o.maxLen
	if len(ranks) < maxLen {
		maxLen = len(ranks)
	}
	if maxLen <= minLen {
		return []Result{}
	}

	size := o.alphabet.Size()
	results := make([]Result, maxLen-minLen)
	evaluate := func(idx int) {
		width := minLen + idx
		results[idx] = Result{
			KeyLength: width,
			DeltaIC:   ColumnDeltaIC(Columns(ranks, width), size),
		}
	}

	workers := o.workers
	if workers > len(results) {
		workers = len(results)
	}
	if workers <= 1 {
		for i := range results {
			evaluate(i)
		}
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			evaluate(idx)
		}(i)
	}
	wg.Wait()

	return results
}

// Columns writes ranks row by row into rows of the given width, pads the last
// row with Padding and returns the columns of the grid.
func Columns(ranks []int, width int) [][]int {
	if width < 1 || len(ranks) == 0 {
		return nil
	}
	rows := (len(ranks) + width - 1) / width

	columns := make([][]int, width)
	for c := range columns {
		columns[c] = make([]int, rows)
		for r := 0; r < rows; r++ {
			pos := r*width + c
			if pos < len(ranks) {
				columns[c][r] = ranks[pos]
			} else {
				columns[c][r] = Padding
			}
		}
	}
	return columns
}

// ColumnDeltaIC returns the mean over columns of each column's delta index
// of coincidence. Padding is not counted as a symbol but does count towards
// the column length. Columns shorter than two contribute 0.
func ColumnDeltaIC(columns [][]int, alphabetSize int) float64 {
	if len(columns) == 0 || alphabetSize < 1 {
		return 0
	}

	counts := make([]int, alphabetSize)
	total := 0.0
	for _, column := range columns {
		for i := range counts {
			counts[i] = 0
		}
		for _, r := range column {
			if r >= 0 && r < alphabetSize {
				counts[r]++
			}
		}
		sum := 0
		for _, n := range counts {
			sum += n * (n - 1)
		}
		total += textstats.CoincidenceRatio(sum, len(column), alphabetSize)
	}
	return total / float64(len(columns))
}

// Conclusion holds the results nearest to a language's kappa index of
// coincidence from above and from below.
type Conclusion struct {
	KappaIC float64
	// Above is the result with the smallest non-negative deviation.
	Above *Deviation
	// Below is the result with the largest negative deviation.
	Below *Deviation
}

// Deviation is a result together with its distance to the kappa IC.
type Deviation struct {
	Result
	Delta float64
}

// Conclude compares results against kappa and picks the closest result on
// each side. The preferred key length is Above when present.
func Conclude(results []Result, kappa float64) Conclusion {
	c := Conclusion{KappaIC: kappa}
	for _, r := range results {
		d := Deviation{Result: r, Delta: r.DeltaIC - kappa}
		if d.Delta >= 0 {
			if c.Above == nil || d.Delta < c.Above.Delta {
				above := d
				c.Above = &above
			}
		} else if c.Below == nil || d.Delta > c.Below.Delta {
			below := d
			c.Below = &below
		}
	}
	return c
}

// Best returns the preferred key length of the conclusion, or 0 when no
// results were available.
func (c Conclusion) Best() int {
	switch {
	case c.Above != nil:
		return c.Above.KeyLength
	case c.Below != nil:
		return c.Below.KeyLength
	default:
		return 0
	}
}
