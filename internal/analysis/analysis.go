// Package analysis estimates the key length of a Vigenère ciphertext by
// running the Kasiski examination and the Friedman test side by side and
// comparing the Friedman results with the kappa index of coincidence of the
// plaintext language.
package analysis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"vigenere/internal/alphabet"
	"vigenere/internal/friedman"
	"vigenere/internal/kasiski"
	"vigenere/internal/langs"
	"vigenere/internal/metrics"
)

// Report is the outcome of one analysis.
type Report struct {
	Language string
	// KnownLanguage is false when Language is missing from the reference
	// store. KappaIC and FriedmanBest are then unset.
	KnownLanguage bool
	KappaIC       float64

	// TextLength is the number of alphabet symbols in the ciphertext.
	TextLength int
	// Digest identifies the ciphertext without storing it.
	Digest string
	Groups int

	Kasiski      []kasiski.Candidate
	KasiskiBest  []kasiski.Candidate
	Friedman     []friedman.Result
	FriedmanBest *friedman.Conclusion

	CreatedAt time.Time
	Duration  time.Duration
}

// KeyLength returns the suggested key length: the Friedman conclusion when
// the language is known, otherwise the best non-trivial Kasiski candidate.
// It returns 0 when neither test produced anything.
func (r *Report) KeyLength() int {
	if r.FriedmanBest != nil {
		if best := r.FriedmanBest.Best(); best > 0 {
			return best
		}
	}
	if len(r.KasiskiBest) > 0 {
		return r.KasiskiBest[0].KeyLength
	}
	return 0
}

// Recorder persists finished reports.
type Recorder interface {
	SaveAnalysis(ctx context.Context, r *Report) (int64, error)
}

// Options configures an Analyzer. Zero values select the defaults.
type Options struct {
	MinGroupLen int
	MinKeyLen   int
	MaxKeyLen   int
	// Workers per test; <= 0 selects GOMAXPROCS.
	Workers  int
	Alphabet *alphabet.Alphabet

	Recorder Recorder
	Metrics  *metrics.AnalysisMetrics
	Logger   *slog.Logger
}

// DefaultOptions returns the default analysis options.
func DefaultOptions() Options {
	return Options{
		MinGroupLen: kasiski.DefaultMinGroupLen,
		MinKeyLen:   friedman.DefaultMinLen,
		MaxKeyLen:   friedman.DefaultMaxLen,
		Alphabet:    alphabet.Latin,
	}
}

// Analyzer runs both key-length tests against a language reference store.
// It is safe for concurrent use.
type Analyzer struct {
	db      *langs.DB
	opts    Options
	logger  *slog.Logger
	metrics *metrics.AnalysisMetrics
}

// New creates an Analyzer. A nil db selects the built-in language table.
func New(db *langs.DB, opts Options) *Analyzer {
	if db == nil {
		db = langs.Default()
	}
	def := DefaultOptions()
	if opts.MinGroupLen <= 0 {
		opts.MinGroupLen = def.MinGroupLen
	}
	if opts.MinKeyLen <= 0 {
		opts.MinKeyLen = def.MinKeyLen
	}
	if opts.MaxKeyLen <= 0 {
		opts.MaxKeyLen = def.MaxKeyLen
	}
	if opts.Alphabet == nil {
		opts.Alphabet = def.Alphabet
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyzer{
		db:      db,
		opts:    opts,
		logger:  logger.With("component", "analysis"),
		metrics: opts.Metrics,
	}
}

// Languages returns the languages the analyzer can conclude for.
func (a *Analyzer) Languages() []string {
	return a.db.Names()
}

// Analyze runs the Kasiski examination and the Friedman test concurrently
// over ciphertext, then concludes against language.
//
// When language is unknown the computed report is still returned, together
// with a *langs.NotFoundError. A cancelled ctx yields a nil report.
func (a *Analyzer) Analyze(ctx context.Context, ciphertext, language string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	filtered := a.opts.Alphabet.Filter(ciphertext)
	report := &Report{
		Language:   language,
		TextLength: len([]rune(filtered)),
		Digest:     Digest(filtered),
		CreatedAt:  start.UTC(),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if a.metrics != nil {
			defer a.metrics.StartKasiskiTimer().Stop()
		}
		groups, candidates := kasiski.Examine(ciphertext,
			kasiski.WithMinGroupLen(a.opts.MinGroupLen),
			kasiski.WithWorkers(a.opts.Workers),
			kasiski.WithAlphabet(a.opts.Alphabet),
		)
		report.Groups = len(groups)
		report.Kasiski = candidates
	}()
	go func() {
		defer wg.Done()
		if a.metrics != nil {
			defer a.metrics.StartFriedmanTimer().Stop()
		}
		report.Friedman = friedman.Test(ciphertext,
			friedman.WithRange(a.opts.MinKeyLen, a.opts.MaxKeyLen),
			friedman.WithWorkers(a.opts.Workers),
			friedman.WithAlphabet(a.opts.Alphabet),
		)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.KasiskiBest = kasiski.Conclusions(report.Kasiski)

	profile, lookupErr := a.db.Lookup(language)
	if lookupErr == nil {
		report.KnownLanguage = true
		report.KappaIC = profile.KappaIC
		conclusion := friedman.Conclude(report.Friedman, profile.KappaIC)
		report.FriedmanBest = &conclusion
	}
	report.Duration = time.Since(start)

	a.logger.Debug("analysis finished",
		"language", language,
		"symbols", report.TextLength,
		"groups", report.Groups,
		"kasiski_candidates", len(report.Kasiski),
		"friedman_results", len(report.Friedman),
		"key_length", report.KeyLength(),
		"duration", report.Duration,
	)

	if a.metrics != nil {
		a.metrics.RecordAnalysis(report.Duration, report.TextLength, report.Groups, report.KeyLength())
	}

	if lookupErr != nil {
		a.logger.Warn("unknown language", "language", language, "known", a.db.Len())
		if a.metrics != nil {
			a.metrics.RecordUnknownLanguage()
		}
		return report, lookupErr
	}

	if a.opts.Recorder != nil {
		id, err := a.opts.Recorder.SaveAnalysis(ctx, report)
		if err != nil {
			if a.metrics != nil {
				a.metrics.RecordError()
			}
			return report, fmt.Errorf("record analysis: %w", err)
		}
		a.logger.Debug("analysis recorded", "id", id)
	}

	return report, nil
}

// Digest returns the hex BLAKE2b-256 digest of text. Reports carry the
// digest of the filtered ciphertext so repeated analyses of one text can be
// grouped in the history.
func Digest(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IsUnknownLanguage reports whether err came from an unknown language, in
// which case the accompanying report is still usable.
func IsUnknownLanguage(err error) bool {
	return errors.Is(err, langs.ErrLanguageNotFound)
}
