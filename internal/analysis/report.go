package analysis

import (
	"fmt"
	"io"
	"strings"

	"vigenere/internal/friedman"
	"vigenere/internal/kasiski"
)

// PrintKasiski writes the Kasiski section of a report. With verbose every
// candidate is listed before the conclusions.
func PrintKasiski(w io.Writer, candidates []kasiski.Candidate, verbose bool) {
	fmt.Fprintln(w, "===[Kasiski]===")
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No repeated sequences found")
		return
	}

	if verbose {
		for _, c := range candidates {
			fmt.Fprintf(w, "%d: %.2f%%\n", c.KeyLength, c.Support)
		}
		fmt.Fprintln(w, "Conclusions:")
	}
	for _, c := range kasiski.Conclusions(candidates) {
		fmt.Fprintf(w, "%d: %.2f%%\n", c.KeyLength, c.Support)
	}
}

// PrintFriedman writes the Friedman section of a report.
func PrintFriedman(w io.Writer, language string, results []friedman.Result, conclusion friedman.Conclusion, verbose bool) {
	fmt.Fprintln(w, "===[Friedman]===")
	fmt.Fprintf(w, "Lang of text: %s (kappa I.C. = %g)\n", language, conclusion.KappaIC)
	if len(results) == 0 {
		fmt.Fprintln(w, "Text too short")
		return
	}

	if verbose {
		for _, r := range results {
			fmt.Fprintf(w, "%d: %.4f\n", r.KeyLength, r.DeltaIC)
		}
		fmt.Fprintln(w, "Conclusions:")
	}
	if d := conclusion.Above; d != nil {
		fmt.Fprintf(w, "%d: %.4f (%+.4f)\n", d.KeyLength, d.DeltaIC, d.Delta)
	}
	if d := conclusion.Below; d != nil {
		fmt.Fprintf(w, "%d: %.4f (%+.4f)\n", d.KeyLength, d.DeltaIC, d.Delta)
	}
}

// PrintReport writes a full report to w: the Kasiski section, then the
// Friedman section when the language is known, then the suggested key
// length. For an unknown language the known ones are listed instead.
func PrintReport(w io.Writer, r *Report, known []string, verbose bool) {
	if r == nil {
		fmt.Fprintln(w, "No analysis available")
		return
	}

	PrintKasiski(w, r.Kasiski, verbose)
	fmt.Fprintln(w)

	if !r.KnownLanguage || r.FriedmanBest == nil {
		fmt.Fprintf(w, "Unknown language %q. Known languages are: %s\n", r.Language, strings.Join(known, ", "))
		return
	}

	PrintFriedman(w, r.Language, r.Friedman, *r.FriedmanBest, verbose)
	fmt.Fprintln(w)

	if n := r.KeyLength(); n > 0 {
		fmt.Fprintf(w, "Suggested key length: %d\n", n)
	}
	if verbose {
		fmt.Fprintf(w, "Symbols: %d, coincidence groups: %d, took %s\n", r.TextLength, r.Groups, r.Duration)
	}
}
