package textstats

import "vigenere/internal/alphabet"

// Summary bundles the statistics reported for a single text.
type Summary struct {
	Text        string
	Letters     int
	Frequencies FrequencyTable
	Entropy     float64
	DeltaIC     float64
	// DeltaICValid is false when the text has fewer than two symbols.
	DeltaICValid bool
}

// Summarize computes case-insensitive statistics over the symbols of alpha
// in text. A nil alpha means alphabet.Latin.
func Summarize(text string, alpha *alphabet.Alphabet) Summary {
	if alpha == nil {
		alpha = alphabet.Latin
	}
	counts := Frequencies(text, alpha, false)
	freqs := counts.Relative()

	s := Summary{
		Text:        text,
		Letters:     counts.Total(),
		Frequencies: freqs,
		Entropy:     Entropy(freqs),
	}
	if ic, err := DeltaIndexOfCoincidence(counts, alpha.Size()); err == nil {
		s.DeltaIC = ic
		s.DeltaICValid = true
	}
	return s
}
