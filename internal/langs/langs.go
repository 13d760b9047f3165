// Package langs provides read-only statistical reference data per language:
// the expected kappa index of coincidence, the alphabet size and an optional
// letter frequency table.
//
// A DB is built once (from the embedded defaults or a store file) and shared
// by reference; it is never mutated after construction.
package langs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// DefaultAlphabetSize is assumed when a record omits alphabet_size.
const DefaultAlphabetSize = 26

// ErrLanguageNotFound matches any NotFoundError via errors.Is.
var ErrLanguageNotFound = errors.New("langs: language not found")

// NotFoundError is returned when a language is absent from the DB.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("langs: unknown language %q (known languages: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Is reports whether target is ErrLanguageNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrLanguageNotFound
}

// Profile is the reference record of one language.
type Profile struct {
	Name         string
	KappaIC      float64
	AlphabetSize int
	// Freqs maps a letter to its relative frequency (float64) or to another
	// letter whose frequency it shares (string). May be nil.
	Freqs map[string]any
}

// record is the on-disk shape of a Profile.
type record struct {
	KappaIC      *float64       `json:"kappa_IC,omitempty" yaml:"kappa_IC,omitempty" toml:"kappa_IC,omitempty"`
	AlphabetSize int            `json:"alphabet_size,omitempty" yaml:"alphabet_size,omitempty" toml:"alphabet_size,omitempty"`
	Freqs        map[string]any `json:"freqs,omitempty" yaml:"freqs,omitempty" toml:"freqs,omitempty"`
}

// DB is an immutable collection of language profiles.
type DB struct {
	profiles map[string]Profile
}

func newDB(records map[string]record) (*DB, error) {
	if len(records) == 0 {
		return nil, errors.New("langs: store has no languages")
	}

	db := &DB{profiles: make(map[string]Profile, len(records))}
	for name, rec := range records {
		p := Profile{
			Name:         name,
			AlphabetSize: rec.AlphabetSize,
		}
		if rec.KappaIC != nil {
			p.KappaIC = *rec.KappaIC
		}
		if p.KappaIC < 0 {
			return nil, fmt.Errorf("langs: %s: negative kappa_IC %v", name, p.KappaIC)
		}
		if p.AlphabetSize == 0 {
			p.AlphabetSize = DefaultAlphabetSize
		}
		if p.AlphabetSize < 0 {
			return nil, fmt.Errorf("langs: %s: invalid alphabet_size %d", name, p.AlphabetSize)
		}
		if rec.Freqs != nil {
			freqs, err := normalizeFreqs(name, rec.Freqs)
			if err != nil {
				return nil, err
			}
			p.Freqs = freqs
		}
		db.profiles[name] = p
	}
	return db, nil
}

// normalizeFreqs converts decoded numbers to float64 and checks value types.
func normalizeFreqs(lang string, raw map[string]any) (map[string]any, error) {
	freqs := make(map[string]any, len(raw))
	for letter, v := range raw {
		switch val := v.(type) {
		case nil:
			freqs[letter] = 0.0
		case float64:
			freqs[letter] = val
		case int:
			freqs[letter] = float64(val)
		case int64:
			freqs[letter] = float64(val)
		case json.Number:
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("langs: %s: frequency of %q: %w", lang, letter, err)
			}
			freqs[letter] = f
		case string:
			freqs[letter] = val
		default:
			return nil, fmt.Errorf("langs: %s: frequency of %q has unsupported type %T", lang, letter, v)
		}
	}
	return freqs, nil
}

// Names returns the known language names, sorted.
func (db *DB) Names() []string {
	names := make([]string, 0, len(db.profiles))
	for name := range db.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of languages.
func (db *DB) Len() int {
	return len(db.profiles)
}

// Lookup returns the profile of a language.
func (db *DB) Lookup(name string) (Profile, error) {
	p, ok := db.profiles[name]
	if !ok {
		return Profile{}, &NotFoundError{Name: name, Known: db.Names()}
	}
	return p, nil
}

// KappaIC returns the expected kappa index of coincidence of a language, or
// 0 when its record has none.
func (db *DB) KappaIC(name string) (float64, error) {
	p, err := db.Lookup(name)
	if err != nil {
		return 0, err
	}
	return p.KappaIC, nil
}

// Frequencies returns the letter frequencies of a language with aliases
// resolved to the frequency of their canonical letter. It returns nil when
// the language has no frequency table.
func (db *DB) Frequencies(name string) (map[string]float64, error) {
	p, err := db.Lookup(name)
	if err != nil {
		return nil, err
	}
	if p.Freqs == nil {
		return nil, nil
	}

	resolved := make(map[string]float64, len(p.Freqs))
	for letter := range p.Freqs {
		f, err := resolveFreq(p.Freqs, letter)
		if err != nil {
			return nil, fmt.Errorf("langs: %s: %w", name, err)
		}
		resolved[letter] = f
	}
	return resolved, nil
}

// resolveFreq follows alias chains until a number is reached.
func resolveFreq(freqs map[string]any, letter string) (float64, error) {
	seen := map[string]bool{}
	current := letter
	for {
		if seen[current] {
			return 0, fmt.Errorf("alias cycle at %q", letter)
		}
		seen[current] = true

		v, ok := freqs[current]
		if !ok {
			return 0, fmt.Errorf("alias %q of %q is not defined", current, letter)
		}
		switch val := v.(type) {
		case float64:
			return val, nil
		case string:
			current = val
		default:
			return 0, fmt.Errorf("frequency of %q has unsupported type %T", current, v)
		}
	}
}

// Encode writes the DB as indented JSON with sorted keys. Zero frequencies
// are left out.
func (db *DB) Encode(w io.Writer) error {
	out := make(map[string]record, len(db.profiles))
	for name, p := range db.profiles {
		kappa := p.KappaIC
		rec := record{KappaIC: &kappa, AlphabetSize: p.AlphabetSize}
		if p.Freqs != nil {
			rec.Freqs = make(map[string]any, len(p.Freqs))
			for letter, v := range p.Freqs {
				if f, ok := v.(float64); ok && f == 0 {
					continue
				}
				rec.Freqs[letter] = v
			}
		}
		out[name] = rec
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
