// Package cipher implements the Vigenère polyalphabetic substitution cipher.
package cipher

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"vigenere/internal/alphabet"
)

// Mode selects the direction of the transform. Its value is the sign applied
// to every key rank.
type Mode int

const (
	// Encrypt adds the key to the text.
	Encrypt Mode = 1
	// Decrypt subtracts the key from the text.
	Decrypt Mode = -1
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "encrypt" or "decrypt" (any case).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "encrypt":
		return Encrypt, nil
	case "decrypt":
		return Decrypt, nil
	default:
		return 0, fmt.Errorf("cipher: unknown mode %q (valid: encrypt, decrypt)", s)
	}
}

// ErrEmptyKey matches any EmptyKeyError via errors.Is.
var ErrEmptyKey = errors.New("cipher: key has no alphabet symbols")

// EmptyKeyError is returned when the key contains no symbol of the alphabet.
// Only the key's length is kept so the error is safe to log.
type EmptyKeyError struct {
	KeyLen int
}

func (e *EmptyKeyError) Error() string {
	return fmt.Sprintf("cipher: key of %d runes has no alphabet symbols", e.KeyLen)
}

// Is reports whether target is ErrEmptyKey.
func (e *EmptyKeyError) Is(target error) bool {
	return target == ErrEmptyKey
}

// Cipher is a Vigenère cipher over a fixed alphabet.
type Cipher struct {
	Alphabet *alphabet.Alphabet
}

// New returns a Cipher over a. A nil alphabet selects alphabet.Latin.
func New(a *alphabet.Alphabet) *Cipher {
	if a == nil {
		a = alphabet.Latin
	}
	return &Cipher{Alphabet: a}
}

// Vigenere transforms text with key over the Latin alphabet.
func Vigenere(text, key string, mode Mode) (string, error) {
	return New(nil).Transform(text, key, mode)
}

// Encrypt enciphers text with key.
func (c *Cipher) Encrypt(text, key string) (string, error) {
	return c.Transform(text, key, Encrypt)
}

// Decrypt deciphers text with key.
func (c *Cipher) Decrypt(text, key string) (string, error) {
	return c.Transform(text, key, Decrypt)
}

// Transform applies the key cyclically to text:
// out[i] = (text[i] + sign*key[i mod len(key)]) mod size.
// Runes outside the alphabet are dropped from both text and key; the result
// is upper-case and as long as the filtered text.
func (c *Cipher) Transform(text, key string, mode Mode) (string, error) {
	if mode != Encrypt && mode != Decrypt {
		return "", fmt.Errorf("cipher: invalid mode %d", int(mode))
	}

	a := c.Alphabet
	keyRanks := a.Ranks(key)
	if len(keyRanks) == 0 {
		return "", &EmptyKeyError{KeyLen: utf8.RuneCountInString(key)}
	}

	ranks := a.Ranks(text)
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = r + int(mode)*keyRanks[i%len(keyRanks)]
	}
	return a.Text(out), nil
}
