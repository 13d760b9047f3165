package cipher

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigenere/internal/alphabet"
)

func TestVigenereKnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		key      string
		mode     Mode
		expected string
	}{
		{"encrypt", "thiscryptosystemisnotsecure", "cipher", Encrypt, "VPXZGIAXIVWPUBTTMJPWIZITWZT"},
		{"decrypt", "VPXZGIAXIVWPUBTTMJPWIZITWZT", "cipher", Decrypt, "THISCRYPTOSYSTEMISNOTSECURE"},
		{"classic", "ATTACKATDAWN", "LEMON", Encrypt, "LXFOPVEFRNHR"},
		{"key longer than text", "ABC", "BCDEFG", Encrypt, "BDF"},
		{"single letter key", "HELLO", "A", Encrypt, "HELLO"},
		{"punctuation dropped", "attack at dawn!", "lemon", Encrypt, "LXFOPVEFRNHR"},
		{"empty text", "", "KEY", Encrypt, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Vigenere(tt.text, tt.key, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEmptyKey(t *testing.T) {
	for _, key := range []string{"", "123", " !? "} {
		_, err := Vigenere("HELLO", key, Encrypt)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyKey)

		var keyErr *EmptyKeyError
		require.True(t, errors.As(err, &keyErr))
		assert.Equal(t, utf8.RuneCountInString(key), keyErr.KeyLen)
	}
}

func TestEmptyKeyErrorOmitsKey(t *testing.T) {
	_, err := Vigenere("HELLO", "1234-5678", Encrypt)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "1234-5678")
	assert.Equal(t, "cipher: key of 9 runes has no alphabet symbols", err.Error())
}

func TestInvalidMode(t *testing.T) {
	_, err := New(nil).Transform("HELLO", "KEY", Mode(0))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := New(nil)

	for i := 0; i < 200; i++ {
		text := randomText(rng, rng.Intn(300))
		key := randomText(rng, 1+rng.Intn(20))

		enc, err := c.Encrypt(text, key)
		require.NoError(t, err)
		assert.Len(t, enc, len(text))

		dec, err := c.Decrypt(enc, key)
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(text), dec)
	}
}

func TestLengthPreservation(t *testing.T) {
	text := "Meet me at the usual place, at 10 o'clock!"
	filtered := alphabet.Latin.Filter(text)

	for _, mode := range []Mode{Encrypt, Decrypt} {
		out, err := Vigenere(text, "key", mode)
		require.NoError(t, err)
		assert.Len(t, out, len(filtered))
	}
}

func TestCustomAlphabet(t *testing.T) {
	a := alphabet.MustNew("ABCDEFGHIJKLMNÑOPQRSTUVWXYZ")
	c := New(a)

	enc, err := c.Encrypt("niño", "ñ")
	require.NoError(t, err)
	dec, err := c.Decrypt(enc, "ñ")
	require.NoError(t, err)
	assert.Equal(t, "NIÑO", dec)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("ENCRYPT")
	require.NoError(t, err)
	assert.Equal(t, Encrypt, m)

	m, err = ParseMode("decrypt")
	require.NoError(t, err)
	assert.Equal(t, Decrypt, m)

	_, err = ParseMode("analyze")
	assert.Error(t, err)

	assert.Equal(t, "encrypt", Encrypt.String())
	assert.Equal(t, "decrypt", Decrypt.String())
}

func randomText(rng *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if rng.Intn(2) == 0 {
			b.WriteByte(byte('a' + rng.Intn(26)))
		} else {
			b.WriteByte(byte('A' + rng.Intn(26)))
		}
	}
	return b.String()
}
