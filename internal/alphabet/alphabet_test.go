package alphabet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatinRanks(t *testing.T) {
	require.Equal(t, 26, Latin.Size())
	assert.Equal(t, LatinSymbols, Latin.Symbols())

	tests := []struct {
		r    rune
		rank int
		ok   bool
	}{
		{'A', 0, true},
		{'a', 0, true},
		{'Z', 25, true},
		{'m', 12, true},
		{'@', 0, false},
		{' ', 0, false},
		{'1', 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			rank, ok := Latin.Rank(tt.r)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.rank, rank)
				assert.Equal(t, tt.r&^0x20, Latin.Symbol(rank))
			}
		})
	}
}

func TestSymbolWrapsRank(t *testing.T) {
	assert.Equal(t, 'A', Latin.Symbol(26))
	assert.Equal(t, 'Z', Latin.Symbol(-1))
	assert.Equal(t, 'C', Latin.Symbol(54))
}

func TestRanksDropsForeignRunes(t *testing.T) {
	ranks := Latin.Ranks("Hello, World! 42")
	assert.Equal(t, "HELLOWORLD", Latin.Text(ranks))
	assert.Equal(t, "HELLOWORLD", Latin.Filter("Hello, World! 42"))
	assert.Empty(t, Latin.Ranks(""))
	assert.Empty(t, Latin.Ranks("1234 !?"))
}

func TestRankTextRoundTrip(t *testing.T) {
	for rank := 0; rank < Latin.Size(); rank++ {
		got, ok := Latin.Rank(Latin.Symbol(rank))
		require.True(t, ok)
		assert.Equal(t, rank, got)
	}
}

func TestNewRejectsBadAlphabets(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyAlphabet)

	_, err = New("ABCA")
	assert.Error(t, err)

	_, err = New("abcA")
	assert.Error(t, err, "symbols are case-folded before the duplicate check")
}

func TestAccentFolding(t *testing.T) {
	plain := Latin.Filter("café")
	assert.Equal(t, "CAF", plain)

	folding := MustNew(LatinSymbols, WithAccentFolding())
	assert.Equal(t, "CAFE", folding.Filter("café"))
	assert.Equal(t, "ACAO", folding.Filter("ação"))
}

func TestRankMatchesRanks(t *testing.T) {
	folding := MustNew(LatinSymbols, WithAccentFolding())
	for _, r := range "éÉñçaZ" {
		rank, ok := folding.Rank(r)
		require.True(t, ok, "rank of %q", r)
		assert.Equal(t, folding.Ranks(string(r)), []int{rank})
		assert.True(t, folding.Contains(r))
	}

	_, ok := Latin.Rank('é')
	assert.False(t, ok)
	assert.Empty(t, Latin.Ranks("é"))
}

func TestNormalizeDropsExpandingRunes(t *testing.T) {
	assert.Equal(t, "STRAE", Latin.Normalize("straße"))
	assert.Equal(t, "STRAE", Latin.Filter("straße"))
	assert.Empty(t, Latin.Filter("ß"))
	assert.False(t, Latin.Contains('ß'))

	_, err := New("ABß")
	assert.Error(t, err)
}

func TestCustomAlphabet(t *testing.T) {
	spanish := MustNew("ABCDEFGHIJKLMNÑOPQRSTUVWXYZ")
	require.Equal(t, 27, spanish.Size())

	rank, ok := spanish.Rank('ñ')
	require.True(t, ok)
	assert.Equal(t, 14, rank)
	assert.Equal(t, "NIÑO", spanish.Filter("niño"))
}

func TestStripLineBreaks(t *testing.T) {
	assert.Equal(t, "ABCDEF", StripLineBreaks("  ABC \n DEF\n"))
	assert.Equal(t, "", StripLineBreaks("\n\n"))
}
