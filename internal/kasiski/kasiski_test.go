package kasiski

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigenere/internal/alphabet"
	"vigenere/internal/cipher"
)

const sample = "CSASTPKVSIQUTGQUCSASTPIUAQJB"

func TestFindGroups(t *testing.T) {
	groups := FindGroups(alphabet.Latin.Ranks(sample), 3, nil)

	expected := []CoincidenceGroup{
		{First: 0, Second: 16, Sequence: "CSASTP"},
		{First: 1, Second: 17, Sequence: "SASTP"},
		{First: 2, Second: 18, Sequence: "ASTP"},
		{First: 3, Second: 19, Sequence: "STP"},
	}
	assert.Equal(t, expected, groups)
	for _, g := range groups {
		assert.Equal(t, 16, g.Distance())
	}
}

func TestFindGroupsMinLength(t *testing.T) {
	ranks := alphabet.Latin.Ranks(sample)
	assert.Len(t, FindGroups(ranks, 5, nil), 2)
	assert.Len(t, FindGroups(ranks, 7, nil), 0)
}

func TestFactors(t *testing.T) {
	tests := []struct {
		n        int
		expected []int
	}{
		{0, nil},
		{1, []int{1}},
		{2, []int{1, 2}},
		{16, []int{1, 2, 4, 8, 16}},
		{36, []int{1, 2, 3, 4, 6, 9, 12, 18, 36}},
		{97, []int{1, 97}},
		{264, []int{1, 2, 3, 4, 6, 8, 11, 12, 22, 24, 33, 44, 66, 88, 132, 264}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Factors(tt.n), "Factors(%d)", tt.n)
	}
}

func TestKasiskiSample(t *testing.T) {
	candidates := Test(sample)
	require.Len(t, candidates, 5)

	lengths := make([]int, 0, len(candidates))
	for _, c := range candidates {
		lengths = append(lengths, c.KeyLength)
		assert.InDelta(t, 20.0, c.Support, 1e-9)
	}
	assert.Equal(t, []int{1, 2, 4, 8, 16}, lengths)
}

func TestKasiskiDeterministic(t *testing.T) {
	first := Test(sample)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Test(sample))
	}
}

func TestKasiskiWorkersMatchSequential(t *testing.T) {
	plain := strings.Repeat("thequickbrownfoxjumpsoverthelazydogandthenrunsaway", 6)
	ciphertext, err := cipher.Vigenere(plain, "LEMON", cipher.Encrypt)
	require.NoError(t, err)

	ranks := alphabet.Latin.Ranks(ciphertext)
	sequential := findGroups(ranks, 3, 1, alphabet.Latin)
	for _, workers := range []int{2, 3, 8, 1000} {
		assert.Equal(t, sequential, findGroups(ranks, 3, workers, alphabet.Latin), "workers=%d", workers)
		assert.Equal(t, Test(ciphertext), Test(ciphertext, WithWorkers(workers)))
	}
}

func TestKasiskiFindsKeyLength(t *testing.T) {
	plain := strings.Repeat("meetmeatthecornerofthestreetafterthemeeting", 8)
	ciphertext, err := cipher.Vigenere(plain, "CODE", cipher.Encrypt)
	require.NoError(t, err)

	candidates := Test(ciphertext, WithWorkers(0))
	require.NotEmpty(t, candidates)

	found := false
	for _, c := range Conclusions(candidates) {
		if c.KeyLength == 4 || c.KeyLength == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected a divisor of the key length among %v", Conclusions(candidates))
}

func TestKasiskiDegenerate(t *testing.T) {
	assert.Empty(t, Test(""))
	assert.Empty(t, Test("ABCDEFG"))
	assert.Empty(t, Test("AAAAA"), "shorter than twice the minimum group length")
	assert.Empty(t, Test("ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	assert.Empty(t, Test("ABXABYAB", WithMinGroupLen(2)), "groups shorter than the first threshold cast no votes")
}

func TestKasiskiIgnoresForeignRunes(t *testing.T) {
	spaced := "CSAST PKVSI QUTGQ UCSAS TPIUA QJB\n"
	assert.Equal(t, Test(sample), Test(spaced))
}

func TestVoteThresholds(t *testing.T) {
	groups := []CoincidenceGroup{
		{First: 0, Second: 12, Sequence: "ABCDE"},
		{First: 3, Second: 21, Sequence: "XYZ"},
	}
	// t=3: {1,2,3,4,6,12} & {1,2,3,6,9,18} = {1,2,3,6}
	// t=4, t=5: {1,2,3,4,6,12}
	candidates := Vote(groups)

	support := map[int]float64{}
	for _, c := range candidates {
		support[c.KeyLength] = c.Support
	}
	total := 4.0 + 6 + 6
	assert.InDelta(t, 3*100/total, support[1], 1e-9)
	assert.InDelta(t, 3*100/total, support[6], 1e-9)
	assert.InDelta(t, 2*100/total, support[4], 1e-9)
	assert.InDelta(t, 2*100/total, support[12], 1e-9)
	assert.NotContains(t, support, 9)

	sum := 0.0
	for _, c := range candidates {
		sum += c.Support
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestConclusions(t *testing.T) {
	candidates := []Candidate{
		{KeyLength: 3, Support: 10},
		{KeyLength: 1, Support: 40},
		{KeyLength: 6, Support: 30},
		{KeyLength: 2, Support: 20},
	}
	assert.Equal(t, []Candidate{{6, 30}, {2, 20}}, Conclusions(candidates))

	assert.Equal(t, []Candidate{{5, 100}}, Conclusions([]Candidate{{5, 100}}))
	assert.Empty(t, Conclusions([]Candidate{{1, 100}}))
	assert.Nil(t, Conclusions(nil))
}

func TestExamineReturnsGroups(t *testing.T) {
	groups, candidates := Examine(sample)
	require.Len(t, groups, 4)
	for _, g := range groups {
		assert.Equal(t, 16, g.Distance())
	}
	assert.Equal(t, Test(sample), candidates)

	groups, candidates = Examine("ABC")
	assert.Empty(t, groups)
	assert.Empty(t, candidates)
}
