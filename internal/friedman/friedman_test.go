package friedman

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigenere/internal/alphabet"
	"vigenere/internal/cipher"
)

const sample = "CSASTPKVSIQUTGQUCSASTPIUAQJB"

const dickens = "itwasthebestoftimesitwastheworstoftimesitwastheageofwisdomitwastheageoffoolishness" +
	"itwastheepochofbeliefitwastheepochofincredulityitwastheseasonoflightitwastheseasonofdarkness" +
	"itwasthespringofhopeitwasthewinterofdespair"

func TestColumns(t *testing.T) {
	ranks := alphabet.Latin.Ranks("ABCDEFG")
	columns := Columns(ranks, 3)

	expected := [][]int{
		{0, 3, 6},
		{1, 4, Padding},
		{2, 5, Padding},
	}
	assert.Equal(t, expected, columns)

	assert.Nil(t, Columns(ranks, 0))
	assert.Nil(t, Columns(nil, 3))
}

func TestColumnDeltaIC(t *testing.T) {
	// Columns of the sample for key length 3.
	columns := [][]int{
		alphabet.Latin.Ranks("CSKITUAPAB"),
		append(alphabet.Latin.Ranks("STVQGCSIQ"), Padding),
		append(alphabet.Latin.Ranks("APSUQSTUJ"), Padding),
	}
	assert.InDelta(t, 0.9629629629629628, ColumnDeltaIC(columns, 26), 1e-12)

	assert.Zero(t, ColumnDeltaIC(nil, 26))
	assert.Zero(t, ColumnDeltaIC([][]int{{0}}, 26), "single-symbol columns contribute 0")
}

func TestFriedmanSample(t *testing.T) {
	expected := map[int]float64{
		3:  0.9629629629629628,
		4:  3.7142857142857144,
		5:  0.6933333333333334,
		6:  1.2999999999999998,
		8:  4.875,
		10: 0.0,
		11: 2.3636363636363638,
		15: 1.7333333333333334,
		16: 9.75,
		22: 1.1818181818181819,
		27: 0.0,
	}

	results := Test(sample)
	require.Len(t, results, 25)

	for i, r := range results {
		assert.Equal(t, 3+i, r.KeyLength)
		if want, ok := expected[r.KeyLength]; ok {
			assert.InDelta(t, want, r.DeltaIC, 1e-9, "key length %d", r.KeyLength)
		}
	}
}

func TestFriedmanCoverage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		minLen   int
		maxLen   int
		expected int
	}{
		{"sample default range", sample, 3, 50, 25},
		{"long text capped by max", dickens, 3, 50, 47},
		{"narrow range", dickens, 5, 9, 4},
		{"text shorter than min", "ABC", 3, 50, 0},
		{"empty", "", 3, 50, 0},
		{"inverted range", dickens, 10, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Test(tt.text, WithRange(tt.minLen, tt.maxLen))
			require.Len(t, results, tt.expected)
			for i, r := range results {
				assert.Equal(t, tt.minLen+i, r.KeyLength)
				assert.False(t, math.IsNaN(r.DeltaIC) || math.IsInf(r.DeltaIC, 0))
				assert.GreaterOrEqual(t, r.DeltaIC, 0.0)
			}
		})
	}
}

func TestFriedmanWorkersMatchSequential(t *testing.T) {
	ciphertext, err := cipher.Vigenere(dickens, "SECRET", cipher.Encrypt)
	require.NoError(t, err)

	sequential := Test(ciphertext)
	for _, workers := range []int{0, 2, 7, 100} {
		assert.Equal(t, sequential, Test(ciphertext, WithWorkers(workers)), "workers=%d", workers)
	}
}

func TestFriedmanFavoursKeyMultiples(t *testing.T) {
	ciphertext, err := cipher.Vigenere(dickens, "SECRET", cipher.Encrypt)
	require.NoError(t, err)

	results := Test(ciphertext)
	sort.Slice(results, func(i, j int) bool { return results[i].DeltaIC > results[j].DeltaIC })
	for _, r := range results[:5] {
		assert.Zero(t, r.KeyLength%6, "key length %d among the top results", r.KeyLength)
	}
}

func TestConclude(t *testing.T) {
	results := []Result{
		{KeyLength: 3, DeltaIC: 0.9},
		{KeyLength: 4, DeltaIC: 1.8},
		{KeyLength: 5, DeltaIC: 1.7},
		{KeyLength: 6, DeltaIC: 2.5},
		{KeyLength: 7, DeltaIC: 1.73},
	}

	c := Conclude(results, 1.73)
	require.NotNil(t, c.Above)
	require.NotNil(t, c.Below)
	assert.Equal(t, 7, c.Above.KeyLength)
	assert.InDelta(t, 0.0, c.Above.Delta, 1e-12)
	assert.Equal(t, 5, c.Below.KeyLength)
	assert.InDelta(t, -0.03, c.Below.Delta, 1e-12)
	assert.Equal(t, 7, c.Best())
}

func TestConcludeOneSided(t *testing.T) {
	c := Conclude([]Result{{KeyLength: 3, DeltaIC: 0.5}, {KeyLength: 4, DeltaIC: 0.7}}, 1.73)
	assert.Nil(t, c.Above)
	require.NotNil(t, c.Below)
	assert.Equal(t, 4, c.Best())

	empty := Conclude(nil, 1.73)
	assert.Nil(t, empty.Above)
	assert.Nil(t, empty.Below)
	assert.Zero(t, empty.Best())
}
