package analysis

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigenere/internal/cipher"
	"vigenere/internal/langs"
	"vigenere/internal/metrics"
)

const sample = "CSASTPKVSIQUTGQUCSASTPIUAQJB"

const dickens = "itwasthebestoftimesitwastheworstoftimesitwastheageofwisdomitwastheageoffoolishness" +
	"itwastheepochofbeliefitwastheepochofincredulityitwastheseasonoflightitwastheseasonofdarkness" +
	"itwasthespringofhopeitwasthewinterofdespair"

type fakeRecorder struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (f *fakeRecorder) SaveAnalysis(_ context.Context, r *Report) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.reports = append(f.reports, r)
	return int64(len(f.reports)), nil
}

func TestAnalyzeSample(t *testing.T) {
	a := New(nil, Options{})

	report, err := a.Analyze(context.Background(), sample, "English")
	require.NoError(t, err)

	assert.True(t, report.KnownLanguage)
	assert.InDelta(t, 1.73, report.KappaIC, 1e-12)
	assert.Equal(t, 28, report.TextLength)
	assert.Equal(t, 4, report.Groups)
	assert.Len(t, report.Kasiski, 5)
	assert.Len(t, report.Friedman, 25)

	require.Len(t, report.KasiskiBest, 2)
	assert.Equal(t, 2, report.KasiskiBest[0].KeyLength)
	assert.Equal(t, 4, report.KasiskiBest[1].KeyLength)

	require.NotNil(t, report.FriedmanBest)
	require.NotNil(t, report.FriedmanBest.Above)
	require.NotNil(t, report.FriedmanBest.Below)
	assert.Equal(t, 15, report.FriedmanBest.Above.KeyLength)
	assert.Equal(t, 18, report.FriedmanBest.Below.KeyLength)
	assert.Equal(t, 15, report.KeyLength())
	assert.False(t, report.CreatedAt.IsZero())
}

func TestAnalyzeLongerCiphertext(t *testing.T) {
	ciphertext, err := cipher.Vigenere(dickens, "SECRET", cipher.Encrypt)
	require.NoError(t, err)

	report, err := New(langs.Default(), Options{Workers: 4}).Analyze(context.Background(), ciphertext, "English")
	require.NoError(t, err)

	assert.Equal(t, 217, report.TextLength)
	assert.Len(t, report.Friedman, 47)
	require.NotNil(t, report.FriedmanBest.Above)
	assert.Equal(t, 45, report.FriedmanBest.Above.KeyLength)
	assert.Equal(t, 15, report.FriedmanBest.Below.KeyLength)
}

func TestAnalyzeUnknownLanguageKeepsReport(t *testing.T) {
	rec := &fakeRecorder{}
	m := metrics.NewAnalysisMetrics(metrics.NewRegistry("test", ""))
	a := New(nil, Options{Recorder: rec, Metrics: m})

	report, err := a.Analyze(context.Background(), sample, "Klingon")
	require.Error(t, err)
	assert.True(t, IsUnknownLanguage(err))

	var notFound *langs.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Klingon", notFound.Name)

	require.NotNil(t, report)
	assert.False(t, report.KnownLanguage)
	assert.Nil(t, report.FriedmanBest)
	assert.Len(t, report.Kasiski, 5)
	assert.Len(t, report.Friedman, 25)
	assert.Equal(t, 2, report.KeyLength(), "falls back to the Kasiski conclusion")

	assert.Empty(t, rec.reports)
	assert.Equal(t, uint64(1), m.UnknownLanguages.Value())
	assert.Equal(t, uint64(1), m.AnalysesTotal.Value())
}

func TestAnalyzeRecordsReports(t *testing.T) {
	rec := &fakeRecorder{}
	m := metrics.NewAnalysisMetrics(metrics.NewRegistry("test", ""))
	a := New(nil, Options{Recorder: rec, Metrics: m})

	report, err := a.Analyze(context.Background(), sample, "German")
	require.NoError(t, err)
	require.Len(t, rec.reports, 1)
	assert.Same(t, report, rec.reports[0])

	assert.Equal(t, uint64(1), m.AnalysesTotal.Value())
	assert.Equal(t, uint64(4), m.CoincidenceGroups.Value())
	assert.Equal(t, uint64(1), m.KasiskiDuration.Count())
	assert.Equal(t, uint64(1), m.FriedmanDuration.Count())
	assert.Equal(t, int64(report.KeyLength()), m.LastKeyLength.Value())
}

func TestAnalyzeRecorderFailure(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	m := metrics.NewAnalysisMetrics(metrics.NewRegistry("test", ""))

	report, err := New(nil, Options{Recorder: rec, Metrics: m}).Analyze(context.Background(), sample, "English")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, IsUnknownLanguage(err))
	require.NotNil(t, report)
	assert.Equal(t, uint64(1), m.ErrorsTotal.Value())
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(nil, Options{}).Analyze(ctx, sample, "English")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestAnalyzeDegenerateInput(t *testing.T) {
	a := New(nil, Options{})

	for _, text := range []string{"", "AB", "12345 !?"} {
		report, err := a.Analyze(context.Background(), text, "English")
		require.NoError(t, err, "text %q", text)
		assert.Empty(t, report.Kasiski)
		assert.Empty(t, report.Friedman)
		assert.Zero(t, report.KeyLength())
	}
}

func TestAnalyzeOptionsRange(t *testing.T) {
	a := New(nil, Options{MinKeyLen: 5, MaxKeyLen: 9, MinGroupLen: 4})
	report, err := a.Analyze(context.Background(), sample, "English")
	require.NoError(t, err)

	require.Len(t, report.Friedman, 4)
	assert.Equal(t, 5, report.Friedman[0].KeyLength)
	assert.Equal(t, 3, report.Groups, "the length-3 repetition is below the minimum")
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, langs.Default().Names(), New(nil, Options{}).Languages())
}

func TestPrintReport(t *testing.T) {
	a := New(nil, Options{})
	report, err := a.Analyze(context.Background(), sample, "English")
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintReport(&buf, report, a.Languages(), false)
	out := buf.String()

	assert.Contains(t, out, "===[Kasiski]===")
	assert.Contains(t, out, "2: 20.00%")
	assert.Contains(t, out, "4: 20.00%")
	assert.NotContains(t, out, "1: 20.00%")
	assert.Contains(t, out, "===[Friedman]===")
	assert.Contains(t, out, "Lang of text: English (kappa I.C. = 1.73)")
	assert.Contains(t, out, "15: 1.7333 (+0.0033)")
	assert.Contains(t, out, "Suggested key length: 15")
	assert.NotContains(t, out, "Conclusions:")

	buf.Reset()
	PrintReport(&buf, report, a.Languages(), true)
	out = buf.String()
	assert.Contains(t, out, "Conclusions:")
	assert.Contains(t, out, "16: 9.7500")
	assert.Contains(t, out, "coincidence groups: 4")
}

func TestPrintReportUnknownLanguage(t *testing.T) {
	a := New(nil, Options{})
	report, err := a.Analyze(context.Background(), sample, "Klingon")
	require.Error(t, err)

	var buf bytes.Buffer
	PrintReport(&buf, report, a.Languages(), false)
	out := buf.String()

	assert.Contains(t, out, "===[Kasiski]===")
	assert.Contains(t, out, `Unknown language "Klingon". Known languages are: English, French`)
	assert.NotContains(t, out, "===[Friedman]===")
}

func TestPrintReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, nil, nil, false)
	assert.Equal(t, "No analysis available\n", buf.String())

	buf.Reset()
	PrintKasiski(&buf, nil, true)
	assert.Contains(t, buf.String(), "No repeated sequences found")
}

func TestDigestIgnoresForeignRunes(t *testing.T) {
	a := New(nil, Options{})
	first, err := a.Analyze(context.Background(), sample, "English")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "csast pkvsi-quTGQUCSASTPIUAQJB\n", "English")
	require.NoError(t, err)

	assert.Len(t, first.Digest, 64)
	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, Digest(sample), first.Digest)
	assert.NotEqual(t, Digest("ABC"), Digest("ABD"))
}
