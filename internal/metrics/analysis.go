package metrics

import (
	"time"
)

// AnalysisMetrics holds the metrics recorded by the cipher and the
// key-length analysis.
type AnalysisMetrics struct {
	registry *Registry

	// Counters
	AnalysesTotal     *Counter
	EncryptionsTotal  *Counter
	DecryptionsTotal  *Counter
	UnknownLanguages  *Counter
	CoincidenceGroups *Counter
	ErrorsTotal       *Counter

	// Gauges
	LastKeyLength *Gauge

	// Histograms
	AnalysisDuration *Histogram
	KasiskiDuration  *Histogram
	FriedmanDuration *Histogram
	TextLength       *Histogram
}

// NewAnalysisMetrics creates and registers the analysis metrics in registry.
// A nil registry selects Default().
func NewAnalysisMetrics(registry *Registry) *AnalysisMetrics {
	if registry == nil {
		registry = Default()
	}

	return &AnalysisMetrics{
		registry: registry,

		AnalysesTotal: registry.RegisterCounter(
			"analyses_total",
			"Total number of ciphertexts analysed",
			nil,
		),
		EncryptionsTotal: registry.RegisterCounter(
			"encryptions_total",
			"Total number of texts encrypted",
			nil,
		),
		DecryptionsTotal: registry.RegisterCounter(
			"decryptions_total",
			"Total number of texts decrypted",
			nil,
		),
		UnknownLanguages: registry.RegisterCounter(
			"unknown_language_total",
			"Analyses requested for a language missing from the reference store",
			nil,
		),
		CoincidenceGroups: registry.RegisterCounter(
			"kasiski_groups_total",
			"Repeated sequences found by the Kasiski examination",
			nil,
		),
		ErrorsTotal: registry.RegisterCounter(
			"errors_total",
			"Total number of failed operations",
			nil,
		),

		LastKeyLength: registry.RegisterGauge(
			"last_key_length",
			"Key length suggested by the most recent analysis",
			nil,
		),

		AnalysisDuration: registry.RegisterHistogram(
			"analysis_duration_seconds",
			"Wall time of a complete analysis",
			nil,
			DurationBuckets,
		),
		KasiskiDuration: registry.RegisterHistogram(
			"kasiski_duration_seconds",
			"Time spent in the Kasiski examination",
			nil,
			DurationBuckets,
		),
		FriedmanDuration: registry.RegisterHistogram(
			"friedman_duration_seconds",
			"Time spent in the Friedman test",
			nil,
			DurationBuckets,
		),
		TextLength: registry.RegisterHistogram(
			"ciphertext_symbols",
			"Number of alphabet symbols per analysed ciphertext",
			nil,
			LengthBuckets,
		),
	}
}

// Registry returns the registry the metrics are registered in.
func (m *AnalysisMetrics) Registry() *Registry {
	return m.registry
}

// RecordAnalysis records a finished analysis.
func (m *AnalysisMetrics) RecordAnalysis(duration time.Duration, symbols, groups, keyLength int) {
	m.AnalysesTotal.Inc()
	m.AnalysisDuration.ObserveDuration(duration)
	m.TextLength.Observe(float64(symbols))
	m.CoincidenceGroups.Add(uint64(groups))
	if keyLength > 0 {
		m.LastKeyLength.Set(int64(keyLength))
	}
}

// StartKasiskiTimer returns a timer for the Kasiski examination.
func (m *AnalysisMetrics) StartKasiskiTimer() *HistogramTimer {
	return m.KasiskiDuration.Timer()
}

// StartFriedmanTimer returns a timer for the Friedman test.
func (m *AnalysisMetrics) StartFriedmanTimer() *HistogramTimer {
	return m.FriedmanDuration.Timer()
}

// RecordTransform records an encryption (sign > 0) or decryption.
func (m *AnalysisMetrics) RecordTransform(sign int) {
	if sign > 0 {
		m.EncryptionsTotal.Inc()
		return
	}
	m.DecryptionsTotal.Inc()
}

// RecordUnknownLanguage records an analysis against a missing language.
func (m *AnalysisMetrics) RecordUnknownLanguage() {
	m.UnknownLanguages.Inc()
}

// RecordError records a failed operation.
func (m *AnalysisMetrics) RecordError() {
	m.ErrorsTotal.Inc()
}

// Snapshot returns the key metrics by name.
func (m *AnalysisMetrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"analyses_total":         m.AnalysesTotal.Value(),
		"encryptions_total":      m.EncryptionsTotal.Value(),
		"decryptions_total":      m.DecryptionsTotal.Value(),
		"unknown_language_total": m.UnknownLanguages.Value(),
		"kasiski_groups_total":   m.CoincidenceGroups.Value(),
		"errors_total":           m.ErrorsTotal.Value(),
		"last_key_length":        m.LastKeyLength.Value(),
		"analysis_avg_seconds":   m.AnalysisDuration.Mean(),
		"kasiski_avg_seconds":    m.KasiskiDuration.Mean(),
		"friedman_avg_seconds":   m.FriedmanDuration.Mean(),
		"ciphertext_avg_symbols": m.TextLength.Mean(),
	}
}
