// Package store provides SQLite-based storage for the analysis history.
package store

import "time"

// Analysis is one stored analysis run.
type Analysis struct {
	ID        int64
	CreatedAt time.Time
	Language  string
	KappaIC   float64
	// Digest is the hex BLAKE2b-256 of the filtered ciphertext.
	Digest     string
	TextLength int
	Groups     int
	KeyLength  int
	Duration   time.Duration

	Kasiski  []KasiskiCandidate
	Friedman []FriedmanResult
}

// KasiskiCandidate is a stored Kasiski vote.
type KasiskiCandidate struct {
	KeyLength int
	Support   float64
}

// FriedmanResult is a stored Friedman column statistic.
type FriedmanResult struct {
	KeyLength int
	DeltaIC   float64
}

// Filter narrows ListAnalyses.
type Filter struct {
	Language string
	Digest   string
	Since    time.Time
	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// Stats summarises the history.
type Stats struct {
	Analyses  int
	Languages map[string]int
	// KeyLengths counts suggested key lengths over all analyses.
	KeyLengths map[int]int
}
