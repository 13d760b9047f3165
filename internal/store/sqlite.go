package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vigenere/internal/analysis"
)

// ErrNotFound is returned when an analysis does not exist.
var ErrNotFound = errors.New("store: analysis not found")

// Store is the SQLite analysis history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ analysis.Recorder = (*Store)(nil)

// Option configures Open.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying connection for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveAnalysis stores a report with its Kasiski and Friedman results in one
// transaction and returns the new analysis ID.
func (s *Store) SaveAnalysis(ctx context.Context, r *analysis.Report) (int64, error) {
	if r == nil {
		return 0, errors.New("store: nil report")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (created_at_ns, language, kappa_ic, digest, text_length, groups_found, key_length, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CreatedAt.UnixNano(), r.Language, r.KappaIC, r.Digest, r.TextLength, r.Groups, r.KeyLength(), int64(r.Duration),
	)
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	kasiskiStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kasiski_candidates (analysis_id, ordinal, key_length, support)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare kasiski insert: %w", err)
	}
	defer kasiskiStmt.Close()

	for i, c := range r.Kasiski {
		if _, err := kasiskiStmt.ExecContext(ctx, id, i, c.KeyLength, c.Support); err != nil {
			return 0, fmt.Errorf("insert kasiski candidate %d: %w", i, err)
		}
	}

	friedmanStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO friedman_results (analysis_id, key_length, delta_ic)
		VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare friedman insert: %w", err)
	}
	defer friedmanStmt.Close()

	for _, fr := range r.Friedman {
		if _, err := friedmanStmt.ExecContext(ctx, id, fr.KeyLength, fr.DeltaIC); err != nil {
			return 0, fmt.Errorf("insert friedman result %d: %w", fr.KeyLength, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit analysis: %w", err)
	}

	s.logger.Debug("analysis saved", "id", id, "language", r.Language, "key_length", r.KeyLength())
	return id, nil
}

// ListAnalyses returns stored analyses, newest first, without their per-test
// results.
func (s *Store) ListAnalyses(ctx context.Context, f Filter) ([]Analysis, error) {
	var (
		where []string
		args  []any
	)
	if f.Language != "" {
		where = append(where, "language = ?")
		args = append(args, f.Language)
	}
	if f.Digest != "" {
		where = append(where, "digest = ?")
		args = append(args, f.Digest)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}

	query := `SELECT id, created_at_ns, language, kappa_ic, digest, text_length, groups_found, key_length, duration_ns FROM analyses`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at_ns DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*Analysis, error) {
	var (
		a          Analysis
		createdAt  int64
		durationNs int64
	)
	err := row.Scan(&a.ID, &createdAt, &a.Language, &a.KappaIC, &a.Digest, &a.TextLength, &a.Groups, &a.KeyLength, &durationNs)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	a.Duration = time.Duration(durationNs)
	return &a, nil
}

// GetAnalysis returns one analysis with its Kasiski candidates (in stored
// order) and Friedman results (ascending key length).
func (s *Store) GetAnalysis(ctx context.Context, id int64) (*Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at_ns, language, kappa_ic, digest, text_length, groups_found, key_length, duration_ns
		FROM analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key_length, support FROM kasiski_candidates
		WHERE analysis_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("query kasiski candidates: %w", err)
	}
	for rows.Next() {
		var c KasiskiCandidate
		if err := rows.Scan(&c.KeyLength, &c.Support); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan kasiski candidate: %w", err)
		}
		a.Kasiski = append(a.Kasiski, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT key_length, delta_ic FROM friedman_results
		WHERE analysis_id = ? ORDER BY key_length`, id)
	if err != nil {
		return nil, fmt.Errorf("query friedman results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r FriedmanResult
		if err := rows.Scan(&r.KeyLength, &r.DeltaIC); err != nil {
			return nil, fmt.Errorf("scan friedman result: %w", err)
		}
		a.Friedman = append(a.Friedman, r)
	}
	return a, rows.Err()
}

// DeleteBefore removes analyses created before cutoff and returns how many
// were removed. Per-test results cascade.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE created_at_ns < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete analyses: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned analysis history", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

// Stats summarises the stored analyses.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Languages:  make(map[string]int),
		KeyLengths: make(map[int]int),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&st.Analyses); err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT language, COUNT(*) FROM analyses GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("count languages: %w", err)
	}
	for rows.Next() {
		var (
			lang string
			n    int
		)
		if err := rows.Scan(&lang, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.Languages[lang] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT key_length, COUNT(*) FROM analyses WHERE key_length > 0 GROUP BY key_length")
	if err != nil {
		return nil, fmt.Errorf("count key lengths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var length, n int
		if err := rows.Scan(&length, &n); err != nil {
			return nil, err
		}
		st.KeyLengths[length] = n
	}
	return st, rows.Err()
}
