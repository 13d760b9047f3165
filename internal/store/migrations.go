package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// migrations contains all database migrations in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema with analyses and per-test results",
		Up:          migrationV1Up,
		Down:        migrationV1Down,
	},
	{
		Version:     2,
		Description: "Index analyses by ciphertext digest",
		Up:          migrationV2Up,
		Down:        migrationV2Down,
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS analyses (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at_ns   INTEGER NOT NULL,
    language        TEXT NOT NULL,
    kappa_ic        REAL NOT NULL,
    digest          TEXT NOT NULL,
    text_length     INTEGER NOT NULL,
    groups_found    INTEGER NOT NULL,
    key_length      INTEGER NOT NULL,
    duration_ns     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at_ns);
CREATE INDEX IF NOT EXISTS idx_analyses_language ON analyses(language, created_at_ns);

CREATE TABLE IF NOT EXISTS kasiski_candidates (
    analysis_id     INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    ordinal         INTEGER NOT NULL,
    key_length      INTEGER NOT NULL,
    support         REAL NOT NULL,
    PRIMARY KEY (analysis_id, ordinal)
);

CREATE TABLE IF NOT EXISTS friedman_results (
    analysis_id     INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    key_length      INTEGER NOT NULL,
    delta_ic        REAL NOT NULL,
    PRIMARY KEY (analysis_id, key_length)
);
`

const migrationV1Down = `
DROP TABLE IF EXISTS friedman_results;
DROP TABLE IF EXISTS kasiski_candidates;
DROP TABLE IF EXISTS analyses;
`

const migrationV2Up = `
CREATE INDEX IF NOT EXISTS idx_analyses_digest ON analyses(digest);
`

const migrationV2Down = `
DROP INDEX IF EXISTS idx_analyses_digest;
`

// MigrateDB applies all pending migrations.
func MigrateDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  INTEGER NOT NULL,
			description TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	currentVersion, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.Version, time.Now().UnixNano(), m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// RollbackMigration rolls back the last applied migration.
func RollbackMigration(db *sql.DB) error {
	currentVersion, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if currentVersion == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range migrations {
		if migrations[i].Version == currentVersion {
			migration = &migrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %d not found", currentVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.Exec(migration.Down); err != nil {
		tx.Rollback()
		return fmt.Errorf("rollback migration %d: %w", currentVersion, err)
	}

	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", currentVersion); err != nil {
		tx.Rollback()
		return fmt.Errorf("remove migration record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rollback: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh
// database.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return version, nil
}

// LatestVersion returns the version the schema is migrated to by Open.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}
