// Package history is a local, persistent ledger of past conversions and
// per-track export/play timestamps. Spec.md marks the hardware history
// table-kinds (17/18) optional; this package keeps the cross-run record
// from which a "recently added" / "recently played" history playlist can be
// assembled (§4.6, supplemental feature). internal/pdbwriter emits no
// history tables from it.
//
// Grounded on internal/storage/db.go's embedded-migration SQLite wrapper,
// trimmed to the two tables this domain needs and re-expressed with the
// narrower Store API internal/storage/tracks.go's upsert-by-key pattern
// suggests, rather than carried over verbatim (the teacher's Track/content
// hash identity model does not match collection.Track's fingerprint).
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the conversion-history SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite ledger at path and applies any
// pending migrations. logger defaults to slog.Default() if nil.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("current version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		s.logger.Info("applying history migration", "version", version, "file", entry.Name())
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Conversion is one completed (or aborted) conversion run.
type Conversion struct {
	TargetFormat string
	Tier         string
	TrackCount   int
	IssueCount   int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RecordConversion appends one row to the conversions ledger.
func (s *Store) RecordConversion(c Conversion) error {
	_, err := s.db.Exec(`INSERT INTO conversions
		(target_format, tier, track_count, issue_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.TargetFormat, c.Tier, c.TrackCount, c.IssueCount, c.StartedAt, c.FinishedAt)
	if err != nil {
		return fmt.Errorf("history: record conversion: %w", err)
	}
	return nil
}

// TouchExported upserts a track's last-exported timestamp and increments its
// export count, for every fingerprint in an export plan.
func (s *Store) TouchExported(fingerprints []string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history: touch exported: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO track_history (fingerprint, last_exported_at, export_count)
		VALUES (?, ?, 1)
		ON CONFLICT(fingerprint) DO UPDATE SET
			last_exported_at = excluded.last_exported_at,
			export_count = export_count + 1`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("history: touch exported: %w", err)
	}
	defer stmt.Close()

	for _, fp := range fingerprints {
		if _, err := stmt.Exec(fp, at); err != nil {
			tx.Rollback()
			return fmt.Errorf("history: touch exported %s: %w", fp, err)
		}
	}
	return tx.Commit()
}

// RecentlyAdded returns up to limit fingerprints ordered by latest
// export time, most-recent first — the source for a history-kind-17
// "recently added" hardware playlist.
func (s *Store) RecentlyAdded(limit int) ([]string, error) {
	return s.queryOrdered("last_exported_at", limit)
}

// RecentlyPlayed returns up to limit fingerprints ordered by most-recent
// last_played_at — the source for a history-kind-18 "recently played"
// hardware playlist. A track with no recorded play is excluded.
func (s *Store) RecentlyPlayed(limit int) ([]string, error) {
	return s.queryOrdered("last_played_at", limit)
}

func (s *Store) queryOrdered(column string, limit int) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT fingerprint FROM track_history WHERE %s IS NOT NULL ORDER BY %s DESC LIMIT ?", column, column),
		limit)
	if err != nil {
		return nil, fmt.Errorf("history: query %s: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("history: scan %s: %w", column, err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}
