package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	source_name TEXT NOT NULL DEFAULT '',
	csv         BLOB NOT NULL,
	source      BLOB,
	records     INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS artifacts_created_at ON artifacts(created_at);
`

// SQLiteStore keeps artifacts in a single SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), DefaultDirPerm); err != nil {
			return nil, fmt.Errorf("cannot create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements Store. An existing artifact with the same id is replaced.
func (s *SQLiteStore) Put(ctx context.Context, a *Artifact) error {
	if err := validateArtifact(a); err != nil {
		return err
	}

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, filename, source_name, csv, source, records, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			source_name = excluded.source_name,
			csv = excluded.csv,
			source = excluded.source,
			records = excluded.records,
			created_at = excluded.created_at`,
		a.ID, a.Filename, a.SourceName, a.CSV, a.Source, a.Records, created.UnixNano())
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Artifact, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var (
		a       Artifact
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, source_name, csv, source, records, created_at
		FROM artifacts WHERE id = ?`, id).
		Scan(&a.ID, &a.Filename, &a.SourceName, &a.CSV, &a.Source, &a.Records, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}

	a.CreatedAt = time.Unix(0, created)
	return &a, nil
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete artifact: %w", err)
	}
	return n > 0, nil
}

// List implements Store
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, created_at FROM artifacts ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Filename, &created); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
