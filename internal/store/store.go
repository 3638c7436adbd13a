// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists committed dossiers in SQLite so research survives
// across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/course-engine/pkg/types"
)

// DefaultPath is the database location used when none is configured.
const DefaultPath = "research/dossiers.db"

// Store manages the dossier database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path, creating the parent
// directory and schema as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS dossiers (
			key TEXT PRIMARY KEY,
			synthesis_notes TEXT NOT NULL,
			queries TEXT,
			verified_count INTEGER,
			stripped_count INTEGER,
			degraded INTEGER NOT NULL DEFAULT 0,
			fallback INTEGER NOT NULL DEFAULT 0,
			committed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			dossier_key TEXT NOT NULL REFERENCES dossiers(key) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			authors TEXT,
			year TEXT,
			url TEXT,
			doi TEXT,
			summary TEXT,
			relevance TEXT,
			verified INTEGER NOT NULL DEFAULT 0,
			UNIQUE(dossier_key, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_doi ON sources(doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes d, replacing any dossier stored under the same key.
func (s *Store) Save(ctx context.Context, d types.Dossier) error {
	if d.Key == "" {
		return errors.New("dossier has no key")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	queriesJSON, _ := json.Marshal(d.Queries)
	var verified, stripped sql.NullInt64
	if d.Validation != nil {
		verified = sql.NullInt64{Int64: int64(d.Validation.VerifiedCount), Valid: true}
		stripped = sql.NullInt64{Int64: int64(d.Validation.StrippedCount), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dossiers (key, synthesis_notes, queries, verified_count, stripped_count, degraded, fallback, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			synthesis_notes=excluded.synthesis_notes, queries=excluded.queries,
			verified_count=excluded.verified_count, stripped_count=excluded.stripped_count,
			degraded=excluded.degraded, fallback=excluded.fallback, committed_at=excluded.committed_at`,
		d.Key, d.SynthesisNotes, string(queriesJSON), verified, stripped,
		d.Degraded, d.Fallback, d.CommittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting dossier: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE dossier_key = ?`, d.Key); err != nil {
		return fmt.Errorf("deleting old sources: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (dossier_key, position, title, authors, year, url, doi, summary, relevance, verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, src := range d.Sources {
		authorsJSON, _ := json.Marshal(src.Authors)
		_, err := stmt.ExecContext(ctx,
			d.Key, i, src.Title, string(authorsJSON), src.Year,
			src.URL, src.DOI, src.Summary, src.Relevance, src.Verified,
		)
		if err != nil {
			return fmt.Errorf("inserting source %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load returns the dossier stored under key.
func (s *Store) Load(ctx context.Context, key string) (types.Dossier, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, synthesis_notes, queries, verified_count, stripped_count, degraded, fallback, committed_at
		 FROM dossiers WHERE key = ?`, key)
	d, err := scanDossier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Dossier{}, false, nil
	}
	if err != nil {
		return types.Dossier{}, false, err
	}
	if d.Sources, err = s.sources(ctx, key); err != nil {
		return types.Dossier{}, false, err
	}
	return d, true, nil
}

// List returns every stored dossier ordered by key.
func (s *Store) List(ctx context.Context) ([]types.Dossier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, synthesis_notes, queries, verified_count, stripped_count, degraded, fallback, committed_at
		 FROM dossiers ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying dossiers: %w", err)
	}
	var out []types.Dossier
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating dossiers: %w", err)
	}
	rows.Close()

	for i := range out {
		if out[i].Sources, err = s.sources(ctx, out[i].Key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Delete removes the dossier stored under key. Deleting a missing key is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dossiers WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting dossier %s: %w", key, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDossier(sc scanner) (types.Dossier, error) {
	var (
		d                  types.Dossier
		queries            sql.NullString
		verified, stripped sql.NullInt64
		committed          string
	)
	if err := sc.Scan(&d.Key, &d.SynthesisNotes, &queries, &verified, &stripped, &d.Degraded, &d.Fallback, &committed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scanning dossier: %w", err)
	}
	if queries.Valid && queries.String != "" {
		_ = json.Unmarshal([]byte(queries.String), &d.Queries)
	}
	if verified.Valid {
		d.Validation = &types.ValidationOutcome{
			VerifiedCount: int(verified.Int64),
			StrippedCount: int(stripped.Int64),
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, committed); err == nil {
		d.CommittedAt = t
	}
	return d, nil
}

func (s *Store) sources(ctx context.Context, key string) ([]types.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, authors, year, url, doi, summary, relevance, verified
		 FROM sources WHERE dossier_key = ? ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var out []types.Source
	for rows.Next() {
		var (
			src     types.Source
			authors sql.NullString
		)
		if err := rows.Scan(&src.Title, &authors, &src.Year, &src.URL, &src.DOI, &src.Summary, &src.Relevance, &src.Verified); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if authors.Valid && authors.String != "" {
			_ = json.Unmarshal([]byte(authors.String), &src.Authors)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
