// Package store persists a morph.Index in SQLite: every root with its
// occurrence count and its derivatives in first-insertion order.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kerem-kaynak/sarf/pkg/morph"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed snapshot of a root index.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection and applies the schema.
func New(db *sql.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with entries in one transaction.
func (s *Store) Save(ctx context.Context, entries []morph.RootEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM derivatives`); err != nil {
		return fmt.Errorf("clear derivatives: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roots`); err != nil {
		return fmt.Errorf("clear roots: %w", err)
	}

	insertRoot, err := tx.PrepareContext(ctx, `INSERT INTO roots (root, occurrences) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare roots: %w", err)
	}
	defer insertRoot.Close()
	insertDerivative, err := tx.PrepareContext(ctx,
		`INSERT INTO derivatives (root, word, pattern, frequency, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare derivatives: %w", err)
	}
	defer insertDerivative.Close()

	for _, e := range entries {
		if _, err := insertRoot.ExecContext(ctx, e.Root, e.Occurrences); err != nil {
			return fmt.Errorf("insert root %q: %w", e.Root, err)
		}
		for i, d := range e.Derivatives() {
			if _, err := insertDerivative.ExecContext(ctx, e.Root, d.Word, d.Pattern, d.Frequency, i+1); err != nil {
				return fmt.Errorf("insert derivative %q of %q: %w", d.Word, e.Root, err)
			}
		}
	}
	return tx.Commit()
}

// Load returns every stored entry ordered by root, with derivatives in
// their original order.
func (s *Store) Load(ctx context.Context) ([]morph.RootEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT root, occurrences FROM roots ORDER BY root`)
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	type row struct {
		root        string
		occurrences int
	}
	var roots []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.root, &r.occurrences); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan root: %w", err)
		}
		roots = append(roots, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	derivs, err := s.derivatives(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]morph.RootEntry, 0, len(roots))
	for _, r := range roots {
		entries = append(entries, morph.NewRootEntry(r.root, r.occurrences, derivs[r.root]))
	}
	return entries, nil
}

func (s *Store) derivatives(ctx context.Context) (map[string][]morph.Derivative, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT root, word, pattern, frequency FROM derivatives ORDER BY root, position`)
	if err != nil {
		return nil, fmt.Errorf("query derivatives: %w", err)
	}
	defer rows.Close()

	out := map[string][]morph.Derivative{}
	for rows.Next() {
		var root string
		var d morph.Derivative
		if err := rows.Scan(&root, &d.Word, &d.Pattern, &d.Frequency); err != nil {
			return nil, fmt.Errorf("scan derivative: %w", err)
		}
		out[root] = append(out[root], d)
	}
	return out, rows.Err()
}

// MergeDerivative records one (root, word, pattern) occurrence, creating
// the root if needed and incrementing the frequency of an existing tuple.
// Returns the stored frequency.
func (s *Store) MergeDerivative(ctx context.Context, root, word, pattern string) (int, error) {
	key, ok := morph.NormalizeRoot(root)
	if !ok {
		return 0, fmt.Errorf("%w: %q", morph.ErrInvalidRoot, root)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roots (root, occurrences) VALUES (?, 1) ON CONFLICT(root) DO NOTHING`, key); err != nil {
		return 0, fmt.Errorf("upsert root: %w", err)
	}

	var frequency int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO derivatives (root, word, pattern, frequency, position)
		 VALUES (?, ?, ?, 1, (SELECT COALESCE(MAX(position), 0) + 1 FROM derivatives WHERE root = ?))
		 ON CONFLICT(root, word, pattern)
		 DO UPDATE SET frequency = derivatives.frequency + 1
		 RETURNING frequency`,
		key, word, pattern, key).Scan(&frequency)
	if err != nil {
		return 0, fmt.Errorf("upsert derivative: %w", err)
	}
	return frequency, tx.Commit()
}

// Snapshot saves the current contents of ix.
func (s *Store) Snapshot(ctx context.Context, ix *morph.Index) error {
	return s.Save(ctx, ix.Entries())
}

// Restore loads every stored entry into ix and returns how many were read.
func (s *Store) Restore(ctx context.Context, ix *morph.Index) (int, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := ix.Restore(e); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

// Counts returns the number of stored roots and derivatives.
func (s *Store) Counts(ctx context.Context) (roots, derivatives int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM roots), (SELECT COUNT(*) FROM derivatives)`).Scan(&roots, &derivatives)
	return roots, derivatives, err
}
