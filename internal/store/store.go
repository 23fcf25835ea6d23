package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"framed/internal/config"
)

// Namespaces used by the frame pipeline. Each behaves as an independent
// key-value map; cross-namespace consistency is maintained by write ordering,
// not transactions.
const (
	NamespaceAnswer     = "answer"
	NamespaceFrameState = "framestate"
	NamespaceRunState   = "runstate"
	NamespaceArchive    = "archive"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// Store manages record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the state database and ensures the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "framed.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the state database.
func (s *Store) Path() string {
	return s.path
}

// Namespace returns a handle scoped to one logical key space.
func (s *Store) Namespace(name string) *Namespace {
	return &Namespace{db: s.db, name: name}
}

// Namespace provides per-key atomic get/set/remove over one key space.
type Namespace struct {
	db   *sql.DB
	name string
}

// Name returns the namespace identifier.
func (n *Namespace) Name() string {
	return n.name
}

// GetItem fetches the raw value for a key. The second return is false when the
// key is absent.
func (n *Namespace) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	row := n.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE namespace = ? AND key = ?`, n.name, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s/%s: %w", n.name, key, err)
	}
	return []byte(value), true, nil
}

// SetItem stores a value under a key, replacing any previous value.
func (n *Namespace) SetItem(ctx context.Context, key string, value []byte) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := n.db.ExecContext(ctx,
		`INSERT INTO records (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		n.name, key, string(value), timestamp)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", n.name, key, err)
	}
	return nil
}

// RemoveItem deletes a key. Removing an absent key is not an error.
func (n *Namespace) RemoveItem(ctx context.Context, key string) error {
	if _, err := n.db.ExecContext(ctx,
		`DELETE FROM records WHERE namespace = ? AND key = ?`, n.name, key); err != nil {
		return fmt.Errorf("remove %s/%s: %w", n.name, key, err)
	}
	return nil
}

// GetKeys returns every key in the namespace, ordered for determinism.
func (n *Namespace) GetKeys(ctx context.Context) ([]string, error) {
	rows, err := n.db.QueryContext(ctx,
		`SELECT key FROM records WHERE namespace = ? ORDER BY key`, n.name)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", n.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Count returns the number of keys in the namespace.
func (n *Namespace) Count(ctx context.Context) (int, error) {
	var count int
	row := n.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM records WHERE namespace = ?`, n.name)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", n.name, err)
	}
	return count, nil
}
