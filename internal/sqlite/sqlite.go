// Package sqlite provides the durable, file-backed backend variant.
//
// One instance is meant to live for the whole process (see Shared); tests
// and preview contexts use internal/memory or open an isolated database
// under a temp dir instead.
package sqlite

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/roach88/liveset/internal/backend"
)

//go:embed schema.sql
var schemaSQL string

// errNameRequired matches the in-memory backend's constraint on name.
var errNameRequired = errors.New("name is required")

// Schema version tracking:
// 0 - No schema (fresh or pre-migration database)
// 1 - createItem: item table with id, name, quantity
// 2 - addNotes: notes column, backfilled from name
const currentSchemaVersion = 2

// Backend provides durable storage for the item collection.
// Uses SQLite with WAL mode for concurrent read access.
type Backend struct {
	db   *sql.DB
	path string
	hub  *backend.Hub
}

var _ backend.Backend = (*Backend)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Backend{db: db, path: path, hub: backend.NewHub()}, nil
}

// Close closes the database connection and cancels any remaining
// subscriptions.
func (b *Backend) Close() error {
	b.hub.Close()
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Path returns the database file path this backend was opened at.
func (b *Backend) Path() string {
	return b.path
}

// SchemaVersion returns the database's current PRAGMA user_version.
func (b *Backend) SchemaVersion() (int, error) {
	var version int
	if err := b.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

var (
	sharedMu sync.Mutex
	shared   *Backend
)

// Shared returns the process-wide durable backend, opening it on first call.
// Subsequent calls return the same instance; asking for a different path
// once the shared instance exists is a programming error and fails.
//
// Tests must never use Shared - they open isolated instances (or use
// internal/memory) so they cannot cross-write.
func Shared(path string) (*Backend, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		if shared.path != path {
			return nil, fmt.Errorf("shared backend already open at %q, refusing %q", shared.path, path)
		}
		return shared, nil
	}

	b, err := Open(path)
	if err != nil {
		return nil, err
	}
	shared = b
	return shared, nil
}

// DefaultPath returns the conventional location of the durable database,
// creating the enclosing application directory if needed.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, "liveset")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create app dir: %w", err)
	}
	return filepath.Join(dir, "liveset.db"), nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
// Migrations are named, sequential, and individually idempotent: replaying
// one against a database already at that version is a no-op.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateCreateItem(db); err != nil {
			return err
		}
		version = 1
	}
	if version < 2 {
		if err := migrateAddNotes(db); err != nil {
			return err
		}
		version = 2
	}

	// Set version after all migrations
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateCreateItem establishes the item table for pre-v1 databases.
// New databases get the full table from schema.sql; CREATE TABLE IF NOT
// EXISTS makes this a no-op for them.
func migrateCreateItem(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS item (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			name     TEXT NOT NULL,
			quantity INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate createItem: %w", err)
	}
	return nil
}

// migrateAddNotes adds the notes column and backfills it from name.
// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form, so the column's
// existence is checked first to keep the migration replayable.
func migrateAddNotes(db *sql.DB) error {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('item') WHERE name = 'notes'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("migrate addNotes: inspect columns: %w", err)
	}

	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE item ADD COLUMN notes TEXT`); err != nil {
			return fmt.Errorf("migrate addNotes: add column: %w", err)
		}
	}

	// Backfill only rows that never had a notes value; a replay must not
	// clobber notes a user has since edited.
	if _, err := db.Exec(`UPDATE item SET notes = name WHERE notes IS NULL`); err != nil {
		return fmt.Errorf("migrate addNotes: backfill: %w", err)
	}
	return nil
}

// mapError converts a driver error into the backend error taxonomy.
func mapError(op string, err error) *backend.PersistenceError {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return backend.NewConstraintError(op, err)
	}
	return backend.NewIOError(op, err)
}
