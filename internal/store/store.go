package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrFlowNotFound is returned when a flow id has no exported record.
var ErrFlowNotFound = errors.New("flow not found")

// migrations upgrade a trace database one user_version at a time. Entry i
// moves a database from version i to i+1.
var migrations = []func(*sql.DB) error{
	// v1: reverse edge index for predecessor lookups.
	func(db *sql.DB) error {
		_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_causal_edges_to ON causal_edges(flow_id, to_time)`)
		return err
	},
}

// currentSchemaVersion is the user_version of a fully migrated database.
var currentSchemaVersion = len(migrations)

// connPragmas are applied to every connection. WAL lets trace queries read
// while an export writes.
var connPragmas = []string{
	"journal_mode = WAL",
	"synchronous = NORMAL",
	"busy_timeout = 5000",
	"foreign_keys = ON",
}

// Store is a SQLite trace database of exported flows.
type Store struct {
	db *sql.DB
}

// Open opens the trace database at path, creating and migrating it as
// needed. Opening an up-to-date database changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initDB(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer and the pragmas are
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range connPragmas {
		if _, err := db.Exec("PRAGMA " + p); err != nil {
			return fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every migration above the database's user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if version != currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Close releases the database. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
