package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - lists, list_relations, items, item_dependencies, history
const currentSchemaVersion = 1

const (
	defaultBusyTimeout  = 5000 // milliseconds
	defaultMaxOpenConns = 1
	maxReadConns        = 4
)

// Store owns the connection pools for one tasktree database.
//
// db serves units of work and takes the write lock at BEGIN. reader serves
// read-only units of work with deferred, query-only transactions, so reads
// run against the last committed snapshot without queueing behind writers.
type Store struct {
	db           *sql.DB
	reader       *sql.DB
	beforeCommit func(ctx context.Context) error
}

type options struct {
	busyTimeout  int
	maxOpenConns int
	beforeCommit func(ctx context.Context) error
}

// Option configures Open.
type Option func(*options)

// WithBusyTimeout sets how long a unit of work waits for the write lock, in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(o *options) {
		if ms > 0 {
			o.busyTimeout = ms
		}
	}
}

// WithMaxOpenConns sets the connection pool size.
// SQLite allows one writer at a time, so the default is a single connection.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithBeforeCommit installs a hook that runs after a unit of work's function
// succeeds and before COMMIT. A non-nil error from the hook rolls the unit of
// work back. Used for fault injection in tests.
func WithBeforeCommit(fn func(ctx context.Context) error) Option {
	return func(o *options) {
		o.beforeCommit = fn
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies the schema and migrations automatically.
//
// This function is idempotent - safe to call multiple times on the same file.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dsn(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxOpenConns)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	reader, err := sql.Open("sqlite3", readerDSN(path, o.busyTimeout))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	if err := reader.Ping(); err != nil {
		reader.Close()
		db.Close()
		return nil, fmt.Errorf("failed to connect read pool: %w", err)
	}
	reader.SetMaxOpenConns(maxReadConns)
	reader.SetMaxIdleConns(maxReadConns)

	return &Store{db: db, reader: reader, beforeCommit: o.beforeCommit}, nil
}

// dsn builds the go-sqlite3 connection string with the required pragmas.
func dsn(path string, busyTimeout int) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout))
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// readerDSN builds the connection string for the read pool. The journal mode
// is persistent in the file, so it is not set here.
func readerDSN(path string, busyTimeout int) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout))
	q.Set("_foreign_keys", "on")
	q.Set("_query_only", "true")
	q.Set("_txlock", "deferred")
	return "file:" + path + "?" + q.Encode()
}

// Close closes both connection pools.
func (s *Store) Close() error {
	var firstErr error
	if s.reader != nil {
		firstErr = s.reader.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// applySchema creates tables if they don't exist and checks the schema version.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if version == currentSchemaVersion {
		return nil
	}

	// Version 1 is the baseline created by schema.sql.

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
