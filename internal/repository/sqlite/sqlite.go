// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// THE CONNECTION POOL:
// sql.DB is a pool, not a connection. Every QueryContext/ExecContext borrows
// a connection and hands it back when the statement (or the *sql.Rows) is
// closed. Options bound how many connections exist at once; when all of
// them are busy the next statement waits until one is returned or its
// context is done.
//
// PER-CONNECTION PRAGMAS:
// A PRAGMA run with db.Exec only applies to whichever pooled connection
// happened to run it. Settings that must hold on every connection
// (busy_timeout) therefore go into the DSN as _pragma parameters, which the
// driver applies each time it opens a new connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Options configures the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a connection waits on SQLite's write lock
	// before giving up with SQLITE_BUSY.
	BusyTimeout time.Duration
}

// DefaultOptions returns pool settings suitable for a small single-file service.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		BusyTimeout:     5 * time.Second,
	}
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens a pool against the SQLite file at path.
//
// The schema is NOT created here; call Migrate (the serve command does so
// at boot unless told otherwise).
//
// sql.Open does not connect. We Ping immediately so a bad path or missing
// permissions fail at startup rather than on the first request.
func New(path string, opts Options) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}

	conn, err := sql.Open("sqlite", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL is a property of the file, not the connection, so running it
	// once is enough. It lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	return &DB{conn: conn}, nil
}

// dsn appends per-connection pragmas to path, preserving any query string
// the caller already supplied.
func dsn(path string, opts Options) string {
	if opts.BusyTimeout <= 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, opts.BusyTimeout.Milliseconds())
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Stats exposes the pool counters (open, in use, idle, wait count).
func (db *DB) Stats() sql.DBStats {
	return db.conn.Stats()
}
