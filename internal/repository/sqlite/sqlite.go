// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database, it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (a temp-dir file per test)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, no C compiler needed, works everywhere Go works.
//
// WHY SQLX?
// sqlx is a thin layer over database/sql. The only thing we use it for is
// scanning a row straight into a struct by its `db` tags (GetContext), which
// removes the long, error-prone rows.Scan(&a, &b, &c, ...) argument lists.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"

	"github.com/sakif/luno/internal/repository"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// Its init() function registers itself with database/sql as a driver named "sqlite".
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB wraps a sqlx connection pool and provides repository methods.
//
// It implements repository.Store (users + Ping + Close) and
// repository.Migrator (via the embedded GooseMigrator).
type DB struct {
	conn *sqlx.DB
	*repository.GooseMigrator
}

// Open creates a SQLite connection pool without touching the schema.
// The migrate CLI command uses it directly; the server goes through New.
//
// dsn examples:
//   - "data/luno.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database, pinned to one connection
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = "./data/luno.db"
	}

	memory := strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
	if !memory {
		if err := os.MkdirAll(filepath.Dir(stripParams(dsn)), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", withDefaultParams(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a brand-new empty database, so the
	// pool must never grow past one.
	if memory {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}
	conn.SetConnMaxLifetime(time.Hour)

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query, which is much harder to debug.
	ctx := context.Background()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes.
	// WAL mode allows concurrent reads WHILE a write is happening.
	// The setting is stored in the file, so running it once is enough.
	if !memory {
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: loading migrations: %w", err)
	}
	m, err := repository.NewGooseMigrator(goose.DialectSQLite3, conn.DB, migrations)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn, GooseMigrator: m}, nil
}

// New opens the database and brings the schema up to date.
//
// ALWAYS DEFER CLOSE:
//
//	db, err := sqlite.New("data/luno.db")
//	if err != nil { ... }
//	defer db.Close()
func New(dsn string) (*DB, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping reports whether the database is reachable. The health endpoint uses it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// withDefaultParams adds per-connection settings unless the DSN already sets
// them. _pragma values are applied by the driver on every new connection,
// which matters because foreign_keys and busy_timeout are not persisted.
func withDefaultParams(dsn string) string {
	defaults := []struct{ key, param string }{
		{"_txlock", "_txlock=immediate"},
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
		{"foreign_keys", "_pragma=foreign_keys(1)"},
		{"_time_format", "_time_format=sqlite"},
	}

	for _, d := range defaults {
		if strings.Contains(dsn, d.key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + d.param
	}
	return dsn
}

// stripParams returns the file part of a DSN, dropping a "file:" prefix and
// any query string.
func stripParams(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}
