// Package postgres implements the repository interfaces on PostgreSQL.
//
// The server picks this store when the configured DSN is a postgres:// URL.
// Queries go through database/sql with pgx's stdlib driver so the same sqlx
// struct scanning used by the SQLite store works here too, and goose can run
// migrations on the very same *sql.DB.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"

	"github.com/sakif/luno/internal/repository"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB is a PostgreSQL-backed repository.Store.
type DB struct {
	conn *sqlx.DB
	*repository.GooseMigrator
}

// IsDSN reports whether dsn addresses a PostgreSQL server.
func IsDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Redact masks the password in a postgres URL so it can be logged.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres://<unparseable>"
	}
	return u.Redacted()
}

// Open connects to PostgreSQL without touching the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db, err := newDB(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// New connects and applies pending migrations.
func New(ctx context.Context, dsn string) (*DB, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// newDB wires the migrator around an already-open pool. Tests call it with a
// sqlmock connection.
func newDB(conn *sqlx.DB) (*DB, error) {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: loading migrations: %w", err)
	}
	m, err := repository.NewGooseMigrator(goose.DialectPostgres, conn.DB, migrations)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn, GooseMigrator: m}, nil
}

// Ping reports whether the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
