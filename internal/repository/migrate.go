package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// GooseMigrator runs embedded SQL migrations through a goose Provider.
//
// Each store embeds its own migrations directory (the SQL differs per
// dialect) and hands the sub-filesystem here. A Provider keeps its state on
// the value instead of in goose's package globals, so a SQLite and a Postgres
// store can coexist in one process.
type GooseMigrator struct {
	provider *goose.Provider
}

// NewGooseMigrator builds a migrator for db. fsys must contain the numbered
// .sql files at its root.
func NewGooseMigrator(dialect goose.Dialect, db *sql.DB, fsys fs.FS) (*GooseMigrator, error) {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("repository: creating migration provider: %w", err)
	}
	return &GooseMigrator{provider: p}, nil
}

// MigrateUp applies every pending migration.
func (m *GooseMigrator) MigrateUp(ctx context.Context) error {
	if _, err := m.provider.Up(ctx); err != nil {
		return fmt.Errorf("repository: migrating up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration. Rolling back
// with nothing applied is not an error.
func (m *GooseMigrator) MigrateDown(ctx context.Context) error {
	if _, err := m.provider.Down(ctx); err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return nil
		}
		return fmt.Errorf("repository: migrating down: %w", err)
	}
	return nil
}

// MigrationStatus lists every known migration in version order.
func (m *GooseMigrator) MigrationStatus(ctx context.Context) ([]MigrationState, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: reading migration status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		st := MigrationState{
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		}
		if s.Source != nil {
			st.Version = s.Source.Version
			st.Source = s.Source.Path
		}
		out = append(out, st)
	}
	return out, nil
}
