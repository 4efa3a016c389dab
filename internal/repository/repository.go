// Package repository declares the persistence contracts the service layer
// depends on. Concrete stores live in the sqlite and postgres sub-packages.
package repository

import (
	"context"
	"time"

	"github.com/sakif/luno/internal/model"
)

// UserRepository persists user accounts.
//
// Lookups return an *apperror.AppError wrapping apperror.ErrNotFound when no
// row matches, and Create returns one wrapping apperror.ErrConflict when the
// email is already taken. Emails are passed in already normalized.
type UserRepository interface {
	// Create inserts user and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName string) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, email string, active bool) error
}

// Store is a UserRepository backed by a database connection the process owns.
type Store interface {
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}

// Migrator applies and inspects schema migrations.
type Migrator interface {
	MigrateUp(ctx context.Context) error
	MigrateDown(ctx context.Context) error
	MigrationStatus(ctx context.Context) ([]MigrationState, error)
}

// MigrationState describes one migration as reported by MigrationStatus.
type MigrationState struct {
	Version   int64
	Source    string
	Applied   bool
	AppliedAt time.Time
}
