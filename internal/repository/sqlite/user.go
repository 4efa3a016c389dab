package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/luno/internal/apperror"
	"github.com/sakif/luno/internal/model"
	"github.com/sakif/luno/internal/repository"
)

// compile-time checks that *DB satisfies the repository contracts
var (
	_ repository.Store    = (*DB)(nil)
	_ repository.Migrator = (*DB)(nil)
)

// userColumns is the full column list, in the same order as model.User.
// sqlx maps each column to the struct field with the matching `db` tag.
const userColumns = `id, first_name, last_name, email, password_hash, is_active,
	is_email_verified, created_at, updated_at, last_login_at`

// Create inserts a new user and fills in its ID and timestamps.
//
// The unique index on email is the real guard against duplicates: two
// concurrent registrations can both pass the service's pre-check, but only
// one INSERT succeeds. The loser gets apperror.ErrConflict.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := db.conn.GetContext(ctx, &user.ID,
		`INSERT INTO users (first_name, last_name, email, password_hash,
		                    is_active, is_email_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.IsEmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by primary key.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by (normalized) email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	return &u, nil
}

// ExistsByEmail reports whether any account, active or not, owns email.
func (db *DB) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := db.conn.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? COLLATE NOCASE)`, email)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking email: %w", err)
	}

	return exists, nil
}

// UpdateProfile changes a user's names and returns the updated row.
func (db *DB) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) (*model.User, error) {
	var u model.User

	err := db.conn.GetContext(ctx, &u,
		`UPDATE users SET first_name = ?, last_name = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING `+userColumns,
		firstName, lastName, time.Now().UTC(), id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: updating profile of user %d: %w", id, err)
	}

	return &u, nil
}

// UpdatePassword replaces the stored bcrypt hash.
func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password of user %d: %w", id, err)
	}

	return expectOneRow(result, "user", strconv.FormatInt(id, 10))
}

// TouchLastLogin records a successful login.
func (db *DB) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording login of user %d: %w", id, err)
	}

	return expectOneRow(result, "user", strconv.FormatInt(id, 10))
}

// SetActive enables or disables the account owning email.
func (db *DB) SetActive(ctx context.Context, email string, active bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE email = ? COLLATE NOCASE`,
		active, time.Now().UTC(), email,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting active=%t for user: %w", active, err)
	}

	return expectOneRow(result, "user", email)
}

// expectOneRow turns "UPDATE matched nothing" into a not-found error.
//
// RowsAffected is how UPDATE/DELETE tell you whether the WHERE clause hit.
// Without this check a write to a missing ID would silently succeed.
func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate key.
func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Without extended result codes only the primary code is set.
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
