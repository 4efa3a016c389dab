package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sakif/luno/internal/apperror"
	"github.com/sakif/luno/internal/model"
	"github.com/sakif/luno/internal/repository"
)

var (
	_ repository.Store    = (*DB)(nil)
	_ repository.Migrator = (*DB)(nil)
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, password_hash, is_active,
	is_email_verified, created_at, updated_at, last_login_at`

func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := db.conn.GetContext(ctx, &user.ID,
		`INSERT INTO users (first_name, last_name, email, password_hash,
		                    is_active, is_email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}
	return &u, nil
}

func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return &u, nil
}

func (db *DB) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.conn.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
	if err != nil {
		return false, fmt.Errorf("postgres: checking email: %w", err)
	}
	return exists, nil
}

func (db *DB) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`UPDATE users SET first_name = $1, last_name = $2, updated_at = $3
		 WHERE id = $4
		 RETURNING `+userColumns,
		firstName, lastName, time.Now().UTC(), id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: updating profile of user %d: %w", id, err)
	}
	return &u, nil
}

func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating password of user %d: %w", id, err)
	}
	return expectOneRow(result, strconv.FormatInt(id, 10))
}

func (db *DB) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $2 WHERE id = $3`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("postgres: recording login of user %d: %w", id, err)
	}
	return expectOneRow(result, strconv.FormatInt(id, 10))
}

func (db *DB) SetActive(ctx context.Context, email string, active bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE LOWER(email) = LOWER($3)`,
		active, time.Now().UTC(), email,
	)
	if err != nil {
		return fmt.Errorf("postgres: setting active=%t for user: %w", active, err)
	}
	return expectOneRow(result, email)
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
