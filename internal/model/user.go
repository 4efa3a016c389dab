// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// User represents a registered account.
//
// The `db` tags drive sqlx struct scanning in both repository implementations.
// Every column in the users table has a matching field here, so a SELECT of
// all columns maps 1:1.
//
// WHY int64 ID?
// Tokens carry the user ID in the "sub" claim as a decimal string and the
// authorization gate parses it back into an integer. An auto-increment key
// keeps that round trip trivial.
//
// PasswordHash is tagged json:"-" so it can never leak into an API response,
// even if someone accidentally encodes the whole struct.
type User struct {
	ID              int64      `json:"id"              db:"id"`
	FirstName       string     `json:"firstName"       db:"first_name"`
	LastName        string     `json:"lastName"        db:"last_name"`
	Email           string     `json:"email"           db:"email"` // always stored lowercased
	PasswordHash    string     `json:"-"               db:"password_hash"`
	IsActive        bool       `json:"isActive"        db:"is_active"`
	IsEmailVerified bool       `json:"isEmailVerified" db:"is_email_verified"`
	CreatedAt       time.Time  `json:"createdAt"       db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt"       db:"updated_at"`
	LastLoginAt     *time.Time `json:"lastLoginAt"     db:"last_login_at"` // nil until the first login
}

// FullName joins first and last name the way the front end displays them.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserProfile is the public representation of a user returned by the API.
//
// It is deliberately a separate type from User: only fields listed here ever
// reach a client, and FullName is computed rather than stored.
type UserProfile struct {
	ID              int64      `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastLoginAt     *time.Time `json:"lastLoginAt"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	FullName        string     `json:"fullName"`
}

// Profile converts a User into its client-facing representation.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		CreatedAt:       u.CreatedAt,
		LastLoginAt:     u.LastLoginAt,
		IsEmailVerified: u.IsEmailVerified,
		FullName:        u.FullName(),
	}
}

// NormalizeEmail trims surrounding whitespace and lowercases an address.
// Emails are compared case-insensitively everywhere, so every write and every
// lookup goes through this function first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
