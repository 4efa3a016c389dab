package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/luno/internal/apperror"
	"github.com/sakif/luno/internal/auth"
	"github.com/sakif/luno/internal/metrics"
	"github.com/sakif/luno/internal/model"
	"github.com/sakif/luno/internal/repository"
)

// Client-facing messages. Handlers pass AppError.Message through verbatim,
// so these strings are part of the API contract.
const (
	msgEmailExists     = "Email already exists"
	msgUserNotFound    = "User not found"
	msgWrongPassword   = "Current password is incorrect"
	msgPasswordTooLong = "Password must be at most 72 bytes"
)

// dummyPassword is hashed once and compared against when a login names an
// unknown email, so that path costs one bcrypt comparison like every other.
const dummyPassword = "luno-timing-equalizer"

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	FirstName       string `json:"firstName"       validate:"required,max=50"`
	LastName        string `json:"lastName"        validate:"required,max=50"`
	Email           string `json:"email"           validate:"required,email,max=255"`
	Password        string `json:"password"        validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput is the body of PUT /api/auth/profile.
// Email is not part of it: the address is fixed at registration.
type UpdateProfileInput struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName"  validate:"required,max=50"`
}

// ChangePasswordInput is the body of POST /api/auth/change-password.
type ChangePasswordInput struct {
	CurrentPassword    string `json:"currentPassword"    validate:"required"`
	NewPassword        string `json:"newPassword"        validate:"required,min=6,max=72"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

// AuthResult is returned by Register and Login.
//
// ExpiresAt is read from the token's own "exp" claim, so the client is told
// exactly the instant after which the token stops working.
type AuthResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      model.UserProfile `json:"user"`
}

// AuthService handles the account business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
//   - metrics    metrics.Recorder           → outcome counters (optional)
//
// AuthService holds no per-request state; one instance serves every
// request concurrently.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithMetrics reports operation outcomes to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *AuthService) {
		s.metrics = r
	}
}

// WithClock replaces time.Now for last-login timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		metrics:   metrics.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account and signs the user in.
//
// Steps:
//  1. Trim names, normalize the email, validate every field
//  2. Reject an email that is already registered (any case)
//  3. Hash the password and insert the row (active, unverified)
//  4. Issue a token for the new user
//
// The existence check in step 2 gives the common case a clean error, but the
// unique index is what actually prevents duplicates. If two requests race
// past the check, the loser's INSERT fails with ErrConflict and gets the same
// "Email already exists" answer.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = model.NormalizeEmail(in.Email)

	if err := validatePassword(&in, "password", in.Password); err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeInvalid)
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeError)
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}
	if exists {
		s.metrics.RecordRegistration(metrics.OutcomeConflict)
		return nil, apperror.New(apperror.ErrConflict, msgEmailExists)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeError)
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		PasswordHash:    hash,
		IsActive:        true,
		IsEmailVerified: false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.metrics.RecordRegistration(metrics.OutcomeConflict)
			return nil, apperror.New(apperror.ErrConflict, msgEmailExists)
		}
		s.metrics.RecordRegistration(metrics.OutcomeError)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	result, err := s.issue(user)
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordRegistration(metrics.OutcomeSuccess)
	s.logger.Info("user registered", slog.Int64("userID", user.ID))

	return result, nil
}

// Login verifies credentials and issues a token.
//
// UNIFORM FAILURE:
// Unknown email, deactivated account and wrong password all return the exact
// same apperror.InvalidCredentials value, and all three paths run one bcrypt
// comparison, so neither the response nor its timing reveals which accounts
// exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = model.NormalizeEmail(in.Email)

	if err := validateInput(&in); err != nil {
		s.metrics.RecordLogin(metrics.OutcomeInvalid)
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.metrics.RecordLogin(metrics.OutcomeError)
			return nil, fmt.Errorf("service/auth: looking up user: %w", err)
		}
		s.passwords.Verify(s.timingHash(), in.Password)
		s.metrics.RecordLogin(metrics.OutcomeRejected)
		return nil, apperror.InvalidCredentials()
	}

	if !s.passwords.Verify(user.PasswordHash, in.Password) || !user.IsActive {
		s.metrics.RecordLogin(metrics.OutcomeRejected)
		s.logger.Info("login rejected", slog.Int64("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.metrics.RecordLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("service/auth: recording login: %w", err)
	}
	user.LastLoginAt = &now

	result, err := s.issue(user)
	if err != nil {
		s.metrics.RecordLogin(metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordLogin(metrics.OutcomeSuccess)
	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return result, nil
}

// GetCurrentUser returns the profile of the authenticated user.
//
// A deactivated account is reported as not found even though its token may
// still be cryptographically valid.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID int64) (*model.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := user.Profile()
	return &p, nil
}

// UpdateProfile replaces the user's first and last name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (*model.UserProfile, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := validateInput(&in); err != nil {
		return nil, err
	}

	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateProfile(ctx, userID, in.FirstName, in.LastName)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(apperror.ErrNotFound, msgUserNotFound)
		}
		return nil, fmt.Errorf("service/auth: updating profile of user %d: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.Int64("userID", userID))

	p := updated.Profile()
	return &p, nil
}

// ChangePassword verifies the current password and stores a hash of the new
// one. Tokens issued before the change stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	if err := validatePassword(&in, "newPassword", in.NewPassword); err != nil {
		s.metrics.RecordPasswordChange(metrics.OutcomeInvalid)
		return err
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.metrics.RecordPasswordChange(metrics.OutcomeNotFound)
		} else {
			s.metrics.RecordPasswordChange(metrics.OutcomeError)
		}
		return err
	}

	if !s.passwords.Verify(user.PasswordHash, in.CurrentPassword) {
		s.metrics.RecordPasswordChange(metrics.OutcomeRejected)
		return apperror.ValidationFailed("currentPassword", msgWrongPassword)
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		s.metrics.RecordPasswordChange(metrics.OutcomeError)
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		s.metrics.RecordPasswordChange(metrics.OutcomeError)
		return fmt.Errorf("service/auth: storing password of user %d: %w", userID, err)
	}

	s.metrics.RecordPasswordChange(metrics.OutcomeSuccess)
	s.logger.Info("password changed", slog.Int64("userID", userID))

	return nil
}

// Logout is a bookkeeping no-op: tokens are stateless and there is no
// server-side session to end. The client discards its token.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	s.logger.InfoContext(ctx, "user logged out", slog.Int64("userID", userID))
	return nil
}

// SetActive enables or disables an account by email. Operators reach it
// through the "user activate|deactivate" CLI command.
func (s *AuthService) SetActive(ctx context.Context, email string, active bool) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}

	if err := s.users.SetActive(ctx, email, active); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.New(apperror.ErrNotFound, msgUserNotFound)
		}
		return fmt.Errorf("service/auth: setting active=%t: %w", active, err)
	}

	s.logger.Info("account status changed", slog.String("email", email), slog.Bool("active", active))
	return nil
}

// activeUser loads a user and hides inactive accounts behind "User not found".
func (s *AuthService) activeUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(apperror.ErrNotFound, msgUserNotFound)
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", userID, err)
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.ErrNotFound, msgUserNotFound)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Profile(),
	}, nil
}

// timingHash lazily hashes dummyPassword with the configured cost.
func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("hashing timing placeholder", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// validatePassword runs tag validation and then enforces bcrypt's byte
// limit, which the rune-counting max tag cannot express for multi-byte input.
func validatePassword(in any, field, password string) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed(field, msgPasswordTooLong)
	}
	return nil
}
