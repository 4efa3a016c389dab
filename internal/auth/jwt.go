// Package auth provides password hashing, JWT issuance/validation, and the
// request-level authorization gate for the account API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs credentials to /api/auth/register or /api/auth/login
//  2. The account service verifies them and asks TokenService for a JWT
//  3. The client keeps the JWT and sends it as "Authorization: Bearer <jwt>"
//  4. RequireAuth validates the JWT on every protected route and stores the
//     claims in the request context for the handler to read
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"42","iss":"luno","aud":["luno-client"],"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Tokens are never stored server-side. A correctly signed, unexpired token is
// honoured until it expires; logout and password changes do not revoke it.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/luno/internal/model"
)

// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
// HS256 uses a 256-bit key, so anything shorter weakens the signature.
const MinSecretLength = 32

// ErrInvalidToken is returned for every validation failure: malformed input,
// bad signature, wrong issuer or audience, expired or not-yet-valid. Callers
// get no hint about which check failed.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenConfig is the process-wide signing configuration. It is loaded once at
// startup and never mutated afterwards, so it is safe to share between
// goroutines without locking.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims is the JWT payload.
//
// The registered claims carry identity and lifetime ("sub" holds the user ID
// as a decimal string). The private claims mirror the profile fields the
// front end shows without an extra /me round trip.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	EmailVerified bool   `json:"email_verified"`
}

// UserID parses the subject claim into an integer user ID.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("auth: subject %q is not a user id", c.Subject)
	}
	return id, nil
}

// TokenService handles JWT creation and validation.
//
// Issuing and validating share the same TokenService so the secret, issuer,
// audience and lifetime can never drift apart between the two sides.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now for both issuing and validating. Tests use it to
// step the clock across a token's expiry instant.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService validates cfg and returns a ready TokenService.
// A missing secret, issuer, audience or a non-positive lifetime is an error;
// the caller is expected to treat it as fatal at startup.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	switch {
	case len(cfg.Secret) < MinSecretLength:
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	case cfg.Issuer == "":
		return nil, errors.New("auth: JWT issuer is required")
	case cfg.Audience == "":
		return nil, errors.New("auth: JWT audience is required")
	case cfg.TTL <= 0:
		return nil, errors.New("auth: JWT lifetime must be positive")
	}

	s := &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the lifetime given to every issued token.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates and signs a JWT for user and returns it with its expiry.
//
// The returned expiry is read back from the "exp" claim itself (JWT numeric
// dates have whole-second precision), so what the client is told and what the
// validator enforces are always the same instant.
func (s *TokenService) Issue(user *model.User) (string, time.Time, error) {
	if user == nil || user.ID <= 0 {
		return "", time.Time{}, errors.New("auth: cannot issue a token for an unsaved user")
	}

	now := s.now()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email:         user.Email,
		GivenName:     user.FirstName,
		FamilyName:    user.LastName,
		EmailVerified: user.IsEmailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, c.ExpiresAt.Time, nil
}

// Validate parses and verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library, zero clock-skew leeway):
//   - Algorithm is HS256 (prevents "alg: none" and algorithm confusion)
//   - Signature matches the configured secret
//   - Issuer and audience match the configured values
//   - The current time is within [nbf, exp)
//
// Every failure collapses into ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return c, nil
}

// SubjectID validates tokenStr and returns the user ID it was issued for.
// ok is false if the token is invalid for any reason.
func (s *TokenService) SubjectID(tokenStr string) (id int64, ok bool) {
	c, err := s.Validate(tokenStr)
	if err != nil {
		return 0, false
	}
	id, err = c.UserID()
	return id, err == nil
}
