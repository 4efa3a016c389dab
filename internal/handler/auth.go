package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/luno/internal/apperror"
	"github.com/sakif/luno/internal/auth"
	"github.com/sakif/luno/internal/model"
	"github.com/sakif/luno/internal/service"
)

// AccountService is the slice of service.AuthService the HTTP layer uses.
//
// Declaring the interface here, where it is consumed, lets handler tests
// substitute a stub without touching a database or bcrypt.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	GetCurrentUser(ctx context.Context, userID int64) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, in service.UpdateProfileInput) (*model.UserProfile, error)
	ChangePassword(ctx context.Context, userID int64, in service.ChangePasswordInput) error
	Logout(ctx context.Context, userID int64) error
}

// AuthHandler serves the /api/auth endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → POST /api/auth/register        (public)
//   - HandleLogin          → POST /api/auth/login           (public)
//   - HandleMe             → GET  /api/auth/me              (bearer token)
//   - HandleUpdateProfile  → PUT  /api/auth/profile         (bearer token)
//   - HandleChangePassword → POST /api/auth/change-password (bearer token)
//   - HandleLogout         → POST /api/auth/logout          (bearer token)
//
// Handlers only translate between HTTP and the service: decode the body,
// call one service method, encode the result or the error.
type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleRegister creates an account and returns a token for it.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"firstName","lastName","email","password","confirmPassword"}
// RESPONSE:     200 {"token","expiresAt","user"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleLogin exchanges email and password for a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email","password"}
//
// Every credential failure answers 400 "Invalid email or password".
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me
// Auth: Required (RequireAuth puts the token's claims in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.accounts.GetCurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateProfile replaces the user's first and last name.
//
// HTTP: PUT /api/auth/profile
// REQUEST BODY: {"firstName","lastName"}
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var in service.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleChangePassword sets a new password after checking the current one.
//
// HTTP: POST /api/auth/change-password
// REQUEST BODY: {"currentPassword","newPassword","confirmNewPassword"}
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var in service.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userID, in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// HandleLogout acknowledges a logout.
//
// HTTP: POST /api/auth/logout
//
// Tokens are stateless, so there is nothing to delete server-side. The
// client drops its token; the token itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Logout(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// currentUser reads the user ID RequireAuth stored in the context.
// On a route mounted without the gate it answers 401 itself.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized())
		return 0, false
	}
	return userID, true
}
