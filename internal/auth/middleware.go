package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "claims", c), ANY package that knows the string "claims"
// can read or shadow your value. Using a package-private type prevents collisions:
// only THIS package can create a key of type contextKey, so only this package
// can read or write the claims in the context.
type contextKey string

const claimsKey contextKey = "claims"

// unauthorizedBody is the fixed 401 payload. Every rejection reason produces
// the same bytes.
const unauthorizedBody = `{"error":"unauthorized","message":"valid authentication required"}`

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <jwt>" header, validates
// it, and stores the claims in the request context. If the header is missing,
// uses another scheme, or carries a token that fails validation (including a
// subject that is not a user ID), it returns 401 Unauthorized and stops the
// request chain. The handler never runs.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService, opts ...GateOption) func(http.Handler) http.Handler {
	var g gate
	for _, opt := range opts {
		opt(&g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := claimsFromRequest(r, tokens)
			if err != nil {
				if g.onReject != nil {
					g.onReject(r)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GateOption customises RequireAuth.
type GateOption func(*gate)

type gate struct {
	onReject func(*http.Request)
}

// OnReject registers a callback that runs for every refused request, before
// the 401 is written. The server uses it to count rejections.
func OnReject(fn func(*http.Request)) GateOption {
	return func(g *gate) {
		g.onReject = fn
	}
}

// ClaimsFromContext returns the claims RequireAuth stored for this request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns (0, false) if the request never passed through RequireAuth.
//
// Usage in handlers:
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // not authenticated
//	}
func UserIDFromContext(ctx context.Context) (int64, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	id, err := c.UserID()
	return id, err == nil
}

// BearerToken extracts the token from an "Authorization: Bearer <jwt>" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// claimsFromRequest reads the bearer token and validates it.
func claimsFromRequest(r *http.Request, tokens *TokenService) (*Claims, error) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, ErrInvalidToken
	}

	c, err := tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	if _, err := c.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return c, nil
}
