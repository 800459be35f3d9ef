// Package middleware provides the HTTP middleware chain for the gateway.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/secretlease/marketplace/internal/auth"
	"github.com/secretlease/marketplace/internal/errors"
	"github.com/secretlease/marketplace/internal/httputil"
	"github.com/secretlease/marketplace/internal/kv"
	"github.com/secretlease/marketplace/pkg/logger"
)

type contextKey string

const (
	// UserIDKey carries the authenticated account id.
	UserIDKey contextKey = "user_id"
	// RoleKey carries the authenticated role claim.
	RoleKey contextKey = "role"
	// TokenKey carries the raw bearer token, used by logout.
	TokenKey contextKey = "token"
)

// AuthMiddleware verifies bearer tokens and rejects revoked ones.
type AuthMiddleware struct {
	issuer   *auth.Issuer
	revoker  kv.TokenRevoker
	log      *logger.Logger
	skip     map[string]bool
	optional []string
}

// NewAuthMiddleware creates the middleware. Paths in skipPaths bypass
// authentication entirely; GET requests under an optionalPrefixes entry are
// authenticated only when an Authorization header is present, so anonymous
// visitors still reach the redacted catalog.
func NewAuthMiddleware(issuer *auth.Issuer, revoker kv.TokenRevoker, log *logger.Logger, skipPaths, optionalPrefixes []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	if revoker == nil {
		revoker = kv.NewMemoryRevoker()
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{issuer: issuer, revoker: revoker, log: log, skip: skip, optional: optionalPrefixes}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			if m.isOptional(r) {
				next.ServeHTTP(w, r)
				return
			}
			m.respondError(w, r, errors.Unauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondError(w, r, errors.Unauthorized("invalid authorization header format"))
			return
		}
		token := parts[1]

		if revoked, err := m.revoker.IsRevoked(r.Context(), token); err != nil {
			m.respondError(w, r, errors.Internal("check token revocation", err))
			return
		} else if revoked {
			m.respondError(w, r, errors.InvalidToken(nil))
			return
		}

		claims, err := m.issuer.Verify(token)
		if err != nil {
			m.log.WithError(err).Warn("token validation failed")
			m.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)
		ctx = context.WithValue(ctx, TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) isOptional(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	for _, prefix := range m.optional {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			return true
		}
	}
	return false
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("authentication failed", err)
	}
	httputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

// GetUserID extracts the authenticated account id from the context.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// GetUserRole extracts the authenticated role from the context.
func GetUserRole(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

// GetToken extracts the raw bearer token from the context.
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}
