package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims is the authenticated principal extracted from a bearer token.
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// Subject returns the user id.
func (c *Claims) Subject() string { return c.UserID }

// HasRole reports whether the principal carries role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// TokenValidator validates a raw bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth validates the bearer token and stores its claims in the context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeDenied(w, apperrors.Unauthorized("missing authorization header"))
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeDenied(w, apperrors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := validate(token)
			if err != nil {
				writeDenied(w, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole lets the request through when the principal has any of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeDenied(w, apperrors.Unauthorized("authentication required"))
				return
			}
			if !slices.ContainsFunc(roles, claims.HasRole) {
				writeDenied(w, apperrors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the authenticated claims or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// UserIDFromContext returns the authenticated user id or "".
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func writeDenied(w http.ResponseWriter, err *apperrors.AppError) {
	httputil.WriteJSON(w, err.Status, httputil.Response{
		Message: err.Message,
		Error:   &httputil.ErrorResponse{Code: err.Code, Message: err.Message},
	})
}
