package middleware

import (
	"context"
	"net/http"
	"strings"

	"studyroom/internal/model"
)

type contextKey string

const (
	UserIDKey   contextKey = "userId"
	UsernameKey contextKey = "username"
)

// TokenValidator resolves a bearer token to user claims
type TokenValidator interface {
	ValidateUserToken(token string) (*model.UserClaims, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	auth TokenValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireUser validates the user JWT from the Authorization header
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		claims, err := m.auth.ValidateUserToken(token)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// GetUsername extracts the username from context
func GetUsername(ctx context.Context) string {
	if v, ok := ctx.Value(UsernameKey).(string); ok {
		return v
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
