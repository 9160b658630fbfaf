package middleware

import (
	"context"
	"net/http"
	"strings"

	"buggfix/internal/config"
	"buggfix/pkg/jwt"
	"buggfix/pkg/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns "" when the header is missing or not in bearer form.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.ContainsRune(token, ' ') {
		return ""
	}
	return token
}

// AuthMiddleware rejects requests without a valid access token and puts
// the token's user id on the request context for the handlers behind it.
func AuthMiddleware(cfg config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				response.Unauthorized(w, "Missing or malformed authorization header")
				return
			}

			claims, err := jwt.ValidateToken(token, cfg.Secret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the authenticated user id set by AuthMiddleware, or
// "" outside a protected route.
func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}
