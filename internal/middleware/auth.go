package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/mentoro/arena/internal/security"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
)

// Authenticate validates the bearer token, or the token query parameter used
// by browser websocket clients, and stores the user id in the context
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "missing token")
				return
			}

			claims, err := security.ValidateJWT(token, secret)
			if err != nil {
				logger.Debug("Rejected token", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID())
			ctx = context.WithValue(ctx, usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// UserID returns the authenticated user id stored by Authenticate
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Username returns the display name carried by the token, if any
func Username(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

// WithUserID is used by tests to fake an authenticated request
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RateLimit rejects requests over the per-IP limit and, once authenticated,
// the per-user limit
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.CheckIPLimit(clientIP(r)) {
				writeError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "too many requests")
				return
			}
			remaining := rl.GetIPRemaining(clientIP(r))
			if userID := UserID(r.Context()); userID != "" {
				if !rl.CheckUserLimit(userID) {
					writeError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "too many requests")
					return
				}
				remaining = min(remaining, rl.GetUserRemaining(userID))
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
