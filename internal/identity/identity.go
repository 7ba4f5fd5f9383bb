// Package identity resolves the calling user for every request.
//
// Authentication itself lives in the outer application; requests arrive
// already carrying a numeric user id. This package validates that id,
// guarantees the account row exists and threads the id through the request
// context.
package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

const (
	UserHeaderName = "X-PulsePlan-User"
	userQueryParam = "user_id"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user id from the request context, 0 when
// the request never passed the identity middleware.
func UserIDFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		return v
	}
	return 0
}

// FromRequest reads the caller's user id from the identity header, falling
// back to the user_id query parameter for WebSocket dials, which cannot set
// custom headers from browsers.
func FromRequest(r *http.Request) (int64, error) {
	raw := r.Header.Get(UserHeaderName)
	if raw == "" {
		raw = r.URL.Query().Get(userQueryParam)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing %s header", UserHeaderName)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

func ensureUser(ctx context.Context, repo store.Repository, userID int64) error {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	_, err = repo.CreateUser(ctx, &domain.User{ID: userID})
	if err != nil && shared.IsSQLiteUniqueViolation(err) {
		// A concurrent request created the row first.
		return nil
	}
	return err
}

// Middleware validates the identity header and injects the user id into the
// request context. First sight of an id provisions the account row.
func Middleware(repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := FromRequest(r)
			if err != nil {
				http.Error(w, `{"error":"missing or invalid user identity"}`, http.StatusUnauthorized)
				return
			}

			if err := ensureUser(r.Context(), repo, userID); err != nil {
				http.Error(w, `{"error":"failed to initialize user"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
