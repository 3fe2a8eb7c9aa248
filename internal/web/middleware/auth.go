// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vinacert/regadmin/internal/config"
	"github.com/vinacert/regadmin/internal/identity"
	"github.com/vinacert/regadmin/internal/logging"
)

// Admin is the authenticated administrator for a request.
type Admin struct {
	Email string
	Via   string // "key" or "token"
}

type ctxKey int

const adminCtxKey ctxKey = iota

// AdminFromContext returns the admin the gate admitted for this request.
func AdminFromContext(ctx context.Context) (*Admin, bool) {
	admin, ok := ctx.Value(adminCtxKey).(*Admin)
	return admin, ok
}

// TokenValidator resolves a bearer access token to a user.
type TokenValidator interface {
	User(ctx context.Context, token string) (*identity.User, error)
}

// AdminGate admits administrators and rejects everyone else. Decision order:
//
//  1. A configured static key presented via X-Admin-Key or admin_key admits
//     immediately, no identity lookup.
//  2. A bearer token is validated against the identity service; rejection is
//     401 "invalid token".
//  3. A valid token is admitted when the role claim is "admin"
//     (case-insensitive) or the e-mail is on the allowlist, otherwise 403.
//  4. No credentials at all is 401 "missing credentials".
//  5. Unexpected validation failures are 500 "auth error".
func AdminGate(auth config.AuthConfig, tokens TokenValidator) func(http.Handler) http.Handler {
	allowlist := make(map[string]struct{}, len(auth.AdminEmails))
	for _, email := range auth.AdminEmails {
		allowlist[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.AdminKey != "" {
				key := r.Header.Get("X-Admin-Key")
				if key == "" {
					key = r.URL.Query().Get("admin_key")
				}
				if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(auth.AdminKey)) == 1 {
					admit(w, r, next, &Admin{Via: "key"})
					return
				}
			}

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				deny(w, r, http.StatusUnauthorized, "missing credentials")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			user, err := tokens.User(r.Context(), token)
			switch {
			case errors.Is(err, identity.ErrInvalidToken):
				deny(w, r, http.StatusUnauthorized, "invalid token")
				return
			case err != nil:
				logging.FromContext(r.Context()).Error("auth: token validation failed",
					"path", r.URL.Path,
					"error", err,
				)
				deny(w, r, http.StatusInternalServerError, "auth error")
				return
			case user == nil:
				deny(w, r, http.StatusUnauthorized, "invalid token")
				return
			}

			if strings.EqualFold(user.AdminRole(), "admin") {
				admit(w, r, next, &Admin{Email: user.Email, Via: "token"})
				return
			}
			if _, ok := allowlist[strings.ToLower(user.Email)]; ok {
				admit(w, r, next, &Admin{Email: user.Email, Via: "token"})
				return
			}

			deny(w, r, http.StatusForbidden, "forbidden")
		})
	}
}

func admit(w http.ResponseWriter, r *http.Request, next http.Handler, admin *Admin) {
	ctx := context.WithValue(r.Context(), adminCtxKey, admin)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func deny(w http.ResponseWriter, r *http.Request, status int, reason string) {
	logging.FromContext(r.Context()).Warn("auth: rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"reason", reason,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
