package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vinacert/regadmin/internal/config"
	"github.com/vinacert/regadmin/internal/identity"
)

// stubValidator returns a canned user or error for any token.
type stubValidator struct {
	user *identity.User
	err  error
}

func (s *stubValidator) User(ctx context.Context, token string) (*identity.User, error) {
	return s.user, s.err
}

func adminUser(role, email string) *identity.User {
	u := &identity.User{ID: "u-1", Email: email}
	u.AppMetadata.Role = role
	return u
}

func gateRequest(t *testing.T, auth config.AuthConfig, tokens TokenValidator, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var admitted *Admin
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admitted, _ = AdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/companies", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	AdminGate(auth, tokens)(next).ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && admitted == nil {
		t.Error("request admitted without admin context")
	}
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestAdminGate_StaticKey(t *testing.T) {
	auth := config.AuthConfig{AdminKey: "sekret"}
	tokens := &stubValidator{err: errors.New("identity service must not be called")}

	t.Run("header key admits without identity lookup", func(t *testing.T) {
		rec := gateRequest(t, auth, tokens, func(r *http.Request) {
			r.Header.Set("X-Admin-Key", "sekret")
		})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("query key admits", func(t *testing.T) {
		rec := gateRequest(t, auth, tokens, func(r *http.Request) {
			q := r.URL.Query()
			q.Set("admin_key", "sekret")
			r.URL.RawQuery = q.Encode()
		})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("wrong key without bearer is missing credentials", func(t *testing.T) {
		rec := gateRequest(t, auth, tokens, func(r *http.Request) {
			r.Header.Set("X-Admin-Key", "wrong")
		})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if msg := errorBody(t, rec); msg != "missing credentials" {
			t.Errorf("error = %q, want missing credentials", msg)
		}
	})
}

func TestAdminGate_BearerToken(t *testing.T) {
	auth := config.AuthConfig{AdminEmails: []string{"Ops@Example.com"}}
	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok") }

	tests := []struct {
		name       string
		tokens     TokenValidator
		wantStatus int
		wantError  string
	}{
		{
			name:       "mixed case admin role admitted",
			tokens:     &stubValidator{user: adminUser("Admin", "who@example.com")},
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowlisted email admitted despite plain role",
			tokens:     &stubValidator{user: adminUser("member", "ops@example.com")},
			wantStatus: http.StatusOK,
		},
		{
			name:       "plain role and unknown email forbidden",
			tokens:     &stubValidator{user: adminUser("member", "who@example.com")},
			wantStatus: http.StatusForbidden,
			wantError:  "forbidden",
		},
		{
			name:       "rejected token",
			tokens:     &stubValidator{err: identity.ErrInvalidToken},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid token",
		},
		{
			name:       "no user resolved",
			tokens:     &stubValidator{},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid token",
		},
		{
			name:       "identity service failure",
			tokens:     &stubValidator{err: errors.New("connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "auth error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gateRequest(t, auth, tt.tokens, bearer)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantError != "" {
				if msg := errorBody(t, rec); msg != tt.wantError {
					t.Errorf("error = %q, want %q", msg, tt.wantError)
				}
			}
		})
	}
}

func TestAdminGate_NoCredentials(t *testing.T) {
	rec := gateRequest(t, config.AuthConfig{AdminKey: "sekret"}, &stubValidator{}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "missing credentials" {
		t.Errorf("error = %q, want missing credentials", msg)
	}
}
