package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/domain"

	"github.com/google/uuid"
)

var testSecret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	identity := Identity{UserID: uuid.New(), Name: "Ana", Role: domain.RoleEditor}

	token, err := NewToken(identity, testSecret)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	parsed, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed != identity {
		t.Fatalf("identity mismatch: got %+v want %+v", parsed, identity)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewToken(Identity{UserID: uuid.New(), Role: domain.RoleVolunteer}, testSecret)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if _, err := ParseToken(token, []byte("other-secret")); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	token, err := NewToken(Identity{UserID: uuid.New(), Role: "superuser"}, testSecret)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("unknown role must be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	identity := Identity{UserID: uuid.New(), Name: "Ana", Role: domain.RoleEditor}
	token, err := NewToken(identity, testSecret)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var seen Identity
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No credentials.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing token must get 403, got %d", rec.Code)
	}

	// Garbage credentials.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("invalid token must get 403, got %d", rec.Code)
	}

	// Valid credentials reach the handler with the actor attached.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token must pass, got %d", rec.Code)
	}
	if seen != identity {
		t.Fatalf("context identity mismatch: got %+v", seen)
	}
}
