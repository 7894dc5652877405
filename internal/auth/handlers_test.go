package auth

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelwanderer/server/internal/config"
	"github.com/pixelwanderer/server/internal/testutil"
)

func newTestHandlers(t *testing.T, password string) *Handlers {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret-key-for-jwt-signing"
	cfg.Auth.JWTExpiration = 15 * time.Minute
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		cfg.Auth.AdminPasswordHash = string(hash)
	}
	return NewHandlers(cfg, NewJWTService(cfg), zap.NewNop())
}

func TestLogin(t *testing.T) {
	h := newTestHandlers(t, "hunter2")
	helper := testutil.NewHTTPTestHelper(http.HandlerFunc(h.Login))

	rr := helper.MakeRequest(http.MethodPost, "/api/auth/login", LoginRequest{Password: "hunter2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	claims, err := h.jwtService.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("Issued token failed validation: %v", err)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Expected operator role, got %q", claims.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := newTestHandlers(t, "hunter2")
	helper := testutil.NewHTTPTestHelper(http.HandlerFunc(h.Login))

	rr := helper.MakeRequest(http.MethodPost, "/api/auth/login", LoginRequest{Password: "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
}

func TestLoginMissingPassword(t *testing.T) {
	h := newTestHandlers(t, "hunter2")
	helper := testutil.NewHTTPTestHelper(http.HandlerFunc(h.Login))

	rr := helper.MakeRequest(http.MethodPost, "/api/auth/login", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestLoginDisabled(t *testing.T) {
	h := newTestHandlers(t, "")
	helper := testutil.NewHTTPTestHelper(http.HandlerFunc(h.Login))

	rr := helper.MakeRequest(http.MethodPost, "/api/auth/login", LoginRequest{Password: "anything"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when no password hash is configured, got %d", rr.Code)
	}
}

func TestMiddleware(t *testing.T) {
	h := newTestHandlers(t, "hunter2")

	var gotRole string
	protected := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole, _ = r.Context().Value(RoleKey).(string)
		w.WriteHeader(http.StatusOK)
	}))
	helper := testutil.NewHTTPTestHelper(protected)

	// No header.
	rr := helper.MakeRequest(http.MethodGet, "/api/stats", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", rr.Code)
	}

	// Malformed header.
	rr = helper.MakeRequestWithHeaders(http.MethodGet, "/api/stats", nil,
		map[string]string{"Authorization": "Token abc"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for malformed header, got %d", rr.Code)
	}

	// Invalid token.
	rr = helper.MakeRequestWithHeaders(http.MethodGet, "/api/stats", nil,
		map[string]string{"Authorization": "Bearer not-a-jwt"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for invalid token, got %d", rr.Code)
	}

	// Valid token.
	token, err := h.jwtService.GenerateToken(RoleOperator)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	rr = helper.MakeRequestWithHeaders(http.MethodGet, "/api/stats", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 with valid token, got %d", rr.Code)
	}
	if gotRole != RoleOperator {
		t.Errorf("Expected operator role in context, got %q", gotRole)
	}
}
