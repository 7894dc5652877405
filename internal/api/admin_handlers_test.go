package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelwanderer/server/internal/auth"
	"github.com/pixelwanderer/server/internal/cache"
	"github.com/pixelwanderer/server/internal/config"
	"github.com/pixelwanderer/server/internal/engine"
	"github.com/pixelwanderer/server/internal/ledger"
	"github.com/pixelwanderer/server/internal/performance"
	"github.com/pixelwanderer/server/internal/prompt"
	"github.com/pixelwanderer/server/internal/provider"
	"github.com/pixelwanderer/server/internal/store"
	"github.com/pixelwanderer/server/internal/testutil"
)

type adminTestServer struct {
	helper *testutil.HTTPTestHelper
	token  string
	ledger *ledger.Ledger
}

func newAdminTestServer(t *testing.T) *adminTestServer {
	t.Helper()

	s, err := store.NewFSStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	stub := testutil.NewStubProvider()
	registry, err := provider.NewRegistry(stub.ProviderName, stub)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	e := engine.New(s, cache.New(time.Minute), registry, prompt.NewComposer(s),
		l, performance.NewProfiler(true), zap.NewNop())

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret-key-for-jwt-signing"
	cfg.Auth.JWTExpiration = 15 * time.Minute
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	cfg.Auth.AdminPasswordHash = string(hash)

	jwtService := auth.NewJWTService(cfg)
	authHandlers := auth.NewHandlers(cfg, jwtService, zap.NewNop())

	mux := http.NewServeMux()
	SetupBackgroundRoutes(mux, e, zap.NewNop())
	SetupAdminRoutes(mux, s, l, e, authHandlers, zap.NewNop())
	SetupAuthRoutes(mux, authHandlers)

	token, err := jwtService.GenerateToken(auth.RoleOperator)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	return &adminTestServer{
		helper: testutil.NewHTTPTestHelper(mux),
		token:  token,
		ledger: l,
	}
}

func (a *adminTestServer) get(path string) *json.Decoder {
	rr := a.helper.MakeRequestWithHeaders(http.MethodGet, path, nil,
		map[string]string{"Authorization": "Bearer " + a.token})
	return json.NewDecoder(rr.Body)
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	srv := newAdminTestServer(t)

	for _, path := range []string{"/api/worlds", "/api/generations", "/api/stats"} {
		rr := srv.helper.MakeRequest(http.MethodGet, path, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for %q without token, got %d", path, rr.Code)
		}
	}
}

func TestListWorlds(t *testing.T) {
	srv := newAdminTestServer(t)

	// Generate two tiles so default counts are visible.
	for _, body := range []BackgroundRequest{
		{X: intPtr(0), Y: intPtr(0), WorldName: "forest"},
		{X: intPtr(1), Y: intPtr(0), WorldName: "forest"},
	} {
		rr := srv.helper.MakeRequest(http.MethodPost, "/background", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Failed to generate tile: %d %s", rr.Code, rr.Body.String())
		}
	}

	var resp struct {
		Worlds []store.WorldInfo `json:"worlds"`
	}
	if err := srv.get("/api/worlds").Decode(&resp); err != nil {
		t.Fatalf("Failed to decode worlds response: %v", err)
	}
	if len(resp.Worlds) != 1 {
		t.Fatalf("Expected 1 world, got %d", len(resp.Worlds))
	}
	if resp.Worlds[0].Name != "forest" || resp.Worlds[0].TileCount != 2 {
		t.Errorf("Unexpected world info: %+v", resp.Worlds[0])
	}
}

func TestRecentGenerations(t *testing.T) {
	srv := newAdminTestServer(t)

	// One successful generation plus one direct ledger row.
	rr := srv.helper.MakeRequest(http.MethodPost, "/background", BackgroundRequest{
		X: intPtr(0), Y: intPtr(0), WorldName: "forest",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Failed to generate tile: %d %s", rr.Code, rr.Body.String())
	}
	err := srv.ledger.Record(context.Background(), ledger.Entry{
		RequestID: "manual-1",
		World:     "forest",
		Provider:  "dalle",
		Mode:      "seed",
		Outcome:   ledger.OutcomeFailed,
		Detail:    "upstream status 503",
	})
	if err != nil {
		t.Fatalf("Failed to record ledger entry: %v", err)
	}

	var resp struct {
		Generations []ledger.Entry `json:"generations"`
	}
	if err := srv.get("/api/generations").Decode(&resp); err != nil {
		t.Fatalf("Failed to decode generations response: %v", err)
	}
	if len(resp.Generations) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(resp.Generations))
	}

	outcomes := map[string]bool{}
	for _, e := range resp.Generations {
		outcomes[e.Outcome] = true
	}
	if !outcomes[ledger.OutcomeGenerated] || !outcomes[ledger.OutcomeFailed] {
		t.Errorf("Expected both outcomes, got %+v", outcomes)
	}
}

func TestRecentGenerationsInvalidLimit(t *testing.T) {
	srv := newAdminTestServer(t)

	rr := srv.helper.MakeRequestWithHeaders(http.MethodGet, "/api/generations?limit=abc", nil,
		map[string]string{"Authorization": "Bearer " + srv.token})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for bad limit, got %d", rr.Code)
	}
}

func TestStats(t *testing.T) {
	srv := newAdminTestServer(t)

	rr := srv.helper.MakeRequest(http.MethodPost, "/background", BackgroundRequest{
		X: intPtr(0), Y: intPtr(0), WorldName: "forest",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Failed to generate tile: %d %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Phases map[string]struct {
			Count int64 `json:"count"`
		} `json:"phases"`
	}
	if err := srv.get("/api/stats").Decode(&resp); err != nil {
		t.Fatalf("Failed to decode stats response: %v", err)
	}
	if phase, ok := resp.Phases["provider_generate"]; !ok || phase.Count != 1 {
		t.Errorf("Expected one provider_generate call in stats, got %+v", resp.Phases)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	srv := newAdminTestServer(t)

	rr := srv.helper.MakeRequest(http.MethodPost, "/api/auth/login",
		auth.LoginRequest{Password: "hunter2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var login auth.LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &login); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}

	check := srv.helper.MakeRequestWithHeaders(http.MethodGet, "/api/worlds", nil,
		map[string]string{"Authorization": "Bearer " + login.Token})
	if check.Code != http.StatusOK {
		t.Fatalf("Expected issued token to be accepted, got %d", check.Code)
	}
}
