package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/auth"
	"github.com/pixelwanderer/server/internal/engine"
	"github.com/pixelwanderer/server/internal/ledger"
	"github.com/pixelwanderer/server/internal/store"
)

// SetupAdminRoutes registers the authenticated operator endpoints.
func SetupAdminRoutes(mux *http.ServeMux, s store.Store, l *ledger.Ledger, e *engine.Engine,
	authHandlers *auth.Handlers, log *zap.Logger) {
	handlers := NewAdminHandlers(s, l, e, log)

	guard := func(h http.HandlerFunc) http.Handler {
		return authHandlers.Middleware(h)
	}

	mux.Handle("/api/worlds", guard(handlers.ListWorlds))
	mux.Handle("/api/generations", guard(handlers.RecentGenerations))
	mux.Handle("/api/stats", guard(handlers.Stats))
}

// SetupAuthRoutes registers the operator login endpoint.
func SetupAuthRoutes(mux *http.ServeMux, authHandlers *auth.Handlers) {
	// Keep a tight budget on login attempts.
	loginRateLimit := RateLimitMiddleware(5, 1*time.Minute)

	mux.Handle("/api/auth/login", loginRateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondWithError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "Use POST")
			return
		}
		authHandlers.Login(w, r)
	})))
}
