package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/engine"
)

// SetupBackgroundRoutes registers the tile fetch-or-generate routes.
func SetupBackgroundRoutes(mux *http.ServeMux, e *engine.Engine, log *zap.Logger) {
	handlers := NewBackgroundHandlers(e, log)

	// Generation is expensive; keep the per-IP budget modest.
	rateLimit := RateLimitMiddleware(60, 1*time.Minute)

	backgroundHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.Generate(w, r)
		case http.MethodGet:
			handlers.Fetch(w, r)
		default:
			respondWithError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "Use GET or POST")
		}
	})

	mux.Handle("/background", rateLimit(backgroundHandler))
}
