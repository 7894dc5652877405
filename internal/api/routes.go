package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/streaming"
)

// SetupHealthRoute registers the health check endpoint.
func SetupHealthRoute(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"pixelwanderer-server"}`)
	})
}

// SetupStreamRoute registers the tile-prefetch WebSocket endpoint.
func SetupStreamRoute(mux *http.ServeMux, manager *streaming.Manager, log *zap.Logger) {
	mux.Handle("/ws", NewStreamHandler(manager, log))
}
