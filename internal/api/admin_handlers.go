package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/engine"
	"github.com/pixelwanderer/server/internal/ledger"
	"github.com/pixelwanderer/server/internal/store"
)

// AdminHandlers serves the authenticated operator endpoints.
type AdminHandlers struct {
	store  store.Store
	ledger *ledger.Ledger
	engine *engine.Engine
	log    *zap.Logger
}

// NewAdminHandlers creates a new instance of AdminHandlers.
func NewAdminHandlers(s store.Store, l *ledger.Ledger, e *engine.Engine, log *zap.Logger) *AdminHandlers {
	return &AdminHandlers{store: s, ledger: l, engine: e, log: log}
}

// ListWorlds handles GET /api/worlds requests.
// Returns every world namespace with its tile count.
func (h *AdminHandlers) ListWorlds(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.store.Worlds()
	if err != nil {
		h.log.Error("failed to list worlds", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "InternalError", "Failed to list worlds")
		return
	}
	if worlds == nil {
		worlds = []store.WorldInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"worlds": worlds}); err != nil {
		h.log.Warn("failed to encode worlds response", zap.Error(err))
	}
}

// RecentGenerations handles GET /api/generations?limit= requests.
// Returns the most recent ledger entries, newest first.
func (h *AdminHandlers) RecentGenerations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "InvalidRequest", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	entries, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("failed to query generation ledger", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "InternalError", "Failed to query generations")
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"generations": entries}); err != nil {
		h.log.Warn("failed to encode generations response", zap.Error(err))
	}
}

// Stats handles GET /api/stats requests.
// Returns per-phase resolution timing metrics.
func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	type phaseStats struct {
		Count  int64  `json:"count"`
		AvgMS  int64  `json:"avgMs"`
		MinMS  int64  `json:"minMs"`
		MaxMS  int64  `json:"maxMs"`
		LastMS int64  `json:"lastMs"`
		Last   string `json:"lastCall,omitempty"`
	}

	metrics := h.engine.Metrics()
	phases := make(map[string]phaseStats, len(metrics))
	for name, m := range metrics {
		s := phaseStats{
			Count:  m.Count,
			AvgMS:  m.AvgTime().Milliseconds(),
			MinMS:  m.MinTime.Milliseconds(),
			MaxMS:  m.MaxTime.Milliseconds(),
			LastMS: m.LastTime.Milliseconds(),
		}
		if !m.LastCall.IsZero() {
			s.Last = m.LastCall.UTC().Format(time.RFC3339)
		}
		phases[name] = s
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"phases": phases}); err != nil {
		h.log.Warn("failed to encode stats response", zap.Error(err))
	}
}
