package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for league draft
// rooms.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleLeagueConnection upgrades a client into a league's draft room.
func (h *WebSocketHandler) HandleLeagueConnection(w http.ResponseWriter, r *http.Request) {
	leagueIDStr := r.URL.Query().Get("league_id")
	if leagueIDStr == "" {
		http.Error(w, "league_id is required", http.StatusBadRequest)
		return
	}
	leagueID, err := uuid.Parse(leagueIDStr)
	if err != nil {
		http.Error(w, "invalid league_id format", http.StatusBadRequest)
		return
	}

	// In production the identity comes from the auth layer; the query
	// parameter keeps local development simple.
	identityIDStr := r.URL.Query().Get("identity_id")
	identityID, err := uuid.Parse(identityIDStr)
	if err != nil {
		http.Error(w, "valid identity_id is required", http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, identityID, leagueID); err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("identity_id", identityID.String()).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/draft", h.HandleLeagueConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
