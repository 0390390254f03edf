package handlers

import (
	"net/http"

	"permguard-lab/internal/streaming"
	"permguard-lab/pkg/logger"
)

// StreamingHandler handles real-time report feeds
type StreamingHandler struct {
	wsHub    *streaming.WebSocketHub
	eventBus *streaming.EventBus
	logger   *logger.Logger
}

// NewStreamingHandler creates a new streaming handler
func NewStreamingHandler(wsHub *streaming.WebSocketHub, eventBus *streaming.EventBus, log *logger.Logger) *StreamingHandler {
	return &StreamingHandler{
		wsHub:    wsHub,
		eventBus: eventBus,
		logger:   log.WithComponent("streaming-handler"),
	}
}

// HandleWebSocket handles GET /ws/reports
func (h *StreamingHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket streaming not available")
		return
	}

	h.logger.Debug().
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("WebSocket connection request")

	h.wsHub.ServeWebSocket(w, r)
}

// StreamingStats is the body of GET /api/v1/streaming/stats
type StreamingStats struct {
	WebSocketClients int                 `json:"websocket_clients"`
	EventBus         *streaming.BusStats `json:"event_bus,omitempty"`
}

// GetStats handles GET /api/v1/streaming/stats
func (h *StreamingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats StreamingStats

	if h.wsHub != nil {
		stats.WebSocketClients = h.wsHub.ClientCount()
	}
	if h.eventBus != nil {
		bus := h.eventBus.Stats()
		stats.EventBus = &bus
	}

	respondJSON(w, http.StatusOK, stats)
}
