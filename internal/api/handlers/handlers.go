package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"permguard-lab/internal/domain/services"
	"permguard-lab/internal/infrastructure/cache"
	"permguard-lab/internal/streaming"
	"permguard-lab/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health      *HealthHandler
	Reports     *ReportsHandler
	Permissions *PermissionsHandler
	Streaming   *StreamingHandler
	Stats       *StatsHandler
}

// Dependencies holds dependencies for handlers. Cache, Transmitter,
// Publisher, WSHub and EventBus may be nil.
type Dependencies struct {
	ScanService *services.ScanService
	Transmitter *services.Transmitter
	Publisher   TransmissionPublisher
	Cache       *cache.RedisCache
	WSHub       *streaming.WebSocketHub
	EventBus    *streaming.EventBus
	MaxApps     int
	Version     string
	Logger      *logger.Logger
}

// TransmissionPublisher announces delivered reports
type TransmissionPublisher interface {
	PublishReportTransmitted(ctx context.Context, id string, result *services.TransmissionResult) error
}

// Pinger is a dependency probed by the readiness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	checks := map[string]Pinger{}
	var counter ReportCounter
	if deps.Cache != nil {
		checks["redis"] = deps.Cache
		counter = deps.Cache
	}

	return &Handlers{
		Health:      NewHealthHandler(deps.Version, checks, deps.Logger),
		Reports:     NewReportsHandler(deps.ScanService, deps.Transmitter, deps.Publisher, deps.MaxApps, deps.Logger),
		Permissions: NewPermissionsHandler(deps.Logger),
		Streaming:   NewStreamingHandler(deps.WSHub, deps.EventBus, deps.Logger),
		Stats:       NewStatsHandler(counter, deps.EventBus, deps.Logger),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
