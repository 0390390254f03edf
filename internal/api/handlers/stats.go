package handlers

import (
	"context"
	"net/http"
	"time"

	"permguard-lab/internal/domain/services"
	"permguard-lab/internal/streaming"
	"permguard-lab/pkg/logger"
)

// ReportCounter reports how many reports have been generated
type ReportCounter interface {
	ReportsGenerated(ctx context.Context) (int64, error)
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	counter  ReportCounter
	eventBus *streaming.EventBus
	logger   *logger.Logger
}

// NewStatsHandler creates a new StatsHandler. counter and eventBus may be nil.
func NewStatsHandler(counter ReportCounter, eventBus *streaming.EventBus, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		counter:  counter,
		eventBus: eventBus,
		logger:   log.WithComponent("stats"),
	}
}

// Stats is the body of GET /api/v1/stats
type Stats struct {
	// nil when no report cache is configured
	ReportsGenerated     *int64 `json:"reports_generated"`
	EventsPublished      int64  `json:"events_published"`
	DangerousPermissions int    `json:"dangerous_permissions"`
	Timestamp            string `json:"timestamp"`
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		DangerousPermissions: len(services.DangerousPermissionNames()),
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
	}

	if h.counter != nil {
		count, err := h.counter.ReportsGenerated(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to read report counter")
		} else {
			stats.ReportsGenerated = &count
		}
	}

	if h.eventBus != nil {
		stats.EventsPublished = h.eventBus.Stats().Published
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, stats)
}
