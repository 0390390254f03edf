package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
	"permguard-lab/internal/inventory"
	"permguard-lab/pkg/logger"
)

// maxBodyBytes caps request bodies on the scoring endpoints
const maxBodyBytes = 10 << 20

// ReportIDHeader carries the cache ID of a generated report
const ReportIDHeader = "X-Report-ID"

// ReportsHandler handles scoring, report generation and transmission
type ReportsHandler struct {
	scan        *services.ScanService
	transmitter *services.Transmitter
	publisher   TransmissionPublisher
	maxApps     int
	logger      *logger.Logger
}

// NewReportsHandler creates a new ReportsHandler. maxApps <= 0 disables the limit.
func NewReportsHandler(scan *services.ScanService, transmitter *services.Transmitter, publisher TransmissionPublisher, maxApps int, log *logger.Logger) *ReportsHandler {
	return &ReportsHandler{
		scan:        scan,
		transmitter: transmitter,
		publisher:   publisher,
		maxApps:     maxApps,
		logger:      log.WithComponent("reports-handler"),
	}
}

// ScoreRequest is the body of POST /api/v1/score
type ScoreRequest struct {
	Permissions []string `json:"permissions"`
}

// Score handles POST /api/v1/score
func (h *ReportsHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, services.ScorePermissions(req.Permissions))
}

// Generate handles POST /api/v1/reports. The body is an inventory
// ({apps, deviceInfo}); the response is the assembled report and its cache
// ID is returned in the X-Report-ID header.
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var inv models.Inventory
	if err := decodeBody(w, r, &inv); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.maxApps > 0 && len(inv.Apps) > h.maxApps {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("too many apps: %d (max %d)", len(inv.Apps), h.maxApps))
		return
	}

	generated, err := h.scan.Scan(r.Context(), inventory.FromInventory(&inv))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate report")
		respondError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	w.Header().Set(ReportIDHeader, generated.ID)
	w.Header().Set("Location", "/api/v1/reports/"+generated.ID)
	respondJSON(w, http.StatusCreated, generated.Report)
}

// Get handles GET /api/v1/reports/{id}
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	w.Header().Set(ReportIDHeader, id)
	respondJSON(w, http.StatusOK, report)
}

// Transmit handles POST /api/v1/reports/{id}/transmit
func (h *ReportsHandler) Transmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.transmitter == nil {
		respondError(w, http.StatusServiceUnavailable, services.ErrNoEndpoint.Error())
		return
	}

	report, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	result, err := h.transmitter.Send(r.Context(), report)
	if err != nil {
		h.logger.WithReportID(id).Warn().Err(err).Msg("report transmission failed")
		switch {
		case errors.Is(err, services.ErrNoEndpoint):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishReportTransmitted(r.Context(), id, result); err != nil {
			h.logger.WithReportID(id).Warn().Err(err).Msg("failed to publish transmission event")
		}
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *ReportsHandler) lookup(w http.ResponseWriter, r *http.Request, id string) (*models.Report, bool) {
	report, err := h.scan.GetReport(r.Context(), id)
	switch {
	case err == nil:
		return report, true
	case errors.Is(err, services.ErrReportNotFound):
		respondError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, services.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "report storage not available")
	default:
		h.logger.Error().Err(err).Str("report_id", id).Msg("failed to load report")
		respondError(w, http.StatusInternalServerError, "failed to load report")
	}
	return nil, false
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
