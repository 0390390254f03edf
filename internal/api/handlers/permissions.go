package handlers

import (
	"net/http"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
	"permguard-lab/pkg/logger"
)

// PermissionsHandler serves the dangerous-permission catalogue
type PermissionsHandler struct {
	logger *logger.Logger
}

// NewPermissionsHandler creates a new PermissionsHandler
func NewPermissionsHandler(log *logger.Logger) *PermissionsHandler {
	return &PermissionsHandler{logger: log.WithComponent("permissions-handler")}
}

// Thresholds describes how scores map to tiers
type Thresholds struct {
	Max    int `json:"max"`
	High   int `json:"high"`
	Medium int `json:"medium"`
}

// GetDangerous handles GET /api/v1/permissions/dangerous
func (h *PermissionsHandler) GetDangerous(w http.ResponseWriter, r *http.Request) {
	catalogue := services.DangerousPermissions()
	respondJSON(w, http.StatusOK, map[string]any{
		"permissions": catalogue,
		"count":       len(catalogue),
		"thresholds": Thresholds{
			Max:    models.MaxRiskScore,
			High:   models.HighRiskThreshold,
			Medium: models.MediumRiskThreshold,
		},
	})
}
