package streaming

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
)

// EventType represents the type of report event
type EventType string

const (
	EventTypeReportGenerated   EventType = "report_generated"
	EventTypeReportTransmitted EventType = "report_transmitted"
)

// ReportEvent announces a report lifecycle change. It carries the summary,
// never the full app list.
type ReportEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	ReportID    string           `json:"report_id"`
	GeneratedAt string           `json:"generated_at,omitempty"`
	Summary     *models.Summary  `json:"summary,omitempty"`
	HighestRisk models.RiskLevel `json:"highest_risk,omitempty"`

	// Transmission details
	Endpoint   string `json:"endpoint,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}

// NewReportGeneratedEvent creates an event for a freshly assembled report
func NewReportGeneratedEvent(reportID string, report *models.Report) *ReportEvent {
	summary := report.Summary
	return &ReportEvent{
		ID:          uuid.New().String(),
		Type:        EventTypeReportGenerated,
		Timestamp:   time.Now(),
		ReportID:    reportID,
		GeneratedAt: report.GeneratedAt,
		Summary:     &summary,
		HighestRisk: HighestRisk(report.Apps),
	}
}

// NewReportTransmittedEvent creates an event for a delivered report
func NewReportTransmittedEvent(reportID string, result *services.TransmissionResult) *ReportEvent {
	return &ReportEvent{
		ID:         uuid.New().String(),
		Type:       EventTypeReportTransmitted,
		Timestamp:  time.Now(),
		ReportID:   reportID,
		Endpoint:   result.Endpoint,
		StatusCode: result.StatusCode,
		Attempts:   result.Attempts,
	}
}

// HighestRisk returns the most severe tier among apps, NONE when empty
func HighestRisk(apps []models.AppRecord) models.RiskLevel {
	highest := models.RiskLevelNone
	for _, app := range apps {
		if app.RiskLevel.Rank() > highest.Rank() {
			highest = app.RiskLevel
		}
	}
	return highest
}

// Subscription represents a client's subscription preferences
type Subscription struct {
	// Only reports whose highest tier is at least this level (empty = all)
	MinRiskLevel models.RiskLevel `json:"min_risk_level,omitempty"`

	// Filter by event types (empty = all)
	Types []EventType `json:"types,omitempty"`

	// Follow specific reports (empty = all)
	ReportIDs []string `json:"report_ids,omitempty"`
}

// Matches checks if an event matches the subscription filters.
// Risk filtering only applies to events that carry a risk tier.
func (s *Subscription) Matches(event *ReportEvent) bool {
	if s.MinRiskLevel != "" && event.HighestRisk != "" {
		if event.HighestRisk.Rank() < s.MinRiskLevel.Rank() {
			return false
		}
	}

	if len(s.Types) > 0 && !slices.Contains(s.Types, event.Type) {
		return false
	}

	if len(s.ReportIDs) > 0 && !slices.Contains(s.ReportIDs, event.ReportID) {
		return false
	}

	return true
}

func normalizeLevel(level string) models.RiskLevel {
	return models.RiskLevel(strings.ToUpper(strings.TrimSpace(level)))
}
