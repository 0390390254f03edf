package services

import (
	"slices"
	"time"

	"permguard-lab/internal/domain/models"
)

// ReportAssembler aggregates already-scored app records into a report.
// It never scores apps itself.
type ReportAssembler struct {
	now func() time.Time
}

// NewReportAssembler creates an assembler that reads the wall clock
func NewReportAssembler() *ReportAssembler {
	return &ReportAssembler{now: time.Now}
}

// WithClock returns a copy of the assembler using the given time source
func (a *ReportAssembler) WithClock(now func() time.Time) *ReportAssembler {
	return &ReportAssembler{now: now}
}

// Assemble builds a report from apps and device info. Nil inputs produce an
// empty but valid report. The clock is read exactly once.
func (a *ReportAssembler) Assemble(apps []models.AppRecord, deviceInfo models.DeviceInfo) *models.Report {
	generatedAt := models.FormatTimestamp(a.now())

	records := slices.Clone(apps)
	if records == nil {
		records = []models.AppRecord{}
	}

	return &models.Report{
		ReportVersion: models.ReportVersion,
		GeneratedAt:   generatedAt,
		DeviceInfo:    deviceInfo.Clone(),
		Apps:          records,
		Summary:       Summarize(records),
	}
}

// Summarize counts apps per tier. NONE and unrecognized levels only count toward the total.
func Summarize(apps []models.AppRecord) models.Summary {
	summary := models.Summary{TotalApps: len(apps)}
	for _, app := range apps {
		switch app.RiskLevel {
		case models.RiskLevelHigh:
			summary.HighRiskApps++
		case models.RiskLevelMedium:
			summary.MediumRiskApps++
		case models.RiskLevelLow:
			summary.LowRiskApps++
		}
	}
	return summary
}

var defaultAssembler = NewReportAssembler()

// AssembleReport assembles a report using the wall clock
func AssembleReport(apps []models.AppRecord, deviceInfo models.DeviceInfo) *models.Report {
	return defaultAssembler.Assemble(apps, deviceInfo)
}
