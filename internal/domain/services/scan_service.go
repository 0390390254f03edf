package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"permguard-lab/internal/domain/models"
	"permguard-lab/pkg/logger"
)

var (
	// ErrReportNotFound is returned when a report ID is unknown or expired
	ErrReportNotFound = errors.New("report not found")
	// ErrStoreUnavailable is returned when no report cache is configured
	ErrStoreUnavailable = errors.New("report store unavailable")
)

// AppSource supplies installed apps and device metadata. Implemented by
// device-side enumerators, inventory files and request bodies.
type AppSource interface {
	EnumerateApplications(ctx context.Context) ([]models.InstalledApp, error)
	GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error)
}

// ReportStore keeps generated reports for a limited time
type ReportStore interface {
	SaveReport(ctx context.Context, id string, report *models.Report, ttl time.Duration) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
}

// ReportPublisher announces generated reports to downstream consumers
type ReportPublisher interface {
	PublishReportGenerated(ctx context.Context, id string, report *models.Report) error
}

// ScanServiceConfig holds scan service settings
type ScanServiceConfig struct {
	ReportTTL time.Duration
}

// ScanService orchestrates enumerate → score → assemble for one scan
type ScanService struct {
	scorer    RiskScorer
	assembler *ReportAssembler
	store     ReportStore
	publisher ReportPublisher
	cfg       ScanServiceConfig
	logger    *logger.Logger
}

// NewScanService creates a scan service. store and publisher may be nil.
func NewScanService(cfg ScanServiceConfig, scorer RiskScorer, assembler *ReportAssembler, store ReportStore, publisher ReportPublisher, log *logger.Logger) *ScanService {
	if scorer == nil {
		scorer = PermissionScorer{}
	}
	if assembler == nil {
		assembler = NewReportAssembler()
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = time.Hour
	}
	return &ScanService{
		scorer:    scorer,
		assembler: assembler,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("scan-service"),
	}
}

// ScoreApps scores every app, preserving input order
func (s *ScanService) ScoreApps(apps []models.InstalledApp) []models.AppRecord {
	records := make([]models.AppRecord, 0, len(apps))
	for _, app := range apps {
		records = append(records, models.NewAppRecord(app, s.scorer.Score(app.Permissions)))
	}
	return records
}

// Scan enumerates apps and device info from source and generates a report
func (s *ScanService) Scan(ctx context.Context, source AppSource) (*models.GeneratedReport, error) {
	apps, err := source.EnumerateApplications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate applications: %w", err)
	}

	deviceInfo, err := source.GetDeviceInfo(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch device info, recording error in report")
		deviceInfo = models.DeviceInfo{"error": err.Error()}
	}

	return s.Generate(ctx, apps, deviceInfo)
}

// Generate scores apps, assembles the report, caches it and publishes an event.
// Cache and publish failures are logged, not returned.
func (s *ScanService) Generate(ctx context.Context, apps []models.InstalledApp, deviceInfo models.DeviceInfo) (*models.GeneratedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := s.assembler.Assemble(s.ScoreApps(apps), deviceInfo)
	id := uuid.New().String()
	log := s.logger.WithReportID(id)

	if s.store != nil {
		if err := s.store.SaveReport(ctx, id, report, s.cfg.ReportTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache report")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReportGenerated(ctx, id, report); err != nil {
			log.Warn().Err(err).Msg("failed to publish report event")
		}
	}

	log.Info().
		Int("total_apps", report.Summary.TotalApps).
		Int("high", report.Summary.HighRiskApps).
		Int("medium", report.Summary.MediumRiskApps).
		Int("low", report.Summary.LowRiskApps).
		Dur("duration", time.Since(start)).
		Msg("report generated")

	return &models.GeneratedReport{ID: id, Report: report}, nil
}

// GetReport returns a previously generated report
func (s *ScanService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return report, nil
}
