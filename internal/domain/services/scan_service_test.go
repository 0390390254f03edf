package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"permguard-lab/internal/domain/models"
	"permguard-lab/pkg/logger"
)

type fakeSource struct {
	apps      []models.InstalledApp
	device    models.DeviceInfo
	appsErr   error
	deviceErr error
}

func (f *fakeSource) EnumerateApplications(context.Context) ([]models.InstalledApp, error) {
	return f.apps, f.appsErr
}

func (f *fakeSource) GetDeviceInfo(context.Context) (models.DeviceInfo, error) {
	return f.device, f.deviceErr
}

type memoryStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	ttls    map[string]time.Duration
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reports: map[string]*models.Report{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SaveReport(_ context.Context, id string, report *models.Report, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports[id] = report
	m.ttls[id] = ttl
	return nil
}

func (m *memoryStore) GetReport(_ context.Context, id string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return r, nil
}

type recordingPublisher struct {
	ids []string
	err error
}

func (p *recordingPublisher) PublishReportGenerated(_ context.Context, id string, _ *models.Report) error {
	p.ids = append(p.ids, id)
	return p.err
}

func sampleInventory() []models.InstalledApp {
	return []models.InstalledApp{
		{
			PackageName: "com.example.messenger",
			AppName:     "Example Messenger",
			Permissions: []string{permReadSMS, permSendSMS, permReadContacts, permInternet},
		},
		{
			PackageName: "com.example.camera",
			AppName:     "Example Camera",
			Permissions: []string{permCamera, permRecordAudio, permFineLocation, "android.permission.WRITE_EXTERNAL_STORAGE"},
		},
		{
			PackageName: "com.example.notes",
			Permissions: []string{permInternet},
		},
	}
}

func TestScanServiceScoreAppsPreservesOrder(t *testing.T) {
	svc := NewScanService(ScanServiceConfig{}, nil, nil, nil, nil, logger.NewNop())
	records := svc.ScoreApps(sampleInventory())

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	want := []struct {
		pkg   string
		name  string
		score int
		level models.RiskLevel
	}{
		{"com.example.messenger", "Example Messenger", 40, models.RiskLevelMedium},
		{"com.example.camera", "Example Camera", 40, models.RiskLevelMedium},
		{"com.example.notes", "com.example.notes", 0, models.RiskLevelNone},
	}
	for i, w := range want {
		r := records[i]
		if r.PackageName != w.pkg || r.AppName != w.name || r.RiskScore != w.score || r.RiskLevel != w.level {
			t.Errorf("record %d = %+v, want %+v", i, r, w)
		}
	}
}

func TestScanServiceScanStoresAndPublishes(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	svc := NewScanService(ScanServiceConfig{ReportTTL: 5 * time.Minute}, nil, nil, store, pub, logger.NewNop())

	src := &fakeSource{
		apps:   sampleInventory(),
		device: models.DeviceInfo{"model": "Pixel 7", "systemVersion": "14"},
	}
	gen, err := svc.Scan(context.Background(), src)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if gen.ID == "" {
		t.Fatal("empty report ID")
	}

	want := models.Summary{TotalApps: 3, MediumRiskApps: 2}
	if gen.Report.Summary != want {
		t.Errorf("summary = %+v, want %+v", gen.Report.Summary, want)
	}
	if gen.Report.DeviceInfo["model"] != "Pixel 7" {
		t.Errorf("deviceInfo = %v", gen.Report.DeviceInfo)
	}

	if store.ttls[gen.ID] != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", store.ttls[gen.ID])
	}
	if len(pub.ids) != 1 || pub.ids[0] != gen.ID {
		t.Errorf("published ids = %v, want [%s]", pub.ids, gen.ID)
	}

	got, err := svc.GetReport(context.Background(), gen.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got != gen.Report {
		t.Error("stored report differs from generated one")
	}
}

func TestScanServiceDeviceInfoFailureIsRecorded(t *testing.T) {
	svc := NewScanService(ScanServiceConfig{}, nil, nil, nil, nil, logger.NewNop())
	src := &fakeSource{apps: sampleInventory(), deviceErr: errors.New("device info unavailable")}

	gen, err := svc.Scan(context.Background(), src)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(gen.Report.DeviceInfo) != 1 || gen.Report.DeviceInfo["error"] != "device info unavailable" {
		t.Errorf("deviceInfo = %v, want single error entry", gen.Report.DeviceInfo)
	}
	if gen.Report.Summary.TotalApps != 3 {
		t.Errorf("totalApps = %d, want 3", gen.Report.Summary.TotalApps)
	}
}

func TestScanServiceEnumerationFailureAborts(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewScanService(ScanServiceConfig{}, nil, nil, nil, pub, logger.NewNop())
	boom := errors.New("package manager unavailable")

	_, err := svc.Scan(context.Background(), &fakeSource{appsErr: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping %v", err, boom)
	}
	if len(pub.ids) != 0 {
		t.Error("event published for failed scan")
	}
}

func TestScanServiceToleratesStoreAndPublishFailures(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := NewScanService(ScanServiceConfig{}, nil, nil, store, pub, logger.NewNop())

	gen, err := svc.Generate(context.Background(), sampleInventory(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.Report == nil || gen.Report.Summary.TotalApps != 3 {
		t.Errorf("report = %+v", gen.Report)
	}

	if _, err := svc.GetReport(context.Background(), gen.ID); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("GetReport err = %v, want ErrReportNotFound", err)
	}
}

func TestScanServiceGenerateHonoursCancelledContext(t *testing.T) {
	svc := NewScanService(ScanServiceConfig{}, nil, nil, nil, nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Generate(ctx, sampleInventory(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestScanServiceGetReportWithoutStore(t *testing.T) {
	svc := NewScanService(ScanServiceConfig{}, nil, nil, nil, nil, logger.NewNop())
	if _, err := svc.GetReport(context.Background(), "any"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

type constantScorer struct{ result models.RiskResult }

func (c constantScorer) Score([]string) models.RiskResult { return c.result }

func TestScanServiceUsesInjectedCollaborators(t *testing.T) {
	scorer := constantScorer{result: models.RiskResult{Score: 99, Level: models.RiskLevelHigh, DangerousPermissions: []string{}}}
	clock := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assembler := NewReportAssembler().WithClock(fixedClock(clock))
	svc := NewScanService(ScanServiceConfig{}, scorer, assembler, nil, nil, logger.NewNop())

	gen, err := svc.Generate(context.Background(), sampleInventory(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if gen.Report.Summary.HighRiskApps != 3 {
		t.Errorf("highRiskApps = %d, want 3", gen.Report.Summary.HighRiskApps)
	}
	if gen.Report.GeneratedAt != "2026-03-04T05:06:07.000Z" {
		t.Errorf("generatedAt = %q", gen.Report.GeneratedAt)
	}
}
