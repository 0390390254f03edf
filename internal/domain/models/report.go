package models

import (
	"maps"
	"slices"
	"time"
)

// ReportVersion is the format version stamped on every report
const ReportVersion = "1.0.0"

// TimestampFormat is ISO-8601 UTC with millisecond precision
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampFormat
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// InstalledApp is one application as reported by the device enumerator
type InstalledApp struct {
	PackageName string   `json:"packageName" yaml:"packageName"`
	AppName     string   `json:"appName,omitempty" yaml:"appName,omitempty"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// DisplayName returns the app name, falling back to the package name
func (a InstalledApp) DisplayName() string {
	if a.AppName != "" {
		return a.AppName
	}
	return a.PackageName
}

// DeviceInfo is an opaque key/value record describing the scanned device.
// Typical keys: brand, manufacturer, model, systemVersion, deviceId,
// isEmulator, isTablet, isRooted, isPinOrFingerprintSet.
type DeviceInfo map[string]any

// Clone returns a shallow copy; a nil record clones to an empty one
func (d DeviceInfo) Clone() DeviceInfo {
	if d == nil {
		return DeviceInfo{}
	}
	return maps.Clone(d)
}

// AppRecord is a scanned app together with its risk result
type AppRecord struct {
	PackageName          string    `json:"packageName"`
	AppName              string    `json:"appName"`
	Permissions          []string  `json:"permissions"`
	RiskScore            int       `json:"riskScore"`
	RiskLevel            RiskLevel `json:"riskLevel"`
	DangerousPermissions []string  `json:"dangerousPermissions"`
}

// NewAppRecord combines an installed app with its risk result
func NewAppRecord(app InstalledApp, risk RiskResult) AppRecord {
	perms := app.Permissions
	if perms == nil {
		perms = []string{}
	}
	flagged := risk.DangerousPermissions
	if flagged == nil {
		flagged = []string{}
	}
	return AppRecord{
		PackageName:          app.PackageName,
		AppName:              app.DisplayName(),
		Permissions:          slices.Clone(perms),
		RiskScore:            risk.Score,
		RiskLevel:            risk.Level,
		DangerousPermissions: slices.Clone(flagged),
	}
}

// Summary holds per-tier counts across all apps in a report
type Summary struct {
	TotalApps      int `json:"totalApps"`
	HighRiskApps   int `json:"highRiskApps"`
	MediumRiskApps int `json:"mediumRiskApps"`
	LowRiskApps    int `json:"lowRiskApps"`
}

// Report is the assembled assessment document
type Report struct {
	ReportVersion string      `json:"reportVersion"`
	GeneratedAt   string      `json:"generatedAt"`
	DeviceInfo    DeviceInfo  `json:"deviceInfo"`
	Apps          []AppRecord `json:"apps"`
	Summary       Summary     `json:"summary"`
}

// GeneratedTime parses GeneratedAt back into a time.Time
func (r *Report) GeneratedTime() (time.Time, error) {
	return time.Parse(time.RFC3339, r.GeneratedAt)
}

// GeneratedReport pairs a report with the ID it was cached under
type GeneratedReport struct {
	ID     string  `json:"id"`
	Report *Report `json:"report"`
}

// Inventory is the upstream payload: installed apps plus device metadata
type Inventory struct {
	Apps       []InstalledApp `json:"apps" yaml:"apps"`
	DeviceInfo DeviceInfo     `json:"deviceInfo" yaml:"deviceInfo"`
}
