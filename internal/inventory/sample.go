package inventory

import (
	"context"

	"permguard-lab/internal/domain/models"
)

// SampleSource serves a fixed inventory for previews and environments without
// a device attached.
type SampleSource struct{}

// NewSampleSource creates the sample source
func NewSampleSource() SampleSource {
	return SampleSource{}
}

// SampleApps returns a fresh copy of the sample inventory
func SampleApps() []models.InstalledApp {
	return []models.InstalledApp{
		{
			PackageName: "com.example.messenger",
			AppName:     "Example Messenger",
			Permissions: []string{
				"android.permission.READ_SMS",
				"android.permission.SEND_SMS",
				"android.permission.READ_CONTACTS",
				"android.permission.INTERNET",
			},
		},
		{
			PackageName: "com.example.camera",
			AppName:     "Example Camera",
			Permissions: []string{
				"android.permission.CAMERA",
				"android.permission.RECORD_AUDIO",
				"android.permission.ACCESS_FINE_LOCATION",
				"android.permission.WRITE_EXTERNAL_STORAGE",
			},
		},
		{
			PackageName: "com.example.notes",
			AppName:     "Example Notes",
			Permissions: []string{"android.permission.INTERNET"},
		},
	}
}

// SampleDeviceInfo returns a device record with the keys a real device reports
func SampleDeviceInfo() models.DeviceInfo {
	return models.DeviceInfo{
		"brand":                 "generic",
		"manufacturer":          "Generic",
		"model":                 "Preview Device",
		"systemVersion":         "13",
		"deviceId":              "preview",
		"isEmulator":            true,
		"hasNotch":              false,
		"isTablet":              false,
		"isRooted":              false,
		"isPinOrFingerprintSet": false,
	}
}

// EnumerateApplications implements services.AppSource
func (SampleSource) EnumerateApplications(ctx context.Context) ([]models.InstalledApp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SampleApps(), nil
}

// GetDeviceInfo implements services.AppSource
func (SampleSource) GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SampleDeviceInfo(), nil
}
