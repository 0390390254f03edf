package inventory

import (
	"context"
	"slices"

	"permguard-lab/internal/domain/models"
)

// StaticSource serves an inventory already held in memory, such as an API
// request body.
type StaticSource struct {
	apps       []models.InstalledApp
	deviceInfo models.DeviceInfo
}

// NewStaticSource wraps apps and device info. Nil values become empty.
func NewStaticSource(apps []models.InstalledApp, deviceInfo models.DeviceInfo) *StaticSource {
	inv := models.Inventory{Apps: slices.Clone(apps), DeviceInfo: deviceInfo.Clone()}
	normalize(&inv)
	return &StaticSource{apps: inv.Apps, deviceInfo: inv.DeviceInfo}
}

// FromInventory wraps a decoded inventory
func FromInventory(inv *models.Inventory) *StaticSource {
	if inv == nil {
		return NewStaticSource(nil, nil)
	}
	return NewStaticSource(inv.Apps, inv.DeviceInfo)
}

// EnumerateApplications implements services.AppSource
func (s *StaticSource) EnumerateApplications(ctx context.Context) ([]models.InstalledApp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.apps), nil
}

// GetDeviceInfo implements services.AppSource
func (s *StaticSource) GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.deviceInfo.Clone(), nil
}
