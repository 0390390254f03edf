// Package inventory provides application sources that feed the scan service:
// inventory files exported from a device, the built-in sample set and
// in-memory payloads received over HTTP.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"permguard-lab/internal/domain/models"
)

// Format is the on-disk encoding of an inventory file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the decoder from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported inventory extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Decode parses an inventory document. Missing lists and records decode to
// empty values so the result can be scored directly.
func Decode(r io.Reader, format Format) (*models.Inventory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	var inv models.Inventory
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&inv); err != nil {
			return nil, fmt.Errorf("failed to parse JSON inventory: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &inv); err != nil {
			return nil, fmt.Errorf("failed to parse YAML inventory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown inventory format %q", format)
	}

	normalize(&inv)
	return &inv, nil
}

func normalize(inv *models.Inventory) {
	if inv.Apps == nil {
		inv.Apps = []models.InstalledApp{}
	}
	for i := range inv.Apps {
		if inv.Apps[i].Permissions == nil {
			inv.Apps[i].Permissions = []string{}
		}
	}
	if inv.DeviceInfo == nil {
		inv.DeviceInfo = models.DeviceInfo{}
	}
}

// FileSource reads apps and device info from an inventory file. The file is
// read on every call so a long-running process sees updates.
type FileSource struct {
	path   string
	format Format
}

// NewFileSource creates a source for path; the format comes from its extension
func NewFileSource(path string) (*FileSource, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{path: path, format: format}, nil
}

// Path returns the inventory file path
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and decodes the whole file
func (s *FileSource) Load(ctx context.Context) (*models.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory: %w", err)
	}
	defer f.Close()

	inv, err := Decode(f, s.format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return inv, nil
}

// EnumerateApplications implements services.AppSource
func (s *FileSource) EnumerateApplications(ctx context.Context) ([]models.InstalledApp, error) {
	inv, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return inv.Apps, nil
}

// GetDeviceInfo implements services.AppSource
func (s *FileSource) GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	inv, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return inv.DeviceInfo, nil
}
