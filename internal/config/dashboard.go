// Package config loads the optional dashboard configuration file.
//
// The file is JSON with pointer fields so a partial config overlays the
// compiled-in defaults; fields omitted from the file keep their default
// values. The same shape is returned by /api/config for the front-end to
// initialise its controls.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default control values. The thresholds match the slider defaults the
// operators are used to: below 80% completion and above 3 hours inactive.
const (
	DefaultLowCompletionPct = 80.0
	DefaultInactiveHours    = 3.0
	DefaultOverlayFile      = "driver_team_map.json"
	DefaultPreviewRows      = 20
	DefaultMaxUploadBytes   = 16 << 20
)

// DashboardConfig represents the dashboard configuration file. All fields
// are optional.
type DashboardConfig struct {
	// Anomaly threshold defaults offered to the operator controls.
	LowCompletionPct *float64 `json:"low_completion_pct,omitempty"`
	InactiveHours    *float64 `json:"inactive_hours,omitempty"`

	// OverlayFile is the group-mapping overlay filename, relative to the
	// data directory.
	OverlayFile *string `json:"overlay_file,omitempty"`

	// PreviewRows caps the raw-data preview returned with each upload.
	PreviewRows *int `json:"preview_rows,omitempty"`

	// MaxUploadBytes caps accepted upload size.
	MaxUploadBytes *int64 `json:"max_upload_bytes,omitempty"`
}

// Load reads a DashboardConfig from a JSON file. The path must have a
// .json extension and stay under 1MB.
func Load(path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg DashboardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects out-of-range values.
func (c *DashboardConfig) Validate() error {
	if c.LowCompletionPct != nil && (*c.LowCompletionPct < 0 || *c.LowCompletionPct > 100) {
		return fmt.Errorf("low_completion_pct must be within [0, 100], got %v", *c.LowCompletionPct)
	}
	if c.InactiveHours != nil && *c.InactiveHours < 0 {
		return fmt.Errorf("inactive_hours must be non-negative, got %v", *c.InactiveHours)
	}
	if c.PreviewRows != nil && *c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must be non-negative, got %d", *c.PreviewRows)
	}
	if c.MaxUploadBytes != nil && *c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", *c.MaxUploadBytes)
	}
	return nil
}

// GetLowCompletionPct returns the configured threshold or its default.
func (c *DashboardConfig) GetLowCompletionPct() float64 {
	if c != nil && c.LowCompletionPct != nil {
		return *c.LowCompletionPct
	}
	return DefaultLowCompletionPct
}

// GetInactiveHours returns the configured threshold or its default.
func (c *DashboardConfig) GetInactiveHours() float64 {
	if c != nil && c.InactiveHours != nil {
		return *c.InactiveHours
	}
	return DefaultInactiveHours
}

// GetOverlayFile returns the configured overlay filename or its default.
func (c *DashboardConfig) GetOverlayFile() string {
	if c != nil && c.OverlayFile != nil {
		return *c.OverlayFile
	}
	return DefaultOverlayFile
}

// GetPreviewRows returns the configured preview row cap or its default.
func (c *DashboardConfig) GetPreviewRows() int {
	if c != nil && c.PreviewRows != nil {
		return *c.PreviewRows
	}
	return DefaultPreviewRows
}

// GetMaxUploadBytes returns the configured upload size cap or its default.
func (c *DashboardConfig) GetMaxUploadBytes() int64 {
	if c != nil && c.MaxUploadBytes != nil {
		return *c.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}
