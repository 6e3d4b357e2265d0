package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/movement.report/internal/traffic"
	"github.com/banshee-data/movement.report/internal/units"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig holds the dataset-independent analysis defaults. The
// schema matches the settings object accepted by the HTTP API, so the same
// JSON can seed a new dataset or be sent as an update.
type AnalysisConfig struct {
	IntervalMinutes     *int     `json:"interval_minutes,omitempty"`
	MinLengthM          *float64 `json:"min_length_m,omitempty"`
	MaxDirectionChanges *int     `json:"max_direction_changes,omitempty"`
	MinNetOverPathRatio *float64 `json:"min_net_over_path_ratio,omitempty"`
	TTCThresholdS       *float64 `json:"ttc_threshold_s,omitempty"`
	ConflictRadiusM     *float64 `json:"conflict_radius_m,omitempty"`
	Timezone            *string  `json:"timezone,omitempty"`

	// MetresPerUnit scales tracker coordinates to metres.
	MetresPerUnit *float64 `json:"metres_per_unit,omitempty"`

	// ConflictTimeout bounds the conflict scan for interactive requests.
	ConflictTimeout *string `json:"conflict_timeout,omitempty"` // duration string like "30s"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// FromSettings captures s as a fully populated config.
func FromSettings(s traffic.Settings) *AnalysisConfig {
	return &AnalysisConfig{
		IntervalMinutes:     ptrInt(s.IntervalMinutes),
		MinLengthM:          ptrFloat64(s.MinLengthM),
		MaxDirectionChanges: ptrInt(s.MaxDirectionChanges),
		MinNetOverPathRatio: ptrFloat64(s.MinNetOverPathRatio),
		TTCThresholdS:       ptrFloat64(s.TTCThresholdS),
		ConflictRadiusM:     ptrFloat64(s.ConflictRadiusM),
		Timezone:            ptrString(s.Timezone),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file fall back to defaults through the Get* methods.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent of it. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the populated fields. The resulting settings are
// validated in full as well, so an out-of-range value is reported here
// rather than when the first report is computed.
func (c *AnalysisConfig) Validate() error {
	if c.MetresPerUnit != nil && *c.MetresPerUnit <= 0 {
		return fmt.Errorf("metres_per_unit must be positive, got %f", *c.MetresPerUnit)
	}
	if c.ConflictTimeout != nil && *c.ConflictTimeout != "" {
		d, err := time.ParseDuration(*c.ConflictTimeout)
		if err != nil {
			return fmt.Errorf("invalid conflict_timeout '%s': %w", *c.ConflictTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("conflict_timeout must be non-negative, got %s", d)
		}
	}
	return c.ToSettings().Validate()
}

// Merge returns a copy of c with every field set in override replacing the
// corresponding field of c.
func (c *AnalysisConfig) Merge(override *AnalysisConfig) *AnalysisConfig {
	out := *c
	if override == nil {
		return &out
	}
	if override.IntervalMinutes != nil {
		out.IntervalMinutes = override.IntervalMinutes
	}
	if override.MinLengthM != nil {
		out.MinLengthM = override.MinLengthM
	}
	if override.MaxDirectionChanges != nil {
		out.MaxDirectionChanges = override.MaxDirectionChanges
	}
	if override.MinNetOverPathRatio != nil {
		out.MinNetOverPathRatio = override.MinNetOverPathRatio
	}
	if override.TTCThresholdS != nil {
		out.TTCThresholdS = override.TTCThresholdS
	}
	if override.ConflictRadiusM != nil {
		out.ConflictRadiusM = override.ConflictRadiusM
	}
	if override.Timezone != nil {
		out.Timezone = override.Timezone
	}
	if override.MetresPerUnit != nil {
		out.MetresPerUnit = override.MetresPerUnit
	}
	if override.ConflictTimeout != nil {
		out.ConflictTimeout = override.ConflictTimeout
	}
	return &out
}

// ToSettings resolves every field, falling back to defaults.
func (c *AnalysisConfig) ToSettings() traffic.Settings {
	return traffic.Settings{
		IntervalMinutes:     c.GetIntervalMinutes(),
		MinLengthM:          c.GetMinLengthM(),
		MaxDirectionChanges: c.GetMaxDirectionChanges(),
		MinNetOverPathRatio: c.GetMinNetOverPathRatio(),
		TTCThresholdS:       c.GetTTCThresholdS(),
		ConflictRadiusM:     c.GetConflictRadiusM(),
		Timezone:            c.GetTimezone(),
	}
}

// Calibration returns the coordinate mapping described by MetresPerUnit.
func (c *AnalysisConfig) Calibration() units.Calibration {
	if m := c.GetMetresPerUnit(); m != 1 {
		return units.ScaleCalibration(m)
	}
	return units.IdentityCalibration
}

// GetIntervalMinutes returns the interval_minutes value or the default.
func (c *AnalysisConfig) GetIntervalMinutes() int {
	if c.IntervalMinutes == nil {
		return traffic.DefaultSettings().IntervalMinutes
	}
	return *c.IntervalMinutes
}

// GetMinLengthM returns the min_length_m value or the default.
func (c *AnalysisConfig) GetMinLengthM() float64 {
	if c.MinLengthM == nil {
		return traffic.DefaultSettings().MinLengthM
	}
	return *c.MinLengthM
}

// GetMaxDirectionChanges returns the max_direction_changes value or the default.
func (c *AnalysisConfig) GetMaxDirectionChanges() int {
	if c.MaxDirectionChanges == nil {
		return traffic.DefaultSettings().MaxDirectionChanges
	}
	return *c.MaxDirectionChanges
}

// GetMinNetOverPathRatio returns the min_net_over_path_ratio value or the default.
func (c *AnalysisConfig) GetMinNetOverPathRatio() float64 {
	if c.MinNetOverPathRatio == nil {
		return traffic.DefaultSettings().MinNetOverPathRatio
	}
	return *c.MinNetOverPathRatio
}

// GetTTCThresholdS returns the ttc_threshold_s value or the default.
func (c *AnalysisConfig) GetTTCThresholdS() float64 {
	if c.TTCThresholdS == nil {
		return traffic.DefaultSettings().TTCThresholdS
	}
	return *c.TTCThresholdS
}

// GetConflictRadiusM returns the conflict_radius_m value or the default.
func (c *AnalysisConfig) GetConflictRadiusM() float64 {
	if c.ConflictRadiusM == nil {
		return traffic.DefaultSettings().ConflictRadiusM
	}
	return *c.ConflictRadiusM
}

// GetTimezone returns the timezone value or the default.
func (c *AnalysisConfig) GetTimezone() string {
	if c.Timezone == nil || *c.Timezone == "" {
		return units.DefaultTimezone
	}
	return *c.Timezone
}

// GetMetresPerUnit returns the metres_per_unit value or the default.
func (c *AnalysisConfig) GetMetresPerUnit() float64 {
	if c.MetresPerUnit == nil {
		return 1
	}
	return *c.MetresPerUnit
}

// GetConflictTimeout parses and returns the ConflictTimeout. Zero means
// the scan is unbounded.
func (c *AnalysisConfig) GetConflictTimeout() time.Duration {
	if c.ConflictTimeout == nil || *c.ConflictTimeout == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ConflictTimeout)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}
