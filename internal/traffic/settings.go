package traffic

import (
	"math"

	"github.com/banshee-data/movement.report/internal/units"
)

const minutesPerDay = 24 * 60

// Settings holds the analysis thresholds for one dataset.
type Settings struct {
	IntervalMinutes     int     `json:"interval_minutes"`
	MinLengthM          float64 `json:"min_length_m"`
	MaxDirectionChanges int     `json:"max_direction_changes"`
	MinNetOverPathRatio float64 `json:"min_net_over_path_ratio"`
	TTCThresholdS       float64 `json:"ttc_threshold_s"`
	// ConflictRadiusM is the distance at which two road users are
	// considered to occupy the same point.
	ConflictRadiusM float64 `json:"conflict_radius_m"`
	// Timezone names the location whose midnight anchors interval buckets.
	Timezone string `json:"timezone"`
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		IntervalMinutes:     15,
		MinLengthM:          5.0,
		MaxDirectionChanges: 3,
		MinNetOverPathRatio: 0.1,
		TTCThresholdS:       1.5,
		ConflictRadiusM:     1.0,
		Timezone:            units.DefaultTimezone,
	}
}

// Validate rejects out-of-range thresholds.
func (s Settings) Validate() error {
	if s.IntervalMinutes <= 0 || s.IntervalMinutes > minutesPerDay || minutesPerDay%s.IntervalMinutes != 0 {
		return configErr("interval_minutes", "must divide a day evenly, got %d", s.IntervalMinutes)
	}
	if !finite(s.MinLengthM) || s.MinLengthM < 0 {
		return configErr("min_length_m", "must be non-negative, got %v", s.MinLengthM)
	}
	if s.MaxDirectionChanges < 0 {
		return configErr("max_direction_changes", "must be non-negative, got %d", s.MaxDirectionChanges)
	}
	if !finite(s.MinNetOverPathRatio) || s.MinNetOverPathRatio < 0 || s.MinNetOverPathRatio > 1 {
		return configErr("min_net_over_path_ratio", "must be between 0 and 1, got %v", s.MinNetOverPathRatio)
	}
	if !finite(s.TTCThresholdS) || s.TTCThresholdS <= 0 {
		return configErr("ttc_threshold_s", "must be positive, got %v", s.TTCThresholdS)
	}
	if !finite(s.ConflictRadiusM) || s.ConflictRadiusM <= 0 {
		return configErr("conflict_radius_m", "must be positive, got %v", s.ConflictRadiusM)
	}
	if _, err := units.LoadLocation(s.Timezone); err != nil {
		return &ConfigurationError{Field: "timezone", Reason: "unknown timezone", Err: err}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
