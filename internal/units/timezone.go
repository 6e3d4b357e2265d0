package units

import (
	"fmt"
	"time"
)

// DefaultTimezone is used when a dataset does not name one.
const DefaultTimezone = "UTC"

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LoadLocation resolves a tz database name, treating "" as DefaultTimezone.
// Interval buckets are aligned to midnight in this location.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" || tz == DefaultTimezone {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}
	return loc, nil
}
