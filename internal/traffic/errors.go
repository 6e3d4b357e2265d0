package traffic

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrCorrectionConflict is matched by every *CorrectionConflictError.
	ErrCorrectionConflict = errors.New("correction conflict")
	// ErrComputationTimeout accompanies a truncated ConflictReport.
	ErrComputationTimeout = errors.New("computation timeout")
	// ErrInvalidTrajectory reports malformed ingested data.
	ErrInvalidTrajectory = errors.New("invalid trajectory")
)

// ConfigurationError reports a malformed overlay: zone geometry, movement
// rules, settings or forbidden movements.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErr(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CorrectionConflictError is returned when a correction names a track that
// is not part of the dataset.
type CorrectionConflictError struct {
	TrackID string
}

func (e *CorrectionConflictError) Error() string {
	return fmt.Sprintf("correction conflict: unknown track_id %q", e.TrackID)
}

// Is makes errors.Is(err, ErrCorrectionConflict) succeed.
func (e *CorrectionConflictError) Is(target error) bool { return target == ErrCorrectionConflict }
