package api

import (
	"errors"
	"net/http"

	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/httputil"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// writeError maps store and engine errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, traffic.ErrCorrectionConflict):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, traffic.ErrConfiguration), errors.Is(err, traffic.ErrInvalidTrajectory):
		httputil.UnprocessableEntity(w, err.Error())
	default:
		monitoring.Logf("api: %v", err)
		httputil.InternalServerError(w, "internal error")
	}
}
