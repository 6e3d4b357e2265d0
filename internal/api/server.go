// Package api exposes datasets and their traffic reports over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/timeutil"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxBodyBytes caps request bodies, dataset imports included.
const maxBodyBytes = 64 << 20

type Server struct {
	db       *db.DB
	defaults *config.AnalysisConfig
	units    string
	clock    timeutil.Clock
}

// NewServer serves datasets from database. defaults fills settings a
// dataset does not override; units is the default speed unit for responses.
func NewServer(database *db.DB, defaults *config.AnalysisConfig, units string) *Server {
	if defaults == nil {
		defaults = config.EmptyAnalysisConfig()
	}
	return &Server{
		db:       database,
		defaults: defaults,
		units:    units,
		clock:    timeutil.RealClock{},
	}
}

// SetClock replaces the clock that stamps generated reports.
func (s *Server) SetClock(c timeutil.Clock) {
	s.clock = c
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.showConfig)

	mux.HandleFunc("GET /api/datasets", s.listDatasets)
	mux.HandleFunc("POST /api/datasets", s.importDataset)
	mux.HandleFunc("GET /api/datasets/{id}", s.showDataset)
	mux.HandleFunc("DELETE /api/datasets/{id}", s.deleteDataset)

	mux.HandleFunc("GET /api/datasets/{id}/events", s.listEvents)
	mux.HandleFunc("GET /api/datasets/{id}/volumes", s.showVolumes)
	mux.HandleFunc("GET /api/datasets/{id}/speeds", s.showSpeeds)
	mux.HandleFunc("GET /api/datasets/{id}/conflicts", s.showConflicts)
	mux.HandleFunc("GET /api/datasets/{id}/violations", s.showViolations)
	mux.HandleFunc("GET /api/datasets/{id}/qc", s.showQC)
	mux.HandleFunc("GET /api/datasets/{id}/report", s.showReport)

	mux.HandleFunc("GET /api/datasets/{id}/corrections", s.listCorrections)
	mux.HandleFunc("PUT /api/datasets/{id}/corrections/{track}", s.putCorrection)
	mux.HandleFunc("DELETE /api/datasets/{id}/corrections/{track}", s.deleteCorrection)

	mux.HandleFunc("GET /api/datasets/{id}/zones", s.showZones)
	mux.HandleFunc("PUT /api/datasets/{id}/zones", s.putZones)
	mux.HandleFunc("GET /api/datasets/{id}/settings", s.showSettings)
	mux.HandleFunc("PUT /api/datasets/{id}/settings", s.putSettings)
	mux.HandleFunc("GET /api/datasets/{id}/forbidden", s.showForbidden)
	mux.HandleFunc("PUT /api/datasets/{id}/forbidden", s.putForbidden)
	return mux
}

// Handler wraps ServeMux with request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.ServeMux())
}
